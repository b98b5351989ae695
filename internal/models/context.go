package models

// Context is a single web search result passed to the language model as
// grounding material. Contexts are ordered: the entry at position i is
// cited in the generated answer as [[citation:i+1]], so reordering or
// dropping entries after prompt construction would corrupt citations.
type Context struct {
	Name    string `json:"name"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}
