// Package search provides the web search providers that turn a user
// query into the ordered contexts used to ground answer generation.
package search

import "fmt"

// ReferencesCount is the number of contexts kept per query. The answer
// prompt cites contexts by position, so this also bounds citation
// numbering.
const ReferencesCount = 4

// pageSize returns the result count requested from a provider:
// ReferencesCount rounded up to the next multiple of 10, the paging
// granularity both providers use.
func pageSize() int {
	if ReferencesCount%10 == 0 {
		return ReferencesCount
	}
	return (ReferencesCount/10 + 1) * 10
}

// APIError represents a non-2xx response from a search provider.
// The HTTP layer forwards StatusCode to the caller.
type APIError struct {
	StatusCode int
	Message    string
	Provider   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s search error: %s (status: %d)", e.Provider, e.Message, e.StatusCode)
}
