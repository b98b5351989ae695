package answer

import "regexp"

// Envelope sentinels. Clients split the streamed body on these, so the
// exact byte sequences are part of the wire contract and must never
// change between a generated response and its cached replay.
const (
	// LLMResponseSentinel separates the JSON context list from the
	// answer text.
	LLMResponseSentinel = "\n___LLM_RESPONSE___\n"

	// RelatedQuestionsSentinel separates the answer text from the JSON
	// list of follow-up questions.
	RelatedQuestionsSentinel = "\n\n__RELATED_QUESTIONS__\n\n"
)

// answerMaxTokens bounds the main answer generation call.
const answerMaxTokens = 1024

// defaultQuery stands in when a request carries an empty query.
const defaultQuery = "Which character on the show 'The Big Bang Theory' idolizes Spock the most?"

// noContextNotice is emitted in place of an answer grounding when the
// search engine returned nothing usable.
const noContextNotice = "Could not get the context as the search engine did not return any answer for this query."

// instTagPattern strips instruction-tuning markers that some clients
// leak into the query text.
var instTagPattern = regexp.MustCompile(`\[/?INST\]`)

// stopWords terminate answer generation. Open-weight chat models tend to
// append reference lists and end markers; cutting at these keeps the
// answer clean.
var stopWords = []string{
	"<|im_end|>",
	"[End]",
	"[end]",
	"\nReferences:\n",
	"\nSources:\n",
	"End.",
}

// ragQueryText is the system prompt for answer generation. The
// placeholder receives the numbered citation blocks built from the
// search contexts.
const ragQueryText = `
You are a large language AI assistant. You are given a user question, and please write clean, concise and accurate answer to the question. You will be given a set of related contexts to the question, each starting with a reference number like [[citation:x]], where x is a number. Please use the context and cite the context at the end of each sentence if applicable.

Your answer must be correct, accurate and written by an expert using an unbiased and professional tone. Please limit to 1024 tokens. Do not give any information that is not related to the question, and do not repeat. Say "information is missing on" followed by the related topic, if the given context do not provide sufficient information.

Please cite the contexts with the reference numbers, in the format [citation:x]. If a sentence comes from multiple contexts, please list all applicable citations, like [citation:3][citation:5]. Other than code and specific names and citations, your answer must be written in the same language as the question.

Here are the set of contexts:

%s

Remember, don't blindly repeat the contexts verbatim. And here is the user question:
`
