// -----------------------------------------------------------------------
// Related Questions - follow-up question generation from answer contexts
// -----------------------------------------------------------------------

package related

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/nerdlab53/serch.io/internal/interfaces"
	"github.com/nerdlab53/serch.io/internal/models"
)

const (
	// maxQuestions caps the list appended to the answer envelope.
	maxQuestions = 5

	// maxTokens bounds the follow-up generation call. Follow-ups are
	// short, so this sits well below the answer call's limit.
	maxTokens = 512

	toolName        = "ask_related_questions"
	toolDescription = "ask further questions that are related to the input and output."
)

// moreQuestionsPrompt is the system prompt for follow-up generation. The
// placeholder receives the snippets of the answer contexts joined by
// blank lines.
const moreQuestionsPrompt = `
You are a helpful assistant that helps the user to ask related questions, based on user's original question and the related contexts. Please identify worthwhile topics that can be follow-ups, and write questions no longer than 20 words each. Please make sure that specifics, like events, names, locations, are included in follow up questions so they can be asked standalone. For example, if the original question asks about "the Manhattan project", in the follow up question, do not just say "the project", but use the full name "the Manhattan project". Your related questions must be in the same language as the original question.

Here are the contexts of the question:

%s

Remember, based on the original question and related contexts, suggest three such further questions. Do NOT repeat the original question. Each related question should be no longer than 20 words. Here is the original question:
`

// Generator produces follow-up questions for an answered query.
type Generator struct {
	completion interfaces.CompletionProvider
	logger     arbor.ILogger
}

// Compile-time assertion: Generator implements RelatedGenerator
var _ interfaces.RelatedGenerator = (*Generator)(nil)

// NewGenerator creates a related questions generator.
func NewGenerator(completion interfaces.CompletionProvider, logger arbor.ILogger) *Generator {
	return &Generator{
		completion: completion,
		logger:     logger,
	}
}

// Generate returns up to five follow-up questions for the query, grounded
// on the search contexts. Follow-ups are a garnish on the answer: any
// failure is logged and an empty list returned, never an error.
func (g *Generator) Generate(ctx context.Context, query string, contexts []models.Context) []string {
	snippets := make([]string, len(contexts))
	for i, c := range contexts {
		snippets[i] = c.Snippet
	}

	arguments, err := g.completion.ExtractStructured(ctx,
		interfaces.CompletionRequest{
			System:    fmt.Sprintf(moreQuestionsPrompt, strings.Join(snippets, "\n\n")),
			User:      query,
			MaxTokens: maxTokens,
		},
		interfaces.ToolSpec{
			Name:        toolName,
			Description: toolDescription,
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"questions": map[string]interface{}{
						"type":        "array",
						"description": "related question to the original question and context.",
						"items": map[string]interface{}{
							"type": "string",
						},
					},
				},
				"required": []string{"questions"},
			},
		})
	if err != nil {
		if g.logger != nil {
			g.logger.Error().Err(err).Str("query", query).Msg("Failed to generate related questions")
		}
		return []string{}
	}

	questions, err := parseQuestions(arguments)
	if err != nil {
		if g.logger != nil {
			g.logger.Error().Err(err).Str("arguments", string(arguments)).Msg("Failed to parse related questions")
		}
		return []string{}
	}

	if len(questions) > maxQuestions {
		questions = questions[:maxQuestions]
	}
	return questions
}

// parseQuestions extracts the question list from tool call arguments.
// Models disagree about the payload shape, so three forms are accepted:
// a plain string list, schema-shaped objects with a question field, and
// either of those double-encoded as a JSON string.
func parseQuestions(raw json.RawMessage) ([]string, error) {
	var wrapped string
	if err := json.Unmarshal(raw, &wrapped); err == nil {
		raw = json.RawMessage(wrapped)
	}

	var direct struct {
		Questions []string `json:"questions"`
	}
	if err := json.Unmarshal(raw, &direct); err == nil && direct.Questions != nil {
		return direct.Questions, nil
	}

	var shaped struct {
		Questions []struct {
			Question string `json:"question"`
		} `json:"questions"`
	}
	if err := json.Unmarshal(raw, &shaped); err == nil && shaped.Questions != nil {
		questions := make([]string, 0, len(shaped.Questions))
		for _, entry := range shaped.Questions {
			if entry.Question != "" {
				questions = append(questions, entry.Question)
			}
		}
		return questions, nil
	}

	return nil, fmt.Errorf("unrecognized tool arguments payload")
}
