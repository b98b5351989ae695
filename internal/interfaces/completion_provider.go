package interfaces

import (
	"context"
	"encoding/json"
)

// CompletionRequest describes a single chat completion call.
type CompletionRequest struct {
	// System is the system prompt, empty for none.
	System string

	// User is the user message content.
	User string

	MaxTokens   int
	Temperature float32

	// Stop sequences terminate generation when emitted by the model.
	Stop []string
}

// ToolSpec describes a function tool offered to the model for structured
// extraction. Parameters is a JSON Schema object.
type ToolSpec struct {
	Name        string
	Description string
	Parameters  map[string]interface{}
}

// CompletionProvider is a chat-completion backend.
type CompletionProvider interface {
	// StreamCompletion starts a completion and returns a channel of text
	// chunks in emission order. The channel is closed when the stream
	// ends, whether by normal completion, upstream error, or context
	// cancellation. An error return means the stream could not be
	// established at all.
	StreamCompletion(ctx context.Context, req CompletionRequest) (<-chan string, error)

	// ExtractStructured forces the model to call the given tool and
	// returns the raw JSON arguments it produced.
	ExtractStructured(ctx context.Context, req CompletionRequest, tool ToolSpec) (json.RawMessage, error)
}
