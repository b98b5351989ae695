// -----------------------------------------------------------------------
// Completion Client - OpenAI-compatible chat completion endpoint
// -----------------------------------------------------------------------

package completion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
	"github.com/ternarybob/arbor"

	"github.com/nerdlab53/serch.io/internal/common"
	"github.com/nerdlab53/serch.io/internal/interfaces"
)

// Client talks to an OpenAI-compatible chat completion endpoint. The
// deployment URL is derived from the model name unless overridden, so
// each model maps to its own serving endpoint.
type Client struct {
	client     *openai.Client
	model      string
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     arbor.ILogger
}

// Compile-time assertion: Client implements CompletionProvider
var _ interfaces.CompletionProvider = (*Client)(nil)

// Option configures the completion client
type Option func(*Client)

// WithBaseURL overrides the endpoint derived from the model name
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets the logger for the client
func WithLogger(logger arbor.ILogger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a completion client from the LLM configuration.
// No overall request timeout is set: answer streams are long-lived and
// are bounded by the caller's context instead.
func NewClient(cfg common.LLMConfig, opts ...Option) *Client {
	c := &Client{
		model:   cfg.Model,
		baseURL: cfg.ResolveBaseURL(),
		apiKey:  cfg.APIKey,
	}

	for _, opt := range opts {
		opt(c)
	}

	config := openai.DefaultConfig(c.apiKey)
	config.BaseURL = c.baseURL
	if c.httpClient != nil {
		config.HTTPClient = c.httpClient
	}
	c.client = openai.NewClientWithConfig(config)

	return c
}

// buildMessages assembles the chat transcript, omitting the system
// message entirely when no system prompt was given.
func buildMessages(req interfaces.CompletionRequest) []openai.ChatCompletionMessage {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.User,
	})
	return messages
}

// StreamCompletion opens a streaming chat completion and returns a channel
// of content deltas. The channel is closed when the model finishes, the
// stream fails, or ctx is cancelled. A setup failure is returned directly
// so the caller can reject the request before any bytes are written.
func (c *Client) StreamCompletion(ctx context.Context, req interfaces.CompletionRequest) (<-chan string, error) {
	stream, err := c.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    buildMessages(req),
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		Stop:        req.Stop,
		Stream:      true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open completion stream: %w", err)
	}

	chunks := make(chan string)

	common.SafeGo(c.logger, "completion-stream", func() {
		defer close(chunks)
		defer stream.Close()

		for {
			response, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				// Mid-stream failure: the answer is truncated at
				// whatever was already delivered.
				if c.logger != nil {
					c.logger.Error().Err(err).Str("model", c.model).Msg("Completion stream receive failed")
				}
				return
			}

			if len(response.Choices) == 0 {
				continue
			}
			delta := response.Choices[0].Delta.Content
			if delta == "" {
				continue
			}

			select {
			case chunks <- delta:
			case <-ctx.Done():
				return
			}
		}
	})

	return chunks, nil
}

// ExtractStructured runs a non-streaming completion that forces the model
// through a function tool and returns the raw tool call arguments. The
// caller owns parsing; argument payloads vary by model.
func (c *Client) ExtractStructured(ctx context.Context, req interfaces.CompletionRequest, tool interfaces.ToolSpec) (json.RawMessage, error) {
	response, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    buildMessages(req),
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		Tools: []openai.Tool{
			{
				Type: openai.ToolTypeFunction,
				Function: &openai.FunctionDefinition{
					Name:        tool.Name,
					Description: tool.Description,
					Parameters:  tool.Parameters,
				},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("tool completion failed: %w", err)
	}

	if len(response.Choices) == 0 {
		return nil, fmt.Errorf("completion returned no choices")
	}
	toolCalls := response.Choices[0].Message.ToolCalls
	if len(toolCalls) == 0 {
		return nil, fmt.Errorf("completion returned no tool calls")
	}

	return json.RawMessage(toolCalls[0].Function.Arguments), nil
}
