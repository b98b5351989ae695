// -----------------------------------------------------------------------
// Lepton Delegate - forwards queries to an upstream serch deployment
// -----------------------------------------------------------------------

package lepton

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/nerdlab53/serch.io/internal/common"
	"github.com/nerdlab53/serch.io/internal/httpclient"
	"github.com/nerdlab53/serch.io/internal/interfaces"
	"github.com/nerdlab53/serch.io/internal/models"
)

const (
	// DefaultBaseURL is the hosted deployment queries are forwarded to.
	DefaultBaseURL = "https://search-api.lepton.run/"

	// DefaultConnectTimeout bounds the dial. The response body itself
	// stays open for the life of the answer stream.
	DefaultConnectTimeout = 10 * time.Second

	// streamBufferSize is the read size for relaying the upstream body.
	streamBufferSize = 4 * 1024
)

// Client forwards query requests to an upstream deployment and relays its
// response body verbatim. The upstream speaks the same envelope format, so
// nothing is parsed locally.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     arbor.ILogger
}

// Compile-time assertion: Client implements AnswerDelegate
var _ interfaces.AnswerDelegate = (*Client)(nil)

// Option configures the delegate client
type Option func(*Client)

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

// NewClient creates a delegate client for the given upstream deployment.
func NewClient(baseURL, token string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	c := &Client{
		baseURL:    baseURL,
		token:      token,
		httpClient: httpclient.NewStreamingHTTPClient(DefaultConnectTimeout),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Query posts the request to the upstream /query endpoint and returns a
// channel relaying the raw envelope bytes as they arrive. The channel is
// closed when the upstream finishes, fails, or ctx is cancelled.
func (c *Client) Query(ctx context.Context, req *models.QueryRequest) (<-chan string, error) {
	payload, err := json.Marshal(map[string]interface{}{
		"query":                      req.Query,
		"search_uuid":                req.SearchUUID,
		"generate_related_questions": req.RelatedEnabled(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal delegate request: %w", err)
	}

	endpoint := strings.TrimSuffix(c.baseURL, "/") + "/query"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create delegate request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	if c.logger != nil {
		c.logger.Debug().
			Str("search_uuid", req.SearchUUID).
			Str("endpoint", endpoint).
			Msg("Forwarding query upstream")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to reach upstream deployment: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("upstream deployment returned status %d: %s", resp.StatusCode, string(body))
	}

	chunks := make(chan string)

	common.SafeGo(c.logger, "lepton-relay", func() {
		defer close(chunks)
		defer resp.Body.Close()

		buf := make([]byte, streamBufferSize)
		for {
			n, err := resp.Body.Read(buf)
			if n > 0 {
				select {
				case chunks <- string(buf[:n]):
				case <-ctx.Done():
					return
				}
			}
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				if c.logger != nil {
					c.logger.Error().Err(err).Str("search_uuid", req.SearchUUID).Msg("Upstream relay interrupted")
				}
				return
			}
		}
	})

	return chunks, nil
}
