package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/nerdlab53/serch.io/internal/httpclient"
	"github.com/nerdlab53/serch.io/internal/interfaces"
	"github.com/nerdlab53/serch.io/internal/models"
	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"
)

const (
	// DefaultSerperURL is the Serper Google-search endpoint.
	DefaultSerperURL = "https://google.serper.dev/search"

	// DefaultSerperTimeout bounds the blocking search call. The answer
	// stream cannot start until search returns, so this stays short.
	DefaultSerperTimeout = 5 * time.Second

	// DefaultSearchRateLimit caps requests per second to a provider.
	DefaultSearchRateLimit = 10
)

// SerperClient queries google.serper.dev.
type SerperClient struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	logger     arbor.ILogger
	limiter    *rate.Limiter
}

// Compile-time assertion: SerperClient implements SearchProvider
var _ interfaces.SearchProvider = (*SerperClient)(nil)

// SerperOption configures the SerperClient.
type SerperOption func(*SerperClient)

// WithSerperEndpoint sets a custom endpoint.
func WithSerperEndpoint(endpoint string) SerperOption {
	return func(c *SerperClient) {
		c.endpoint = endpoint
	}
}

// WithSerperHTTPClient sets a custom HTTP client.
func WithSerperHTTPClient(httpClient *http.Client) SerperOption {
	return func(c *SerperClient) {
		c.httpClient = httpClient
	}
}

// WithSerperLogger sets a logger.
func WithSerperLogger(logger arbor.ILogger) SerperOption {
	return func(c *SerperClient) {
		c.logger = logger
	}
}

// WithSerperRateLimit sets a custom rate limit.
func WithSerperRateLimit(requestsPerSecond int) SerperOption {
	return func(c *SerperClient) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// NewSerperClient creates a new Serper search provider.
func NewSerperClient(apiKey string, opts ...SerperOption) *SerperClient {
	c := &SerperClient{
		endpoint:   DefaultSerperURL,
		apiKey:     apiKey,
		httpClient: httpclient.NewDefaultHTTPClient(DefaultSerperTimeout),
		limiter:    rate.NewLimiter(rate.Limit(DefaultSearchRateLimit), DefaultSearchRateLimit),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// serperResponse is the subset of the Serper payload this service reads.
// Organic stays a nil slice when the key is absent entirely, which is
// how a malformed success payload is detected.
type serperResponse struct {
	KnowledgeGraph *serperKnowledgeGraph `json:"knowledgeGraph"`
	AnswerBox      *serperAnswerBox      `json:"answerBox"`
	Organic        []serperOrganic       `json:"organic"`
}

type serperKnowledgeGraph struct {
	Title          string `json:"title"`
	DescriptionURL string `json:"descriptionUrl"`
	Website        string `json:"website"`
	Description    string `json:"description"`
}

type serperAnswerBox struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
	Answer  string `json:"answer"`
}

type serperOrganic struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

// Name identifies the backend for logs and error reporting.
func (c *SerperClient) Name() string {
	return "SERPER"
}

// Search executes the query and returns at most ReferencesCount
// contexts: knowledge graph first, then answer box, then organic
// results. Structured entries missing a url or snippet are skipped,
// not defaulted.
func (c *SerperClient) Search(ctx context.Context, query string) ([]models.Context, error) {
	// Wait for rate limiter
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait aborted: %w", err)
	}

	payload, err := json.Marshal(map[string]interface{}{
		"q":   query,
		"num": pageSize(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode search payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-API-KEY", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	if c.logger != nil {
		c.logger.Debug().
			Str("query", query).
			Int("num", pageSize()).
			Msg("Serper search request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		if c.logger != nil {
			c.logger.Error().
				Int("status", resp.StatusCode).
				Str("body", string(body)).
				Msg("Serper search failed")
		}
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    string(body),
			Provider:   c.Name(),
		}
	}

	var result serperResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	// A success payload without the organic key is malformed; treat it
	// as no results rather than an error so the query still answers.
	if result.Organic == nil {
		if c.logger != nil {
			c.logger.Error().Str("query", query).Msg("Serper response missing organic results")
		}
		return []models.Context{}, nil
	}

	contexts := make([]models.Context, 0, ReferencesCount)
	if kg := result.KnowledgeGraph; kg != nil {
		url := kg.DescriptionURL
		if url == "" {
			url = kg.Website
		}
		if url != "" && kg.Description != "" {
			contexts = append(contexts, models.Context{
				Name:    kg.Title,
				URL:     url,
				Snippet: kg.Description,
			})
		}
	}
	if ab := result.AnswerBox; ab != nil {
		snippet := ab.Snippet
		if snippet == "" {
			snippet = ab.Answer
		}
		if ab.URL != "" && snippet != "" {
			contexts = append(contexts, models.Context{
				Name:    ab.Title,
				URL:     ab.URL,
				Snippet: snippet,
			})
		}
	}
	for _, organic := range result.Organic {
		contexts = append(contexts, models.Context{
			Name:    organic.Title,
			URL:     organic.Link,
			Snippet: organic.Snippet,
		})
	}

	if len(contexts) > ReferencesCount {
		contexts = contexts[:ReferencesCount]
	}

	return contexts, nil
}
