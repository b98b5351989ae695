package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/nerdlab53/serch.io/internal/httpclient"
	"github.com/nerdlab53/serch.io/internal/interfaces"
	"github.com/nerdlab53/serch.io/internal/models"
	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"
)

const (
	// DefaultSearchAPIURL is the searchapi.io search endpoint.
	DefaultSearchAPIURL = "https://www.searchapi.io/api/v1/search"

	// DefaultSearchAPITimeout bounds the search call. SearchAPI is
	// slower than Serper, so it gets a wider bound.
	DefaultSearchAPITimeout = 30 * time.Second
)

// SearchAPIClient queries www.searchapi.io.
type SearchAPIClient struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	logger     arbor.ILogger
	limiter    *rate.Limiter
}

// Compile-time assertion: SearchAPIClient implements SearchProvider
var _ interfaces.SearchProvider = (*SearchAPIClient)(nil)

// SearchAPIOption configures the SearchAPIClient.
type SearchAPIOption func(*SearchAPIClient)

// WithSearchAPIEndpoint sets a custom endpoint.
func WithSearchAPIEndpoint(endpoint string) SearchAPIOption {
	return func(c *SearchAPIClient) {
		c.endpoint = endpoint
	}
}

// WithSearchAPIHTTPClient sets a custom HTTP client.
func WithSearchAPIHTTPClient(httpClient *http.Client) SearchAPIOption {
	return func(c *SearchAPIClient) {
		c.httpClient = httpClient
	}
}

// WithSearchAPILogger sets a logger.
func WithSearchAPILogger(logger arbor.ILogger) SearchAPIOption {
	return func(c *SearchAPIClient) {
		c.logger = logger
	}
}

// WithSearchAPIRateLimit sets a custom rate limit.
func WithSearchAPIRateLimit(requestsPerSecond int) SearchAPIOption {
	return func(c *SearchAPIClient) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// NewSearchAPIClient creates a new SearchAPI search provider.
func NewSearchAPIClient(apiKey string, opts ...SearchAPIOption) *SearchAPIClient {
	c := &SearchAPIClient{
		endpoint:   DefaultSearchAPIURL,
		apiKey:     apiKey,
		httpClient: httpclient.NewDefaultHTTPClient(DefaultSearchAPITimeout),
		limiter:    rate.NewLimiter(rate.Limit(DefaultSearchRateLimit), DefaultSearchRateLimit),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// searchAPIResponse is the subset of the SearchAPI payload this service
// reads. OrganicResults stays nil when the key is absent, which is how
// a malformed success payload is detected.
type searchAPIResponse struct {
	AnswerBox        *searchAPIAnswerBox      `json:"answer_box"`
	KnowledgeGraph   *searchAPIKnowledgeGraph `json:"knowledge_graph"`
	OrganicResults   []searchAPIOrganic       `json:"organic_results"`
	RelatedQuestions []searchAPIRelatedEntry  `json:"related_questions"`
}

type searchAPIAnswerBox struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Answer  string `json:"answer"`
	Snippet string `json:"snippet"`
}

type searchAPIKnowledgeGraph struct {
	Title       string `json:"title"`
	Website     string `json:"website"`
	Description string `json:"description"`
}

type searchAPIOrganic struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

type searchAPIRelatedEntry struct {
	Question string           `json:"question"`
	Answer   string           `json:"answer"`
	Source   *searchAPISource `json:"source"`
}

type searchAPISource struct {
	Link string `json:"link"`
}

// Name identifies the backend for logs and error reporting.
func (c *SearchAPIClient) Name() string {
	return "SEARCHAPI"
}

// Search executes the query and returns at most ReferencesCount
// contexts: answer box, then knowledge graph, then organic results,
// then answered related questions. Structured entries missing a url or
// snippet are skipped, not defaulted.
func (c *SearchAPIClient) Search(ctx context.Context, query string) ([]models.Context, error) {
	// Wait for rate limiter
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait aborted: %w", err)
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("engine", "google")
	params.Set("num", strconv.Itoa(pageSize()))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	if c.logger != nil {
		c.logger.Debug().
			Str("query", query).
			Int("num", pageSize()).
			Msg("SearchAPI search request")
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
				Msg("SearchAPI search failed")
		}
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    string(body),
			Provider:   c.Name(),
		}
	}

	var result searchAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	// A success payload without the organic_results key is malformed;
	// treat it as no results rather than an error.
	if result.OrganicResults == nil {
		if c.logger != nil {
			c.logger.Error().Str("query", query).Msg("SearchAPI response missing organic results")
		}
		return []models.Context{}, nil
	}

	contexts := make([]models.Context, 0, ReferencesCount)
	if ab := result.AnswerBox; ab != nil {
		snippet := ab.Answer
		if snippet == "" {
			snippet = ab.Snippet
		}
		if ab.Link != "" && snippet != "" {
			contexts = append(contexts, models.Context{
				Name:    ab.Title,
				URL:     ab.Link,
				Snippet: snippet,
			})
		}
	}
	if kg := result.KnowledgeGraph; kg != nil {
		if kg.Website != "" && kg.Description != "" {
			contexts = append(contexts, models.Context{
				Name:    kg.Title,
				URL:     kg.Website,
				Snippet: kg.Description,
			})
		}
	}
	for _, organic := range result.OrganicResults {
		contexts = append(contexts, models.Context{
			Name:    organic.Title,
			URL:     organic.Link,
			Snippet: organic.Snippet,
		})
	}
	for _, question := range result.RelatedQuestions {
		link := ""
		if question.Source != nil {
			link = question.Source.Link
		}
		if link != "" && question.Answer != "" {
			contexts = append(contexts, models.Context{
				Name:    question.Question,
				URL:     link,
				Snippet: question.Answer,
			})
		}
	}

	if len(contexts) > ReferencesCount {
		contexts = contexts[:ReferencesCount]
	}

	return contexts, nil
}
