package search

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerperClient(t *testing.T) {
	t.Run("sends query with rounded-up result count", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "POST", r.Method)
			assert.Equal(t, "test-key", r.Header.Get("X-API-KEY"))
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

			var body map[string]interface{}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "who is spock", body["q"])
			assert.Equal(t, float64(10), body["num"])

			w.Write([]byte(`{"organic":[]}`))
		}))
		defer server.Close()

		client := NewSerperClient("test-key", WithSerperEndpoint(server.URL))
		contexts, err := client.Search(context.Background(), "who is spock")
		require.NoError(t, err)
		assert.Empty(t, contexts)
	})

	t.Run("merges knowledge graph and answer box ahead of organic", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{
				"knowledgeGraph": {"title": "Spock", "descriptionUrl": "https://kg.example", "description": "A Vulcan officer"},
				"answerBox": {"title": "Answer", "url": "https://ab.example", "snippet": "Sheldon Cooper"},
				"organic": [
					{"title": "First", "link": "https://one.example", "snippet": "s1"},
					{"title": "Second", "link": "https://two.example", "snippet": "s2"},
					{"title": "Third", "link": "https://three.example", "snippet": "s3"}
				]
			}`))
		}))
		defer server.Close()

		client := NewSerperClient("test-key", WithSerperEndpoint(server.URL))
		contexts, err := client.Search(context.Background(), "who idolizes spock")
		require.NoError(t, err)

		// Truncated to the reference count, structured entries first
		require.Len(t, contexts, 4)
		assert.Equal(t, "Spock", contexts[0].Name)
		assert.Equal(t, "https://kg.example", contexts[0].URL)
		assert.Equal(t, "Answer", contexts[1].Name)
		assert.Equal(t, "Sheldon Cooper", contexts[1].Snippet)
		assert.Equal(t, "First", contexts[2].Name)
		assert.Equal(t, "Second", contexts[3].Name)
	})

	t.Run("knowledge graph falls back to website url", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{
				"knowledgeGraph": {"title": "Spock", "website": "https://site.example", "description": "desc"},
				"organic": []
			}`))
		}))
		defer server.Close()

		client := NewSerperClient("test-key", WithSerperEndpoint(server.URL))
		contexts, err := client.Search(context.Background(), "q")
		require.NoError(t, err)
		require.Len(t, contexts, 1)
		assert.Equal(t, "https://site.example", contexts[0].URL)
	})

	t.Run("skips structured entries missing url or snippet", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{
				"knowledgeGraph": {"title": "NoURL", "description": "desc"},
				"answerBox": {"title": "NoSnippet", "url": "https://ab.example"},
				"organic": [{"title": "Only", "link": "https://one.example", "snippet": "s"}]
			}`))
		}))
		defer server.Close()

		client := NewSerperClient("test-key", WithSerperEndpoint(server.URL))
		contexts, err := client.Search(context.Background(), "q")
		require.NoError(t, err)
		require.Len(t, contexts, 1)
		assert.Equal(t, "Only", contexts[0].Name)
	})

	t.Run("answer box falls back to answer field", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{
				"answerBox": {"title": "Answer", "url": "https://ab.example", "answer": "42"},
				"organic": []
			}`))
		}))
		defer server.Close()

		client := NewSerperClient("test-key", WithSerperEndpoint(server.URL))
		contexts, err := client.Search(context.Background(), "q")
		require.NoError(t, err)
		require.Len(t, contexts, 1)
		assert.Equal(t, "42", contexts[0].Snippet)
	})

	t.Run("missing organic key yields empty result without error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"knowledgeGraph": {"title": "T", "website": "https://w", "description": "d"}}`))
		}))
		defer server.Close()

		client := NewSerperClient("test-key", WithSerperEndpoint(server.URL))
		contexts, err := client.Search(context.Background(), "q")
		require.NoError(t, err)
		assert.Empty(t, contexts)
	})

	t.Run("upstream failure surfaces as APIError with status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte("quota exceeded"))
		}))
		defer server.Close()

		client := NewSerperClient("test-key", WithSerperEndpoint(server.URL))
		_, err := client.Search(context.Background(), "q")

		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
		assert.Equal(t, "SERPER", apiErr.Provider)
		assert.Contains(t, apiErr.Message, "quota exceeded")
	})
}
