package interfaces

import (
	"context"

	"github.com/nerdlab53/serch.io/internal/models"
)

// SearchProvider fetches web search results for a user query.
type SearchProvider interface {
	// Search returns ordered contexts for the query, truncated to the
	// reference count. Upstream HTTP failures surface as a typed error
	// carrying the upstream status code; a success payload missing the
	// expected result keys yields an empty slice and no error.
	Search(ctx context.Context, query string) ([]models.Context, error)

	// Name identifies the backend (e.g. "SERPER", "SEARCHAPI") for logs.
	Name() string
}
