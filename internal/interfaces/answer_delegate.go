package interfaces

import (
	"context"

	"github.com/nerdlab53/serch.io/internal/models"
)

// AnswerDelegate forwards a query to an upstream deployment of this same
// service and streams back the envelope it produced, chunk by chunk.
// Used when the configured backend is another instance rather than a
// local search provider.
type AnswerDelegate interface {
	Query(ctx context.Context, req *models.QueryRequest) (<-chan string, error)
}
