package interfaces

import (
	"context"

	"github.com/nerdlab53/serch.io/internal/models"
)

// AnswerService resolves a query request into a stream of answer envelope
// chunks. The channel is closed when the envelope is complete or the
// context is cancelled; errors are returned only for failures that happen
// before the first byte is produced.
type AnswerService interface {
	Answer(ctx context.Context, req *models.QueryRequest) (<-chan string, error)
}
