package interfaces

import (
	"context"

	"github.com/nerdlab53/serch.io/internal/models"
)

// RelatedGenerator produces follow-up questions for an answered query.
// Implementations never fail: generation problems yield an empty list.
type RelatedGenerator interface {
	Generate(ctx context.Context, query string, contexts []models.Context) []string
}
