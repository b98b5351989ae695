package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/nerdlab53/serch.io/internal/interfaces"
	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"
)

// answerRecord is the stored form of a cached response envelope.
// Keys are the client-supplied search UUIDs and are used verbatim:
// they are opaque identifiers, so no normalization is applied.
type answerRecord struct {
	Key       string
	Envelope  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AnswerStorage implements the AnswerCache interface for Badger
type AnswerStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewAnswerStorage creates a new AnswerStorage instance
func NewAnswerStorage(db *BadgerDB, logger arbor.ILogger) interfaces.AnswerCache {
	return &AnswerStorage{
		db:     db,
		logger: logger,
	}
}

// Get retrieves the envelope cached under key
func (s *AnswerStorage) Get(ctx context.Context, key string) (string, error) {
	var rec answerRecord
	err := s.db.Store().Get(key, &rec)
	if err == badgerhold.ErrNotFound {
		return "", interfaces.ErrKeyNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get cached answer: %w", err)
	}

	return rec.Envelope, nil
}

// Put stores the envelope under key, overwriting any existing value
func (s *AnswerStorage) Put(ctx context.Context, key string, value string) error {
	now := time.Now()

	rec := answerRecord{
		Key:       key,
		Envelope:  value,
		CreatedAt: now,
		UpdatedAt: now,
	}

	// Check if exists to preserve CreatedAt
	var existing answerRecord
	if err := s.db.Store().Get(key, &existing); err == nil {
		rec.CreatedAt = existing.CreatedAt
	}

	if err := s.db.Store().Upsert(key, &rec); err != nil {
		return fmt.Errorf("failed to store cached answer: %w", err)
	}

	return nil
}
