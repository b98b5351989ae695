package interfaces

import (
	"context"
	"errors"
)

// ErrKeyNotFound is returned when a key is not present in the answer cache
var ErrKeyNotFound = errors.New("key not found")

// AnswerCache stores complete response envelopes keyed by search UUID.
// A cached value is replayed byte-for-byte on a hit, so implementations
// must return exactly the string that was stored.
type AnswerCache interface {
	// Get retrieves the envelope cached under key, returns ErrKeyNotFound
	// when the key has never been written
	Get(ctx context.Context, key string) (string, error)

	// Put stores the envelope under key, overwriting any existing value
	Put(ctx context.Context, key string, value string) error
}
