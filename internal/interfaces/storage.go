package interfaces

// StorageManager is the composite handle over the badger-backed stores.
// Owns the underlying database connection; Close releases it.
type StorageManager interface {
	AnswerCache() AnswerCache
	Close() error
}
