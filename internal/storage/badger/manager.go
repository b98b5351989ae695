package badger

import (
	"github.com/nerdlab53/serch.io/internal/common"
	"github.com/nerdlab53/serch.io/internal/interfaces"
	"github.com/ternarybob/arbor"
)

// Manager implements the StorageManager interface for Badger
type Manager struct {
	db      *BadgerDB
	answers interfaces.AnswerCache
	logger  arbor.ILogger
}

// NewManager creates a new Badger storage manager
func NewManager(logger arbor.ILogger, config *common.BadgerConfig) (interfaces.StorageManager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, err
	}

	manager := &Manager{
		db:      db,
		answers: NewAnswerStorage(db, logger),
		logger:  logger,
	}

	logger.Info().Str("path", config.Dir()).Msg("Badger storage manager initialized")

	return manager, nil
}

// AnswerCache returns the answer cache interface
func (m *Manager) AnswerCache() interfaces.AnswerCache {
	return m.answers
}

// Close closes the database connection
func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}
