package search

import (
	"fmt"

	"github.com/nerdlab53/serch.io/internal/common"
	"github.com/nerdlab53/serch.io/internal/interfaces"
	"github.com/ternarybob/arbor"
)

// NewProvider creates the search provider selected by configuration.
// Dispatch happens once at startup, not per request. The LEPTON backend
// has no local provider (queries are delegated upstream) and is wired
// by the caller before this factory runs.
func NewProvider(config *common.Config, logger arbor.ILogger) (interfaces.SearchProvider, error) {
	switch config.Search.Backend {
	case common.BackendSerper:
		if config.Search.SerperAPIKey == "" {
			return nil, fmt.Errorf("SERPER backend selected but no API key configured")
		}
		logger.Info().
			Str("backend", string(common.BackendSerper)).
			Msg("Initializing search provider")
		return NewSerperClient(config.Search.SerperAPIKey, WithSerperLogger(logger)), nil

	case common.BackendSearchAPI:
		if config.Search.SearchAPIKey == "" {
			return nil, fmt.Errorf("SEARCHAPI backend selected but no API key configured")
		}
		logger.Info().
			Str("backend", string(common.BackendSearchAPI)).
			Msg("Initializing search provider")
		return NewSearchAPIClient(config.Search.SearchAPIKey, WithSearchAPILogger(logger)), nil

	default:
		return nil, fmt.Errorf("backend must be LEPTON, SERPER or SEARCHAPI, got %q", config.Search.Backend)
	}
}
