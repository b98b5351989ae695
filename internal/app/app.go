package app

import (
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/nerdlab53/serch.io/internal/common"
	"github.com/nerdlab53/serch.io/internal/handlers"
	"github.com/nerdlab53/serch.io/internal/httpclient"
	"github.com/nerdlab53/serch.io/internal/interfaces"
	"github.com/nerdlab53/serch.io/internal/services/answer"
	"github.com/nerdlab53/serch.io/internal/services/completion"
	"github.com/nerdlab53/serch.io/internal/services/lepton"
	"github.com/nerdlab53/serch.io/internal/services/related"
	"github.com/nerdlab53/serch.io/internal/services/search"
	"github.com/nerdlab53/serch.io/internal/storage/badger"
	"github.com/nerdlab53/serch.io/internal/worker"
)

// App holds all application components and dependencies
type App struct {
	Config         *common.Config
	Logger         arbor.ILogger
	StorageManager interfaces.StorageManager
	Pool           *worker.Pool

	// Answer pipeline
	AnswerService interfaces.AnswerService

	// HTTP handlers
	QueryHandler *handlers.QueryHandler
	APIHandler   *handlers.APIHandler
	UIHandler    *handlers.UIHandler
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	app := &App{
		Config: cfg,
		Logger: logger,
	}

	// Initialize database
	if err := app.initDatabase(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// Initialize services
	if err := app.initServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	// Initialize handlers
	app.initHandlers()

	logger.Info().
		Str("backend", string(cfg.Search.Backend)).
		Bool("related_questions", cfg.Answer.RelatedQuestions).
		Msg("Application initialization complete")

	return app, nil
}

// initDatabase initializes the storage layer (Badger)
func (a *App) initDatabase() error {
	storageManager, err := badger.NewManager(a.Logger, &a.Config.Storage.Badger)
	if err != nil {
		return fmt.Errorf("failed to create storage manager: %w", err)
	}

	a.StorageManager = storageManager
	a.Logger.Debug().
		Str("storage", "badger").
		Str("path", a.Config.Storage.Badger.Dir()).
		Msg("Storage layer initialized")

	return nil
}

// initServices builds the answer pipeline in dependency order. The LEPTON
// backend forwards whole queries to an upstream deployment and needs no
// local search or completion clients; SERPER and SEARCHAPI generate
// answers locally.
func (a *App) initServices() error {
	// Background pool for answer cache writes and related-question
	// generation. Sized at twice the request concurrency so a burst of
	// queries cannot starve its own cache writes.
	a.Pool = worker.NewPool(a.Logger, a.Config.Server.MaxConcurrency*2)
	a.Pool.Start()

	var (
		searchProvider interfaces.SearchProvider
		completionSvc  interfaces.CompletionProvider
		relatedGen     interfaces.RelatedGenerator
		delegate       interfaces.AnswerDelegate
	)

	if a.Config.Search.Backend == common.BackendLepton {
		delegate = lepton.NewClient(
			a.Config.Lepton.BaseURL,
			a.Config.Lepton.Token,
			lepton.WithLogger(a.Logger),
		)
		a.Logger.Debug().
			Str("base_url", a.Config.Lepton.BaseURL).
			Msg("Upstream answer delegate initialized")
	} else {
		var err error
		searchProvider, err = search.NewProvider(a.Config, a.Logger)
		if err != nil {
			return fmt.Errorf("failed to initialize search provider: %w", err)
		}

		completionClient := completion.NewClient(
			a.Config.LLM,
			completion.WithHTTPClient(httpclient.NewStreamingHTTPClient(10*time.Second)),
			completion.WithLogger(a.Logger),
		)
		completionSvc = completionClient
		a.Logger.Debug().
			Str("model", a.Config.LLM.Model).
			Str("base_url", a.Config.LLM.ResolveBaseURL()).
			Msg("Completion client initialized")

		relatedGen = related.NewGenerator(completionClient, a.Logger)
	}

	a.AnswerService = answer.NewService(
		a.Config,
		searchProvider,
		completionSvc,
		relatedGen,
		delegate,
		a.StorageManager.AnswerCache(),
		a.Pool,
		a.Logger,
	)
	a.Logger.Debug().Msg("Answer service initialized")

	return nil
}

// initHandlers initializes all HTTP handlers
func (a *App) initHandlers() {
	a.QueryHandler = handlers.NewQueryHandler(a.AnswerService, a.Logger)
	a.APIHandler = handlers.NewAPIHandler()
	a.UIHandler = handlers.NewUIHandler(a.Config, a.Logger)
}

// Close closes all application resources. The HTTP server must already be
// stopped so no new queries arrive; the pool then drains pending cache
// writes before storage closes under them.
func (a *App) Close() error {
	if a.Pool != nil {
		a.Pool.Stop()
	}

	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil {
			return fmt.Errorf("failed to close storage: %w", err)
		}
		a.Logger.Info().Msg("Storage closed")
	}

	return nil
}
