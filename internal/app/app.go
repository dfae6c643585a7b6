// Package app provides the main application struct for centralized dependency management
// and lifecycle control of the curator server.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"curator/config"
	"curator/internal/cache"
	"curator/internal/cascade"
	"curator/internal/core"
	"curator/internal/favorites"
	"curator/internal/llm"
	"curator/internal/providers"
	"curator/internal/recommend"
	"curator/internal/server"
)

// App represents the main application with all its dependencies.
// It provides centralized lifecycle management for all components.
type App struct {
	config    *config.Config
	logger    *slog.Logger
	providers *providers.InitResult
	favorites *favorites.Result
	service   *recommend.Service
	server    *server.Server

	shutdownMu sync.Mutex
	shutdown   bool
}

// Config holds the configuration options for creating an App.
type Config struct {
	// AppConfig holds the loaded application configuration produced by config.Load.
	AppConfig *config.LoadResult

	// Collaborator replaces the chat completion client, e.g. in tests.
	// It is still wrapped by the answer cache.
	Collaborator core.Collaborator

	// HTTPClient overrides the outbound client used by the image providers.
	HTTPClient *http.Client

	Logger *slog.Logger
}

// New creates a new App with all dependencies initialized.
// The caller must call Shutdown to release resources.
func New(ctx context.Context, cfg Config) (*App, error) {
	if cfg.AppConfig == nil {
		return nil, fmt.Errorf("app config is required")
	}
	if cfg.AppConfig.Config == nil {
		return nil, fmt.Errorf("app config contains nil Config")
	}

	appCfg := cfg.AppConfig.Config
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	app := &App{
		config: appCfg,
		logger: logger,
	}

	providerResult, err := providers.InitWithConfig(ctx, appCfg, providers.InitConfig{
		HTTPClient: cfg.HTTPClient,
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize providers: %w", err)
	}
	app.providers = providerResult

	favResult, err := favorites.New(ctx, appCfg)
	if err != nil {
		closeErr := app.providers.Close()
		if closeErr != nil {
			return nil, fmt.Errorf("failed to initialize favorites: %w (also: providers close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to initialize favorites: %w", err)
	}
	app.favorites = favResult

	app.logStartupInfo()

	ttl := time.Duration(appCfg.Cache.TTL) * time.Second
	backend := providerResult.Backend

	images := cascade.NewCached(
		cascade.New(providerResult.Providers, logger),
		cache.NewStore[string](backend, cache.StoreConfig{Name: "image", TTL: ttl, Logger: logger}),
	)

	collaborator := cfg.Collaborator
	if collaborator == nil {
		collaborator = llm.New(llm.Options{
			APIKey:  appCfg.Collaborator.APIKey,
			BaseURL: appCfg.Collaborator.BaseURL,
			Model:   appCfg.Collaborator.Model,
			Logger:  logger,
		})
	}
	collaborator = llm.NewCached(
		collaborator,
		cache.NewStore[[]core.RelatedItem](backend, cache.StoreConfig{Name: "related", TTL: ttl, Logger: logger}),
	)

	app.service = recommend.New(collaborator, images, recommend.Config{
		MaxItems:                appCfg.Recommendations.MaxItems,
		BatchSize:               appCfg.Recommendations.BatchSize,
		IsolateCategoryFailures: appCfg.Recommendations.IsolateCategoryFailures,
		Logger:                  logger,
	})

	app.server = server.New(app.service, images, favResult.Store, &server.Config{
		MasterKey:       appCfg.Server.MasterKey,
		MetricsEnabled:  appCfg.Metrics.Enabled,
		MetricsEndpoint: appCfg.Metrics.Endpoint,
		BodyLimit:       appCfg.Server.BodyLimit,
		SwaggerEnabled:  appCfg.Server.SwaggerEnabled,
		Logger:          logger,
	})

	return app, nil
}

// Recommender returns the orchestrator behind the HTTP API.
func (a *App) Recommender() *recommend.Service {
	return a.service
}

// Handler returns the HTTP handler, for embedding the API in another server or tests.
func (a *App) Handler() http.Handler {
	if a.server == nil {
		return nil
	}
	return a.server
}

// Start starts the HTTP server on the given address.
// This is a blocking call that returns when the server stops.
func (a *App) Start(addr string) error {
	if a.server == nil {
		return fmt.Errorf("server is not initialized")
	}
	a.logger.Info("starting server", "address", addr)
	if err := a.server.Start(addr); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			a.logger.Info("server stopped gracefully")
			return nil
		}
		return fmt.Errorf("server failed to start: %w", err)
	}
	return nil
}

// Shutdown gracefully tears down app components in dependency order:
// the HTTP server first, honoring ctx, then the favorites store, then the
// provider infrastructure and its cache backend.
//
// Shutdown is idempotent; after the first call, subsequent calls are no-ops.
// It attempts every close step and returns the joined failures.
func (a *App) Shutdown(ctx context.Context) error {
	a.shutdownMu.Lock()
	if a.shutdown {
		a.shutdownMu.Unlock()
		return nil
	}
	a.shutdown = true
	a.shutdownMu.Unlock()

	a.logger.Info("shutting down application...")

	var errs []error

	// 1. Stop accepting new requests
	if a.server != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			a.logger.Error("server shutdown error", "error", err)
			errs = append(errs, fmt.Errorf("server shutdown: %w", err))
		}
	}

	// 2. Close favorites storage
	if a.favorites != nil {
		if err := a.favorites.Close(); err != nil {
			a.logger.Error("favorites close error", "error", err)
			errs = append(errs, fmt.Errorf("favorites close: %w", err))
		}
	}

	// 3. Close the cache backend last; in-flight requests may still read it
	if a.providers != nil {
		if err := a.providers.Close(); err != nil {
			a.logger.Error("providers close error", "error", err)
			errs = append(errs, fmt.Errorf("providers close: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %w", errors.Join(errs...))
	}

	a.logger.Info("application shutdown complete")
	return nil
}

// logStartupInfo logs the application configuration on startup.
func (a *App) logStartupInfo() {
	cfg := a.config

	if cfg.Server.MasterKey == "" {
		a.logger.Warn("SECURITY WARNING: CURATOR_MASTER_KEY not set - API is open to anyone",
			"security_risk", "unauthenticated access allowed",
			"recommendation", "set CURATOR_MASTER_KEY to require a bearer token on /v1")
	} else {
		a.logger.Info("authentication enabled", "mode", "master_key")
	}

	if cfg.Metrics.Enabled {
		a.logger.Info("prometheus metrics enabled", "endpoint", cfg.Metrics.Endpoint)
	} else {
		a.logger.Info("prometheus metrics disabled")
	}

	if cfg.Server.SwaggerEnabled {
		a.logger.Info("swagger UI enabled", "path", "/swagger/index.html")
	}

	if cfg.Collaborator.APIKey == "" {
		a.logger.Warn("OPENAI_API_KEY not set, recommendations will use fallback content")
	} else {
		a.logger.Info("collaborator configured", "model", cfg.Collaborator.Model, "base_url", cfg.Collaborator.BaseURL)
	}

	a.logger.Info("favorites storage configured", "type", cfg.Storage.Type)
	a.logger.Info("recommendations configured",
		"max_items", cfg.Recommendations.MaxItems,
		"batch_size", cfg.Recommendations.BatchSize,
		"isolate_category_failures", cfg.Recommendations.IsolateCategoryFailures,
	)
}
