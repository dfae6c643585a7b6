// Package providers builds the image providers and their shared infrastructure
// from configuration.
package providers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"curator/config"
	"curator/internal/cache"
	"curator/internal/cascade"
	"curator/internal/httpclient"
	"curator/internal/pkg/apiclient"
	"curator/internal/providers/spotify"
	"curator/internal/providers/tmdb"
	"curator/internal/providers/wikipedia"
	"curator/internal/token"
)

// InitResult holds the initialized providers and the resources they share.
type InitResult struct {
	Providers cascade.Providers
	// Backend stores cached images, collaborator answers and the catalog token
	Backend cache.Backend
	// Tokens is nil when the catalog is not configured
	Tokens *token.Manager
	// Enabled lists the configured provider names in cascade order
	Enabled []string

	closed bool
}

// Close releases the cache backend. Safe to call multiple times.
func (r *InitResult) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	if r.Backend != nil {
		return r.Backend.Close()
	}
	return nil
}

// InitConfig holds options for provider initialization.
type InitConfig struct {
	// HTTPClient overrides the client built from config.HTTP
	HTTPClient *http.Client
	// Backend overrides the cache backend built from config.Cache
	Backend cache.Backend
	Logger  *slog.Logger
}

// Init builds the cache backend and every configured provider.
// The caller must call InitResult.Close during shutdown.
func Init(ctx context.Context, cfg *config.Config) (*InitResult, error) {
	return InitWithConfig(ctx, cfg, InitConfig{})
}

// InitWithConfig is Init with explicit overrides.
//
// A provider without credentials is left out; the cascade skips it. Having no
// provider at all is not an error because every lookup still resolves to the
// placeholder image.
func InitWithConfig(_ context.Context, cfg *config.Config, initCfg InitConfig) (*InitResult, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	logger := initCfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	backend := initCfg.Backend
	if backend == nil {
		var err error
		backend, err = initCache(cfg.Cache, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize cache: %w", err)
		}
	}

	httpClient := initCfg.HTTPClient
	if httpClient == nil {
		httpClient = newHTTPClient(cfg.HTTP)
	}
	clientCfg := apiClientConfig(cfg.Providers.RequestsPerSecond)

	result := &InitResult{Backend: backend}
	pc := cfg.Providers

	if pc.Spotify.Enabled() {
		tokenURL := pc.Spotify.TokenURL
		if tokenURL == "" {
			tokenURL = spotify.DefaultTokenURL
		}
		result.Tokens = token.NewManager(token.Config{
			Provider: "spotify",
			Grant:    token.ClientCredentialsGrant("spotify", pc.Spotify.ClientID, pc.Spotify.ClientSecret, tokenURL, httpClient),
			Store:    token.NewBackendStore(backend, "spotify"),
			Logger:   logger,
		})
		result.Providers.Catalog = spotify.New(result.Tokens, spotify.Options{
			BaseURL:    pc.Spotify.BaseURL,
			HTTPClient: httpClient,
			Client:     clientCfg,
			Logger:     logger,
		})
		result.Enabled = append(result.Enabled, "spotify")
	} else {
		logger.Info("spotify disabled", "reason", "client credentials not set")
	}

	if pc.TMDB.APIKey != "" {
		result.Providers.Metadata = tmdb.New(tmdb.Options{
			APIKey:       pc.TMDB.APIKey,
			BaseURL:      pc.TMDB.BaseURL,
			ImageBaseURL: pc.TMDB.ImageBaseURL,
			Language:     pc.TMDB.Language,
			HTTPClient:   httpClient,
			Client:       clientCfg,
			Logger:       logger,
		})
		result.Enabled = append(result.Enabled, "tmdb")
	} else {
		logger.Info("tmdb disabled", "reason", "api key not set")
	}

	if pc.Wikipedia.Enabled {
		result.Providers.Encyclopedia = wikipedia.New(wikipedia.Options{
			BaseURL:    pc.Wikipedia.BaseURL,
			HTTPClient: httpClient,
			Client:     clientCfg,
			Logger:     logger,
		})
		result.Enabled = append(result.Enabled, "wikipedia")
	}

	if len(result.Enabled) == 0 {
		logger.Warn("no image providers configured, every image will be the placeholder")
	} else {
		logger.Info("image providers initialized", "providers", result.Enabled)
	}
	return result, nil
}

// initCache builds the backend named by the cache configuration.
func initCache(cfg config.CacheConfig, logger *slog.Logger) (cache.Backend, error) {
	backend, err := cache.NewBackend(cache.BackendConfig{
		Type:       cfg.Type,
		MaxEntries: cfg.MaxEntries,
		Shards:     cfg.Shards,
		Redis: cache.RedisConfig{
			URL:    cfg.Redis.URL,
			Prefix: cfg.Redis.Prefix,
		},
	})
	if err != nil {
		return nil, err
	}
	logger.Info("cache configured", "type", cfg.Type, "ttl_seconds", cfg.TTL)
	return backend, nil
}

func newHTTPClient(cfg config.HTTPConfig) *http.Client {
	hc := httpclient.DefaultConfig()
	if cfg.Timeout > 0 {
		hc.Timeout = time.Duration(cfg.Timeout) * time.Second
	}
	if cfg.ResponseHeaderTimeout > 0 {
		hc.ResponseHeaderTimeout = time.Duration(cfg.ResponseHeaderTimeout) * time.Second
	}
	return httpclient.NewHTTPClient(&hc)
}

// apiClientConfig returns the shared client settings; each provider fills in its
// own name and base URL.
func apiClientConfig(rps float64) *apiclient.Config {
	cfg := apiclient.DefaultConfig("", "")
	cfg.RequestsPerSecond = rps
	return &cfg
}
