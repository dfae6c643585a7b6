// Package server exposes recommendations, images and favorites over HTTP.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"path"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "curator/docs" // registers the OpenAPI document served under /swagger/
	"curator/internal/favorites"
)

// DefaultBodyLimit caps request bodies; favorites and related-items requests are small.
const DefaultBodyLimit = "1M"

const defaultMetricsPath = "/metrics"

// Server wraps the Echo server
type Server struct {
	echo    *echo.Echo
	handler *Handler
}

// Config holds server configuration options
type Config struct {
	MasterKey       string // Optional: Master key for authentication
	MetricsEnabled  bool   // Whether to expose Prometheus metrics endpoint
	MetricsEndpoint string // HTTP path for metrics endpoint (default: /metrics)
	BodyLimit       string // Max request body size, e.g. "1M" (default: 1M)
	SwaggerEnabled  bool   // Whether to serve the Swagger UI under /swagger/
	Logger          *slog.Logger
}

// New creates a new HTTP server
func New(recommender Recommender, images ImageResolver, favs favorites.Store, cfg *Config) *Server {
	if cfg == nil {
		cfg = &Config{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.JSONSerializer = jsonSerializer{}

	handler := NewHandler(recommender, images, favs, logger)

	authSkipPaths := []string{"/health"}
	metricsPath := normalizeMetricsPath(cfg.MetricsEndpoint)
	if cfg.MetricsEnabled {
		authSkipPaths = append(authSkipPaths, metricsPath)
	}

	// Global middleware stack (order matters)
	e.Use(RequestID())
	e.Use(RequestLogger(logger))
	e.Use(middleware.Recover())

	bodyLimit := DefaultBodyLimit
	if cfg.BodyLimit != "" {
		bodyLimit = cfg.BodyLimit
	}
	e.Use(middleware.BodyLimit(bodyLimit))

	if cfg.MasterKey != "" {
		e.Use(AuthMiddleware(cfg.MasterKey, authSkipPaths))
	}

	// Public routes
	e.GET("/health", handler.Health)
	if cfg.MetricsEnabled {
		e.GET(metricsPath, echo.WrapHandler(promhttp.Handler()))
	}
	if cfg.SwaggerEnabled {
		e.GET("/swagger/*", echoSwagger.WrapHandler)
	}

	// API routes
	v1 := e.Group("/v1")
	v1.GET("/recommendations", handler.Recommendations)
	v1.POST("/related", handler.RelatedItems)
	v1.GET("/images", handler.Image)
	v1.GET("/users/:owner/favorites", handler.ListFavorites)
	v1.POST("/users/:owner/favorites", handler.AddFavorite)
	v1.GET("/users/:owner/favorites/:name", handler.GetFavorite)
	v1.DELETE("/users/:owner/favorites/:name", handler.RemoveFavorite)

	return &Server{
		echo:    e,
		handler: handler,
	}
}

// normalizeMetricsPath cleans the configured path and refuses locations that
// would shadow the health check or the authenticated API.
func normalizeMetricsPath(endpoint string) string {
	if endpoint == "" {
		return defaultMetricsPath
	}
	p := path.Clean("/" + endpoint)
	if p == "/" || p == "/health" || p == "/v1" || strings.HasPrefix(p, "/v1/") {
		return defaultMetricsPath
	}
	return p
}

// Start starts the HTTP server on the given address
func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// ServeHTTP implements the http.Handler interface, allowing Server to be used with httptest
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}
