// Package observability holds the prometheus collectors shared across curator.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheLookups counts cache reads by store and outcome ("hit", "miss", "expired", "error").
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "curator_cache_lookups_total",
			Help: "Total number of cache lookups",
		},
		[]string{"store", "outcome"},
	)

	// ImageResolutions counts which cascade step produced the image for a strategy.
	ImageResolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "curator_image_resolutions_total",
			Help: "Total number of image resolutions by strategy and winning source",
		},
		[]string{"strategy", "source"},
	)

	// ProviderRequests counts upstream HTTP calls by provider and status class.
	ProviderRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "curator_provider_requests_total",
			Help: "Total number of upstream provider requests",
		},
		[]string{"provider", "status"},
	)

	// ProviderRequestDuration observes upstream latency.
	ProviderRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "curator_provider_request_duration_seconds",
			Help:    "Duration of upstream provider requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)

	// CircuitBreakerState reports 0 closed, 1 half-open, 2 open.
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "curator_circuit_breaker_state",
			Help: "Circuit breaker state per provider (0 closed, 1 half-open, 2 open)",
		},
		[]string{"provider"},
	)

	// TokenRefreshes counts OAuth token refreshes by outcome ("success", "retry", "failure").
	TokenRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "curator_token_refreshes_total",
			Help: "Total number of OAuth token refresh attempts",
		},
		[]string{"provider", "outcome"},
	)

	// RecommendationFallbacks counts responses that fell back to placeholder content.
	RecommendationFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "curator_recommendation_fallbacks_total",
			Help: "Total number of recommendation responses served from fallback content",
		},
		[]string{"scope"},
	)
)
