package apiclient

import (
	"context"
	"errors"
	"log/slog"

	gobreaker "github.com/sony/gobreaker/v2"

	"curator/internal/core"
	"curator/internal/observability"
)

func newBreaker(provider string, cfg CircuitBreakerConfig) *gobreaker.CircuitBreaker[*Response] {
	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}

	observability.CircuitBreakerState.WithLabelValues(provider).Set(0)

	return gobreaker.NewCircuitBreaker[*Response](gobreaker.Settings{
		Name:        provider,
		MaxRequests: cfg.HalfOpenRequests,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		// Client errors say nothing about the provider's health.
		IsSuccessful: func(err error) bool {
			return !countsAsFailure(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("circuit breaker state change", "provider", name, "from", from.String(), "to", to.String())
			observability.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
	})
}

// countsAsFailure reports whether err indicates the provider is unhealthy:
// 5xx answers, throttling and transport failures do, everything else does not.
func countsAsFailure(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var svcErr *core.ServiceError
	if errors.As(err, &svcErr) {
		return svcErr.Type == core.ErrorTypeProvider || svcErr.Type == core.ErrorTypeRateLimit
	}
	return true
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
