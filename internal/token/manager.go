// Package token manages OAuth client-credentials bearer tokens.
//
// A Manager moves through NoToken -> Refreshing -> Valid -> Refreshing ... and
// Refreshing -> Failed -> NoToken. At most one refresh is in flight per Manager;
// concurrent callers wait for it and share its outcome.
package token

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"curator/internal/backoff"
	"curator/internal/core"
	"curator/internal/observability"
)

// ExpirySkew is subtracted from the provider-declared lifetime.
const ExpirySkew = 60 * time.Second

// flightTimeout bounds a refresh flight, which is detached from the leader's context
// so that one caller giving up does not fail everybody waiting on it.
const flightTimeout = 30 * time.Second

// GrantFunc performs one token exchange and returns the token and its declared lifetime.
type GrantFunc func(ctx context.Context) (accessToken string, expiresIn time.Duration, err error)

// State is the observable lifecycle state of a Manager.
type State string

const (
	StateNoToken    State = "no_token"
	StateRefreshing State = "refreshing"
	StateValid      State = "valid"
)

// Config configures a Manager. Only Provider and Grant are required.
type Config struct {
	Provider string
	Grant    GrantFunc
	Store    Store
	Policy   *backoff.Policy
	Clock    func() time.Time
	Logger   *slog.Logger
	// RetryOptions are passed to every refresh loop, e.g. a test timer
	RetryOptions []backoff.Option
}

// Manager hands out valid bearer tokens, refreshing them on demand.
type Manager struct {
	provider  string
	grant     GrantFunc
	store     Store
	policy    backoff.Policy
	now       func() time.Time
	logger    *slog.Logger
	retryOpts []backoff.Option

	flights    singleflight.Group
	refreshing atomic.Bool

	// last is the most recent token this process obtained. It stands in for
	// the store while the store is failing.
	lastMu sync.Mutex
	last   Token

	retries    atomic.Int64
	grants     atomic.Int64
}

// NewManager creates a Manager. The token store defaults to process memory.
func NewManager(cfg Config) *Manager {
	m := &Manager{
		provider:  cfg.Provider,
		grant:     cfg.Grant,
		store:     cfg.Store,
		policy:    backoff.TokenRefreshPolicy(),
		now:       cfg.Clock,
		logger:    cfg.Logger,
		retryOpts: cfg.RetryOptions,
	}
	if cfg.Policy != nil {
		m.policy = *cfg.Policy
	}
	if m.store == nil {
		m.store = NewMemoryStore()
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	m.logger = m.logger.With("provider", m.provider)
	return m
}

// EnsureValidToken returns a token that is valid now, refreshing it if needed.
// Failures are reported as authentication errors.
func (m *Manager) EnsureValidToken(ctx context.Context) (string, error) {
	if tok, ok := m.current(ctx); ok {
		return tok.AccessToken, nil
	}

	tok, led, err := m.refresh(ctx)
	if err != nil && !led && ctx.Err() == nil {
		// The flight we waited on failed; make one attempt of our own.
		m.logger.Debug("shared token refresh failed, retrying once", "error", err)
		tok, _, err = m.refresh(ctx)
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", err
	}
	return tok.AccessToken, nil
}

// Invalidate drops the stored token, typically after the provider answered 401.
func (m *Manager) Invalidate(ctx context.Context) {
	m.remember(Token{})
	if err := m.store.Clear(ctx); err != nil {
		m.logger.Warn("failed to clear token", "error", err)
	}
}

// State reports the current lifecycle state.
func (m *Manager) State(ctx context.Context) State {
	if m.refreshing.Load() {
		return StateRefreshing
	}
	if _, ok := m.current(ctx); ok {
		return StateValid
	}
	return StateNoToken
}

// Retries returns how many refresh retries have been performed.
func (m *Manager) Retries() int64 {
	return m.retries.Load()
}

// Grants returns how many token exchanges have been attempted.
func (m *Manager) Grants() int64 {
	return m.grants.Load()
}

func (m *Manager) current(ctx context.Context) (Token, bool) {
	tok, ok, err := m.store.Load(ctx)
	if err != nil {
		m.logger.Warn("failed to load token, using process copy", "error", err)
		m.lastMu.Lock()
		tok = m.last
		m.lastMu.Unlock()
		return tok, tok.Valid(m.now())
	}
	return tok, ok && tok.Valid(m.now())
}

func (m *Manager) remember(tok Token) {
	m.lastMu.Lock()
	m.last = tok
	m.lastMu.Unlock()
}

// refresh joins or starts the single refresh flight. led reports whether this
// caller started the flight.
func (m *Manager) refresh(ctx context.Context) (Token, bool, error) {
	led := false
	ch := m.flights.DoChan("refresh", func() (any, error) {
		led = true
		flightCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), flightTimeout)
		defer cancel()

		// Another flight may have completed between our check and this one starting.
		if tok, ok := m.current(flightCtx); ok {
			return tok, nil
		}
		return m.fetch(flightCtx)
	})

	select {
	case <-ctx.Done():
		return Token{}, false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Token{}, led, res.Err
		}
		return res.Val.(Token), led, nil
	}
}

func (m *Manager) fetch(ctx context.Context) (Token, error) {
	m.refreshing.Store(true)
	defer m.refreshing.Store(false)

	opts := append([]backoff.Option{
		backoff.WithNotify(func(attempt int, err error, delay time.Duration) {
			m.retries.Add(1)
			observability.TokenRefreshes.WithLabelValues(m.provider, "retry").Inc()
			m.logger.Warn("token refresh failed, retrying",
				"attempt", attempt,
				"max_attempts", m.policy.MaxAttempts,
				"delay", delay,
				"error", err,
			)
		}),
		backoff.WithRetryIf(func(err error) bool {
			return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
		}),
	}, m.retryOpts...)

	tok, err := backoff.DoValue(ctx, m.policy, func(ctx context.Context) (Token, error) {
		m.grants.Add(1)
		access, expiresIn, err := m.grant(ctx)
		if err != nil {
			return Token{}, err
		}
		if access == "" {
			return Token{}, errors.New("token endpoint returned an empty access token")
		}
		return Token{AccessToken: access, ExpiresAt: m.now().Add(expiresIn - ExpirySkew)}, nil
	}, opts...)
	if err != nil {
		observability.TokenRefreshes.WithLabelValues(m.provider, "failure").Inc()
		m.remember(Token{})
		if clearErr := m.store.Clear(ctx); clearErr != nil {
			m.logger.Warn("failed to clear token", "error", clearErr)
		}
		m.logger.Error("token refresh failed", "error", err)
		return Token{}, core.NewAuthenticationError(m.provider, fmt.Sprintf("token refresh failed: %v", err), err)
	}

	if !tok.Valid(m.now()) {
		// Declared lifetime is within the expiry skew: usable once, never stored.
		m.logger.Warn("token lifetime shorter than expiry skew, not storing", "expires_at", tok.ExpiresAt)
	} else {
		m.remember(tok)
		if err := m.store.Save(ctx, tok); err != nil {
			m.logger.Warn("failed to persist token", "error", err)
		}
	}
	observability.TokenRefreshes.WithLabelValues(m.provider, "success").Inc()
	m.logger.Debug("token refreshed", "expires_at", tok.ExpiresAt)
	return tok, nil
}
