// Package backoff runs operations under named exponential retry policies.
//
// The delay before attempt n+1 is min(InitialDelay * Multiplier^(n-1) * j, MaxDelay),
// where j is uniform in [0,1) when Jitter is set and 1 otherwise.
package backoff

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	cbackoff "github.com/cenkalti/backoff/v4"
)

// Policy describes how many times an operation is attempted and how long to wait in between.
type Policy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
	Jitter       bool
}

// ProviderCallPolicy governs calls to external media providers.
func ProviderCallPolicy() Policy {
	return Policy{
		MaxAttempts:  3,
		InitialDelay: 1 * time.Second,
		Multiplier:   2,
		MaxDelay:     5 * time.Second,
		Jitter:       true,
	}
}

// TokenRefreshPolicy governs OAuth token refresh attempts.
func TokenRefreshPolicy() Policy {
	return Policy{
		MaxAttempts:  3,
		InitialDelay: 1 * time.Second,
		Multiplier:   2,
		MaxDelay:     4 * time.Second,
	}
}

// Delay returns the wait after the given failed attempt (1-based) for a jitter factor in [0,1).
// The factor is ignored when the policy has no jitter.
func (p Policy) Delay(attempt int, jitter float64) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	mult := p.Multiplier
	if mult <= 0 {
		mult = 1
	}
	d := float64(p.InitialDelay) * math.Pow(mult, float64(attempt-1))
	if p.Jitter {
		d *= jitter
	}
	if p.MaxDelay > 0 && d > float64(p.MaxDelay) {
		d = float64(p.MaxDelay)
	}
	return time.Duration(d)
}

func (p Policy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

// Timer is the wait primitive used between attempts. Tests substitute one that fires immediately.
type Timer = cbackoff.Timer

type options struct {
	random  func() float64
	timer   Timer
	notify  func(attempt int, err error, delay time.Duration)
	retryIf func(error) bool
}

// Option customizes a single Do/DoValue call.
type Option func(*options)

// WithRandom replaces the jitter source. fn must return values in [0,1).
func WithRandom(fn func() float64) Option {
	return func(o *options) { o.random = fn }
}

// WithTimer replaces the timer used to wait between attempts.
func WithTimer(t Timer) Option {
	return func(o *options) { o.timer = t }
}

// WithNotify registers a callback invoked before each wait with the failed attempt number.
func WithNotify(fn func(attempt int, err error, delay time.Duration)) Option {
	return func(o *options) { o.notify = fn }
}

// WithRetryIf limits retries to errors for which fn returns true; other errors end the loop at once.
func WithRetryIf(fn func(error) bool) Option {
	return func(o *options) { o.retryIf = fn }
}

// Permanent wraps err so that it is returned immediately without further attempts.
func Permanent(err error) error {
	return cbackoff.Permanent(err)
}

// schedule adapts a Policy to the cenkalti BackOff interface.
type schedule struct {
	policy  Policy
	random  func() float64
	attempt int
}

func (s *schedule) NextBackOff() time.Duration {
	s.attempt++
	if s.attempt >= s.policy.attempts() {
		return cbackoff.Stop
	}
	return s.policy.Delay(s.attempt, s.random())
}

func (s *schedule) Reset() {
	s.attempt = 0
}

// Do runs op until it succeeds, returns a permanent error, the policy is exhausted
// or ctx is done. The last error is returned on exhaustion.
func Do(ctx context.Context, p Policy, op func(ctx context.Context) error, opts ...Option) error {
	_, err := DoValue(ctx, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	}, opts...)
	return err
}

// DoValue is Do for operations that produce a value.
func DoValue[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error), opts ...Option) (T, error) {
	o := options{random: rand.Float64}
	for _, opt := range opts {
		opt(&o)
	}

	sched := &schedule{policy: p, random: o.random}
	operation := func() (T, error) {
		v, err := op(ctx)
		if err != nil && o.retryIf != nil && !o.retryIf(err) {
			return v, cbackoff.Permanent(err)
		}
		return v, err
	}

	var notify cbackoff.Notify
	if o.notify != nil {
		notify = func(err error, d time.Duration) {
			o.notify(sched.attempt, err, d)
		}
	}

	return cbackoff.RetryNotifyWithTimerAndData(operation, cbackoff.WithContext(sched, ctx), notify, o.timer)
}
