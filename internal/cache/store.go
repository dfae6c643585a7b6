package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/goccy/go-json"

	"curator/internal/observability"
)

// Entry is a cached value with its insertion time.
type Entry[V any] struct {
	Value     V         `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

// StoreConfig configures a typed Store.
type StoreConfig struct {
	// Name labels metrics and log lines ("image", "related")
	Name string
	// TTL is the validity window measured from insertion (default 1h)
	TTL time.Duration
	// Clock overrides time.Now, for tests
	Clock func() time.Time
	Logger *slog.Logger
}

// Store is a typed view over a Backend. Entries are valid for exactly TTL after
// insertion; expiry is checked lazily when an entry is read. Backend failures are
// logged and reported as misses, so callers never see a cache error.
type Store[V any] struct {
	backend Backend
	name    string
	ttl     time.Duration
	now     func() time.Time
	logger  *slog.Logger
}

// NewStore wraps backend.
func NewStore[V any](backend Backend, cfg StoreConfig) *Store[V] {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Store[V]{
		backend: backend,
		name:    cfg.Name,
		ttl:     cfg.TTL,
		now:     cfg.Clock,
		logger:  cfg.Logger.With("cache", cfg.Name),
	}
}

// Get returns the entry for key if it exists and has not expired.
func (s *Store[V]) Get(ctx context.Context, key string) (Entry[V], bool) {
	var entry Entry[V]

	data, ok, err := s.backend.Get(ctx, key)
	if err != nil {
		s.logger.Warn("cache read failed", "key", key, "error", err)
		s.count("error")
		return entry, false
	}
	if !ok {
		s.count("miss")
		return entry, false
	}

	if err := json.Unmarshal(data, &entry); err != nil {
		s.logger.Warn("discarding undecodable cache entry", "key", key, "error", err)
		s.count("error")
		return Entry[V]{}, false
	}

	if s.now().Sub(entry.Timestamp) >= s.ttl {
		if err := s.backend.Delete(ctx, key); err != nil {
			s.logger.Debug("failed to delete expired entry", "key", key, "error", err)
		}
		s.count("expired")
		return Entry[V]{}, false
	}

	s.count("hit")
	return entry, true
}

// Put stores value under key with the current time as its timestamp.
func (s *Store[V]) Put(ctx context.Context, key string, value V) {
	data, err := json.Marshal(Entry[V]{Value: value, Timestamp: s.now()})
	if err != nil {
		s.logger.Warn("failed to encode cache entry", "key", key, "error", err)
		return
	}
	// The backend keeps the entry a little longer than the TTL so that lazy
	// expiry, not the backend, decides validity.
	if err := s.backend.Set(ctx, key, data, s.ttl+time.Minute); err != nil {
		s.logger.Warn("cache write failed", "key", key, "error", err)
	}
}

// TTL returns the validity window.
func (s *Store[V]) TTL() time.Duration {
	return s.ttl
}

func (s *Store[V]) count(outcome string) {
	observability.CacheLookups.WithLabelValues(s.name, outcome).Inc()
}
