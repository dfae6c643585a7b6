// Package cache stores resolved images and collaborator answers for a bounded time.
// Supports an in-process LRU backend and a Redis backend for multi-instance deployments.
package cache

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// DefaultTTL is how long an entry stays valid after insertion.
const DefaultTTL = time.Hour

// Backend is raw byte storage with a best-effort expiry.
// Implementations must be safe for concurrent use.
type Backend interface {
	// Get returns the stored bytes. A missing key is (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value under key. ttl <= 0 means no backend expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes key if present.
	Delete(ctx context.Context, key string) error

	// Close releases any resources held by the backend.
	Close() error
}

// Backend types accepted by NewBackend.
const (
	TypeMemory = "memory"
	TypeRedis  = "redis"
)

// BackendConfig selects and configures a Backend.
type BackendConfig struct {
	Type       string
	MaxEntries int
	Shards     int
	Redis      RedisConfig
}

// NewBackend builds the backend named by cfg.Type.
func NewBackend(cfg BackendConfig) (Backend, error) {
	switch strings.ToLower(cfg.Type) {
	case "", TypeMemory:
		return NewMemoryBackend(MemoryConfig{MaxEntries: cfg.MaxEntries, Shards: cfg.Shards}), nil
	case TypeRedis:
		return NewRedisBackend(cfg.Redis)
	default:
		return nil, fmt.Errorf("unknown cache type: %s", cfg.Type)
	}
}
