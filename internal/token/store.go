package token

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"curator/internal/cache"
)

// Token is a bearer token and the instant after which it must not be used.
type Token struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Valid reports whether the token can be used at now.
func (t Token) Valid(now time.Time) bool {
	return t.AccessToken != "" && now.Before(t.ExpiresAt)
}

// Store holds the current token for one provider.
type Store interface {
	Load(ctx context.Context) (Token, bool, error)
	Save(ctx context.Context, tok Token) error
	Clear(ctx context.Context) error
}

// MemoryStore keeps the token in process memory.
type MemoryStore struct {
	mu  sync.RWMutex
	tok Token
	set bool
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load(context.Context) (Token, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tok, s.set, nil
}

func (s *MemoryStore) Save(_ context.Context, tok Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tok, s.set = tok, true
	return nil
}

func (s *MemoryStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tok, s.set = Token{}, false
	return nil
}

// BackendStore keeps the token in a cache backend so that several instances
// sharing a Redis share one token.
type BackendStore struct {
	backend cache.Backend
	key     string
}

// NewBackendStore stores the token for provider under "token:<provider>".
func NewBackendStore(backend cache.Backend, provider string) *BackendStore {
	return &BackendStore{backend: backend, key: "token:" + provider}
}

func (s *BackendStore) Load(ctx context.Context) (Token, bool, error) {
	data, ok, err := s.backend.Get(ctx, s.key)
	if err != nil || !ok {
		return Token{}, false, err
	}
	var tok Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return Token{}, false, fmt.Errorf("decode stored token: %w", err)
	}
	return tok, true, nil
}

func (s *BackendStore) Save(ctx context.Context, tok Token) error {
	data, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("encode token: %w", err)
	}
	ttl := time.Until(tok.ExpiresAt)
	if ttl <= 0 {
		// A non-positive TTL means "no expiry" to the backends.
		return s.backend.Delete(ctx, s.key)
	}
	return s.backend.Set(ctx, s.key, data, ttl)
}

func (s *BackendStore) Clear(ctx context.Context) error {
	return s.backend.Delete(ctx, s.key)
}
