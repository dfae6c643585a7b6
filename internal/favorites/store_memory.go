package favorites

import (
	"context"
	"sync"
	"time"

	"curator/internal/core"
)

// MemoryStore keeps favorites in process memory.
// Data survives across requests but not process restarts.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string][]Favorite
	now   func() time.Time
}

// NewMemoryStore creates an empty in-memory favorites store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items: make(map[string][]Favorite),
		now:   time.Now,
	}
}

// Add stores item unless a favorite with the same name exists.
func (s *MemoryStore) Add(_ context.Context, owner string, item core.RecommendationItem) (bool, error) {
	if err := validateKey(owner, item.Name); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range s.items[owner] {
		if f.Name == item.Name {
			return false, nil
		}
	}
	s.items[owner] = append(s.items[owner], Favorite{
		RecommendationItem: cloneItem(item),
		AddedAt:            s.now().UTC(),
	})
	return true, nil
}

// Remove deletes one favorite by name.
func (s *MemoryStore) Remove(_ context.Context, owner, name string) (bool, error) {
	if err := validateKey(owner, name); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.items[owner]
	for i, f := range list {
		if f.Name == name {
			s.items[owner] = append(list[:i:i], list[i+1:]...)
			if len(s.items[owner]) == 0 {
				delete(s.items, owner)
			}
			return true, nil
		}
	}
	return false, nil
}

// Get retrieves one favorite by name.
func (s *MemoryStore) Get(_ context.Context, owner, name string) (*Favorite, error) {
	if err := validateKey(owner, name); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, f := range s.items[owner] {
		if f.Name == name {
			c := f
			c.RecommendationItem = cloneItem(f.RecommendationItem)
			return &c, nil
		}
	}
	return nil, ErrNotFound
}

// List returns the owner's favorites in insertion order.
func (s *MemoryStore) List(_ context.Context, owner string) ([]Favorite, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := s.items[owner]
	out := make([]Favorite, len(list))
	for i, f := range list {
		out[i] = f
		out[i].RecommendationItem = cloneItem(f.RecommendationItem)
	}
	return out, nil
}

// Close releases resources (no-op for memory store).
func (s *MemoryStore) Close() error {
	return nil
}
