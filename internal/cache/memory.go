package cache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

const (
	defaultMaxEntries = 10000
	defaultShards     = 16
)

// MemoryConfig configures the in-process backend.
type MemoryConfig struct {
	// MaxEntries bounds the total number of entries (default 10000)
	MaxEntries int
	// Shards is the number of independently locked partitions (default 16)
	Shards int
	// Clock overrides time.Now, for tests
	Clock func() time.Time
}

// MemoryBackend is a sharded LRU held in process memory.
// Each shard evicts its least recently used entry once it is full.
type MemoryBackend struct {
	shards []*memoryShard
	now    func() time.Time
}

type memoryShard struct {
	mu       sync.Mutex
	capacity int
	items    map[string]*list.Element
	order    *list.List // front is most recently used
}

type memoryItem struct {
	key       string
	value     []byte
	expiresAt time.Time
}

// NewMemoryBackend creates an empty in-process backend.
func NewMemoryBackend(cfg MemoryConfig) *MemoryBackend {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = defaultMaxEntries
	}
	if cfg.Shards <= 0 {
		cfg.Shards = defaultShards
	}
	if cfg.Shards > cfg.MaxEntries {
		cfg.Shards = cfg.MaxEntries
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	perShard := (cfg.MaxEntries + cfg.Shards - 1) / cfg.Shards
	shards := make([]*memoryShard, cfg.Shards)
	for i := range shards {
		shards[i] = &memoryShard{
			capacity: perShard,
			items:    make(map[string]*list.Element),
			order:    list.New(),
		}
	}
	return &MemoryBackend{shards: shards, now: cfg.Clock}
}

func (b *MemoryBackend) shardFor(key string) *memoryShard {
	return b.shards[xxhash.Sum64String(key)%uint64(len(b.shards))]
}

// Get returns a copy of the stored bytes.
func (b *MemoryBackend) Get(_ context.Context, key string) ([]byte, bool, error) {
	s := b.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	el, ok := s.items[key]
	if !ok {
		return nil, false, nil
	}
	item := el.Value.(*memoryItem)
	if !item.expiresAt.IsZero() && !b.now().Before(item.expiresAt) {
		s.remove(el)
		return nil, false, nil
	}
	s.order.MoveToFront(el)
	out := make([]byte, len(item.value))
	copy(out, item.value)
	return out, true, nil
}

// Set stores a copy of value.
func (b *MemoryBackend) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	stored := make([]byte, len(value))
	copy(stored, value)

	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = b.now().Add(ttl)
	}

	s := b.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	if el, ok := s.items[key]; ok {
		item := el.Value.(*memoryItem)
		item.value = stored
		item.expiresAt = expiresAt
		s.order.MoveToFront(el)
		return nil
	}

	s.items[key] = s.order.PushFront(&memoryItem{key: key, value: stored, expiresAt: expiresAt})
	for s.order.Len() > s.capacity {
		s.remove(s.order.Back())
	}
	return nil
}

// Delete removes key.
func (b *MemoryBackend) Delete(_ context.Context, key string) error {
	s := b.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	if el, ok := s.items[key]; ok {
		s.remove(el)
	}
	return nil
}

// Len returns the number of stored entries, including ones not yet lazily expired.
func (b *MemoryBackend) Len() int {
	n := 0
	for _, s := range b.shards {
		s.mu.Lock()
		n += s.order.Len()
		s.mu.Unlock()
	}
	return n
}

// Close is a no-op for the memory backend.
func (b *MemoryBackend) Close() error {
	return nil
}

func (s *memoryShard) remove(el *list.Element) {
	s.order.Remove(el)
	delete(s.items, el.Value.(*memoryItem).key)
}
