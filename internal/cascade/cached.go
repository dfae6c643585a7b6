package cascade

import (
	"context"

	"curator/internal/cache"
	"curator/internal/core"
)

// Cached memoizes another resolver for the store's TTL, keyed by name and strategy.
// Placeholder answers are cached too, so a name nobody knows is not re-queried
// on every request.
type Cached struct {
	next  core.ImageResolver
	store *cache.Store[string]
}

// NewCached wraps next with store.
func NewCached(next core.ImageResolver, store *cache.Store[string]) *Cached {
	return &Cached{next: next, store: store}
}

// Resolve implements core.ImageResolver.
func (c *Cached) Resolve(ctx context.Context, name string, strategy core.Strategy) string {
	key := cache.ImageKey(name, strategy)
	if entry, ok := c.store.Get(ctx, key); ok && entry.Value != "" {
		return entry.Value
	}

	imageURL := c.next.Resolve(ctx, name, strategy)
	// A cancelled lookup may have stopped early; do not remember its placeholder.
	if ctx.Err() == nil {
		c.store.Put(ctx, key, imageURL)
	}
	return imageURL
}
