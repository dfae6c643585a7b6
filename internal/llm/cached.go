package llm

import (
	"context"

	"curator/internal/cache"
	"curator/internal/core"
)

// Cached memoizes successful collaborator answers per (category label, query).
type Cached struct {
	next  core.Collaborator
	store *cache.Store[[]core.RelatedItem]
}

// NewCached wraps next with store.
func NewCached(next core.Collaborator, store *cache.Store[[]core.RelatedItem]) *Cached {
	return &Cached{next: next, store: store}
}

// RelatedItems implements core.Collaborator. Failures and empty answers are not cached.
func (c *Cached) RelatedItems(ctx context.Context, query string, category core.Category) ([]core.RelatedItem, error) {
	key := cache.RelatedKey(category.Label(), query)
	if entry, ok := c.store.Get(ctx, key); ok {
		return entry.Value, nil
	}

	items, err := c.next.RelatedItems(ctx, query, category)
	if err != nil {
		return nil, err
	}
	if len(items) > 0 {
		c.store.Put(ctx, key, items)
	}
	return items, nil
}
