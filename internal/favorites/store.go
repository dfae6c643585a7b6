// Package favorites persists each owner's saved recommendation items.
package favorites

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"curator/internal/core"
)

// ErrNotFound indicates a requested favorite was not found.
var ErrNotFound = errors.New("favorite not found")

// Favorite is a saved item together with the time it was first added.
type Favorite struct {
	core.RecommendationItem
	AddedAt time.Time `json:"addedAt"`
}

// Store defines persistence operations for favorites.
// Items are unique per owner by name and listed in insertion order.
type Store interface {
	// Add saves item unless the owner already has an item with the same name.
	// It reports whether the item was added.
	Add(ctx context.Context, owner string, item core.RecommendationItem) (bool, error)

	// Remove deletes the owner's item with the given name and reports whether one existed.
	Remove(ctx context.Context, owner, name string) (bool, error)

	// Get returns ErrNotFound when the owner has no such item.
	Get(ctx context.Context, owner, name string) (*Favorite, error)

	List(ctx context.Context, owner string) ([]Favorite, error)

	Close() error
}

func validateKey(owner, name string) error {
	if strings.TrimSpace(owner) == "" {
		return core.NewInvalidRequestError("owner is required", nil)
	}
	if strings.TrimSpace(name) == "" {
		return core.NewInvalidRequestError("item name is required", nil)
	}
	return nil
}

func serializeItem(item core.RecommendationItem) ([]byte, error) {
	if item.Features == nil {
		item.Features = []string{}
	}
	b, err := json.Marshal(item)
	if err != nil {
		return nil, fmt.Errorf("marshal favorite: %w", err)
	}
	return b, nil
}

func deserializeItem(raw []byte) (core.RecommendationItem, error) {
	var item core.RecommendationItem
	if len(raw) == 0 {
		return item, fmt.Errorf("empty favorite payload")
	}
	if err := json.Unmarshal(raw, &item); err != nil {
		return item, fmt.Errorf("unmarshal favorite: %w", err)
	}
	return item, nil
}

func cloneItem(item core.RecommendationItem) core.RecommendationItem {
	item.Features = append([]string{}, item.Features...)
	return item
}
