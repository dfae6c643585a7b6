package core

import "context"

// Collaborator produces related items for a query within one category.
type Collaborator interface {
	RelatedItems(ctx context.Context, query string, category Category) ([]RelatedItem, error)
}

// ImageProvider resolves an entity name to an image URL.
// An empty URL with a nil error means the provider has no image for the name.
type ImageProvider interface {
	// Name identifies the provider in logs and metrics
	Name() string

	// ResolveImage looks up one image; only context cancellation is returned as an error
	ResolveImage(ctx context.Context, name string, kind EntityKind) (string, error)
}

// ImageResolver turns a name into an image URL and never fails.
type ImageResolver interface {
	Resolve(ctx context.Context, name string, strategy Strategy) string
}
