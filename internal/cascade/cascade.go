// Package cascade resolves an entity name to an image by trying media providers
// in a per-strategy order and falling back to a placeholder.
package cascade

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"curator/internal/core"
	"curator/internal/observability"
)

// sourcePlaceholder labels resolutions that found nothing.
const sourcePlaceholder = "placeholder"

// Providers are the image sources a Resolver can use. A nil field is skipped.
type Providers struct {
	// Catalog is the music catalog (Spotify)
	Catalog core.ImageProvider
	// Metadata is the film/TV/person database (TMDB)
	Metadata core.ImageProvider
	// Encyclopedia is the general reference source (Wikipedia)
	Encyclopedia core.ImageProvider
}

type step struct {
	provider core.ImageProvider
	kind     core.EntityKind
}

// Resolver implements core.ImageResolver. It never fails and never returns "".
type Resolver struct {
	plans    map[core.Strategy][]step
	fallback []step
	logger   *slog.Logger
}

// New builds the per-strategy plans:
//
//	artist:  catalog, metadata(person), encyclopedia
//	person:  metadata(person), catalog, encyclopedia
//	media:   metadata(media), catalog, encyclopedia
//	fashion: encyclopedia
func New(p Providers, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	catalog := step{provider: p.Catalog, kind: core.KindPerson}
	person := step{provider: p.Metadata, kind: core.KindPerson}
	media := step{provider: p.Metadata, kind: core.KindMedia}
	encyclopedia := step{provider: p.Encyclopedia, kind: core.KindPerson}

	return &Resolver{
		plans: map[core.Strategy][]step{
			core.StrategyArtist:  {catalog, person, encyclopedia},
			core.StrategyPerson:  {person, catalog, encyclopedia},
			core.StrategyMedia:   {media, catalog, encyclopedia},
			core.StrategyFashion: {encyclopedia},
		},
		fallback: []step{encyclopedia},
		logger:   logger,
	}
}

// Resolve returns the first image any provider in the strategy's plan finds,
// or core.PlaceholderImage. Unknown strategies only consult the encyclopedia.
func (r *Resolver) Resolve(ctx context.Context, name string, strategy core.Strategy) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return core.PlaceholderImage
	}

	plan, ok := r.plans[strategy]
	if !ok {
		r.logger.Warn("unknown image strategy, using encyclopedia only", "strategy", strategy)
		plan = r.fallback
	}

	for _, s := range plan {
		if s.provider == nil {
			continue
		}
		if ctx.Err() != nil {
			break
		}
		if imageURL := r.try(ctx, s, name); imageURL != "" {
			observability.ImageResolutions.WithLabelValues(string(strategy), s.provider.Name()).Inc()
			return imageURL
		}
	}

	observability.ImageResolutions.WithLabelValues(string(strategy), sourcePlaceholder).Inc()
	return core.PlaceholderImage
}

// try runs one provider, turning errors and panics into "absent".
func (r *Resolver) try(ctx context.Context, s step, name string) (imageURL string) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("image provider panicked",
				"provider", s.provider.Name(),
				"name", name,
				"panic", fmt.Sprint(rec),
			)
			imageURL = ""
		}
	}()

	imageURL, err := s.provider.ResolveImage(ctx, name, s.kind)
	if err != nil {
		r.logger.Debug("image provider failed", "provider", s.provider.Name(), "name", name, "error", err)
		return ""
	}
	return imageURL
}
