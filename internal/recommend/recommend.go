// Package recommend turns a search query into four categories of illustrated recommendations.
package recommend

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"golang.org/x/sync/errgroup"

	"curator/internal/core"
	"curator/internal/observability"
)

const (
	// DefaultMaxItems caps each category.
	DefaultMaxItems = 10
	// DefaultBatchSize is how many images of one category are resolved at once.
	DefaultBatchSize = 5
)

const (
	fallbackCount       = 10
	fallbackName        = "推奨アイテム"
	fallbackReason      = "関連性のある推奨アイテムです"
	fallbackOfficialURL = "https://example.com"
)

var fallbackFeatures = []string{"特徴1", "特徴2", "特徴3"}

var officialBaseURLs = map[core.Category]string{
	core.CategoryArtists:     "https://open.spotify.com/search/",
	core.CategoryCelebrities: "https://www.themoviedb.org/search?query=",
	core.CategoryMedia:       "https://www.themoviedb.org/search?query=",
	core.CategoryFashion:     "https://www.google.com/search?q=",
}

// Config tunes the orchestrator.
type Config struct {
	MaxItems  int
	BatchSize int
	// IsolateCategoryFailures replaces only a failing category with fallback
	// items instead of the whole response.
	IsolateCategoryFailures bool
	Logger                  *slog.Logger
}

// Service orchestrates collaborator calls and image resolution.
type Service struct {
	collaborator core.Collaborator
	images       core.ImageResolver
	maxItems     int
	batchSize    int
	isolate      bool
	logger       *slog.Logger
}

// New creates a Service.
func New(collaborator core.Collaborator, images core.ImageResolver, cfg Config) *Service {
	s := &Service{
		collaborator: collaborator,
		images:       images,
		maxItems:     cfg.MaxItems,
		batchSize:    cfg.BatchSize,
		isolate:      cfg.IsolateCategoryFailures,
		logger:       cfg.Logger,
	}
	if s.maxItems <= 0 {
		s.maxItems = DefaultMaxItems
	}
	if s.batchSize <= 0 {
		s.batchSize = DefaultBatchSize
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Recommend returns recommendations for query. Collaborator failures never surface:
// they are replaced by fallback content. An error is returned only for an empty
// query or when ctx ends first.
func (s *Service) Recommend(ctx context.Context, query string) (*core.Recommendations, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, core.NewInvalidRequestError("query is required", nil)
	}

	related, failed := s.collect(ctx, query)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if !s.isolate && len(failed) > 0 {
		observability.RecommendationFallbacks.WithLabelValues("all").Inc()
		return Fallback(), nil
	}

	out := &core.Recommendations{}
	var g errgroup.Group
	results := make([][]core.RecommendationItem, len(core.Categories))
	for i, c := range core.Categories {
		if _, ok := failed[c]; ok {
			observability.RecommendationFallbacks.WithLabelValues("category").Inc()
			results[i] = fallbackItems()
			continue
		}
		items := related[i]
		g.Go(func() error {
			results[i] = s.enrich(ctx, c, items)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for i, c := range core.Categories {
		out.Set(c, results[i])
	}
	return out, nil
}

// RelatedItems exposes a single collaborator call for one category.
func (s *Service) RelatedItems(ctx context.Context, query string, category core.Category) ([]core.RelatedItem, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, core.NewInvalidRequestError("query is required", nil)
	}
	if !category.Valid() {
		return nil, core.NewInvalidRequestError("unknown category: "+string(category), nil)
	}
	return s.collaborator.RelatedItems(ctx, query, category)
}

// collect asks the collaborator for every category in parallel. Without
// isolation the first failure cancels the remaining calls.
func (s *Service) collect(ctx context.Context, query string) ([][]core.RelatedItem, map[core.Category]error) {
	related := make([][]core.RelatedItem, len(core.Categories))
	errs := make([]error, len(core.Categories))

	g, gctx := errgroup.WithContext(ctx)
	for i, c := range core.Categories {
		g.Go(func() error {
			items, err := s.collaborator.RelatedItems(gctx, query, c)
			if err != nil {
				errs[i] = err
				if s.isolate {
					return nil
				}
				return err
			}
			if len(items) > s.maxItems {
				items = items[:s.maxItems]
			}
			related[i] = items
			return nil
		})
	}
	_ = g.Wait()

	failed := make(map[core.Category]error)
	for i, err := range errs {
		if err != nil {
			failed[core.Categories[i]] = err
			s.logger.Warn("related items unavailable, using fallback",
				"category", core.Categories[i],
				"query", query,
				"error", err,
				"request_id", core.GetRequestID(ctx),
			)
		}
	}
	return related, failed
}

// enrich resolves images in consecutive batches; a batch starts only after the
// previous one has finished.
func (s *Service) enrich(ctx context.Context, c core.Category, items []core.RelatedItem) []core.RecommendationItem {
	out := make([]core.RecommendationItem, len(items))
	strategy := c.Strategy()

	for start := 0; start < len(items); start += s.batchSize {
		end := min(start+s.batchSize, len(items))

		var batch errgroup.Group
		for j := start; j < end; j++ {
			item := items[j]
			batch.Go(func() error {
				features := item.Features
				if features == nil {
					features = []string{}
				}
				out[j] = core.RecommendationItem{
					Name:        item.Name,
					Reason:      item.Reason,
					Features:    features,
					ImageURL:    s.images.Resolve(ctx, item.Name, strategy),
					OfficialURL: OfficialURL(c, item.Name),
				}
				return nil
			})
		}
		_ = batch.Wait()
	}
	return out
}

// OfficialURL links an item to a search page appropriate for its category.
func OfficialURL(c core.Category, name string) string {
	return officialBaseURLs[c] + EncodeURIComponent(name)
}

var uriComponentUnescaper = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

// EncodeURIComponent percent-encodes s the way browsers encode a URI component:
// everything except A-Z a-z 0-9 - _ . ! ~ * ' ( ) is escaped and spaces become %20.
func EncodeURIComponent(s string) string {
	return uriComponentUnescaper.Replace(url.QueryEscape(s))
}

// Fallback returns the placeholder response used when the collaborator fails.
func Fallback() *core.Recommendations {
	return &core.Recommendations{
		Artists:     fallbackItems(),
		Celebrities: fallbackItems(),
		Media:       fallbackItems(),
		Fashion:     fallbackItems(),
	}
}

func fallbackItems() []core.RecommendationItem {
	items := make([]core.RecommendationItem, fallbackCount)
	for i := range items {
		items[i] = core.RecommendationItem{
			Name:        fallbackName,
			Reason:      fallbackReason,
			Features:    append([]string(nil), fallbackFeatures...),
			ImageURL:    core.PlaceholderImage,
			OfficialURL: fallbackOfficialURL,
		}
	}
	return items
}
