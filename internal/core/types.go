package core

// PlaceholderImage is the local image served when no provider has a picture.
const PlaceholderImage = "/placeholder.svg?height=400&width=400"

// Category is one of the four fixed recommendation categories.
type Category string

const (
	CategoryArtists     Category = "artists"
	CategoryCelebrities Category = "celebrities"
	CategoryMedia       Category = "media"
	CategoryFashion     Category = "fashion"
)

// Categories lists the categories in response order.
var Categories = []Category{CategoryArtists, CategoryCelebrities, CategoryMedia, CategoryFashion}

var categoryLabels = map[Category]string{
	CategoryArtists:     "音楽アーティスト",
	CategoryCelebrities: "芸能人/インフルエンサー",
	CategoryMedia:       "映画/アニメ作品",
	CategoryFashion:     "ファッションブランド",
}

var categoryStrategies = map[Category]Strategy{
	CategoryArtists:     StrategyArtist,
	CategoryCelebrities: StrategyPerson,
	CategoryMedia:       StrategyMedia,
	CategoryFashion:     StrategyFashion,
}

// Label returns the collaborator-facing label in the target locale.
func (c Category) Label() string {
	return categoryLabels[c]
}

// Strategy returns the image resolution strategy used for items of this category.
func (c Category) Strategy() Strategy {
	return categoryStrategies[c]
}

// Valid reports whether c is one of the four known categories.
func (c Category) Valid() bool {
	_, ok := categoryLabels[c]
	return ok
}

// ParseCategory accepts either a category key ("artists") or its label ("音楽アーティスト").
func ParseCategory(s string) (Category, bool) {
	if c := Category(s); c.Valid() {
		return c, true
	}
	for c, label := range categoryLabels {
		if label == s {
			return c, true
		}
	}
	return "", false
}

// Strategy identifies an image resolution cascade. It is part of image cache keys
// because one name can legitimately resolve to different images per strategy.
type Strategy string

const (
	StrategyArtist  Strategy = "artist"
	StrategyPerson  Strategy = "person"
	StrategyMedia   Strategy = "media"
	StrategyFashion Strategy = "fashion"
)

// Valid reports whether s is a known strategy.
func (s Strategy) Valid() bool {
	switch s {
	case StrategyArtist, StrategyPerson, StrategyMedia, StrategyFashion:
		return true
	}
	return false
}

// EntityKind selects the search endpoint of the media-metadata provider.
type EntityKind string

const (
	KindPerson EntityKind = "person"
	KindMedia  EntityKind = "media"
)

// RelatedItem is one entry of the collaborator's answer.
type RelatedItem struct {
	Name     string   `json:"name"`
	Reason   string   `json:"reason"`
	Features []string `json:"features"`
}

// RecommendationItem is a related item enriched with an image and an official link.
type RecommendationItem struct {
	Name        string   `json:"name"`
	Reason      string   `json:"reason"`
	Features    []string `json:"features"`
	ImageURL    string   `json:"imageUrl"`
	OfficialURL string   `json:"officialUrl"`
}

// Recommendations is the full answer for one search query.
type Recommendations struct {
	Artists     []RecommendationItem `json:"artists"`
	Celebrities []RecommendationItem `json:"celebrities"`
	Media       []RecommendationItem `json:"media"`
	Fashion     []RecommendationItem `json:"fashion"`
}

// Get returns the items of one category.
func (r *Recommendations) Get(c Category) []RecommendationItem {
	switch c {
	case CategoryArtists:
		return r.Artists
	case CategoryCelebrities:
		return r.Celebrities
	case CategoryMedia:
		return r.Media
	case CategoryFashion:
		return r.Fashion
	}
	return nil
}

// Set replaces the items of one category.
func (r *Recommendations) Set(c Category, items []RecommendationItem) {
	switch c {
	case CategoryArtists:
		r.Artists = items
	case CategoryCelebrities:
		r.Celebrities = items
	case CategoryMedia:
		r.Media = items
	case CategoryFashion:
		r.Fashion = items
	}
}
