// Package tmdb resolves person profile pictures and work posters through The Movie Database API.
package tmdb

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	"curator/internal/core"
	"curator/internal/httpclient"
	"curator/internal/pkg/apiclient"
)

const (
	providerName = "tmdb"

	defaultBaseURL = "https://api.themoviedb.org/3"

	// DefaultImageBaseURL is the image CDN root; a size segment and the file path follow it.
	DefaultImageBaseURL = "https://image.tmdb.org/t/p"

	// DefaultLanguage is the locale requested for search results.
	DefaultLanguage = "ja-JP"

	imageSize = "/w500"
)

// Options configures the provider. Zero values select production defaults.
type Options struct {
	APIKey       string
	BaseURL      string
	ImageBaseURL string
	Language     string
	HTTPClient   *http.Client
	Client       *apiclient.Config
	Logger       *slog.Logger
}

// Provider searches people or multi-type results and returns the first match's image.
type Provider struct {
	client       *apiclient.Client
	apiKey       string
	imageBaseURL string
	language     string
	logger       *slog.Logger
}

type searchResponse struct {
	Results []struct {
		ID          int    `json:"id"`
		MediaType   string `json:"media_type"`
		ProfilePath string `json:"profile_path"`
		PosterPath  string `json:"poster_path"`
	} `json:"results"`
}

// New creates a TMDB provider.
func New(opts Options) *Provider {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	cfg := apiclient.DefaultConfig(providerName, baseURL)
	if opts.Client != nil {
		cfg = *opts.Client
		cfg.ProviderName = providerName
		cfg.BaseURL = baseURL
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = httpclient.NewDefaultHTTPClient()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	p := &Provider{
		client:       apiclient.NewWithHTTPClient(httpClient, cfg, nil),
		apiKey:       opts.APIKey,
		imageBaseURL: opts.ImageBaseURL,
		language:     opts.Language,
		logger:       logger.With("provider", providerName),
	}
	if p.imageBaseURL == "" {
		p.imageBaseURL = DefaultImageBaseURL
	}
	if p.language == "" {
		p.language = DefaultLanguage
	}
	return p
}

// Name implements core.ImageProvider.
func (p *Provider) Name() string {
	return providerName
}

// ResolveImage searches /search/person for KindPerson and /search/multi otherwise.
func (p *Provider) ResolveImage(ctx context.Context, name string, kind core.EntityKind) (string, error) {
	endpoint := "/search/multi"
	if kind == core.KindPerson {
		endpoint = "/search/person"
	}

	var resp searchResponse
	err := p.client.Do(ctx, apiclient.Request{
		Method:   http.MethodGet,
		Endpoint: endpoint,
		Query: url.Values{
			"api_key":  {p.apiKey},
			"query":    {name},
			"language": {p.language},
		},
	}, &resp)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		p.logger.Debug("image lookup failed", "name", name, "kind", kind, "error", err)
		return "", nil
	}

	if len(resp.Results) == 0 {
		return "", nil
	}
	path := resp.Results[0].PosterPath
	if kind == core.KindPerson {
		path = resp.Results[0].ProfilePath
	}
	if path == "" {
		return "", nil
	}
	return p.imageBaseURL + imageSize + path, nil
}
