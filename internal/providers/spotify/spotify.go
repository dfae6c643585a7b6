// Package spotify resolves artist images through the Spotify Web API.
package spotify

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"curator/internal/core"
	"curator/internal/httpclient"
	"curator/internal/pkg/apiclient"
)

const (
	providerName = "spotify"

	defaultBaseURL = "https://api.spotify.com"

	// DefaultTokenURL is the client-credentials token endpoint.
	DefaultTokenURL = "https://accounts.spotify.com/api/token"
)

// TokenSource supplies bearer tokens. *token.Manager satisfies it.
type TokenSource interface {
	EnsureValidToken(ctx context.Context) (string, error)
	Invalidate(ctx context.Context)
}

// Options configures the provider. Zero values select production defaults.
type Options struct {
	BaseURL    string
	HTTPClient *http.Client
	Client     *apiclient.Config
	Logger     *slog.Logger
}

// Provider looks up the first image of the best matching artist.
type Provider struct {
	client *apiclient.Client
	tokens TokenSource
	logger *slog.Logger
}

type searchResponse struct {
	Artists struct {
		Items []struct {
			Name   string `json:"name"`
			Images []struct {
				URL    string `json:"url"`
				Height int    `json:"height"`
				Width  int    `json:"width"`
			} `json:"images"`
		} `json:"items"`
	} `json:"artists"`
}

// New creates a Spotify provider authenticated by tokens.
func New(tokens TokenSource, opts Options) *Provider {
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
	return &Provider{
		client: apiclient.NewWithHTTPClient(httpClient, cfg, nil),
		tokens: tokens,
		logger: logger.With("provider", providerName),
	}
}

// Name implements core.ImageProvider.
func (p *Provider) Name() string {
	return providerName
}

// ResolveImage returns the first image of the first artist matching name, or "".
// The entity kind is ignored; the catalog only knows artists.
func (p *Provider) ResolveImage(ctx context.Context, name string, _ core.EntityKind) (string, error) {
	imageURL, err := p.lookup(ctx, name)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		p.logger.Debug("artist image lookup failed", "name", name, "error", err)
		return "", nil
	}
	return imageURL, nil
}

// lookup searches with the current token. Only a 401 from the search endpoint
// itself earns a second attempt; a failed token refresh is final.
func (p *Provider) lookup(ctx context.Context, name string) (string, error) {
	tok, err := p.tokens.EnsureValidToken(ctx)
	if err != nil {
		return "", err
	}

	imageURL, err := p.search(ctx, name, tok)
	if !isUnauthorized(err) || ctx.Err() != nil {
		return imageURL, err
	}

	// The token may have been revoked before its declared expiry.
	p.tokens.Invalidate(ctx)
	if tok, err = p.tokens.EnsureValidToken(ctx); err != nil {
		return "", err
	}
	return p.search(ctx, name, tok)
}

func (p *Provider) search(ctx context.Context, name, tok string) (string, error) {
	var resp searchResponse
	err := p.client.Do(ctx, apiclient.Request{
		Method:   http.MethodGet,
		Endpoint: "/v1/search",
		Query:    url.Values{"q": {name}, "type": {"artist"}, "limit": {"1"}},
		Headers:  map[string]string{"Authorization": "Bearer " + tok},
	}, &resp)
	if err != nil {
		return "", err
	}

	if len(resp.Artists.Items) == 0 || len(resp.Artists.Items[0].Images) == 0 {
		return "", nil
	}
	return resp.Artists.Items[0].Images[0].URL, nil
}

func isUnauthorized(err error) bool {
	var svcErr *core.ServiceError
	return errors.As(err, &svcErr) && svcErr.StatusCode == http.StatusUnauthorized
}
