// Package wikipedia resolves images through the MediaWiki action API.
//
// A name is tried bare and then with each disambiguation suffix. For every
// variant the top search hit is inspected for a page thumbnail at decreasing
// sizes, then for the first image embedded in the article.
package wikipedia

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/tidwall/gjson"

	"curator/internal/backoff"
	"curator/internal/core"
	"curator/internal/httpclient"
	"curator/internal/pkg/apiclient"
)

const (
	providerName = "wikipedia"

	defaultBaseURL = "https://ja.wikipedia.org/w/api.php"
)

// Disambiguators are the suffixes tried after the bare name, in order.
var Disambiguators = []string{"アーティスト", "歌手", "俳優", "映画", "アニメ", "ブランド"}

var thumbnailSizes = []int{800, 500, 300}

// Options configures the provider. Zero values select production defaults.
type Options struct {
	BaseURL    string
	HTTPClient *http.Client
	Client     *apiclient.Config
	Policy     *backoff.Policy
	// RetryOptions are passed to every per-variant retry loop
	RetryOptions []backoff.Option
	Logger       *slog.Logger
}

// Provider implements core.ImageProvider for an encyclopedia.
type Provider struct {
	client    *apiclient.Client
	policy    backoff.Policy
	retryOpts []backoff.Option
	logger    *slog.Logger
}

// New creates a Wikipedia provider.
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
		client:    apiclient.NewWithHTTPClient(httpClient, cfg, nil),
		policy:    backoff.ProviderCallPolicy(),
		retryOpts: opts.RetryOptions,
		logger:    logger.With("provider", providerName),
	}
	if opts.Policy != nil {
		p.policy = *opts.Policy
	}
	return p
}

// Name implements core.ImageProvider.
func (p *Provider) Name() string {
	return providerName
}

// Variants returns the search queries tried for name, in order.
func Variants(name string) []string {
	out := make([]string, 0, len(Disambiguators)+1)
	out = append(out, name)
	for _, d := range Disambiguators {
		out = append(out, name+" ("+d+")")
	}
	return out
}

// ResolveImage returns the first image found across the name variants, or "".
func (p *Provider) ResolveImage(ctx context.Context, name string, _ core.EntityKind) (string, error) {
	opts := append([]backoff.Option{
		backoff.WithRetryIf(func(error) bool { return ctx.Err() == nil }),
	}, p.retryOpts...)

	for _, variant := range Variants(name) {
		imageURL, err := backoff.DoValue(ctx, p.policy, func(ctx context.Context) (string, error) {
			return p.lookup(ctx, variant)
		}, opts...)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return "", ctxErr
			}
			p.logger.Warn("variant lookup failed", "query", variant, "error", err)
			continue
		}
		if imageURL != "" {
			return imageURL, nil
		}
	}

	p.logger.Debug("no image for any variant", "name", name)
	return "", nil
}

// lookup runs the search, thumbnail and embedded-image steps for one query.
// A query without search hits yields "" and no error, so it is not retried.
func (p *Provider) lookup(ctx context.Context, query string) (string, error) {
	body, err := p.query(ctx, url.Values{
		"list":     {"search"},
		"srsearch": {query},
		"srlimit":  {"1"},
	})
	if err != nil {
		return "", err
	}
	pageID := gjson.GetBytes(body, "query.search.0.pageid").Int()
	if pageID == 0 {
		return "", nil
	}
	id := strconv.FormatInt(pageID, 10)

	for _, size := range thumbnailSizes {
		body, err := p.query(ctx, url.Values{
			"prop":        {"pageimages|info"},
			"pithumbsize": {strconv.Itoa(size)},
			"inprop":      {"url"},
			"pageids":     {id},
		})
		if err != nil {
			return "", err
		}
		if src := gjson.GetBytes(body, "query.pages."+id+".thumbnail.source").String(); src != "" {
			return src, nil
		}
	}

	body, err = p.query(ctx, url.Values{
		"prop":    {"images"},
		"pageids": {id},
	})
	if err != nil {
		return "", err
	}
	title := gjson.GetBytes(body, "query.pages."+id+".images.0.title").String()
	if title == "" {
		return "", nil
	}

	body, err = p.query(ctx, url.Values{
		"prop":   {"imageinfo"},
		"iiprop": {"url"},
		"titles": {title},
	})
	if err != nil {
		return "", err
	}
	var imageURL string
	gjson.GetBytes(body, "query.pages").ForEach(func(_, page gjson.Result) bool {
		imageURL = page.Get("imageinfo.0.url").String()
		return false
	})
	return imageURL, nil
}

func (p *Provider) query(ctx context.Context, params url.Values) ([]byte, error) {
	params.Set("action", "query")
	params.Set("format", "json")
	resp, err := p.client.DoRaw(ctx, apiclient.Request{
		Method: http.MethodGet,
		Query:  params,
	})
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}
