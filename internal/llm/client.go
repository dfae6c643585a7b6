// Package llm asks an OpenAI-compatible chat completions API for related items.
package llm

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/tidwall/gjson"

	"curator/internal/backoff"
	"curator/internal/core"
	"curator/internal/httpclient"
	"curator/internal/pkg/apiclient"
)

const (
	providerName = "openai"

	defaultBaseURL = "https://api.openai.com/v1"

	// DefaultModel is used when no model is configured.
	DefaultModel = "gpt-3.5-turbo"
)

// Options configures the client. Zero values select production defaults.
type Options struct {
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
	Client     *apiclient.Config
	Policy     *backoff.Policy
	// RetryOptions are passed to every retry loop, e.g. a test timer
	RetryOptions []backoff.Option
	Logger       *slog.Logger
}

// Client implements core.Collaborator.
type Client struct {
	client    *apiclient.Client
	apiKey    string
	model     string
	policy    backoff.Policy
	retryOpts []backoff.Option
	logger    *slog.Logger
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	ResponseFormat responseFormat `json:"response_format"`
}

type chatResponse struct {
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
}

// New creates a collaborator client.
func New(opts Options) *Client {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
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
		hc := httpclient.DefaultConfig()
		// Completions take far longer than media lookups.
		hc.Timeout = 60 * time.Second
		httpClient = httpclient.NewHTTPClient(&hc)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	c := &Client{
		apiKey:    opts.APIKey,
		model:     opts.Model,
		policy:    backoff.ProviderCallPolicy(),
		retryOpts: opts.RetryOptions,
		logger:    logger.With("provider", providerName),
	}
	if c.model == "" {
		c.model = DefaultModel
	}
	if opts.Policy != nil {
		c.policy = *opts.Policy
	}
	c.client = apiclient.NewWithHTTPClient(httpClient, cfg, c.setHeaders)
	return c
}

// setHeaders sets the required headers for chat completion requests
func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	// OpenAI requires ASCII-only characters and max 512 bytes, otherwise returns 400.
	if requestID := core.GetRequestID(req.Context()); requestID != "" && isValidClientRequestID(requestID) {
		req.Header.Set("X-Client-Request-Id", requestID)
	}
}

func isValidClientRequestID(id string) bool {
	if len(id) > 512 {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] > 127 {
			return false
		}
	}
	return true
}

// RelatedItems implements core.Collaborator. Throttling and upstream failures are
// retried under the provider call policy; anything else fails immediately.
func (c *Client) RelatedItems(ctx context.Context, query string, category core.Category) ([]core.RelatedItem, error) {
	req := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: BuildPrompt(query, category.Label())},
		},
		ResponseFormat: responseFormat{Type: "json_object"},
	}

	opts := append([]backoff.Option{
		backoff.WithRetryIf(core.IsRetryable),
		backoff.WithNotify(func(attempt int, err error, delay time.Duration) {
			c.logger.Warn("chat completion failed, retrying",
				"category", category,
				"attempt", attempt,
				"delay", delay,
				"error", err,
			)
		}),
	}, c.retryOpts...)

	resp, err := backoff.DoValue(ctx, c.policy, func(ctx context.Context) (chatResponse, error) {
		var resp chatResponse
		err := c.client.Do(ctx, apiclient.Request{
			Method:   http.MethodPost,
			Endpoint: "/chat/completions",
			Body:     req,
		}, &resp)
		return resp, err
	}, opts...)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, core.NewCollaboratorError(providerName, "chat completion failed: "+err.Error(), err)
	}

	if len(resp.Choices) == 0 {
		return nil, core.NewCollaboratorError(providerName, "chat completion returned no choices", nil)
	}
	return ParseItems(resp.Choices[0].Message.Content)
}

// ParseItems decodes a {"items":[...]} answer. Items without a name are dropped
// and missing feature lists become empty.
func ParseItems(content string) ([]core.RelatedItem, error) {
	content = strings.TrimSpace(content)
	if !gjson.Valid(content) {
		return nil, core.NewCollaboratorError(providerName, "answer is not valid JSON", nil)
	}
	if items := gjson.Get(content, "items"); !items.IsArray() {
		return nil, core.NewCollaboratorError(providerName, `answer has no "items" array`, nil)
	}

	var answer struct {
		Items []core.RelatedItem `json:"items"`
	}
	if err := json.Unmarshal([]byte(content), &answer); err != nil {
		return nil, core.NewCollaboratorError(providerName, "malformed items: "+err.Error(), err)
	}

	out := make([]core.RelatedItem, 0, len(answer.Items))
	for _, item := range answer.Items {
		item.Name = strings.TrimSpace(item.Name)
		if item.Name == "" {
			continue
		}
		if item.Features == nil {
			item.Features = []string{}
		}
		out = append(out, item)
	}
	return out, nil
}
