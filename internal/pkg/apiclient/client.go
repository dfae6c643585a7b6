// Package apiclient provides the base HTTP client for external media APIs with:
// - Request building and JSON decoding
// - Standardized error parsing (401, 404, 429, 5xx)
// - Per-provider rate limiting
// - Circuit breaking
//
// Retries are deliberately left to the caller's backoff policy.
package apiclient

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"curator/internal/core"
	"curator/internal/httpclient"
	"curator/internal/observability"
)

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 4 << 20

// Config holds configuration for the API client
type Config struct {
	// ProviderName identifies the provider for error messages and metrics
	ProviderName string

	// BaseURL is the API base URL
	BaseURL string

	// RequestsPerSecond limits outgoing requests; 0 disables limiting
	RequestsPerSecond float64
	// Burst is the limiter bucket size (default 1)
	Burst int

	// Circuit breaker configuration; nil disables the breaker
	CircuitBreaker *CircuitBreakerConfig
}

// CircuitBreakerConfig holds circuit breaker settings
type CircuitBreakerConfig struct {
	// FailureThreshold is the number of consecutive failures before opening the circuit
	FailureThreshold uint32
	// HalfOpenRequests is the number of trial requests allowed while half-open
	HalfOpenRequests uint32
	// Timeout is how long the circuit stays open before probing again
	Timeout time.Duration
}

// DefaultConfig returns default client configuration
func DefaultConfig(providerName, baseURL string) Config {
	return Config{
		ProviderName:      providerName,
		BaseURL:           baseURL,
		RequestsPerSecond: 10,
		Burst:             5,
		CircuitBreaker: &CircuitBreakerConfig{
			FailureThreshold: 5,
			HalfOpenRequests: 2,
			Timeout:          30 * time.Second,
		},
	}
}

// HeaderSetter is a function that sets headers on an HTTP request
type HeaderSetter func(req *http.Request)

// Client is a base HTTP client for media providers
type Client struct {
	httpClient   *http.Client
	config       Config
	headerSetter HeaderSetter
	limiter      *rate.Limiter
	breaker      *gobreaker.CircuitBreaker[*Response]
}

// New creates a new API client with the given configuration
func New(config Config, headerSetter HeaderSetter) *Client {
	return NewWithHTTPClient(httpclient.NewDefaultHTTPClient(), config, headerSetter)
}

// NewWithHTTPClient creates a new API client with a custom HTTP client
func NewWithHTTPClient(httpClient *http.Client, config Config, headerSetter HeaderSetter) *Client {
	c := &Client{
		httpClient:   httpClient,
		config:       config,
		headerSetter: headerSetter,
	}

	if config.RequestsPerSecond > 0 {
		burst := config.Burst
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(config.RequestsPerSecond), burst)
	}

	if config.CircuitBreaker != nil {
		c.breaker = newBreaker(config.ProviderName, *config.CircuitBreaker)
	}

	return c
}

// BaseURL returns the current base URL
func (c *Client) BaseURL() string {
	return c.config.BaseURL
}

// Request represents an HTTP request to be made
type Request struct {
	Method   string
	Endpoint string
	Query    url.Values
	Body     interface{} // Will be JSON marshaled if not nil
	Headers  map[string]string
}

// Response represents an HTTP response
type Response struct {
	StatusCode int
	Body       []byte
}

// Do executes a request and unmarshals a 2xx response into result
func (c *Client) Do(ctx context.Context, req Request, result interface{}) error {
	resp, err := c.DoRaw(ctx, req)
	if err != nil {
		return err
	}

	if result != nil {
		if err := json.Unmarshal(resp.Body, result); err != nil {
			return core.NewProviderError(c.config.ProviderName, http.StatusBadGateway, "failed to unmarshal response: "+err.Error(), err)
		}
	}

	return nil
}

// DoRaw executes a single attempt and returns the raw 2xx response.
// Non-2xx answers are returned as *core.ServiceError.
func (c *Client) DoRaw(ctx context.Context, req Request) (*Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, core.NewRateLimitError(c.config.ProviderName, "local rate limit: "+err.Error())
		}
	}

	attempt := func() (*Response, error) {
		resp, err := c.doRequest(ctx, req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, core.ParseProviderError(c.config.ProviderName, resp.StatusCode, resp.Body, nil)
		}
		return resp, nil
	}

	if c.breaker == nil {
		return attempt()
	}

	resp, err := c.breaker.Execute(attempt)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		observability.ProviderRequests.WithLabelValues(c.config.ProviderName, "rejected").Inc()
		return nil, core.NewProviderError(c.config.ProviderName, http.StatusServiceUnavailable,
			"circuit breaker is open - provider temporarily unavailable", err)
	}
	return resp, err
}

// BreakerState returns the circuit state ("closed", "half-open", "open"), or "" without a breaker.
func (c *Client) BreakerState() string {
	if c.breaker == nil {
		return ""
	}
	return c.breaker.State().String()
}

// doRequest executes a single HTTP request
func (c *Client) doRequest(ctx context.Context, req Request) (*Response, error) {
	httpReq, err := c.buildRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	observability.ProviderRequestDuration.WithLabelValues(c.config.ProviderName).Observe(time.Since(start).Seconds())
	if err != nil {
		observability.ProviderRequests.WithLabelValues(c.config.ProviderName, "error").Inc()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, core.NewProviderError(c.config.ProviderName, http.StatusBadGateway, "failed to send request: "+err.Error(), err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	observability.ProviderRequests.WithLabelValues(c.config.ProviderName, statusClass(resp.StatusCode)).Inc()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, core.NewProviderError(c.config.ProviderName, http.StatusBadGateway, "failed to read response: "+err.Error(), err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Body:       body,
	}, nil
}

// buildRequest creates an HTTP request from a Request
func (c *Client) buildRequest(ctx context.Context, req Request) (*http.Request, error) {
	target := c.config.BaseURL + req.Endpoint
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	var bodyReader io.Reader
	if req.Body != nil {
		bodyBytes, err := json.Marshal(req.Body)
		if err != nil {
			return nil, core.NewInvalidRequestError("failed to marshal request", err)
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, bodyReader)
	if err != nil {
		return nil, core.NewInvalidRequestError("failed to create request", err)
	}

	httpReq.Header.Set("Accept", "application/json")
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	// Apply provider-specific headers
	if c.headerSetter != nil {
		c.headerSetter(httpReq)
	}

	// Apply request-specific headers
	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}

	return httpReq, nil
}

func statusClass(code int) string {
	return strconv.Itoa(code/100) + "xx"
}
