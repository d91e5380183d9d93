// Package client provides the HTTP client for the dinosaur catalog API
// with outbound rate limiting, retries and error classification. The same
// core carries the PostgREST gateway's upstream calls.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// Prometheus metrics for client operations.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dino_client_requests_total",
		Help: "Total outbound requests by endpoint and status",
	}, []string{"endpoint", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dino_client_request_duration_seconds",
		Help:    "Outbound request duration in seconds by endpoint",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	}, []string{"endpoint"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dino_client_errors_total",
		Help: "Total outbound errors by class",
	}, []string{"class"})
)

// maxErrorBody bounds how much of an error response is kept as message.
const maxErrorBody = 4 << 10

// Client is an HTTP client bound to one base URL.
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL
	limiter    *rate.Limiter
	config     Config
	logger     zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// BaseURL is prepended to every request path
	BaseURL string

	// UserAgent header sent with every request
	UserAgent string

	// Headers are added to every request (e.g., apikey, Authorization)
	Headers map[string]string

	// Rate Limiting (0 disables)
	RateLimit float64 // Requests per second
	Burst     int

	// Retry
	Retry RetryConfig

	// Timeout for a single attempt
	Timeout time.Duration

	// Component names the client in logs
	Component string
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(baseURL, userAgent string) Config {
	return Config{
		BaseURL:   baseURL,
		UserAgent: userAgent,
		RateLimit: 20,
		Burst:     10,
		Retry:     DefaultRetryConfig(),
		Timeout:   15 * time.Second,
		Component: "dino-client",
	}
}

// New creates a new client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}

	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base url must be absolute (got %q)", cfg.BaseURL)
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.Component == "" {
		cfg.Component = "dino-client"
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    base,
		limiter:    limiter,
		config:     cfg,
		logger:     log.With().Str("component", cfg.Component).Logger(),
	}, nil
}

// Do performs an HTTP request with rate limiting, retries and error
// classification. Responses with status >= 400 are returned as *APIError
// and their body is closed; 404 unwraps to ErrNotFound.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	endpoint := req.URL.Path

	startTime := time.Now()
	defer func() {
		requestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")
	for k, v := range c.config.Headers {
		req.Header.Set(k, v)
	}

	c.logger.Debug().
		Str("endpoint", endpoint).
		Str("method", req.Method).
		Msg("Executing request")

	var resp *http.Response

	err := retryWithBackoff(ctx, c.config.Retry, func() error {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return err
			}
		}

		r, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() == nil {
				c.logger.Error().Err(err).Str("endpoint", endpoint).Msg("HTTP request failed")
				errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
				requestsTotal.WithLabelValues(endpoint, "network_error").Inc()
			}
			return err
		}

		requestsTotal.WithLabelValues(endpoint, strconv.Itoa(r.StatusCode)).Inc()

		if r.StatusCode >= 400 {
			apiErr := responseError(r)
			errorsTotal.WithLabelValues(string(apiErr.ErrorClass)).Inc()

			c.logger.Warn().
				Str("endpoint", endpoint).
				Int("status", r.StatusCode).
				Str("error_class", string(apiErr.ErrorClass)).
				Msg("Request error")
			return apiErr
		}

		resp = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	return resp, nil
}

// responseError drains and closes the body of a failed response and
// turns it into an APIError.
func responseError(resp *http.Response) *APIError {
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		ErrorClass: classifyStatus(resp.StatusCode),
		Message:    errorMessage(body, resp.Status),
	}
	if resp.StatusCode == http.StatusNotFound {
		apiErr.Err = ErrNotFound
	}
	return apiErr
}

// errorMessage extracts the "error" or "message" field of a JSON error
// body, falling back to the HTTP status text.
func errorMessage(body []byte, status string) string {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Error != "" {
			return payload.Error
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	return status
}

// NewRequest builds a GET request for path (relative to the base URL).
// path may carry escaped segments (see url.PathEscape).
func (c *Client) NewRequest(ctx context.Context, path string, query url.Values) (*http.Request, error) {
	u := c.baseURL.JoinPath(path)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	return req, nil
}

// Get performs a GET request against path (relative to the base URL).
func (c *Client) Get(ctx context.Context, path string, query url.Values) (*http.Response, error) {
	req, err := c.NewRequest(ctx, path, query)
	if err != nil {
		return nil, err
	}
	return c.Do(req)
}

// GetJSON performs a GET request and decodes the JSON body into dst.
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, dst any) (http.Header, error) {
	req, err := c.NewRequest(ctx, path, query)
	if err != nil {
		return nil, err
	}
	return c.DoJSON(req, dst)
}

// DoJSON executes req and decodes the JSON body into dst. The response
// headers are returned for callers that read metadata such as
// Content-Range.
func (c *Client) DoJSON(req *http.Request, dst any) (http.Header, error) {
	resp, err := c.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return resp.Header, fmt.Errorf("%w: empty response body", ErrUnsuccessful)
		}
		return resp.Header, fmt.Errorf("decode %s: %w", req.URL.Path, err)
	}

	return resp.Header, nil
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}
