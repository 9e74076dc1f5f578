// Package base provides shared client infrastructure for the upstream APIs
// (GitHub REST and the zipcloud postal-code search).
package base

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/olgasafonova/benkyokai-mcp-server/internal/infra"
	"github.com/olgasafonova/benkyokai-mcp-server/metrics"
	"github.com/olgasafonova/benkyokai-mcp-server/tracing"
)

const (
	// DefaultTimeout for API requests
	DefaultTimeout = 30 * time.Second

	// DefaultMaxRetry is the number of attempts for idempotent requests
	DefaultMaxRetry = 3

	// MaxConcurrentRequests limits parallel API calls per client
	MaxConcurrentRequests = 5

	// MaxResponseSize caps how much of a response body is read (10 MiB)
	MaxResponseSize = 10 << 20

	// DefaultUserAgent is sent when a request does not set its own
	DefaultUserAgent = "benkyokai-mcp-server/1.0"
)

// Client provides common HTTP client infrastructure with concurrency limiting,
// circuit breaking and retries.
type Client struct {
	Service        string
	HTTPClient     *http.Client
	Logger         *slog.Logger
	CircuitBreaker *infra.CircuitBreaker
	Semaphore      chan struct{}
	MaxRetry       int
}

// ClientOption configures the Client
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(c *http.Client) ClientOption {
	return func(client *Client) {
		client.HTTPClient = c
	}
}

// WithTimeout replaces the HTTP client with one using the given timeout
func WithTimeout(d time.Duration) ClientOption {
	return func(client *Client) {
		client.HTTPClient = newHTTPClient(d)
	}
}

// WithLogger sets a custom logger
func WithLogger(l *slog.Logger) ClientOption {
	return func(client *Client) {
		client.Logger = l
	}
}

// WithMaxRetry sets the default attempt count for idempotent requests
func WithMaxRetry(n int) ClientOption {
	return func(client *Client) {
		client.MaxRetry = n
	}
}

// WithBreakerConfig replaces the circuit breaker settings
func WithBreakerConfig(cfg infra.BreakerConfig) ClientOption {
	return func(client *Client) {
		client.CircuitBreaker = newBreaker(client.Service, cfg)
	}
}

// NewClient creates a new base client for the named upstream service
func NewClient(service string, opts ...ClientOption) *Client {
	c := &Client{
		Service:        service,
		HTTPClient:     newHTTPClient(DefaultTimeout),
		Logger:         slog.Default(),
		CircuitBreaker: newBreaker(service, infra.DefaultBreakerConfig()),
		Semaphore:      make(chan struct{}, MaxConcurrentRequests),
		MaxRetry:       DefaultMaxRetry,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// newBreaker mirrors every state transition into the circuit gauge.
func newBreaker(service string, cfg infra.BreakerConfig) *infra.CircuitBreaker {
	next := cfg.OnStateChange
	cfg.OnStateChange = func(name string, from, to infra.CircuitState) {
		metrics.SetCircuitState(name, int(to))
		if next != nil {
			next(name, from, to)
		}
	}
	return infra.NewCircuitBreaker(service, cfg)
}

// CircuitBreakerStats returns the current circuit breaker state
func (c *Client) CircuitBreakerStats() infra.CircuitBreakerStats {
	return c.CircuitBreaker.Stats()
}

// AcquireSlot blocks until a request slot is available or context is canceled
func (c *Client) AcquireSlot(ctx context.Context) error {
	select {
	case c.Semaphore <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("context canceled while waiting for request slot: %w", ctx.Err())
	}
}

// ReleaseSlot releases a request slot
func (c *Client) ReleaseSlot() {
	<-c.Semaphore
}

// CheckCircuitBreaker returns nil if requests are allowed, or an error if the circuit is open
func (c *Client) CheckCircuitBreaker() error {
	if !c.CircuitBreaker.Allow() {
		stats := c.CircuitBreaker.Stats()
		return &infra.ErrCircuitOpen{
			Name:     c.Service,
			RetryAt:  stats.RetryAt,
			Failures: stats.ConsecutiveFails,
		}
	}
	return nil
}

// RequestConfig configures a single HTTP request
type RequestConfig struct {
	Method    string // defaults to GET
	URL       string
	Header    http.Header
	Body      []byte
	UserAgent string
	MaxRetry  int // defaults to the client's MaxRetry; non-GET requests always get one attempt
}

// Response is the raw result of a request. Non-2xx statuses are returned as a
// Response, not an error, so callers can read the API's message. A 5xx is only
// returned once retries are exhausted.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// OK reports whether the status is 2xx.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// DoRequest performs an HTTP request with circuit breaker, concurrency limiting and retries.
// Only GET requests are retried; a POST that reached the server is never repeated.
func (c *Client) DoRequest(ctx context.Context, cfg RequestConfig) (*Response, error) {
	method := cfg.Method
	if method == "" {
		method = http.MethodGet
	}

	ctx, span := tracing.StartSpan(ctx, c.Service+".request")
	defer span.End()
	tracing.AddUpstreamAttributes(span, c.Service, method, cfg.URL)

	if err := c.CheckCircuitBreaker(); err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}
	// Every exit that records no outcome hands the breaker's probe slot back.
	outcome := false
	defer func() {
		if !outcome {
			c.CircuitBreaker.Release()
		}
	}()

	if err := c.AcquireSlot(ctx); err != nil {
		return nil, err
	}
	defer c.ReleaseSlot()

	maxRetry := cfg.MaxRetry
	if maxRetry <= 0 {
		maxRetry = c.MaxRetry
	}
	if maxRetry <= 0 {
		maxRetry = DefaultMaxRetry
	}
	if method != http.MethodGet {
		maxRetry = 1
	}

	var lastErr error
	for attempt := 0; attempt < maxRetry; attempt++ {
		if attempt > 0 {
			metrics.UpstreamRetries.WithLabelValues(c.Service).Inc()
			// Exponential backoff
			backoff := time.Duration(attempt*attempt) * 100 * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, fmt.Errorf("context canceled during backoff: %w", ctx.Err())
			}
		}

		req, err := c.newRequest(ctx, method, cfg)
		if err != nil {
			return nil, err
		}

		start := time.Now()
		resp, err := c.HTTPClient.Do(req)
		if err != nil {
			metrics.RecordUpstreamCall(c.Service, time.Since(start).Seconds(), 0)
			if ctx.Err() != nil {
				return nil, fmt.Errorf("request canceled: %w", ctx.Err())
			}
			lastErr = fmt.Errorf("request failed: %w", err)
			c.Logger.Warn("API request failed",
				"service", c.Service,
				"attempt", attempt+1,
				"method", method,
				"url", cfg.URL,
				"error", err)
			continue
		}

		body, err := readAndClose(resp)
		metrics.RecordUpstreamCall(c.Service, time.Since(start).Seconds(), resp.StatusCode)
		if err != nil {
			lastErr = fmt.Errorf("failed to read response: %w", err)
			continue
		}

		// Handle rate limiting with Retry-After header
		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("rate limited (429)")
			if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" && attempt+1 < maxRetry {
				if seconds, parseErr := strconv.Atoi(retryAfter); parseErr == nil {
					select {
					case <-time.After(time.Duration(seconds) * time.Second):
					case <-ctx.Done():
						return nil, ctx.Err()
					}
				}
			}
			if attempt+1 < maxRetry {
				continue
			}
			// Out of attempts: hand the 429 to the caller so it can report the API message.
			outcome = true
			c.CircuitBreaker.RecordSuccess()
			return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: body}, nil
		}

		// Server errors (5xx) should be retried
		if resp.StatusCode >= 500 {
			lastErr = &StatusError{StatusCode: resp.StatusCode, Body: truncate(string(body), 200)}
			if attempt+1 < maxRetry {
				continue
			}
			// The last 5xx counts against the breaker but still reaches the
			// caller, which reports the API's own message.
			outcome = true
			c.CircuitBreaker.RecordFailure()
			tracing.RecordError(span, lastErr)
			return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: body}, nil
		}

		// The upstream answered; 4xx is the caller's problem, not an outage.
		outcome = true
		c.CircuitBreaker.RecordSuccess()
		return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: body}, nil
	}

	outcome = true
	c.CircuitBreaker.RecordFailure()
	tracing.RecordError(span, lastErr)
	return nil, lastErr
}

func (c *Client) newRequest(ctx context.Context, method string, cfg RequestConfig) (*http.Request, error) {
	var body io.Reader
	if cfg.Body != nil {
		body = bytes.NewReader(cfg.Body)
	}

	req, err := http.NewRequestWithContext(ctx, method, cfg.URL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	for k, vs := range cfg.Header {
		req.Header.Del(k)
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if cfg.Body != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if cfg.UserAgent != "" {
		req.Header.Set("User-Agent", cfg.UserAgent)
	} else {
		req.Header.Set("User-Agent", DefaultUserAgent)
	}
	return req, nil
}

// StatusError describes a 5xx answer. It is recorded on the request span and
// returned when a later attempt fails without any response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server error %d: %s", e.StatusCode, e.Body)
}

// RecordSuccess records a successful request with the circuit breaker
func (c *Client) RecordSuccess() {
	c.CircuitBreaker.RecordSuccess()
}

// RecordFailure records a failed request with the circuit breaker
func (c *Client) RecordFailure() {
	c.CircuitBreaker.RecordFailure()
}

// readAndClose reads at most MaxResponseSize bytes of the body and closes it
func readAndClose(resp *http.Response) ([]byte, error) {
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return nil, err
	}
	if len(body) > MaxResponseSize {
		return nil, fmt.Errorf("response exceeds %d bytes", MaxResponseSize)
	}
	return body, nil
}

// truncate shortens a string to maxLen characters, adding "..." if truncated
func truncate(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	count := 0
	for i := range s {
		if count == maxLen {
			return s[:i] + "..."
		}
		count++
	}
	return s
}

// newHTTPClient creates an HTTP client with tuned transport settings
func newHTTPClient(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   20,
		MaxConnsPerHost:       50,
		IdleConnTimeout:       120 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: timeout,
		ForceAttemptHTTP2:     true,
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
