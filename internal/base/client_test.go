package base

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/olgasafonova/benkyokai-mcp-server/internal/infra"
)

func TestNewClient(t *testing.T) {
	client := NewClient("github")
	if client == nil {
		t.Fatal("NewClient returned nil")
	}

	if client.Service != "github" {
		t.Errorf("Service = %q, want github", client.Service)
	}
	if client.HTTPClient == nil {
		t.Error("HTTPClient is nil")
	}
	if client.Logger == nil {
		t.Error("Logger is nil")
	}
	if client.CircuitBreaker == nil {
		t.Error("CircuitBreaker is nil")
	}
	if client.Semaphore == nil {
		t.Error("Semaphore is nil")
	}
	if client.CircuitBreaker.Name() != "github" {
		t.Errorf("breaker name = %q, want github", client.CircuitBreaker.Name())
	}
}

func TestNewClientWithOptions(t *testing.T) {
	customHTTP := &http.Client{Timeout: 60 * time.Second}
	customLogger := slog.Default()

	client := NewClient("zipcloud",
		WithHTTPClient(customHTTP),
		WithLogger(customLogger),
		WithMaxRetry(7),
	)

	if client.HTTPClient != customHTTP {
		t.Error("custom HTTP client was not set")
	}
	if client.Logger != customLogger {
		t.Error("custom logger was not set")
	}
	if client.MaxRetry != 7 {
		t.Errorf("MaxRetry = %d, want 7", client.MaxRetry)
	}
}

func TestClient_DefaultValues(t *testing.T) {
	client := NewClient("github")

	if client.HTTPClient.Timeout != DefaultTimeout {
		t.Errorf("timeout = %v, want %v", client.HTTPClient.Timeout, DefaultTimeout)
	}
	if cap(client.Semaphore) != MaxConcurrentRequests {
		t.Errorf("semaphore capacity = %d, want %d", cap(client.Semaphore), MaxConcurrentRequests)
	}
	if client.MaxRetry != DefaultMaxRetry {
		t.Errorf("MaxRetry = %d, want %d", client.MaxRetry, DefaultMaxRetry)
	}
}

func TestWithTimeout(t *testing.T) {
	client := NewClient("github", WithTimeout(5*time.Second))
	if client.HTTPClient.Timeout != 5*time.Second {
		t.Errorf("timeout = %v, want 5s", client.HTTPClient.Timeout)
	}
}

func TestClient_AcquireReleaseSlot(t *testing.T) {
	client := NewClient("github")

	if err := client.AcquireSlot(context.Background()); err != nil {
		t.Fatalf("AcquireSlot failed: %v", err)
	}
	client.ReleaseSlot()
}

func TestClient_AcquireSlot_ContextCanceled(t *testing.T) {
	client := &Client{
		Semaphore: make(chan struct{}, 1),
	}

	ctx, cancel := context.WithCancel(context.Background())
	client.Semaphore <- struct{}{}
	cancel()

	if err := client.AcquireSlot(ctx); err == nil {
		t.Error("expected error when context is canceled")
	}
}

func TestClient_CircuitBreakerStats(t *testing.T) {
	client := NewClient("github")

	stats := client.CircuitBreakerStats()
	if stats.State != "closed" {
		t.Errorf("initial circuit breaker state = %q, want 'closed'", stats.State)
	}
}

func TestClient_CheckCircuitBreaker_Open(t *testing.T) {
	client := NewClient("github")

	if err := client.CheckCircuitBreaker(); err != nil {
		t.Errorf("unexpected error from CheckCircuitBreaker: %v", err)
	}

	for range 10 {
		client.RecordFailure()
	}

	err := client.CheckCircuitBreaker()
	var open *infra.ErrCircuitOpen
	if !errors.As(err, &open) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
	if open.Name != "github" {
		t.Errorf("ErrCircuitOpen.Name = %q, want github", open.Name)
	}
}

func TestClient_WithBreakerConfig_ChainsCallback(t *testing.T) {
	var transitions atomic.Int32
	client := NewClient("zipcloud", WithBreakerConfig(infra.BreakerConfig{
		FailureThreshold: 1,
		OnStateChange: func(name string, from, to infra.CircuitState) {
			transitions.Add(1)
		},
	}))

	client.RecordFailure()
	if client.CircuitBreaker.State() != infra.CircuitOpen {
		t.Fatalf("state = %v, want open", client.CircuitBreaker.State())
	}
	if transitions.Load() != 1 {
		t.Errorf("callback ran %d times, want 1", transitions.Load())
	}
}

func TestClient_RecordSuccess(t *testing.T) {
	client := NewClient("github")

	client.RecordFailure()
	client.RecordFailure()
	client.RecordSuccess()

	if got := client.CircuitBreakerStats().ConsecutiveFails; got != 0 {
		t.Errorf("consecutive fails = %d, want 0 after success", got)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		input    string
		maxLen   int
		expected string
	}{
		{"short", 10, "short"},
		{"exactly ten", 11, "exactly ten"},
		{"longer than max length", 10, "longer tha..."},
		{"", 5, ""},
		{"abc", 0, "..."},
		{"abcd", 3, "abc..."},
		{"サーバーエラー", 3, "サーバ..."},
		{"東京都", 3, "東京都"},
	}

	for _, tt := range tests {
		if result := truncate(tt.input, tt.maxLen); result != tt.expected {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.input, tt.maxLen, result, tt.expected)
		}
	}
}

func TestReadAndClose(t *testing.T) {
	t.Run("normal response", func(t *testing.T) {
		resp := &http.Response{Body: io.NopCloser(strings.NewReader("test response body"))}

		data, err := readAndClose(resp)
		if err != nil {
			t.Fatalf("readAndClose failed: %v", err)
		}
		if string(data) != "test response body" {
			t.Errorf("got %q, want 'test response body'", string(data))
		}
	})

	t.Run("too large", func(t *testing.T) {
		resp := &http.Response{Body: io.NopCloser(bytes.NewReader(make([]byte, MaxResponseSize+100)))}

		if _, err := readAndClose(resp); err == nil {
			t.Error("expected error for oversized response")
		}
	})

	t.Run("read error", func(t *testing.T) {
		resp := &http.Response{Body: io.NopCloser(&errorReader{})}

		if _, err := readAndClose(resp); err == nil {
			t.Error("expected error when read fails")
		}
	})
}

func TestDoRequest_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("method = %s, want GET", r.Method)
		}
		if r.Header.Get("Accept") != "application/json" {
			t.Error("Accept header not set")
		}
		if r.Header.Get("User-Agent") != DefaultUserAgent {
			t.Errorf("User-Agent = %q", r.Header.Get("User-Agent"))
		}
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer server.Close()

	resp, err := NewClient("test").DoRequest(context.Background(), RequestConfig{
		URL:      server.URL,
		MaxRetry: 1,
	})
	if err != nil {
		t.Fatalf("DoRequest failed: %v", err)
	}
	if !resp.OK() {
		t.Errorf("status code = %d, want 200", resp.StatusCode)
	}
	if string(resp.Body) != `{"status":"ok"}` {
		t.Errorf("body = %q", string(resp.Body))
	}
}

func TestDoRequest_HeadersAndBody(t *testing.T) {
	var gotAccept, gotAuth, gotContentType, gotUA, gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAccept = r.Header.Get("Accept")
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		gotUA = r.Header.Get("User-Agent")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	resp, err := NewClient("test").DoRequest(context.Background(), RequestConfig{
		Method:    http.MethodPost,
		URL:       server.URL,
		Header:    http.Header{"Accept": {"application/vnd.github.v3+json"}, "Authorization": {"token abc"}},
		Body:      []byte(`{"body":"hi"}`),
		UserAgent: "custom-agent/1.0",
	})
	if err != nil {
		t.Fatalf("DoRequest failed: %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Errorf("status = %d, want 201", resp.StatusCode)
	}

	checks := map[string][2]string{
		"Accept":        {gotAccept, "application/vnd.github.v3+json"},
		"Authorization": {gotAuth, "token abc"},
		"Content-Type":  {gotContentType, "application/json"},
		"User-Agent":    {gotUA, "custom-agent/1.0"},
		"body":          {gotBody, `{"body":"hi"}`},
	}
	for name, c := range checks {
		if c[0] != c[1] {
			t.Errorf("%s = %q, want %q", name, c[0], c[1])
		}
	}
}

func TestDoRequest_CircuitOpen(t *testing.T) {
	client := NewClient("test")
	for range 10 {
		client.RecordFailure()
	}

	_, err := client.DoRequest(context.Background(), RequestConfig{URL: "http://example.com"})
	if err == nil {
		t.Error("expected error when circuit is open")
	}
}

func TestDoRequest_ServerError_Retries(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte("server error"))
			return
		}
		_, _ = w.Write([]byte("success"))
	}))
	defer server.Close()

	resp, err := NewClient("test").DoRequest(context.Background(), RequestConfig{
		URL:      server.URL,
		MaxRetry: 5,
	})
	if err != nil {
		t.Fatalf("DoRequest failed: %v", err)
	}
	if string(resp.Body) != "success" {
		t.Errorf("body = %q, want 'success'", string(resp.Body))
	}
	if attempts.Load() != 3 {
		t.Errorf("attempts = %d, want 3", attempts.Load())
	}
}

func TestDoRequest_PostIsNeverRetried(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	resp, err := NewClient("test").DoRequest(context.Background(), RequestConfig{
		Method:   http.MethodPost,
		URL:      server.URL,
		Body:     []byte(`{}`),
		MaxRetry: 5,
	})
	if err != nil {
		t.Fatalf("DoRequest failed: %v", err)
	}
	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("StatusCode = %d, want 502", resp.StatusCode)
	}
	if attempts.Load() != 1 {
		t.Errorf("attempts = %d, want 1", attempts.Load())
	}
}

func TestDoRequest_RateLimited(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte("success"))
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := NewClient("test").DoRequest(ctx, RequestConfig{
		URL:      server.URL,
		MaxRetry: 3,
	})
	if err != nil {
		t.Fatalf("DoRequest failed: %v", err)
	}
	if string(resp.Body) != "success" {
		t.Errorf("body = %q, want 'success'", string(resp.Body))
	}
}

func TestDoRequest_RateLimited_LastAttemptReturnsResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"message":"API rate limit exceeded"}`))
	}))
	defer server.Close()

	resp, err := NewClient("test").DoRequest(context.Background(), RequestConfig{
		URL:      server.URL,
		MaxRetry: 1,
	})
	if err != nil {
		t.Fatalf("DoRequest failed: %v", err)
	}
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", resp.StatusCode)
	}
	if !strings.Contains(string(resp.Body), "rate limit") {
		t.Errorf("body = %q", resp.Body)
	}
}

func TestDoRequest_RateLimited_ContextCanceled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "60")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := NewClient("test").DoRequest(ctx, RequestConfig{
		URL:      server.URL,
		MaxRetry: 2,
	})
	if err == nil {
		t.Error("expected error when context is canceled during Retry-After wait")
	}
}

func TestDoRequest_ContextCanceled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewClient("test").DoRequest(ctx, RequestConfig{
		URL:      server.URL,
		MaxRetry: 1,
	})
	if err == nil {
		t.Error("expected error when context is canceled")
	}
}

func TestDoRequest_AllRetriesFail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("always fails"))
	}))
	defer server.Close()

	client := NewClient("test")
	resp, err := client.DoRequest(context.Background(), RequestConfig{
		URL:      server.URL,
		MaxRetry: 2,
	})
	if err != nil {
		t.Fatalf("the last 5xx should be returned as a response, got %v", err)
	}
	if resp.StatusCode != http.StatusInternalServerError || resp.OK() {
		t.Errorf("status = %d, want 500", resp.StatusCode)
	}
	if string(resp.Body) != "always fails" {
		t.Errorf("body = %q, want the API's body", resp.Body)
	}
	if got := client.CircuitBreakerStats().ConsecutiveFails; got != 1 {
		t.Errorf("ConsecutiveFails = %d, want 1", got)
	}
}

func TestDoRequest_NotFoundIsNotAnError(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"Not Found"}`))
	}))
	defer server.Close()

	client := NewClient("test")
	resp, err := client.DoRequest(context.Background(), RequestConfig{URL: server.URL})
	if err != nil {
		t.Fatalf("DoRequest failed: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound || resp.OK() {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
	if attempts.Load() != 1 {
		t.Errorf("404 should not be retried, attempts = %d", attempts.Load())
	}
	if got := client.CircuitBreakerStats().ConsecutiveFails; got != 0 {
		t.Errorf("a 4xx should not count against the breaker, ConsecutiveFails = %d", got)
	}
}

func TestDoRequest_DefaultMaxRetry(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, _ = NewClient("test").DoRequest(context.Background(), RequestConfig{URL: server.URL})

	if attempts.Load() != DefaultMaxRetry {
		t.Errorf("attempts = %d, want %d (default)", attempts.Load(), DefaultMaxRetry)
	}
}

func TestDoRequest_BackoffContextCanceled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := NewClient("test").DoRequest(ctx, RequestConfig{
		URL:      server.URL,
		MaxRetry: 10,
	})
	if err == nil {
		t.Error("expected error when context is canceled during backoff")
	}
}

func TestDoRequest_CanceledProbeDoesNotWedgeBreaker(t *testing.T) {
	var healthy atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !healthy.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	client := NewClient("test", WithBreakerConfig(infra.BreakerConfig{
		FailureThreshold: 1,
		ResetTimeout:     20 * time.Millisecond,
		HalfOpenMax:      1,
	}))
	cfg := RequestConfig{URL: server.URL, MaxRetry: 1}

	if _, err := client.DoRequest(context.Background(), cfg); err != nil {
		t.Fatalf("DoRequest failed: %v", err)
	}
	if client.CircuitBreaker.State() != infra.CircuitOpen {
		t.Fatalf("state = %v, want open", client.CircuitBreaker.State())
	}
	time.Sleep(30 * time.Millisecond)

	canceled, cancel := context.WithCancel(context.Background())
	cancel()
	for i := 0; i < 3; i++ {
		if _, err := client.DoRequest(canceled, cfg); err == nil {
			t.Fatal("expected error for canceled context")
		}
	}

	healthy.Store(true)
	resp, err := client.DoRequest(context.Background(), cfg)
	if err != nil {
		t.Fatalf("probe after canceled requests failed: %v", err)
	}
	if !resp.OK() {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	if client.CircuitBreaker.State() != infra.CircuitClosed {
		t.Errorf("state = %v, want closed", client.CircuitBreaker.State())
	}
}

func TestStatusError(t *testing.T) {
	err := &StatusError{StatusCode: 503, Body: "unavailable"}
	if got, want := err.Error(), "server error 503: unavailable"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

// errorReader is a reader that always returns an error
type errorReader struct{}

func (e *errorReader) Read(p []byte) (int, error) {
	return 0, io.ErrUnexpectedEOF
}
