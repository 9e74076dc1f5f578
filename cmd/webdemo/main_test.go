package main

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/olgasafonova/benkyokai-mcp-server/internal/config"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Web.SSRDelay = config.Duration(0)
	cfg.Web.TimeZone = "UTC"
	return cfg
}

func TestNewHandler(t *testing.T) {
	handler, routes, err := newHandler(testConfig(), slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("newHandler() error = %v", err)
	}
	if len(routes) != 6 {
		t.Fatalf("got %d routes, want 6", len(routes))
	}

	server := httptest.NewServer(handler)
	defer server.Close()
	client := &http.Client{Timeout: 5 * time.Second}

	tests := []struct {
		path       string
		wantStatus int
		wantType   string
	}{
		{"/", 200, "text/html; charset=utf-8"},
		{"/users", 200, "text/html; charset=utf-8"},
		{"/products?x=1", 200, "text/html; charset=utf-8"},
		{"/ssr", 200, "text/html; charset=utf-8"},
		{"/csr", 200, "text/html; charset=utf-8"},
		{"/api/users", 200, "application/json; charset=utf-8"},
		{"/missing", 404, "text/html; charset=utf-8"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := client.Get(server.URL + tt.path)
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			if ct := resp.Header.Get("Content-Type"); ct != tt.wantType {
				t.Errorf("Content-Type = %q, want %q", ct, tt.wantType)
			}
			if resp.Header.Get("X-Request-ID") == "" {
				t.Error("missing X-Request-ID")
			}
		})
	}
}

func TestNewHandler_BadTimeZone(t *testing.T) {
	cfg := testConfig()
	cfg.Web.TimeZone = "Nowhere/Special"
	if _, _, err := newHandler(cfg, slog.New(slog.DiscardHandler)); err == nil {
		t.Error("expected error for unknown time zone")
	}
}

func TestBanner(t *testing.T) {
	_, routes, err := newHandler(testConfig(), slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatal(err)
	}
	out := banner("localhost:3000", routes)
	for _, want := range []string{"http://localhost:3000", "/api/users", "api.Users", "home.Index"} {
		if !strings.Contains(out, want) {
			t.Errorf("banner missing %q", want)
		}
	}
}
