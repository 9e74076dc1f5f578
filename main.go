// Benkyokai MCP Server - A Model Context Protocol server for study-session demos
// Provides an arithmetic tool, Japanese postal-code lookup and GitHub pull request tools
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/olgasafonova/benkyokai-mcp-server/internal/base"
	"github.com/olgasafonova/benkyokai-mcp-server/internal/config"
	"github.com/olgasafonova/benkyokai-mcp-server/internal/github"
	"github.com/olgasafonova/benkyokai-mcp-server/internal/zipcode"
	"github.com/olgasafonova/benkyokai-mcp-server/metrics"
	"github.com/olgasafonova/benkyokai-mcp-server/tools"
	"github.com/olgasafonova/benkyokai-mcp-server/tracing"
)

// recoverPanic logs a recovered panic instead of crashing
func recoverPanic(logger *slog.Logger, operation string) {
	if r := recover(); r != nil {
		metrics.PanicsRecovered.WithLabelValues("server").Inc()
		logger.Error("Panic recovered",
			"operation", operation,
			"panic", r,
			"stack", string(debug.Stack()))
	}
}

const (
	ServerName    = "benkyokai-mcp-server"
	ServerVersion = "1.0.0"
)

const instructions = `Benkyokai MCP Server provides demo tools for a study session.

Available tools:
- add: Add two numbers (the result includes a fixed offset of 10)
- address: Look up a Japanese address by 7-digit postal code
- github_get_pull_requests: List pull requests in a repository
- github_add_comment: Comment on a pull request
- github_get_pull_diff: Get a pull request diff or patch
- github_get_pull_files: List files changed in a pull request
- github_get_pull_reviews: List reviews on a pull request

GitHub tools query repositories owned by the configured owner.

Configure via environment variables or a TOML file (-config / BENKYOKAI_CONFIG):
- GITHUB_TOKEN: Personal access token (required for comments and private repos)
- GITHUB_OWNER: User or organization that owns the repositories
- MCP_HTTP_ADDR: Serve streamable HTTP on this address instead of stdio`

func main() {
	configPath := flag.String("config", "", "path to a TOML config file")
	httpAddr := flag.String("http", "", "serve MCP over streamable HTTP on this address (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *httpAddr != "" {
		cfg.Server.HTTPAddr = *httpAddr
	}

	// Logs go to stderr; stdout carries the MCP protocol
	logger := cfg.NewLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Setup(ctx, tracing.DefaultConfig(ServerName, ServerVersion))
	if err != nil {
		logger.Warn("Tracing disabled", "error", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownTracing(shutdownCtx); err != nil {
				logger.Warn("Tracing shutdown failed", "error", err)
			}
		}()
	}

	server, err := newServer(cfg, logger)
	if err != nil {
		log.Fatalf("Failed to register tools: %v", err)
	}

	if cfg.Server.MetricsAddr != "" && cfg.Server.HTTPAddr == "" {
		go serveMetrics(cfg.Server.MetricsAddr, logger)
	}

	logger.Info("Starting Benkyokai MCP Server",
		"name", ServerName,
		"version", ServerVersion,
		"github_owner", cfg.GitHub.Owner,
		"github_authenticated", cfg.HasGitHubToken(),
		"transport", transportName(cfg),
	)
	if cfg.GitHub.Owner == "" {
		logger.Warn("GITHUB_OWNER is not set; GitHub tools will fail")
	}

	if cfg.Server.HTTPAddr != "" {
		err = runHTTP(ctx, cfg, server, logger)
	} else {
		err = server.Run(ctx, &mcp.StdioTransport{})
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("Server error: %v", err)
	}
}

// newServer builds the MCP server with every tool registered.
func newServer(cfg *config.Config, logger *slog.Logger) (*mcp.Server, error) {
	clientOpts := []base.ClientOption{
		base.WithLogger(logger),
		base.WithTimeout(time.Duration(cfg.HTTP.Timeout)),
		base.WithMaxRetry(cfg.HTTP.MaxRetries),
	}
	zipClient := zipcode.NewClient(cfg.Zipcloud.URL, clientOpts...)
	githubClient := github.NewClient(github.Config{
		APIURL: cfg.GitHub.APIURL,
		Owner:  cfg.GitHub.Owner,
		Token:  cfg.GitHub.Token,
	}, clientOpts...)

	registry := tools.NewRegistry(
		tools.WithLogger(logger),
		tools.WithStrictUpstream(cfg.Tools.StrictUpstreamErrors),
	)
	if err := tools.NewHandlerRegistry(zipClient, githubClient, logger).RegisterAll(registry); err != nil {
		return nil, err
	}

	server := mcp.NewServer(&mcp.Implementation{
		Name:    ServerName,
		Version: ServerVersion,
	}, &mcp.ServerOptions{
		Logger:       logger,
		Instructions: instructions,
	})
	registry.AttachMCP(server)
	return server, nil
}

// runHTTP serves MCP over streamable HTTP with health and metrics endpoints.
func runHTTP(ctx context.Context, cfg *config.Config, server *mcp.Server, logger *slog.Logger) error {
	mcpHandler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return server
	}, nil)

	mux := http.NewServeMux()
	mux.Handle("/mcp", NewSecurityMiddleware(mcpHandler, logger, SecurityConfig{
		RateLimit:   cfg.Server.RateLimit,
		MaxBodySize: cfg.Server.MaxBodySize,
	}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprintf(w, `{"status":"ok","name":%q,"version":%q}`, ServerName, ServerVersion)
	})
	mux.Handle("/metrics", metrics.Handler())

	httpServer := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		defer recoverPanic(logger, "http server")
		logger.Info("Listening", "addr", cfg.Server.HTTPAddr, "endpoint", "/mcp")
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.Info("Shutting down HTTP server")
		return httpServer.Shutdown(shutdownCtx)
	}
}

func serveMetrics(addr string, logger *slog.Logger) {
	defer recoverPanic(logger, "metrics server")
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	logger.Info("Serving metrics", "addr", addr)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Metrics server stopped", "error", err)
	}
}

func transportName(cfg *config.Config) string {
	if cfg.Server.HTTPAddr != "" {
		return "streamable-http"
	}
	return "stdio"
}
