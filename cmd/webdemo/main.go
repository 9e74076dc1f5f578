// Command webdemo serves the study-session web server demo: a route table
// dispatching to MVC controllers, with SSR and CSR example pages.
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
	"strings"
	"syscall"
	"time"

	"github.com/olgasafonova/benkyokai-mcp-server/internal/config"
	"github.com/olgasafonova/benkyokai-mcp-server/internal/controllers"
	"github.com/olgasafonova/benkyokai-mcp-server/internal/models"
	"github.com/olgasafonova/benkyokai-mcp-server/internal/router"
	"github.com/olgasafonova/benkyokai-mcp-server/metrics"
	"github.com/olgasafonova/benkyokai-mcp-server/tracing"
)

const (
	ServiceName    = "benkyokai-webdemo"
	ServiceVersion = "1.0.0"
)

func main() {
	configPath := flag.String("config", "", "path to a TOML config file")
	addr := flag.String("addr", "", "listen address (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *addr != "" {
		cfg.Web.Addr = *addr
	}
	logger := cfg.NewLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Setup(ctx, tracing.DefaultConfig(ServiceName, ServiceVersion))
	if err != nil {
		logger.Warn("Tracing disabled", "error", err)
	} else {
		defer func() { _ = shutdownTracing(context.Background()) }()
	}

	handler, routes, err := newHandler(cfg, logger)
	if err != nil {
		log.Fatalf("Failed to build routes: %v", err)
	}

	if cfg.Web.MetricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", metrics.Handler())
			srv := &http.Server{Addr: cfg.Web.MetricsAddr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Metrics server stopped", "error", err)
			}
		}()
	}

	server := &http.Server{
		Addr:              cfg.Web.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	fmt.Fprint(os.Stderr, banner(cfg.Web.Addr, routes))

	errCh := make(chan error, 1)
	go func() { errCh <- server.ListenAndServe() }()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		logger.Info("Shutting down")
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("Shutdown failed", "error", err)
		}
	}
}

// newHandler wires models, controllers and the router behind the logging middleware.
func newHandler(cfg *config.Config, logger *slog.Logger) (http.Handler, []router.Route, error) {
	loc, err := time.LoadLocation(cfg.Web.TimeZone)
	if err != nil {
		return nil, nil, fmt.Errorf("loading time zone: %w", err)
	}

	c := controllers.New(
		models.NewUserStore(models.DefaultUsers(), logger),
		models.NewProductStore(models.DefaultProducts(), logger),
		logger,
		controllers.WithSSRDelay(time.Duration(cfg.Web.SSRDelay)),
		controllers.WithLocation(loc),
	)

	r := router.New()
	if err := c.Register(r); err != nil {
		return nil, nil, err
	}
	return router.Logging(logger, r, r), r.Routes(), nil
}

// banner is printed once at start-up.
func banner(addr string, routes []router.Route) string {
	var b strings.Builder
	rule := strings.Repeat("=", 80)
	fmt.Fprintln(&b, rule)
	fmt.Fprintln(&b, "🌐 Webサーバーデモ（MVC実装版）が起動しました！")
	fmt.Fprintln(&b, rule)
	fmt.Fprintf(&b, "\n📍 サーバーURL: http://%s\n", addr)
	fmt.Fprintln(&b, "\n🔀 利用可能なルート:")
	for _, route := range routes {
		fmt.Fprintf(&b, "  - %-4s %-10s → %s\n", route.Method, route.Path, route.Name)
	}
	fmt.Fprintln(&b, "\n📋 リクエストログ:")
	fmt.Fprintln(&b, strings.Repeat("-", 80))
	return b.String()
}
