// Package controllers handles the web demo's routes: each handler reads from
// a model store, renders a view and writes the response.
package controllers

import (
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/olgasafonova/benkyokai-mcp-server/internal/models"
	"github.com/olgasafonova/benkyokai-mcp-server/internal/router"
	"github.com/olgasafonova/benkyokai-mcp-server/internal/views"
)

const (
	contentTypeHTML = "text/html; charset=utf-8"
	contentTypeJSON = "application/json; charset=utf-8"

	// DefaultSSRDelay is the artificial rendering delay of the SSR demo.
	DefaultSSRDelay = time.Second
)

// Controllers holds the dependencies shared by all route handlers.
type Controllers struct {
	users    models.UserStore
	products models.ProductStore
	logger   *slog.Logger
	now      func() time.Time
	ssrDelay time.Duration
	location *time.Location
	routes   []views.RouteLink
}

// Option configures Controllers
type Option func(*Controllers)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Controllers) { c.now = now }
}

// WithSSRDelay sets the SSR demo delay. Zero disables it.
func WithSSRDelay(d time.Duration) Option {
	return func(c *Controllers) { c.ssrDelay = d }
}

// WithLocation sets the time zone of the SSR server clock.
func WithLocation(loc *time.Location) Option {
	return func(c *Controllers) { c.location = loc }
}

// New creates the controllers.
func New(users models.UserStore, products models.ProductStore, logger *slog.Logger, opts ...Option) *Controllers {
	c := &Controllers{
		users:    users,
		products: products,
		logger:   logger,
		now:      time.Now,
		ssrDelay: DefaultSSRDelay,
		location: time.Local,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}
	return c
}

// Register adds the demo routes to r and installs the 404 page.
func (c *Controllers) Register(r *router.Router) error {
	routes := []router.Route{
		{Method: http.MethodGet, Path: "/", Name: "home.Index", Description: "トップページ", Handler: http.HandlerFunc(c.Home)},
		{Method: http.MethodGet, Path: "/users", Name: "users.List", Description: "ユーザー一覧", Handler: http.HandlerFunc(c.Users)},
		{Method: http.MethodGet, Path: "/products", Name: "products.List", Description: "商品一覧", Handler: http.HandlerFunc(c.Products)},
		{Method: http.MethodGet, Path: "/ssr", Name: "demo.SSR", Description: "SSRデモ", Handler: http.HandlerFunc(c.SSR)},
		{Method: http.MethodGet, Path: "/csr", Name: "demo.CSR", Description: "CSRデモ", Handler: http.HandlerFunc(c.CSR)},
		{Method: http.MethodGet, Path: "/api/users", Name: "api.Users", Description: "ユーザーAPI", Handler: http.HandlerFunc(c.APIUsers)},
	}
	for _, route := range routes {
		if err := r.Handle(route); err != nil {
			return err
		}
	}

	c.routes = c.routes[:0]
	for _, route := range r.Routes() {
		c.routes = append(c.routes, views.RouteLink{
			Method:      route.Method,
			Path:        route.Path,
			Controller:  route.Name,
			Description: route.Description,
		})
	}
	r.NotFound(http.HandlerFunc(c.NotFound))
	return nil
}

// page renders content inside the layout and writes it with status.
func (c *Controllers) page(w http.ResponseWriter, status int, title string, content template.HTML, err error) {
	if err != nil {
		c.serverError(w, err)
		return
	}
	html, err := views.Layout(title, content)
	if err != nil {
		c.serverError(w, err)
		return
	}
	w.Header().Set("Content-Type", contentTypeHTML)
	w.WriteHeader(status)
	_, _ = io.WriteString(w, html)
}

func (c *Controllers) serverError(w http.ResponseWriter, err error) {
	c.logger.Error("Rendering failed", "error", err)
	w.Header().Set("Content-Type", contentTypeHTML)
	w.WriteHeader(http.StatusInternalServerError)
	_, _ = io.WriteString(w, "<h1>500 Internal Server Error</h1>")
}

func (c *Controllers) invoked(name string) {
	c.logger.Debug("Controller invoked", "controller", name)
}
