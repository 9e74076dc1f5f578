// Package router is the web demo's route table: an exact match on method and
// path, with every miss going to a single fallback handler.
package router

import (
	"net/http"
	"strings"
	"sync"

	apperrors "github.com/olgasafonova/benkyokai-mcp-server/internal/errors"
)

// Route binds a method and path to a handler
type Route struct {
	Method      string
	Path        string
	Name        string // controller name shown in logs and the start-up banner
	Description string
	Handler     http.Handler
}

// Key returns the route table key, e.g. "GET /users".
func (r Route) Key() string {
	return r.Method + " " + r.Path
}

// Router dispatches requests by exact method and path.
type Router struct {
	mu       sync.RWMutex
	routes   map[string]Route
	order    []string
	notFound http.Handler
}

// New creates an empty router. Misses are answered with http.NotFound until
// NotFound installs a page.
func New() *Router {
	return &Router{
		routes:   make(map[string]Route),
		notFound: http.HandlerFunc(http.NotFound),
	}
}

// Handle registers a route. Registering the same method and path twice fails
// with a DuplicateNameError.
func (r *Router) Handle(route Route) error {
	if route.Method == "" || !strings.HasPrefix(route.Path, "/") {
		return apperrors.NewValidationError("route", route.Key(), "method required and path must start with /")
	}
	if route.Handler == nil {
		return apperrors.NewValidationError("handler", route.Key(), "required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := route.Key()
	if _, exists := r.routes[key]; exists {
		return apperrors.NewDuplicateNameError("route", key)
	}
	r.routes[key] = route
	r.order = append(r.order, key)
	return nil
}

// HandleFunc registers fn under method and path.
func (r *Router) HandleFunc(method, path, description string, fn http.HandlerFunc) error {
	return r.Handle(Route{Method: method, Path: path, Description: description, Handler: fn})
}

// NotFound sets the fallback handler for requests that match no route.
func (r *Router) NotFound(h http.Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notFound = h
}

// Lookup finds the route for a method and request target. Everything from the
// first '?' on is ignored.
func (r *Router) Lookup(method, target string) (Route, error) {
	path := StripQuery(target)

	r.mu.RLock()
	defer r.mu.RUnlock()

	route, ok := r.routes[method+" "+path]
	if !ok {
		return Route{}, &apperrors.NotFoundError{Method: method, Path: path}
	}
	return route, nil
}

// Routes returns the registered routes in registration order.
func (r *Router) Routes() []Route {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Route, 0, len(r.order))
	for _, key := range r.order {
		out = append(out, r.routes[key])
	}
	return out
}

// ServeHTTP dispatches to the matching route or the fallback handler.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	route, err := r.Lookup(req.Method, RequestTarget(req))
	if err != nil {
		r.mu.RLock()
		fallback := r.notFound
		r.mu.RUnlock()
		fallback.ServeHTTP(w, req)
		return
	}
	route.Handler.ServeHTTP(w, req)
}

// StripQuery drops the query string from a request target.
func StripQuery(target string) string {
	if i := strings.IndexByte(target, '?'); i >= 0 {
		return target[:i]
	}
	return target
}

// RequestTarget returns the path as the client sent it, undecoded and
// without the query string.
func RequestTarget(req *http.Request) string {
	if strings.HasPrefix(req.RequestURI, "/") {
		return StripQuery(req.RequestURI)
	}
	return req.URL.EscapedPath()
}
