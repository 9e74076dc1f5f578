package controllers

import (
	"net/http"

	"github.com/olgasafonova/benkyokai-mcp-server/internal/router"
	"github.com/olgasafonova/benkyokai-mcp-server/internal/views"
)

// Home serves GET /.
func (c *Controllers) Home(w http.ResponseWriter, r *http.Request) {
	c.invoked("home.Index")
	content, err := views.Home(c.routes)
	c.page(w, http.StatusOK, "Webサーバーデモ - ルーティングとMVC", content, err)
}

// NotFound serves every request that matches no route.
func (c *Controllers) NotFound(w http.ResponseWriter, r *http.Request) {
	c.logger.Debug("Route not found", "method", r.Method, "path", r.URL.Path)
	content, err := views.NotFound(router.RequestTarget(r), c.routes)
	c.page(w, http.StatusNotFound, "404 Not Found", content, err)
}
