package controllers

import (
	"net/http"

	"github.com/olgasafonova/benkyokai-mcp-server/internal/views"
)

// Products serves GET /products.
func (c *Controllers) Products(w http.ResponseWriter, r *http.Request) {
	c.invoked("products.List")
	content, err := views.Products(c.products.List())
	c.page(w, http.StatusOK, "商品一覧 - MVC実装例", content, err)
}
