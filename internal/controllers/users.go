package controllers

import (
	"net/http"

	"github.com/olgasafonova/benkyokai-mcp-server/internal/views"
)

// Users serves GET /users.
func (c *Controllers) Users(w http.ResponseWriter, r *http.Request) {
	c.invoked("users.List")
	content, err := views.Users(c.users.List())
	c.page(w, http.StatusOK, "ユーザー一覧 - MVC実装例", content, err)
}
