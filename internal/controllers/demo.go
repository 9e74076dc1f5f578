package controllers

import (
	"net/http"
	"time"

	"github.com/olgasafonova/benkyokai-mcp-server/internal/views"
)

// SSR serves GET /ssr. The page is rendered on the server after the
// configured delay, stamped with the server clock.
func (c *Controllers) SSR(w http.ResponseWriter, r *http.Request) {
	c.invoked("demo.SSR")

	if c.ssrDelay > 0 {
		c.logger.Debug("Rendering on the server", "delay", c.ssrDelay)
		select {
		case <-time.After(c.ssrDelay):
		case <-r.Context().Done():
			c.logger.Info("Client went away during SSR delay", "error", r.Context().Err())
			return
		}
	}

	users := c.users.List()
	serverTime := views.FormatServerTime(c.now().In(c.location))
	content, err := views.SSR(users, serverTime)
	c.page(w, http.StatusOK, "SSRデモ - サーバーサイドレンダリング", content, err)
}

// CSR serves GET /csr. The page carries no data; the browser loads it
// from /api/users.
func (c *Controllers) CSR(w http.ResponseWriter, r *http.Request) {
	c.invoked("demo.CSR")
	content, err := views.CSR()
	c.page(w, http.StatusOK, "CSRデモ - クライアントサイドレンダリング", content, err)
}
