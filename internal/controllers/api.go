package controllers

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/olgasafonova/benkyokai-mcp-server/internal/models"
)

// timestampLayout is ISO 8601 in UTC with milliseconds.
const timestampLayout = "2006-01-02T15:04:05.000Z"

// UsersResponse is the /api/users payload
type UsersResponse struct {
	Success   bool          `json:"success"`
	Timestamp string        `json:"timestamp"`
	Count     int           `json:"count"`
	Users     []models.User `json:"users"`
}

// APIUsers serves GET /api/users as indented JSON.
func (c *Controllers) APIUsers(w http.ResponseWriter, r *http.Request) {
	c.invoked("api.Users")

	users := c.users.List()
	resp := UsersResponse{
		Success:   true,
		Timestamp: c.now().UTC().Format(timestampLayout),
		Count:     len(users),
		Users:     users,
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(resp); err != nil {
		c.logger.Error("Encoding users failed", "error", err)
		http.Error(w, `{"success":false}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", contentTypeJSON)
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(bytes.TrimSuffix(buf.Bytes(), []byte("\n")))
}
