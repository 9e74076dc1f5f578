// Package zipcode looks up Japanese addresses through the zipcloud postal-code API.
package zipcode

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/olgasafonova/benkyokai-mcp-server/internal/base"
	apperrors "github.com/olgasafonova/benkyokai-mcp-server/internal/errors"
)

const (
	// DefaultURL is the zipcloud search endpoint
	DefaultURL = "https://zipcloud.ibsnet.co.jp/api/search"

	// ServiceName labels metrics, logs and circuit breaker state
	ServiceName = "zipcloud"
)

// Client provides access to the zipcloud postal-code search API
type Client struct {
	*base.Client
	endpoint string
}

// ClientOption configures the Client (re-export base.ClientOption)
type ClientOption = base.ClientOption

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(c *http.Client) ClientOption {
	return base.WithHTTPClient(c)
}

// WithLogger sets a custom logger
func WithLogger(l *slog.Logger) ClientOption {
	return base.WithLogger(l)
}

// NewClient creates a zipcloud client for the given endpoint (DefaultURL when empty)
func NewClient(endpoint string, opts ...ClientOption) *Client {
	if endpoint == "" {
		endpoint = DefaultURL
	}
	return &Client{
		Client:   base.NewClient(ServiceName, opts...),
		endpoint: endpoint,
	}
}

// Search fetches the addresses registered for a postal code.
// Transport and HTTP failures are returned as *errors.UpstreamError.
func (c *Client) Search(ctx context.Context, zipcode string) (*SearchResponse, error) {
	const op = "searching address"

	params := url.Values{}
	params.Set("zipcode", zipcode)

	resp, err := c.DoRequest(ctx, base.RequestConfig{URL: c.endpoint + "?" + params.Encode()})
	if err != nil {
		return nil, apperrors.NewUpstreamError(ServiceName, op, err)
	}

	var result SearchResponse
	if !resp.OK() {
		detail := fmt.Sprintf("request failed with status code %d", resp.StatusCode)
		if json.Unmarshal(resp.Body, &result) == nil && result.Message != nil && *result.Message != "" {
			detail = *result.Message
		}
		return nil, &apperrors.UpstreamError{
			Service:    ServiceName,
			Op:         op,
			StatusCode: resp.StatusCode,
			Detail:     detail,
		}
	}

	if err := json.Unmarshal(resp.Body, &result); err != nil {
		return nil, apperrors.NewUpstreamError(ServiceName, op, fmt.Errorf("failed to parse response: %w", err))
	}
	return &result, nil
}
