// Package github implements the pull request tools on top of the GitHub REST API.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/olgasafonova/benkyokai-mcp-server/internal/base"
	apperrors "github.com/olgasafonova/benkyokai-mcp-server/internal/errors"
)

const (
	// DefaultAPIURL is the public GitHub REST API root
	DefaultAPIURL = "https://api.github.com"

	// ServiceName labels metrics, logs and circuit breaker state
	ServiceName = "github"

	// Media types accepted by the REST API
	MediaTypeJSON  = "application/vnd.github.v3+json"
	MediaTypeDiff  = "application/vnd.github.v3.diff"
	MediaTypePatch = "application/vnd.github.v3.patch"
)

// Config holds the repository owner and credentials
type Config struct {
	APIURL string
	Owner  string
	Token  string
}

// Client provides access to pull requests of one owner's repositories
type Client struct {
	*base.Client
	apiURL string
	owner  string
	token  string
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

// NewClient creates a GitHub client
func NewClient(cfg Config, opts ...ClientOption) *Client {
	apiURL := strings.TrimRight(cfg.APIURL, "/")
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	return &Client{
		Client: base.NewClient(ServiceName, opts...),
		apiURL: apiURL,
		owner:  cfg.Owner,
		token:  cfg.Token,
	}
}

// ListOptions carries pagination and filters passed through to the API unchanged
type ListOptions struct {
	State   string
	PerPage int
	Page    int
}

func (o ListOptions) values() url.Values {
	params := url.Values{}
	if o.State != "" {
		params.Set("state", o.State)
	}
	if o.PerPage > 0 {
		params.Set("per_page", strconv.Itoa(o.PerPage))
	}
	if o.Page > 0 {
		params.Set("page", strconv.Itoa(o.Page))
	}
	return params
}

// ListPullRequests lists pull requests of a repository
func (c *Client) ListPullRequests(ctx context.Context, repo string, opts ListOptions) ([]PullRequest, error) {
	var pulls []PullRequest
	err := c.getJSON(ctx, "fetching pull requests", c.repoPath(repo, "pulls"), opts.values(), &pulls)
	return pulls, err
}

// ListPullFiles lists the files changed by a pull request
func (c *Client) ListPullFiles(ctx context.Context, repo string, number int, opts ListOptions) ([]PullFile, error) {
	var files []PullFile
	err := c.getJSON(ctx, "fetching pull request files", c.repoPath(repo, "pulls", strconv.Itoa(number), "files"), opts.values(), &files)
	return files, err
}

// ListPullReviews lists the reviews of a pull request
func (c *Client) ListPullReviews(ctx context.Context, repo string, number int, opts ListOptions) ([]Review, error) {
	var reviews []Review
	err := c.getJSON(ctx, "fetching pull request reviews", c.repoPath(repo, "pulls", strconv.Itoa(number), "reviews"), opts.values(), &reviews)
	return reviews, err
}

// GetPullDiff returns a pull request as a unified diff or as an mbox patch series
func (c *Client) GetPullDiff(ctx context.Context, repo string, number int, format string) (string, error) {
	accept := MediaTypeDiff
	if format == "patch" {
		accept = MediaTypePatch
	}

	body, err := c.do(ctx, "fetching pull request diff", http.MethodGet, c.repoPath(repo, "pulls", strconv.Itoa(number)), nil, accept, nil)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// AddComment posts a comment on a pull request's conversation
func (c *Client) AddComment(ctx context.Context, repo string, number int, text string) (*IssueComment, error) {
	const op = "adding comment"

	payload, err := json.Marshal(map[string]string{"body": text})
	if err != nil {
		return nil, apperrors.NewUpstreamError(ServiceName, op, err)
	}

	body, err := c.do(ctx, op, http.MethodPost, c.repoPath(repo, "issues", strconv.Itoa(number), "comments"), nil, MediaTypeJSON, payload)
	if err != nil {
		return nil, err
	}

	var comment IssueComment
	if err := json.Unmarshal(body, &comment); err != nil {
		return nil, apperrors.NewUpstreamError(ServiceName, op, fmt.Errorf("failed to parse response: %w", err))
	}
	return &comment, nil
}

// repoPath builds /repos/{owner}/{repo}/... with each segment escaped.
func (c *Client) repoPath(repo string, segments ...string) string {
	parts := append([]string{"repos", url.PathEscape(c.owner), url.PathEscape(repo)}, segments...)
	return "/" + strings.Join(parts, "/")
}

func (c *Client) getJSON(ctx context.Context, op, path string, params url.Values, result any) error {
	body, err := c.do(ctx, op, http.MethodGet, path, params, MediaTypeJSON, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, result); err != nil {
		return apperrors.NewUpstreamError(ServiceName, op, fmt.Errorf("failed to parse response: %w", err))
	}
	return nil
}

// do sends one request and maps every failure to *errors.UpstreamError.
// The detail is GitHub's "message" field when present.
func (c *Client) do(ctx context.Context, op, method, path string, params url.Values, accept string, payload []byte) ([]byte, error) {
	reqURL := c.apiURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	header := http.Header{}
	header.Set("Accept", accept)
	if c.token != "" {
		header.Set("Authorization", "token "+c.token)
	}

	resp, err := c.DoRequest(ctx, base.RequestConfig{
		Method: method,
		URL:    reqURL,
		Header: header,
		Body:   payload,
	})
	if err != nil {
		return nil, apperrors.NewUpstreamError(ServiceName, op, err)
	}

	if !resp.OK() {
		detail := fmt.Sprintf("request failed with status code %d", resp.StatusCode)
		var apiErr APIError
		if json.Unmarshal(resp.Body, &apiErr) == nil && apiErr.Message != "" {
			detail = apiErr.Message
		}
		return nil, &apperrors.UpstreamError{
			Service:    ServiceName,
			Op:         op,
			StatusCode: resp.StatusCode,
			Detail:     detail,
		}
	}

	return resp.Body, nil
}
