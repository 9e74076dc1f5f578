package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// PullRequestsMCP is the MCP wrapper for ListPullRequests
func (c *Client) PullRequestsMCP(ctx context.Context, args PullRequestsArgs) (string, error) {
	pulls, err := c.ListPullRequests(ctx, args.Repo, ListOptions{
		State:   args.State,
		PerPage: args.PerPage,
		Page:    args.Page,
	})
	if err != nil {
		return "", err
	}

	summaries := make([]PullRequestSummary, 0, len(pulls))
	for _, pr := range pulls {
		summaries = append(summaries, PullRequestSummary{
			Number:    pr.Number,
			Title:     pr.Title,
			State:     pr.State,
			User:      pr.User.login(),
			CreatedAt: pr.CreatedAt,
			UpdatedAt: pr.UpdatedAt,
			HTMLURL:   pr.HTMLURL,
			Head:      pr.Head,
			Base:      pr.Base,
			Mergeable: pr.Mergeable,
			Merged:    pr.Merged,
		})
	}
	return marshalIndent(summaries)
}

// AddCommentMCP is the MCP wrapper for AddComment
func (c *Client) AddCommentMCP(ctx context.Context, args AddCommentArgs) (string, error) {
	comment, err := c.AddComment(ctx, args.Repo, args.PullNumber, args.Body)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Comment added. ID: %d, URL: %s", comment.ID, comment.HTMLURL), nil
}

// PullDiffMCP is the MCP wrapper for GetPullDiff
func (c *Client) PullDiffMCP(ctx context.Context, args PullDiffArgs) (string, error) {
	return c.GetPullDiff(ctx, args.Repo, args.PullNumber, args.Format)
}

// PullFilesMCP is the MCP wrapper for ListPullFiles
func (c *Client) PullFilesMCP(ctx context.Context, args PullFilesArgs) (string, error) {
	files, err := c.ListPullFiles(ctx, args.Repo, args.PullNumber, ListOptions{
		PerPage: args.PerPage,
		Page:    args.Page,
	})
	if err != nil {
		return "", err
	}

	summaries := make([]FileSummary, 0, len(files))
	for _, f := range files {
		summaries = append(summaries, FileSummary(f))
	}
	return marshalIndent(summaries)
}

// PullReviewsMCP is the MCP wrapper for ListPullReviews
func (c *Client) PullReviewsMCP(ctx context.Context, args PullReviewsArgs) (string, error) {
	reviews, err := c.ListPullReviews(ctx, args.Repo, args.PullNumber, ListOptions{
		PerPage: args.PerPage,
		Page:    args.Page,
	})
	if err != nil {
		return "", err
	}

	summaries := make([]ReviewSummary, 0, len(reviews))
	for _, r := range reviews {
		summaries = append(summaries, ReviewSummary{
			ID:          r.ID,
			User:        r.User.login(),
			State:       r.State,
			Body:        r.Body,
			SubmittedAt: r.SubmittedAt,
			HTMLURL:     r.HTMLURL,
		})
	}
	return marshalIndent(summaries)
}

// marshalIndent renders v as 2-space indented JSON without HTML escaping.
func marshalIndent(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}
