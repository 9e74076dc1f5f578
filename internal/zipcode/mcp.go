package zipcode

import (
	"context"
	"fmt"
)

// SearchMCP is the MCP wrapper for Search.
// It returns the first match's address, or a not-found message when the API
// reports a non-200 status or no results.
func (c *Client) SearchMCP(ctx context.Context, args SearchArgs) (string, error) {
	result, err := c.Search(ctx, args.Zipcode)
	if err != nil {
		return "", err
	}
	if result.Status != 200 || len(result.Results) == 0 {
		return fmt.Sprintf("address not found (status: %d)", result.Status), nil
	}
	return result.Results[0].Full(), nil
}
