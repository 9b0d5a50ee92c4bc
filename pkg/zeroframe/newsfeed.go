package zeroframe

import "context"

// FeedFollow sets the followed feed queries, keyed by feed name. Each value is
// the query and its parameters, as the host stores them.
func (c *Client) FeedFollow(ctx context.Context, feeds map[string][2]any) error {
	if feeds == nil {
		feeds = map[string][2]any{}
	}
	return c.result(ctx, "feedFollow", feeds)
}

// FeedListFollow returns the followed feed queries.
func (c *Client) FeedListFollow(ctx context.Context) (map[string][2]any, error) {
	return call[map[string][2]any](ctx, c, "feedListFollow")
}

// FeedQuery runs every followed query, returning at most limit rows from the
// last dayLimit days.
func (c *Client) FeedQuery(ctx context.Context, limit, dayLimit int) (FeedQueryResult, error) {
	return call[FeedQueryResult](ctx, c, "feedQuery", limit, dayLimit)
}
