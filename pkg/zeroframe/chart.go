package zeroframe

import "context"

// ChartDBQuery runs an SQL query against the statistics database.
func ChartDBQuery[T any](ctx context.Context, c *Client, query string, params map[string]any) ([]T, error) {
	if params == nil {
		params = map[string]any{}
	}
	return call[[]T](ctx, c, "chartDbQuery", query, params)
}

// ChartGetPeerLocations returns the locations of connected peers.
func (c *Client) ChartGetPeerLocations(ctx context.Context) ([]PeerLocation, error) {
	return call[[]PeerLocation](ctx, c, "chartGetPeerLocations")
}
