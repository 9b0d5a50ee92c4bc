package zeroframe

import "context"

// CorsPermission requests cross-site read access to address.
func (c *Client) CorsPermission(ctx context.Context, address string) error {
	return c.result(ctx, "corsPermission", address)
}
