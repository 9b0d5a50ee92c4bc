package zeroframe

import "context"

// Replies of the site management commands.
const (
	replyPaused  = "Paused"
	replyResumed = "Resumed"
	replyDeleted = "Deleted"
)

// SiteList returns every site the host serves. These commands need the ADMIN
// permission on the calling site.
func (c *Client) SiteList(ctx context.Context, connectingSites bool) ([]SiteInfo, error) {
	return call[[]SiteInfo](ctx, c, "siteList", connectingSites)
}

// SitePause stops serving a site.
func (c *Client) SitePause(ctx context.Context, address string) error {
	return c.expect(ctx, replyPaused, "sitePause", address)
}

// SiteResume resumes serving a paused site.
func (c *Client) SiteResume(ctx context.Context, address string) error {
	return c.expect(ctx, replyResumed, "siteResume", address)
}

// SiteDelete removes a site and its files.
func (c *Client) SiteDelete(ctx context.Context, address string) error {
	return c.expect(ctx, replyDeleted, "siteDelete", address)
}

// SiteClone clones address, optionally from a sub-directory root, and lets the
// host redirect the user to the clone.
func (c *Client) SiteClone(address, rootInnerPath string) error {
	return c.send("siteClone", address, rootInnerPath)
}

// SiteSetLimit sets the current site's size limit in megabytes.
func (c *Client) SiteSetLimit(ctx context.Context, sizeLimitMB int) error {
	return c.result(ctx, "siteSetLimit", sizeLimitMB)
}

// PermissionDetails returns the host's human readable description of a permission.
func (c *Client) PermissionDetails(ctx context.Context, permission string) (string, error) {
	return call[string](ctx, c, "permissionDetails", permission)
}
