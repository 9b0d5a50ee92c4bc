package zeroframe

import "context"

// Defaults of optionalFileList.
const (
	CurrentSite            = "current site"
	DefaultOptionalOrderBy = "time_downloaded DESC"
	DefaultOptionalLimit   = 10
)

// OptionalFileListOptions filters optionalFileList. Empty fields use the defaults above.
type OptionalFileListOptions struct {
	Address string
	OrderBy string
	Limit   int
}

// OptionalFileList lists downloaded optional files.
func (c *Client) OptionalFileList(ctx context.Context, opts OptionalFileListOptions) ([]OptionalFile, error) {
	address, orderBy, limit := opts.Address, opts.OrderBy, opts.Limit
	if address == "" {
		address = CurrentSite
	}
	if orderBy == "" {
		orderBy = DefaultOptionalOrderBy
	}
	if limit <= 0 {
		limit = DefaultOptionalLimit
	}
	return call[[]OptionalFile](ctx, c, "optionalFileList", address, orderBy, limit)
}

// OptionalFileInfo returns what the host knows about one optional file, or nil
// when it has never seen it.
func (c *Client) OptionalFileInfo(ctx context.Context, innerPath string) (*OptionalFile, error) {
	return call[*OptionalFile](ctx, c, "optionalFileInfo", innerPath)
}

// OptionalFilePin keeps a file out of automatic cleanup. Empty address means the current site.
func (c *Client) OptionalFilePin(innerPath, address string) error {
	return c.send("optionalFilePin", withAddress([]any{innerPath}, address)...)
}

// OptionalFileUnpin makes a pinned file eligible for cleanup again.
func (c *Client) OptionalFileUnpin(innerPath, address string) error {
	return c.send("optionalFileUnpin", withAddress([]any{innerPath}, address)...)
}

// OptionalLimitStats reports optional storage usage.
func (c *Client) OptionalLimitStats(ctx context.Context) (OptionalLimitStats, error) {
	return call[OptionalLimitStats](ctx, c, "optionalLimitStats")
}

// OptionalLimitSet sets the optional storage limit in gigabytes.
func (c *Client) OptionalLimitSet(limit float64) error {
	return c.send("optionalLimitSet", limit)
}

// OptionalHelpList returns the directories the user helps distribute, keyed by
// directory with its title.
func (c *Client) OptionalHelpList(ctx context.Context, address string) (map[string]string, error) {
	return call[map[string]string](ctx, c, "optionalHelpList", address)
}

// OptionalHelp starts helping distribute files under directory.
func (c *Client) OptionalHelp(directory, title, address string) error {
	return c.send("optionalHelp", withAddress([]any{directory, title}, address)...)
}

// OptionalHelpRemove stops helping distribute files under directory.
func (c *Client) OptionalHelpRemove(directory, address string) error {
	return c.send("optionalHelpRemove", withAddress([]any{directory}, address)...)
}

// OptionalHelpAll toggles helping distribute every optional file of a site.
func (c *Client) OptionalHelpAll(value bool, address string) error {
	return c.send("optionalHelpAll", withAddress([]any{value}, address)...)
}

func withAddress(params []any, address string) []any {
	if address != "" {
		params = append(params, address)
	}
	return params
}
