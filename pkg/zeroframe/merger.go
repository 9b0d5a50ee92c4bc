package zeroframe

import "context"

// MergerSiteAdd starts downloading merged sites.
func (c *Client) MergerSiteAdd(addresses []string) error {
	if addresses == nil {
		addresses = []string{}
	}
	return c.send("mergerSiteAdd", addresses)
}

// MergerSiteDelete stops seeding and deletes a merged site.
func (c *Client) MergerSiteDelete(address string) error {
	return c.send("mergerSiteDelete", address)
}

// MergerSiteList returns the addresses of merged sites.
func (c *Client) MergerSiteList(ctx context.Context) ([]string, error) {
	sites, err := call[map[string]any](ctx, c, "mergerSiteList", false)
	if err != nil {
		return nil, err
	}
	addresses := make([]string, 0, len(sites))
	for address := range sites {
		addresses = append(addresses, address)
	}
	return addresses, nil
}

// MergerSiteInfoList returns merged sites keyed by address.
func (c *Client) MergerSiteInfoList(ctx context.Context) (map[string]SiteInfo, error) {
	return call[map[string]SiteInfo](ctx, c, "mergerSiteList", true)
}
