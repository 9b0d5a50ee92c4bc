package zeroframe

import "context"

// MutedUser is an entry of muteList.
type MutedUser struct {
	CertUserID string  `json:"cert_user_id"`
	Reason     string  `json:"reason"`
	Source     string  `json:"source,omitempty"`
	DateAdded  float64 `json:"date_added"`
}

// MuteAdd hides a user's content on every site.
func (c *Client) MuteAdd(ctx context.Context, authAddress, certUserID, reason string) error {
	return c.result(ctx, "muteAdd", authAddress, certUserID, reason)
}

// MuteRemove unmutes a user.
func (c *Client) MuteRemove(ctx context.Context, authAddress string) error {
	return c.result(ctx, "muteRemove", authAddress)
}

// MuteList returns muted users keyed by auth address.
func (c *Client) MuteList(ctx context.Context) (map[string]MutedUser, error) {
	return call[map[string]MutedUser](ctx, c, "muteList")
}
