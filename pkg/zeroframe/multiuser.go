package zeroframe

// UserLoginForm shows the login form for switching to another user's master seed.
func (c *Client) UserLoginForm() error {
	return c.send("userLoginForm")
}

// UserShowMasterSeed asks the wrapper to show the current user's master seed.
func (c *Client) UserShowMasterSeed() error {
	return c.send("userShowMasterSeed")
}
