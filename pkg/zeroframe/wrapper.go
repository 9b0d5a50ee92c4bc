package zeroframe

import (
	"context"

	"github.com/morezero/zeroframe/pkg/bridge"
	"github.com/morezero/zeroframe/pkg/reply"
)

// NotificationType is the style of a wrapper notification.
type NotificationType string

const (
	NotificationError NotificationType = "error"
	NotificationInfo  NotificationType = "info"
	NotificationDone  NotificationType = "done"
)

// PromptType is the input style of a wrapper prompt.
type PromptType string

const (
	PromptText     PromptType = "text"
	PromptPassword PromptType = "password"
)

// confirmAccepted is the button index wrapperConfirm returns for the confirm button.
const confirmAccepted = 1

// Notification shows a notification in the wrapper. A zero timeout (milliseconds)
// keeps it until dismissed.
func (c *Client) Notification(kind NotificationType, message string, timeout int) error {
	if timeout > 0 {
		return c.send("wrapperNotification", string(kind), message, timeout)
	}
	return c.send("wrapperNotification", string(kind), message)
}

// NotifyInfo shows an info notification.
func (c *Client) NotifyInfo(message string, timeout int) error {
	return c.Notification(NotificationInfo, message, timeout)
}

// NotifyError shows an error notification.
func (c *Client) NotifyError(message string, timeout int) error {
	return c.Notification(NotificationError, message, timeout)
}

// NotifyDone shows a success notification.
func (c *Client) NotifyDone(message string, timeout int) error {
	return c.Notification(NotificationDone, message, timeout)
}

// Confirm asks the user to confirm message and reports whether they pressed button.
func (c *Client) Confirm(ctx context.Context, message, button string) (bool, error) {
	r, err := c.Call(ctx, "wrapperConfirm", message, button)
	if err != nil {
		return false, err
	}
	n, ok := r.AsNumber()
	if !ok {
		return false, invalidResponse(r)
	}
	return n == confirmAccepted, nil
}

// InnerLoaded tells the wrapper the site finished loading.
func (c *Client) InnerLoaded() error {
	return c.send("wrapperInnerLoaded")
}

// GetLocalStorage returns the site's wrapper-side local storage.
func GetLocalStorage[T any](ctx context.Context, c *Client) (T, error) {
	return call[T](ctx, c, "wrapperGetLocalStorage")
}

// SetLocalStorage replaces the site's wrapper-side local storage.
func (c *Client) SetLocalStorage(data any) error {
	return c.send("wrapperSetLocalStorage", data)
}

// GetState returns the browser history state.
func (c *Client) GetState(ctx context.Context) (reply.Reply, error) {
	return c.Call(ctx, "wrapperGetState")
}

// GetAjaxKey returns the key that authorizes ajax requests of the site.
func (c *Client) GetAjaxKey(ctx context.Context) (string, error) {
	return call[string](ctx, c, "wrapperGetAjaxKey")
}

// OpenWindow opens url. Empty target and specs are omitted.
func (c *Client) OpenWindow(url, target, specs string) error {
	params := []any{url}
	if target != "" {
		params = append(params, target)
	}
	if specs != "" {
		params = append(params, specs)
	}
	return c.send("wrapperOpenWindow", params...)
}

// PermissionAdd requests a new permission for the site.
func (c *Client) PermissionAdd(ctx context.Context, permission string) error {
	return c.result(ctx, "wrapperPermissionAdd", permission)
}

// Prompt asks the user for input. The reply is the entered text.
func (c *Client) Prompt(ctx context.Context, message string, kind PromptType) (string, error) {
	return call[string](ctx, c, "wrapperPrompt", message, string(kind))
}

// PushState adds a browser history entry.
func (c *Client) PushState(state any, title, url string) error {
	return c.send("wrapperPushState", state, title, url)
}

// ReplaceState replaces the current browser history entry.
func (c *Client) ReplaceState(state any, title, url string) error {
	return c.send("wrapperReplaceState", state, title, url)
}

// RequestFullscreen asks the wrapper to go fullscreen.
//
// Deprecated: since ZeroNet Rev3136 sites can use the browser fullscreen API directly.
func (c *Client) RequestFullscreen() error {
	return c.send("wrapperRequestFullscreen")
}

// SetTitle sets the browser window title.
func (c *Client) SetTitle(title string) error {
	return c.send("wrapperSetTitle", title)
}

// SetViewport sets the viewport meta tag.
func (c *Client) SetViewport(viewport string) error {
	return c.send("wrapperSetViewport", viewport)
}

// OnRequest registers h for host-initiated commands named cmd.
func (c *Client) OnRequest(cmd string, h bridge.Handler) {
	c.OnCommand(cmd, h)
}
