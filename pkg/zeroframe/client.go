// Package zeroframe is a typed client for the ZeroFrame command API. Each
// operation issues one command through a bridge and classifies the host's reply
// into a value or one of the errors in this package.
package zeroframe

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/morezero/zeroframe/pkg/bridge"
	"github.com/morezero/zeroframe/pkg/reply"
)

const logPrefix = "zeroframe:client"

// Client issues ZeroFrame commands through a bridge. It holds no per-call state
// and is safe for concurrent use when the bridge is.
type Client struct {
	bridge     bridge.Bridge
	classifier Classifier
}

// Option configures a Client.
type Option func(*Client)

// WithFalsy overrides the truthiness rule used for payload-less replies.
func WithFalsy(f reply.FalsyFunc) Option {
	return func(c *Client) { c.classifier.Falsy = f }
}

// WithStructuredErrors toggles treating {"error": ...} object replies as remote errors.
func WithStructuredErrors(on bool) Option {
	return func(c *Client) { c.classifier.StructuredErrors = on }
}

// NewClient wraps b. The classifier takes its truthiness rule from the bridge
// when it provides one. Error objects are only recognized in reply text unless
// WithStructuredErrors is given.
func NewClient(b bridge.Bridge, opts ...Option) *Client {
	c := &Client{bridge: b}
	if t, ok := b.(reply.Truthiness); ok {
		c.classifier.Falsy = t.IsFalsy
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Bridge returns the underlying bridge.
func (c *Client) Bridge() bridge.Bridge { return c.bridge }

// Classifier returns the classifier applied to replies.
func (c *Client) Classifier() Classifier { return c.classifier }

// Close closes the bridge.
func (c *Client) Close() error { return c.bridge.Close() }

// Call issues cmd and returns the unclassified reply. Transport failures are
// returned as-is, wrapped; they are never one of this package's error kinds.
func (c *Client) Call(ctx context.Context, cmd string, params ...any) (reply.Reply, error) {
	slog.Debug(fmt.Sprintf("%s - %s", logPrefix, cmd))
	r, err := c.bridge.Invoke(ctx, cmd, params)
	if err != nil {
		return reply.Null(), fmt.Errorf("%s - %s: %w", logPrefix, cmd, err)
	}
	return r, nil
}

// OnCommand registers h for host-initiated commands named cmd.
func (c *Client) OnCommand(cmd string, h bridge.Handler) {
	c.bridge.OnCommand(cmd, h)
}

func (c *Client) send(cmd string, params ...any) error {
	if err := c.bridge.Send(cmd, params); err != nil {
		return fmt.Errorf("%s - %s: %w", logPrefix, cmd, err)
	}
	return nil
}

func (c *Client) result(ctx context.Context, cmd string, params ...any) error {
	r, err := c.Call(ctx, cmd, params...)
	if err != nil {
		return err
	}
	return c.classifier.Result(r)
}

func (c *Client) resultChanged(ctx context.Context, cmd string, params ...any) (bool, error) {
	r, err := c.Call(ctx, cmd, params...)
	if err != nil {
		return false, err
	}
	return c.classifier.ResultChanged(r)
}

// expect issues cmd and succeeds only on the literal reply want. Error envelopes
// still surface as remote errors.
func (c *Client) expect(ctx context.Context, want, cmd string, params ...any) error {
	r, err := c.Call(ctx, cmd, params...)
	if err != nil {
		return err
	}
	s, ok := r.AsString()
	if !ok {
		return c.classifier.structured(r)
	}
	if s == want {
		return nil
	}
	if msg, ok := reply.ErrorEnvelope(s); ok {
		return &Error{Kind: KindRemoteError, Message: msg, Reply: r}
	}
	return invalidResponse(r)
}

// call issues cmd and decodes the reply into T.
func call[T any](ctx context.Context, c *Client, cmd string, params ...any) (T, error) {
	r, err := c.Call(ctx, cmd, params...)
	if err != nil {
		var zero T
		return zero, err
	}
	return ResponseWith[T](c.classifier, r)
}

// Invoke issues cmd and decodes the reply into T. It is the typed escape hatch
// for commands without a dedicated method.
func Invoke[T any](ctx context.Context, c *Client, cmd string, params ...any) (T, error) {
	return call[T](ctx, c, cmd, params...)
}
