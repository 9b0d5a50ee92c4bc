package bridge

import (
	"context"
	"sync"

	"github.com/morezero/zeroframe/pkg/reply"
)

// InvokeFunc answers a command in-process.
type InvokeFunc func(ctx context.Context, cmd string, params []any) (reply.Reply, error)

// CallbackBridge is a Bridge backed by a function, for in-process hosts and tests.
type CallbackBridge struct {
	invoke   InvokeFunc
	falsy    reply.FalsyFunc
	handlers handlerSet

	mu     sync.Mutex
	sent   []SentCommand
	closed bool
}

// SentCommand records a fire-and-forget dispatch.
type SentCommand struct {
	Cmd    string
	Params []any
}

// NewCallbackBridge creates a CallbackBridge. A nil falsy predicate means reply.JSFalsy.
func NewCallbackBridge(fn InvokeFunc, falsy reply.FalsyFunc) *CallbackBridge {
	if falsy == nil {
		falsy = reply.JSFalsy
	}
	return &CallbackBridge{invoke: fn, falsy: falsy}
}

// Invoke calls the backing function.
func (b *CallbackBridge) Invoke(ctx context.Context, cmd string, params []any) (reply.Reply, error) {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return reply.Null(), ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return reply.Null(), err
	}
	return b.invoke(ctx, cmd, normalizeParams(params))
}

// Send records the command without waiting for a reply.
func (b *CallbackBridge) Send(cmd string, params []any) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	b.sent = append(b.sent, SentCommand{Cmd: cmd, Params: normalizeParams(params)})
	return nil
}

// Sent returns the fire-and-forget commands recorded so far.
func (b *CallbackBridge) Sent() []SentCommand {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]SentCommand(nil), b.sent...)
}

// OnCommand registers a push handler.
func (b *CallbackBridge) OnCommand(cmd string, h Handler) {
	b.handlers.add(cmd, h)
}

// Push delivers a host-initiated command to registered handlers.
func (b *CallbackBridge) Push(cmd string, params reply.Reply) bool {
	return b.handlers.dispatch(cmd, params)
}

// IsFalsy applies the configured truthiness rule.
func (b *CallbackBridge) IsFalsy(r reply.Reply) bool { return b.falsy(r) }

// Close marks the bridge closed.
func (b *CallbackBridge) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}
