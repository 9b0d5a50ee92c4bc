package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	comms "github.com/nats-io/nats.go"

	"github.com/morezero/zeroframe/pkg/commsutil"
	"github.com/morezero/zeroframe/pkg/dispatcher"
	"github.com/morezero/zeroframe/pkg/events"
	"github.com/morezero/zeroframe/pkg/reply"
)

const natsLogPrefix = "bridge:nats"

// NATSOptions configures a bridge that reaches the host through a zeroframe gateway.
type NATSOptions struct {
	// Subject the gateway answers commands on. Empty means commsutil.SubjectCommand.
	Subject string
	// EventPrefix pushes are republished under. Empty means commsutil.SubjectEventPrefix.
	EventPrefix string
	// DefaultTimeout bounds calls whose context carries no deadline; COMMS
	// request/reply cannot wait without one.
	DefaultTimeout time.Duration
}

// NATSBridge sends command envelopes to a gateway over COMMS request/reply.
type NATSBridge struct {
	nc   *comms.Conn
	opts NATSOptions

	seq      atomic.Uint64
	handlers handlerSet

	mu     sync.Mutex
	subs   map[string]*comms.Subscription
	closed bool
}

// NewNATSBridge wraps an established COMMS connection. The connection stays owned
// by the caller.
func NewNATSBridge(nc *comms.Conn, opts NATSOptions) *NATSBridge {
	if opts.Subject == "" {
		opts.Subject = commsutil.SubjectCommand
	}
	if opts.EventPrefix == "" {
		opts.EventPrefix = commsutil.SubjectEventPrefix
	}
	if opts.DefaultTimeout <= 0 {
		opts.DefaultTimeout = 30 * time.Second
	}
	return &NATSBridge{nc: nc, opts: opts, subs: make(map[string]*comms.Subscription)}
}

// Invoke sends one command envelope and waits for the gateway's answer. Gateway
// failures come back as *dispatcher.ErrorDetail.
func (b *NATSBridge) Invoke(ctx context.Context, cmd string, params []any) (reply.Reply, error) {
	if b.isClosed() {
		return reply.Null(), ErrClosed
	}

	data, err := b.encode(cmd, params, false)
	if err != nil {
		return reply.Null(), err
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.opts.DefaultTimeout)
		defer cancel()
	}

	msg, err := b.nc.RequestWithContext(ctx, b.opts.Subject, data)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return reply.Null(), err
		}
		return reply.Null(), fmt.Errorf("%s - %s request failed: %w", natsLogPrefix, cmd, err)
	}

	var resp dispatcher.CommandResponse
	if err := commsutil.DecodePayload(msg.Data, &resp); err != nil {
		return reply.Null(), fmt.Errorf("%s - failed to decode %s response: %w", natsLogPrefix, cmd, err)
	}
	if !resp.Ok {
		if resp.Error == nil {
			return reply.Null(), fmt.Errorf("%s - gateway rejected %s without detail", natsLogPrefix, cmd)
		}
		return reply.Null(), resp.Error
	}
	return resp.Result, nil
}

// Send publishes a command envelope flagged as not expecting a reply.
func (b *NATSBridge) Send(cmd string, params []any) error {
	if b.isClosed() {
		return ErrClosed
	}
	data, err := b.encode(cmd, params, true)
	if err != nil {
		return err
	}
	if err := b.nc.Publish(b.opts.Subject, data); err != nil {
		return fmt.Errorf("%s - failed to publish %s: %w", natsLogPrefix, cmd, err)
	}
	return nil
}

// OnCommand subscribes to the event subject pushes for cmd are republished on.
func (b *NATSBridge) OnCommand(cmd string, h Handler) {
	b.handlers.add(cmd, h)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	if _, ok := b.subs[cmd]; ok {
		return
	}

	subject := commsutil.BuildEventSubject(b.opts.EventPrefix, cmd)
	sub, err := b.nc.Subscribe(subject, func(msg *comms.Msg) {
		var event events.PushEvent
		if err := commsutil.DecodePayload(msg.Data, &event); err != nil {
			slog.Warn(fmt.Sprintf("%s - dropping undecodable push on %s: %v", natsLogPrefix, msg.Subject, err))
			return
		}
		b.handlers.dispatch(cmd, event.Params)
	})
	if err != nil {
		slog.Error(fmt.Sprintf("%s - failed to subscribe to %s: %v", natsLogPrefix, subject, err))
		return
	}
	b.subs[cmd] = sub
}

// IsFalsy applies the truthiness of the host behind the gateway.
func (b *NATSBridge) IsFalsy(r reply.Reply) bool { return reply.PyFalsy(r) }

// Close drops push subscriptions. The COMMS connection is left open.
func (b *NATSBridge) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for cmd, sub := range b.subs {
		if err := sub.Unsubscribe(); err != nil {
			slog.Warn(fmt.Sprintf("%s - failed to unsubscribe %s: %v", natsLogPrefix, cmd, err))
		}
	}
	b.subs = nil
	return nil
}

func (b *NATSBridge) isClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

func (b *NATSBridge) encode(cmd string, params []any, noReply bool) ([]byte, error) {
	raw, err := dispatcher.EncodeParams(params)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to encode %s params: %w", natsLogPrefix, cmd, err)
	}
	req := dispatcher.CommandRequest{
		ID:      strconv.FormatUint(b.seq.Add(1), 10),
		Cmd:     cmd,
		Params:  raw,
		NoReply: noReply,
	}
	data, err := commsutil.EncodePayload(req)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to encode %s request: %w", natsLogPrefix, cmd, err)
	}
	return data, nil
}
