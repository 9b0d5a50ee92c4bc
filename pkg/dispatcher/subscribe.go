package dispatcher

import (
	"context"
	"fmt"
	"log/slog"

	comms "github.com/nats-io/nats.go"

	"github.com/morezero/zeroframe/pkg/commsutil"
)

const subscribeLogPrefix = "dispatcher:subscribe"

// Subscribe answers CommandRequests arriving on subject until the subscription is
// dropped. Requests are handled concurrently, at most Config.MaxInFlight at a time;
// when the limit is reached delivery waits for a slot.
func Subscribe(ctx context.Context, nc *comms.Conn, subject string, d *Dispatcher) (*comms.Subscription, error) {
	sub, err := nc.Subscribe(subject, func(msg *comms.Msg) {
		if d.inflight == nil {
			go handleMessage(ctx, d, msg)
			return
		}
		if err := d.inflight.Acquire(ctx, 1); err != nil {
			respond(msg, errorResponse("", CodeUnavailable, "Gateway is shutting down", true))
			return
		}
		go func() {
			defer d.inflight.Release(1)
			handleMessage(ctx, d, msg)
		}()
	})
	if err != nil {
		return nil, fmt.Errorf("%s - failed to subscribe to %s: %w", subscribeLogPrefix, subject, err)
	}
	slog.Info(fmt.Sprintf("%s - Subscribed to %s", subscribeLogPrefix, subject))
	return sub, nil
}

func handleMessage(ctx context.Context, d *Dispatcher, msg *comms.Msg) {
	var req CommandRequest
	if err := commsutil.DecodePayload(msg.Data, &req); err != nil {
		slog.Error(fmt.Sprintf("%s - failed to decode request: %v", subscribeLogPrefix, err))
		respond(msg, errorResponse("", CodeInvalidRequest, "Failed to decode request", false))
		return
	}

	resp := d.Dispatch(ctx, &req)
	if req.NoReply || msg.Reply == "" {
		if !resp.Ok {
			slog.Warn(fmt.Sprintf("%s - %s dropped: %s", subscribeLogPrefix, req.Cmd, resp.Error.Message))
		}
		return
	}
	respond(msg, resp)
}

func respond(msg *comms.Msg, resp *CommandResponse) {
	if msg.Reply == "" {
		return
	}
	data, err := commsutil.EncodePayload(resp)
	if err != nil {
		slog.Error(fmt.Sprintf("%s - failed to encode response: %v", subscribeLogPrefix, err))
		return
	}
	if err := msg.Respond(data); err != nil {
		slog.Warn(fmt.Sprintf("%s - failed to respond: %v", subscribeLogPrefix, err))
	}
}
