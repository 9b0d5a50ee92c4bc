package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/morezero/zeroframe/pkg/reply"
)

const logPrefix = "dispatcher:dispatch"

// Upstream is the bridge commands are forwarded to.
type Upstream interface {
	Invoke(ctx context.Context, cmd string, params []any) (reply.Reply, error)
	Send(cmd string, params []any) error
}

// Policy decides whether a command may be forwarded.
type Policy interface {
	Allowed(cmd string) bool
}

// Config holds dispatcher limits. Zero values disable the corresponding guard.
type Config struct {
	// RequestTimeout bounds a forwarded call when the caller set no deadline.
	RequestTimeout time.Duration
	// RateLimit is the sustained commands per second; Burst the bucket size.
	RateLimit float64
	Burst     int
	// BreakerFailures is the consecutive upstream failure count that opens the
	// breaker; BreakerCooldown how long it stays open.
	BreakerFailures uint32
	BreakerCooldown time.Duration
	// MaxInFlight caps commands handled concurrently by Subscribe.
	MaxInFlight int64
}

// DefaultConfig returns the gateway defaults.
func DefaultConfig() Config {
	return Config{
		RequestTimeout:  30 * time.Second,
		RateLimit:       50,
		Burst:           100,
		BreakerFailures: 5,
		BreakerCooldown: 10 * time.Second,
		MaxInFlight:     64,
	}
}

// Dispatcher routes command envelopes to the upstream bridge.
type Dispatcher struct {
	upstream Upstream
	policy   Policy
	cfg      Config
	limiter  *rate.Limiter
	breaker  *gobreaker.CircuitBreaker
	inflight *semaphore.Weighted
}

// NewDispatcherParams holds dependencies for NewDispatcher.
type NewDispatcherParams struct {
	Upstream Upstream
	Policy   Policy
	Config   Config
}

// NewDispatcher creates a new Dispatcher.
func NewDispatcher(params NewDispatcherParams) *Dispatcher {
	d := &Dispatcher{
		upstream: params.Upstream,
		policy:   params.Policy,
		cfg:      params.Config,
	}

	if params.Config.RateLimit > 0 {
		burst := params.Config.Burst
		if burst <= 0 {
			burst = 1
		}
		d.limiter = rate.NewLimiter(rate.Limit(params.Config.RateLimit), burst)
	}

	if params.Config.BreakerFailures > 0 {
		failures := params.Config.BreakerFailures
		d.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "zeronet-upstream",
			Timeout: params.Config.BreakerCooldown,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= failures
			},
			// A caller giving up says nothing about the host.
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, context.Canceled)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				slog.Warn(fmt.Sprintf("%s - breaker %s: %s -> %s", logPrefix, name, from, to))
			},
		})
	}

	if params.Config.MaxInFlight > 0 {
		d.inflight = semaphore.NewWeighted(params.Config.MaxInFlight)
	}

	return d
}

// Dispatch forwards a request and returns the response to send back. The host
// reply is passed through unclassified.
func (d *Dispatcher) Dispatch(ctx context.Context, req *CommandRequest) *CommandResponse {
	slog.Debug(fmt.Sprintf("%s - cmd=%s id=%s", logPrefix, req.Cmd, req.ID))

	if req.Cmd == "" {
		return errorResponse(req.ID, CodeInvalidRequest, "cmd is required", false)
	}
	if d.policy != nil && !d.policy.Allowed(req.Cmd) {
		return errorResponse(req.ID, CodeForbidden, fmt.Sprintf("command %s is not allowed", req.Cmd), false)
	}
	if d.limiter != nil && !d.limiter.Allow() {
		return errorResponse(req.ID, CodeRateLimited, "rate limit exceeded", true)
	}

	params := DecodeParams(req.Params)

	if req.NoReply {
		if err := d.upstream.Send(req.Cmd, params); err != nil {
			return upstreamErrorToResponse(req.ID, err)
		}
		return &CommandResponse{ID: req.ID, Ok: true, Result: reply.Null()}
	}

	if _, ok := ctx.Deadline(); !ok && d.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.cfg.RequestTimeout)
		defer cancel()
	}

	result, err := d.invoke(ctx, req.Cmd, params)
	if err != nil {
		return upstreamErrorToResponse(req.ID, err)
	}
	return &CommandResponse{ID: req.ID, Ok: true, Result: result}
}

func (d *Dispatcher) invoke(ctx context.Context, cmd string, params []any) (reply.Reply, error) {
	if d.breaker == nil {
		return d.upstream.Invoke(ctx, cmd, params)
	}
	out, err := d.breaker.Execute(func() (interface{}, error) {
		return d.upstream.Invoke(ctx, cmd, params)
	})
	if err != nil {
		return reply.Null(), err
	}
	return out.(reply.Reply), nil
}

// --- helpers ---

func errorResponse(id, code, message string, retryable bool) *CommandResponse {
	return &CommandResponse{
		ID: id,
		Ok: false,
		Error: &ErrorDetail{
			Code:      code,
			Message:   message,
			Retryable: retryable,
		},
	}
}

func upstreamErrorToResponse(id string, err error) *CommandResponse {
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return errorResponse(id, CodeUnavailable, "upstream unavailable: "+err.Error(), true)
	case errors.Is(err, context.DeadlineExceeded):
		return errorResponse(id, CodeTimeout, "upstream did not answer in time", true)
	case errors.Is(err, context.Canceled):
		return errorResponse(id, CodeTimeout, "request cancelled", false)
	}
	slog.Error(fmt.Sprintf("%s - upstream failure: %v", logPrefix, err))
	return errorResponse(id, CodeUpstreamError, err.Error(), true)
}
