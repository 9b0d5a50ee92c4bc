package events

import "context"

// EventPublisher is the interface for publishing host push events.
type EventPublisher interface {
	PublishPush(ctx context.Context, event *PushEvent) error
}

// CallbackPublisher is an EventPublisher that calls a callback function (for testing).
type CallbackPublisher struct {
	callback func(ctx context.Context, event *PushEvent) error
}

// NewCallbackPublisher creates a new CallbackPublisher.
func NewCallbackPublisher(cb func(ctx context.Context, event *PushEvent) error) *CallbackPublisher {
	return &CallbackPublisher{callback: cb}
}

// PublishPush calls the callback.
func (p *CallbackPublisher) PublishPush(ctx context.Context, event *PushEvent) error {
	return p.callback(ctx, event)
}
