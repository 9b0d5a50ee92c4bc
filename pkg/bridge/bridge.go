// Package bridge carries named commands with positional parameters to a ZeroNet host
// and returns its raw replies.
package bridge

import (
	"context"
	"errors"
	"sync"

	"github.com/morezero/zeroframe/pkg/reply"
)

// ErrClosed is returned for calls made on, or pending when closing, a bridge.
var ErrClosed = errors.New("bridge closed")

// Handler receives a host-initiated command and its parameters.
type Handler func(cmd string, params reply.Reply)

// Bridge is the transport to the host. Invoke issues exactly one outbound message
// and waits for exactly one reply; it performs no retries and enforces no timeout
// other than the one carried by ctx.
type Bridge interface {
	Invoke(ctx context.Context, cmd string, params []any) (reply.Reply, error)
	Send(cmd string, params []any) error
	OnCommand(cmd string, h Handler)
	Close() error
}

// handlerSet is a concurrency-safe registry of push handlers keyed by command.
type handlerSet struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
}

func (s *handlerSet) add(cmd string, h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handlers == nil {
		s.handlers = make(map[string][]Handler)
	}
	s.handlers[cmd] = append(s.handlers[cmd], h)
}

func (s *handlerSet) dispatch(cmd string, params reply.Reply) bool {
	s.mu.RLock()
	hs := append([]Handler(nil), s.handlers[cmd]...)
	s.mu.RUnlock()

	for _, h := range hs {
		h(cmd, params)
	}
	return len(hs) > 0
}

// normalizeParams keeps an absent parameter list as an empty array on the wire.
func normalizeParams(params []any) []any {
	if params == nil {
		return []any{}
	}
	return params
}
