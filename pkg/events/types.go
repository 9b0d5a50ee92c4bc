// Package events defines host push events and publishers that fan them out over COMMS.
package events

import (
	"time"

	"github.com/morezero/zeroframe/pkg/reply"
)

// PushEvent is a host-initiated command (setSiteInfo, setServerInfo, ...) as republished
// by the gateway.
type PushEvent struct {
	Cmd       string      `json:"cmd"`
	Site      string      `json:"site,omitempty"`
	Params    reply.Reply `json:"params"`
	Timestamp string      `json:"timestamp"`
}

// NewPushEvent stamps a push with the current time.
func NewPushEvent(site, cmd string, params reply.Reply) *PushEvent {
	return &PushEvent{
		Cmd:       cmd,
		Site:      site,
		Params:    params,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	}
}
