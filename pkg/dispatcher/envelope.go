// Package dispatcher routes command envelopes received over COMMS to an upstream ZeroNet bridge.
package dispatcher

import (
	"encoding/json"

	"github.com/morezero/zeroframe/pkg/reply"
)

// CommandRequest is the JSON envelope for a command forwarded through the gateway.
type CommandRequest struct {
	ID      string            `json:"id"`
	Cmd     string            `json:"cmd"`
	Params  []json.RawMessage `json:"params,omitempty"`
	NoReply bool              `json:"noReply,omitempty"`
}

// CommandResponse is the JSON envelope the gateway answers with. Result is the host
// reply exactly as received; Error is set only for gateway or transport failures.
type CommandResponse struct {
	ID     string       `json:"id"`
	Ok     bool         `json:"ok"`
	Result reply.Reply  `json:"result"`
	Error  *ErrorDetail `json:"error,omitempty"`
}

// ErrorDetail holds structured error information.
type ErrorDetail struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

func (e *ErrorDetail) Error() string {
	return e.Code + ": " + e.Message
}

// Error codes produced by the gateway.
const (
	CodeInvalidRequest = "INVALID_REQUEST"
	CodeForbidden      = "FORBIDDEN"
	CodeRateLimited    = "RATE_LIMITED"
	CodeUnavailable    = "UNAVAILABLE"
	CodeUpstreamError  = "UPSTREAM_ERROR"
	CodeTimeout        = "TIMEOUT"
)

// EncodeParams turns positional Go values into the raw params of a CommandRequest.
func EncodeParams(params []any) ([]json.RawMessage, error) {
	out := make([]json.RawMessage, 0, len(params))
	for _, p := range params {
		data, err := json.Marshal(p)
		if err != nil {
			return nil, err
		}
		out = append(out, data)
	}
	return out, nil
}

// DecodeParams turns raw params back into values the upstream bridge can re-encode.
func DecodeParams(params []json.RawMessage) []any {
	out := make([]any, 0, len(params))
	for _, p := range params {
		out = append(out, p)
	}
	return out
}
