package zeroframe

import (
	"fmt"

	"github.com/morezero/zeroframe/pkg/reply"
)

// ErrorKind is the closed set of reasons a reply can fail classification.
type ErrorKind int

const (
	// KindFalsyResponse: the reply was a falsy sentinel with no further structure.
	KindFalsyResponse ErrorKind = iota + 1
	// KindRemoteError: the reply was an error envelope carrying a host message.
	KindRemoteError
	// KindInvalidResponse: the reply matched no expected shape.
	KindInvalidResponse
	// KindSerializationError: a typed payload was expected but decoding failed.
	KindSerializationError
)

// Code returns the wire code used when the kind crosses a process boundary.
func (k ErrorKind) Code() string {
	switch k {
	case KindFalsyResponse:
		return "FALSY_RESPONSE"
	case KindRemoteError:
		return "REMOTE_ERROR"
	case KindInvalidResponse:
		return "INVALID_RESPONSE"
	case KindSerializationError:
		return "SERIALIZATION_ERROR"
	default:
		return "UNKNOWN"
	}
}

func (k ErrorKind) String() string { return k.Code() }

// Error is a classified failure. Message is set for remote errors, Cause for
// serialization errors. Reply holds the value that failed classification.
type Error struct {
	Kind    ErrorKind
	Message string
	Cause   error
	Reply   reply.Reply
}

var (
	ErrFalsyResponse      = &Error{Kind: KindFalsyResponse}
	ErrRemoteError        = &Error{Kind: KindRemoteError}
	ErrInvalidResponse    = &Error{Kind: KindInvalidResponse}
	ErrSerializationError = &Error{Kind: KindSerializationError}
)

func (e *Error) Error() string {
	switch e.Kind {
	case KindFalsyResponse:
		return "API call returned falsy response"
	case KindRemoteError:
		if e.Message == "" {
			return "zeronet internal error"
		}
		return "zeronet internal error: " + e.Message
	case KindInvalidResponse:
		return "could not parse response"
	case KindSerializationError:
		if e.Cause == nil {
			return "could not de/serialize object"
		}
		return fmt.Sprintf("could not de/serialize object: %v", e.Cause)
	default:
		return "unclassified zeroframe error"
	}
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches any *Error of the same kind, so errors.Is(err, ErrRemoteError) holds
// regardless of the message carried.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// RemoteError builds a remote failure carrying the host-supplied message.
func RemoteError(message string) *Error {
	return &Error{Kind: KindRemoteError, Message: message}
}

// SerializationError wraps a decoding failure.
func SerializationError(cause error) *Error {
	return &Error{Kind: KindSerializationError, Cause: cause}
}

func falsyResponse(r reply.Reply) *Error {
	return &Error{Kind: KindFalsyResponse, Reply: r}
}

func invalidResponse(r reply.Reply) *Error {
	return &Error{Kind: KindInvalidResponse, Reply: r}
}
