package zeroframe

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"reflect"

	"github.com/morezero/zeroframe/pkg/reply"
)

// Reply sentinels the host uses for boolean-like outcomes.
const (
	replyOK         = "ok"
	replyNotChanged = "Not changed"
	replyPong       = "pong"
)

var errTrailingData = errors.New("unexpected data after top-level value")

// Classifier turns raw bridge replies into typed outcomes. Falsy is the host's
// truthiness rule; nil means reply.JSFalsy. StructuredErrors additionally treats
// an object reply of the form {"error": "..."} as a remote error; bridges whose
// host sends error objects without stringifying them need it.
type Classifier struct {
	Falsy            reply.FalsyFunc
	StructuredErrors bool
}

// NewClassifier returns a classifier using the given falsy predicate.
func NewClassifier(falsy reply.FalsyFunc) Classifier {
	return Classifier{Falsy: falsy}
}

func (c Classifier) isFalsy(r reply.Reply) bool {
	if c.Falsy == nil {
		return reply.JSFalsy(r)
	}
	return c.Falsy(r)
}

// Result interprets a reply that carries no payload: "ok" succeeds, a falsy
// string is FalsyResponse, an error envelope is RemoteError and anything else
// is InvalidResponse. The checks run in that order.
func (c Classifier) Result(r reply.Reply) error {
	s, ok := r.AsString()
	if !ok {
		return c.structured(r)
	}
	if s == replyOK {
		return nil
	}
	if c.isFalsy(r) {
		return falsyResponse(r)
	}
	if msg, ok := reply.ErrorEnvelope(s); ok {
		return &Error{Kind: KindRemoteError, Message: msg, Reply: r}
	}
	return invalidResponse(r)
}

// ResultChanged interprets a tri-state reply: "ok" means the change was applied,
// "Not changed" means it was already in place.
func (c Classifier) ResultChanged(r reply.Reply) (bool, error) {
	s, ok := r.AsString()
	if !ok {
		return false, c.structured(r)
	}
	switch s {
	case replyOK:
		return true, nil
	case replyNotChanged:
		return false, nil
	}
	if msg, ok := reply.ErrorEnvelope(s); ok {
		return false, &Error{Kind: KindRemoteError, Message: msg, Reply: r}
	}
	return false, invalidResponse(r)
}

// structured classifies a reply with no string form.
func (c Classifier) structured(r reply.Reply) error {
	if c.StructuredErrors && r.Kind() == reply.KindStructured {
		if msg, ok := reply.ErrorEnvelope(string(r.JSON())); ok {
			return &Error{Kind: KindRemoteError, Message: msg, Reply: r}
		}
	}
	return invalidResponse(r)
}

// Result classifies r with the default truthiness rule.
func Result(r reply.Reply) error { return Classifier{}.Result(r) }

// ResultChanged classifies a tri-state reply.
func ResultChanged(r reply.Reply) (bool, error) { return Classifier{}.ResultChanged(r) }

// Response decodes a typed payload. The host sometimes pre-parses JSON payloads
// and sometimes leaves them encoded as text, so decoding is attempted against the
// structural form first and the string form second. When neither yields T the
// string form is checked for an error envelope.
func Response[T any](r reply.Reply) (T, error) {
	return ResponseWith[T](Classifier{}, r)
}

// ResponseWith is Response using c's handling of structured error replies.
func ResponseWith[T any](c Classifier, r reply.Reply) (T, error) {
	v, structErr := decodePayload[T](r.JSON(), r.IsNull())
	if structErr == nil {
		return v, nil
	}

	s, ok := r.AsString()
	if !ok {
		var zero T
		if err := c.structured(r); errors.Is(err, ErrRemoteError) {
			return zero, err
		}
		return zero, &Error{Kind: KindInvalidResponse, Cause: structErr, Reply: r}
	}

	v, strErr := decodePayload[T]([]byte(s), false)
	if strErr == nil {
		return v, nil
	}

	var zero T
	if msg, ok := reply.ErrorEnvelope(s); ok {
		return zero, &Error{Kind: KindRemoteError, Message: msg, Reply: r}
	}
	return zero, &Error{Kind: KindSerializationError, Cause: strErr, Reply: r}
}

// decodePayload decodes data into T. An error envelope only matches a T that has
// somewhere to put the "error" member, and null only matches a nullable T.
func decodePayload[T any](data []byte, isNull bool) (T, error) {
	var v T
	data = bytes.TrimSpace(data)
	if isNull || bytes.Equal(data, []byte("null")) {
		if !nullable(reflect.TypeOf(&v).Elem()) {
			return v, &json.UnmarshalTypeError{Value: "null", Type: reflect.TypeOf(&v).Elem()}
		}
		return v, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	if reply.IsErrorEnvelope(data) {
		dec.DisallowUnknownFields()
	}
	if err := dec.Decode(&v); err != nil {
		var zero T
		return zero, err
	}
	if _, err := dec.Token(); err != io.EOF {
		var zero T
		return zero, errTrailingData
	}
	return v, nil
}

func nullable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice:
		return true
	default:
		return false
	}
}
