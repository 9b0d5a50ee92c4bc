package reply

import (
	"encoding/json"
	"math"
)

// FalsyFunc decides whether a reply counts as "no data" under the host's truthiness rules.
type FalsyFunc func(Reply) bool

// Truthiness is implemented by bridges that define their own falsy rule.
type Truthiness interface {
	IsFalsy(Reply) bool
}

// JSFalsy applies JavaScript truthiness, which is what the ZeroFrame host uses:
// null, false, 0, NaN and the empty string are falsy. Objects and arrays never are.
func JSFalsy(r Reply) bool {
	switch r.kind {
	case KindNull:
		return true
	case KindString:
		return r.str == ""
	case KindNumber:
		return r.num == 0 || math.IsNaN(r.num)
	case KindBool:
		return !r.b
	default:
		return false
	}
}

// PyFalsy applies Python truthiness, which is what the UiWebsocket server uses when
// it answers directly: like JSFalsy, plus empty objects and arrays.
func PyFalsy(r Reply) bool {
	if r.kind != KindStructured {
		return JSFalsy(r)
	}
	var v any
	if err := json.Unmarshal(r.raw, &v); err != nil {
		return false
	}
	switch t := v.(type) {
	case map[string]any:
		return len(t) == 0
	case []any:
		return len(t) == 0
	default:
		return false
	}
}

// EmptyStringFalsy treats only the empty string as falsy.
func EmptyStringFalsy(r Reply) bool {
	s, ok := r.AsString()
	return ok && s == ""
}

// ErrorEnvelope parses text as an error envelope: a JSON object with a string "error" field.
// Extra fields are tolerated; a missing, null or non-string "error" is not an envelope.
func ErrorEnvelope(text string) (string, bool) {
	return envelopeMessage([]byte(text))
}

// IsErrorEnvelope reports whether data is exactly an error envelope object.
func IsErrorEnvelope(data []byte) bool {
	_, ok := envelopeMessage(data)
	return ok
}

// envelopeMessage matches the "error" key exactly; encoding/json struct tags
// would also accept "Error" or "ERROR".
func envelopeMessage(data []byte) (string, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return "", false
	}
	raw, ok := fields["error"]
	if !ok || string(raw) == "null" {
		return "", false
	}
	var msg string
	if err := json.Unmarshal(raw, &msg); err != nil {
		return "", false
	}
	return msg, true
}
