// Package reply models the untyped value a bridge returns for a command, before classification.
package reply

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Kind identifies which variant of the reply union is populated.
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindBool
	KindStructured
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindStructured:
		return "structured"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Reply is a closed tagged union over the shapes a host bridge can deliver:
// null, string, number, boolean or a structured object/array kept as raw JSON.
// The zero value is a null reply.
type Reply struct {
	kind Kind
	str  string
	num  float64
	b    bool
	raw  json.RawMessage
}

// Null returns the null reply.
func Null() Reply { return Reply{kind: KindNull} }

// String returns a string reply.
func String(s string) Reply { return Reply{kind: KindString, str: s} }

// Number returns a numeric reply.
func Number(f float64) Reply { return Reply{kind: KindNumber, num: f} }

// Bool returns a boolean reply.
func Bool(b bool) Reply { return Reply{kind: KindBool, b: b} }

// Structured returns a reply wrapping an object or array already encoded as JSON.
// Any other JSON value is routed to its scalar variant instead.
func Structured(raw json.RawMessage) Reply {
	return FromJSON(raw)
}

// FromJSON classifies wire JSON by its leading token. Empty or invalid input maps to
// null, except for undecodable strings and numbers which keep their raw text as a string.
func FromJSON(raw json.RawMessage) Reply {
	data := bytes.TrimSpace(raw)
	if len(data) == 0 {
		return Null()
	}

	switch data[0] {
	case 'n':
		return Null()
	case 't':
		return Bool(true)
	case 'f':
		return Bool(false)
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return String(string(data))
		}
		return String(s)
	case '{', '[':
		cp := make(json.RawMessage, len(data))
		copy(cp, data)
		return Reply{kind: KindStructured, raw: cp}
	default:
		f, err := strconv.ParseFloat(string(data), 64)
		if err != nil {
			return String(string(data))
		}
		r := Number(f)
		r.raw = append(json.RawMessage(nil), data...)
		return r
	}
}

// FromValue converts an in-memory Go value into a reply by encoding it as JSON.
func FromValue(v any) (Reply, error) {
	switch t := v.(type) {
	case nil:
		return Null(), nil
	case Reply:
		return t, nil
	case string:
		return String(t), nil
	case bool:
		return Bool(t), nil
	case json.RawMessage:
		return FromJSON(t), nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return Null(), err
	}
	return FromJSON(data), nil
}

// Kind reports the populated variant.
func (r Reply) Kind() Kind { return r.kind }

// IsNull reports whether the reply is null.
func (r Reply) IsNull() bool { return r.kind == KindNull }

// AsString returns the string form of the reply. Only the string variant has one.
func (r Reply) AsString() (string, bool) {
	if r.kind != KindString {
		return "", false
	}
	return r.str, true
}

// AsNumber returns the numeric value of a number reply.
func (r Reply) AsNumber() (float64, bool) {
	if r.kind != KindNumber {
		return 0, false
	}
	return r.num, true
}

// AsBool returns the value of a boolean reply.
func (r Reply) AsBool() (bool, bool) {
	if r.kind != KindBool {
		return false, false
	}
	return r.b, true
}

// JSON returns the structural form of the reply, suitable for direct decoding.
func (r Reply) JSON() json.RawMessage {
	switch r.kind {
	case KindString:
		data, _ := json.Marshal(r.str)
		return data
	case KindNumber:
		if len(r.raw) > 0 {
			return r.raw
		}
		if math.IsNaN(r.num) || math.IsInf(r.num, 0) {
			return json.RawMessage("null")
		}
		return json.RawMessage(strconv.FormatFloat(r.num, 'g', -1, 64))
	case KindBool:
		if r.b {
			return json.RawMessage("true")
		}
		return json.RawMessage("false")
	case KindStructured:
		return r.raw
	default:
		return json.RawMessage("null")
	}
}

// MarshalJSON encodes the reply as the JSON value it wraps.
func (r Reply) MarshalJSON() ([]byte, error) {
	return r.JSON(), nil
}

// UnmarshalJSON decodes any JSON value into the matching variant.
func (r *Reply) UnmarshalJSON(data []byte) error {
	*r = FromJSON(data)
	return nil
}

func (r Reply) String() string {
	if s, ok := r.AsString(); ok {
		return strconv.Quote(s)
	}
	return string(r.JSON())
}
