package commsutil

import "encoding/json"

// EncodePayload serializes a command or event envelope to JSON bytes.
func EncodePayload(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

// DecodePayload deserializes an envelope received over COMMS.
func DecodePayload(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}
