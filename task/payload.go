package task

import "encoding/json"

// Encode marshals v into a Task's Payload using JSON.
//
// Handlers are keyed by Kind, so the concrete payload shape is a
// contract between a Pusher call site and the registered handler for
// that Kind; Encode/Decode do not attempt to validate it further.
func Encode[T any](v T) ([]byte, error) {
	return json.Marshal(v)
}

// Decode unmarshals a Task's Payload into T.
//
// Decode returns the zero value of T and the unmarshaling error if
// Payload does not match the shape of T.
func Decode[T any](payload []byte) (T, error) {
	var v T
	err := json.Unmarshal(payload, &v)
	return v, err
}
