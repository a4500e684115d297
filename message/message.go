// Package message defines the envelope exchanged between the codec service
// and its clients.
//
// A Message is serialized by the codec package and carried in one protocol
// frame.
package message

// Transport-level error kinds. Codec errors travel with their own kinds
// (cannot_parse, truncated_text, ...).
const (
	KindInternal    = "internal"
	KindUnavailable = "unavailable"
	KindTimeout     = "timeout"
	KindRateLimited = "rate_limited"
)

// Message carries a single request or response.
//
//   - Request:  ServiceMethod names the handler ("Codec.Build"), Payload holds the
//     JSON args.
//   - Response: Payload holds the JSON reply. Error is set when the call failed,
//     and Kind classifies it so clients can rebuild a typed error.
type Message struct {
	ServiceMethod string `json:"service_method"`
	Error         string `json:"error,omitempty"`
	Kind          string `json:"kind,omitempty"`
	Payload       []byte `json:"payload,omitempty"`
}

// Failed reports whether the message carries an error.
func (m *Message) Failed() bool {
	return m.Error != ""
}

// Errorf builds an error response of the given kind.
func Errorf(serviceMethod, kind, msg string) *Message {
	return &Message{ServiceMethod: serviceMethod, Kind: kind, Error: msg}
}
