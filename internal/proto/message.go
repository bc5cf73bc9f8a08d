package proto

import "encoding/json"

// Connect types accepted in the inbound envelope.
const (
	ConnectTypeSubscribe   = "subscribe"
	ConnectTypeUnsubscribe = "unsubscribe"
)

// Close codes sent when a connection is rejected.
const (
	// CloseInvalidIdentity rejects a user_uid that is not a well-formed UUID.
	CloseInvalidIdentity = 4001
	// CloseNotFound rejects an unknown user_uid or an unregistered channel name.
	CloseNotFound = 4004
	// CloseInternalError terminates a connection after a protocol or server failure.
	CloseInternalError = 1011
)

// Envelope is the inbound frame for every channel operation.
type Envelope struct {
	ConnectType string `json:"connect_type"`
	Channel     string `json:"channel"`
	UserUID     string `json:"user_uid,omitempty"`
	Reset       bool   `json:"reset,omitempty"`
}

// ParseEnvelope decodes a raw inbound frame.
func ParseEnvelope(raw []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, err
	}
	return env, nil
}

// ServerMessage is the outbound frame for broadcasts, unicasts and acks.
// Data is either a map of user uid to status or a bare connect-type string
// acknowledging the request.
type ServerMessage struct {
	Channel string `json:"channel"`
	Data    any    `json:"data"`
}
