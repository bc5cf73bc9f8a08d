package channel

import (
	"context"

	"github.com/stayhq/presence-server/internal/proto"
)

// Conn is the capability a channel needs from a live socket. The transport
// layer provides the real implementation; tests substitute in-memory fakes.
type Conn interface {
	// ID returns an opaque identifier for logging.
	ID() string
	// Send writes one outbound frame. Returns an error if the socket is
	// closed or the write fails.
	Send(ctx context.Context, msg proto.ServerMessage) error
	// Close terminates the connection with a close code and reason.
	Close(code int, reason string) error
	// Ping sends a protocol-level ping and blocks until the ack or ctx expiry.
	Ping(ctx context.Context) error
}

// Channel routes envelope messages for one named target and exclusively owns
// its connection table.
type Channel interface {
	// Name is the channel identifier clients put in the envelope.
	Name() string
	// HandleMessage processes one parsed envelope for conn. A returned error
	// means the operation failed server-side; the gateway closes the
	// connection with an internal error code.
	HandleMessage(ctx context.Context, conn Conn, env proto.Envelope) error
	// DeleteConnection drops conn from the channel's table if present. Called
	// for every registered channel when a socket disconnects.
	DeleteConnection(conn Conn)
}

// LivenessTracker is implemented by channels that track connection liveness.
// The gateway forwards protocol-level ping acks to every registered channel
// implementing it.
type LivenessTracker interface {
	HandleLivenessAck(ctx context.Context, conn Conn)
}
