package gateway

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/stayhq/presence-server/internal/channel"
	"github.com/stayhq/presence-server/internal/proto"
)

// Gateway dispatches inbound envelopes to the channel named in each frame.
// The registry is built once at construction and never mutated, so channel
// resolution needs no locking; an unregistered name can only come from a
// buggy or malicious client and is answered with a 4004 close.
type Gateway struct {
	channels map[string]channel.Channel
	liveness []channel.LivenessTracker
	log      *zerolog.Logger
}

// New builds the gateway over a fixed set of channels. Registering two
// channels under one name, or a channel with an empty name, is a wiring bug
// and fails construction.
func New(logger *zerolog.Logger, channels ...channel.Channel) (*Gateway, error) {
	registry := make(map[string]channel.Channel, len(channels))
	var trackers []channel.LivenessTracker

	for _, ch := range channels {
		name := ch.Name()
		if name == "" {
			return nil, fmt.Errorf("channel with empty name")
		}
		if _, dup := registry[name]; dup {
			return nil, fmt.Errorf("duplicate channel %q", name)
		}
		registry[name] = ch
		if tracker, ok := ch.(channel.LivenessTracker); ok {
			trackers = append(trackers, tracker)
		}
	}

	return &Gateway{
		channels: registry,
		liveness: trackers,
		log:      logger,
	}, nil
}

// HandleMessage parses one raw inbound frame and dispatches it. A frame that
// does not parse leaves the connection in an unusable state and is answered
// with 1011; there is no error reply and no retry. Channel handler errors
// (store failures during subscribe/unsubscribe) also close with 1011 so the
// client never mistakes a failed operation for success.
func (g *Gateway) HandleMessage(ctx context.Context, conn channel.Conn, raw []byte) {
	env, err := proto.ParseEnvelope(raw)
	if err != nil {
		g.log.Error().Err(err).Str("conn_id", conn.ID()).Msg("unparseable envelope")
		g.closeConn(conn, proto.CloseInternalError, "internal server error")
		return
	}

	ch, ok := g.channels[env.Channel]
	if !ok {
		g.log.Warn().Str("conn_id", conn.ID()).Str("channel", env.Channel).Msg("subscription to unknown channel")
		g.closeConn(conn, proto.CloseNotFound, "bad subscription request")
		return
	}

	if err := ch.HandleMessage(ctx, conn, env); err != nil {
		g.log.Error().Err(err).Str("conn_id", conn.ID()).Str("channel", env.Channel).Msg("channel handler failed")
		g.closeConn(conn, proto.CloseInternalError, "internal server error")
	}
}

// HandleDisconnect fans the close event out to every registered channel, not
// only the one the connection last used, so a connection cannot leak
// membership in a channel it subscribed to earlier.
func (g *Gateway) HandleDisconnect(conn channel.Conn) {
	for _, ch := range g.channels {
		ch.DeleteConnection(conn)
	}
}

// HandleLivenessAck forwards a protocol-level ping ack to every channel that
// tracks liveness.
func (g *Gateway) HandleLivenessAck(ctx context.Context, conn channel.Conn) {
	for _, tracker := range g.liveness {
		tracker.HandleLivenessAck(ctx, conn)
	}
}

func (g *Gateway) closeConn(conn channel.Conn, code int, reason string) {
	if err := conn.Close(code, reason); err != nil {
		g.log.Debug().Err(err).Str("conn_id", conn.ID()).Msg("close failed")
	}
}
