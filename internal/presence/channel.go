package presence

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/stayhq/presence-server/internal/channel"
	"github.com/stayhq/presence-server/internal/identity"
	"github.com/stayhq/presence-server/internal/proto"
	"github.com/stayhq/presence-server/internal/status"
)

// ChannelName is the envelope target for presence subscriptions.
const ChannelName = "user-status"

// Channel implements online/offline semantics on top of the connection table,
// the status store and the identity oracle.
//
// A tracked connection is either anonymous (no bound identity, receives
// broadcasts, contributes no presence) or identified (bound user uid, keeps a
// presence record alive through liveness acks).
type Channel struct {
	table *channel.Table
	store status.Store
	ids   identity.Oracle
	log   *zerolog.Logger
}

// New constructs the presence channel with an empty connection table.
func New(store status.Store, oracle identity.Oracle, logger *zerolog.Logger) *Channel {
	return &Channel{
		table: channel.NewTable(logger),
		store: store,
		ids:   oracle,
		log:   logger,
	}
}

// Name returns the channel identifier clients subscribe to.
func (c *Channel) Name() string { return ChannelName }

// HandleMessage processes one subscribe or unsubscribe envelope.
//
// Requests without a user uid skip the identity check: an anonymous
// subscriber only observes, so there is nothing to verify. Requests with a
// uid are checked first; a malformed uid closes the connection with 4001, an
// unknown one with 4004.
// Store failures propagate to the gateway, which surfaces them as an
// internal error rather than silently claiming success.
func (c *Channel) HandleMessage(ctx context.Context, conn channel.Conn, env proto.Envelope) error {
	if env.UserUID == "" {
		switch env.ConnectType {
		case proto.ConnectTypeSubscribe:
			return c.subscribe(ctx, conn, "", env.Reset)
		case proto.ConnectTypeUnsubscribe:
			return c.unsubscribe(ctx, conn, "")
		}
		return nil
	}

	exists, err := c.ids.Exists(ctx, env.UserUID)
	if errors.Is(err, identity.ErrMalformedID) {
		c.closeConn(conn, proto.CloseInvalidIdentity, "invalid user_uid format")
		return nil
	}
	if err != nil {
		return fmt.Errorf("identity lookup: %w", err)
	}
	if !exists {
		c.closeConn(conn, proto.CloseNotFound, "user_uid not found")
		return nil
	}

	switch env.ConnectType {
	case proto.ConnectTypeSubscribe:
		return c.subscribe(ctx, conn, env.UserUID, env.Reset)
	case proto.ConnectTypeUnsubscribe:
		return c.unsubscribe(ctx, conn, env.UserUID)
	}
	return nil
}

// subscribe registers conn, and for identified subscribers writes the
// presence record and announces the transition to everyone else before the
// subscriber itself gets its confirmation. The online broadcast is
// process-local; other processes observe the transition through the store.
func (c *Channel) subscribe(ctx context.Context, conn channel.Conn, userUID string, reset bool) error {
	own := status.Info{}
	if userUID != "" {
		if err := c.store.SetOnline(ctx, userUID); err != nil {
			return fmt.Errorf("set online: %w", err)
		}
		own = status.Info{userUID: status.Online}
		c.table.Broadcast(ctx, conn, c.message(own))
	}

	c.table.Register(conn, userUID)

	switch {
	case reset:
		snapshot, err := c.store.OnlineUsers(ctx)
		if err != nil {
			return fmt.Errorf("load snapshot: %w", err)
		}
		c.unicast(ctx, conn, snapshot)
	case userUID != "":
		c.unicast(ctx, conn, own)
	}
	// An anonymous subscribe without reset gets nothing further; it only
	// starts receiving broadcasts.
	return nil
}

// unsubscribe removes the presence record for identified connections and
// announces the offline transition to everyone else. The connection is
// dropped from the table unconditionally and always gets an unsubscribe ack,
// even when it was never tracked.
func (c *Channel) unsubscribe(ctx context.Context, conn channel.Conn, userUID string) error {
	if c.table.Contains(conn) {
		if userUID != "" {
			if _, err := c.store.Delete(ctx, userUID); err != nil {
				return fmt.Errorf("delete status: %w", err)
			}
			c.table.Broadcast(ctx, conn, c.message(status.Info{userUID: status.Offline}))
		}
		c.table.Remove(conn)
	}

	if err := conn.Send(ctx, proto.ServerMessage{Channel: ChannelName, Data: proto.ConnectTypeUnsubscribe}); err != nil {
		c.log.Debug().Err(err).Str("conn_id", conn.ID()).Msg("unsubscribe ack not delivered")
	}
	return nil
}

// HandleExpiration consumes one expired key from the store's notification
// stream. The broadcast goes to every tracked connection with no exclusion:
// the triggering event has no originating connection. Only an actual removal
// broadcasts, so an identity that already left via explicit unsubscribe does
// not produce a second offline event.
//
// Failures here are logged and swallowed: this path runs on the listener
// goroutine and a store hiccup must not stop offline detection.
func (c *Channel) HandleExpiration(ctx context.Context, expiredKey string) {
	userUID, ok := status.UserFromShadowKey(expiredKey)
	if !ok {
		return
	}

	removed, err := c.store.Delete(ctx, userUID)
	if err != nil {
		c.log.Error().Err(err).Str("user_uid", userUID).Msg("expiration cleanup failed")
		return
	}
	if removed {
		c.table.Broadcast(ctx, nil, c.message(status.Info{userUID: status.Offline}))
	}
}

// HandleLivenessAck marks conn alive for the current probe cycle and, for
// identified connections, refreshes the presence record so the shadow key
// does not expire under an active session.
func (c *Channel) HandleLivenessAck(ctx context.Context, conn channel.Conn) {
	userUID, ok := c.table.MarkAlive(conn)
	if !ok {
		c.log.Warn().Str("conn_id", conn.ID()).Msg("liveness ack from untracked connection")
		return
	}
	if userUID != "" {
		if err := c.store.SetOnline(ctx, userUID); err != nil {
			c.log.Error().Err(err).Str("user_uid", userUID).Msg("status refresh failed")
		}
	}
}

// DeleteConnection drops conn from the table on socket disconnect. The
// presence record is left to the shadow-key TTL, same as liveness eviction.
func (c *Channel) DeleteConnection(conn channel.Conn) {
	if userUID, ok := c.table.Remove(conn); ok {
		c.log.Debug().Str("conn_id", conn.ID()).Str("user_uid", userUID).Msg("connection removed")
	}
}

// Tracked returns the current connection table size.
func (c *Channel) Tracked() int {
	return c.table.Len()
}

func (c *Channel) message(info status.Info) proto.ServerMessage {
	return proto.ServerMessage{Channel: ChannelName, Data: info}
}

func (c *Channel) unicast(ctx context.Context, conn channel.Conn, info status.Info) {
	if err := conn.Send(ctx, c.message(info)); err != nil {
		c.log.Debug().Err(err).Str("conn_id", conn.ID()).Msg("unicast send failed")
	}
}

func (c *Channel) closeConn(conn channel.Conn, code int, reason string) {
	if err := conn.Close(code, reason); err != nil {
		c.log.Debug().Err(err).Str("conn_id", conn.ID()).Msg("close failed")
	}
}
