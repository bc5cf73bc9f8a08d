package http

import (
	"context"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/stayhq/presence-server/internal/proto"
)

// writeTimeout caps a single outbound frame write. A stalled peer must not
// block a broadcast indefinitely.
const writeTimeout = 5 * time.Second

// wsConn adapts a websocket connection to channel.Conn. Writes are serialized
// through the mutex: broadcasts, unicasts and acks can originate from
// different goroutines.
type wsConn struct {
	id string
	ws *websocket.Conn
	mu sync.Mutex
}

func (c *wsConn) ID() string { return c.id }

func (c *wsConn) Send(ctx context.Context, msg proto.ServerMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, c.ws, msg)
}

func (c *wsConn) Close(code int, reason string) error {
	return c.ws.Close(websocket.StatusCode(code), reason)
}

// Ping blocks until the peer acks or ctx expires. The concurrent read loop
// processes the pong control frame.
func (c *wsConn) Ping(ctx context.Context) error {
	return c.ws.Ping(ctx)
}
