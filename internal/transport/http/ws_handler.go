package http

import (
	"context"
	"errors"
	"io"

	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/stayhq/presence-server/internal/gateway"
)

// WSHandler upgrades HTTP connections and feeds inbound frames to the gateway.
type WSHandler struct {
	gw  *gateway.Gateway
	log *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(gw *gateway.Gateway, logger *zerolog.Logger) *WSHandler {
	return &WSHandler{gw: gw, log: logger}
}

// Handle runs one connection from accept to disconnect fan-out. Frames are
// dispatched synchronously from the read loop, so operations for a single
// connection never interleave even though handlers block on store and
// identity I/O.
func (h *WSHandler) Handle(c *gin.Context) {
	ws, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer ws.Close(websocket.StatusInternalError, "internal error")

	conn := &wsConn{id: uuid.NewString(), ws: ws}
	h.log.Debug().Str("conn_id", conn.id).Msg("ws connected")

	// Every registered channel gets the close event, not only the one the
	// connection last talked to.
	defer h.gw.HandleDisconnect(conn)

	ctx := c.Request.Context()
	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			h.logReadExit(conn, err)
			return
		}
		h.gw.HandleMessage(ctx, conn, data)
	}
}

func (h *WSHandler) logReadExit(conn *wsConn, err error) {
	code := websocket.CloseStatus(err)
	switch {
	case code == websocket.StatusNormalClosure || code == websocket.StatusGoingAway:
		h.log.Debug().Str("conn_id", conn.id).Msg("ws closed by peer")
	case code != -1:
		// Includes the 4xxx codes this server issued itself.
		h.log.Debug().Str("conn_id", conn.id).Int("code", int(code)).Msg("ws closed")
	case errors.Is(err, context.Canceled) || errors.Is(err, io.EOF):
		h.log.Debug().Str("conn_id", conn.id).Msg("ws connection gone")
	default:
		h.log.Warn().Err(err).Str("conn_id", conn.id).Msg("ws read failed")
	}
}
