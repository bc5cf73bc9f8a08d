package presence

import (
	"context"
	"time"

	"github.com/stayhq/presence-server/internal/channel"
)

// DefaultPingInterval is the liveness probe cycle.
const DefaultPingInterval = 10 * time.Second

// RunProber drives the liveness cycle until ctx is cancelled. Each tick
// evicts connections that never acked the previous probe and pings the rest.
//
// Eviction does not touch the status store: the presence record for a dead
// session is reclaimed by the shadow-key TTL, at most one TTL window after
// its last refresh. That window debounces transient disconnects against hash
// churn; tune it via the status TTL, not by deleting here.
func (c *Channel) RunProber(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultPingInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.probe(ctx, interval)
		}
	}
}

func (c *Channel) probe(ctx context.Context, timeout time.Duration) {
	dead, alive := c.table.Sweep()

	for _, conn := range dead {
		c.log.Info().Str("conn_id", conn.ID()).Msg("evicting unresponsive connection")
	}

	// Pings block until the ack arrives, so each runs on its own goroutine;
	// the ack feeds back through HandleLivenessAck before the next sweep.
	for _, conn := range alive {
		go c.pingConn(ctx, conn, timeout)
	}
}

func (c *Channel) pingConn(ctx context.Context, conn channel.Conn, timeout time.Duration) {
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := conn.Ping(pingCtx); err != nil {
		c.log.Debug().Err(err).Str("conn_id", conn.ID()).Msg("liveness probe unanswered")
		return
	}
	c.HandleLivenessAck(ctx, conn)
}
