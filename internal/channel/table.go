package channel

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/stayhq/presence-server/internal/proto"
)

type tracked struct {
	conn    Conn
	userUID string // empty for anonymous observers
	alive   bool
}

// Table is the connection table owned by a single channel. All mutation goes
// through the table mutex; broadcasts are issued under the same mutex so each
// connection sees them in the order the channel produced them.
type Table struct {
	mu    sync.Mutex
	conns map[Conn]*tracked
	log   *zerolog.Logger
}

// NewTable constructs an empty connection table.
func NewTable(logger *zerolog.Logger) *Table {
	return &Table{
		conns: make(map[Conn]*tracked),
		log:   logger,
	}
}

// Register inserts or rebinds conn. The liveness flag starts true so a fresh
// subscriber survives the probe cycle already in flight.
func (t *Table) Register(conn Conn, userUID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.conns[conn] = &tracked{conn: conn, userUID: userUID, alive: true}
}

// Remove deletes conn from the table. Reports the bound user uid and whether
// the connection was tracked.
func (t *Table) Remove(conn Conn) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	meta, ok := t.conns[conn]
	if !ok {
		return "", false
	}
	delete(t.conns, conn)
	return meta.userUID, true
}

// Contains reports whether conn is tracked.
func (t *Table) Contains(conn Conn) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.conns[conn]
	return ok
}

// Len returns the number of tracked connections.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.conns)
}

// MarkAlive flips the liveness flag back on after a probe ack. Reports the
// bound user uid and whether the connection was tracked.
func (t *Table) MarkAlive(conn Conn) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	meta, ok := t.conns[conn]
	if !ok {
		return "", false
	}
	meta.alive = true
	return meta.userUID, true
}

// Sweep runs one liveness cycle: connections that never acked the previous
// probe are evicted and returned in dead; the rest have their flag cleared
// and are returned in probe, to be pinged by the caller.
func (t *Table) Sweep() (dead, probe []Conn) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for conn, meta := range t.conns {
		if !meta.alive {
			delete(t.conns, conn)
			dead = append(dead, conn)
			continue
		}
		meta.alive = false
		probe = append(probe, conn)
	}
	return dead, probe
}

// Broadcast sends msg to every tracked connection except exclude (pass nil to
// reach everyone). Send failures mean the socket is no longer open and are
// logged at debug level only; the disconnect path will reap the connection.
func (t *Table) Broadcast(ctx context.Context, exclude Conn, msg proto.ServerMessage) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for conn := range t.conns {
		if exclude != nil && conn == exclude {
			continue
		}
		if err := conn.Send(ctx, msg); err != nil {
			t.log.Debug().Err(err).Str("conn_id", conn.ID()).Msg("broadcast send skipped")
		}
	}
}
