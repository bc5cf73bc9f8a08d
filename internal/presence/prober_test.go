package presence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestProbeEvictsSilentConnectionWithoutStoreMutation(t *testing.T) {
	ctx := context.Background()
	u1 := uuid.NewString()
	ch, store := newTestChannel(u1)

	conn := newFakeConn("c")
	conn.pingErr = errors.New("no pong")
	if err := ch.HandleMessage(ctx, conn, subscribeEnvelope(u1, false)); err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	// First cycle clears the flag and pings; the ping fails, so no ack comes
	// back before the second cycle.
	ch.probe(ctx, 100*time.Millisecond)
	if ch.Tracked() != 1 {
		t.Fatal("connection evicted too early")
	}

	ch.probe(ctx, 100*time.Millisecond)
	if ch.Tracked() != 0 {
		t.Fatal("silent connection must be evicted on the second cycle")
	}

	// Eviction is table-only; the record is left to the shadow-key TTL.
	if !store.has(u1) {
		t.Fatal("eviction must not touch the status store")
	}
}

func TestProbeKeepsResponsiveConnectionAndRefreshes(t *testing.T) {
	ctx := context.Background()
	u1 := uuid.NewString()
	ch, store := newTestChannel(u1)

	conn := newFakeConn("c")
	if err := ch.HandleMessage(ctx, conn, subscribeEnvelope(u1, false)); err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	before := store.refreshCount()

	ch.probe(ctx, time.Second)
	waitFor(t, func() bool { return store.refreshCount() > before }, "ack never refreshed the record")

	ch.probe(ctx, time.Second)
	if ch.Tracked() != 1 {
		t.Fatal("responsive connection must stay tracked")
	}
}

func TestRunProberStopsOnContextCancel(t *testing.T) {
	ch, _ := newTestChannel()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		ch.RunProber(ctx, 10*time.Millisecond)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("prober did not stop on cancel")
	}
}
