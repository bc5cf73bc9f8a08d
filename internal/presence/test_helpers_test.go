package presence

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/stayhq/presence-server/internal/identity"
	"github.com/stayhq/presence-server/internal/proto"
	"github.com/stayhq/presence-server/internal/status"
)

func testLogger() *zerolog.Logger {
	logger := zerolog.Nop()
	return &logger
}

// fakeConn records everything sent or done to it.
type fakeConn struct {
	id string

	mu          sync.Mutex
	sent        []proto.ServerMessage
	closed      bool
	closeCode   int
	closeReason string

	sendErr error
	pingErr error
}

func newFakeConn(id string) *fakeConn {
	return &fakeConn{id: id}
}

func (c *fakeConn) ID() string { return c.id }

func (c *fakeConn) Send(_ context.Context, msg proto.ServerMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return c.sendErr
	}
	c.sent = append(c.sent, msg)
	return nil
}

func (c *fakeConn) Close(code int, reason string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.closeCode = code
	c.closeReason = reason
	return nil
}

func (c *fakeConn) Ping(_ context.Context) error {
	return c.pingErr
}

func (c *fakeConn) messages() []proto.ServerMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]proto.ServerMessage, len(c.sent))
	copy(out, c.sent)
	return out
}

func (c *fakeConn) drain() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = nil
}

func (c *fakeConn) closedWith() (bool, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed, c.closeCode
}

// statusCount returns how many recorded messages carry the given uid/status pair.
func (c *fakeConn) statusCount(userUID, want string) int {
	count := 0
	for _, msg := range c.messages() {
		info, ok := msg.Data.(status.Info)
		if !ok {
			continue
		}
		if info[userUID] == want {
			count++
		}
	}
	return count
}

// fakeStore is an in-memory status.Store.
type fakeStore struct {
	mu      sync.Mutex
	records map[string]string

	setCalls int
	setErr   error
	delErr   error
	listErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: make(map[string]string)}
}

func (s *fakeStore) SetOnline(_ context.Context, userUID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.setErr != nil {
		return s.setErr
	}
	s.records[userUID] = status.Online
	s.setCalls++
	return nil
}

func (s *fakeStore) Delete(_ context.Context, userUID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.delErr != nil {
		return false, s.delErr
	}
	_, ok := s.records[userUID]
	delete(s.records, userUID)
	return ok, nil
}

func (s *fakeStore) OnlineUsers(_ context.Context) (status.Info, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	info := make(status.Info, len(s.records))
	for uid := range s.records {
		info[uid] = status.Online
	}
	return info, nil
}

func (s *fakeStore) Statuses(_ context.Context, userUIDs []string) (status.Info, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	info := make(status.Info, len(userUIDs))
	for _, uid := range userUIDs {
		if _, ok := s.records[uid]; ok {
			info[uid] = status.Online
		} else {
			info[uid] = status.Offline
		}
	}
	return info, nil
}

func (s *fakeStore) has(userUID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.records[userUID]
	return ok
}

func (s *fakeStore) refreshCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setCalls
}

// fakeOracle knows a fixed set of users and rejects non-UUID input the same
// way the SQLite oracle does.
type fakeOracle struct {
	users map[string]bool
	err   error
}

func (o *fakeOracle) Exists(_ context.Context, userUID string) (bool, error) {
	if o.err != nil {
		return false, o.err
	}
	if _, err := uuid.Parse(userUID); err != nil {
		return false, identity.ErrMalformedID
	}
	return o.users[userUID], nil
}

// newTestChannel builds a channel over fresh fakes with one known user.
func newTestChannel(knownUIDs ...string) (*Channel, *fakeStore) {
	store := newFakeStore()
	users := make(map[string]bool, len(knownUIDs))
	for _, uid := range knownUIDs {
		users[uid] = true
	}
	ch := New(store, &fakeOracle{users: users}, testLogger())
	return ch, store
}

func subscribeEnvelope(userUID string, reset bool) proto.Envelope {
	return proto.Envelope{
		ConnectType: proto.ConnectTypeSubscribe,
		Channel:     ChannelName,
		UserUID:     userUID,
		Reset:       reset,
	}
}

func unsubscribeEnvelope(userUID string) proto.Envelope {
	return proto.Envelope{
		ConnectType: proto.ConnectTypeUnsubscribe,
		Channel:     ChannelName,
		UserUID:     userUID,
	}
}
