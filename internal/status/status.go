package status

import (
	"context"
	"strings"
	"time"
)

// Store key layout. The hash holds one field per online user and never
// expires; each user additionally gets a disposable shadow key under
// ShadowKeyPrefix whose TTL elapsing is the offline trigger.
const (
	HashKey         = "stay:user:status"
	ShadowKeyPrefix = HashKey + ":ttl:"
)

// DefaultTTL is the shadow-key expiration window.
const DefaultTTL = 15 * time.Second

// User status values as stored and broadcast.
const (
	Online  = "online"
	Offline = "offline"
)

// Info maps user uids to their status, the payload of every presence
// broadcast and snapshot.
type Info map[string]string

// Store is the presence side of the shared key/value service.
type Store interface {
	// SetOnline writes the durable hash field and refreshes the shadow key
	// for userUID. Called on subscribe and on every accepted liveness ack.
	SetOnline(ctx context.Context, userUID string) error
	// Delete removes the durable hash field. Reports whether a record was
	// actually removed, so callers can suppress duplicate offline broadcasts.
	Delete(ctx context.Context, userUID string) (bool, error)
	// OnlineUsers returns the full current snapshot.
	OnlineUsers(ctx context.Context) (Info, error)
	// Statuses resolves the given uids; absent users map to Offline.
	Statuses(ctx context.Context, userUIDs []string) (Info, error)
}

// ShadowKey builds the expiring key paired with userUID's hash field.
func ShadowKey(userUID string) string {
	return ShadowKeyPrefix + userUID
}

// UserFromShadowKey extracts the user uid from an expired key name. Returns
// false for keys outside the shadow namespace; the expiration stream carries
// every expired key in the database, not only ours.
func UserFromShadowKey(key string) (string, bool) {
	uid, found := strings.CutPrefix(key, ShadowKeyPrefix)
	if !found || uid == "" {
		return "", false
	}
	return uid, true
}
