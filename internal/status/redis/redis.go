package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/stayhq/presence-server/internal/status"
)

// Store implements status.Store on a Redis hash plus per-user shadow keys.
type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

// New wraps an existing Redis client. ttl is the shadow-key expiration
// window; zero selects status.DefaultTTL.
func New(rdb *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = status.DefaultTTL
	}
	return &Store{rdb: rdb, ttl: ttl}
}

// SetOnline writes the durable hash field and re-arms the shadow key. The
// hash field has no expiry of its own; only the shadow key does.
func (s *Store) SetOnline(ctx context.Context, userUID string) error {
	if err := s.rdb.HSet(ctx, status.HashKey, userUID, status.Online).Err(); err != nil {
		return fmt.Errorf("hset status: %w", err)
	}
	if err := s.rdb.Set(ctx, status.ShadowKey(userUID), status.Online, s.ttl).Err(); err != nil {
		return fmt.Errorf("set shadow key: %w", err)
	}
	return nil
}

// Delete removes the hash field. HDEL's reply distinguishes a real removal
// from a no-op, which the expiration handler relies on to broadcast offline
// exactly once per user.
func (s *Store) Delete(ctx context.Context, userUID string) (bool, error) {
	removed, err := s.rdb.HDel(ctx, status.HashKey, userUID).Result()
	if err != nil {
		return false, fmt.Errorf("hdel status: %w", err)
	}
	return removed > 0, nil
}

// OnlineUsers returns every user with a presence record.
func (s *Store) OnlineUsers(ctx context.Context) (status.Info, error) {
	fields, err := s.rdb.HGetAll(ctx, status.HashKey).Result()
	if err != nil {
		return nil, fmt.Errorf("hgetall status: %w", err)
	}

	info := make(status.Info, len(fields))
	for uid := range fields {
		info[uid] = status.Online
	}
	return info, nil
}

// Statuses resolves the given uids in one round trip. Users without a record
// come back as offline.
func (s *Store) Statuses(ctx context.Context, userUIDs []string) (status.Info, error) {
	info := make(status.Info, len(userUIDs))
	if len(userUIDs) == 0 {
		return info, nil
	}

	values, err := s.rdb.HMGet(ctx, status.HashKey, userUIDs...).Result()
	if err != nil {
		return nil, fmt.Errorf("hmget status: %w", err)
	}

	for i, uid := range userUIDs {
		if values[i] != nil {
			info[uid] = status.Online
		} else {
			info[uid] = status.Offline
		}
	}
	return info, nil
}
