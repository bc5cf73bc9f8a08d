package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// notifyKeyspaceFlags enables keyevent notifications for expired keys.
const notifyKeyspaceFlags = "Ex"

// Listener consumes the keyevent expiration stream and hands every expired
// key name to the registered handler. The handler must tolerate keys outside
// the shadow namespace; the stream carries every expiry in the database.
type Listener struct {
	rdb       *redis.Client
	db        int
	configure bool
	handler   func(ctx context.Context, expiredKey string)
	log       *zerolog.Logger
}

// NewListener builds a listener for the given database index. When configure
// is set, Run issues CONFIG SET notify-keyspace-events before subscribing;
// deployments that forbid CONFIG must set the flags out of band.
func NewListener(rdb *redis.Client, db int, configure bool, handler func(ctx context.Context, expiredKey string), logger *zerolog.Logger) *Listener {
	return &Listener{
		rdb:       rdb,
		db:        db,
		configure: configure,
		handler:   handler,
		log:       logger,
	}
}

// Run subscribes and blocks until ctx is cancelled or the subscription dies.
// Handler panics or store failures inside the handler must not reach this
// loop; a dead listener means offline detection stops cluster-wide.
func (l *Listener) Run(ctx context.Context) error {
	if l.configure {
		if err := l.rdb.ConfigSet(ctx, "notify-keyspace-events", notifyKeyspaceFlags).Err(); err != nil {
			return fmt.Errorf("configure keyspace events: %w", err)
		}
	}

	channel := fmt.Sprintf("__keyevent@%d__:expired", l.db)
	pubsub := l.rdb.Subscribe(ctx, channel)
	defer pubsub.Close()

	// Force the subscription before reporting ready.
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", channel, err)
	}

	l.log.Info().Str("channel", channel).Msg("expiration listener started")

	messages := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			l.handler(ctx, msg.Payload)
		}
	}
}
