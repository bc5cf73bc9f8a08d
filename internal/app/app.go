package app

import (
	"context"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/stayhq/presence-server/internal/config"
	"github.com/stayhq/presence-server/internal/gateway"
	idsqlite "github.com/stayhq/presence-server/internal/identity/sqlite"
	"github.com/stayhq/presence-server/internal/presence"
	statusredis "github.com/stayhq/presence-server/internal/status/redis"
	transporthttp "github.com/stayhq/presence-server/internal/transport/http"
)

// App wires the presence channel, gateway and transport together.
type App struct {
	server          *stdhttp.Server
	listener        *statusredis.Listener
	presenceChannel *presence.Channel
	oracle          *idsqlite.Oracle
	rdb             *redis.Client
	pingInterval    time.Duration
	shutdownTimeout time.Duration
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(cfg config.Config, logger *zerolog.Logger) (*App, error) {
	oracle, err := idsqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("init identity oracle: %w", err)
	}
	logger.Info().Str("db_path", cfg.DatabasePath).Msg("identity database opened")

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		oracle.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	logger.Info().Str("redis_addr", cfg.RedisAddr).Int("redis_db", cfg.RedisDB).Msg("status store connected")

	store := statusredis.New(rdb, cfg.StatusTTL)
	presenceChannel := presence.New(store, oracle, logger)

	gw, err := gateway.New(logger, presenceChannel)
	if err != nil {
		oracle.Close()
		rdb.Close()
		return nil, fmt.Errorf("build gateway: %w", err)
	}

	listener := statusredis.NewListener(rdb, cfg.RedisDB, cfg.ConfigureKeyspaceEvents, presenceChannel.HandleExpiration, logger)
	server := transporthttp.NewServer(gw, store, cfg, logger)

	return &App{
		server:          server,
		listener:        listener,
		presenceChannel: presenceChannel,
		oracle:          oracle,
		rdb:             rdb,
		pingInterval:    cfg.PingInterval,
		shutdownTimeout: cfg.ShutdownTimeout,
		log:             logger,
	}, nil
}

// Run starts the HTTP server, the liveness prober and the expiration
// listener, and blocks until context cancellation or fatal error. A dying
// expiration listener is fatal: without it offline detection stops
// cluster-wide.
func (a *App) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	fatal := make(chan error, 2)

	go a.presenceChannel.RunProber(runCtx, a.pingInterval)

	go func() {
		if err := a.listener.Run(runCtx); err != nil && ctx.Err() == nil {
			fatal <- fmt.Errorf("expiration listener: %w", err)
			return
		}
		fatal <- nil
	}()

	go func() {
		if err := a.server.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
			fatal <- err
			return
		}
		fatal <- nil
	}()

	select {
	case err := <-fatal:
		a.cleanup()
		return err
	case <-ctx.Done():
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancelShutdown()

		a.log.Info().Msg("shutting down http server")
		err := a.server.Shutdown(shutdownCtx)
		a.cleanup()
		return err
	}
}

// cleanup closes the identity database and the Redis client.
func (a *App) cleanup() {
	if err := a.oracle.Close(); err != nil {
		a.log.Warn().Err(err).Msg("failed to close identity database")
	}
	if err := a.rdb.Close(); err != nil {
		a.log.Warn().Err(err).Msg("failed to close redis client")
	}
}
