package config

import "time"

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`
	LogFormat         string        `mapstructure:"log_format" yaml:"log_format"`

	// DatabasePath points at the SQLite database holding the users table.
	DatabasePath string `mapstructure:"database_path" yaml:"database_path"`

	RedisAddr     string `mapstructure:"redis_addr" yaml:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password" yaml:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db" yaml:"redis_db"`

	// ConfigureKeyspaceEvents makes the server issue CONFIG SET
	// notify-keyspace-events on startup. Disable when the Redis deployment
	// forbids CONFIG and the notification flags are set out of band.
	ConfigureKeyspaceEvents bool `mapstructure:"configure_keyspace_events" yaml:"configure_keyspace_events"`

	// StatusTTL is the shadow-key expiration window. A presence record for an
	// unreachable session survives at most this long past its last refresh.
	StatusTTL time.Duration `mapstructure:"status_ttl" yaml:"status_ttl"`

	// PingInterval is the liveness probe cycle. A connection that misses one
	// full cycle is evicted from the in-memory table; its store record is left
	// to the shadow-key TTL.
	PingInterval time.Duration `mapstructure:"ping_interval" yaml:"ping_interval"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:                    ":8080",
		ReadHeaderTimeout:       5 * time.Second,
		ShutdownTimeout:         5 * time.Second,
		LogLevel:                "info",
		LogFormat:               "console",
		DatabasePath:            "stay.db",
		RedisAddr:               "localhost:6379",
		RedisDB:                 0,
		ConfigureKeyspaceEvents: true,
		StatusTTL:               15 * time.Second,
		PingInterval:            10 * time.Second,
	}
}
