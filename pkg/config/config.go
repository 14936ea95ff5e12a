package config

import "time"

// Config is the root configuration structure for the rate limiter service.
// It contains the limiter definitions, event storage, telemetry and the
// admin server settings.
type Config struct {
	// RateLimiters contains the default limiter configuration, the named
	// configuration templates and the limiter instances to create.
	RateLimiters RateLimitersConfig `yaml:"ratelimiters"`

	// Events contains configuration for event recording, storage and
	// retention.
	Events EventsConfig `yaml:"events"`

	// Telemetry contains configuration for logging and metrics.
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Server contains configuration for the admin HTTP server.
	Server ServerConfig `yaml:"server"`

	// Watch enables hot reload of the configuration file. Limiter
	// instances are reconciled with the registry on every change.
	// Default: false
	Watch bool `yaml:"watch"`
}

// RateLimitersConfig contains limiter definitions.
type RateLimitersConfig struct {
	// Defaults overrides the built-in limiter defaults
	// (50 permits per 500ms, 5s timeout).
	Defaults LimiterConfig `yaml:"defaults"`

	// Configs contains named configuration templates. Instances refer to
	// them with base_config.
	Configs map[string]LimiterConfig `yaml:"configs"`

	// Instances contains the limiters created at startup, keyed by name.
	Instances map[string]LimiterConfig `yaml:"instances"`

	// Tags are attached to every limiter. Instance tags win on conflict.
	Tags map[string]string `yaml:"tags"`
}

// LimiterConfig describes one limiter or template. Unset fields are
// inherited from the base configuration.
type LimiterConfig struct {
	// BaseConfig is the name of the template this instance starts from.
	// Only valid on instances. Empty means the defaults.
	BaseConfig string `yaml:"base_config"`

	// LimitForPeriod is the number of permits granted per refresh cycle.
	LimitForPeriod int `yaml:"limit_for_period"`

	// LimitRefreshPeriod is the length of a refresh cycle.
	LimitRefreshPeriod time.Duration `yaml:"limit_refresh_period"`

	// TimeoutDuration is the maximum time a caller waits for a permit.
	// A pointer so an explicit 0 (reject immediately) can be told apart
	// from an unset value.
	TimeoutDuration *time.Duration `yaml:"timeout_duration"`

	// Tags are attached to the limiter.
	Tags map[string]string `yaml:"tags"`
}

// EventsConfig contains configuration for limiter event recording.
type EventsConfig struct {
	// Enabled controls whether limiter events are recorded.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Backend specifies the storage backend for events.
	// Options: "memory", "sqlite"
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	// SQLite contains SQLite-specific configuration.
	SQLite SQLiteConfig `yaml:"sqlite"`

	// BufferSize is the size of the async write queue.
	// Default: 1000
	BufferSize int `yaml:"buffer_size"`

	// BatchSize is the maximum number of events per storage write.
	// Default: 100
	BatchSize int `yaml:"batch_size"`

	// WriteTimeout bounds a single storage write.
	// Default: 5s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// Retention contains retention policy configuration.
	Retention RetentionConfig `yaml:"retention"`
}

// SQLiteConfig contains SQLite-specific configuration.
type SQLiteConfig struct {
	// Path is the file path for the SQLite database.
	// Default: "data/events.db"
	Path string `yaml:"path"`

	// Driver selects the database/sql driver.
	// Options: "sqlite" (pure Go), "sqlite3" (cgo)
	// Default: "sqlite"
	Driver string `yaml:"driver"`

	// WALMode enables Write-Ahead Logging mode.
	// Default: true
	WALMode bool `yaml:"wal_mode"`

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// RetentionConfig contains retention policy configuration.
type RetentionConfig struct {
	// MaxAge is how long events are kept. 0 keeps them forever.
	// Default: 168h (7 days)
	MaxAge time.Duration `yaml:"max_age"`

	// MaxRecords is the maximum number of events to keep.
	// 0 means unlimited.
	// Default: 0
	MaxRecords int64 `yaml:"max_records"`

	// PruneSchedule is a cron expression for scheduling pruning.
	// Default: "0 3 * * *" (daily at 3 AM)
	PruneSchedule string `yaml:"prune_schedule"`
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains metrics collection configuration.
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text", "console"
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig contains metrics collection configuration.
type MetricsConfig struct {
	// Enabled controls whether limiter metrics are exported.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP path for the Prometheus metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name prefix.
	// Default: "ratelimiter"
	Namespace string `yaml:"namespace"`
}

// ServerConfig contains configuration for the admin HTTP server.
type ServerConfig struct {
	// ListenAddress is the address and port to listen on.
	// Default: "127.0.0.1:9090"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading a request.
	// Default: 10s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration for writing a response.
	// Default: 10s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the keep-alive idle timeout.
	// Default: 60s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	// Default: 15s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// RateLimiter names a configured limiter instance that throttles admin
	// API requests. Empty disables throttling.
	RateLimiter string `yaml:"rate_limiter"`
}
