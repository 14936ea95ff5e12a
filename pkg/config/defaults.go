package config

import "time"

// Default values for configuration fields.
const (
	// Server defaults
	DefaultListenAddress   = "127.0.0.1:9090"
	DefaultReadTimeout     = 10 * time.Second
	DefaultWriteTimeout    = 10 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 15 * time.Second

	// Events defaults
	DefaultEventsEnabled           = false
	DefaultEventsBackend           = "sqlite"
	DefaultEventsSQLitePath        = "data/events.db"
	DefaultEventsSQLiteDriver      = "sqlite"
	DefaultEventsSQLiteWALMode     = true
	DefaultEventsSQLiteBusyTimeout = 5 * time.Second
	DefaultEventsBufferSize        = 1000
	DefaultEventsBatchSize         = 100
	DefaultEventsWriteTimeout      = 5 * time.Second
	DefaultEventsRetentionMaxAge   = 7 * 24 * time.Hour
	DefaultEventsRetentionSchedule = "0 3 * * *"

	// Telemetry defaults
	DefaultLoggingLevel     = "info"
	DefaultLoggingFormat    = "json"
	DefaultMetricsEnabled   = true
	DefaultMetricsPath      = "/metrics"
	DefaultMetricsNamespace = "ratelimiter"
)

// Default returns a configuration with every default applied, including
// the defaults whose zero value is meaningful (booleans and a retention
// max_age of 0). LoadConfig decodes the file on top of it.
func Default() *Config {
	cfg := &Config{}
	cfg.Events.SQLite.WALMode = DefaultEventsSQLiteWALMode
	cfg.Telemetry.Metrics.Enabled = DefaultMetricsEnabled
	cfg.Events.Retention.MaxAge = DefaultEventsRetentionMaxAge
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults applies default values to a Config struct.
// It sets defaults for any fields that have zero values.
// This function is idempotent and safe to call multiple times.
//
// Limiter fields are not filled in here: unset limiter fields are
// inherited during resolution (see RateLimitersConfig.Resolve).
func ApplyDefaults(cfg *Config) {
	// Server defaults
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}

	// Events defaults
	if cfg.Events.Backend == "" {
		cfg.Events.Backend = DefaultEventsBackend
	}
	if cfg.Events.SQLite.Path == "" {
		cfg.Events.SQLite.Path = DefaultEventsSQLitePath
	}
	if cfg.Events.SQLite.Driver == "" {
		cfg.Events.SQLite.Driver = DefaultEventsSQLiteDriver
	}
	if cfg.Events.SQLite.BusyTimeout == 0 {
		cfg.Events.SQLite.BusyTimeout = DefaultEventsSQLiteBusyTimeout
	}
	if cfg.Events.BufferSize == 0 {
		cfg.Events.BufferSize = DefaultEventsBufferSize
	}
	if cfg.Events.BatchSize == 0 {
		cfg.Events.BatchSize = DefaultEventsBatchSize
	}
	if cfg.Events.WriteTimeout == 0 {
		cfg.Events.WriteTimeout = DefaultEventsWriteTimeout
	}

	// Retention defaults
	if cfg.Events.Retention.PruneSchedule == "" {
		cfg.Events.Retention.PruneSchedule = DefaultEventsRetentionSchedule
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
}
