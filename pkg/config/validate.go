package config

import (
	"fmt"
	"maps"
	"net"
	"slices"
	"strings"

	"github.com/robfig/cron/v3"

	"mercator-hq/ratelimiter/pkg/ratelimiter"
	"mercator-hq/ratelimiter/pkg/ratelimiter/storage"
	"mercator-hq/ratelimiter/pkg/telemetry/logging"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "server.listen_address").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "configuration validation failed with %d errors:\n", len(e.Errors))
	for _, err := range e.Errors {
		fmt.Fprintf(&sb, "  - %s\n", err.Error())
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. All validation errors are collected and
// returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateRateLimiters(&cfg.RateLimiters)...)
	errs = append(errs, validateEvents(&cfg.Events)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)
	errs = append(errs, validateServer(&cfg.Server, &cfg.RateLimiters)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

func validateRateLimiters(cfg *RateLimitersConfig) []FieldError {
	var errs []FieldError

	if err := cfg.DefaultLimiter().Validate(); err != nil {
		errs = append(errs, FieldError{Field: "ratelimiters.defaults", Message: err.Error()})
	}
	if cfg.Defaults.BaseConfig != "" {
		errs = append(errs, FieldError{
			Field:   "ratelimiters.defaults.base_config",
			Message: "defaults cannot have a base config",
		})
	}

	for _, name := range slices.Sorted(maps.Keys(cfg.Configs)) {
		tmpl := cfg.Configs[name]
		field := "ratelimiters.configs." + name
		if name == ratelimiter.DefaultConfigName {
			errs = append(errs, FieldError{Field: field, Message: "name is reserved for the defaults"})
			continue
		}
		if tmpl.BaseConfig != "" {
			errs = append(errs, FieldError{Field: field + ".base_config", Message: "templates cannot have a base config"})
		}
		errs = append(errs, validateLimiterFields(field, tmpl)...)
		if resolved, err := cfg.Template(name); err == nil {
			if err := resolved.Validate(); err != nil {
				errs = append(errs, FieldError{Field: field, Message: err.Error()})
			}
		}
	}

	for _, name := range cfg.InstanceNames() {
		field := "ratelimiters.instances." + name
		inst := cfg.Instances[name]
		if strings.TrimSpace(name) == "" {
			errs = append(errs, FieldError{Field: "ratelimiters.instances", Message: "instance name must not be empty"})
			continue
		}
		errs = append(errs, validateLimiterFields(field, inst)...)

		resolved, err := cfg.Resolve(name)
		if err != nil {
			errs = append(errs, FieldError{
				Field:   field + ".base_config",
				Message: fmt.Sprintf("unknown configuration %q", inst.BaseConfig),
			})
			continue
		}
		if err := resolved.Validate(); err != nil {
			errs = append(errs, FieldError{Field: field, Message: err.Error()})
		}
	}

	return errs
}

// validateLimiterFields rejects negative overrides, which resolution
// would otherwise pass through to the limiter.
func validateLimiterFields(field string, lc LimiterConfig) []FieldError {
	var errs []FieldError
	if lc.LimitForPeriod < 0 {
		errs = append(errs, FieldError{Field: field + ".limit_for_period", Message: "must be positive"})
	}
	if lc.LimitRefreshPeriod < 0 {
		errs = append(errs, FieldError{Field: field + ".limit_refresh_period", Message: "must be positive"})
	}
	if lc.TimeoutDuration != nil && *lc.TimeoutDuration < 0 {
		errs = append(errs, FieldError{Field: field + ".timeout_duration", Message: "must not be negative"})
	}
	return errs
}

func validateEvents(cfg *EventsConfig) []FieldError {
	var errs []FieldError

	switch cfg.Backend {
	case "memory":
	case "sqlite":
		if cfg.SQLite.Path == "" {
			errs = append(errs, FieldError{Field: "events.sqlite.path", Message: "path is required for the sqlite backend"})
		}
		if cfg.SQLite.Driver != storage.DriverModernc && cfg.SQLite.Driver != storage.DriverMattn {
			errs = append(errs, FieldError{
				Field:   "events.sqlite.driver",
				Message: fmt.Sprintf("must be %q or %q, got %q", storage.DriverModernc, storage.DriverMattn, cfg.SQLite.Driver),
			})
		}
		if cfg.SQLite.BusyTimeout < 0 {
			errs = append(errs, FieldError{Field: "events.sqlite.busy_timeout", Message: "must not be negative"})
		}
	default:
		errs = append(errs, FieldError{
			Field:   "events.backend",
			Message: fmt.Sprintf("must be \"memory\" or \"sqlite\", got %q", cfg.Backend),
		})
	}

	if cfg.BufferSize <= 0 {
		errs = append(errs, FieldError{Field: "events.buffer_size", Message: "must be positive"})
	}
	if cfg.BatchSize <= 0 {
		errs = append(errs, FieldError{Field: "events.batch_size", Message: "must be positive"})
	}
	if cfg.WriteTimeout < 0 {
		errs = append(errs, FieldError{Field: "events.write_timeout", Message: "must not be negative"})
	}

	if cfg.Retention.MaxAge < 0 {
		errs = append(errs, FieldError{Field: "events.retention.max_age", Message: "must not be negative"})
	}
	if cfg.Retention.MaxRecords < 0 || cfg.Retention.MaxRecords > storage.MaxQueryLimit {
		errs = append(errs, FieldError{
			Field:   "events.retention.max_records",
			Message: fmt.Sprintf("must be between 0 and %d", storage.MaxQueryLimit),
		})
	}
	if cfg.Retention.PruneSchedule != "" {
		if _, err := cron.ParseStandard(cfg.Retention.PruneSchedule); err != nil {
			errs = append(errs, FieldError{
				Field:   "events.retention.prune_schedule",
				Message: fmt.Sprintf("invalid cron expression: %v", err),
			})
		}
	}

	return errs
}

func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	if _, err := logging.ParseLevel(cfg.Logging.Level); err != nil {
		errs = append(errs, FieldError{Field: "telemetry.logging.level", Message: err.Error()})
	}
	if _, err := logging.ParseFormat(cfg.Logging.Format); err != nil {
		errs = append(errs, FieldError{Field: "telemetry.logging.format", Message: err.Error()})
	}

	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		errs = append(errs, FieldError{Field: "telemetry.metrics.path", Message: "path must start with /"})
	}

	return errs
}

func validateServer(cfg *ServerConfig, limiters *RateLimitersConfig) []FieldError {
	var errs []FieldError

	if cfg.ListenAddress == "" {
		errs = append(errs, FieldError{Field: "server.listen_address", Message: "listen address is required"})
	} else if _, _, err := net.SplitHostPort(cfg.ListenAddress); err != nil {
		errs = append(errs, FieldError{
			Field:   "server.listen_address",
			Message: fmt.Sprintf("invalid address: %v", err),
		})
	}

	if cfg.ReadTimeout < 0 {
		errs = append(errs, FieldError{Field: "server.read_timeout", Message: "must not be negative"})
	}
	if cfg.WriteTimeout < 0 {
		errs = append(errs, FieldError{Field: "server.write_timeout", Message: "must not be negative"})
	}
	if cfg.IdleTimeout < 0 {
		errs = append(errs, FieldError{Field: "server.idle_timeout", Message: "must not be negative"})
	}
	if cfg.ShutdownTimeout < 0 {
		errs = append(errs, FieldError{Field: "server.shutdown_timeout", Message: "must not be negative"})
	}

	if cfg.RateLimiter != "" {
		if _, ok := limiters.Instances[cfg.RateLimiter]; !ok {
			errs = append(errs, FieldError{
				Field:   "server.rate_limiter",
				Message: fmt.Sprintf("unknown rate limiter instance %q", cfg.RateLimiter),
			})
		}
	}

	return errs
}
