package config

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		modify    func(*Config)
		wantField string
	}{
		{
			name:   "valid defaults",
			modify: func(*Config) {},
		},
		{
			name: "invalid default limit",
			modify: func(c *Config) {
				c.RateLimiters.Defaults.LimitForPeriod = -1
			},
			wantField: "ratelimiters.defaults",
		},
		{
			name: "template with base config",
			modify: func(c *Config) {
				c.RateLimiters.Configs = map[string]LimiterConfig{"a": {BaseConfig: "b"}}
			},
			wantField: "ratelimiters.configs.a.base_config",
		},
		{
			name: "template named default",
			modify: func(c *Config) {
				c.RateLimiters.Configs = map[string]LimiterConfig{"default": {LimitForPeriod: 1}}
			},
			wantField: "ratelimiters.configs.default",
		},
		{
			name: "instance with unknown base",
			modify: func(c *Config) {
				c.RateLimiters.Instances = map[string]LimiterConfig{"x": {BaseConfig: "nope"}}
			},
			wantField: "ratelimiters.instances.x.base_config",
		},
		{
			name: "instance with negative timeout",
			modify: func(c *Config) {
				c.RateLimiters.Instances = map[string]LimiterConfig{"x": {TimeoutDuration: durationPtr(-time.Second)}}
			},
			wantField: "ratelimiters.instances.x.timeout_duration",
		},
		{
			name: "unknown events backend",
			modify: func(c *Config) {
				c.Events.Backend = "postgres"
			},
			wantField: "events.backend",
		},
		{
			name: "unknown sqlite driver",
			modify: func(c *Config) {
				c.Events.SQLite.Driver = "sqlite4"
			},
			wantField: "events.sqlite.driver",
		},
		{
			name: "max records above query limit",
			modify: func(c *Config) {
				c.Events.Retention.MaxRecords = 1_000_000
			},
			wantField: "events.retention.max_records",
		},
		{
			name: "server limiter not configured",
			modify: func(c *Config) {
				c.Server.RateLimiter = "admin"
			},
			wantField: "server.rate_limiter",
		},
		{
			name: "server limiter configured",
			modify: func(c *Config) {
				c.RateLimiters.Instances = map[string]LimiterConfig{"admin": {LimitForPeriod: 10}}
				c.Server.RateLimiter = "admin"
			},
		},
		{
			name: "invalid prune schedule",
			modify: func(c *Config) {
				c.Events.Retention.PruneSchedule = "every day"
			},
			wantField: "events.retention.prune_schedule",
		},
		{
			name: "invalid log level",
			modify: func(c *Config) {
				c.Telemetry.Logging.Level = "loud"
			},
			wantField: "telemetry.logging.level",
		},
		{
			name: "metrics path without slash",
			modify: func(c *Config) {
				c.Telemetry.Metrics.Path = "metrics"
			},
			wantField: "telemetry.metrics.path",
		},
		{
			name: "listen address without port",
			modify: func(c *Config) {
				c.Server.ListenAddress = "localhost"
			},
			wantField: "server.listen_address",
		},
		{
			name: "negative shutdown timeout",
			modify: func(c *Config) {
				c.Server.ShutdownTimeout = -time.Second
			},
			wantField: "server.shutdown_timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)

			err := Validate(cfg)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("expected valid config, got: %v", err)
				}
				return
			}

			var verr ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			found := false
			for _, fe := range verr.Errors {
				if fe.Field == tt.wantField {
					found = true
				}
			}
			if !found {
				t.Errorf("expected error on %q, got %v", tt.wantField, verr.Errors)
			}
		})
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := Default()
	cfg.Server.ListenAddress = ""
	cfg.Events.BufferSize = -1
	cfg.Telemetry.Logging.Format = "xml"

	err := Validate(cfg)
	var verr ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(verr.Errors) != 3 {
		t.Errorf("expected 3 errors, got %d: %v", len(verr.Errors), verr.Errors)
	}
	if !strings.Contains(err.Error(), "3 errors") {
		t.Errorf("expected error count in message, got %q", err.Error())
	}
}

func TestValidationError_Error(t *testing.T) {
	single := ValidationError{Errors: []FieldError{{Field: "a", Message: "bad"}}}
	if single.Error() != "configuration validation failed: a: bad" {
		t.Errorf("unexpected single error message: %q", single.Error())
	}
	if (ValidationError{}).Error() != "configuration validation failed" {
		t.Error("unexpected empty error message")
	}
}
