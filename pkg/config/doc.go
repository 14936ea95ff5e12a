// Package config provides configuration management for the rate limiter
// service.
//
// This package handles loading, validating, and watching a YAML
// configuration file with environment variable overrides.
//
// # Configuration Loading
//
// Configuration can be loaded in two ways:
//
//  1. From a YAML file only:
//     cfg, err := config.LoadConfig("ratelimiter.yaml")
//
//  2. From a YAML file with environment variable overrides:
//     cfg, err := config.LoadConfigWithEnvOverrides("ratelimiter.yaml")
//
// # Example File
//
//	ratelimiters:
//	  defaults:
//	    limit_for_period: 50
//	    limit_refresh_period: 500ms
//	    timeout_duration: 5s
//	  configs:
//	    strict:
//	      limit_for_period: 1
//	      limit_refresh_period: 1s
//	      timeout_duration: 0s
//	  instances:
//	    payments:
//	      base_config: strict
//	    search:
//	      limit_for_period: 100
//
//	events:
//	  enabled: true
//	  backend: sqlite
//	  sqlite:
//	    path: data/events.db
//	  retention:
//	    max_age: 168h
//	    prune_schedule: "0 3 * * *"
//
//	watch: true
//
// # Limiter Resolution
//
// An instance starts from the built-in defaults, then the defaults
// section, then its base_config template, then its own fields. Fields that
// are not set are inherited. timeout_duration: 0s is an explicit value
// (reject immediately) and is not inherited over.
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention RATELIMITER_SECTION_FIELD:
//
//   - RATELIMITER_SERVER_LISTEN_ADDRESS overrides server.listen_address
//   - RATELIMITER_DEFAULTS_LIMIT_FOR_PERIOD overrides ratelimiters.defaults.limit_for_period
//   - RATELIMITER_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//
// # Hot Reload
//
// With watch: true the run command starts a Watcher. Every valid change is
// stored with SetConfig and reconciled with the registry by ApplyLimiters.
package config
