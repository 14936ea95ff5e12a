package ratelimiter

import (
	"fmt"
	"time"
)

// Default configuration values.
const (
	DefaultLimitForPeriod     = 50
	DefaultLimitRefreshPeriod = 500 * time.Millisecond
	DefaultTimeoutDuration    = 5 * time.Second
)

// Config holds the parameters of a single rate limiter.
// A Config is a value; limiters keep their own copy.
type Config struct {
	// LimitForPeriod is the number of permits granted per refresh cycle.
	LimitForPeriod int `json:"limit_for_period" yaml:"limit_for_period"`

	// LimitRefreshPeriod is the length of a refresh cycle.
	LimitRefreshPeriod time.Duration `json:"limit_refresh_period" yaml:"limit_refresh_period"`

	// TimeoutDuration is the maximum time a caller waits for a permit.
	// Zero means callers are rejected immediately when no permit is left.
	TimeoutDuration time.Duration `json:"timeout_duration" yaml:"timeout_duration"`
}

// DefaultConfig returns a Config populated with the package defaults.
func DefaultConfig() Config {
	return Config{
		LimitForPeriod:     DefaultLimitForPeriod,
		LimitRefreshPeriod: DefaultLimitRefreshPeriod,
		TimeoutDuration:    DefaultTimeoutDuration,
	}
}

// Validate reports whether the configuration can drive a limiter.
func (c Config) Validate() error {
	if c.LimitForPeriod <= 0 {
		return fmt.Errorf("%w: limit_for_period must be positive, got %d", ErrInvalidConfig, c.LimitForPeriod)
	}
	if c.LimitRefreshPeriod <= 0 {
		return fmt.Errorf("%w: limit_refresh_period must be positive, got %s", ErrInvalidConfig, c.LimitRefreshPeriod)
	}
	if c.TimeoutDuration < 0 {
		return fmt.Errorf("%w: timeout_duration must not be negative, got %s", ErrInvalidConfig, c.TimeoutDuration)
	}
	return nil
}

// String implements fmt.Stringer.
func (c Config) String() string {
	return fmt.Sprintf("Config{limitForPeriod=%d, limitRefreshPeriod=%s, timeoutDuration=%s}",
		c.LimitForPeriod, c.LimitRefreshPeriod, c.TimeoutDuration)
}
