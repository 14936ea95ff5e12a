package ratelimiter

import (
	"errors"
	"fmt"
)

var (
	// ErrRequestNotPermitted is matched by every rejection returned from a
	// limiter. Use errors.Is to tell a throttled call from a failed one.
	ErrRequestNotPermitted = errors.New("request not permitted")

	// ErrLimiterClosed is returned when a limiter was closed before or
	// while the caller was waiting for a permit.
	ErrLimiterClosed = errors.New("rate limiter closed")

	// ErrInvalidConfig is returned when a configuration value is out of range.
	ErrInvalidConfig = errors.New("invalid rate limiter configuration")

	// ErrInvalidPermits is returned when the requested permit count is not
	// positive or can never be satisfied within one cycle.
	ErrInvalidPermits = errors.New("invalid number of permits")

	// ErrConfigurationNotFound is returned by a Registry when a named
	// configuration template does not exist.
	ErrConfigurationNotFound = errors.New("rate limiter configuration not found")

	// ErrRegistryClosed is returned by a Registry after Close.
	ErrRegistryClosed = errors.New("rate limiter registry closed")
)

// RequestNotPermittedError is the rejection returned when a permit could not
// be acquired within the configured timeout.
type RequestNotPermittedError struct {
	// Name is the name of the limiter that rejected the call.
	Name string
}

// Error implements the error interface.
func (e *RequestNotPermittedError) Error() string {
	return fmt.Sprintf("rate limiter %q does not permit further calls", e.Name)
}

// Unwrap returns ErrRequestNotPermitted.
func (e *RequestNotPermittedError) Unwrap() error {
	return ErrRequestNotPermitted
}
