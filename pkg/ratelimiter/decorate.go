package ratelimiter

import (
	"context"
	"errors"
)

// Execute acquires one permit, blocking up to the configured timeout, and
// then runs fn. A rejection is returned without running fn; otherwise fn's
// result and error are returned unchanged.
func Execute[T any](l *RateLimiter, fn func() (T, error)) (T, error) {
	if err := l.AcquirePermissionBlocking(1); err != nil {
		var zero T
		return zero, err
	}
	return fn()
}

// ExecuteContext is Execute for context-aware work. Waiting for a permit
// stops early when ctx ends.
func ExecuteContext[T any](ctx context.Context, l *RateLimiter, fn func(context.Context) (T, error)) (T, error) {
	if err := l.AcquirePermission(ctx, 1); err != nil {
		var zero T
		return zero, err
	}
	return fn(ctx)
}

// Decorate returns a function that runs fn through Execute on every call.
func Decorate[T any](l *RateLimiter, fn func() (T, error)) func() (T, error) {
	return func() (T, error) {
		return Execute(l, fn)
	}
}

// DecorateContext returns a function that runs fn through ExecuteContext
// on every call.
func DecorateContext[T any](l *RateLimiter, fn func(context.Context) (T, error)) func(context.Context) (T, error) {
	return func(ctx context.Context) (T, error) {
		return ExecuteContext(ctx, l, fn)
	}
}

// ExecuteWithFallback is Execute with a fallback for rejected calls. The
// fallback receives the rejection and runs only when no permit was
// granted; errors returned by fn are passed through unchanged.
func ExecuteWithFallback[T any](l *RateLimiter, fn func() (T, error), fallback func(error) (T, error)) (T, error) {
	if err := l.AcquirePermissionBlocking(1); err != nil {
		if errors.Is(err, ErrRequestNotPermitted) {
			return fallback(err)
		}
		var zero T
		return zero, err
	}
	return fn()
}

// ExecuteContextWithFallback is ExecuteWithFallback for context-aware work.
// Cancellation while waiting is returned as is, not passed to fallback.
func ExecuteContextWithFallback[T any](ctx context.Context, l *RateLimiter, fn func(context.Context) (T, error), fallback func(context.Context, error) (T, error)) (T, error) {
	if err := l.AcquirePermission(ctx, 1); err != nil {
		if errors.Is(err, ErrRequestNotPermitted) {
			return fallback(ctx, err)
		}
		var zero T
		return zero, err
	}
	return fn(ctx)
}

// DecorateWithFallback returns a function that runs fn through
// ExecuteWithFallback on every call.
func DecorateWithFallback[T any](l *RateLimiter, fn func() (T, error), fallback func(error) (T, error)) func() (T, error) {
	return func() (T, error) {
		return ExecuteWithFallback(l, fn, fallback)
	}
}

// DecorateContextWithFallback returns a function that runs fn through
// ExecuteContextWithFallback on every call.
func DecorateContextWithFallback[T any](l *RateLimiter, fn func(context.Context) (T, error), fallback func(context.Context, error) (T, error)) func(context.Context) (T, error) {
	return func(ctx context.Context) (T, error) {
		return ExecuteContextWithFallback(ctx, l, fn, fallback)
	}
}

// Run is Execute for work without a result.
func Run(l *RateLimiter, fn func() error) error {
	if err := l.AcquirePermissionBlocking(1); err != nil {
		return err
	}
	return fn()
}

// RunContext is ExecuteContext for work without a result.
func RunContext(ctx context.Context, l *RateLimiter, fn func(context.Context) error) error {
	if err := l.AcquirePermission(ctx, 1); err != nil {
		return err
	}
	return fn(ctx)
}
