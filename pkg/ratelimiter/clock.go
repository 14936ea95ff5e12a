package ratelimiter

import "time"

// Clock supplies the current time and one-shot timers to a limiter.
// Tests substitute a manual clock; production code uses SystemClock.
type Clock interface {
	Now() time.Time
	NewTimer(d time.Duration) Timer
}

// Timer is the subset of *time.Timer a limiter relies on.
type Timer interface {
	C() <-chan time.Time
	Stop() bool
}

// SystemClock is a Clock backed by the time package.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time { return time.Now() }

// NewTimer returns a Timer wrapping time.NewTimer.
func (SystemClock) NewTimer(d time.Duration) Timer {
	return systemTimer{time.NewTimer(d)}
}

type systemTimer struct{ t *time.Timer }

func (s systemTimer) C() <-chan time.Time { return s.t.C }
func (s systemTimer) Stop() bool          { return s.t.Stop() }
