package ratelimiter

import "time"

// ledger is the permit accounting of one limiter.
//
// It is not safe for concurrent use on its own; the owning RateLimiter
// serialises every call under its mutex.
type ledger struct {
	available  int       // permits left in the current cycle
	cycle      int64     // generation of the cycle the permits belong to
	cycleStart time.Time // start of the current cycle
}

func newLedger(limit int, start time.Time) ledger {
	return ledger{
		available:  limit,
		cycle:      0,
		cycleStart: start,
	}
}

// tryConsume takes n permits if they are all available.
// It has no side effects on failure.
func (l *ledger) tryConsume(n int) bool {
	if n <= 0 || l.available < n {
		return false
	}
	l.available -= n
	return true
}

// refill resets the pool to limit for the given cycle generation.
// Calls for a generation that is not newer than the current one are no-ops,
// which makes the refill idempotent per cycle.
func (l *ledger) refill(cycle int64, start time.Time, limit int) bool {
	if cycle <= l.cycle {
		return false
	}
	l.cycle = cycle
	l.cycleStart = start
	l.available = limit
	return true
}

// clamp lowers the available permits to limit.
func (l *ledger) clamp(limit int) {
	if l.available > limit {
		l.available = limit
	}
}

// drain empties the current cycle and returns how many permits were dropped.
func (l *ledger) drain() int {
	drained := l.available
	l.available = 0
	return drained
}
