package ratelimiter

import "time"

// Metrics is a point-in-time view of a limiter.
type Metrics struct {
	// AvailablePermissions is the number of permits left in the cycle.
	AvailablePermissions int `json:"available_permissions"`

	// NumberOfWaitingThreads is the number of callers parked for permits.
	NumberOfWaitingThreads int `json:"number_of_waiting_threads"`

	// Cycle is the generation of the cycle the view belongs to.
	Cycle int64 `json:"cycle"`

	// NextRefill is when the next cycle starts.
	NextRefill time.Time `json:"next_refill"`
}

// Metrics returns a consistent snapshot of the limiter. Both counters are
// read under the same lock.
//
// Metrics never mutates the limiter. If a cycle boundary has passed but the
// scheduler has not applied the refill yet, the snapshot reports what that
// refill will produce.
func (l *RateLimiter) Metrics() Metrics {
	l.mu.Lock()
	defer l.mu.Unlock()

	cfg := l.config.Load()
	now := l.clock.Now()
	cycle := l.cycleAt(now, cfg.LimitRefreshPeriod)

	m := Metrics{
		AvailablePermissions:   l.ledger.available,
		NumberOfWaitingThreads: l.waiters.Len(),
		Cycle:                  l.ledger.cycle,
		NextRefill:             l.cycleStart(cycle+1, cfg.LimitRefreshPeriod),
	}

	if cycle > l.ledger.cycle {
		available := cfg.LimitForPeriod
		waiting := l.waiters.Len()
		for e := l.waiters.Front(); e != nil; e = e.Next() {
			w := e.Value.(*waiter)
			if available < w.permits {
				break
			}
			available -= w.permits
			waiting--
		}
		m.AvailablePermissions = available
		m.NumberOfWaitingThreads = waiting
		m.Cycle = cycle
	}

	return m
}
