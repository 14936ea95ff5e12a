package ratelimiter

import "time"

// runScheduler refills the ledger at every cycle boundary until Close.
//
// Each round arms a one-shot timer for the next boundary computed from the
// limiter origin, so late or skipped wake-ups never accumulate drift: the
// cycle number is always derived from the clock, not from a tick count.
func (l *RateLimiter) runScheduler(timer Timer) {
	defer close(l.doneCh)

	for {
		select {
		case <-l.stopCh:
			timer.Stop()
			return
		case <-timer.C():
			timer = l.tick()
		}
	}
}

// tick applies the refill that is due, if any, and returns the timer for
// the following boundary. The timer is armed before the lock is released
// so no boundary can pass unobserved between the two.
func (l *RateLimiter) tick() Timer {
	l.mu.Lock()
	refilled, granted := l.refillLocked(l.clock.Now())
	waiting := l.waiters.Len()
	cycle := l.ledger.cycle
	next := l.clock.NewTimer(l.untilNextCycle(l.clock.Now()))
	l.mu.Unlock()

	if refilled && (granted > 0 || waiting > 0) {
		l.logger.Debug("rate limiter refilled",
			"cycle", cycle,
			"granted_waiters", granted,
			"waiting", waiting,
		)
	}
	return next
}

// untilNextCycle returns the time left until the boundary after now.
func (l *RateLimiter) untilNextCycle(now time.Time) time.Duration {
	period := l.config.Load().LimitRefreshPeriod
	next := l.cycleStart(l.cycleAt(now, period)+1, period)
	wait := next.Sub(now)
	if wait <= 0 {
		// Clock moved past the boundary between the two reads.
		return time.Nanosecond
	}
	return wait
}
