package ratelimiter

import (
	"container/list"
	"context"
	"fmt"
	"log/slog"
	"maps"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter grants at most LimitForPeriod permits per LimitRefreshPeriod.
//
// # Algorithm
//
//  1. Apply any refill that is due (guarded by the cycle generation)
//  2. If nobody is queued and enough permits remain: consume and grant
//  3. If the timeout is zero: reject
//  4. Otherwise queue a waiter and park until a refill hands it the
//     permits, the deadline passes, the context ends or the limiter closes
//
// # Thread Safety
//
// RateLimiter is safe for concurrent use. The ledger, the cycle state and
// the waiter queue are only touched while holding mu.
type RateLimiter struct {
	name   string
	tags   map[string]string
	config atomic.Pointer[Config]
	clock  Clock
	logger *slog.Logger
	events *EventPublisher

	// rejectLog samples rejection warnings so a saturated limiter does not
	// flood the log.
	rejectLog rate.Sometimes

	origin time.Time // start of cycle 0

	mu      sync.Mutex
	ledger  ledger
	waiters list.List // of *waiter, oldest first
	closed  bool

	stopCh    chan struct{}
	doneCh    chan struct{}
	closeOnce sync.Once
}

// waiter is a caller parked for permits. ready is closed by the goroutine
// that hands the permits over, always while holding the limiter mutex.
// A non-nil err set before ready is closed releases the waiter without
// permits.
type waiter struct {
	permits int
	ready   chan struct{}
	err     error
	elem    *list.Element
}

// New creates a standalone limiter and starts its refill scheduler.
// Call Close to stop the scheduler.
func New(name string, config Config, opts ...Option) (*RateLimiter, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: name must not be empty", ErrInvalidConfig)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	o := buildOptions(opts)
	now := o.clock.Now()

	l := &RateLimiter{
		name:      name,
		tags:      o.tags,
		clock:     o.clock,
		logger:    o.logger.With("component", "ratelimiter", "name", name),
		events:    newEventPublisher(),
		rejectLog: rate.Sometimes{Interval: time.Second},
		origin:    now,
		ledger:    newLedger(config.LimitForPeriod, now),
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
	cfg := config
	l.config.Store(&cfg)

	go l.runScheduler(l.clock.NewTimer(l.untilNextCycle(now)))

	l.logger.Debug("rate limiter created",
		"limit_for_period", config.LimitForPeriod,
		"limit_refresh_period", config.LimitRefreshPeriod,
		"timeout_duration", config.TimeoutDuration,
	)

	return l, nil
}

// Name returns the limiter name.
func (l *RateLimiter) Name() string {
	return l.name
}

// Tags returns a copy of the limiter tags.
func (l *RateLimiter) Tags() map[string]string {
	return maps.Clone(l.tags)
}

// Config returns the configuration currently in effect.
func (l *RateLimiter) Config() Config {
	return *l.config.Load()
}

// EventPublisher returns the publisher for this limiter's events.
func (l *RateLimiter) EventPublisher() *EventPublisher {
	return l.events
}

// AcquirePermission acquires permits, waiting up to the configured timeout.
//
// It returns nil when the permits were granted, a *RequestNotPermittedError
// when they could not be granted in time, ctx.Err() when the context ended
// first, and ErrLimiterClosed when the limiter was closed.
// Granted permits are never given back.
func (l *RateLimiter) AcquirePermission(ctx context.Context, permits int) error {
	return l.acquire(ctx, permits, l.config.Load().TimeoutDuration)
}

// AcquirePermissionBlocking acquires permits without a cancellation source
// other than the configured timeout and Close.
func (l *RateLimiter) AcquirePermissionBlocking(permits int) error {
	return l.acquire(context.Background(), permits, l.config.Load().TimeoutDuration)
}

// TryAcquirePermission acquires permits only if they are available right
// now, regardless of the configured timeout.
func (l *RateLimiter) TryAcquirePermission(permits int) bool {
	return l.acquire(context.Background(), permits, 0) == nil
}

func (l *RateLimiter) acquire(ctx context.Context, permits int, timeout time.Duration) error {
	cfg := l.config.Load()
	if permits <= 0 || permits > cfg.LimitForPeriod {
		return fmt.Errorf("%w: requested %d, limit for period is %d",
			ErrInvalidPermits, permits, cfg.LimitForPeriod)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrLimiterClosed
	}

	l.refillLocked(l.clock.Now())

	// Queued callers go first; only an empty queue lets a newcomer through.
	if l.waiters.Len() == 0 && l.ledger.tryConsume(permits) {
		l.mu.Unlock()
		l.publish(EventSuccessfulAcquire, permits)
		return nil
	}

	if timeout <= 0 {
		l.mu.Unlock()
		return l.reject(permits)
	}

	// The deadline timer is armed before the waiter becomes visible so the
	// deadline is measured from the moment the caller started waiting.
	deadline := l.clock.NewTimer(timeout)
	defer deadline.Stop()

	w := &waiter{
		permits: permits,
		ready:   make(chan struct{}),
	}
	w.elem = l.waiters.PushBack(w)
	l.mu.Unlock()

	var (
		timedOut bool
		err      error
	)
	select {
	case <-w.ready:
		return l.released(w)
	case <-deadline.C():
		timedOut = true
	case <-ctx.Done():
		err = ctx.Err()
	case <-l.stopCh:
		err = ErrLimiterClosed
	}

	if !l.abandon(w) {
		// The waiter was released before it could leave the queue.
		return l.released(w)
	}

	if timedOut {
		return l.reject(permits)
	}
	return err
}

// released reports the outcome for a waiter whose ready channel is closed.
func (l *RateLimiter) released(w *waiter) error {
	if w.err != nil {
		return w.err
	}
	l.publish(EventSuccessfulAcquire, w.permits)
	return nil
}

// abandon removes w from the queue unless it has already been granted.
// It reports whether the waiter left without permits.
func (l *RateLimiter) abandon(w *waiter) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	select {
	case <-w.ready:
		return false
	default:
	}

	l.waiters.Remove(w.elem)
	w.elem = nil

	// The waiter may have been blocking smaller requests behind it.
	l.grantWaitersLocked()
	return true
}

// refillLocked applies the refill for the cycle containing now, if it has
// not been applied yet, and hands permits to queued waiters.
func (l *RateLimiter) refillLocked(now time.Time) (refilled bool, granted int) {
	cfg := l.config.Load()
	cycle := l.cycleAt(now, cfg.LimitRefreshPeriod)
	if !l.ledger.refill(cycle, l.cycleStart(cycle, cfg.LimitRefreshPeriod), cfg.LimitForPeriod) {
		return false, 0
	}
	return true, l.grantWaitersLocked()
}

// grantWaitersLocked serves the queue in FIFO order until the head cannot
// be satisfied.
func (l *RateLimiter) grantWaitersLocked() int {
	granted := 0
	for e := l.waiters.Front(); e != nil; e = l.waiters.Front() {
		w := e.Value.(*waiter)
		if !l.ledger.tryConsume(w.permits) {
			break
		}
		l.waiters.Remove(e)
		w.elem = nil
		close(w.ready)
		granted++
	}
	return granted
}

func (l *RateLimiter) cycleAt(now time.Time, period time.Duration) int64 {
	elapsed := now.Sub(l.origin)
	if elapsed < 0 {
		return 0
	}
	return int64(elapsed / period)
}

func (l *RateLimiter) cycleStart(cycle int64, period time.Duration) time.Time {
	return l.origin.Add(time.Duration(cycle) * period)
}

func (l *RateLimiter) reject(permits int) error {
	l.publish(EventFailedAcquire, permits)
	l.rejectLog.Do(func() {
		l.logger.Warn("rate limiter rejected call",
			"permits", permits,
			"timeout_duration", l.config.Load().TimeoutDuration,
		)
	})
	return &RequestNotPermittedError{Name: l.name}
}

func (l *RateLimiter) publish(eventType EventType, permits int) {
	if !l.events.HasConsumers() {
		return
	}
	l.events.publish(Event{
		Type:        eventType,
		LimiterName: l.name,
		Permits:     permits,
		CreatedAt:   l.clock.Now(),
	})
}

// DrainPermissions drops every permit left in the current cycle and
// returns how many were dropped.
func (l *RateLimiter) DrainPermissions() int {
	l.mu.Lock()
	l.refillLocked(l.clock.Now())
	drained := l.ledger.drain()
	l.mu.Unlock()

	l.publish(EventDrained, drained)
	return drained
}

// ChangeLimitForPeriod sets the permits granted per cycle. The new limit is
// used from the next refill on; permits left in the current cycle are
// lowered to the new limit right away.
func (l *RateLimiter) ChangeLimitForPeriod(limit int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	next := *l.config.Load()
	next.LimitForPeriod = limit
	if err := next.Validate(); err != nil {
		return err
	}
	l.config.Store(&next)
	l.ledger.clamp(limit)

	// Queued requests above the new limit can never be served and would
	// block everyone behind them.
	for e := l.waiters.Front(); e != nil; {
		w := e.Value.(*waiter)
		e = e.Next()
		if w.permits <= limit {
			continue
		}
		l.waiters.Remove(w.elem)
		w.elem = nil
		w.err = fmt.Errorf("%w: requested %d, limit for period changed to %d",
			ErrInvalidPermits, w.permits, limit)
		close(w.ready)
	}
	l.grantWaitersLocked()

	l.logger.Info("rate limiter limit changed", "limit_for_period", limit)
	return nil
}

// ChangeTimeoutDuration sets the wait timeout for acquisitions that start
// after the call.
func (l *RateLimiter) ChangeTimeoutDuration(timeout time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	next := *l.config.Load()
	next.TimeoutDuration = timeout
	if err := next.Validate(); err != nil {
		return err
	}
	l.config.Store(&next)

	l.logger.Info("rate limiter timeout changed", "timeout_duration", timeout)
	return nil
}

// Close stops the refill scheduler and releases every waiter with
// ErrLimiterClosed. Close is idempotent.
func (l *RateLimiter) Close() error {
	l.closeOnce.Do(func() {
		l.mu.Lock()
		l.closed = true
		l.mu.Unlock()

		close(l.stopCh)
		<-l.doneCh

		l.logger.Debug("rate limiter closed")
	})
	return nil
}

// Closed reports whether Close was called.
func (l *RateLimiter) Closed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}
