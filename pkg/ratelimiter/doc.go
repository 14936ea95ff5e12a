// Package ratelimiter provides an in-process, concurrency-safe rate limiter
// that gates execution of arbitrary work behind a refilling permit pool.
//
// # Overview
//
// A RateLimiter hands out at most LimitForPeriod permits per
// LimitRefreshPeriod. When a cycle boundary passes, the permit pool is reset
// to LimitForPeriod and any callers parked waiting for permits are served in
// FIFO order. Callers that cannot get a permit within TimeoutDuration are
// rejected with a *RequestNotPermittedError.
//
//	limiter, err := ratelimiter.New("backend", ratelimiter.Config{
//	    LimitForPeriod:     10,
//	    LimitRefreshPeriod: time.Second,
//	    TimeoutDuration:    250 * time.Millisecond,
//	})
//	if err != nil {
//	    return err
//	}
//	defer limiter.Close()
//
//	body, err := ratelimiter.ExecuteContext(ctx, limiter, fetch)
//	if errors.Is(err, ratelimiter.ErrRequestNotPermitted) {
//	    // throttled, fetch never ran
//	}
//
// # Registry
//
// Limiters are usually obtained from a Registry, which returns the same
// shared instance for the same name and stops a limiter's refill scheduler
// when it is removed:
//
//	registry, _ := ratelimiter.NewRegistry(ratelimiter.DefaultConfig())
//	limiter, _ := registry.RateLimiter("backend")
//
// # Call styles
//
// AcquirePermission is the single primitive. AcquirePermissionBlocking parks
// the calling goroutine until it is granted, times out, or the limiter is
// closed. AcquirePermission additionally returns early when its context is
// cancelled. Execute, ExecuteContext, Decorate and DecorateContext wrap a unit
// of work with one of the two.
//
// # Thread Safety
//
// All permit accounting, cycle transitions and waiter bookkeeping happen
// under a single mutex per limiter. Refills are guarded by a cycle
// generation number, so a refill applied reactively on the acquisition path
// and the one applied by the background scheduler never double-apply.
package ratelimiter
