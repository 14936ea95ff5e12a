package ratelimiter

import (
	"context"
	"errors"
	"testing"
	"time"
)

// helloService counts how often the protected call actually ran.
type helloService struct {
	calls int
}

func (s *helloService) SayHello() (string, error) {
	s.calls++
	return "Hello world", nil
}

func (s *helloService) SayHelloContext(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return s.SayHello()
}

func TestExecute_RunsWhenPermitted(t *testing.T) {
	l := newTestLimiter(t, noWaitConfig())
	svc := &helloService{}

	got, err := Execute(l, svc.SayHello)
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if got != "Hello world" {
		t.Errorf("Expected %q, got %q", "Hello world", got)
	}
	if svc.calls != 1 {
		t.Errorf("Expected 1 call, got %d", svc.calls)
	}
}

func TestExecute_SkipsCallWhenRejected(t *testing.T) {
	l := newTestLimiter(t, noWaitConfig())
	l.DrainPermissions()
	svc := &helloService{}

	got, err := Execute(l, svc.SayHello)
	if !errors.Is(err, ErrRequestNotPermitted) {
		t.Fatalf("Expected ErrRequestNotPermitted, got %v", err)
	}
	if got != "" {
		t.Errorf("Expected zero result, got %q", got)
	}
	if svc.calls != 0 {
		t.Errorf("Expected the call to be skipped, got %d calls", svc.calls)
	}
}

func TestExecute_PassesThroughCallError(t *testing.T) {
	l := newTestLimiter(t, noWaitConfig())
	boom := errors.New("boom")

	calls := 0

	_, err := Execute(l, func() (int, error) { calls++; return 0, boom })
	if !errors.Is(err, boom) {
		t.Errorf("Expected call error to pass through, got %v", err)
	}
	if calls != 1 {
		t.Errorf("Expected 1 call, got %d", calls)
	}
	m := l.Metrics()
	if m.AvailablePermissions != 9 {
		t.Errorf("Expected the permit to stay consumed, got %d available", m.AvailablePermissions)
	}
	if m.NumberOfWaitingThreads != 0 {
		t.Errorf("Expected 0 waiting, got %d", m.NumberOfWaitingThreads)
	}
}

func TestDecorate_ConsumesPermitPerCall(t *testing.T) {
	l := newTestLimiter(t, Config{LimitForPeriod: 2, LimitRefreshPeriod: 10 * time.Second})
	svc := &helloService{}
	hello := Decorate(l, svc.SayHello)

	for i := 0; i < 2; i++ {
		if _, err := hello(); err != nil {
			t.Fatalf("Call %d failed: %v", i+1, err)
		}
	}
	if _, err := hello(); !errors.Is(err, ErrRequestNotPermitted) {
		t.Errorf("Expected third call to be rejected, got %v", err)
	}
	if svc.calls != 2 {
		t.Errorf("Expected 2 calls, got %d", svc.calls)
	}
}

func TestDecorateContext_StopsWaitingOnCancel(t *testing.T) {
	clock := newManualClock()
	l := newTestLimiter(t, Config{LimitForPeriod: 1, LimitRefreshPeriod: 10 * time.Second, TimeoutDuration: time.Minute}, WithClock(clock))
	svc := &helloService{}
	hello := DecorateContext(l, svc.SayHelloContext)

	if _, err := hello(context.Background()); err != nil {
		t.Fatalf("First call failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := hello(ctx)
		done <- err
	}()
	eventually(t, "call to park", waitingIs(l, 1))
	cancel()

	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if svc.calls != 1 {
		t.Errorf("Expected 1 call, got %d", svc.calls)
	}
}

func TestRun(t *testing.T) {
	l := newTestLimiter(t, Config{LimitForPeriod: 1, LimitRefreshPeriod: 10 * time.Second})
	ran := 0

	if err := Run(l, func() error { ran++; return nil }); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if err := RunContext(context.Background(), l, func(context.Context) error { ran++; return nil }); !errors.Is(err, ErrRequestNotPermitted) {
		t.Errorf("Expected ErrRequestNotPermitted, got %v", err)
	}
	if ran != 1 {
		t.Errorf("Expected 1 run, got %d", ran)
	}
}

// ============================================================================
// Fallback
// ============================================================================

func TestExecuteWithFallback(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name          string
		drain         bool
		fn            func() (string, error)
		want          string
		wantErr       error
		wantFallbacks int
	}{
		{
			name: "permitted call skips fallback",
			fn:   func() (string, error) { return "Hello world", nil },
			want: "Hello world",
		},
		{
			name:    "call error skips fallback",
			fn:      func() (string, error) { return "", boom },
			wantErr: boom,
		},
		{
			name:          "rejected call runs fallback",
			drain:         true,
			fn:            func() (string, error) { return "Hello world", nil },
			want:          "fallback",
			wantFallbacks: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newTestLimiter(t, noWaitConfig())
			if tt.drain {
				l.DrainPermissions()
			}

			fallbacks := 0
			fallback := func(err error) (string, error) {
				fallbacks++
				if !errors.Is(err, ErrRequestNotPermitted) {
					t.Errorf("Expected fallback to get ErrRequestNotPermitted, got %v", err)
				}
				return "fallback", nil
			}

			got, err := ExecuteWithFallback(l, tt.fn, fallback)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Expected error %v, got %v", tt.wantErr, err)
			}
			if got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
			if fallbacks != tt.wantFallbacks {
				t.Errorf("Expected %d fallback calls, got %d", tt.wantFallbacks, fallbacks)
			}
		})
	}
}

func TestDecorateWithFallback(t *testing.T) {
	l := newTestLimiter(t, Config{LimitForPeriod: 1, LimitRefreshPeriod: 10 * time.Second})
	svc := &helloService{}
	hello := DecorateWithFallback(l, svc.SayHello, func(error) (string, error) {
		return "Hello later", nil
	})

	for _, want := range []string{"Hello world", "Hello later"} {
		got, err := hello()
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if got != want {
			t.Errorf("Expected %q, got %q", want, got)
		}
	}
	if svc.calls != 1 {
		t.Errorf("Expected 1 call, got %d", svc.calls)
	}
}

func TestDecorateContextWithFallback_CancelSkipsFallback(t *testing.T) {
	clock := newManualClock()
	l := newTestLimiter(t, Config{LimitForPeriod: 1, LimitRefreshPeriod: 10 * time.Second, TimeoutDuration: time.Minute}, WithClock(clock))
	l.DrainPermissions()

	svc := &helloService{}
	fallbacks := 0
	hello := DecorateContextWithFallback(l, svc.SayHelloContext, func(context.Context, error) (string, error) {
		fallbacks++
		return "fallback", nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := hello(ctx)
		done <- err
	}()
	eventually(t, "call to park", waitingIs(l, 1))
	cancel()

	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if fallbacks != 0 || svc.calls != 0 {
		t.Errorf("Expected no fallback and no call, got %d fallbacks and %d calls", fallbacks, svc.calls)
	}
}
