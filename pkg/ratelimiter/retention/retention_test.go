package retention

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"go.uber.org/goleak"

	"mercator-hq/ratelimiter/pkg/ratelimiter"
	"mercator-hq/ratelimiter/pkg/ratelimiter/storage"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// storeAged stores one event per hour of age, from 0h to n-1h old.
func storeAged(t *testing.T, b storage.Backend, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		err := b.Store(context.Background(), &storage.Record{
			ID:          fmt.Sprintf("event-%d", i),
			LimiterName: "alpha",
			Type:        ratelimiter.EventSuccessfulAcquire,
			Permits:     1,
			CreatedAt:   now.Add(-time.Duration(i) * time.Hour),
		})
		if err != nil {
			t.Fatalf("Store() error: %v", err)
		}
	}
}

func newTestPruner(b storage.Backend, config Config) *Pruner {
	p := NewPruner(b, config, quietLogger())
	p.now = func() time.Time { return now }
	return p
}

// ============================================================================
// Pruner
// ============================================================================

func TestPruner_Prune(t *testing.T) {
	tests := []struct {
		name        string
		config      Config
		wantDeleted int64
		wantLeft    int
	}{
		{"keep forever", Config{}, 0, 10},
		{"by age", Config{MaxAge: 5 * time.Hour}, 4, 6},
		{"by count", Config{MaxRecords: 3}, 7, 3},
		{"age then count", Config{MaxAge: 5 * time.Hour, MaxRecords: 2}, 8, 2},
		{"count within limit", Config{MaxRecords: 50}, 0, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := storage.NewMemoryBackend()
			storeAged(t, backend, 10)

			deleted, err := newTestPruner(backend, tt.config).Prune(context.Background())
			if err != nil {
				t.Fatalf("Prune() error: %v", err)
			}
			if deleted != tt.wantDeleted {
				t.Errorf("Expected %d deleted, got %d", tt.wantDeleted, deleted)
			}
			if backend.Size() != tt.wantLeft {
				t.Errorf("Expected %d left, got %d", tt.wantLeft, backend.Size())
			}
		})
	}
}

func TestPruner_PruneOlderThan(t *testing.T) {
	backend := storage.NewMemoryBackend()
	storeAged(t, backend, 10)
	p := newTestPruner(backend, Config{})

	deleted, err := p.PruneOlderThan(context.Background(), 8*time.Hour)
	if err != nil {
		t.Fatalf("PruneOlderThan() error: %v", err)
	}
	// 9h old is deleted; exactly 8h old sits on the cutoff and is kept.
	if deleted != 1 {
		t.Errorf("Expected 1 deleted, got %d", deleted)
	}

	if _, err := p.PruneOlderThan(context.Background(), 0); err == nil {
		t.Error("Expected error for non-positive age")
	}
}

// ============================================================================
// Scheduler
// ============================================================================

func TestScheduler_Start(t *testing.T) {
	tests := []struct {
		name        string
		schedule    string
		wantRunning bool
		wantError   bool
	}{
		{"valid daily schedule", "0 3 * * *", true, false},
		{"valid hourly schedule", "0 * * * *", true, false},
		{"empty schedule", "", false, false},
		{"invalid schedule", "invalid cron", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestPruner(storage.NewMemoryBackend(), Config{PruneSchedule: tt.schedule, MaxAge: time.Hour})

			err := p.Start(context.Background())
			defer p.Stop()

			if (err != nil) != tt.wantError {
				t.Errorf("Start() error = %v, wantError %v", err, tt.wantError)
			}
			if p.scheduler.IsRunning() != tt.wantRunning {
				t.Errorf("IsRunning() = %v, want %v", p.scheduler.IsRunning(), tt.wantRunning)
			}
			if tt.wantRunning && p.NextPruning() == nil {
				t.Error("Expected a next run for a running scheduler")
			}
			if !tt.wantRunning && p.NextPruning() != nil {
				t.Error("Expected no next run for a stopped scheduler")
			}
		})
	}
}

func TestScheduler_RunsPruning(t *testing.T) {
	backend := storage.NewMemoryBackend()
	storeAged(t, backend, 10)

	p := newTestPruner(backend, Config{MaxAge: 2 * time.Hour, PruneSchedule: "@every 1s"})
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	defer p.Stop()

	deadline := time.Now().Add(5 * time.Second)
	for backend.Size() != 3 {
		if time.Now().After(deadline) {
			t.Fatalf("Expected scheduled pruning to leave 3 events, got %d", backend.Size())
		}
		time.Sleep(50 * time.Millisecond)
	}
}

func TestScheduler_StopAndRestart(t *testing.T) {
	p := newTestPruner(storage.NewMemoryBackend(), Config{PruneSchedule: "0 3 * * *"})

	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	p.Stop()
	p.Stop()
	if p.scheduler.IsRunning() {
		t.Fatal("Expected scheduler to stop")
	}

	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Restart error: %v", err)
	}
	defer p.Stop()

	if n := len(p.scheduler.cron.Entries()); n != 1 {
		t.Errorf("Expected 1 scheduled entry after restart, got %d", n)
	}
}
