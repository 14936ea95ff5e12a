package ratelimiter

import (
	"testing"
	"time"
)

func TestLedger_TryConsume(t *testing.T) {
	l := newLedger(3, time.Time{})

	if !l.tryConsume(2) {
		t.Fatal("Expected to consume 2 of 3 permits")
	}
	if l.tryConsume(2) {
		t.Error("Expected consuming 2 of 1 remaining permit to fail")
	}
	if l.available != 1 {
		t.Errorf("Expected failed consume to leave 1 permit, got %d", l.available)
	}
	if l.tryConsume(0) {
		t.Error("Expected consuming 0 permits to fail")
	}
	if !l.tryConsume(1) {
		t.Error("Expected to consume the last permit")
	}
}

func TestLedger_RefillIsIdempotentPerCycle(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l := newLedger(5, start)
	l.tryConsume(5)

	tests := []struct {
		name      string
		cycle     int64
		wantApply bool
		wantAvail int
	}{
		{"same cycle", 0, false, 0},
		{"next cycle", 1, true, 5},
		{"repeat of next cycle", 1, false, 4},
		{"older cycle", 0, false, 4},
		{"skipped cycles", 4, true, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := l.refill(tt.cycle, start.Add(time.Duration(tt.cycle)*time.Second), 5)
			if got != tt.wantApply {
				t.Errorf("refill(%d) = %v, want %v", tt.cycle, got, tt.wantApply)
			}
			if l.available != tt.wantAvail {
				t.Errorf("Expected %d available, got %d", tt.wantAvail, l.available)
			}
			// Consume one so a duplicate refill would be visible.
			if tt.wantApply {
				l.tryConsume(1)
			}
		})
	}

	if l.cycle != 4 {
		t.Errorf("Expected cycle 4, got %d", l.cycle)
	}
	if want := start.Add(4 * time.Second); !l.cycleStart.Equal(want) {
		t.Errorf("Expected cycle start %v, got %v", want, l.cycleStart)
	}
}

func TestLedger_ClampAndDrain(t *testing.T) {
	l := newLedger(10, time.Time{})

	l.clamp(4)
	if l.available != 4 {
		t.Errorf("Expected clamp to 4, got %d", l.available)
	}
	l.clamp(8)
	if l.available != 4 {
		t.Errorf("Expected clamp to a higher limit to be a no-op, got %d", l.available)
	}
	if drained := l.drain(); drained != 4 {
		t.Errorf("Expected to drain 4 permits, got %d", drained)
	}
	if l.available != 0 {
		t.Errorf("Expected 0 permits after drain, got %d", l.available)
	}
}
