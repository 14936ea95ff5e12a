package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"mercator-hq/ratelimiter/pkg/cli"
	"mercator-hq/ratelimiter/pkg/config"
	"mercator-hq/ratelimiter/pkg/ratelimiter"
	"mercator-hq/ratelimiter/pkg/ratelimiter/storage"
)

// seedEventStore writes a config pointing at a fresh SQLite database and
// stores events in it: three for payments and one for search, one hour
// apart, the newest an hour old.
func seedEventStore(t *testing.T) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "events.db")
	path := writeConfig(t, fmt.Sprintf(`
events:
  enabled: true
  backend: sqlite
  sqlite:
    path: %q
  retention:
    max_age: "150m"
`, dbPath))

	cfg, err := config.LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	backend, err := openBackend(&cfg.Events, quietLogger())
	if err != nil {
		t.Fatalf("openBackend() error = %v", err)
	}
	defer backend.Close()

	now := time.Now()
	events := []ratelimiter.Event{
		{Type: ratelimiter.EventSuccessfulAcquire, LimiterName: "payments", Permits: 1, CreatedAt: now.Add(-3 * time.Hour)},
		{Type: ratelimiter.EventFailedAcquire, LimiterName: "payments", Permits: 2, CreatedAt: now.Add(-2 * time.Hour)},
		{Type: ratelimiter.EventSuccessfulAcquire, LimiterName: "payments", Permits: 1, CreatedAt: now.Add(-time.Hour)},
		{Type: ratelimiter.EventDrained, LimiterName: "search", Permits: 5, CreatedAt: now.Add(-time.Hour)},
	}
	records := make([]*storage.Record, len(events))
	for i, e := range events {
		records[i] = storage.NewRecord(strconv.Itoa(i), e)
	}
	if err := backend.Store(context.Background(), records...); err != nil {
		t.Fatalf("Store() error = %v", err)
	}
	return path
}

func TestEventsQuery(t *testing.T) {
	path := seedEventStore(t)

	tests := []struct {
		name     string
		args     []string
		wantRows int
	}{
		{"all", nil, 4},
		{"by limiter", []string{"--limiter", "payments"}, 3},
		{"by type", []string{"--type", "failed_acquire"}, 1},
		{"limited", []string{"--limit", "2"}, 2},
		{"open-ended range", []string{"--time-range", time.Now().Add(-90*time.Minute).UTC().Format(time.RFC3339) + "/"}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"events", "query", "--config", path, "--format", "csv"}, tt.args...)
			out, err := execute(t, args...)
			if err != nil {
				t.Fatalf("events query error = %v", err)
			}

			rows, err := csv.NewReader(strings.NewReader(out)).ReadAll()
			if err != nil {
				t.Fatalf("Expected CSV output, got %q: %v", out, err)
			}
			if got := len(rows) - 1; got != tt.wantRows {
				t.Errorf("Expected %d rows, got %d:\n%s", tt.wantRows, got, out)
			}
		})
	}
}

func TestEventsQuery_Empty(t *testing.T) {
	path := seedEventStore(t)

	out, err := execute(t, "events", "query", "--config", path, "--limiter", "unknown")
	if err != nil {
		t.Fatalf("events query error = %v", err)
	}
	if !strings.Contains(out, "No events found.") {
		t.Errorf("Expected empty notice, got %q", out)
	}
}

func TestEventsQuery_InvalidFlags(t *testing.T) {
	path := seedEventStore(t)

	tests := []struct {
		name string
		args []string
	}{
		{"unknown type", []string{"--type", "granted"}},
		{"bad range", []string{"--time-range", "yesterday"}},
		{"limit too large", []string{"--limit", "100000"}},
		{"unknown format", []string{"--format", "xml"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"events", "query", "--config", path}, tt.args...)
			if _, err := execute(t, args...); err == nil {
				t.Error("Expected error")
			}
		})
	}
}

func TestEventsQuery_RequiresSQLite(t *testing.T) {
	path := writeConfig(t, "events:\n  enabled: true\n  backend: memory\n")

	_, err := execute(t, "events", "query", "--config", path)
	if cli.ExitCode(err) != cli.ExitConfig {
		t.Errorf("Expected config error, got %v", err)
	}
}

func TestEventsPrune(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		wantDeleted int
	}{
		{"retention policy", nil, 1},
		{"older than", []string{"--older-than", "90m"}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := seedEventStore(t)
			args := append([]string{"events", "prune", "--config", path}, tt.args...)

			out, err := execute(t, args...)
			if err != nil {
				t.Fatalf("events prune error = %v", err)
			}
			want := fmt.Sprintf("Deleted %d events", tt.wantDeleted)
			if !strings.Contains(out, want) {
				t.Errorf("Expected %q, got %q", want, out)
			}
		})
	}
}

func TestParseTimeRange(t *testing.T) {
	start := time.Date(2026, 1, 19, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 1, 20, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		input     string
		wantSince time.Time
		wantUntil time.Time
		wantErr   bool
	}{
		{"2026-01-19T00:00:00Z/2026-01-20T00:00:00Z", start, end, false},
		{"2026-01-19T00:00:00Z/", start, time.Time{}, false},
		{"/2026-01-20T00:00:00Z", time.Time{}, end, false},
		{"2026-01-19", time.Time{}, time.Time{}, true},
		{"monday/tuesday", time.Time{}, time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			since, until, err := parseTimeRange(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseTimeRange(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if !since.Equal(tt.wantSince) || !until.Equal(tt.wantUntil) {
				t.Errorf("parseTimeRange(%q) = %v, %v, want %v, %v", tt.input, since, until, tt.wantSince, tt.wantUntil)
			}
		})
	}
}
