package config

import (
	"io"
	"log/slog"
	"slices"
	"testing"
	"time"

	"mercator-hq/ratelimiter/pkg/ratelimiter"
)

func newTestRegistry(t *testing.T) *ratelimiter.Registry {
	t.Helper()
	registry, err := ratelimiter.NewRegistry(ratelimiter.DefaultConfig(),
		ratelimiter.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	if err != nil {
		t.Fatalf("NewRegistry error: %v", err)
	}
	t.Cleanup(func() { registry.Close() })
	return registry
}

func TestApplyLimiters_CreatesInstances(t *testing.T) {
	registry := newTestRegistry(t)
	cfg := &RateLimitersConfig{
		Configs: map[string]LimiterConfig{"strict": {LimitForPeriod: 1}},
		Instances: map[string]LimiterConfig{
			"payments": {BaseConfig: "strict", Tags: map[string]string{"team": "billing"}},
			"search":   {LimitForPeriod: 100},
		},
	}

	result, err := ApplyLimiters(registry, cfg)
	if err != nil {
		t.Fatalf("ApplyLimiters error: %v", err)
	}
	if !slices.Equal(result.Created, []string{"payments", "search"}) {
		t.Errorf("expected both instances created, got %v", result.Created)
	}

	payments, ok := registry.Find("payments")
	if !ok {
		t.Fatal("expected payments to be registered")
	}
	if payments.Config().LimitForPeriod != 1 {
		t.Errorf("expected limit 1, got %d", payments.Config().LimitForPeriod)
	}
	if payments.Tags()["team"] != "billing" {
		t.Errorf("expected instance tags, got %v", payments.Tags())
	}
	if _, ok := registry.Configuration("strict"); !ok {
		t.Error("expected template registered as a named configuration")
	}
}

func TestApplyLimiters_Reconciles(t *testing.T) {
	registry := newTestRegistry(t)
	initial := &RateLimitersConfig{
		Instances: map[string]LimiterConfig{
			"a": {LimitForPeriod: 10},
			"b": {LimitForPeriod: 10},
			"c": {LimitForPeriod: 10},
			"d": {LimitForPeriod: 10},
		},
	}
	if _, err := ApplyLimiters(registry, initial); err != nil {
		t.Fatalf("initial ApplyLimiters error: %v", err)
	}
	originalA, _ := registry.Find("a")
	originalB, _ := registry.Find("b")

	next := &RateLimitersConfig{
		Instances: map[string]LimiterConfig{
			"a": {LimitForPeriod: 5, TimeoutDuration: durationPtr(time.Second)},
			"b": {LimitForPeriod: 10, LimitRefreshPeriod: time.Minute},
			"c": {LimitForPeriod: 10},
			"e": {LimitForPeriod: 1},
		},
	}
	result, err := ApplyLimiters(registry, next)
	if err != nil {
		t.Fatalf("ApplyLimiters error: %v", err)
	}

	if !slices.Equal(result.Updated, []string{"a"}) {
		t.Errorf("expected a updated, got %v", result.Updated)
	}
	if !slices.Equal(result.Replaced, []string{"b"}) {
		t.Errorf("expected b replaced, got %v", result.Replaced)
	}
	if !slices.Equal(result.Created, []string{"e"}) {
		t.Errorf("expected e created, got %v", result.Created)
	}
	if !slices.Equal(result.Removed, []string{"d"}) {
		t.Errorf("expected d removed, got %v", result.Removed)
	}

	a, _ := registry.Find("a")
	if a != originalA {
		t.Error("expected a to be updated in place")
	}
	if got := a.Config(); got.LimitForPeriod != 5 || got.TimeoutDuration != time.Second {
		t.Errorf("unexpected config for a: %v", got)
	}

	b, _ := registry.Find("b")
	if b == originalB {
		t.Error("expected b to be a new limiter")
	}
	if !originalB.Closed() {
		t.Error("expected the replaced limiter to be closed")
	}
	if b.Config().LimitRefreshPeriod != time.Minute {
		t.Errorf("expected new refresh period, got %v", b.Config().LimitRefreshPeriod)
	}

	if _, ok := registry.Find("d"); ok {
		t.Error("expected d to be removed")
	}
}

func TestApplyLimiters_NoChange(t *testing.T) {
	registry := newTestRegistry(t)
	cfg := &RateLimitersConfig{Instances: map[string]LimiterConfig{"a": {}}}

	if _, err := ApplyLimiters(registry, cfg); err != nil {
		t.Fatalf("ApplyLimiters error: %v", err)
	}
	result, err := ApplyLimiters(registry, cfg)
	if err != nil {
		t.Fatalf("ApplyLimiters error: %v", err)
	}
	if result.Changed() {
		t.Errorf("expected no changes, got %+v", result)
	}
}

func TestApplyLimiters_ReportsErrors(t *testing.T) {
	registry := newTestRegistry(t)
	cfg := &RateLimitersConfig{
		Instances: map[string]LimiterConfig{
			"bad":  {BaseConfig: "missing"},
			"good": {},
		},
	}

	result, err := ApplyLimiters(registry, cfg)
	if err == nil {
		t.Fatal("expected error for unresolvable instance")
	}
	if !slices.Equal(result.Created, []string{"good"}) {
		t.Errorf("expected good instance still created, got %v", result.Created)
	}
}
