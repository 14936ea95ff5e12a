package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestContextFields(t *testing.T) {
	ctx := context.Background()
	if GetRequestID(ctx) != "" || GetLimiter(ctx) != "" {
		t.Error("Expected empty values on a bare context")
	}

	ctx = WithRequestID(ctx, "req-123")
	ctx = WithLimiter(ctx, "payments")

	if got := GetRequestID(ctx); got != "req-123" {
		t.Errorf("Expected req-123, got %q", got)
	}
	if got := GetLimiter(ctx); got != "payments" {
		t.Errorf("Expected payments, got %q", got)
	}
	if fields := extractContextFields(ctx); len(fields) != 2 {
		t.Errorf("Expected 2 fields, got %d", len(fields))
	}
}

func TestContextHandler_AddsFields(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Format: "text", Writer: &buf})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	ctx := WithLimiter(WithRequestID(context.Background(), "req-9"), "search")
	logger.With("component", "server").WithGroup("http").InfoContext(ctx, "served", "status", 200)

	out := buf.String()
	for _, want := range []string{"component=server", "http.status=200", "request_id=req-9", "limiter=search"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in %q", want, out)
		}
	}
}

func TestFromContext(t *testing.T) {
	if FromContext(context.Background()) != slog.Default() {
		t.Error("Expected slog.Default() without a stored logger")
	}

	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	ctx := WithLogger(context.Background(), logger)
	if FromContext(ctx) != logger {
		t.Error("Expected the stored logger")
	}
}
