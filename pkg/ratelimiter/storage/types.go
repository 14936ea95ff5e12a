package storage

import (
	"context"
	"fmt"
	"time"

	"mercator-hq/ratelimiter/pkg/ratelimiter"
)

const (
	// DefaultQueryLimit is used when a query does not set a limit.
	DefaultQueryLimit = 100

	// MaxQueryLimit caps the number of records a single query returns.
	MaxQueryLimit = 10000
)

// Record is a stored limiter event.
type Record struct {
	ID          string                `json:"id"`
	LimiterName string                `json:"limiter_name"`
	Type        ratelimiter.EventType `json:"type"`
	Permits     int                   `json:"permits"`
	CreatedAt   time.Time             `json:"created_at"`
}

// NewRecord converts a limiter event into a record with the given ID.
func NewRecord(id string, event ratelimiter.Event) *Record {
	return &Record{
		ID:          id,
		LimiterName: event.LimiterName,
		Type:        event.Type,
		Permits:     event.Permits,
		CreatedAt:   event.CreatedAt,
	}
}

// Query filters stored records. Zero values mean "no filter".
type Query struct {
	LimiterName string
	Type        ratelimiter.EventType

	// Since and Until bound CreatedAt. Since is inclusive, Until exclusive.
	Since time.Time
	Until time.Time

	// Limit caps the result size of Query. Delete and Count ignore it.
	Limit int
}

// Validate checks the query parameters.
func (q *Query) Validate() error {
	if q.Limit < 0 {
		return NewQueryError(q, fmt.Errorf("limit must be >= 0, got %d", q.Limit))
	}
	if q.Limit > MaxQueryLimit {
		return NewQueryError(q, fmt.Errorf("limit must be <= %d, got %d", MaxQueryLimit, q.Limit))
	}
	if !q.Since.IsZero() && !q.Until.IsZero() && q.Since.After(q.Until) {
		return NewQueryError(q, fmt.Errorf("since must not be after until"))
	}
	switch q.Type {
	case "", ratelimiter.EventSuccessfulAcquire, ratelimiter.EventFailedAcquire, ratelimiter.EventDrained:
	default:
		return NewQueryError(q, fmt.Errorf("invalid event type: %s", q.Type))
	}
	return nil
}

func (q *Query) limit() int {
	if q.Limit == 0 {
		return DefaultQueryLimit
	}
	return q.Limit
}

func (q *Query) matches(r *Record) bool {
	if q.LimiterName != "" && r.LimiterName != q.LimiterName {
		return false
	}
	if q.Type != "" && r.Type != q.Type {
		return false
	}
	if !q.Since.IsZero() && r.CreatedAt.Before(q.Since) {
		return false
	}
	if !q.Until.IsZero() && !r.CreatedAt.Before(q.Until) {
		return false
	}
	return true
}

// Backend stores and retrieves limiter events.
type Backend interface {
	// Store persists records in a single batch.
	Store(ctx context.Context, records ...*Record) error

	// Query returns matching records, newest first.
	Query(ctx context.Context, query *Query) ([]*Record, error)

	// Count returns the number of matching records.
	Count(ctx context.Context, query *Query) (int64, error)

	// Delete removes matching records and returns how many were removed.
	Delete(ctx context.Context, query *Query) (int64, error)

	// Ping reports whether the backend is usable.
	Ping(ctx context.Context) error

	// Close releases resources held by the backend.
	Close() error
}

// StorageError is returned when a backend operation fails.
type StorageError struct {
	Backend   string // "memory", "sqlite"
	Operation string // "store", "query", "delete", ...
	Cause     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error [backend=%s, operation=%s]: %v", e.Backend, e.Operation, e.Cause)
}

func (e *StorageError) Unwrap() error {
	return e.Cause
}

// NewStorageError creates a StorageError.
func NewStorageError(backend, operation string, cause error) *StorageError {
	return &StorageError{
		Backend:   backend,
		Operation: operation,
		Cause:     cause,
	}
}

// QueryError is returned for invalid queries.
type QueryError struct {
	Query *Query
	Cause error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query error: %v", e.Cause)
}

func (e *QueryError) Unwrap() error {
	return e.Cause
}

// NewQueryError creates a QueryError.
func NewQueryError(query *Query, cause error) *QueryError {
	return &QueryError{
		Query: query,
		Cause: cause,
	}
}
