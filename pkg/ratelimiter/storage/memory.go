package storage

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
)

var errBackendClosed = errors.New("backend closed")

// MemoryBackend keeps records in memory. Records are lost on restart.
type MemoryBackend struct {
	mu      sync.RWMutex
	records map[string]*Record
	closed  bool
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		records: make(map[string]*Record),
	}
}

// Store saves copies of the records, replacing any with the same ID.
func (m *MemoryBackend) Store(ctx context.Context, records ...*Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return NewStorageError("memory", "store", errBackendClosed)
	}
	for _, r := range records {
		recordCopy := *r
		m.records[r.ID] = &recordCopy
	}
	return nil
}

// Query returns copies of matching records, newest first.
func (m *MemoryBackend) Query(ctx context.Context, query *Query) ([]*Record, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, NewStorageError("memory", "query", errBackendClosed)
	}

	results := []*Record{}
	for _, r := range m.records {
		if query.matches(r) {
			recordCopy := *r
			results = append(results, &recordCopy)
		}
	}

	slices.SortFunc(results, func(a, b *Record) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(b.ID, a.ID)
	})

	if limit := query.limit(); len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// Count returns the number of matching records.
func (m *MemoryBackend) Count(ctx context.Context, query *Query) (int64, error) {
	if err := query.Validate(); err != nil {
		return 0, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return 0, NewStorageError("memory", "count", errBackendClosed)
	}

	var count int64
	for _, r := range m.records {
		if query.matches(r) {
			count++
		}
	}
	return count, nil
}

// Delete removes matching records.
func (m *MemoryBackend) Delete(ctx context.Context, query *Query) (int64, error) {
	if err := query.Validate(); err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, NewStorageError("memory", "delete", errBackendClosed)
	}

	var deleted int64
	for id, r := range m.records {
		if query.matches(r) {
			delete(m.records, id)
			deleted++
		}
	}
	return deleted, nil
}

// Ping fails once the backend is closed.
func (m *MemoryBackend) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return NewStorageError("memory", "ping", errBackendClosed)
	}
	return nil
}

// Close drops all records.
func (m *MemoryBackend) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.records = make(map[string]*Record)
	return nil
}

// Size returns the number of stored records.
func (m *MemoryBackend) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}
