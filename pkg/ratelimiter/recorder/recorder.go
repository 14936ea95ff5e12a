// Package recorder persists rate limiter events without blocking callers.
//
// Events are queued on a bounded channel and written in batches by a
// single worker goroutine. When the queue is full the event is dropped and
// counted; an acquiring caller never waits on storage.
package recorder

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"mercator-hq/ratelimiter/pkg/ratelimiter"
	"mercator-hq/ratelimiter/pkg/ratelimiter/storage"
)

// Config contains configuration for the event recorder.
type Config struct {
	// BufferSize is the capacity of the queue between limiters and storage.
	// Default: 1000
	BufferSize int

	// BatchSize is the maximum number of events written in one Store call.
	// Default: 100
	BatchSize int

	// WriteTimeout bounds a single Store call.
	// Default: 5 seconds
	WriteTimeout time.Duration
}

// DefaultConfig returns the default recorder configuration.
func DefaultConfig() Config {
	return Config{
		BufferSize:   1000,
		BatchSize:    100,
		WriteTimeout: 5 * time.Second,
	}
}

// Stats counts what happened to recorded events.
type Stats struct {
	Recorded uint64 `json:"recorded"`
	Dropped  uint64 `json:"dropped"`
	Failed   uint64 `json:"failed"`
}

// Recorder writes limiter events to a storage backend asynchronously.
type Recorder struct {
	backend storage.Backend
	config  Config
	logger  *slog.Logger

	queue chan *storage.Record
	done  chan struct{}
	wg    sync.WaitGroup

	// mu orders sends on queue before the worker's final drain: Record
	// holds the read lock across its closed check and send.
	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once

	dropLog rate.Sometimes

	recorded atomic.Uint64
	dropped  atomic.Uint64
	failed   atomic.Uint64
}

// New creates a recorder and starts its worker. Zero config fields take
// their defaults; a nil logger means slog.Default().
func New(backend storage.Backend, config Config, logger *slog.Logger) *Recorder {
	defaults := DefaultConfig()
	if config.BufferSize <= 0 {
		config.BufferSize = defaults.BufferSize
	}
	if config.BatchSize <= 0 {
		config.BatchSize = defaults.BatchSize
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = defaults.WriteTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	r := &Recorder{
		backend: backend,
		config:  config,
		logger:  logger.With("component", "ratelimiter.recorder"),
		queue:   make(chan *storage.Record, config.BufferSize),
		done:    make(chan struct{}),
		dropLog: rate.Sometimes{Interval: 10 * time.Second},
	}

	r.wg.Add(1)
	go r.worker()

	r.logger.Info("event recorder initialized",
		"buffer_size", config.BufferSize,
		"batch_size", config.BatchSize,
		"write_timeout", config.WriteTimeout,
	)

	return r
}

// Attach subscribes the recorder to every limiter in the registry,
// present and future.
func (r *Recorder) Attach(registry *ratelimiter.Registry) {
	registry.OnAdded(func(l *ratelimiter.RateLimiter) {
		l.EventPublisher().OnEvent(r.Record)
	})
}

// Record queues an event for storage. It never blocks; events that do not
// fit in the queue, or arrive after Close, are dropped.
func (r *Recorder) Record(event ratelimiter.Event) {
	record := storage.NewRecord(uuid.New().String(), event)

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		r.dropped.Add(1)
		return
	}

	select {
	case r.queue <- record:
	default:
		r.dropped.Add(1)
		r.dropLog.Do(func() {
			r.logger.Warn("event queue full, dropping events",
				"limiter", event.LimiterName,
				"buffer_size", r.config.BufferSize,
				"dropped_total", r.dropped.Load(),
			)
		})
	}
}

// Stats returns the recorder counters.
func (r *Recorder) Stats() Stats {
	return Stats{
		Recorded: r.recorded.Load(),
		Dropped:  r.dropped.Load(),
		Failed:   r.failed.Load(),
	}
}

// Close stops accepting events, writes what is queued and waits for the
// worker to exit. It does not close the backend.
func (r *Recorder) Close() error {
	r.closeOnce.Do(func() {
		r.mu.Lock()
		r.closed = true
		r.mu.Unlock()

		close(r.done)
		r.wg.Wait()

		stats := r.Stats()
		r.logger.Info("event recorder shut down",
			"recorded", stats.Recorded,
			"dropped", stats.Dropped,
			"failed", stats.Failed,
		)
	})
	return nil
}

func (r *Recorder) worker() {
	defer r.wg.Done()

	batch := make([]*storage.Record, 0, r.config.BatchSize)
	for {
		select {
		case record := <-r.queue:
			batch = r.fill(append(batch, record))
			r.write(batch)
			batch = batch[:0]

		case <-r.done:
			for {
				batch = r.fill(batch)
				if len(batch) == 0 {
					return
				}
				r.write(batch)
				batch = batch[:0]
			}
		}
	}
}

// fill tops the batch up with whatever is queued, without waiting.
func (r *Recorder) fill(batch []*storage.Record) []*storage.Record {
	for len(batch) < r.config.BatchSize {
		select {
		case record := <-r.queue:
			batch = append(batch, record)
		default:
			return batch
		}
	}
	return batch
}

func (r *Recorder) write(batch []*storage.Record) {
	ctx, cancel := context.WithTimeout(context.Background(), r.config.WriteTimeout)
	defer cancel()

	start := time.Now()
	if err := r.backend.Store(ctx, batch...); err != nil {
		r.failed.Add(uint64(len(batch)))
		r.logger.Error("failed to store events",
			"count", len(batch),
			"error", err,
		)
		return
	}
	r.recorded.Add(uint64(len(batch)))

	if duration := time.Since(start); duration > r.config.WriteTimeout/2 {
		r.logger.Warn("slow event write",
			"count", len(batch),
			"duration_ms", duration.Milliseconds(),
		)
	}
}
