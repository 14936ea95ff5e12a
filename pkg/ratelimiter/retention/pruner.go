// Package retention deletes stored limiter events once they age out.
//
// A Pruner removes events older than MaxAge and, optionally, the oldest
// events above MaxRecords. A Scheduler runs the pruner on a cron schedule:
//
//	pruner := retention.NewPruner(backend, retention.Config{
//	    MaxAge:        7 * 24 * time.Hour,
//	    PruneSchedule: "0 3 * * *",
//	}, logger)
//	if err := pruner.Start(ctx); err != nil {
//	    return err
//	}
//	defer pruner.Stop()
package retention

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"mercator-hq/ratelimiter/pkg/ratelimiter/storage"
)

// Config contains configuration for the retention pruner.
type Config struct {
	// MaxAge is how long events are kept. 0 keeps them forever.
	MaxAge time.Duration

	// MaxRecords caps the number of stored events. 0 means unlimited.
	MaxRecords int64

	// PruneSchedule is a standard five-field cron expression.
	// Example: "0 3 * * *" (daily at 3 AM). Empty disables scheduling.
	PruneSchedule string
}

// DefaultConfig returns the default retention configuration.
func DefaultConfig() Config {
	return Config{
		MaxAge:        7 * 24 * time.Hour,
		PruneSchedule: "0 3 * * *",
	}
}

// Pruner enforces the retention policy on a storage backend.
type Pruner struct {
	backend   storage.Backend
	config    Config
	logger    *slog.Logger
	now       func() time.Time
	scheduler *Scheduler
}

// NewPruner creates a pruner. A nil logger means slog.Default().
func NewPruner(backend storage.Backend, config Config, logger *slog.Logger) *Pruner {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pruner{
		backend: backend,
		config:  config,
		logger:  logger.With("component", "ratelimiter.retention"),
		now:     time.Now,
	}
	p.scheduler = NewScheduler(p)
	return p
}

// Config returns the pruner configuration.
func (p *Pruner) Config() Config {
	return p.config
}

// Prune deletes events older than MaxAge, then the oldest events above
// MaxRecords. It returns the total number deleted.
func (p *Pruner) Prune(ctx context.Context) (int64, error) {
	var total int64

	if p.config.MaxAge > 0 {
		deleted, err := p.PruneOlderThan(ctx, p.config.MaxAge)
		if err != nil {
			return total, err
		}
		total += deleted
	}

	if p.config.MaxRecords > 0 {
		deleted, err := p.pruneByCount(ctx)
		if err != nil {
			return total, fmt.Errorf("prune by count failed: %w", err)
		}
		total += deleted
	}

	if total > 0 {
		p.logger.Info("event pruning completed",
			"total_deleted", total,
			"max_age", p.config.MaxAge,
			"max_records", p.config.MaxRecords,
		)
	} else {
		p.logger.Debug("no events pruned")
	}
	return total, nil
}

// PruneOlderThan deletes events created more than age ago.
func (p *Pruner) PruneOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	if age <= 0 {
		return 0, fmt.Errorf("age must be positive, got %v", age)
	}
	cutoff := p.now().Add(-age)

	deleted, err := p.backend.Delete(ctx, &storage.Query{Until: cutoff})
	if err != nil {
		return 0, fmt.Errorf("prune by age failed: %w", err)
	}

	p.logger.Debug("pruned events by age",
		"deleted_count", deleted,
		"cutoff_time", cutoff,
	)
	return deleted, nil
}

// pruneByCount deletes the oldest events above MaxRecords. Events sharing
// the cutoff timestamp are kept, so the store may stay slightly above the cap.
func (p *Pruner) pruneByCount(ctx context.Context) (int64, error) {
	count, err := p.backend.Count(ctx, &storage.Query{})
	if err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	if count <= p.config.MaxRecords {
		return 0, nil
	}

	// The newest MaxRecords events are kept; the oldest kept one marks the cutoff.
	keep, err := p.backend.Query(ctx, &storage.Query{Limit: int(min(p.config.MaxRecords, storage.MaxQueryLimit))})
	if err != nil {
		return 0, fmt.Errorf("failed to query events: %w", err)
	}
	if len(keep) == 0 {
		return 0, nil
	}
	cutoff := keep[len(keep)-1].CreatedAt

	deleted, err := p.backend.Delete(ctx, &storage.Query{Until: cutoff})
	if err != nil {
		return 0, fmt.Errorf("delete failed: %w", err)
	}

	p.logger.Info("event count exceeded limit, pruned oldest",
		"previous_count", count,
		"max_records", p.config.MaxRecords,
		"deleted_count", deleted,
	)
	return deleted, nil
}

// Start starts the pruning schedule.
func (p *Pruner) Start(ctx context.Context) error {
	return p.scheduler.Start(ctx)
}

// Stop stops the pruning schedule and waits for a running prune to finish.
func (p *Pruner) Stop() {
	p.scheduler.Stop()
}

// NextPruning returns the next scheduled run, or nil if none is scheduled.
func (p *Pruner) NextPruning() *time.Time {
	return p.scheduler.NextRun()
}
