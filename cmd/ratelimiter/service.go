package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"mercator-hq/ratelimiter/pkg/config"
	"mercator-hq/ratelimiter/pkg/ratelimiter"
	"mercator-hq/ratelimiter/pkg/ratelimiter/recorder"
	"mercator-hq/ratelimiter/pkg/ratelimiter/retention"
	"mercator-hq/ratelimiter/pkg/ratelimiter/storage"
	"mercator-hq/ratelimiter/pkg/server"
	"mercator-hq/ratelimiter/pkg/telemetry/health"
	"mercator-hq/ratelimiter/pkg/telemetry/metrics"
)

// service owns every long-lived component of the run command.
type service struct {
	logger *slog.Logger

	registry  *ratelimiter.Registry
	collector *metrics.Collector
	checker   *health.Checker
	server    *server.Server

	// Nil when event recording is disabled.
	backend  storage.Backend
	recorder *recorder.Recorder
	pruner   *retention.Pruner

	applyMu sync.Mutex
}

// newService wires the components described by cfg. Nothing is started;
// on error everything created so far is closed.
func newService(cfg *config.Config, logger *slog.Logger) (_ *service, err error) {
	svc := &service{logger: logger}
	defer func() {
		if err != nil {
			_ = svc.close()
		}
	}()

	svc.registry, err = ratelimiter.NewRegistry(cfg.RateLimiters.DefaultLimiter(),
		ratelimiter.WithLogger(logger),
		ratelimiter.WithTags(cfg.RateLimiters.Tags),
	)
	if err != nil {
		return nil, fmt.Errorf("create registry: %w", err)
	}

	svc.collector = metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
	svc.collector.Attach(svc.registry)

	svc.checker = health.New(0)
	svc.checker.RegisterCheck("registry", health.RegistryCheck(svc.registry))

	if cfg.Events.Enabled {
		svc.backend, err = openBackend(&cfg.Events, logger)
		if err != nil {
			return nil, err
		}
		svc.recorder = recorder.New(svc.backend, recorder.Config{
			BufferSize:   cfg.Events.BufferSize,
			BatchSize:    cfg.Events.BatchSize,
			WriteTimeout: cfg.Events.WriteTimeout,
		}, logger)
		svc.recorder.Attach(svc.registry)
		svc.collector.TrackRecorder(svc.recorder)
		svc.checker.RegisterCheck("events", health.BackendCheck(svc.backend))

		svc.pruner = retention.NewPruner(svc.backend, retentionConfig(&cfg.Events.Retention), logger)
	}

	if _, err = config.ApplyLimiters(svc.registry, &cfg.RateLimiters); err != nil {
		return nil, fmt.Errorf("create rate limiters: %w", err)
	}

	deps := server.Dependencies{
		Registry: svc.registry,
		Health:   svc.checker,
		Events:   svc.backend,
		Version:  versionInfo(),
	}
	if cfg.Telemetry.Metrics.Enabled {
		deps.Metrics = svc.collector.Handler()
		deps.MetricsPath = cfg.Telemetry.Metrics.Path
	}
	svc.server, err = server.New(&cfg.Server, deps, logger)
	if err != nil {
		return nil, err
	}

	return svc, nil
}

// start begins retention scheduling and binds the admin listener.
func (s *service) start(ctx context.Context) error {
	if s.pruner != nil && s.pruner.Config().PruneSchedule != "" {
		if err := s.pruner.Start(ctx); err != nil {
			return fmt.Errorf("start retention scheduler: %w", err)
		}
		if next := s.pruner.NextPruning(); next != nil {
			s.logger.Debug("event retention scheduler started", "next_pruning", next)
		}
	}
	return s.server.Listen()
}

// serve blocks until ctx is cancelled and the admin server has shut down.
func (s *service) serve(ctx context.Context) error {
	return s.server.Serve(ctx)
}

// apply reconciles the registry with a reloaded configuration. Only the
// ratelimiters section is applied; other sections take effect on restart.
func (s *service) apply(cfg *config.Config) {
	s.applyMu.Lock()
	defer s.applyMu.Unlock()

	result, err := config.ApplyLimiters(s.registry, &cfg.RateLimiters)
	if err != nil {
		s.logger.Error("failed to apply rate limiter configuration", "error", err)
	}
	if result.Changed() {
		s.logger.Info("rate limiter configuration applied",
			"created", result.Created,
			"updated", result.Updated,
			"replaced", result.Replaced,
			"removed", result.Removed,
		)
	}
}

// close releases components in reverse dependency order. Limiters are
// closed before the recorder so their last events are flushed.
func (s *service) close() error {
	var errs []error

	if s.server != nil {
		errs = append(errs, s.server.Shutdown(context.Background()))
	}
	if s.pruner != nil {
		s.pruner.Stop()
	}
	if s.registry != nil {
		errs = append(errs, s.registry.Close())
	}
	if s.recorder != nil {
		errs = append(errs, s.recorder.Close())
	}
	if s.backend != nil {
		errs = append(errs, s.backend.Close())
	}
	return errors.Join(errs...)
}

// openBackend creates the configured event storage backend.
func openBackend(cfg *config.EventsConfig, logger *slog.Logger) (storage.Backend, error) {
	switch cfg.Backend {
	case "memory":
		return storage.NewMemoryBackend(), nil

	case "sqlite":
		if dir := filepath.Dir(cfg.SQLite.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create event storage directory: %w", err)
			}
		}
		backend, err := storage.NewSQLiteBackend(storage.SQLiteConfig{
			Path:        cfg.SQLite.Path,
			Driver:      cfg.SQLite.Driver,
			WALMode:     cfg.SQLite.WALMode,
			BusyTimeout: cfg.SQLite.BusyTimeout,
			Logger:      logger,
		})
		if err != nil {
			return nil, fmt.Errorf("open event storage: %w", err)
		}
		return backend, nil

	default:
		return nil, fmt.Errorf("unsupported events backend: %s", cfg.Backend)
	}
}

func retentionConfig(cfg *config.RetentionConfig) retention.Config {
	return retention.Config{
		MaxAge:        cfg.MaxAge,
		MaxRecords:    cfg.MaxRecords,
		PruneSchedule: cfg.PruneSchedule,
	}
}
