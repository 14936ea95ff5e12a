// Package telemetry groups the observability packages of the rate limiter
// service.
//
// # Components
//
//   - logging: slog construction and request-scoped log fields
//   - metrics: Prometheus gauges and counters read from limiter snapshots
//   - health: liveness and readiness checks with HTTP handlers
//
// # Usage
//
//	logger, err := logging.New(logging.Config{Level: "info", Format: "json"})
//	if err != nil {
//	    return err
//	}
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	collector.Attach(registry)
//	mux.Handle("/metrics", collector.Handler())
//
//	checker := health.New(0)
//	checker.RegisterCheck("registry", health.RegistryCheck(registry))
//	mux.HandleFunc("/ready", checker.ReadinessHandler())
package telemetry
