// Package server provides the admin HTTP server of the rate limiter
// service.
//
// The server exposes the limiter registry for inspection, the recorded
// limiter events, health probes and Prometheus metrics. It never acquires
// permits on behalf of callers; applications use the ratelimiter package
// directly.
//
// # Basic Usage
//
//	srv, err := server.New(&cfg.Server, server.Dependencies{
//	    Registry:    registry,
//	    Health:      checker,
//	    Metrics:     collector.Handler(),
//	    MetricsPath: cfg.Telemetry.Metrics.Path,
//	    Events:      backend,
//	    Version:     health.NewVersionInfo(version, commit, buildTime),
//	}, logger)
//	if err != nil {
//	    return err
//	}
//	return srv.Start(ctx) // returns after ctx is cancelled and shutdown completes
//
// # Routes
//
//   - GET /ratelimiters - every limiter with config and metrics snapshot
//   - GET /ratelimiters/{name} - a single limiter, 404 if unknown
//   - GET /ratelimiters/{name}/events?type=&since=&until=&limit= - stored events
//   - GET /health, /ready, /version - probes
//   - GET /metrics - Prometheus exposition (path is configurable)
//
// # Throttling
//
// When server.rate_limiter names a configured limiter instance, every
// /ratelimiters request acquires one permit from it. Requests that cannot
// get a permit within the limiter timeout are answered with 429 and a
// Retry-After header.
//
// # Middleware Chain
//
// Requests pass through, outermost first: Recovery, RequestID, Logging.
package server
