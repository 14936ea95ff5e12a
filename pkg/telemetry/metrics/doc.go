// Package metrics exports rate limiter state as Prometheus metrics.
//
// # Metrics
//
// With the default "ratelimiter" namespace:
//
//	ratelimiter_available_permissions{name}        gauge
//	ratelimiter_waiting_threads{name}              gauge
//	ratelimiter_limit_for_period{name}             gauge
//	ratelimiter_limit_refresh_period_seconds{name} gauge
//	ratelimiter_calls_total{name,kind}             counter (kind: successful, failed)
//	ratelimiter_events_recorded_total              counter
//	ratelimiter_events_dropped_total               counter
//	ratelimiter_events_failed_total                counter
//
// Gauges are read from the limiters at scrape time. The calls counter is
// fed by limiter events and restarts from zero when a limiter is replaced.
//
// # Usage
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	collector.Attach(registry)
//	collector.TrackRecorder(rec)
//	http.Handle("/metrics", collector.Handler())
package metrics
