// Package health provides liveness and readiness probes for the rate
// limiter service.
//
// # Endpoints
//
//   - /health: Liveness probe, 200 while the process runs
//   - /ready: Readiness probe, 503 when any registered check fails
//   - /version: Build information
//
// # Usage
//
//	checker := health.New(5 * time.Second)
//	checker.RegisterCheck("registry", health.RegistryCheck(registry))
//	checker.RegisterCheck("events", health.BackendCheck(backend))
//
//	mux.HandleFunc("GET /health", checker.LivenessHandler())
//	mux.HandleFunc("GET /ready", checker.ReadinessHandler())
//
// Checks run concurrently, each bounded by the checker timeout.
package health
