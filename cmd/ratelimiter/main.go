// Ratelimiter runs a set of named rate limiters behind an admin HTTP API.
//
// Limiters are declared in a YAML file and can be reconfigured without a
// restart. Every acquisition outcome can be recorded to SQLite, and the
// limiter state is exported as Prometheus metrics.
//
// Usage:
//
//	# Start with the default configuration file
//	ratelimiter run
//
//	# Start with a custom configuration file
//	ratelimiter run --config /etc/ratelimiter/config.yaml
//
//	# Check a configuration file and print the resolved limiters
//	ratelimiter validate --config config.yaml
//
//	# Inspect recorded events
//	ratelimiter events query --limiter payments --type failed_acquire
//
//	# Show version information
//	ratelimiter version
package main

import "os"

func main() {
	os.Exit(Execute())
}
