// Package logging builds the structured loggers used across the service.
//
// # Overview
//
// The logging package configures Go's standard log/slog package:
//   - JSON, text and console formats
//   - Configurable log levels (debug, info, warn, error)
//   - Context-aware logging: request IDs and limiter names stored in a
//     context are added to every record logged with that context
//   - Component sub-loggers via WithComponent
//
// # Usage
//
//	logger, err := logging.New(logging.Config{
//	    Level:  "info",
//	    Format: "json",
//	})
//	if err != nil {
//	    return err
//	}
//	slog.SetDefault(logger)
//
//	ctx = logging.WithRequestID(ctx, "req-123")
//	logger.InfoContext(ctx, "snapshot served") // includes request_id
package logging
