// Package storage persists rate limiter events.
//
// # Backends
//
//   - MemoryBackend: map-backed store for tests and short-lived processes
//   - SQLiteBackend: embedded database, opened with either the pure Go
//     driver ("sqlite", modernc.org/sqlite) or the cgo driver ("sqlite3",
//     github.com/mattn/go-sqlite3)
//
// # Basic Usage
//
//	backend, err := storage.NewSQLiteBackend(storage.SQLiteConfig{
//	    Path:   "data/events.db",
//	    Driver: storage.DriverModernc,
//	})
//	if err != nil {
//	    return err
//	}
//	defer backend.Close()
//
//	records, err := backend.Query(ctx, &storage.Query{
//	    LimiterName: "payments",
//	    Type:        ratelimiter.EventFailedAcquire,
//	    Limit:       50,
//	})
//
// Query results are ordered newest first.
//
// # Thread Safety
//
// All backends are safe for concurrent use.
package storage
