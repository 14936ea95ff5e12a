package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // registers "sqlite3"
	_ "modernc.org/sqlite"          // registers "sqlite"

	"mercator-hq/ratelimiter/pkg/ratelimiter"
)

// SQLite driver names accepted by SQLiteConfig.Driver.
const (
	DriverModernc = "sqlite"
	DriverMattn   = "sqlite3"
)

// SQLiteConfig configures the SQLite backend.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// Driver selects the database/sql driver.
	// Default: DriverModernc
	Driver string

	// WALMode enables write-ahead logging.
	// Default: true via DefaultSQLiteConfig
	WALMode bool

	// BusyTimeout is how long to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration

	// Logger receives backend logs. Defaults to slog.Default().
	Logger *slog.Logger
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() SQLiteConfig {
	return SQLiteConfig{
		Path:        "data/events.db",
		Driver:      DriverModernc,
		WALMode:     true,
		BusyTimeout: 5 * time.Second,
	}
}

// SQLiteBackend stores events in an SQLite database.
type SQLiteBackend struct {
	db        *sql.DB
	config    SQLiteConfig
	logger    *slog.Logger
	closeOnce sync.Once
}

// NewSQLiteBackend opens the database, creates the schema if needed and
// verifies the schema version.
func NewSQLiteBackend(config SQLiteConfig) (*SQLiteBackend, error) {
	if config.Path == "" {
		return nil, NewStorageError("sqlite", "open", errors.New("path cannot be empty"))
	}
	if config.Driver == "" {
		config.Driver = DriverModernc
	}
	if config.Driver != DriverModernc && config.Driver != DriverMattn {
		return nil, NewStorageError("sqlite", "open",
			fmt.Errorf("unknown driver %q (want %q or %q)", config.Driver, DriverModernc, DriverMattn))
	}
	if config.BusyTimeout == 0 {
		config.BusyTimeout = 5 * time.Second
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "ratelimiter.storage.sqlite")

	db, err := sql.Open(config.Driver, config.Path)
	if err != nil {
		return nil, NewStorageError("sqlite", "open", err)
	}

	// SQLite allows a single writer; pragmas below are per connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	b := &SQLiteBackend{
		db:     db,
		config: config,
		logger: logger,
	}

	if err := b.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("SQLite event storage initialized",
		"path", config.Path,
		"driver", config.Driver,
		"wal_mode", config.WALMode,
	)

	return b, nil
}

func (b *SQLiteBackend) initialize() error {
	if b.config.WALMode {
		if _, err := b.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return NewStorageError("sqlite", "enable_wal", err)
		}
	}

	if _, err := b.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", b.config.BusyTimeout.Milliseconds())); err != nil {
		return NewStorageError("sqlite", "set_busy_timeout", err)
	}

	if _, err := b.db.Exec(Schema); err != nil {
		return NewStorageError("sqlite", "create_schema", err)
	}

	if _, err := b.db.Exec(insertSchemaVersion, SchemaVersion, time.Now().Unix()); err != nil {
		return NewStorageError("sqlite", "insert_schema_version", err)
	}

	var version int
	if err := b.db.QueryRow(getSchemaVersion).Scan(&version); err != nil {
		return NewStorageError("sqlite", "get_schema_version", err)
	}
	if version != SchemaVersion {
		return NewStorageError("sqlite", "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}

	b.logger.Debug("schema version verified", "version", version)
	return nil
}

// Store inserts records in one transaction. Records whose ID already
// exists are skipped.
func (b *SQLiteBackend) Store(ctx context.Context, records ...*Record) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return NewStorageError("sqlite", "store", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, insertEvent)
	if err != nil {
		return NewStorageError("sqlite", "store", err)
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx,
			r.ID, r.LimiterName, string(r.Type), r.Permits, r.CreatedAt.UnixNano(),
		); err != nil {
			return NewStorageError("sqlite", "store", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return NewStorageError("sqlite", "store", err)
	}
	return nil
}

// Query returns matching records, newest first.
func (b *SQLiteBackend) Query(ctx context.Context, query *Query) ([]*Record, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	where, args := buildWhereClause(query)
	sqlQuery := "SELECT id, limiter_name, type, permits, created_at FROM events" + where +
		fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT %d", query.limit())

	rows, err := b.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, NewStorageError("sqlite", "query", err)
	}
	defer rows.Close()

	records := []*Record{}
	for rows.Next() {
		var (
			r         Record
			eventType string
			createdAt int64
		)
		if err := rows.Scan(&r.ID, &r.LimiterName, &eventType, &r.Permits, &createdAt); err != nil {
			return nil, NewStorageError("sqlite", "scan", err)
		}
		r.Type = ratelimiter.EventType(eventType)
		r.CreatedAt = time.Unix(0, createdAt).UTC()
		records = append(records, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, NewStorageError("sqlite", "query", err)
	}
	return records, nil
}

// Count returns the number of matching records.
func (b *SQLiteBackend) Count(ctx context.Context, query *Query) (int64, error) {
	if err := query.Validate(); err != nil {
		return 0, err
	}

	where, args := buildWhereClause(query)
	var count int64
	if err := b.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM events"+where, args...).Scan(&count); err != nil {
		return 0, NewStorageError("sqlite", "count", err)
	}
	return count, nil
}

// Delete removes matching records.
func (b *SQLiteBackend) Delete(ctx context.Context, query *Query) (int64, error) {
	if err := query.Validate(); err != nil {
		return 0, err
	}

	where, args := buildWhereClause(query)
	result, err := b.db.ExecContext(ctx, "DELETE FROM events"+where, args...)
	if err != nil {
		return 0, NewStorageError("sqlite", "delete", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, NewStorageError("sqlite", "delete", err)
	}
	return deleted, nil
}

// Ping checks the database connection.
func (b *SQLiteBackend) Ping(ctx context.Context) error {
	if err := b.db.PingContext(ctx); err != nil {
		return NewStorageError("sqlite", "ping", err)
	}
	return nil
}

// Close closes the database. It is safe to call more than once.
func (b *SQLiteBackend) Close() error {
	var err error
	b.closeOnce.Do(func() {
		if cerr := b.db.Close(); cerr != nil {
			err = NewStorageError("sqlite", "close", cerr)
			return
		}
		b.logger.Info("SQLite event storage closed")
	})
	return err
}

// buildWhereClause returns the WHERE clause, including the keyword, and
// its arguments. It returns an empty clause when the query has no filters.
func buildWhereClause(query *Query) (string, []any) {
	var (
		conditions []string
		args       []any
	)

	if query.LimiterName != "" {
		conditions = append(conditions, "limiter_name = ?")
		args = append(args, query.LimiterName)
	}
	if query.Type != "" {
		conditions = append(conditions, "type = ?")
		args = append(args, string(query.Type))
	}
	if !query.Since.IsZero() {
		conditions = append(conditions, "created_at >= ?")
		args = append(args, query.Since.UnixNano())
	}
	if !query.Until.IsZero() {
		conditions = append(conditions, "created_at < ?")
		args = append(args, query.Until.UnixNano())
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}
