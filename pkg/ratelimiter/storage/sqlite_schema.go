package storage

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// Schema creates the events table. created_at holds Unix nanoseconds so
// both drivers read and write the same representation.
const Schema = `
CREATE TABLE IF NOT EXISTS events (
    id TEXT PRIMARY KEY,
    limiter_name TEXT NOT NULL,
    type TEXT NOT NULL,
    permits INTEGER NOT NULL,
    created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_events_limiter_created ON events(limiter_name, created_at);
CREATE INDEX IF NOT EXISTS idx_events_created ON events(created_at);
`

const insertSchemaVersion = `
INSERT INTO schema_version (version, applied_at)
VALUES (?, ?)
ON CONFLICT(version) DO NOTHING;
`

const getSchemaVersion = `
SELECT version FROM schema_version ORDER BY version DESC LIMIT 1;
`

const insertEvent = `
INSERT INTO events (id, limiter_name, type, permits, created_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(id) DO NOTHING;
`
