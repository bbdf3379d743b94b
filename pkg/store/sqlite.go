package store

import (
	"database/sql"
	"time"

	_ "modernc.org/sqlite"

	"github.com/defarm/tracectl/pkg/traceerr"
)

// OpenSQLite opens a file-backed (or ":memory:") SQLite database, suitable
// for a single-node deployment or a local dev/test run that still wants a
// durable store instead of pkg/store's in-memory test doubles.
func OpenSQLite(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, traceerr.Connection(err, "open sqlite at %s", path)
	}
	// SQLite serializes writers; a single connection avoids SQLITE_BUSY
	// under concurrent access instead of needing a busy-timeout retry loop.
	db.SetMaxOpenConns(1)
	if err := migrateSQLite(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS items (
	dfid          TEXT PRIMARY KEY,
	status        TEXT NOT NULL,
	last_modified TEXT NOT NULL,
	data          TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS events (
	event_id   TEXT PRIMARY KEY,
	dfid       TEXT NOT NULL,
	type       TEXT NOT NULL,
	visibility TEXT NOT NULL,
	timestamp  TEXT NOT NULL,
	data       TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS events_dfid_idx ON events (dfid);
CREATE INDEX IF NOT EXISTS events_type_idx ON events (type);
CREATE INDEX IF NOT EXISTS events_visibility_idx ON events (visibility);
CREATE INDEX IF NOT EXISTS events_timestamp_idx ON events (timestamp);
`

func migrateSQLite(db *sql.DB) error {
	if _, err := db.Exec(sqliteSchema); err != nil {
		return traceerr.Storage(err, "migrate sqlite schema")
	}
	return nil
}

// sqliteTime formats a time.Time for SQLite's TEXT affinity using
// RFC3339Nano; the indexed timestamp columns are filter-only (the full
// value always comes back out of the JSON data column instead).
func sqliteTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }
