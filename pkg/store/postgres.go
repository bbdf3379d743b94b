package store

import (
	"database/sql"

	_ "github.com/lib/pq"

	"github.com/defarm/tracectl/pkg/traceerr"
)

// OpenPostgres opens a connection pool against dsn and applies every
// table migration this package's stores need. Safe to call once at
// startup; migrations are idempotent (CREATE TABLE IF NOT EXISTS).
func OpenPostgres(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, traceerr.Connection(err, "open postgres")
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, traceerr.Connection(err, "ping postgres")
	}
	if err := migratePostgres(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

const postgresSchema = `
CREATE TABLE IF NOT EXISTS items (
	dfid          TEXT PRIMARY KEY,
	status        TEXT NOT NULL,
	last_modified TIMESTAMPTZ NOT NULL,
	data          TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS events (
	event_id   TEXT PRIMARY KEY,
	dfid       TEXT NOT NULL,
	type       TEXT NOT NULL,
	visibility TEXT NOT NULL,
	timestamp  TIMESTAMPTZ NOT NULL,
	data       TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS events_dfid_idx ON events (dfid);
CREATE INDEX IF NOT EXISTS events_type_idx ON events (type);
CREATE INDEX IF NOT EXISTS events_visibility_idx ON events (visibility);
CREATE INDEX IF NOT EXISTS events_timestamp_idx ON events (timestamp);

CREATE TABLE IF NOT EXISTS snapshots (
	entity_id TEXT NOT NULL,
	sequence  BIGINT NOT NULL,
	data      TEXT NOT NULL,
	PRIMARY KEY (entity_id, sequence)
);

CREATE TABLE IF NOT EXISTS storage_history (
	dfid TEXT PRIMARY KEY,
	data TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS datalake_entries (
	entry_id TEXT PRIMARY KEY,
	status   TEXT NOT NULL,
	data     TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS datalake_entries_status_idx ON datalake_entries (status);

CREATE TABLE IF NOT EXISTS conflict_resolutions (
	entry_id TEXT PRIMARY KEY,
	data     TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS circuits (
	circuit_id TEXT PRIMARY KEY,
	data       TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS circuit_items (
	circuit_id TEXT NOT NULL,
	dfid       TEXT NOT NULL,
	data       TEXT NOT NULL,
	PRIMARY KEY (circuit_id, dfid)
);

CREATE TABLE IF NOT EXISTS local_ids (
	circuit_id   TEXT NOT NULL,
	requester_id TEXT NOT NULL,
	local_id     TEXT NOT NULL,
	dfid         TEXT NOT NULL,
	PRIMARY KEY (circuit_id, requester_id, local_id)
);

CREATE TABLE IF NOT EXISTS circuit_operations (
	operation_id TEXT PRIMARY KEY,
	circuit_id   TEXT NOT NULL,
	status       TEXT NOT NULL,
	data         TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS circuit_operations_circuit_idx ON circuit_operations (circuit_id);

CREATE TABLE IF NOT EXISTS activities (
	activity_id TEXT PRIMARY KEY,
	circuit_id  TEXT NOT NULL,
	timestamp   TIMESTAMPTZ NOT NULL,
	data        TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS activities_circuit_idx ON activities (circuit_id);

CREATE TABLE IF NOT EXISTS item_shares (
	share_id     TEXT PRIMARY KEY,
	dfid         TEXT NOT NULL,
	recipient_id TEXT NOT NULL,
	data         TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS item_shares_dfid_idx ON item_shares (dfid);
CREATE INDEX IF NOT EXISTS item_shares_recipient_idx ON item_shares (recipient_id);

CREATE TABLE IF NOT EXISTS receipts (
	id   TEXT PRIMARY KEY,
	data TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS receipt_identifiers (
	receipt_id TEXT NOT NULL,
	namespace  TEXT NOT NULL,
	key        TEXT NOT NULL,
	value      TEXT NOT NULL,
	PRIMARY KEY (receipt_id, namespace, key, value)
);
CREATE INDEX IF NOT EXISTS receipt_identifiers_key_idx ON receipt_identifiers (key);
CREATE INDEX IF NOT EXISTS receipt_identifiers_value_idx ON receipt_identifiers (value);

CREATE TABLE IF NOT EXISTS api_keys (
	tag      TEXT PRIMARY KEY,
	actor_id TEXT NOT NULL,
	data     TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS idempotency_keys (
	key         TEXT PRIMARY KEY,
	status_code INT NOT NULL,
	headers     BYTEA NOT NULL,
	body        BYTEA NOT NULL,
	cached_at   TIMESTAMPTZ NOT NULL
);
`

func migratePostgres(db *sql.DB) error {
	if _, err := db.Exec(postgresSchema); err != nil {
		return traceerr.Storage(err, "migrate postgres schema")
	}
	return nil
}

// errNoRows translates sql.ErrNoRows into a not-found error carrying what,
// shared by every Postgres- and SQLite-backed Get across this package.
func errNoRows(err error, what string, args ...interface{}) error {
	if err == sql.ErrNoRows {
		return traceerr.NotFound(what, args...)
	}
	return traceerr.Read(err, what, args...)
}
