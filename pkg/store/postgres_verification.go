package store

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/defarm/tracectl/pkg/traceerr"
	"github.com/defarm/tracectl/pkg/types"
)

// PostgresEntryStore implements verification.EntryStore.
type PostgresEntryStore struct {
	db *sql.DB
}

func NewPostgresEntryStore(db *sql.DB) *PostgresEntryStore {
	return &PostgresEntryStore{db: db}
}

func (s *PostgresEntryStore) PendingEntries(ctx context.Context, limit int) ([]*types.DataLakeEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT data FROM datalake_entries WHERE status = $1 ORDER BY entry_id LIMIT $2
	`, string(types.EntryPending), limit)
	if err != nil {
		return nil, traceerr.Read(err, "list pending entries")
	}
	defer rows.Close()

	var out []*types.DataLakeEntry
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, traceerr.Read(err, "scan pending entry row")
		}
		var entry types.DataLakeEntry
		if err := json.Unmarshal(data, &entry); err != nil {
			return nil, traceerr.Read(err, "decode pending entry")
		}
		out = append(out, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, traceerr.Read(err, "iterate pending entry rows")
	}
	return out, nil
}

func (s *PostgresEntryStore) GetEntry(ctx context.Context, entryID string) (*types.DataLakeEntry, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM datalake_entries WHERE entry_id = $1`, entryID).Scan(&data)
	if err != nil {
		return nil, errNoRows(err, "entry %s", entryID)
	}
	var entry types.DataLakeEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, traceerr.Read(err, "decode entry %s", entryID)
	}
	return &entry, nil
}

func (s *PostgresEntryStore) PutEntry(ctx context.Context, entry *types.DataLakeEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return traceerr.Write(err, "encode entry %s", entry.EntryID)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO datalake_entries (entry_id, status, data) VALUES ($1, $2, $3)
		ON CONFLICT (entry_id) DO UPDATE SET status = EXCLUDED.status, data = EXCLUDED.data
	`, entry.EntryID, string(entry.Status), data)
	if err != nil {
		return traceerr.Write(err, "put entry %s", entry.EntryID)
	}
	return nil
}

func (s *PostgresEntryStore) PutConflict(ctx context.Context, c *types.ConflictResolution) error {
	data, err := json.Marshal(c)
	if err != nil {
		return traceerr.Write(err, "encode conflict for entry %s", c.EntryID)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO conflict_resolutions (entry_id, data) VALUES ($1, $2)
		ON CONFLICT (entry_id) DO UPDATE SET data = EXCLUDED.data
	`, c.EntryID, data)
	if err != nil {
		return traceerr.Write(err, "put conflict for entry %s", c.EntryID)
	}
	return nil
}
