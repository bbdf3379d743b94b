package store

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/defarm/tracectl/pkg/traceerr"
	"github.com/defarm/tracectl/pkg/types"
)

// PostgresSnapshotStore implements snapshot.Store. Each entity's chain is
// a run of rows keyed by (entity_id, sequence); Latest is the max sequence.
type PostgresSnapshotStore struct {
	db *sql.DB
}

func NewPostgresSnapshotStore(db *sql.DB) *PostgresSnapshotStore {
	return &PostgresSnapshotStore{db: db}
}

func (s *PostgresSnapshotStore) Latest(ctx context.Context, entityID string) (*types.StateSnapshot, bool, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT data FROM snapshots WHERE entity_id = $1 ORDER BY sequence DESC LIMIT 1
	`, entityID).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, traceerr.Read(err, "latest snapshot for %s", entityID)
	}
	var snap types.StateSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, false, traceerr.Read(err, "decode snapshot for %s", entityID)
	}
	return &snap, true, nil
}

func (s *PostgresSnapshotStore) All(ctx context.Context, entityID string) ([]*types.StateSnapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT data FROM snapshots WHERE entity_id = $1 ORDER BY sequence
	`, entityID)
	if err != nil {
		return nil, traceerr.Read(err, "list snapshots for %s", entityID)
	}
	defer rows.Close()

	var out []*types.StateSnapshot
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, traceerr.Read(err, "scan snapshot row for %s", entityID)
		}
		var snap types.StateSnapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			return nil, traceerr.Read(err, "decode snapshot for %s", entityID)
		}
		out = append(out, &snap)
	}
	if err := rows.Err(); err != nil {
		return nil, traceerr.Read(err, "iterate snapshot rows for %s", entityID)
	}
	return out, nil
}

func (s *PostgresSnapshotStore) Put(ctx context.Context, entityID string, snap *types.StateSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return traceerr.Write(err, "encode snapshot for %s", entityID)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO snapshots (entity_id, sequence, data) VALUES ($1, $2, $3)
		ON CONFLICT (entity_id, sequence) DO UPDATE SET data = EXCLUDED.data
	`, entityID, snap.Sequence, data)
	if err != nil {
		return traceerr.Write(err, "put snapshot for %s", entityID)
	}
	return nil
}
