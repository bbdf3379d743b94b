package store

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/defarm/tracectl/pkg/traceerr"
	"github.com/defarm/tracectl/pkg/types"
)

// PostgresHistoryStore implements history.Store: one row per DFID holding
// its whole ItemStorageHistory, since every read needs the full record and
// appends are infrequent relative to items/events traffic.
type PostgresHistoryStore struct {
	db *sql.DB
}

func NewPostgresHistoryStore(db *sql.DB) *PostgresHistoryStore {
	return &PostgresHistoryStore{db: db}
}

func (s *PostgresHistoryStore) Get(ctx context.Context, dfid string) (*types.ItemStorageHistory, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM storage_history WHERE dfid = $1`, dfid).Scan(&data)
	if err != nil {
		return nil, errNoRows(err, "storage history for %s", dfid)
	}
	var h types.ItemStorageHistory
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, traceerr.Read(err, "decode storage history for %s", dfid)
	}
	return &h, nil
}

func (s *PostgresHistoryStore) Put(ctx context.Context, h *types.ItemStorageHistory) error {
	data, err := json.Marshal(h)
	if err != nil {
		return traceerr.Write(err, "encode storage history for %s", h.DFID)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO storage_history (dfid, data) VALUES ($1, $2)
		ON CONFLICT (dfid) DO UPDATE SET data = EXCLUDED.data
	`, h.DFID, data)
	if err != nil {
		return traceerr.Write(err, "put storage history for %s", h.DFID)
	}
	return nil
}
