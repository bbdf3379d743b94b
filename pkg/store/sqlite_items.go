package store

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/defarm/tracectl/pkg/traceerr"
	"github.com/defarm/tracectl/pkg/types"
)

// SQLiteItemStore implements items.Store against a local SQLite file,
// mirroring PostgresItemStore's column layout with "?" placeholders in
// place of "$N".
type SQLiteItemStore struct {
	db *sql.DB
}

func NewSQLiteItemStore(db *sql.DB) *SQLiteItemStore {
	return &SQLiteItemStore{db: db}
}

func (s *SQLiteItemStore) Get(ctx context.Context, dfid string) (*types.Item, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM items WHERE dfid = ?`, dfid).Scan(&data)
	if err != nil {
		return nil, errNoRows(err, "item %s", dfid)
	}
	var item types.Item
	if err := json.Unmarshal(data, &item); err != nil {
		return nil, traceerr.Read(err, "decode item %s", dfid)
	}
	return &item, nil
}

func (s *SQLiteItemStore) Put(ctx context.Context, item *types.Item) error {
	data, err := json.Marshal(item)
	if err != nil {
		return traceerr.Write(err, "encode item %s", item.DFID)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO items (dfid, status, last_modified, data) VALUES (?, ?, ?, ?)
		ON CONFLICT (dfid) DO UPDATE
		SET status = excluded.status, last_modified = excluded.last_modified, data = excluded.data
	`, item.DFID, string(item.Status), sqliteTime(item.LastModified), data)
	if err != nil {
		return traceerr.Write(err, "put item %s", item.DFID)
	}
	return nil
}

func (s *SQLiteItemStore) Exists(ctx context.Context, dfid string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM items WHERE dfid = ?)`, dfid).Scan(&exists)
	if err != nil {
		return false, traceerr.Read(err, "check item %s exists", dfid)
	}
	return exists, nil
}
