package store

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/defarm/tracectl/pkg/traceerr"
	"github.com/defarm/tracectl/pkg/types"
)

// PostgresItemStore implements items.Store against a Postgres table. Items
// are stored whole as JSON, with status and last_modified broken out into
// indexed columns for callers that filter without deserializing every row.
type PostgresItemStore struct {
	db *sql.DB
}

func NewPostgresItemStore(db *sql.DB) *PostgresItemStore {
	return &PostgresItemStore{db: db}
}

func (s *PostgresItemStore) Get(ctx context.Context, dfid string) (*types.Item, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM items WHERE dfid = $1`, dfid).Scan(&data)
	if err != nil {
		return nil, errNoRows(err, "item %s", dfid)
	}
	var item types.Item
	if err := json.Unmarshal(data, &item); err != nil {
		return nil, traceerr.Read(err, "decode item %s", dfid)
	}
	return &item, nil
}

func (s *PostgresItemStore) Put(ctx context.Context, item *types.Item) error {
	data, err := json.Marshal(item)
	if err != nil {
		return traceerr.Write(err, "encode item %s", item.DFID)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO items (dfid, status, last_modified, data)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (dfid) DO UPDATE
		SET status = EXCLUDED.status, last_modified = EXCLUDED.last_modified, data = EXCLUDED.data
	`, item.DFID, string(item.Status), item.LastModified, data)
	if err != nil {
		return traceerr.Write(err, "put item %s", item.DFID)
	}
	return nil
}

func (s *PostgresItemStore) Exists(ctx context.Context, dfid string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM items WHERE dfid = $1)`, dfid).Scan(&exists)
	if err != nil {
		return false, traceerr.Read(err, "check item %s exists", dfid)
	}
	return exists, nil
}
