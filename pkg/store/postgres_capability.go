package store

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/defarm/tracectl/pkg/capability"
	"github.com/defarm/tracectl/pkg/traceerr"
)

// PostgresKeyStore implements capability.KeyStore. Tag is the lookup key;
// actor_id is broken out into its own column only so an operator can find
// every key issued to an actor with a plain SQL query during an incident.
type PostgresKeyStore struct {
	db *sql.DB
}

func NewPostgresKeyStore(db *sql.DB) *PostgresKeyStore {
	return &PostgresKeyStore{db: db}
}

func (s *PostgresKeyStore) GetByTag(ctx context.Context, tag string) (*capability.APIKey, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM api_keys WHERE tag = $1`, tag).Scan(&data)
	if err != nil {
		return nil, errNoRows(err, "api key %s", tag)
	}
	var key capability.APIKey
	if err := json.Unmarshal(data, &key); err != nil {
		return nil, traceerr.Read(err, "decode api key %s", tag)
	}
	return &key, nil
}

func (s *PostgresKeyStore) Put(ctx context.Context, key *capability.APIKey) error {
	data, err := json.Marshal(key)
	if err != nil {
		return traceerr.Write(err, "encode api key %s", key.Tag)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO api_keys (tag, actor_id, data) VALUES ($1, $2, $3)
		ON CONFLICT (tag) DO UPDATE SET actor_id = EXCLUDED.actor_id, data = EXCLUDED.data
	`, key.Tag, key.ActorID, data)
	if err != nil {
		return traceerr.Write(err, "put api key %s", key.Tag)
	}
	return nil
}
