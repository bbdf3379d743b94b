package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/defarm/tracectl/pkg/traceerr"
	"github.com/defarm/tracectl/pkg/types"
)

// PostgresReceiptStore implements receipts.Store. Receipts are stored
// whole as JSON; their identifiers are additionally projected into a join
// table so SearchReceipts never has to deserialize every row.
type PostgresReceiptStore struct {
	db *sql.DB
}

func NewPostgresReceiptStore(db *sql.DB) *PostgresReceiptStore {
	return &PostgresReceiptStore{db: db}
}

func (s *PostgresReceiptStore) PutReceipt(ctx context.Context, r *types.Receipt) error {
	data, err := json.Marshal(r)
	if err != nil {
		return traceerr.Write(err, "encode receipt %s", r.ID)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return traceerr.Write(err, "begin tx for receipt %s", r.ID)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO receipts (id, data) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data
	`, r.ID, data); err != nil {
		return traceerr.Write(err, "put receipt %s", r.ID)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM receipt_identifiers WHERE receipt_id = $1`, r.ID); err != nil {
		return traceerr.Write(err, "clear identifiers for receipt %s", r.ID)
	}
	for _, id := range r.Identifiers {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO receipt_identifiers (receipt_id, namespace, key, value) VALUES ($1, $2, $3, $4)
			ON CONFLICT DO NOTHING
		`, r.ID, id.Namespace, id.Key, id.Value); err != nil {
			return traceerr.Write(err, "index identifier for receipt %s", r.ID)
		}
	}

	if err := tx.Commit(); err != nil {
		return traceerr.Write(err, "commit receipt %s", r.ID)
	}
	return nil
}

func (s *PostgresReceiptStore) GetReceipt(ctx context.Context, id string) (*types.Receipt, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM receipts WHERE id = $1`, id).Scan(&data)
	if err != nil {
		return nil, errNoRows(err, "receipt %s", id)
	}
	var r types.Receipt
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, traceerr.Read(err, "decode receipt %s", id)
	}
	return &r, nil
}

func (s *PostgresReceiptStore) SearchReceipts(ctx context.Context, namespace, key, value string) ([]*types.Receipt, error) {
	query := `SELECT DISTINCT r.data FROM receipts r JOIN receipt_identifiers i ON i.receipt_id = r.id WHERE 1=1`
	var args []interface{}
	if namespace != "" {
		args = append(args, namespace)
		query += fmt.Sprintf(" AND i.namespace = $%d", len(args))
	}
	if key != "" {
		args = append(args, key)
		query += fmt.Sprintf(" AND i.key = $%d", len(args))
	}
	if value != "" {
		args = append(args, value)
		query += fmt.Sprintf(" AND i.value = $%d", len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, traceerr.Read(err, "search receipts")
	}
	defer rows.Close()

	var out []*types.Receipt
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, traceerr.Read(err, "scan receipt search row")
		}
		var r types.Receipt
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, traceerr.Read(err, "decode searched receipt")
		}
		out = append(out, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, traceerr.Read(err, "iterate receipt search rows")
	}
	return out, nil
}
