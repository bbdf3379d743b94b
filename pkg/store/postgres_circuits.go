package store

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/defarm/tracectl/pkg/traceerr"
	"github.com/defarm/tracectl/pkg/types"
)

// PostgresCircuitStore implements circuits.CircuitStore.
type PostgresCircuitStore struct {
	db *sql.DB
}

func NewPostgresCircuitStore(db *sql.DB) *PostgresCircuitStore {
	return &PostgresCircuitStore{db: db}
}

func (s *PostgresCircuitStore) Get(ctx context.Context, circuitID string) (*types.Circuit, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM circuits WHERE circuit_id = $1`, circuitID).Scan(&data)
	if err != nil {
		return nil, errNoRows(err, "circuit %s", circuitID)
	}
	var c types.Circuit
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, traceerr.Read(err, "decode circuit %s", circuitID)
	}
	return &c, nil
}

func (s *PostgresCircuitStore) Put(ctx context.Context, circuit *types.Circuit) error {
	data, err := json.Marshal(circuit)
	if err != nil {
		return traceerr.Write(err, "encode circuit %s", circuit.CircuitID)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO circuits (circuit_id, data) VALUES ($1, $2)
		ON CONFLICT (circuit_id) DO UPDATE SET data = EXCLUDED.data
	`, circuit.CircuitID, data)
	if err != nil {
		return traceerr.Write(err, "put circuit %s", circuit.CircuitID)
	}
	return nil
}

func (s *PostgresCircuitStore) Exists(ctx context.Context, circuitID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM circuits WHERE circuit_id = $1)`, circuitID).Scan(&exists)
	if err != nil {
		return false, traceerr.Read(err, "check circuit %s exists", circuitID)
	}
	return exists, nil
}

// PostgresCircuitItemStore implements circuits.CircuitItemStore.
type PostgresCircuitItemStore struct {
	db *sql.DB
}

func NewPostgresCircuitItemStore(db *sql.DB) *PostgresCircuitItemStore {
	return &PostgresCircuitItemStore{db: db}
}

func (s *PostgresCircuitItemStore) Get(ctx context.Context, circuitID, dfid string) (*types.CircuitItem, bool, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT data FROM circuit_items WHERE circuit_id = $1 AND dfid = $2
	`, circuitID, dfid).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, traceerr.Read(err, "circuit item %s/%s", circuitID, dfid)
	}
	var ci types.CircuitItem
	if err := json.Unmarshal(data, &ci); err != nil {
		return nil, false, traceerr.Read(err, "decode circuit item %s/%s", circuitID, dfid)
	}
	return &ci, true, nil
}

func (s *PostgresCircuitItemStore) Put(ctx context.Context, item *types.CircuitItem) error {
	data, err := json.Marshal(item)
	if err != nil {
		return traceerr.Write(err, "encode circuit item %s/%s", item.CircuitID, item.DFID)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO circuit_items (circuit_id, dfid, data) VALUES ($1, $2, $3)
		ON CONFLICT (circuit_id, dfid) DO UPDATE SET data = EXCLUDED.data
	`, item.CircuitID, item.DFID, data)
	if err != nil {
		return traceerr.Write(err, "put circuit item %s/%s", item.CircuitID, item.DFID)
	}
	return nil
}

func (s *PostgresCircuitItemStore) ByCircuit(ctx context.Context, circuitID string) ([]*types.CircuitItem, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT data FROM circuit_items WHERE circuit_id = $1`, circuitID)
	if err != nil {
		return nil, traceerr.Read(err, "list circuit items for %s", circuitID)
	}
	defer rows.Close()

	var out []*types.CircuitItem
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, traceerr.Read(err, "scan circuit item row for %s", circuitID)
		}
		var ci types.CircuitItem
		if err := json.Unmarshal(data, &ci); err != nil {
			return nil, traceerr.Read(err, "decode circuit item for %s", circuitID)
		}
		out = append(out, &ci)
	}
	if err := rows.Err(); err != nil {
		return nil, traceerr.Read(err, "iterate circuit item rows for %s", circuitID)
	}
	return out, nil
}

// PostgresLocalIDStore implements circuits.LocalIDStore.
type PostgresLocalIDStore struct {
	db *sql.DB
}

func NewPostgresLocalIDStore(db *sql.DB) *PostgresLocalIDStore {
	return &PostgresLocalIDStore{db: db}
}

func (s *PostgresLocalIDStore) Resolve(ctx context.Context, circuitID, requesterID, localID string) (string, bool, error) {
	var dfid string
	err := s.db.QueryRowContext(ctx, `
		SELECT dfid FROM local_ids WHERE circuit_id = $1 AND requester_id = $2 AND local_id = $3
	`, circuitID, requesterID, localID).Scan(&dfid)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, traceerr.Read(err, "resolve local id %s", localID)
	}
	return dfid, true, nil
}

func (s *PostgresLocalIDStore) Record(ctx context.Context, circuitID, requesterID, localID, dfid string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO local_ids (circuit_id, requester_id, local_id, dfid) VALUES ($1, $2, $3, $4)
		ON CONFLICT (circuit_id, requester_id, local_id) DO UPDATE SET dfid = EXCLUDED.dfid
	`, circuitID, requesterID, localID, dfid)
	if err != nil {
		return traceerr.Write(err, "record local id %s", localID)
	}
	return nil
}

// PostgresOperationStore implements circuits.OperationStore.
type PostgresOperationStore struct {
	db *sql.DB
}

func NewPostgresOperationStore(db *sql.DB) *PostgresOperationStore {
	return &PostgresOperationStore{db: db}
}

func (s *PostgresOperationStore) Get(ctx context.Context, operationID string) (*types.CircuitOperation, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM circuit_operations WHERE operation_id = $1`, operationID).Scan(&data)
	if err != nil {
		return nil, errNoRows(err, "operation %s", operationID)
	}
	return decodeOperation(data, operationID)
}

func (s *PostgresOperationStore) Put(ctx context.Context, op *types.CircuitOperation) error {
	data, err := json.Marshal(op)
	if err != nil {
		return traceerr.Write(err, "encode operation %s", op.OperationID)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO circuit_operations (operation_id, circuit_id, status, data) VALUES ($1, $2, $3, $4)
		ON CONFLICT (operation_id) DO UPDATE
		SET circuit_id = EXCLUDED.circuit_id, status = EXCLUDED.status, data = EXCLUDED.data
	`, op.OperationID, op.CircuitID, string(op.Status), data)
	if err != nil {
		return traceerr.Write(err, "put operation %s", op.OperationID)
	}
	return nil
}

func (s *PostgresOperationStore) ByCircuit(ctx context.Context, circuitID string) ([]*types.CircuitOperation, error) {
	return s.query(ctx, `SELECT data FROM circuit_operations WHERE circuit_id = $1`, circuitID)
}

func (s *PostgresOperationStore) Pending(ctx context.Context, circuitID string) ([]*types.CircuitOperation, error) {
	return s.query(ctx, `
		SELECT data FROM circuit_operations WHERE circuit_id = $1 AND status = $2
	`, circuitID, string(types.OperationPending))
}

func (s *PostgresOperationStore) query(ctx context.Context, q string, args ...interface{}) ([]*types.CircuitOperation, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, traceerr.Read(err, "query operations")
	}
	defer rows.Close()

	var out []*types.CircuitOperation
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, traceerr.Read(err, "scan operation row")
		}
		op, err := decodeOperation(data, "")
		if err != nil {
			return nil, err
		}
		out = append(out, op)
	}
	if err := rows.Err(); err != nil {
		return nil, traceerr.Read(err, "iterate operation rows")
	}
	return out, nil
}

func decodeOperation(data []byte, operationID string) (*types.CircuitOperation, error) {
	var op types.CircuitOperation
	if err := json.Unmarshal(data, &op); err != nil {
		return nil, traceerr.Read(err, "decode operation %s", operationID)
	}
	return &op, nil
}

// PostgresActivityStore implements circuits.ActivityStore.
type PostgresActivityStore struct {
	db *sql.DB
}

func NewPostgresActivityStore(db *sql.DB) *PostgresActivityStore {
	return &PostgresActivityStore{db: db}
}

func (s *PostgresActivityStore) Put(ctx context.Context, activity *types.Activity) error {
	data, err := json.Marshal(activity)
	if err != nil {
		return traceerr.Write(err, "encode activity %s", activity.ActivityID)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO activities (activity_id, circuit_id, timestamp, data) VALUES ($1, $2, $3, $4)
		ON CONFLICT (activity_id) DO UPDATE
		SET circuit_id = EXCLUDED.circuit_id, timestamp = EXCLUDED.timestamp, data = EXCLUDED.data
	`, activity.ActivityID, activity.CircuitID, activity.Timestamp, data)
	if err != nil {
		return traceerr.Write(err, "put activity %s", activity.ActivityID)
	}
	return nil
}

func (s *PostgresActivityStore) ByCircuit(ctx context.Context, circuitID string) ([]*types.Activity, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT data FROM activities WHERE circuit_id = $1 ORDER BY timestamp
	`, circuitID)
	if err != nil {
		return nil, traceerr.Read(err, "list activities for %s", circuitID)
	}
	defer rows.Close()

	var out []*types.Activity
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, traceerr.Read(err, "scan activity row for %s", circuitID)
		}
		var a types.Activity
		if err := json.Unmarshal(data, &a); err != nil {
			return nil, traceerr.Read(err, "decode activity for %s", circuitID)
		}
		out = append(out, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, traceerr.Read(err, "iterate activity rows for %s", circuitID)
	}
	return out, nil
}

// PostgresShareStore implements circuits.ShareStore.
type PostgresShareStore struct {
	db *sql.DB
}

func NewPostgresShareStore(db *sql.DB) *PostgresShareStore {
	return &PostgresShareStore{db: db}
}

func (s *PostgresShareStore) Put(ctx context.Context, share *types.ItemShare) error {
	data, err := json.Marshal(share)
	if err != nil {
		return traceerr.Write(err, "encode share %s", share.ShareID)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO item_shares (share_id, dfid, recipient_id, data) VALUES ($1, $2, $3, $4)
		ON CONFLICT (share_id) DO UPDATE
		SET dfid = EXCLUDED.dfid, recipient_id = EXCLUDED.recipient_id, data = EXCLUDED.data
	`, share.ShareID, share.DFID, share.RecipientID, data)
	if err != nil {
		return traceerr.Write(err, "put share %s", share.ShareID)
	}
	return nil
}

func (s *PostgresShareStore) ByRecipient(ctx context.Context, recipientID string) ([]*types.ItemShare, error) {
	return s.query(ctx, `SELECT data FROM item_shares WHERE recipient_id = $1`, recipientID)
}

func (s *PostgresShareStore) ByItem(ctx context.Context, dfid string) ([]*types.ItemShare, error) {
	return s.query(ctx, `SELECT data FROM item_shares WHERE dfid = $1`, dfid)
}

func (s *PostgresShareStore) IsSharedWith(ctx context.Context, dfid, userID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM item_shares WHERE dfid = $1 AND recipient_id = $2)
	`, dfid, userID).Scan(&exists)
	if err != nil {
		return false, traceerr.Read(err, "check share %s/%s", dfid, userID)
	}
	return exists, nil
}

func (s *PostgresShareStore) query(ctx context.Context, q string, args ...interface{}) ([]*types.ItemShare, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, traceerr.Read(err, "query shares")
	}
	defer rows.Close()

	var out []*types.ItemShare
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, traceerr.Read(err, "scan share row")
		}
		var share types.ItemShare
		if err := json.Unmarshal(data, &share); err != nil {
			return nil, traceerr.Read(err, "decode share")
		}
		out = append(out, &share)
	}
	if err := rows.Err(); err != nil {
		return nil, traceerr.Read(err, "iterate share rows")
	}
	return out, nil
}
