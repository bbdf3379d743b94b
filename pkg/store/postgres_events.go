package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/defarm/tracectl/pkg/traceerr"
	"github.com/defarm/tracectl/pkg/types"
)

// PostgresEventStore implements events.Store. dfid, type, visibility, and
// timestamp are broken out into indexed columns so ByDFID/ByType/
// ByVisibility/InRange never scan the whole table.
type PostgresEventStore struct {
	db *sql.DB
}

func NewPostgresEventStore(db *sql.DB) *PostgresEventStore {
	return &PostgresEventStore{db: db}
}

func (s *PostgresEventStore) Put(ctx context.Context, evt *types.Event) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return traceerr.Write(err, "encode event %s", evt.EventID)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO events (event_id, dfid, type, visibility, timestamp, data)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (event_id) DO UPDATE
		SET dfid = EXCLUDED.dfid, type = EXCLUDED.type, visibility = EXCLUDED.visibility,
		    timestamp = EXCLUDED.timestamp, data = EXCLUDED.data
	`, evt.EventID, evt.DFID, string(evt.Type), string(evt.Visibility), evt.Timestamp, data)
	if err != nil {
		return traceerr.Write(err, "put event %s", evt.EventID)
	}
	return nil
}

func (s *PostgresEventStore) Get(ctx context.Context, eventID string) (*types.Event, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM events WHERE event_id = $1`, eventID).Scan(&data)
	if err != nil {
		return nil, errNoRows(err, "event %s", eventID)
	}
	return decodeEvent(data, eventID)
}

func (s *PostgresEventStore) ByDFID(ctx context.Context, dfid string) ([]*types.Event, error) {
	return s.query(ctx, `SELECT data FROM events WHERE dfid = $1 ORDER BY timestamp`, dfid)
}

func (s *PostgresEventStore) ByType(ctx context.Context, evtType types.EventType) ([]*types.Event, error) {
	return s.query(ctx, `SELECT data FROM events WHERE type = $1 ORDER BY timestamp`, string(evtType))
}

func (s *PostgresEventStore) ByVisibility(ctx context.Context, vis types.EventVisibility) ([]*types.Event, error) {
	return s.query(ctx, `SELECT data FROM events WHERE visibility = $1 ORDER BY timestamp`, string(vis))
}

func (s *PostgresEventStore) InRange(ctx context.Context, from, to time.Time) ([]*types.Event, error) {
	return s.query(ctx, `SELECT data FROM events WHERE timestamp >= $1 AND timestamp <= $2 ORDER BY timestamp`, from, to)
}

func (s *PostgresEventStore) ListAll(ctx context.Context) ([]*types.Event, error) {
	return s.query(ctx, `SELECT data FROM events ORDER BY timestamp`)
}

func (s *PostgresEventStore) query(ctx context.Context, q string, args ...interface{}) ([]*types.Event, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, traceerr.Read(err, "query events")
	}
	defer rows.Close()

	var out []*types.Event
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, traceerr.Read(err, "scan event row")
		}
		evt, err := decodeEvent(data, "")
		if err != nil {
			return nil, err
		}
		out = append(out, evt)
	}
	if err := rows.Err(); err != nil {
		return nil, traceerr.Read(err, "iterate event rows")
	}
	return out, nil
}

func decodeEvent(data []byte, eventID string) (*types.Event, error) {
	var evt types.Event
	if err := json.Unmarshal(data, &evt); err != nil {
		return nil, traceerr.Read(err, "decode event %s", eventID)
	}
	return &evt, nil
}
