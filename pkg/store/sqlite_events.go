package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/defarm/tracectl/pkg/traceerr"
	"github.com/defarm/tracectl/pkg/types"
)

// SQLiteEventStore implements events.Store against a local SQLite file.
type SQLiteEventStore struct {
	db *sql.DB
}

func NewSQLiteEventStore(db *sql.DB) *SQLiteEventStore {
	return &SQLiteEventStore{db: db}
}

func (s *SQLiteEventStore) Put(ctx context.Context, evt *types.Event) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return traceerr.Write(err, "encode event %s", evt.EventID)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO events (event_id, dfid, type, visibility, timestamp, data) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (event_id) DO UPDATE
		SET dfid = excluded.dfid, type = excluded.type, visibility = excluded.visibility,
		    timestamp = excluded.timestamp, data = excluded.data
	`, evt.EventID, evt.DFID, string(evt.Type), string(evt.Visibility), sqliteTime(evt.Timestamp), data)
	if err != nil {
		return traceerr.Write(err, "put event %s", evt.EventID)
	}
	return nil
}

func (s *SQLiteEventStore) Get(ctx context.Context, eventID string) (*types.Event, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM events WHERE event_id = ?`, eventID).Scan(&data)
	if err != nil {
		return nil, errNoRows(err, "event %s", eventID)
	}
	return decodeEvent(data, eventID)
}

func (s *SQLiteEventStore) ByDFID(ctx context.Context, dfid string) ([]*types.Event, error) {
	return s.query(ctx, `SELECT data FROM events WHERE dfid = ? ORDER BY timestamp`, dfid)
}

func (s *SQLiteEventStore) ByType(ctx context.Context, evtType types.EventType) ([]*types.Event, error) {
	return s.query(ctx, `SELECT data FROM events WHERE type = ? ORDER BY timestamp`, string(evtType))
}

func (s *SQLiteEventStore) ByVisibility(ctx context.Context, vis types.EventVisibility) ([]*types.Event, error) {
	return s.query(ctx, `SELECT data FROM events WHERE visibility = ? ORDER BY timestamp`, string(vis))
}

func (s *SQLiteEventStore) InRange(ctx context.Context, from, to time.Time) ([]*types.Event, error) {
	return s.query(ctx, `SELECT data FROM events WHERE timestamp >= ? AND timestamp <= ? ORDER BY timestamp`,
		sqliteTime(from), sqliteTime(to))
}

func (s *SQLiteEventStore) ListAll(ctx context.Context) ([]*types.Event, error) {
	return s.query(ctx, `SELECT data FROM events ORDER BY timestamp`)
}

func (s *SQLiteEventStore) query(ctx context.Context, q string, args ...interface{}) ([]*types.Event, error) {
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
