package events

import (
	"context"
	"time"

	"github.com/defarm/tracectl/pkg/types"
)

// Store persists Events. Implementations live in pkg/store (in-memory,
// Postgres, SQLite).
type Store interface {
	Put(ctx context.Context, evt *types.Event) error
	Get(ctx context.Context, eventID string) (*types.Event, error)
	ByDFID(ctx context.Context, dfid string) ([]*types.Event, error)
	ByType(ctx context.Context, evtType types.EventType) ([]*types.Event, error)
	ByVisibility(ctx context.Context, vis types.EventVisibility) ([]*types.Event, error)
	InRange(ctx context.Context, from, to time.Time) ([]*types.Event, error)
	ListAll(ctx context.Context) ([]*types.Event, error)
}
