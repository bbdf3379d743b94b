package items

import (
	"context"

	"github.com/defarm/tracectl/pkg/types"
)

// Store persists Item records. Implementations live in pkg/store
// (in-memory, Postgres, SQLite).
type Store interface {
	Get(ctx context.Context, dfid string) (*types.Item, error)
	Put(ctx context.Context, item *types.Item) error
	Exists(ctx context.Context, dfid string) (bool, error)
}

// EventEmitter records one Event per successful mutation. pkg/events
// implements this; Items Engine depends only on the interface to avoid an
// import cycle (events reference items by DFID, not the reverse).
type EventEmitter interface {
	Emit(ctx context.Context, evt *types.Event) error
}
