package verification

import (
	"context"

	"github.com/defarm/tracectl/pkg/types"
)

// EntryStore persists DataLakeEntry queue records and ConflictResolution
// records. Implementations live in pkg/store.
type EntryStore interface {
	PendingEntries(ctx context.Context, limit int) ([]*types.DataLakeEntry, error)
	GetEntry(ctx context.Context, entryID string) (*types.DataLakeEntry, error)
	PutEntry(ctx context.Context, entry *types.DataLakeEntry) error
	PutConflict(ctx context.Context, c *types.ConflictResolution) error
}

// ItemReader is the subset of the Items Engine's store the Verification
// Engine needs to read items by dfid for conflict auto-resolution.
type ItemReader interface {
	Get(ctx context.Context, dfid string) (*types.Item, error)
}
