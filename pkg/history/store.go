package history

import (
	"context"

	"github.com/defarm/tracectl/pkg/types"
)

// Store persists per-DFID ItemStorageHistory records.
type Store interface {
	Get(ctx context.Context, dfid string) (*types.ItemStorageHistory, error)
	Put(ctx context.Context, h *types.ItemStorageHistory) error
}
