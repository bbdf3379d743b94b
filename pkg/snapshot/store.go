package snapshot

import (
	"context"

	"github.com/defarm/tracectl/pkg/types"
)

// Store persists the snapshot chain for an entity (an Item's DFID or a
// Circuit's circuit_id).
type Store interface {
	// Latest returns the most recently persisted snapshot for entityID, or
	// ok=false if entityID has no snapshot yet (genesis case).
	Latest(ctx context.Context, entityID string) (snap *types.StateSnapshot, ok bool, err error)
	// All returns every snapshot for entityID in sequence order.
	All(ctx context.Context, entityID string) ([]*types.StateSnapshot, error)
	// Put appends snap to entityID's chain.
	Put(ctx context.Context, entityID string, snap *types.StateSnapshot) error
}
