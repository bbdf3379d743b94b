// Package storageadapter implements the uniform storage adapter trait and
// its six concrete backends (local, IPFS, and Stellar testnet/mainnet
// combinations).
package storageadapter

import (
	"context"

	"github.com/defarm/tracectl/pkg/types"
)

// StoredItem pairs a retrieved item with the location it was read from.
type StoredItem struct {
	Item     *types.Item
	Location types.StorageLocation
}

// Adapter is the uniform storage backend trait every variant implements.
// All operations take a context since every variant but LocalLocal performs
// network I/O.
type Adapter interface {
	// StoreItem uploads item's canonical serialization, returning the
	// adapter-assigned id and the StorageLocation it was written to.
	StoreItem(ctx context.Context, item *types.Item) (idReturned string, loc types.StorageLocation, err error)

	// StoreEvent uploads evt, associated with itemID.
	StoreEvent(ctx context.Context, evt *types.Event, itemID string) (idReturned string, loc types.StorageLocation, err error)

	// GetItem retrieves an item by adapter-assigned id. ok is false if not found.
	GetItem(ctx context.Context, id string) (result StoredItem, ok bool, err error)

	// GetEvent retrieves an event by adapter-assigned id.
	GetEvent(ctx context.Context, id string) (evt *types.Event, ok bool, err error)

	// GetItemEvents retrieves every event stored for itemID.
	GetItemEvents(ctx context.Context, itemID string) ([]*types.Event, error)

	// SyncStatus reports this adapter's current replication health.
	SyncStatus(ctx context.Context) (types.SyncStatus, error)

	// HealthCheck reports whether the adapter's backend is currently reachable.
	HealthCheck(ctx context.Context) bool
}

// NewItemStorer is implemented only by adapters supporting the one-time
// NFT-mint-on-first-DFID path (StellarTestnetIpfs).
type NewItemStorer interface {
	// StoreNewItem behaves like StoreItem but additionally mints an NFT
	// carrying item's canonical identifiers and the first CID when
	// isNewDFID is true. Subsequent updates to the same dfid use StoreItem.
	StoreNewItem(ctx context.Context, item *types.Item, isNewDFID bool, creator string) (idReturned string, loc types.StorageLocation, err error)
}

// AnchorMode selects how a Stellar-backed adapter records a write on chain.
type AnchorMode string

const (
	// AnchorEventOnly emits a chain event referencing the CID without a
	// contract storage write. Default; roughly an order of magnitude
	// cheaper than AnchorFullStorage.
	AnchorEventOnly AnchorMode = "event_only"
	// AnchorFullStorage writes (dfid, cid) into contract storage in
	// addition to emitting the event.
	AnchorFullStorage AnchorMode = "full_storage"
)
