// Package receipts implements the ingest path's Receipt half of spec
// §4.3: content-addressed storage of externally delivered bytes, and
// enqueueing a Pending DataLakeEntry for the Verification Engine to pick
// up. Resolving that entry into an Item is the Verification Engine's job
// (pkg/verification), not this package's.
package receipts

import (
	"context"

	"github.com/defarm/tracectl/pkg/types"
)

// Store persists Receipts and supports lookup by identifier for the
// GET /receipts/search endpoint.
type Store interface {
	PutReceipt(ctx context.Context, r *types.Receipt) error
	GetReceipt(ctx context.Context, id string) (*types.Receipt, error)
	// SearchReceipts returns every receipt carrying an identifier matching
	// the non-empty fields among namespace/key/value. At least one field
	// must be non-empty.
	SearchReceipts(ctx context.Context, namespace, key, value string) ([]*types.Receipt, error)
}

// EntryQueue is the subset of verification.EntryStore this package needs
// to enqueue a new DataLakeEntry. Kept separate from verification.EntryStore
// so this package never imports pkg/verification.
type EntryQueue interface {
	PutEntry(ctx context.Context, entry *types.DataLakeEntry) error
}
