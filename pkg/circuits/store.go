package circuits

import (
	"context"

	"github.com/defarm/tracectl/pkg/types"
)

// CircuitStore persists Circuit records.
type CircuitStore interface {
	Get(ctx context.Context, circuitID string) (*types.Circuit, error)
	Put(ctx context.Context, circuit *types.Circuit) error
	Exists(ctx context.Context, circuitID string) (bool, error)
}

// CircuitItemStore persists the CircuitItem links between a circuit and the
// items pushed/pulled into it.
type CircuitItemStore interface {
	Get(ctx context.Context, circuitID, dfid string) (*types.CircuitItem, bool, error)
	Put(ctx context.Context, item *types.CircuitItem) error
	ByCircuit(ctx context.Context, circuitID string) ([]*types.CircuitItem, error)
}

// LocalIDStore records the one-time LID→DFID tokenization mapping, scoped
// per circuit and requester: a LID is user-scoped, and is recorded exactly
// once at first push.
type LocalIDStore interface {
	Resolve(ctx context.Context, circuitID, requesterID, localID string) (dfid string, ok bool, err error)
	Record(ctx context.Context, circuitID, requesterID, localID, dfid string) error
}

// OperationStore persists CircuitOperation records.
type OperationStore interface {
	Get(ctx context.Context, operationID string) (*types.CircuitOperation, error)
	Put(ctx context.Context, op *types.CircuitOperation) error
	ByCircuit(ctx context.Context, circuitID string) ([]*types.CircuitOperation, error)
	Pending(ctx context.Context, circuitID string) ([]*types.CircuitOperation, error)
}

// ActivityStore persists a circuit's audit feed.
type ActivityStore interface {
	Put(ctx context.Context, activity *types.Activity) error
	ByCircuit(ctx context.Context, circuitID string) ([]*types.Activity, error)
}

// ItemReader is the subset of the Items Engine's store the Circuits Engine
// needs for read-only lookups (e.g. counting items for CircuitStats).
type ItemReader interface {
	Get(ctx context.Context, dfid string) (*types.Item, error)
}

// ShareStore persists direct, user-to-user ItemShare grants.
type ShareStore interface {
	Put(ctx context.Context, share *types.ItemShare) error
	ByRecipient(ctx context.Context, recipientID string) ([]*types.ItemShare, error)
	ByItem(ctx context.Context, dfid string) ([]*types.ItemShare, error)
	IsSharedWith(ctx context.Context, dfid, userID string) (bool, error)
}
