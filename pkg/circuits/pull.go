package circuits

import (
	"context"

	"github.com/defarm/tracectl/pkg/traceerr"
	"github.com/defarm/tracectl/pkg/types"
)

// PullResult is the outcome of PullItem.
type PullResult struct {
	DFID      string
	Operation *types.CircuitOperation
}

// PullItem implements spec §4.8's pull protocol: symmetric to push, gated
// by Pull permission and require_approval_for_pull. Unlike push, pull never
// creates an item — dfid must already be linked into the circuit via a
// prior push.
func (e *Engine) PullItem(ctx context.Context, circuitID, requesterID, dfidStr, localID string) (*PullResult, error) {
	circuit, err := e.loadCircuit(ctx, circuitID)
	if err != nil {
		return nil, err
	}
	if err := e.requirePermission(circuit, requesterID, types.PermissionPull); err != nil {
		return nil, err
	}

	if _, exists, err := e.circuitItems.Get(ctx, circuitID, dfidStr); err != nil {
		return nil, traceerr.Storage(err, "checking circuit item %s/%s", circuitID, dfidStr)
	} else if !exists {
		return nil, traceerr.NotFound("item %s is not linked into circuit %s", dfidStr, circuitID)
	}

	if localID != "" {
		if err := e.localIDs.Record(ctx, circuitID, requesterID, localID, dfidStr); err != nil {
			return nil, traceerr.Storage(err, "recording local id %s", localID)
		}
	}

	op := &types.CircuitOperation{
		OperationID: e.dfids.Generate(),
		CircuitID:   circuitID,
		Type:        types.OperationPull,
		ActorID:     requesterID,
		DFID:        dfidStr,
		CreatedAt:   e.now(),
	}
	if circuit.Permissions.RequireApprovalForPull {
		op.Status = types.OperationPending
	} else {
		now := e.now()
		op.Status = types.OperationCompleted
		op.DecidedAt = &now
		op.DecidedBy = requesterID
		e.emitCircuitEvent(ctx, dfidStr, types.EventPulledFromCircuit, requesterID, circuitID, eventVisibilityFor(circuit), nil)
	}
	if err := e.operations.Put(ctx, op); err != nil {
		return nil, traceerr.Storage(err, "persisting pull operation for circuit %s", circuitID)
	}

	e.recordActivity(ctx, circuitID, types.ActivityItemPulled, requesterID, map[string]interface{}{"dfid": dfidStr})
	return &PullResult{DFID: dfidStr, Operation: op}, nil
}
