package circuits

import (
	"context"

	"github.com/defarm/tracectl/pkg/traceerr"
	"github.com/defarm/tracectl/pkg/types"
)

// ApproveOperation transitions a Pending operation to Approved. approverID
// must hold ManageMembers — spec names a distinct ApproveOperations
// permission but defines it as always implied by ManageMembers, so no
// separate permission constant exists.
func (e *Engine) ApproveOperation(ctx context.Context, operationID, approverID string) (*types.CircuitOperation, error) {
	op, circuit, err := e.loadOperation(ctx, operationID)
	if err != nil {
		return nil, err
	}
	if err := e.requirePermission(circuit, approverID, types.PermissionManageMembers); err != nil {
		return nil, err
	}
	if op.Status != types.OperationPending {
		return nil, traceerr.Conflict("operation %s is not pending (status=%s)", operationID, op.Status)
	}

	now := e.now()
	op.Status = types.OperationApproved
	op.DecidedAt = &now
	op.DecidedBy = approverID

	if err := e.operations.Put(ctx, op); err != nil {
		return nil, traceerr.Storage(err, "persisting approved operation %s", operationID)
	}
	return op, nil
}

// RejectOperation transitions a Pending operation to Rejected, a terminal
// state. rejecterID must hold ManageMembers.
func (e *Engine) RejectOperation(ctx context.Context, operationID, rejecterID, reason string) (*types.CircuitOperation, error) {
	op, circuit, err := e.loadOperation(ctx, operationID)
	if err != nil {
		return nil, err
	}
	if err := e.requirePermission(circuit, rejecterID, types.PermissionManageMembers); err != nil {
		return nil, err
	}
	if op.Status != types.OperationPending {
		return nil, traceerr.Conflict("operation %s is not pending (status=%s)", operationID, op.Status)
	}

	now := e.now()
	op.Status = types.OperationRejected
	op.DecidedAt = &now
	op.DecidedBy = rejecterID
	op.FailureReason = reason

	if err := e.operations.Put(ctx, op); err != nil {
		return nil, traceerr.Storage(err, "persisting rejected operation %s", operationID)
	}
	return op, nil
}

// CompleteOperation commits an Approved operation to Completed, emitting
// the pushed/pulled event the non-approval-gated path would have emitted
// immediately. Operations already in a terminal state cannot be completed.
func (e *Engine) CompleteOperation(ctx context.Context, operationID string) (*types.CircuitOperation, error) {
	op, circuit, err := e.loadOperation(ctx, operationID)
	if err != nil {
		return nil, err
	}
	if op.Status != types.OperationApproved {
		return nil, traceerr.Conflict("operation %s is not approved (status=%s)", operationID, op.Status)
	}

	op.Status = types.OperationCompleted
	if err := e.operations.Put(ctx, op); err != nil {
		return nil, traceerr.Storage(err, "persisting completed operation %s", operationID)
	}

	switch op.Type {
	case types.OperationPush:
		e.emitCircuitEvent(ctx, op.DFID, types.EventPushedToCircuit, op.ActorID, circuit.CircuitID, eventVisibilityFor(circuit), nil)
	case types.OperationPull:
		e.emitCircuitEvent(ctx, op.DFID, types.EventPulledFromCircuit, op.ActorID, circuit.CircuitID, eventVisibilityFor(circuit), nil)
	}
	return op, nil
}

// FailOperation commits an Approved operation to Failed — used when the
// post-approval replication step (e.g. the storage adapter write) doesn't
// succeed.
func (e *Engine) FailOperation(ctx context.Context, operationID, reason string) (*types.CircuitOperation, error) {
	op, _, err := e.loadOperation(ctx, operationID)
	if err != nil {
		return nil, err
	}
	if op.Status != types.OperationApproved {
		return nil, traceerr.Conflict("operation %s is not approved (status=%s)", operationID, op.Status)
	}

	op.Status = types.OperationFailed
	op.FailureReason = reason
	if err := e.operations.Put(ctx, op); err != nil {
		return nil, traceerr.Storage(err, "persisting failed operation %s", operationID)
	}
	return op, nil
}

func (e *Engine) loadOperation(ctx context.Context, operationID string) (*types.CircuitOperation, *types.Circuit, error) {
	op, err := e.operations.Get(ctx, operationID)
	if err != nil {
		return nil, nil, err
	}
	if op == nil {
		return nil, nil, traceerr.NotFound("operation %s not found", operationID)
	}
	circuit, err := e.loadCircuit(ctx, op.CircuitID)
	if err != nil {
		return nil, nil, err
	}
	return op, circuit, nil
}
