package circuits

import (
	"context"
	"time"

	"github.com/defarm/tracectl/pkg/traceerr"
	"github.com/defarm/tracectl/pkg/types"
)

// Stats computes a read-only summary of circuitID's current state.
func (e *Engine) Stats(ctx context.Context, circuitID string) (*types.CircuitStats, error) {
	circuit, err := e.loadCircuit(ctx, circuitID)
	if err != nil {
		return nil, err
	}

	circuitItems, err := e.circuitItems.ByCircuit(ctx, circuitID)
	if err != nil {
		return nil, traceerr.Storage(err, "listing items for circuit %s", circuitID)
	}

	pending, err := e.operations.Pending(ctx, circuitID)
	if err != nil {
		return nil, traceerr.Storage(err, "listing pending operations for circuit %s", circuitID)
	}

	pendingJoins := 0
	for _, r := range circuit.PendingRequests {
		if r.Status == types.JoinRequestPending {
			pendingJoins++
		}
	}

	var lastActivity *time.Time
	if e.activities != nil {
		activities, err := e.activities.ByCircuit(ctx, circuitID)
		if err != nil {
			return nil, traceerr.Storage(err, "listing activity for circuit %s", circuitID)
		}
		for _, a := range activities {
			t := a.Timestamp
			if lastActivity == nil || t.After(*lastActivity) {
				lastActivity = &t
			}
		}
	}

	return &types.CircuitStats{
		CircuitID:         circuitID,
		MemberCount:       len(circuit.Members),
		MembersByRole:     circuit.MemberCountByRole(),
		ItemCount:         len(circuitItems),
		PendingOperations: len(pending),
		PendingJoins:      pendingJoins,
		LastActivityAt:    lastActivity,
	}, nil
}
