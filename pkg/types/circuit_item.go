package types

import "time"

// CircuitItem links an Item into a circuit's shared namespace, carrying the
// circuit-local identifier mapping distinct from the item's own DFID.
type CircuitItem struct {
	CircuitID  string    `json:"circuit_id"`
	DFID       string    `json:"dfid"`
	LocalID    string    `json:"local_id,omitempty"`
	PushedBy   string    `json:"pushed_by"`
	PushedAt   time.Time `json:"pushed_at"`
	Visibility EventVisibility `json:"visibility"`
}

// OperationType names the kind of circuit action a CircuitOperation records.
type OperationType string

const (
	OperationPush       OperationType = "push"
	OperationPull       OperationType = "pull"
	OperationShare      OperationType = "share"
	OperationJoin       OperationType = "join"
	OperationRoleChange OperationType = "role_change"
)

// OperationStatus is the approval-gated lifecycle of a CircuitOperation.
type OperationStatus string

const (
	OperationPending   OperationStatus = "pending"
	OperationApproved  OperationStatus = "approved"
	OperationCompleted OperationStatus = "completed"
	OperationRejected  OperationStatus = "rejected"
	OperationFailed    OperationStatus = "failed"
)

// CircuitOperation is an approval-gated action against a circuit. Operations
// that don't require approval (per CircuitPermissions) are created directly
// in OperationCompleted.
type CircuitOperation struct {
	OperationID string          `json:"operation_id"`
	CircuitID   string          `json:"circuit_id"`
	Type        OperationType   `json:"type"`
	ActorID     string          `json:"actor_id"`
	DFID        string          `json:"dfid,omitempty"`
	Status      OperationStatus `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	DecidedAt   *time.Time      `json:"decided_at,omitempty"`
	DecidedBy   string          `json:"decided_by,omitempty"`
	FailureReason string        `json:"failure_reason,omitempty"`
	// ConflictingDFIDs lists DFIDs already present in the target circuit
	// that collide with the pushed item's identifiers, surfaced to the
	// caller instead of silently overwriting.
	ConflictingDFIDs []string `json:"conflicting_dfids,omitempty"`
}

// IsTerminal reports whether the operation has reached a final state.
func (o *CircuitOperation) IsTerminal() bool {
	switch o.Status {
	case OperationCompleted, OperationRejected, OperationFailed:
		return true
	default:
		return false
	}
}
