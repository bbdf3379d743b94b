package circuits

import (
	"context"

	"github.com/defarm/tracectl/pkg/traceerr"
	"github.com/defarm/tracectl/pkg/types"
)

// RequestJoin records userID's pending request to join circuitID. A user
// who is already a member, or who already has a pending request, cannot
// request again.
func (e *Engine) RequestJoin(ctx context.Context, circuitID, userID, message string) (*types.Circuit, error) {
	circuit, err := e.loadCircuit(ctx, circuitID)
	if err != nil {
		return nil, err
	}
	if circuit.IsMember(userID) {
		return nil, traceerr.Conflict("user %s is already a member of circuit %s", userID, circuitID)
	}
	for _, r := range circuit.PendingRequests {
		if r.UserID == userID && r.Status == types.JoinRequestPending {
			return nil, traceerr.Conflict("user %s already has a pending join request", userID)
		}
	}

	circuit.PendingRequests = append(circuit.PendingRequests, types.JoinRequest{
		RequestID:   e.dfids.Generate(),
		UserID:      userID,
		Message:     message,
		Status:      types.JoinRequestPending,
		RequestedAt: e.now(),
	})
	if err := e.circuits.Put(ctx, circuit); err != nil {
		return nil, traceerr.Storage(err, "persisting join request for circuit %s", circuitID)
	}
	return circuit, nil
}

// ApproveJoin admits a pending requester as a member with role. approverID
// must hold ManageMembers.
func (e *Engine) ApproveJoin(ctx context.Context, circuitID, requestID, approverID string, role types.MemberRole) (*types.Circuit, error) {
	circuit, err := e.loadCircuit(ctx, circuitID)
	if err != nil {
		return nil, err
	}
	if err := e.requirePermission(circuit, approverID, types.PermissionManageMembers); err != nil {
		return nil, err
	}

	req, idx, err := findPendingRequest(circuit, requestID)
	if err != nil {
		return nil, err
	}

	now := e.now()
	circuit.PendingRequests[idx].Status = types.JoinRequestApproved
	circuit.PendingRequests[idx].DecidedAt = &now
	circuit.PendingRequests[idx].DecidedBy = approverID

	circuit.Members = append(circuit.Members, types.Member{
		UserID:   req.UserID,
		Role:     role,
		JoinedAt: now,
	})

	if err := e.circuits.Put(ctx, circuit); err != nil {
		return nil, traceerr.Storage(err, "persisting approved membership for circuit %s", circuitID)
	}
	e.recordActivity(ctx, circuitID, types.ActivityMemberJoined, approverID, map[string]interface{}{"user_id": req.UserID, "role": string(role)})
	return circuit, nil
}

// RejectJoin terminally rejects a pending join request. rejecterID must
// hold ManageMembers.
func (e *Engine) RejectJoin(ctx context.Context, circuitID, requestID, rejecterID string) (*types.Circuit, error) {
	circuit, err := e.loadCircuit(ctx, circuitID)
	if err != nil {
		return nil, err
	}
	if err := e.requirePermission(circuit, rejecterID, types.PermissionManageMembers); err != nil {
		return nil, err
	}

	_, idx, err := findPendingRequest(circuit, requestID)
	if err != nil {
		return nil, err
	}

	now := e.now()
	circuit.PendingRequests[idx].Status = types.JoinRequestRejected
	circuit.PendingRequests[idx].DecidedAt = &now
	circuit.PendingRequests[idx].DecidedBy = rejecterID

	if err := e.circuits.Put(ctx, circuit); err != nil {
		return nil, traceerr.Storage(err, "persisting rejected join request for circuit %s", circuitID)
	}
	return circuit, nil
}

func findPendingRequest(circuit *types.Circuit, requestID string) (*types.JoinRequest, int, error) {
	for i := range circuit.PendingRequests {
		if circuit.PendingRequests[i].RequestID == requestID {
			if circuit.PendingRequests[i].Status != types.JoinRequestPending {
				return nil, 0, traceerr.Conflict("join request %s is already decided", requestID)
			}
			return &circuit.PendingRequests[i], i, nil
		}
	}
	return nil, 0, traceerr.NotFound("join request %s not found in circuit %s", requestID, circuit.CircuitID)
}

// ChangeRole reassigns targetUserID's built-in role. actorID must hold
// ManageRoles. The Owner's role can never be changed here — ownership
// transfer is out of scope per spec.
func (e *Engine) ChangeRole(ctx context.Context, circuitID, actorID, targetUserID string, newRole types.MemberRole) (*types.Circuit, error) {
	circuit, err := e.loadCircuit(ctx, circuitID)
	if err != nil {
		return nil, err
	}
	if err := e.requirePermission(circuit, actorID, types.PermissionManageRoles); err != nil {
		return nil, err
	}

	m, ok := circuit.GetMember(targetUserID)
	if !ok {
		return nil, traceerr.NotFound("user %s is not a member of circuit %s", targetUserID, circuitID)
	}
	if m.Role == types.RoleOwner {
		return nil, traceerr.PermissionDenied("circuit %s owner's role cannot be changed", circuitID)
	}

	m.Role = newRole
	m.CustomRole = ""

	if err := e.circuits.Put(ctx, circuit); err != nil {
		return nil, traceerr.Storage(err, "persisting role change for circuit %s", circuitID)
	}
	e.recordActivity(ctx, circuitID, types.ActivityRoleChanged, actorID, map[string]interface{}{"user_id": targetUserID, "role": string(newRole)})
	return circuit, nil
}

// AssignCustomRole replaces targetUserID's effective permission set with
// customRole's, entirely superseding the default role set. actorID must
// hold ManagePermissions. customRole must already be registered on the
// circuit via DefineCustomRole.
func (e *Engine) AssignCustomRole(ctx context.Context, circuitID, actorID, targetUserID, customRole string) (*types.Circuit, error) {
	circuit, err := e.loadCircuit(ctx, circuitID)
	if err != nil {
		return nil, err
	}
	if err := e.requirePermission(circuit, actorID, types.PermissionManagePermissions); err != nil {
		return nil, err
	}
	if _, ok := circuit.CustomRoles[customRole]; !ok {
		return nil, traceerr.NotFound("custom role %s not defined on circuit %s", customRole, circuitID)
	}

	m, ok := circuit.GetMember(targetUserID)
	if !ok {
		return nil, traceerr.NotFound("user %s is not a member of circuit %s", targetUserID, circuitID)
	}
	m.CustomRole = customRole
	m.ExplicitPermissions = nil

	if err := e.circuits.Put(ctx, circuit); err != nil {
		return nil, traceerr.Storage(err, "persisting custom role assignment for circuit %s", circuitID)
	}
	return circuit, nil
}

// DefineCustomRole registers or replaces a custom role on the circuit.
// actorID must hold ManageRoles. The name must not shadow a reserved
// built-in role name.
func (e *Engine) DefineCustomRole(ctx context.Context, circuitID, actorID string, role types.CustomRole) (*types.Circuit, error) {
	circuit, err := e.loadCircuit(ctx, circuitID)
	if err != nil {
		return nil, err
	}
	if err := e.requirePermission(circuit, actorID, types.PermissionManageRoles); err != nil {
		return nil, err
	}
	if types.IsReservedRoleName(role.Name) {
		return nil, traceerr.Validation("role name %q is reserved", role.Name)
	}
	if circuit.CustomRoles == nil {
		circuit.CustomRoles = map[string]types.CustomRole{}
	}
	circuit.CustomRoles[role.Name] = role

	if err := e.circuits.Put(ctx, circuit); err != nil {
		return nil, traceerr.Storage(err, "persisting custom role for circuit %s", circuitID)
	}
	return circuit, nil
}
