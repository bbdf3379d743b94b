package circuits

import (
	"context"

	"github.com/defarm/tracectl/pkg/identifier"
	"github.com/defarm/tracectl/pkg/traceerr"
	"github.com/defarm/tracectl/pkg/types"
)

// CreateCircuit provisions a new circuit with ownerID as its sole,
// permanent RoleOwner member, per spec §4.8's invariant that exactly one
// member holds RoleOwner at all times.
func (e *Engine) CreateCircuit(ctx context.Context, name, description, ownerID, defaultNamespace string, aliasConfig *identifier.CircuitAliasConfig, perms types.CircuitPermissions) (*types.Circuit, error) {
	if name == "" {
		return nil, traceerr.Validation("circuit requires a name")
	}
	if ownerID == "" {
		return nil, traceerr.Validation("circuit requires an owner")
	}

	circuit := &types.Circuit{
		CircuitID:        e.dfids.Generate(),
		Name:             name,
		Description:      description,
		OwnerID:          ownerID,
		DefaultNamespace: defaultNamespace,
		AliasConfig:      aliasConfig,
		Members: []types.Member{{
			UserID:   ownerID,
			Role:     types.RoleOwner,
			JoinedAt: e.now(),
		}},
		Permissions: perms,
		Status:      types.CircuitActive,
		CreatedAt:   e.now(),
	}

	if err := e.circuits.Put(ctx, circuit); err != nil {
		return nil, traceerr.Storage(err, "persisting new circuit %s", circuit.CircuitID)
	}
	e.recordActivity(ctx, circuit.CircuitID, types.ActivityCircuitCreated, ownerID, nil)
	return circuit, nil
}
