package circuits

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/defarm/tracectl/pkg/types"
)

func TestCreateCircuit(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	circuit, err := f.engine.CreateCircuit(ctx, "Cattle Ranch Co-op", "", "owner-1", "bovino", nil, types.CircuitPermissions{})
	require.NoError(t, err)
	assert.NotEmpty(t, circuit.CircuitID)
	assert.Equal(t, types.CircuitActive, circuit.Status)
	require.Len(t, circuit.Members, 1)
	assert.Equal(t, "owner-1", circuit.Members[0].UserID)
	assert.Equal(t, types.RoleOwner, circuit.Members[0].Role)

	stored, err := f.circuits.Get(ctx, circuit.CircuitID)
	require.NoError(t, err)
	assert.Equal(t, circuit.CircuitID, stored.CircuitID)
}

func TestCreateCircuitRequiresNameAndOwner(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	_, err := f.engine.CreateCircuit(ctx, "", "", "owner-1", "", nil, types.CircuitPermissions{})
	require.Error(t, err)

	_, err = f.engine.CreateCircuit(ctx, "Name", "", "", "", nil, types.CircuitPermissions{})
	require.Error(t, err)
}
