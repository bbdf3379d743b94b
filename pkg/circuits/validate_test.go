package circuits

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/defarm/tracectl/pkg/identifier"
	"github.com/defarm/tracectl/pkg/traceerr"
	"github.com/defarm/tracectl/pkg/types"
)

func TestPushPredicateRejectsWhenUnsatisfied(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	pe, err := identifier.NewPredicateEvaluator()
	require.NoError(t, err)
	f.engine.WithPredicateEvaluator(pe)

	circuit := baseCircuit("circuit-1", "owner")
	withMember(circuit, "pusher", types.RoleMember)
	cfg := identifier.DefaultCircuitAliasConfig()
	cfg.Predicate = "identifier_count <= 1"
	circuit.AliasConfig = &cfg
	require.NoError(t, f.circuits.Put(ctx, circuit))

	_, err = f.engine.PushLocalItem(ctx, "local-a", []types.Identifier{sisbov("BR111111111111"), sisbov("BR222222222222")}, nil, "circuit-1", "pusher")
	require.Error(t, err)
	assert.True(t, traceerr.Is(err, traceerr.KindValidation))
}

func TestPushPredicateAllowsWhenSatisfied(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	pe, err := identifier.NewPredicateEvaluator()
	require.NoError(t, err)
	f.engine.WithPredicateEvaluator(pe)

	circuit := baseCircuit("circuit-1", "owner")
	withMember(circuit, "pusher", types.RoleMember)
	cfg := identifier.DefaultCircuitAliasConfig()
	cfg.Predicate = "'bovino' in namespaces"
	circuit.AliasConfig = &cfg
	require.NoError(t, f.circuits.Put(ctx, circuit))

	result, err := f.engine.PushLocalItem(ctx, "local-a", []types.Identifier{sisbov("BR111111111111")}, nil, "circuit-1", "pusher")
	require.NoError(t, err)
	assert.NotEmpty(t, result.DFID)
}
