package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/defarm/tracectl/pkg/types"
)

func canonicalID(ns, registry, value string) types.Identifier {
	return types.NewCanonical(ns, registry, value)
}

func TestResolveAllNew(t *testing.T) {
	g := New()
	res := g.Resolve([]types.Identifier{canonicalID("bovino", "sisbov", "BR1234567890123")}, "")
	assert.Equal(t, ResolutionAllNew, res.Kind)
}

func TestResolveExistingSingle(t *testing.T) {
	g := New()
	id := canonicalID("bovino", "sisbov", "BR1234567890123")
	require.NoError(t, g.AddCanonical("DFID-1", id))

	res := g.Resolve([]types.Identifier{id}, "")
	assert.Equal(t, ResolutionExistingSingle, res.Kind)
	assert.Equal(t, "DFID-1", res.DFID)
}

func TestResolveConflictAcrossTwoDFIDs(t *testing.T) {
	g := New()
	a := canonicalID("bovino", "sisbov", "BR1111111111111")
	b := canonicalID("bovino", "sisbov", "BR2222222222222")
	require.NoError(t, g.AddCanonical("DFID-1", a))
	require.NoError(t, g.AddCanonical("DFID-2", b))

	res := g.Resolve([]types.Identifier{a, b}, "")
	assert.Equal(t, ResolutionConflict, res.Kind)
	assert.ElementsMatch(t, []string{"DFID-1", "DFID-2"}, res.DFIDs)
}

func TestAddCanonicalDuplicateFails(t *testing.T) {
	g := New()
	id := canonicalID("bovino", "sisbov", "BR1234567890123")
	require.NoError(t, g.AddCanonical("DFID-1", id))

	err := g.AddCanonical("DFID-2", id)
	assert.ErrorIs(t, err, ErrDuplicateCanonical)
}

func TestAddCanonicalSameDFIDIsNoop(t *testing.T) {
	g := New()
	id := canonicalID("bovino", "sisbov", "BR1234567890123")
	require.NoError(t, g.AddCanonical("DFID-1", id))
	assert.NoError(t, g.AddCanonical("DFID-1", id))
}

func TestFingerprintIsScopedPerCircuit(t *testing.T) {
	g := New()
	g.AddFingerprint("DFID-1", "fp-abc", "circuit-a")

	dfid, ok := g.ResolveFingerprint("fp-abc", "circuit-a")
	require.True(t, ok)
	assert.Equal(t, "DFID-1", dfid)

	_, ok = g.ResolveFingerprint("fp-abc", "circuit-b")
	assert.False(t, ok)
}

func TestFingerprintRebindOverwrites(t *testing.T) {
	g := New()
	g.AddFingerprint("DFID-1", "fp-abc", "circuit-a")
	g.AddFingerprint("DFID-2", "fp-abc", "circuit-a")

	dfid, ok := g.ResolveFingerprint("fp-abc", "circuit-a")
	require.True(t, ok)
	assert.Equal(t, "DFID-2", dfid)
}

func TestDeprecateMappingRemovesFromResolve(t *testing.T) {
	g := New()
	id := canonicalID("bovino", "sisbov", "BR1234567890123")
	require.NoError(t, g.AddCanonical("DFID-1", id))
	g.DeprecateMapping("DFID-1", id)

	mappings := g.Mappings(id.Key, id.Value)
	require.Len(t, mappings, 1)
	assert.Equal(t, MappingDeprecated, mappings[0].Status)
}
