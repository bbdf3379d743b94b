package verification

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/defarm/tracectl/pkg/types"
)

func itemAt(dfid string, sourceEntries int, createdAt time.Time) *types.Item {
	entries := make([]string, sourceEntries)
	for i := range entries {
		entries[i] = "entry"
	}
	return &types.Item{DFID: dfid, SourceEntries: entries, CreatedAt: createdAt}
}

func TestAutoResolveConflictEmptyFails(t *testing.T) {
	_, ok := AutoResolveConflict(nil)
	assert.False(t, ok)
}

func TestAutoResolveConflictLargestSourceEntriesWins(t *testing.T) {
	now := time.Now()
	a := itemAt("DFID-A", 1, now)
	b := itemAt("DFID-B", 3, now)

	winner, ok := AutoResolveConflict([]*types.Item{a, b})
	assert.True(t, ok)
	assert.Equal(t, "DFID-B", winner.DFID)
}

func TestAutoResolveConflictTieBrokenByEarliestCreatedAt(t *testing.T) {
	now := time.Now()
	earlier := now.Add(-time.Hour)
	a := itemAt("DFID-A", 2, now)
	b := itemAt("DFID-B", 2, earlier)

	winner, ok := AutoResolveConflict([]*types.Item{a, b})
	assert.True(t, ok)
	assert.Equal(t, "DFID-B", winner.DFID)
}

func TestAutoResolveConflictExactTieRequiresManualReview(t *testing.T) {
	now := time.Now()
	a := itemAt("DFID-A", 2, now)
	b := itemAt("DFID-B", 2, now)

	_, ok := AutoResolveConflict([]*types.Item{a, b})
	assert.False(t, ok)
}
