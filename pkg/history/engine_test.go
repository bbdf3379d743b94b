package history

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/defarm/tracectl/pkg/storageadapter"
	"github.com/defarm/tracectl/pkg/types"
)

type memHistoryStore struct {
	mu   sync.Mutex
	data map[string]*types.ItemStorageHistory
}

func newMemHistoryStore() *memHistoryStore {
	return &memHistoryStore{data: map[string]*types.ItemStorageHistory{}}
}

func (s *memHistoryStore) Get(_ context.Context, dfid string) (*types.ItemStorageHistory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.data[dfid]
	if !ok {
		return nil, assertNotFound{}
	}
	cp := *h
	cp.Records = append([]types.StorageRecord(nil), h.Records...)
	return &cp, nil
}

func (s *memHistoryStore) Put(_ context.Context, h *types.ItemStorageHistory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *h
	cp.Records = append([]types.StorageRecord(nil), h.Records...)
	s.data[h.DFID] = &cp
	return nil
}

type assertNotFound struct{}

func (assertNotFound) Error() string { return "not found" }

func TestRecordItemStorageSetsPrimary(t *testing.T) {
	ctx := context.Background()
	eng := New(newMemHistoryStore())

	loc := types.StorageLocation{Kind: types.StorageLocal, Reference: "id-1", RecordedAt: time.Now().UTC()}
	h, err := eng.RecordItemStorage(ctx, "DFID-1", "local_local", loc)
	require.NoError(t, err)

	primary, ok := h.PrimaryLocation()
	require.True(t, ok)
	assert.Equal(t, "id-1", primary.Location.Reference)
}

func TestRecordItemStorageDemotesPreviousPrimary(t *testing.T) {
	ctx := context.Background()
	eng := New(newMemHistoryStore())

	locA := types.StorageLocation{Kind: types.StorageLocal, Reference: "id-a", RecordedAt: time.Now().UTC()}
	locB := types.StorageLocation{Kind: types.StorageIPFS, Reference: "cid-b", RecordedAt: time.Now().UTC()}

	_, err := eng.RecordItemStorage(ctx, "DFID-1", "local_local", locA)
	require.NoError(t, err)
	h, err := eng.RecordItemStorage(ctx, "DFID-1", "ipfs_ipfs", locB)
	require.NoError(t, err)

	require.Len(t, h.Records, 2)
	assert.False(t, h.Records[0].IsPrimary)
	assert.True(t, h.Records[1].IsPrimary)
}

func TestRecordEventStorageNeverPrimary(t *testing.T) {
	ctx := context.Background()
	eng := New(newMemHistoryStore())

	loc := types.StorageLocation{Kind: types.StorageIPFS, Reference: "cid-event", RecordedAt: time.Now().UTC()}
	h, err := eng.RecordEventStorage(ctx, "DFID-1", "ipfs_ipfs", loc)
	require.NoError(t, err)

	require.Len(t, h.Records, 1)
	assert.False(t, h.Records[0].IsPrimary)
}

func TestMigrateAppendsNewPrimaryWithTrigger(t *testing.T) {
	ctx := context.Background()
	eng := New(newMemHistoryStore())

	source := storageadapter.NewLocalLocal()
	item := &types.Item{DFID: "DFID-1", EnrichedData: map[string]interface{}{}}
	sourceID, sourceLoc, err := source.StoreItem(ctx, item)
	require.NoError(t, err)
	_, err = eng.RecordItemStorage(ctx, "DFID-1", "local_local", sourceLoc)
	require.NoError(t, err)

	target := storageadapter.NewLocalLocal()
	h, err := eng.Migrate(ctx, "DFID-1", source, sourceID, target, storageadapter.VariantLocalLocal+"_target")
	require.NoError(t, err)

	require.Len(t, h.Records, 2)
	assert.Equal(t, "circuit_migration", h.Records[1].TriggeredBy)
	assert.True(t, h.Records[1].IsPrimary)
}

func TestMigrateIsNoopIfTargetPlacementExists(t *testing.T) {
	ctx := context.Background()
	eng := New(newMemHistoryStore())

	loc := types.StorageLocation{Kind: types.StorageLocal, Reference: "id-1", RecordedAt: time.Now().UTC()}
	_, err := eng.RecordItemStorage(ctx, "DFID-1", "local_local", loc)
	require.NoError(t, err)

	source := storageadapter.NewLocalLocal()
	target := storageadapter.NewLocalLocal()
	h, err := eng.Migrate(ctx, "DFID-1", source, "id-1", target, "local_local")
	require.NoError(t, err)
	assert.Len(t, h.Records, 1)
}
