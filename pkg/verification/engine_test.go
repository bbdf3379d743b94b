package verification

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/defarm/tracectl/pkg/graph"
	"github.com/defarm/tracectl/pkg/items"
	"github.com/defarm/tracectl/pkg/types"
)

type fakeEntryStore struct {
	mu      sync.Mutex
	pending []*types.DataLakeEntry
	puts    []*types.DataLakeEntry
}

func (f *fakeEntryStore) PendingEntries(_ context.Context, limit int) ([]*types.DataLakeEntry, error) {
	if limit > 0 && limit < len(f.pending) {
		return f.pending[:limit], nil
	}
	return f.pending, nil
}
func (f *fakeEntryStore) GetEntry(_ context.Context, entryID string) (*types.DataLakeEntry, error) {
	for _, e := range f.pending {
		if e.EntryID == entryID {
			return e, nil
		}
	}
	return nil, nil
}
func (f *fakeEntryStore) PutEntry(_ context.Context, entry *types.DataLakeEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts = append(f.puts, entry)
	return nil
}
func (f *fakeEntryStore) PutConflict(_ context.Context, _ *types.ConflictResolution) error { return nil }

type fakeItemStore struct {
	mu    sync.Mutex
	items map[string]*types.Item
}

func newFakeItemStore() *fakeItemStore { return &fakeItemStore{items: map[string]*types.Item{}} }

func (f *fakeItemStore) Get(_ context.Context, dfid string) (*types.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[dfid]
	if !ok {
		return nil, errNotFound{}
	}
	return item, nil
}
func (f *fakeItemStore) Put(_ context.Context, item *types.Item) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[item.DFID] = item
	return nil
}
func (f *fakeItemStore) Exists(_ context.Context, dfid string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.items[dfid]
	return ok, nil
}

type errNotFound struct{}

func (errNotFound) Error() string { return "not found" }

type fakeEmitter struct{}

func (fakeEmitter) Emit(_ context.Context, _ *types.Event) error { return nil }

func newTestEngine(t *testing.T) (*Engine, *fakeEntryStore) {
	t.Helper()
	entryStore := &fakeEntryStore{}
	itemStore := newFakeItemStore()
	g := graph.New()
	itemsEngine := items.New(itemStore, g, fakeEmitter{}, nil)
	eng := New(entryStore, itemStore, itemsEngine, g, nil)
	return eng, entryStore
}

func newEntry(id string) *types.DataLakeEntry {
	return &types.DataLakeEntry{
		EntryID: id,
		Identifiers: []types.Identifier{
			{Namespace: "test", Key: "serial", Value: id, Kind: types.IdentifierCanonical},
		},
		Status: types.EntryPending,
	}
}

type fakeLeaser struct {
	mu      sync.Mutex
	claimed map[string]bool
	deny    map[string]bool
}

func newFakeLeaser() *fakeLeaser {
	return &fakeLeaser{claimed: map[string]bool{}, deny: map[string]bool{}}
}

func (l *fakeLeaser) TryAcquire(_ context.Context, entryID string, _ time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.deny[entryID] {
		return false, nil
	}
	l.claimed[entryID] = true
	return true, nil
}

func TestProcessBatchWithoutLeaserProcessesEverything(t *testing.T) {
	eng, store := newTestEngine(t)
	store.pending = []*types.DataLakeEntry{newEntry("e1"), newEntry("e2")}

	results, err := eng.ProcessBatch(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
}

func TestProcessBatchSkipsEntriesItCannotLease(t *testing.T) {
	eng, store := newTestEngine(t)
	store.pending = []*types.DataLakeEntry{newEntry("e1"), newEntry("e2")}

	leaser := newFakeLeaser()
	leaser.deny["e2"] = true
	eng.WithLeaser(leaser)

	results, err := eng.ProcessBatch(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "e1", results[0].EntryID)
}
