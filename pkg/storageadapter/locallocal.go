package storageadapter

import (
	"context"
	"sync"
	"time"

	"github.com/defarm/tracectl/pkg/types"
	"github.com/google/uuid"
)

// LocalLocal stores both items and events in process memory. It never
// fails a health check and is always synced, since there is nothing
// external to drift from.
type LocalLocal struct {
	mu     sync.RWMutex
	items  map[string]StoredItem
	events map[string]*types.Event
	byItem map[string][]string // itemID -> event ids
}

// NewLocalLocal returns an empty LocalLocal adapter.
func NewLocalLocal() *LocalLocal {
	return &LocalLocal{
		items:  make(map[string]StoredItem),
		events: make(map[string]*types.Event),
		byItem: make(map[string][]string),
	}
}

func (a *LocalLocal) StoreItem(_ context.Context, item *types.Item) (string, types.StorageLocation, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	id := uuid.NewString()
	loc := types.StorageLocation{Kind: types.StorageLocal, Reference: id, RecordedAt: time.Now().UTC()}
	a.items[id] = StoredItem{Item: item.Clone(), Location: loc}
	return id, loc, nil
}

func (a *LocalLocal) StoreEvent(_ context.Context, evt *types.Event, itemID string) (string, types.StorageLocation, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	id := uuid.NewString()
	loc := types.StorageLocation{Kind: types.StorageLocal, Reference: id, RecordedAt: time.Now().UTC()}
	cp := *evt
	a.events[id] = &cp
	a.byItem[itemID] = append(a.byItem[itemID], id)
	return id, loc, nil
}

func (a *LocalLocal) GetItem(_ context.Context, id string) (StoredItem, bool, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	stored, ok := a.items[id]
	return stored, ok, nil
}

func (a *LocalLocal) GetEvent(_ context.Context, id string) (*types.Event, bool, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	evt, ok := a.events[id]
	return evt, ok, nil
}

func (a *LocalLocal) GetItemEvents(_ context.Context, itemID string) ([]*types.Event, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	ids := a.byItem[itemID]
	out := make([]*types.Event, 0, len(ids))
	for _, id := range ids {
		if evt, ok := a.events[id]; ok {
			out = append(out, evt)
		}
	}
	return out, nil
}

func (a *LocalLocal) SyncStatus(_ context.Context) (types.SyncStatus, error) {
	return types.SyncStatus{IsSynced: true, LastSync: time.Now().UTC()}, nil
}

func (a *LocalLocal) HealthCheck(_ context.Context) bool { return true }
