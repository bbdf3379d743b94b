package storageadapter

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/defarm/tracectl/pkg/types"
	"github.com/google/uuid"
)

// LocalIpfs stores items in process memory but anchors events on IPFS.
type LocalIpfs struct {
	ipfs *IpfsIpfs

	mu     sync.RWMutex
	items  map[string]StoredItem
	byItem map[string][]string

	errorCount atomic.Int64
}

// NewLocalIpfs returns a LocalIpfs adapter using client for event storage.
func NewLocalIpfs(client IPFSClient) *LocalIpfs {
	return &LocalIpfs{
		ipfs:   NewIpfsIpfs(client),
		items:  make(map[string]StoredItem),
		byItem: make(map[string][]string),
	}
}

func (a *LocalIpfs) StoreItem(_ context.Context, item *types.Item) (string, types.StorageLocation, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	id := uuid.NewString()
	loc := types.StorageLocation{Kind: types.StorageLocal, Reference: id, RecordedAt: time.Now().UTC()}
	a.items[id] = StoredItem{Item: item.Clone(), Location: loc}
	return id, loc, nil
}

func (a *LocalIpfs) StoreEvent(ctx context.Context, evt *types.Event, itemID string) (string, types.StorageLocation, error) {
	id, loc, err := a.ipfs.StoreEvent(ctx, evt, itemID)
	if err != nil {
		a.errorCount.Add(1)
		return "", types.StorageLocation{}, err
	}
	a.mu.Lock()
	a.byItem[itemID] = append(a.byItem[itemID], id)
	a.mu.Unlock()
	return id, loc, nil
}

func (a *LocalIpfs) GetItem(_ context.Context, id string) (StoredItem, bool, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	stored, ok := a.items[id]
	return stored, ok, nil
}

func (a *LocalIpfs) GetEvent(ctx context.Context, id string) (*types.Event, bool, error) {
	return a.ipfs.GetEvent(ctx, id)
}

func (a *LocalIpfs) GetItemEvents(ctx context.Context, itemID string) ([]*types.Event, error) {
	return a.ipfs.GetItemEvents(ctx, itemID)
}

func (a *LocalIpfs) SyncStatus(ctx context.Context) (types.SyncStatus, error) {
	status, err := a.ipfs.SyncStatus(ctx)
	if err != nil {
		return status, err
	}
	status.ErrorCount += int(a.errorCount.Load())
	return status, nil
}

func (a *LocalIpfs) HealthCheck(ctx context.Context) bool { return a.ipfs.HealthCheck(ctx) }
