package storageadapter

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/defarm/tracectl/pkg/canonicalize"
	"github.com/defarm/tracectl/pkg/traceerr"
	"github.com/defarm/tracectl/pkg/types"
)

// IpfsIpfs stores both items and events on IPFS, pinning every upload.
type IpfsIpfs struct {
	client IPFSClient

	mu         sync.RWMutex
	itemEvents map[string][]string // item cid -> event cids

	errorCount atomic.Int64
}

// NewIpfsIpfs returns an IpfsIpfs adapter backed by client.
func NewIpfsIpfs(client IPFSClient) *IpfsIpfs {
	return &IpfsIpfs{client: client, itemEvents: make(map[string][]string)}
}

func (a *IpfsIpfs) upload(ctx context.Context, v interface{}) (string, error) {
	data, err := canonicalize.JCS(v)
	if err != nil {
		return "", traceerr.Write(err, "canonicalizing payload")
	}
	cid, err := a.client.Add(ctx, data)
	if err != nil {
		a.errorCount.Add(1)
		return "", traceerr.Connection(err, "uploading to ipfs")
	}
	if err := a.client.Pin(ctx, cid); err != nil {
		a.errorCount.Add(1)
		return "", traceerr.Write(err, "pinning cid %s", cid)
	}
	return cid, nil
}

func (a *IpfsIpfs) StoreItem(ctx context.Context, item *types.Item) (string, types.StorageLocation, error) {
	cid, err := a.upload(ctx, item)
	if err != nil {
		return "", types.StorageLocation{}, err
	}
	loc := types.StorageLocation{Kind: types.StorageIPFS, Reference: cid, RecordedAt: time.Now().UTC()}
	return cid, loc, nil
}

func (a *IpfsIpfs) StoreEvent(ctx context.Context, evt *types.Event, itemID string) (string, types.StorageLocation, error) {
	cid, err := a.upload(ctx, evt)
	if err != nil {
		return "", types.StorageLocation{}, err
	}
	a.mu.Lock()
	a.itemEvents[itemID] = append(a.itemEvents[itemID], cid)
	a.mu.Unlock()

	loc := types.StorageLocation{Kind: types.StorageIPFS, Reference: cid, RecordedAt: time.Now().UTC()}
	return cid, loc, nil
}

func (a *IpfsIpfs) GetItem(ctx context.Context, id string) (StoredItem, bool, error) {
	data, err := a.client.Get(ctx, id)
	if err != nil {
		a.errorCount.Add(1)
		return StoredItem{}, false, traceerr.Read(err, "fetching item cid %s", id)
	}
	var item types.Item
	if err := json.Unmarshal(data, &item); err != nil {
		return StoredItem{}, false, traceerr.Read(err, "decoding item cid %s", id)
	}
	loc := types.StorageLocation{Kind: types.StorageIPFS, Reference: id}
	return StoredItem{Item: &item, Location: loc}, true, nil
}

func (a *IpfsIpfs) GetEvent(ctx context.Context, id string) (*types.Event, bool, error) {
	data, err := a.client.Get(ctx, id)
	if err != nil {
		a.errorCount.Add(1)
		return nil, false, traceerr.Read(err, "fetching event cid %s", id)
	}
	var evt types.Event
	if err := json.Unmarshal(data, &evt); err != nil {
		return nil, false, traceerr.Read(err, "decoding event cid %s", id)
	}
	return &evt, true, nil
}

func (a *IpfsIpfs) GetItemEvents(ctx context.Context, itemID string) ([]*types.Event, error) {
	a.mu.RLock()
	cids := append([]string(nil), a.itemEvents[itemID]...)
	a.mu.RUnlock()

	out := make([]*types.Event, 0, len(cids))
	for _, cid := range cids {
		evt, ok, err := a.GetEvent(ctx, cid)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, evt)
		}
	}
	return out, nil
}

func (a *IpfsIpfs) SyncStatus(ctx context.Context) (types.SyncStatus, error) {
	return types.SyncStatus{
		IsSynced:   a.client.Healthy(ctx),
		LastSync:   time.Now().UTC(),
		ErrorCount: int(a.errorCount.Load()),
	}, nil
}

func (a *IpfsIpfs) HealthCheck(ctx context.Context) bool { return a.client.Healthy(ctx) }
