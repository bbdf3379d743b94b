package storageadapter

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/defarm/tracectl/pkg/traceerr"
	"github.com/defarm/tracectl/pkg/types"
)

// stellarIpfsBase implements the shared IPFS-storage-plus-chain-pointer
// shape used by both StellarTestnetIpfs and StellarMainnetIpfs: items and
// events are uploaded to IPFS, then anchored via the IPCM contract in
// either event-only or full-storage mode.
type stellarIpfsBase struct {
	ipfs    *IpfsIpfs
	stellar StellarClient
	network StellarNetwork
	mode    AnchorMode

	errorCount atomic.Int64
}

func newStellarIpfsBase(ipfsClient IPFSClient, stellar StellarClient, network StellarNetwork, mode AnchorMode) *stellarIpfsBase {
	if mode == "" {
		mode = AnchorEventOnly
	}
	return &stellarIpfsBase{
		ipfs:    NewIpfsIpfs(ipfsClient),
		stellar: stellar,
		network: network,
		mode:    mode,
	}
}

func (b *stellarIpfsBase) anchor(ctx context.Context, dfid, cid string) error {
	var err error
	if b.mode == AnchorFullStorage {
		_, err = b.stellar.WriteStorage(ctx, dfid, cid)
	} else {
		_, err = b.stellar.EmitEvent(ctx, dfid, cid)
	}
	if err != nil {
		b.errorCount.Add(1)
		return traceerr.Connection(err, "anchoring dfid %s on stellar %s", dfid, b.network)
	}
	return nil
}

func (b *stellarIpfsBase) storeItem(ctx context.Context, item *types.Item) (string, types.StorageLocation, error) {
	cid, _, err := b.ipfs.StoreItem(ctx, item)
	if err != nil {
		return "", types.StorageLocation{}, err
	}
	if err := b.anchor(ctx, item.DFID, cid); err != nil {
		return "", types.StorageLocation{}, err
	}
	loc := types.StorageLocation{Kind: types.StorageStellar, Reference: cid, Network: string(b.network), RecordedAt: time.Now().UTC()}
	return cid, loc, nil
}

func (b *stellarIpfsBase) storeEvent(ctx context.Context, evt *types.Event, itemID string) (string, types.StorageLocation, error) {
	cid, _, err := b.ipfs.StoreEvent(ctx, evt, itemID)
	if err != nil {
		return "", types.StorageLocation{}, err
	}
	if err := b.anchor(ctx, itemID, cid); err != nil {
		return "", types.StorageLocation{}, err
	}
	loc := types.StorageLocation{Kind: types.StorageStellar, Reference: cid, Network: string(b.network), RecordedAt: time.Now().UTC()}
	return cid, loc, nil
}

func (b *stellarIpfsBase) getItem(ctx context.Context, id string) (StoredItem, bool, error) {
	return b.ipfs.GetItem(ctx, id)
}

func (b *stellarIpfsBase) getEvent(ctx context.Context, id string) (*types.Event, bool, error) {
	return b.ipfs.GetEvent(ctx, id)
}

func (b *stellarIpfsBase) getItemEvents(ctx context.Context, itemID string) ([]*types.Event, error) {
	return b.ipfs.GetItemEvents(ctx, itemID)
}

func (b *stellarIpfsBase) syncStatus(ctx context.Context) (types.SyncStatus, error) {
	status, err := b.ipfs.SyncStatus(ctx)
	if err != nil {
		return status, err
	}
	status.IsSynced = status.IsSynced && b.stellar.Healthy(ctx)
	status.ErrorCount += int(b.errorCount.Load())
	return status, nil
}

func (b *stellarIpfsBase) healthCheck(ctx context.Context) bool {
	return b.ipfs.HealthCheck(ctx) && b.stellar.Healthy(ctx)
}

// StellarTestnetIpfs anchors IPFS-stored items/events via the Stellar
// testnet IPCM contract and supports the one-time NFT-mint-on-first-DFID
// path.
type StellarTestnetIpfs struct {
	base *stellarIpfsBase
}

// NewStellarTestnetIpfs returns a StellarTestnetIpfs adapter.
func NewStellarTestnetIpfs(ipfsClient IPFSClient, stellar StellarClient, mode AnchorMode) *StellarTestnetIpfs {
	return &StellarTestnetIpfs{base: newStellarIpfsBase(ipfsClient, stellar, StellarTestnet, mode)}
}

func (a *StellarTestnetIpfs) StoreItem(ctx context.Context, item *types.Item) (string, types.StorageLocation, error) {
	return a.base.storeItem(ctx, item)
}

// StoreNewItem behaves like StoreItem but additionally mints a one-time
// NFT carrying item's canonical identifiers and the first CID when
// isNewDFID is true. Subsequent updates to the same dfid must call
// StoreItem instead.
func (a *StellarTestnetIpfs) StoreNewItem(ctx context.Context, item *types.Item, isNewDFID bool, creator string) (string, types.StorageLocation, error) {
	cid, loc, err := a.base.storeItem(ctx, item)
	if err != nil {
		return "", types.StorageLocation{}, err
	}
	if isNewDFID {
		canonicalIDs := make([]string, 0, len(item.Identifiers))
		for _, id := range item.Identifiers {
			if id.IsCanonical() {
				canonicalIDs = append(canonicalIDs, id.UniqueKey())
			}
		}
		if _, err := a.base.stellar.MintNFT(ctx, item.DFID, cid, creator, canonicalIDs); err != nil {
			a.base.errorCount.Add(1)
			return "", types.StorageLocation{}, traceerr.Connection(err, "minting nft for dfid %s", item.DFID)
		}
	}
	return cid, loc, nil
}

func (a *StellarTestnetIpfs) StoreEvent(ctx context.Context, evt *types.Event, itemID string) (string, types.StorageLocation, error) {
	return a.base.storeEvent(ctx, evt, itemID)
}

func (a *StellarTestnetIpfs) GetItem(ctx context.Context, id string) (StoredItem, bool, error) {
	return a.base.getItem(ctx, id)
}

func (a *StellarTestnetIpfs) GetEvent(ctx context.Context, id string) (*types.Event, bool, error) {
	return a.base.getEvent(ctx, id)
}

func (a *StellarTestnetIpfs) GetItemEvents(ctx context.Context, itemID string) ([]*types.Event, error) {
	return a.base.getItemEvents(ctx, itemID)
}

func (a *StellarTestnetIpfs) SyncStatus(ctx context.Context) (types.SyncStatus, error) {
	return a.base.syncStatus(ctx)
}

func (a *StellarTestnetIpfs) HealthCheck(ctx context.Context) bool { return a.base.healthCheck(ctx) }

// StellarMainnetIpfs is the mainnet counterpart of StellarTestnetIpfs,
// without the NFT-mint path (spec §4.5 reserves that to testnet).
type StellarMainnetIpfs struct {
	base *stellarIpfsBase
}

// NewStellarMainnetIpfs returns a StellarMainnetIpfs adapter.
func NewStellarMainnetIpfs(ipfsClient IPFSClient, stellar StellarClient, mode AnchorMode) *StellarMainnetIpfs {
	return &StellarMainnetIpfs{base: newStellarIpfsBase(ipfsClient, stellar, StellarMainnet, mode)}
}

func (a *StellarMainnetIpfs) StoreItem(ctx context.Context, item *types.Item) (string, types.StorageLocation, error) {
	return a.base.storeItem(ctx, item)
}

func (a *StellarMainnetIpfs) StoreEvent(ctx context.Context, evt *types.Event, itemID string) (string, types.StorageLocation, error) {
	return a.base.storeEvent(ctx, evt, itemID)
}

func (a *StellarMainnetIpfs) GetItem(ctx context.Context, id string) (StoredItem, bool, error) {
	return a.base.getItem(ctx, id)
}

func (a *StellarMainnetIpfs) GetEvent(ctx context.Context, id string) (*types.Event, bool, error) {
	return a.base.getEvent(ctx, id)
}

func (a *StellarMainnetIpfs) GetItemEvents(ctx context.Context, itemID string) ([]*types.Event, error) {
	return a.base.getItemEvents(ctx, itemID)
}

func (a *StellarMainnetIpfs) SyncStatus(ctx context.Context) (types.SyncStatus, error) {
	return a.base.syncStatus(ctx)
}

func (a *StellarMainnetIpfs) HealthCheck(ctx context.Context) bool { return a.base.healthCheck(ctx) }
