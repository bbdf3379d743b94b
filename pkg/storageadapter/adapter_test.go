package storageadapter

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/defarm/tracectl/pkg/config"
	"github.com/defarm/tracectl/pkg/traceerr"
	"github.com/defarm/tracectl/pkg/types"
)

type fakeIPFS struct {
	mu      sync.Mutex
	blobs   map[string][]byte
	pinned  map[string]bool
	healthy bool
	seq     int
}

func newFakeIPFS() *fakeIPFS {
	return &fakeIPFS{blobs: map[string][]byte{}, pinned: map[string]bool{}, healthy: true}
}

func (f *fakeIPFS) Add(_ context.Context, data []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	cid := fmt.Sprintf("cid-%d", f.seq)
	f.blobs[cid] = data
	return cid, nil
}

func (f *fakeIPFS) Get(_ context.Context, cid string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.blobs[cid]
	if !ok {
		return nil, fmt.Errorf("no such cid %s", cid)
	}
	return data, nil
}

func (f *fakeIPFS) Pin(_ context.Context, cid string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pinned[cid] = true
	return nil
}

func (f *fakeIPFS) Healthy(_ context.Context) bool { return f.healthy }

type fakeStellar struct {
	mu       sync.Mutex
	storage  map[string]string
	minted   map[string]bool
	healthy  bool
	txSeq    int
}

func newFakeStellar() *fakeStellar {
	return &fakeStellar{storage: map[string]string{}, minted: map[string]bool{}, healthy: true}
}

func (f *fakeStellar) EmitEvent(_ context.Context, _, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.txSeq++
	return fmt.Sprintf("tx-%d", f.txSeq), nil
}

func (f *fakeStellar) WriteStorage(_ context.Context, dfid, cid string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.storage[dfid] = cid
	f.txSeq++
	return fmt.Sprintf("tx-%d", f.txSeq), nil
}

func (f *fakeStellar) ReadStorage(_ context.Context, dfid string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cid, ok := f.storage[dfid]
	return cid, ok, nil
}

func (f *fakeStellar) MintNFT(_ context.Context, dfid, _, _ string, _ []string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.minted[dfid] = true
	return "token-" + dfid, nil
}

func (f *fakeStellar) Healthy(_ context.Context) bool { return f.healthy }

func testItem(dfid string) *types.Item {
	return &types.Item{
		DFID:         dfid,
		Identifiers:  []types.Identifier{types.NewCanonical("bovino", "sisbov", "BR123456789012")},
		EnrichedData: map[string]interface{}{},
	}
}

func TestLocalLocalStoreAndRetrieve(t *testing.T) {
	ctx := context.Background()
	a := NewLocalLocal()

	item := testItem("DFID-1")
	id, loc, err := a.StoreItem(ctx, item)
	require.NoError(t, err)
	assert.Equal(t, types.StorageLocal, loc.Kind)

	result, ok, err := a.GetItem(ctx, id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "DFID-1", result.Item.DFID)

	status, err := a.SyncStatus(ctx)
	require.NoError(t, err)
	assert.True(t, status.IsSynced)
	assert.True(t, a.HealthCheck(ctx))
}

func TestIpfsIpfsStoreAndRetrieve(t *testing.T) {
	ctx := context.Background()
	client := newFakeIPFS()
	a := NewIpfsIpfs(client)

	item := testItem("DFID-1")
	cid, loc, err := a.StoreItem(ctx, item)
	require.NoError(t, err)
	assert.Equal(t, types.StorageIPFS, loc.Kind)
	assert.True(t, client.pinned[cid])

	result, ok, err := a.GetItem(ctx, cid)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "DFID-1", result.Item.DFID)
}

func TestStellarTestnetIpfsNFTMintOnFirstDFIDOnly(t *testing.T) {
	ctx := context.Background()
	ipfs := newFakeIPFS()
	stellar := newFakeStellar()
	a := NewStellarTestnetIpfs(ipfs, stellar, AnchorEventOnly)

	item := testItem("DFID-1")
	_, _, err := a.StoreNewItem(ctx, item, true, "creator-1")
	require.NoError(t, err)
	assert.True(t, stellar.minted["DFID-1"])

	stellar.minted = map[string]bool{} // reset to prove the second call doesn't re-mint
	_, _, err = a.StoreItem(ctx, item)
	require.NoError(t, err)
	assert.False(t, stellar.minted["DFID-1"])
}

func TestStellarMainnetIpfsFullStorageModeWritesContract(t *testing.T) {
	ctx := context.Background()
	ipfs := newFakeIPFS()
	stellar := newFakeStellar()
	a := NewStellarMainnetIpfs(ipfs, stellar, AnchorFullStorage)

	item := testItem("DFID-1")
	cid, _, err := a.StoreItem(ctx, item)
	require.NoError(t, err)

	stored, ok, err := stellar.ReadStorage(ctx, "DFID-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, cid, stored)
}

func TestStellarMainnetStellarMainnetHasNoItemRetrieval(t *testing.T) {
	ctx := context.Background()
	stellar := newFakeStellar()
	a := NewStellarMainnetStellarMainnet(stellar)

	item := testItem("DFID-1")
	ref, loc, err := a.StoreItem(ctx, item)
	require.NoError(t, err)
	assert.Equal(t, types.StorageStellar, loc.Kind)
	assert.NotEmpty(t, ref)

	_, _, err = a.GetItem(ctx, ref)
	assert.True(t, traceerr.Is(err, traceerr.KindNotImplemented))
}

func TestRegistryRoundTrip(t *testing.T) {
	r := NewRegistry()
	a := NewLocalLocal()
	r.Register("circuit-1", VariantLocalLocal, a)

	got, err := r.Get("circuit-1")
	require.NoError(t, err)
	assert.Equal(t, a, got)

	variant, ok := r.Variant("circuit-1")
	require.True(t, ok)
	assert.Equal(t, VariantLocalLocal, variant)

	_, err = r.Get("unknown-circuit")
	assert.True(t, traceerr.Is(err, traceerr.KindNotFound))
}

func TestRegistryRegisterWithProfile(t *testing.T) {
	r := NewRegistry()
	profile := config.AdapterProfile{
		Variant:    string(VariantLocalLocal),
		Connection: config.AdapterConnectionDetails{TimeoutMS: 250, RetryAttempts: 2},
	}
	r.RegisterWithProfile("circuit-1", profile, NewLocalLocal())

	got, err := r.Get("circuit-1")
	require.NoError(t, err)
	wrapped, ok := got.(*TimeoutRetryAdapter)
	require.True(t, ok, "RegisterWithProfile must wrap the adapter in a TimeoutRetryAdapter")
	assert.Equal(t, 250, wrapped.detail.TimeoutMS)
	assert.Equal(t, 2, wrapped.detail.RetryAttempts)

	variant, ok := r.Variant("circuit-1")
	require.True(t, ok)
	assert.Equal(t, VariantLocalLocal, variant)
}
