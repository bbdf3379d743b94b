package receipts

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/defarm/tracectl/pkg/traceerr"
	"github.com/defarm/tracectl/pkg/types"
)

type memStore struct {
	mu       sync.Mutex
	receipts map[string]*types.Receipt
}

func newMemStore() *memStore {
	return &memStore{receipts: map[string]*types.Receipt{}}
}

func (s *memStore) PutReceipt(_ context.Context, r *types.Receipt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	s.receipts[r.ID] = &cp
	return nil
}

func (s *memStore) GetReceipt(_ context.Context, id string) (*types.Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.receipts[id]
	if !ok {
		return nil, traceerr.NotFound("receipt %s", id)
	}
	cp := *r
	return &cp, nil
}

func (s *memStore) SearchReceipts(_ context.Context, namespace, key, value string) ([]*types.Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*types.Receipt
	for _, r := range s.receipts {
		for _, id := range r.Identifiers {
			if namespace != "" && id.Namespace != namespace {
				continue
			}
			if key != "" && id.Key != key {
				continue
			}
			if value != "" && id.Value != value {
				continue
			}
			cp := *r
			out = append(out, &cp)
			break
		}
	}
	return out, nil
}

type memEntryQueue struct {
	mu      sync.Mutex
	entries []*types.DataLakeEntry
}

func (q *memEntryQueue) PutEntry(_ context.Context, entry *types.DataLakeEntry) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries = append(q.entries, entry)
	return nil
}

func newTestEngine() (*Engine, *memStore, *memEntryQueue) {
	store := newMemStore()
	entries := &memEntryQueue{}
	return New(store, entries, nil), store, entries
}

func sisbov(value string) types.Identifier {
	return types.NewCanonical("bovino", "sisbov", value)
}

func TestCreateRequiresIdentifiers(t *testing.T) {
	eng, _, _ := newTestEngine()
	_, _, err := eng.Create(context.Background(), []byte("payload"), nil)
	require.Error(t, err)
	assert.True(t, traceerr.Is(err, traceerr.KindValidation))
}

func TestCreatePersistsReceiptAndEnqueuesEntry(t *testing.T) {
	eng, store, entries := newTestEngine()
	ids := []types.Identifier{sisbov("123456789012345")}

	receipt, entry, err := eng.Create(context.Background(), []byte("payload"), ids)
	require.NoError(t, err)
	require.NotNil(t, receipt)
	require.NotNil(t, entry)

	assert.Equal(t, receipt.ID, entry.ReceiptID)
	assert.Equal(t, receipt.ContentHash, entry.ContentHash)
	assert.Equal(t, types.EntryPending, entry.Status)
	assert.Len(t, entries.entries, 1)

	stored, err := store.GetReceipt(context.Background(), receipt.ID)
	require.NoError(t, err)
	assert.Equal(t, receipt.ContentHash, stored.ContentHash)
}

func TestVerifyDetectsTamperedData(t *testing.T) {
	eng, _, _ := newTestEngine()
	ids := []types.Identifier{sisbov("123456789012345")}
	receipt, _, err := eng.Create(context.Background(), []byte("payload"), ids)
	require.NoError(t, err)

	valid, err := eng.Verify(context.Background(), receipt.ID, []byte("payload"))
	require.NoError(t, err)
	assert.True(t, valid.IsValid)

	tampered, err := eng.Verify(context.Background(), receipt.ID, []byte("tampered"))
	require.NoError(t, err)
	assert.False(t, tampered.IsValid)
	assert.Equal(t, receipt.ContentHash, tampered.OriginalHash)
}

func TestVerifyUnknownReceipt(t *testing.T) {
	eng, _, _ := newTestEngine()
	_, err := eng.Verify(context.Background(), "missing", []byte("payload"))
	require.Error(t, err)
	assert.True(t, traceerr.Is(err, traceerr.KindNotFound))
}

func TestSearchRequiresAtLeastOneField(t *testing.T) {
	eng, _, _ := newTestEngine()
	_, err := eng.Search(context.Background(), "", "", "")
	require.Error(t, err)
	assert.True(t, traceerr.Is(err, traceerr.KindValidation))
}

func TestCreateRejectsSchemaInvalidIdentifier(t *testing.T) {
	eng, _, _ := newTestEngine()
	schema, err := NewIdentifierSchema()
	require.NoError(t, err)
	eng.WithIdentifierSchema(schema)

	bad := types.Identifier{Namespace: "bovino", Key: "sisbov", Value: "123", Kind: "bogus"}
	_, _, err = eng.Create(context.Background(), []byte("payload"), []types.Identifier{bad})
	require.Error(t, err)
	assert.True(t, traceerr.Is(err, traceerr.KindValidation))
}

func TestCreateAcceptsSchemaValidIdentifier(t *testing.T) {
	eng, _, _ := newTestEngine()
	schema, err := NewIdentifierSchema()
	require.NoError(t, err)
	eng.WithIdentifierSchema(schema)

	receipt, _, err := eng.Create(context.Background(), []byte("payload"), []types.Identifier{sisbov("123456789012345")})
	require.NoError(t, err)
	assert.NotEmpty(t, receipt.ID)
}

func TestSearchByIdentifier(t *testing.T) {
	eng, _, _ := newTestEngine()
	ids := []types.Identifier{sisbov("123456789012345")}
	receipt, _, err := eng.Create(context.Background(), []byte("payload"), ids)
	require.NoError(t, err)

	results, err := eng.Search(context.Background(), "bovino", "sisbov", "123456789012345")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, receipt.ID, results[0].ID)

	none, err := eng.Search(context.Background(), "bovino", "sisbov", "999999999999999")
	require.NoError(t, err)
	assert.Empty(t, none)
}
