package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/defarm/tracectl/pkg/types"
)

type memStore struct {
	mu   sync.Mutex
	data map[string]*types.Event
}

func newMemStore() *memStore {
	return &memStore{data: map[string]*types.Event{}}
}

func (s *memStore) Put(_ context.Context, evt *types.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *evt
	s.data[evt.EventID] = &cp
	return nil
}

func (s *memStore) Get(_ context.Context, eventID string) (*types.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	evt, ok := s.data[eventID]
	if !ok {
		return nil, nil
	}
	cp := *evt
	return &cp, nil
}

func (s *memStore) all() []*types.Event {
	out := make([]*types.Event, 0, len(s.data))
	for _, evt := range s.data {
		cp := *evt
		out = append(out, &cp)
	}
	return out
}

func (s *memStore) ByDFID(_ context.Context, dfid string) ([]*types.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*types.Event
	for _, evt := range s.all() {
		if evt.DFID == dfid {
			out = append(out, evt)
		}
	}
	return out, nil
}

func (s *memStore) ByType(_ context.Context, evtType types.EventType) ([]*types.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*types.Event
	for _, evt := range s.all() {
		if evt.Type == evtType {
			out = append(out, evt)
		}
	}
	return out, nil
}

func (s *memStore) ByVisibility(_ context.Context, vis types.EventVisibility) ([]*types.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*types.Event
	for _, evt := range s.all() {
		if evt.Visibility == vis {
			out = append(out, evt)
		}
	}
	return out, nil
}

func (s *memStore) InRange(_ context.Context, from, to time.Time) ([]*types.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*types.Event
	for _, evt := range s.all() {
		if !evt.Timestamp.Before(from) && !evt.Timestamp.After(to) {
			out = append(out, evt)
		}
	}
	return out, nil
}

func (s *memStore) ListAll(_ context.Context) ([]*types.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.all(), nil
}

func TestEmitFillsEventIDTimestampAndContentHash(t *testing.T) {
	ctx := context.Background()
	eng := New(newMemStore(), nil)

	evt := &types.Event{DFID: "DFID-1", Type: types.EventCreated, Source: "user-1", Visibility: types.VisibilityPrivate}
	err := eng.Emit(ctx, evt)
	require.NoError(t, err)

	assert.NotEmpty(t, evt.EventID)
	assert.False(t, evt.Timestamp.IsZero())
	assert.NotEmpty(t, evt.ContentHash)
}

func TestEmitRejectsMissingDFID(t *testing.T) {
	ctx := context.Background()
	eng := New(newMemStore(), nil)

	err := eng.Emit(ctx, &types.Event{Type: types.EventCreated})
	assert.Error(t, err)
}

func TestSetMetadataReHashesButKeepsEventID(t *testing.T) {
	ctx := context.Background()
	eng := New(newMemStore(), nil)

	evt := &types.Event{DFID: "DFID-1", Type: types.EventCreated, Source: "user-1"}
	require.NoError(t, eng.Emit(ctx, evt))
	originalID := evt.EventID
	originalHash := evt.ContentHash

	updated, err := eng.SetMetadata(ctx, originalID, map[string]interface{}{"note": "checked in"})
	require.NoError(t, err)

	assert.Equal(t, originalID, updated.EventID)
	assert.NotEqual(t, originalHash, updated.ContentHash)
	assert.Equal(t, "checked in", updated.Metadata["note"])
}

func TestByDFIDFiltersByVisibility(t *testing.T) {
	ctx := context.Background()
	eng := New(newMemStore(), nil)

	require.NoError(t, eng.Emit(ctx, &types.Event{DFID: "DFID-1", Type: types.EventCreated, Source: "owner", Visibility: types.VisibilityPrivate}))
	require.NoError(t, eng.Emit(ctx, &types.Event{DFID: "DFID-1", Type: types.EventUpdated, Source: "owner", Visibility: types.VisibilityPublic}))

	asOwner, err := eng.ByDFID(ctx, "DFID-1", types.ViewContext{RequesterID: "owner"})
	require.NoError(t, err)
	assert.Len(t, asOwner, 2)

	asStranger, err := eng.ByDFID(ctx, "DFID-1", types.ViewContext{RequesterID: "stranger"})
	require.NoError(t, err)
	assert.Len(t, asStranger, 1)
	assert.Equal(t, types.VisibilityPublic, asStranger[0].Visibility)
}

func TestDirectVisibilityVisibleToSourceAndRecipientOnly(t *testing.T) {
	ctx := context.Background()
	eng := New(newMemStore(), nil)

	evt := &types.Event{
		DFID:       "DFID-1",
		Type:       types.EventPushedToCircuit,
		Source:     "owner",
		Visibility: types.VisibilityDirect,
		Metadata:   map[string]interface{}{"recipient_id": "partner"},
	}
	require.NoError(t, eng.Emit(ctx, evt))

	visibleToRecipient, err := eng.ListAll(ctx, types.ViewContext{RequesterID: "partner"})
	require.NoError(t, err)
	assert.Len(t, visibleToRecipient, 1)

	visibleToStranger, err := eng.ListAll(ctx, types.ViewContext{RequesterID: "someone-else"})
	require.NoError(t, err)
	assert.Len(t, visibleToStranger, 0)
}

func TestCircuitOnlyVisibilityRequiresMatchingCurrentCircuit(t *testing.T) {
	ctx := context.Background()
	eng := New(newMemStore(), nil)

	evt := &types.Event{
		DFID:       "DFID-1",
		Type:       types.EventPulledFromCircuit,
		Source:     "owner",
		Visibility: types.VisibilityCircuitOnly,
		Metadata:   map[string]interface{}{"circuit_id": "circuit-a"},
	}
	require.NoError(t, eng.Emit(ctx, evt))

	inCircuit, err := eng.ListAll(ctx, types.ViewContext{RequesterID: "anyone", CurrentCircuitID: "circuit-a"})
	require.NoError(t, err)
	assert.Len(t, inCircuit, 1)

	outOfCircuit, err := eng.ListAll(ctx, types.ViewContext{RequesterID: "anyone", CurrentCircuitID: "circuit-b"})
	require.NoError(t, err)
	assert.Len(t, outOfCircuit, 0)
}

func TestInRangeFiltersByTimestamp(t *testing.T) {
	ctx := context.Background()
	eng := New(newMemStore(), nil)

	require.NoError(t, eng.Emit(ctx, &types.Event{DFID: "DFID-1", Type: types.EventCreated, Source: "owner", Visibility: types.VisibilityPublic}))

	now := time.Now().UTC()
	inRange, err := eng.InRange(ctx, now.Add(-time.Hour), now.Add(time.Hour), types.ViewContext{RequesterID: "owner"})
	require.NoError(t, err)
	assert.Len(t, inRange, 1)

	outOfRange, err := eng.InRange(ctx, now.Add(2*time.Hour), now.Add(3*time.Hour), types.ViewContext{RequesterID: "owner"})
	require.NoError(t, err)
	assert.Len(t, outOfRange, 0)
}
