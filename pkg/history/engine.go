// Package history implements the Storage History Manager: the per-DFID
// append-only log of every storage placement an item or its events have
// ever been written to.
package history

import (
	"context"
	"time"

	"github.com/defarm/tracectl/pkg/storageadapter"
	"github.com/defarm/tracectl/pkg/traceerr"
	"github.com/defarm/tracectl/pkg/types"
)

// Engine implements spec §4.6's operations.
type Engine struct {
	store   Store
	nowFunc func() time.Time
}

// New returns an Engine backed by store.
func New(store Store) *Engine {
	return &Engine{store: store, nowFunc: time.Now}
}

func (e *Engine) load(ctx context.Context, dfid string) (*types.ItemStorageHistory, error) {
	h, err := e.store.Get(ctx, dfid)
	if err != nil {
		h = &types.ItemStorageHistory{DFID: dfid}
	}
	return h, nil
}

// RecordItemStorage derives a StorageLocation from (adapterID, idReturned)
// and appends it as the new primary placement for dfid.
func (e *Engine) RecordItemStorage(ctx context.Context, dfid, adapterID string, loc types.StorageLocation) (*types.ItemStorageHistory, error) {
	h, err := e.load(ctx, dfid)
	if err != nil {
		return nil, err
	}

	for i := range h.Records {
		h.Records[i].IsPrimary = false
	}
	h.Records = append(h.Records, types.StorageRecord{
		Location:  loc,
		IsPrimary: true,
		AdapterID: adapterID,
	})

	if err := e.store.Put(ctx, h); err != nil {
		return nil, traceerr.Storage(err, "writing storage history for %s", dfid)
	}
	return h, nil
}

// RecordEventStorage appends an event placement. Events never become
// primary: is_active stays false regardless of current placements.
func (e *Engine) RecordEventStorage(ctx context.Context, dfid, adapterID string, loc types.StorageLocation) (*types.ItemStorageHistory, error) {
	h, err := e.load(ctx, dfid)
	if err != nil {
		return nil, err
	}

	h.Records = append(h.Records, types.StorageRecord{
		Location:  loc,
		IsPrimary: false,
		AdapterID: adapterID,
	})

	if err := e.store.Put(ctx, h); err != nil {
		return nil, traceerr.Storage(err, "writing storage history for %s", dfid)
	}
	return h, nil
}

// Migrate copies dfid's payload from its current primary placement to
// targetAdapter, appending a new StorageRecord tagged
// triggered_by=circuit_migration. A no-op if a placement already exists
// under targetVariant. Migration is at-least-once: a failure reading from
// the source or writing to the target leaves the existing placement
// intact and returns an error without mutating history.
func (e *Engine) Migrate(ctx context.Context, dfid string, sourceAdapter storageadapter.Adapter, sourceID string, targetAdapter storageadapter.Adapter, targetVariant storageadapter.VariantName) (*types.ItemStorageHistory, error) {
	h, err := e.load(ctx, dfid)
	if err != nil {
		return nil, err
	}

	for _, r := range h.Records {
		if r.AdapterID == string(targetVariant) {
			return h, nil // already placed there
		}
	}

	stored, ok, err := sourceAdapter.GetItem(ctx, sourceID)
	if err != nil {
		return nil, traceerr.Read(err, "reading %s from source adapter for migration", dfid)
	}
	if !ok {
		return nil, traceerr.NotFound("item %s not found at source adapter", dfid)
	}

	newID, loc, err := targetAdapter.StoreItem(ctx, stored.Item)
	if err != nil {
		return nil, traceerr.Write(err, "writing %s to target adapter during migration", dfid)
	}
	_ = newID

	for i := range h.Records {
		h.Records[i].IsPrimary = false
	}
	h.Records = append(h.Records, types.StorageRecord{
		Location:    loc,
		IsPrimary:   true,
		AdapterID:   string(targetVariant),
		TriggeredBy: "circuit_migration",
	})

	if err := e.store.Put(ctx, h); err != nil {
		return nil, traceerr.Storage(err, "writing migrated storage history for %s", dfid)
	}
	return h, nil
}

// SetPrimary marks the record matching loc as the current primary. A
// no-op returning an error if loc is not a known placement.
func (e *Engine) SetPrimary(ctx context.Context, dfid string, loc types.StorageLocation) error {
	h, err := e.load(ctx, dfid)
	if err != nil {
		return err
	}
	if !h.SetPrimary(loc) {
		return traceerr.NotFound("location not recorded for %s", dfid)
	}
	return e.store.Put(ctx, h)
}

// GetHistory returns the full placement log for dfid.
func (e *Engine) GetHistory(ctx context.Context, dfid string) (*types.ItemStorageHistory, error) {
	return e.load(ctx, dfid)
}

// GetAllLocations returns every distinct StorageLocation recorded for dfid.
func (e *Engine) GetAllLocations(ctx context.Context, dfid string) ([]types.StorageLocation, error) {
	h, err := e.load(ctx, dfid)
	if err != nil {
		return nil, err
	}
	return h.Locations(), nil
}
