// Package events implements the Event Store (C9): append-only per-DFID
// events with caller-scoped visibility and a content hash that changes on
// metadata updates but never on anything else.
package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/defarm/tracectl/pkg/canonicalize"
	"github.com/defarm/tracectl/pkg/traceerr"
	"github.com/defarm/tracectl/pkg/types"
)

// Engine implements spec §4.9's append/set_metadata/query operations.
// It also satisfies pkg/items.EventEmitter, so an Items Engine can emit
// through it directly.
type Engine struct {
	store   Store
	log     *slog.Logger
	nowFunc func() time.Time
}

// New returns an Engine backed by store.
func New(store Store, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{store: store, log: log, nowFunc: time.Now}
}

type hashInput struct {
	DFID       string                 `json:"dfid"`
	Type       types.EventType        `json:"type"`
	Timestamp  string                 `json:"timestamp"`
	Source     string                 `json:"source"`
	Metadata   map[string]interface{} `json:"metadata"`
	Visibility types.EventVisibility  `json:"visibility"`
}

func contentHashOf(evt *types.Event) (string, error) {
	return canonicalize.CanonicalContentHash(hashInput{
		DFID:       evt.DFID,
		Type:       evt.Type,
		Timestamp:  evt.Timestamp.UTC().Format(time.RFC3339Nano),
		Source:     evt.Source,
		Metadata:   evt.Metadata,
		Visibility: evt.Visibility,
	})
}

// Emit appends a new event. The caller supplies DFID/Type/Source/Metadata/
// Visibility; Emit fills Timestamp, EventID, and ContentHash. This is the
// spec's `append` operation, and is also how pkg/items.EventEmitter is
// satisfied.
func (e *Engine) Emit(ctx context.Context, evt *types.Event) error {
	if evt.DFID == "" {
		return traceerr.Validation("event requires a dfid")
	}
	if evt.Type == "" {
		return traceerr.Validation("event requires a type")
	}
	if evt.Visibility == "" {
		evt.Visibility = types.VisibilityPrivate
	}
	if evt.Metadata == nil {
		evt.Metadata = map[string]interface{}{}
	}
	evt.EventID = uuid.NewString()
	evt.Timestamp = e.nowFunc().UTC()

	hash, err := contentHashOf(evt)
	if err != nil {
		return traceerr.Storage(err, "hashing event for %s", evt.DFID)
	}
	evt.ContentHash = hash

	if err := e.store.Put(ctx, evt); err != nil {
		return traceerr.Storage(err, "persisting event for %s", evt.DFID)
	}
	e.log.Debug("event emitted", "dfid", evt.DFID, "type", evt.Type, "event_id", evt.EventID)
	return nil
}

// SetMetadata merges kv into the event's metadata and re-hashes ContentHash.
// This is the only mutation allowed on an Event; EventID remains the stable
// external identity across the re-hash.
func (e *Engine) SetMetadata(ctx context.Context, eventID string, kv map[string]interface{}) (*types.Event, error) {
	evt, err := e.store.Get(ctx, eventID)
	if err != nil {
		return nil, traceerr.Storage(err, "loading event %s", eventID)
	}
	if evt == nil {
		return nil, traceerr.NotFound("event %s not found", eventID)
	}
	if evt.Metadata == nil {
		evt.Metadata = map[string]interface{}{}
	}
	for k, v := range kv {
		evt.Metadata[k] = v
	}

	hash, err := contentHashOf(evt)
	if err != nil {
		return nil, traceerr.Storage(err, "re-hashing event %s", eventID)
	}
	evt.ContentHash = hash

	if err := e.store.Put(ctx, evt); err != nil {
		return nil, traceerr.Storage(err, "persisting updated event %s", eventID)
	}
	return evt, nil
}

// ByDFID returns every event recorded against dfid, filtered to what
// viewer can see.
func (e *Engine) ByDFID(ctx context.Context, dfid string, viewer types.ViewContext) ([]*types.Event, error) {
	all, err := e.store.ByDFID(ctx, dfid)
	if err != nil {
		return nil, traceerr.Storage(err, "listing events for %s", dfid)
	}
	return filterVisible(all, viewer), nil
}

// ByType returns every event of evtType, filtered to what viewer can see.
func (e *Engine) ByType(ctx context.Context, evtType types.EventType, viewer types.ViewContext) ([]*types.Event, error) {
	all, err := e.store.ByType(ctx, evtType)
	if err != nil {
		return nil, traceerr.Storage(err, "listing events of type %s", evtType)
	}
	return filterVisible(all, viewer), nil
}

// ByVisibility returns every event tagged with vis, filtered to what
// viewer can see (vis alone does not guarantee visibility: e.g. Direct
// events still require the viewer to be source or recipient).
func (e *Engine) ByVisibility(ctx context.Context, vis types.EventVisibility, viewer types.ViewContext) ([]*types.Event, error) {
	all, err := e.store.ByVisibility(ctx, vis)
	if err != nil {
		return nil, traceerr.Storage(err, "listing events with visibility %s", vis)
	}
	return filterVisible(all, viewer), nil
}

// InRange returns every event timestamped within [from, to], filtered to
// what viewer can see.
func (e *Engine) InRange(ctx context.Context, from, to time.Time, viewer types.ViewContext) ([]*types.Event, error) {
	all, err := e.store.InRange(ctx, from, to)
	if err != nil {
		return nil, traceerr.Storage(err, "listing events in range")
	}
	return filterVisible(all, viewer), nil
}

// ListAll returns every event in the store, filtered to what viewer can
// see. Callers that list events must filter per-caller before returning,
// which this does unconditionally rather than trusting the caller.
func (e *Engine) ListAll(ctx context.Context, viewer types.ViewContext) ([]*types.Event, error) {
	all, err := e.store.ListAll(ctx)
	if err != nil {
		return nil, traceerr.Storage(err, "listing all events")
	}
	return filterVisible(all, viewer), nil
}

func filterVisible(events []*types.Event, viewer types.ViewContext) []*types.Event {
	visible := make([]*types.Event, 0, len(events))
	for _, evt := range events {
		if evt.CanView(viewer) {
			visible = append(visible, evt)
		}
	}
	return visible
}
