// Package items implements the items engine: creation, enrichment, merge,
// split, and deprecation of resolved logical entities.
package items

import (
	"context"
	"log/slog"
	"time"

	"github.com/defarm/tracectl/pkg/dfid"
	"github.com/defarm/tracectl/pkg/graph"
	"github.com/defarm/tracectl/pkg/traceerr"
	"github.com/defarm/tracectl/pkg/types"
)

// Engine implements the item lifecycle operations of spec §4.4.
type Engine struct {
	store   Store
	graph   *graph.Graph
	events  EventEmitter
	dfids   *dfid.Generator
	log     *slog.Logger
	nowFunc func() time.Time
}

// New returns an Engine backed by store, graph, and an event sink.
func New(store Store, g *graph.Graph, events EventEmitter, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		store:   store,
		graph:   g,
		events:  events,
		dfids:   dfid.NewGenerator(),
		log:     log,
		nowFunc: time.Now,
	}
}

func (e *Engine) now() time.Time { return e.nowFunc().UTC() }

// CreateItem creates a new item at an explicit dfid. Fails with
// traceerr.Conflict if dfid already exists.
func (e *Engine) CreateItem(ctx context.Context, dfidStr string, identifiers []types.Identifier, sourceEntry string) (*types.Item, error) {
	exists, err := e.store.Exists(ctx, dfidStr)
	if err != nil {
		return nil, traceerr.Storage(err, "checking existence of %s", dfidStr)
	}
	if exists {
		return nil, traceerr.Conflict("item %s already exists", dfidStr)
	}

	now := e.now()
	item := &types.Item{
		DFID:          dfidStr,
		Identifiers:   append([]types.Identifier(nil), identifiers...),
		EnrichedData:  map[string]interface{}{},
		CreatedAt:     now,
		LastModified:  now,
		SourceEntries: []string{sourceEntry},
		Confidence:    1.0,
		Status:        types.ItemActive,
	}

	if err := e.persistCanonicals(item); err != nil {
		return nil, err
	}
	if err := e.store.Put(ctx, item); err != nil {
		return nil, traceerr.Storage(err, "writing item %s", dfidStr)
	}

	e.emit(ctx, item.DFID, types.EventCreated, sourceEntry, nil)
	return item, nil
}

// ItemCreationOutcome reports whether CreateItemWithGeneratedDFID created a
// new item or enriched an existing one.
type ItemCreationOutcome string

const (
	OutcomeNewItemCreated       ItemCreationOutcome = "new_item_created"
	OutcomeExistingItemEnriched ItemCreationOutcome = "existing_item_enriched"
)

// CreateItemWithGeneratedDFID tries identifiers in the order given by the
// caller; the first one that already maps to an item enriches that item
// instead of creating a new one, and the search stops there (callers
// wanting canonical-first resolution order must sort identifiers
// themselves before calling). If none map, a new item is created under a
// freshly generated DFID.
func (e *Engine) CreateItemWithGeneratedDFID(ctx context.Context, identifiers []types.Identifier, sourceEntry string, enriched map[string]interface{}) (*types.Item, ItemCreationOutcome, error) {
	for _, id := range identifiers {
		dfidStr, ok := e.graph.Lookup(id)
		if !ok {
			continue
		}
		item, err := e.store.Get(ctx, dfidStr)
		if err != nil {
			return nil, "", traceerr.Storage(err, "loading resolved item %s", dfidStr)
		}
		if err := e.enrichLocked(ctx, item, identifiers, enriched, sourceEntry); err != nil {
			return nil, "", err
		}
		return item, OutcomeExistingItemEnriched, nil
	}

	newDFID := e.dfids.Generate()
	item, err := e.CreateItem(ctx, newDFID, identifiers, sourceEntry)
	if err != nil {
		return nil, "", err
	}
	if len(enriched) > 0 {
		if err := e.enrichLocked(ctx, item, nil, enriched, sourceEntry); err != nil {
			return nil, "", err
		}
	}
	return item, OutcomeNewItemCreated, nil
}

// Enrich merges data into an item's enriched_data (new keys added, existing
// keys overwritten), appends sourceEntry, and advances last_modified.
func (e *Engine) Enrich(ctx context.Context, dfidStr string, data map[string]interface{}, sourceEntry string) (*types.Item, error) {
	item, err := e.store.Get(ctx, dfidStr)
	if err != nil {
		return nil, traceerr.NotFound("item %s: %v", dfidStr, err)
	}
	if err := e.enrichLocked(ctx, item, nil, data, sourceEntry); err != nil {
		return nil, err
	}
	return item, nil
}

func (e *Engine) enrichLocked(ctx context.Context, item *types.Item, newIdentifiers []types.Identifier, data map[string]interface{}, sourceEntry string) error {
	for k, v := range data {
		item.EnrichedData[k] = v
	}
	if len(newIdentifiers) > 0 {
		e.unionIdentifiers(item, newIdentifiers)
	}
	item.SourceEntries = append(item.SourceEntries, sourceEntry)
	item.LastModified = e.now()

	if err := e.store.Put(ctx, item); err != nil {
		return traceerr.Storage(err, "writing enriched item %s", item.DFID)
	}
	e.emit(ctx, item.DFID, types.EventEnriched, sourceEntry, map[string]interface{}{"keys": keysOf(data)})
	return nil
}

// AddIdentifiers adds new identifiers to an item with set-union semantics:
// no duplicate (by UniqueKey) is ever added.
func (e *Engine) AddIdentifiers(ctx context.Context, dfidStr string, newIdentifiers []types.Identifier) (*types.Item, error) {
	item, err := e.store.Get(ctx, dfidStr)
	if err != nil {
		return nil, traceerr.NotFound("item %s: %v", dfidStr, err)
	}

	added := e.unionIdentifiers(item, newIdentifiers)
	item.LastModified = e.now()

	if err := e.store.Put(ctx, item); err != nil {
		return nil, traceerr.Storage(err, "writing item %s", item.DFID)
	}
	if len(added) > 0 {
		e.emit(ctx, item.DFID, types.EventUpdated, "", map[string]interface{}{"identifiers_added": len(added)})
	}
	return item, nil
}

func (e *Engine) unionIdentifiers(item *types.Item, candidates []types.Identifier) []types.Identifier {
	var added []types.Identifier
	for _, id := range candidates {
		if item.HasUniqueKey(id.UniqueKey()) {
			continue
		}
		item.Identifiers = append(item.Identifiers, id)
		added = append(added, id)
		if id.IsCanonical() {
			_ = e.graph.AddCanonical(item.DFID, id)
		} else {
			e.graph.AddIdentifier(item.DFID, id, item.Confidence)
		}
	}
	return added
}

// Merge absorbs secondary into primary: identifiers and enriched_data
// union with primary winning key collisions, source_entries concatenate,
// confidence becomes the mean, and secondary transitions to Merged. Merge
// is not commutative: Merge(a, b) differs from Merge(b, a).
func (e *Engine) Merge(ctx context.Context, primaryDFID, secondaryDFID string) (*types.Item, error) {
	primary, err := e.store.Get(ctx, primaryDFID)
	if err != nil {
		return nil, traceerr.NotFound("primary item %s: %v", primaryDFID, err)
	}
	secondary, err := e.store.Get(ctx, secondaryDFID)
	if err != nil {
		return nil, traceerr.NotFound("secondary item %s: %v", secondaryDFID, err)
	}

	for _, id := range secondary.Identifiers {
		if !primary.HasUniqueKey(id.UniqueKey()) {
			primary.Identifiers = append(primary.Identifiers, id)
			if id.IsCanonical() {
				_ = e.graph.AddCanonical(primary.DFID, id)
			}
		}
	}
	// Primary wins on enriched_data key collisions: only set keys primary
	// doesn't already carry.
	for k, v := range secondary.EnrichedData {
		if _, exists := primary.EnrichedData[k]; !exists {
			primary.EnrichedData[k] = v
		}
	}
	primary.SourceEntries = append(primary.SourceEntries, secondary.SourceEntries...)
	primary.Confidence = (primary.Confidence + secondary.Confidence) / 2
	primary.LastModified = e.now()

	secondary.Status = types.ItemMerged
	secondary.MergedIntoDFID = primary.DFID
	secondary.LastModified = e.now()

	if err := e.store.Put(ctx, primary); err != nil {
		return nil, traceerr.Storage(err, "writing merged primary %s", primary.DFID)
	}
	if err := e.store.Put(ctx, secondary); err != nil {
		return nil, traceerr.Storage(err, "writing merged secondary %s", secondary.DFID)
	}

	e.emit(ctx, primary.DFID, types.EventMerged, "", map[string]interface{}{"absorbed": secondary.DFID})
	return primary, nil
}

// Split moves the given identifiers off dfid onto a brand-new item at
// newDFID. The original's status becomes Split; identifiers are moved, not
// copied.
func (e *Engine) Split(ctx context.Context, dfidStr string, idsForNew []types.Identifier, newDFID string) (original, created *types.Item, err error) {
	original, err = e.store.Get(ctx, dfidStr)
	if err != nil {
		return nil, nil, traceerr.NotFound("item %s: %v", dfidStr, err)
	}

	moveKeys := make(map[string]struct{}, len(idsForNew))
	for _, id := range idsForNew {
		moveKeys[id.UniqueKey()] = struct{}{}
	}

	remaining := original.Identifiers[:0:0]
	for _, id := range original.Identifiers {
		if _, move := moveKeys[id.UniqueKey()]; !move {
			remaining = append(remaining, id)
		} else {
			e.graph.DeprecateMapping(original.DFID, id)
		}
	}
	original.Identifiers = remaining
	original.Status = types.ItemSplit
	original.LastModified = e.now()

	now := e.now()
	created = &types.Item{
		DFID:          newDFID,
		Identifiers:   append([]types.Identifier(nil), idsForNew...),
		EnrichedData:  map[string]interface{}{},
		CreatedAt:     now,
		LastModified:  now,
		SourceEntries: append([]string(nil), original.SourceEntries...),
		Confidence:    original.Confidence,
		Status:        types.ItemActive,
	}
	if err := e.persistCanonicals(created); err != nil {
		return nil, nil, err
	}

	if err := e.store.Put(ctx, original); err != nil {
		return nil, nil, traceerr.Storage(err, "writing split original %s", original.DFID)
	}
	if err := e.store.Put(ctx, created); err != nil {
		return nil, nil, traceerr.Storage(err, "writing split result %s", created.DFID)
	}

	e.emit(ctx, original.DFID, types.EventSplit, "", map[string]interface{}{"new_dfid": newDFID})
	return original, created, nil
}

// Deprecate irreversibly marks an item deprecated.
func (e *Engine) Deprecate(ctx context.Context, dfidStr string) (*types.Item, error) {
	item, err := e.store.Get(ctx, dfidStr)
	if err != nil {
		return nil, traceerr.NotFound("item %s: %v", dfidStr, err)
	}
	item.Status = types.ItemDeprecated
	item.LastModified = e.now()

	if err := e.store.Put(ctx, item); err != nil {
		return nil, traceerr.Storage(err, "writing deprecated item %s", item.DFID)
	}
	e.emit(ctx, item.DFID, types.EventStatusChanged, "", map[string]interface{}{"status": string(types.ItemDeprecated)})
	return item, nil
}

func (e *Engine) persistCanonicals(item *types.Item) error {
	for _, id := range item.Identifiers {
		if !id.IsCanonical() {
			continue
		}
		if err := e.graph.AddCanonical(item.DFID, id); err != nil {
			return traceerr.Conflict("identifier %s already bound: %v", id.UniqueKey(), err)
		}
	}
	for _, id := range item.Identifiers {
		if !id.IsCanonical() {
			e.graph.AddIdentifier(item.DFID, id, item.Confidence)
		}
	}
	return nil
}

func (e *Engine) emit(ctx context.Context, dfidStr string, evtType types.EventType, source string, metadata map[string]interface{}) {
	if e.events == nil {
		return
	}
	evt := &types.Event{
		DFID:       dfidStr,
		Type:       evtType,
		Timestamp:  e.now(),
		Source:     source,
		Metadata:   metadata,
		Visibility: types.VisibilityPrivate,
	}
	if err := e.events.Emit(ctx, evt); err != nil {
		e.log.Error("failed to emit event", "dfid", dfidStr, "type", evtType, "error", err)
	}
}

func keysOf(m map[string]interface{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
