// Package verification implements the Verification Engine: batch
// processing of pending receipt ingestion entries into resolved items.
package verification

import (
	"context"
	"log/slog"
	"time"

	"github.com/defarm/tracectl/pkg/dfid"
	"github.com/defarm/tracectl/pkg/graph"
	"github.com/defarm/tracectl/pkg/items"
	"github.com/defarm/tracectl/pkg/traceerr"
	"github.com/defarm/tracectl/pkg/types"
)

// Engine processes DataLakeEntry records per spec §4.3.
type Engine struct {
	entries EntryStore
	itemSt  ItemReader
	items   *items.Engine
	graph   *graph.Graph
	dfids   *dfid.Generator
	log     *slog.Logger
	nowFunc func() time.Time
	leaser  EntryLeaser
}

// WithLeaser attaches a distributed EntryLeaser so ProcessBatch is safe
// to run concurrently from multiple Engine instances against the same
// EntryStore. Without one, ProcessBatch assumes it is the only caller.
func (e *Engine) WithLeaser(l EntryLeaser) *Engine {
	e.leaser = l
	return e
}

// New returns an Engine.
func New(entries EntryStore, itemSt ItemReader, itemsEngine *items.Engine, g *graph.Graph, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		entries: entries,
		itemSt:  itemSt,
		items:   itemsEngine,
		graph:   g,
		dfids:   dfid.NewGenerator(),
		log:     log,
		nowFunc: time.Now,
	}
}

// ProcessBatch pulls up to limit Pending entries and processes each one.
// Per-entry failures mark that entry Failed and never abort the batch;
// entries are never automatically rerun after a terminal status.
func (e *Engine) ProcessBatch(ctx context.Context, limit int) ([]*types.DataLakeEntry, error) {
	pending, err := e.entries.PendingEntries(ctx, limit)
	if err != nil {
		return nil, traceerr.Storage(err, "listing pending entries")
	}

	results := make([]*types.DataLakeEntry, 0, len(pending))
	for _, entry := range pending {
		if e.leaser != nil {
			acquired, err := e.leaser.TryAcquire(ctx, entry.EntryID, entryLeaseTTL)
			if err != nil {
				e.log.Error("lease acquisition failed, processing without exclusivity", "entry_id", entry.EntryID, "error", err)
			} else if !acquired {
				continue
			}
		}
		e.processOne(ctx, entry)
		results = append(results, entry)
	}
	return results, nil
}

func (e *Engine) processOne(ctx context.Context, entry *types.DataLakeEntry) {
	entry.Status = types.EntryProcessing
	if err := e.entries.PutEntry(ctx, entry); err != nil {
		e.log.Error("failed to mark entry processing", "entry_id", entry.EntryID, "error", err)
	}

	if err := e.resolveEntry(ctx, entry); err != nil {
		entry.Status = types.EntryFailed
		entry.Error = err.Error()
		e.log.Error("verification failed", "entry_id", entry.EntryID, "error", err)
	}

	if perr := e.entries.PutEntry(ctx, entry); perr != nil {
		e.log.Error("failed to persist entry result", "entry_id", entry.EntryID, "error", perr)
	}
}

func (e *Engine) resolveEntry(ctx context.Context, entry *types.DataLakeEntry) error {
	res := e.graph.Resolve(entry.Identifiers, "")

	switch res.Kind {
	case graph.ResolutionAllNew:
		return e.completeAllNew(ctx, entry)

	case graph.ResolutionExistingSingle:
		return e.completeExistingSingle(ctx, entry, res.DFID)

	default: // Conflict
		return e.handleConflict(ctx, entry, res.DFIDs)
	}
}

func (e *Engine) completeAllNew(ctx context.Context, entry *types.DataLakeEntry) error {
	newDFID := e.dfids.Generate()
	item, err := e.items.CreateItem(ctx, newDFID, entry.Identifiers, entry.EntryID)
	if err != nil {
		return err
	}
	_, err = e.items.Enrich(ctx, item.DFID, map[string]interface{}{
		"content_hash": entry.ContentHash,
	}, entry.EntryID)
	if err != nil {
		return err
	}

	entry.Status = types.EntryCompleted
	entry.LinkedDFID = item.DFID
	return nil
}

func (e *Engine) completeExistingSingle(ctx context.Context, entry *types.DataLakeEntry, dfidStr string) error {
	if _, err := e.items.AddIdentifiers(ctx, dfidStr, entry.Identifiers); err != nil {
		return err
	}
	if _, err := e.items.Enrich(ctx, dfidStr, map[string]interface{}{
		"content_hash": entry.ContentHash,
	}, entry.EntryID); err != nil {
		return err
	}

	entry.Status = types.EntryCompleted
	entry.LinkedDFID = dfidStr
	return nil
}

func (e *Engine) handleConflict(ctx context.Context, entry *types.DataLakeEntry, dfids []string) error {
	candidates := make([]*types.Item, 0, len(dfids))
	for _, d := range dfids {
		item, err := e.itemSt.Get(ctx, d)
		if err != nil {
			return traceerr.Storage(err, "loading conflict candidate %s", d)
		}
		candidates = append(candidates, item)
	}

	conflict := &types.ConflictResolution{
		EntryID:              entry.EntryID,
		CandidateDFIDs:       dfids,
		RequiresManualReview: true,
		DetectedAt:           e.nowFunc().UTC(),
	}

	winner, ok := AutoResolveConflict(candidates)
	if ok {
		conflict.ResolvedDFID = winner.DFID
		conflict.RequiresManualReview = false
	}
	if err := e.entries.PutConflict(ctx, conflict); err != nil {
		return traceerr.Storage(err, "persisting conflict for entry %s", entry.EntryID)
	}

	if !ok {
		entry.Status = types.EntryConflicted
		return nil
	}
	return e.completeExistingSingle(ctx, entry, winner.DFID)
}
