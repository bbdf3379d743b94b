package circuits

import (
	"context"
	"fmt"

	"github.com/defarm/tracectl/pkg/identifier"
	"github.com/defarm/tracectl/pkg/items"
	"github.com/defarm/tracectl/pkg/traceerr"
	"github.com/defarm/tracectl/pkg/types"
)

// ConflictError is returned by PushLocalItem when two canonical identifiers
// on the same push resolve to different DFIDs. The caller must resolve the
// conflict out-of-band via Merge or Split; push never partially creates.
type ConflictError struct {
	DFIDs []string
}

func (c *ConflictError) Error() string {
	return fmt.Sprintf("push resolves to conflicting dfids: %v", c.DFIDs)
}

// PushResult is the outcome of PushLocalItem.
type PushResult struct {
	DFID      string
	Outcome   items.ItemCreationOutcome
	Operation *types.CircuitOperation
}

// PushLocalItem implements spec §4.8's push_local_item_to_circuit:
// tokenization (LID→DFID promotion on first push), idempotent re-push
// enrichment, and approval gating.
func (e *Engine) PushLocalItem(ctx context.Context, localID string, identifiers []types.Identifier, enriched map[string]interface{}, circuitID, requesterID string) (*PushResult, error) {
	circuit, err := e.loadCircuit(ctx, circuitID)
	if err != nil {
		return nil, err
	}
	if err := e.requirePermission(circuit, requesterID, types.PermissionPush); err != nil {
		return nil, err
	}

	cfg := effectiveAliasConfig(circuit)
	identifiers = applyAutoNamespace(identifiers, circuit, cfg)
	if err := e.validatePush(identifiers, cfg); err != nil {
		return nil, err
	}

	sourceEntry := fmt.Sprintf("circuit_push:%s:%s", circuitID, localID)

	// Idempotence: the same (requester, LID) always resolves to the DFID
	// established on its first push, regardless of what the resolution
	// algorithm below would otherwise compute for the given identifiers.
	if existingDFID, ok, err := e.localIDs.Resolve(ctx, circuitID, requesterID, localID); err != nil {
		return nil, traceerr.Storage(err, "resolving local id %s", localID)
	} else if ok {
		if err := e.enrichExisting(ctx, existingDFID, identifiers, enriched, sourceEntry); err != nil {
			return nil, err
		}
		return e.finishPush(ctx, circuit, requesterID, existingDFID, items.OutcomeExistingItemEnriched)
	}

	dfidStr, outcome, err := e.resolvePush(ctx, circuit, identifiers, enriched, sourceEntry, requesterID, localID)
	if err != nil {
		var conflict *ConflictError
		if asConflictError(err, &conflict) {
			// A conflicting resolution is a no-op: neither the circuit nor
			// its events are mutated, and no CircuitOperation is persisted
			// for the attempt. The caller resolves out-of-band via Merge or
			// Split and retries.
			return nil, traceerr.Conflict("push resolves to conflicting dfids %v: resolve via split or merge", conflict.DFIDs)
		}
		return nil, err
	}

	if err := e.localIDs.Record(ctx, circuitID, requesterID, localID, dfidStr); err != nil {
		return nil, traceerr.Storage(err, "recording local id %s", localID)
	}

	return e.finishPush(ctx, circuit, requesterID, dfidStr, outcome)
}

func asConflictError(err error, target **ConflictError) bool {
	c, ok := err.(*ConflictError)
	if ok {
		*target = c
	}
	return ok
}

// resolvePush implements spec §4.8 step 4's canonical → fingerprint (if
// configured) → create-new resolution order. This is distinct from both
// graph.Resolve (the Verification Engine's all-at-once classifier) and
// graph.Lookup (the Items Engine's caller-order single-identifier walk).
func (e *Engine) resolvePush(ctx context.Context, circuit *types.Circuit, ids []types.Identifier, enriched map[string]interface{}, sourceEntry, requesterID, localID string) (string, items.ItemCreationOutcome, error) {
	cfg := effectiveAliasConfig(circuit)

	var matched []string
	seen := map[string]struct{}{}
	for _, id := range ids {
		if !id.IsCanonical() {
			continue
		}
		if dfidStr, ok := e.graph.Lookup(id); ok {
			if _, dup := seen[dfidStr]; !dup {
				seen[dfidStr] = struct{}{}
				matched = append(matched, dfidStr)
			}
		}
	}
	if len(matched) > 1 {
		return "", "", &ConflictError{DFIDs: matched}
	}
	if len(matched) == 1 {
		dfidStr := matched[0]
		if err := e.enrichExisting(ctx, dfidStr, ids, enriched, sourceEntry); err != nil {
			return "", "", err
		}
		return dfidStr, items.OutcomeExistingItemEnriched, nil
	}

	if cfg.UseFingerprint {
		fp, err := identifier.Fingerprint(ids, requesterID, localID)
		if err != nil {
			return "", "", traceerr.Storage(err, "computing push fingerprint")
		}
		if dfidStr, ok := e.graph.ResolveFingerprint(fp, circuit.CircuitID); ok {
			if err := e.enrichExisting(ctx, dfidStr, ids, enriched, sourceEntry); err != nil {
				return "", "", err
			}
			return dfidStr, items.OutcomeExistingItemEnriched, nil
		}
		item, err := e.createPushed(ctx, ids, enriched, sourceEntry)
		if err != nil {
			return "", "", err
		}
		e.graph.AddFingerprint(item.DFID, fp, circuit.CircuitID)
		return item.DFID, items.OutcomeNewItemCreated, nil
	}

	item, err := e.createPushed(ctx, ids, enriched, sourceEntry)
	if err != nil {
		return "", "", err
	}
	return item.DFID, items.OutcomeNewItemCreated, nil
}

func (e *Engine) createPushed(ctx context.Context, ids []types.Identifier, enriched map[string]interface{}, sourceEntry string) (*types.Item, error) {
	newDFID := e.dfids.Generate()
	item, err := e.items.CreateItem(ctx, newDFID, ids, sourceEntry)
	if err != nil {
		return nil, err
	}
	if len(enriched) > 0 {
		item, err = e.items.Enrich(ctx, item.DFID, enriched, sourceEntry)
		if err != nil {
			return nil, err
		}
	}
	return item, nil
}

func (e *Engine) enrichExisting(ctx context.Context, dfidStr string, ids []types.Identifier, enriched map[string]interface{}, sourceEntry string) error {
	if len(ids) > 0 {
		if _, err := e.items.AddIdentifiers(ctx, dfidStr, ids); err != nil {
			return err
		}
	}
	if len(enriched) > 0 {
		if _, err := e.items.Enrich(ctx, dfidStr, enriched, sourceEntry); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) finishPush(ctx context.Context, circuit *types.Circuit, requesterID, dfidStr string, outcome items.ItemCreationOutcome) (*PushResult, error) {
	if err := e.upsertCircuitItem(ctx, circuit.CircuitID, dfidStr, requesterID); err != nil {
		return nil, err
	}

	op := &types.CircuitOperation{
		OperationID: e.dfids.Generate(),
		CircuitID:   circuit.CircuitID,
		Type:        types.OperationPush,
		ActorID:     requesterID,
		DFID:        dfidStr,
		CreatedAt:   e.now(),
	}
	if circuit.Permissions.RequireApprovalForPush {
		op.Status = types.OperationPending
	} else {
		now := e.now()
		op.Status = types.OperationCompleted
		op.DecidedAt = &now
		op.DecidedBy = requesterID
		e.emitCircuitEvent(ctx, dfidStr, types.EventPushedToCircuit, requesterID, circuit.CircuitID, eventVisibilityFor(circuit), map[string]interface{}{"outcome": string(outcome)})
	}
	if err := e.operations.Put(ctx, op); err != nil {
		return nil, traceerr.Storage(err, "persisting push operation for circuit %s", circuit.CircuitID)
	}

	e.recordActivity(ctx, circuit.CircuitID, types.ActivityItemPushed, requesterID, map[string]interface{}{"dfid": dfidStr, "outcome": string(outcome)})
	return &PushResult{DFID: dfidStr, Outcome: outcome, Operation: op}, nil
}

func (e *Engine) upsertCircuitItem(ctx context.Context, circuitID, dfidStr, pushedBy string) error {
	_, exists, err := e.circuitItems.Get(ctx, circuitID, dfidStr)
	if err != nil {
		return traceerr.Storage(err, "checking circuit item %s/%s", circuitID, dfidStr)
	}
	if exists {
		return nil
	}
	ci := &types.CircuitItem{
		CircuitID: circuitID,
		DFID:      dfidStr,
		PushedBy:  pushedBy,
		PushedAt:  e.now(),
	}
	if err := e.circuitItems.Put(ctx, ci); err != nil {
		return traceerr.Storage(err, "persisting circuit item %s/%s", circuitID, dfidStr)
	}
	return nil
}
