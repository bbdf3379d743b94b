// Package circuits implements the Circuits Engine (C8): membership,
// roles and permissions, the push/pull tokenization protocol, the
// approval FSM, and public/protected/scheduled visibility over a
// circuit's published items.
package circuits

import (
	"context"
	"log/slog"
	"time"

	"github.com/defarm/tracectl/pkg/dfid"
	"github.com/defarm/tracectl/pkg/graph"
	"github.com/defarm/tracectl/pkg/identifier"
	"github.com/defarm/tracectl/pkg/items"
	"github.com/defarm/tracectl/pkg/traceerr"
	"github.com/defarm/tracectl/pkg/types"
)

// Engine implements spec §4.8's circuit operations.
type Engine struct {
	circuits     CircuitStore
	circuitItems CircuitItemStore
	localIDs     LocalIDStore
	operations   OperationStore
	activities   ActivityStore
	shares       ShareStore

	items      *items.Engine
	itemReader ItemReader
	graph      *graph.Graph
	events     items.EventEmitter

	dfids      *dfid.Generator
	predicates *identifier.PredicateEvaluator
	log        *slog.Logger
	nowFunc    func() time.Time
}

// New returns an Engine. itemsEngine performs the actual item
// creation/enrichment once a push or pull resolves a DFID; itemReader reads
// items directly for read-only aggregates such as Stats.
func New(
	circuitStore CircuitStore,
	circuitItemStore CircuitItemStore,
	localIDStore LocalIDStore,
	operationStore OperationStore,
	activityStore ActivityStore,
	shareStore ShareStore,
	itemsEngine *items.Engine,
	itemReader ItemReader,
	g *graph.Graph,
	events items.EventEmitter,
	log *slog.Logger,
) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		circuits:     circuitStore,
		circuitItems: circuitItemStore,
		localIDs:     localIDStore,
		operations:   operationStore,
		activities:   activityStore,
		shares:       shareStore,
		items:        itemsEngine,
		itemReader:   itemReader,
		graph:        g,
		events:       events,
		dfids:        dfid.NewGenerator(),
		log:          log,
		nowFunc:      time.Now,
	}
}

// WithPredicateEvaluator attaches a CEL predicate evaluator for
// CircuitAliasConfig.Predicate expressions. An Engine with none skips
// predicate evaluation, correct for a deployment that never sets Predicate
// on any circuit's alias config.
func (e *Engine) WithPredicateEvaluator(pe *identifier.PredicateEvaluator) *Engine {
	e.predicates = pe
	return e
}

func (e *Engine) now() time.Time { return e.nowFunc().UTC() }

func (e *Engine) loadCircuit(ctx context.Context, circuitID string) (*types.Circuit, error) {
	circuit, err := e.circuits.Get(ctx, circuitID)
	if err != nil {
		return nil, err
	}
	if circuit == nil {
		return nil, traceerr.NotFound("circuit %s not found", circuitID)
	}
	return circuit, nil
}

func (e *Engine) requirePermission(circuit *types.Circuit, userID string, p types.Permission) error {
	if !circuit.IsMember(userID) {
		return traceerr.PermissionDenied("user %s is not a member of circuit %s", userID, circuit.CircuitID)
	}
	if !circuit.HasPermission(userID, p) {
		return traceerr.PermissionDenied("user %s lacks %s in circuit %s", userID, p, circuit.CircuitID)
	}
	return nil
}

func (e *Engine) recordActivity(ctx context.Context, circuitID string, kind types.ActivityKind, actorID string, detail map[string]interface{}) {
	if e.activities == nil {
		return
	}
	activity := &types.Activity{
		CircuitID: circuitID,
		Kind:      kind,
		ActorID:   actorID,
		Timestamp: e.now(),
		Detail:    detail,
	}
	if err := e.activities.Put(ctx, activity); err != nil {
		e.log.Error("failed to record circuit activity", "circuit_id", circuitID, "kind", kind, "error", err)
	}
}

func (e *Engine) emitCircuitEvent(ctx context.Context, dfidStr string, evtType types.EventType, actorID string, circuitID string, visibility types.EventVisibility, metadata map[string]interface{}) {
	if e.events == nil {
		return
	}
	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	metadata["circuit_id"] = circuitID
	evt := &types.Event{
		DFID:       dfidStr,
		Type:       evtType,
		Timestamp:  e.now(),
		Source:     actorID,
		Metadata:   metadata,
		Visibility: visibility,
	}
	if err := e.events.Emit(ctx, evt); err != nil {
		e.log.Error("failed to emit circuit event", "dfid", dfidStr, "type", evtType, "circuit_id", circuitID, "error", err)
	}
}

// eventVisibilityFor maps a circuit's AllowPublicVisibility toggle to the
// visibility stamped on push/pull events.
func eventVisibilityFor(circuit *types.Circuit) types.EventVisibility {
	if circuit.Permissions.AllowPublicVisibility {
		return types.VisibilityPublic
	}
	return types.VisibilityCircuitOnly
}
