// Package graph maintains the canonical, fingerprint, and identifier
// indices that resolve incoming identifiers to existing items.
package graph

import (
	"errors"
	"sync"

	"github.com/defarm/tracectl/pkg/types"
)

// ErrDuplicateCanonical is returned by AddCanonical when the (namespace,
// registry, value) key is already bound to a different DFID.
var ErrDuplicateCanonical = errors.New("graph: canonical identifier already bound to a different dfid")

// MappingStatus is the lifecycle state of an IdentifierMapping.
type MappingStatus string

const (
	MappingActive     MappingStatus = "active"
	MappingDeprecated MappingStatus = "deprecated"
	MappingConflicted MappingStatus = "conflicted"
)

// IdentifierMapping is one (identifier -> dfid) edge in the identifier index.
type IdentifierMapping struct {
	DFID       string
	Status     MappingStatus
	Confidence float64
}

// ResolutionKind distinguishes the three possible outcomes of Resolve.
type ResolutionKind string

const (
	ResolutionAllNew         ResolutionKind = "all_new"
	ResolutionExistingSingle ResolutionKind = "existing_single"
	ResolutionConflict       ResolutionKind = "conflict"
)

// Resolution is the result of resolving a set of identifiers against the
// graph's indices.
type Resolution struct {
	Kind        ResolutionKind
	DFID        string   // set when Kind == ResolutionExistingSingle
	DFIDs       []string // set when Kind == ResolutionConflict
	Identifiers []types.Identifier
}

func canonicalKey(ns, registry, value string) string {
	return ns + "\x00" + registry + "\x00" + value
}

func fingerprintKey(fp, circuitID string) string {
	return fp + "\x00" + circuitID
}

// Graph indexes canonical identifiers, circuit-scoped fingerprints, and raw
// (key, value) identifier pairs, all guarded by a single RWMutex. A single
// process-local mutex is sufficient here: the graph is an in-memory index
// rebuilt from the storage backend's identifier records at startup, not the
// system of record itself.
type Graph struct {
	mu sync.RWMutex

	canonical   map[string]string                 // canonicalKey -> dfid
	fingerprint map[string]string                 // fingerprintKey -> dfid
	identifiers map[string][]IdentifierMapping     // "key\x00value" -> mappings
}

// New returns an empty Graph.
func New() *Graph {
	return &Graph{
		canonical:   make(map[string]string),
		fingerprint: make(map[string]string),
		identifiers: make(map[string][]IdentifierMapping),
	}
}

func identifierIndexKey(id types.Identifier) string {
	return id.Key + "\x00" + id.Value
}

// Resolve classifies a set of identifiers against the current indices.
// circuitID scopes fingerprint lookups; pass "" outside a circuit context.
func (g *Graph) Resolve(identifiers []types.Identifier, circuitID string) Resolution {
	g.mu.RLock()
	defer g.mu.RUnlock()

	found := make(map[string]struct{})
	for _, id := range identifiers {
		if id.IsCanonical() {
			if dfid, ok := g.canonical[canonicalKey(id.Namespace, id.Registry, id.Value)]; ok {
				found[dfid] = struct{}{}
				continue
			}
		}
		for _, m := range g.identifiers[identifierIndexKey(id)] {
			if m.Status == MappingActive {
				found[m.DFID] = struct{}{}
			}
		}
	}

	switch len(found) {
	case 0:
		return Resolution{Kind: ResolutionAllNew, Identifiers: identifiers}
	case 1:
		var dfid string
		for d := range found {
			dfid = d
		}
		return Resolution{Kind: ResolutionExistingSingle, DFID: dfid, Identifiers: identifiers}
	default:
		dfids := make([]string, 0, len(found))
		for d := range found {
			dfids = append(dfids, d)
		}
		return Resolution{Kind: ResolutionConflict, DFIDs: dfids, Identifiers: identifiers}
	}
}

// Lookup returns the dfid a single identifier currently resolves to, if
// any, checking the canonical index first and then the active identifier
// mappings. Used by callers that resolve identifiers one at a time in a
// caller-given order (Items Engine's CreateItemWithGeneratedDFID), as
// opposed to Resolve's all-at-once AllNew/ExistingSingle/Conflict
// classification used by the Circuits Engine's push path.
func (g *Graph) Lookup(id types.Identifier) (string, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if id.IsCanonical() {
		if dfid, ok := g.canonical[canonicalKey(id.Namespace, id.Registry, id.Value)]; ok {
			return dfid, true
		}
	}
	for _, m := range g.identifiers[identifierIndexKey(id)] {
		if m.Status == MappingActive {
			return m.DFID, true
		}
	}
	return "", false
}

// ResolveFingerprint looks up a fingerprint within circuitID's scope.
func (g *Graph) ResolveFingerprint(fp, circuitID string) (string, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	dfid, ok := g.fingerprint[fingerprintKey(fp, circuitID)]
	return dfid, ok
}

// AddCanonical binds a canonical identifier to dfid. Returns
// ErrDuplicateCanonical if the key is already bound to a different dfid;
// binding the same (key, dfid) pair again is a no-op success.
func (g *Graph) AddCanonical(dfid string, id types.Identifier) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	key := canonicalKey(id.Namespace, id.Registry, id.Value)
	if existing, ok := g.canonical[key]; ok && existing != dfid {
		return ErrDuplicateCanonical
	}
	g.canonical[key] = dfid
	g.addIdentifierMappingLocked(dfid, id, 1.0)
	return nil
}

// AddFingerprint binds fingerprint fp within circuitID to dfid. Idempotent:
// rebinding the same (fp, circuit) pair to the same dfid succeeds silently;
// rebinding to a different dfid overwrites, since fingerprints are a
// best-effort contextual dedup aid, not an immutable identity claim.
func (g *Graph) AddFingerprint(dfid, fp, circuitID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.fingerprint[fingerprintKey(fp, circuitID)] = dfid
}

// AddIdentifier records a non-canonical identifier mapping for dfid.
func (g *Graph) AddIdentifier(dfid string, id types.Identifier, confidence float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.addIdentifierMappingLocked(dfid, id, confidence)
}

func (g *Graph) addIdentifierMappingLocked(dfid string, id types.Identifier, confidence float64) {
	key := identifierIndexKey(id)
	mappings := g.identifiers[key]
	for i, m := range mappings {
		if m.DFID == dfid {
			mappings[i].Status = MappingActive
			mappings[i].Confidence = confidence
			return
		}
	}
	g.identifiers[key] = append(mappings, IdentifierMapping{
		DFID:       dfid,
		Status:     MappingActive,
		Confidence: confidence,
	})
}

// DeprecateMapping marks every mapping for (key, value, dfid) as deprecated,
// used when an identifier moves to another item via Split or Merge.
func (g *Graph) DeprecateMapping(dfid string, id types.Identifier) {
	g.mu.Lock()
	defer g.mu.Unlock()
	key := identifierIndexKey(id)
	for i, m := range g.identifiers[key] {
		if m.DFID == dfid {
			g.identifiers[key][i].Status = MappingDeprecated
		}
	}
}

// MarkConflicted flags every mapping for (key, value) across all dfids as
// conflicted, used when the Verification Engine fails to auto-resolve.
func (g *Graph) MarkConflicted(id types.Identifier) {
	g.mu.Lock()
	defer g.mu.Unlock()
	key := identifierIndexKey(id)
	for i := range g.identifiers[key] {
		g.identifiers[key][i].Status = MappingConflicted
	}
}

// Mappings returns a copy of the current mappings for (key, value).
func (g *Graph) Mappings(key, value string) []IdentifierMapping {
	g.mu.RLock()
	defer g.mu.RUnlock()
	src := g.identifiers[key+"\x00"+value]
	out := make([]IdentifierMapping, len(src))
	copy(out, src)
	return out
}
