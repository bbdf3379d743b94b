// Package snapshot implements the Snapshot Engine: parent-hashed,
// content-addressed checkpoints of item/circuit state, independent of the
// storage adapter path.
package snapshot

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/defarm/tracectl/pkg/canonicalize"
	"github.com/defarm/tracectl/pkg/storageadapter"
	"github.com/defarm/tracectl/pkg/traceerr"
	"github.com/defarm/tracectl/pkg/types"
)

// Config controls the Snapshot Engine's optional IPFS/blockchain anchoring.
// Both legs are best-effort: a failure on either is logged and the
// snapshot is still persisted locally with the corresponding reference
// left empty, per spec §4.7's recovery policy.
type Config struct {
	IPFSEnabled       bool
	IPFS              storageadapter.IPFSClient
	BlockchainEnabled bool
	Stellar           storageadapter.StellarClient

	// ArchiveEnabled additionally mirrors every snapshot's state payload
	// into Archive (a cold storage target such as S3), independent of the
	// IPFS/blockchain legs above. Best-effort: a failure is logged only.
	ArchiveEnabled bool
	Archive        storageadapter.ArchivalSink
}

// Engine implements spec §4.7's snapshot protocol.
type Engine struct {
	store   Store
	cfg     Config
	log     *slog.Logger
	nowFunc func() time.Time
}

// New returns an Engine backed by store.
func New(store Store, cfg Config, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{store: store, cfg: cfg, log: log, nowFunc: time.Now}
}

type snapshotComposite struct {
	EntityType string      `json:"entity_type"`
	EntityID   string      `json:"entity_id"`
	Sequence   uint64      `json:"sequence"`
	ParentHash string      `json:"parent_hash,omitempty"`
	State      interface{} `json:"state"`
}

// CreateSnapshot builds and persists the next snapshot for entityID. state
// is the caller-assembled entity view (an Item plus its events, or a
// Circuit) to checkpoint; itemCount/eventCount are recorded alongside for
// quick inspection without re-walking State. operation/userID/message
// record who triggered the checkpoint and why, per spec.md §3.
func (e *Engine) CreateSnapshot(ctx context.Context, entityType, entityID string, state interface{}, itemCount, eventCount int, operation, userID, message string) (*types.StateSnapshot, error) {
	parentHash, sequence, err := e.parentInfo(ctx, entityID)
	if err != nil {
		return nil, err
	}

	stateBytes, err := canonicalize.JCS(state)
	if err != nil {
		return nil, traceerr.Storage(err, "canonicalizing state for %s", entityID)
	}

	composite := snapshotComposite{
		EntityType: entityType,
		EntityID:   entityID,
		Sequence:   sequence,
		ParentHash: parentHash,
		State:      json.RawMessage(stateBytes),
	}
	contentHash, err := canonicalize.CanonicalContentHash(composite)
	if err != nil {
		return nil, traceerr.Storage(err, "hashing snapshot for %s", entityID)
	}

	snap := &types.StateSnapshot{
		SnapshotID:  contentHash,
		EntityType:  entityType,
		EntityID:    entityID,
		Sequence:    sequence,
		ParentHash:  parentHash,
		ContentHash: contentHash,
		State:       string(stateBytes),
		Operation:   operation,
		UserID:      userID,
		Message:     message,
		ItemCount:   itemCount,
		EventCount:  eventCount,
		CreatedAt:   e.nowFunc().UTC(),
	}

	snap.IPFSCid, snap.BlockchainTxID = e.anchorBestEffort(ctx, entityID, state)

	if err := e.store.Put(ctx, entityID, snap); err != nil {
		return nil, traceerr.Storage(err, "persisting snapshot for %s", entityID)
	}

	e.archiveBestEffort(ctx, entityID, contentHash, stateBytes)

	return snap, nil
}

// archiveBestEffort mirrors the snapshot's state payload into the
// configured cold storage sink, keyed by content hash. A failure here
// never affects the snapshot's durability: it is already persisted in
// Store by the time this runs.
func (e *Engine) archiveBestEffort(ctx context.Context, entityID, contentHash string, stateBytes []byte) {
	if !e.cfg.ArchiveEnabled || e.cfg.Archive == nil {
		return
	}
	if _, err := e.cfg.Archive.Archive(ctx, contentHash, stateBytes); err != nil {
		e.log.Warn("snapshot: cold storage archive failed", "entity_id", entityID, "error", err)
	}
}

func (e *Engine) parentInfo(ctx context.Context, entityID string) (parentHash string, sequence uint64, err error) {
	latest, ok, err := e.store.Latest(ctx, entityID)
	if err != nil {
		return "", 0, traceerr.Storage(err, "loading latest snapshot for %s", entityID)
	}
	if !ok {
		return "", 1, nil
	}
	return latest.ContentHash, latest.Sequence + 1, nil
}

// anchorBestEffort uploads the canonicalized state to IPFS and, if a CID
// was produced, anchors it on-chain. Both steps are optional and their
// failures are logged rather than returned: a snapshot is still useful as
// a local audit record even without external replication. The returned
// cid/txID are persisted onto the snapshot record when non-empty, per
// spec.md §3's ipfs_cid/blockchain_tx_id fields and the recovery policy
// that leaves them blank rather than aborting the checkpoint.
func (e *Engine) anchorBestEffort(ctx context.Context, entityID string, state interface{}) (cid, txID string) {
	if !e.cfg.IPFSEnabled || e.cfg.IPFS == nil {
		return "", ""
	}
	data, err := canonicalize.JCS(state)
	if err != nil {
		e.log.Warn("snapshot: failed to canonicalize state for ipfs upload", "entity_id", entityID, "error", err)
		return "", ""
	}
	cid, err = e.cfg.IPFS.Add(ctx, data)
	if err != nil {
		e.log.Warn("snapshot: ipfs upload failed", "entity_id", entityID, "error", err)
		return "", ""
	}

	if !e.cfg.BlockchainEnabled || e.cfg.Stellar == nil {
		return cid, ""
	}
	txID, err = e.cfg.Stellar.EmitEvent(ctx, entityID, cid)
	if err != nil {
		e.log.Warn("snapshot: blockchain anchoring failed", "entity_id", entityID, "cid", cid, "error", err)
		return cid, ""
	}
	return cid, txID
}

// VerifyResult reports the outcome of VerifyChain.
type VerifyResult struct {
	Verified       int
	BrokenLinks    int
	TamperedHashes int
}

// Chain returns every snapshot persisted for entityID in sequence order,
// for read-only inspection (spec.md §6's GET /snapshots/{entity_type}/{entity_id}).
func (e *Engine) Chain(ctx context.Context, entityID string) ([]*types.StateSnapshot, error) {
	snaps, err := e.store.All(ctx, entityID)
	if err != nil {
		return nil, traceerr.Storage(err, "loading snapshot chain for %s", entityID)
	}
	return snaps, nil
}

// VerifyChain checks parent linkage and sequence density across every
// snapshot for entityID, and recomputes each snapshot's content hash from
// its persisted State to detect tampering (spec.md §8 scenario 5): a
// snapshot whose stored State no longer hashes to its ContentHash counts
// against TamperedHashes rather than Verified, independent of whether its
// parent linkage still checks out.
func (e *Engine) VerifyChain(ctx context.Context, entityID string) (VerifyResult, error) {
	snaps, err := e.store.All(ctx, entityID)
	if err != nil {
		return VerifyResult{}, traceerr.Storage(err, "loading snapshot chain for %s", entityID)
	}

	var result VerifyResult
	var prevHash string
	var prevSeq uint64
	for i, snap := range snaps {
		linked := true
		if i == 0 {
			linked = snap.ParentHash == ""
		} else {
			linked = snap.ParentHash == prevHash && snap.Sequence == prevSeq+1
		}

		if e.tampered(entityID, snap) {
			result.TamperedHashes++
		} else if linked {
			result.Verified++
		} else {
			result.BrokenLinks++
		}

		prevHash = snap.ContentHash
		prevSeq = snap.Sequence
	}
	return result, nil
}

// tampered reports whether snap's persisted State no longer hashes to its
// recorded ContentHash. A snapshot with no persisted State (e.g. a
// hand-constructed test fixture) is assumed untampered since there is
// nothing to recompute against.
func (e *Engine) tampered(entityID string, snap *types.StateSnapshot) bool {
	if snap.State == "" {
		return false
	}
	var stateVal interface{}
	if err := json.Unmarshal([]byte(snap.State), &stateVal); err != nil {
		return true
	}
	composite := snapshotComposite{
		EntityType: snap.EntityType,
		EntityID:   entityID,
		Sequence:   snap.Sequence,
		ParentHash: snap.ParentHash,
		State:      stateVal,
	}
	recomputed, err := canonicalize.CanonicalContentHash(composite)
	if err != nil {
		return true
	}
	return recomputed != snap.ContentHash
}

// DiffChange is one field-level delta between two snapshot states.
type DiffChange struct {
	Path       string      `json:"path"`
	ChangeType ChangeType  `json:"change_type"`
	Old        interface{} `json:"old,omitempty"`
	New        interface{} `json:"new,omitempty"`
}

// ChangeType classifies a DiffChange.
type ChangeType string

const (
	ChangeAdded    ChangeType = "added"
	ChangeRemoved  ChangeType = "removed"
	ChangeModified ChangeType = "modified"
)
