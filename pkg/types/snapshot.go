package types

import "time"

// StateSnapshot is a parent-hashed, content-addressed checkpoint of the
// entire item/event state at a point in time. Snapshots form a hash chain:
// ContentHash commits to (ParentHash, Sequence, the canonicalized payload),
// so verifying the chain from genesis detects any tampering or gap.
type StateSnapshot struct {
	SnapshotID  string `json:"snapshot_id"`
	EntityType  string `json:"entity_type"`
	EntityID    string `json:"entity_id"`
	Sequence    uint64 `json:"sequence"`
	ParentHash  string `json:"parent_hash,omitempty"`
	ContentHash string `json:"content_hash"`
	// State is the JCS-canonicalized serialization of the entity view this
	// snapshot checkpoints, retained so a later VerifyChain can recompute
	// ContentHash and detect tampering in storage.
	State          string    `json:"state"`
	Operation      string    `json:"operation"`
	UserID         string    `json:"user_id"`
	Message        string    `json:"message,omitempty"`
	IPFSCid        string    `json:"ipfs_cid,omitempty"`
	BlockchainTxID string    `json:"blockchain_tx_id,omitempty"`
	ItemCount      int       `json:"item_count"`
	EventCount     int       `json:"event_count"`
	CreatedAt      time.Time `json:"created_at"`
}

// IsGenesis reports whether this is the chain's first snapshot.
func (s *StateSnapshot) IsGenesis() bool {
	return s.Sequence == 1 && s.ParentHash == ""
}

// TimelineEntry is one chronological step in an item's provenance timeline,
// assembled from its creation, enrichment, merge/split, and storage events.
type TimelineEntry struct {
	DFID        string                 `json:"dfid"`
	Timestamp   time.Time              `json:"timestamp"`
	Kind        string                 `json:"kind"` // mirrors EventType plus "storage_write", "snapshot"
	Description string                 `json:"description,omitempty"`
	Detail      map[string]interface{} `json:"detail,omitempty"`
}
