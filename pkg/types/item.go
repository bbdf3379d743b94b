package types

import "time"

// ItemStatus is the lifecycle state of a resolved logical entity.
type ItemStatus string

const (
	ItemActive     ItemStatus = "active"
	ItemDeprecated ItemStatus = "deprecated"
	ItemMerged     ItemStatus = "merged"
	ItemSplit      ItemStatus = "split"
	// ItemMergedInto additionally carries the absorbing DFID in
	// Item.MergedIntoDFID; Status stays ItemMerged for that case and
	// MergedIntoDFID distinguishes "merged away" from "merge target".
)

// Item is the resolved logical entity identified by a DFID.
//
// Invariants: Identifiers never shrinks except via an explicit Split;
// LastModified >= CreatedAt; after a Merge the secondary's Status becomes
// ItemMerged and it stays readable (never deleted).
type Item struct {
	DFID             string                 `json:"dfid"`
	LocalID          string                 `json:"local_id,omitempty"`
	LegacyMode       bool                   `json:"legacy_mode"`
	Identifiers      []Identifier           `json:"identifiers"`
	Aliases          []ExternalAlias        `json:"aliases"`
	Fingerprint      string                 `json:"fingerprint,omitempty"`
	EnrichedData     map[string]interface{} `json:"enriched_data"`
	CreatedAt        time.Time              `json:"created_at"`
	LastModified     time.Time              `json:"last_modified"`
	SourceEntries    []string               `json:"source_entries"`
	Confidence       float64                `json:"confidence"`
	Status           ItemStatus             `json:"status"`
	MergedIntoDFID   string                 `json:"merged_into_dfid,omitempty"`
}

// HasIdentifier reports whether id is already present (by structural
// equality, not just UniqueKey) on the item.
func (it *Item) HasIdentifier(id Identifier) bool {
	for _, existing := range it.Identifiers {
		if existing.Equal(id) {
			return true
		}
	}
	return false
}

// HasUniqueKey reports whether any identifier on the item shares id's
// UniqueKey, regardless of kind/registry/scope differences.
func (it *Item) HasUniqueKey(key string) bool {
	for _, existing := range it.Identifiers {
		if existing.UniqueKey() == key {
			return true
		}
	}
	return false
}

// Clone returns a deep-enough copy for callers that mutate a fetched item
// before writing it back through a storage backend.
func (it *Item) Clone() *Item {
	cp := *it
	cp.Identifiers = append([]Identifier(nil), it.Identifiers...)
	cp.Aliases = append([]ExternalAlias(nil), it.Aliases...)
	cp.SourceEntries = append([]string(nil), it.SourceEntries...)
	cp.EnrichedData = make(map[string]interface{}, len(it.EnrichedData))
	for k, v := range it.EnrichedData {
		cp.EnrichedData[k] = v
	}
	return &cp
}
