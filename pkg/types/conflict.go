package types

import "time"

// ConflictResolution is the persisted record of a DataLakeEntry whose
// identifiers resolved to more than one item.
type ConflictResolution struct {
	EntryID             string    `json:"entry_id"`
	CandidateDFIDs      []string  `json:"candidate_dfids"`
	RequiresManualReview bool     `json:"requires_manual_review"`
	ResolvedDFID        string    `json:"resolved_dfid,omitempty"`
	DetectedAt          time.Time `json:"detected_at"`
}
