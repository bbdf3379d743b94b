package types

import "time"

// ItemShare is a direct, user-to-user grant of visibility into one item,
// independent of any circuit membership. Supplements the circuit push/pull
// path for one-off sharing.
type ItemShare struct {
	ShareID     string    `json:"share_id"`
	DFID        string    `json:"dfid"`
	SharedBy    string    `json:"shared_by"`
	RecipientID string    `json:"recipient_id"`
	SharedAt    time.Time `json:"shared_at"`
	Permissions []string  `json:"permissions,omitempty"`
	SourceEntry string    `json:"source_entry"`
}
