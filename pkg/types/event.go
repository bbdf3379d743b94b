package types

import "time"

// EventType names the kind of state transition an Event records.
type EventType string

const (
	EventCreated           EventType = "created"
	EventEnriched          EventType = "enriched"
	EventMerged            EventType = "merged"
	EventSplit             EventType = "split"
	EventPushedToCircuit   EventType = "pushed_to_circuit"
	EventPulledFromCircuit EventType = "pulled_from_circuit"
	EventUpdated           EventType = "updated"
	EventStatusChanged     EventType = "status_changed"
)

// EventVisibility controls who may view an event at query time.
type EventVisibility string

const (
	VisibilityPublic      EventVisibility = "public"
	VisibilityPrivate     EventVisibility = "private"
	VisibilityCircuitOnly EventVisibility = "circuit_only"
	VisibilityDirect      EventVisibility = "direct"
)

// Event is an append-only state transition on an item. Events are never
// mutated except through Event Store's SetMetadata, which re-hashes
// ContentHash; EventID, not ContentHash, is the stable external identity.
type Event struct {
	EventID     string                 `json:"event_id"`
	DFID        string                 `json:"dfid"`
	Type        EventType              `json:"type"`
	Timestamp   time.Time              `json:"timestamp"`
	Source      string                 `json:"source"`
	Metadata    map[string]interface{} `json:"metadata"`
	Visibility  EventVisibility        `json:"visibility"`
	IsEncrypted bool                   `json:"is_encrypted"`
	ContentHash string                 `json:"content_hash"`
}

// ViewContext carries the information needed to evaluate an event's
// visibility for a specific requester.
type ViewContext struct {
	RequesterID      string
	CurrentCircuitID string
}

// CanView evaluates spec §4.9's visibility rules against ctx.
func (e *Event) CanView(ctx ViewContext) bool {
	switch e.Visibility {
	case VisibilityPublic:
		return true
	case VisibilityPrivate:
		return e.Source == ctx.RequesterID
	case VisibilityDirect:
		if e.Source == ctx.RequesterID {
			return true
		}
		recipient, _ := e.Metadata["recipient_id"].(string)
		return recipient != "" && recipient == ctx.RequesterID
	case VisibilityCircuitOnly:
		circuitID, _ := e.Metadata["circuit_id"].(string)
		return ctx.CurrentCircuitID != "" && circuitID == ctx.CurrentCircuitID
	default:
		return false
	}
}
