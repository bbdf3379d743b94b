// Package capability implements the Capability Gate (C11): it turns an
// inbound JWT or API key into a RequestContext{actor_id,
// role_or_permissions, rate_budget} that every mutating core operation
// checks before any state mutation. Token verification primitives, secret
// hashing, and rate-limit accounting live here; the core only consumes
// the resulting context, per spec.md §4.10.
package capability

import (
	"time"

	"github.com/defarm/tracectl/pkg/identity"
)

// RequestContext is what the core checks permissions against. It never
// carries raw credentials past construction.
type RequestContext struct {
	ActorID     string
	ActorType   identity.PrincipalType
	Permissions []string
	RateBudget  *RateBudget
}

// Has reports whether permission was granted to this request's actor.
func (rc *RequestContext) Has(permission string) bool {
	for _, p := range rc.Permissions {
		if p == permission {
			return true
		}
	}
	return false
}

// RateBudget is the caller's remaining allowance on this request, bound
// to ActorID rather than IP so an API key and a browser session for the
// same actor share one budget.
type RateBudget struct {
	ActorID    string
	Remaining  int
	Limit      int
	ResetAfter time.Duration
}

// APIKey is an issued, hashed credential. SecretHash never leaves this
// package; only the caller who generated the key ever sees the plaintext.
type APIKey struct {
	KeyID       string
	Tag         string // the ASCII prefix before "_", used for O(1) lookup
	SecretHash  string // bcrypt hash of the 32-char alphanumeric secret
	ActorID     string
	Permissions []string
	IPAllowlist []string // CIDRs or bare IPs; empty means unrestricted
	CreatedAt   time.Time
	Revoked     bool
}
