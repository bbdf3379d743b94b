package types

import (
	"time"

	"github.com/defarm/tracectl/pkg/identifier"
)

// CircuitStatus is the lifecycle state of a circuit.
type CircuitStatus string

const (
	CircuitActive   CircuitStatus = "active"
	CircuitInactive CircuitStatus = "inactive"
	CircuitArchived CircuitStatus = "archived"
)

// Member is a circuit membership record.
type Member struct {
	UserID               string        `json:"user_id"`
	Role                 MemberRole    `json:"role"`
	CustomRole           string        `json:"custom_role,omitempty"`
	ExplicitPermissions  PermissionSet `json:"explicit_permissions,omitempty"`
	JoinedAt             time.Time     `json:"joined_at"`
}

// CircuitPermissions are circuit-wide policy toggles, distinct from any
// individual member's permission set.
type CircuitPermissions struct {
	RequireApprovalForPush bool `json:"require_approval_for_push"`
	RequireApprovalForPull bool `json:"require_approval_for_pull"`
	AllowPublicVisibility  bool `json:"allow_public_visibility"`
}

// JoinRequestStatus is the lifecycle state of a pending membership request.
type JoinRequestStatus string

const (
	JoinRequestPending  JoinRequestStatus = "pending"
	JoinRequestApproved JoinRequestStatus = "approved"
	JoinRequestRejected JoinRequestStatus = "rejected"
)

// JoinRequest is a non-member's request to join a circuit.
type JoinRequest struct {
	RequestID   string            `json:"request_id"`
	UserID      string            `json:"user_id"`
	Message     string            `json:"message,omitempty"`
	Status      JoinRequestStatus `json:"status"`
	RequestedAt time.Time         `json:"requested_at"`
	DecidedAt   *time.Time        `json:"decided_at,omitempty"`
	DecidedBy   string            `json:"decided_by,omitempty"`
}

// PublicAccessMode controls how a circuit's published items are exposed
// to non-members.
type PublicAccessMode string

const (
	PublicAccessNone      PublicAccessMode = "none"
	PublicAccessPublic    PublicAccessMode = "public"
	PublicAccessProtected PublicAccessMode = "protected"
	PublicAccessScheduled PublicAccessMode = "scheduled"
)

// ExportPermissionLevel controls how much detail a public viewer may export.
type ExportPermissionLevel string

const (
	ExportNone    ExportPermissionLevel = "none"
	ExportSummary ExportPermissionLevel = "summary"
	ExportFull    ExportPermissionLevel = "full"
)

// PublicSettings configures a circuit's public/protected/scheduled
// visibility over its PublishedItems.
type PublicSettings struct {
	AccessMode      PublicAccessMode      `json:"access_mode"`
	PasswordHash    string                `json:"password_hash,omitempty"`
	ScheduledDate   *time.Time            `json:"scheduled_date,omitempty"`
	ExportLevel     ExportPermissionLevel `json:"export_level"`
	PublishedItems  []string              `json:"published_items"`
}

// Circuit is a membership-gated sharing scope.
//
// Invariant: exactly one member holds RoleOwner at all times, and the
// Owner's effective permission set is always AllPermissions.
type Circuit struct {
	CircuitID        string                           `json:"circuit_id"`
	Name             string                           `json:"name"`
	Description      string                           `json:"description,omitempty"`
	OwnerID          string                           `json:"owner_id"`
	DefaultNamespace string                           `json:"default_namespace"`
	AliasConfig      *identifier.CircuitAliasConfig    `json:"alias_config,omitempty"`
	Members          []Member                         `json:"members"`
	Permissions      CircuitPermissions                `json:"permissions"`
	Status           CircuitStatus                     `json:"status"`
	PendingRequests  []JoinRequest                      `json:"pending_requests,omitempty"`
	CustomRoles      map[string]CustomRole              `json:"custom_roles,omitempty"`
	PublicSettings   *PublicSettings                    `json:"public_settings,omitempty"`
	AdapterConfigID  string                             `json:"adapter_config_id,omitempty"`
	CreatedAt        time.Time                          `json:"created_at"`
}

// GetMember returns the membership record for userID, if any.
func (c *Circuit) GetMember(userID string) (*Member, bool) {
	for i := range c.Members {
		if c.Members[i].UserID == userID {
			return &c.Members[i], true
		}
	}
	return nil, false
}

// IsMember reports whether userID currently holds membership.
func (c *Circuit) IsMember(userID string) bool {
	_, ok := c.GetMember(userID)
	return ok
}

// EffectivePermissions resolves a member's permission set: a custom role
// assignment replaces the base role's default set entirely; explicit
// per-member overrides (if present) replace it again. The Owner always
// resolves to AllPermissions regardless of any other field.
func (c *Circuit) EffectivePermissions(userID string) PermissionSet {
	m, ok := c.GetMember(userID)
	if !ok {
		return NewPermissionSet()
	}
	if m.Role == RoleOwner {
		return NewPermissionSet(AllPermissions...)
	}
	if len(m.ExplicitPermissions) > 0 {
		return m.ExplicitPermissions
	}
	if m.CustomRole != "" {
		if cr, ok := c.CustomRoles[m.CustomRole]; ok {
			return cr.Permissions
		}
	}
	return DefaultPermissions(m.Role)
}

// HasPermission reports whether userID's effective permission set grants p.
func (c *Circuit) HasPermission(userID string, p Permission) bool {
	return c.EffectivePermissions(userID).Has(p)
}

// IsPubliclyAccessible reports whether the circuit currently exposes a
// public/protected/scheduled view, evaluated at time now.
func (c *Circuit) IsPubliclyAccessible(now time.Time) bool {
	if c.PublicSettings == nil {
		return false
	}
	switch c.PublicSettings.AccessMode {
	case PublicAccessPublic, PublicAccessProtected:
		return true
	case PublicAccessScheduled:
		return c.PublicSettings.ScheduledDate != nil && !now.Before(*c.PublicSettings.ScheduledDate)
	default:
		return false
	}
}

// MemberCountByRole tallies members per built-in role.
func (c *Circuit) MemberCountByRole() map[MemberRole]int {
	counts := make(map[MemberRole]int)
	for _, m := range c.Members {
		counts[m.Role]++
	}
	return counts
}
