package domain

import (
	"fmt"
)

// Role is the closed set of roles a principal can hold. Every projection and
// authorization site switches exhaustively over this enum; adding a role is a
// compile-visible change to all of them.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleOwner  Role = "owner"
	RoleWorker Role = "worker"
	RoleDemo   Role = "demo"
	RoleGuest  Role = "guest"
)

// Roles lists every defined role, in privilege order.
var Roles = []Role{RoleAdmin, RoleOwner, RoleWorker, RoleDemo, RoleGuest}

// ParseRole converts a string into a Role, rejecting anything outside the enum.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleAdmin, RoleOwner, RoleWorker, RoleDemo, RoleGuest:
		return Role(s), nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// IsValid reports whether the role is one of the defined enum values.
func (r Role) IsValid() bool {
	_, err := ParseRole(string(r))
	return err == nil
}

// Principal is an authenticated actor. It is attached to a connection only
// after successful authentication and is immutable once attached, except by a
// fresh successful re-authentication which replaces it wholesale.
type Principal struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Role        Role   `json:"role"`
	// TenantID partitions data and broadcasts per shop. Empty means the
	// principal is not bound to a tenant.
	TenantID string `json:"tenantId,omitempty"`
}

// PresenceStatus is the status a principal can report for itself.
type PresenceStatus string

const (
	StatusOnline  PresenceStatus = "online"
	StatusAway    PresenceStatus = "away"
	StatusBusy    PresenceStatus = "busy"
	StatusOffline PresenceStatus = "offline"
)

// ParsePresenceStatus converts a string into a PresenceStatus.
func ParsePresenceStatus(s string) (PresenceStatus, error) {
	switch PresenceStatus(s) {
	case StatusOnline, StatusAway, StatusBusy, StatusOffline:
		return PresenceStatus(s), nil
	default:
		return "", fmt.Errorf("unknown presence status %q", s)
	}
}

// APICredential is a terminal API key stored in the data layer. The secret is
// kept only as a bcrypt hash; the principal it maps to is embedded so a key
// lookup fully authenticates a terminal.
type APICredential struct {
	KeyID      string
	SecretHash string
	Principal  Principal
	Revoked    bool
}
