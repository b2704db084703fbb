package realtime

import (
	"log/slog"

	"github.com/fixhub/realtime-backend/internal/core/domain"
)

// privilegedRoles are the role-scopes that receive presence broadcasts.
var privilegedRoles = []domain.Role{domain.RoleAdmin, domain.RoleOwner}

// Presence announces connect, disconnect and status changes to the admin and
// owner role-scopes. "Online" for a principal means at least one connection
// holds that principal's id; a principal with two tabs goes offline only when
// the last one closes.
type Presence struct {
	registry  *Registry
	publisher *Publisher
	logger    *slog.Logger
}

// NewPresence creates a presence broadcaster.
func NewPresence(registry *Registry, publisher *Publisher, logger *slog.Logger) *Presence {
	return &Presence{
		registry:  registry,
		publisher: publisher,
		logger:    logger.With("component", "presence"),
	}
}

// OnJoin is called after a connection authenticates and its scope membership
// is in place.
func (p *Presence) OnJoin(principal domain.Principal) {
	p.logger.Info("principal joined",
		"principal_id", principal.ID,
		"role", principal.Role,
	)
	p.broadcastActiveUsers()
	p.broadcastStatus(principal.ID, domain.StatusOnline)
}

// OnLeave is called after a connection's registry entry and memberships are
// gone. The offline status is only announced once the principal's last
// connection has closed.
func (p *Presence) OnLeave(principal domain.Principal) {
	p.logger.Info("principal connection left",
		"principal_id", principal.ID,
		"role", principal.Role,
	)
	p.broadcastActiveUsers()
	if !p.registry.IsPrincipalConnected(principal.ID) {
		p.broadcastStatus(principal.ID, domain.StatusOffline)
	}
}

// OnStatusChange relays a self-reported status to the privileged scopes.
func (p *Presence) OnStatusChange(principal domain.Principal, status domain.PresenceStatus) {
	p.broadcastStatus(principal.ID, status)
}

func (p *Presence) broadcastActiveUsers() {
	principals := p.registry.ConnectedPrincipals()
	roster := make([]domain.RosterEntry, 0, len(principals))
	for _, pr := range principals {
		roster = append(roster, domain.RosterEntry{
			PrincipalID: pr.ID,
			DisplayName: pr.DisplayName,
			Role:        pr.Role,
		})
	}

	payload := domain.ActiveUsersPayload{Count: len(principals), Roster: roster}
	for _, role := range privilegedRoles {
		p.publisher.PublishToRole(role, domain.EventActiveUsers, payload)
	}
}

func (p *Presence) broadcastStatus(principalID string, status domain.PresenceStatus) {
	payload := domain.UserStatusPayload{PrincipalID: principalID, Status: status}
	for _, role := range privilegedRoles {
		p.publisher.PublishToRole(role, domain.EventUserStatusUpdate, payload)
	}
}
