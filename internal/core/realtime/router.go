package realtime

import (
	"log/slog"
	"sync"

	"github.com/fixhub/realtime-backend/internal/core/domain"
	apperrors "github.com/fixhub/realtime-backend/internal/core/errors"
)

// Router manages membership of connections in named multicast scopes and
// resolves a target selector to the live connection set for that scope at
// resolution time. Scopes are created lazily on first join and dropped when
// their membership reaches zero.
type Router struct {
	mu      sync.RWMutex
	members map[domain.Scope]map[string]struct{}
	byConn  map[string]map[domain.Scope]struct{}
	logger  *slog.Logger
}

// NewRouter creates an empty scope router.
func NewRouter(logger *slog.Logger) *Router {
	return &Router{
		members: make(map[domain.Scope]map[string]struct{}),
		byConn:  make(map[string]map[domain.Scope]struct{}),
		logger:  logger.With("component", "scope_router"),
	}
}

// Join adds a connection to a scope. Joining a scope the connection is
// already in is a no-op.
func (r *Router) Join(connID string, scope domain.Scope) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.join(connID, scope)
}

func (r *Router) join(connID string, scope domain.Scope) {
	if r.members[scope] == nil {
		r.members[scope] = make(map[string]struct{})
	}
	r.members[scope][connID] = struct{}{}

	if r.byConn[connID] == nil {
		r.byConn[connID] = make(map[domain.Scope]struct{})
	}
	r.byConn[connID][scope] = struct{}{}
}

// Leave removes a connection from a scope. Leaving a scope the connection is
// not in is a no-op.
func (r *Router) Leave(connID string, scope domain.Scope) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leave(connID, scope)
}

func (r *Router) leave(connID string, scope domain.Scope) {
	if set, ok := r.members[scope]; ok {
		delete(set, connID)
		if len(set) == 0 {
			delete(r.members, scope)
		}
	}
	if scopes, ok := r.byConn[connID]; ok {
		delete(scopes, scope)
		if len(scopes) == 0 {
			delete(r.byConn, connID)
		}
	}
}

// OnAuthenticate joins the connection to its role-scope, principal-scope and
// tenant-scope (if the principal has a tenant). Running it twice with the
// same principal yields the same membership set; a re-authentication with a
// different principal drops the previous automatic scopes first. Explicit
// topic subscriptions survive re-authentication.
func (r *Router) OnAuthenticate(connID string, p domain.Principal) {
	want := map[domain.Scope]struct{}{
		domain.RoleScope(p.Role):    {},
		domain.PrincipalScope(p.ID): {},
	}
	if p.TenantID != "" {
		want[domain.TenantScope(p.TenantID)] = struct{}{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for scope := range r.byConn[connID] {
		if scope.Kind == domain.ScopeKindTopic {
			continue
		}
		if _, keep := want[scope]; !keep {
			r.leave(connID, scope)
		}
	}
	for scope := range want {
		r.join(connID, scope)
	}

	r.logger.Debug("connection joined identity scopes",
		"conn_id", connID,
		"principal_id", p.ID,
		"role", p.Role,
	)
}

// Subscribe joins the connection to a topic scope after checking that the
// role is allowed to follow it. Unauthorized attempts create no membership.
func (r *Router) Subscribe(connID string, topic string, role domain.Role) error {
	if topic == "" {
		return apperrors.ErrInvalidTopic
	}
	if !topicAllowed(topic, role) {
		return apperrors.ErrPermissionDenied
	}

	r.Join(connID, domain.TopicScope(topic))
	r.logger.Debug("connection subscribed to topic", "conn_id", connID, "topic", topic)
	return nil
}

// topicAllowed is the per-topic authorization table. Topics without an entry
// are open to any authenticated role.
func topicAllowed(topic string, role domain.Role) bool {
	switch topic {
	case "inventory_alerts":
		switch role {
		case domain.RoleAdmin, domain.RoleOwner, domain.RoleWorker:
			return true
		case domain.RoleDemo, domain.RoleGuest:
			return false
		default:
			return false
		}
	default:
		return role.IsValid()
	}
}

// Unsubscribe leaves a topic scope.
func (r *Router) Unsubscribe(connID string, topic string) {
	r.Leave(connID, domain.TopicScope(topic))
}

// Resolve returns the connection ids in the selector's scope at call time.
// Resolving an empty or unknown scope returns an empty set, not an error.
// The all-selector is resolved against the registry by the publisher, not
// here: the router only knows about explicit memberships.
func (r *Router) Resolve(sel domain.Selector) []string {
	scope, ok := sel.Scope()
	if !ok {
		return nil
	}
	return r.Members(scope)
}

// Members returns a copy of a scope's live membership.
func (r *Router) Members(scope domain.Scope) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set, ok := r.members[scope]
	if !ok {
		return nil
	}
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	return ids
}

// RolesWithMembers returns every role whose role-scope currently has at
// least one member. The scheduler uses this to project each snapshot once
// per populated role instead of once per connection.
func (r *Router) RolesWithMembers() []domain.Role {
	r.mu.RLock()
	defer r.mu.RUnlock()

	roles := make([]domain.Role, 0, len(domain.Roles))
	for _, role := range domain.Roles {
		if len(r.members[domain.RoleScope(role)]) > 0 {
			roles = append(roles, role)
		}
	}
	return roles
}

// ScopesOf returns a copy of every scope the connection belongs to.
func (r *Router) ScopesOf(connID string) []domain.Scope {
	r.mu.RLock()
	defer r.mu.RUnlock()

	scopes := make([]domain.Scope, 0, len(r.byConn[connID]))
	for scope := range r.byConn[connID] {
		scopes = append(scopes, scope)
	}
	return scopes
}

// RemoveConnection drops every membership the connection holds and
// garbage-collects any scope left empty. It is called before the registry
// entry is removed so a publish resolving mid-disconnect can no longer see
// the departing connection.
func (r *Router) RemoveConnection(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for scope := range r.byConn[connID] {
		if set, ok := r.members[scope]; ok {
			delete(set, connID)
			if len(set) == 0 {
				delete(r.members, scope)
			}
		}
	}
	delete(r.byConn, connID)
}
