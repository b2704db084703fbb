package realtime

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/fixhub/realtime-backend/internal/core/domain"
	apperrors "github.com/fixhub/realtime-backend/internal/core/errors"
)

// Sink is the delivery end of one live connection. Send must not block: a
// sink that cannot accept the event reports failure and the caller moves on.
type Sink interface {
	Send(event domain.Event) error
}

type connection struct {
	id        string
	sink      Sink
	createdAt time.Time
	principal *domain.Principal
}

// Registry owns the mapping from connection id to attached principal and is
// the lifecycle authority for connections. All operations are O(1) and
// serialized by a single coarse lock; messages from one connection arrive in
// order, so races only occur across connections.
type Registry struct {
	mu     sync.RWMutex
	conns  map[string]*connection
	logger *slog.Logger
}

// NewRegistry creates an empty registry. Registries are plain owned objects:
// construct one per service instance and inject it, never share a global.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		conns:  make(map[string]*connection),
		logger: logger.With("component", "registry"),
	}
}

// Register creates an unauthenticated entry for a new connection.
func (r *Registry) Register(connID string, sink Sink) {
	r.mu.Lock()
	r.conns[connID] = &connection{
		id:        connID,
		sink:      sink,
		createdAt: time.Now().UTC(),
	}
	total := len(r.conns)
	r.mu.Unlock()

	r.logger.Info("connection registered", "conn_id", connID, "total_connections", total)
}

// AttachPrincipal binds a principal to a connection. It is idempotent and
// overwrites any prior principal on that connection (re-authentication is an
// idempotent replace).
func (r *Registry) AttachPrincipal(connID string, p domain.Principal) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.conns[connID]
	if !ok {
		return apperrors.ErrUnknownConnection
	}
	conn.principal = &p
	return nil
}

// Remove deletes the entry and returns the previously attached principal, if
// any. Removing an unknown connection is a no-op.
func (r *Registry) Remove(connID string) (*domain.Principal, bool) {
	r.mu.Lock()
	conn, ok := r.conns[connID]
	if ok {
		delete(r.conns, connID)
	}
	total := len(r.conns)
	r.mu.Unlock()

	if !ok {
		return nil, false
	}
	r.logger.Info("connection removed", "conn_id", connID, "total_connections", total)
	return conn.principal, true
}

// Lookup returns the principal currently attached to the connection, or
// false when the connection is unknown or unauthenticated.
func (r *Registry) Lookup(connID string) (*domain.Principal, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.conns[connID]
	if !ok || conn.principal == nil {
		return nil, false
	}
	p := *conn.principal
	return &p, true
}

// SinkOf returns the delivery sink for a connection.
func (r *Registry) SinkOf(connID string) (Sink, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.conns[connID]
	if !ok {
		return nil, false
	}
	return conn.sink, true
}

// ConnectionIDs returns the ids of every live connection at call time.
func (r *Registry) ConnectionIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.conns))
	for id := range r.conns {
		ids = append(ids, id)
	}
	return ids
}

// ConnectionCount returns the number of live sockets. This is a transport
// figure for logs; anywhere "active users" is reported, use PrincipalCount.
func (r *Registry) ConnectionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// PrincipalCount returns the number of distinct principals with at least one
// live connection.
func (r *Registry) PrincipalCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, conn := range r.conns {
		if conn.principal != nil {
			seen[conn.principal.ID] = struct{}{}
		}
	}
	return len(seen)
}

// ConnectedPrincipals returns each distinct connected principal once,
// ordered by principal id for stable rosters.
func (r *Registry) ConnectedPrincipals() []domain.Principal {
	r.mu.RLock()
	seen := make(map[string]domain.Principal)
	for _, conn := range r.conns {
		if conn.principal != nil {
			seen[conn.principal.ID] = *conn.principal
		}
	}
	r.mu.RUnlock()

	out := make([]domain.Principal, 0, len(seen))
	for _, p := range seen {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// IsPrincipalConnected reports whether any live connection holds the given
// principal. A principal with two tabs stays connected until both close.
func (r *Registry) IsPrincipalConnected(principalID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, conn := range r.conns {
		if conn.principal != nil && conn.principal.ID == principalID {
			return true
		}
	}
	return false
}
