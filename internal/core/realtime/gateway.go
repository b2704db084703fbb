package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/fixhub/realtime-backend/internal/core/domain"
	apperrors "github.com/fixhub/realtime-backend/internal/core/errors"
	"github.com/fixhub/realtime-backend/internal/core/ports"
)

const (
	defaultAuthTimeout  = 5 * time.Second
	defaultFeedLimit    = 20
	maxFeedLimit        = 50
	defaultMessageRate  = 10 // messages per second per connection
	defaultMessageBurst = 20
)

// GatewayConfig tunes per-connection behavior.
type GatewayConfig struct {
	// AuthTimeout bounds each Authenticator.Verify call.
	AuthTimeout time.Duration
	// MessagesPerSecond and MessageBurst rate-limit inbound messages per
	// connection. Zero values fall back to defaults.
	MessagesPerSecond float64
	MessageBurst      int
}

// Gateway ties the realtime components together behind the inbound message
// protocol. Each connection's messages are handled on that connection's read
// goroutine, so per-connection ordering holds while unrelated connections
// proceed concurrently.
type Gateway struct {
	registry      *Registry
	router        *Router
	aggregator    *Aggregator
	publisher     *Publisher
	presence      *Presence
	authenticator ports.Authenticator
	stats         ports.StatsRepository
	cfg           GatewayConfig
	logger        *slog.Logger

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

var (
	_ ports.Publisher      = (*Gateway)(nil)
	_ ports.PresenceReader = (*Gateway)(nil)
)

// NewGateway wires the realtime core.
func NewGateway(
	registry *Registry,
	router *Router,
	aggregator *Aggregator,
	publisher *Publisher,
	presence *Presence,
	authenticator ports.Authenticator,
	stats ports.StatsRepository,
	cfg GatewayConfig,
	logger *slog.Logger,
) *Gateway {
	if cfg.AuthTimeout <= 0 {
		cfg.AuthTimeout = defaultAuthTimeout
	}
	if cfg.MessagesPerSecond <= 0 {
		cfg.MessagesPerSecond = defaultMessageRate
	}
	if cfg.MessageBurst <= 0 {
		cfg.MessageBurst = defaultMessageBurst
	}
	return &Gateway{
		registry:      registry,
		router:        router,
		aggregator:    aggregator,
		publisher:     publisher,
		presence:      presence,
		authenticator: authenticator,
		stats:         stats,
		cfg:           cfg,
		logger:        logger.With("component", "gateway"),
		limiters:      make(map[string]*rate.Limiter),
	}
}

// Connect registers a new, unauthenticated connection.
func (g *Gateway) Connect(connID string, sink Sink) {
	g.registry.Register(connID, sink)
}

// Disconnect purges all state for a connection: memberships first, then the
// registry entry, so no publish started afterwards can resolve the departed
// connection. Disconnect is the only cancellation signal a connection has.
func (g *Gateway) Disconnect(connID string) {
	g.router.RemoveConnection(connID)
	prev, ok := g.registry.Remove(connID)

	g.mu.Lock()
	delete(g.limiters, connID)
	g.mu.Unlock()

	if ok && prev != nil {
		g.presence.OnLeave(*prev)
	}
}

// ClientMessage is the envelope for messages sent by a client.
type ClientMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type authenticatePayload struct {
	Credential string `json:"credential"`
}

type activityFeedPayload struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

type subscribeTopicPayload struct {
	Name string `json:"name"`
}

type updateStatusPayload struct {
	Status string `json:"status"`
}

// HandleMessage processes one inbound message from a connection. Malformed
// messages are answered with an error event; the connection stays open.
func (g *Gateway) HandleMessage(ctx context.Context, connID string, raw []byte) {
	if !g.allow(connID) {
		g.publisher.SendTo(connID, domain.EventError, domain.ErrorPayload{
			Message: apperrors.ErrRateLimited.Error(),
		})
		return
	}

	var msg ClientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		g.logger.Warn("failed to unmarshal client message", "conn_id", connID, "error", err)
		g.publisher.SendTo(connID, domain.EventError, domain.ErrorPayload{Message: "malformed message"})
		return
	}

	switch msg.Type {
	case "authenticate":
		var p authenticatePayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			g.sendAuthError(connID, apperrors.ErrInvalidCredential)
			return
		}
		g.Authenticate(ctx, connID, p.Credential)

	case "request_metrics":
		g.RequestMetrics(ctx, connID)

	case "request_activity_feed":
		var p activityFeedPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			g.publisher.SendTo(connID, domain.EventError, domain.ErrorPayload{Message: "malformed payload"})
			return
		}
		g.RequestActivityFeed(ctx, connID, p.Limit, p.Offset)

	case "subscribe_topic":
		var p subscribeTopicPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			g.publisher.SendTo(connID, domain.EventError, domain.ErrorPayload{Message: "malformed payload"})
			return
		}
		g.SubscribeTopic(connID, p.Name)

	case "update_status":
		var p updateStatusPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			g.publisher.SendTo(connID, domain.EventError, domain.ErrorPayload{Message: "malformed payload"})
			return
		}
		g.UpdateStatus(connID, p.Status)

	case "ping":
		g.publisher.SendTo(connID, domain.EventPong, nil)

	default:
		g.logger.Debug("received unknown message type", "conn_id", connID, "type", msg.Type)
	}
}

// Authenticate verifies the credential and, on success, attaches the
// principal, joins its identity scopes and announces the join. Verification
// is bounded by the configured timeout and runs on the caller's goroutine,
// so it never blocks processing of other connections. A second successful
// authentication with the same principal is an idempotent replace.
func (g *Gateway) Authenticate(ctx context.Context, connID string, credential string) {
	ctx, cancel := context.WithTimeout(ctx, g.cfg.AuthTimeout)
	defer cancel()

	principal, err := g.authenticator.Verify(ctx, credential)
	if err != nil {
		if errors.Is(err, apperrors.ErrAuthUnavailable) {
			// Distinct log line, but the client just sees an invalid credential.
			g.logger.Error("authenticator unavailable", "conn_id", connID, "error", err)
		} else {
			g.logger.Warn("authentication failed", "conn_id", connID, "error", err)
		}
		g.sendAuthError(connID, err)
		return
	}

	if err := g.registry.AttachPrincipal(connID, *principal); err != nil {
		// Connection disappeared while the credential was being verified.
		g.logger.Warn("authenticated connection already gone", "conn_id", connID)
		return
	}
	g.router.OnAuthenticate(connID, *principal)

	g.publisher.SendTo(connID, domain.EventAuthenticated, domain.AuthenticatedPayload{Principal: *principal})
	g.presence.OnJoin(*principal)
}

func (g *Gateway) sendAuthError(connID string, err error) {
	g.publisher.SendTo(connID, domain.EventAuthError, domain.AuthErrorPayload{
		Reason: apperrors.AuthErrorReason(err),
	})
}

// RequestMetrics replies with the projection for the connection's role. An
// unauthenticated connection gets the minimal projection, same as an
// unrecognized role. The last complete snapshot is reused; only a connection
// arriving before the first scheduler tick forces a synchronous refresh.
func (g *Gateway) RequestMetrics(ctx context.Context, connID string) {
	role := domain.RoleGuest
	if principal, ok := g.registry.Lookup(connID); ok {
		role = principal.Role
	}

	snap := g.aggregator.Snapshot()
	if snap == nil {
		fresh, err := g.aggregator.Refresh(ctx)
		if err != nil {
			g.publisher.SendTo(connID, domain.EventError, domain.ErrorPayload{
				Message: "metrics are temporarily unavailable",
			})
			return
		}
		snap = fresh
	}

	g.publisher.SendTo(connID, domain.EventMetricsUpdate, g.aggregator.Project(snap, role))
}

// RequestActivityFeed replies with a page of recent transactions. Requires
// an authenticated connection.
func (g *Gateway) RequestActivityFeed(ctx context.Context, connID string, limit, offset int) {
	if _, ok := g.registry.Lookup(connID); !ok {
		g.publisher.SendTo(connID, domain.EventError, domain.ErrorPayload{Message: apperrors.ErrNotAuthenticated.Error()})
		return
	}

	if limit <= 0 {
		limit = defaultFeedLimit
	}
	if limit > maxFeedLimit {
		limit = maxFeedLimit
	}
	if offset < 0 {
		offset = 0
	}

	items, err := g.stats.GetRecentTransactions(ctx, limit, offset)
	if err != nil {
		g.logger.Warn("activity feed query failed", "conn_id", connID, "error", err)
		g.publisher.SendTo(connID, domain.EventError, domain.ErrorPayload{Message: "activity feed unavailable"})
		return
	}

	g.publisher.SendTo(connID, domain.EventActivityFeed, domain.ActivityFeedPayload{
		Items:  items,
		Limit:  limit,
		Offset: offset,
	})
}

// SubscribeTopic joins a topic scope after an authorization check. A denied
// attempt is answered with an error event and creates no membership; the
// connection remains open.
func (g *Gateway) SubscribeTopic(connID string, topic string) {
	principal, ok := g.registry.Lookup(connID)
	if !ok {
		g.publisher.SendTo(connID, domain.EventError, domain.ErrorPayload{Message: apperrors.ErrNotAuthenticated.Error()})
		return
	}

	if err := g.router.Subscribe(connID, topic, principal.Role); err != nil {
		msg := "subscription denied"
		if errors.Is(err, apperrors.ErrInvalidTopic) {
			msg = "invalid topic"
		}
		g.publisher.SendTo(connID, domain.EventError, domain.ErrorPayload{Message: msg})
		return
	}
}

// UpdateStatus relays a self-reported presence status to privileged scopes.
func (g *Gateway) UpdateStatus(connID string, status string) {
	principal, ok := g.registry.Lookup(connID)
	if !ok {
		g.publisher.SendTo(connID, domain.EventError, domain.ErrorPayload{Message: apperrors.ErrNotAuthenticated.Error()})
		return
	}

	parsed, err := domain.ParsePresenceStatus(status)
	if err != nil {
		g.publisher.SendTo(connID, domain.EventError, domain.ErrorPayload{Message: apperrors.ErrInvalidStatus.Error()})
		return
	}

	g.presence.OnStatusChange(*principal, parsed)
}

func (g *Gateway) allow(connID string) bool {
	g.mu.Lock()
	limiter, ok := g.limiters[connID]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(g.cfg.MessagesPerSecond), g.cfg.MessageBurst)
		g.limiters[connID] = limiter
	}
	g.mu.Unlock()
	return limiter.Allow()
}

// --- Exposed collaborator API ---

// Publish pushes a domain event to the selector's audience.
func (g *Gateway) Publish(eventType domain.EventType, payload any, selector domain.Selector) {
	g.publisher.Publish(eventType, payload, selector)
}

// PublishToAll sends to every live connection.
func (g *Gateway) PublishToAll(eventType domain.EventType, payload any) {
	g.publisher.PublishToAll(eventType, payload)
}

// PublishToRole sends to every connection holding the role.
func (g *Gateway) PublishToRole(role domain.Role, eventType domain.EventType, payload any) {
	g.publisher.PublishToRole(role, eventType, payload)
}

// PublishToPrincipal sends to every connection of one principal.
func (g *Gateway) PublishToPrincipal(principalID string, eventType domain.EventType, payload any) {
	g.publisher.PublishToPrincipal(principalID, eventType, payload)
}

// PublishToTenant sends to every connection in a tenant.
func (g *Gateway) PublishToTenant(tenantID string, eventType domain.EventType, payload any) {
	g.publisher.PublishToTenant(tenantID, eventType, payload)
}

// GetConnectedPrincipals returns each distinct connected principal once.
func (g *Gateway) GetConnectedPrincipals() []domain.Principal {
	return g.registry.ConnectedPrincipals()
}

// IsPrincipalConnected reports whether the principal has any live connection.
func (g *Gateway) IsPrincipalConnected(principalID string) bool {
	return g.registry.IsPrincipalConnected(principalID)
}
