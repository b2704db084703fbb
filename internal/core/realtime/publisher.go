package realtime

import (
	"log/slog"

	"github.com/fixhub/realtime-backend/internal/core/domain"
	"github.com/fixhub/realtime-backend/internal/core/ports"
)

// Publisher is the fan-out engine. Publish resolves the selector to the live
// connection set at call time, stamps a server timestamp and hands the event
// to each sink without waiting for acknowledgment. A target that disconnects
// or backs up mid-fan-out is skipped silently; delivery is at most once.
type Publisher struct {
	registry *Registry
	router   *Router
	logger   *slog.Logger
}

var _ ports.Publisher = (*Publisher)(nil)

// NewPublisher creates a publisher over the given registry and router.
func NewPublisher(registry *Registry, router *Router, logger *slog.Logger) *Publisher {
	return &Publisher{
		registry: registry,
		router:   router,
		logger:   logger.With("component", "event_publisher"),
	}
}

// Publish fans an event out to every connection the selector resolves to.
// Resolving an empty scope is a no-op. No ordering guarantee is made against
// concurrent authenticate/subscribe operations on other connections: a
// connection joining a scope after resolution has started may miss the event.
func (p *Publisher) Publish(eventType domain.EventType, payload any, selector domain.Selector) {
	event := domain.NewEvent(eventType, payload)

	var targets []string
	if selector.Kind == domain.SelectAllKind {
		targets = p.registry.ConnectionIDs()
	} else {
		targets = p.router.Resolve(selector)
	}
	if len(targets) == 0 {
		return
	}

	delivered := 0
	for _, connID := range targets {
		if p.sendTo(connID, event) {
			delivered++
		}
	}

	p.logger.Debug("event published",
		"event_type", eventType,
		"selector", selector.Kind,
		"targets", len(targets),
		"delivered", delivered,
	)
}

// SendTo delivers an event to a single connection. Used for direct replies
// (auth results, metrics responses) that address a connection, not a scope.
func (p *Publisher) SendTo(connID string, eventType domain.EventType, payload any) {
	p.sendTo(connID, domain.NewEvent(eventType, payload))
}

func (p *Publisher) sendTo(connID string, event domain.Event) bool {
	sink, ok := p.registry.SinkOf(connID)
	if !ok {
		// Disconnected between resolution and delivery; best-effort miss.
		return false
	}
	if err := sink.Send(event); err != nil {
		p.logger.Warn("dropping event for slow connection",
			"conn_id", connID,
			"event_type", event.Type,
		)
		return false
	}
	return true
}

// PublishToAll sends to every live connection.
func (p *Publisher) PublishToAll(eventType domain.EventType, payload any) {
	p.Publish(eventType, payload, domain.SelectAll())
}

// PublishToRole sends to every connection whose principal holds the role.
func (p *Publisher) PublishToRole(role domain.Role, eventType domain.EventType, payload any) {
	p.Publish(eventType, payload, domain.SelectRole(role))
}

// PublishToPrincipal sends to every connection of one principal (all tabs).
func (p *Publisher) PublishToPrincipal(principalID string, eventType domain.EventType, payload any) {
	p.Publish(eventType, payload, domain.SelectPrincipal(principalID))
}

// PublishToTenant sends to every connection in a tenant.
func (p *Publisher) PublishToTenant(tenantID string, eventType domain.EventType, payload any) {
	p.Publish(eventType, payload, domain.SelectTenant(tenantID))
}
