package ports

import (
	"context"

	"github.com/fixhub/realtime-backend/internal/core/domain"
)

// Authenticator verifies an opaque credential and returns the principal it
// identifies. Implementations must honor the context deadline; failures are
// one of apperrors.ErrInvalidCredential, ErrCredentialExpired or
// ErrAuthUnavailable.
type Authenticator interface {
	Verify(ctx context.Context, credential string) (*domain.Principal, error)
}

// StatsRepository is the stateless data layer the metrics aggregator pulls
// from. Each method is independently failable: a failure in one must not
// prevent the others from being called.
type StatsRepository interface {
	GetTodayStats(ctx context.Context) (*domain.TodayStats, error)
	GetPendingRepairCount(ctx context.Context) (int, error)
	GetWeeklyRevenue(ctx context.Context) (float64, error)
	GetRecentTransactions(ctx context.Context, limit, offset int) ([]domain.Transaction, error)
	GetInventoryAlerts(ctx context.Context) ([]domain.InventoryAlert, error)
}

// CredentialRepository looks up terminal API keys.
type CredentialRepository interface {
	GetAPICredential(ctx context.Context, keyID string) (*domain.APICredential, error)
}

// Publisher is the narrow interface other subsystems use to push domain
// events to connected clients without coupling to connection management.
// Delivery is fire-and-forget, at most once.
type Publisher interface {
	Publish(eventType domain.EventType, payload any, selector domain.Selector)
	PublishToAll(eventType domain.EventType, payload any)
	PublishToRole(role domain.Role, eventType domain.EventType, payload any)
	PublishToPrincipal(principalID string, eventType domain.EventType, payload any)
	PublishToTenant(tenantID string, eventType domain.EventType, payload any)
}

// PresenceReader exposes who is connected, for collaborators that report on
// active users. "Connected" means at least one live connection holds the
// principal, regardless of how many sockets that is.
type PresenceReader interface {
	GetConnectedPrincipals() []domain.Principal
	IsPrincipalConnected(principalID string) bool
}
