package realtime

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/fixhub/realtime-backend/internal/core/domain"
	apperrors "github.com/fixhub/realtime-backend/internal/core/errors"
	"github.com/fixhub/realtime-backend/internal/core/ports"
)

// ActiveUserCounter reports how many distinct principals are online. The
// registry implements it; the aggregator records the figure into each
// snapshot so projections stay pure functions of snapshot and role.
type ActiveUserCounter interface {
	PrincipalCount() int
}

// AggregatorConfig bounds aggregator behavior.
type AggregatorConfig struct {
	// SourceTimeout caps each individual data-layer call.
	SourceTimeout time.Duration
	// MaxRecentTransactions bounds the recent-transactions list in a snapshot.
	MaxRecentTransactions int
	// OwnerRecentCap caps the list in the owner projection.
	OwnerRecentCap int
}

// DefaultAggregatorConfig returns the defaults used when config values are
// zero.
func DefaultAggregatorConfig() AggregatorConfig {
	return AggregatorConfig{
		SourceTimeout:         5 * time.Second,
		MaxRecentTransactions: 10,
		OwnerRecentCap:        5,
	}
}

// Aggregator pulls counters from the data layer, builds a point-in-time
// snapshot and produces role-specific projections of it. The snapshot is
// single-writer/multi-reader: a replacement is built in a local value and
// the shared reference swapped only once it is complete.
type Aggregator struct {
	stats   ports.StatsRepository
	counter ActiveUserCounter
	cfg     AggregatorConfig
	logger  *slog.Logger

	mu   sync.RWMutex
	last *domain.MetricsSnapshot
}

// NewAggregator creates a metrics aggregator over the given data layer.
func NewAggregator(stats ports.StatsRepository, counter ActiveUserCounter, cfg AggregatorConfig, logger *slog.Logger) *Aggregator {
	def := DefaultAggregatorConfig()
	if cfg.SourceTimeout <= 0 {
		cfg.SourceTimeout = def.SourceTimeout
	}
	if cfg.MaxRecentTransactions <= 0 {
		cfg.MaxRecentTransactions = def.MaxRecentTransactions
	}
	if cfg.OwnerRecentCap <= 0 {
		cfg.OwnerRecentCap = def.OwnerRecentCap
	}
	return &Aggregator{
		stats:   stats,
		counter: counter,
		cfg:     cfg,
		logger:  logger.With("component", "metrics_aggregator"),
	}
}

// Snapshot returns the last complete snapshot, or nil if none has been built
// yet. Late-joining readers reuse it instead of forcing a refresh.
func (a *Aggregator) Snapshot() *domain.MetricsSnapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.last
}

// Refresh queries every metric source independently and swaps in a new
// snapshot. A failing source does not abort the others: its field keeps the
// previous snapshot's value and the snapshot is marked partial. Refresh only
// returns an error when no snapshot can be built at all - every source
// failed and there is no previous snapshot to fall back on.
func (a *Aggregator) Refresh(ctx context.Context) (*domain.MetricsSnapshot, error) {
	prev := a.Snapshot()

	var (
		snap     domain.MetricsSnapshot
		failures int
	)
	const sourceCount = 5

	if stats, err := a.fetchTodayStats(ctx); err != nil {
		failures++
		snap.Partial = true
		a.logger.Warn("today stats source failed", "error", err)
		if prev != nil {
			snap.TodayRevenue = prev.TodayRevenue
			snap.TodayTransactions = prev.TodayTransactions
		}
	} else {
		snap.TodayRevenue = stats.Revenue
		snap.TodayTransactions = stats.TransactionCount
	}

	if pending, err := a.fetchPendingRepairs(ctx); err != nil {
		failures++
		snap.Partial = true
		a.logger.Warn("pending repairs source failed", "error", err)
		if prev != nil {
			snap.PendingRepairs = prev.PendingRepairs
		}
	} else {
		snap.PendingRepairs = pending
	}

	if weekly, err := a.fetchWeeklyRevenue(ctx); err != nil {
		failures++
		snap.Partial = true
		a.logger.Warn("weekly revenue source failed", "error", err)
		if prev != nil {
			snap.WeeklyRevenue = prev.WeeklyRevenue
		}
	} else {
		snap.WeeklyRevenue = weekly
	}

	if recent, err := a.fetchRecentTransactions(ctx); err != nil {
		failures++
		snap.Partial = true
		a.logger.Warn("recent transactions source failed", "error", err)
		if prev != nil {
			snap.RecentTransactions = prev.RecentTransactions
		}
	} else {
		snap.RecentTransactions = recent
	}

	if alerts, err := a.fetchInventoryAlerts(ctx); err != nil {
		failures++
		snap.Partial = true
		a.logger.Warn("inventory alerts source failed", "error", err)
		if prev != nil {
			snap.InventoryAlerts = prev.InventoryAlerts
		}
	} else {
		snap.InventoryAlerts = alerts
	}

	if failures == sourceCount && prev == nil {
		return nil, apperrors.ErrMetricsUnavailable
	}

	snap.ActiveUsers = a.counter.PrincipalCount()
	snap.GeneratedAt = time.Now().UTC()

	a.mu.Lock()
	a.last = &snap
	a.mu.Unlock()

	return &snap, nil
}

func (a *Aggregator) fetchTodayStats(ctx context.Context) (*domain.TodayStats, error) {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.SourceTimeout)
	defer cancel()
	return a.stats.GetTodayStats(ctx)
}

func (a *Aggregator) fetchPendingRepairs(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.SourceTimeout)
	defer cancel()
	return a.stats.GetPendingRepairCount(ctx)
}

func (a *Aggregator) fetchWeeklyRevenue(ctx context.Context) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.SourceTimeout)
	defer cancel()
	return a.stats.GetWeeklyRevenue(ctx)
}

func (a *Aggregator) fetchRecentTransactions(ctx context.Context) ([]domain.Transaction, error) {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.SourceTimeout)
	defer cancel()
	return a.stats.GetRecentTransactions(ctx, a.cfg.MaxRecentTransactions, 0)
}

func (a *Aggregator) fetchInventoryAlerts(ctx context.Context) ([]domain.InventoryAlert, error) {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.SourceTimeout)
	defer cancel()
	return a.stats.GetInventoryAlerts(ctx)
}

// Project produces the role-specific view of a snapshot. It is a pure
// function: every role maps to a defined projection and there is no
// full-snapshot fallback for unrecognized roles.
func (a *Aggregator) Project(snap *domain.MetricsSnapshot, role domain.Role) domain.MetricsProjection {
	return project(snap, role, a.cfg.OwnerRecentCap)
}

func project(snap *domain.MetricsSnapshot, role domain.Role, ownerRecentCap int) domain.MetricsProjection {
	base := domain.MetricsProjection{
		ActiveUsers: snap.ActiveUsers,
		Partial:     snap.Partial,
		GeneratedAt: snap.GeneratedAt,
	}

	switch role {
	case domain.RoleAdmin:
		base.TodayRevenue = ptr(snap.TodayRevenue)
		base.TodayTransactions = ptr(snap.TodayTransactions)
		base.PendingRepairs = ptr(snap.PendingRepairs)
		base.WeeklyRevenue = ptr(snap.WeeklyRevenue)
		base.RecentTransactions = snap.RecentTransactions
		base.InventoryAlerts = snap.InventoryAlerts
		return base

	case domain.RoleOwner:
		base.TodayRevenue = ptr(snap.TodayRevenue)
		base.PendingRepairs = ptr(snap.PendingRepairs)
		base.WeeklyRevenue = ptr(snap.WeeklyRevenue)
		recent := snap.RecentTransactions
		if len(recent) > ownerRecentCap {
			recent = recent[:ownerRecentCap]
		}
		base.RecentTransactions = recent
		return base

	case domain.RoleWorker:
		base.PendingRepairs = ptr(snap.PendingRepairs)
		base.InventoryAlerts = snap.InventoryAlerts
		return base

	case domain.RoleDemo:
		return base

	case domain.RoleGuest:
		return base

	default:
		// Unrecognized roles see the active-user count only.
		return base
	}
}

func ptr[T any](v T) *T { return &v }
