package realtime

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fixhub/realtime-backend/internal/core/domain"
	apperrors "github.com/fixhub/realtime-backend/internal/core/errors"
	"github.com/fixhub/realtime-backend/internal/core/mocks"
)

type fakeCounter int

func (c fakeCounter) PrincipalCount() int { return int(c) }

func sampleTransactions(n int) []domain.Transaction {
	out := make([]domain.Transaction, n)
	for i := range out {
		out[i] = domain.Transaction{
			ID:        int64(i + 1),
			Kind:      "sale",
			Amount:    float64(10 * (i + 1)),
			CreatedAt: time.Now().UTC(),
		}
	}
	return out
}

func stubHealthySources(stats *mocks.MockStatsRepository) {
	stats.On("GetTodayStats", mock.Anything).Return(&domain.TodayStats{Revenue: 1250.50, TransactionCount: 14}, nil)
	stats.On("GetPendingRepairCount", mock.Anything).Return(6, nil)
	stats.On("GetWeeklyRevenue", mock.Anything).Return(8300.25, nil)
	stats.On("GetRecentTransactions", mock.Anything, 10, 0).Return(sampleTransactions(10), nil)
	stats.On("GetInventoryAlerts", mock.Anything).Return([]domain.InventoryAlert{
		{ItemID: 3, Name: "iPhone 13 screen", Quantity: 1, ReorderLevel: 4},
	}, nil)
}

func TestAggregator_RefreshBuildsCompleteSnapshot(t *testing.T) {
	stats := mocks.NewMockStatsRepository()
	stubHealthySources(stats)

	agg := NewAggregator(stats, fakeCounter(3), AggregatorConfig{}, testLogger())

	require.Nil(t, agg.Snapshot(), "no snapshot before first refresh")

	snap, err := agg.Refresh(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1250.50, snap.TodayRevenue)
	assert.Equal(t, 14, snap.TodayTransactions)
	assert.Equal(t, 6, snap.PendingRepairs)
	assert.Equal(t, 8300.25, snap.WeeklyRevenue)
	assert.Len(t, snap.RecentTransactions, 10)
	assert.Len(t, snap.InventoryAlerts, 1)
	assert.Equal(t, 3, snap.ActiveUsers)
	assert.False(t, snap.Partial)
	assert.False(t, snap.GeneratedAt.IsZero())

	assert.Same(t, snap, agg.Snapshot())
}

func TestAggregator_FailedSourceKeepsPreviousValueAndMarksPartial(t *testing.T) {
	stats := mocks.NewMockStatsRepository()
	stubHealthySources(stats)

	agg := NewAggregator(stats, fakeCounter(1), AggregatorConfig{}, testLogger())
	_, err := agg.Refresh(context.Background())
	require.NoError(t, err)

	// Second refresh: pending repairs fails, everything else succeeds.
	stats.ExpectedCalls = nil
	stats.On("GetTodayStats", mock.Anything).Return(&domain.TodayStats{Revenue: 1500, TransactionCount: 20}, nil)
	stats.On("GetPendingRepairCount", mock.Anything).Return(0, errors.New("query timeout"))
	stats.On("GetWeeklyRevenue", mock.Anything).Return(9000.0, nil)
	stats.On("GetRecentTransactions", mock.Anything, 10, 0).Return(sampleTransactions(2), nil)
	stats.On("GetInventoryAlerts", mock.Anything).Return([]domain.InventoryAlert{}, nil)

	snap, err := agg.Refresh(context.Background())
	require.NoError(t, err, "one failed source does not fail the refresh")

	assert.True(t, snap.Partial)
	assert.Equal(t, 6, snap.PendingRepairs, "failed source keeps the previous snapshot's value")
	assert.Equal(t, 1500.0, snap.TodayRevenue, "healthy sources are fresh")
	assert.Len(t, snap.RecentTransactions, 2)
}

func TestAggregator_FirstRefreshFailedSourceIsZeroValuedAndPartial(t *testing.T) {
	stats := mocks.NewMockStatsRepository()
	stats.On("GetTodayStats", mock.Anything).Return(&domain.TodayStats{Revenue: 1250.50, TransactionCount: 14}, nil)
	stats.On("GetPendingRepairCount", mock.Anything).Return(0, errors.New("query timeout"))
	stats.On("GetWeeklyRevenue", mock.Anything).Return(8300.25, nil)
	stats.On("GetRecentTransactions", mock.Anything, 10, 0).Return(sampleTransactions(2), nil)
	stats.On("GetInventoryAlerts", mock.Anything).Return([]domain.InventoryAlert{}, nil)

	agg := NewAggregator(stats, fakeCounter(1), AggregatorConfig{}, testLogger())

	snap, err := agg.Refresh(context.Background())
	require.NoError(t, err)

	// No previous snapshot to fall back on: the failed source's field stays
	// at its zero value and Partial flags the snapshot as incomplete.
	assert.True(t, snap.Partial)
	assert.Equal(t, 0, snap.PendingRepairs)
	assert.Equal(t, 1250.50, snap.TodayRevenue)
}

func TestAggregator_AllSourcesFailWithoutPreviousSnapshot(t *testing.T) {
	stats := mocks.NewMockStatsRepository()
	boom := errors.New("connection refused")
	stats.On("GetTodayStats", mock.Anything).Return(nil, boom)
	stats.On("GetPendingRepairCount", mock.Anything).Return(0, boom)
	stats.On("GetWeeklyRevenue", mock.Anything).Return(0.0, boom)
	stats.On("GetRecentTransactions", mock.Anything, 10, 0).Return(nil, boom)
	stats.On("GetInventoryAlerts", mock.Anything).Return(nil, boom)

	agg := NewAggregator(stats, fakeCounter(0), AggregatorConfig{}, testLogger())

	snap, err := agg.Refresh(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrMetricsUnavailable)
	assert.Nil(t, snap)
	assert.Nil(t, agg.Snapshot())
}

func TestAggregator_AllSourcesFailWithPreviousSnapshot(t *testing.T) {
	stats := mocks.NewMockStatsRepository()
	stubHealthySources(stats)

	agg := NewAggregator(stats, fakeCounter(2), AggregatorConfig{}, testLogger())
	_, err := agg.Refresh(context.Background())
	require.NoError(t, err)

	boom := errors.New("connection refused")
	stats.ExpectedCalls = nil
	stats.On("GetTodayStats", mock.Anything).Return(nil, boom)
	stats.On("GetPendingRepairCount", mock.Anything).Return(0, boom)
	stats.On("GetWeeklyRevenue", mock.Anything).Return(0.0, boom)
	stats.On("GetRecentTransactions", mock.Anything, 10, 0).Return(nil, boom)
	stats.On("GetInventoryAlerts", mock.Anything).Return(nil, boom)

	snap, err := agg.Refresh(context.Background())
	require.NoError(t, err, "previous snapshot keeps the service degraded, not down")
	assert.True(t, snap.Partial)
	assert.Equal(t, 1250.50, snap.TodayRevenue)
	assert.Equal(t, 6, snap.PendingRepairs)
}

func TestAggregator_Projections(t *testing.T) {
	snap := &domain.MetricsSnapshot{
		TodayRevenue:       1000,
		TodayTransactions:  12,
		PendingRepairs:     4,
		WeeklyRevenue:      7000,
		RecentTransactions: sampleTransactions(10),
		InventoryAlerts:    []domain.InventoryAlert{{ItemID: 1, Name: "battery", Quantity: 0, ReorderLevel: 5}},
		ActiveUsers:        5,
		GeneratedAt:        time.Now().UTC(),
	}

	agg := NewAggregator(mocks.NewMockStatsRepository(), fakeCounter(5), AggregatorConfig{}, testLogger())

	t.Run("admin sees everything", func(t *testing.T) {
		p := agg.Project(snap, domain.RoleAdmin)
		require.NotNil(t, p.TodayRevenue)
		assert.Equal(t, 1000.0, *p.TodayRevenue)
		require.NotNil(t, p.TodayTransactions)
		require.NotNil(t, p.PendingRepairs)
		require.NotNil(t, p.WeeklyRevenue)
		assert.Len(t, p.RecentTransactions, 10)
		assert.Len(t, p.InventoryAlerts, 1)
		assert.Equal(t, 5, p.ActiveUsers)
	})

	t.Run("owner gets capped recent list and no alerts", func(t *testing.T) {
		p := agg.Project(snap, domain.RoleOwner)
		require.NotNil(t, p.TodayRevenue)
		require.NotNil(t, p.PendingRepairs)
		require.NotNil(t, p.WeeklyRevenue)
		assert.Nil(t, p.TodayTransactions)
		assert.Len(t, p.RecentTransactions, 5)
		assert.Empty(t, p.InventoryAlerts)
	})

	t.Run("worker sees workload only", func(t *testing.T) {
		p := agg.Project(snap, domain.RoleWorker)
		assert.Nil(t, p.TodayRevenue)
		assert.Nil(t, p.WeeklyRevenue)
		require.NotNil(t, p.PendingRepairs)
		assert.Equal(t, 4, *p.PendingRepairs)
		assert.Len(t, p.InventoryAlerts, 1)
		assert.Empty(t, p.RecentTransactions)
	})

	t.Run("demo and guest see the base view", func(t *testing.T) {
		for _, role := range []domain.Role{domain.RoleDemo, domain.RoleGuest} {
			p := agg.Project(snap, role)
			assert.Nil(t, p.TodayRevenue)
			assert.Nil(t, p.PendingRepairs)
			assert.Empty(t, p.RecentTransactions)
			assert.Empty(t, p.InventoryAlerts)
			assert.Equal(t, 5, p.ActiveUsers)
		}
	})

	t.Run("unrecognized role gets no financial fields", func(t *testing.T) {
		p := agg.Project(snap, domain.Role("intern"))
		assert.Nil(t, p.TodayRevenue)
		assert.Nil(t, p.TodayTransactions)
		assert.Nil(t, p.PendingRepairs)
		assert.Nil(t, p.WeeklyRevenue)
		assert.Empty(t, p.RecentTransactions)
		assert.Empty(t, p.InventoryAlerts)
		assert.Equal(t, 5, p.ActiveUsers)
	})
}
