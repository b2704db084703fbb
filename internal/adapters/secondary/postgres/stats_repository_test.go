package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedTransaction(t *testing.T, ctx context.Context, customer, kind string, amount float64, createdAt time.Time) {
	t.Helper()
	_, err := testPool.Exec(ctx,
		`INSERT INTO transactions (customer_name, kind, amount, created_at) VALUES ($1, $2, $3, $4)`,
		customer, kind, amount, createdAt,
	)
	require.NoError(t, err)
}

func seedRepairJob(t *testing.T, ctx context.Context, device, status string) {
	t.Helper()
	_, err := testPool.Exec(ctx,
		`INSERT INTO repair_jobs (customer_name, device, status) VALUES ('Customer', $1, $2)`,
		device, status,
	)
	require.NoError(t, err)
}

func seedInventoryItem(t *testing.T, ctx context.Context, name string, quantity, reorderLevel int) {
	t.Helper()
	_, err := testPool.Exec(ctx,
		`INSERT INTO inventory_items (name, quantity, reorder_level) VALUES ($1, $2, $3)`,
		name, quantity, reorderLevel,
	)
	require.NoError(t, err)
}

func TestStatsRepository_GetTodayStats(t *testing.T) {
	ctx := context.Background()
	truncateAll(t, ctx)
	repo := NewStatsRepository(testPool)

	now := time.Now()
	seedTransaction(t, ctx, "Ada", "sale", 120.50, now)
	seedTransaction(t, ctx, "Bob", "repair_payment", 80.00, now)
	seedTransaction(t, ctx, "Old", "sale", 999.99, now.AddDate(0, 0, -2))

	stats, err := repo.GetTodayStats(ctx)
	require.NoError(t, err)

	assert.InDelta(t, 200.50, stats.Revenue, 0.001)
	assert.Equal(t, 2, stats.TransactionCount)
}

func TestStatsRepository_GetTodayStatsEmpty(t *testing.T) {
	ctx := context.Background()
	truncateAll(t, ctx)
	repo := NewStatsRepository(testPool)

	stats, err := repo.GetTodayStats(ctx)
	require.NoError(t, err)

	assert.Zero(t, stats.Revenue)
	assert.Zero(t, stats.TransactionCount)
}

func TestStatsRepository_GetPendingRepairCount(t *testing.T) {
	ctx := context.Background()
	truncateAll(t, ctx)
	repo := NewStatsRepository(testPool)

	seedRepairJob(t, ctx, "iPhone 13", "received")
	seedRepairJob(t, ctx, "Pixel 8", "in_progress")
	seedRepairJob(t, ctx, "ThinkPad", "awaiting_parts")
	seedRepairJob(t, ctx, "iPad", "completed")
	seedRepairJob(t, ctx, "Switch", "picked_up")

	count, err := repo.GetPendingRepairCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestStatsRepository_GetWeeklyRevenue(t *testing.T) {
	ctx := context.Background()
	truncateAll(t, ctx)
	repo := NewStatsRepository(testPool)

	now := time.Now()
	seedTransaction(t, ctx, "Ada", "sale", 100, now)
	seedTransaction(t, ctx, "Bob", "sale", 50, now.AddDate(0, 0, -3))
	seedTransaction(t, ctx, "Old", "sale", 500, now.AddDate(0, 0, -10))

	revenue, err := repo.GetWeeklyRevenue(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 150, revenue, 0.001)
}

func TestStatsRepository_GetRecentTransactions(t *testing.T) {
	ctx := context.Background()
	truncateAll(t, ctx)
	repo := NewStatsRepository(testPool)

	now := time.Now()
	for i := 0; i < 5; i++ {
		seedTransaction(t, ctx, "Customer", "sale", float64(i+1), now.Add(-time.Duration(i)*time.Minute))
	}

	page, err := repo.GetRecentTransactions(ctx, 3, 0)
	require.NoError(t, err)
	require.Len(t, page, 3)
	assert.InDelta(t, 1.0, page[0].Amount, 0.001, "newest first")

	next, err := repo.GetRecentTransactions(ctx, 3, 3)
	require.NoError(t, err)
	require.Len(t, next, 2)
	assert.InDelta(t, 4.0, next[0].Amount, 0.001)
}

func TestStatsRepository_GetRecentTransactionsNullCustomer(t *testing.T) {
	ctx := context.Background()
	truncateAll(t, ctx)
	repo := NewStatsRepository(testPool)

	_, err := testPool.Exec(ctx,
		`INSERT INTO transactions (customer_name, kind, amount) VALUES (NULL, 'sale', 10)`)
	require.NoError(t, err)

	page, err := repo.GetRecentTransactions(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Empty(t, page[0].CustomerName)
}

func TestStatsRepository_GetInventoryAlerts(t *testing.T) {
	ctx := context.Background()
	truncateAll(t, ctx)
	repo := NewStatsRepository(testPool)

	seedInventoryItem(t, ctx, "iPhone 13 screen", 1, 4)
	seedInventoryItem(t, ctx, "USB-C cable", 50, 10)
	seedInventoryItem(t, ctx, "Pixel battery", 0, 3)

	alerts, err := repo.GetInventoryAlerts(ctx)
	require.NoError(t, err)
	require.Len(t, alerts, 2)

	assert.Equal(t, "Pixel battery", alerts[0].Name, "most depleted first")
	assert.Equal(t, "iPhone 13 screen", alerts[1].Name)
}
