package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fixhub/realtime-backend/internal/core/domain"
	"github.com/fixhub/realtime-backend/internal/core/ports"
)

// StatsRepository reads shop counters straight off the POS tables. Each
// method is one query so the aggregator can fail them independently.
type StatsRepository struct {
	pool *pgxpool.Pool
}

var _ ports.StatsRepository = (*StatsRepository)(nil)

func NewStatsRepository(pool *pgxpool.Pool) ports.StatsRepository {
	return &StatsRepository{pool: pool}
}

func (r *StatsRepository) GetTodayStats(ctx context.Context) (*domain.TodayStats, error) {
	const query = `
SELECT COALESCE(SUM(amount), 0), COUNT(*)
FROM transactions
WHERE created_at >= date_trunc('day', NOW())
`

	row := r.pool.QueryRow(ctx, query)

	var (
		revenue pgtype.Numeric
		count   int64
	)
	if err := row.Scan(&revenue, &count); err != nil {
		return nil, err
	}

	revenueFloat, err := revenue.Float64Value()
	if err != nil {
		return nil, err
	}

	return &domain.TodayStats{
		Revenue:          revenueFloat.Float64,
		TransactionCount: int(count),
	}, nil
}

func (r *StatsRepository) GetPendingRepairCount(ctx context.Context) (int, error) {
	const query = `
SELECT COUNT(*)
FROM repair_jobs
WHERE status IN ('received', 'diagnosing', 'awaiting_parts', 'in_progress')
`

	var count int64
	if err := r.pool.QueryRow(ctx, query).Scan(&count); err != nil {
		return 0, err
	}
	return int(count), nil
}

func (r *StatsRepository) GetWeeklyRevenue(ctx context.Context) (float64, error) {
	const query = `
SELECT COALESCE(SUM(amount), 0)
FROM transactions
WHERE created_at >= date_trunc('day', NOW()) - interval '6 days'
`

	var revenue pgtype.Numeric
	if err := r.pool.QueryRow(ctx, query).Scan(&revenue); err != nil {
		return 0, err
	}

	revenueFloat, err := revenue.Float64Value()
	if err != nil {
		return 0, err
	}
	return revenueFloat.Float64, nil
}

func (r *StatsRepository) GetRecentTransactions(ctx context.Context, limit, offset int) ([]domain.Transaction, error) {
	const query = `
SELECT id, customer_name, kind, amount, created_at
FROM transactions
ORDER BY created_at DESC
LIMIT $1 OFFSET $2
`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	transactions := make([]domain.Transaction, 0, limit)
	for rows.Next() {
		var (
			tx           domain.Transaction
			customerName pgtype.Text
			amount       pgtype.Numeric
			createdAt    pgtype.Timestamptz
		)
		if err := rows.Scan(&tx.ID, &customerName, &tx.Kind, &amount, &createdAt); err != nil {
			return nil, err
		}

		amountFloat, err := amount.Float64Value()
		if err != nil {
			return nil, err
		}

		tx.CustomerName = textOrEmpty(customerName)
		tx.Amount = amountFloat.Float64
		tx.CreatedAt = createdAt.Time
		transactions = append(transactions, tx)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return transactions, nil
}

func (r *StatsRepository) GetInventoryAlerts(ctx context.Context) ([]domain.InventoryAlert, error) {
	const query = `
SELECT id, name, quantity, reorder_level
FROM inventory_items
WHERE quantity <= reorder_level
ORDER BY quantity::float / GREATEST(reorder_level, 1), name
`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	alerts := make([]domain.InventoryAlert, 0)
	for rows.Next() {
		var alert domain.InventoryAlert
		if err := rows.Scan(&alert.ItemID, &alert.Name, &alert.Quantity, &alert.ReorderLevel); err != nil {
			return nil, err
		}
		alerts = append(alerts, alert)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return alerts, nil
}

func textOrEmpty(text pgtype.Text) string {
	if text.Valid {
		return text.String
	}
	return ""
}
