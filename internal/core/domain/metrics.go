package domain

import "time"

// TodayStats holds the day's sales figures from the data layer.
type TodayStats struct {
	Revenue          float64 `json:"revenue"`
	TransactionCount int     `json:"transactionCount"`
}

// Transaction is one sale or payment in the recent-activity feed.
type Transaction struct {
	ID           int64     `json:"id"`
	CustomerName string    `json:"customerName"`
	Kind         string    `json:"kind"`
	Amount       float64   `json:"amount"`
	CreatedAt    time.Time `json:"createdAt"`
}

// InventoryAlert flags a stock item at or below its reorder level.
type InventoryAlert struct {
	ItemID       int64  `json:"itemId"`
	Name         string `json:"name"`
	Quantity     int    `json:"quantity"`
	ReorderLevel int    `json:"reorderLevel"`
}

// MetricsSnapshot is a point-in-time aggregate of business metrics. A new
// snapshot replaces the previous one atomically; it is never mutated after
// publication. Partial is set when at least one source failed and its field
// carries the previous snapshot's value instead of a fresh one. On the very
// first refresh there is no previous snapshot to fall back on, so a failed
// source's field stays at its zero value; Partial is the only signal that a
// figure in a partial snapshot may be stale or missing, never a fabricated
// stand-in.
type MetricsSnapshot struct {
	TodayRevenue       float64          `json:"todayRevenue"`
	TodayTransactions  int              `json:"todayTransactions"`
	PendingRepairs     int              `json:"pendingRepairs"`
	WeeklyRevenue      float64          `json:"weeklyRevenue"`
	RecentTransactions []Transaction    `json:"recentTransactions"`
	InventoryAlerts    []InventoryAlert `json:"inventoryAlerts"`
	ActiveUsers        int              `json:"activeUsers"`
	Partial            bool             `json:"partial"`
	GeneratedAt        time.Time        `json:"generatedAt"`
}

// MetricsProjection is the role-specific view of a snapshot. Fields a role is
// not entitled to stay nil and are omitted from the wire payload; ActiveUsers
// is included for every role.
type MetricsProjection struct {
	ActiveUsers        int              `json:"activeUsers"`
	TodayRevenue       *float64         `json:"todayRevenue,omitempty"`
	TodayTransactions  *int             `json:"todayTransactions,omitempty"`
	PendingRepairs     *int             `json:"pendingRepairs,omitempty"`
	WeeklyRevenue      *float64         `json:"weeklyRevenue,omitempty"`
	RecentTransactions []Transaction    `json:"recentTransactions,omitempty"`
	InventoryAlerts    []InventoryAlert `json:"inventoryAlerts,omitempty"`
	Partial            bool             `json:"partial"`
	GeneratedAt        time.Time        `json:"generatedAt"`
}
