/*
store.go - Persistence interfaces for the inventory core

PURPOSE:
  Defines what the ledger and aggregation engines need from storage.
  store/sqlite provides the implementation; tests use the same SQLite
  store against ":memory:".

TRANSACTIONS:
  Every ledger mutation that touches more than one row runs inside
  WithTx: the closure receives a Store bound to one database transaction,
  and any error from the closure rolls the whole transaction back.
  No partial state is ever visible to readers.

SEE ALSO:
  - ledger.go: composes these operations into atomic mutations
  - analytics.go: wraps AnalyticsStore with domain rules
  - store/sqlite/sqlite.go: the implementation
*/
package inventory

import (
	"context"
	"time"
)

// Store is the row-level persistence interface used by the Ledger.
type Store interface {
	// Products
	GetProduct(ctx context.Context, code string) (*Product, error) // nil when missing
	InsertProduct(ctx context.Context, p Product) error            // DuplicateKeyError on collision
	UpdateProduct(ctx context.Context, p Product) error
	DeleteProduct(ctx context.Context, code string) (bool, error)
	ListProducts(ctx context.Context) ([]Product, error)

	// Movements
	InsertMovement(ctx context.Context, m Movement) error
	GetMovement(ctx context.Context, kind MovementKind, id int64) (*Movement, error)
	GetMovementAt(ctx context.Context, kind MovementKind, code string, at time.Time) (*Movement, error)
	SumMovementsAt(ctx context.Context, kind MovementKind, code string, at time.Time) (int64, error)
	UpdateMovementQuantity(ctx context.Context, kind MovementKind, id int64, quantity int64) error
	DeleteMovementAt(ctx context.Context, kind MovementKind, code string, at time.Time) (bool, error)
	ListMovements(ctx context.Context, kind MovementKind) ([]Movement, error)

	// Denormalization repair: rewrite the description copy on every
	// movement row of a product, in both relations.
	UpdateMovementDescriptions(ctx context.Context, code, description string) error

	// WithTx runs fn inside a single database transaction. The Store
	// passed to fn issues all its statements on that transaction.
	WithTx(ctx context.Context, fn func(Store) error) error
}

// AnalyticsStore is the read-only query interface used by Analytics.
// Implementations must not mutate the ledger.
type AnalyticsStore interface {
	SearchMovements(ctx context.Context, pattern string) ([]MovementView, error)
	MonthlyFlowSeries(ctx context.Context, code string) ([]MonthlyFlow, error)
	StockTimeSeries(ctx context.Context, code string) ([]StockPoint, error)
	TopMovedProducts(ctx context.Context, limit int) ([]ProductActivity, error)
	MovementStatistics(ctx context.Context, code string) (*MovementStats, error)
	PeriodInventory(ctx context.Context, from, to time.Time) ([]InventoryLine, error)
	PeriodMovements(ctx context.Context, kind MovementKind, from, to time.Time) ([]MovementLine, error)
	ProductOverview(ctx context.Context, code string, lastN int) (*ProductOverview, error)
	ProductTotals(ctx context.Context) (*ProductTotals, error)
}

// HistoryStore persists report metadata rows.
type HistoryStore interface {
	InsertReportRecord(ctx context.Context, r ReportRecord) (int64, error)
	ListReportRecords(ctx context.Context) ([]ReportRecord, error)
	RenameReportRecord(ctx context.Context, id int64, label string) (bool, error)
	DeleteReportRecord(ctx context.Context, id int64) (bool, error)
}
