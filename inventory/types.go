/*
Package inventory provides the ledger and aggregation core for the
furniture-store stock system.

PURPOSE:
  This package contains the domain types and algorithms that keep product
  running totals consistent with the movement history, and the read-only
  analytical queries derived from that history. It knows nothing about HTTP,
  spreadsheets, or SQL dialects — persistence is behind the Store and
  AnalyticsStore interfaces.

KEY CONCEPTS IN THIS FILE (types.go):
  - Product: a catalog row with cumulative totals and derived valuations
  - Movement: one inflow (entrada) or outflow (salida) of stock
  - ReportRecord: metadata for a previously exported period report
  - Typed query records: fixed-shape results for every analytical query

DESIGN PRINCIPLES:
  1. Precision: decimal.Decimal for all prices and valuations
  2. Typed results: every query returns a named record, never a positional row
  3. Denormalization is explicit: movements carry a copy of the product
     description taken at insert time; UpdateProduct repairs the copies

SEE ALSO:
  - ledger.go: mutation engine maintaining the running totals
  - analytics.go: read-only aggregation engine
  - store.go: persistence interfaces
*/
package inventory

import (
	"time"

	"github.com/shopspring/decimal"
)

// TimestampLayout is the storage format for movement timestamps.
// It sorts lexicographically, which the movement ordering queries rely on.
const TimestampLayout = "2006-01-02 15:04:05"

// DateLayout is the storage format for report period boundaries.
const DateLayout = "2006-01-02"

// =============================================================================
// PRODUCT
// =============================================================================

// Product is a catalog row. Stock and the cumulative totals are maintained
// by the Ledger; TotalValue and Utility are derived:
//
//	TotalValue = Stock * PurchasePrice
//	Utility    = TotalOutflows*SalePrice - TotalInflows*PurchasePrice
type Product struct {
	Code          string
	Description   string
	TotalInflows  int64
	TotalOutflows int64
	Stock         int64
	PurchasePrice decimal.Decimal
	SalePrice     decimal.Decimal
	TotalValue    decimal.Decimal
	Utility       decimal.Decimal
}

// Recompute refreshes the derived fields from the current totals and prices.
func (p *Product) Recompute() {
	p.TotalValue = decimal.NewFromInt(p.Stock).Mul(p.PurchasePrice)
	p.Utility = decimal.NewFromInt(p.TotalOutflows).Mul(p.SalePrice).
		Sub(decimal.NewFromInt(p.TotalInflows).Mul(p.PurchasePrice))
}

// =============================================================================
// MOVEMENT
// =============================================================================

// MovementKind selects one of the two movement relations.
type MovementKind string

const (
	Inflow  MovementKind = "entrada"
	Outflow MovementKind = "salida"
)

// Movement is one stock inflow or outflow. Description is a copy of the
// product description at insert time, not a live join.
type Movement struct {
	ID          int64
	Kind        MovementKind
	Code        string
	Description string
	Quantity    int64
	Date        time.Time
}

// =============================================================================
// REPORT RECORD
// =============================================================================

// ReportRecord is the persisted metadata of a generated period report.
// The spreadsheet file itself lives on disk at FilePath; only the metadata
// row is owned by the database.
type ReportRecord struct {
	ID          int64
	Date        time.Time
	Label       string
	Temporality string
	FilePath    string
}

// =============================================================================
// TYPED QUERY RECORDS
// =============================================================================

// MovementView is one row of the unified movement history returned by
// SearchMovements. StockAfter carries the product's CURRENT stock, not a
// point-in-time reconstruction; StockTimeSeries provides the true curve.
type MovementView struct {
	Date          time.Time
	Code          string
	Description   string
	Kind          MovementKind
	Quantity      int64
	StockAfter    int64
	PurchasePrice decimal.Decimal
	SalePrice     decimal.Decimal
	MovementValue decimal.Decimal
	StockValue    decimal.Decimal
	Utility       decimal.Decimal
}

// MonthlyFlow is one calendar-month bucket of a product's movements.
type MonthlyFlow struct {
	Month    string // "2006-01"
	Inflows  int64
	Outflows int64
}

// StockPoint is one step of the cumulative stock curve.
type StockPoint struct {
	Date  time.Time
	Stock int64
}

// ProductActivity ranks a product by total moved quantity.
type ProductActivity struct {
	Code        string
	Description string
	Inflows     int64
	Outflows    int64
}

// Total returns the combined moved quantity.
func (a ProductActivity) Total() int64 { return a.Inflows + a.Outflows }

// MovementStats is the single-row movement summary for one product.
// Pointer fields are nil when the underlying aggregate has no rows to
// average or bound — the caller renders them as "not applicable".
type MovementStats struct {
	TotalMovements   int64
	TotalInflows     int64
	TotalOutflows    int64
	AvgInflow        *decimal.Decimal
	AvgOutflow       *decimal.Decimal
	MinPurchasePrice *decimal.Decimal
	MaxPurchasePrice *decimal.Decimal
	MinSalePrice     *decimal.Decimal
	MaxSalePrice     *decimal.Decimal
	FirstMovement    *time.Time
	LastMovement     *time.Time

	// Extended figures, computed by the aggregation engine.
	RotationIndex      *decimal.Decimal // inflows/outflows; nil when outflows = 0
	AvgDaysInInventory *decimal.Decimal // nil without a rotation index
	PurchaseVariation  *decimal.Decimal // % spread of observed purchase prices; nil when zero or unobserved
	SaleVariation      *decimal.Decimal // % spread of observed sale prices; nil when zero or unobserved
}

// InventoryLine is one product row of the period report's summary sheet.
// The movement columns are restricted to the report period; Stock and the
// prices reflect the product's current state.
type InventoryLine struct {
	Code               string
	Description        string
	Inflows            int64
	Outflows           int64
	Stock              int64
	PurchasePrice      decimal.Decimal
	SalePrice          decimal.Decimal
	PurchaseValueTotal decimal.Decimal
	SaleValueTotal     decimal.Decimal
	Utility            decimal.Decimal
}

// MovementLine is one row of the period report's inflow or outflow sheet.
type MovementLine struct {
	Date        time.Time
	Code        string
	Description string
	Quantity    int64
	UnitPrice   decimal.Decimal
	LineValue   decimal.Decimal
}

// PeriodReport is the full result of GeneratePeriodReport.
type PeriodReport struct {
	From      time.Time
	To        time.Time
	Inventory []InventoryLine
	Inflows   []MovementLine
	Outflows  []MovementLine
}

// ProductOverview is the detail-dialog payload: the product row, how many
// movements it has per direction, and its most recent movements.
type ProductOverview struct {
	Product       Product
	InflowCount   int64
	OutflowCount  int64
	LastMovements []MovementView
}

// ProductTotals is the grand-total footer across the whole catalog.
type ProductTotals struct {
	Inflows            int64
	Outflows           int64
	Stock              int64
	PurchaseValueTotal decimal.Decimal
	SaleValueTotal     decimal.Decimal
	Utility            decimal.Decimal
}
