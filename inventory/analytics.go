/*
analytics.go - Read-only aggregation engine

PURPOSE:
  Wraps AnalyticsStore with the domain rules that do not belong in SQL:
  the search-pattern gate, the derived statistics (rotation index, days
  in inventory, price spreads), and period-report assembly.

SEE ALSO:
  - store.go: AnalyticsStore interface
  - report/: turns PeriodReport into a styled spreadsheet
*/
package inventory

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// MinSearchPatternLength is the minimum pattern length for movement
// search. Shorter patterns return an empty result without touching the
// database; on a unified scan of both movement relations a one or two
// character pattern matches nearly everything.
const MinSearchPatternLength = 3

// DefaultTopProducts is the ranking size used when TopMovedProducts is
// called with a non-positive limit.
const DefaultTopProducts = 5

// Analytics answers the read-only aggregation queries.
type Analytics struct {
	store AnalyticsStore
}

// NewAnalytics creates the aggregation engine over the given store.
func NewAnalytics(store AnalyticsStore) *Analytics {
	return &Analytics{store: store}
}

// =============================================================================
// SEARCH
// =============================================================================

// SearchMovements returns the unified movement history filtered by a
// case-insensitive substring match on code or description. Patterns
// shorter than MinSearchPatternLength yield an empty result.
func (a *Analytics) SearchMovements(ctx context.Context, pattern string) ([]MovementView, error) {
	pattern = strings.TrimSpace(pattern)
	if utf8.RuneCountInString(pattern) < MinSearchPatternLength {
		return []MovementView{}, nil
	}
	return a.store.SearchMovements(ctx, pattern)
}

// =============================================================================
// SERIES
// =============================================================================

// MonthlyFlowSeries buckets a product's movements by calendar month.
func (a *Analytics) MonthlyFlowSeries(ctx context.Context, code string) ([]MonthlyFlow, error) {
	if code == "" {
		return nil, &ValidationError{Field: "codigo", Reason: "must not be empty"}
	}
	return a.store.MonthlyFlowSeries(ctx, code)
}

// StockTimeSeries reconstructs a product's stock curve from its movement
// history, one point per movement.
func (a *Analytics) StockTimeSeries(ctx context.Context, code string) ([]StockPoint, error) {
	if code == "" {
		return nil, &ValidationError{Field: "codigo", Reason: "must not be empty"}
	}
	return a.store.StockTimeSeries(ctx, code)
}

// TopMovedProducts ranks products by combined moved quantity, excluding
// products with no movements at all. A non-positive limit falls back to
// DefaultTopProducts.
func (a *Analytics) TopMovedProducts(ctx context.Context, limit int) ([]ProductActivity, error) {
	if limit <= 0 {
		limit = DefaultTopProducts
	}
	return a.store.TopMovedProducts(ctx, limit)
}

// =============================================================================
// STATISTICS
// =============================================================================

// SummaryStatistics returns the movement summary for one product, with
// the derived figures filled in. Figures whose inputs are absent stay
// nil rather than being forced to zero.
func (a *Analytics) SummaryStatistics(ctx context.Context, code string) (*MovementStats, error) {
	if code == "" {
		return nil, &ValidationError{Field: "codigo", Reason: "must not be empty"}
	}

	stats, err := a.store.MovementStatistics(ctx, code)
	if err != nil {
		return nil, err
	}

	stats.RotationIndex = rotationIndex(stats)
	stats.AvgDaysInInventory = avgDaysInInventory(stats)
	stats.PurchaseVariation = priceSpread(stats.MinPurchasePrice, stats.MaxPurchasePrice)
	stats.SaleVariation = priceSpread(stats.MinSalePrice, stats.MaxSalePrice)
	return stats, nil
}

// rotationIndex is inflows/outflows. Undefined when nothing has flowed out.
func rotationIndex(s *MovementStats) *decimal.Decimal {
	if s.TotalOutflows == 0 {
		return nil
	}
	r := decimal.NewFromInt(s.TotalInflows).
		Div(decimal.NewFromInt(s.TotalOutflows)).
		Round(2)
	return &r
}

// avgDaysInInventory divides the observed movement span by the rotation
// index. Undefined without a rotation index or with a single movement.
func avgDaysInInventory(s *MovementStats) *decimal.Decimal {
	if s.RotationIndex == nil || s.RotationIndex.IsZero() {
		return nil
	}
	if s.FirstMovement == nil || s.LastMovement == nil {
		return nil
	}
	span := s.LastMovement.Sub(*s.FirstMovement)
	days := decimal.NewFromFloat(span.Hours() / 24)
	d := days.Div(*s.RotationIndex).Round(1)
	return &d
}

// priceSpread is the (max-min)/min percentage. Undefined when the bounds
// are absent, min is zero, or the bounds coincide (a zero spread is
// reported as not applicable, not as 0%).
func priceSpread(min, max *decimal.Decimal) *decimal.Decimal {
	if min == nil || max == nil || min.IsZero() || max.Equal(*min) {
		return nil
	}
	v := max.Sub(*min).Div(*min).Mul(decimal.NewFromInt(100)).Round(2)
	return &v
}

// =============================================================================
// PRODUCT DETAIL AND TOTALS
// =============================================================================

// ProductOverview returns the product row with its movement counts and
// its lastN most recent movements.
func (a *Analytics) ProductOverview(ctx context.Context, code string, lastN int) (*ProductOverview, error) {
	if code == "" {
		return nil, &ValidationError{Field: "codigo", Reason: "must not be empty"}
	}
	if lastN <= 0 {
		lastN = 10
	}
	return a.store.ProductOverview(ctx, code, lastN)
}

// ProductTotals returns the grand-total footer across the catalog.
func (a *Analytics) ProductTotals(ctx context.Context) (*ProductTotals, error) {
	return a.store.ProductTotals(ctx)
}

// =============================================================================
// PERIOD REPORT
// =============================================================================

// GeneratePeriodReport assembles the three result sets of a period
// report: the per-product summary and the inflow and outflow listings,
// all restricted to [from, to] inclusive.
func (a *Analytics) GeneratePeriodReport(ctx context.Context, from, to time.Time) (*PeriodReport, error) {
	if to.Before(from) {
		return nil, &ValidationError{Field: "periodo", Reason: "end date precedes start date"}
	}

	inventory, err := a.store.PeriodInventory(ctx, from, to)
	if err != nil {
		return nil, err
	}
	inflows, err := a.store.PeriodMovements(ctx, Inflow, from, to)
	if err != nil {
		return nil, err
	}
	outflows, err := a.store.PeriodMovements(ctx, Outflow, from, to)
	if err != nil {
		return nil, err
	}

	return &PeriodReport{
		From:      from,
		To:        to,
		Inventory: inventory,
		Inflows:   inflows,
		Outflows:  outflows,
	}, nil
}
