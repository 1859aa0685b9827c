/*
ledger.go - Mutation engine for products and movements

PURPOSE:
  The Ledger applies inflow/outflow mutations to a product's running totals
  and keeps the derived fields consistent with the movement history.

INVARIANTS:
  1. Every multi-row mutation is atomic: all effects commit or none do.
  2. TotalValue = Stock * PurchasePrice after every mutation.
  3. Utility = TotalOutflows*SalePrice - TotalInflows*PurchasePrice.
  4. Movements denormalize the product description at insert time.

STOCK POLICY:
  Two behaviors of the system this replaces are surprising but deliberate
  here, behind explicit switches (both default to the observed behavior):

  - DeductStockOnOutflow=false: recording an outflow increases
    TotalOutflows but does NOT decrement Stock. The product owner has not
    confirmed whether this is a defect; do not flip the default without
    that confirmation.
  - CompensateOnDelete=false: deleting a movement removes the row without
    compensating the product totals.

SEE ALSO:
  - store.go: persistence interface
  - analytics.go: read side
*/
package inventory

import (
	"context"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// POLICY
// =============================================================================

// Policy controls the two historically surprising ledger behaviors.
// The zero value reproduces the observed behavior of the system this
// replaces; see the package comment before changing either default.
type Policy struct {
	// DeductStockOnOutflow makes RecordOutflow/EditOutflow maintain Stock
	// symmetrically with the inflow side.
	DeductStockOnOutflow bool

	// CompensateOnDelete makes DeleteMovement roll the deleted quantity
	// out of the product's totals and derived fields.
	CompensateOnDelete bool
}

// =============================================================================
// LEDGER
// =============================================================================

// Ledger maintains per-product running totals as movements are created,
// edited, or deleted.
type Ledger struct {
	store  Store
	policy Policy
}

// NewLedger creates a ledger over the given store.
func NewLedger(store Store, policy Policy) *Ledger {
	return &Ledger{store: store, policy: policy}
}

// =============================================================================
// PRODUCT OPERATIONS
// =============================================================================

// CreateProduct inserts a new catalog row with all cumulative fields at
// zero. Fails with DuplicateKeyError if the code is taken.
func (l *Ledger) CreateProduct(ctx context.Context, code, description string, purchasePrice, salePrice decimal.Decimal) error {
	if code == "" {
		return &ValidationError{Field: "codigo", Reason: "must not be empty"}
	}
	if description == "" {
		return &ValidationError{Field: "descripcion", Reason: "must not be empty"}
	}
	if err := validatePrice("precio_compra", purchasePrice); err != nil {
		return err
	}
	if err := validatePrice("precio_venta", salePrice); err != nil {
		return err
	}

	p := Product{
		Code:          code,
		Description:   description,
		PurchasePrice: purchasePrice,
		SalePrice:     salePrice,
		TotalValue:    decimal.Zero,
		Utility:       decimal.Zero,
	}
	return l.store.InsertProduct(ctx, p)
}

// UpdateProduct changes description and prices, recomputes the derived
// fields from the current totals, and repairs the denormalized description
// copies on every movement row of the product. One atomic unit.
func (l *Ledger) UpdateProduct(ctx context.Context, code, description string, purchasePrice, salePrice decimal.Decimal) error {
	if description == "" {
		return &ValidationError{Field: "descripcion", Reason: "must not be empty"}
	}
	if err := validatePrice("precio_compra", purchasePrice); err != nil {
		return err
	}
	if err := validatePrice("precio_venta", salePrice); err != nil {
		return err
	}

	return l.store.WithTx(ctx, func(tx Store) error {
		p, err := tx.GetProduct(ctx, code)
		if err != nil {
			return err
		}
		if p == nil {
			return &NotFoundError{Entity: "product", Key: code}
		}

		p.Description = description
		p.PurchasePrice = purchasePrice
		p.SalePrice = salePrice
		p.Recompute()

		if err := tx.UpdateProduct(ctx, *p); err != nil {
			return err
		}
		return tx.UpdateMovementDescriptions(ctx, code, description)
	})
}

// DeleteProduct removes the catalog row. Movement rows are NOT cascaded;
// orphaned movements are tolerated.
func (l *Ledger) DeleteProduct(ctx context.Context, code string) error {
	deleted, err := l.store.DeleteProduct(ctx, code)
	if err != nil {
		return err
	}
	if !deleted {
		return &NotFoundError{Entity: "product", Key: code}
	}
	return nil
}

// =============================================================================
// MOVEMENT OPERATIONS
// =============================================================================

// RecordInflow inserts an entrada and increments the product's
// TotalInflows and Stock by quantity, recomputing the derived fields.
func (l *Ledger) RecordInflow(ctx context.Context, code string, quantity int64, at time.Time) error {
	return l.record(ctx, Inflow, code, quantity, at)
}

// RecordOutflow inserts a salida and increments TotalOutflows by quantity.
// Stock is only decremented when Policy.DeductStockOnOutflow is set.
func (l *Ledger) RecordOutflow(ctx context.Context, code string, quantity int64, at time.Time) error {
	return l.record(ctx, Outflow, code, quantity, at)
}

func (l *Ledger) record(ctx context.Context, kind MovementKind, code string, quantity int64, at time.Time) error {
	if quantity <= 0 {
		return &ValidationError{Field: "cantidad", Reason: "must be greater than zero"}
	}

	return l.store.WithTx(ctx, func(tx Store) error {
		p, err := tx.GetProduct(ctx, code)
		if err != nil {
			return err
		}
		if p == nil {
			return &NotFoundError{Entity: "product", Key: code}
		}

		m := Movement{
			Kind:        kind,
			Code:        code,
			Description: p.Description,
			Quantity:    quantity,
			Date:        at,
		}
		if err := tx.InsertMovement(ctx, m); err != nil {
			return err
		}

		l.apply(p, kind, quantity)
		p.Recompute()
		return tx.UpdateProduct(ctx, *p)
	})
}

// EditInflow changes an entrada's quantity and applies the delta to the
// product's totals and stock. All steps are one atomic unit.
func (l *Ledger) EditInflow(ctx context.Context, movementID, newQuantity int64) error {
	return l.edit(ctx, Inflow, movementID, newQuantity)
}

// EditOutflow is the outflow mirror of EditInflow.
func (l *Ledger) EditOutflow(ctx context.Context, movementID, newQuantity int64) error {
	return l.edit(ctx, Outflow, movementID, newQuantity)
}

func (l *Ledger) edit(ctx context.Context, kind MovementKind, movementID, newQuantity int64) error {
	if newQuantity <= 0 {
		return &ValidationError{Field: "cantidad", Reason: "must be greater than zero"}
	}

	return l.store.WithTx(ctx, func(tx Store) error {
		m, err := tx.GetMovement(ctx, kind, movementID)
		if err != nil {
			return err
		}
		if m == nil {
			return &NotFoundError{Entity: string(kind), Key: formatID(movementID)}
		}

		delta := newQuantity - m.Quantity
		if err := tx.UpdateMovementQuantity(ctx, kind, movementID, newQuantity); err != nil {
			return err
		}

		p, err := tx.GetProduct(ctx, m.Code)
		if err != nil {
			return err
		}
		if p == nil {
			return &NotFoundError{Entity: "product", Key: m.Code}
		}

		l.apply(p, kind, delta)
		p.Recompute()
		return tx.UpdateProduct(ctx, *p)
	})
}

// DeleteMovement removes the movement identified by the (code, timestamp)
// pair. With the default policy the product totals are left untouched;
// CompensateOnDelete rolls the quantity back out of the totals.
func (l *Ledger) DeleteMovement(ctx context.Context, kind MovementKind, code string, at time.Time) error {
	return l.store.WithTx(ctx, func(tx Store) error {
		// Deletion by (code, timestamp) removes every row at that
		// instant, so compensation must cover the summed quantity,
		// not a single row.
		var compensation int64
		if l.policy.CompensateOnDelete {
			total, err := tx.SumMovementsAt(ctx, kind, code, at)
			if err != nil {
				return err
			}
			compensation = total
		}

		ok, err := tx.DeleteMovementAt(ctx, kind, code, at)
		if err != nil {
			return err
		}
		if !ok {
			return &NotFoundError{Entity: string(kind), Key: code + " @ " + at.Format(TimestampLayout)}
		}

		if compensation == 0 {
			return nil
		}
		p, err := tx.GetProduct(ctx, code)
		if err != nil {
			return err
		}
		if p == nil {
			return nil // orphaned movement, nothing to compensate
		}
		l.apply(p, kind, -compensation)
		p.Recompute()
		return tx.UpdateProduct(ctx, *p)
	})
}

// =============================================================================
// HELPERS
// =============================================================================

// apply adds a signed quantity to the totals for one movement direction.
func (l *Ledger) apply(p *Product, kind MovementKind, delta int64) {
	switch kind {
	case Inflow:
		p.TotalInflows += delta
		p.Stock += delta
	case Outflow:
		p.TotalOutflows += delta
		if l.policy.DeductStockOnOutflow {
			p.Stock -= delta
		}
	}
}

func validatePrice(field string, price decimal.Decimal) error {
	if price.IsNegative() {
		return &ValidationError{Field: field, Reason: "must not be negative"}
	}
	return nil
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
