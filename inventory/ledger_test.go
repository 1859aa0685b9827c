package inventory_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/multimuebles/inventario/inventory"
	"github.com/multimuebles/inventario/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestLedger(t *testing.T, policy inventory.Policy) (*inventory.Ledger, *sqlite.Store) {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return inventory.NewLedger(store, policy), store
}

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func createTestProduct(t *testing.T, ledger *inventory.Ledger, code string) {
	t.Helper()
	err := ledger.CreateProduct(context.Background(), code, "Silla de roble",
		mustDecimal(t, "10"), mustDecimal(t, "20"))
	require.NoError(t, err)
}

var testDate = time.Date(2025, time.March, 10, 14, 30, 0, 0, time.UTC)

// =============================================================================
// PRODUCT TESTS
// =============================================================================

func TestLedger_CreateProduct_StartsAtZero(t *testing.T) {
	// GIVEN: An empty catalog
	// WHEN: Creating a product
	// THEN: All cumulative fields start at zero

	ledger, store := newTestLedger(t, inventory.Policy{})
	ctx := context.Background()

	createTestProduct(t, ledger, "A1")

	p, err := store.GetProduct(ctx, "A1")
	require.NoError(t, err)
	require.NotNil(t, p)

	assert.Equal(t, int64(0), p.TotalInflows)
	assert.Equal(t, int64(0), p.TotalOutflows)
	assert.Equal(t, int64(0), p.Stock)
	assert.True(t, p.TotalValue.IsZero(), "valor_total should start at zero")
	assert.True(t, p.Utility.IsZero(), "utilidad should start at zero")
}

func TestLedger_CreateProduct_DuplicateCode_Rejected(t *testing.T) {
	// GIVEN: Product A1 exists
	// WHEN: Creating A1 again
	// THEN: DuplicateKeyError, and the original row is untouched

	ledger, store := newTestLedger(t, inventory.Policy{})
	ctx := context.Background()

	createTestProduct(t, ledger, "A1")

	err := ledger.CreateProduct(ctx, "A1", "Otra silla",
		mustDecimal(t, "99"), mustDecimal(t, "199"))
	assert.Error(t, err)

	var dupErr *inventory.DuplicateKeyError
	assert.ErrorAs(t, err, &dupErr)
	assert.Equal(t, "A1", dupErr.Code)
	assert.True(t, inventory.IsDuplicateKey(err))

	p, err := store.GetProduct(ctx, "A1")
	require.NoError(t, err)
	assert.Equal(t, "Silla de roble", p.Description, "original row should be untouched")
	assert.True(t, p.PurchasePrice.Equal(mustDecimal(t, "10")))
}

func TestLedger_CreateProduct_Validation(t *testing.T) {
	ledger, _ := newTestLedger(t, inventory.Policy{})
	ctx := context.Background()

	err := ledger.CreateProduct(ctx, "", "Silla", decimal.Zero, decimal.Zero)
	assert.True(t, inventory.IsValidation(err), "empty code should be rejected")

	err = ledger.CreateProduct(ctx, "A1", "", decimal.Zero, decimal.Zero)
	assert.True(t, inventory.IsValidation(err), "empty description should be rejected")

	err = ledger.CreateProduct(ctx, "A1", "Silla", mustDecimal(t, "-1"), decimal.Zero)
	assert.True(t, inventory.IsValidation(err), "negative price should be rejected")
}

func TestLedger_UpdateProduct_RecomputesAndPropagates(t *testing.T) {
	// GIVEN: A product with movements in both directions
	// WHEN: Editing description and prices
	// THEN: Derived fields are recomputed from the NEW prices and the
	//       description copy on every movement row is rewritten

	ledger, store := newTestLedger(t, inventory.Policy{})
	ctx := context.Background()

	createTestProduct(t, ledger, "A1")
	require.NoError(t, ledger.RecordInflow(ctx, "A1", 5, testDate))
	require.NoError(t, ledger.RecordOutflow(ctx, "A1", 3, testDate.Add(time.Hour)))

	err := ledger.UpdateProduct(ctx, "A1", "Silla tapizada",
		mustDecimal(t, "12"), mustDecimal(t, "25"))
	require.NoError(t, err)

	p, err := store.GetProduct(ctx, "A1")
	require.NoError(t, err)
	assert.Equal(t, "Silla tapizada", p.Description)
	// valor_total = stock * new purchase price = 5 * 12
	assert.True(t, p.TotalValue.Equal(mustDecimal(t, "60")), "valor_total = %s", p.TotalValue)
	// utilidad = 3*25 - 5*12 = 15
	assert.True(t, p.Utility.Equal(mustDecimal(t, "15")), "utilidad = %s", p.Utility)

	inflows, err := store.ListMovements(ctx, inventory.Inflow)
	require.NoError(t, err)
	require.Len(t, inflows, 1)
	assert.Equal(t, "Silla tapizada", inflows[0].Description)

	outflows, err := store.ListMovements(ctx, inventory.Outflow)
	require.NoError(t, err)
	require.Len(t, outflows, 1)
	assert.Equal(t, "Silla tapizada", outflows[0].Description)
}

func TestLedger_UpdateProduct_Missing_NotFound(t *testing.T) {
	ledger, _ := newTestLedger(t, inventory.Policy{})

	err := ledger.UpdateProduct(context.Background(), "NOPE", "Silla",
		mustDecimal(t, "1"), mustDecimal(t, "2"))
	assert.True(t, inventory.IsNotFound(err))
}

func TestLedger_DeleteProduct_KeepsMovements(t *testing.T) {
	// GIVEN: A product with an inflow
	// WHEN: Deleting the product
	// THEN: The catalog row is gone but the movement rows survive

	ledger, store := newTestLedger(t, inventory.Policy{})
	ctx := context.Background()

	createTestProduct(t, ledger, "A1")
	require.NoError(t, ledger.RecordInflow(ctx, "A1", 5, testDate))

	require.NoError(t, ledger.DeleteProduct(ctx, "A1"))

	p, err := store.GetProduct(ctx, "A1")
	require.NoError(t, err)
	assert.Nil(t, p)

	inflows, err := store.ListMovements(ctx, inventory.Inflow)
	require.NoError(t, err)
	assert.Len(t, inflows, 1, "movement rows are not cascaded")

	err = ledger.DeleteProduct(ctx, "A1")
	assert.True(t, inventory.IsNotFound(err))
}

// =============================================================================
// MOVEMENT TESTS
// =============================================================================

func TestLedger_RecordInflow_UpdatesTotals(t *testing.T) {
	// GIVEN: Product A1 priced at compra=10, venta=20
	// WHEN: Recording an inflow of 5
	// THEN: entradas_totales=5, stock=5, valor_total=50

	ledger, store := newTestLedger(t, inventory.Policy{})
	ctx := context.Background()

	createTestProduct(t, ledger, "A1")
	require.NoError(t, ledger.RecordInflow(ctx, "A1", 5, testDate))

	p, err := store.GetProduct(ctx, "A1")
	require.NoError(t, err)
	assert.Equal(t, int64(5), p.TotalInflows)
	assert.Equal(t, int64(5), p.Stock)
	assert.True(t, p.TotalValue.Equal(mustDecimal(t, "50")), "valor_total = %s", p.TotalValue)
	// utilidad = 0*20 - 5*10
	assert.True(t, p.Utility.Equal(mustDecimal(t, "-50")), "utilidad = %s", p.Utility)

	inflows, err := store.ListMovements(ctx, inventory.Inflow)
	require.NoError(t, err)
	require.Len(t, inflows, 1)
	assert.Equal(t, "Silla de roble", inflows[0].Description, "description copied at insert time")
	assert.Equal(t, int64(5), inflows[0].Quantity)
}

func TestLedger_RecordOutflow_DoesNotDeductStock(t *testing.T) {
	// GIVEN: Product A1 with 5 units in stock
	// WHEN: Recording an outflow of 3 with the default policy
	// THEN: salidas_totales=3 but stock stays 5; utilidad = 3*20 - 5*10

	ledger, store := newTestLedger(t, inventory.Policy{})
	ctx := context.Background()

	createTestProduct(t, ledger, "A1")
	require.NoError(t, ledger.RecordInflow(ctx, "A1", 5, testDate))
	require.NoError(t, ledger.RecordOutflow(ctx, "A1", 3, testDate.Add(time.Hour)))

	p, err := store.GetProduct(ctx, "A1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), p.TotalOutflows)
	assert.Equal(t, int64(5), p.Stock, "default policy leaves stock untouched on outflow")
	assert.True(t, p.TotalValue.Equal(mustDecimal(t, "50")))
	assert.True(t, p.Utility.Equal(mustDecimal(t, "10")), "utilidad = %s", p.Utility)
}

func TestLedger_RecordOutflow_DeductPolicy(t *testing.T) {
	// GIVEN: DeductStockOnOutflow is enabled
	// WHEN: Recording an outflow of 3 against 5 in stock
	// THEN: stock drops to 2 and valor_total follows

	ledger, store := newTestLedger(t, inventory.Policy{DeductStockOnOutflow: true})
	ctx := context.Background()

	createTestProduct(t, ledger, "A1")
	require.NoError(t, ledger.RecordInflow(ctx, "A1", 5, testDate))
	require.NoError(t, ledger.RecordOutflow(ctx, "A1", 3, testDate.Add(time.Hour)))

	p, err := store.GetProduct(ctx, "A1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), p.Stock)
	assert.True(t, p.TotalValue.Equal(mustDecimal(t, "20")))
}

func TestLedger_RecordMovement_Validation(t *testing.T) {
	ledger, _ := newTestLedger(t, inventory.Policy{})
	ctx := context.Background()

	createTestProduct(t, ledger, "A1")

	err := ledger.RecordInflow(ctx, "A1", 0, testDate)
	assert.True(t, inventory.IsValidation(err), "zero quantity should be rejected")

	err = ledger.RecordOutflow(ctx, "A1", -3, testDate)
	assert.True(t, inventory.IsValidation(err), "negative quantity should be rejected")

	err = ledger.RecordInflow(ctx, "NOPE", 5, testDate)
	assert.True(t, inventory.IsNotFound(err), "unknown product should be rejected")
}

func TestLedger_EditInflow_AppliesDelta(t *testing.T) {
	// GIVEN: An inflow of 5 on product A1
	// WHEN: Editing it to 8
	// THEN: The delta of +3 lands on entradas_totales, stock, valor_total

	ledger, store := newTestLedger(t, inventory.Policy{})
	ctx := context.Background()

	createTestProduct(t, ledger, "A1")
	require.NoError(t, ledger.RecordInflow(ctx, "A1", 5, testDate))

	inflows, err := store.ListMovements(ctx, inventory.Inflow)
	require.NoError(t, err)
	require.Len(t, inflows, 1)

	require.NoError(t, ledger.EditInflow(ctx, inflows[0].ID, 8))

	p, err := store.GetProduct(ctx, "A1")
	require.NoError(t, err)
	assert.Equal(t, int64(8), p.TotalInflows)
	assert.Equal(t, int64(8), p.Stock)
	assert.True(t, p.TotalValue.Equal(mustDecimal(t, "80")))
	assert.True(t, p.Utility.Equal(mustDecimal(t, "-80")))

	m, err := store.GetMovement(ctx, inventory.Inflow, inflows[0].ID)
	require.NoError(t, err)
	assert.Equal(t, int64(8), m.Quantity)
}

func TestLedger_EditOutflow_ShrinkAppliesNegativeDelta(t *testing.T) {
	// GIVEN: An outflow of 4
	// WHEN: Editing it down to 1
	// THEN: salidas_totales drops by 3 and utilidad follows

	ledger, store := newTestLedger(t, inventory.Policy{})
	ctx := context.Background()

	createTestProduct(t, ledger, "A1")
	require.NoError(t, ledger.RecordInflow(ctx, "A1", 5, testDate))
	require.NoError(t, ledger.RecordOutflow(ctx, "A1", 4, testDate.Add(time.Hour)))

	outflows, err := store.ListMovements(ctx, inventory.Outflow)
	require.NoError(t, err)
	require.Len(t, outflows, 1)

	require.NoError(t, ledger.EditOutflow(ctx, outflows[0].ID, 1))

	p, err := store.GetProduct(ctx, "A1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), p.TotalOutflows)
	// utilidad = 1*20 - 5*10
	assert.True(t, p.Utility.Equal(mustDecimal(t, "-30")), "utilidad = %s", p.Utility)
}

func TestLedger_EditMovement_Missing_NotFound(t *testing.T) {
	ledger, _ := newTestLedger(t, inventory.Policy{})

	err := ledger.EditInflow(context.Background(), 12345, 8)
	assert.True(t, inventory.IsNotFound(err))
}

func TestLedger_DeleteMovement_NoCompensationByDefault(t *testing.T) {
	// GIVEN: An inflow of 5 already applied to the totals
	// WHEN: Deleting it with the default policy
	// THEN: The row is gone but the totals keep the 5

	ledger, store := newTestLedger(t, inventory.Policy{})
	ctx := context.Background()

	createTestProduct(t, ledger, "A1")
	require.NoError(t, ledger.RecordInflow(ctx, "A1", 5, testDate))

	require.NoError(t, ledger.DeleteMovement(ctx, inventory.Inflow, "A1", testDate))

	inflows, err := store.ListMovements(ctx, inventory.Inflow)
	require.NoError(t, err)
	assert.Empty(t, inflows)

	p, err := store.GetProduct(ctx, "A1")
	require.NoError(t, err)
	assert.Equal(t, int64(5), p.TotalInflows, "default policy keeps applied totals")
	assert.Equal(t, int64(5), p.Stock)
}

func TestLedger_DeleteMovement_CompensatePolicy(t *testing.T) {
	// GIVEN: CompensateOnDelete is enabled
	// WHEN: Deleting the inflow of 5
	// THEN: The totals roll back to zero

	ledger, store := newTestLedger(t, inventory.Policy{CompensateOnDelete: true})
	ctx := context.Background()

	createTestProduct(t, ledger, "A1")
	require.NoError(t, ledger.RecordInflow(ctx, "A1", 5, testDate))

	require.NoError(t, ledger.DeleteMovement(ctx, inventory.Inflow, "A1", testDate))

	p, err := store.GetProduct(ctx, "A1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), p.TotalInflows)
	assert.Equal(t, int64(0), p.Stock)
	assert.True(t, p.TotalValue.IsZero())
}

func TestLedger_DeleteMovement_CompensatesAllRowsAtTimestamp(t *testing.T) {
	// GIVEN: Two inflows recorded at the same instant
	// WHEN: Deleting by (code, timestamp) with CompensateOnDelete on
	// THEN: Both rows disappear and the totals roll back by their sum

	ledger, store := newTestLedger(t, inventory.Policy{CompensateOnDelete: true})
	ctx := context.Background()

	createTestProduct(t, ledger, "A1")
	require.NoError(t, ledger.RecordInflow(ctx, "A1", 3, testDate))
	require.NoError(t, ledger.RecordInflow(ctx, "A1", 4, testDate))

	require.NoError(t, ledger.DeleteMovement(ctx, inventory.Inflow, "A1", testDate))

	rows, err := store.ListMovements(ctx, inventory.Inflow)
	require.NoError(t, err)
	assert.Empty(t, rows)

	p, err := store.GetProduct(ctx, "A1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), p.TotalInflows)
	assert.Equal(t, int64(0), p.Stock)
}

func TestLedger_DeleteMovement_Missing_NotFound(t *testing.T) {
	// GIVEN: No movement at the given timestamp
	// WHEN: Deleting
	// THEN: NotFoundError instead of a silent no-op

	ledger, _ := newTestLedger(t, inventory.Policy{})
	ctx := context.Background()

	createTestProduct(t, ledger, "A1")

	err := ledger.DeleteMovement(ctx, inventory.Outflow, "A1", testDate)
	assert.True(t, inventory.IsNotFound(err))
}
