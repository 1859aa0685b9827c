package sqlite_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/multimuebles/inventario/inventory"
	"github.com/multimuebles/inventario/store/sqlite"
)

func newTestStore(t *testing.T) *sqlite.Store {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testProduct(code string) inventory.Product {
	return inventory.Product{
		Code:          code,
		Description:   "Silla de roble",
		PurchasePrice: decimal.NewFromInt(10),
		SalePrice:     decimal.NewFromInt(20),
		TotalValue:    decimal.Zero,
		Utility:       decimal.Zero,
	}
}

// =============================================================================
// MIGRATION TESTS
// =============================================================================

func TestStore_New_MigrationIsIdempotent(t *testing.T) {
	// GIVEN: A database file already migrated and populated
	// WHEN: Opening it a second time
	// THEN: The schema survives and the data is still there

	path := filepath.Join(t.TempDir(), "inventario.db")
	ctx := context.Background()

	store, err := sqlite.New(path)
	require.NoError(t, err)
	require.NoError(t, store.InsertProduct(ctx, testProduct("A1")))
	require.NoError(t, store.Close())

	store, err = sqlite.New(path)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	p, err := store.GetProduct(ctx, "A1")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "Silla de roble", p.Description)
}

// =============================================================================
// PRODUCT ROW TESTS
// =============================================================================

func TestStore_InsertProduct_DuplicateKey(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.InsertProduct(ctx, testProduct("A1")))

	err := store.InsertProduct(ctx, testProduct("A1"))
	var dupErr *inventory.DuplicateKeyError
	assert.ErrorAs(t, err, &dupErr)
}

func TestStore_GetProduct_DecimalRoundTrip(t *testing.T) {
	// Prices persist as text and must survive unchanged, cents included.

	store := newTestStore(t)
	ctx := context.Background()

	p := testProduct("A1")
	p.PurchasePrice, _ = decimal.NewFromString("10.99")
	p.TotalValue, _ = decimal.NewFromString("54.95")
	require.NoError(t, store.InsertProduct(ctx, p))

	got, err := store.GetProduct(ctx, "A1")
	require.NoError(t, err)
	assert.Equal(t, "10.99", got.PurchasePrice.String())
	assert.Equal(t, "54.95", got.TotalValue.String())
}

func TestStore_GetProduct_Missing_ReturnsNil(t *testing.T) {
	store := newTestStore(t)

	p, err := store.GetProduct(context.Background(), "NOPE")
	require.NoError(t, err)
	assert.Nil(t, p)
}

// =============================================================================
// MOVEMENT ROW TESTS
// =============================================================================

func TestStore_Movements_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	at := time.Date(2025, time.March, 10, 14, 30, 0, 0, time.UTC)

	m := inventory.Movement{
		Kind:        inventory.Inflow,
		Code:        "A1",
		Description: "Silla de roble",
		Quantity:    5,
		Date:        at,
	}
	require.NoError(t, store.InsertMovement(ctx, m))

	list, err := store.ListMovements(ctx, inventory.Inflow)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, int64(5), list[0].Quantity)
	assert.True(t, list[0].Date.Equal(at))
	assert.Equal(t, inventory.Inflow, list[0].Kind)

	got, err := store.GetMovementAt(ctx, inventory.Inflow, "A1", at)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, list[0].ID, got.ID)

	// The other relation stays empty
	outflows, err := store.ListMovements(ctx, inventory.Outflow)
	require.NoError(t, err)
	assert.Empty(t, outflows)
}

func TestStore_DeleteMovementAt_ReportsExistence(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	at := time.Date(2025, time.March, 10, 14, 30, 0, 0, time.UTC)

	ok, err := store.DeleteMovementAt(ctx, inventory.Inflow, "A1", at)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.InsertMovement(ctx, inventory.Movement{
		Kind: inventory.Inflow, Code: "A1", Description: "Silla", Quantity: 5, Date: at,
	}))

	ok, err = store.DeleteMovementAt(ctx, inventory.Inflow, "A1", at)
	require.NoError(t, err)
	assert.True(t, ok)
}

// =============================================================================
// TRANSACTION TESTS
// =============================================================================

func TestStore_WithTx_RollsBackOnError(t *testing.T) {
	// GIVEN: A transaction that inserts a product and then fails
	// WHEN: The closure returns an error
	// THEN: Nothing is visible afterwards

	store := newTestStore(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := store.WithTx(ctx, func(tx inventory.Store) error {
		if err := tx.InsertProduct(ctx, testProduct("A1")); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	p, err := store.GetProduct(ctx, "A1")
	require.NoError(t, err)
	assert.Nil(t, p, "rolled-back insert must not be visible")
}

func TestStore_WithTx_CommitsOnSuccess(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.WithTx(ctx, func(tx inventory.Store) error {
		if err := tx.InsertProduct(ctx, testProduct("A1")); err != nil {
			return err
		}
		p, err := tx.GetProduct(ctx, "A1")
		if err != nil {
			return err
		}
		p.Stock = 5
		return tx.UpdateProduct(ctx, *p)
	})
	require.NoError(t, err)

	p, err := store.GetProduct(ctx, "A1")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, int64(5), p.Stock)
}

// =============================================================================
// REPORT HISTORY TESTS
// =============================================================================

func TestStore_ReportRecords_CRUD(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.InsertReportRecord(ctx, inventory.ReportRecord{
		Date:        time.Date(2025, time.March, 10, 14, 30, 0, 0, time.UTC),
		Label:       "Reporte 2025-02-01 a 2025-02-28",
		Temporality: "0 mes(es), 27 día(s)",
		FilePath:    "/tmp/reporte.xlsx",
	})
	require.NoError(t, err)
	assert.Greater(t, id, int64(0))

	records, err := store.ListReportRecords(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Reporte 2025-02-01 a 2025-02-28", records[0].Label)
	assert.Equal(t, 10, records[0].Date.Day())

	ok, err := store.RenameReportRecord(ctx, id, "Febrero")
	require.NoError(t, err)
	assert.True(t, ok)

	records, err = store.ListReportRecords(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Febrero", records[0].Label)

	ok, err = store.DeleteReportRecord(ctx, id)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.DeleteReportRecord(ctx, id)
	require.NoError(t, err)
	assert.False(t, ok, "second delete finds nothing")
}
