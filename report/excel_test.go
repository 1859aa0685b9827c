package report_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/multimuebles/inventario/inventory"
	"github.com/multimuebles/inventario/report"
)

func samplePeriodReport() *inventory.PeriodReport {
	return &inventory.PeriodReport{
		From: time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2025, time.February, 28, 0, 0, 0, 0, time.UTC),
		Inventory: []inventory.InventoryLine{
			{
				Code: "A1", Description: "Silla de roble",
				Inflows: 5, Outflows: 3, Stock: 5,
				PurchasePrice:      decimal.NewFromInt(10),
				SalePrice:          decimal.NewFromInt(20),
				PurchaseValueTotal: decimal.NewFromInt(50),
				SaleValueTotal:     decimal.NewFromInt(100),
				Utility:            decimal.NewFromInt(10),
			},
		},
		Inflows: []inventory.MovementLine{
			{
				Date: time.Date(2025, time.February, 14, 10, 0, 0, 0, time.UTC),
				Code: "A1", Description: "Silla de roble", Quantity: 5,
				UnitPrice: decimal.NewFromInt(10),
				LineValue: decimal.NewFromInt(50),
			},
		},
		Outflows: []inventory.MovementLine{
			{
				Date: time.Date(2025, time.February, 20, 16, 0, 0, 0, time.UTC),
				Code: "A1", Description: "Silla de roble", Quantity: 3,
				UnitPrice: decimal.NewFromInt(20),
				LineValue: decimal.NewFromInt(60),
			},
		},
	}
}

func TestWriteWorkbook_RoundTrip(t *testing.T) {
	// GIVEN: A period report with one product and one movement each way
	// WHEN: Writing the workbook and reading it back
	// THEN: The three sheets reproduce the result sets row for row

	path := filepath.Join(t.TempDir(), "reporte.xlsx")
	require.NoError(t, report.WriteWorkbook(samplePeriodReport(), path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })

	assert.ElementsMatch(t, []string{"Inventario", "Entradas", "Salidas"}, f.GetSheetList())

	// Branding block
	title, err := f.GetCellValue("Inventario", "A1")
	require.NoError(t, err)
	assert.Equal(t, "MULTIMUEBLES LA PLATA", title)

	subtitle, err := f.GetCellValue("Inventario", "A2")
	require.NoError(t, err)
	assert.Equal(t, "Periodo: 2025-02-01 a 2025-02-28", subtitle)

	// Summary sheet: headers at row 4, data from row 5
	header, err := f.GetCellValue("Inventario", "A4")
	require.NoError(t, err)
	assert.Equal(t, "Código", header)

	code, err := f.GetCellValue("Inventario", "A5")
	require.NoError(t, err)
	assert.Equal(t, "A1", code)

	stock, err := f.GetCellValue("Inventario", "E5")
	require.NoError(t, err)
	assert.Equal(t, "5", stock)

	// Detail sheets
	inflowQty, err := f.GetCellValue("Entradas", "D5")
	require.NoError(t, err)
	assert.Equal(t, "5", inflowQty)

	outflowDate, err := f.GetCellValue("Salidas", "A5")
	require.NoError(t, err)
	assert.Equal(t, "2025-02-20 16:00:00", outflowDate)
}

func TestWriteWorkbook_CurrencyFormat(t *testing.T) {
	// Money cells carry the raw number; the style supplies the currency
	// rendering.

	path := filepath.Join(t.TempDir(), "reporte.xlsx")
	require.NoError(t, report.WriteWorkbook(samplePeriodReport(), path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })

	raw, err := f.GetCellValue("Inventario", "F5", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	assert.Equal(t, "10", raw)

	styleID, err := f.GetCellStyle("Inventario", "F5")
	require.NoError(t, err)
	style, err := f.GetStyle(styleID)
	require.NoError(t, err)
	require.NotNil(t, style.CustomNumFmt)
	assert.Equal(t, `"$"#,##0.00`, *style.CustomNumFmt)
}

func TestWriteWorkbook_EmptyReport(t *testing.T) {
	// An empty period still produces a well-formed workbook.

	path := filepath.Join(t.TempDir(), "reporte.xlsx")
	r := &inventory.PeriodReport{
		From: time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2025, time.January, 31, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, report.WriteWorkbook(r, path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })

	rows, err := f.GetRows("Inventario")
	require.NoError(t, err)
	assert.LessOrEqual(t, len(rows), 4, "no data rows below the header")
}
