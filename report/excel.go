/*
Package report turns a period report into a styled spreadsheet and keeps
the export history.

PURPOSE:
  excel.go renders the three result sets of an inventory period report
  into one workbook: a summary sheet plus one detail sheet per movement
  direction. Layout and styling follow the store's established report
  look (corporate blue header bands, currency columns, bordered grid).

SEE ALSO:
  - history.go: export service persisting the report metadata
  - inventory/analytics.go: produces the PeriodReport
*/
package report

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/multimuebles/inventario/inventory"
)

// Workbook branding and palette.
const (
	workbookTitle = "MULTIMUEBLES LA PLATA"

	titleFill  = "1F4E78"
	headerFill = "305496"

	currencyFormat = `"$"#,##0.00`
)

// Sheet names, fixed for compatibility with previously exported files.
const (
	sheetInventory = "Inventario"
	sheetInflows   = "Entradas"
	sheetOutflows  = "Salidas"
)

var inventoryHeaders = []string{
	"Código", "Descripción", "Entradas", "Salidas", "Stock",
	"Precio Compra", "Precio Venta", "Valor Compra", "Valor Venta", "Utilidad",
}

var movementHeaders = []string{
	"Fecha", "Código", "Descripción", "Cantidad", "Precio Unitario", "Valor",
}

// Columns carrying currency values, 1-based, per sheet shape.
var inventoryCurrencyCols = map[int]bool{6: true, 7: true, 8: true, 9: true, 10: true}
var movementCurrencyCols = map[int]bool{5: true, 6: true}

// WriteWorkbook renders the report into an xlsx file at path.
func WriteWorkbook(r *inventory.PeriodReport, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	styles, err := buildStyles(f)
	if err != nil {
		return fmt.Errorf("failed to build styles: %w", err)
	}

	// The default sheet becomes the summary sheet.
	if err := f.SetSheetName("Sheet1", sheetInventory); err != nil {
		return err
	}
	if _, err := f.NewSheet(sheetInflows); err != nil {
		return err
	}
	if _, err := f.NewSheet(sheetOutflows); err != nil {
		return err
	}

	subtitle := fmt.Sprintf("Periodo: %s a %s",
		r.From.Format(inventory.DateLayout), r.To.Format(inventory.DateLayout))

	if err := writeInventorySheet(f, styles, subtitle, r.Inventory); err != nil {
		return err
	}
	if err := writeMovementSheet(f, styles, sheetInflows, subtitle, r.Inflows); err != nil {
		return err
	}
	if err := writeMovementSheet(f, styles, sheetOutflows, subtitle, r.Outflows); err != nil {
		return err
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

// sheetStyles holds the style ids shared by all sheets of one workbook.
type sheetStyles struct {
	title    int
	subtitle int
	header   int
	cell     int
	currency int
}

func buildStyles(f *excelize.File) (*sheetStyles, error) {
	border := []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
	}

	title, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 16, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{titleFill}},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, err
	}

	subtitle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{headerFill}},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, err
	}

	header, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{titleFill}},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    border,
	})
	if err != nil {
		return nil, err
	}

	cell, err := f.NewStyle(&excelize.Style{Border: border})
	if err != nil {
		return nil, err
	}

	numFmt := currencyFormat
	currency, err := f.NewStyle(&excelize.Style{
		Border:       border,
		CustomNumFmt: &numFmt,
	})
	if err != nil {
		return nil, err
	}

	return &sheetStyles{
		title:    title,
		subtitle: subtitle,
		header:   header,
		cell:     cell,
		currency: currency,
	}, nil
}

// writeBanner writes the merged title and subtitle rows spanning cols
// columns, and the header row at row 4.
func writeBanner(f *excelize.File, styles *sheetStyles, sheet, subtitle string, headers []string) error {
	last, err := excelize.ColumnNumberToName(len(headers))
	if err != nil {
		return err
	}

	if err := f.MergeCell(sheet, "A1", last+"1"); err != nil {
		return err
	}
	if err := f.SetCellValue(sheet, "A1", workbookTitle); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last+"1", styles.title); err != nil {
		return err
	}
	if err := f.SetRowHeight(sheet, 1, 28); err != nil {
		return err
	}

	if err := f.MergeCell(sheet, "A2", last+"2"); err != nil {
		return err
	}
	if err := f.SetCellValue(sheet, "A2", subtitle); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A2", last+"2", styles.subtitle); err != nil {
		return err
	}

	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 4)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}
	return f.SetCellStyle(sheet, "A4", last+"4", styles.header)
}

func writeInventorySheet(f *excelize.File, styles *sheetStyles, subtitle string, lines []inventory.InventoryLine) error {
	if err := writeBanner(f, styles, sheetInventory, subtitle, inventoryHeaders); err != nil {
		return err
	}

	widths := headerWidths(inventoryHeaders)
	for i, l := range lines {
		row := []any{
			l.Code, l.Description, l.Inflows, l.Outflows, l.Stock,
			money(l.PurchasePrice), money(l.SalePrice),
			money(l.PurchaseValueTotal), money(l.SaleValueTotal), money(l.Utility),
		}
		if err := writeRow(f, styles, sheetInventory, i+5, row, inventoryCurrencyCols, widths); err != nil {
			return err
		}
	}
	return applyWidths(f, sheetInventory, widths)
}

func writeMovementSheet(f *excelize.File, styles *sheetStyles, sheet, subtitle string, lines []inventory.MovementLine) error {
	if err := writeBanner(f, styles, sheet, subtitle, movementHeaders); err != nil {
		return err
	}

	widths := headerWidths(movementHeaders)
	for i, l := range lines {
		row := []any{
			l.Date.Format(inventory.TimestampLayout),
			l.Code, l.Description, l.Quantity,
			money(l.UnitPrice), money(l.LineValue),
		}
		if err := writeRow(f, styles, sheet, i+5, row, movementCurrencyCols, widths); err != nil {
			return err
		}
	}
	return applyWidths(f, sheet, widths)
}

func writeRow(f *excelize.File, styles *sheetStyles, sheet string, rowNum int, values []any, currencyCols map[int]bool, widths []float64) error {
	for i, v := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, rowNum)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return err
		}

		style := styles.cell
		if currencyCols[i+1] {
			style = styles.currency
		}
		if err := f.SetCellStyle(sheet, cell, cell, style); err != nil {
			return err
		}

		if w := contentWidth(v); w > widths[i] {
			widths[i] = w
		}
	}
	return nil
}

// money converts to float for the spreadsheet cell; the number format
// handles display precision.
func money(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}

func headerWidths(headers []string) []float64 {
	widths := make([]float64, len(headers))
	for i, h := range headers {
		widths[i] = float64(len([]rune(h))) + 4
	}
	return widths
}

func contentWidth(v any) float64 {
	return float64(len([]rune(fmt.Sprintf("%v", v)))) + 4
}

func applyWidths(f *excelize.File, sheet string, widths []float64) error {
	for i, w := range widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, col, col, w); err != nil {
			return err
		}
	}
	return nil
}
