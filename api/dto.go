/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Request types carry go-playground/validator struct tags; handlers run
  the validator before touching the domain. Prices travel as decimal
  strings so no float ever touches a money value.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"github.com/shopspring/decimal"

	"github.com/multimuebles/inventario/inventory"
)

// =============================================================================
// PRODUCT TYPES
// =============================================================================

// ProductDTO represents a catalog row in API responses. Field names match
// the storage schema so the desktop frontend can render them directly.
type ProductDTO struct {
	Code          string `json:"codigo"`
	Description   string `json:"descripcion"`
	TotalInflows  int64  `json:"entradas_totales"`
	TotalOutflows int64  `json:"salidas_totales"`
	Stock         int64  `json:"stock"`
	PurchasePrice string `json:"precio_compra"`
	SalePrice     string `json:"precio_venta"`
	TotalValue    string `json:"valor_total"`
	Utility       string `json:"utilidad"`
}

func toProductDTO(p inventory.Product) ProductDTO {
	return ProductDTO{
		Code:          p.Code,
		Description:   p.Description,
		TotalInflows:  p.TotalInflows,
		TotalOutflows: p.TotalOutflows,
		Stock:         p.Stock,
		PurchasePrice: p.PurchasePrice.String(),
		SalePrice:     p.SalePrice.String(),
		TotalValue:    p.TotalValue.String(),
		Utility:       p.Utility.String(),
	}
}

// CreateProductRequest is the request to create a product.
type CreateProductRequest struct {
	Code          string `json:"codigo" validate:"required"`
	Description   string `json:"descripcion" validate:"required"`
	PurchasePrice string `json:"precio_compra" validate:"required"`
	SalePrice     string `json:"precio_venta" validate:"required"`
}

// UpdateProductRequest is the request to edit a product's description
// and prices.
type UpdateProductRequest struct {
	Description   string `json:"descripcion" validate:"required"`
	PurchasePrice string `json:"precio_compra" validate:"required"`
	SalePrice     string `json:"precio_venta" validate:"required"`
}

// ProductTotalsDTO is the grand-total footer across the catalog.
type ProductTotalsDTO struct {
	Inflows            int64  `json:"entradas"`
	Outflows           int64  `json:"salidas"`
	Stock              int64  `json:"stock"`
	PurchaseValueTotal string `json:"valor_compra_total"`
	SaleValueTotal     string `json:"valor_venta_total"`
	Utility            string `json:"utilidad"`
}

// ProductOverviewDTO is the product detail payload.
type ProductOverviewDTO struct {
	Product       ProductDTO        `json:"producto"`
	InflowCount   int64             `json:"num_entradas"`
	OutflowCount  int64             `json:"num_salidas"`
	LastMovements []MovementViewDTO `json:"ultimos_movimientos"`
}

// =============================================================================
// MOVEMENT TYPES
// =============================================================================

// MovementDTO represents one inflow or outflow row.
type MovementDTO struct {
	ID          int64  `json:"id"`
	Code        string `json:"codigo"`
	Description string `json:"descripcion"`
	Quantity    int64  `json:"cantidad"`
	Date        string `json:"fecha"`
}

func toMovementDTO(m inventory.Movement) MovementDTO {
	return MovementDTO{
		ID:          m.ID,
		Code:        m.Code,
		Description: m.Description,
		Quantity:    m.Quantity,
		Date:        m.Date.Format(inventory.TimestampLayout),
	}
}

// RecordMovementRequest is the request to record an inflow or outflow.
// Date is optional; the server clock is used when absent.
type RecordMovementRequest struct {
	Code     string `json:"codigo" validate:"required"`
	Quantity int64  `json:"cantidad" validate:"required,gt=0"`
	Date     string `json:"fecha" validate:"omitempty"`
}

// EditMovementRequest is the request to change a movement's quantity.
type EditMovementRequest struct {
	Quantity int64 `json:"cantidad" validate:"required,gt=0"`
}

// MovementViewDTO is one row of the unified movement history.
type MovementViewDTO struct {
	Date          string `json:"fecha"`
	Code          string `json:"codigo"`
	Description   string `json:"descripcion"`
	Kind          string `json:"tipo"`
	Quantity      int64  `json:"cantidad"`
	Stock         int64  `json:"stock"`
	PurchasePrice string `json:"precio_compra"`
	SalePrice     string `json:"precio_venta"`
	MovementValue string `json:"valor_movimiento"`
	StockValue    string `json:"valor_stock"`
	Utility       string `json:"utilidad"`
}

func toMovementViewDTO(v inventory.MovementView) MovementViewDTO {
	return MovementViewDTO{
		Date:          v.Date.Format(inventory.TimestampLayout),
		Code:          v.Code,
		Description:   v.Description,
		Kind:          string(v.Kind),
		Quantity:      v.Quantity,
		Stock:         v.StockAfter,
		PurchasePrice: v.PurchasePrice.String(),
		SalePrice:     v.SalePrice.String(),
		MovementValue: v.MovementValue.String(),
		StockValue:    v.StockValue.String(),
		Utility:       v.Utility.String(),
	}
}

// =============================================================================
// ANALYTICS TYPES
// =============================================================================

// MonthlyFlowDTO is one calendar-month bucket.
type MonthlyFlowDTO struct {
	Month    string `json:"mes"`
	Inflows  int64  `json:"entradas"`
	Outflows int64  `json:"salidas"`
}

// StockPointDTO is one step of the stock curve.
type StockPointDTO struct {
	Date  string `json:"fecha"`
	Stock int64  `json:"stock"`
}

// ProductActivityDTO is one row of the most-moved ranking.
type ProductActivityDTO struct {
	Code        string `json:"codigo"`
	Description string `json:"descripcion"`
	Inflows     int64  `json:"entradas"`
	Outflows    int64  `json:"salidas"`
	Total       int64  `json:"total"`
}

// StatsDTO is the movement summary for one product. Nullable figures come
// back as null, which the frontend renders as "N/A".
type StatsDTO struct {
	TotalMovements     int64   `json:"total_movimientos"`
	TotalInflows       int64   `json:"total_entradas"`
	TotalOutflows      int64   `json:"total_salidas"`
	AvgInflow          *string `json:"promedio_entrada"`
	AvgOutflow         *string `json:"promedio_salida"`
	MinPurchasePrice   *string `json:"precio_compra_min"`
	MaxPurchasePrice   *string `json:"precio_compra_max"`
	MinSalePrice       *string `json:"precio_venta_min"`
	MaxSalePrice       *string `json:"precio_venta_max"`
	FirstMovement      *string `json:"primer_movimiento"`
	LastMovement       *string `json:"ultimo_movimiento"`
	RotationIndex      *string `json:"indice_rotacion"`
	AvgDaysInInventory *string `json:"dias_en_inventario"`
	PurchaseVariation  *string `json:"variacion_compra"`
	SaleVariation      *string `json:"variacion_venta"`
}

func toStatsDTO(s *inventory.MovementStats) StatsDTO {
	dto := StatsDTO{
		TotalMovements: s.TotalMovements,
		TotalInflows:   s.TotalInflows,
		TotalOutflows:  s.TotalOutflows,
	}
	dto.AvgInflow = decimalString(s.AvgInflow)
	dto.AvgOutflow = decimalString(s.AvgOutflow)
	dto.MinPurchasePrice = decimalString(s.MinPurchasePrice)
	dto.MaxPurchasePrice = decimalString(s.MaxPurchasePrice)
	dto.MinSalePrice = decimalString(s.MinSalePrice)
	dto.MaxSalePrice = decimalString(s.MaxSalePrice)
	dto.RotationIndex = decimalString(s.RotationIndex)
	dto.AvgDaysInInventory = decimalString(s.AvgDaysInInventory)
	dto.PurchaseVariation = decimalString(s.PurchaseVariation)
	dto.SaleVariation = decimalString(s.SaleVariation)
	if s.FirstMovement != nil {
		v := s.FirstMovement.Format(inventory.TimestampLayout)
		dto.FirstMovement = &v
	}
	if s.LastMovement != nil {
		v := s.LastMovement.Format(inventory.TimestampLayout)
		dto.LastMovement = &v
	}
	return dto
}

func decimalString(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	v := d.String()
	return &v
}

// =============================================================================
// REPORT TYPES
// =============================================================================

// GenerateReportRequest is the request to export a period report.
// Dates use the YYYY-MM-DD form.
type GenerateReportRequest struct {
	From string `json:"desde" validate:"required"`
	To   string `json:"hasta" validate:"required"`
}

// RenameReportRequest is the request to relabel a history row.
type RenameReportRequest struct {
	Label string `json:"descripcion" validate:"required"`
}

// ReportRecordDTO represents one export history row.
type ReportRecordDTO struct {
	ID          int64  `json:"id"`
	Date        string `json:"fecha"`
	Label       string `json:"descripcion"`
	Temporality string `json:"temporalidad"`
	FilePath    string `json:"file_path"`
}

func toReportRecordDTO(r inventory.ReportRecord) ReportRecordDTO {
	return ReportRecordDTO{
		ID:          r.ID,
		Date:        r.Date.Format("02/01/2006 15:04:05"),
		Label:       r.Label,
		Temporality: r.Temporality,
		FilePath:    r.FilePath,
	}
}

// ErrorResponse is the uniform error payload.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
