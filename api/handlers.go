/*
handlers.go - HTTP API handlers for the inventory system

PURPOSE:
  Exposes the inventory core via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Products:
    GET    /api/productos                       List catalog
    POST   /api/productos                       Create product
    GET    /api/productos/totales               Catalog grand totals
    GET    /api/productos/mas-movidos           Most-moved ranking
    GET    /api/productos/{codigo}              Get product
    PUT    /api/productos/{codigo}              Edit description/prices
    DELETE /api/productos/{codigo}              Delete product
    GET    /api/productos/{codigo}/resumen      Detail overview
    GET    /api/productos/{codigo}/estadisticas Movement statistics
    GET    /api/productos/{codigo}/series/mensual  Monthly flow buckets
    GET    /api/productos/{codigo}/series/stock    Cumulative stock curve

  Movements (same shape for /entradas and /salidas):
    GET    /api/entradas              List
    POST   /api/entradas              Record
    PUT    /api/entradas/{id}         Edit quantity
    DELETE /api/entradas?codigo=&fecha=  Delete by product+timestamp

  Search:
    GET    /api/movimientos/buscar?q=  Unified movement search

  Reports:
    POST   /api/reportes              Export a period report
    GET    /api/reportes              Export history
    PUT    /api/reportes/{id}         Rename history row
    DELETE /api/reportes/{id}         Delete history row and file

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Product, movement, or report not found
  - 409: Duplicate product code
  - 500: Storage errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/multimuebles/inventario/inventory"
	"github.com/multimuebles/inventario/report"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Ledger    *inventory.Ledger
	Analytics *inventory.Analytics
	Reports   *report.Service
	Store     inventory.Store

	validate *validator.Validate
	log      zerolog.Logger
}

// NewHandler creates a new handler with the given dependencies.
func NewHandler(ledger *inventory.Ledger, analytics *inventory.Analytics, reports *report.Service, store inventory.Store, log zerolog.Logger) *Handler {
	return &Handler{
		Ledger:    ledger,
		Analytics: analytics,
		Reports:   reports,
		Store:     store,
		validate:  validator.New(),
		log:       log.With().Str("component", "api").Logger(),
	}
}

// decodeAndValidate decodes the JSON body into req and runs the
// validator. Writes the error response itself and reports success.
func (h *Handler) decodeAndValidate(w http.ResponseWriter, r *http.Request, req any) bool {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", err)
		return false
	}
	return true
}

// =============================================================================
// PRODUCT HANDLERS
// =============================================================================

// ListProducts returns the whole catalog.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.Store.ListProducts(r.Context())
	if err != nil {
		h.writeDomainError(w, "Failed to list products", err)
		return
	}

	dtos := make([]ProductDTO, len(products))
	for i, p := range products {
		dtos[i] = toProductDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetProduct returns a single catalog row.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "codigo")

	p, err := h.Store.GetProduct(r.Context(), code)
	if err != nil {
		h.writeDomainError(w, "Failed to get product", err)
		return
	}
	if p == nil {
		writeError(w, http.StatusNotFound, "Product not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toProductDTO(*p))
}

// CreateProduct creates a new catalog row.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req CreateProductRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	purchase, sale, ok := parsePrices(w, req.PurchasePrice, req.SalePrice)
	if !ok {
		return
	}

	if err := h.Ledger.CreateProduct(r.Context(), req.Code, req.Description, purchase, sale); err != nil {
		h.writeDomainError(w, "Failed to create product", err)
		return
	}

	p, err := h.Store.GetProduct(r.Context(), req.Code)
	if err != nil || p == nil {
		h.writeDomainError(w, "Failed to read back product", err)
		return
	}
	writeJSON(w, http.StatusCreated, toProductDTO(*p))
}

// UpdateProduct edits description and prices, recomputing valuations.
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "codigo")

	var req UpdateProductRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	purchase, sale, ok := parsePrices(w, req.PurchasePrice, req.SalePrice)
	if !ok {
		return
	}

	if err := h.Ledger.UpdateProduct(r.Context(), code, req.Description, purchase, sale); err != nil {
		h.writeDomainError(w, "Failed to update product", err)
		return
	}

	p, err := h.Store.GetProduct(r.Context(), code)
	if err != nil || p == nil {
		h.writeDomainError(w, "Failed to read back product", err)
		return
	}
	writeJSON(w, http.StatusOK, toProductDTO(*p))
}

// DeleteProduct removes a catalog row.
func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "codigo")

	if err := h.Ledger.DeleteProduct(r.Context(), code); err != nil {
		h.writeDomainError(w, "Failed to delete product", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetProductTotals returns the catalog grand totals.
func (h *Handler) GetProductTotals(w http.ResponseWriter, r *http.Request) {
	totals, err := h.Analytics.ProductTotals(r.Context())
	if err != nil {
		h.writeDomainError(w, "Failed to compute totals", err)
		return
	}

	writeJSON(w, http.StatusOK, ProductTotalsDTO{
		Inflows:            totals.Inflows,
		Outflows:           totals.Outflows,
		Stock:              totals.Stock,
		PurchaseValueTotal: totals.PurchaseValueTotal.String(),
		SaleValueTotal:     totals.SaleValueTotal.String(),
		Utility:            totals.Utility.String(),
	})
}

// GetProductOverview returns the product detail payload.
func (h *Handler) GetProductOverview(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "codigo")
	lastN, _ := strconv.Atoi(r.URL.Query().Get("ultimos"))

	overview, err := h.Analytics.ProductOverview(r.Context(), code, lastN)
	if err != nil {
		h.writeDomainError(w, "Failed to get product overview", err)
		return
	}

	recent := make([]MovementViewDTO, len(overview.LastMovements))
	for i, v := range overview.LastMovements {
		recent[i] = toMovementViewDTO(v)
	}
	writeJSON(w, http.StatusOK, ProductOverviewDTO{
		Product:       toProductDTO(overview.Product),
		InflowCount:   overview.InflowCount,
		OutflowCount:  overview.OutflowCount,
		LastMovements: recent,
	})
}

// =============================================================================
// MOVEMENT HANDLERS
// =============================================================================

// ListMovements returns every movement of one direction.
func (h *Handler) ListMovements(kind inventory.MovementKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		movements, err := h.Store.ListMovements(r.Context(), kind)
		if err != nil {
			h.writeDomainError(w, "Failed to list movements", err)
			return
		}

		dtos := make([]MovementDTO, len(movements))
		for i, m := range movements {
			dtos[i] = toMovementDTO(m)
		}
		writeJSON(w, http.StatusOK, dtos)
	}
}

// RecordMovement records an inflow or outflow.
func (h *Handler) RecordMovement(kind inventory.MovementKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RecordMovementRequest
		if !h.decodeAndValidate(w, r, &req) {
			return
		}

		at := time.Now()
		if req.Date != "" {
			parsed, err := time.Parse(inventory.TimestampLayout, req.Date)
			if err != nil {
				writeError(w, http.StatusBadRequest, "Invalid fecha format (use YYYY-MM-DD HH:MM:SS)", err)
				return
			}
			at = parsed
		}

		var err error
		if kind == inventory.Inflow {
			err = h.Ledger.RecordInflow(r.Context(), req.Code, req.Quantity, at)
		} else {
			err = h.Ledger.RecordOutflow(r.Context(), req.Code, req.Quantity, at)
		}
		if err != nil {
			h.writeDomainError(w, "Failed to record movement", err)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}
}

// EditMovement changes a movement's quantity by id.
func (h *Handler) EditMovement(kind inventory.MovementKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid movement id", err)
			return
		}

		var req EditMovementRequest
		if !h.decodeAndValidate(w, r, &req) {
			return
		}

		if kind == inventory.Inflow {
			err = h.Ledger.EditInflow(r.Context(), id, req.Quantity)
		} else {
			err = h.Ledger.EditOutflow(r.Context(), id, req.Quantity)
		}
		if err != nil {
			h.writeDomainError(w, "Failed to edit movement", err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// DeleteMovement removes the movements of a product at an exact
// timestamp, passed as query parameters.
func (h *Handler) DeleteMovement(kind inventory.MovementKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("codigo")
		fecha := r.URL.Query().Get("fecha")
		if code == "" || fecha == "" {
			writeError(w, http.StatusBadRequest, "codigo and fecha query parameters are required", nil)
			return
		}

		at, err := time.Parse(inventory.TimestampLayout, fecha)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid fecha format (use YYYY-MM-DD HH:MM:SS)", err)
			return
		}

		if err := h.Ledger.DeleteMovement(r.Context(), kind, code, at); err != nil {
			h.writeDomainError(w, "Failed to delete movement", err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// =============================================================================
// ANALYTICS HANDLERS
// =============================================================================

// SearchMovements runs the unified movement search.
func (h *Handler) SearchMovements(w http.ResponseWriter, r *http.Request) {
	views, err := h.Analytics.SearchMovements(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.writeDomainError(w, "Failed to search movements", err)
		return
	}

	dtos := make([]MovementViewDTO, len(views))
	for i, v := range views {
		dtos[i] = toMovementViewDTO(v)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetMonthlySeries returns a product's calendar-month buckets.
func (h *Handler) GetMonthlySeries(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "codigo")

	series, err := h.Analytics.MonthlyFlowSeries(r.Context(), code)
	if err != nil {
		h.writeDomainError(w, "Failed to compute monthly series", err)
		return
	}

	dtos := make([]MonthlyFlowDTO, len(series))
	for i, f := range series {
		dtos[i] = MonthlyFlowDTO{Month: f.Month, Inflows: f.Inflows, Outflows: f.Outflows}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetStockSeries returns a product's cumulative stock curve.
func (h *Handler) GetStockSeries(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "codigo")

	points, err := h.Analytics.StockTimeSeries(r.Context(), code)
	if err != nil {
		h.writeDomainError(w, "Failed to compute stock series", err)
		return
	}

	dtos := make([]StockPointDTO, len(points))
	for i, p := range points {
		dtos[i] = StockPointDTO{
			Date:  p.Date.Format(inventory.TimestampLayout),
			Stock: p.Stock,
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetTopProducts returns the most-moved ranking.
func (h *Handler) GetTopProducts(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	ranking, err := h.Analytics.TopMovedProducts(r.Context(), limit)
	if err != nil {
		h.writeDomainError(w, "Failed to rank products", err)
		return
	}

	dtos := make([]ProductActivityDTO, len(ranking))
	for i, a := range ranking {
		dtos[i] = ProductActivityDTO{
			Code:        a.Code,
			Description: a.Description,
			Inflows:     a.Inflows,
			Outflows:    a.Outflows,
			Total:       a.Total(),
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetStatistics returns the movement summary for one product.
func (h *Handler) GetStatistics(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "codigo")

	stats, err := h.Analytics.SummaryStatistics(r.Context(), code)
	if err != nil {
		h.writeDomainError(w, "Failed to compute statistics", err)
		return
	}
	writeJSON(w, http.StatusOK, toStatsDTO(stats))
}

// =============================================================================
// REPORT HANDLERS
// =============================================================================

// GenerateReport exports a period report and returns its history row.
func (h *Handler) GenerateReport(w http.ResponseWriter, r *http.Request) {
	var req GenerateReportRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	from, err := time.Parse(inventory.DateLayout, req.From)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid desde format (use YYYY-MM-DD)", err)
		return
	}
	to, err := time.Parse(inventory.DateLayout, req.To)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid hasta format (use YYYY-MM-DD)", err)
		return
	}

	record, err := h.Reports.Generate(r.Context(), from, to)
	if err != nil {
		h.writeDomainError(w, "Failed to generate report", err)
		return
	}
	writeJSON(w, http.StatusCreated, toReportRecordDTO(*record))
}

// ListReports returns the export history.
func (h *Handler) ListReports(w http.ResponseWriter, r *http.Request) {
	records, err := h.Reports.List(r.Context())
	if err != nil {
		h.writeDomainError(w, "Failed to list reports", err)
		return
	}

	dtos := make([]ReportRecordDTO, len(records))
	for i, rec := range records {
		dtos[i] = toReportRecordDTO(rec)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// RenameReport rewrites a history row's label.
func (h *Handler) RenameReport(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid report id", err)
		return
	}

	var req RenameReportRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.Reports.Rename(r.Context(), id, req.Label); err != nil {
		h.writeDomainError(w, "Failed to rename report", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteReport removes a history row and its workbook file.
func (h *Handler) DeleteReport(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid report id", err)
		return
	}

	if err := h.Reports.Delete(r.Context(), id); err != nil {
		h.writeDomainError(w, "Failed to delete report", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// HELPERS
// =============================================================================

func parsePrices(w http.ResponseWriter, purchaseStr, saleStr string) (purchase, sale decimal.Decimal, ok bool) {
	purchase, err := decimal.NewFromString(purchaseStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid precio_compra", err)
		return decimal.Zero, decimal.Zero, false
	}
	sale, err = decimal.NewFromString(saleStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid precio_venta", err)
		return decimal.Zero, decimal.Zero, false
	}
	return purchase, sale, true
}

// writeDomainError maps the domain error taxonomy onto HTTP statuses.
func (h *Handler) writeDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case inventory.IsValidation(err):
		writeError(w, http.StatusBadRequest, message, err)
	case inventory.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case inventory.IsDuplicateKey(err):
		writeError(w, http.StatusConflict, message, err)
	default:
		h.log.Error().Err(err).Msg(message)
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
