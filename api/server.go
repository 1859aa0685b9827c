/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route
  definitions. This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the desktop frontend

ROUTE GROUPS:
  /api/productos/*     Catalog and per-product analytics
  /api/entradas/*      Inflow movements
  /api/salidas/*       Outflow movements
  /api/movimientos/*   Unified movement search
  /api/reportes/*      Period report export and history

SECURITY NOTE:
  No authentication middleware. The server binds for a single local user.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/multimuebles/inventario/inventory"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Product routes
		r.Route("/productos", func(r chi.Router) {
			r.Get("/", h.ListProducts)
			r.Post("/", h.CreateProduct)
			r.Get("/totales", h.GetProductTotals)
			r.Get("/mas-movidos", h.GetTopProducts)
			r.Get("/{codigo}", h.GetProduct)
			r.Put("/{codigo}", h.UpdateProduct)
			r.Delete("/{codigo}", h.DeleteProduct)
			r.Get("/{codigo}/resumen", h.GetProductOverview)
			r.Get("/{codigo}/estadisticas", h.GetStatistics)
			r.Get("/{codigo}/series/mensual", h.GetMonthlySeries)
			r.Get("/{codigo}/series/stock", h.GetStockSeries)
		})

		// Movement routes, one group per direction
		r.Route("/entradas", func(r chi.Router) {
			r.Get("/", h.ListMovements(inventory.Inflow))
			r.Post("/", h.RecordMovement(inventory.Inflow))
			r.Put("/{id}", h.EditMovement(inventory.Inflow))
			r.Delete("/", h.DeleteMovement(inventory.Inflow))
		})
		r.Route("/salidas", func(r chi.Router) {
			r.Get("/", h.ListMovements(inventory.Outflow))
			r.Post("/", h.RecordMovement(inventory.Outflow))
			r.Put("/{id}", h.EditMovement(inventory.Outflow))
			r.Delete("/", h.DeleteMovement(inventory.Outflow))
		})

		// Unified search
		r.Route("/movimientos", func(r chi.Router) {
			r.Get("/buscar", h.SearchMovements)
		})

		// Report routes
		r.Route("/reportes", func(r chi.Router) {
			r.Get("/", h.ListReports)
			r.Post("/", h.GenerateReport)
			r.Put("/{id}", h.RenameReport)
			r.Delete("/{id}", h.DeleteReport)
		})
	})

	return r
}
