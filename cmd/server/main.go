/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the inventory server. Handles configuration,
  dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (env vars, optional .env file)
  2. Initialize SQLite store
  3. Wire ledger, analytics, and report services
  4. Configure HTTP router
  5. Start server with graceful shutdown

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

CONFIGURATION:
  PORT, APP_ENV, DB_PATH, REPORT_DIR, OUTFLOW_DEDUCTS_STOCK,
  DELETE_COMPENSATES_TOTALS. Use DB_PATH=":memory:" for an in-memory
  database.

SEE ALSO:
  - config/config.go: Configuration loading
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/multimuebles/inventario/api"
	"github.com/multimuebles/inventario/config"
	"github.com/multimuebles/inventario/inventory"
	"github.com/multimuebles/inventario/report"
	"github.com/multimuebles/inventario/store/sqlite"
)

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	if cfg.Env == "production" {
		log = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	// Initialize store
	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize database")
	}
	defer store.Close()

	// Wire the domain services
	ledger := inventory.NewLedger(store, inventory.Policy{
		DeductStockOnOutflow: cfg.OutflowDeductsStock,
		CompensateOnDelete:   cfg.DeleteCompensatesTotals,
	})
	analytics := inventory.NewAnalytics(store)
	reports := report.NewService(analytics, store, cfg.ReportDir, log)

	handler := api.NewHandler(ledger, analytics, reports, store, log)
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Int("port", cfg.Port).
			Str("db", cfg.DBPath).
			Msg("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
