/*
history.go - Report export service and history

PURPOSE:
  Drives a full export: run the aggregation, render the workbook to the
  configured directory under a generated file name, and persist the
  metadata row (export moment, label, covered-period temporality, file
  path). Also serves the history listing with rename and delete.

TEMPORALITY:
  The covered period is summarized as "N mes(es), M día(s)" using
  30-day months; periods under 30 days render as "0 mes(es), N día(s)".

SEE ALSO:
  - excel.go: workbook rendering
  - store/sqlite: historial_reportes persistence
*/
package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/multimuebles/inventario/inventory"
)

// Service generates period reports and manages their history.
type Service struct {
	analytics *inventory.Analytics
	history   inventory.HistoryStore
	dir       string
	log       zerolog.Logger
}

// NewService creates the export service writing workbooks under dir.
func NewService(analytics *inventory.Analytics, history inventory.HistoryStore, dir string, log zerolog.Logger) *Service {
	return &Service{
		analytics: analytics,
		history:   history,
		dir:       dir,
		log:       log.With().Str("component", "report").Logger(),
	}
}

// Generate runs the period aggregation, writes the workbook, and
// persists the history row. Returns the stored record.
func (s *Service) Generate(ctx context.Context, from, to time.Time) (*inventory.ReportRecord, error) {
	periodReport, err := s.analytics.GeneratePeriodReport(ctx, from, to)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create report directory: %w", err)
	}

	name := fmt.Sprintf("reporte_%s.xlsx", uuid.New().String())
	path := filepath.Join(s.dir, name)

	if err := WriteWorkbook(periodReport, path); err != nil {
		return nil, err
	}

	record := inventory.ReportRecord{
		Date: time.Now(),
		Label: fmt.Sprintf("Reporte %s a %s",
			from.Format(inventory.DateLayout), to.Format(inventory.DateLayout)),
		Temporality: Temporality(from, to),
		FilePath:    path,
	}

	id, err := s.history.InsertReportRecord(ctx, record)
	if err != nil {
		// The workbook exists but its history row does not; remove the
		// orphan so the directory stays consistent with the listing.
		os.Remove(path)
		return nil, err
	}
	record.ID = id

	s.log.Info().
		Str("file", path).
		Str("temporality", record.Temporality).
		Msg("report exported")

	return &record, nil
}

// List returns the export history, newest first.
func (s *Service) List(ctx context.Context) ([]inventory.ReportRecord, error) {
	return s.history.ListReportRecords(ctx)
}

// Rename rewrites a history row's label.
func (s *Service) Rename(ctx context.Context, id int64, label string) error {
	if label == "" {
		return &inventory.ValidationError{Field: "descripcion", Reason: "must not be empty"}
	}
	ok, err := s.history.RenameReportRecord(ctx, id, label)
	if err != nil {
		return err
	}
	if !ok {
		return &inventory.NotFoundError{Entity: "report", Key: strconv.FormatInt(id, 10)}
	}
	return nil
}

// Delete removes a history row and best-effort deletes its workbook file.
func (s *Service) Delete(ctx context.Context, id int64) error {
	records, err := s.history.ListReportRecords(ctx)
	if err != nil {
		return err
	}

	var path string
	for _, r := range records {
		if r.ID == id {
			path = r.FilePath
			break
		}
	}

	ok, err := s.history.DeleteReportRecord(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return &inventory.NotFoundError{Entity: "report", Key: strconv.FormatInt(id, 10)}
	}

	if path != "" {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			s.log.Warn().Str("file", path).Err(err).Msg("could not delete report file")
		}
	}
	return nil
}

// Temporality renders the covered period as "N mes(es), M día(s)" using
// 30-day months.
func Temporality(from, to time.Time) string {
	days := int(to.Sub(from).Hours() / 24)
	if days < 0 {
		days = 0
	}
	if days < 30 {
		return fmt.Sprintf("0 mes(es), %d día(s)", days)
	}
	return fmt.Sprintf("%d mes(es), %d día(s)", days/30, days%30)
}
