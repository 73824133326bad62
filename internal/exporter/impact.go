package exporter

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"
	"github.com/xuri/excelize/v2"

	"priceeda/internal/analysis"
	"priceeda/internal/config"
)

// ImpactRow is the Parquet schema for one resolved event
type ImpactRow struct {
	Event       string  `parquet:"event"`
	Date        int64   `parquet:"date,timestamp(millisecond)"` // Unix ms
	PriceBefore float64 `parquet:"price_before"`
	PriceAfter  float64 `parquet:"price_after"`
	PctChange   float64 `parquet:"pct_change"`
}

// ImpactExporter writes event impact reports
type ImpactExporter struct {
	csvWriter *CSVWriter
	paths     *config.Paths
	logger    *slog.Logger
}

// NewImpactExporter creates a new impact report exporter
func NewImpactExporter(paths *config.Paths, logger *slog.Logger) *ImpactExporter {
	w := NewCSVWriter(paths, logger)
	return &ImpactExporter{csvWriter: w, paths: paths, logger: w.logger}
}

// ImpactHeaders returns the column headers of an impact table
func ImpactHeaders() []string {
	return []string{"Event", "Date", "Price Before", "Price After", "Pct Change"}
}

// OutcomeHeaders returns the column headers of the per-event outcome table
func OutcomeHeaders() []string {
	return []string{"Event", "Date", "Status", "Reason", "Detail"}
}

// ExportCSV writes the resolved records of report and returns the path
func (e *ImpactExporter) ExportCSV(filePath string, report analysis.ImpactReport) (string, error) {
	records := report.Records()
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, recordToCSVRow(r))
	}
	return e.csvWriter.WriteSimpleCSV(filePath, ImpactHeaders(), rows)
}

// ExportOutcomesCSV writes one row per event, resolved or skipped
func (e *ImpactExporter) ExportOutcomesCSV(filePath string, report analysis.ImpactReport) (string, error) {
	rows := make([][]string, 0, len(report.Outcomes))
	for _, o := range report.Outcomes {
		rows = append(rows, outcomeToCSVRow(o))
	}
	return e.csvWriter.WriteSimpleCSV(filePath, OutcomeHeaders(), rows)
}

// ExportXLSX writes a workbook with an Impact sheet for the records and a
// Skipped sheet for events that produced none
func (e *ImpactExporter) ExportXLSX(filePath string, report analysis.ImpactReport) (string, error) {
	fullPath := resolvePath(e.paths, filePath)

	f := excelize.NewFile()
	defer f.Close()

	const impactSheet, skippedSheet = "Impact", "Skipped"
	if err := f.SetSheetName("Sheet1", impactSheet); err != nil {
		return "", err
	}
	if _, err := f.NewSheet(skippedSheet); err != nil {
		return "", err
	}

	if err := writeSheetRow(f, impactSheet, 1, toAny(ImpactHeaders())); err != nil {
		return "", err
	}
	for i, r := range report.Records() {
		row := []any{r.Event, formatDate(r.Date), cellValue(r.PriceBefore), cellValue(r.PriceAfter), cellValue(r.PctChange)}
		if err := writeSheetRow(f, impactSheet, i+2, row); err != nil {
			return "", err
		}
	}

	if err := writeSheetRow(f, skippedSheet, 1, toAny(OutcomeHeaders())); err != nil {
		return "", err
	}
	for i, o := range report.Skipped() {
		if err := writeSheetRow(f, skippedSheet, i+2, toAny(outcomeToCSVRow(o))); err != nil {
			return "", err
		}
	}

	if err := styleHeader(f, impactSheet, len(ImpactHeaders())); err != nil {
		return "", err
	}
	if err := styleHeader(f, skippedSheet, len(OutcomeHeaders())); err != nil {
		return "", err
	}

	if err := saveWorkbook(f, fullPath); err != nil {
		return "", err
	}
	e.logger.Info("Wrote impact workbook",
		slog.String("full_path", fullPath),
		slog.Int("record_count", len(report.Records())),
		slog.Int("skipped_count", len(report.Skipped())))
	return fullPath, nil
}

// ExportParquet writes the resolved records as ImpactRow values
func (e *ImpactExporter) ExportParquet(filePath string, report analysis.ImpactReport) (string, error) {
	fullPath := resolvePath(e.paths, filePath)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	records := report.Records()
	rows := make([]ImpactRow, len(records))
	for i, r := range records {
		rows[i] = ImpactRow{
			Event:       r.Event,
			Date:        r.Date.UnixMilli(),
			PriceBefore: r.PriceBefore,
			PriceAfter:  r.PriceAfter,
			PctChange:   r.PctChange,
		}
	}
	if err := parquet.WriteFile(fullPath, rows); err != nil {
		return "", fmt.Errorf("failed to write parquet: %w", err)
	}

	e.logger.Info("Wrote impact parquet",
		slog.String("full_path", fullPath),
		slog.Int("record_count", len(rows)))
	return fullPath, nil
}

func recordToCSVRow(r analysis.ImpactRecord) []string {
	return []string{
		r.Event,
		formatDate(r.Date),
		formatFloat(r.PriceBefore),
		formatFloat(r.PriceAfter),
		formatRatio(r.PctChange),
	}
}

func outcomeToCSVRow(o analysis.Outcome) []string {
	date := o.Event.Date
	if !o.EventDate.IsZero() {
		date = formatDate(o.EventDate)
	}
	return []string{o.Event.Label, date, string(o.Status), string(o.Reason), o.Detail}
}
