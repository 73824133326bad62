package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"priceeda/internal/analysis"
)

// ExportFormat is an output file format
type ExportFormat string

const (
	ExportCSV     ExportFormat = "csv"
	ExportXLSX    ExportFormat = "xlsx"
	ExportParquet ExportFormat = "parquet"
)

// ExportFormats lists the supported export format names
func ExportFormats() []string {
	return []string{string(ExportCSV), string(ExportXLSX), string(ExportParquet)}
}

// ParseExportFormat parses a format name, defaulting to CSV
func ParseExportFormat(s string) (ExportFormat, error) {
	switch ExportFormat(strings.ToLower(strings.TrimSpace(s))) {
	case "", ExportCSV:
		return ExportCSV, nil
	case ExportXLSX:
		return ExportXLSX, nil
	case ExportParquet:
		return ExportParquet, nil
	default:
		return "", fmt.Errorf("format %q: %w", s, ErrExportUnsupported)
	}
}

// Export targets
const (
	TargetDataset     = "dataset"
	TargetCorrelation = "correlation"
	TargetImpact      = "impact"
)

// Export writes target in format and returns the file path. runID selects
// the journaled run for the impact target.
func (s *AnalysisService) Export(ctx context.Context, target string, format ExportFormat, runID string) (string, error) {
	switch target {
	case TargetDataset:
		return s.ExportDataset(ctx, format)
	case TargetCorrelation:
		return s.ExportCorrelation(ctx, format)
	case TargetImpact:
		return s.ExportImpactRun(ctx, runID, format)
	default:
		return "", fmt.Errorf("%q: %w", target, ErrUnknownExport)
	}
}

// ExportDataset writes the current dataset to the exports directory and
// returns the file path. CSV is wide; Parquet is long format.
func (s *AnalysisService) ExportDataset(ctx context.Context, format ExportFormat) (string, error) {
	tbl, err := s.snapshot()
	if err != nil {
		return "", err
	}

	name := fmt.Sprintf("dataset_%s.%s", timestamp(), format)
	var path string
	switch format {
	case ExportCSV:
		path, err = s.tables.ExportCSV(name, tbl)
	case ExportParquet:
		path, err = s.tables.ExportParquet(name, tbl)
	default:
		return "", fmt.Errorf("dataset as %s: %w", format, ErrExportUnsupported)
	}
	if err != nil {
		return "", err
	}

	s.logger.InfoContext(ctx, "dataset exported", slog.String("path", path))
	return path, nil
}

// ExportCorrelation computes the correlation matrix and writes it to the
// exports directory
func (s *AnalysisService) ExportCorrelation(ctx context.Context, format ExportFormat) (string, error) {
	m, err := s.Correlation(ctx)
	if err != nil {
		return "", err
	}

	name := fmt.Sprintf("correlation_%s.%s", timestamp(), format)
	var path string
	switch format {
	case ExportCSV:
		path, err = s.tables.ExportCorrelationCSV(name, m)
	case ExportXLSX:
		path, err = s.tables.ExportCorrelationXLSX(name, m)
	default:
		return "", fmt.Errorf("correlation as %s: %w", format, ErrExportUnsupported)
	}
	if err != nil {
		return "", err
	}

	s.logger.InfoContext(ctx, "correlation exported", slog.String("path", path))
	return path, nil
}

// ExportImpactRun writes a journaled impact run to the exports directory
func (s *AnalysisService) ExportImpactRun(ctx context.Context, runID string, format ExportFormat) (string, error) {
	report, err := s.ImpactRun(ctx, runID)
	if err != nil {
		return "", err
	}
	path, err := s.exportImpact(report, format)
	if err != nil {
		return "", err
	}

	s.logger.InfoContext(ctx, "impact run exported",
		slog.String("run_id", runID),
		slog.String("path", path))
	return path, nil
}

func (s *AnalysisService) exportImpact(report analysis.ImpactReport, format ExportFormat) (string, error) {
	name := fmt.Sprintf("impact_%s.%s", report.RunID, format)
	switch format {
	case ExportCSV:
		return s.impacts.ExportCSV(name, report)
	case ExportXLSX:
		return s.impacts.ExportXLSX(name, report)
	case ExportParquet:
		return s.impacts.ExportParquet(name, report)
	default:
		return "", fmt.Errorf("impact as %s: %w", format, ErrExportUnsupported)
	}
}

func timestamp() string {
	return time.Now().UTC().Format("20060102_150405.000")
}
