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
	"priceeda/internal/dataset"
	"priceeda/internal/ingest"
)

// TableExporter writes datasets and correlation matrices
type TableExporter struct {
	csvWriter *CSVWriter
	paths     *config.Paths
	logger    *slog.Logger
}

// NewTableExporter creates a new dataset exporter
func NewTableExporter(paths *config.Paths, logger *slog.Logger) *TableExporter {
	w := NewCSVWriter(paths, logger)
	return &TableExporter{csvWriter: w, paths: paths, logger: w.logger}
}

// ExportCSV writes t in wide form: the index column then one column per
// series. Missing values are empty cells.
func (e *TableExporter) ExportCSV(filePath string, t *dataset.Table) (string, error) {
	columns := t.Columns()
	headers := append([]string{t.IndexName()}, columns...)

	values := make([][]float64, len(columns))
	for j, name := range columns {
		col, err := t.Column(name)
		if err != nil {
			return "", err
		}
		values[j] = col
	}

	stream, err := e.csvWriter.CreateStreamWriter(filePath, headers)
	if err != nil {
		return "", err
	}
	row := make([]string, len(headers))
	for i := 0; i < t.Len(); i++ {
		row[0] = formatDate(t.DateAt(i))
		for j := range columns {
			row[j+1] = formatValue(values[j][i])
		}
		if err := stream.WriteRecord(row); err != nil {
			stream.Close()
			return "", fmt.Errorf("failed to write row %d: %w", i, err)
		}
	}
	if err := stream.Close(); err != nil {
		return "", fmt.Errorf("failed to flush CSV: %w", err)
	}
	return resolvePath(e.paths, filePath), nil
}

// ExportParquet writes t in long form as ingest.Observation rows. Missing
// values are not written, so loading the file back yields the same table.
func (e *TableExporter) ExportParquet(filePath string, t *dataset.Table) (string, error) {
	fullPath := resolvePath(e.paths, filePath)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	var rows []ingest.Observation
	for _, name := range t.Columns() {
		col, err := t.Column(name)
		if err != nil {
			return "", err
		}
		for i, v := range col {
			if dataset.IsMissing(v) {
				continue
			}
			rows = append(rows, ingest.Observation{
				Date:   t.DateAt(i).UnixMilli(),
				Series: name,
				Value:  v,
			})
		}
	}
	if err := parquet.WriteFile(fullPath, rows); err != nil {
		return "", fmt.Errorf("failed to write parquet: %w", err)
	}

	e.logger.Info("Wrote dataset parquet",
		slog.String("full_path", fullPath),
		slog.Int("observation_count", len(rows)))
	return fullPath, nil
}

// ExportCorrelationCSV writes m as a square table with a leading label
// column. Undefined coefficients are empty cells.
func (e *TableExporter) ExportCorrelationCSV(filePath string, m analysis.CorrelationMatrix) (string, error) {
	headers := append([]string{""}, m.Columns...)
	rows := make([][]string, len(m.Columns))
	for i, name := range m.Columns {
		row := make([]string, 0, len(headers))
		row = append(row, name)
		for _, v := range m.Values[i] {
			row = append(row, formatRatio(v))
		}
		rows[i] = row
	}
	return e.csvWriter.WriteSimpleCSV(filePath, headers, rows)
}

// ExportCorrelationXLSX writes m to a Correlation sheet with a three-color
// scale from -1 to 1
func (e *TableExporter) ExportCorrelationXLSX(filePath string, m analysis.CorrelationMatrix) (string, error) {
	fullPath := resolvePath(e.paths, filePath)

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Correlation"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return "", err
	}

	header := append([]any{""}, toAny(m.Columns)...)
	if err := writeSheetRow(f, sheet, 1, header); err != nil {
		return "", err
	}
	for i, name := range m.Columns {
		row := []any{name}
		for _, v := range m.Values[i] {
			row = append(row, cellValue(v))
		}
		if err := writeSheetRow(f, sheet, i+2, row); err != nil {
			return "", err
		}
	}
	if err := styleHeader(f, sheet, len(header)); err != nil {
		return "", err
	}

	if n := len(m.Columns); n > 0 {
		last, err := excelize.CoordinatesToCellName(n+1, n+1)
		if err != nil {
			return "", err
		}
		err = f.SetConditionalFormat(sheet, "B2:"+last, []excelize.ConditionalFormatOptions{{
			Type:     "3_color_scale",
			Criteria: "=",
			MinType:  "num",
			MinValue: "-1",
			MinColor: "#3B4CC0",
			MidType:  "num",
			MidValue: "0",
			MidColor: "#F7F7F7",
			MaxType:  "num",
			MaxValue: "1",
			MaxColor: "#B40426",
		}})
		if err != nil {
			return "", err
		}
	}

	if err := saveWorkbook(f, fullPath); err != nil {
		return "", err
	}
	e.logger.Info("Wrote correlation workbook",
		slog.String("full_path", fullPath),
		slog.Int("column_count", len(m.Columns)))
	return fullPath, nil
}
