package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"priceeda/internal/dataset"
	apierrors "priceeda/internal/errors"
	"priceeda/internal/validation"
)

// Kind identifies a supported input file type
type Kind string

const (
	KindCSV     Kind = "csv"
	KindXLSX    Kind = "xlsx"
	KindParquet Kind = "parquet"
)

// NAValues are the cell values read as missing
var NAValues = []string{"", "NA", "N/A", "NaN", "nan", "null", "<nil>", "-"}

// Options controls how a file becomes a dataset.Table
type Options struct {
	// IndexColumn names the date column. Defaults to "Date".
	IndexColumn string
	// DateLayouts are tried in order. Defaults to dataset.DefaultDateLayouts.
	DateLayouts []string
	// Sheet selects the XLSX sheet. Defaults to the first sheet.
	Sheet string
}

func (o Options) withDefaults() Options {
	if o.IndexColumn == "" {
		o.IndexColumn = dataset.DefaultIndexName
	}
	if len(o.DateLayouts) == 0 {
		o.DateLayouts = dataset.DefaultDateLayouts
	}
	return o
}

// Detect returns the file kind from the path extension
func Detect(path string) (Kind, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".txt":
		return KindCSV, nil
	case ".xlsx", ".xlsm":
		return KindXLSX, nil
	case ".parquet", ".pq":
		return KindParquet, nil
	default:
		return "", fmt.Errorf("%s: %w", filepath.Base(path), apierrors.ErrUnsupportedFormat)
	}
}

// Loader reads date-indexed numeric tables from disk
type Loader struct {
	validator *validation.FileValidator
	logger    *slog.Logger
}

// NewLoader creates a loader
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "ingest")
	return &Loader{
		validator: validation.NewFileValidator(logger),
		logger:    logger,
	}
}

// Load reads path into a table sorted by date. Rows whose date cannot be
// parsed are skipped with a warning, numeric cells that cannot be parsed
// become missing values, and non-numeric columns are dropped.
func (l *Loader) Load(ctx context.Context, path string, opts Options) (*dataset.Table, error) {
	opts = opts.withDefaults()

	kind, err := Detect(path)
	if err != nil {
		return nil, err
	}
	if err := l.validator.ValidateSource(path); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	var tbl *dataset.Table
	switch kind {
	case KindCSV:
		tbl, err = l.loadCSV(ctx, path, opts)
	case KindXLSX:
		tbl, err = l.loadXLSX(ctx, path, opts)
	case KindParquet:
		tbl, err = l.loadParquet(ctx, path, opts)
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", filepath.Base(path), err)
	}

	l.logger.InfoContext(ctx, "dataset loaded",
		"path", path,
		"kind", string(kind),
		"rows", tbl.Len(),
		"columns", len(tbl.Columns()),
		"duration_ms", time.Since(start).Milliseconds())

	return tbl, nil
}

// resolveColumn finds name among names, falling back to a case-insensitive match
func resolveColumn(names []string, name string) (string, bool) {
	for _, n := range names {
		if n == name {
			return n, true
		}
	}
	for _, n := range names {
		if strings.EqualFold(strings.TrimSpace(n), name) {
			return n, true
		}
	}
	return "", false
}
