package ingest

import (
	"context"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"priceeda/internal/dataset"
	apierrors "priceeda/internal/errors"
)

func (l *Loader) loadCSV(ctx context.Context, path string, opts Options) (*dataset.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	df := dataframe.ReadCSV(f, loadOptions()...)
	if df.Err != nil {
		return nil, fmt.Errorf("read csv: %w", df.Err)
	}

	return l.fromDataFrame(ctx, df, opts, nil)
}

func loadOptions() []dataframe.LoadOption {
	return []dataframe.LoadOption{
		dataframe.HasHeader(true),
		dataframe.DetectTypes(true),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues(NAValues),
	}
}

// fromDataFrame turns a typed frame into a table. Float and Int columns
// other than the index become table columns; every other column is dropped.
// fallback, when set, is tried on dates the layouts cannot parse.
func (l *Loader) fromDataFrame(ctx context.Context, df dataframe.DataFrame, opts Options, fallback func(string) (time.Time, bool)) (*dataset.Table, error) {
	indexName, ok := resolveColumn(df.Names(), opts.IndexColumn)
	if !ok {
		return nil, fmt.Errorf("index column %q: %w", opts.IndexColumn, apierrors.ErrColumnNotFound)
	}

	var names []string
	var columns [][]float64
	for _, name := range df.Names() {
		if name == indexName {
			continue
		}
		col := df.Col(name)
		switch col.Type() {
		case series.Float, series.Int:
			names = append(names, name)
			columns = append(columns, col.Float())
		default:
			l.logger.DebugContext(ctx, "dropping non-numeric column",
				"column", name,
				"type", string(col.Type()))
		}
	}

	dateCells := df.Col(indexName).Records()
	rows := make([]dataset.Row, 0, len(dateCells))
	skipped := 0
	for i, cell := range dateCells {
		d, err := dataset.ParseDate(cell, opts.DateLayouts...)
		if err != nil {
			var ok bool
			if fallback != nil {
				d, ok = fallback(cell)
			}
			if !ok {
				skipped++
				l.logger.WarnContext(ctx, "skipping row with invalid date",
					"row", i+2,
					"value", cell,
					"error", err)
				continue
			}
		}

		values := make([]float64, len(columns))
		for j, col := range columns {
			values[j] = col[i]
			if math.IsInf(values[j], 0) {
				values[j] = math.NaN()
			}
		}
		rows = append(rows, dataset.Row{Date: d, Values: values})
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("no rows with a valid %s: %w", indexName, apierrors.ErrEmptyDataset)
	}
	if skipped > 0 {
		l.logger.WarnContext(ctx, "rows skipped during load",
			"skipped", skipped,
			"kept", len(rows))
	}

	return dataset.FromRows(opts.IndexColumn, names, rows)
}
