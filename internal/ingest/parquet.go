package ingest

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/parquet-go/parquet-go"

	"priceeda/internal/dataset"
	apierrors "priceeda/internal/errors"
)

// Observation is the Parquet schema for long-format series data: one row
// per date and series name.
type Observation struct {
	Date   int64   `parquet:"date,timestamp(millisecond)"` // Unix ms
	Series string  `parquet:"series"`
	Value  float64 `parquet:"value"`
}

// ObservationTime returns the observation date as a UTC day
func (o Observation) ObservationTime() time.Time {
	return dataset.Normalize(time.UnixMilli(o.Date).UTC())
}

func (l *Loader) loadParquet(ctx context.Context, path string, opts Options) (*dataset.Table, error) {
	records, err := parquet.ReadFile[Observation](path)
	if err != nil {
		return nil, fmt.Errorf("read parquet: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("no observations: %w", apierrors.ErrEmptyDataset)
	}

	tbl, duplicates := pivot(records, opts.IndexColumn)
	if duplicates > 0 {
		l.logger.WarnContext(ctx, "duplicate observations ignored",
			"path", path,
			"duplicates", duplicates)
	}
	return tbl, nil
}

// pivot turns long-format observations into a wide table. Series appear
// in first-seen order. The first observation for a date and series wins.
func pivot(records []Observation, indexName string) (*dataset.Table, int) {
	var names []string
	seen := make(map[string]int)
	byDate := make(map[int64]int)
	var dates []time.Time

	for _, rec := range records {
		if _, ok := seen[rec.Series]; !ok {
			seen[rec.Series] = len(names)
			names = append(names, rec.Series)
		}
		d := rec.ObservationTime()
		if _, ok := byDate[d.Unix()]; !ok {
			byDate[d.Unix()] = len(dates)
			dates = append(dates, d)
		}
	}

	rows := make([]dataset.Row, len(dates))
	filled := make([][]bool, len(dates))
	for i, d := range dates {
		values := make([]float64, len(names))
		for j := range values {
			values[j] = math.NaN()
		}
		rows[i] = dataset.Row{Date: d, Values: values}
		filled[i] = make([]bool, len(names))
	}

	duplicates := 0
	for _, rec := range records {
		i := byDate[rec.ObservationTime().Unix()]
		j := seen[rec.Series]
		if filled[i][j] {
			duplicates++
			continue
		}
		filled[i][j] = true
		rows[i].Values[j] = rec.Value
	}

	// row widths always match names, so FromRows cannot fail
	tbl, _ := dataset.FromRows(indexName, names, rows)
	return tbl, duplicates
}
