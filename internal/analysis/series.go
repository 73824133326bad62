package analysis

import (
	"time"

	"priceeda/internal/dataset"
)

// Series is a named, dated sequence derived from a table column
type Series struct {
	Name   string      `json:"name"`
	Dates  []time.Time `json:"dates"`
	Values []float64   `json:"values"`
}

// Len returns the number of points
func (s Series) Len() int {
	return len(s.Values)
}

// Defined returns the points whose value is not missing
func (s Series) Defined() ([]time.Time, []float64) {
	dates := make([]time.Time, 0, len(s.Values))
	values := make([]float64, 0, len(s.Values))
	for i, v := range s.Values {
		if dataset.IsMissing(v) {
			continue
		}
		dates = append(dates, s.Dates[i])
		values = append(values, v)
	}
	return dates, values
}

// ColumnSeries returns a table column as a Series
func ColumnSeries(t *dataset.Table, column string) (Series, error) {
	values, err := t.Column(column)
	if err != nil {
		return Series{}, err
	}
	return Series{Name: column, Dates: t.Dates(), Values: values}, nil
}
