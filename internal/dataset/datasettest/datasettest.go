// Package datasettest provides table fixtures for tests.
package datasettest

import (
	"math"
	"testing"
	"time"

	"priceeda/internal/dataset"
)

// Day parses a 2006-01-02 date or fails the test
func Day(t testing.TB, s string) time.Time {
	t.Helper()
	d, err := time.Parse(dataset.DateLayout, s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return d
}

// DailyDates returns n consecutive calendar days starting at start
func DailyDates(t testing.TB, start string, n int) []time.Time {
	t.Helper()
	first := Day(t, start)
	dates := make([]time.Time, n)
	for i := range dates {
		dates[i] = first.AddDate(0, 0, i)
	}
	return dates
}

// Table builds a daily table starting at start with the given columns in
// name order. All columns must have the same length.
func Table(t testing.TB, start string, names []string, columns ...[]float64) *dataset.Table {
	t.Helper()
	if len(names) != len(columns) {
		t.Fatalf("%d names for %d columns", len(names), len(columns))
	}
	n := 0
	if len(columns) > 0 {
		n = len(columns[0])
	}
	tbl := dataset.New(dataset.DefaultIndexName, DailyDates(t, start, n))
	for i, name := range names {
		if err := tbl.AddColumn(name, columns[i]); err != nil {
			t.Fatalf("add column %s: %v", name, err)
		}
	}
	return tbl
}

// Linear returns n values a, a+step, a+2*step, ...
func Linear(n int, a, step float64) []float64 {
	values := make([]float64, n)
	for i := range values {
		values[i] = a + float64(i)*step
	}
	return values
}

// Seasonal returns n values of level times a repeating pattern
func Seasonal(n int, level float64, pattern []float64) []float64 {
	values := make([]float64, n)
	for i := range values {
		values[i] = level * pattern[i%len(pattern)]
	}
	return values
}

// WithGaps returns a copy of values with the given positions set missing
func WithGaps(values []float64, positions ...int) []float64 {
	out := make([]float64, len(values))
	copy(out, values)
	for _, p := range positions {
		out[p] = math.NaN()
	}
	return out
}
