package dataset

import (
	"fmt"
	"math"
	"sort"
	"time"

	apierrors "priceeda/internal/errors"
)

const (
	// DefaultIndexName is the name of the date index when none is given
	DefaultIndexName = "Date"
	// DateLayout is the canonical day layout used for index keys
	DateLayout = "2006-01-02"
)

// Table is an ordered, date-indexed table of named float64 columns.
// Missing values are NaN.
type Table struct {
	indexName string
	dates     []time.Time
	lookup    map[string]int
	names     []string
	columns   map[string][]float64
}

// Row is one dated observation across a fixed set of columns
type Row struct {
	Date   time.Time
	Values []float64
}

// New creates a table over the given dates. Dates are normalised to UTC
// midnight. Order is kept as given; a repeated date resolves to its first
// position.
func New(indexName string, dates []time.Time) *Table {
	if indexName == "" {
		indexName = DefaultIndexName
	}

	t := &Table{
		indexName: indexName,
		dates:     make([]time.Time, len(dates)),
		lookup:    make(map[string]int, len(dates)),
		columns:   make(map[string][]float64),
	}

	for i, d := range dates {
		d = Normalize(d)
		t.dates[i] = d
		key := DateKey(d)
		if _, seen := t.lookup[key]; !seen {
			t.lookup[key] = i
		}
	}

	return t
}

// FromRows builds a table from rows, sorting them by date
func FromRows(indexName string, names []string, rows []Row) (*Table, error) {
	sorted := make([]Row, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})

	dates := make([]time.Time, len(sorted))
	for i, r := range sorted {
		if len(r.Values) != len(names) {
			return nil, fmt.Errorf("row %s has %d values for %d columns: %w",
				DateKey(r.Date), len(r.Values), len(names), apierrors.ErrLengthMismatch)
		}
		dates[i] = r.Date
	}

	t := New(indexName, dates)
	for c, name := range names {
		values := make([]float64, len(sorted))
		for i, r := range sorted {
			values[i] = r.Values[c]
		}
		if err := t.AddColumn(name, values); err != nil {
			return nil, err
		}
	}

	return t, nil
}

// Normalize truncates a time to its UTC calendar day
func Normalize(d time.Time) time.Time {
	y, m, day := d.Date()
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

// DateKey formats a date as an index key
func DateKey(d time.Time) string {
	return d.Format(DateLayout)
}

// IsMissing reports whether v is a missing value
func IsMissing(v float64) bool {
	return math.IsNaN(v)
}

// AddColumn appends a column. The values are copied.
func (t *Table) AddColumn(name string, values []float64) error {
	if len(values) != len(t.dates) {
		return fmt.Errorf("column %q has %d values, index has %d: %w",
			name, len(values), len(t.dates), apierrors.ErrLengthMismatch)
	}
	if _, exists := t.columns[name]; exists {
		return fmt.Errorf("column %q: %w", name, apierrors.ErrDuplicateColumn)
	}

	cp := make([]float64, len(values))
	copy(cp, values)
	t.names = append(t.names, name)
	t.columns[name] = cp
	return nil
}

// IndexName returns the name of the date index
func (t *Table) IndexName() string {
	return t.indexName
}

// Len returns the number of rows
func (t *Table) Len() int {
	return len(t.dates)
}

// Dates returns a copy of the date index
func (t *Table) Dates() []time.Time {
	out := make([]time.Time, len(t.dates))
	copy(out, t.dates)
	return out
}

// DateAt returns the date at row i
func (t *Table) DateAt(i int) time.Time {
	return t.dates[i]
}

// Columns returns the column names in insertion order
func (t *Table) Columns() []string {
	out := make([]string, len(t.names))
	copy(out, t.names)
	return out
}

// HasColumn reports whether the table has the named column
func (t *Table) HasColumn(name string) bool {
	_, ok := t.columns[name]
	return ok
}

// Column returns a copy of the named column
func (t *Table) Column(name string) ([]float64, error) {
	values, ok := t.columns[name]
	if !ok {
		return nil, fmt.Errorf("column %q: %w", name, apierrors.ErrColumnNotFound)
	}
	out := make([]float64, len(values))
	copy(out, values)
	return out, nil
}

// Position returns the row of date in the index
func (t *Table) Position(date time.Time) (int, bool) {
	i, ok := t.lookup[DateKey(Normalize(date))]
	return i, ok
}

// Value returns the value of column at date. A present date holding a
// missing value returns NaN with a nil error.
func (t *Table) Value(column string, date time.Time) (float64, error) {
	values, ok := t.columns[column]
	if !ok {
		return math.NaN(), fmt.Errorf("column %q: %w", column, apierrors.ErrColumnNotFound)
	}
	i, ok := t.Position(date)
	if !ok {
		return math.NaN(), fmt.Errorf("%s: %w", DateKey(date), apierrors.ErrDateNotFound)
	}
	return values[i], nil
}

// Clone returns a deep copy of the table
func (t *Table) Clone() *Table {
	out := New(t.indexName, t.dates)
	for _, name := range t.names {
		// names are unique and lengths match, so AddColumn cannot fail
		_ = out.AddColumn(name, t.columns[name])
	}
	return out
}

// Select returns a new table holding only the named columns
func (t *Table) Select(names ...string) (*Table, error) {
	out := New(t.indexName, t.dates)
	for _, name := range names {
		values, ok := t.columns[name]
		if !ok {
			return nil, fmt.Errorf("column %q: %w", name, apierrors.ErrColumnNotFound)
		}
		if err := out.AddColumn(name, values); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Span returns the first and last index dates
func (t *Table) Span() (first, last time.Time, err error) {
	if len(t.dates) == 0 {
		return time.Time{}, time.Time{}, apierrors.ErrEmptyDataset
	}
	return t.dates[0], t.dates[len(t.dates)-1], nil
}

// Summary describes the shape of a table
type Summary struct {
	IndexName string         `json:"index_name"`
	Rows      int            `json:"rows"`
	Columns   []string       `json:"columns"`
	FirstDate time.Time      `json:"first_date,omitempty"`
	LastDate  time.Time      `json:"last_date,omitempty"`
	Missing   map[string]int `json:"missing"`
}

// Summarize returns row/column counts, the date span and per-column missing counts
func (t *Table) Summarize() Summary {
	s := Summary{
		IndexName: t.indexName,
		Rows:      len(t.dates),
		Columns:   t.Columns(),
		Missing:   make(map[string]int, len(t.names)),
	}
	if first, last, err := t.Span(); err == nil {
		s.FirstDate, s.LastDate = first, last
	}
	for _, name := range t.names {
		n := 0
		for _, v := range t.columns[name] {
			if IsMissing(v) {
				n++
			}
		}
		s.Missing[name] = n
	}
	return s
}
