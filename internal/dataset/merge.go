package dataset

import (
	"fmt"
	"math"

	apierrors "priceeda/internal/errors"
)

// Suffixes applied to column names present in both tables of a join
const (
	LeftSuffix  = "_x"
	RightSuffix = "_y"
)

// LeftJoin attaches the columns of aux to a copy of t, matching rows on the
// date index named key. Every row of t is kept in order; rows without a
// matching aux date get NaN. When aux repeats a date the first occurrence
// is used, so the result always has t.Len() rows. The receiver is not
// modified.
func (t *Table) LeftJoin(aux *Table, key string) (*Table, error) {
	if key == "" {
		key = DefaultIndexName
	}
	if t.indexName != key {
		return nil, fmt.Errorf("primary index %q, key %q: %w", t.indexName, key, apierrors.ErrKeyMismatch)
	}
	if aux.indexName != key {
		return nil, fmt.Errorf("auxiliary index %q, key %q: %w", aux.indexName, key, apierrors.ErrKeyMismatch)
	}

	// Row in aux for each row in t, -1 when absent
	match := make([]int, len(t.dates))
	for i, d := range t.dates {
		j, ok := aux.Position(d)
		if !ok {
			j = -1
		}
		match[i] = j
	}

	out := New(t.indexName, t.dates)

	for _, name := range t.names {
		outName := name
		if aux.HasColumn(name) {
			outName = name + LeftSuffix
		}
		if err := out.AddColumn(outName, t.columns[name]); err != nil {
			return nil, err
		}
	}

	for _, name := range aux.names {
		src := aux.columns[name]
		values := make([]float64, len(t.dates))
		for i, j := range match {
			if j < 0 {
				values[i] = math.NaN()
				continue
			}
			values[i] = src[j]
		}

		outName := name
		if t.HasColumn(name) {
			outName = name + RightSuffix
		}
		if err := out.AddColumn(outName, values); err != nil {
			return nil, err
		}
	}

	return out, nil
}
