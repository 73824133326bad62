package analysis

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"priceeda/internal/dataset"
	apierrors "priceeda/internal/errors"
)

// CorrelationMatrix holds pairwise Pearson coefficients between columns.
// Values[i][j] is the coefficient of Columns[i] against Columns[j].
type CorrelationMatrix struct {
	Columns []string    `json:"columns"`
	Values  [][]float64 `json:"values"`
}

// At returns the coefficient between two named columns
func (m CorrelationMatrix) At(a, b string) (float64, bool) {
	i, j := -1, -1
	for k, name := range m.Columns {
		if name == a {
			i = k
		}
		if name == b {
			j = k
		}
	}
	if i < 0 || j < 0 {
		return 0, false
	}
	return m.Values[i][j], true
}

// Correlation computes the Pearson correlation of every pair of columns in t.
// Each pair uses only the rows where both values are present. Pairs with
// fewer than two such rows, or with zero variance, are missing. The
// diagonal is always 1.
func Correlation(t *dataset.Table) (CorrelationMatrix, error) {
	names := t.Columns()
	if len(names) < 2 {
		return CorrelationMatrix{}, fmt.Errorf("%d numeric columns: %w", len(names), apierrors.ErrInsufficientColumns)
	}

	columns := make([][]float64, len(names))
	for i, name := range names {
		values, err := t.Column(name)
		if err != nil {
			return CorrelationMatrix{}, err
		}
		columns[i] = values
	}

	values := make([][]float64, len(names))
	for i := range values {
		values[i] = make([]float64, len(names))
	}
	for i := range names {
		values[i][i] = 1
		for j := i + 1; j < len(names); j++ {
			r := pairwisePearson(columns[i], columns[j])
			values[i][j] = r
			values[j][i] = r
		}
	}

	return CorrelationMatrix{Columns: names, Values: values}, nil
}

func pairwisePearson(x, y []float64) float64 {
	xs := make([]float64, 0, len(x))
	ys := make([]float64, 0, len(y))
	for i := range x {
		if dataset.IsMissing(x[i]) || dataset.IsMissing(y[i]) {
			continue
		}
		xs = append(xs, x[i])
		ys = append(ys, y[i])
	}
	if len(xs) < 2 {
		return math.NaN()
	}

	r := stat.Correlation(xs, ys, nil)
	if math.IsInf(r, 0) {
		return math.NaN()
	}
	return r
}
