package analysis

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"priceeda/internal/dataset/datasettest"
	apierrors "priceeda/internal/errors"
)

func TestCorrelation(t *testing.T) {
	a := []float64{1, 2, 3, 4, 5}
	tbl := datasettest.Table(t, "2024-01-01",
		[]string{"Price", "Double", "Inverse", "Noise"},
		a,
		[]float64{3, 5, 7, 9, 11},
		[]float64{-1, -2, -3, -4, -5},
		[]float64{2, 1, 4, 3, 5},
	)

	m, err := Correlation(tbl)
	require.NoError(t, err)
	assert.Equal(t, []string{"Price", "Double", "Inverse", "Noise"}, m.Columns)

	r, ok := m.At("Price", "Double")
	require.True(t, ok)
	assert.InDelta(t, 1, r, 1e-12)

	r, _ = m.At("Price", "Inverse")
	assert.InDelta(t, -1, r, 1e-12)

	r, _ = m.At("Price", "Noise")
	assert.InDelta(t, 0.8, r, 1e-12)

	for i := range m.Columns {
		assert.Equal(t, 1.0, m.Values[i][i])
		for j := range m.Columns {
			assert.Equal(t, m.Values[i][j], m.Values[j][i])
			assert.LessOrEqual(t, math.Abs(m.Values[i][j]), 1+1e-12)
		}
	}

	_, ok = m.At("Price", "Volume")
	assert.False(t, ok)
}

func TestCorrelation_PairwiseComplete(t *testing.T) {
	tbl := datasettest.Table(t, "2024-01-01",
		[]string{"Price", "CPI", "Sparse"},
		[]float64{1, 2, 3, 4, 5},
		datasettest.WithGaps([]float64{2, 4, 100, 8, 10}, 2),
		datasettest.WithGaps([]float64{1, 0, 0, 0, 0}, 1, 2, 3, 4),
	)

	m, err := Correlation(tbl)
	require.NoError(t, err)

	r, _ := m.At("Price", "CPI")
	assert.InDelta(t, 1, r, 1e-12)

	r, _ = m.At("Price", "Sparse")
	assert.True(t, math.IsNaN(r))

	r, _ = m.At("Sparse", "Sparse")
	assert.Equal(t, 1.0, r)
}

func TestCorrelation_InsufficientColumns(t *testing.T) {
	tbl := datasettest.Table(t, "2024-01-01", []string{"Price"}, []float64{1, 2, 3})

	_, err := Correlation(tbl)
	assert.True(t, errors.Is(err, apierrors.ErrInsufficientColumns))
}
