package analysis

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"priceeda/internal/dataset"
	apierrors "priceeda/internal/errors"
)

// MovingAverage returns the trailing rolling mean of column over window
// observations. The first window-1 values are missing, as is any value
// whose window contains a missing observation.
func MovingAverage(t *dataset.Table, column string, window int) (Series, error) {
	name := fmt.Sprintf("%d-Day Moving Average", window)
	return rolling(t, column, window, name, func(w []float64) float64 {
		return stat.Mean(w, nil)
	})
}

// Volatility returns the trailing rolling sample standard deviation of
// column over window observations, with the same missing-value rules as
// MovingAverage. A window of 1 yields only missing values.
func Volatility(t *dataset.Table, column string, window int) (Series, error) {
	name := fmt.Sprintf("%d-Day Rolling Volatility", window)
	return rolling(t, column, window, name, func(w []float64) float64 {
		if len(w) < 2 {
			return math.NaN()
		}
		return stat.StdDev(w, nil)
	})
}

func rolling(t *dataset.Table, column string, window int, name string, reduce func([]float64) float64) (Series, error) {
	if window < 1 {
		return Series{}, fmt.Errorf("window %d: %w", window, apierrors.ErrInvalidWindow)
	}

	values, err := t.Column(column)
	if err != nil {
		return Series{}, err
	}

	out := make([]float64, len(values))
	for i := range values {
		if i < window-1 {
			out[i] = math.NaN()
			continue
		}
		w := values[i-window+1 : i+1]
		if anyMissing(w) {
			out[i] = math.NaN()
			continue
		}
		out[i] = reduce(w)
	}

	return Series{Name: name, Dates: t.Dates(), Values: out}, nil
}

func anyMissing(values []float64) bool {
	for _, v := range values {
		if dataset.IsMissing(v) {
			return true
		}
	}
	return false
}
