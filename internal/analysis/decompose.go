package analysis

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"priceeda/internal/dataset"
	apierrors "priceeda/internal/errors"
)

// DefaultSeasonalPeriod is one year of daily observations
const DefaultSeasonalPeriod = 365

// Decomposition is a multiplicative split of a series into
// trend x seasonal x residual
type Decomposition struct {
	Column   string `json:"column"`
	Period   int    `json:"period"`
	Observed Series `json:"observed"`
	Trend    Series `json:"trend"`
	Seasonal Series `json:"seasonal"`
	Residual Series `json:"residual"`
}

// Decompose runs a classical multiplicative seasonal decomposition of column.
// The trend is a centred moving average over one period (a 2xperiod average
// for even periods) and is missing for the first and last half period, as
// is the residual. Seasonal factors are the per-phase means of the
// detrended series, scaled to average 1.
//
// The column must be free of missing values, strictly positive and hold at
// least two full periods.
func Decompose(t *dataset.Table, column string, period int) (Decomposition, error) {
	if period < 2 {
		return Decomposition{}, fmt.Errorf("period %d: %w", period, apierrors.ErrInvalidPeriod)
	}

	x, err := t.Column(column)
	if err != nil {
		return Decomposition{}, err
	}

	if len(x) < 2*period {
		return Decomposition{}, fmt.Errorf("%d observations for period %d, need %d: %w",
			len(x), period, 2*period, apierrors.ErrInsufficientData)
	}
	for i, v := range x {
		if dataset.IsMissing(v) {
			return Decomposition{}, fmt.Errorf("%s on %s: %w",
				column, dataset.DateKey(t.DateAt(i)), apierrors.ErrMissingValue)
		}
		if v <= 0 {
			return Decomposition{}, fmt.Errorf("%s on %s is %g: %w",
				column, dataset.DateKey(t.DateAt(i)), v, apierrors.ErrNonPositive)
		}
	}

	trend := centeredMovingAverage(x, period)

	detrended := make([]float64, len(x))
	for i := range x {
		detrended[i] = x[i] / trend[i]
	}

	factors := make([]float64, period)
	for phase := 0; phase < period; phase++ {
		factors[phase] = nanMeanStride(detrended, phase, period)
	}
	floats.Scale(1/floats.Sum(factors)*float64(period), factors)

	seasonal := make([]float64, len(x))
	residual := make([]float64, len(x))
	for i := range x {
		seasonal[i] = factors[i%period]
		residual[i] = x[i] / (seasonal[i] * trend[i])
	}

	dates := t.Dates()
	return Decomposition{
		Column:   column,
		Period:   period,
		Observed: Series{Name: "Observed", Dates: dates, Values: x},
		Trend:    Series{Name: "Trend", Dates: dates, Values: trend},
		Seasonal: Series{Name: "Seasonal", Dates: dates, Values: seasonal},
		Residual: Series{Name: "Residual", Dates: dates, Values: residual},
	}, nil
}

// centeredMovingAverage convolves x with a centred window of one period.
// Points without a full window are NaN.
func centeredMovingAverage(x []float64, period int) []float64 {
	var weights []float64
	if period%2 == 0 {
		weights = make([]float64, period+1)
		for i := range weights {
			weights[i] = 1 / float64(period)
		}
		weights[0] = 0.5 / float64(period)
		weights[period] = 0.5 / float64(period)
	} else {
		weights = make([]float64, period)
		for i := range weights {
			weights[i] = 1 / float64(period)
		}
	}

	half := len(weights) / 2
	out := make([]float64, len(x))
	for i := range out {
		if i < half || i >= len(x)-half {
			out[i] = math.NaN()
			continue
		}
		out[i] = floats.Dot(weights, x[i-half:i-half+len(weights)])
	}
	return out
}

// nanMeanStride averages x[start], x[start+step], ... skipping NaN
func nanMeanStride(x []float64, start, step int) float64 {
	var sum float64
	var n int
	for i := start; i < len(x); i += step {
		if math.IsNaN(x[i]) {
			continue
		}
		sum += x[i]
		n++
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}
