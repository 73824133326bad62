package exporter

import (
	"math"
	"strconv"
	"time"

	"priceeda/internal/dataset"
)

// formatFloat formats a float64 value for CSV output with exactly 2 decimal
// places. Missing values become empty cells.
func formatFloat(f float64) string {
	return formatFixed(f, 2)
}

// formatRatio formats coefficients and percentages with 4 decimal places
func formatRatio(f float64) string {
	return formatFixed(f, 4)
}

func formatFixed(f float64, prec int) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return ""
	}
	return strconv.FormatFloat(f, 'f', prec, 64)
}

// formatValue keeps full precision for raw dataset values
func formatValue(f float64) string {
	if math.IsNaN(f) {
		return ""
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// formatDate formats a date as YYYY-MM-DD. The zero time becomes empty.
func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return dataset.DateKey(t)
}
