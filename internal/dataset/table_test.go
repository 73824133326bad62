package dataset

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "priceeda/internal/errors"
)

func day(s string) time.Time {
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		panic(err)
	}
	return d
}

func dailyDates(start string, n int) []time.Time {
	first := day(start)
	out := make([]time.Time, n)
	for i := range out {
		out[i] = first.AddDate(0, 0, i)
	}
	return out
}

func TestNew_NormalizesDates(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*3600)
	tbl := New("", []time.Time{time.Date(2024, 1, 2, 15, 30, 0, 0, loc)})

	assert.Equal(t, DefaultIndexName, tbl.IndexName())
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), tbl.DateAt(0))

	i, ok := tbl.Position(day("2024-01-02"))
	assert.True(t, ok)
	assert.Equal(t, 0, i)
}

func TestAddColumn(t *testing.T) {
	tbl := New("Date", dailyDates("2024-01-01", 3))

	require.NoError(t, tbl.AddColumn("Price", []float64{1, 2, 3}))

	err := tbl.AddColumn("Price", []float64{1, 2, 3})
	assert.True(t, errors.Is(err, apierrors.ErrDuplicateColumn))

	err = tbl.AddColumn("Short", []float64{1})
	assert.True(t, errors.Is(err, apierrors.ErrLengthMismatch))

	assert.Equal(t, []string{"Price"}, tbl.Columns())
}

func TestColumn_ReturnsCopy(t *testing.T) {
	tbl := New("Date", dailyDates("2024-01-01", 2))
	require.NoError(t, tbl.AddColumn("Price", []float64{10, 20}))

	values, err := tbl.Column("Price")
	require.NoError(t, err)
	values[0] = 999

	again, _ := tbl.Column("Price")
	assert.Equal(t, 10.0, again[0])

	_, err = tbl.Column("Volume")
	assert.True(t, errors.Is(err, apierrors.ErrColumnNotFound))
}

func TestValue(t *testing.T) {
	tbl := New("Date", dailyDates("2024-01-01", 3))
	require.NoError(t, tbl.AddColumn("Price", []float64{10, math.NaN(), 30}))

	tests := []struct {
		name    string
		column  string
		date    time.Time
		want    float64
		wantNaN bool
		wantErr error
	}{
		{name: "present", column: "Price", date: day("2024-01-03"), want: 30},
		{name: "missing value", column: "Price", date: day("2024-01-02"), wantNaN: true},
		{name: "absent date", column: "Price", date: day("2024-02-01"), wantErr: apierrors.ErrDateNotFound},
		{name: "absent column", column: "Brent", date: day("2024-01-01"), wantErr: apierrors.ErrColumnNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := tbl.Value(tt.column, tt.date)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			if tt.wantNaN {
				assert.True(t, IsMissing(v))
				return
			}
			assert.Equal(t, tt.want, v)
		})
	}
}

func TestFromRows_SortsByDate(t *testing.T) {
	rows := []Row{
		{Date: day("2024-01-03"), Values: []float64{3, 30}},
		{Date: day("2024-01-01"), Values: []float64{1, 10}},
		{Date: day("2024-01-02"), Values: []float64{2, 20}},
	}

	tbl, err := FromRows("Date", []string{"A", "B"}, rows)
	require.NoError(t, err)

	assert.Equal(t, day("2024-01-01"), tbl.DateAt(0))
	b, _ := tbl.Column("B")
	assert.Equal(t, []float64{10, 20, 30}, b)

	_, err = FromRows("Date", []string{"A"}, rows)
	assert.True(t, errors.Is(err, apierrors.ErrLengthMismatch))
}

func TestDuplicateDateResolvesToFirst(t *testing.T) {
	tbl := New("Date", []time.Time{day("2024-01-01"), day("2024-01-01")})
	require.NoError(t, tbl.AddColumn("Price", []float64{1, 2}))

	v, err := tbl.Value("Price", day("2024-01-01"))
	require.NoError(t, err)
	assert.Equal(t, 1.0, v)
}

func TestSelectAndClone(t *testing.T) {
	tbl := New("Date", dailyDates("2024-01-01", 2))
	require.NoError(t, tbl.AddColumn("A", []float64{1, 2}))
	require.NoError(t, tbl.AddColumn("B", []float64{3, 4}))

	sel, err := tbl.Select("B")
	require.NoError(t, err)
	assert.Equal(t, []string{"B"}, sel.Columns())

	_, err = tbl.Select("C")
	assert.True(t, errors.Is(err, apierrors.ErrColumnNotFound))

	clone := tbl.Clone()
	require.NoError(t, clone.AddColumn("C", []float64{5, 6}))
	assert.False(t, tbl.HasColumn("C"))
}

func TestSummarize(t *testing.T) {
	tbl := New("Date", dailyDates("2024-01-01", 3))
	require.NoError(t, tbl.AddColumn("Price", []float64{1, math.NaN(), 3}))

	s := tbl.Summarize()
	assert.Equal(t, 3, s.Rows)
	assert.Equal(t, 1, s.Missing["Price"])
	assert.Equal(t, day("2024-01-01"), s.FirstDate)
	assert.Equal(t, day("2024-01-03"), s.LastDate)

	_, _, err := New("Date", nil).Span()
	assert.True(t, errors.Is(err, apierrors.ErrEmptyDataset))
}
