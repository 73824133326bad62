package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"priceeda/internal/analysis"
	apierrors "priceeda/internal/errors"
	"priceeda/internal/shared/testutil"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	s, err := NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "journal", "eda.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func report(runID string, generated time.Time) analysis.ImpactReport {
	cut := time.Date(2020, 1, 21, 0, 0, 0, 0, time.UTC)
	return analysis.ImpactReport{
		RunID:       runID,
		Column:      "Price",
		Window:      10,
		GeneratedAt: generated,
		Outcomes: []analysis.Outcome{
			{
				Event:     analysis.Event{Date: "2020-01-21", Label: "Rate Cut"},
				EventDate: cut,
				Status:    analysis.StatusResolved,
				Record: &analysis.ImpactRecord{
					Event:       "Rate Cut",
					Date:        cut,
					PriceBefore: 111,
					PriceAfter:  131,
					PctChange:   18.018018018018019,
				},
			},
			{
				Event:     analysis.Event{Date: "2020-02-27", Label: "Late"},
				EventDate: time.Date(2020, 2, 27, 0, 0, 0, 0, time.UTC),
				Status:    analysis.StatusSkipped,
				Reason:    analysis.ReasonWindowOutOfRange,
				Detail:    "window end 2020-03-08: date not found in index",
			},
			{
				Event:  analysis.Event{Date: "someday", Label: "Rumour"},
				Status: analysis.StatusSkipped,
				Reason: analysis.ReasonInvalidDate,
				Detail: "unable to parse date: someday",
			},
		},
	}
}

func TestSQLiteStore_SaveAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	want := report("run-1", time.Date(2024, 5, 1, 12, 30, 0, 123, time.UTC))
	require.NoError(t, s.SaveImpactReport(ctx, want))

	got, err := s.GetImpactReport(ctx, "run-1")
	require.NoError(t, err)

	assert.Equal(t, want.RunID, got.RunID)
	assert.Equal(t, want.Column, got.Column)
	assert.Equal(t, want.Window, got.Window)
	assert.True(t, want.GeneratedAt.Equal(got.GeneratedAt))
	require.Len(t, got.Outcomes, 3)

	assert.Equal(t, analysis.StatusResolved, got.Outcomes[0].Status)
	require.NotNil(t, got.Outcomes[0].Record)
	assert.Equal(t, *want.Outcomes[0].Record, *got.Outcomes[0].Record)

	assert.Equal(t, analysis.ReasonWindowOutOfRange, got.Outcomes[1].Reason)
	assert.Nil(t, got.Outcomes[1].Record)

	assert.Equal(t, "someday", got.Outcomes[2].Event.Date)
	assert.True(t, got.Outcomes[2].EventDate.IsZero())
	assert.Equal(t, want.Outcomes[2].Detail, got.Outcomes[2].Detail)

	assert.Equal(t, want.Records(), got.Records())
}

func TestSQLiteStore_GetUnknownRun(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetImpactReport(context.Background(), "missing")
	assert.True(t, errors.Is(err, apierrors.ErrRunNotFound))
}

func TestSQLiteStore_DuplicateRunID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	r := report("run-1", time.Now())
	require.NoError(t, s.SaveImpactReport(ctx, r))
	assert.Error(t, s.SaveImpactReport(ctx, r))

	// the failed save leaves the first run intact
	got, err := s.GetImpactReport(ctx, "run-1")
	require.NoError(t, err)
	assert.Len(t, got.Outcomes, 3)
}

func TestSQLiteStore_RequiresRunID(t *testing.T) {
	s := newTestStore(t)
	assert.Error(t, s.SaveImpactReport(context.Background(), analysis.ImpactReport{}))
}

func TestSQLiteStore_ListImpactRuns(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.SaveImpactReport(ctx, report("old", base)))
	require.NoError(t, s.SaveImpactReport(ctx, report("new", base.Add(time.Hour))))
	require.NoError(t, s.SaveImpactReport(ctx, report("mid", base.Add(time.Minute))))

	runs, err := s.ListImpactRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "new", runs[0].RunID)
	assert.Equal(t, "mid", runs[1].RunID)
	assert.Equal(t, "old", runs[2].RunID)
	assert.Equal(t, 1, runs[0].Resolved)
	assert.Equal(t, 2, runs[0].Skipped)

	limited, err := s.ListImpactRuns(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestSQLiteStore_ListEmpty(t *testing.T) {
	s := newTestStore(t)

	runs, err := s.ListImpactRuns(context.Background(), 10)
	require.NoError(t, err)
	assert.NotNil(t, runs)
	assert.Empty(t, runs)
}

func TestSQLiteStore_ReopenKeepsRuns(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "eda.db")

	s, err := NewSQLiteStore(ctx, path, nil)
	require.NoError(t, err)
	require.NoError(t, s.SaveImpactReport(ctx, report("run-1", time.Now())))
	require.NoError(t, s.Close())

	s, err = NewSQLiteStore(ctx, path, nil)
	require.NoError(t, err)
	defer s.Close()

	_, err = s.GetImpactReport(ctx, "run-1")
	assert.NoError(t, err)
}
