package services

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"priceeda/internal/dataset/datasettest"
	"priceeda/internal/shared/testutil"
	"priceeda/internal/store"
)

type fakeProbe bool

func (p fakeProbe) Loaded() bool { return bool(p) }

func TestHealthService_HealthCheck(t *testing.T) {
	logger, handler := testutil.NewTestLogger(t)
	hs := NewHealthService("1.2.3", "", nil, nil, logger)

	status := hs.HealthCheck(context.Background())
	assert.Equal(t, "ok", status.Status)
	assert.Equal(t, "1.2.3", status.Version)
	assert.False(t, status.Timestamp.IsZero())
	assert.True(t, handler.ContainsMessage("HealthService initialized"))
}

func TestHealthService_ReadinessCheck(t *testing.T) {
	ctx := context.Background()

	t.Run("no dataset", func(t *testing.T) {
		hs := NewHealthService("dev", "", fakeProbe(false), nil, nil)
		status := hs.ReadinessCheck(ctx)
		assert.Equal(t, "not_ready", status.Status)
		assert.Equal(t, "not_ready", status.Services["dataset"].Status)
		assert.Equal(t, "disabled", status.Services["journal"].Status)
	})

	t.Run("dataset and journal", func(t *testing.T) {
		journal, err := store.NewSQLiteStore(ctx, filepath.Join(t.TempDir(), "j.db"), nil)
		require.NoError(t, err)
		defer journal.Close()

		hs := NewHealthService("dev", "", fakeProbe(true), journal, nil)
		status := hs.ReadinessCheck(ctx)
		assert.Equal(t, "ready", status.Status)
		assert.Equal(t, "ready", status.Services["journal"].Status)
	})

	t.Run("closed journal", func(t *testing.T) {
		journal, err := store.NewSQLiteStore(ctx, filepath.Join(t.TempDir(), "j.db"), nil)
		require.NoError(t, err)
		require.NoError(t, journal.Close())

		hs := NewHealthService("dev", "", fakeProbe(true), journal, nil)
		status := hs.ReadinessCheck(ctx)
		assert.Equal(t, "not_ready", status.Status)
		assert.Contains(t, status.Services["journal"].Message, "journal error")
	})

	t.Run("analysis service as probe", func(t *testing.T) {
		svc := NewAnalysisService(Dependencies{Config: testAnalysisConfig()})
		hs := NewHealthService("dev", "", svc, nil, nil)
		assert.Equal(t, "not_ready", hs.ReadinessCheck(ctx).Status)

		svc.SetDataset(datasettest.Table(t, "2024-01-01", []string{"Price"}, []float64{1, 2, 3}), "fixture")
		assert.Equal(t, "ready", hs.ReadinessCheck(ctx).Status)
	})
}

func TestHealthService_LivenessAndVersion(t *testing.T) {
	hs := NewHealthService("1.0.0", "2026-01-01T00:00:00Z", nil, nil, nil)

	live := hs.LivenessCheck(context.Background())
	assert.Equal(t, "alive", live.Status)
	assert.Contains(t, live.Runtime, "go_version")
	assert.Contains(t, live.Runtime, "goroutines")

	version := hs.Version()
	assert.Equal(t, "1.0.0", version["version"])
	assert.Equal(t, "2026-01-01T00:00:00Z", version["build_time"])
}
