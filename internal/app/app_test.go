package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"priceeda/internal/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testConfig points every path into a temp dir and writes a 40 day price
// series as the dataset when withDataset is set
func testConfig(t *testing.T, withDataset bool) *config.Config {
	t.Helper()
	dir := t.TempDir()

	cfg := config.Default()
	cfg.Paths = config.PathsConfig{
		DataDir:     filepath.Join(dir, "data"),
		ReportsDir:  filepath.Join(dir, "reports"),
		DatasetFile: filepath.Join(dir, "data", "prices.csv"),
		JournalFile: filepath.Join(dir, "data", "journal.db"),
	}
	cfg.Analysis.MovingAverageWindow = 3
	cfg.Analysis.VolatilityWindow = 3
	cfg.Analysis.EventWindow = 2
	cfg.Analysis.SeasonalPeriod = 7
	cfg.RateLimit.Enabled = false

	if withDataset {
		var b strings.Builder
		b.WriteString("Date,Price,Volume\n")
		start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		for i := 0; i < 40; i++ {
			fmt.Fprintf(&b, "%s,%d,%d\n", start.AddDate(0, 0, i).Format("2006-01-02"), 100+i, 1000+(i%5)*10)
		}
		require.NoError(t, os.MkdirAll(cfg.Paths.DataDir, 0755))
		require.NoError(t, os.WriteFile(cfg.Paths.DatasetFile, []byte(b.String()), 0644))
	}
	return cfg
}

func newTestApp(t *testing.T, cfg *config.Config) *Application {
	t.Helper()
	app, err := NewApplication(cfg, testLogger())
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = app.Stop(context.Background())
	})
	return app
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestNewApplication_LoadsDataset(t *testing.T) {
	app := newTestApp(t, testConfig(t, true))

	require.NotNil(t, app.Services)
	assert.True(t, app.Services.Analysis.Loaded())
	assert.NotNil(t, app.Journal)
	assert.DirExists(t, app.Paths.ChartsDir)

	rec := do(t, app.Router, http.MethodGet, "/healthz/ready", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, app.Router, http.MethodGet, "/api/v1/dataset", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var info map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.Equal(t, float64(40), info["rows"])
}

func TestNewApplication_WithoutDataset(t *testing.T) {
	app := newTestApp(t, testConfig(t, false))

	assert.False(t, app.Services.Analysis.Loaded())

	rec := do(t, app.Router, http.MethodGet, "/healthz/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = do(t, app.Router, http.MethodGet, "/api/v1/correlation", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(t, app.Router, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestNewApplication_Errors(t *testing.T) {
	_, err := NewApplication(nil, nil)
	assert.Error(t, err)

	cfg := testConfig(t, false)
	cfg.Charts.Format = "gif"
	_, err = NewApplication(cfg, testLogger())
	assert.Error(t, err)

	cfg = testConfig(t, false)
	cfg.Telemetry.MetricExporter = "statsd"
	_, err = NewApplication(cfg, testLogger())
	assert.Error(t, err)
}

func TestRouter_AnalysisFlow(t *testing.T) {
	app := newTestApp(t, testConfig(t, true))
	router := app.Router

	rec := do(t, router, http.MethodGet, "/api/v1/series/Price/moving-average", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"value":null`)
	assert.Contains(t, rec.Body.String(), `"window":3`)

	rec = do(t, router, http.MethodGet, "/api/v1/correlation", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"columns":["Price","Volume"]`)

	rec = do(t, router, http.MethodPost, "/api/v1/events/impact",
		`{"events":{"2024-01-10":"Supply cut","2030-01-01":"Future"}}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var impact map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &impact))
	assert.Equal(t, float64(1), impact["resolved"])
	assert.Equal(t, float64(1), impact["skipped"])
	runID := impact["run_id"].(string)

	rec = do(t, router, http.MethodGet, "/api/v1/events/runs", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), runID)

	rec = do(t, router, http.MethodGet, "/api/v1/events/runs/"+runID, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, router, http.MethodGet, "/api/v1/exports/impact?run_id="+runID, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Supply cut")

	rec = do(t, router, http.MethodGet, "/api/v1/charts/volatility", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))

	rec = do(t, router, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests")
	assert.Contains(t, rec.Body.String(), "eda_event_outcomes")
}

func TestRouter_MergeReplace(t *testing.T) {
	cfg := testConfig(t, true)
	app := newTestApp(t, cfg)

	aux := filepath.Join(cfg.Paths.DataDir, "cpi.csv")
	require.NoError(t, os.WriteFile(aux, []byte("Date,CPI\n2024-01-01,300\n2024-01-02,301\n"), 0644))

	body := fmt.Sprintf(`{"path":%q,"replace":true}`, aux)
	rec := do(t, app.Router, http.MethodPost, "/api/v1/merge", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, app.Router, http.MethodGet, "/api/v1/dataset", "")
	assert.Contains(t, rec.Body.String(), `"CPI"`)
}

func TestRouter_NotFound(t *testing.T) {
	app := newTestApp(t, testConfig(t, false))

	rec := do(t, app.Router, http.MethodGet, "/nowhere", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	var problem map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	assert.Equal(t, "/errors/not-found", problem["type"])

	rec = do(t, app.Router, http.MethodDelete, "/api/v1/dataset", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRouter_RateLimit(t *testing.T) {
	cfg := testConfig(t, false)
	cfg.RateLimit = config.RateLimitConfig{Enabled: true, RPS: 0.001, Burst: 1}
	app := newTestApp(t, cfg)

	first := do(t, app.Router, http.MethodGet, "/healthz", "")
	second := do(t, app.Router, http.MethodGet, "/healthz", "")

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "1", second.Header().Get("Retry-After"))
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func TestApplication_StartStop(t *testing.T) {
	cfg := testConfig(t, true)
	cfg.Server.Port = freePort(t)
	cfg.Server.ShutdownTimeout = 5 * time.Second

	app, err := NewApplication(cfg, testLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, app.Start(ctx, cancel))

	url := fmt.Sprintf("http://127.0.0.1:%d/healthz", cfg.Server.Port)
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 50*time.Millisecond)

	require.NoError(t, app.Stop(context.Background()))

	_, err = http.Get(url)
	assert.Error(t, err)
}
