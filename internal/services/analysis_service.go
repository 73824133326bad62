package services

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"priceeda/internal/analysis"
	"priceeda/internal/charts"
	"priceeda/internal/config"
	"priceeda/internal/dataset"
	apierrors "priceeda/internal/errors"
	"priceeda/internal/exporter"
	"priceeda/internal/infrastructure"
	"priceeda/internal/ingest"
	"priceeda/internal/store"
)

const tracerName = "priceeda/services"

// Dependencies are the collaborators of an AnalysisService. Journal,
// Metrics and Tracer are optional.
type Dependencies struct {
	Config   config.AnalysisConfig
	Paths    *config.Paths
	Renderer *charts.Renderer
	Journal  store.ImpactStore
	Metrics  *infrastructure.BusinessMetrics
	Tracer   trace.Tracer
	Logger   *slog.Logger
}

// DatasetInfo describes the loaded dataset
type DatasetInfo struct {
	dataset.Summary
	Source   string    `json:"source"`
	LoadedAt time.Time `json:"loaded_at"`
}

// MergeResult describes a merge of auxiliary data
type MergeResult struct {
	Dataset  dataset.Summary `json:"dataset"`
	Added    []string        `json:"added_columns"`
	Replaced bool            `json:"replaced"`
}

// AnalysisService is the thread-safe owner of the current dataset
type AnalysisService struct {
	mu       sync.RWMutex
	analyzer *analysis.Analyzer
	source   string
	loadedAt time.Time

	defaults config.AnalysisConfig
	paths    *config.Paths
	loader   *ingest.Loader
	renderer *charts.Renderer
	journal  store.ImpactStore
	impacts  *exporter.ImpactExporter
	tables   *exporter.TableExporter
	metrics  *infrastructure.BusinessMetrics
	tracer   trace.Tracer
	logger   *slog.Logger
}

// NewAnalysisService creates a service with no dataset loaded
func NewAnalysisService(deps Dependencies) *AnalysisService {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tracer := deps.Tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}
	renderer := deps.Renderer
	if renderer == nil {
		renderer = charts.NewRenderer(charts.DefaultOptions(), logger)
	}

	logger.Info("AnalysisService initialized",
		slog.String("price_column", deps.Config.PriceColumn),
		slog.Bool("journal", deps.Journal != nil))

	return &AnalysisService{
		defaults: deps.Config,
		paths:    deps.Paths,
		loader:   ingest.NewLoader(logger),
		renderer: renderer,
		journal:  deps.Journal,
		impacts:  exporter.NewImpactExporter(deps.Paths, logger),
		tables:   exporter.NewTableExporter(deps.Paths, logger),
		metrics:  deps.Metrics,
		tracer:   tracer,
		logger:   logger.With(slog.String("service", "analysis")),
	}
}

// LoadDataset reads path and makes it the current dataset
func (s *AnalysisService) LoadDataset(ctx context.Context, path string) (DatasetInfo, error) {
	ctx, span := s.tracer.Start(ctx, "service.LoadDataset", trace.WithAttributes(attribute.String("path", path)))
	defer span.End()

	tbl, err := s.loader.Load(ctx, path, ingest.Options{IndexColumn: s.defaults.IndexColumn})
	s.recordLoad(ctx, path, tbl, err)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		return DatasetInfo{}, fmt.Errorf("load dataset %s: %w", path, err)
	}

	return s.SetDataset(tbl, path), nil
}

// SetDataset makes t the current dataset. source is informational.
func (s *AnalysisService) SetDataset(t *dataset.Table, source string) DatasetInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.analyzer == nil {
		opts := []analysis.Option{analysis.WithLogger(s.logger), analysis.WithTracer(s.tracer)}
		if s.metrics != nil {
			opts = append(opts, analysis.WithRecorder(s.metrics))
		}
		s.analyzer = analysis.New(t, opts...)
	} else {
		s.analyzer.Replace(t)
	}
	s.source = source
	s.loadedAt = time.Now().UTC()

	s.logger.Info("dataset ready",
		slog.String("source", source),
		slog.Int("rows", t.Len()),
		slog.Int("columns", len(t.Columns())))

	return s.infoLocked()
}

// Dataset returns information about the current dataset
func (s *AnalysisService) Dataset(ctx context.Context) (DatasetInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.analyzer == nil {
		return DatasetInfo{}, apierrors.ErrNoDataset
	}
	return s.infoLocked(), nil
}

// Loaded reports whether a dataset is available
func (s *AnalysisService) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.analyzer != nil
}

// Defaults returns the configured analysis defaults
func (s *AnalysisService) Defaults() config.AnalysisConfig {
	return s.defaults
}

// PriceSeries returns a column of the dataset as a series
func (s *AnalysisService) PriceSeries(ctx context.Context, column string) (analysis.Series, error) {
	var out analysis.Series
	err := s.read(func(a *analysis.Analyzer) (err error) {
		out, err = analysis.ColumnSeries(a.Dataset(), s.column(column))
		return err
	})
	return out, err
}

// MovingAverage computes the rolling mean of column. Zero column or window
// take the configured defaults.
func (s *AnalysisService) MovingAverage(ctx context.Context, column string, window int) (analysis.Series, error) {
	var out analysis.Series
	err := s.read(func(a *analysis.Analyzer) (err error) {
		out, err = a.MovingAverage(ctx, s.column(column), orDefault(window, s.defaults.MovingAverageWindow))
		return err
	})
	return out, err
}

// Volatility computes the rolling standard deviation of column
func (s *AnalysisService) Volatility(ctx context.Context, column string, window int) (analysis.Series, error) {
	var out analysis.Series
	err := s.read(func(a *analysis.Analyzer) (err error) {
		out, err = a.Volatility(ctx, s.column(column), orDefault(window, s.defaults.VolatilityWindow))
		return err
	})
	return out, err
}

// Decompose runs the seasonal decomposition of column
func (s *AnalysisService) Decompose(ctx context.Context, column string, period int) (analysis.Decomposition, error) {
	var out analysis.Decomposition
	err := s.read(func(a *analysis.Analyzer) (err error) {
		out, err = a.Decompose(ctx, s.column(column), orDefault(period, s.defaults.SeasonalPeriod))
		return err
	})
	return out, err
}

// Correlation computes the correlation matrix of every column
func (s *AnalysisService) Correlation(ctx context.Context) (analysis.CorrelationMatrix, error) {
	var out analysis.CorrelationMatrix
	err := s.read(func(a *analysis.Analyzer) (err error) {
		out, err = a.Correlation(ctx)
		return err
	})
	return out, err
}

// Merge left-joins the auxiliary file at path onto the dataset on key.
// With replace the merged table becomes the current dataset; otherwise the
// current dataset is left untouched and only the result is described.
func (s *AnalysisService) Merge(ctx context.Context, path, key string, replace bool) (MergeResult, error) {
	ctx, span := s.tracer.Start(ctx, "service.Merge", trace.WithAttributes(
		attribute.String("path", path),
		attribute.String("key", key),
		attribute.Bool("replace", replace)))
	defer span.End()

	if key == "" {
		key = s.defaults.IndexColumn
	}

	aux, err := s.loader.Load(ctx, path, ingest.Options{IndexColumn: key})
	s.recordLoad(ctx, path, aux, err)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		return MergeResult{}, fmt.Errorf("load auxiliary data %s: %w", path, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.analyzer == nil {
		return MergeResult{}, apierrors.ErrNoDataset
	}

	before := s.analyzer.Dataset().Columns()
	merged, err := s.analyzer.Merge(ctx, aux, key)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		return MergeResult{}, err
	}

	result := MergeResult{Dataset: merged.Summarize(), Replaced: replace, Added: []string{}}
	for _, name := range merged.Columns() {
		if !slices.Contains(before, name) {
			result.Added = append(result.Added, name)
		}
	}

	if replace {
		s.analyzer.Replace(merged)
		s.source = fmt.Sprintf("%s + %s", s.source, path)
		s.loadedAt = time.Now().UTC()
	}

	s.logger.InfoContext(ctx, "auxiliary data merged",
		slog.String("path", path),
		slog.Any("added", result.Added),
		slog.Bool("replaced", replace))

	return result, nil
}

// EventImpact measures price changes around events and journals the run
func (s *AnalysisService) EventImpact(ctx context.Context, column string, events []analysis.Event, window int) (analysis.ImpactReport, error) {
	var report analysis.ImpactReport
	err := s.read(func(a *analysis.Analyzer) (err error) {
		report, err = a.EventImpact(ctx, s.column(column), events, orDefault(window, s.defaults.EventWindow))
		return err
	})
	if err != nil {
		return report, err
	}

	if s.journal != nil {
		if err := s.journal.SaveImpactReport(ctx, report); err != nil {
			s.logger.WarnContext(ctx, "failed to journal impact run",
				slog.String("run_id", report.RunID),
				slog.String("error", err.Error()))
		}
	}
	return report, nil
}

// ImpactRun returns a journaled impact run
func (s *AnalysisService) ImpactRun(ctx context.Context, runID string) (analysis.ImpactReport, error) {
	if s.journal == nil {
		return analysis.ImpactReport{}, fmt.Errorf("run %s: %w", runID, apierrors.ErrRunNotFound)
	}
	return s.journal.GetImpactReport(ctx, runID)
}

// ListImpactRuns returns the most recent journaled runs, newest first
func (s *AnalysisService) ListImpactRuns(ctx context.Context, limit int) ([]store.RunSummary, error) {
	if s.journal == nil {
		return []store.RunSummary{}, nil
	}
	return s.journal.ListImpactRuns(ctx, limit)
}

// read runs fn against the analyzer under the read lock
func (s *AnalysisService) read(fn func(a *analysis.Analyzer) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.analyzer == nil {
		return apierrors.ErrNoDataset
	}
	return fn(s.analyzer)
}

// snapshot returns the current table. Tables are never mutated after they
// are set, so the result can be used after the lock is released.
func (s *AnalysisService) snapshot() (*dataset.Table, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.analyzer == nil {
		return nil, apierrors.ErrNoDataset
	}
	return s.analyzer.Dataset(), nil
}

func (s *AnalysisService) infoLocked() DatasetInfo {
	return DatasetInfo{
		Summary:  s.analyzer.Dataset().Summarize(),
		Source:   s.source,
		LoadedAt: s.loadedAt,
	}
}

func (s *AnalysisService) column(column string) string {
	if column == "" {
		return s.defaults.PriceColumn
	}
	return column
}

func (s *AnalysisService) recordLoad(ctx context.Context, path string, tbl *dataset.Table, err error) {
	if s.metrics == nil {
		return
	}
	kind, kindErr := ingest.Detect(path)
	if kindErr != nil {
		kind = "unknown"
	}
	rows := 0
	if tbl != nil {
		rows = tbl.Len()
	}
	s.metrics.RecordDatasetLoad(ctx, string(kind), rows, err)
}

// orDefault substitutes def for an unset (zero) parameter. Negative values
// pass through so the analysis rejects them.
func orDefault(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}
