package http

import (
	"context"
	"io"

	"priceeda/internal/analysis"
	"priceeda/internal/charts"
	"priceeda/internal/config"
	"priceeda/internal/services"
	"priceeda/internal/store"
)

// AnalysisServiceInterface defines the analysis operations the handlers use
type AnalysisServiceInterface interface {
	Dataset(ctx context.Context) (services.DatasetInfo, error)
	LoadDataset(ctx context.Context, path string) (services.DatasetInfo, error)
	Defaults() config.AnalysisConfig

	PriceSeries(ctx context.Context, column string) (analysis.Series, error)
	MovingAverage(ctx context.Context, column string, window int) (analysis.Series, error)
	Volatility(ctx context.Context, column string, window int) (analysis.Series, error)
	Decompose(ctx context.Context, column string, period int) (analysis.Decomposition, error)
	Correlation(ctx context.Context) (analysis.CorrelationMatrix, error)
	Merge(ctx context.Context, path, key string, replace bool) (services.MergeResult, error)

	EventImpact(ctx context.Context, column string, events []analysis.Event, window int) (analysis.ImpactReport, error)
	ImpactRun(ctx context.Context, runID string) (analysis.ImpactReport, error)
	ListImpactRuns(ctx context.Context, limit int) ([]store.RunSummary, error)

	RenderChart(ctx context.Context, w io.Writer, req services.ChartRequest) (charts.Format, error)
	Export(ctx context.Context, target string, format services.ExportFormat, runID string) (string, error)
}

var _ AnalysisServiceInterface = (*services.AnalysisService)(nil)
