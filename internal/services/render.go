package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"priceeda/internal/analysis"
	"priceeda/internal/charts"
	apierrors "priceeda/internal/errors"
)

// ChartKind names a renderable chart
type ChartKind string

const (
	ChartMovingAverage ChartKind = "moving-average"
	ChartVolatility    ChartKind = "volatility"
	ChartDecomposition ChartKind = "decomposition"
	ChartCorrelation   ChartKind = "correlation"
)

// ChartKinds lists every chart kind in report order
func ChartKinds() []ChartKind {
	return []ChartKind{ChartMovingAverage, ChartVolatility, ChartDecomposition, ChartCorrelation}
}

// ParseChartKind parses a chart kind name
func ParseChartKind(s string) (ChartKind, error) {
	kind := ChartKind(strings.ToLower(strings.TrimSpace(s)))
	for _, k := range ChartKinds() {
		if k == kind {
			return k, nil
		}
	}
	return "", fmt.Errorf("%q: %w", s, ErrUnknownChart)
}

// ChartRequest selects a chart and its parameters. Zero fields take the
// configured defaults. Window applies to moving-average and volatility,
// Period to decomposition.
type ChartRequest struct {
	Kind   ChartKind
	Column string
	Window int
	Period int
}

// RenderChart computes and draws the requested chart into w and returns
// the image format written
func (s *AnalysisService) RenderChart(ctx context.Context, w io.Writer, req ChartRequest) (charts.Format, error) {
	ctx, span := s.tracer.Start(ctx, "service.RenderChart", trace.WithAttributes(
		attribute.String("kind", string(req.Kind)),
		attribute.String("column", req.Column)))
	defer span.End()

	switch req.Kind {
	case ChartMovingAverage:
		price, err := s.PriceSeries(ctx, req.Column)
		if err != nil {
			return "", err
		}
		window := orDefault(req.Window, s.defaults.MovingAverageWindow)
		average, err := s.MovingAverage(ctx, req.Column, window)
		if err != nil {
			return "", err
		}
		return s.renderer.Format(), s.renderer.MovingAverage(w, price, average, window)

	case ChartVolatility:
		window := orDefault(req.Window, s.defaults.VolatilityWindow)
		vol, err := s.Volatility(ctx, req.Column, window)
		if err != nil {
			return "", err
		}
		return s.renderer.Format(), s.renderer.Volatility(w, s.column(req.Column), vol, window)

	case ChartDecomposition:
		d, err := s.Decompose(ctx, req.Column, req.Period)
		if err != nil {
			return "", err
		}
		return charts.FormatPNG, s.renderer.Decomposition(w, d)

	case ChartCorrelation:
		m, err := s.Correlation(ctx)
		if err != nil {
			return "", err
		}
		return charts.FormatPNG, s.renderer.Heatmap(w, m)

	default:
		return "", fmt.Errorf("%q: %w", req.Kind, ErrUnknownChart)
	}
}

// ReportOptions configures a full report run
type ReportOptions struct {
	Column string
	// Events, when non-empty, adds an event impact run exported as CSV and
	// XLSX plus a per-event outcome CSV
	Events []analysis.Event
	Window int
}

// ReportResult lists the files a report produced
type ReportResult struct {
	Charts  []string               `json:"charts"`
	Exports []string               `json:"exports"`
	Skipped map[ChartKind]string   `json:"skipped,omitempty"`
	Impact  *analysis.ImpactReport `json:"impact,omitempty"`
}

// Report renders every chart concurrently into the charts directory and,
// when events are given, runs and exports an event impact analysis. A chart
// whose preconditions the dataset does not meet is skipped and reported;
// any other failure cancels the remaining work.
func (s *AnalysisService) Report(ctx context.Context, opts ReportOptions) (ReportResult, error) {
	if s.paths == nil {
		return ReportResult{}, errors.New("report requires configured paths")
	}
	if _, err := s.snapshot(); err != nil {
		return ReportResult{}, err
	}
	if err := os.MkdirAll(s.paths.ChartsDir, 0755); err != nil {
		return ReportResult{}, fmt.Errorf("create charts directory: %w", err)
	}

	column := s.column(opts.Column)
	result := ReportResult{Skipped: make(map[ChartKind]string)}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for _, kind := range ChartKinds() {
		g.Go(func() error {
			var buf bytes.Buffer
			format, err := s.RenderChart(gctx, &buf, ChartRequest{Kind: kind, Column: column})
			if err != nil {
				if isPrecondition(err) {
					mu.Lock()
					result.Skipped[kind] = err.Error()
					mu.Unlock()
					s.logger.WarnContext(gctx, "chart skipped",
						slog.String("kind", string(kind)),
						slog.String("error", err.Error()))
					return nil
				}
				return fmt.Errorf("render %s: %w", kind, err)
			}

			name := fmt.Sprintf("%s_%s.%s", sanitize(column), kind, format)
			if kind == ChartCorrelation {
				name = fmt.Sprintf("correlation.%s", format)
			}
			path := s.paths.GetChartPath(name)
			if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
				return fmt.Errorf("write %s: %w", name, err)
			}

			mu.Lock()
			result.Charts = append(result.Charts, path)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return result, err
	}

	if len(opts.Events) > 0 {
		report, err := s.EventImpact(ctx, column, opts.Events, opts.Window)
		if err != nil {
			return result, err
		}
		result.Impact = &report
		for _, format := range []ExportFormat{ExportCSV, ExportXLSX} {
			path, err := s.exportImpact(report, format)
			if err != nil {
				return result, err
			}
			result.Exports = append(result.Exports, path)
		}
		path, err := s.impacts.ExportOutcomesCSV(fmt.Sprintf("impact_%s_outcomes.csv", report.RunID), report)
		if err != nil {
			return result, err
		}
		result.Exports = append(result.Exports, path)
	}

	s.logger.InfoContext(ctx, "report complete",
		slog.Int("charts", len(result.Charts)),
		slog.Int("skipped", len(result.Skipped)),
		slog.Int("exports", len(result.Exports)))
	return result, nil
}

// isPrecondition reports whether err means the data cannot support the
// analysis, as opposed to an I/O or programming failure
func isPrecondition(err error) bool {
	return errors.Is(err, apierrors.ErrInsufficientData) ||
		errors.Is(err, apierrors.ErrInsufficientColumns) ||
		errors.Is(err, apierrors.ErrMissingValue) ||
		errors.Is(err, apierrors.ErrNonPositive)
}

func sanitize(name string) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', ' ':
			return '_'
		}
		return r
	}, name)
	return filepath.Base(name)
}
