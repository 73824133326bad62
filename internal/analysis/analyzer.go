package analysis

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"priceeda/internal/dataset"
)

const tracerName = "priceeda/analysis"

// Recorder receives analysis telemetry
type Recorder interface {
	RecordOperation(ctx context.Context, operation string, duration time.Duration, err error)
	RecordEventOutcome(ctx context.Context, status, reason string)
}

type nopRecorder struct{}

func (nopRecorder) RecordOperation(context.Context, string, time.Duration, error) {}
func (nopRecorder) RecordEventOutcome(context.Context, string, string) {}

// Analyzer runs the analyses over one owned dataset. It is not safe for
// concurrent use; callers that share an Analyzer must synchronise.
type Analyzer struct {
	table    *dataset.Table
	logger   *slog.Logger
	tracer   trace.Tracer
	recorder Recorder
}

// Option configures an Analyzer
type Option func(*Analyzer)

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(a *Analyzer) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithTracer sets the tracer used for per-operation spans
func WithTracer(tracer trace.Tracer) Option {
	return func(a *Analyzer) {
		if tracer != nil {
			a.tracer = tracer
		}
	}
}

// WithRecorder sets the telemetry recorder
func WithRecorder(r Recorder) Option {
	return func(a *Analyzer) {
		if r != nil {
			a.recorder = r
		}
	}
}

// New creates an Analyzer owning t
func New(t *dataset.Table, opts ...Option) *Analyzer {
	a := &Analyzer{
		table:    t,
		logger:   slog.Default(),
		tracer:   otel.Tracer(tracerName),
		recorder: nopRecorder{},
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.With("component", "analyzer")
	return a
}

// Dataset returns the current dataset
func (a *Analyzer) Dataset() *dataset.Table {
	return a.table
}

// Replace swaps the owned dataset, typically for the result of Merge
func (a *Analyzer) Replace(t *dataset.Table) {
	a.table = t
	a.logger.Info("dataset replaced",
		"rows", t.Len(),
		"columns", len(t.Columns()))
}

// MovingAverage computes the trailing rolling mean of column
func (a *Analyzer) MovingAverage(ctx context.Context, column string, window int) (Series, error) {
	_, finish := a.start(ctx, "MovingAverage",
		attribute.String("column", column), attribute.Int("window", window))
	s, err := MovingAverage(a.table, column, window)
	finish(err)
	return s, err
}

// Volatility computes the trailing rolling standard deviation of column
func (a *Analyzer) Volatility(ctx context.Context, column string, window int) (Series, error) {
	_, finish := a.start(ctx, "Volatility",
		attribute.String("column", column), attribute.Int("window", window))
	s, err := Volatility(a.table, column, window)
	finish(err)
	return s, err
}

// Decompose runs a multiplicative seasonal decomposition of column
func (a *Analyzer) Decompose(ctx context.Context, column string, period int) (Decomposition, error) {
	_, finish := a.start(ctx, "Decompose",
		attribute.String("column", column), attribute.Int("period", period))
	d, err := Decompose(a.table, column, period)
	finish(err)
	return d, err
}

// Merge left-joins aux onto the dataset and returns the merged table.
// The owned dataset is unchanged; pass the result to Replace to adopt it.
func (a *Analyzer) Merge(ctx context.Context, aux *dataset.Table, key string) (*dataset.Table, error) {
	_, finish := a.start(ctx, "Merge",
		attribute.String("key", key), attribute.Int("aux_rows", aux.Len()))
	merged, err := a.table.LeftJoin(aux, key)
	finish(err)
	return merged, err
}

// Correlation computes the pairwise correlation matrix of all columns
func (a *Analyzer) Correlation(ctx context.Context) (CorrelationMatrix, error) {
	_, finish := a.start(ctx, "Correlation",
		attribute.Int("columns", len(a.table.Columns())))
	m, err := Correlation(a.table)
	finish(err)
	return m, err
}

// EventImpact measures the price change of column around each event
func (a *Analyzer) EventImpact(ctx context.Context, column string, events []Event, window int) (ImpactReport, error) {
	ctx, finish := a.start(ctx, "EventImpact",
		attribute.String("column", column),
		attribute.Int("window", window),
		attribute.Int("events", len(events)))

	report, err := EventImpact(ctx, a.table, column, events, window, a.logger)
	if err == nil {
		for _, o := range report.Outcomes {
			a.recorder.RecordEventOutcome(ctx, string(o.Status), string(o.Reason))
		}
		trace.SpanFromContext(ctx).SetAttributes(
			attribute.String("run_id", report.RunID),
			attribute.Int("resolved", len(report.Records())),
			attribute.Int("skipped", len(report.Skipped())))
	}
	finish(err)
	return report, err
}

// start opens a span for operation and returns a func that closes it and
// records the outcome
func (a *Analyzer) start(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	ctx, span := a.tracer.Start(ctx, "analysis."+operation, trace.WithAttributes(attrs...))
	started := time.Now()

	return ctx, func(err error) {
		elapsed := time.Since(started)
		a.recorder.RecordOperation(ctx, operation, elapsed, err)

		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			a.logger.WarnContext(ctx, "analysis failed",
				"operation", operation,
				"error", err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
			a.logger.DebugContext(ctx, "analysis complete",
				"operation", operation,
				"duration_ms", elapsed.Milliseconds())
		}
		span.End()
	}
}
