// Package analysis computes exploratory statistics over a dataset.Table.
//
// The package provides:
//   - Trailing moving averages and rolling volatility
//   - Classical multiplicative seasonal decomposition
//   - Pairwise Pearson correlation matrices
//   - Event impact analysis: percentage price change across a window of
//     calendar days around each dated event, resolved one event at a time
//
// The free functions are pure. Analyzer wraps them around one owned table
// and adds tracing, structured logging and telemetry recording.
//
// Missing observations are NaN throughout. Rolling windows that contain a
// missing observation produce a missing result.
package analysis
