// Package ingest loads date-indexed numeric datasets from CSV, XLSX and
// Parquet files into dataset.Table values.
//
// CSV and XLSX files are wide: one date column (the index) and one column
// per series. Parquet files are long: one (date, series, value) row per
// observation, pivoted on load. Dates are parsed with several common
// layouts; rows whose date cannot be parsed are skipped and logged.
package ingest
