// Package exporter writes analysis results to disk.
//
// CSVWriter is the core CSV writer with support for headers, streaming,
// and a UTF-8 BOM for Excel compatibility. Relative paths resolve to the
// exports directory, or to the reports directory when they start with
// "reports/".
//
// ImpactExporter writes event impact reports as CSV, XLSX and Parquet.
// TableExporter writes datasets (CSV, long-format Parquet) and correlation
// matrices (CSV, XLSX with a color scale).
//
// Example usage:
//
//	impact := exporter.NewImpactExporter(paths, logger)
//	path, err := impact.ExportCSV("event_impact.csv", report)
package exporter
