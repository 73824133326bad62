// Package http implements the HTTP handlers of the analysis API. Handlers
// are thin: they parse and validate requests, call the analysis service and
// render JSON or images. Errors are rendered as RFC 7807 problems by the
// shared error handler.
//
// # Routes
//
//	GET  /healthz                                  liveness summary
//	GET  /healthz/ready                            dataset and journal readiness
//	GET  /metrics                                  Prometheus metrics
//	GET  /api/v1/dataset                           loaded dataset summary
//	POST /api/v1/dataset/load                      {"path"}
//	POST /api/v1/merge                             {"path", "key", "replace"}
//	GET  /api/v1/series/{column}                   raw column
//	GET  /api/v1/series/{column}/moving-average    ?window=
//	GET  /api/v1/series/{column}/volatility        ?window=
//	GET  /api/v1/series/{column}/decomposition     ?period=
//	GET  /api/v1/correlation                       correlation matrix
//	POST /api/v1/events/impact                     {"column", "window", "events": {date: label}}
//	GET  /api/v1/events/runs                       journaled runs, newest first
//	GET  /api/v1/events/runs/{runID}               one journaled run
//	GET  /api/v1/charts/{kind}                     PNG/SVG chart
//	GET  /api/v1/exports/{target}                  ?format=csv|xlsx|parquet&run_id=
//
// Missing values are serialised as JSON null.
package http
