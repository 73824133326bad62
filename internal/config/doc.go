// Package config loads application configuration.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//	1. Environment variables (highest priority)
//	2. A YAML configuration file
//	3. Default values (lowest priority)
//
// A .env file in the working directory is read before the environment is
// consulted; variables already set in the process environment win.
//
// # Environment Variables
//
// All environment variables follow the pattern EDA_<SECTION>_<KEY>:
//
//	EDA_SERVER_PORT=8080
//	EDA_LOGGING_LEVEL=debug
//	EDA_ANALYSIS_EVENT_WINDOW=30
//	EDA_CHARTS_FORMAT=svg
//
// EDA_CONFIG_FILE selects the YAML file; otherwise config.yaml or
// configs/config.yaml is used when present.
//
// # Path Management
//
// Paths resolves the configured data, report and journal locations to
// absolute paths:
//
//	paths, err := cfg.ResolvedPaths()
//	chart := paths.GetChartPath("moving_average.png")
package config
