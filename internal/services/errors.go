package services

import "errors"

// Service errors
var (
	// Chart errors
	ErrUnknownChart = errors.New("unknown chart kind")

	// Export errors
	ErrUnknownExport     = errors.New("unknown export target")
	ErrExportUnsupported = errors.New("format not supported for this export")
)
