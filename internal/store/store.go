// Package store persists event impact runs.
package store

import (
	"context"
	"time"

	"priceeda/internal/analysis"
)

// RunSummary describes one stored impact run without its outcomes
type RunSummary struct {
	RunID       string    `json:"run_id"`
	Column      string    `json:"column"`
	Window      int       `json:"window"`
	GeneratedAt time.Time `json:"generated_at"`
	Resolved    int       `json:"resolved"`
	Skipped     int       `json:"skipped"`
}

// ImpactStore saves and retrieves impact reports
type ImpactStore interface {
	SaveImpactReport(ctx context.Context, report analysis.ImpactReport) error
	GetImpactReport(ctx context.Context, runID string) (analysis.ImpactReport, error)
	ListImpactRuns(ctx context.Context, limit int) ([]RunSummary, error)
	Close() error
}
