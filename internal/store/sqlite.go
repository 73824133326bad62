package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"priceeda/internal/analysis"
	apierrors "priceeda/internal/errors"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface check.
var _ ImpactStore = (*SQLiteStore)(nil)

// timeLayout has fixed width so stored timestamps sort lexically
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const schema = `
CREATE TABLE IF NOT EXISTS impact_runs (
	run_id       TEXT PRIMARY KEY,
	column_name  TEXT NOT NULL,
	window_days  INTEGER NOT NULL,
	generated_at TEXT NOT NULL,
	resolved     INTEGER NOT NULL,
	skipped      INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_impact_runs_generated_at ON impact_runs (generated_at);
CREATE TABLE IF NOT EXISTS impact_outcomes (
	run_id       TEXT NOT NULL REFERENCES impact_runs (run_id) ON DELETE CASCADE,
	seq          INTEGER NOT NULL,
	event_key    TEXT NOT NULL,
	label        TEXT NOT NULL,
	event_date   TEXT,
	status       TEXT NOT NULL,
	reason       TEXT NOT NULL DEFAULT '',
	detail       TEXT NOT NULL DEFAULT '',
	price_before REAL,
	price_after  REAL,
	pct_change   REAL,
	PRIMARY KEY (run_id, seq)
);`

// SQLiteStore implements ImpactStore backed by a SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath, creates
// the schema and returns a ready-to-use SQLiteStore.
func NewSQLiteStore(ctx context.Context, dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create journal directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	// SQLite allows one writer at a time
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate journal: %w", err)
	}

	logger.Debug("journal opened", slog.String("path", dbPath))
	return &SQLiteStore{db: db, logger: logger}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveImpactReport inserts a run and its outcomes in one transaction.
func (s *SQLiteStore) SaveImpactReport(ctx context.Context, report analysis.ImpactReport) error {
	if report.RunID == "" {
		return errors.New("impact report has no run id")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	resolved := len(report.Records())
	_, err = tx.ExecContext(ctx,
		`INSERT INTO impact_runs (run_id, column_name, window_days, generated_at, resolved, skipped)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		report.RunID, report.Column, report.Window,
		report.GeneratedAt.UTC().Format(timeLayout),
		resolved, len(report.Outcomes)-resolved)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", report.RunID, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO impact_outcomes
		 (run_id, seq, event_key, label, event_date, status, reason, detail, price_before, price_after, pct_change)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare outcome insert: %w", err)
	}
	defer stmt.Close()

	for i, o := range report.Outcomes {
		var eventDate sql.NullString
		if !o.EventDate.IsZero() {
			eventDate = sql.NullString{String: o.EventDate.UTC().Format(timeLayout), Valid: true}
		}
		var before, after, pct sql.NullFloat64
		if o.Record != nil {
			before = sql.NullFloat64{Float64: o.Record.PriceBefore, Valid: true}
			after = sql.NullFloat64{Float64: o.Record.PriceAfter, Valid: true}
			pct = sql.NullFloat64{Float64: o.Record.PctChange, Valid: true}
		}
		_, err := stmt.ExecContext(ctx,
			report.RunID, i, o.Event.Date, o.Event.Label, eventDate,
			string(o.Status), string(o.Reason), o.Detail, before, after, pct)
		if err != nil {
			return fmt.Errorf("insert outcome %d of run %s: %w", i, report.RunID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run %s: %w", report.RunID, err)
	}

	s.logger.InfoContext(ctx, "impact run saved",
		slog.String("run_id", report.RunID),
		slog.Int("outcomes", len(report.Outcomes)))
	return nil
}

// GetImpactReport loads a run and its outcomes in their original order.
func (s *SQLiteStore) GetImpactReport(ctx context.Context, runID string) (analysis.ImpactReport, error) {
	var (
		report    analysis.ImpactReport
		generated string
		resolved  int
		skipped   int
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT run_id, column_name, window_days, generated_at, resolved, skipped
		 FROM impact_runs WHERE run_id = ?`, runID).
		Scan(&report.RunID, &report.Column, &report.Window, &generated, &resolved, &skipped)
	if errors.Is(err, sql.ErrNoRows) {
		return analysis.ImpactReport{}, fmt.Errorf("run %s: %w", runID, apierrors.ErrRunNotFound)
	}
	if err != nil {
		return analysis.ImpactReport{}, fmt.Errorf("query run %s: %w", runID, err)
	}
	if report.GeneratedAt, err = time.Parse(timeLayout, generated); err != nil {
		return analysis.ImpactReport{}, fmt.Errorf("run %s generated_at: %w", runID, err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT event_key, label, event_date, status, reason, detail, price_before, price_after, pct_change
		 FROM impact_outcomes WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return analysis.ImpactReport{}, fmt.Errorf("query outcomes of run %s: %w", runID, err)
	}
	defer rows.Close()

	report.Outcomes = make([]analysis.Outcome, 0, resolved+skipped)
	for rows.Next() {
		var (
			o                  analysis.Outcome
			eventDate          sql.NullString
			status, reason     string
			before, after, pct sql.NullFloat64
		)
		if err := rows.Scan(&o.Event.Date, &o.Event.Label, &eventDate, &status, &reason, &o.Detail, &before, &after, &pct); err != nil {
			return analysis.ImpactReport{}, fmt.Errorf("scan outcome: %w", err)
		}
		o.Status = analysis.Status(status)
		o.Reason = analysis.SkipReason(reason)
		if eventDate.Valid {
			if o.EventDate, err = time.Parse(timeLayout, eventDate.String); err != nil {
				return analysis.ImpactReport{}, fmt.Errorf("outcome event_date: %w", err)
			}
		}
		if o.Status == analysis.StatusResolved && before.Valid && after.Valid && pct.Valid {
			o.Record = &analysis.ImpactRecord{
				Event:       o.Event.Label,
				Date:        o.EventDate,
				PriceBefore: before.Float64,
				PriceAfter:  after.Float64,
				PctChange:   pct.Float64,
			}
		}
		report.Outcomes = append(report.Outcomes, o)
	}
	if err := rows.Err(); err != nil {
		return analysis.ImpactReport{}, fmt.Errorf("iterate outcomes: %w", err)
	}

	return report, nil
}

// ListImpactRuns returns the most recent runs first, up to limit. A limit
// of zero or less returns every run.
func (s *SQLiteStore) ListImpactRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, column_name, window_days, generated_at, resolved, skipped
		 FROM impact_runs ORDER BY generated_at DESC, run_id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []RunSummary{}
	for rows.Next() {
		var (
			run       RunSummary
			generated string
		)
		if err := rows.Scan(&run.RunID, &run.Column, &run.Window, &generated, &run.Resolved, &run.Skipped); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if run.GeneratedAt, err = time.Parse(timeLayout, generated); err != nil {
			return nil, fmt.Errorf("run %s generated_at: %w", run.RunID, err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
