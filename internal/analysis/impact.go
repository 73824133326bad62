package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"priceeda/internal/dataset"
	apierrors "priceeda/internal/errors"
)

// DefaultEventWindow is the number of calendar days either side of an event
const DefaultEventWindow = 30

// Status tags an event outcome
type Status string

const (
	StatusResolved Status = "resolved"
	StatusSkipped  Status = "skipped"
)

// SkipReason explains why an event produced no impact record
type SkipReason string

const (
	ReasonInvalidDate      SkipReason = "invalid_date"
	ReasonDateNotFound     SkipReason = "date_not_found"
	ReasonWindowOutOfRange SkipReason = "window_out_of_range"
	ReasonMissingValue     SkipReason = "missing_value"
	ReasonZeroBasePrice    SkipReason = "zero_base_price"
)

// errZeroBasePrice marks a before-window price of zero
var errZeroBasePrice = errors.New("base price is zero")

// Event is a dated, labelled occurrence whose price impact is measured
type Event struct {
	Date  string `json:"date"`
	Label string `json:"label"`
}

// ImpactRecord is the measured price change around one event
type ImpactRecord struct {
	Event       string    `json:"event"`
	Date        time.Time `json:"date"`
	PriceBefore float64   `json:"price_before"`
	PriceAfter  float64   `json:"price_after"`
	PctChange   float64   `json:"pct_change"`
}

// Outcome is the per-event result of an impact run
type Outcome struct {
	Event     Event         `json:"event"`
	EventDate time.Time     `json:"event_date,omitempty"`
	Status    Status        `json:"status"`
	Reason    SkipReason    `json:"reason,omitempty"`
	Detail    string        `json:"detail,omitempty"`
	Record    *ImpactRecord `json:"record,omitempty"`
	Err       error         `json:"-"`
}

// ImpactReport collects the outcomes of one event impact run in event
// date order
type ImpactReport struct {
	RunID       string    `json:"run_id"`
	Column      string    `json:"column"`
	Window      int       `json:"window"`
	GeneratedAt time.Time `json:"generated_at"`
	Outcomes    []Outcome `json:"outcomes"`
}

// Records returns the resolved impact records. The result is never nil.
func (r ImpactReport) Records() []ImpactRecord {
	records := make([]ImpactRecord, 0, len(r.Outcomes))
	for _, o := range r.Outcomes {
		if o.Status == StatusResolved && o.Record != nil {
			records = append(records, *o.Record)
		}
	}
	return records
}

// Skipped returns the outcomes that produced no record
func (r ImpactReport) Skipped() []Outcome {
	var skipped []Outcome
	for _, o := range r.Outcomes {
		if o.Status == StatusSkipped {
			skipped = append(skipped, o)
		}
	}
	return skipped
}

// EventsFromMap converts a date to label map into events ordered by date key
func EventsFromMap(m map[string]string) []Event {
	events := make([]Event, 0, len(m))
	for date, label := range m {
		events = append(events, Event{Date: date, Label: label})
	}
	sort.Slice(events, func(i, j int) bool {
		return events[i].Date < events[j].Date
	})
	return events
}

// EventImpact measures the percentage change of column between window
// calendar days before and after each event date. Events are handled one at
// a time and a failing event is recorded as skipped, logged, and does not
// affect the others. Only an unknown column or a window below 1 fail the
// whole call.
func EventImpact(ctx context.Context, t *dataset.Table, column string, events []Event, window int, logger *slog.Logger) (ImpactReport, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if window < 1 {
		return ImpactReport{}, fmt.Errorf("window %d: %w", window, apierrors.ErrInvalidWindow)
	}
	if !t.HasColumn(column) {
		return ImpactReport{}, fmt.Errorf("%s: %w", column, apierrors.ErrColumnNotFound)
	}

	outcomes := make([]Outcome, len(events))
	for i, ev := range events {
		outcomes[i] = Outcome{Event: ev}
		if d, err := dataset.ParseDate(ev.Date); err == nil {
			outcomes[i].EventDate = d
		} else {
			outcomes[i].Err = err
		}
	}

	// Parsed dates first in ascending order, raw key breaks ties
	sort.SliceStable(outcomes, func(i, j int) bool {
		a, b := outcomes[i], outcomes[j]
		if a.EventDate.IsZero() != b.EventDate.IsZero() {
			return !a.EventDate.IsZero()
		}
		if !a.EventDate.Equal(b.EventDate) {
			return a.EventDate.Before(b.EventDate)
		}
		return a.Event.Date < b.Event.Date
	})

	for i := range outcomes {
		resolveEvent(t, column, window, &outcomes[i])
		o := outcomes[i]
		if o.Status == StatusSkipped {
			logger.WarnContext(ctx, "event skipped",
				"event", o.Event.Label,
				"date", o.Event.Date,
				"reason", string(o.Reason),
				"detail", o.Detail)
		}
	}

	return ImpactReport{
		RunID:       uuid.New().String(),
		Column:      column,
		Window:      window,
		GeneratedAt: time.Now().UTC(),
		Outcomes:    outcomes,
	}, nil
}

func resolveEvent(t *dataset.Table, column string, window int, o *Outcome) {
	skip := func(reason SkipReason, err error) {
		o.Status = StatusSkipped
		o.Reason = reason
		o.Err = err
		o.Detail = err.Error()
	}

	if o.EventDate.IsZero() {
		skip(ReasonInvalidDate, o.Err)
		return
	}
	date := o.EventDate

	if _, ok := t.Position(date); !ok {
		skip(ReasonDateNotFound, fmt.Errorf("event date %s: %w", dataset.DateKey(date), apierrors.ErrDateNotFound))
		return
	}

	beforeDate := date.AddDate(0, 0, -window)
	afterDate := date.AddDate(0, 0, window)

	before, err := t.Value(column, beforeDate)
	if err != nil {
		skip(ReasonWindowOutOfRange, fmt.Errorf("window start %s: %w", dataset.DateKey(beforeDate), err))
		return
	}
	after, err := t.Value(column, afterDate)
	if err != nil {
		skip(ReasonWindowOutOfRange, fmt.Errorf("window end %s: %w", dataset.DateKey(afterDate), err))
		return
	}

	if dataset.IsMissing(before) || dataset.IsMissing(after) {
		skip(ReasonMissingValue, fmt.Errorf("%s between %s and %s: %w",
			column, dataset.DateKey(beforeDate), dataset.DateKey(afterDate), apierrors.ErrMissingValue))
		return
	}
	if before == 0 {
		skip(ReasonZeroBasePrice, fmt.Errorf("%s on %s: %w", column, dataset.DateKey(beforeDate), errZeroBasePrice))
		return
	}

	o.Status = StatusResolved
	o.Record = &ImpactRecord{
		Event:       o.Event.Label,
		Date:        date,
		PriceBefore: before,
		PriceAfter:  after,
		PctChange:   (after - before) / before * 100,
	}
}
