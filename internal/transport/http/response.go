package http

import (
	"errors"
	"math"
	"os"
	"time"

	"priceeda/internal/analysis"
	"priceeda/internal/dataset"
	apierrors "priceeda/internal/errors"
	"priceeda/internal/services"
	"priceeda/internal/validation"
)

// JSON cannot carry NaN, so missing values are written as null

type pointResponse struct {
	Date  string   `json:"date"`
	Value *float64 `json:"value"`
}

type seriesResponse struct {
	Name   string          `json:"name"`
	Window int             `json:"window,omitempty"`
	Points []pointResponse `json:"points"`
}

type decompositionResponse struct {
	Column   string         `json:"column"`
	Period   int            `json:"period"`
	Observed seriesResponse `json:"observed"`
	Trend    seriesResponse `json:"trend"`
	Seasonal seriesResponse `json:"seasonal"`
	Residual seriesResponse `json:"residual"`
}

type correlationResponse struct {
	Columns []string     `json:"columns"`
	Values  [][]*float64 `json:"values"`
}

type impactRecordResponse struct {
	Event       string  `json:"event"`
	Date        string  `json:"date"`
	PriceBefore float64 `json:"price_before"`
	PriceAfter  float64 `json:"price_after"`
	PctChange   float64 `json:"pct_change"`
}

type outcomeResponse struct {
	Event  analysis.Event        `json:"event"`
	Date   string                `json:"date,omitempty"`
	Status analysis.Status       `json:"status"`
	Reason analysis.SkipReason   `json:"reason,omitempty"`
	Detail string                `json:"detail,omitempty"`
	Record *impactRecordResponse `json:"record,omitempty"`
}

type impactResponse struct {
	RunID       string                 `json:"run_id"`
	Column      string                 `json:"column"`
	Window      int                    `json:"window"`
	GeneratedAt time.Time              `json:"generated_at"`
	Resolved    int                    `json:"resolved"`
	Skipped     int                    `json:"skipped"`
	Records     []impactRecordResponse `json:"records"`
	Outcomes    []outcomeResponse      `json:"outcomes"`
}

func nullable(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func newSeriesResponse(s analysis.Series, window int) seriesResponse {
	points := make([]pointResponse, s.Len())
	for i := range points {
		points[i] = pointResponse{Date: dataset.DateKey(s.Dates[i]), Value: nullable(s.Values[i])}
	}
	return seriesResponse{Name: s.Name, Window: window, Points: points}
}

func newDecompositionResponse(d analysis.Decomposition) decompositionResponse {
	return decompositionResponse{
		Column:   d.Column,
		Period:   d.Period,
		Observed: newSeriesResponse(d.Observed, 0),
		Trend:    newSeriesResponse(d.Trend, 0),
		Seasonal: newSeriesResponse(d.Seasonal, 0),
		Residual: newSeriesResponse(d.Residual, 0),
	}
}

func newCorrelationResponse(m analysis.CorrelationMatrix) correlationResponse {
	values := make([][]*float64, len(m.Values))
	for i, row := range m.Values {
		values[i] = make([]*float64, len(row))
		for j, v := range row {
			values[i][j] = nullable(v)
		}
	}
	return correlationResponse{Columns: m.Columns, Values: values}
}

func newImpactRecordResponse(r analysis.ImpactRecord) impactRecordResponse {
	return impactRecordResponse{
		Event:       r.Event,
		Date:        dataset.DateKey(r.Date),
		PriceBefore: r.PriceBefore,
		PriceAfter:  r.PriceAfter,
		PctChange:   r.PctChange,
	}
}

func newImpactResponse(report analysis.ImpactReport) impactResponse {
	records := report.Records()
	resp := impactResponse{
		RunID:       report.RunID,
		Column:      report.Column,
		Window:      report.Window,
		GeneratedAt: report.GeneratedAt,
		Resolved:    len(records),
		Skipped:     len(report.Outcomes) - len(records),
		Records:     make([]impactRecordResponse, 0, len(records)),
		Outcomes:    make([]outcomeResponse, 0, len(report.Outcomes)),
	}
	for _, r := range records {
		resp.Records = append(resp.Records, newImpactRecordResponse(r))
	}
	for _, o := range report.Outcomes {
		out := outcomeResponse{
			Event:  o.Event,
			Status: o.Status,
			Reason: o.Reason,
			Detail: o.Detail,
		}
		if !o.EventDate.IsZero() {
			out.Date = dataset.DateKey(o.EventDate)
		}
		if o.Record != nil {
			rec := newImpactRecordResponse(*o.Record)
			out.Record = &rec
		}
		resp.Outcomes = append(resp.Outcomes, out)
	}
	return resp
}

// serviceError maps service and file errors that the error handler does
// not know about onto parameter errors
func serviceError(err error) error {
	switch {
	case errors.Is(err, os.ErrNotExist),
		errors.Is(err, validation.ErrNotAFile),
		errors.Is(err, validation.ErrEmptyFile),
		errors.Is(err, validation.ErrTemporaryFile):
		return apierrors.InvalidParameter("path", err)
	case errors.Is(err, services.ErrUnknownChart):
		return apierrors.InvalidParameter("kind", err)
	case errors.Is(err, services.ErrUnknownExport):
		return apierrors.InvalidParameter("target", err)
	case errors.Is(err, services.ErrExportUnsupported):
		return apierrors.InvalidParameter("format", err)
	}
	return err
}
