package charts

import (
	"fmt"
	"io"

	chart "github.com/wcharczuk/go-chart/v2"

	"priceeda/internal/analysis"
	apierrors "priceeda/internal/errors"
)

// MovingAverage draws the raw price series with its moving average overlaid
func (r *Renderer) MovingAverage(w io.Writer, price, average analysis.Series, window int) error {
	title := fmt.Sprintf("%s with %d-Day Moving Average", price.Name, window)

	series, err := timeSeries(price, "Daily Price", lineStyle(colorPrice, 1))
	if err != nil {
		return fmt.Errorf("%s: %w", title, err)
	}
	overlay := []chart.Series{series}
	if avg, err := timeSeries(average, fmt.Sprintf("%d-Day Moving Average", window), lineStyle(colorDerived, 2)); err == nil {
		overlay = append(overlay, avg)
	} else {
		r.logger.Warn("moving average has too few points to plot",
			"column", price.Name,
			"window", window)
	}

	return r.renderLine(w, title, "Price (USD)", overlay)
}

// Volatility draws a rolling volatility series
func (r *Renderer) Volatility(w io.Writer, column string, volatility analysis.Series, window int) error {
	title := fmt.Sprintf("%s %d-Day Rolling Volatility", column, window)

	series, err := timeSeries(volatility, fmt.Sprintf("%d-Day Rolling Volatility", window), lineStyle(colorVolatility, 1.5))
	if err != nil {
		return fmt.Errorf("%s: %w", title, err)
	}

	return r.renderLine(w, title, "Volatility", []chart.Series{series})
}

func (r *Renderer) renderLine(w io.Writer, title, yName string, series []chart.Series) error {
	ch := chart.Chart{
		Title:      title,
		Width:      r.opts.Width,
		Height:     r.opts.Height,
		Background: chart.Style{Padding: chart.Box{Top: 48, Left: 16, Right: 16, Bottom: 16}},
		XAxis:      dateAxis(),
		YAxis:      chart.YAxis{Name: yName},
		Series:     series,
	}
	ch.Elements = []chart.Renderable{chart.Legend(&ch)}

	if err := ch.Render(r.provider(r.opts.Format), w); err != nil {
		return fmt.Errorf("render %q: %w", title, err)
	}
	return nil
}

// timeSeries converts the defined points of s into a plottable series. At
// least two points are needed to give the axes a range.
func timeSeries(s analysis.Series, name string, style chart.Style) (chart.TimeSeries, error) {
	dates, values := s.Defined()
	if len(values) < 2 {
		return chart.TimeSeries{}, fmt.Errorf("%d plottable points in %s: %w",
			len(values), s.Name, apierrors.ErrInsufficientData)
	}
	return chart.TimeSeries{
		Name:    name,
		XValues: dates,
		YValues: values,
		Style:   style,
	}, nil
}
