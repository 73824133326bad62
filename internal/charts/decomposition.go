package charts

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"io"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"priceeda/internal/analysis"
)

// Decomposition draws observed, trend, seasonal and residual components as
// four stacked panels sharing one PNG. The output is always PNG.
func (r *Renderer) Decomposition(w io.Writer, d analysis.Decomposition) error {
	panels := []analysis.Series{d.Observed, d.Trend, d.Seasonal, d.Residual}
	panelHeight := r.opts.Height / 2
	if panelHeight < 160 {
		panelHeight = 160
	}

	canvas := image.NewRGBA(image.Rect(0, 0, r.opts.Width, panelHeight*len(panels)))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	for i, component := range panels {
		title := component.Name
		if i == 0 {
			title = fmt.Sprintf("%s Multiplicative Decomposition (period %d): %s", d.Column, d.Period, component.Name)
		}

		series, err := timeSeries(component, component.Name, lineStyle(panelColor(i), 1))
		if err != nil {
			return fmt.Errorf("decomposition panel %s: %w", component.Name, err)
		}

		img, err := renderImage(chart.Chart{
			Title:      title,
			Width:      r.opts.Width,
			Height:     panelHeight,
			Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 8}},
			XAxis:      dateAxis(),
			YAxis:      chart.YAxis{Name: component.Name},
			Series:     []chart.Series{series},
		})
		if err != nil {
			return err
		}

		offset := image.Pt(0, i*panelHeight)
		draw.Draw(canvas, img.Bounds().Add(offset), img, img.Bounds().Min, draw.Src)
	}

	r.logger.Debug("decomposition rendered",
		"column", d.Column,
		"period", d.Period,
		"panels", len(panels))

	return encodePNG(w, canvas)
}

func panelColor(i int) drawing.Color {
	switch i {
	case 0:
		return colorPrice
	case 1:
		return colorDerived
	case 2:
		return colorPanel
	default:
		return colorVolatility
	}
}
