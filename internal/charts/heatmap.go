package charts

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"io"
	"math"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"priceeda/internal/analysis"
	apierrors "priceeda/internal/errors"
)

const (
	heatmapTitle   = "Correlation Matrix"
	heatmapMargin  = 16
	heatmapBarW    = 20
	heatmapMinCell = 48
)

// coolwarm anchors at -1, 0 and +1
var (
	coolLow  = color.RGBA{R: 59, G: 76, B: 192, A: 255}
	coolMid  = color.RGBA{R: 221, G: 221, B: 221, A: 255}
	coolHigh = color.RGBA{R: 180, G: 4, B: 38, A: 255}
	noData   = color.RGBA{R: 245, G: 245, B: 245, A: 255}
)

// Heatmap draws the correlation matrix as a grid of cells coloured on a
// diverging blue to red scale from -1 to 1, each annotated with its value
// to two decimals. Missing coefficients are drawn as light grey "n/a"
// cells. The output is always PNG.
func (r *Renderer) Heatmap(w io.Writer, m analysis.CorrelationMatrix) error {
	n := len(m.Columns)
	if n == 0 {
		return fmt.Errorf("empty correlation matrix: %w", apierrors.ErrInsufficientColumns)
	}

	face := basicfont.Face7x13
	ascent := face.Metrics().Ascent.Ceil()
	lineH := face.Metrics().Height.Ceil()

	labelW := 0
	for _, name := range m.Columns {
		labelW = max(labelW, font.MeasureString(face, name).Ceil())
	}

	top := heatmapMargin + lineH*2
	left := heatmapMargin + labelW + 8
	cell := max(heatmapMinCell, (min(r.opts.Width-left-heatmapBarW*3, r.opts.Height-top-lineH*3))/n)
	gridW := cell * n
	width := left + gridW + heatmapBarW*3 + heatmapMargin
	height := top + gridW + lineH*2 + heatmapMargin

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	drawText(img, heatmapTitle, (width-font.MeasureString(face, heatmapTitle).Ceil())/2, heatmapMargin+ascent, color.Black)

	for i := range m.Columns {
		for j := range m.Columns {
			v := m.Values[i][j]
			rect := image.Rect(left+j*cell, top+i*cell, left+(j+1)*cell, top+(i+1)*cell)

			fill := noData
			label := "n/a"
			if !math.IsNaN(v) {
				fill = coolwarm(v)
				label = fmt.Sprintf("%.2f", v)
			}
			draw.Draw(img, rect.Inset(1), image.NewUniform(fill), image.Point{}, draw.Src)

			ink := color.Color(color.Black)
			if !math.IsNaN(v) && math.Abs(v) > 0.6 {
				ink = color.White
			}
			tw := font.MeasureString(face, label).Ceil()
			drawText(img, label, rect.Min.X+(cell-tw)/2, rect.Min.Y+(cell+ascent)/2-1, ink)
		}
	}

	for i, name := range m.Columns {
		tw := font.MeasureString(face, name).Ceil()
		// row labels right-aligned against the grid
		drawText(img, name, left-8-tw, top+i*cell+(cell+ascent)/2-1, color.Black)
		// column labels centred below, truncated to the cell width
		col := truncate(face, name, cell-4)
		cw := font.MeasureString(face, col).Ceil()
		drawText(img, col, left+i*cell+(cell-cw)/2, top+gridW+lineH, color.Black)
	}

	drawColorBar(img, image.Rect(left+gridW+heatmapBarW, top, left+gridW+heatmapBarW*2, top+gridW), face)

	r.logger.Debug("heatmap rendered", "columns", n, "cell_px", cell)

	return encodePNG(w, img)
}

func drawColorBar(img *image.RGBA, bar image.Rectangle, face font.Face) {
	h := bar.Dy()
	for y := 0; y < h; y++ {
		v := 1 - 2*float64(y)/float64(max(h-1, 1))
		line := image.Rect(bar.Min.X, bar.Min.Y+y, bar.Max.X, bar.Min.Y+y+1)
		draw.Draw(img, line, image.NewUniform(coolwarm(v)), image.Point{}, draw.Src)
	}

	ascent := face.Metrics().Ascent.Ceil()
	x := bar.Max.X + 4
	drawText(img, "1", x, bar.Min.Y+ascent, color.Black)
	drawText(img, "0", x, bar.Min.Y+(h+ascent)/2, color.Black)
	drawText(img, "-1", x, bar.Max.Y, color.Black)
}

// coolwarm maps v in [-1, 1] onto the diverging scale
func coolwarm(v float64) color.RGBA {
	v = math.Max(-1, math.Min(1, v))
	if v < 0 {
		return lerp(coolMid, coolLow, -v)
	}
	return lerp(coolMid, coolHigh, v)
}

func lerp(a, b color.RGBA, t float64) color.RGBA {
	mix := func(x, y uint8) uint8 {
		return uint8(math.Round(float64(x) + (float64(y)-float64(x))*t))
	}
	return color.RGBA{R: mix(a.R, b.R), G: mix(a.G, b.G), B: mix(a.B, b.B), A: 255}
}

func drawText(img *image.RGBA, text string, x, y int, ink color.Color) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(ink),
		Face: basicfont.Face7x13,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)},
	}
	d.DrawString(text)
}

func truncate(face font.Face, s string, width int) string {
	if font.MeasureString(face, s).Ceil() <= width {
		return s
	}
	runes := []rune(s)
	for len(runes) > 1 {
		runes = runes[:len(runes)-1]
		if font.MeasureString(face, string(runes)+"..").Ceil() <= width {
			return string(runes) + ".."
		}
	}
	return string(runes)
}
