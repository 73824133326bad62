package charts

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"io"
	"log/slog"
	"strings"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	apierrors "priceeda/internal/errors"
)

// Format is an output image format
type Format string

const (
	FormatPNG Format = "png"
	FormatSVG Format = "svg"
)

// ParseFormat parses a format name or file extension
func ParseFormat(s string) (Format, error) {
	switch strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), ".") {
	case "", "png":
		return FormatPNG, nil
	case "svg":
		return FormatSVG, nil
	default:
		return "", fmt.Errorf("chart format %q: %w", s, apierrors.ErrUnsupportedFormat)
	}
}

// ContentType returns the MIME type of f
func (f Format) ContentType() string {
	if f == FormatSVG {
		return "image/svg+xml"
	}
	return "image/png"
}

// Options configures a Renderer
type Options struct {
	Width  int
	Height int
	Format Format
}

// DefaultOptions matches a 14x7 inch figure at 100 dpi
func DefaultOptions() Options {
	return Options{Width: 1400, Height: 700, Format: FormatPNG}
}

// Renderer draws analysis results as images. It holds no state between
// calls and is safe for concurrent use.
type Renderer struct {
	opts   Options
	logger *slog.Logger
}

// NewRenderer creates a renderer. Zero fields in opts take their defaults.
func NewRenderer(opts Options, logger *slog.Logger) *Renderer {
	def := DefaultOptions()
	if opts.Width <= 0 {
		opts.Width = def.Width
	}
	if opts.Height <= 0 {
		opts.Height = def.Height
	}
	if opts.Format == "" {
		opts.Format = def.Format
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Renderer{opts: opts, logger: logger.With("component", "charts")}
}

// Format returns the output format of line charts
func (r *Renderer) Format() Format {
	return r.opts.Format
}

var (
	colorPrice      = drawing.Color{R: 31, G: 119, B: 180, A: 255}
	colorDerived    = drawing.Color{R: 255, G: 127, B: 14, A: 255}
	colorVolatility = drawing.Color{R: 214, G: 39, B: 40, A: 255}
	colorPanel      = drawing.Color{R: 44, G: 160, B: 44, A: 255}
)

func lineStyle(col drawing.Color, width float64) chart.Style {
	return chart.Style{
		StrokeColor: col,
		StrokeWidth: width,
	}
}

func dateAxis() chart.XAxis {
	return chart.XAxis{
		Name:           "Date",
		ValueFormatter: chart.TimeValueFormatterWithFormat("2006-01-02"),
	}
}

func (r *Renderer) provider(format Format) chart.RendererProvider {
	if format == FormatSVG {
		return chart.SVG
	}
	return chart.PNG
}

// renderImage renders ch to PNG and decodes it for composition
func renderImage(ch chart.Chart) (image.Image, error) {
	var buf bytes.Buffer
	if err := ch.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render %q: %w", ch.Title, err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		return nil, fmt.Errorf("decode %q: %w", ch.Title, err)
	}
	return img, nil
}

func encodePNG(w io.Writer, img image.Image) error {
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}
