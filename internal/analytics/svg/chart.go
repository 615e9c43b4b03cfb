// Package svg draws the dashboard revenue trend as a standalone SVG image.
package svg

import (
	"errors"
	"fmt"
	"html/template"
	"math"
	"strings"
)

// Point is one labelled value on the chart.
type Point struct {
	Label string
	Value float64
}

// Options customises the chart.
type Options struct {
	Width       int
	Height      int
	Title       string
	StrokeColor string
	FillColor   string
	Ticks       int
}

const (
	defaultWidth   = 720
	defaultHeight  = 240
	defaultTicks   = 5
	padding        = 32.0
	defaultStroke  = "#0f766e"
	defaultFill    = "rgba(15,118,110,0.12)"
	axisColor      = "#475569"
	gridColor      = "#cbd5e1"
	labelFontSize  = 10
	labelYOffset   = 14
	tickTextOffset = 6
)

// ErrNoPoints is returned for an empty series.
var ErrNoPoints = errors.New("svg: at least one point required")

// Trend renders points as a filled line chart. Negative months (credit notes
// exceeding sales) drop below the zero baseline.
func Trend(points []Point, opts Options) ([]byte, error) {
	if len(points) == 0 {
		return nil, ErrNoPoints
	}
	w, h := opts.Width, opts.Height
	if w <= 0 {
		w = defaultWidth
	}
	if h <= 0 {
		h = defaultHeight
	}
	ticks := opts.Ticks
	if ticks <= 0 {
		ticks = defaultTicks
	}
	chartW := float64(w) - 2*padding
	chartH := float64(h) - 2*padding
	if chartW <= 0 || chartH <= 0 {
		return nil, fmt.Errorf("svg: viewport %dx%d too small", w, h)
	}

	lo, hi := 0.0, 0.0
	for _, p := range points {
		lo = math.Min(lo, p.Value)
		hi = math.Max(hi, p.Value)
	}
	if hi-lo < 1e-9 {
		hi = lo + 1
	}
	x := func(i int) float64 {
		if len(points) == 1 {
			return padding + chartW/2
		}
		return padding + float64(i)*chartW/float64(len(points)-1)
	}
	y := func(v float64) float64 {
		return padding + chartH - (v-lo)*chartH/(hi-lo)
	}

	var line strings.Builder
	for i, p := range points {
		cmd := "L"
		if i == 0 {
			cmd = "M"
		}
		fmt.Fprintf(&line, "%s%.2f %.2f ", cmd, x(i), y(p.Value))
	}
	path := strings.TrimSpace(line.String())
	title := template.HTMLEscapeString(fallback(opts.Title, "Revenue trend"))

	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %d %d" role="img" aria-label="%s">`, w, h, title)
	fmt.Fprintf(&b, "<title>%s</title>", title)
	for i := 0; i <= ticks; i++ {
		v := lo + (hi-lo)*float64(i)/float64(ticks)
		ty := y(v)
		fmt.Fprintf(&b, `<line x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f" stroke="%s" stroke-width="0.5" stroke-dasharray="2,4"/>`,
			padding, ty, padding+chartW, ty, gridColor)
		fmt.Fprintf(&b, `<text x="%.2f" y="%.2f" fill="%s" font-size="%d" text-anchor="end">%s</text>`,
			padding-tickTextOffset, ty+4, axisColor, labelFontSize, formatTick(v))
	}
	zero := y(0)
	fmt.Fprintf(&b, `<line x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f" stroke="%s"/>`, padding, zero, padding+chartW, zero, axisColor)
	fmt.Fprintf(&b, `<path d="%s L%.2f %.2f L%.2f %.2f Z" fill="%s" stroke="none"/>`,
		path, x(len(points)-1), zero, x(0), zero, fallback(opts.FillColor, defaultFill))
	fmt.Fprintf(&b, `<path d="%s" fill="none" stroke="%s" stroke-width="2" stroke-linejoin="round"/>`,
		path, fallback(opts.StrokeColor, defaultStroke))
	for i, p := range points {
		fmt.Fprintf(&b, `<text x="%.2f" y="%.2f" fill="%s" font-size="%d" text-anchor="middle">%s</text>`,
			x(i), padding+chartH+labelYOffset, axisColor, labelFontSize, template.HTMLEscapeString(p.Label))
	}
	b.WriteString("</svg>")
	return []byte(b.String()), nil
}

func fallback(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return value
}

func formatTick(v float64) string {
	abs := math.Abs(v)
	switch {
	case abs >= 1_000_000:
		return fmt.Sprintf("%.1fM", v/1_000_000)
	case abs >= 1_000:
		return fmt.Sprintf("%.1fk", v/1_000)
	case math.Abs(v-math.Round(v)) < 1e-9:
		return fmt.Sprintf("%.0f", v)
	default:
		return fmt.Sprintf("%.2f", v)
	}
}
