package plot

import (
	"bytes"
	"fmt"
	"io"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// Default raster size.
const (
	DefaultWidth  = 1200
	DefaultHeight = 600
)

// namedColors maps the colour names used by figures to RGB hex.
var namedColors = map[string]string{
	"steelblue":   "4682b4",
	"forestgreen": "228b22",
	"darkorange":  "ff8c00",
	"purple":      "800080",
	"brown":       "a52a2a",
	"pink":        "ffc0cb",
	"gray":        "808080",
	"olive":       "808000",
	"cyan":        "00ffff",
	"red":         "ff0000",
	"orange":      "ffa500",
	"gold":        "ffd700",
	"green":       "008000",
	"blue":        "0000ff",
	"black":       "000000",
}

func colorOf(name string) drawing.Color {
	if hex, ok := namedColors[name]; ok {
		return drawing.ColorFromHex(hex)
	}
	return chart.ColorAlternateGray
}

// RenderPNG rasterizes the figure. Non-positive sizes use the defaults.
func RenderPNG(w io.Writer, fig *Figure, width, height int) error {
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}

	yMin, yMax := padded(fig.Stats.Min, fig.Stats.Max)
	xMin, xMax := padded(fig.XMin, fig.XMax)

	var series []chart.Series
	for _, tr := range fig.Traces {
		if len(tr.X) == 0 {
			continue
		}
		col := colorOf(tr.Color)
		var st chart.Style
		switch tr.Kind {
		case TraceTrend:
			st = chart.Style{StrokeColor: col, StrokeWidth: 2.5, DotColor: col, DotWidth: 4}
		case TraceEditPoints:
			st = chart.Style{StrokeColor: chart.ColorTransparent, StrokeWidth: 1, DotColor: col, DotWidth: 3}
		case TraceMean:
			st = chart.Style{StrokeColor: col, StrokeWidth: 3, StrokeDashArray: []float64{8, 4}}
		}
		xs, ys := tr.X, tr.Y
		// go-chart needs two X values per series.
		if len(xs) == 1 {
			xs = []float64{xs[0], xs[0]}
			ys = []float64{ys[0], ys[0]}
		}
		series = append(series, chart.ContinuousSeries{Name: tr.Name, XValues: xs, YValues: ys, Style: st})
	}

	for _, m := range fig.Markers {
		col := colorOf(string(m.Color))
		series = append(series, chart.ContinuousSeries{
			Name:    m.Label,
			XValues: []float64{m.Position, m.Position},
			YValues: []float64{yMin, yMax},
			Style:   chart.Style{StrokeColor: col, StrokeWidth: 2, StrokeDashArray: []float64{6, 3, 2, 3}},
		})
	}

	ch := chart.Chart{
		Title:      fig.Title,
		Width:      width,
		Height:     height,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 12, Bottom: 16}},
		XAxis:      chart.XAxis{Name: fig.XLabel, Range: &chart.ContinuousRange{Min: xMin, Max: xMax}},
		YAxis:      chart.YAxis{Name: fig.YLabel, Range: &chart.ContinuousRange{Min: yMin, Max: yMax}},
		Series:     series,
	}
	ch.Elements = []chart.Renderable{chart.Legend(&ch)}

	if err := ch.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}
	return nil
}

// RenderPNGBytes is RenderPNG into a buffer.
func RenderPNGBytes(fig *Figure, width, height int) ([]byte, error) {
	var buf bytes.Buffer
	if err := RenderPNG(&buf, fig, width, height); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// padded widens [lo, hi] by 5% each side, or by 1 when the range is empty.
func padded(lo, hi float64) (float64, float64) {
	span := hi - lo
	if span <= 0 {
		return lo - 1, hi + 1
	}
	return lo - span*0.05, hi + span*0.05
}
