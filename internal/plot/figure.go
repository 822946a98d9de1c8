// Package plot turns a filtered trace table into a chart description and
// summary statistics, and rasterizes that description to PNG.
package plot

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/xalekter/charts-edit/internal/markers"
	"github.com/xalekter/charts-edit/internal/table"
	"github.com/xalekter/charts-edit/pkg/contracts/domain"
)

var (
	// ErrEmptyFilterResult is returned when no row survives the filter.
	ErrEmptyFilterResult = errors.New("no data matches the selected filters")
	// ErrNoPlottablePoints is returned when filtered rows exist but none has
	// numeric values in both axis columns.
	ErrNoPlottablePoints = errors.New("no plottable points in the selected columns")
)

// TraceKind distinguishes the layers of a figure.
type TraceKind string

const (
	TraceTrend      TraceKind = "trend"
	TraceEditPoints TraceKind = "edit_points"
	TraceMean       TraceKind = "mean"
)

// EditPointsName is the name of the click-to-select overlay.
const EditPointsName = "Edit Points"

// TrendColors cycle across trend traces.
var TrendColors = []string{
	"steelblue", "forestgreen", "darkorange", "purple", "brown",
	"pink", "gray", "olive", "cyan",
}

// Trace is one drawable series. Positions and Keys are only set on the edit
// points overlay and map each point back to its table row.
type Trace struct {
	Name      string    `json:"name"`
	Kind      TraceKind `json:"kind"`
	Color     string    `json:"color"`
	X         []float64 `json:"x"`
	Y         []float64 `json:"y"`
	Positions []int     `json:"positions,omitempty"`
	Keys      []uint64  `json:"keys,omitempty"`
}

// Stats summarizes the Y column of the filtered rows.
type Stats struct {
	Mean     float64 `json:"mean"`
	Std      float64 `json:"std"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Filtered int     `json:"filtered"`
	Total    int     `json:"total"`
}

// Figure is a complete chart description.
type Figure struct {
	Title   string          `json:"title"`
	XLabel  string          `json:"x_label"`
	YLabel  string          `json:"y_label"`
	Traces  []Trace         `json:"traces"`
	Markers []domain.Marker `json:"markers"`
	XMin    float64         `json:"x_min"`
	XMax    float64         `json:"x_max"`
	Stats   Stats           `json:"stats"`
	Status  string          `json:"status"`
}

// Options are the inputs to Assemble besides the table.
type Options struct {
	XColumn string
	YColumn string
	Filter  table.Filter
	Markers []domain.Marker
}

type point struct {
	x, y float64
	pos  int
	key  uint64
}

// Assemble builds the figure for the rows of t matching opts.Filter.
// Rows whose X or Y cell is not a finite number are left off the chart.
func Assemble(t *table.Table, opts Options) (*Figure, error) {
	for _, c := range []string{opts.XColumn, opts.YColumn} {
		if !t.HasColumn(c) {
			return nil, fmt.Errorf("%w: %q", table.ErrColumn, c)
		}
	}

	positions := table.Match(t, opts.Filter)
	if len(positions) == 0 {
		return nil, ErrEmptyFilterResult
	}

	points := make([]point, 0, len(positions))
	for _, p := range positions {
		x, okX := t.Float(p, opts.XColumn)
		y, okY := t.Float(p, opts.YColumn)
		if !okX || !okY || math.IsInf(x, 0) || math.IsInf(y, 0) {
			continue
		}
		key, _ := t.Key(p)
		points = append(points, point{x: x, y: y, pos: p, key: key})
	}
	if len(points) == 0 {
		return nil, ErrNoPlottablePoints
	}

	stats := summarize(points)
	stats.Filtered = len(positions)
	stats.Total = t.Len()

	xMin, xMax := points[0].x, points[0].x
	for _, p := range points[1:] {
		xMin = math.Min(xMin, p.x)
		xMax = math.Max(xMax, p.x)
	}

	fig := &Figure{
		XLabel: opts.XColumn,
		YLabel: opts.YColumn,
		XMin:   xMin,
		XMax:   xMax,
		Stats:  stats,
		Status: fmt.Sprintf("Plotted %d points (filtered from %d total)", len(positions), t.Len()),
	}

	fig.Traces = append(fig.Traces, trends(t, points, opts)...)
	fig.Traces = append(fig.Traces, overlay(points))
	fig.Traces = append(fig.Traces, Trace{
		Name:  fmt.Sprintf("Mean: %.3f", stats.Mean),
		Kind:  TraceMean,
		Color: "green",
		X:     []float64{xMin, xMax},
		Y:     []float64{stats.Mean, stats.Mean},
	})
	fig.Markers = markers.Visible(opts.Markers, xMin, xMax)
	fig.Title = title(opts, len(positions), len(opts.Markers), stats.Mean)
	return fig, nil
}

// trends splits the points into one series per selected species when more
// than one is selected, else per selected site, else a single series.
func trends(t *table.Table, points []point, opts Options) []Trace {
	sorted := make([]point, len(points))
	copy(sorted, points)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].x < sorted[j].x })

	group := func(column string, values []string, name func(string) string) []Trace {
		var out []Trace
		for i, v := range values {
			tr := Trace{Name: name(v), Kind: TraceTrend, Color: TrendColors[i%len(TrendColors)]}
			for _, p := range sorted {
				cell, err := t.Value(p.pos, column)
				if err != nil || cell.String() != v {
					continue
				}
				tr.X = append(tr.X, p.x)
				tr.Y = append(tr.Y, p.y)
			}
			if len(tr.X) > 0 {
				out = append(out, tr)
			}
		}
		return out
	}

	switch {
	case len(opts.Filter.Species) > 1 && t.HasColumn(table.SpeciesColumn):
		return group(table.SpeciesColumn, opts.Filter.Species, func(s string) string { return s + " Trend" })
	case len(opts.Filter.Sites) > 1 && t.HasColumn(table.SiteColumn):
		return group(table.SiteColumn, opts.Filter.Sites, func(s string) string { return "Site " + s + " Trend" })
	}

	tr := Trace{Name: "Data Trend", Kind: TraceTrend, Color: TrendColors[0]}
	for _, p := range sorted {
		tr.X = append(tr.X, p.x)
		tr.Y = append(tr.Y, p.y)
	}
	return []Trace{tr}
}

// overlay lists the points in table order with their positions and keys.
func overlay(points []point) Trace {
	tr := Trace{Name: EditPointsName, Kind: TraceEditPoints, Color: "red"}
	for _, p := range points {
		tr.X = append(tr.X, p.x)
		tr.Y = append(tr.Y, p.y)
		tr.Positions = append(tr.Positions, p.pos)
		tr.Keys = append(tr.Keys, p.key)
	}
	return tr
}

// summarize computes mean, sample standard deviation, min and max of Y.
// The deviation of a single point is reported as 0.
func summarize(points []point) Stats {
	n := float64(len(points))
	s := Stats{Min: points[0].y, Max: points[0].y}
	var sum float64
	for _, p := range points {
		sum += p.y
		s.Min = math.Min(s.Min, p.y)
		s.Max = math.Max(s.Max, p.y)
	}
	s.Mean = sum / n
	if len(points) > 1 {
		var sq float64
		for _, p := range points {
			d := p.y - s.Mean
			sq += d * d
		}
		s.Std = math.Sqrt(sq / (n - 1))
	}
	return s
}

func title(opts Options, n, markerCount int, mean float64) string {
	parts := []string{fmt.Sprintf("%s vs %s - %d points", opts.YColumn, opts.XColumn, n)}
	if len(opts.Filter.Species) > 0 {
		parts = append(parts, "Species: "+strings.Join(opts.Filter.Species, ", "))
	}
	if len(opts.Filter.Sites) > 0 {
		parts = append(parts, "Sites: "+strings.Join(opts.Filter.Sites, ", "))
	}
	if markerCount > 0 {
		parts = append(parts, fmt.Sprintf("%d markers", markerCount))
	}
	parts = append(parts, fmt.Sprintf("Mean: %.3f", mean))
	return strings.Join(parts, " • ")
}
