package interpolation

import (
	"log/slog"
	"math"
	"slices"
	"sort"

	"github.com/xalekter/charts-edit/internal/table"
	"github.com/xalekter/charts-edit/pkg/contracts/domain"
)

// Request describes the row to synthesize. Species and Sites narrow the
// neighbours only when they hold exactly one value.
type Request struct {
	XColumn string
	YColumn string
	X       float64
	Y       float64
	Species []string
	Sites   []string
}

// Result is a complete row aligned with the source table's columns.
type Result struct {
	Cells      []table.Value
	Provenance domain.Provenance
}

// Engine builds plausible new rows from the neighbours of a target X.
// It never fails for ordinary data shapes; odd branches are reported
// through Result.Provenance.
type Engine struct {
	logger *slog.Logger
}

// NewEngine creates an engine. A nil logger falls back to slog.Default.
func NewEngine(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{logger: logger.With(slog.String("component", "interpolation"))}
}

// Interpolate synthesizes a row for (req.X, req.Y) from the rows of t.
func (e *Engine) Interpolate(t *table.Table, req Request) Result {
	subset := e.restrict(t, req)

	var (
		cells []table.Value
		prov  domain.Provenance
	)
	switch subset.Len() {
	case 0:
		cells, prov = e.fromScratch(t, req), domain.ProvenanceEmptySubset
	case 1:
		row, _ := subset.Row(0)
		cells, prov = row.Cells, domain.ProvenanceSingleRow
	default:
		cells, prov = e.bracket(subset, req)
	}

	e.finish(t, cells, req)
	return Result{Cells: cells, Provenance: prov}
}

// restrict narrows t to the single requested species, then the single
// requested site. A narrowing that would leave nothing is skipped.
func (e *Engine) restrict(t *table.Table, req Request) *table.Table {
	working := t
	if v, ok := single(req.Species); ok {
		if narrowed := table.Apply(working, table.Filter{Species: []string{v}}); narrowed.Len() > 0 && working.HasColumn(table.SpeciesColumn) {
			working = narrowed
		}
	}
	if v, ok := single(req.Sites); ok {
		if narrowed := table.Apply(working, table.Filter{Sites: []string{v}}); narrowed.Len() > 0 && working.HasColumn(table.SiteColumn) {
			working = narrowed
		}
	}
	return working
}

// fromScratch builds a row with no neighbours: text columns get "-",
// numeric columns the median over the whole table. Species and site
// columns are left for finish.
func (e *Engine) fromScratch(t *table.Table, req Request) []table.Value {
	columns := t.Columns()
	cells := make([]table.Value, len(columns))
	for i, c := range columns {
		switch c {
		case req.XColumn, req.YColumn, table.SpeciesColumn, table.SiteColumn:
			continue
		}
		if t.IsNumeric(c) {
			cells[i] = table.Number(median(t, c))
		} else {
			cells[i] = table.Text("-")
		}
	}
	return cells
}

type sortedRow struct {
	x     float64
	cells []table.Value
}

// bracket handles two or more neighbours. Rows without a numeric X cannot
// be placed on the axis and are left out of the search; when none is left
// the first row is cloned.
func (e *Engine) bracket(subset *table.Table, req Request) ([]table.Value, domain.Provenance) {
	rows := make([]sortedRow, 0, subset.Len())
	for i := 0; i < subset.Len(); i++ {
		r, _ := subset.Row(i)
		if x, ok := subset.Float(i, req.XColumn); ok {
			rows = append(rows, sortedRow{x: x, cells: r.Cells})
		}
	}
	if len(rows) == 0 {
		e.logger.Warn("no neighbour has a numeric X, cloning first row",
			slog.String("x_column", req.XColumn),
			slog.Float64("x", req.X))
		first, _ := subset.Row(0)
		return first.Cells, domain.ProvenanceFallback
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].x < rows[j].x })

	first, last := rows[0], rows[len(rows)-1]
	switch {
	case req.X <= first.x:
		return slices.Clone(first.cells), domain.ProvenanceExtrapolatedBefore
	case req.X >= last.x:
		return slices.Clone(last.cells), domain.ProvenanceExtrapolatedAfter
	}

	return e.between(subset, rows, req)
}

func (e *Engine) between(subset *table.Table, rows []sortedRow, req Request) ([]table.Value, domain.Provenance) {
	after := sort.Search(len(rows), func(i int) bool { return rows[i].x >= req.X })
	before := max(0, after-1)
	after = min(len(rows)-1, after)

	lo, hi := rows[before], rows[after]
	if math.Abs(hi.x-lo.x) < integerTolerance {
		return slices.Clone(lo.cells), domain.ProvenanceDuplicatedX
	}

	weight := (req.X - lo.x) / (hi.x - lo.x)
	cells := slices.Clone(lo.cells)
	for i, c := range subset.Columns() {
		if c == req.XColumn {
			continue
		}
		if subset.IsNumeric(c) {
			a, okA := lo.cells[i].Float()
			b, okB := hi.cells[i].Float()
			if !okA || !okB {
				continue
			}
			cells[i] = table.Number(Round(a + weight*(b-a)))
			continue
		}
		if c == req.YColumn {
			continue
		}
		if weight < 0.5 {
			cells[i] = lo.cells[i]
		} else {
			cells[i] = hi.cells[i]
		}
	}
	return cells, domain.ProvenanceInterpolated
}

// finish writes the target X and Y, forces single-valued restrictions and
// rounds every numeric column except X.
func (e *Engine) finish(t *table.Table, cells []table.Value, req Request) {
	for i, c := range t.Columns() {
		switch c {
		case req.XColumn:
			cells[i] = table.Number(req.X)
		case req.YColumn:
			cells[i] = table.Number(Round(req.Y))
		}
	}
	if v, ok := single(req.Species); ok {
		force(t, cells, table.SpeciesColumn, v)
	}
	if v, ok := single(req.Sites); ok {
		force(t, cells, table.SiteColumn, v)
	}
	for i, c := range t.Columns() {
		if c != req.XColumn && t.IsNumeric(c) {
			cells[i] = RoundValue(cells[i])
		}
	}
}

// force writes a restriction value, typed to match its column.
func force(t *table.Table, cells []table.Value, column, v string) {
	i, ok := t.ColumnIndex(column)
	if !ok {
		return
	}
	if t.IsNumeric(column) {
		if parsed := table.ParseValue(v); parsed.Kind() == table.KindNumber {
			cells[i] = parsed
			return
		}
	}
	cells[i] = table.Text(v)
}

func single(values []string) (string, bool) {
	if len(values) != 1 {
		return "", false
	}
	return values[0], true
}

// median of the numeric cells of a column; NaN when there are none.
func median(t *table.Table, column string) float64 {
	var vals []float64
	for i := 0; i < t.Len(); i++ {
		if f, ok := t.Float(i, column); ok {
			vals = append(vals, f)
		}
	}
	if len(vals) == 0 {
		return math.NaN()
	}
	slices.Sort(vals)
	n := len(vals)
	if n%2 == 1 {
		return vals[n/2]
	}
	return (vals[n/2-1] + vals[n/2]) / 2
}
