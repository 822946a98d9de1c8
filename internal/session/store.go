package session

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/xalekter/charts-edit/internal/dataprocessing"
	"github.com/xalekter/charts-edit/internal/exporter"
	"github.com/xalekter/charts-edit/internal/interpolation"
	"github.com/xalekter/charts-edit/internal/markers"
	"github.com/xalekter/charts-edit/internal/plot"
	"github.com/xalekter/charts-edit/internal/table"
	"github.com/xalekter/charts-edit/pkg/contracts/domain"
)

// DefaultPreviewRows is the preview size when none is requested.
const DefaultPreviewRows = 20

// Axis names one of the two plotted columns.
type Axis string

const (
	AxisX Axis = "x"
	AxisY Axis = "y"
)

// FilterOptions are the distinct values offered for each filter dimension.
type FilterOptions struct {
	Species      []string `json:"species"`
	Sites        []string `json:"sites"`
	Descriptions []string `json:"descriptions"`
}

// LoadResult describes a successful load.
type LoadResult struct {
	Message        string        `json:"message"`
	Rows           int           `json:"rows"`
	Columns        []string      `json:"columns"`
	NumericColumns []string      `json:"numeric_columns"`
	XColumn        string        `json:"x_column"`
	YColumn        string        `json:"y_column"`
	Options        FilterOptions `json:"filter_options"`
}

// AddResult describes an appended row.
type AddResult struct {
	Position   int                    `json:"position"`
	Key        uint64                 `json:"key"`
	Cells      map[string]table.Value `json:"cells"`
	Provenance domain.Provenance      `json:"provenance"`
	Message    string                 `json:"message"`
}

// StepResult describes a nudged cell.
type StepResult struct {
	Position int     `json:"position"`
	Column   string  `json:"column"`
	Old      float64 `json:"old"`
	New      float64 `json:"new"`
	Message  string  `json:"message"`
}

// Selection is the currently selected row, resolved to its live position.
type Selection struct {
	Position int         `json:"position"`
	Key      uint64      `json:"key"`
	X        table.Value `json:"x"`
	Y        table.Value `json:"y"`
}

// PreviewRow is one row of a preview with its absolute position.
type PreviewRow struct {
	Position int                    `json:"position"`
	Key      uint64                 `json:"key"`
	Cells    map[string]table.Value `json:"cells"`
}

// Preview is the first rows of a filtered view.
type Preview struct {
	Title    string       `json:"title"`
	Columns  []string     `json:"columns"`
	Rows     []PreviewRow `json:"rows"`
	Filtered int          `json:"filtered"`
	Total    int          `json:"total"`
}

// Store holds one user's editable table, its pristine original, the chosen
// axes and the marker list. A Store is not safe for concurrent use; Manager
// serializes access per session.
type Store struct {
	live     *table.Table
	original *table.Table
	xCol     string
	yCol     string
	markers  *markers.List

	selectedKey uint64
	hasSelected bool

	engine *interpolation.Engine
	writer *exporter.TableWriter
}

// NewStore creates an empty store.
func NewStore(logger *slog.Logger) *Store {
	return &Store{
		markers: markers.NewList(),
		engine:  interpolation.NewEngine(logger),
		writer:  exporter.NewTableWriter(logger),
	}
}

// Loaded reports whether a table is present.
func (s *Store) Loaded() bool { return s.live != nil }

// Table returns the live table, or nil. The result must not be modified.
func (s *Store) Table() *table.Table { return s.live }

// Axes returns the selected axis columns.
func (s *Store) Axes() (x, y string) { return s.xCol, s.yCol }

// Markers returns the marker list. Markers survive loads and resets.
func (s *Store) Markers() *markers.List { return s.markers }

// Load parses raw file content and replaces both the live table and the
// original snapshot. On failure the store is left untouched.
func (s *Store) Load(raw []byte, filename string) (LoadResult, error) {
	t, err := dataprocessing.ParseUpload(raw, filename)
	if err != nil {
		return LoadResult{Message: err.Error()}, fmt.Errorf("%w: %w", ErrParseFailure, err)
	}

	s.original = t
	s.live = t.Clone()
	s.hasSelected = false
	s.xCol, s.yCol = defaultAxes(t)

	columns := t.Columns()
	return LoadResult{
		Message:        fmt.Sprintf("Successfully loaded %d rows and %d columns", t.Len(), len(columns)),
		Rows:           t.Len(),
		Columns:        columns,
		NumericColumns: t.NumericColumns(),
		XColumn:        s.xCol,
		YColumn:        s.yCol,
		Options:        s.FilterOptions(),
	}, nil
}

// defaultAxes picks DOY (else the first column) for X and the second
// numeric column (else the first numeric column) for Y.
func defaultAxes(t *table.Table) (string, string) {
	columns := t.Columns()
	var x, y string
	if t.HasColumn(table.DayOfYearColumn) {
		x = table.DayOfYearColumn
	} else if len(columns) > 0 {
		x = columns[0]
	}
	numeric := t.NumericColumns()
	switch {
	case len(numeric) > 1:
		y = numeric[1]
	case len(numeric) == 1:
		y = numeric[0]
	}
	return x, y
}

// Reset replaces the live table with a copy of the original snapshot.
func (s *Store) Reset() (string, error) {
	if s.original == nil {
		return "No original data to reset", ErrNoDataLoaded
	}
	next := s.live.NextKey()
	s.live = s.original.Clone()
	s.live.ReserveKeys(next)
	return "Data reset to original values", nil
}

// SelectAxes records the axis columns after checking they exist.
func (s *Store) SelectAxes(x, y string) error {
	if s.live == nil {
		return ErrNoDataLoaded
	}
	for _, c := range []string{x, y} {
		if !s.live.HasColumn(c) {
			return fmt.Errorf("%w: %q", ErrUnknownColumn, c)
		}
	}
	s.xCol, s.yCol = x, y
	return nil
}

func (s *Store) requireAxes() error {
	if s.live == nil {
		return ErrNoDataLoaded
	}
	if s.xCol == "" || s.yCol == "" {
		return ErrAxesNotSelected
	}
	if !s.live.HasColumn(s.xCol) || !s.live.HasColumn(s.yCol) {
		return ErrAxesNotSelected
	}
	return nil
}

func (s *Store) checkIndex(i int) error {
	if i < 0 || i >= s.live.Len() {
		return fmt.Errorf("%w: %d (rows: %d)", ErrIndexOutOfRange, i, s.live.Len())
	}
	return nil
}

// UpdateRow writes new X and Y values into the row at position i.
func (s *Store) UpdateRow(i int, x, y float64) (string, error) {
	if err := s.requireAxes(); err != nil {
		return "", err
	}
	if err := s.checkIndex(i); err != nil {
		return "", err
	}
	if err := finite(x, y); err != nil {
		return "", err
	}
	if err := s.live.Set(i, s.xCol, table.Number(x)); err != nil {
		return "", err
	}
	if err := s.live.Set(i, s.yCol, table.Number(y)); err != nil {
		return "", err
	}
	return fmt.Sprintf("Updated point %d to (%s, %s)", i, table.FormatNumber(x), table.FormatNumber(y)), nil
}

// RemoveRow deletes the row at position i. A selection on that row is
// cleared; selections on other rows follow their row.
func (s *Store) RemoveRow(i int) (string, error) {
	if s.live == nil {
		return "", ErrNoDataLoaded
	}
	if err := s.checkIndex(i); err != nil {
		return "", err
	}
	removed, err := s.live.Remove(i)
	if err != nil {
		return "", err
	}
	if s.hasSelected && s.selectedKey == removed.Key {
		s.hasSelected = false
	}
	return fmt.Sprintf("Removed point %d. Total points: %d", i, s.live.Len()), nil
}

// AddRow synthesizes a row at (x, y) from its neighbours and appends it.
func (s *Store) AddRow(x, y float64, species, sites []string) (AddResult, error) {
	if err := s.requireAxes(); err != nil {
		return AddResult{}, err
	}
	if err := finite(x, y); err != nil {
		return AddResult{}, err
	}

	res := s.engine.Interpolate(s.live, interpolation.Request{
		XColumn: s.xCol,
		YColumn: s.yCol,
		X:       x,
		Y:       y,
		Species: species,
		Sites:   sites,
	})
	row, err := s.live.Append(res.Cells)
	if err != nil {
		return AddResult{}, err
	}

	cells := make(map[string]table.Value, len(row.Cells))
	for i, c := range s.live.Columns() {
		cells[c] = row.Cells[i]
	}
	return AddResult{
		Position:   s.live.Len() - 1,
		Key:        row.Key,
		Cells:      cells,
		Provenance: res.Provenance,
		Message:    addMessage(s.xCol, x, y, res.Provenance, species, sites),
	}, nil
}

var provenanceText = map[domain.Provenance]string{
	domain.ProvenanceExtrapolatedBefore: "extrapolated from first",
	domain.ProvenanceExtrapolatedAfter:  "extrapolated from last",
	domain.ProvenanceInterpolated:       "interpolated",
	domain.ProvenanceDuplicatedX:        "copied from duplicated X",
	domain.ProvenanceFallback:           "fallback to first row",
	domain.ProvenanceEmptySubset:        "built from column defaults",
	domain.ProvenanceSingleRow:          "copied from single match",
}

func addMessage(xCol string, x, y float64, prov domain.Provenance, species, sites []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Added point: %s %s, Y=%s (%s)", xCol, table.FormatNumber(x),
		table.FormatNumber(interpolation.Round(y)), provenanceText[prov])
	var info []string
	if len(species) == 1 {
		info = append(info, "Species: "+species[0])
	}
	if len(sites) == 1 {
		info = append(info, "Site: "+sites[0])
	}
	if len(info) > 0 {
		b.WriteString(" • " + strings.Join(info, ", "))
	}
	return b.String()
}

// StepSelected nudges one axis value of row i by direction * step. X steps
// are whole days when the X column is DOY or a date column.
func (s *Store) StepSelected(i int, axis Axis, direction int, stepSize float64) (StepResult, error) {
	if err := s.requireAxes(); err != nil {
		return StepResult{}, err
	}
	if err := s.checkIndex(i); err != nil {
		return StepResult{}, err
	}
	if direction != 1 && direction != -1 {
		return StepResult{}, fmt.Errorf("%w: direction must be 1 or -1, got %d", ErrInvalidArgument, direction)
	}

	var column string
	step := stepSize
	switch axis {
	case AxisX:
		column = s.xCol
		if wholeDays(column) {
			step = 1
		}
	case AxisY:
		column = s.yCol
	default:
		return StepResult{}, fmt.Errorf("%w: unknown axis %q", ErrInvalidArgument, axis)
	}
	if err := finite(step); err != nil {
		return StepResult{}, err
	}

	old, ok := s.live.Float(i, column)
	if !ok {
		v, _ := s.live.Value(i, column)
		return StepResult{}, fmt.Errorf("%w: row %d column %q holds %q", ErrNonNumericCell, i, column, v.String())
	}
	updated := old + float64(direction)*step
	if err := s.live.Set(i, column, table.Number(updated)); err != nil {
		return StepResult{}, err
	}

	return StepResult{
		Position: i,
		Column:   column,
		Old:      old,
		New:      updated,
		Message:  fmt.Sprintf("Moved point %d %s: %.3f → %.3f", i, strings.ToUpper(string(axis)), old, updated),
	}, nil
}

func wholeDays(column string) bool {
	return column == table.DayOfYearColumn || strings.Contains(strings.ToLower(column), "date")
}

// Select marks the row at position i as selected.
func (s *Store) Select(i int) (Selection, error) {
	if s.live == nil {
		return Selection{}, ErrNoDataLoaded
	}
	if err := s.checkIndex(i); err != nil {
		return Selection{}, err
	}
	key, err := s.live.Key(i)
	if err != nil {
		return Selection{}, err
	}
	s.selectedKey, s.hasSelected = key, true
	sel, _ := s.Selection()
	return sel, nil
}

// Selection resolves the selected row. A row that no longer exists reads as
// no selection.
func (s *Store) Selection() (Selection, bool) {
	if s.live == nil || !s.hasSelected {
		return Selection{}, false
	}
	pos, ok := s.live.PositionOf(s.selectedKey)
	if !ok {
		return Selection{}, false
	}
	sel := Selection{Position: pos, Key: s.selectedKey}
	if s.xCol != "" {
		sel.X, _ = s.live.Value(pos, s.xCol)
	}
	if s.yCol != "" {
		sel.Y, _ = s.live.Value(pos, s.yCol)
	}
	return sel, true
}

// ClearSelection drops the selection.
func (s *Store) ClearSelection() {
	s.hasSelected = false
}

// FilterOptions lists the sorted distinct species, site and description
// values. The "-" description placeholder is not offered.
func (s *Store) FilterOptions() FilterOptions {
	if s.live == nil {
		return FilterOptions{}
	}
	var descriptions []string
	for _, d := range s.live.UniqueStrings(table.DescriptionColumn) {
		if d != "-" {
			descriptions = append(descriptions, d)
		}
	}
	return FilterOptions{
		Species:      s.live.UniqueStrings(table.SpeciesColumn),
		Sites:        s.live.UniqueStrings(table.SiteColumn),
		Descriptions: descriptions,
	}
}

// Preview returns up to limit filtered rows. A non-positive limit uses
// DefaultPreviewRows.
func (s *Store) Preview(f table.Filter, limit int) (Preview, error) {
	if s.live == nil {
		return Preview{}, ErrNoDataLoaded
	}
	if limit <= 0 {
		limit = DefaultPreviewRows
	}
	positions := table.Match(s.live, f)
	shown := min(limit, len(positions))

	columns := s.live.Columns()
	rows := make([]PreviewRow, 0, shown)
	for _, p := range positions[:shown] {
		r, err := s.live.Row(p)
		if err != nil {
			return Preview{}, err
		}
		cells := make(map[string]table.Value, len(columns))
		for c, name := range columns {
			cells[name] = r.Cells[c]
		}
		rows = append(rows, PreviewRow{Position: p, Key: r.Key, Cells: cells})
	}

	title := fmt.Sprintf("Data Preview (Showing %d of %d filtered rows", shown, len(positions))
	if len(positions) < s.live.Len() {
		title += fmt.Sprintf(" from %d total)", s.live.Len())
	} else {
		title += ")"
	}
	return Preview{
		Title:    title,
		Columns:  columns,
		Rows:     rows,
		Filtered: len(positions),
		Total:    s.live.Len(),
	}, nil
}

// FilterStatus describes the active filter for display.
func FilterStatus(f table.Filter) string {
	if f.IsEmpty() {
		return "Showing all data"
	}
	var parts []string
	if len(f.Species) > 0 {
		parts = append(parts, "Species: "+strings.Join(f.Species, ", "))
	}
	if len(f.Sites) > 0 {
		parts = append(parts, "Sites: "+strings.Join(f.Sites, ", "))
	}
	if len(f.Descriptions) > 0 {
		parts = append(parts, "Descriptions: "+strings.Join(f.Descriptions, ", "))
	}
	return "Filtered by: " + strings.Join(parts, " | ")
}

// Plot assembles the chart for the filtered live table.
func (s *Store) Plot(f table.Filter) (*plot.Figure, error) {
	if err := s.requireAxes(); err != nil {
		return nil, err
	}
	fig, err := plot.Assemble(s.live, plot.Options{
		XColumn: s.xCol,
		YColumn: s.yCol,
		Filter:  f,
		Markers: s.markers.All(),
	})
	if errors.Is(err, plot.ErrEmptyFilterResult) {
		return nil, ErrEmptyFilterResult
	}
	return fig, err
}

// Export returns the live table as tab separated text with a header line.
func (s *Store) Export() ([]byte, error) {
	if s.live == nil {
		return nil, ErrNoDataLoaded
	}
	var buf bytes.Buffer
	if err := s.writer.WriteTSV(&buf, s.live); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ExportWorkbook returns the live table as an .xlsx workbook.
func (s *Store) ExportWorkbook() ([]byte, error) {
	if s.live == nil {
		return nil, ErrNoDataLoaded
	}
	var buf bytes.Buffer
	if err := s.writer.WriteWorkbook(&buf, s.live); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func finite(values ...float64) error {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: value must be finite", ErrInvalidArgument)
		}
	}
	return nil
}
