package table

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Conventional column names with special meaning to the editor.
const (
	SpeciesColumn     = "Sc"
	SiteColumn        = "SiteC"
	DescriptionColumn = "Description"
	DayOfYearColumn   = "DOY"
)

var (
	// ErrPosition is returned when a row position is outside the table.
	ErrPosition = errors.New("row position out of range")
	// ErrColumn is returned when a column name is not part of the table.
	ErrColumn = errors.New("unknown column")
	// ErrShape is returned when a row does not have one cell per column.
	ErrShape = errors.New("row width does not match column count")
)

// Row is one record. Key identifies the row across edits and is never
// reused within a table lineage; position is its ordinal in the table.
type Row struct {
	Key   uint64
	Cells []Value
}

// Clone returns a deep copy of the row.
func (r Row) Clone() Row {
	return Row{Key: r.Key, Cells: slices.Clone(r.Cells)}
}

// Table is an ordered set of named columns and ordered rows. A Table is not
// safe for concurrent use.
type Table struct {
	columns []string
	index   map[string]int
	kinds   []Kind
	rows    []Row
	nextKey uint64
}

// New creates an empty table with the given column names. A column becomes
// numeric with its first number and text with its first text cell; a column
// that has held neither is reported as text.
func New(columns []string) *Table {
	t := &Table{
		columns: slices.Clone(columns),
		index:   make(map[string]int, len(columns)),
		kinds:   make([]Kind, len(columns)),
		nextKey: 1,
	}
	for i, c := range t.columns {
		t.index[c] = i
	}
	return t
}

// Columns returns a copy of the column names in order.
func (t *Table) Columns() []string {
	return slices.Clone(t.columns)
}

// ColumnIndex returns the position of a column.
func (t *Table) ColumnIndex(name string) (int, bool) {
	i, ok := t.index[name]
	return i, ok
}

// HasColumn reports whether the table has the named column.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// ColumnKind returns KindNumber for numeric columns and KindText otherwise.
func (t *Table) ColumnKind(name string) (Kind, bool) {
	i, ok := t.index[name]
	if !ok {
		return KindMissing, false
	}
	if t.kinds[i] == KindMissing {
		return KindText, true
	}
	return t.kinds[i], true
}

// IsNumeric reports whether the named column is numeric.
func (t *Table) IsNumeric(name string) bool {
	k, ok := t.ColumnKind(name)
	return ok && k == KindNumber
}

// NumericColumns returns the numeric column names in column order.
func (t *Table) NumericColumns() []string {
	var out []string
	for i, c := range t.columns {
		if t.kinds[i] == KindNumber {
			out = append(out, c)
		}
	}
	return out
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// Row returns a copy of the row at position i.
func (t *Table) Row(i int) (Row, error) {
	if i < 0 || i >= len(t.rows) {
		return Row{}, fmt.Errorf("%w: %d (rows: %d)", ErrPosition, i, len(t.rows))
	}
	return t.rows[i].Clone(), nil
}

// Key returns the stable key of the row at position i.
func (t *Table) Key(i int) (uint64, error) {
	if i < 0 || i >= len(t.rows) {
		return 0, fmt.Errorf("%w: %d (rows: %d)", ErrPosition, i, len(t.rows))
	}
	return t.rows[i].Key, nil
}

// PositionOf resolves a stable key to the current row position.
func (t *Table) PositionOf(key uint64) (int, bool) {
	for i, r := range t.rows {
		if r.Key == key {
			return i, true
		}
	}
	return 0, false
}

// Value returns the cell at row position i in the named column.
func (t *Table) Value(i int, column string) (Value, error) {
	c, ok := t.index[column]
	if !ok {
		return Value{}, fmt.Errorf("%w: %q", ErrColumn, column)
	}
	if i < 0 || i >= len(t.rows) {
		return Value{}, fmt.Errorf("%w: %d (rows: %d)", ErrPosition, i, len(t.rows))
	}
	return t.rows[i].Cells[c], nil
}

// Float returns the numeric cell at row position i, or false when the cell
// is missing, text, or out of range.
func (t *Table) Float(i int, column string) (float64, bool) {
	v, err := t.Value(i, column)
	if err != nil {
		return 0, false
	}
	return v.Float()
}

// Set writes a cell in place.
func (t *Table) Set(i int, column string, v Value) error {
	c, ok := t.index[column]
	if !ok {
		return fmt.Errorf("%w: %q", ErrColumn, column)
	}
	if i < 0 || i >= len(t.rows) {
		return fmt.Errorf("%w: %d (rows: %d)", ErrPosition, i, len(t.rows))
	}
	t.rows[i].Cells[c] = v
	t.observe(c, v)
	return nil
}

// Append adds a row with a freshly assigned key and returns it.
func (t *Table) Append(cells []Value) (Row, error) {
	if len(cells) != len(t.columns) {
		return Row{}, fmt.Errorf("%w: got %d cells for %d columns", ErrShape, len(cells), len(t.columns))
	}
	row := Row{Key: t.nextKey, Cells: slices.Clone(cells)}
	t.nextKey++
	t.rows = append(t.rows, row)
	for c, v := range row.Cells {
		t.observe(c, v)
	}
	return row.Clone(), nil
}

// Remove deletes the row at position i. Later rows shift down by one.
func (t *Table) Remove(i int) (Row, error) {
	if i < 0 || i >= len(t.rows) {
		return Row{}, fmt.Errorf("%w: %d (rows: %d)", ErrPosition, i, len(t.rows))
	}
	removed := t.rows[i]
	t.rows = slices.Delete(t.rows, i, i+1)
	return removed, nil
}

// NextKey returns the key the next appended row will receive.
func (t *Table) NextKey() uint64 {
	return t.nextKey
}

// ReserveKeys makes sure future appends never hand out a key below next.
func (t *Table) ReserveKeys(next uint64) {
	if next > t.nextKey {
		t.nextKey = next
	}
}

// Clone returns a deep copy sharing no state with t. Keys are preserved.
func (t *Table) Clone() *Table {
	out := &Table{
		columns: slices.Clone(t.columns),
		index:   make(map[string]int, len(t.index)),
		kinds:   slices.Clone(t.kinds),
		rows:    make([]Row, len(t.rows)),
		nextKey: t.nextKey,
	}
	for k, v := range t.index {
		out.index[k] = v
	}
	for i, r := range t.rows {
		out.rows[i] = r.Clone()
	}
	return out
}

// Subset returns a new table with the rows at the given positions, in the
// given order, keeping their keys.
func (t *Table) Subset(positions []int) *Table {
	out := &Table{
		columns: slices.Clone(t.columns),
		index:   make(map[string]int, len(t.index)),
		kinds:   slices.Clone(t.kinds),
		rows:    make([]Row, 0, len(positions)),
		nextKey: t.nextKey,
	}
	for k, v := range t.index {
		out.index[k] = v
	}
	for _, p := range positions {
		if p >= 0 && p < len(t.rows) {
			out.rows = append(out.rows, t.rows[p].Clone())
		}
	}
	return out
}

// Records returns every row as a column-name keyed map, in row order.
func (t *Table) Records() []map[string]Value {
	out := make([]map[string]Value, len(t.rows))
	for i, r := range t.rows {
		rec := make(map[string]Value, len(t.columns))
		for c, name := range t.columns {
			rec[name] = r.Cells[c]
		}
		out[i] = rec
	}
	return out
}

// Strings returns the display form of every row.
func (t *Table) Strings() [][]string {
	out := make([][]string, len(t.rows))
	for i, r := range t.rows {
		line := make([]string, len(r.Cells))
		for c, v := range r.Cells {
			line[c] = v.String()
		}
		out[i] = line
	}
	return out
}

// UniqueStrings returns the sorted distinct display strings of the
// non-missing cells in a column. A missing column yields nil.
func (t *Table) UniqueStrings(column string) []string {
	c, ok := t.index[column]
	if !ok {
		return nil
	}
	seen := make(map[string]struct{})
	var out []string
	for _, r := range t.rows {
		v := r.Cells[c]
		if v.IsMissing() {
			continue
		}
		s := v.String()
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	if t.kinds[c] == KindNumber {
		slices.SortFunc(out, func(a, b string) int {
			fa, _ := ParseValue(a).Float()
			fb, _ := ParseValue(b).Float()
			switch {
			case fa < fb:
				return -1
			case fa > fb:
				return 1
			}
			return 0
		})
		return out
	}
	slices.SortFunc(out, strings.Compare)
	return out
}

// observe records the kind of a cell written to column c. Text is sticky.
func (t *Table) observe(c int, v Value) {
	switch {
	case v.Kind() == KindText:
		t.kinds[c] = KindText
	case v.Kind() == KindNumber && t.kinds[c] == KindMissing:
		t.kinds[c] = KindNumber
	}
}
