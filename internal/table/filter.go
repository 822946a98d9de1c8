package table

// Filter narrows a table by species, site and description. An empty list
// places no constraint on its dimension; a dimension whose column is absent
// from the table is ignored.
type Filter struct {
	Species      []string `json:"species,omitempty"`
	Sites        []string `json:"sites,omitempty"`
	Descriptions []string `json:"descriptions,omitempty"`
}

// IsEmpty reports whether the filter constrains nothing.
func (f Filter) IsEmpty() bool {
	return len(f.Species) == 0 && len(f.Sites) == 0 && len(f.Descriptions) == 0
}

type constraint struct {
	column int
	allow  map[string]struct{}
}

func (t *Table) constraints(f Filter) []constraint {
	var out []constraint
	add := func(column string, values []string) {
		if len(values) == 0 {
			return
		}
		c, ok := t.index[column]
		if !ok {
			return
		}
		allow := make(map[string]struct{}, len(values))
		for _, v := range values {
			allow[v] = struct{}{}
		}
		out = append(out, constraint{column: c, allow: allow})
	}
	add(SpeciesColumn, f.Species)
	add(SiteColumn, f.Sites)
	add(DescriptionColumn, f.Descriptions)
	return out
}

// Match returns the positions of the rows that satisfy every constraint of
// the filter, in table order.
func Match(t *Table, f Filter) []int {
	cs := t.constraints(f)
	out := make([]int, 0, len(t.rows))
rows:
	for i, r := range t.rows {
		for _, c := range cs {
			if _, ok := c.allow[r.Cells[c.column].String()]; !ok {
				continue rows
			}
		}
		out = append(out, i)
	}
	return out
}

// Apply returns the filtered rows as a new table. Row keys are kept, so the
// result can be mapped back onto t.
func Apply(t *Table, f Filter) *Table {
	return t.Subset(Match(t, f))
}
