package domain

// Provenance records which branch of the row interpolation produced a new
// row.
type Provenance string

const (
	ProvenanceExtrapolatedBefore Provenance = "extrapolated_before"
	ProvenanceExtrapolatedAfter  Provenance = "extrapolated_after"
	ProvenanceInterpolated       Provenance = "interpolated"
	ProvenanceDuplicatedX        Provenance = "duplicated_x"
	ProvenanceFallback           Provenance = "fallback"

	// Degenerate subsets. Neither is an error.
	ProvenanceEmptySubset Provenance = "empty_subset"
	ProvenanceSingleRow   Provenance = "single_row"
)

// Degenerate reports whether the row was built without two bracketing
// neighbours.
func (p Provenance) Degenerate() bool {
	return p == ProvenanceEmptySubset || p == ProvenanceSingleRow
}
