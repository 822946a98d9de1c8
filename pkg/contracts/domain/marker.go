package domain

// MarkerColor is one of the named colours a marker line can be drawn in.
type MarkerColor string

const (
	MarkerRed    MarkerColor = "red"
	MarkerOrange MarkerColor = "orange"
	MarkerGold   MarkerColor = "gold"
	MarkerGreen  MarkerColor = "green"
	MarkerBlue   MarkerColor = "blue"
	MarkerPurple MarkerColor = "purple"
	MarkerBrown  MarkerColor = "brown"
	MarkerBlack  MarkerColor = "black"
)

// MarkerColors lists the accepted colours in display order.
var MarkerColors = []MarkerColor{
	MarkerRed, MarkerOrange, MarkerGold, MarkerGreen,
	MarkerBlue, MarkerPurple, MarkerBrown, MarkerBlack,
}

// Valid reports whether c is one of MarkerColors.
func (c MarkerColor) Valid() bool {
	for _, known := range MarkerColors {
		if c == known {
			return true
		}
	}
	return false
}

// Marker is a labelled vertical annotation at an X position, usually a day
// of year.
type Marker struct {
	Position float64     `json:"position"`
	Label    string      `json:"label"`
	Color    MarkerColor `json:"color"`
}
