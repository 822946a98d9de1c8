// Package markers keeps the ordered list of vertical annotations drawn on
// the trace chart.
package markers

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/xalekter/charts-edit/pkg/contracts/domain"
)

var (
	// ErrIndexOutOfRange is returned by RemoveAt for a bad ordinal.
	ErrIndexOutOfRange = errors.New("marker index out of range")
	// ErrInvalidMarker is returned when a marker fails validation.
	ErrInvalidMarker = errors.New("invalid marker")
	// ErrUnknownPreset is returned by AddPreset for an unknown name.
	ErrUnknownPreset = errors.New("unknown marker preset")
)

// DefaultColor is used when a marker is added without a colour.
const DefaultColor = domain.MarkerRed

// Preset is a named, ready-made marker.
type Preset struct {
	Name   string        `json:"name"`
	Marker domain.Marker `json:"marker"`
}

// Presets are the seasonal markers offered by the editor.
var Presets = []Preset{
	{Name: "spring", Marker: domain.Marker{Position: 80, Label: "Spring Start", Color: domain.MarkerGreen}},
	{Name: "peak", Marker: domain.Marker{Position: 150, Label: "Peak Growing", Color: domain.MarkerOrange}},
	{Name: "autumn", Marker: domain.Marker{Position: 245, Label: "Autumn Start", Color: domain.MarkerBrown}},
	{Name: "winter", Marker: domain.Marker{Position: 335, Label: "Winter Start", Color: domain.MarkerBlue}},
}

// LookupPreset finds a preset by case-insensitive name.
func LookupPreset(name string) (Preset, bool) {
	for _, p := range Presets {
		if strings.EqualFold(p.Name, name) {
			return p, true
		}
	}
	return Preset{}, false
}

// List is an insertion-ordered marker list. It is not safe for concurrent
// use.
type List struct {
	items []domain.Marker
}

// NewList creates an empty list.
func NewList() *List {
	return &List{}
}

// Add validates and appends a marker. An empty colour becomes DefaultColor.
func (l *List) Add(position float64, label string, color domain.MarkerColor) (domain.Marker, error) {
	m := domain.Marker{Position: position, Label: strings.TrimSpace(label), Color: color}
	if m.Color == "" {
		m.Color = DefaultColor
	}
	if err := Validate(m); err != nil {
		return domain.Marker{}, err
	}
	l.items = append(l.items, m)
	return m, nil
}

// AddPreset appends the named preset.
func (l *List) AddPreset(name string) (domain.Marker, error) {
	p, ok := LookupPreset(name)
	if !ok {
		return domain.Marker{}, fmt.Errorf("%w: %q", ErrUnknownPreset, name)
	}
	l.items = append(l.items, p.Marker)
	return p.Marker, nil
}

// RemoveAt deletes the marker at ordinal i.
func (l *List) RemoveAt(i int) (domain.Marker, error) {
	if i < 0 || i >= len(l.items) {
		return domain.Marker{}, fmt.Errorf("%w: %d (markers: %d)", ErrIndexOutOfRange, i, len(l.items))
	}
	m := l.items[i]
	l.items = slices.Delete(l.items, i, i+1)
	return m, nil
}

// Clear removes every marker.
func (l *List) Clear() {
	l.items = nil
}

// Len returns the number of markers.
func (l *List) Len() int {
	return len(l.items)
}

// All returns a copy of the markers in insertion order.
func (l *List) All() []domain.Marker {
	return slices.Clone(l.items)
}

// Visible returns the markers with lo <= position <= hi, in order.
func (l *List) Visible(lo, hi float64) []domain.Marker {
	return Visible(l.items, lo, hi)
}

// Visible filters markers to the closed range [lo, hi].
func Visible(ms []domain.Marker, lo, hi float64) []domain.Marker {
	var out []domain.Marker
	for _, m := range ms {
		if m.Position >= lo && m.Position <= hi {
			out = append(out, m)
		}
	}
	return out
}

// Validate checks a marker's fields.
func Validate(m domain.Marker) error {
	switch {
	case math.IsNaN(m.Position) || math.IsInf(m.Position, 0):
		return fmt.Errorf("%w: position must be finite", ErrInvalidMarker)
	case m.Label == "":
		return fmt.Errorf("%w: label is required", ErrInvalidMarker)
	case !m.Color.Valid():
		return fmt.Errorf("%w: unknown color %q", ErrInvalidMarker, m.Color)
	}
	return nil
}
