// Package api contains the request and response contracts of the trace
// editor HTTP API. Version v1 is the current stable API.
package api

// SelectAxesRequest chooses the plotted columns.
type SelectAxesRequest struct {
	X string `json:"x" validate:"required"`
	Y string `json:"y" validate:"required"`
}

// UpdateRowRequest overwrites the X and Y cells of one row. Both values
// must be present.
type UpdateRowRequest struct {
	X *float64 `json:"x" validate:"required,finite"`
	Y *float64 `json:"y" validate:"required,finite"`
}

// AddRowRequest synthesizes a new row at (X, Y). Species and Sites restrict
// the rows used to fill the remaining numeric columns; only a single value
// in each restricts anything.
type AddRowRequest struct {
	X       *float64 `json:"x" validate:"required,finite"`
	Y       *float64 `json:"y" validate:"required,finite"`
	Species []string `json:"species,omitempty" validate:"omitempty,dive,required"`
	Sites   []string `json:"sites,omitempty" validate:"omitempty,dive,required"`
}

// StepRequest nudges one coordinate of the selected row. A zero StepSize
// uses the server default.
type StepRequest struct {
	Axis      string  `json:"axis" validate:"required,oneof=x y"`
	Direction int     `json:"direction" validate:"oneof=-1 1"`
	StepSize  float64 `json:"step_size,omitempty" validate:"finite,gte=0"`
}

// SelectRequest selects a row by position.
type SelectRequest struct {
	Index *int `json:"index" validate:"required,gte=0"`
}

// AddMarkerRequest appends a vertical annotation.
type AddMarkerRequest struct {
	Position *float64 `json:"position" validate:"required,finite"`
	Label    string   `json:"label" validate:"required,max=80"`
	Color    string   `json:"color" validate:"required,oneof=red orange gold green blue purple brown black"`
}
