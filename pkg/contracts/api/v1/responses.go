package api

import (
	"github.com/xalekter/charts-edit/pkg/contracts/domain"
)

// CreateSessionResponse is returned when a session is opened.
type CreateSessionResponse struct {
	SessionID string `json:"session_id"`
}

// MessageResponse carries the status line of a command.
type MessageResponse struct {
	Message string `json:"message"`
}

// StatusResponse is returned instead of an error when filtering leaves
// nothing to show.
type StatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Status values used by StatusResponse.
const (
	StatusEmpty = "empty"
	StatusOK    = "ok"
)

// RevisionHeader carries the dataset revision reached by a successful
// command.
const RevisionHeader = "X-Dataset-Revision"

// EmptyFilterMessage is shown when the selected filters match no rows.
const EmptyFilterMessage = "No data matches the selected filters"

// DatasetSummary describes the loaded dataset of a session.
type DatasetSummary struct {
	Loaded         bool            `json:"loaded"`
	Rows           int             `json:"rows"`
	Columns        []string        `json:"columns"`
	NumericColumns []string        `json:"numeric_columns"`
	XColumn        string          `json:"x_column"`
	YColumn        string          `json:"y_column"`
	FilterOptions  FilterOptions   `json:"filter_options"`
	Markers        []domain.Marker `json:"markers"`
}

// FilterOptions lists the distinct values a filter can pick from.
type FilterOptions struct {
	Species      []string `json:"species"`
	Sites        []string `json:"sites"`
	Descriptions []string `json:"descriptions"`
}

// MarkersResponse lists the markers of a session.
type MarkersResponse struct {
	Markers []domain.Marker `json:"markers"`
	Message string          `json:"message,omitempty"`
}
