package errors

import (
	"errors"
	"net/http"

	"github.com/xalekter/charts-edit/internal/markers"
	"github.com/xalekter/charts-edit/internal/plot"
	"github.com/xalekter/charts-edit/internal/session"
	"github.com/xalekter/charts-edit/internal/table"
)

// Problem types for editor failures
const (
	TypeParseFailure    = "/errors/dataset/parse-failure"
	TypeNoDataLoaded    = "/errors/dataset/no-data"
	TypeAxesNotSelected = "/errors/dataset/axes-not-selected"
	TypeIndexOutOfRange = "/errors/dataset/index-out-of-range"
	TypeNonNumericCell  = "/errors/dataset/non-numeric-cell"
	TypeNoPlottable     = "/errors/plot/no-points"
	TypeSessionNotFound = "/errors/session/not-found"
	TypeTooManySessions = "/errors/session/limit"
	TypeUnknownColumn   = "/errors/dataset/unknown-column"
	TypeMarkerNotFound  = "/errors/markers/not-found"
)

// SelectionDetails tells the client its selected row index is stale.
type SelectionDetails struct {
	ClearSelection bool `json:"clear_selection"`
}

// MapDomainError converts the editor's sentinel errors into API errors.
// The message keeps the wrapped detail.
func MapDomainError(err error) (*APIError, bool) {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.Is(err, session.ErrParseFailure):
		return New(http.StatusUnprocessableEntity, CodeParseFailure, err.Error()), true
	case errors.Is(err, session.ErrNoDataLoaded):
		return New(http.StatusConflict, CodeNoDataLoaded, "No data loaded"), true
	case errors.Is(err, session.ErrAxesNotSelected):
		return New(http.StatusConflict, CodeAxesNotSelected, "Select X and Y columns first"), true
	case errors.Is(err, session.ErrIndexOutOfRange):
		return NewWithDetails(http.StatusNotFound, CodeIndexOutOfRange, err.Error(), SelectionDetails{ClearSelection: true}), true
	case errors.Is(err, markers.ErrIndexOutOfRange), errors.Is(err, markers.ErrUnknownPreset):
		return New(http.StatusNotFound, CodeMarkerNotFound, err.Error()), true
	case errors.Is(err, session.ErrSessionNotFound):
		return New(http.StatusNotFound, CodeSessionNotFound, "Session not found or expired"), true
	case errors.Is(err, session.ErrTooManySessions):
		return New(http.StatusServiceUnavailable, CodeTooManySessions, "Too many active sessions, try again later"), true
	case errors.Is(err, session.ErrUnknownColumn), errors.Is(err, table.ErrColumn):
		return New(http.StatusBadRequest, CodeUnknownColumn, err.Error()), true
	case errors.Is(err, session.ErrNonNumericCell):
		return New(http.StatusUnprocessableEntity, CodeNonNumericCell, err.Error()), true
	case errors.Is(err, plot.ErrNoPlottablePoints):
		return New(http.StatusUnprocessableEntity, CodeNoPlottablePoints, err.Error()), true
	case errors.Is(err, session.ErrInvalidArgument), errors.Is(err, markers.ErrInvalidMarker):
		return NewWithDetails(http.StatusBadRequest, CodeValidationFailed, "Request validation failed", err.Error()), true
	case errors.As(err, &maxBytes):
		return ErrPayloadTooLarge, true
	}
	return nil, false
}
