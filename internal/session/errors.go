package session

import "errors"

// Sentinel errors. Callers match them with errors.Is; the wrapped message
// carries the detail.
var (
	ErrParseFailure      = errors.New("parse failure")
	ErrNoDataLoaded      = errors.New("no data loaded")
	ErrIndexOutOfRange   = errors.New("row index out of range")
	ErrEmptyFilterResult = errors.New("no data matches the selected filters")
	ErrAxesNotSelected   = errors.New("axis columns not selected")
	ErrUnknownColumn     = errors.New("unknown column")
	ErrNonNumericCell    = errors.New("cell is not numeric")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrSessionNotFound   = errors.New("session not found")
	ErrTooManySessions   = errors.New("too many sessions")
)
