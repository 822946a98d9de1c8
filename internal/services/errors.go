package services

import "errors"

// Service errors
var (
	// ErrUnsupportedFormat is returned for an export format other than tsv or xlsx.
	ErrUnsupportedFormat = errors.New("unsupported export format")

	// ErrEmptyUpload is returned when a load carries no bytes.
	ErrEmptyUpload = errors.New("uploaded file is empty")
)
