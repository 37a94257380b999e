package services

import (
	"errors"

	"cryptodash/internal/dataprocessing"
)

// Dashboard pass errors. Each one ends the current pass; handlers map them to
// problem responses.
var (
	// ErrNoDataSource means neither the default file, the remote source nor an
	// upload session could supply a table.
	ErrNoDataSource = errors.New("no data source available")

	// ErrSessionNotFound means the upload session is unknown or has expired.
	ErrSessionNotFound = errors.New("upload session not found")

	// ErrEmptyResult means the filter selection matched no rows.
	ErrEmptyResult = dataprocessing.ErrEmptyResult

	// ErrMalformedInput means the table could not be parsed.
	ErrMalformedInput = dataprocessing.ErrMalformedInput

	// ErrUnsupportedFormat is returned by Export for unknown formats.
	ErrUnsupportedFormat = errors.New("unsupported export format")
)

// outcome labels a pass result for logs and metrics.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNoDataSource):
		return "no_data_source"
	case errors.Is(err, ErrSessionNotFound):
		return "session_not_found"
	case errors.Is(err, ErrEmptyResult):
		return "empty_result"
	case errors.Is(err, ErrMalformedInput):
		return "malformed_input"
	default:
		return "error"
	}
}
