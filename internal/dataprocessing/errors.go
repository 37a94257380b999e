package dataprocessing

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedInput is returned when the input table is missing a required
	// column or a cell cannot be parsed.
	ErrMalformedInput = errors.New("malformed input")

	// ErrEmptyResult is returned when a filter selection matches no rows.
	ErrEmptyResult = errors.New("no data for selected filters")
)

// ParseError carries the location of a malformed cell.
type ParseError struct {
	Row    int
	Column string
	Value  string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Row == 0 {
		return fmt.Sprintf("%s: column %q: %v", ErrMalformedInput, e.Column, e.Err)
	}
	return fmt.Sprintf("%s: row %d column %q value %q: %v", ErrMalformedInput, e.Row, e.Column, e.Value, e.Err)
}

// Unwrap exposes both the sentinel and the underlying cause to errors.Is.
func (e *ParseError) Unwrap() []error {
	return []error{ErrMalformedInput, e.Err}
}
