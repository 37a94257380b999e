// Package services implements the business logic layer of the dashboard. It
// sits between the HTTP handlers and CLI on one side and the pure pipeline
// steps in dataprocessing on the other.
//
// # Dashboard pass
//
// Every interaction runs one pass:
//
//	load (memoized) -> derive -> filter -> aggregate -> views
//
// Tables are loaded from, in order of preference, an upload session, the
// default data file, or the configured remote URL. Parsed tables are cached
// by source identity and shared read-only between passes; concurrent loads of
// the same source are collapsed into one read.
//
// # Errors
//
// A pass ends with one of the sentinels in errors.go. Handlers translate them
// to problem responses:
//
//	ErrNoDataSource    nothing to load; ask the user for a file
//	ErrSessionNotFound upload session unknown or expired
//	ErrEmptyResult     the selection matched no rows
//	ErrMalformedInput  the table could not be parsed
//
// # Observability
//
// Each pass is logged once with its outcome (Info on success, Warn when it
// halts, Error when it fails), wrapped in a span and counted in the
// dashboard_passes_total metric.
package services
