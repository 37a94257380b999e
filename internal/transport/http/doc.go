// Package http implements the HTTP surface of the dashboard: the server-side
// rendered page, the JSON API and the file exports. Handlers are thin. They
// bind and validate the query, call the dashboard service and translate the
// outcome. An empty symbols parameter deselects every coin; a missing one
// falls back to the default coin.
//
// # Routes
//
//	GET  /                    dashboard page
//	POST /upload              page upload form, redirects to /?session=<id>
//	GET  /api/symbols         dataset summary and default selection
//	GET  /api/dashboard       full view: banner, cards, series, table
//	GET  /api/records         filtered derived rows
//	GET  /api/latest          most recent row per symbol
//	GET  /api/export.csv      filtered rows as CSV
//	GET  /api/export.xlsx     filtered rows as an Excel workbook
//	GET  /api/export          either of the above, chosen by ?format=csv|xlsx
//	POST /api/upload          multipart upload, returns a session id
//	POST /api/client-log      log lines reported by the page
//	GET  /api/health[/ready|/live], /api/version
//
// # Errors
//
// API errors are RFC 7807 problem documents produced by the errors package.
// The page never answers with a problem document: halted passes (no source,
// empty selection, expired session) become messages above the filters.
package http
