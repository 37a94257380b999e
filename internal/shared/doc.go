// Package shared holds helpers used by more than one layer of the dashboard.
//
// The testutil subpackage provides a capturing slog handler and price-table
// fixtures (CSV text and files on disk) for tests in the dataprocessing,
// services, transport and cli packages. It must not import business packages.
package shared
