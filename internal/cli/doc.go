// Package cli implements the cryptodash command line: serve runs the web
// dashboard, summary prints one pass to the terminal and export writes the
// filtered table to CSV or XLSX.
package cli
