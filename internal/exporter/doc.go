// Package exporter writes derived price tables for download.
//
// This package contains two writers:
//
// CSVWriter: the crypto_price_data.csv export, optionally prefixed with a UTF-8
// BOM for Excel, streamed to any io.Writer or written to a file.
//
// XLSXWriter: the same columns as a single-sheet Excel workbook.
//
// Both emit the input columns followed by change_pct, volatility_7d,
// high_low_range and typical_price, so an export can be loaded again as input.
//
// Example usage:
//
//	w := exporter.NewCSVWriter(logger)
//	err := w.Write(resp, rows, exporter.WriteOptions{})
package exporter
