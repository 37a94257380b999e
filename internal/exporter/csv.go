package exporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"

	"cryptodash/pkg/contracts/domain"
)

// CSVWriter provides CSV export functionality
type CSVWriter struct {
	logger *slog.Logger
}

// NewCSVWriter creates a new CSV writer instance
func NewCSVWriter(logger *slog.Logger) *CSVWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVWriter{logger: logger.With(slog.String("component", "csv_exporter"))}
}

// WriteOptions configures CSV writing behavior
type WriteOptions struct {
	BOMPrefix bool // Add UTF-8 BOM for Excel compatibility
}

// Write encodes rows as CSV with a header line.
func (w *CSVWriter) Write(dst io.Writer, rows []domain.DerivedRecord, options WriteOptions) error {
	if options.BOMPrefix {
		if _, err := dst.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	stream, err := NewStreamWriter(dst)
	if err != nil {
		return err
	}
	for i, r := range rows {
		if err := stream.WriteRecord(r); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}
	if err := stream.Flush(); err != nil {
		return err
	}

	w.logger.Debug("Wrote CSV export", slog.Int("record_count", len(rows)))
	return nil
}

// StreamWriter writes records one at a time
type StreamWriter struct {
	writer *csv.Writer
}

// NewStreamWriter writes the header and returns a writer for the records.
func NewStreamWriter(dst io.Writer) (*StreamWriter, error) {
	writer := csv.NewWriter(dst)
	if err := writer.Write(Columns); err != nil {
		return nil, fmt.Errorf("failed to write headers: %w", err)
	}
	return &StreamWriter{writer: writer}, nil
}

// WriteRecord writes a single record to the stream
func (s *StreamWriter) WriteRecord(r domain.DerivedRecord) error {
	return s.writer.Write(Row(r))
}

// Flush flushes buffered rows and reports any write error.
func (s *StreamWriter) Flush() error {
	s.writer.Flush()
	return s.writer.Error()
}
