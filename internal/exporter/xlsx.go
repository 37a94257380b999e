package exporter

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/xuri/excelize/v2"

	"cryptodash/pkg/contracts/domain"
)

// SheetName is the worksheet holding exported rows.
const SheetName = "prices"

// XLSXWriter exports rows as an Excel workbook.
type XLSXWriter struct {
	logger *slog.Logger
}

// NewXLSXWriter creates a new XLSX writer instance
func NewXLSXWriter(logger *slog.Logger) *XLSXWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &XLSXWriter{logger: logger.With(slog.String("component", "xlsx_exporter"))}
}

// Write encodes rows as a single-sheet workbook with the CSV column layout.
// Prices are numeric cells; dates and identifiers are text.
func (w *XLSXWriter) Write(dst io.Writer, rows []domain.DerivedRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		return fmt.Errorf("failed to create stream writer: %w", err)
	}

	header := make([]interface{}, len(Columns))
	for i, c := range Columns {
		header[i] = c
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}

	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, xlsxRow(r)); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("failed to flush sheet: %w", err)
	}
	if _, err := f.WriteTo(dst); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}

	w.logger.Debug("Wrote XLSX export", slog.Int("record_count", len(rows)))
	return nil
}

func xlsxRow(r domain.DerivedRecord) []interface{} {
	optional := func(v *float64) interface{} {
		if v == nil {
			return nil
		}
		return *v
	}
	return []interface{}{
		r.CoinID,
		r.Symbol,
		r.Timestamp,
		r.Date.Format(domain.DateLayout),
		r.Open,
		r.High,
		r.Low,
		r.Close,
		optional(r.ChangePct),
		optional(r.Volatility7d),
		r.HighLowRange,
		r.TypicalPrice,
	}
}
