package dataprocessing

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/xuri/excelize/v2"

	"cryptodash/pkg/contracts/domain"
)

// Format identifies the tabular encoding of an input file.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// RequiredColumns lists the input columns every table must carry.
var RequiredColumns = []string{"coin_id", "symbol", "timestamp", "date", "open", "high", "low", "close"}

var dateLayouts = []string{
	domain.DateLayout,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006/01/02",
	"01/02/2006",
}

var recordValidator = validator.New()

// DetectFormat picks the format from a file name. Anything that is not an
// Excel workbook is read as CSV.
func DetectFormat(name string) Format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx":
		return FormatXLSX
	default:
		return FormatCSV
	}
}

// ParseFile reads a price table from disk.
func ParseFile(path string) ([]domain.PriceRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	return Parse(f, DetectFormat(path))
}

// Parse reads a price table in the given format.
func Parse(r io.Reader, format Format) ([]domain.PriceRecord, error) {
	switch format {
	case FormatXLSX:
		return ParseXLSX(r)
	default:
		return ParseCSV(r)
	}
}

// ParseCSV reads a CSV price table with a header row.
func ParseCSV(r io.Reader) ([]domain.PriceRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	return parseRows(rows)
}

// ParseXLSX reads the first sheet of an Excel workbook.
func ParseXLSX(r io.Reader) ([]domain.PriceRecord, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open workbook: %v", ErrMalformedInput, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", ErrMalformedInput)
	}

	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read sheet %q: %v", ErrMalformedInput, sheets[0], err)
	}
	convertDateSerials(rows)
	return parseRows(rows)
}

// convertDateSerials rewrites Excel serial dates in the date column as RFC 3339
// text so they go through the same date parsing as CSV input.
func convertDateSerials(rows [][]string) {
	if len(rows) == 0 {
		return
	}
	col := -1
	for i, name := range rows[0] {
		if strings.EqualFold(strings.TrimSpace(name), "date") {
			col = i
			break
		}
	}
	if col < 0 {
		return
	}
	for _, row := range rows[1:] {
		if col >= len(row) {
			continue
		}
		serial, err := strconv.ParseFloat(strings.TrimSpace(row[col]), 64)
		if err != nil {
			continue
		}
		if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
			row[col] = t.Format(time.RFC3339)
		}
	}
}

func parseRows(rows [][]string) ([]domain.PriceRecord, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrMalformedInput)
	}

	index, err := headerIndex(rows[0])
	if err != nil {
		return nil, err
	}

	records := make([]domain.PriceRecord, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if isBlank(row) {
			continue
		}
		// Header is row 1 in spreadsheet terms.
		rec, err := parseRecord(row, index, i+2)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	return records, nil
}

func headerIndex(header []string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if _, seen := index[name]; !seen {
			index[name] = i
		}
	}

	for _, col := range RequiredColumns {
		if _, ok := index[col]; !ok {
			return nil, &ParseError{Column: col, Err: errors.New("required column missing")}
		}
	}
	return index, nil
}

func parseRecord(row []string, index map[string]int, line int) (domain.PriceRecord, error) {
	cell := func(col string) string {
		i := index[col]
		if i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	rec := domain.PriceRecord{
		CoinID:    cell("coin_id"),
		Symbol:    cell("symbol"),
		Timestamp: cell("timestamp"),
	}

	raw := cell("date")
	date, err := ParseDate(raw)
	if err != nil {
		return rec, &ParseError{Row: line, Column: "date", Value: raw, Err: err}
	}
	rec.Date = date

	prices := []struct {
		col string
		dst *float64
	}{
		{"open", &rec.Open},
		{"high", &rec.High},
		{"low", &rec.Low},
		{"close", &rec.Close},
	}
	for _, p := range prices {
		raw := cell(p.col)
		v, err := parsePrice(raw)
		if err != nil {
			return rec, &ParseError{Row: line, Column: p.col, Value: raw, Err: err}
		}
		*p.dst = v
	}

	if err := recordValidator.Struct(rec); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			col := strings.ToLower(verrs[0].Field())
			return rec, &ParseError{Row: line, Column: col, Value: cell(col), Err: fmt.Errorf("failed %q check", verrs[0].Tag())}
		}
		return rec, &ParseError{Row: line, Err: err}
	}

	return rec, nil
}

// ParseDate accepts the calendar and timestamp layouts seen in exchange exports.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("empty date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.New("unrecognised date format")
}

func parsePrice(s string) (float64, error) {
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimPrefix(s, "$")
	if s == "" {
		return 0, errors.New("empty value")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errors.New("not a finite number")
	}
	return v, nil
}

func isBlank(row []string) bool {
	return strings.TrimSpace(strings.Join(row, "")) == ""
}
