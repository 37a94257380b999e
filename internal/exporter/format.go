package exporter

import (
	"fmt"
	"strconv"
	"strings"

	"cryptodash/pkg/contracts/domain"
)

// Format is an export encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// BaseName is the download name without extension.
const BaseName = "crypto_price_data"

// ParseFormat maps a request value to a Format. Empty means CSV.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", s)
	}
}

// ContentType returns the MIME type served for the format.
func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv"
}

// FileName returns the download file name for the format.
func (f Format) FileName() string {
	if f == FormatXLSX {
		return BaseName + ".xlsx"
	}
	return BaseName + ".csv"
}

// Columns is the export header: the input columns followed by the derived ones.
var Columns = []string{
	"coin_id", "symbol", "timestamp", "date",
	"open", "high", "low", "close",
	"change_pct", "volatility_7d", "high_low_range", "typical_price",
}

// Row renders one record in Columns order. Undefined values become empty cells.
func Row(r domain.DerivedRecord) []string {
	return []string{
		r.CoinID,
		r.Symbol,
		r.Timestamp,
		r.Date.Format(domain.DateLayout),
		formatFloat(r.Open),
		formatFloat(r.High),
		formatFloat(r.Low),
		formatFloat(r.Close),
		formatOptional(r.ChangePct),
		formatOptional(r.Volatility7d),
		formatFloat(r.HighLowRange),
		formatFloat(r.TypicalPrice),
	}
}

// formatFloat writes the shortest representation that parses back to f.
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func formatOptional(f *float64) string {
	if f == nil {
		return ""
	}
	return formatFloat(*f)
}
