package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

// PriceHeader is the header row every fixture table starts with.
const PriceHeader = "coin_id,symbol,timestamp,date,open,high,low,close"

// PriceRow is one row of a fixture table.
type PriceRow struct {
	CoinID    string
	Symbol    string
	Timestamp string
	Date      string
	Open      float64
	High      float64
	Low       float64
	Close     float64
}

// Row builds a PriceRow for a YYYY-MM-DD date. Open, high and low are derived
// from close.
func Row(coinID, symbol, date string, close float64) PriceRow {
	return PriceRow{
		CoinID:    coinID,
		Symbol:    symbol,
		Timestamp: date + " 00:00:00",
		Date:      date,
		Open:      close,
		High:      close + 1,
		Low:       close - 1,
		Close:     close,
	}
}

// PriceCSV renders rows as CSV text with the standard header.
func PriceCSV(rows ...PriceRow) string {
	var b strings.Builder
	b.WriteString(PriceHeader)
	b.WriteByte('\n')
	for _, r := range rows {
		fmt.Fprintf(&b, "%s,%s,%s,%s,%s,%s,%s,%s\n",
			r.CoinID, r.Symbol, r.Timestamp, r.Date, num(r.Open), num(r.High), num(r.Low), num(r.Close))
	}
	return b.String()
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// SampleRows is a small two-coin table spanning three days.
func SampleRows() []PriceRow {
	return []PriceRow{
		Row("bitcoin", "btc", "2024-01-01", 42000),
		Row("ethereum", "eth", "2024-01-01", 2300),
		Row("bitcoin", "btc", "2024-01-02", 44100),
		Row("ethereum", "eth", "2024-01-02", 2392),
		Row("bitcoin", "btc", "2024-01-03", 43218),
		Row("ethereum", "eth", "2024-01-03", 2344.16),
	}
}

// WriteFile writes content to dir/name and returns the path.
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write fixture %s: %v", path, err)
	}
	return path
}

// WriteSampleCSV writes SampleRows as CSV into a fresh temp dir.
func WriteSampleCSV(t *testing.T, name string) string {
	t.Helper()
	return WriteFile(t, t.TempDir(), name, PriceCSV(SampleRows()...))
}
