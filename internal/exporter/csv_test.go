package exporter

import (
	"bytes"
	"encoding/csv"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptodash/internal/dataprocessing"
	"cryptodash/pkg/contracts/domain"
)

func testRows() []domain.DerivedRecord {
	records := []domain.PriceRecord{
		{CoinID: "bitcoin", Symbol: "btc", Timestamp: "1704067200", Date: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Open: 42000.5, High: 43000, Low: 41500.25, Close: 42500.125},
		{CoinID: "ethereum", Symbol: "eth", Timestamp: "1704067200", Date: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Open: 2300, High: 2400, Low: 2250, Close: 2350},
		{CoinID: "bitcoin", Symbol: "btc", Timestamp: "1704153600", Date: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Open: 42500, High: 45000, Low: 42000, Close: 44800.333},
	}
	return dataprocessing.NewDeriver(nil, dataprocessing.DefaultDeriverConfig()).Derive(records)
}

func priceRecords(rows []domain.DerivedRecord) []domain.PriceRecord {
	out := make([]domain.PriceRecord, len(rows))
	for i, r := range rows {
		out[i] = r.PriceRecord
	}
	return out
}

func TestNewCSVWriter(t *testing.T) {
	writer := NewCSVWriter(nil)
	assert.NotNil(t, writer)
	assert.NotNil(t, writer.logger)
}

func TestCSVWriter_Write(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewCSVWriter(nil).Write(&buf, testRows(), WriteOptions{}))

	lines, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, lines, 4)

	assert.Equal(t, Columns, lines[0])
	assert.Equal(t, []string{"bitcoin", "btc", "1704067200", "2024-01-01", "42000.5", "43000", "41500.25", "42500.125", "", "", "1499.75", "42333.458333333336"}, lines[1])
	assert.Equal(t, "eth", lines[2][1])
	assert.NotEmpty(t, lines[2][8], "change_pct is defined from the second row on")
	assert.Empty(t, lines[3][9], "volatility needs a full window")
}

func TestCSVWriter_WriteBOM(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewCSVWriter(nil).Write(&buf, testRows(), WriteOptions{BOMPrefix: true}))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte{0xEF, 0xBB, 0xBF}))
}

func TestCSVWriter_WriteEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewCSVWriter(nil).Write(&buf, nil, WriteOptions{}))
	assert.Equal(t, strings.Join(Columns, ",")+"\n", buf.String())
}

func TestCSVWriter_RoundTrip(t *testing.T) {
	rows := testRows()

	for _, bom := range []bool{false, true} {
		var buf bytes.Buffer
		require.NoError(t, NewCSVWriter(nil).Write(&buf, rows, WriteOptions{BOMPrefix: bom}))

		parsed, err := dataprocessing.ParseCSV(&buf)
		require.NoError(t, err)
		assert.Equal(t, priceRecords(rows), parsed)
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestCSVWriter_WriteError(t *testing.T) {
	err := NewCSVWriter(nil).Write(failingWriter{}, testRows(), WriteOptions{})
	assert.Error(t, err)
}
