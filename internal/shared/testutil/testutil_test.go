package testutil

import (
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferedSlogHandler(t *testing.T) {
	t.Run("captures records and inherited attrs", func(t *testing.T) {
		logger, handler := NewTestLogger(t)

		logger.Info("loaded", slog.Int("records", 3))
		logger.With("component", "loader").Error("failed")

		assert.Equal(t, 2, handler.Count())
		assert.True(t, handler.ContainsMessage("loaded"))
		assert.True(t, handler.ContainsAttr("records", int64(3)))
		assert.True(t, handler.ContainsAttr("component", "loader"))
		assert.Len(t, handler.GetRecordsByLevel(slog.LevelError), 1)
		AssertLogContains(t, handler, slog.LevelError, "fail")
	})
}

func TestPriceCSV(t *testing.T) {
	text := PriceCSV(Row("bitcoin", "btc", "2024-01-01", 100))
	lines := strings.Split(strings.TrimSpace(text), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, PriceHeader, lines[0])
	assert.Equal(t, "bitcoin,btc,2024-01-01 00:00:00,2024-01-01,100,101,99,100", lines[1])
}

func TestWriteSampleCSV(t *testing.T) {
	path := WriteSampleCSV(t, "prices.csv")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, len(SampleRows())+1, strings.Count(string(data), "\n"))
}
