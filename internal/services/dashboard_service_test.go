package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptodash/internal/config"
	"cryptodash/internal/exporter"
	"cryptodash/internal/shared/testutil"
	"cryptodash/pkg/contracts/domain"
)

func newTestService(t *testing.T, dir string, mutate ...func(*config.Config)) (*DashboardService, *testutil.BufferedSlogHandler) {
	t.Helper()
	cfg := config.Default()
	cfg.Data.Dir = dir
	for _, m := range mutate {
		m(cfg)
	}
	logger, handler := testutil.NewTestLogger(t)
	svc, err := NewDashboardService(cfg, &config.Paths{DataDir: dir}, nil, logger)
	require.NoError(t, err)
	return svc, handler
}

func sampleDir(t *testing.T) string {
	t.Helper()
	return filepath.Dir(testutil.WriteSampleCSV(t, "cryptodata.csv"))
}

func day(s string) time.Time {
	d, _ := time.Parse(domain.DateLayout, s)
	return d
}

func TestNewDashboardService_InvalidScope(t *testing.T) {
	cfg := config.Default()
	cfg.Pipeline.RollingScope = "weekly"
	_, err := NewDashboardService(cfg, &config.Paths{DataDir: t.TempDir()}, nil, slog.Default())
	require.Error(t, err)
}

func TestDashboardService_Dashboard_Defaults(t *testing.T) {
	svc, logs := newTestService(t, sampleDir(t))

	view, err := svc.Dashboard(context.Background(), SourceRef{}, domain.FilterSelection{})
	require.NoError(t, err)

	assert.Equal(t, "Loaded 6 price records • Latest: 2024-01-03", view.Banner)
	assert.Equal(t, []string{"BTC"}, view.Selection.Symbols, "first symbol is selected by default")
	assert.Equal(t, day("2024-01-01"), view.Selection.Range.Start)
	require.NotNil(t, view.Selection.Range.End)
	assert.Equal(t, day("2024-01-03"), *view.Selection.Range.End)

	assert.Equal(t, 3, view.RecordCount)
	require.Len(t, view.Cards, 1)
	assert.Equal(t, "BTC", view.Cards[0].Label)
	assert.Equal(t, "$43,218", view.Cards[0].Value)
	require.Len(t, view.Series, 1)
	assert.Len(t, view.Series[0].Candles, 3)
	require.Len(t, view.Table, 3)
	assert.Equal(t, "2024-01-03", view.Table[0].Date, "detail table is newest first")

	assert.Equal(t, "cryptodata.csv", view.Dataset.Source)
	assert.Equal(t, []string{"BTC", "ETH"}, view.Dataset.Symbols)

	testutil.AssertLogContains(t, logs, slog.LevelInfo, "dashboard pass completed")
	testutil.AssertNoErrors(t, logs)
}

func TestDashboardService_Dashboard_Selection(t *testing.T) {
	svc, _ := newTestService(t, sampleDir(t))
	end := day("2024-01-02")

	view, err := svc.Dashboard(context.Background(), SourceRef{}, domain.FilterSelection{
		Symbols: []string{"eth", "btc"},
		Range:   domain.DateRange{Start: day("2024-01-02"), End: &end},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, view.RecordCount)
	require.Len(t, view.Latest, 2)
	assert.Equal(t, "btc", view.Latest[0].Symbol)
	assert.Equal(t, "eth", view.Latest[1].Symbol)
	assert.Equal(t, "Loaded 6 price records • Latest: 2024-01-03", view.Banner, "banner covers the whole table")
}

func TestDashboardService_Dashboard_EmptyResult(t *testing.T) {
	svc, logs := newTestService(t, sampleDir(t))

	view, err := svc.Dashboard(context.Background(), SourceRef{}, domain.FilterSelection{Symbols: []string{"DOGE"}})
	require.ErrorIs(t, err, ErrEmptyResult)
	require.NotNil(t, view, "view keeps the filter context")
	assert.NotEmpty(t, view.Banner)
	assert.Equal(t, []string{"BTC", "ETH"}, view.Dataset.Symbols)
	assert.Empty(t, view.Cards)
	assert.Empty(t, view.Table)

	testutil.AssertLogContains(t, logs, slog.LevelWarn, "dashboard pass halted")
	assert.True(t, logs.ContainsAttr("outcome", "empty_result"))
}

func TestDashboardService_Dashboard_NoCoinsSelected(t *testing.T) {
	svc, _ := newTestService(t, sampleDir(t))

	view, err := svc.Dashboard(context.Background(), SourceRef{}, domain.FilterSelection{Symbols: []string{}})
	require.ErrorIs(t, err, ErrEmptyResult)
	require.NotNil(t, view)
	assert.Empty(t, view.Selection.Symbols)
}

func TestDashboardService_NoDataSource(t *testing.T) {
	svc, logs := newTestService(t, t.TempDir())

	_, err := svc.Dashboard(context.Background(), SourceRef{}, domain.FilterSelection{})
	require.ErrorIs(t, err, ErrNoDataSource)

	_, err = svc.Dataset(context.Background(), SourceRef{})
	require.ErrorIs(t, err, ErrNoDataSource)

	testutil.AssertLogContains(t, logs, slog.LevelWarn, "dashboard pass halted")
	testutil.AssertNoErrors(t, logs)
}

func TestDashboardService_MalformedFile(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "cryptodata.csv", "coin_id,symbol,date\nbitcoin,btc,2024-01-01\n")
	svc, logs := newTestService(t, dir)

	_, err := svc.Records(context.Background(), SourceRef{}, domain.FilterSelection{})
	require.ErrorIs(t, err, ErrMalformedInput)
	testutil.AssertLogContains(t, logs, slog.LevelError, "dashboard pass failed")
}

func TestDashboardService_Dataset(t *testing.T) {
	svc, _ := newTestService(t, sampleDir(t))

	result, err := svc.Dataset(context.Background(), SourceRef{})
	require.NoError(t, err)
	assert.Equal(t, 6, result.Dataset.RecordCount)
	assert.Equal(t, day("2024-01-01"), result.Dataset.MinDate)
	assert.Equal(t, day("2024-01-03"), result.Dataset.MaxDate)
	assert.Equal(t, []string{"BTC"}, result.DefaultSelection.Symbols)
}

func TestDashboardService_RecordsAndLatest(t *testing.T) {
	svc, _ := newTestService(t, sampleDir(t))
	ctx := context.Background()
	sel := domain.FilterSelection{Symbols: []string{"BTC", "ETH"}}

	rows, err := svc.Records(ctx, SourceRef{}, sel)
	require.NoError(t, err)
	require.Len(t, rows, 6)
	for i := 1; i < len(rows); i++ {
		assert.False(t, rows[i].Date.Before(rows[i-1].Date), "rows stay in date order")
	}

	latest, err := svc.Latest(ctx, SourceRef{}, sel)
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, 43218.0, latest[0].Close)
	assert.Equal(t, 2344.16, latest[1].Close)
}

func TestDashboardService_CachesBySourceIdentity(t *testing.T) {
	dir := sampleDir(t)
	svc, _ := newTestService(t, dir)
	ctx := context.Background()

	_, err := svc.Dataset(ctx, SourceRef{})
	require.NoError(t, err)
	_, err = svc.Dataset(ctx, SourceRef{})
	require.NoError(t, err)
	assert.Equal(t, 1, svc.cache.Len())

	// Rewriting the file changes size and mtime, so it is read again.
	rows := append(testutil.SampleRows(), testutil.Row("solana", "sol", "2024-01-03", 101))
	path := testutil.WriteFile(t, dir, "cryptodata.csv", testutil.PriceCSV(rows...))
	later := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, later, later))

	result, err := svc.Dataset(ctx, SourceRef{})
	require.NoError(t, err)
	assert.Equal(t, 7, result.Dataset.RecordCount)
	assert.Equal(t, 1, svc.cache.Len(), "the previous version of the file is dropped")

	assert.Equal(t, 1, svc.Refresh(ctx))
	assert.Equal(t, 0, svc.cache.Len())
}

func TestDashboardService_EditedFileKeepsOneTable(t *testing.T) {
	dir := sampleDir(t)
	svc, _ := newTestService(t, dir)
	ctx := context.Background()

	rows := testutil.SampleRows()
	for i := 0; i < 5; i++ {
		rows = append(rows, testutil.Row("solana", "sol", "2024-01-03", float64(100+i)))
		path := testutil.WriteFile(t, dir, "cryptodata.csv", testutil.PriceCSV(rows...))
		stamp := time.Now().Add(time.Duration(i+1) * time.Minute)
		require.NoError(t, os.Chtimes(path, stamp, stamp))

		_, err := svc.Dashboard(ctx, SourceRef{}, domain.FilterSelection{})
		require.NoError(t, err)
		assert.Equal(t, 1, svc.Stats(ctx).CachedTables)
	}
}

func TestDashboardService_Invalidate(t *testing.T) {
	svc, _ := newTestService(t, sampleDir(t))
	ctx := context.Background()

	_, err := svc.Dataset(ctx, SourceRef{})
	require.NoError(t, err)

	key, _, ok := svc.chain[0].resolve(ctx)
	require.True(t, ok)
	assert.True(t, svc.Invalidate(key))
	assert.False(t, svc.Invalidate(key))
}

func TestDashboardService_Upload(t *testing.T) {
	svc, _ := newTestService(t, t.TempDir())
	ctx := context.Background()

	resp, err := svc.Upload(ctx, "mine.csv", strings.NewReader(testutil.PriceCSV(
		testutil.Row("dogecoin", "doge", "2024-02-01", 0.08),
		testutil.Row("dogecoin", "doge", "2024-02-02", 0.09),
	)))
	require.NoError(t, err)
	assert.NotEmpty(t, resp.SessionID)
	assert.Equal(t, "mine.csv", resp.Filename)
	assert.Equal(t, 2, resp.RecordCount)

	view, err := svc.Dashboard(ctx, SourceRef{SessionID: resp.SessionID}, domain.FilterSelection{})
	require.NoError(t, err)
	assert.Equal(t, []string{"DOGE"}, view.Selection.Symbols)
	assert.Equal(t, "mine.csv", view.Dataset.Source)

	// The default chain is unaffected by the session.
	_, err = svc.Dashboard(ctx, SourceRef{}, domain.FilterSelection{})
	require.ErrorIs(t, err, ErrNoDataSource)

	other, err := svc.Upload(ctx, "other.csv", strings.NewReader(testutil.PriceCSV(testutil.SampleRows()...)))
	require.NoError(t, err)
	assert.NotEqual(t, resp.SessionID, other.SessionID)

	result, err := svc.Dataset(ctx, SourceRef{SessionID: other.SessionID})
	require.NoError(t, err)
	assert.Equal(t, 6, result.Dataset.RecordCount)
	assert.Equal(t, 2, svc.Stats(ctx).UploadSessions)
}

func TestDashboardService_UploadErrors(t *testing.T) {
	svc, _ := newTestService(t, t.TempDir())
	ctx := context.Background()

	_, err := svc.Upload(ctx, "empty.csv", strings.NewReader(testutil.PriceHeader+"\n"))
	require.ErrorIs(t, err, ErrMalformedInput)

	_, err = svc.Upload(ctx, "bad.csv", strings.NewReader("symbol,close\nbtc,1\n"))
	require.ErrorIs(t, err, ErrMalformedInput)

	_, err = svc.Records(ctx, SourceRef{SessionID: "3f2a0c4e-6c1d-4b53-9f0a-1f5b6f7a8b9c"}, domain.FilterSelection{})
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestDashboardService_Export(t *testing.T) {
	svc, _ := newTestService(t, sampleDir(t))
	ctx := context.Background()
	sel := domain.FilterSelection{Symbols: []string{"ETH"}}

	var buf bytes.Buffer
	n, err := svc.Export(ctx, SourceRef{}, sel, exporter.FormatCSV, &buf)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	lines, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, lines, 4)
	assert.Equal(t, exporter.Columns, lines[0])
	assert.Equal(t, "eth", lines[1][1])

	buf.Reset()
	n, err = svc.Export(ctx, SourceRef{}, sel, exporter.FormatXLSX, &buf)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("PK")), "xlsx is a zip archive")

	_, err = svc.Export(ctx, SourceRef{}, sel, exporter.Format("pdf"), &buf)
	require.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestDashboardService_RemoteSource(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		_, _ = w.Write([]byte(testutil.PriceCSV(testutil.SampleRows()...)))
	}))
	defer server.Close()

	svc, _ := newTestService(t, t.TempDir(), func(c *config.Config) {
		c.Data.RemoteURL = server.URL + "/prices.csv"
		c.Data.RemoteTimeout = 5 * time.Second
	})

	result, err := svc.Dataset(context.Background(), SourceRef{})
	require.NoError(t, err)
	assert.Equal(t, server.URL+"/prices.csv", result.Dataset.Source)
	assert.Equal(t, "remote", svc.Stats(context.Background()).DefaultSource)
}

func TestDashboardService_RemoteSourceDown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	svc, logs := newTestService(t, t.TempDir(), func(c *config.Config) {
		c.Data.RemoteURL = server.URL
		c.Data.RemoteTimeout = 5 * time.Second
	})

	_, err := svc.Dataset(context.Background(), SourceRef{})
	require.ErrorIs(t, err, ErrNoDataSource)
	testutil.AssertLogContains(t, logs, slog.LevelWarn, "data source unavailable")
	assert.Equal(t, 0, svc.cache.Len(), "failed loads are not cached")
}

func TestDashboardService_FilePreferredOverRemote(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer server.Close()

	svc, _ := newTestService(t, sampleDir(t), func(c *config.Config) {
		c.Data.RemoteURL = server.URL
	})

	result, err := svc.Dataset(context.Background(), SourceRef{})
	require.NoError(t, err)
	assert.Equal(t, "cryptodata.csv", result.Dataset.Source)
	assert.Zero(t, hits.Load())
}

func TestOutcome(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{ErrNoDataSource, "no_data_source"},
		{ErrSessionNotFound, "session_not_found"},
		{ErrEmptyResult, "empty_result"},
		{ErrMalformedInput, "malformed_input"},
		{os.ErrPermission, "error"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, outcome(tt.err))
		})
	}
}
