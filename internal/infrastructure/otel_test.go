package infrastructure

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// TestOTelInitialization tests OpenTelemetry initialization
func TestOTelInitialization(t *testing.T) {
	logger := NewLogger(io.Discard, "error")

	providers, err := InitializeOTel(nil, logger)
	require.NoError(t, err)
	require.NotNil(t, providers)

	// Default config keeps tracing off
	assert.Nil(t, providers.TracerProvider)
	assert.NotNil(t, providers.Tracer)

	assert.NotNil(t, providers.MeterProvider)
	assert.NotNil(t, providers.Meter)
	assert.NotNil(t, providers.PrometheusHTTP)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, providers.Shutdown(ctx))
}

func TestOTelConfiguration(t *testing.T) {
	tests := []struct {
		name        string
		cfg         *OTelConfig
		wantErr     bool
		wantTracing bool
		wantMetrics bool
	}{
		{
			name:        "stdout tracing with metrics",
			cfg:         &OTelConfig{ServiceName: "test", ServiceVersion: "1.0.0", Environment: "test", TraceExporter: "stdout", EnableMetrics: true, SampleRatio: 1},
			wantTracing: true,
			wantMetrics: true,
		},
		{
			name: "everything disabled",
			cfg:  &OTelConfig{ServiceName: "test", ServiceVersion: "1.0.0", Environment: "test", TraceExporter: "none"},
		},
		{
			name:    "unknown exporter",
			cfg:     &OTelConfig{ServiceName: "test", TraceExporter: "jaeger"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			providers, err := InitializeOTel(tt.cfg, NewLogger(io.Discard, "error"))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			defer providers.Shutdown(context.Background())

			assert.Equal(t, tt.wantTracing, providers.TracerProvider != nil)
			assert.Equal(t, tt.wantMetrics, providers.MeterProvider != nil)
			assert.Equal(t, tt.wantMetrics, providers.PrometheusHTTP != nil)
		})
	}
}

// Two initializations must not collide on a shared Prometheus registry.
func TestOTelInitialization_Repeatable(t *testing.T) {
	for i := 0; i < 2; i++ {
		providers, err := InitializeOTel(DefaultOTelConfig(), NewLogger(io.Discard, "error"))
		require.NoError(t, err)
		require.NoError(t, providers.Shutdown(context.Background()))
	}
}

func TestBusinessMetrics(t *testing.T) {
	providers, err := InitializeOTel(DefaultOTelConfig(), NewLogger(io.Discard, "error"))
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	metrics, err := CreateBusinessMetrics(providers.Meter)
	require.NoError(t, err)
	require.NotNil(t, metrics)

	ctx := context.Background()
	metrics.HTTPRequestsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("method", "GET")))
	metrics.DatasetCacheHits.Add(ctx, 2)
	metrics.DatasetCacheMisses.Add(ctx, 1)
	metrics.DatasetRecordsLoaded.Record(ctx, 42)
	RecordDashboardPass(ctx, metrics, "dashboard", "ok", 15*time.Millisecond, 42)

	rec := httptest.NewRecorder()
	providers.PrometheusHTTP.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	text := string(body)
	assert.Contains(t, text, "dashboard_passes_total")
	assert.Contains(t, text, "dataset_cache_hits_total")
	assert.Contains(t, text, "dataset_records_loaded")
	assert.Contains(t, text, "go_goroutines")
}

func TestNoopBusinessMetrics(t *testing.T) {
	metrics := NoopBusinessMetrics()
	require.NotNil(t, metrics)

	assert.NotPanics(t, func() {
		RecordDashboardPass(context.Background(), metrics, "dashboard", "empty", time.Millisecond, 0)
		RecordDashboardPass(context.Background(), nil, "dashboard", "ok", time.Millisecond, 0)
	})
}

func TestTraceCorrelation(t *testing.T) {
	cfg := DefaultOTelConfig()
	cfg.TraceExporter = "stdout"
	cfg.EnableMetrics = false
	providers, err := InitializeOTel(cfg, NewLogger(io.Discard, "error"))
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	assert.Empty(t, TraceIDFromContext(context.Background()))

	ctx, span := providers.Tracer.Start(context.Background(), "load-dataset")
	defer span.End()

	traceID := TraceIDFromContext(ctx)
	assert.Len(t, traceID, 32)

	assert.NotPanics(t, func() {
		RecordError(ctx, assert.AnError)
		RecordError(ctx, nil)
		RecordError(context.Background(), assert.AnError)
	})
}
