package services

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptodash/internal/config"
)

type stubStats struct{ stats ServiceStats }

func (s stubStats) Stats(context.Context) ServiceStats { return s.stats }

func TestHealthService_HealthAndLiveness(t *testing.T) {
	hs := NewHealthService("1.2.3", "", "", nil, nil, nil)
	ctx := context.Background()

	health := hs.HealthCheck(ctx)
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, "1.2.3", health.Version)

	live := hs.LivenessCheck(ctx)
	assert.Equal(t, "alive", live.Status)
	assert.Contains(t, live.Runtime, "goroutines")
}

func TestHealthService_Readiness(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name      string
		paths     *config.Paths
		dashboard statsProvider
		want      string
	}{
		{"ready with default source", &config.Paths{DataDir: dir}, stubStats{ServiceStats{DefaultSource: "file"}}, "ready"},
		{"ready waiting for upload", &config.Paths{DataDir: dir}, stubStats{}, "ready"},
		{"missing data dir is tolerated", &config.Paths{DataDir: filepath.Join(dir, "absent")}, stubStats{}, "ready"},
		{"no dashboard service", &config.Paths{DataDir: dir}, nil, "not_ready"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hs := NewHealthService("1.0.0", "", "", tt.paths, tt.dashboard, nil)
			status := hs.ReadinessCheck(context.Background())
			assert.Equal(t, tt.want, status.Status)
			require.Contains(t, status.Services, "pipeline")
			require.Contains(t, status.Services, "data")
		})
	}
}

func TestHealthService_ReadinessMessage(t *testing.T) {
	hs := NewHealthService("1.0.0", "", "", nil, stubStats{ServiceStats{CachedTables: 2, UploadSessions: 1}}, nil)
	status := hs.ReadinessCheck(context.Background())

	pipeline := status.Services["pipeline"].(ServiceHealth)
	assert.Contains(t, pipeline.Message, "waiting for upload")
	assert.Contains(t, pipeline.Message, "cached tables: 2")
}

func TestHealthService_Version(t *testing.T) {
	hs := NewHealthService("1.0.0", "2024-01-01T00:00:00Z", "abc", nil, nil, nil)
	info := hs.Version()
	assert.Equal(t, "1.0.0", info["version"])
	assert.Equal(t, "2024-01-01T00:00:00Z", info["build_time"])
	assert.Equal(t, "abc", info["build_id"])

	bare := NewHealthService("1.0.0", "", "", nil, nil, nil).Version()
	assert.NotContains(t, bare, "build_time")
}
