package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"

	"cryptodash/internal/config"
)

// statsProvider is the part of DashboardService the health checks read.
type statsProvider interface {
	Stats(ctx context.Context) ServiceStats
}

// HealthService provides health check functionality
type HealthService struct {
	version   string
	buildTime string
	buildID   string
	paths     *config.Paths
	dashboard statsProvider
	startTime time.Time
	logger    *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Runtime   map[string]interface{} `json:"runtime,omitempty"`
	Services  map[string]interface{} `json:"services,omitempty"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Uptime  string `json:"uptime,omitempty"`
}

// NewHealthService creates a health service. dashboard may be nil, in which
// case readiness reports the pipeline as not ready.
func NewHealthService(version, buildTime, buildID string, paths *config.Paths, dashboard statsProvider, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("HealthService initialized",
		slog.String("version", version),
		slog.String("build_time", buildTime),
		slog.String("build_id", buildID))

	return &HealthService{
		version:   version,
		buildTime: buildTime,
		buildID:   buildID,
		paths:     paths,
		dashboard: dashboard,
		startTime: time.Now(),
		logger:    logger,
	}
}

// HealthCheck returns overall health status
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	hs.logger.DebugContext(ctx, "HealthCheck: performing health check",
		slog.String("uptime", time.Since(hs.startTime).String()))

	return HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   hs.version,
	}
}

// ReadinessCheck returns readiness status. A missing default data file does
// not make the service unready: users can still upload a table.
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "ready",
		Timestamp: time.Now(),
		Version:   hs.version,
		Services:  make(map[string]interface{}),
	}

	status.Services["pipeline"] = hs.checkPipelineHealth(ctx)
	status.Services["data"] = hs.checkDataHealth()

	for _, service := range status.Services {
		if sh, ok := service.(ServiceHealth); ok && sh.Status != "ready" {
			status.Status = "not_ready"
			break
		}
	}

	return status
}

// LivenessCheck returns liveness status
func (hs *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    "alive",
		Timestamp: time.Now(),
		Version:   hs.version,
		Runtime: map[string]interface{}{
			"uptime":     time.Since(hs.startTime).Seconds(),
			"go_version": runtime.Version(),
			"goroutines": runtime.NumGoroutine(),
		},
	}
}

// Version returns version information
func (hs *HealthService) Version() map[string]interface{} {
	result := map[string]interface{}{
		"version":      hs.version,
		"go_version":   runtime.Version(),
		"os":           runtime.GOOS,
		"arch":         runtime.GOARCH,
		"uptime":       time.Since(hs.startTime).Seconds(),
		"start_time":   hs.startTime.Format(time.RFC3339),
		"current_time": time.Now().Format(time.RFC3339),
	}

	if hs.buildTime != "" {
		result["build_time"] = hs.buildTime
	}
	if hs.buildID != "" {
		result["build_id"] = hs.buildID
	}

	return result
}

// checkPipelineHealth reports cache and session state and which default
// source would serve the next pass.
func (hs *HealthService) checkPipelineHealth(ctx context.Context) ServiceHealth {
	if hs.dashboard == nil {
		return ServiceHealth{
			Status:  "not_ready",
			Message: "dashboard service not initialized",
		}
	}

	stats := hs.dashboard.Stats(ctx)
	source := stats.DefaultSource
	if source == "" {
		source = "none, waiting for upload"
	}
	return ServiceHealth{
		Status: "ready",
		Message: fmt.Sprintf("default source: %s; cached tables: %d; upload sessions: %d",
			source, stats.CachedTables, stats.UploadSessions),
		Uptime: time.Since(hs.startTime).String(),
	}
}

// checkDataHealth checks the data directory is readable
func (hs *HealthService) checkDataHealth() ServiceHealth {
	if hs.paths == nil {
		return ServiceHealth{Status: "ready", Message: "no data directory configured"}
	}

	dataDir := hs.paths.DataDir
	info, err := os.Stat(dataDir)
	if os.IsNotExist(err) {
		return ServiceHealth{
			Status:  "ready",
			Message: fmt.Sprintf("Data directory not found: %s", dataDir),
		}
	}
	if err != nil || !info.IsDir() {
		return ServiceHealth{
			Status:  "not_ready",
			Message: fmt.Sprintf("Data directory unusable: %s", dataDir),
		}
	}
	if _, err := os.ReadDir(dataDir); err != nil {
		return ServiceHealth{
			Status:  "not_ready",
			Message: fmt.Sprintf("Cannot read data directory: %v", err),
		}
	}

	return ServiceHealth{
		Status:  "ready",
		Message: "Data directory is readable",
	}
}
