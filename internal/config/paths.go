package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Paths contains the resolved file system locations used by the application.
type Paths struct {
	WorkDir       string
	ExecutableDir string
	DataDir       string
	LogsDir       string

	// DefaultDataFile is the absolute path of the default price table.
	DefaultDataFile string
}

// GetPaths resolves the configured locations. Relative data paths are taken
// from the working directory, matching how the dashboard is usually started
// next to its cryptodata.csv.
func GetPaths(cfg *Config) (*Paths, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}

	exeDir := wd
	if exe, err := os.Executable(); err == nil {
		if resolved, err := filepath.EvalSymlinks(exe); err == nil {
			exeDir = filepath.Dir(resolved)
		}
	}

	abs := func(p string) string {
		if filepath.IsAbs(p) {
			return filepath.Clean(p)
		}
		return filepath.Join(wd, p)
	}

	dataDir := abs(cfg.Data.Dir)
	return &Paths{
		WorkDir:         wd,
		ExecutableDir:   exeDir,
		DataDir:         dataDir,
		LogsDir:         abs(filepath.Dir(cfg.Logging.FilePath)),
		DefaultDataFile: filepath.Join(dataDir, cfg.Data.DefaultFile),
	}, nil
}

// SearchDirs lists the directories searched for data files, most specific
// first, without duplicates.
func (p *Paths) SearchDirs() []string {
	seen := make(map[string]bool)
	var dirs []string
	for _, d := range []string{p.DataDir, p.WorkDir, p.ExecutableDir} {
		if d == "" || seen[d] {
			continue
		}
		seen[d] = true
		dirs = append(dirs, d)
	}
	return dirs
}

// EnsureDirectories creates the log directory when file logging needs it.
func (p *Paths) EnsureDirectories() error {
	if err := os.MkdirAll(p.LogsDir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", p.LogsDir, err)
	}
	return nil
}

// FileExists checks if a regular file exists
func FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// LogPathResolution logs the resolved locations for debugging
func (p *Paths) LogPathResolution(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("Path resolution summary",
		slog.Group("directories",
			slog.String("work", p.WorkDir),
			slog.String("executable", p.ExecutableDir),
			slog.String("data", p.DataDir),
			slog.String("logs", p.LogsDir),
		),
		slog.String("default_data_file", p.DefaultDataFile),
		slog.Bool("default_data_file_exists", FileExists(p.DefaultDataFile)))
}
