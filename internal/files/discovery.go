package files

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// ErrNotFound is returned when no candidate data file exists.
var ErrNotFound = errors.New("data file not found")

// dataExtensions are the table formats the loader understands.
var dataExtensions = []string{".csv", ".xlsx"}

// FileInfo represents information about a discovered file
type FileInfo struct {
	Path    string
	Name    string
	Size    int64
	ModTime time.Time
}

// Discovery finds price tables on disk. Directories are searched in order.
type Discovery struct {
	dirs []string
}

// NewDiscovery creates a discovery over dirs, most specific first.
func NewDiscovery(dirs ...string) *Discovery {
	return &Discovery{dirs: dirs}
}

// Locate returns the path of name in the first directory that has it. An
// absolute name is checked as-is.
func (d *Discovery) Locate(name string) (string, error) {
	if filepath.IsAbs(name) {
		if isRegular(name) {
			return name, nil
		}
		return "", fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	for _, dir := range d.dirs {
		candidate := filepath.Join(dir, name)
		if isRegular(candidate) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: %s (searched %s)", ErrNotFound, name, strings.Join(d.dirs, ", "))
}

// FindDataFiles lists CSV and XLSX files across all search directories,
// newest first. Unreadable directories are skipped.
func (d *Discovery) FindDataFiles() []FileInfo {
	seen := make(map[string]bool)
	var files []FileInfo

	for _, dir := range d.dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() || !IsDataFile(entry.Name()) {
				continue
			}
			path := filepath.Join(dir, entry.Name())
			if seen[path] {
				continue
			}
			info, err := entry.Info()
			if err != nil {
				continue
			}
			seen[path] = true
			files = append(files, FileInfo{
				Path:    path,
				Name:    entry.Name(),
				Size:    info.Size(),
				ModTime: info.ModTime(),
			})
		}
	}

	sort.SliceStable(files, func(i, j int) bool {
		return files[i].ModTime.After(files[j].ModTime)
	})
	return files
}

// IsDataFile reports whether name has a supported table extension.
func IsDataFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range dataExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// Stat returns FileInfo for a single path.
func Stat(path string) (FileInfo, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileInfo{}, err
	}
	if info.IsDir() {
		return FileInfo{}, fmt.Errorf("%s is a directory", path)
	}
	return FileInfo{
		Path:    path,
		Name:    info.Name(),
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

func isRegular(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
