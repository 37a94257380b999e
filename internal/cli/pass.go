package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"cryptodash/internal/config"
	"cryptodash/internal/files"
	"cryptodash/internal/infrastructure"
	"cryptodash/internal/services"
	"cryptodash/pkg/contracts/domain"
)

// passFlags are the source and filter flags shared by summary and export.
type passFlags struct {
	file    string
	symbols []string
	start   string
	end     string
}

// selection converts the filter flags. Dates use YYYY-MM-DD.
func (f passFlags) selection() (domain.FilterSelection, error) {
	var sel domain.FilterSelection
	for _, s := range f.symbols {
		if s = strings.TrimSpace(s); s != "" {
			sel.Symbols = append(sel.Symbols, s)
		}
	}

	if f.start != "" {
		start, err := time.Parse(domain.DateLayout, f.start)
		if err != nil {
			return sel, fmt.Errorf("invalid --start %q, use YYYY-MM-DD", f.start)
		}
		sel.Range.Start = start
	}
	if f.end != "" {
		end, err := time.Parse(domain.DateLayout, f.end)
		if err != nil {
			return sel, fmt.Errorf("invalid --end %q, use YYYY-MM-DD", f.end)
		}
		if !sel.Range.Start.IsZero() && end.Before(sel.Range.Start) {
			return sel, fmt.Errorf("--end must not be before --start")
		}
		sel.Range.End = &end
	}
	return sel, nil
}

// openSource builds a dashboard service for the command and picks the table
// it reads. --file replaces the configured default file. When nothing is
// found and stdin is a terminal, the user is asked for a file, which is then
// loaded as an upload session.
func (e *env) openSource(ctx context.Context, file string) (*services.DashboardService, services.SourceRef, error) {
	cfg := *e.cfg
	if file != "" {
		abs, err := filepath.Abs(file)
		if err != nil {
			return nil, services.SourceRef{}, err
		}
		cfg.Data.DefaultFile = abs
		cfg.Data.RemoteURL = ""
	}

	paths, err := config.GetPaths(&cfg)
	if err != nil {
		return nil, services.SourceRef{}, err
	}

	svc, err := services.NewDashboardService(&cfg, paths, infrastructure.NoopBusinessMetrics(), e.logger)
	if err != nil {
		return nil, services.SourceRef{}, err
	}

	_, err = svc.Dataset(ctx, services.SourceRef{})
	switch {
	case err == nil:
		return svc, services.SourceRef{}, nil
	case !errors.Is(err, services.ErrNoDataSource) || file != "" || !isTerminal(e.in):
		return nil, services.SourceRef{}, err
	}

	candidates := files.NewDiscovery(paths.SearchDirs()...).FindDataFiles()
	path, err := askDataFile(candidates)
	if err != nil {
		return nil, services.SourceRef{}, fmt.Errorf("no data file selected: %w", err)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, services.SourceRef{}, err
	}
	defer f.Close()

	resp, err := svc.Upload(ctx, filepath.Base(path), f)
	if err != nil {
		return nil, services.SourceRef{}, err
	}
	e.logger.InfoContext(ctx, "loaded prompted data file",
		slog.String("path", path),
		slog.Int("records", resp.RecordCount))
	return svc, services.SourceRef{SessionID: resp.SessionID}, nil
}

func addPassFlags(cmd *cobra.Command, f *passFlags) {
	flags := cmd.Flags()
	flags.StringVar(&f.file, "file", "", "Price table to load instead of the configured default")
	flags.StringSliceVar(&f.symbols, "symbols", nil, "Comma-separated symbols, e.g. BTC,ETH (default: dataset default)")
	flags.StringVar(&f.start, "start", "", "First date, YYYY-MM-DD")
	flags.StringVar(&f.end, "end", "", "Last date, YYYY-MM-DD")
}
