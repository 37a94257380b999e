package services

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"cryptodash/internal/config"
	"cryptodash/internal/dataprocessing"
	apierrors "cryptodash/internal/errors"
	"cryptodash/internal/exporter"
	"cryptodash/internal/files"
	"cryptodash/internal/infrastructure"
	api "cryptodash/pkg/contracts/api/v1"
	"cryptodash/pkg/contracts/domain"
)

// SourceRef addresses the table a pass runs on. An empty SessionID means the
// default chain: the local file, then the remote URL.
type SourceRef struct {
	SessionID string
}

// DatasetResult describes the loaded table and the selection a first visit
// starts with.
type DatasetResult struct {
	Dataset          domain.DatasetInfo     `json:"dataset"`
	DefaultSelection domain.FilterSelection `json:"default_selection"`
}

// DashboardService runs the dashboard pipeline: load, derive, filter,
// aggregate and build views. Nothing is shared between passes except the
// immutable cached tables.
type DashboardService struct {
	chain     []source
	cache     *DatasetCache
	sessions  *SessionStore
	deriver   *dataprocessing.Deriver
	cardLimit int
	csv       *exporter.CSVWriter
	xlsx      *exporter.XLSXWriter
	metrics   *infrastructure.BusinessMetrics
	tracer    trace.Tracer
	logger    *slog.Logger
}

// NewDashboardService wires the pipeline from configuration. metrics may be nil.
func NewDashboardService(cfg *config.Config, paths *config.Paths, metrics *infrastructure.BusinessMetrics, logger *slog.Logger) (*DashboardService, error) {
	if metrics == nil {
		metrics = infrastructure.NoopBusinessMetrics()
	}
	logger = infrastructure.WithComponent(logger, "dashboard_service")

	scope, err := dataprocessing.ParseRollingScope(cfg.Pipeline.RollingScope)
	if err != nil {
		return nil, apierrors.NewConfigError("invalid pipeline configuration", err)
	}

	discovery := files.NewDiscovery(paths.SearchDirs()...)
	chain := []source{newFileSource(discovery, cfg.Data.DefaultFile, logger)}
	if cfg.Data.RemoteURL != "" {
		chain = append(chain, newRemoteSource(cfg.Data.RemoteURL, cfg.Data.RemoteTimeout, logger))
	}

	logger.Info("DashboardService initialized",
		slog.String("default_file", cfg.Data.DefaultFile),
		slog.Any("search_dirs", paths.SearchDirs()),
		slog.Bool("remote_enabled", cfg.Data.RemoteURL != ""),
		slog.String("rolling_scope", string(scope)),
		slog.Int("volatility_window", cfg.Pipeline.VolatilityWindow))

	return &DashboardService{
		chain:    chain,
		cache:    NewDatasetCache(metrics, logger),
		sessions: NewSessionStore(cfg.Data.SessionTTL, cfg.Data.MaxSessions, metrics, logger),
		deriver: dataprocessing.NewDeriver(logger, dataprocessing.DeriverConfig{
			Scope:            scope,
			VolatilityWindow: cfg.Pipeline.VolatilityWindow,
		}),
		cardLimit: cfg.Pipeline.CardLimit,
		csv:       exporter.NewCSVWriter(logger),
		xlsx:      exporter.NewXLSXWriter(logger),
		metrics:   metrics,
		tracer:    otel.Tracer(infrastructure.MeterName),
		logger:    logger,
	}, nil
}

// pass holds the intermediate tables of one pipeline run.
type pass struct {
	snapshot  *Snapshot
	derived   []domain.DerivedRecord
	selection domain.FilterSelection
	rows      []domain.DerivedRecord
}

// Dataset loads and derives the table without filtering.
func (s *DashboardService) Dataset(ctx context.Context, src SourceRef) (result *DatasetResult, err error) {
	ctx, done := s.begin(ctx, "dataset", src)
	var records int
	defer func() { done(records, domain.FilterSelection{}, err) }()

	snap, err := s.load(ctx, src)
	if err != nil {
		return nil, err
	}
	derived := s.deriver.Derive(snap.Records)
	records = len(derived)

	return &DatasetResult{
		Dataset:          datasetInfo(snap, derived),
		DefaultSelection: dataprocessing.DefaultSelection(derived),
	}, nil
}

// Dashboard runs a full pass. When the selection matches nothing the
// returned view still carries the banner, dataset and effective selection
// alongside ErrEmptyResult, so callers can redraw the filter controls.
func (s *DashboardService) Dashboard(ctx context.Context, src SourceRef, sel domain.FilterSelection) (view *domain.DashboardView, err error) {
	ctx, done := s.begin(ctx, "dashboard", src)
	var p *pass
	defer func() { done(passRows(p), passSelection(p, sel), err) }()

	p, err = s.run(ctx, src, sel)
	if p == nil {
		return nil, err
	}

	view = &domain.DashboardView{
		Banner:    dataprocessing.Banner(p.derived),
		Dataset:   datasetInfo(p.snapshot, p.derived),
		Selection: p.selection,
	}
	if err != nil {
		return view, err
	}

	latest := dataprocessing.Latest(p.rows)
	view.RecordCount = len(p.rows)
	view.Cards = dataprocessing.MetricCards(latest, s.cardLimit)
	view.Latest = latest
	view.Series = dataprocessing.Series(p.rows)
	view.Table = dataprocessing.DetailTable(p.rows)
	return view, nil
}

// Records returns the filtered derived rows in date order.
func (s *DashboardService) Records(ctx context.Context, src SourceRef, sel domain.FilterSelection) (rows []domain.DerivedRecord, err error) {
	ctx, done := s.begin(ctx, "records", src)
	var p *pass
	defer func() { done(passRows(p), passSelection(p, sel), err) }()

	p, err = s.run(ctx, src, sel)
	if err != nil {
		return nil, err
	}
	return p.rows, nil
}

// Latest returns the last row of every coin in the selection, ordered by
// symbol. Unlike the metric cards it is not truncated.
func (s *DashboardService) Latest(ctx context.Context, src SourceRef, sel domain.FilterSelection) (latest []domain.DerivedRecord, err error) {
	ctx, done := s.begin(ctx, "latest", src)
	var p *pass
	defer func() { done(passRows(p), passSelection(p, sel), err) }()

	p, err = s.run(ctx, src, sel)
	if err != nil {
		return nil, err
	}
	return dataprocessing.Latest(p.rows), nil
}

// Export writes the filtered rows to w in the given format and returns the
// number of rows written.
func (s *DashboardService) Export(ctx context.Context, src SourceRef, sel domain.FilterSelection, format exporter.Format, w io.Writer) (n int, err error) {
	ctx, done := s.begin(ctx, "export", src)
	var p *pass
	defer func() { done(passRows(p), passSelection(p, sel), err) }()

	if format != exporter.FormatCSV && format != exporter.FormatXLSX {
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	p, err = s.run(ctx, src, sel)
	if err != nil {
		return 0, err
	}

	switch format {
	case exporter.FormatXLSX:
		err = s.xlsx.Write(w, p.rows)
	default:
		err = s.csv.Write(w, p.rows, exporter.WriteOptions{})
	}
	if err != nil {
		return 0, fmt.Errorf("failed to write %s export: %w", format, err)
	}
	return len(p.rows), nil
}

// Upload parses a user supplied table and stores it in a new session.
func (s *DashboardService) Upload(ctx context.Context, filename string, r io.Reader) (resp *api.UploadResponse, err error) {
	ctx, done := s.begin(ctx, "upload", SourceRef{})
	var records int
	defer func() { done(records, domain.FilterSelection{}, err) }()

	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	sum := sha256.Sum256(content)
	digest := hex.EncodeToString(sum[:])

	parsed, err := dataprocessing.Parse(bytes.NewReader(content), dataprocessing.DetectFormat(filename))
	if err != nil {
		return nil, err
	}
	if len(parsed) == 0 {
		return nil, fmt.Errorf("%w: table has no rows", ErrMalformedInput)
	}
	records = len(parsed)

	id := s.sessions.Put(ctx, filename, digest, &Snapshot{
		Source:   filename,
		Records:  parsed,
		LoadedAt: time.Now(),
	})
	return &api.UploadResponse{
		SessionID:   id,
		Filename:    filename,
		RecordCount: len(parsed),
	}, nil
}

// Invalidate drops one cached table by key.
func (s *DashboardService) Invalidate(key string) bool {
	return s.cache.Invalidate(key)
}

// Refresh drops every cached default-chain table so the next pass reads the
// file or remote URL again. Upload sessions are untouched.
func (s *DashboardService) Refresh(ctx context.Context) int {
	n := s.cache.InvalidatePrefix(keyPrefixFile) + s.cache.InvalidatePrefix(keyPrefixRemote)
	expired := s.sessions.Sweep(ctx)
	s.logger.InfoContext(ctx, "dataset cache refreshed",
		slog.Int("dropped", n),
		slog.Int("expired_sessions", expired))
	return n
}

// load returns the snapshot for src: the session table, or the first
// available link of the default chain.
func (s *DashboardService) load(ctx context.Context, src SourceRef) (*Snapshot, error) {
	if src.SessionID != "" {
		return s.sessions.Get(ctx, src.SessionID)
	}

	var failures []error
	for _, link := range s.chain {
		key, slot, ok := link.resolve(ctx)
		if !ok {
			continue
		}
		snap, err := s.cache.GetVersion(ctx, slot, key, link.load)
		if err == nil {
			return snap, nil
		}

		var appErr *apierrors.AppError
		if errors.As(err, &appErr) && appErr.Type == apierrors.ErrTypeNetwork {
			s.logger.WarnContext(ctx, "data source unavailable",
				slog.String("source", link.name()),
				slog.String("error", err.Error()))
			failures = append(failures, err)
			continue
		}
		return nil, err
	}

	if len(failures) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrNoDataSource, errors.Join(failures...))
	}
	return nil, ErrNoDataSource
}

// run performs load, derive and filter. On ErrEmptyResult the pass is
// returned too, without rows.
func (s *DashboardService) run(ctx context.Context, src SourceRef, requested domain.FilterSelection) (*pass, error) {
	snap, err := s.load(ctx, src)
	if err != nil {
		return nil, err
	}

	derived := s.deriver.Derive(snap.Records)
	p := &pass{
		snapshot:  snap,
		derived:   derived,
		selection: dataprocessing.ResolveSelection(derived, requested),
	}

	p.rows, err = dataprocessing.Filter(derived, p.selection)
	if err != nil {
		return p, err
	}
	return p, nil
}

// begin starts the span for one pass and returns a function that logs and
// records its outcome.
func (s *DashboardService) begin(ctx context.Context, operation string, src SourceRef) (context.Context, func(int, domain.FilterSelection, error)) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "dashboard."+operation,
		trace.WithAttributes(
			attribute.String("dashboard.operation", operation),
			attribute.Bool("dashboard.session", src.SessionID != ""),
		))
	logger := infrastructure.LoggerFromContext(ctx, s.logger)

	return ctx, func(records int, sel domain.FilterSelection, err error) {
		defer span.End()
		result := outcome(err)
		duration := time.Since(start)
		infrastructure.RecordDashboardPass(ctx, s.metrics, operation, result, duration, records)

		attrs := []slog.Attr{
			slog.String("operation", operation),
			slog.String("outcome", result),
			slog.Int("records", records),
			slog.String("symbols", strings.Join(sel.Symbols, ",")),
			slog.Duration("duration", duration),
		}
		if src.SessionID != "" {
			attrs = append(attrs, slog.String("session_id", src.SessionID))
		}
		if sel.Range.End != nil || !sel.Range.Start.IsZero() {
			attrs = append(attrs, slog.String("range", formatRange(sel.Range)))
		}

		switch result {
		case "ok":
			logger.LogAttrs(ctx, slog.LevelInfo, "dashboard pass completed", attrs...)
		case "no_data_source", "empty_result", "session_not_found":
			logger.LogAttrs(ctx, slog.LevelWarn, "dashboard pass halted", append(attrs, slog.String("reason", err.Error()))...)
		default:
			infrastructure.RecordError(ctx, err)
			infrastructure.WithError(logger, err).LogAttrs(ctx, slog.LevelError, "dashboard pass failed", attrs...)
		}
	}
}

func datasetInfo(snap *Snapshot, derived []domain.DerivedRecord) domain.DatasetInfo {
	info := domain.DatasetInfo{
		Source:      snap.Source,
		RecordCount: len(derived),
		Symbols:     dataprocessing.Symbols(derived),
		LoadedAt:    snap.LoadedAt,
	}
	if min, max, ok := dataprocessing.DateSpan(derived); ok {
		info.MinDate, info.MaxDate = min, max
	}
	return info
}

func formatRange(r domain.DateRange) string {
	start := r.Start.Format(domain.DateLayout)
	if r.End == nil {
		return start + ".."
	}
	return start + ".." + r.End.Format(domain.DateLayout)
}

func passRows(p *pass) int {
	if p == nil {
		return 0
	}
	return len(p.rows)
}

func passSelection(p *pass, requested domain.FilterSelection) domain.FilterSelection {
	if p == nil {
		return requested
	}
	return p.selection
}

// Stats reports cache and session occupancy.
func (s *DashboardService) Stats(ctx context.Context) ServiceStats {
	stats := ServiceStats{
		CachedTables:   s.cache.Len(),
		UploadSessions: s.sessions.Len(),
	}
	for _, link := range s.chain {
		if _, _, ok := link.resolve(ctx); ok {
			stats.DefaultSource = link.name()
			break
		}
	}
	return stats
}

// ServiceStats is a point-in-time view of the service state.
type ServiceStats struct {
	CachedTables   int    `json:"cached_tables"`
	UploadSessions int    `json:"upload_sessions"`
	DefaultSource  string `json:"default_source,omitempty"`
}
