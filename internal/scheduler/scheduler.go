package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"cryptodash/internal/infrastructure"
)

// Refresher drops cached tables so the next pass reloads them.
type Refresher interface {
	Refresh(ctx context.Context) int
}

// Scheduler runs the periodic dataset refresh.
type Scheduler struct {
	cron      *cron.Cron
	refresher Refresher
	metrics   *infrastructure.BusinessMetrics
	logger    *slog.Logger

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	entry   cron.EntryID
	running bool
}

// New creates a scheduler. Nothing runs until Register and Start are called.
func New(refresher Refresher, metrics *infrastructure.BusinessMetrics, logger *slog.Logger) *Scheduler {
	if metrics == nil {
		metrics = infrastructure.NoopBusinessMetrics()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:      cron.New(),
		refresher: refresher,
		metrics:   metrics,
		logger:    infrastructure.WithComponent(logger, "scheduler"),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Register schedules the refresh on a standard five-field cron spec. An empty
// spec leaves the scheduler idle.
func (s *Scheduler) Register(spec string) error {
	if spec == "" {
		s.logger.Info("dataset refresh disabled")
		return nil
	}

	id, err := s.cron.AddFunc(spec, s.RunNow)
	if err != nil {
		return fmt.Errorf("register refresh task: %w", err)
	}

	s.mu.Lock()
	s.entry = id
	s.mu.Unlock()

	s.logger.Info("dataset refresh scheduled", slog.String("spec", spec))
	return nil
}

// Start starts the cron loop.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.cron.Start()
	s.running = true
	s.logger.Info("scheduler started")
}

// Stop stops the loop and waits for a running refresh to finish or ctx to end.
func (s *Scheduler) Stop(ctx context.Context) {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.cancel()
		s.logger.Warn("scheduler stop timed out")
	}
	s.logger.Info("scheduler stopped")
}

// Next reports when the refresh runs next; zero when none is scheduled.
func (s *Scheduler) Next() time.Time {
	s.mu.Lock()
	id := s.entry
	s.mu.Unlock()
	if id == 0 {
		return time.Time{}
	}
	return s.cron.Entry(id).Next
}

// RunNow performs one refresh immediately. Each run gets its own trace ID.
func (s *Scheduler) RunNow() {
	ctx := infrastructure.EnsureTraceID(s.ctx)
	dropped := s.refresher.Refresh(ctx)
	s.metrics.DatasetRefreshes.Add(ctx, 1)
	infrastructure.LoggerFromContext(ctx, s.logger).InfoContext(ctx, "scheduled refresh completed",
		slog.Int("dropped", dropped))
}
