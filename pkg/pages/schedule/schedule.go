// Package schedule publishes scheduled pages on a cron schedule.
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ozeweb/oze-website/pkg/pages"
	"github.com/robfig/cron/v3"
)

// Publisher publishes every scheduled page that is due.
type Publisher interface {
	PublishScheduled(ctx context.Context) ([]*pages.Page, error)
}

// Scheduler runs Publisher.PublishScheduled on a cron spec. Runs never
// overlap: a tick that arrives while the previous run is still going is
// skipped.
type Scheduler struct {
	publisher Publisher
	spec      string
	logger    *slog.Logger
	cron      *cron.Cron

	mu     sync.Mutex
	runCtx context.Context
	cancel context.CancelFunc
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the scheduler's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

// New creates a scheduler for spec, a standard five field cron expression
// or a descriptor such as "@every 1m".
func New(publisher Publisher, spec string, opts ...Option) (*Scheduler, error) {
	s := &Scheduler{
		publisher: publisher,
		spec:      spec,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.cron = cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := s.cron.AddFunc(spec, s.tick); err != nil {
		return nil, fmt.Errorf("invalid publish schedule %q: %w", spec, err)
	}
	return s, nil
}

// Start begins running the schedule. Runs use ctx until Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	s.runCtx, s.cancel = context.WithCancel(ctx)
	s.cron.Start()
	s.logger.Info("Publish scheduler started", "schedule", s.spec)
}

// Stop stops the schedule and waits for a running publish to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}

	<-s.cron.Stop().Done()
	cancel()
	s.logger.Info("Publish scheduler stopped")
}

// RunOnce publishes the due pages immediately and returns how many went live.
func (s *Scheduler) RunOnce(ctx context.Context) (int, error) {
	published, err := s.publisher.PublishScheduled(ctx)
	for _, p := range published {
		s.logger.Info("Scheduled page published", "page_id", p.ID, "slug", p.Slug)
	}
	if err != nil {
		return len(published), fmt.Errorf("publish scheduled pages: %w", err)
	}
	return len(published), nil
}

func (s *Scheduler) tick() {
	s.mu.Lock()
	ctx := s.runCtx
	s.mu.Unlock()
	if ctx == nil {
		return
	}
	if _, err := s.RunOnce(ctx); err != nil {
		s.logger.Error("Scheduled publish failed", "error", err)
	}
}
