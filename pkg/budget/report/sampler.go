package report

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"

	"mercator-hq/ganymede/pkg/budget"
)

// StatusSource supplies pipeline snapshots for scheduled sampling.
// *budget.Registry satisfies it.
type StatusSource interface {
	PipelineStatus() *budget.PipelineStatus
}

// Sampler records trend points from a live status source on a cron
// schedule, so the trend series keeps filling even when nobody is asking
// for reports.
type Sampler struct {
	aggregator *Aggregator
	source     StatusSource
	schedule   string
	cron       *cron.Cron
	logger     *slog.Logger

	mu      sync.Mutex
	running bool
}

// NewSampler creates a sampler that records one trend point per schedule
// tick using standard cron syntax.
//
// Common schedules:
//   - "* * * * *"     - Every minute
//   - "*/5 * * * *"   - Every 5 minutes
//   - "0 * * * *"     - Hourly
func NewSampler(aggregator *Aggregator, source StatusSource, schedule string) *Sampler {
	return &Sampler{
		aggregator: aggregator,
		source:     source,
		schedule:   schedule,
		cron:       cron.New(),
		logger:     slog.Default().With("component", "budget.report.sampler"),
	}
}

// Start begins scheduled sampling. An empty schedule disables the sampler.
// The sampler stops when the context is cancelled or Stop is called.
func (s *Sampler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("sampler already running")
	}

	if s.schedule == "" {
		s.logger.Info("sample schedule not configured, skipping sampler")
		return nil
	}

	if _, err := cron.ParseStandard(s.schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", s.schedule, err)
	}

	_, err := s.cron.AddFunc(s.schedule, func() {
		s.aggregator.RecordTrendPoint(s.source.PipelineStatus())
	})
	if err != nil {
		return fmt.Errorf("failed to schedule sampling: %w", err)
	}

	s.cron.Start()
	s.running = true

	s.logger.Info("trend sampler started", "schedule", s.schedule)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// Stop stops scheduled sampling and waits for an in-flight sample to
// finish. Safe to call multiple times.
func (s *Sampler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	s.running = false

	s.logger.Info("trend sampler stopped")
}
