package report

import (
	"context"
	"testing"

	"mercator-hq/ganymede/pkg/budget"
)

type staticSource struct {
	status *budget.PipelineStatus
}

func (s *staticSource) PipelineStatus() *budget.PipelineStatus {
	return s.status
}

func TestSamplerEmptyScheduleIsDisabled(t *testing.T) {
	agg := NewAggregator(Config{})
	sampler := NewSampler(agg, &staticSource{status: &budget.PipelineStatus{}}, "")

	if err := sampler.Start(context.Background()); err != nil {
		t.Fatalf("Start with empty schedule: %v", err)
	}
	sampler.Stop()
}

func TestSamplerRejectsInvalidSchedule(t *testing.T) {
	agg := NewAggregator(Config{})
	sampler := NewSampler(agg, &staticSource{status: &budget.PipelineStatus{}}, "not a cron expression")

	if err := sampler.Start(context.Background()); err == nil {
		t.Error("Start accepted an invalid cron expression")
	}
}

func TestSamplerStartStop(t *testing.T) {
	agg := NewAggregator(Config{})
	sampler := NewSampler(agg, &staticSource{status: &budget.PipelineStatus{}}, "* * * * *")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := sampler.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := sampler.Start(ctx); err == nil {
		t.Error("second Start succeeded, want already-running error")
	}

	sampler.Stop()
	sampler.Stop() // idempotent
}
