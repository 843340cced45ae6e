package scheduler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/cortexhub/orchestrator-gateway/internal/config"
	"github.com/cortexhub/orchestrator-gateway/internal/logging"
	"github.com/cortexhub/orchestrator-gateway/internal/metrics"
)

// Prober refreshes collaborator health.
type Prober interface {
	CheckAll(ctx context.Context)
}

// SessionCounter reports the number of stored sessions.
type SessionCounter interface {
	Len() int
}

// Scheduler manages the gateway's background cron jobs
type Scheduler struct {
	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
	logger *slog.Logger
}

// NewScheduler schedules health probes and the session gauge. A nil prober
// or an empty cron expression skips that job.
func NewScheduler(cfg config.SchedulerConfig, prober Prober, sessions SessionCounter) (*Scheduler, error) {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cron:   cron.New(),
		ctx:    ctx,
		cancel: cancel,
		logger: logging.WithComponent("scheduler"),
	}
	if prober != nil && cfg.HealthSpec != "" {
		if _, err := s.cron.AddFunc(cfg.HealthSpec, func() { prober.CheckAll(s.ctx) }); err != nil {
			cancel()
			return nil, fmt.Errorf("schedule health probes %q: %w", cfg.HealthSpec, err)
		}
	}
	if sessions != nil && cfg.SessionSpec != "" {
		if _, err := s.cron.AddFunc(cfg.SessionSpec, func() { RecordSessions(sessions) }); err != nil {
			cancel()
			return nil, fmt.Errorf("schedule session gauge %q: %w", cfg.SessionSpec, err)
		}
	}
	return s, nil
}

// RecordSessions publishes the stored session count.
func RecordSessions(sessions SessionCounter) {
	metrics.ActiveSessions.Set(float64(sessions.Len()))
}

// Jobs returns the number of scheduled jobs.
func (s *Scheduler) Jobs() int {
	return len(s.cron.Entries())
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.logger.Info("scheduler starting", "jobs", s.Jobs())
	s.cron.Start()
}

// Stop stops the scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	s.cancel()
	ctx := s.cron.Stop()
	<-ctx.Done()
}
