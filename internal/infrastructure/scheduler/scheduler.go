package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/taskloop/core/internal/application/services"
	"github.com/taskloop/core/internal/infrastructure/config"
	"github.com/taskloop/core/internal/infrastructure/logger"
	"github.com/taskloop/core/internal/ports"
)

// Scheduler drives the periodic generation checks and the daily goal reset.
// The generation jobs are safe to fire aggressively: the service's window
// gate, rate limits, and generation log make redundant runs no-ops.
type Scheduler struct {
	cron       *cron.Cron
	generation *services.GenerationService
	goals      *services.GoalService
	cfg        config.SchedulerConfig
	logger     *logger.Logger
}

// New creates a scheduler bound to the configured time zone.
func New(generation *services.GenerationService, goals *services.GoalService, cfg config.SchedulerConfig, log *logger.Logger) *Scheduler {
	c := cron.New(
		cron.WithLocation(cfg.Location()),
		cron.WithChain(cron.Recover(cron.DefaultLogger)),
	)
	return &Scheduler{
		cron:       c,
		generation: generation,
		goals:      goals,
		cfg:        cfg,
		logger:     log.WithComponent("scheduler"),
	}
}

// Start registers the jobs and begins the cron loop. One generation pass
// runs immediately so a process started mid-day does not wait a full poll
// interval.
func (s *Scheduler) Start() error {
	interval := s.cfg.PollInterval
	if interval <= 0 {
		interval = 45 * time.Minute
	}

	if _, err := s.cron.AddFunc("@every "+interval.String(), s.runGenerationPass); err != nil {
		return err
	}

	// Daily goal reset fires just after the 3 AM day boundary. The reset is
	// additionally gated on the persisted last-reset day, so a missed firing
	// is recovered by the next generation pass.
	if _, err := s.cron.AddFunc("5 3 * * *", s.runGoalReset); err != nil {
		return err
	}

	s.cron.Start()
	go s.runGenerationPass()

	s.logger.Infow("Scheduler started", "poll_interval", interval)
	return nil
}

// Stop halts the cron loop and waits for running jobs.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Infow("Scheduler stopped")
}

func (s *Scheduler) runGenerationPass() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	report, err := s.generation.CheckTaskLists(ctx, ports.CheckOptions{})
	if err != nil {
		s.logger.WithError(err).Errorw("Scheduled task-list check failed")
	} else if n := report.Created(); n > 0 {
		s.logger.Infow("Scheduled task-list check created tasks", "count", n)
	}

	projectReport, err := s.generation.CheckProjects(ctx, ports.ProjectCheckOptions{})
	if err != nil {
		s.logger.WithError(err).Errorw("Scheduled project check failed")
	} else if n := projectReport.Created(); n > 0 {
		s.logger.Infow("Scheduled project check created tasks", "count", n)
	}
}

func (s *Scheduler) runGoalReset() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	n, ran, err := s.goals.ResetDailyGoals(ctx)
	if err != nil {
		s.logger.WithError(err).Errorw("Scheduled goal reset failed")
		return
	}
	if ran {
		s.logger.Infow("Daily goals reset", "count", n)
	}
}
