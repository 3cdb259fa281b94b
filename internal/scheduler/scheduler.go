// Package scheduler triggers balance sync runs on a cron schedule.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/epco/stocksync/internal/service/balance"
)

// Scheduler manages the scheduled sync job.
type Scheduler struct {
	cron     *cron.Cron
	runner   balance.Runner
	schedule string
	timeout  time.Duration
	logger   *zap.Logger
}

// NewScheduler creates a scheduler evaluating schedule (5 field cron syntax)
// in loc. Each run is bounded by timeout.
func NewScheduler(runner balance.Runner, schedule string, loc *time.Location, timeout time.Duration, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}

	return &Scheduler{
		cron:     cron.New(cron.WithLocation(loc)),
		runner:   runner,
		schedule: schedule,
		timeout:  timeout,
		logger:   logger,
	}
}

// Start registers the sync job and starts the cron loop.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, s.runSync); err != nil {
		return fmt.Errorf("schedule sync %q: %w", s.schedule, err)
	}

	s.cron.Start()
	s.logger.Info("scheduler started", zap.String("schedule", s.schedule))
	return nil
}

// Stop stops the scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) runSync() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	s.logger.Info("scheduled sync triggered")
	report, err := s.runner.Run(ctx)
	switch {
	case errors.Is(err, balance.ErrRunInProgress):
		s.logger.Warn("previous sync still running, skipping")
	case err != nil:
		s.logger.Error("scheduled sync failed", zap.Error(err))
	default:
		s.logger.Info("scheduled sync completed",
			zap.String("run_id", report.RunID),
			zap.Int("facts", report.Facts))
	}
}
