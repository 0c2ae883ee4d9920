/**
 * @description
 * Cron scheduler setup for the reconciliation job.
 */
package app

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Scheduler manages the periodic reconciliation run.
type Scheduler struct {
	cron       *cron.Cron
	reconciler *Reconciler
	logger     *slog.Logger
	schedule   string
}

// NewScheduler creates a new scheduler instance.
func NewScheduler(reconciler *Reconciler, logger *slog.Logger, schedule string) *Scheduler {
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelInfo))
	c := cron.New(cron.WithChain(cron.Recover(cronLogger)))

	return &Scheduler{
		cron:       c,
		reconciler: reconciler,
		logger:     logger,
		schedule:   schedule,
	}
}

// Start registers the reconciliation job and starts the cron scheduler.
func (s *Scheduler) Start() {
	if _, err := s.cron.AddFunc(s.schedule, s.runReconcile); err != nil {
		s.logger.Error("failed to schedule order reconciliation job", "error", err)
	} else {
		s.logger.Info("scheduled order reconciliation job", "schedule", s.schedule)
	}

	s.cron.Start()
}

func (s *Scheduler) runReconcile() {
	s.logger.Info("starting accepted-order reconciliation pass")
	repaired, err := s.reconciler.Run(context.Background())
	if err != nil {
		s.logger.Error("accepted-order reconciliation pass failed", "error", err)
		return
	}
	s.logger.Info("accepted-order reconciliation pass finished", "repaired", repaired)
}

// Stop gracefully stops the cron scheduler.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}
