// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package scheduler runs periodic maintenance jobs on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/olegiv/automatepro/internal/model"
)

// Job is a named task run on a cron schedule.
type Job struct {
	Name        string
	Description string
	Schedule    string // standard five-field cron expression or descriptor
	Run         func(ctx context.Context) error
}

// Scheduler owns a cron instance and the jobs registered on it.
type Scheduler struct {
	cron    *cron.Cron
	logger  *slog.Logger
	timeout time.Duration
	reg     *Registry
}

// New creates a scheduler. Each run is bounded by timeout.
func New(logger *slog.Logger, timeout time.Duration) *Scheduler {
	cl := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelWarn))
	c := cron.New(cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)))
	return &Scheduler{
		cron:    c,
		logger:  logger,
		timeout: timeout,
		reg:     newRegistry(c),
	}
}

// Add registers job. It can be called before or after Start.
func (s *Scheduler) Add(job Job) error {
	if job.Name == "" || job.Run == nil {
		return fmt.Errorf("job needs a name and a run function")
	}
	return s.reg.add(job, s.wrap(job))
}

// wrap turns job into a cron func that logs its outcome.
func (s *Scheduler) wrap(job Job) func() {
	return func() {
		if err := s.run(context.Background(), job); err != nil {
			s.logger.Error("scheduled job failed", "job", job.Name, "error", err, "category", model.EventCategorySystem)
		}
	}
}

func (s *Scheduler) run(ctx context.Context, job Job) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	start := time.Now()
	err := job.Run(ctx)
	s.logger.Debug("scheduled job finished", "job", job.Name, "duration", time.Since(start))
	return err
}

// Start runs the cron loop in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.cron.Entries()))
}

// Stop stops scheduling and waits for running jobs to finish, or for ctx.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.logger.Info("scheduler stopped")
	case <-ctx.Done():
		s.logger.Warn("scheduler stop timed out", "error", ctx.Err())
	}
}

// Jobs lists the registered jobs.
func (s *Scheduler) Jobs() []JobInfo {
	return s.reg.List()
}

// TriggerNow runs the named job synchronously.
func (s *Scheduler) TriggerNow(ctx context.Context, name string) error {
	job, ok := s.reg.job(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	s.logger.Info("manually triggering job", "job", name)
	return s.run(ctx, job)
}

// Reschedule moves the named job to a new cron expression.
func (s *Scheduler) Reschedule(name, schedule string) error {
	job, ok := s.reg.job(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	job.Schedule = schedule
	if err := s.reg.replace(job, s.wrap(job)); err != nil {
		return err
	}
	s.logger.Info("updated job schedule", "job", name, "schedule", schedule)
	return nil
}
