// Redis Backup Service - Scheduled Redis Snapshots, Retention and Restore
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/redisbackup

/*
Package scheduler runs scheduled backups as a supervised service.

The Scheduler sleeps until the job's next cron trigger, confirms the trigger
still holds (the job may have been rescheduled or started manually in the
meantime), and then calls ExecuteBackup synchronously. The schedule is read
from the job on every loop, so BackupJob.Reschedule takes effect at the next
evaluation without restarting the service.
*/
package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/redisbackup/internal/backup"
	"github.com/tomtom215/redisbackup/internal/logging"
)

// Runner is the part of backup.Manager the scheduler drives.
type Runner interface {
	Job() *backup.BackupJob
	IsRunning() bool
	Preflight(ctx context.Context) (bool, string)
	ExecuteBackup(ctx context.Context, taskID, label string, trigger backup.TriggerType) (backup.BackupRecord, error)
}

// Scheduler implements suture.Service.
type Scheduler struct {
	runner Runner
	logger zerolog.Logger

	now   func() time.Time
	after func(time.Duration) <-chan time.Time
}

// New creates a scheduler for runner.
func New(runner Runner) *Scheduler {
	return &Scheduler{
		runner: runner,
		logger: logging.WithComponent("scheduler"),
		now:    time.Now,
		after:  time.After,
	}
}

// Serve loops until ctx is cancelled.
func (s *Scheduler) Serve(ctx context.Context) error {
	for {
		job := s.runner.Job()
		now := s.now()
		next := job.NextBackupTime(now)
		if next.IsZero() {
			s.logger.Error().Str("schedule", job.Schedule().String()).Msg("Schedule has no next trigger; scheduler idle")
			<-ctx.Done()
			return ctx.Err()
		}

		s.logger.Info().Time("next_backup", next).Msg("Next scheduled backup")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.after(next.Sub(now)):
		}

		at := s.now()
		if at.Before(next) {
			at = next
		}
		s.Tick(ctx, at)
	}
}

// Tick evaluates one trigger instant and reports whether a backup ran.
func (s *Scheduler) Tick(ctx context.Context, at time.Time) bool {
	if s.runner.IsRunning() {
		s.logger.Warn().Msg("Skipping scheduled backup: a backup or restore is running")
		return false
	}
	if !s.runner.Job().ShouldExecuteAt(at) {
		s.logger.Debug().Time("at", at).Msg("Schedule changed before trigger; re-evaluating")
		return false
	}

	ctx = logging.ContextWithNewCorrelationID(ctx)
	if ok, reason := s.runner.Preflight(ctx); !ok {
		s.logger.Warn().Str("reason", reason).Msg("Scheduled backup preflight failed")
	}

	taskID := backup.NewTaskID()
	s.logger.Info().Str("task_id", taskID).Msg("Scheduled backup triggered")
	rec, err := s.runner.ExecuteBackup(ctx, taskID, "", backup.TriggerScheduled)
	if err != nil {
		s.logger.Warn().Err(err).Str("task_id", taskID).Msg("Scheduled backup not started")
		return false
	}
	s.logger.Info().Str("task_id", taskID).Str("record_id", rec.ID()).Str("status", string(rec.Status())).
		Msg("Scheduled backup finished")
	return true
}

// String implements fmt.Stringer for suture logging.
func (s *Scheduler) String() string {
	return "backup-scheduler"
}
