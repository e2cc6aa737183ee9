// Redis Backup Service - Scheduled Redis Snapshots, Retention and Restore
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/redisbackup

package backup

import (
	"context"
	"fmt"

	"github.com/tomtom215/redisbackup/internal/logging"
)

// Progress checkpoints of the backup workflow.
const (
	progressConnect  = 10
	progressBGSave   = 20
	progressWaitSave = 40
	progressCopy     = 60
	progressFileInfo = 80
)

// ErrorCodeBackupFailed is the ErrorInfo code of every failed backup.
const ErrorCodeBackupFailed = "BACKUP_FAILED"

// StartBackup acquires the single-flight gate, registers an IN_PROGRESS record
// and runs the workflow in the background. The returned task ID can be polled
// with TaskStatus immediately. The only error is AlreadyRunning.
func (m *Manager) StartBackup(ctx context.Context, label string, trigger TriggerType) (string, error) {
	taskID := NewTaskID()
	rec, err := m.acquire(ctx, taskID, label, trigger, false)
	if err != nil {
		return "", err
	}

	// The workflow outlives the triggering request.
	runCtx := context.WithoutCancel(ctx)
	m.inflight.Add(1)
	go func() {
		defer m.inflight.Done()
		m.runBackup(runCtx, taskID, rec)
	}()
	return taskID, nil
}

// ExecuteBackup runs the backup workflow synchronously under taskID and returns
// the terminal record. Workflow failures are recorded on the record, not
// returned; the only error is AlreadyRunning.
func (m *Manager) ExecuteBackup(ctx context.Context, taskID, label string, trigger TriggerType) (BackupRecord, error) {
	return m.executeBackup(ctx, taskID, label, trigger, false)
}

func (m *Manager) executeBackup(ctx context.Context, taskID, label string, trigger TriggerType, forRestore bool) (BackupRecord, error) {
	rec, err := m.acquire(ctx, taskID, label, trigger, forRestore)
	if err != nil {
		return BackupRecord{}, err
	}
	return m.runBackup(ctx, taskID, rec), nil
}

// acquire takes the single-flight gate. Only the restore holding the restore
// slot may start a backup while it runs.
func (m *Manager) acquire(ctx context.Context, taskID, label string, trigger TriggerType, forRestore bool) (BackupRecord, error) {
	if trigger == "" {
		trigger = TriggerManual
	}
	rec := NewBackupRecord(m.job.ID(), BackupMetadata{Label: label, TriggerType: trigger}, m.now())

	m.gateMu.Lock()
	if m.restoring && !forRestore {
		m.gateMu.Unlock()
		return BackupRecord{}, NewError(KindAlreadyRunning, "job.start", "a restore is in progress")
	}
	err := m.job.Start(rec.ID())
	m.gateMu.Unlock()
	if err != nil {
		return BackupRecord{}, err
	}
	m.save(ctx, taskID, rec)
	return rec, nil
}

// runBackup owns the gate acquired by acquire and always releases it.
func (m *Manager) runBackup(ctx context.Context, taskID string, rec BackupRecord) (result BackupRecord) {
	ctx = logging.ContextWithNewCorrelationID(ctx)
	log := logging.Ctx(ctx).With().
		Str("task_id", taskID).
		Str("record_id", rec.ID()).
		Str("trigger", string(rec.Metadata().TriggerType)).
		Logger()

	succeeded := false
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Backup workflow panicked")
			m.failBackup(ctx, taskID, &rec, fmt.Errorf("panic: %v", r))
			result = rec.Clone()
		}
		m.setInflightFilename("")
		if succeeded {
			m.job.Complete()
		} else {
			m.job.Fail()
		}
	}()

	log.Info().Str("label", rec.Metadata().Label).Msg("Backup started")
	m.publish(ctx, BackupStarted{
		EventBase:   m.base(rec.StartTime()),
		JobID:       m.job.ID(),
		TaskID:      taskID,
		TriggerType: rec.Metadata().TriggerType,
	})

	file, err := m.snapshot(ctx, taskID, &rec)
	if err != nil {
		log.Error().Err(err).Int("progress", rec.Progress()).Msg("Backup failed")
		m.failBackup(ctx, taskID, &rec, err)
		return rec.Clone()
	}

	if err := rec.Complete(file, m.now()); err != nil {
		log.Error().Err(err).Msg("Backup could not be completed")
		return rec.Clone()
	}
	m.save(ctx, taskID, rec)
	succeeded = true

	duration, _ := rec.Duration()
	m.metrics.RecordSuccess(duration.Seconds(), file.Size)
	log.Info().
		Str("filename", file.Filename).
		Int64("size_bytes", file.Size).
		Dur("duration", duration).
		Msg("Backup completed")
	m.publish(ctx, BackupCompleted{
		EventBase:       m.base(m.now()),
		RecordID:        rec.ID(),
		JobID:           m.job.ID(),
		FileName:        file.Filename,
		Size:            file.Size,
		DurationSeconds: duration.Seconds(),
	})

	if _, err := m.RunCleanup(ctx); err != nil {
		log.Warn().Err(err).Msg("Retention cleanup failed")
	}
	return rec.Clone()
}

// snapshot walks the checkpoints and returns the stored file.
func (m *Manager) snapshot(ctx context.Context, taskID string, rec *BackupRecord) (BackupFile, error) {
	m.checkpoint(ctx, taskID, rec, progressConnect)
	if !m.store.TestConnection(ctx) {
		return BackupFile{}, NewError(KindConnectivity, "backup.connect", "Redis connection failed")
	}

	m.checkpoint(ctx, taskID, rec, progressBGSave)
	if err := m.store.BeginSnapshot(ctx); err != nil {
		return BackupFile{}, fmt.Errorf("begin snapshot: %w", err)
	}

	m.checkpoint(ctx, taskID, rec, progressWaitSave)
	if err := m.store.WaitForSnapshotDone(ctx, m.snapshotTimeout); err != nil {
		return BackupFile{}, fmt.Errorf("wait for snapshot: %w", err)
	}

	m.checkpoint(ctx, taskID, rec, progressCopy)
	file := NewBackupFile(m.now(), rec.Metadata().Label, m.job.Storage().BackupPath)
	source, err := m.store.SnapshotSourcePath(ctx)
	if err != nil {
		return BackupFile{}, fmt.Errorf("resolve snapshot path: %w", err)
	}
	m.setInflightFilename(file.Filename)
	path, err := m.files.Copy(ctx, source, file.Filename)
	if err != nil {
		return BackupFile{}, fmt.Errorf("copy snapshot: %w", err)
	}
	file.Path = path

	m.checkpoint(ctx, taskID, rec, progressFileInfo)
	info, err := m.files.FileInfo(file.Filename)
	if err != nil {
		return BackupFile{}, fmt.Errorf("inspect backup file: %w", err)
	}
	return file.WithMetadata(info.Size, info.Checksum), nil
}

func (m *Manager) checkpoint(ctx context.Context, taskID string, rec *BackupRecord, progress int) {
	if err := rec.UpdateProgress(progress); err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("task_id", taskID).Msg("Failed to update progress")
		return
	}
	m.save(ctx, taskID, *rec)
	logging.Ctx(ctx).Debug().Str("task_id", taskID).Int("progress", progress).Msg("Backup checkpoint")
}

func (m *Manager) failBackup(ctx context.Context, taskID string, rec *BackupRecord, cause error) {
	info := ErrorInfo{Code: ErrorCodeBackupFailed, Message: cause.Error()}
	if err := rec.Fail(info, m.now()); err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("task_id", taskID).Msg("Failed to mark backup failed")
		return
	}
	m.save(ctx, taskID, *rec)
	m.metrics.RecordFailure()
	m.publish(ctx, BackupFailed{
		EventBase:  m.base(m.now()),
		JobID:      m.job.ID(),
		RecordID:   rec.ID(),
		Error:      info,
		RetryCount: info.RetryCount,
	})
}
