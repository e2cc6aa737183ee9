// Redis Backup Service - Scheduled Redis Snapshots, Retention and Restore
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/redisbackup

package backup

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/tomtom215/redisbackup/internal/logging"
)

// ErrorCodeRestoreFailed is the ErrorInfo code of every failed restore.
const ErrorCodeRestoreFailed = "RESTORE_FAILED"

// RestoreOptions controls the optional restore phases.
type RestoreOptions struct {
	CreateSnapshot bool
	ValidateAfter  bool
}

// ExecuteRestore copies backupFile over the live Redis data file. Unlike a
// backup, a restore returns its failure to the caller. Only one restore runs
// at a time and never alongside a backup; a losing caller gets AlreadyRunning
// and no record is registered. Otherwise the restore record is returned in
// every case and stays queryable through RestoreStatus.
func (m *Manager) ExecuteRestore(ctx context.Context, taskID, backupFile string, opts RestoreOptions) (RestoreRecord, error) {
	if err := m.beginRestore(); err != nil {
		return RestoreRecord{}, err
	}
	defer m.endRestore()

	ctx = logging.ContextWithNewCorrelationID(ctx)
	log := logging.Ctx(ctx).With().Str("task_id", taskID).Str("backup_file", backupFile).Logger()

	rec := NewRestoreRecord(m.job.ID(), backupFile, m.now())
	m.storeRestore(taskID, rec)
	log.Info().
		Bool("create_snapshot", opts.CreateSnapshot).
		Bool("validate_after", opts.ValidateAfter).
		Msg("Restore started")
	m.publish(ctx, RestoreStarted{
		EventBase:    m.base(rec.StartTime()),
		JobID:        m.job.ID(),
		RestoreID:    rec.ID(),
		SourceBackup: backupFile,
	})

	if !m.files.Exists(backupFile) {
		err := NewError(KindNotFound, "restore.source", fmt.Sprintf("backup file not found: %s", backupFile))
		return m.failRestore(ctx, taskID, rec, err), err
	}

	if opts.CreateSnapshot {
		if err := m.advance(taskID, &rec, RestoreCreatingSnapshot); err != nil {
			return rec.Clone(), err
		}
		snapshot, err := m.executeBackup(ctx, snapshotTaskID(taskID), PreRestoreLabel, TriggerPreRestore, true)
		if err != nil {
			return m.failRestore(ctx, taskID, rec, err), err
		}
		if snapshot.Status() != StatusCompleted {
			msg := "pre-restore snapshot failed"
			if info, ok := snapshot.Failure(); ok {
				msg += ": " + info.Message
			}
			err := NewError(KindStorage, "restore.snapshot", msg)
			return m.failRestore(ctx, taskID, rec, err), err
		}
		rec.SetPreRestoreSnapshot(snapshot.ID())
		m.storeRestore(taskID, rec)
		log.Info().Str("snapshot_id", snapshot.ID()).Msg("Pre-restore snapshot created")
	}

	if err := m.advance(taskID, &rec, RestoreCopyingFile); err != nil {
		return rec.Clone(), err
	}
	if err := m.files.RestoreInto(ctx, backupFile); err != nil {
		err = fmt.Errorf("restore backup file: %w", err)
		return m.failRestore(ctx, taskID, rec, err), err
	}

	var validation *ValidationResult
	if opts.ValidateAfter {
		if err := m.advance(taskID, &rec, RestoreValidating); err != nil {
			return rec.Clone(), err
		}
		v, err := m.validate(ctx)
		if err != nil {
			err = fmt.Errorf("validate restore: %w", err)
			return m.failRestore(ctx, taskID, rec, err), err
		}
		validation = &v
	}

	if err := rec.Complete(validation, m.now()); err != nil {
		return rec.Clone(), err
	}
	m.storeRestore(taskID, rec)

	duration, _ := rec.Duration()
	event := RestoreCompletedEvent{
		EventBase:       m.base(m.now()),
		RecordID:        rec.ID(),
		DurationSeconds: duration.Seconds(),
		IsValid:         true,
	}
	if validation != nil {
		event.IsValid = validation.IsValid
		event.KeyCount = validation.KeyCount
	}
	log.Info().Dur("duration", duration).Int64("key_count", event.KeyCount).Msg("Restore completed")
	m.publish(ctx, event)
	return rec.Clone(), nil
}

func (m *Manager) advance(taskID string, rec *RestoreRecord, s RestoreStatus) error {
	if err := rec.UpdateStatus(s); err != nil {
		return err
	}
	m.storeRestore(taskID, *rec)
	return nil
}

func (m *Manager) failRestore(ctx context.Context, taskID string, rec RestoreRecord, cause error) RestoreRecord {
	info := ErrorInfo{Code: ErrorCodeRestoreFailed, Message: cause.Error()}
	if err := rec.Fail(info, m.now()); err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("task_id", taskID).Msg("Failed to mark restore failed")
		return rec.Clone()
	}
	m.storeRestore(taskID, rec)
	logging.Ctx(ctx).Error().Err(cause).Str("task_id", taskID).Str("status", string(rec.Status())).Msg("Restore failed")

	// No automatic rollback: the pre-restore snapshot, when taken, is left for
	// the operator to restore.
	rollback := "not_attempted"
	if rec.PreRestoreSnapshotID() != "" {
		rollback = "snapshot_available"
	}
	m.publish(ctx, RestoreFailedEvent{
		EventBase:      m.base(m.now()),
		JobID:          m.job.ID(),
		RestoreID:      rec.ID(),
		Error:          info,
		RollbackStatus: rollback,
	})
	return rec.Clone()
}

// validate reads the db0 key count and memory usage. An unreachable Redis or
// an error from INFO fails the validation step.
func (m *Manager) validate(ctx context.Context) (ValidationResult, error) {
	keyspace, err := m.store.Info(ctx, "keyspace")
	if err != nil {
		return ValidationResult{}, err
	}
	memory, err := m.store.Info(ctx, "memory")
	if err != nil {
		return ValidationResult{}, err
	}

	result := ValidationResult{IsValid: true}
	result.KeyCount = parseKeyspaceKeys(keyspace["db0"])
	if used, ok := memory["used_memory"]; ok {
		n, err := strconv.ParseInt(used, 10, 64)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("unparseable used_memory %q", used))
		} else {
			result.MemoryUsage = n
		}
	}
	return result, nil
}

// parseKeyspaceKeys extracts N from "keys=N,expires=0,avg_ttl=0". A missing
// db0 line means an empty database.
func parseKeyspaceKeys(line string) int64 {
	for _, part := range strings.Split(line, ",") {
		k, v, ok := strings.Cut(part, "=")
		if ok && strings.TrimSpace(k) == "keys" {
			n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
			if err == nil {
				return n
			}
		}
	}
	return 0
}

func (m *Manager) storeRestore(taskID string, rec RestoreRecord) {
	m.restoresMu.Lock()
	defer m.restoresMu.Unlock()
	if _, ok := m.restores[taskID]; !ok {
		m.restoreOrder = append(m.restoreOrder, taskID)
	}
	m.restores[taskID] = rec.Clone()
}

// RestoreStatus returns the restore registered under taskID.
func (m *Manager) RestoreStatus(taskID string) (RestoreRecord, error) {
	m.restoresMu.RLock()
	defer m.restoresMu.RUnlock()
	rec, ok := m.restores[taskID]
	if !ok {
		return RestoreRecord{}, NewError(KindNotFound, "restore.status", fmt.Sprintf("restore task not found: %s", taskID))
	}
	return rec.Clone(), nil
}
