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

// RunCleanup evaluates the retention policy over completed history, deletes
// the backing file of each record marked for deletion, and drops those records.
// Individual deletion failures are logged and skipped.
func (m *Manager) RunCleanup(ctx context.Context) (CleanupPlan, error) {
	completed, err := m.repo.ListCompleted(ctx)
	if err != nil {
		return CleanupPlan{}, fmt.Errorf("list completed backups: %w", err)
	}

	plan := m.policy.Evaluate(completed, m.now())
	if len(plan.ToDelete) == 0 {
		logging.Ctx(ctx).Debug().Str("reason", plan.Reason).Msg("Retention cleanup: nothing to delete")
		return plan, nil
	}

	byID := make(map[string]BackupRecord, len(completed))
	for _, r := range completed {
		byID[r.ID()] = r
	}

	logging.Ctx(ctx).Info().Int("count", len(plan.ToDelete)).Str("reason", plan.Reason).Msg("Cleaning up backups")

	deleted := 0
	var freed int64
	for _, id := range plan.ToDelete {
		rec, ok := byID[id]
		if !ok {
			continue
		}
		file, hasFile := rec.File()
		if !hasFile {
			continue
		}
		if _, err := m.files.Delete(file.Filename); err != nil {
			logging.Ctx(ctx).Warn().Err(err).
				Str("record_id", id).
				Str("filename", file.Filename).
				Msg("Failed to delete backup")
			continue
		}
		if err := m.repo.Remove(ctx, id); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("record_id", id).Msg("Failed to remove backup record")
			continue
		}
		deleted++
		freed += file.Size
		logging.Ctx(ctx).Info().Str("filename", file.Filename).Msg("Deleted backup")
	}

	m.updateBackupCount(ctx)
	m.publish(ctx, CleanupExecuted{
		EventBase:    m.base(m.now()),
		DeletedCount: deleted,
		FreedSpace:   freed,
	})
	return plan, nil
}

func (m *Manager) updateBackupCount(ctx context.Context) {
	counter, ok := m.metrics.(BackupCounter)
	if !ok {
		return
	}
	completed, err := m.repo.ListCompleted(ctx)
	if err != nil {
		return
	}
	counter.SetBackupCount(len(completed))
}
