// Redis Backup Service - Scheduled Redis Snapshots, Retention and Restore
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/redisbackup

package backup

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/tomtom215/redisbackup/internal/logging"
)

// TaskStatus returns the backup registered under taskID, or a NotFound error.
func (m *Manager) TaskStatus(ctx context.Context, taskID string) (BackupRecord, error) {
	rec, err := m.repo.Find(ctx, taskID)
	if err != nil {
		return BackupRecord{}, err
	}
	return rec, nil
}

// ListBackups returns completed backups, newest first. Snapshot files found in
// the backup directory that no record describes are adopted into history as
// COMPLETED records dated by their modification time.
func (m *Manager) ListBackups(ctx context.Context) ([]BackupRecord, error) {
	m.adoptMu.Lock()
	defer m.adoptMu.Unlock()

	files, err := m.files.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list backup files: %w", err)
	}
	// The in-flight name must be read before the history snapshot: a backup
	// saves its completed record before clearing the name, so every listed
	// file is then either in flight or already in the snapshot.
	inflight := m.inflightFilename()
	completed, err := m.repo.ListCompleted(ctx)
	if err != nil {
		return nil, fmt.Errorf("list completed backups: %w", err)
	}

	known := make(map[string]struct{}, len(completed))
	for _, r := range completed {
		if f, ok := r.File(); ok {
			known[f.Filename] = struct{}{}
		}
	}

	adopted := 0
	for _, f := range files {
		if _, ok := known[f.Filename]; ok || f.Filename == inflight {
			continue
		}
		rec := NewDiscoveredRecord(m.job.ID(), f.BackupFile(), f.CreatedAt)
		if err := m.repo.Save(ctx, "", rec); err != nil {
			return nil, fmt.Errorf("adopt %s: %w", f.Filename, err)
		}
		completed = append(completed, rec)
		adopted++
	}
	if adopted > 0 {
		logging.Ctx(ctx).Info().Int("count", adopted).Msg("Adopted backup files found on disk")
	}

	sortNewestFirst(completed)
	if counter, ok := m.metrics.(BackupCounter); ok {
		counter.SetBackupCount(len(completed))
	}
	return completed, nil
}

// MarkImportant flags a completed backup so retention always keeps it.
func (m *Manager) MarkImportant(ctx context.Context, recordID string) (BackupRecord, error) {
	completed, err := m.repo.ListCompleted(ctx)
	if err != nil {
		return BackupRecord{}, fmt.Errorf("list completed backups: %w", err)
	}
	for _, r := range completed {
		if r.ID() != recordID {
			continue
		}
		r.MarkImportant()
		if err := m.repo.Save(ctx, "", r); err != nil {
			return BackupRecord{}, fmt.Errorf("save %s: %w", recordID, err)
		}
		logging.Ctx(ctx).Info().Str("record_id", recordID).Msg("Backup marked important")
		return r.Clone(), nil
	}
	return BackupRecord{}, NewError(KindNotFound, "backup.mark_important", fmt.Sprintf("backup not found: %s", recordID))
}

// BackupExists reports whether filename is present in the backup directory.
func (m *Manager) BackupExists(filename string) bool {
	return m.files.Exists(filename)
}

// LastBackupTime is the start time of the newest completed backup.
func (m *Manager) LastBackupTime(ctx context.Context) (time.Time, bool) {
	completed, err := m.repo.ListCompleted(ctx)
	if err != nil || len(completed) == 0 {
		return time.Time{}, false
	}
	var last time.Time
	for _, r := range completed {
		if r.StartTime().After(last) {
			last = r.StartTime()
		}
	}
	return last, true
}

// NextBackupTime is the next scheduled trigger instant.
func (m *Manager) NextBackupTime() time.Time {
	return m.job.NextBackupTime(m.now())
}

// Preflight checks whether a backup could start now.
func (m *Manager) Preflight(ctx context.Context) (bool, string) {
	connected := m.store.TestConnection(ctx)
	var available uint64
	if status, err := m.files.Status(); err == nil {
		available = status.Available
	} else {
		logging.Ctx(ctx).Warn().Err(err).Msg("Failed to read storage status")
	}
	return m.job.CanExecute(connected, available)
}

// StorageStatus reports disk usage of the backup directory.
func (m *Manager) StorageStatus() (StorageStatus, error) {
	return m.files.Status()
}

// AllRestores returns every restore record, oldest first.
func (m *Manager) AllRestores() []RestoreRecord {
	m.restoresMu.RLock()
	defer m.restoresMu.RUnlock()
	out := make([]RestoreRecord, 0, len(m.restoreOrder))
	for _, id := range m.restoreOrder {
		out = append(out, m.restores[id].Clone())
	}
	return out
}

func sortNewestFirst(records []BackupRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		if !records[i].startTime.Equal(records[j].startTime) {
			return records[i].startTime.After(records[j].startTime)
		}
		return records[i].id < records[j].id
	})
}
