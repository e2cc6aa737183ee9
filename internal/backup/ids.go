// Redis Backup Service - Scheduled Redis Snapshots, Retention and Restore
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/redisbackup

package backup

import "github.com/google/uuid"

// NewRecordID returns an opaque identifier for a backup or restore record.
func NewRecordID() string {
	return uuid.New().String()
}

// NewJobID returns an opaque identifier for a BackupJob.
func NewJobID() string {
	return uuid.New().String()
}

// NewTaskID returns the caller-facing handle used to poll a workflow.
func NewTaskID() string {
	return uuid.New().String()
}

// snapshotTaskID is the task handle of the safety backup taken before a restore.
func snapshotTaskID(restoreTaskID string) string {
	return "snapshot_" + restoreTaskID
}
