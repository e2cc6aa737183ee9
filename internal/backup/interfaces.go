// Redis Backup Service - Scheduled Redis Snapshots, Retention and Restore
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/redisbackup

package backup

import (
	"context"
	"time"
)

// StoreGateway is the Redis side of a backup.
type StoreGateway interface {
	// TestConnection reports whether Redis answers PING.
	TestConnection(ctx context.Context) bool
	// BeginSnapshot issues BGSAVE. A save already in progress is not an error.
	BeginSnapshot(ctx context.Context) error
	// WaitForSnapshotDone blocks until the snapshot started by BeginSnapshot
	// has been written, or returns a KindTimeout error after timeout.
	WaitForSnapshotDone(ctx context.Context, timeout time.Duration) error
	// SnapshotSourcePath is the RDB file Redis writes, from CONFIG GET dir/dbfilename.
	SnapshotSourcePath(ctx context.Context) (string, error)
	// Info returns INFO output as key/value pairs. An empty section means all.
	Info(ctx context.Context, section string) (map[string]string, error)
}

// FileStorage manages snapshot files in the backup directory.
type FileStorage interface {
	// List returns *.rdb files, newest first.
	List(ctx context.Context) ([]StoredFile, error)
	Exists(filename string) bool
	// Copy copies source into the backup directory as destFilename and
	// returns the destination path. KindNotFound when source is missing.
	Copy(ctx context.Context, source, destFilename string) (string, error)
	// RestoreInto overwrites the live Redis data file with filename.
	// KindNotFound when filename is missing.
	RestoreInto(ctx context.Context, filename string) error
	// Delete removes filename; false when it did not exist.
	Delete(filename string) (bool, error)
	// FileInfo returns size, checksum and mtime. KindNotFound when missing.
	FileInfo(filename string) (StoredFile, error)
	Status() (StorageStatus, error)
}

// MetricsSink receives backup outcomes.
type MetricsSink interface {
	RecordSuccess(durationSeconds float64, sizeBytes int64)
	RecordFailure()
}

// BackupCounter is optionally implemented by a MetricsSink that tracks the
// number of retained backups.
type BackupCounter interface {
	SetBackupCount(n int)
}

// EventPublisher delivers domain events. Publication is best effort.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

// Repository holds backup task and record history. Implementations must be
// safe for concurrent use and return copies.
type Repository interface {
	// Save upserts the task -> record mapping and the record itself. A
	// COMPLETED record joins history. An empty taskID updates the record
	// without touching any task mapping.
	Save(ctx context.Context, taskID string, record BackupRecord) error
	// Find returns the record registered under taskID, or KindNotFound.
	Find(ctx context.Context, taskID string) (BackupRecord, error)
	// ListCompleted returns every COMPLETED record in history.
	ListCompleted(ctx context.Context) ([]BackupRecord, error)
	// Remove drops recordID from history. Task lookups keep working.
	Remove(ctx context.Context, recordID string) error
}

type noopMetrics struct{}

func (noopMetrics) RecordSuccess(float64, int64) {}
func (noopMetrics) RecordFailure()               {}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, Event) error { return nil }
