// Redis Backup Service - Scheduled Redis Snapshots, Retention and Restore
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/redisbackup

package backup

import "time"

// Event topics.
const (
	TopicBackupStarted       = "backup.started"
	TopicBackupCompleted     = "backup.completed"
	TopicBackupFailed        = "backup.failed"
	TopicRestoreStarted      = "restore.started"
	TopicRestoreCompleted    = "restore.completed"
	TopicRestoreFailed       = "restore.failed"
	TopicCleanupExecuted     = "cleanup.executed"
	TopicStorageSpaceLow     = "storage.space_low"
	TopicRedisConnectionLost = "redis.connection_lost"
)

// AllTopics lists every topic a subscriber may listen on.
var AllTopics = []string{
	TopicBackupStarted,
	TopicBackupCompleted,
	TopicBackupFailed,
	TopicRestoreStarted,
	TopicRestoreCompleted,
	TopicRestoreFailed,
	TopicCleanupExecuted,
	TopicStorageSpaceLow,
	TopicRedisConnectionLost,
}

// Event is a domain event published by the Manager and the health service.
type Event interface {
	Topic() string
	OccurredAt() time.Time
}

// EventBase carries the timestamp shared by every event.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
}

func (e EventBase) OccurredAt() time.Time { return e.Timestamp }

type BackupStarted struct {
	EventBase
	JobID       string      `json:"job_id"`
	TaskID      string      `json:"task_id"`
	TriggerType TriggerType `json:"trigger_type"`
}

func (BackupStarted) Topic() string { return TopicBackupStarted }

type BackupCompleted struct {
	EventBase
	RecordID        string  `json:"record_id"`
	JobID           string  `json:"job_id"`
	FileName        string  `json:"file_name"`
	Size            int64   `json:"size"`
	DurationSeconds float64 `json:"duration_seconds"`
}

func (BackupCompleted) Topic() string { return TopicBackupCompleted }

type BackupFailed struct {
	EventBase
	JobID      string    `json:"job_id"`
	RecordID   string    `json:"record_id"`
	Error      ErrorInfo `json:"error_info"`
	RetryCount int       `json:"retry_count"`
}

func (BackupFailed) Topic() string { return TopicBackupFailed }

type RestoreStarted struct {
	EventBase
	JobID        string `json:"job_id"`
	RestoreID    string `json:"restore_id"`
	SourceBackup string `json:"source_backup"`
}

func (RestoreStarted) Topic() string { return TopicRestoreStarted }

type RestoreCompletedEvent struct {
	EventBase
	RecordID        string  `json:"record_id"`
	DurationSeconds float64 `json:"duration_seconds"`
	IsValid         bool    `json:"is_valid"`
	KeyCount        int64   `json:"key_count"`
}

func (RestoreCompletedEvent) Topic() string { return TopicRestoreCompleted }

type RestoreFailedEvent struct {
	EventBase
	JobID          string    `json:"job_id"`
	RestoreID      string    `json:"restore_id"`
	Error          ErrorInfo `json:"error_info"`
	RollbackStatus string    `json:"rollback_status"`
}

func (RestoreFailedEvent) Topic() string { return TopicRestoreFailed }

type CleanupExecuted struct {
	EventBase
	DeletedCount int   `json:"deleted_count"`
	FreedSpace   int64 `json:"freed_space"`
}

func (CleanupExecuted) Topic() string { return TopicCleanupExecuted }

type StorageSpaceLow struct {
	EventBase
	AvailableSpace uint64  `json:"available_space"`
	UsagePercent   float64 `json:"usage_percent"`
}

func (StorageSpaceLow) Topic() string { return TopicStorageSpaceLow }

type RedisConnectionLost struct {
	EventBase
	LastConnectedTime *time.Time `json:"last_connected_time,omitempty"`
	ErrorMessage      string     `json:"error_message"`
}

func (RedisConnectionLost) Topic() string { return TopicRedisConnectionLost }
