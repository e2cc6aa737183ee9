// Redis Backup Service - Scheduled Redis Snapshots, Retention and Restore
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/redisbackup

package api

import (
	"time"

	"github.com/tomtom215/redisbackup/internal/backup"
)

// TriggerBackupRequest is the optional body of POST /api/v1/backup/trigger.
type TriggerBackupRequest struct {
	Label string `json:"label" validate:"omitempty,backuplabel"`
}

// TriggerBackupResponse acknowledges a started backup.
type TriggerBackupResponse struct {
	TaskID  string `json:"task_id"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

// BackupStatusResponse reports one backup task.
type BackupStatusResponse struct {
	TaskID    string     `json:"task_id"`
	Status    string     `json:"status"`
	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `json:"end_time"`
	Progress  int        `json:"progress"`
	FileName  *string    `json:"file_name"`
	FileSize  *int64     `json:"file_size"`
	Error     *string    `json:"error"`
}

// BackupListItem is one entry of GET /api/v1/backups.
type BackupListItem struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"created_at"`
	Checksum    string    `json:"checksum"`
	Label       string    `json:"label,omitempty"`
	IsImportant bool      `json:"is_important"`
}

// BackupListResponse lists completed backups.
type BackupListResponse struct {
	Backups []BackupListItem `json:"backups"`
	Total   int              `json:"total"`
}

// RestoreRequest is the body of POST /api/v1/restore. Both flags default to
// true when omitted.
type RestoreRequest struct {
	BackupFile     string `json:"backup_file" validate:"required,rdbfile"`
	CreateSnapshot *bool  `json:"create_snapshot"`
	ValidateAfter  *bool  `json:"validate_after"`
}

func (r RestoreRequest) options() backup.RestoreOptions {
	return backup.RestoreOptions{
		CreateSnapshot: r.CreateSnapshot == nil || *r.CreateSnapshot,
		ValidateAfter:  r.ValidateAfter == nil || *r.ValidateAfter,
	}
}

// RestoreResponse reports one restore task.
type RestoreResponse struct {
	TaskID  string               `json:"task_id"`
	Restore backup.RestoreRecord `json:"restore"`
}

func newBackupStatus(taskID string, rec backup.BackupRecord) BackupStatusResponse {
	resp := BackupStatusResponse{
		TaskID:    taskID,
		Status:    string(rec.Status()),
		StartTime: rec.StartTime(),
		Progress:  rec.Progress(),
	}
	if end, ok := rec.EndTime(); ok {
		resp.EndTime = &end
	}
	if file, ok := rec.File(); ok {
		resp.FileName = &file.Filename
		resp.FileSize = &file.Size
	}
	if failure, ok := rec.Failure(); ok {
		resp.Error = &failure.Message
	}
	return resp
}

func newBackupListItem(rec backup.BackupRecord) BackupListItem {
	meta := rec.Metadata()
	item := BackupListItem{
		ID:          rec.ID(),
		CreatedAt:   rec.StartTime(),
		Label:       meta.Label,
		IsImportant: meta.IsImportant,
	}
	if file, ok := rec.File(); ok {
		item.Filename = file.Filename
		item.Size = file.Size
		item.Checksum = file.Checksum
	}
	return item
}
