// Redis Backup Service - Scheduled Redis Snapshots, Retention and Restore
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/redisbackup

package backup

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// RecordStatus is the lifecycle state of a BackupRecord.
type RecordStatus string

const (
	StatusInProgress RecordStatus = "IN_PROGRESS"
	StatusCompleted  RecordStatus = "COMPLETED"
	StatusFailed     RecordStatus = "FAILED"

	// StatusDeleted is reserved. No transition assigns it.
	StatusDeleted RecordStatus = "DELETED"
)

// BackupRecord tracks one snapshot attempt. Progress and end time can only
// change while the record is IN_PROGRESS; COMPLETED and FAILED are final.
//
// Repositories store and return Clone()d copies, so a record handed out by a
// Repository can be read without locking.
type BackupRecord struct {
	id        string
	jobID     string
	status    RecordStatus
	progress  int
	startTime time.Time
	endTime   *time.Time
	file      *BackupFile
	failure   *ErrorInfo
	metadata  BackupMetadata
}

// NewBackupRecord starts an IN_PROGRESS record at start.
func NewBackupRecord(jobID string, metadata BackupMetadata, start time.Time) BackupRecord {
	return BackupRecord{
		id:        NewRecordID(),
		jobID:     jobID,
		status:    StatusInProgress,
		startTime: start,
		metadata:  metadata.clone(),
	}
}

// NewDiscoveredRecord builds a COMPLETED record for a snapshot file found on
// disk that no record describes. createdAt becomes the start time.
func NewDiscoveredRecord(jobID string, file BackupFile, createdAt time.Time) BackupRecord {
	return BackupRecord{
		id:        NewRecordID(),
		jobID:     jobID,
		status:    StatusCompleted,
		progress:  100,
		startTime: createdAt,
		file:      &file,
	}
}

func (r BackupRecord) ID() string               { return r.id }
func (r BackupRecord) JobID() string            { return r.jobID }
func (r BackupRecord) Status() RecordStatus     { return r.status }
func (r BackupRecord) Progress() int            { return r.progress }
func (r BackupRecord) StartTime() time.Time     { return r.startTime }
func (r BackupRecord) Metadata() BackupMetadata { return r.metadata.clone() }

// EndTime returns the terminal timestamp, if any.
func (r BackupRecord) EndTime() (time.Time, bool) {
	if r.endTime == nil {
		return time.Time{}, false
	}
	return *r.endTime, true
}

// File returns the produced snapshot file, if any.
func (r BackupRecord) File() (BackupFile, bool) {
	if r.file == nil {
		return BackupFile{}, false
	}
	return *r.file, true
}

// Failure returns the attached error detail, if any.
func (r BackupRecord) Failure() (ErrorInfo, bool) {
	if r.failure == nil {
		return ErrorInfo{}, false
	}
	return *r.failure, true
}

// IsTerminal reports COMPLETED or FAILED.
func (r BackupRecord) IsTerminal() bool {
	return r.status == StatusCompleted || r.status == StatusFailed
}

func (r *BackupRecord) requireInProgress(op string) error {
	if r.status != StatusInProgress {
		return NewError(KindInvalidTransition, op,
			fmt.Sprintf("record %s is %s, expected %s", r.id, r.status, StatusInProgress))
	}
	return nil
}

// UpdateProgress clamps p to [0,100].
func (r *BackupRecord) UpdateProgress(p int) error {
	if err := r.requireInProgress("record.update_progress"); err != nil {
		return err
	}
	r.progress = min(max(p, 0), 100)
	return nil
}

// Complete attaches file and moves the record to COMPLETED.
func (r *BackupRecord) Complete(file BackupFile, at time.Time) error {
	if err := r.requireInProgress("record.complete"); err != nil {
		return err
	}
	r.status = StatusCompleted
	r.progress = 100
	r.endTime = &at
	r.file = &file
	return nil
}

// Fail attaches info and moves the record to FAILED.
func (r *BackupRecord) Fail(info ErrorInfo, at time.Time) error {
	if err := r.requireInProgress("record.fail"); err != nil {
		return err
	}
	r.status = StatusFailed
	r.endTime = &at
	r.failure = &info
	return nil
}

// MarkImportant is allowed in any status.
func (r *BackupRecord) MarkImportant() {
	r.metadata = r.metadata.MarkImportant()
}

// IsExpired counts whole days only: a backup retentionDays days and 23 hours
// old is not expired.
func (r BackupRecord) IsExpired(retentionDays int, now time.Time) bool {
	days := int(now.Sub(r.startTime) / (24 * time.Hour))
	return days > retentionDays
}

// Duration is end minus start for records with an end time.
func (r BackupRecord) Duration() (time.Duration, bool) {
	if r.endTime == nil {
		return 0, false
	}
	return r.endTime.Sub(r.startTime), true
}

// Clone returns a deep copy.
func (r BackupRecord) Clone() BackupRecord {
	c := r
	if r.endTime != nil {
		t := *r.endTime
		c.endTime = &t
	}
	if r.file != nil {
		f := *r.file
		c.file = &f
	}
	if r.failure != nil {
		e := *r.failure
		c.failure = &e
	}
	c.metadata = r.metadata.clone()
	return c
}

type backupRecordJSON struct {
	ID        string         `json:"id"`
	JobID     string         `json:"job_id"`
	Status    RecordStatus   `json:"status"`
	Progress  int            `json:"progress"`
	StartTime time.Time      `json:"start_time"`
	EndTime   *time.Time     `json:"end_time,omitempty"`
	File      *BackupFile    `json:"file,omitempty"`
	Error     *ErrorInfo     `json:"error,omitempty"`
	Metadata  BackupMetadata `json:"metadata"`
}

// MarshalJSON exposes the unexported state for persistence.
func (r BackupRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(backupRecordJSON{
		ID:        r.id,
		JobID:     r.jobID,
		Status:    r.status,
		Progress:  r.progress,
		StartTime: r.startTime,
		EndTime:   r.endTime,
		File:      r.file,
		Error:     r.failure,
		Metadata:  r.metadata,
	})
}

// UnmarshalJSON restores a record written by MarshalJSON.
func (r *BackupRecord) UnmarshalJSON(data []byte) error {
	var dto backupRecordJSON
	if err := json.Unmarshal(data, &dto); err != nil {
		return fmt.Errorf("decode backup record: %w", err)
	}
	*r = BackupRecord{
		id:        dto.ID,
		jobID:     dto.JobID,
		status:    dto.Status,
		progress:  dto.Progress,
		startTime: dto.StartTime,
		endTime:   dto.EndTime,
		file:      dto.File,
		failure:   dto.Error,
		metadata:  dto.Metadata,
	}
	return nil
}
