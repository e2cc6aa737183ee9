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

// RestoreStatus is the phase of a restore attempt.
type RestoreStatus string

const (
	RestorePending          RestoreStatus = "PENDING"
	RestoreCreatingSnapshot RestoreStatus = "CREATING_SNAPSHOT"
	RestoreStoppingRedis    RestoreStatus = "STOPPING_REDIS"
	RestoreCopyingFile      RestoreStatus = "COPYING_FILE"
	RestoreStartingRedis    RestoreStatus = "STARTING_REDIS"
	RestoreValidating       RestoreStatus = "VALIDATING"
	RestoreCompleted        RestoreStatus = "COMPLETED"
	RestoreFailed           RestoreStatus = "FAILED"
	RestoreRolledBack       RestoreStatus = "ROLLED_BACK"
)

// IsTerminal reports COMPLETED, FAILED or ROLLED_BACK.
func (s RestoreStatus) IsTerminal() bool {
	return s == RestoreCompleted || s == RestoreFailed || s == RestoreRolledBack
}

// RestoreRecord tracks one restore attempt. Phase ordering is driven by the
// Manager; the record only refuses to leave a terminal state.
type RestoreRecord struct {
	id                   string
	jobID                string
	sourceBackupID       string
	preRestoreSnapshotID string
	status               RestoreStatus
	startTime            time.Time
	endTime              *time.Time
	validation           *ValidationResult
	failure              *ErrorInfo
}

// NewRestoreRecord starts a PENDING restore of sourceBackupID.
func NewRestoreRecord(jobID, sourceBackupID string, start time.Time) RestoreRecord {
	return RestoreRecord{
		id:             NewRecordID(),
		jobID:          jobID,
		sourceBackupID: sourceBackupID,
		status:         RestorePending,
		startTime:      start,
	}
}

func (r RestoreRecord) ID() string                   { return r.id }
func (r RestoreRecord) JobID() string                { return r.jobID }
func (r RestoreRecord) SourceBackupID() string       { return r.sourceBackupID }
func (r RestoreRecord) PreRestoreSnapshotID() string { return r.preRestoreSnapshotID }
func (r RestoreRecord) Status() RestoreStatus        { return r.status }
func (r RestoreRecord) StartTime() time.Time         { return r.startTime }

func (r RestoreRecord) EndTime() (time.Time, bool) {
	if r.endTime == nil {
		return time.Time{}, false
	}
	return *r.endTime, true
}

func (r RestoreRecord) Validation() (ValidationResult, bool) {
	if r.validation == nil {
		return ValidationResult{}, false
	}
	return *r.validation, true
}

func (r RestoreRecord) Failure() (ErrorInfo, bool) {
	if r.failure == nil {
		return ErrorInfo{}, false
	}
	return *r.failure, true
}

// Duration is end minus start for finished restores.
func (r RestoreRecord) Duration() (time.Duration, bool) {
	if r.endTime == nil {
		return 0, false
	}
	return r.endTime.Sub(r.startTime), true
}

// UpdateStatus moves to any intermediate phase, in any order. Terminal states
// are reached through Complete, Fail and Rollback only.
func (r *RestoreRecord) UpdateStatus(s RestoreStatus) error {
	if s.IsTerminal() {
		return NewError(KindInvalidTransition, "restore.update_status",
			fmt.Sprintf("%s must be set through its terminal operation", s))
	}
	if r.status.IsTerminal() {
		return NewError(KindInvalidTransition, "restore.update_status",
			fmt.Sprintf("restore %s already %s", r.id, r.status))
	}
	r.status = s
	return nil
}

// SetPreRestoreSnapshot links the safety backup taken before the restore.
func (r *RestoreRecord) SetPreRestoreSnapshot(recordID string) {
	r.preRestoreSnapshotID = recordID
}

// Complete finishes the restore with an optional validation result.
func (r *RestoreRecord) Complete(validation *ValidationResult, at time.Time) error {
	if r.status.IsTerminal() {
		return NewError(KindInvalidTransition, "restore.complete",
			fmt.Sprintf("restore %s already %s", r.id, r.status))
	}
	r.status = RestoreCompleted
	r.endTime = &at
	if validation != nil {
		v := *validation
		r.validation = &v
	}
	return nil
}

// Fail records info and moves to FAILED.
func (r *RestoreRecord) Fail(info ErrorInfo, at time.Time) error {
	if r.status.IsTerminal() {
		return NewError(KindInvalidTransition, "restore.fail",
			fmt.Sprintf("restore %s already %s", r.id, r.status))
	}
	r.status = RestoreFailed
	r.endTime = &at
	r.failure = &info
	return nil
}

// Rollback is allowed from any intermediate phase and from FAILED.
func (r *RestoreRecord) Rollback(at time.Time) error {
	if r.status == RestoreCompleted || r.status == RestoreRolledBack {
		return NewError(KindInvalidTransition, "restore.rollback",
			fmt.Sprintf("restore %s already %s", r.id, r.status))
	}
	r.status = RestoreRolledBack
	r.endTime = &at
	return nil
}

// Clone returns a deep copy.
func (r RestoreRecord) Clone() RestoreRecord {
	c := r
	if r.endTime != nil {
		t := *r.endTime
		c.endTime = &t
	}
	if r.validation != nil {
		v := *r.validation
		v.Errors = append([]string(nil), r.validation.Errors...)
		c.validation = &v
	}
	if r.failure != nil {
		e := *r.failure
		c.failure = &e
	}
	return c
}

type restoreRecordJSON struct {
	ID                   string            `json:"id"`
	JobID                string            `json:"job_id"`
	SourceBackupID       string            `json:"source_backup_id"`
	PreRestoreSnapshotID string            `json:"pre_restore_snapshot_id,omitempty"`
	Status               RestoreStatus     `json:"status"`
	StartTime            time.Time         `json:"start_time"`
	EndTime              *time.Time        `json:"end_time,omitempty"`
	Validation           *ValidationResult `json:"validation,omitempty"`
	Error                *ErrorInfo        `json:"error,omitempty"`
}

func (r RestoreRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(restoreRecordJSON{
		ID:                   r.id,
		JobID:                r.jobID,
		SourceBackupID:       r.sourceBackupID,
		PreRestoreSnapshotID: r.preRestoreSnapshotID,
		Status:               r.status,
		StartTime:            r.startTime,
		EndTime:              r.endTime,
		Validation:           r.validation,
		Error:                r.failure,
	})
}
