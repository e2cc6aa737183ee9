// Redis Backup Service - Scheduled Redis Snapshots, Retention and Restore
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/redisbackup

package backup

import (
	"fmt"
	"sync"
	"time"
)

// JobStatus is the run state of a BackupJob.
type JobStatus string

const (
	JobIdle      JobStatus = "IDLE"
	JobRunning   JobStatus = "RUNNING"
	JobCompleted JobStatus = "COMPLETED"
	JobFailed    JobStatus = "FAILED"
	JobCancelled JobStatus = "CANCELLED"
)

// Reasons returned by CanExecute.
const (
	ReasonAlreadyRunning    = "Job is already running"
	ReasonRedisDisconnected = "Redis is not connected"
	ReasonInsufficientSpace = "Insufficient storage space"
)

// BackupJob is the process-wide backup aggregate. Start is the single-flight
// gate: acquisition and the running check happen under one lock, so exactly one
// of any number of concurrent callers wins.
type BackupJob struct {
	mu              sync.Mutex
	id              string
	schedule        Schedule
	connection      RedisConnection
	storage         StorageConfig
	status          JobStatus
	currentRecordID string
}

// NewBackupJob creates an IDLE job.
func NewBackupJob(schedule Schedule, connection RedisConnection, storage StorageConfig) (*BackupJob, error) {
	if schedule.IsZero() {
		return nil, NewError(KindConfiguration, "job.new", "schedule is required")
	}
	if storage.BackupPath == "" {
		return nil, NewError(KindConfiguration, "job.new", "backup path is required")
	}
	return &BackupJob{
		id:         NewJobID(),
		schedule:   schedule,
		connection: connection,
		storage:    storage,
		status:     JobIdle,
	}, nil
}

func (j *BackupJob) ID() string {
	return j.id
}

func (j *BackupJob) Connection() RedisConnection {
	return j.connection
}

func (j *BackupJob) Storage() StorageConfig {
	return j.storage
}

func (j *BackupJob) Schedule() Schedule {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.schedule
}

func (j *BackupJob) Status() JobStatus {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.status
}

// CurrentRecordID is "" while idle.
func (j *BackupJob) CurrentRecordID() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.currentRecordID
}

func (j *BackupJob) IsRunning() bool {
	return j.Status() == JobRunning
}

// Start moves the job to RUNNING for recordID. A second Start before Complete
// or Fail returns an AlreadyRunning error and changes nothing.
func (j *BackupJob) Start(recordID string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status == JobRunning {
		return NewError(KindAlreadyRunning, "job.start",
			fmt.Sprintf("backup %s is already running", j.currentRecordID))
	}
	j.status = JobRunning
	j.currentRecordID = recordID
	return nil
}

// Complete releases the job after a successful run.
func (j *BackupJob) Complete() {
	j.release()
}

// Fail releases the job after a failed run.
func (j *BackupJob) Fail() {
	j.release()
}

func (j *BackupJob) release() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.status = JobIdle
	j.currentRecordID = ""
}

// CanExecute applies the preconditions in order; the first failure wins.
func (j *BackupJob) CanExecute(redisConnected bool, availableSpace uint64) (bool, string) {
	if j.IsRunning() {
		return false, ReasonAlreadyRunning
	}
	if !redisConnected {
		return false, ReasonRedisDisconnected
	}
	if !j.storage.HasEnoughSpace(availableSpace) {
		return false, ReasonInsufficientSpace
	}
	return true, ""
}

// ShouldExecuteAt is false while running, otherwise the schedule decides.
func (j *BackupJob) ShouldExecuteAt(t time.Time) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status == JobRunning {
		return false
	}
	return j.schedule.IsTriggeredAt(t)
}

// Reschedule swaps the schedule. The scheduler picks it up on its next loop.
func (j *BackupJob) Reschedule(schedule Schedule) error {
	if schedule.IsZero() {
		return NewError(KindConfiguration, "job.reschedule", "schedule is required")
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	j.schedule = schedule
	return nil
}

// NextBackupTime is the first trigger instant after t.
func (j *BackupJob) NextBackupTime(t time.Time) time.Time {
	return j.Schedule().NextAfter(t)
}
