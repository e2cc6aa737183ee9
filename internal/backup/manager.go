// Redis Backup Service - Scheduled Redis Snapshots, Retention and Restore
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/redisbackup

/*
manager.go - Backup Manager

The Manager composes the BackupJob, the RetentionPolicy and the external
collaborators (Redis gateway, file storage, repository, metrics, events) into
the backup and restore workflows.

Concurrency:
  - The BackupJob is the only single-flight gate. StartBackup and ExecuteBackup
    acquire it before anything is registered, so a losing caller sees an
    AlreadyRunning error and leaves no trace.
  - Record history lives in the Repository, which is safe for concurrent
    status and list reads while a workflow writes.
  - Restore records are held by the Manager under restoresMu.
*/

//nolint:staticcheck // File documentation, not package doc
package backup

import (
	"context"
	"sync"
	"time"

	"github.com/tomtom215/redisbackup/internal/logging"
)

// DefaultSnapshotTimeout bounds the wait for BGSAVE to finish.
const DefaultSnapshotTimeout = 300 * time.Second

// ManagerConfig holds the Manager's own settings.
type ManagerConfig struct {
	Job             *BackupJob
	Policy          RetentionPolicy
	SnapshotTimeout time.Duration

	// Now defaults to time.Now. Tests inject a fixed clock.
	Now func() time.Time
}

// Dependencies are the collaborators the Manager drives. Store, Files and
// Repository are required.
type Dependencies struct {
	Store      StoreGateway
	Files      FileStorage
	Repository Repository
	Metrics    MetricsSink
	Events     EventPublisher
}

// Manager orchestrates backup, restore and retention cleanup.
type Manager struct {
	job             *BackupJob
	policy          RetentionPolicy
	snapshotTimeout time.Duration
	now             func() time.Time

	store   StoreGateway
	files   FileStorage
	repo    Repository
	metrics MetricsSink
	events  EventPublisher

	restoresMu   sync.RWMutex
	restores     map[string]RestoreRecord
	restoreOrder []string

	// gateMu orders gate acquisition between backups and restores. A restore
	// excludes every backup except its own pre-restore snapshot.
	gateMu    sync.Mutex
	restoring bool

	// inflight tracks detached workflows started by StartBackup.
	inflight sync.WaitGroup

	// inflightFile is the backup file currently being written, hidden from
	// ListBackups until its record completes.
	inflightMu   sync.Mutex
	inflightFile string

	// adoptMu serializes ListBackups so concurrent listings never adopt the
	// same orphan file twice.
	adoptMu sync.Mutex
}

// NewManager validates cfg and deps.
func NewManager(cfg ManagerConfig, deps Dependencies) (*Manager, error) {
	if cfg.Job == nil {
		return nil, NewError(KindConfiguration, "manager.new", "backup job is required")
	}
	if deps.Store == nil || deps.Files == nil || deps.Repository == nil {
		return nil, NewError(KindConfiguration, "manager.new", "store, file storage and repository are required")
	}
	if cfg.Policy.minBackups == 0 {
		cfg.Policy = DefaultRetentionPolicy()
	}
	if cfg.SnapshotTimeout <= 0 {
		cfg.SnapshotTimeout = DefaultSnapshotTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if deps.Metrics == nil {
		deps.Metrics = noopMetrics{}
	}
	if deps.Events == nil {
		deps.Events = noopPublisher{}
	}

	return &Manager{
		job:             cfg.Job,
		policy:          cfg.Policy,
		snapshotTimeout: cfg.SnapshotTimeout,
		now:             cfg.Now,
		store:           deps.Store,
		files:           deps.Files,
		repo:            deps.Repository,
		metrics:         deps.Metrics,
		events:          deps.Events,
		restores:        make(map[string]RestoreRecord),
	}, nil
}

// Job returns the backup aggregate.
func (m *Manager) Job() *BackupJob {
	return m.job
}

// Policy returns the retention policy in use.
func (m *Manager) Policy() RetentionPolicy {
	return m.policy
}

// IsRunning reports whether a backup or a restore is in progress.
func (m *Manager) IsRunning() bool {
	return m.job.IsRunning() || m.IsRestoring()
}

// IsRestoring reports whether a restore is in progress.
func (m *Manager) IsRestoring() bool {
	m.gateMu.Lock()
	defer m.gateMu.Unlock()
	return m.restoring
}

// beginRestore claims the restore slot. It fails while another restore or any
// backup is running.
func (m *Manager) beginRestore() error {
	m.gateMu.Lock()
	defer m.gateMu.Unlock()
	if m.restoring {
		return NewError(KindAlreadyRunning, "restore.start", "a restore is already in progress")
	}
	if m.job.IsRunning() {
		return NewError(KindAlreadyRunning, "restore.start", "a backup is in progress")
	}
	m.restoring = true
	return nil
}

func (m *Manager) endRestore() {
	m.gateMu.Lock()
	defer m.gateMu.Unlock()
	m.restoring = false
}

// Wait blocks until every backup started by StartBackup has finished or ctx
// is done.
func (m *Manager) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		m.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// publish is best effort: a failed publication is logged and dropped.
func (m *Manager) publish(ctx context.Context, event Event) {
	if err := m.events.Publish(ctx, event); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("topic", event.Topic()).Msg("Failed to publish event")
	}
}

// save persists rec under taskID. Repository failures are logged; the
// workflow carries on since the record in hand is still authoritative.
func (m *Manager) save(ctx context.Context, taskID string, rec BackupRecord) {
	if err := m.repo.Save(ctx, taskID, rec.Clone()); err != nil {
		logging.Ctx(ctx).Error().Err(err).
			Str("task_id", taskID).
			Str("record_id", rec.ID()).
			Msg("Failed to save backup record")
	}
}

func (m *Manager) setInflightFilename(name string) {
	m.inflightMu.Lock()
	defer m.inflightMu.Unlock()
	m.inflightFile = name
}

func (m *Manager) inflightFilename() string {
	m.inflightMu.Lock()
	defer m.inflightMu.Unlock()
	return m.inflightFile
}

func (m *Manager) base(now time.Time) EventBase {
	return EventBase{Timestamp: now}
}
