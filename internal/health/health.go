// Redis Backup Service - Scheduled Redis Snapshots, Retention and Restore
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/redisbackup

/*
health.go - Service Health Evaluation

Check combines Redis reachability, backup-volume usage and backup history
into one report:

  - unhealthy: Redis does not answer PING
  - degraded: Redis is up but storage usage is at or above the low threshold,
    or storage status cannot be read
  - healthy: everything else

RedisConnectionLost and StorageSpaceLow are published when a check first
observes the condition. They are not repeated on every poll of /health while
the condition persists.
*/

//nolint:staticcheck // File documentation, not package doc
package health

import (
	"context"
	"sync"
	"time"

	"github.com/tomtom215/redisbackup/internal/backup"
	"github.com/tomtom215/redisbackup/internal/logging"
)

// Status values.
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// DefaultLowSpacePercent is the usage at which storage counts as low.
const DefaultLowSpacePercent = 85.0

// Pinger reports Redis reachability.
type Pinger interface {
	TestConnection(ctx context.Context) bool
}

// ConnectionTracker is optionally implemented by a Pinger that remembers the
// last successful connection.
type ConnectionTracker interface {
	LastConnected() (time.Time, bool)
}

// BackupInfo is the part of backup.Manager health reads.
type BackupInfo interface {
	StorageStatus() (backup.StorageStatus, error)
	ListBackups(ctx context.Context) ([]backup.BackupRecord, error)
	LastBackupTime(ctx context.Context) (time.Time, bool)
	NextBackupTime() time.Time
}

// Report is the outcome of one health check.
type Report struct {
	Status              string     `json:"status"`
	RedisConnected      bool       `json:"redis_connected"`
	StorageAvailable    string     `json:"storage_available"`
	StorageUsagePercent float64    `json:"storage_usage_percent"`
	LastBackupTime      *time.Time `json:"last_backup_time"`
	NextBackupTime      *time.Time `json:"next_backup_time"`
	BackupCount         int        `json:"backup_count"`
}

// Healthy reports whether Status is healthy.
func (r Report) Healthy() bool {
	return r.Status == StatusHealthy
}

// Service evaluates health.
type Service struct {
	redis           Pinger
	backups         BackupInfo
	events          backup.EventPublisher
	lowSpacePercent float64
	now             func() time.Time

	mu         sync.Mutex
	redisDown  bool
	storageLow bool
}

// NewService creates a health service. A nil publisher disables events and a
// non-positive lowSpacePercent selects DefaultLowSpacePercent.
func NewService(redis Pinger, backups BackupInfo, events backup.EventPublisher, lowSpacePercent float64) *Service {
	if lowSpacePercent <= 0 {
		lowSpacePercent = DefaultLowSpacePercent
	}
	return &Service{
		redis:           redis,
		backups:         backups,
		events:          events,
		lowSpacePercent: lowSpacePercent,
		now:             time.Now,
	}
}

// Check runs every probe and returns the combined report.
func (s *Service) Check(ctx context.Context) Report {
	report := Report{RedisConnected: s.redis.TestConnection(ctx)}

	storage, storageErr := s.backups.StorageStatus()
	if storageErr != nil {
		logging.Ctx(ctx).Warn().Err(storageErr).Msg("Storage status unavailable")
		report.StorageAvailable = "unknown"
	} else {
		report.StorageAvailable = storage.FormatAvailable()
		report.StorageUsagePercent = storage.UsagePercent()
	}

	if backups, err := s.backups.ListBackups(ctx); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("Backup listing failed during health check")
	} else {
		report.BackupCount = len(backups)
	}
	if last, ok := s.backups.LastBackupTime(ctx); ok {
		report.LastBackupTime = &last
	}
	if next := s.backups.NextBackupTime(); !next.IsZero() {
		report.NextBackupTime = &next
	}

	low := storageErr == nil && storage.IsLow(s.lowSpacePercent)
	switch {
	case !report.RedisConnected:
		report.Status = StatusUnhealthy
	case low || storageErr != nil:
		report.Status = StatusDegraded
	default:
		report.Status = StatusHealthy
	}

	s.publishTransitions(ctx, report.RedisConnected, low, storage)
	return report
}

func (s *Service) publishTransitions(ctx context.Context, connected, low bool, storage backup.StorageStatus) {
	s.mu.Lock()
	lost := !connected && !s.redisDown
	becameLow := low && !s.storageLow
	s.redisDown = !connected
	s.storageLow = low
	s.mu.Unlock()

	if s.events == nil {
		return
	}
	base := backup.EventBase{Timestamp: s.now()}
	if lost {
		event := backup.RedisConnectionLost{EventBase: base, ErrorMessage: "redis did not answer PING"}
		if tracker, ok := s.redis.(ConnectionTracker); ok {
			if last, seen := tracker.LastConnected(); seen {
				event.LastConnectedTime = &last
			}
		}
		s.publish(ctx, event)
	}
	if becameLow {
		s.publish(ctx, backup.StorageSpaceLow{
			EventBase:      base,
			AvailableSpace: storage.Available,
			UsagePercent:   storage.UsagePercent(),
		})
	}
}

func (s *Service) publish(ctx context.Context, event backup.Event) {
	if err := s.events.Publish(ctx, event); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("event_type", event.Topic()).Msg("Failed to publish health event")
	}
}
