// Redis Backup Service - Scheduled Redis Snapshots, Retention and Restore
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/redisbackup

package api

import (
	"context"

	"github.com/tomtom215/redisbackup/internal/backup"
	"github.com/tomtom215/redisbackup/internal/health"
)

// BackupService is the part of backup.Manager the handlers call.
type BackupService interface {
	StartBackup(ctx context.Context, label string, trigger backup.TriggerType) (string, error)
	TaskStatus(ctx context.Context, taskID string) (backup.BackupRecord, error)
	ListBackups(ctx context.Context) ([]backup.BackupRecord, error)
	MarkImportant(ctx context.Context, recordID string) (backup.BackupRecord, error)
	BackupExists(filename string) bool
	IsRunning() bool
	ExecuteRestore(ctx context.Context, taskID, backupFile string, opts backup.RestoreOptions) (backup.RestoreRecord, error)
	RestoreStatus(taskID string) (backup.RestoreRecord, error)
}

// HealthChecker produces the /health report.
type HealthChecker interface {
	Check(ctx context.Context) health.Report
}

// ServiceInfo is returned at the root path.
type ServiceInfo struct {
	Service string `json:"service"`
	Version string `json:"version"`
	Health  string `json:"health"`
	Metrics string `json:"metrics"`
}

// Handler implements every endpoint.
type Handler struct {
	backups BackupService
	health  HealthChecker
	info    ServiceInfo
	newID   func() string
}

// NewHandler creates a handler. version is reported at the root path.
func NewHandler(backups BackupService, healthChecker HealthChecker, version string) *Handler {
	return &Handler{
		backups: backups,
		health:  healthChecker,
		info: ServiceInfo{
			Service: "Redis Backup Service",
			Version: version,
			Health:  "/health",
			Metrics: "/metrics",
		},
		newID: backup.NewTaskID,
	}
}
