// Redis Backup Service - Scheduled Redis Snapshots, Retention and Restore
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/redisbackup

// Package backup implements the Redis snapshot lifecycle: the backup and restore
// records with their state machines, the single-flight BackupJob, the retention
// policy engine, and the Manager that drives the end-to-end workflows.
//
// Architecture:
//
//	┌──────────────┐     ┌─────────────────┐     ┌──────────────┐
//	│  Scheduler / │────▶│     Manager     │────▶│ StoreGateway │ (Redis)
//	│  HTTP API    │     └─────────────────┘     └──────────────┘
//	└──────────────┘        │     │     │
//	                        ▼     ▼     ▼
//	               FileStorage  Repository  MetricsSink / EventPublisher
//
// Backup workflow checkpoints (progress percent):
//
//	10  verify Redis connectivity
//	20  BGSAVE
//	40  wait for LASTSAVE to advance (bounded by the snapshot timeout)
//	60  copy the RDB file into the backup directory
//	80  size + checksum of the copy
//	100 completed, then retention cleanup
//
// A backup never returns its workflow failure to the caller; the failure is
// recorded on the BackupRecord and observed through TaskStatus. A restore
// returns its failure directly.
//
// Backup files are named redis_backup_YYYYMMDD_HHMMSS[_label].rdb.
//
// Usage:
//
//	job, _ := backup.NewBackupJob(schedule, conn, storageCfg)
//	mgr, _ := backup.NewManager(backup.ManagerConfig{Job: job, Policy: policy}, deps)
//	taskID, err := mgr.StartBackup(ctx, "nightly", backup.TriggerManual)
//	if errors.Is(err, backup.ErrAlreadyRunning) {
//	    // 409
//	}
package backup
