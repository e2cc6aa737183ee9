// Redis Backup Service - Scheduled Redis Snapshots, Retention and Restore
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/redisbackup

//go:build linux || darwin

package filestore

import (
	"syscall"

	"github.com/tomtom215/redisbackup/internal/backup"
)

func diskUsage(path string) (backup.StorageStatus, error) {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(path, &stat); err != nil {
		return backup.StorageStatus{}, err
	}
	bsize := uint64(stat.Bsize) //nolint:gosec // block size is positive
	total := stat.Blocks * bsize
	free := stat.Bfree * bsize
	return backup.StorageStatus{
		Total:     total,
		Used:      total - free,
		Available: stat.Bavail * bsize,
	}, nil
}
