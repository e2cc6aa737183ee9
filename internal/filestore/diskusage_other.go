// Redis Backup Service - Scheduled Redis Snapshots, Retention and Restore
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/redisbackup

//go:build !linux && !darwin

package filestore

import (
	"errors"

	"github.com/tomtom215/redisbackup/internal/backup"
)

func diskUsage(string) (backup.StorageStatus, error) {
	return backup.StorageStatus{}, errors.New("disk usage is not supported on this platform")
}
