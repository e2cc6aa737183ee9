// Redis Backup Service - Scheduled Redis Snapshots, Retention and Restore
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/redisbackup

package config

import (
	"strings"

	"github.com/tomtom215/redisbackup/internal/backup"
	"github.com/tomtom215/redisbackup/internal/logging"
	"github.com/tomtom215/redisbackup/internal/validation"
)

// Validate checks field constraints, then that the schedule parses and the
// retention policy is consistent. Failures are configuration errors.
func (c *Config) Validate() error {
	if verr := validation.ValidateStruct(c); verr != nil {
		msgs := make([]string, 0, len(verr.Errors()))
		for _, fe := range verr.Errors() {
			msgs = append(msgs, fe.Error())
		}
		return backup.NewError(backup.KindConfiguration, "config.validate", strings.Join(msgs, "; "))
	}

	if !logging.ValidLevel(c.Logging.Level) {
		return backup.NewError(backup.KindConfiguration, "config.validate",
			"unknown log level "+c.Logging.Level)
	}

	for _, label := range c.Retention.ProtectedLabels {
		if !validation.IsValidLabel(label) {
			return backup.NewError(backup.KindConfiguration, "config.validate",
				"protected label "+label+" is not a valid backup label")
		}
	}

	if _, err := c.BackupSchedule(); err != nil {
		return err
	}
	if _, err := c.RetentionPolicy(); err != nil {
		return err
	}
	if _, err := c.RedisConnection(); err != nil {
		return err
	}
	return nil
}
