// Redis Backup Service - Scheduled Redis Snapshots, Retention and Restore
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/redisbackup

package config

import (
	"time"

	"github.com/tomtom215/redisbackup/internal/backup"
	"github.com/tomtom215/redisbackup/internal/logging"
)

// Config is the complete service configuration.
type Config struct {
	Redis     RedisConfig     `koanf:"redis"`
	Storage   StorageConfig   `koanf:"storage"`
	Schedule  ScheduleConfig  `koanf:"schedule"`
	Retention RetentionConfig `koanf:"retention"`
	History   HistoryConfig   `koanf:"history"`
	Server    ServerConfig    `koanf:"server"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// RedisConfig locates the Redis instance being backed up.
type RedisConfig struct {
	Host     string `koanf:"host" validate:"required"`
	Port     int    `koanf:"port" validate:"min=1,max=65535"`
	Password string `koanf:"password"`
	Database int    `koanf:"database" validate:"gte=0"`

	// DataPath is the Redis data directory as seen by this process. Restores
	// write the dump file here.
	DataPath string `koanf:"data_path" validate:"required"`

	SocketTimeout   time.Duration `koanf:"socket_timeout" validate:"gt=0"`
	SnapshotTimeout time.Duration `koanf:"snapshot_timeout" validate:"gt=0"`
	PollInterval    time.Duration `koanf:"poll_interval" validate:"gt=0"`
}

// StorageConfig describes the backup directory.
type StorageConfig struct {
	BackupPath   string `koanf:"backup_path" validate:"required"`
	MinFreeSpace uint64 `koanf:"min_free_space"`

	// LowSpacePercent is the usage above which health reports degraded.
	LowSpacePercent float64 `koanf:"low_space_percent" validate:"gt=0,lte=100"`
}

// ScheduleConfig holds the automatic backup schedule.
type ScheduleConfig struct {
	Expression string `koanf:"expression" validate:"required"`
	Timezone   string `koanf:"timezone" validate:"required"`
	Enabled    bool   `koanf:"enabled"`
}

// RetentionConfig holds retention policy parameters.
type RetentionConfig struct {
	Days            int      `koanf:"days" validate:"gte=0"`
	MaxBackups      int      `koanf:"max_backups" validate:"gte=1"`
	MinBackups      int      `koanf:"min_backups" validate:"gte=1"`
	ProtectedLabels []string `koanf:"protected_labels"`
}

// HistoryConfig selects where backup records are kept.
type HistoryConfig struct {
	Store string `koanf:"store" validate:"oneof=memory badger"`
	Path  string `koanf:"path"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host              string        `koanf:"host"`
	Port              int           `koanf:"port" validate:"min=1,max=65535"`
	Timeout           time.Duration `koanf:"timeout" validate:"gt=0"`
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs" validate:"gte=1"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window" validate:"gt=0"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`

	// HealthInterval paces the background health monitor.
	HealthInterval time.Duration `koanf:"health_interval" validate:"gt=0"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	// Level is the minimum log level, any zerolog level name in any case.
	Level string `koanf:"level" validate:"required"`

	// Format is json or console.
	Format string `koanf:"format" validate:"oneof=json console"`

	// Caller adds file:line to each entry.
	Caller bool `koanf:"caller"`
}

// LoggingOptions converts to logging.Config.
func (c *Config) LoggingOptions() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = c.Logging.Level
	cfg.Format = c.Logging.Format
	cfg.Caller = c.Logging.Caller
	return cfg
}

// RedisConnection converts to the domain connection type.
func (c *Config) RedisConnection() (backup.RedisConnection, error) {
	return backup.NewRedisConnection(c.Redis.Host, c.Redis.Port, c.Redis.Password, c.Redis.Database)
}

// BackupSchedule parses the cron expression in the configured time zone.
func (c *Config) BackupSchedule() (backup.Schedule, error) {
	return backup.NewScheduleInZone(c.Schedule.Expression, c.Schedule.Timezone)
}

// BackupJob builds the backup job from the Redis, schedule and storage
// settings.
func (c *Config) BackupJob() (*backup.BackupJob, error) {
	schedule, err := c.BackupSchedule()
	if err != nil {
		return nil, err
	}
	conn, err := c.RedisConnection()
	if err != nil {
		return nil, err
	}
	return backup.NewBackupJob(schedule, conn, backup.StorageConfig{
		BackupPath:   c.Storage.BackupPath,
		MinFreeSpace: c.Storage.MinFreeSpace,
	})
}

// RetentionPolicy builds the retention policy.
func (c *Config) RetentionPolicy() (backup.RetentionPolicy, error) {
	return backup.NewRetentionPolicy(c.Retention.Days, c.Retention.MaxBackups,
		c.Retention.MinBackups, c.Retention.ProtectedLabels...)
}
