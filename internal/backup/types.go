// Redis Backup Service - Scheduled Redis Snapshots, Retention and Restore
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/redisbackup

package backup

import (
	"fmt"
	"net"
	"net/url"
	"path/filepath"
	"strconv"
	"time"
)

// TriggerType records what started a backup.
type TriggerType string

const (
	TriggerScheduled  TriggerType = "SCHEDULED"
	TriggerManual     TriggerType = "MANUAL"
	TriggerPreRestore TriggerType = "PRE_RESTORE"
)

const (
	// BackupFilePrefix and BackupFileExt form the on-disk naming contract
	// redis_backup_YYYYMMDD_HHMMSS[_label].rdb.
	BackupFilePrefix = "redis_backup"
	BackupFileExt    = ".rdb"

	backupTimestampLayout = "20060102_150405"

	// PreRestoreLabel tags the safety snapshot taken before a restore.
	PreRestoreLabel = "pre-restore"

	// DefaultMinFreeSpace is the free space required before a backup may run.
	DefaultMinFreeSpace uint64 = 100 * 1024 * 1024

	// DefaultLowSpacePercent is the usage at which storage is reported low.
	DefaultLowSpacePercent = 85.0
)

// RedisConnection describes how to reach the Redis instance.
type RedisConnection struct {
	Host     string
	Port     int
	Password string
	Database int
}

// NewRedisConnection validates the port range 1..65535.
func NewRedisConnection(host string, port int, password string, database int) (RedisConnection, error) {
	if port < 1 || port > 65535 {
		return RedisConnection{}, NewError(KindConfiguration, "redis.connection",
			fmt.Sprintf("invalid port: %d", port))
	}
	if host == "" {
		return RedisConnection{}, NewError(KindConfiguration, "redis.connection", "host is required")
	}
	if database < 0 {
		return RedisConnection{}, NewError(KindConfiguration, "redis.connection",
			fmt.Sprintf("invalid database: %d", database))
	}
	return RedisConnection{Host: host, Port: port, Password: password, Database: database}, nil
}

// Addr returns host:port.
func (c RedisConnection) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// ConnectionString returns redis://[:password@]host:port/db.
func (c RedisConnection) ConnectionString() string {
	u := url.URL{Scheme: "redis", Host: c.Addr(), Path: "/" + strconv.Itoa(c.Database)}
	if c.Password != "" {
		u.User = url.UserPassword("", c.Password)
	}
	return u.String()
}

// StorageConfig holds the backup directory and the free-space floor.
type StorageConfig struct {
	BackupPath   string
	MinFreeSpace uint64
}

// HasEnoughSpace reports whether available meets the configured minimum.
func (s StorageConfig) HasEnoughSpace(available uint64) bool {
	return available >= s.MinFreeSpace
}

// BackupFile describes a snapshot file in the backup directory.
type BackupFile struct {
	Filename string `json:"filename"`
	Path     string `json:"path"`
	Size     int64  `json:"size"`
	Checksum string `json:"checksum,omitempty"`
}

// NewBackupFile derives the file name from ts and the optional label. Size and
// checksum stay empty until WithMetadata.
func NewBackupFile(ts time.Time, label, dir string) BackupFile {
	name := BackupFilePrefix + "_" + ts.Format(backupTimestampLayout)
	if label != "" {
		name += "_" + label
	}
	name += BackupFileExt
	return BackupFile{Filename: name, Path: filepath.Join(dir, name)}
}

// WithMetadata returns a copy with size and checksum attached.
func (f BackupFile) WithMetadata(size int64, checksum string) BackupFile {
	f.Size = size
	f.Checksum = checksum
	return f
}

// ValidateChecksum reports whether the stored checksum equals expected.
func (f BackupFile) ValidateChecksum(expected string) bool {
	return f.Checksum != "" && f.Checksum == expected
}

// ErrorInfo is the structured failure attached to a record.
type ErrorInfo struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StackTrace string `json:"stack_trace,omitempty"`
	RetryCount int    `json:"retry_count"`
}

// WithRetry returns a copy with RetryCount incremented.
func (e ErrorInfo) WithRetry() ErrorInfo {
	e.RetryCount++
	return e
}

// BackupMetadata annotates a backup record.
type BackupMetadata struct {
	Label       string            `json:"label,omitempty"`
	TriggerType TriggerType       `json:"trigger_type"`
	IsImportant bool              `json:"is_important"`
	Tags        map[string]string `json:"tags,omitempty"`
}

// MarkImportant returns a copy flagged as important.
func (m BackupMetadata) MarkImportant() BackupMetadata {
	m = m.clone()
	m.IsImportant = true
	return m
}

func (m BackupMetadata) clone() BackupMetadata {
	if m.Tags != nil {
		tags := make(map[string]string, len(m.Tags))
		for k, v := range m.Tags {
			tags[k] = v
		}
		m.Tags = tags
	}
	return m
}

// StorageStatus is a disk usage reading for the backup directory.
type StorageStatus struct {
	Total     uint64 `json:"total"`
	Used      uint64 `json:"used"`
	Available uint64 `json:"available"`
}

// UsagePercent is 0 when Total is 0.
func (s StorageStatus) UsagePercent() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Used) * 100 / float64(s.Total)
}

// IsLow reports whether usage has reached thresholdPercent.
func (s StorageStatus) IsLow(thresholdPercent float64) bool {
	return s.UsagePercent() >= thresholdPercent
}

// FormatAvailable renders Available as "%.2f GB" from 1 GiB upward, else "%.2f MB".
func (s StorageStatus) FormatAvailable() string {
	const gib = 1 << 30
	const mib = 1 << 20
	if s.Available >= gib {
		return fmt.Sprintf("%.2f GB", float64(s.Available)/gib)
	}
	return fmt.Sprintf("%.2f MB", float64(s.Available)/mib)
}

// ValidationResult summarizes the post-restore sanity check.
type ValidationResult struct {
	IsValid     bool     `json:"is_valid"`
	KeyCount    int64    `json:"key_count"`
	MemoryUsage int64    `json:"memory_usage"`
	Errors      []string `json:"errors,omitempty"`
}

// StoredFile is one snapshot file as reported by FileStorage.
type StoredFile struct {
	Filename  string    `json:"filename"`
	Path      string    `json:"path"`
	Size      int64     `json:"size"`
	Checksum  string    `json:"checksum"`
	CreatedAt time.Time `json:"created_at"`
}

// BackupFile converts the listing entry into a file descriptor.
func (f StoredFile) BackupFile() BackupFile {
	return BackupFile{Filename: f.Filename, Path: f.Path, Size: f.Size, Checksum: f.Checksum}
}
