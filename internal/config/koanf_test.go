// Redis Backup Service - Scheduled Redis Snapshots, Retention and Restore
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/redisbackup

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tomtom215/redisbackup/internal/backup"
)

// isolate runs the test from an empty directory with no CONFIG_PATH, so no
// stray config file is picked up.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv(ConfigPathEnvVar, "")
	return dir
}

// TestDefaultConfig verifies that defaultConfig() returns proper defaults
func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Redis.Host != "redis" || cfg.Redis.Port != 6379 {
		t.Errorf("Redis = %s:%d, want redis:6379", cfg.Redis.Host, cfg.Redis.Port)
	}
	if cfg.Redis.SnapshotTimeout != 300*time.Second {
		t.Errorf("Redis.SnapshotTimeout = %v, want 5m", cfg.Redis.SnapshotTimeout)
	}
	if cfg.Storage.MinFreeSpace != 100*1024*1024 {
		t.Errorf("Storage.MinFreeSpace = %d, want 100MiB", cfg.Storage.MinFreeSpace)
	}
	if cfg.Schedule.Expression != "0 2 * * *" || !cfg.Schedule.Enabled {
		t.Errorf("Schedule = %+v", cfg.Schedule)
	}
	if cfg.Retention.Days != 7 || cfg.Retention.MaxBackups != 30 || cfg.Retention.MinBackups != 3 {
		t.Errorf("Retention = %+v", cfg.Retention)
	}
	if cfg.Server.Port != 8000 || cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Server = %s:%d", cfg.Server.Host, cfg.Server.Port)
	}
	if cfg.History.Store != "memory" {
		t.Errorf("History.Store = %q", cfg.History.Store)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults do not validate: %v", err)
	}
}

func TestEnvTransformFunc(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"REDIS_HOST", "redis.host"},
		{"REDIS_PASSWORD", "redis.password"},
		{"BGSAVE_TIMEOUT", "redis.snapshot_timeout"},
		{"BACKUP_PATH", "storage.backup_path"},
		{"MIN_FREE_SPACE", "storage.min_free_space"},
		{"BACKUP_SCHEDULE", "schedule.expression"},
		{"RETENTION_DAYS", "retention.days"},
		{"PROTECTED_LABELS", "retention.protected_labels"},
		{"HISTORY_STORE", "history.store"},
		{"HTTP_PORT", "server.port"},
		{"DISABLE_RATE_LIMIT", "server.rate_limit_disabled"},
		{"LOG_LEVEL", "logging.level"},

		// Unknown (should return empty)
		{"RANDOM_VAR", ""},
		{"PATH", ""},
		{"HOME", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := envTransformFunc(tt.input); got != tt.expected {
				t.Errorf("envTransformFunc(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

// TestFindConfigFile verifies config file discovery
func TestFindConfigFile(t *testing.T) {
	dir := isolate(t)

	if got := findConfigFile(); got != "" {
		t.Errorf("findConfigFile() = %q, want empty", got)
	}

	if err := os.WriteFile(filepath.Join(dir, "config.yml"), []byte("redis: {}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := findConfigFile(); got != "config.yml" {
		t.Errorf("findConfigFile() = %q, want config.yml", got)
	}

	custom := filepath.Join(dir, "custom.yaml")
	if err := os.WriteFile(custom, []byte("redis: {}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(ConfigPathEnvVar, custom)
	if got := findConfigFile(); got != custom {
		t.Errorf("findConfigFile() = %q, want %q", got, custom)
	}

	// A missing CONFIG_PATH falls back to the default search.
	t.Setenv(ConfigPathEnvVar, filepath.Join(dir, "missing.yaml"))
	if got := findConfigFile(); got != "config.yml" {
		t.Errorf("findConfigFile() = %q, want config.yml", got)
	}
}

// TestLoadEnvVars tests loading configuration from environment variables
func TestLoadEnvVars(t *testing.T) {
	isolate(t)

	t.Setenv("REDIS_HOST", "cache.internal")
	t.Setenv("REDIS_PORT", "6380")
	t.Setenv("BGSAVE_TIMEOUT", "2m")
	t.Setenv("MIN_FREE_SPACE", "1048576")
	t.Setenv("BACKUP_SCHEDULE", "*/15 * * * *")
	t.Setenv("SCHEDULE_ENABLED", "false")
	t.Setenv("PROTECTED_LABELS", "pre-upgrade, release ,")
	t.Setenv("HISTORY_STORE", "badger")
	t.Setenv("HTTP_PORT", "9000")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Redis.Host != "cache.internal" || cfg.Redis.Port != 6380 {
		t.Errorf("Redis = %s:%d", cfg.Redis.Host, cfg.Redis.Port)
	}
	if cfg.Redis.SnapshotTimeout != 2*time.Minute {
		t.Errorf("Redis.SnapshotTimeout = %v, want 2m", cfg.Redis.SnapshotTimeout)
	}
	if cfg.Storage.MinFreeSpace != 1048576 {
		t.Errorf("Storage.MinFreeSpace = %d", cfg.Storage.MinFreeSpace)
	}
	if cfg.Schedule.Expression != "*/15 * * * *" || cfg.Schedule.Enabled {
		t.Errorf("Schedule = %+v", cfg.Schedule)
	}
	if len(cfg.Retention.ProtectedLabels) != 2 || cfg.Retention.ProtectedLabels[1] != "release" {
		t.Errorf("Retention.ProtectedLabels = %q", cfg.Retention.ProtectedLabels)
	}
	if cfg.History.Store != "badger" {
		t.Errorf("History.Store = %q", cfg.History.Store)
	}
	if cfg.Server.Port != 9000 || cfg.Logging.Level != "debug" {
		t.Errorf("Server.Port = %d, Logging.Level = %q", cfg.Server.Port, cfg.Logging.Level)
	}

	// Defaults survive for unset values.
	if cfg.Storage.BackupPath != "/backups" {
		t.Errorf("Storage.BackupPath = %q, want /backups (default)", cfg.Storage.BackupPath)
	}
}

// TestLoadConfigFile tests loading configuration from a YAML file
func TestLoadConfigFile(t *testing.T) {
	dir := isolate(t)

	content := `
redis:
  host: redis-primary
  password: from-file
storage:
  backup_path: /mnt/backups
retention:
  days: 14
  max_backups: 10
  min_backups: 2
  protected_labels:
    - keep
server:
  port: 8080
`
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("REDIS_PASSWORD", "from-env")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Redis.Host != "redis-primary" {
		t.Errorf("Redis.Host = %q", cfg.Redis.Host)
	}
	if cfg.Redis.Password != "from-env" {
		t.Errorf("Redis.Password = %q, env should override file", cfg.Redis.Password)
	}
	if cfg.Storage.BackupPath != "/mnt/backups" || cfg.Server.Port != 8080 {
		t.Errorf("BackupPath = %q, Port = %d", cfg.Storage.BackupPath, cfg.Server.Port)
	}
	if cfg.Retention.Days != 14 || cfg.Retention.MaxBackups != 10 || cfg.Retention.MinBackups != 2 {
		t.Errorf("Retention = %+v", cfg.Retention)
	}
	if len(cfg.Retention.ProtectedLabels) != 1 || cfg.Retention.ProtectedLabels[0] != "keep" {
		t.Errorf("ProtectedLabels = %q", cfg.Retention.ProtectedLabels)
	}
	if cfg.Redis.Port != 6379 {
		t.Errorf("Redis.Port = %d, want default 6379", cfg.Redis.Port)
	}
}

func TestLoadInvalidFile(t *testing.T) {
	dir := isolate(t)

	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("redis: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(); err == nil {
		t.Error("Load() should fail on malformed YAML")
	}
}

// TestLoadValidation covers configurations that must reject startup.
func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "port out of range", env: map[string]string{"REDIS_PORT": "70000"}},
		{name: "http port zero", env: map[string]string{"HTTP_PORT": "0"}},
		{name: "bad cron", env: map[string]string{"BACKUP_SCHEDULE": "every night"}},
		{name: "unknown timezone", env: map[string]string{"BACKUP_TIMEZONE": "Mars/Olympus"}},
		{name: "min above max", env: map[string]string{"MIN_BACKUPS": "5", "MAX_BACKUPS": "2"}},
		{name: "min zero", env: map[string]string{"MIN_BACKUPS": "0"}},
		{name: "unknown history store", env: map[string]string{"HISTORY_STORE": "postgres"}},
		{name: "empty backup path", env: map[string]string{"BACKUP_PATH": ""}},
		{name: "zero snapshot timeout", env: map[string]string{"BGSAVE_TIMEOUT": "0s"}},
		{name: "bad log level", env: map[string]string{"LOG_LEVEL": "verbose"}},
		{name: "bad protected label", env: map[string]string{"PROTECTED_LABELS": "ok,not/ok"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			if err == nil {
				t.Fatal("Load() error = nil, want configuration error")
			}
			if !errors.Is(err, backup.ErrConfiguration) {
				t.Errorf("error kind = %s, want configuration: %v", backup.KindOf(err), err)
			}
		})
	}
}

func TestLoadLogLevelAnyCase(t *testing.T) {
	isolate(t)
	t.Setenv("LOG_LEVEL", "WARN")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Logging.Level != "WARN" {
		t.Errorf("Logging.Level = %q", cfg.Logging.Level)
	}
}

func TestDomainBuilders(t *testing.T) {
	cfg := defaultConfig()
	cfg.Schedule.Timezone = "Europe/Berlin"
	cfg.Retention.ProtectedLabels = []string{"keep"}

	job, err := cfg.BackupJob()
	if err != nil {
		t.Fatalf("BackupJob() error = %v", err)
	}
	if job.Connection().Addr() != "redis:6379" {
		t.Errorf("Addr() = %q", job.Connection().Addr())
	}
	if job.Storage().BackupPath != "/backups" || job.Storage().MinFreeSpace != DefaultMinFreeSpace {
		t.Errorf("Storage() = %+v", job.Storage())
	}

	policy, err := cfg.RetentionPolicy()
	if err != nil {
		t.Fatalf("RetentionPolicy() error = %v", err)
	}
	if labels := policy.ProtectedLabels(); len(labels) != 1 || labels[0] != "keep" {
		t.Errorf("ProtectedLabels() = %q", labels)
	}

	logCfg := cfg.LoggingOptions()
	if logCfg.Level != "info" || logCfg.Format != "json" || !logCfg.Timestamp {
		t.Errorf("LoggingOptions() = %+v", logCfg)
	}
}
