// Redis Backup Service - Scheduled Redis Snapshots, Retention and Restore
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/redisbackup

package backup

import (
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func TestNewRedisConnection(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		port    int
		wantErr bool
	}{
		{"default port", 6379, false},
		{"lowest", 1, false},
		{"highest", 65535, false},
		{"zero", 0, true},
		{"too high", 65536, true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewRedisConnection("redis", tt.port, "", 0)
			if tt.wantErr && !errors.Is(err, ErrConfiguration) {
				t.Errorf("expected configuration error, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error %v", err)
			}
		})
	}
}

func TestRedisConnectionString(t *testing.T) {
	t.Parallel()

	c, err := NewRedisConnection("redis", 6379, "", 0)
	if err != nil {
		t.Fatal(err)
	}
	if got := c.ConnectionString(); got != "redis://redis:6379/0" {
		t.Errorf("ConnectionString = %q", got)
	}

	c, err = NewRedisConnection("cache.local", 6380, "secret", 2)
	if err != nil {
		t.Fatal(err)
	}
	if got := c.ConnectionString(); got != "redis://:secret@cache.local:6380/2" {
		t.Errorf("ConnectionString = %q", got)
	}
	if c.Addr() != "cache.local:6380" {
		t.Errorf("Addr = %q", c.Addr())
	}
}

func TestStorageConfigHasEnoughSpace(t *testing.T) {
	t.Parallel()

	s := StorageConfig{BackupPath: "/backups", MinFreeSpace: DefaultMinFreeSpace}
	if !s.HasEnoughSpace(DefaultMinFreeSpace) {
		t.Error("exactly the minimum should be enough")
	}
	if s.HasEnoughSpace(DefaultMinFreeSpace - 1) {
		t.Error("one byte under the minimum should not be enough")
	}
}

func TestNewBackupFileName(t *testing.T) {
	t.Parallel()

	ts := time.Date(2024, 1, 15, 2, 0, 5, 0, time.UTC)
	f := NewBackupFile(ts, "", "/backups")
	if f.Filename != "redis_backup_20240115_020005.rdb" {
		t.Errorf("Filename = %q", f.Filename)
	}
	if f.Path != filepath.Join("/backups", f.Filename) {
		t.Errorf("Path = %q", f.Path)
	}

	f = NewBackupFile(ts, "pre-restore", "/backups")
	if f.Filename != "redis_backup_20240115_020005_pre-restore.rdb" {
		t.Errorf("labelled Filename = %q", f.Filename)
	}
	if f.Size != 0 || f.Checksum != "" {
		t.Error("new file should have no metadata")
	}
}

func TestBackupFileWithMetadata(t *testing.T) {
	t.Parallel()

	base := NewBackupFile(time.Now(), "", "/b")
	withMeta := base.WithMetadata(2048, "abc")
	if base.Size != 0 || base.Checksum != "" {
		t.Error("WithMetadata must not modify the receiver")
	}
	if withMeta.Size != 2048 || withMeta.Checksum != "abc" {
		t.Errorf("WithMetadata = %+v", withMeta)
	}
	if !withMeta.ValidateChecksum("abc") || withMeta.ValidateChecksum("abd") {
		t.Error("ValidateChecksum mismatch")
	}
	if base.ValidateChecksum("") {
		t.Error("empty checksum should never validate")
	}
}

func TestErrorInfoWithRetry(t *testing.T) {
	t.Parallel()

	e := ErrorInfo{Code: "BACKUP_FAILED", Message: "boom"}
	r := e.WithRetry().WithRetry()
	if e.RetryCount != 0 {
		t.Error("WithRetry must return a copy")
	}
	if r.RetryCount != 2 {
		t.Errorf("RetryCount = %d, want 2", r.RetryCount)
	}
	if r != (ErrorInfo{Code: "BACKUP_FAILED", Message: "boom", RetryCount: 2}) {
		t.Error("value equality expected")
	}
}

func TestBackupMetadataMarkImportant(t *testing.T) {
	t.Parallel()

	m := BackupMetadata{Label: "x", Tags: map[string]string{"env": "prod"}}
	m2 := m.MarkImportant()
	if m.IsImportant {
		t.Error("MarkImportant must return a copy")
	}
	if !m2.IsImportant {
		t.Error("copy should be important")
	}
	m2.Tags["env"] = "dev"
	if m.Tags["env"] != "prod" {
		t.Error("tags must not be shared between copies")
	}
}

func TestStorageStatus(t *testing.T) {
	t.Parallel()

	const gib = 1 << 30
	tests := []struct {
		name      string
		status    StorageStatus
		wantPct   float64
		wantLow   bool
		wantAvail string
	}{
		{"empty disk", StorageStatus{}, 0, false, "0.00 MB"},
		{"half used", StorageStatus{Total: 10 * gib, Used: 5 * gib, Available: 5 * gib}, 50, false, "5.00 GB"},
		{"exactly threshold", StorageStatus{Total: 100, Used: 85, Available: 15}, 85, true, "0.00 MB"},
		{"nearly full", StorageStatus{Total: 10 * gib, Used: 9*gib + 512<<20, Available: 512 << 20}, 95, true, "512.00 MB"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.status.UsagePercent(); got != tt.wantPct {
				t.Errorf("UsagePercent = %v, want %v", got, tt.wantPct)
			}
			if got := tt.status.IsLow(DefaultLowSpacePercent); got != tt.wantLow {
				t.Errorf("IsLow = %v, want %v", got, tt.wantLow)
			}
			if got := tt.status.FormatAvailable(); got != tt.wantAvail {
				t.Errorf("FormatAvailable = %q, want %q", got, tt.wantAvail)
			}
		})
	}
}
