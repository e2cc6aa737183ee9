// Redis Backup Service - Scheduled Redis Snapshots, Retention and Restore
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/redisbackup

package backup_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/tomtom215/redisbackup/internal/backup"
)

// mockStore is a StoreGateway with overridable behaviour. Nil funcs succeed.
type mockStore struct {
	connected      func() bool
	beginSnapshot  func(ctx context.Context) error
	waitSnapshot   func(ctx context.Context, timeout time.Duration) error
	sourcePath     func(ctx context.Context) (string, error)
	info           func(ctx context.Context, section string) (map[string]string, error)
	snapshotsTaken int
	mu             sync.Mutex
}

func (m *mockStore) TestConnection(context.Context) bool {
	if m.connected == nil {
		return true
	}
	return m.connected()
}

func (m *mockStore) BeginSnapshot(ctx context.Context) error {
	m.mu.Lock()
	m.snapshotsTaken++
	m.mu.Unlock()
	if m.beginSnapshot == nil {
		return nil
	}
	return m.beginSnapshot(ctx)
}

func (m *mockStore) WaitForSnapshotDone(ctx context.Context, timeout time.Duration) error {
	if m.waitSnapshot == nil {
		return nil
	}
	return m.waitSnapshot(ctx, timeout)
}

func (m *mockStore) SnapshotSourcePath(ctx context.Context) (string, error) {
	if m.sourcePath == nil {
		return "/data/dump.rdb", nil
	}
	return m.sourcePath(ctx)
}

func (m *mockStore) Info(ctx context.Context, section string) (map[string]string, error) {
	if m.info == nil {
		switch section {
		case "keyspace":
			return map[string]string{"db0": "keys=42,expires=0,avg_ttl=0"}, nil
		case "memory":
			return map[string]string{"used_memory": "1048576"}, nil
		}
		return map[string]string{}, nil
	}
	return m.info(ctx, section)
}

// fakeFiles is an in-memory FileStorage.
type fakeFiles struct {
	mu        sync.Mutex
	files     map[string]backup.StoredFile
	restored  []string
	available uint64

	copyErr    error
	deleteErr  error
	restoreErr error

	// onCopy runs before the copy is recorded.
	onCopy func(dest string)
	// onFileInfo runs before FileInfo reads the file.
	onFileInfo func(name string)
	// onRestore runs before RestoreInto copies the file.
	onRestore func(name string)
}

func newFakeFiles() *fakeFiles {
	return &fakeFiles{files: make(map[string]backup.StoredFile), available: 10 << 30}
}

func (f *fakeFiles) add(name string, size int64, created time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[name] = backup.StoredFile{Filename: name, Path: "/backups/" + name, Size: size, Checksum: "sum-" + name, CreatedAt: created}
}

func (f *fakeFiles) has(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.files[name]
	return ok
}

func (f *fakeFiles) List(context.Context) ([]backup.StoredFile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]backup.StoredFile, 0, len(f.files))
	for _, sf := range f.files {
		out = append(out, sf)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeFiles) Exists(name string) bool {
	return f.has(name)
}

func (f *fakeFiles) Copy(_ context.Context, _ string, dest string) (string, error) {
	if f.onCopy != nil {
		f.onCopy(dest)
	}
	if f.copyErr != nil {
		return "", f.copyErr
	}
	f.add(dest, 2048, time.Now())
	return "/backups/" + dest, nil
}

func (f *fakeFiles) RestoreInto(_ context.Context, name string) error {
	if f.onRestore != nil {
		f.onRestore(name)
	}
	if f.restoreErr != nil {
		return f.restoreErr
	}
	if !f.has(name) {
		return backup.NewError(backup.KindNotFound, "fake.restore", name)
	}
	f.mu.Lock()
	f.restored = append(f.restored, name)
	f.mu.Unlock()
	return nil
}

func (f *fakeFiles) Delete(name string) (bool, error) {
	if f.deleteErr != nil {
		return false, f.deleteErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.files[name]
	delete(f.files, name)
	return ok, nil
}

func (f *fakeFiles) FileInfo(name string) (backup.StoredFile, error) {
	if f.onFileInfo != nil {
		f.onFileInfo(name)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	sf, ok := f.files[name]
	if !ok {
		return backup.StoredFile{}, backup.NewError(backup.KindNotFound, "fake.info", name)
	}
	return sf, nil
}

func (f *fakeFiles) Status() (backup.StorageStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return backup.StorageStatus{Total: 20 << 30, Used: 20<<30 - f.available, Available: f.available}, nil
}

// mockMetrics records every call.
type mockMetrics struct {
	mu        sync.Mutex
	successes int
	failures  int
	lastSize  int64
	count     int
}

func (m *mockMetrics) RecordSuccess(_ float64, size int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.successes++
	m.lastSize = size
}

func (m *mockMetrics) RecordFailure() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures++
}

func (m *mockMetrics) SetBackupCount(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count = n
}

func (m *mockMetrics) snapshot() (successes, failures, count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.successes, m.failures, m.count
}

// recordingPublisher keeps published topics in order.
type recordingPublisher struct {
	mu     sync.Mutex
	events []backup.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e backup.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) topics() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Topic())
	}
	return out
}

func (p *recordingPublisher) find(topic string) (backup.Event, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, e := range p.events {
		if e.Topic() == topic {
			return e, true
		}
	}
	return nil, false
}
