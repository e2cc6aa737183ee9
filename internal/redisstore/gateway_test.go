// Redis Backup Service - Scheduled Redis Snapshots, Retention and Restore
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/redisbackup

package redisstore

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tomtom215/redisbackup/internal/backup"
)

// mockClient implements Client with overridable behaviour per command.
type mockClient struct {
	pingFunc      func() error
	bgSaveFunc    func() error
	lastSaveFunc  func() (int64, error)
	configGetFunc func(parameter string) (map[string]string, error)
	infoFunc      func(section ...string) (string, error)

	pings  atomic.Int32
	closed atomic.Bool
}

func (m *mockClient) Ping(ctx context.Context) *redis.StatusCmd {
	m.pings.Add(1)
	if m.pingFunc != nil {
		return redis.NewStatusResult("", m.pingFunc())
	}
	return redis.NewStatusResult("PONG", nil)
}

func (m *mockClient) BgSave(ctx context.Context) *redis.StatusCmd {
	if m.bgSaveFunc != nil {
		return redis.NewStatusResult("", m.bgSaveFunc())
	}
	return redis.NewStatusResult("Background saving started", nil)
}

func (m *mockClient) LastSave(ctx context.Context) *redis.IntCmd {
	if m.lastSaveFunc != nil {
		v, err := m.lastSaveFunc()
		return redis.NewIntResult(v, err)
	}
	return redis.NewIntResult(0, nil)
}

func (m *mockClient) ConfigGet(ctx context.Context, parameter string) *redis.MapStringStringCmd {
	if m.configGetFunc != nil {
		v, err := m.configGetFunc(parameter)
		return redis.NewMapStringStringResult(v, err)
	}
	return redis.NewMapStringStringResult(map[string]string{}, nil)
}

func (m *mockClient) Info(ctx context.Context, section ...string) *redis.StringCmd {
	if m.infoFunc != nil {
		v, err := m.infoFunc(section...)
		return redis.NewStringResult(v, err)
	}
	return redis.NewStringResult("", nil)
}

func (m *mockClient) Close() error {
	m.closed.Store(true)
	return nil
}

// lastSaveSequence returns values in order, then repeats the final one.
func lastSaveSequence(values ...int64) func() (int64, error) {
	var mu sync.Mutex
	i := 0
	return func() (int64, error) {
		mu.Lock()
		defer mu.Unlock()
		v := values[i]
		if i < len(values)-1 {
			i++
		}
		return v, nil
	}
}

type recordingObserver struct {
	mu          sync.Mutex
	transitions []string
}

func (r *recordingObserver) BreakerStateChanged(name, from, to string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transitions = append(r.transitions, name+":"+from+"->"+to)
}

func fastOptions() Options {
	return Options{PollInterval: time.Millisecond}
}

func TestParseInfo(t *testing.T) {
	t.Parallel()

	raw := "# Server\r\nredis_version:7.2.4\r\nuptime_in_seconds:42\r\n\r\n# Persistence\r\nrdb_last_bgsave_status:ok\r\nmalformed\r\nkey:with:colons\r\n"
	got := ParseInfo(raw)

	want := map[string]string{
		"redis_version":          "7.2.4",
		"uptime_in_seconds":      "42",
		"rdb_last_bgsave_status": "ok",
		"key":                    "with:colons",
	}
	if len(got) != len(want) {
		t.Fatalf("ParseInfo() = %v", got)
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s = %q, want %q", k, got[k], v)
		}
	}
}

func TestTestConnection(t *testing.T) {
	t.Parallel()

	t.Run("success records last connected", func(t *testing.T) {
		t.Parallel()
		g := NewWithClient(&mockClient{}, fastOptions())
		if _, ok := g.LastConnected(); ok {
			t.Fatal("LastConnected() set before any ping")
		}
		if !g.TestConnection(context.Background()) {
			t.Fatal("TestConnection() = false")
		}
		if _, ok := g.LastConnected(); !ok {
			t.Error("LastConnected() not set after ping")
		}
	})

	t.Run("failure", func(t *testing.T) {
		t.Parallel()
		g := NewWithClient(&mockClient{pingFunc: func() error { return errors.New("connection refused") }}, fastOptions())
		if g.TestConnection(context.Background()) {
			t.Error("TestConnection() = true")
		}
	})
}

func TestSnapshot_WaitsForLastSaveToAdvance(t *testing.T) {
	t.Parallel()

	client := &mockClient{lastSaveFunc: lastSaveSequence(100, 100, 100, 101)}
	g := NewWithClient(client, fastOptions())
	ctx := context.Background()

	if err := g.BeginSnapshot(ctx); err != nil {
		t.Fatalf("BeginSnapshot() error = %v", err)
	}
	if err := g.WaitForSnapshotDone(ctx, time.Second); err != nil {
		t.Fatalf("WaitForSnapshotDone() error = %v", err)
	}
}

func TestSnapshot_FastSaveIsNotMissed(t *testing.T) {
	t.Parallel()

	// Save finishes before the first poll: baseline must come from before BGSAVE.
	client := &mockClient{lastSaveFunc: lastSaveSequence(100, 200)}
	g := NewWithClient(client, fastOptions())
	ctx := context.Background()

	if err := g.BeginSnapshot(ctx); err != nil {
		t.Fatal(err)
	}
	if err := g.WaitForSnapshotDone(ctx, 200*time.Millisecond); err != nil {
		t.Fatalf("WaitForSnapshotDone() error = %v", err)
	}
}

func TestBeginSnapshot_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		bgSave   error
		lastSave error
		wantErr  bool
	}{
		{name: "already in progress is fine", bgSave: errors.New("ERR Background save already in progress")},
		{name: "bgsave rejected", bgSave: errors.New("MISCONF disk full"), wantErr: true},
		{name: "lastsave fails", lastSave: errors.New("i/o timeout"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			client := &mockClient{
				bgSaveFunc:   func() error { return tt.bgSave },
				lastSaveFunc: func() (int64, error) { return 1, tt.lastSave },
			}
			g := NewWithClient(client, fastOptions())
			err := g.BeginSnapshot(context.Background())
			if (err != nil) != tt.wantErr {
				t.Fatalf("BeginSnapshot() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, backup.ErrConnectivity) {
				t.Errorf("error kind = %s, want connectivity", backup.KindOf(err))
			}
		})
	}
}

func TestWaitForSnapshotDone_Timeout(t *testing.T) {
	t.Parallel()

	client := &mockClient{lastSaveFunc: func() (int64, error) { return 100, nil }}
	g := NewWithClient(client, Options{PollInterval: 5 * time.Millisecond})
	ctx := context.Background()

	if err := g.BeginSnapshot(ctx); err != nil {
		t.Fatal(err)
	}
	start := time.Now()
	err := g.WaitForSnapshotDone(ctx, 30*time.Millisecond)
	if !errors.Is(err, backup.ErrTimeout) {
		t.Fatalf("WaitForSnapshotDone() = %v, want timeout", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("timeout took %v", elapsed)
	}
}

func TestWaitForSnapshotDone_ParentCancelled(t *testing.T) {
	t.Parallel()

	client := &mockClient{lastSaveFunc: func() (int64, error) { return 100, nil }}
	g := NewWithClient(client, Options{PollInterval: 5 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(15 * time.Millisecond)
		cancel()
	}()

	err := g.WaitForSnapshotDone(ctx, time.Minute)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("WaitForSnapshotDone() = %v, want context.Canceled", err)
	}
}

func TestSnapshotSourcePath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		config map[string]string
		want   string
	}{
		{name: "configured", config: map[string]string{"dir": "/var/lib/redis", "dbfilename": "cache.rdb"}, want: "/var/lib/redis/cache.rdb"},
		{name: "defaults", config: map[string]string{}, want: "/data/dump.rdb"},
		{name: "partial", config: map[string]string{"dir": "/srv"}, want: "/srv/dump.rdb"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			client := &mockClient{configGetFunc: func(p string) (map[string]string, error) {
				if v, ok := tt.config[p]; ok {
					return map[string]string{p: v}, nil
				}
				return map[string]string{}, nil
			}}
			got, err := NewWithClient(client, fastOptions()).SnapshotSourcePath(context.Background())
			if err != nil {
				t.Fatalf("SnapshotSourcePath() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("SnapshotSourcePath() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestInfo(t *testing.T) {
	t.Parallel()

	var gotSection []string
	client := &mockClient{infoFunc: func(section ...string) (string, error) {
		gotSection = section
		return "# Persistence\r\nrdb_changes_since_last_save:0\r\n", nil
	}}
	g := NewWithClient(client, fastOptions())

	info, err := g.Info(context.Background(), "persistence")
	if err != nil {
		t.Fatalf("Info() error = %v", err)
	}
	if info["rdb_changes_since_last_save"] != "0" {
		t.Errorf("Info() = %v", info)
	}
	if len(gotSection) != 1 || gotSection[0] != "persistence" {
		t.Errorf("section = %v", gotSection)
	}

	if _, err := g.Info(context.Background(), ""); err != nil {
		t.Fatal(err)
	}
	if len(gotSection) != 0 {
		t.Errorf("empty section passed %v", gotSection)
	}
}

func TestCircuitBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	t.Parallel()

	observer := &recordingObserver{}
	client := &mockClient{pingFunc: func() error { return errors.New("connection refused") }}
	g := NewWithClient(client, Options{BreakerFailures: 3, BreakerTimeout: time.Hour, Observer: observer})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		g.TestConnection(ctx)
	}
	if g.BreakerState() != "open" {
		t.Fatalf("BreakerState() = %s, want open", g.BreakerState())
	}

	// Open breaker short-circuits without reaching Redis.
	g.TestConnection(ctx)
	if n := client.pings.Load(); n != 3 {
		t.Errorf("pings = %d, want 3", n)
	}

	_, err := g.Info(ctx, "")
	if !errors.Is(err, backup.ErrConnectivity) {
		t.Errorf("Info() on open breaker = %v", err)
	}

	observer.mu.Lock()
	defer observer.mu.Unlock()
	if len(observer.transitions) != 1 || observer.transitions[0] != "redis:closed->open" {
		t.Errorf("transitions = %v", observer.transitions)
	}
}

func TestStateToString(t *testing.T) {
	t.Parallel()

	g := NewWithClient(&mockClient{}, fastOptions())
	if g.BreakerState() != "closed" {
		t.Errorf("initial state = %s", g.BreakerState())
	}
}

func TestClose(t *testing.T) {
	t.Parallel()

	client := &mockClient{}
	if err := NewWithClient(client, fastOptions()).Close(); err != nil {
		t.Fatal(err)
	}
	if !client.closed.Load() {
		t.Error("client not closed")
	}
}
