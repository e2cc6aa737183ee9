// Redis Backup Service - Scheduled Redis Snapshots, Retention and Restore
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/redisbackup

package supervisor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"
)

// stubService fails the first failures calls to Serve, then blocks until
// canceled.
type stubService struct {
	name     string
	failures int32
	starts   atomic.Int32
}

func (s *stubService) Serve(ctx context.Context) error {
	if n := s.starts.Add(1); n <= s.failures {
		return errors.New("simulated failure")
	}
	<-ctx.Done()
	return ctx.Err()
}

func (s *stubService) String() string { return s.name }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func waitForStarts(t *testing.T, svc *stubService, n int32) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for svc.starts.Load() < n {
		if time.Now().After(deadline) {
			t.Fatalf("%s started %d times, want >= %d", svc.name, svc.starts.Load(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestDefaultTreeConfig(t *testing.T) {
	t.Parallel()

	config := DefaultTreeConfig()
	if config.FailureThreshold != 5.0 || config.FailureDecay != 30.0 {
		t.Errorf("threshold/decay = %v/%v", config.FailureThreshold, config.FailureDecay)
	}
	if config.FailureBackoff != 15*time.Second || config.ShutdownTimeout != 10*time.Second {
		t.Errorf("backoff/timeout = %v/%v", config.FailureBackoff, config.ShutdownTimeout)
	}
}

func TestNewSupervisorTree_AppliesDefaults(t *testing.T) {
	t.Parallel()

	tree, err := NewSupervisorTree(quietLogger(), TreeConfig{FailureBackoff: time.Second})
	if err != nil {
		t.Fatalf("NewSupervisorTree() error = %v", err)
	}
	if tree.Root() == nil {
		t.Fatal("Root() = nil")
	}
	if tree.config.FailureThreshold != 5.0 || tree.config.ShutdownTimeout != 10*time.Second {
		t.Errorf("config = %+v", tree.config)
	}
	if tree.config.FailureBackoff != time.Second {
		t.Errorf("explicit FailureBackoff overwritten: %v", tree.config.FailureBackoff)
	}
}

func TestSupervisorTree_StartsEveryLayer(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		add  func(*SupervisorTree, suture.Service) suture.ServiceToken
	}{
		{"core", (*SupervisorTree).AddCoreService},
		{"observer", (*SupervisorTree).AddObserverService},
		{"api", (*SupervisorTree).AddAPIService},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tree, _ := NewSupervisorTree(quietLogger(), TreeConfig{ShutdownTimeout: time.Second})
			svc := &stubService{name: tt.name}
			tt.add(tree, svc)

			ctx, cancel := context.WithCancel(context.Background())
			errCh := tree.ServeBackground(ctx)
			waitForStarts(t, svc, 1)
			cancel()

			select {
			case err := <-errCh:
				if err != nil && !errors.Is(err, context.Canceled) {
					t.Errorf("Serve() = %v", err)
				}
			case <-time.After(2 * time.Second):
				t.Fatal("tree did not shut down in time")
			}
		})
	}
}

func TestSupervisorTree_RestartsFailingService(t *testing.T) {
	t.Parallel()

	tree, _ := NewSupervisorTree(quietLogger(), TreeConfig{
		FailureThreshold: 10,
		FailureBackoff:   10 * time.Millisecond,
		ShutdownTimeout:  time.Second,
	})

	failing := &stubService{name: "event-log", failures: 2}
	stable := &stubService{name: "http-server"}
	tree.AddObserverService(failing)
	tree.AddAPIService(stable)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := tree.ServeBackground(ctx)

	waitForStarts(t, failing, 3)
	waitForStarts(t, stable, 1)
	if n := stable.starts.Load(); n != 1 {
		t.Errorf("stable service restarted: %d starts", n)
	}

	cancel()
	<-errCh

	report, err := tree.UnstoppedServiceReport()
	if err != nil {
		t.Fatal(err)
	}
	if len(report) != 0 {
		t.Errorf("unstopped services: %v", report)
	}
}
