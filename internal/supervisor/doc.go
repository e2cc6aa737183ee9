// Redis Backup Service - Scheduled Redis Snapshots, Retention and Restore
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/redisbackup

/*
Package supervisor runs the long-lived services under a suture v4 tree.

# Overview

	RootSupervisor ("redisbackup")
	├── CoreSupervisor ("core-layer")
	│   └── backup-scheduler
	├── ObserverSupervisor ("observer-layer")
	│   ├── event-log
	│   └── health-monitor
	└── APISupervisor ("api-layer")
	    └── http-server

A service that returns an error or panics is restarted by its layer's
supervisor with backoff. Failures are counted per layer.

# Usage

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
	    return err
	}
	tree.AddCoreService(scheduler.New(manager))
	tree.AddObserverService(events.NewEventLog(bus, backup.AllTopics))
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	err = tree.Serve(ctx)

# Shutdown

Cancelling the context stops every service. Each one gets ShutdownTimeout to
return before it is reported by UnstoppedServiceReport. A backup already in
progress is not interrupted by the tree; the caller waits for it separately.

# Logging

Supervisor events reach zerolog through the sutureslog handler and the slog
bridge in internal/logging.
*/
package supervisor
