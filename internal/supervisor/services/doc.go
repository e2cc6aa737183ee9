// Redis Backup Service - Scheduled Redis Snapshots, Retention and Restore
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/redisbackup

/*
Package services adapts long-running components to suture.Service.

Each wrapper implements:

	type Service interface {
	    Serve(ctx context.Context) error
	}

and fmt.Stringer, which suture uses to name the service in its events.

# Available Services

HTTP Server (HTTPServerService):
  - Wraps *http.Server; ListenAndServe runs in a goroutine
  - Cancellation triggers Shutdown with a bounded drain timeout
  - A listen failure is returned so the supervisor restarts the server

Health Monitor (HealthMonitorService):
  - Runs health.Service.Check on a fixed interval
  - Keeps connection-lost and low-storage events flowing without /health traffic
  - Logs each status change

The backup scheduler and the event log implement suture.Service themselves and
need no wrapper.
*/
package services
