// Redis Backup Service - Scheduled Redis Snapshots, Retention and Restore
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/redisbackup

/*
Package metrics provides Prometheus instrumentation for the backup service.

A Collector registers every metric on the prometheus.Registerer it is given,
so tests can build an isolated registry and the server can expose a dedicated
one at /metrics.

# Available Metrics

Backup Metrics:
  - redis_backup_total: Backup attempts (counter)
  - redis_backup_success_total: Successful backups (counter)
  - redis_backup_failed_total: Failed backups (counter)
  - redis_backup_last_success_timestamp: Unix time of the last success (gauge)
  - redis_backup_last_size_bytes: Size of the last successful backup (gauge)
  - redis_backup_count: Backups currently retained (gauge)
  - redis_backup_duration_seconds: Backup duration (histogram)
    Buckets: 10, 30, 60, 120, 300, 600, 1800
  - redis_backup_size_bytes: Backup size (histogram)
    Buckets: 1MiB, 10MiB, 100MiB, 1GiB, 10GiB

HTTP Metrics:
  - redisbackup_http_requests_total: Requests (counter)
    Labels: method, route, status
  - redisbackup_http_request_duration_seconds: Request latency (histogram)
    Labels: method, route

Circuit Breaker Metrics:
  - redisbackup_circuit_breaker_state: 0=closed, 1=half-open, 2=open (gauge)
    Labels: name
  - redisbackup_circuit_breaker_state_transitions_total: Transitions (counter)
    Labels: name, from_state, to_state

# Usage

	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)
	collector.RecordSuccess(42.5, 1<<20)

	http.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

# Thread Safety

All Collector methods are safe for concurrent use.
*/
package metrics
