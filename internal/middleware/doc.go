// Redis Backup Service - Scheduled Redis Snapshots, Retention and Restore
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/redisbackup

/*
Package middleware provides chi-compatible HTTP middleware for the backup API.

  - RequestID: propagates or generates X-Request-ID and seeds the logging
    context with request and correlation IDs
  - PrometheusMetrics: records request count and latency per route pattern
  - AccessLog: one structured log line per request

All middleware have the func(http.Handler) http.Handler shape so they can be
passed directly to chi's Use.
*/
package middleware
