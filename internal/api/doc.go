// Redis Backup Service - Scheduled Redis Snapshots, Retention and Restore
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/redisbackup

/*
Package api provides the HTTP surface of the backup service.

Routes:

	POST /api/v1/backup/trigger            start a manual backup (202)
	GET  /api/v1/backup/status/{task_id}   backup task status
	GET  /api/v1/backups                   completed backups, newest first
	POST /api/v1/backups/{id}/important    exempt a backup from retention
	POST /api/v1/restore                   restore from a backup file
	GET  /api/v1/restore/status/{task_id}  restore task status
	GET  /health                           200 healthy, 503 otherwise
	GET  /metrics                          Prometheus exposition
	GET  /                                 service info

Every JSON response uses the envelope

	{"status": "success"|"error", "data": ..., "metadata": {"timestamp": ...},
	 "error": {"code": ..., "message": ..., "details": ...}}

Domain errors map to status codes by kind: not found 404, already running
or conflict 409, configuration and validation 400, Redis connectivity 503,
anything else 500.

Middleware, outermost first: request ID with logging context, panic
recovery, CORS, Prometheus request metrics, access log. The /api/v1 group is
additionally rate limited per client IP.
*/
package api
