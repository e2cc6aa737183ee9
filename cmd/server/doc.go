// Redis Backup Service - Scheduled Redis Snapshots, Retention and Restore
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/redisbackup

/*
Package main is the entry point for the Redis backup service.

The service snapshots a Redis instance on a cron schedule or on demand, keeps
the resulting RDB files under a retention policy, and restores any of them
back into the Redis data directory.

# Application Architecture

	RootSupervisor ("redisbackup")
	├── CoreSupervisor ("core-layer")
	│   └── backup-scheduler (unless SCHEDULE_ENABLED=false)
	├── ObserverSupervisor ("observer-layer")
	│   ├── event-log
	│   └── health-monitor
	└── APISupervisor ("api-layer")
	    └── http-server

Component initialization order:

 1. Configuration: koanf with defaults, config file and environment
 2. Logging: zerolog, JSON or console
 3. History store: memory or BadgerDB
 4. Redis gateway: go-redis behind a circuit breaker
 5. File storage: backup directory and Redis data directory
 6. Metrics: Prometheus collector on a private registry
 7. Event bus: Watermill GoChannel
 8. Backup manager
 9. Health service
 10. HTTP router and the supervisor tree

# Configuration

	REDIS_HOST=redis
	REDIS_PORT=6379
	REDIS_PASSWORD=
	REDIS_DATA_PATH=/redis-data
	BACKUP_PATH=/backups
	BACKUP_SCHEDULE="0 2 * * *"
	RETENTION_DAYS=7
	MAX_BACKUPS=30
	MIN_BACKUPS=3
	HTTP_PORT=8000
	LOG_LEVEL=info

See internal/config for the full list.

# Signal Handling

SIGINT and SIGTERM stop the supervisor tree. The HTTP server drains for up to
10 seconds. A backup or restore already in progress is allowed to finish
(bounded by BGSAVE_TIMEOUT plus a margin) before stores are closed.

# Example Usage

	docker run -d \
	  -e REDIS_HOST=redis \
	  -v redis-data:/redis-data \
	  -v backups:/backups \
	  -p 8000:8000 \
	  ghcr.io/tomtom215/redisbackup

	curl -X POST localhost:8000/api/v1/backup/trigger -d '{"label":"pre-upgrade"}'
*/
package main
