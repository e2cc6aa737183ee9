// Redis Backup Service - Scheduled Redis Snapshots, Retention and Restore
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/redisbackup

/*
Package config loads the service configuration.

# Configuration Sources

Layers are merged lowest to highest precedence:

 1. Built-in defaults
 2. A YAML file: CONFIG_PATH, else the first of config.yaml, config.yml,
    /etc/redisbackup/config.yaml, /etc/redisbackup/config.yml
 3. Environment variables

Only the environment variables listed below are read. Anything else in the
environment is ignored.

# Environment Variables

Redis:
  - REDIS_HOST (default: redis)
  - REDIS_PORT (default: 6379)
  - REDIS_PASSWORD
  - REDIS_DATABASE (default: 0)
  - REDIS_DATA_PATH: Redis data directory as mounted here (default: /redis-data)
  - REDIS_SOCKET_TIMEOUT (default: 5s)
  - BGSAVE_TIMEOUT (default: 300s)
  - BGSAVE_POLL_INTERVAL (default: 1s)

Storage:
  - BACKUP_PATH (default: /backups)
  - MIN_FREE_SPACE: bytes (default: 104857600)
  - STORAGE_LOW_PERCENT (default: 85)

Schedule:
  - BACKUP_SCHEDULE: five-field cron expression (default: 0 2 * * *)
  - BACKUP_TIMEZONE (default: UTC)
  - SCHEDULE_ENABLED (default: true)

Retention:
  - RETENTION_DAYS (default: 7)
  - MAX_BACKUPS (default: 30)
  - MIN_BACKUPS (default: 3)
  - PROTECTED_LABELS: comma-separated

History:
  - HISTORY_STORE: memory or badger (default: memory)
  - HISTORY_PATH: badger directory, empty for in-memory badger

HTTP:
  - HTTP_HOST (default: 0.0.0.0)
  - HTTP_PORT (default: 8000)
  - HTTP_TIMEOUT (default: 30s)
  - CORS_ORIGINS: comma-separated
  - RATE_LIMIT_REQUESTS (default: 60)
  - RATE_LIMIT_WINDOW (default: 1m)
  - DISABLE_RATE_LIMIT (default: false)
  - HEALTH_INTERVAL: background health check period (default: 30s)

Logging:
  - LOG_LEVEL (default: info)
  - LOG_FORMAT: json or console (default: json)
  - LOG_CALLER (default: false)

# Usage

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}
	job, err := cfg.BackupJob()

An invalid configuration returns an error of kind configuration and the
service refuses to start.
*/
package config
