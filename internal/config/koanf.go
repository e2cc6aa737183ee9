// Redis Backup Service - Scheduled Redis Snapshots, Retention and Restore
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/redisbackup

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths searched for a config file, in order.
// The first file found is used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/redisbackup/config.yaml",
	"/etc/redisbackup/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// DefaultMinFreeSpace is the free space a backup requires (100 MiB).
const DefaultMinFreeSpace = 100 << 20

func defaultConfig() *Config {
	return &Config{
		Redis: RedisConfig{
			Host:            "redis",
			Port:            6379,
			Database:        0,
			DataPath:        "/redis-data",
			SocketTimeout:   5 * time.Second,
			SnapshotTimeout: 300 * time.Second,
			PollInterval:    time.Second,
		},
		Storage: StorageConfig{
			BackupPath:      "/backups",
			MinFreeSpace:    DefaultMinFreeSpace,
			LowSpacePercent: 85,
		},
		Schedule: ScheduleConfig{
			Expression: "0 2 * * *",
			Timezone:   "UTC",
			Enabled:    true,
		},
		Retention: RetentionConfig{
			Days:            7,
			MaxBackups:      30,
			MinBackups:      3,
			ProtectedLabels: []string{},
		},
		History: HistoryConfig{
			Store: "memory",
		},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8000,
			Timeout:         30 * time.Second,
			CORSOrigins:     []string{},
			RateLimitReqs:   60,
			RateLimitWindow: time.Minute,
			HealthInterval:  30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Load reads defaults, then the config file if any, then the environment, and
// validates the result.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths may arrive from the environment as comma-separated strings.
var sliceConfigPaths = []string{
	"retention.protected_labels",
	"server.cors_origins",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok {
			continue
		}
		trimmed := make([]string, 0)
		for _, p := range strings.Split(strVal, ",") {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

var envMappings = map[string]string{
	"redis_host":           "redis.host",
	"redis_port":           "redis.port",
	"redis_password":       "redis.password",
	"redis_database":       "redis.database",
	"redis_data_path":      "redis.data_path",
	"redis_socket_timeout": "redis.socket_timeout",
	"bgsave_timeout":       "redis.snapshot_timeout",
	"bgsave_poll_interval": "redis.poll_interval",

	"backup_path":         "storage.backup_path",
	"min_free_space":      "storage.min_free_space",
	"storage_low_percent": "storage.low_space_percent",

	"backup_schedule":  "schedule.expression",
	"backup_timezone":  "schedule.timezone",
	"schedule_enabled": "schedule.enabled",

	"retention_days":   "retention.days",
	"max_backups":      "retention.max_backups",
	"min_backups":      "retention.min_backups",
	"protected_labels": "retention.protected_labels",

	"history_store": "history.store",
	"history_path":  "history.path",

	"http_host":           "server.host",
	"http_port":           "server.port",
	"http_timeout":        "server.timeout",
	"cors_origins":        "server.cors_origins",
	"rate_limit_requests": "server.rate_limit_reqs",
	"rate_limit_window":   "server.rate_limit_window",
	"disable_rate_limit":  "server.rate_limit_disabled",
	"health_interval":     "server.health_interval",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc maps an environment variable to its config key. Unmapped
// variables return "" and are skipped.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
