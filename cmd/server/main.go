// Redis Backup Service - Scheduled Redis Snapshots, Retention and Restore
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/redisbackup

package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/tomtom215/redisbackup/internal/api"
	"github.com/tomtom215/redisbackup/internal/backup"
	"github.com/tomtom215/redisbackup/internal/config"
	"github.com/tomtom215/redisbackup/internal/events"
	"github.com/tomtom215/redisbackup/internal/filestore"
	"github.com/tomtom215/redisbackup/internal/health"
	"github.com/tomtom215/redisbackup/internal/history"
	"github.com/tomtom215/redisbackup/internal/logging"
	"github.com/tomtom215/redisbackup/internal/metrics"
	"github.com/tomtom215/redisbackup/internal/redisstore"
	"github.com/tomtom215/redisbackup/internal/scheduler"
	"github.com/tomtom215/redisbackup/internal/supervisor"
	"github.com/tomtom215/redisbackup/internal/supervisor/services"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// drainMargin is added to the snapshot timeout when waiting for an in-flight
// backup at shutdown.
const drainMargin = 30 * time.Second

func main() {
	if err := run(); err != nil {
		logging.Error().Err(err).Msg("Fatal error")
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	logging.Init(cfg.LoggingOptions())
	logging.Info().Str("version", version).Msg("Starting Redis backup service")

	store, err := history.Open(history.StoreType(cfg.History.Store), cfg.History.Path)
	if err != nil {
		return err
	}
	defer closeQuietly("history store", store.Close)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(registry)

	job, err := cfg.BackupJob()
	if err != nil {
		return err
	}
	policy, err := cfg.RetentionPolicy()
	if err != nil {
		return err
	}

	gateway := redisstore.New(job.Connection(), redisstore.Options{
		SocketTimeout: cfg.Redis.SocketTimeout,
		PollInterval:  cfg.Redis.PollInterval,
		Observer:      collector,
	})
	defer closeQuietly("redis gateway", gateway.Close)

	files, err := filestore.New(cfg.Storage.BackupPath, cfg.Redis.DataPath)
	if err != nil {
		return err
	}

	bus := events.NewBus(events.DefaultConfig())
	defer closeQuietly("event bus", bus.Close)

	manager, err := backup.NewManager(backup.ManagerConfig{
		Job:             job,
		Policy:          policy,
		SnapshotTimeout: cfg.Redis.SnapshotTimeout,
	}, backup.Dependencies{
		Store:      gateway,
		Files:      files,
		Repository: store,
		Metrics:    collector,
		Events:     bus,
	})
	if err != nil {
		return err
	}

	healthSvc := health.NewService(gateway, manager, bus, cfg.Storage.LowSpacePercent)

	chiCfg := api.DefaultChiMiddlewareConfig()
	if len(cfg.Server.CORSOrigins) > 0 {
		chiCfg.CORSAllowedOrigins = cfg.Server.CORSOrigins
	}
	chiCfg.RateLimitRequests = cfg.Server.RateLimitReqs
	chiCfg.RateLimitWindow = cfg.Server.RateLimitWindow
	chiCfg.RateLimitDisabled = cfg.Server.RateLimitDisabled

	router := api.NewRouter(api.NewHandler(manager, healthSvc, version), api.NewChiMiddleware(chiCfg), collector, registry)
	server := &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler:           router.Setup(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		IdleTimeout:       2 * cfg.Server.Timeout,
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		return fmt.Errorf("create supervisor tree: %w", err)
	}
	if cfg.Schedule.Enabled {
		tree.AddCoreService(scheduler.New(manager))
	} else {
		logging.Info().Msg("Scheduled backups disabled (SCHEDULE_ENABLED=false)")
	}
	tree.AddObserverService(events.NewEventLog(bus, backup.AllTopics))
	tree.AddObserverService(services.NewHealthMonitorService(healthSvc, cfg.Server.HealthInterval))
	tree.AddAPIService(services.NewHTTPServerService(server, services.DefaultShutdownTimeout))

	logInitialState(manager, cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logging.Info().Str("addr", server.Addr).Msg("Starting supervisor tree")
	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("Supervisor tree error")
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
	}

	drainCtx, cancel := context.WithTimeout(context.Background(), cfg.Redis.SnapshotTimeout+drainMargin)
	defer cancel()
	if err := manager.Wait(drainCtx); err != nil {
		logging.Warn().Err(err).Msg("In-flight backup did not finish before shutdown")
	}

	logging.Info().Msg("Application stopped gracefully")
	return nil
}

func logInitialState(manager *backup.Manager, cfg *config.Config) {
	evt := logging.Info().
		Str("redis", manager.Job().Connection().Addr()).
		Str("backup_path", cfg.Storage.BackupPath).
		Str("schedule", manager.Job().Schedule().String()).
		Int("retention_days", cfg.Retention.Days).
		Int("max_backups", cfg.Retention.MaxBackups).
		Int("min_backups", cfg.Retention.MinBackups)
	if cfg.Schedule.Enabled {
		evt = evt.Time("next_backup", manager.NextBackupTime())
	}
	evt.Msg("Backup manager ready")
}

func closeQuietly(name string, closeFn func() error) {
	if err := closeFn(); err != nil {
		logging.Warn().Err(err).Str("component", name).Msg("Close failed")
	}
}
