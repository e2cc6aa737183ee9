// Redis Backup Service - Scheduled Redis Snapshots, Retention and Restore
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/redisbackup

package services

import (
	"context"
	"time"

	"github.com/tomtom215/redisbackup/internal/health"
	"github.com/tomtom215/redisbackup/internal/logging"
)

// DefaultHealthInterval is how often HealthMonitorService runs a check.
const DefaultHealthInterval = 30 * time.Second

// HealthChecker is satisfied by *health.Service.
type HealthChecker interface {
	Check(ctx context.Context) health.Report
}

// HealthMonitorService runs health checks on a fixed interval so connection
// loss and low storage are published even when nobody polls /health.
type HealthMonitorService struct {
	checker  HealthChecker
	interval time.Duration
	name     string

	status string
}

// NewHealthMonitorService creates the monitor. A non-positive interval uses
// DefaultHealthInterval.
func NewHealthMonitorService(checker HealthChecker, interval time.Duration) *HealthMonitorService {
	if interval <= 0 {
		interval = DefaultHealthInterval
	}
	return &HealthMonitorService{
		checker:  checker,
		interval: interval,
		name:     "health-monitor",
	}
}

// Serve implements suture.Service. The first check runs immediately.
func (s *HealthMonitorService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.check(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.check(ctx)
		}
	}
}

func (s *HealthMonitorService) check(ctx context.Context) {
	report := s.checker.Check(ctx)
	if report.Status == s.status {
		return
	}
	event := logging.Info()
	if !report.Healthy() {
		event = logging.Warn()
	}
	event.Str("from", s.status).Str("to", report.Status).
		Bool("redis_connected", report.RedisConnected).
		Float64("storage_usage_percent", report.StorageUsagePercent).
		Msg("Health status changed")
	s.status = report.Status
}

// String implements fmt.Stringer.
func (s *HealthMonitorService) String() string {
	return s.name
}
