// Redis Backup Service - Scheduled Redis Snapshots, Retention and Restore
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/redisbackup

package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	mib = 1 << 20
	gib = 1 << 30
)

var (
	// DurationBuckets spans quick snapshots to half-hour dumps.
	DurationBuckets = []float64{10, 30, 60, 120, 300, 600, 1800}

	// SizeBuckets spans 1 MiB to 10 GiB.
	SizeBuckets = []float64{mib, 10 * mib, 100 * mib, gib, 10 * gib}
)

// Collector owns the service's Prometheus metrics. It implements
// backup.MetricsSink and backup.BackupCounter.
type Collector struct {
	BackupTotal         prometheus.Counter
	BackupSuccess       prometheus.Counter
	BackupFailed        prometheus.Counter
	LastSuccessTime     prometheus.Gauge
	LastSizeBytes       prometheus.Gauge
	BackupCount         prometheus.Gauge
	BackupDuration      prometheus.Histogram
	BackupSize          prometheus.Histogram
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	BreakerState        *prometheus.GaugeVec
	BreakerTransitions  *prometheus.CounterVec

	now func() time.Time
}

// NewCollector registers every metric on reg. reg must not already hold
// metrics of the same names.
func NewCollector(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		BackupTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "redis_backup_total",
			Help: "Total number of backup attempts",
		}),
		BackupSuccess: factory.NewCounter(prometheus.CounterOpts{
			Name: "redis_backup_success_total",
			Help: "Total number of successful backups",
		}),
		BackupFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "redis_backup_failed_total",
			Help: "Total number of failed backups",
		}),
		LastSuccessTime: factory.NewGauge(prometheus.GaugeOpts{
			Name: "redis_backup_last_success_timestamp",
			Help: "Unix timestamp of the last successful backup",
		}),
		LastSizeBytes: factory.NewGauge(prometheus.GaugeOpts{
			Name: "redis_backup_last_size_bytes",
			Help: "Size in bytes of the last successful backup",
		}),
		BackupCount: factory.NewGauge(prometheus.GaugeOpts{
			Name: "redis_backup_count",
			Help: "Number of backups currently retained",
		}),
		BackupDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "redis_backup_duration_seconds",
			Help:    "Duration of backup operations in seconds",
			Buckets: DurationBuckets,
		}),
		BackupSize: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "redis_backup_size_bytes",
			Help:    "Size of backup files in bytes",
			Buckets: SizeBuckets,
		}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "redisbackup_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "redisbackup_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5, 10},
		}, []string{"method", "route"}),
		BreakerState: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "redisbackup_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		}, []string{"name"}),
		BreakerTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "redisbackup_circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		}, []string{"name", "from_state", "to_state"}),
		now: time.Now,
	}
}

// RecordSuccess counts a successful backup and observes its duration and size.
func (c *Collector) RecordSuccess(durationSeconds float64, sizeBytes int64) {
	c.BackupTotal.Inc()
	c.BackupSuccess.Inc()
	c.BackupDuration.Observe(durationSeconds)
	c.BackupSize.Observe(float64(sizeBytes))
	c.LastSizeBytes.Set(float64(sizeBytes))
	c.LastSuccessTime.Set(float64(c.now().Unix()))
}

// RecordFailure counts a failed backup.
func (c *Collector) RecordFailure() {
	c.BackupTotal.Inc()
	c.BackupFailed.Inc()
}

// SetBackupCount sets the retained backup gauge.
func (c *Collector) SetBackupCount(n int) {
	c.BackupCount.Set(float64(n))
}

// RecordHTTPRequest records one served request. route is the matched route
// pattern, not the raw path, to keep label cardinality bounded.
func (c *Collector) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// BreakerStateChanged records a circuit breaker transition.
func (c *Collector) BreakerStateChanged(name, from, to string) {
	c.BreakerState.WithLabelValues(name).Set(stateToFloat(to))
	c.BreakerTransitions.WithLabelValues(name, from, to).Inc()
}

// stateToFloat converts circuit breaker state to numeric value for metrics
func stateToFloat(state string) float64 {
	switch state {
	case "closed":
		return 0
	case "half-open":
		return 1
	case "open":
		return 2
	default:
		return -1
	}
}
