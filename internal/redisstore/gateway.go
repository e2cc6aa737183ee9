// Redis Backup Service - Scheduled Redis Snapshots, Retention and Restore
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/redisbackup

/*
gateway.go - Redis Store Gateway

Gateway implements backup.StoreGateway on go-redis. Every round trip runs
through a circuit breaker so a dead Redis fails fast instead of stacking up
socket timeouts across the scheduler, health checks and API requests.

Snapshot completion is detected by polling LASTSAVE until it moves past the
value read immediately before BGSAVE was issued. Polls are paced by a
token-bucket limiter at the configured interval.
*/

//nolint:staticcheck // File documentation, not package doc
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/tomtom215/redisbackup/internal/backup"
	"github.com/tomtom215/redisbackup/internal/logging"
)

const (
	breakerName = "redis"

	// DefaultPollInterval paces LASTSAVE polling.
	DefaultPollInterval = time.Second

	// DefaultSocketTimeout bounds each Redis round trip.
	DefaultSocketTimeout = 5 * time.Second

	defaultDataDir      = "/data"
	defaultDataFilename = "dump.rdb"
)

// Client is the subset of go-redis commands the gateway uses.
// *redis.Client satisfies it.
type Client interface {
	Ping(ctx context.Context) *redis.StatusCmd
	BgSave(ctx context.Context) *redis.StatusCmd
	LastSave(ctx context.Context) *redis.IntCmd
	ConfigGet(ctx context.Context, parameter string) *redis.MapStringStringCmd
	Info(ctx context.Context, section ...string) *redis.StringCmd
	Close() error
}

// BreakerObserver is notified of circuit breaker transitions.
type BreakerObserver interface {
	BreakerStateChanged(name, from, to string)
}

// Options configures a Gateway. Zero values take defaults.
type Options struct {
	SocketTimeout  time.Duration
	PollInterval   time.Duration
	BreakerTimeout time.Duration
	// BreakerFailures is the consecutive failure count that opens the breaker.
	BreakerFailures uint32
	Observer        BreakerObserver
}

func (o Options) withDefaults() Options {
	if o.SocketTimeout <= 0 {
		o.SocketTimeout = DefaultSocketTimeout
	}
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.BreakerTimeout <= 0 {
		o.BreakerTimeout = 30 * time.Second
	}
	if o.BreakerFailures == 0 {
		o.BreakerFailures = 5
	}
	return o
}

// Gateway implements backup.StoreGateway.
type Gateway struct {
	client       Client
	cb           *gobreaker.CircuitBreaker[interface{}]
	pollInterval time.Duration

	mu            sync.Mutex
	saveBaseline  int64
	hasBaseline   bool
	lastConnected time.Time
}

// New connects lazily to the Redis described by conn.
func New(conn backup.RedisConnection, opts Options) *Gateway {
	opts = opts.withDefaults()
	client := redis.NewClient(&redis.Options{
		Addr:         conn.Addr(),
		Password:     conn.Password,
		DB:           conn.Database,
		DialTimeout:  opts.SocketTimeout,
		ReadTimeout:  opts.SocketTimeout,
		WriteTimeout: opts.SocketTimeout,
	})
	return NewWithClient(client, opts)
}

// NewWithClient wraps an existing client.
func NewWithClient(client Client, opts Options) *Gateway {
	opts = opts.withDefaults()
	observer := opts.Observer

	cb := gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,           // One probe in half-open state
		Interval:    time.Minute, // Reset counts after 1 minute in closed state
		Timeout:     opts.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			trip := counts.ConsecutiveFailures >= opts.BreakerFailures
			if trip {
				logging.Warn().Uint32("consecutive_failures", counts.ConsecutiveFailures).Msg("[CIRCUIT BREAKER] Opening circuit")
			}
			return trip
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().Str("breaker", name).Str("from", stateToString(from)).Str("to", stateToString(to)).
				Msg("[CIRCUIT BREAKER] State transition")
			if observer != nil {
				observer.BreakerStateChanged(name, stateToString(from), stateToString(to))
			}
		},
	})

	return &Gateway{client: client, cb: cb, pollInterval: opts.PollInterval}
}

// Close releases the underlying client.
func (g *Gateway) Close() error {
	return g.client.Close()
}

// execute runs fn inside the circuit breaker and maps rejections and command
// failures to connectivity errors.
func (g *Gateway) execute(op string, fn func() (interface{}, error)) (interface{}, error) {
	result, err := g.cb.Execute(fn)
	if err == nil {
		return result, nil
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, backup.NewError(backup.KindConnectivity, op, "redis circuit breaker is open")
	}
	var domainErr *backup.Error
	if errors.As(err, &domainErr) {
		return nil, err
	}
	return nil, backup.WrapError(backup.KindConnectivity, op, err)
}

// TestConnection implements backup.StoreGateway.
func (g *Gateway) TestConnection(ctx context.Context) bool {
	_, err := g.execute("redis.ping", func() (interface{}, error) {
		return nil, g.client.Ping(ctx).Err()
	})
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Msg("Redis connection failed")
		return false
	}
	g.mu.Lock()
	g.lastConnected = time.Now()
	g.mu.Unlock()
	return true
}

// LastConnected is the time of the last successful PING.
func (g *Gateway) LastConnected() (time.Time, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastConnected, !g.lastConnected.IsZero()
}

func (g *Gateway) lastSave(ctx context.Context) (int64, error) {
	v, err := g.execute("redis.lastsave", func() (interface{}, error) {
		return g.client.LastSave(ctx).Result()
	})
	if err != nil {
		return 0, err
	}
	n, ok := v.(int64)
	if !ok {
		return 0, fmt.Errorf("circuit breaker: unexpected result type %T", v)
	}
	return n, nil
}

// BeginSnapshot implements backup.StoreGateway. The LASTSAVE baseline is
// captured before BGSAVE so a save that finishes instantly is still seen.
func (g *Gateway) BeginSnapshot(ctx context.Context) error {
	baseline, err := g.lastSave(ctx)
	if err != nil {
		return err
	}

	_, err = g.execute("redis.bgsave", func() (interface{}, error) {
		err := g.client.BgSave(ctx).Err()
		if err != nil && isSaveInProgress(err) {
			return nil, nil
		}
		return nil, err
	})
	if err != nil {
		return err
	}

	g.mu.Lock()
	g.saveBaseline = baseline
	g.hasBaseline = true
	g.mu.Unlock()
	logging.Ctx(ctx).Info().Int64("lastsave", baseline).Msg("BGSAVE command executed")
	return nil
}

func isSaveInProgress(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "already in progress")
}

// WaitForSnapshotDone implements backup.StoreGateway.
func (g *Gateway) WaitForSnapshotDone(ctx context.Context, timeout time.Duration) error {
	g.mu.Lock()
	baseline, ok := g.saveBaseline, g.hasBaseline
	g.hasBaseline = false
	g.mu.Unlock()

	if !ok {
		initial, err := g.lastSave(ctx)
		if err != nil {
			return err
		}
		baseline = initial
	}

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	logging.Ctx(ctx).Info().Dur("timeout", timeout).Msg("Waiting for BGSAVE to complete")
	limiter := rate.NewLimiter(rate.Every(g.pollInterval), 1)
	for {
		if err := limiter.Wait(waitCtx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return backup.NewError(backup.KindTimeout, "redis.wait_snapshot",
				fmt.Sprintf("BGSAVE did not complete within %s", timeout))
		}
		current, err := g.lastSave(waitCtx)
		if err != nil {
			if waitCtx.Err() != nil && ctx.Err() == nil {
				return backup.NewError(backup.KindTimeout, "redis.wait_snapshot",
					fmt.Sprintf("BGSAVE did not complete within %s", timeout))
			}
			return err
		}
		if current > baseline {
			logging.Ctx(ctx).Info().Int64("lastsave", current).Msg("BGSAVE completed")
			return nil
		}
	}
}

// SnapshotSourcePath implements backup.StoreGateway.
func (g *Gateway) SnapshotSourcePath(ctx context.Context) (string, error) {
	dir, err := g.configValue(ctx, "dir", defaultDataDir)
	if err != nil {
		return "", err
	}
	name, err := g.configValue(ctx, "dbfilename", defaultDataFilename)
	if err != nil {
		return "", err
	}
	return path.Join(dir, name), nil
}

func (g *Gateway) configValue(ctx context.Context, key, fallback string) (string, error) {
	v, err := g.execute("redis.config_get", func() (interface{}, error) {
		return g.client.ConfigGet(ctx, key).Result()
	})
	if err != nil {
		return "", err
	}
	values, _ := v.(map[string]string)
	if s := values[key]; s != "" {
		return s, nil
	}
	return fallback, nil
}

// Info implements backup.StoreGateway.
func (g *Gateway) Info(ctx context.Context, section string) (map[string]string, error) {
	v, err := g.execute("redis.info", func() (interface{}, error) {
		if section == "" {
			return g.client.Info(ctx).Result()
		}
		return g.client.Info(ctx, section).Result()
	})
	if err != nil {
		return nil, err
	}
	raw, _ := v.(string)
	return ParseInfo(raw), nil
}

// ParseInfo turns INFO output into key/value pairs. Section headers and blank
// lines are skipped.
func ParseInfo(raw string) map[string]string {
	out := make(map[string]string)
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		k, v, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		out[k] = v
	}
	return out
}

// BreakerState reports the breaker state as closed, half-open or open.
func (g *Gateway) BreakerState() string {
	return stateToString(g.cb.State())
}

// stateToString converts circuit breaker state to string for logging
func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}
