// Redis Backup Service - Scheduled Redis Snapshots, Retention and Restore
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/redisbackup

// Package testinfra provides container fixtures for integration tests.
//
// Everything here is built only with the integration tag:
//
//	go test -tags integration ./...
//
// # Redis Container
//
// RedisContainer runs a real Redis with RDB persistence so BGSAVE, LASTSAVE
// and CONFIG GET behave exactly as in production:
//
//	func TestGateway(t *testing.T) {
//	    testinfra.SkipIfNoDocker(t)
//	    ctx := context.Background()
//	    r, err := testinfra.NewRedisContainer(ctx)
//	    if err != nil {
//	        t.Fatal(err)
//	    }
//	    defer testinfra.CleanupContainer(t, ctx, r.Container)
//
//	    conn, _ := backup.NewRedisConnection(r.Host, r.Port, r.Password, 0)
//	    gw := redisstore.New(conn, redisstore.Options{})
//	    // ...
//	}
//
// Tests are skipped when Docker is unavailable. The first run pulls the image.
package testinfra
