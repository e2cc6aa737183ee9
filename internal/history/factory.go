// Redis Backup Service - Scheduled Redis Snapshots, Retention and Restore
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/redisbackup

package history

import (
	"fmt"
	"io"

	"github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/redisbackup/internal/backup"
)

// StoreType selects the history backend.
type StoreType string

const (
	// StoreMemory keeps history in process memory (default, not persistent).
	StoreMemory StoreType = "memory"

	// StoreBadger persists history in a BadgerDB directory.
	StoreBadger StoreType = "badger"
)

// Store is a Repository that owns resources to release on shutdown.
type Store interface {
	backup.Repository
	io.Closer
}

type badgerStore struct {
	*BadgerRepository
	db *badger.DB
}

func (s *badgerStore) Close() error {
	return s.db.Close()
}

// Open creates the configured history store. For StoreBadger an empty path
// opens an in-memory database.
func Open(storeType StoreType, path string) (Store, error) {
	switch storeType {
	case StoreMemory, "":
		return NewMemoryRepository(), nil
	case StoreBadger:
		opts := badger.DefaultOptions(path)
		if path == "" {
			opts = opts.WithInMemory(true)
		}
		opts.Logger = nil // Suppress BadgerDB logs

		db, err := badger.Open(opts)
		if err != nil {
			return nil, fmt.Errorf("open badger db for history: %w", err)
		}
		return &badgerStore{BadgerRepository: NewBadgerRepository(db), db: db}, nil
	default:
		return nil, fmt.Errorf("unknown history store type %q", storeType)
	}
}
