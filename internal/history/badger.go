// Redis Backup Service - Scheduled Redis Snapshots, Retention and Restore
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/redisbackup

package history

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/redisbackup/internal/backup"
)

// Key prefixes for BadgerDB storage
const (
	taskKeyPrefix      = "task:"
	recordKeyPrefix    = "record:"
	completedKeyPrefix = "history:"
)

// BadgerRepository implements backup.Repository on BadgerDB.
//
// Completed entries store the record's start time in UnixNano so history can be
// listed in a stable order after a restart.
type BadgerRepository struct {
	db *badger.DB
}

// NewBadgerRepository wraps an open database. The caller owns db.
func NewBadgerRepository(db *badger.DB) *BadgerRepository {
	return &BadgerRepository{db: db}
}

// Save implements backup.Repository.
func (r *BadgerRepository) Save(_ context.Context, taskID string, record backup.BackupRecord) error {
	if record.ID() == "" {
		return fmt.Errorf("save record: empty record id")
	}
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	return r.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(recordKeyPrefix+record.ID()), data); err != nil {
			return fmt.Errorf("set record: %w", err)
		}
		if taskID != "" {
			if err := txn.Set([]byte(taskKeyPrefix+taskID), []byte(record.ID())); err != nil {
				return fmt.Errorf("set task mapping: %w", err)
			}
		}
		if record.Status() == backup.StatusCompleted {
			marker, err := json.Marshal(record.StartTime().UnixNano())
			if err != nil {
				return fmt.Errorf("marshal completed marker: %w", err)
			}
			if err := txn.Set([]byte(completedKeyPrefix+record.ID()), marker); err != nil {
				return fmt.Errorf("set completed marker: %w", err)
			}
		}
		return nil
	})
}

// Find implements backup.Repository.
func (r *BadgerRepository) Find(_ context.Context, taskID string) (backup.BackupRecord, error) {
	var rec backup.BackupRecord
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(taskKeyPrefix + taskID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return taskNotFound(taskID)
		}
		if err != nil {
			return fmt.Errorf("get task mapping: %w", err)
		}
		recordID, err := item.ValueCopy(nil)
		if err != nil {
			return fmt.Errorf("read task mapping: %w", err)
		}
		found, err := getRecord(txn, string(recordID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return taskNotFound(taskID)
		}
		if err != nil {
			return err
		}
		rec = found
		return nil
	})
	if err != nil {
		return backup.BackupRecord{}, err
	}
	return rec, nil
}

type completedEntry struct {
	startNanos int64
	record     backup.BackupRecord
}

// ListCompleted implements backup.Repository. Records come back oldest first.
func (r *BadgerRepository) ListCompleted(_ context.Context) ([]backup.BackupRecord, error) {
	var entries []completedEntry
	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(completedKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			id := string(item.Key()[len(prefix):])

			var nanos int64
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &nanos)
			}); err != nil {
				return fmt.Errorf("read completed marker %s: %w", id, err)
			}

			rec, err := getRecord(txn, id)
			if errors.Is(err, badger.ErrKeyNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			entries = append(entries, completedEntry{startNanos: nanos, record: rec})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list completed: %w", err)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].startNanos < entries[j].startNanos
	})
	out := make([]backup.BackupRecord, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.record)
	}
	return out, nil
}

// Remove implements backup.Repository. The record key is kept so task lookups
// keep working.
func (r *BadgerRepository) Remove(_ context.Context, recordID string) error {
	return r.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete([]byte(completedKeyPrefix + recordID))
		if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("delete completed marker: %w", err)
		}
		return nil
	})
}

func getRecord(txn *badger.Txn, id string) (backup.BackupRecord, error) {
	var rec backup.BackupRecord
	item, err := txn.Get([]byte(recordKeyPrefix + id))
	if err != nil {
		return rec, err
	}
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &rec)
	})
	if err != nil {
		return rec, fmt.Errorf("unmarshal record %s: %w", id, err)
	}
	return rec, nil
}
