// Redis Backup Service - Scheduled Redis Snapshots, Retention and Restore
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/redisbackup

// Package history stores backup task and record history.
//
// Two backends implement backup.Repository:
//   - MemoryRepository: process-local maps, lost on restart (default)
//   - BadgerRepository: BadgerDB-backed, survives restarts
//
// Both keep three views: task ID to record ID, record ID to record, and the
// ordered set of COMPLETED record IDs that retention evaluates.
package history

import (
	"context"
	"fmt"
	"sync"

	"github.com/tomtom215/redisbackup/internal/backup"
)

// MemoryRepository is an in-memory backup.Repository.
type MemoryRepository struct {
	mu      sync.RWMutex
	tasks   map[string]string
	records map[string]backup.BackupRecord

	// completed preserves insertion order of COMPLETED records.
	completed    []string
	completedSet map[string]struct{}
}

// NewMemoryRepository creates an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		tasks:        make(map[string]string),
		records:      make(map[string]backup.BackupRecord),
		completedSet: make(map[string]struct{}),
	}
}

// Save implements backup.Repository.
func (r *MemoryRepository) Save(_ context.Context, taskID string, record backup.BackupRecord) error {
	if record.ID() == "" {
		return fmt.Errorf("save record: empty record id")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if taskID != "" {
		r.tasks[taskID] = record.ID()
	}
	r.records[record.ID()] = record.Clone()
	if record.Status() == backup.StatusCompleted {
		if _, ok := r.completedSet[record.ID()]; !ok {
			r.completedSet[record.ID()] = struct{}{}
			r.completed = append(r.completed, record.ID())
		}
	}
	return nil
}

// Find implements backup.Repository.
func (r *MemoryRepository) Find(_ context.Context, taskID string) (backup.BackupRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.tasks[taskID]
	if !ok {
		return backup.BackupRecord{}, taskNotFound(taskID)
	}
	rec, ok := r.records[id]
	if !ok {
		return backup.BackupRecord{}, taskNotFound(taskID)
	}
	return rec.Clone(), nil
}

// ListCompleted implements backup.Repository.
func (r *MemoryRepository) ListCompleted(_ context.Context) ([]backup.BackupRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]backup.BackupRecord, 0, len(r.completed))
	for _, id := range r.completed {
		if rec, ok := r.records[id]; ok {
			out = append(out, rec.Clone())
		}
	}
	return out, nil
}

// Remove implements backup.Repository. The record stays reachable through
// any task that produced it.
func (r *MemoryRepository) Remove(_ context.Context, recordID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.completedSet[recordID]; !ok {
		return nil
	}
	delete(r.completedSet, recordID)
	for i, id := range r.completed {
		if id == recordID {
			r.completed = append(r.completed[:i], r.completed[i+1:]...)
			break
		}
	}
	return nil
}

// Close is a no-op.
func (r *MemoryRepository) Close() error {
	return nil
}

func taskNotFound(taskID string) error {
	return backup.NewError(backup.KindNotFound, "history.find", fmt.Sprintf("task not found: %s", taskID))
}
