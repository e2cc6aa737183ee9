// Redis Backup Service - Scheduled Redis Snapshots, Retention and Restore
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/redisbackup

package history

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/redisbackup/internal/backup"
)

// Helper function to create each backend for shared behaviour tests
func backends(t *testing.T) map[string]Store {
	t.Helper()

	badgerStore, err := Open(StoreBadger, "")
	if err != nil {
		t.Fatalf("Open(badger) error = %v", err)
	}
	t.Cleanup(func() { _ = badgerStore.Close() })

	return map[string]Store{
		"memory": NewMemoryRepository(),
		"badger": badgerStore,
	}
}

var base = time.Date(2024, 3, 1, 2, 0, 0, 0, time.UTC)

func completed(t *testing.T, start time.Time, name string) backup.BackupRecord {
	t.Helper()
	rec := backup.NewBackupRecord("job", backup.BackupMetadata{TriggerType: backup.TriggerScheduled}, start)
	if err := rec.Complete(backup.BackupFile{Filename: name, Size: 100}, start.Add(time.Minute)); err != nil {
		t.Fatal(err)
	}
	return rec
}

func TestRepository_SaveAndFind(t *testing.T) {
	t.Parallel()

	for name, repo := range backends(t) {
		repo := repo
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()

			rec := backup.NewBackupRecord("job", backup.BackupMetadata{Label: "x"}, base)
			if err := repo.Save(ctx, "task-1", rec); err != nil {
				t.Fatalf("Save() error = %v", err)
			}
			got, err := repo.Find(ctx, "task-1")
			if err != nil {
				t.Fatalf("Find() error = %v", err)
			}
			if got.ID() != rec.ID() || got.Status() != backup.StatusInProgress {
				t.Errorf("Find() = %s/%s", got.ID(), got.Status())
			}

			// In-progress records are not history yet.
			list, _ := repo.ListCompleted(ctx)
			if len(list) != 0 {
				t.Errorf("ListCompleted() = %d records, want 0", len(list))
			}

			_ = rec.UpdateProgress(60)
			if err := rec.Complete(backup.BackupFile{Filename: "f.rdb"}, base.Add(time.Minute)); err != nil {
				t.Fatal(err)
			}
			if err := repo.Save(ctx, "task-1", rec); err != nil {
				t.Fatal(err)
			}
			got, _ = repo.Find(ctx, "task-1")
			if got.Status() != backup.StatusCompleted || got.Progress() != 100 {
				t.Errorf("updated record = %s/%d", got.Status(), got.Progress())
			}
			list, _ = repo.ListCompleted(ctx)
			if len(list) != 1 {
				t.Fatalf("ListCompleted() = %d records, want 1", len(list))
			}

			// Saving the same completed record again must not duplicate it.
			_ = repo.Save(ctx, "", rec)
			list, _ = repo.ListCompleted(ctx)
			if len(list) != 1 {
				t.Errorf("duplicate history entry: %d", len(list))
			}
		})
	}
}

func TestRepository_FindUnknownTask(t *testing.T) {
	t.Parallel()

	for name, repo := range backends(t) {
		repo := repo
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := repo.Find(context.Background(), "missing")
			if !errors.Is(err, backup.ErrNotFound) {
				t.Errorf("Find(missing) = %v, want NotFound", err)
			}
		})
	}
}

func TestRepository_EmptyTaskIDUpdatesRecordOnly(t *testing.T) {
	t.Parallel()

	for name, repo := range backends(t) {
		repo := repo
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			rec := completed(t, base, "a.rdb")
			if err := repo.Save(ctx, "task-a", rec); err != nil {
				t.Fatal(err)
			}

			rec.MarkImportant()
			if err := repo.Save(ctx, "", rec); err != nil {
				t.Fatal(err)
			}
			got, err := repo.Find(ctx, "task-a")
			if err != nil {
				t.Fatal(err)
			}
			if !got.Metadata().IsImportant {
				t.Error("update through empty task id not visible via task lookup")
			}
			if _, err := repo.Find(ctx, ""); !errors.Is(err, backup.ErrNotFound) {
				t.Error("empty task id must not be registered")
			}
		})
	}
}

func TestRepository_RemoveKeepsTaskLookup(t *testing.T) {
	t.Parallel()

	for name, repo := range backends(t) {
		repo := repo
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			older := completed(t, base, "old.rdb")
			newer := completed(t, base.Add(time.Hour), "new.rdb")
			_ = repo.Save(ctx, "t-old", older)
			_ = repo.Save(ctx, "t-new", newer)

			if err := repo.Remove(ctx, older.ID()); err != nil {
				t.Fatalf("Remove() error = %v", err)
			}
			if err := repo.Remove(ctx, "unknown"); err != nil {
				t.Errorf("Remove(unknown) error = %v", err)
			}

			list, _ := repo.ListCompleted(ctx)
			if len(list) != 1 || list[0].ID() != newer.ID() {
				t.Fatalf("ListCompleted() after remove = %v", list)
			}
			if _, err := repo.Find(ctx, "t-old"); err != nil {
				t.Errorf("task lookup after Remove: %v", err)
			}
		})
	}
}

func TestRepository_ReturnsCopies(t *testing.T) {
	t.Parallel()

	for name, repo := range backends(t) {
		repo := repo
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			_ = repo.Save(ctx, "t", completed(t, base, "a.rdb"))

			list, _ := repo.ListCompleted(ctx)
			list[0].MarkImportant()

			again, _ := repo.ListCompleted(ctx)
			if again[0].Metadata().IsImportant {
				t.Error("mutating a returned record changed stored state")
			}
		})
	}
}

func TestRepository_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	for name, repo := range backends(t) {
		repo := repo
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			var wg sync.WaitGroup
			for i := 0; i < 20; i++ {
				wg.Add(2)
				go func(i int) {
					defer wg.Done()
					rec := completed(t, base.Add(time.Duration(i)*time.Minute), fmt.Sprintf("%d.rdb", i))
					if err := repo.Save(ctx, fmt.Sprintf("task-%d", i), rec); err != nil {
						t.Errorf("Save() error = %v", err)
					}
				}(i)
				go func() {
					defer wg.Done()
					if _, err := repo.ListCompleted(ctx); err != nil {
						t.Errorf("ListCompleted() error = %v", err)
					}
				}()
			}
			wg.Wait()

			list, _ := repo.ListCompleted(ctx)
			if len(list) != 20 {
				t.Errorf("ListCompleted() = %d, want 20", len(list))
			}
		})
	}
}

func TestBadgerRepository_SurvivesReopen(t *testing.T) {
	dir, err := os.MkdirTemp("", "history-badger-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(dir)

	ctx := context.Background()
	first, err := Open(StoreBadger, dir)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	rec := completed(t, base, "kept.rdb")
	if err := first.Save(ctx, "task-kept", rec); err != nil {
		t.Fatal(err)
	}
	if err := first.Close(); err != nil {
		t.Fatal(err)
	}

	second, err := Open(StoreBadger, dir)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer second.Close()

	got, err := second.Find(ctx, "task-kept")
	if err != nil {
		t.Fatalf("Find() after reopen error = %v", err)
	}
	f, ok := got.File()
	if !ok || f.Filename != "kept.rdb" {
		t.Errorf("file after reopen = %+v, %v", f, ok)
	}
	list, _ := second.ListCompleted(ctx)
	if len(list) != 1 {
		t.Errorf("ListCompleted() after reopen = %d", len(list))
	}
}

func TestOpen_UnknownType(t *testing.T) {
	t.Parallel()

	if _, err := Open("sqlite", ""); err == nil {
		t.Error("expected error for unknown store type")
	}
	s, err := Open("", "")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := s.(*MemoryRepository); !ok {
		t.Errorf("default store = %T, want *MemoryRepository", s)
	}
}
