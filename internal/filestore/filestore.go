// Redis Backup Service - Scheduled Redis Snapshots, Retention and Restore
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/redisbackup

// Package filestore manages snapshot files in the backup directory and copies
// them into and out of the Redis data directory.
//
// All file names are base names relative to the backup directory. Names that
// contain a path separator or ".." are rejected before touching the disk.
// Writes go to a uniquely named temporary file in the destination directory
// and are renamed into place, so a reader never observes a partially written
// snapshot and concurrent writers never share a temporary file.
//
// Checksums are computed while a copy streams and cached by size and
// modification time, so listing the directory does not re-read unchanged
// files.
package filestore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tomtom215/redisbackup/internal/backup"
	"github.com/tomtom215/redisbackup/internal/logging"
)

// DefaultDataFilename is the RDB file Redis loads on startup.
const DefaultDataFilename = "dump.rdb"

const partialSuffix = ".partial"

// Store implements backup.FileStorage on the local filesystem.
type Store struct {
	backupDir    string
	redisDataDir string
	dataFilename string

	sumsMu sync.Mutex
	sums   map[string]cachedSum

	// hashFile is Checksum; tests count calls through it.
	hashFile func(path string) (string, error)
}

// cachedSum is valid while the file keeps its size and modification time.
type cachedSum struct {
	size     int64
	modTime  time.Time
	checksum string
}

// New creates backupDir if needed.
func New(backupDir, redisDataDir string) (*Store, error) {
	if backupDir == "" {
		return nil, backup.NewError(backup.KindConfiguration, "filestore.new", "backup path is required")
	}
	if err := os.MkdirAll(backupDir, 0o750); err != nil {
		return nil, backup.WrapError(backup.KindStorage, "filestore.new", fmt.Errorf("create backup dir: %w", err))
	}
	return &Store{
		backupDir:    backupDir,
		redisDataDir: redisDataDir,
		dataFilename: DefaultDataFilename,
		sums:         make(map[string]cachedSum),
		hashFile:     Checksum,
	}, nil
}

// BackupDir returns the managed directory.
func (s *Store) BackupDir() string {
	return s.backupDir
}

func (s *Store) resolve(op, filename string) (string, error) {
	if filename == "" || filename == "." || filename == ".." ||
		filepath.Base(filename) != filename || strings.Contains(filename, "..") {
		return "", backup.NewError(backup.KindConfiguration, op, fmt.Sprintf("invalid backup file name: %q", filename))
	}
	return filepath.Join(s.backupDir, filename), nil
}

// List returns every *.rdb file in the backup directory, newest first.
func (s *Store) List(ctx context.Context) ([]backup.StoredFile, error) {
	matches, err := filepath.Glob(filepath.Join(s.backupDir, "*"+backup.BackupFileExt))
	if err != nil {
		return nil, backup.WrapError(backup.KindStorage, "filestore.list", err)
	}

	files := make([]backup.StoredFile, 0, len(matches))
	for _, path := range matches {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sf, err := s.describe(path)
		if errors.Is(err, fs.ErrNotExist) {
			// Deleted between glob and stat.
			continue
		}
		if err != nil {
			return nil, backup.WrapError(backup.KindStorage, "filestore.list", err)
		}
		files = append(files, sf)
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].CreatedAt.After(files[j].CreatedAt)
	})
	return files, nil
}

// Exists reports whether filename is a regular file in the backup directory.
func (s *Store) Exists(filename string) bool {
	path, err := s.resolve("filestore.exists", filename)
	if err != nil {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// Copy copies source into the backup directory. When source is missing the
// Redis data directory's dump.rdb is used instead.
func (s *Store) Copy(ctx context.Context, source, destFilename string) (string, error) {
	dest, err := s.resolve("filestore.copy", destFilename)
	if err != nil {
		return "", err
	}

	src := source
	if _, err := os.Stat(src); err != nil {
		fallback := filepath.Join(s.redisDataDir, s.dataFilename)
		if s.redisDataDir == "" {
			return "", backup.NewError(backup.KindNotFound, "filestore.copy", fmt.Sprintf("source file not found: %s", source))
		}
		if _, ferr := os.Stat(fallback); ferr != nil {
			return "", backup.NewError(backup.KindNotFound, "filestore.copy", fmt.Sprintf("source file not found: %s", source))
		}
		logging.Debug().Str("source", source).Str("fallback", fallback).Msg("Snapshot source missing, using data directory copy")
		src = fallback
	}

	logging.Info().Str("source", src).Str("destination", dest).Msg("Copying snapshot")
	if err := s.copyFile(ctx, src, dest); err != nil {
		return "", backup.WrapError(backup.KindStorage, "filestore.copy", err)
	}
	return dest, nil
}

// RestoreInto overwrites the Redis data file with filename.
func (s *Store) RestoreInto(ctx context.Context, filename string) error {
	src, err := s.resolve("filestore.restore", filename)
	if err != nil {
		return err
	}
	if _, err := os.Stat(src); err != nil {
		return backup.NewError(backup.KindNotFound, "filestore.restore", fmt.Sprintf("backup file not found: %s", filename))
	}
	if s.redisDataDir == "" {
		return backup.NewError(backup.KindConfiguration, "filestore.restore", "redis data path is not configured")
	}

	dest := filepath.Join(s.redisDataDir, s.dataFilename)
	logging.Info().Str("source", src).Str("destination", dest).Msg("Restoring snapshot")
	if err := s.copyFile(ctx, src, dest); err != nil {
		return backup.WrapError(backup.KindStorage, "filestore.restore", err)
	}
	return nil
}

// Delete removes filename. The bool is false when the file did not exist.
func (s *Store) Delete(filename string) (bool, error) {
	path, err := s.resolve("filestore.delete", filename)
	if err != nil {
		return false, err
	}
	err = os.Remove(path)
	s.forget(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, backup.WrapError(backup.KindStorage, "filestore.delete", err)
	}
	logging.Info().Str("filename", filename).Msg("Deleted backup file")
	return true, nil
}

// FileInfo returns size, checksum and modification time of filename.
func (s *Store) FileInfo(filename string) (backup.StoredFile, error) {
	path, err := s.resolve("filestore.info", filename)
	if err != nil {
		return backup.StoredFile{}, err
	}
	sf, err := s.describe(path)
	if errors.Is(err, fs.ErrNotExist) {
		return backup.StoredFile{}, backup.NewError(backup.KindNotFound, "filestore.info", fmt.Sprintf("file not found: %s", filename))
	}
	if err != nil {
		return backup.StoredFile{}, backup.WrapError(backup.KindStorage, "filestore.info", err)
	}
	return sf, nil
}

// Status reports disk usage of the filesystem holding the backup directory.
func (s *Store) Status() (backup.StorageStatus, error) {
	status, err := diskUsage(s.backupDir)
	if err != nil {
		return backup.StorageStatus{}, backup.WrapError(backup.KindStorage, "filestore.status", err)
	}
	return status, nil
}

func (s *Store) describe(path string) (backup.StoredFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return backup.StoredFile{}, err
	}
	sum, err := s.checksum(path, info)
	if err != nil {
		return backup.StoredFile{}, err
	}
	return backup.StoredFile{
		Filename:  filepath.Base(path),
		Path:      path,
		Size:      info.Size(),
		Checksum:  sum,
		CreatedAt: info.ModTime(),
	}, nil
}

// checksum returns the cached sum for path when size and mtime still match,
// hashing the file otherwise.
func (s *Store) checksum(path string, info fs.FileInfo) (string, error) {
	s.sumsMu.Lock()
	c, ok := s.sums[path]
	s.sumsMu.Unlock()
	if ok && c.size == info.Size() && c.modTime.Equal(info.ModTime()) {
		return c.checksum, nil
	}

	sum, err := s.hashFile(path)
	if err != nil {
		return "", err
	}
	s.remember(path, info, sum)
	return sum, nil
}

func (s *Store) remember(path string, info fs.FileInfo, sum string) {
	s.sumsMu.Lock()
	defer s.sumsMu.Unlock()
	s.sums[path] = cachedSum{size: info.Size(), modTime: info.ModTime(), checksum: sum}
}

func (s *Store) forget(path string) {
	s.sumsMu.Lock()
	defer s.sumsMu.Unlock()
	delete(s.sums, path)
}

// Checksum returns the hex SHA-256 of the file at path.
func Checksum(path string) (string, error) {
	f, err := os.Open(path) //nolint:gosec // path is resolved inside managed directories
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// copyFile writes src to a unique temporary sibling of dest, hashing it on
// the way, and renames it into place.
func (s *Store) copyFile(ctx context.Context, src, dest string) (err error) {
	in, err := os.Open(src) //nolint:gosec // path is resolved inside managed directories
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer in.Close()

	out, err := os.CreateTemp(filepath.Dir(dest), filepath.Base(dest)+".*"+partialSuffix)
	if err != nil {
		return fmt.Errorf("create destination: %w", err)
	}
	tmp := out.Name()
	defer func() {
		if err != nil {
			_ = out.Close()
			_ = os.Remove(tmp)
		}
	}()

	h := sha256.New()
	if _, err = io.Copy(io.MultiWriter(out, h), &ctxReader{ctx: ctx, r: in}); err != nil {
		return fmt.Errorf("copy data: %w", err)
	}
	if err = out.Chmod(0o640); err != nil {
		return fmt.Errorf("chmod destination: %w", err)
	}
	if err = out.Sync(); err != nil {
		return fmt.Errorf("sync destination: %w", err)
	}
	if err = out.Close(); err != nil {
		return fmt.Errorf("close destination: %w", err)
	}
	if err = os.Rename(tmp, dest); err != nil {
		return fmt.Errorf("rename into place: %w", err)
	}

	if info, statErr := os.Stat(dest); statErr == nil {
		s.remember(dest, info, hex.EncodeToString(h.Sum(nil)))
	}
	return nil
}

// ctxReader stops a copy once ctx is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
