// Redis Backup Service - Scheduled Redis Snapshots, Retention and Restore
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/redisbackup

package backup

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Retention defaults.
const (
	DefaultRetentionDays = 7
	DefaultMaxBackups    = 30
	DefaultMinBackups    = 3
)

// RetentionPolicy decides which completed backups survive a cleanup.
type RetentionPolicy struct {
	retentionDays   int
	maxBackups      int
	minBackups      int
	protectedLabels map[string]struct{}
}

// NewRetentionPolicy enforces 1 <= minBackups <= maxBackups and a non-negative
// retention period.
func NewRetentionPolicy(retentionDays, maxBackups, minBackups int, protectedLabels ...string) (RetentionPolicy, error) {
	if minBackups > maxBackups {
		return RetentionPolicy{}, NewError(KindConfiguration, "retention.new",
			fmt.Sprintf("min_backups (%d) cannot be greater than max_backups (%d)", minBackups, maxBackups))
	}
	if minBackups < 1 {
		return RetentionPolicy{}, NewError(KindConfiguration, "retention.new", "min_backups must be at least 1")
	}
	if retentionDays < 0 {
		return RetentionPolicy{}, NewError(KindConfiguration, "retention.new",
			fmt.Sprintf("retention_days (%d) cannot be negative", retentionDays))
	}

	labels := make(map[string]struct{}, len(protectedLabels))
	for _, l := range protectedLabels {
		if l = strings.TrimSpace(l); l != "" {
			labels[l] = struct{}{}
		}
	}
	return RetentionPolicy{
		retentionDays:   retentionDays,
		maxBackups:      maxBackups,
		minBackups:      minBackups,
		protectedLabels: labels,
	}, nil
}

// DefaultRetentionPolicy keeps 7 days, at most 30 and at least 3 backups.
func DefaultRetentionPolicy() RetentionPolicy {
	p, _ := NewRetentionPolicy(DefaultRetentionDays, DefaultMaxBackups, DefaultMinBackups)
	return p
}

func (p RetentionPolicy) RetentionDays() int { return p.retentionDays }
func (p RetentionPolicy) MaxBackups() int    { return p.maxBackups }
func (p RetentionPolicy) MinBackups() int    { return p.minBackups }

// ProtectedLabels returns the labels in sorted order.
func (p RetentionPolicy) ProtectedLabels() []string {
	out := make([]string, 0, len(p.protectedLabels))
	for l := range p.protectedLabels {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

// IsProtected reports whether r is exempt from age and count limits.
func (p RetentionPolicy) IsProtected(r BackupRecord) bool {
	if r.metadata.IsImportant {
		return true
	}
	if r.metadata.Label == "" {
		return false
	}
	_, ok := p.protectedLabels[r.metadata.Label]
	return ok
}

// CleanupPlan partitions the evaluated record IDs. Both slices are in
// newest-first order.
type CleanupPlan struct {
	ToDelete []string
	ToKeep   []string
	Reason   string
}

// ShouldDelete reports whether id is scheduled for deletion.
func (c CleanupPlan) ShouldDelete(id string) bool {
	for _, d := range c.ToDelete {
		if d == id {
			return true
		}
	}
	return false
}

// Evaluate walks backups newest first and applies, in order: protection, the
// minimum floor, then expiry or capacity. Protected backups count toward
// neither min_backups nor max_backups.
func (p RetentionPolicy) Evaluate(backups []BackupRecord, now time.Time) CleanupPlan {
	sorted := make([]BackupRecord, len(backups))
	copy(sorted, backups)
	sortNewestFirst(sorted)

	plan := CleanupPlan{
		ToDelete: make([]string, 0),
		ToKeep:   make([]string, 0, len(sorted)),
	}
	kept := 0
	protected := 0
	for _, b := range sorted {
		switch {
		case p.IsProtected(b):
			plan.ToKeep = append(plan.ToKeep, b.id)
			protected++
		case kept < p.minBackups:
			plan.ToKeep = append(plan.ToKeep, b.id)
			kept++
		case b.IsExpired(p.retentionDays, now) || kept >= p.maxBackups:
			plan.ToDelete = append(plan.ToDelete, b.id)
		default:
			plan.ToKeep = append(plan.ToKeep, b.id)
			kept++
		}
	}

	plan.Reason = fmt.Sprintf("evaluated %d backups: keeping %d (%d protected), deleting %d",
		len(sorted), len(plan.ToKeep), protected, len(plan.ToDelete))
	return plan
}
