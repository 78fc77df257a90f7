// VolumeVault - Scheduled Volume Backup Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/volumevault

package audit

import (
	"context"
	"time"

	"github.com/tomtom215/volumevault/internal/models"
)

// Recorder is the write side used by operational components.
type Recorder interface {
	Log(ctx context.Context, entry *models.AuditEntry)
}

// Store defines the interface for audit entry persistence.
type Store interface {
	// Save persists an audit entry.
	Save(ctx context.Context, entry *models.AuditEntry) error

	// Query retrieves entries matching the filter, newest first.
	Query(ctx context.Context, filter QueryFilter) ([]models.AuditEntry, error)

	// Count returns the number of entries matching the filter.
	Count(ctx context.Context, filter QueryFilter) (int64, error)

	// Delete removes entries older than the given time.
	Delete(ctx context.Context, olderThan time.Time) (int64, error)

	// Stats summarizes the stored entries.
	Stats(ctx context.Context) (*Stats, error)
}

// QueryFilter defines filtering options for audit queries.
type QueryFilter struct {
	// Categories filters by category.
	Categories []models.AuditCategory `json:"categories,omitempty"`

	// Levels filters by level.
	Levels []models.AuditLevel `json:"levels,omitempty"`

	VolumeID      string `json:"volume_id,omitempty"`
	BackupID      string `json:"backup_id,omitempty"`
	CorrelationID string `json:"correlation_id,omitempty"`

	// StartTime is the beginning of the time range (inclusive).
	StartTime *time.Time `json:"start_time,omitempty"`

	// EndTime is the end of the time range (exclusive).
	EndTime *time.Time `json:"end_time,omitempty"`

	// SearchText matches a substring of the message.
	SearchText string `json:"search_text,omitempty"`

	// Limit is the maximum number of results.
	Limit int `json:"limit,omitempty"`

	// Offset for pagination.
	Offset int `json:"offset,omitempty"`
}

// DefaultQueryFilter returns a sensible default filter.
func DefaultQueryFilter() QueryFilter {
	return QueryFilter{Limit: 100}
}

// Stats returns statistics about the audit store.
type Stats struct {
	TotalEntries      int64            `json:"total_entries"`
	EntriesByLevel    map[string]int64 `json:"entries_by_level"`
	EntriesByCategory map[string]int64 `json:"entries_by_category"`
	OldestEntry       *time.Time       `json:"oldest_entry,omitempty"`
	NewestEntry       *time.Time       `json:"newest_entry,omitempty"`
}

// levelOrder ranks levels for minimum-level filtering. success ranks with info.
var levelOrder = map[models.AuditLevel]int{
	models.AuditDebug:   0,
	models.AuditInfo:    1,
	models.AuditSuccess: 1,
	models.AuditWarning: 2,
	models.AuditError:   3,
}

// ParseLevel reports whether s names a known level.
func ParseLevel(s string) (models.AuditLevel, bool) {
	l := models.AuditLevel(s)
	_, ok := levelOrder[l]
	return l, ok
}

// ParseCategory reports whether s names a known category.
func ParseCategory(s string) (models.AuditCategory, bool) {
	c := models.AuditCategory(s)
	switch c {
	case models.CategoryBackup, models.CategoryRestore, models.CategorySchedule,
		models.CategoryGroup, models.CategoryRetention, models.CategoryReconcile,
		models.CategorySystem:
		return c, true
	}
	return c, false
}
