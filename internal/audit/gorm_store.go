// VolumeVault - Scheduled Volume Backup Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/volumevault

package audit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/tomtom215/volumevault/internal/models"
)

// GormStore implements Store on the catalog's audit_entries table.
// The table is created by the catalog migrations.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a catalog-backed audit store.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Save persists an audit entry.
func (s *GormStore) Save(ctx context.Context, entry *models.AuditEntry) error {
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("failed to insert audit entry: %w", err)
	}
	return nil
}

// applyFilter adds the WHERE clauses of filter to q.
func applyFilter(q *gorm.DB, filter *QueryFilter) *gorm.DB {
	if len(filter.Categories) > 0 {
		q = q.Where("category IN ?", filter.Categories)
	}
	if len(filter.Levels) > 0 {
		q = q.Where("level IN ?", filter.Levels)
	}
	if filter.VolumeID != "" {
		q = q.Where("volume_id = ?", filter.VolumeID)
	}
	if filter.BackupID != "" {
		q = q.Where("backup_id = ?", filter.BackupID)
	}
	if filter.CorrelationID != "" {
		q = q.Where("correlation_id = ?", filter.CorrelationID)
	}
	if filter.StartTime != nil {
		q = q.Where("timestamp >= ?", filter.StartTime.UTC())
	}
	if filter.EndTime != nil {
		q = q.Where("timestamp < ?", filter.EndTime.UTC())
	}
	if filter.SearchText != "" {
		q = q.Where("LOWER(message) LIKE ?", "%"+strings.ToLower(filter.SearchText)+"%")
	}
	return q
}

// Query retrieves entries matching the filter, newest first.
func (s *GormStore) Query(ctx context.Context, filter QueryFilter) ([]models.AuditEntry, error) {
	q := applyFilter(s.db.WithContext(ctx).Model(&models.AuditEntry{}), &filter).
		Order("timestamp DESC").Order("id DESC")
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}

	var entries []models.AuditEntry
	if err := q.Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to query audit entries: %w", err)
	}
	return entries, nil
}

// Count returns the number of entries matching the filter.
func (s *GormStore) Count(ctx context.Context, filter QueryFilter) (int64, error) {
	var count int64
	q := applyFilter(s.db.WithContext(ctx).Model(&models.AuditEntry{}), &filter)
	if err := q.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count audit entries: %w", err)
	}
	return count, nil
}

// Delete removes entries older than the given time.
func (s *GormStore) Delete(ctx context.Context, olderThan time.Time) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("timestamp < ?", olderThan.UTC()).
		Delete(&models.AuditEntry{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete old audit entries: %w", result.Error)
	}
	return result.RowsAffected, nil
}

type groupCount struct {
	Grp   string
	Total int64
}

// countByColumn executes a GROUP BY query and returns counts per value.
func (s *GormStore) countByColumn(ctx context.Context, column string) (map[string]int64, error) {
	var rows []groupCount
	err := s.db.WithContext(ctx).Model(&models.AuditEntry{}).
		Select(column + " AS grp, COUNT(*) AS total").
		Group(column).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get %s counts: %w", column, err)
	}

	result := make(map[string]int64, len(rows))
	for _, r := range rows {
		result[r.Grp] = r.Total
	}
	return result, nil
}

// Stats summarizes the stored entries.
func (s *GormStore) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	if err := s.db.WithContext(ctx).Model(&models.AuditEntry{}).Count(&stats.TotalEntries).Error; err != nil {
		return nil, fmt.Errorf("failed to count audit entries: %w", err)
	}

	var err error
	if stats.EntriesByLevel, err = s.countByColumn(ctx, "level"); err != nil {
		return nil, err
	}
	if stats.EntriesByCategory, err = s.countByColumn(ctx, "category"); err != nil {
		return nil, err
	}

	if stats.TotalEntries > 0 {
		var oldest, newest models.AuditEntry
		if err := s.db.WithContext(ctx).Order("timestamp ASC").First(&oldest).Error; err != nil {
			return nil, fmt.Errorf("failed to read oldest audit entry: %w", err)
		}
		if err := s.db.WithContext(ctx).Order("timestamp DESC").First(&newest).Error; err != nil {
			return nil, fmt.Errorf("failed to read newest audit entry: %w", err)
		}
		stats.OldestEntry = &oldest.Timestamp
		stats.NewestEntry = &newest.Timestamp
	}

	return stats, nil
}
