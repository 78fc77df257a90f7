// VolumeVault - Scheduled Volume Backup Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/volumevault

package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/volumevault/internal/models"
)

// activeStatuses are the statuses of records whose archival may still be running.
var activeStatuses = []models.BackupStatus{models.StatusPending, models.StatusInProgress}

// CreateBackup inserts a backup record, assigning an ID when empty.
func (s *Store) CreateBackup(ctx context.Context, b *models.BackupRecord) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if err := s.db.WithContext(ctx).Create(b).Error; err != nil {
		return fmt.Errorf("failed to create backup record: %w", err)
	}
	return nil
}

// GetBackup loads a backup record by ID.
func (s *Store) GetBackup(ctx context.Context, id string) (*models.BackupRecord, error) {
	var b models.BackupRecord
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&b).Error; err != nil {
		return nil, notFound(err, "backup", id)
	}
	return &b, nil
}

// ListBackups returns backup records newest first. An empty volumeID lists all volumes.
func (s *Store) ListBackups(ctx context.Context, volumeID string) ([]models.BackupRecord, error) {
	var records []models.BackupRecord
	query := s.db.WithContext(ctx).Order("started_at DESC")
	if volumeID != "" {
		query = query.Where("volume_id = ?", volumeID)
	}
	if err := query.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list backups: %w", err)
	}
	return records, nil
}

// ListSettledBackups returns every record that is neither pending nor in progress.
func (s *Store) ListSettledBackups(ctx context.Context) ([]models.BackupRecord, error) {
	var records []models.BackupRecord
	err := s.db.WithContext(ctx).
		Where("status NOT IN ?", activeStatuses).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list settled backups: %w", err)
	}
	return records, nil
}

// ListExpiredBackups returns completed records finished before cutoff, oldest first.
func (s *Store) ListExpiredBackups(ctx context.Context, cutoff time.Time) ([]models.BackupRecord, error) {
	var records []models.BackupRecord
	err := s.db.WithContext(ctx).
		Where("status = ? AND completed_at IS NOT NULL AND completed_at < ?", models.StatusCompleted, cutoff.UTC()).
		Order("completed_at ASC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list expired backups: %w", err)
	}
	return records, nil
}

// CompleteBackup moves an in-progress record to completed.
// It returns models.ErrPrecondition if the record is not in progress.
func (s *Store) CompleteBackup(ctx context.Context, id string, sizeBytes int64, completedAt time.Time) error {
	return s.finishBackup(ctx, id, map[string]interface{}{
		"status":       models.StatusCompleted,
		"size_bytes":   sizeBytes,
		"completed_at": completedAt.UTC(),
	})
}

// FailBackup moves an in-progress record to failed.
// It returns models.ErrPrecondition if the record is not in progress.
func (s *Store) FailBackup(ctx context.Context, id, message string, completedAt time.Time) error {
	return s.finishBackup(ctx, id, map[string]interface{}{
		"status":        models.StatusFailed,
		"error_message": message,
		"completed_at":  completedAt.UTC(),
	})
}

func (s *Store) finishBackup(ctx context.Context, id string, fields map[string]interface{}) error {
	res := s.db.WithContext(ctx).Model(&models.BackupRecord{}).
		Where("id = ? AND status = ?", id, models.StatusInProgress).
		Updates(fields)
	if res.Error != nil {
		return fmt.Errorf("failed to finalize backup %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("backup %s is not in progress: %w", id, models.ErrPrecondition)
	}
	return nil
}

// DeleteBackup removes a backup record.
func (s *Store) DeleteBackup(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.BackupRecord{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete backup %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("backup %s: %w", id, models.ErrNotFound)
	}
	return nil
}

// DeleteSettledBackupsByPath removes non-active records pointing at archivePath
// and returns how many were removed.
func (s *Store) DeleteSettledBackupsByPath(ctx context.Context, archivePath string) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("archive_path = ? AND status NOT IN ?", archivePath, activeStatuses).
		Delete(&models.BackupRecord{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to delete backups for %s: %w", archivePath, res.Error)
	}
	return res.RowsAffected, nil
}

// DeleteSettledBackupsByIDs removes the given records, skipping any that became active.
func (s *Store) DeleteSettledBackupsByIDs(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := s.db.WithContext(ctx).
		Where("id IN ? AND status NOT IN ?", ids, activeStatuses).
		Delete(&models.BackupRecord{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to delete orphaned backups: %w", res.Error)
	}
	return res.RowsAffected, nil
}
