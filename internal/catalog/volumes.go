// VolumeVault - Scheduled Volume Backup Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/volumevault

package catalog

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/tomtom215/volumevault/internal/models"
)

// CreateVolume inserts a volume, assigning an ID when empty.
func (s *Store) CreateVolume(ctx context.Context, v *models.Volume) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	if err := s.db.WithContext(ctx).Create(v).Error; err != nil {
		return fmt.Errorf("failed to create volume: %w", err)
	}
	return nil
}

// GetVolume loads a volume by ID.
func (s *Store) GetVolume(ctx context.Context, id string) (*models.Volume, error) {
	var v models.Volume
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&v).Error; err != nil {
		return nil, notFound(err, "volume", id)
	}
	return &v, nil
}

// ListVolumes returns all volumes ordered by name.
func (s *Store) ListVolumes(ctx context.Context) ([]models.Volume, error) {
	var volumes []models.Volume
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&volumes).Error; err != nil {
		return nil, fmt.Errorf("failed to list volumes: %w", err)
	}
	return volumes, nil
}

// UpdateVolume changes a volume's name and path.
func (s *Store) UpdateVolume(ctx context.Context, v *models.Volume) error {
	res := s.db.WithContext(ctx).Model(&models.Volume{}).
		Where("id = ?", v.ID).
		Updates(map[string]interface{}{"name": v.Name, "path": v.Path})
	if res.Error != nil {
		return fmt.Errorf("failed to update volume: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("volume %s: %w", v.ID, models.ErrNotFound)
	}
	return nil
}

// DeleteVolume removes a volume with its schedules and group memberships.
// Backup records are kept so their archives remain restorable and subject to retention.
func (s *Store) DeleteVolume(ctx context.Context, id string) error {
	return s.WithTx(ctx, func(tx *Store) error {
		db := tx.db.WithContext(ctx)
		if err := db.Where("volume_id = ?", id).Delete(&models.Schedule{}).Error; err != nil {
			return fmt.Errorf("failed to delete schedules: %w", err)
		}
		if err := db.Where("volume_id = ?", id).Delete(&models.ScheduleGroupMember{}).Error; err != nil {
			return fmt.Errorf("failed to delete group memberships: %w", err)
		}
		res := db.Where("id = ?", id).Delete(&models.Volume{})
		if res.Error != nil {
			return fmt.Errorf("failed to delete volume: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("volume %s: %w", id, models.ErrNotFound)
		}
		return nil
	})
}
