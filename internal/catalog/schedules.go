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

// CreateSchedule inserts a schedule, assigning an ID when empty.
func (s *Store) CreateSchedule(ctx context.Context, sch *models.Schedule) error {
	if sch.ID == "" {
		sch.ID = uuid.NewString()
	}
	if err := s.db.WithContext(ctx).Create(sch).Error; err != nil {
		return fmt.Errorf("failed to create schedule: %w", err)
	}
	return nil
}

// GetSchedule loads a schedule by ID.
func (s *Store) GetSchedule(ctx context.Context, id string) (*models.Schedule, error) {
	var sch models.Schedule
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&sch).Error; err != nil {
		return nil, notFound(err, "schedule", id)
	}
	return &sch, nil
}

// ListSchedules returns schedules ordered by creation. An empty volumeID lists all.
func (s *Store) ListSchedules(ctx context.Context, volumeID string) ([]models.Schedule, error) {
	var schedules []models.Schedule
	query := s.db.WithContext(ctx).Order("created_at ASC")
	if volumeID != "" {
		query = query.Where("volume_id = ?", volumeID)
	}
	if err := query.Find(&schedules).Error; err != nil {
		return nil, fmt.Errorf("failed to list schedules: %w", err)
	}
	return schedules, nil
}

// ListEnabledSchedules returns every enabled schedule.
func (s *Store) ListEnabledSchedules(ctx context.Context) ([]models.Schedule, error) {
	var schedules []models.Schedule
	if err := s.db.WithContext(ctx).Where("enabled = ?", true).Find(&schedules).Error; err != nil {
		return nil, fmt.Errorf("failed to list enabled schedules: %w", err)
	}
	return schedules, nil
}

// UpdateSchedule changes a schedule's recurrence and enabled flag.
func (s *Store) UpdateSchedule(ctx context.Context, sch *models.Schedule) error {
	res := s.db.WithContext(ctx).Model(&models.Schedule{}).
		Where("id = ?", sch.ID).
		Updates(map[string]interface{}{
			"frequency":   sch.Frequency,
			"time_of_day": sch.TimeOfDay,
			"enabled":     sch.Enabled,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to update schedule: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("schedule %s: %w", sch.ID, models.ErrNotFound)
	}
	return nil
}

// SetScheduleLastRun records the dispatch time of a schedule.
func (s *Store) SetScheduleLastRun(ctx context.Context, id string, at time.Time) error {
	err := s.db.WithContext(ctx).Model(&models.Schedule{}).
		Where("id = ?", id).
		Update("last_run", at.UTC()).Error
	if err != nil {
		return fmt.Errorf("failed to set last run for schedule %s: %w", id, err)
	}
	return nil
}

// DeleteSchedule removes a schedule.
func (s *Store) DeleteSchedule(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Schedule{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete schedule: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("schedule %s: %w", id, models.ErrNotFound)
	}
	return nil
}
