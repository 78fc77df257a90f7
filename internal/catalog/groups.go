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

// DefaultRunListLimit is used by ListRuns when limit is not positive.
const DefaultRunListLimit = 50

// CreateGroup inserts a schedule group, assigning an ID when empty.
func (s *Store) CreateGroup(ctx context.Context, g *models.ScheduleGroup) error {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	if err := s.db.WithContext(ctx).Create(g).Error; err != nil {
		return fmt.Errorf("failed to create schedule group: %w", err)
	}
	return nil
}

// GetGroup loads a schedule group by ID.
func (s *Store) GetGroup(ctx context.Context, id string) (*models.ScheduleGroup, error) {
	var g models.ScheduleGroup
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&g).Error; err != nil {
		return nil, notFound(err, "schedule group", id)
	}
	return &g, nil
}

// ListGroups returns all schedule groups ordered by name.
func (s *Store) ListGroups(ctx context.Context) ([]models.ScheduleGroup, error) {
	var groups []models.ScheduleGroup
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&groups).Error; err != nil {
		return nil, fmt.Errorf("failed to list schedule groups: %w", err)
	}
	return groups, nil
}

// ListEnabledGroups returns every enabled schedule group.
func (s *Store) ListEnabledGroups(ctx context.Context) ([]models.ScheduleGroup, error) {
	var groups []models.ScheduleGroup
	if err := s.db.WithContext(ctx).Where("enabled = ?", true).Find(&groups).Error; err != nil {
		return nil, fmt.Errorf("failed to list enabled schedule groups: %w", err)
	}
	return groups, nil
}

// UpdateGroup changes a group's descriptive and recurrence fields.
func (s *Store) UpdateGroup(ctx context.Context, g *models.ScheduleGroup) error {
	res := s.db.WithContext(ctx).Model(&models.ScheduleGroup{}).
		Where("id = ?", g.ID).
		Updates(map[string]interface{}{
			"name":        g.Name,
			"description": g.Description,
			"frequency":   g.Frequency,
			"time_of_day": g.TimeOfDay,
			"enabled":     g.Enabled,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to update schedule group: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("schedule group %s: %w", g.ID, models.ErrNotFound)
	}
	return nil
}

// SetGroupLastRun records the dispatch or completion time of a group.
func (s *Store) SetGroupLastRun(ctx context.Context, id string, at time.Time) error {
	err := s.db.WithContext(ctx).Model(&models.ScheduleGroup{}).
		Where("id = ?", id).
		Update("last_run", at.UTC()).Error
	if err != nil {
		return fmt.Errorf("failed to set last run for schedule group %s: %w", id, err)
	}
	return nil
}

// DeleteGroup removes a group together with its members and run history.
func (s *Store) DeleteGroup(ctx context.Context, id string) error {
	return s.WithTx(ctx, func(tx *Store) error {
		db := tx.db.WithContext(ctx)
		if err := db.Where("group_id = ?", id).Delete(&models.ScheduleGroupMember{}).Error; err != nil {
			return fmt.Errorf("failed to delete group members: %w", err)
		}
		if err := db.Where("group_id = ?", id).Delete(&models.ScheduleGroupRun{}).Error; err != nil {
			return fmt.Errorf("failed to delete group runs: %w", err)
		}
		res := db.Where("id = ?", id).Delete(&models.ScheduleGroup{})
		if res.Error != nil {
			return fmt.Errorf("failed to delete schedule group: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("schedule group %s: %w", id, models.ErrNotFound)
		}
		return nil
	})
}

// ListMembers returns a group's members ordered by execution_order.
func (s *Store) ListMembers(ctx context.Context, groupID string) ([]models.ScheduleGroupMember, error) {
	var members []models.ScheduleGroupMember
	err := s.db.WithContext(ctx).
		Where("group_id = ?", groupID).
		Order("execution_order ASC").
		Find(&members).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list group members: %w", err)
	}
	return members, nil
}

// ReplaceMembers atomically replaces a group's member list. The position of
// each volume ID in volumeIDs becomes its execution_order (starting at 1).
func (s *Store) ReplaceMembers(ctx context.Context, groupID string, volumeIDs []string) ([]models.ScheduleGroupMember, error) {
	members := make([]models.ScheduleGroupMember, 0, len(volumeIDs))
	err := s.WithTx(ctx, func(tx *Store) error {
		db := tx.db.WithContext(ctx)

		var count int64
		if err := db.Model(&models.ScheduleGroup{}).Where("id = ?", groupID).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check schedule group: %w", err)
		}
		if count == 0 {
			return fmt.Errorf("schedule group %s: %w", groupID, models.ErrNotFound)
		}

		if len(volumeIDs) > 0 {
			var found int64
			if err := db.Model(&models.Volume{}).Where("id IN ?", volumeIDs).Count(&found).Error; err != nil {
				return fmt.Errorf("failed to check volumes: %w", err)
			}
			if found != int64(len(uniqueStrings(volumeIDs))) {
				return fmt.Errorf("one or more volumes do not exist: %w", models.ErrNotFound)
			}
		}

		if err := db.Where("group_id = ?", groupID).Delete(&models.ScheduleGroupMember{}).Error; err != nil {
			return fmt.Errorf("failed to clear group members: %w", err)
		}

		for i, volumeID := range volumeIDs {
			members = append(members, models.ScheduleGroupMember{
				ID:             uuid.NewString(),
				GroupID:        groupID,
				VolumeID:       volumeID,
				ExecutionOrder: i + 1,
			})
		}
		if len(members) > 0 {
			if err := db.Create(&members).Error; err != nil {
				return fmt.Errorf("failed to insert group members: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return members, nil
}

func uniqueStrings(in []string) map[string]struct{} {
	out := make(map[string]struct{}, len(in))
	for _, s := range in {
		out[s] = struct{}{}
	}
	return out
}

// CreateRun inserts a group run, assigning an ID when empty.
func (s *Store) CreateRun(ctx context.Context, run *models.ScheduleGroupRun) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if err := s.db.WithContext(ctx).Create(run).Error; err != nil {
		return fmt.Errorf("failed to create group run: %w", err)
	}
	return nil
}

// GetRun loads a group run by ID.
func (s *Store) GetRun(ctx context.Context, id string) (*models.ScheduleGroupRun, error) {
	var run models.ScheduleGroupRun
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&run).Error; err != nil {
		return nil, notFound(err, "group run", id)
	}
	return &run, nil
}

// ListRuns returns a group's runs newest first.
func (s *Store) ListRuns(ctx context.Context, groupID string, limit int) ([]models.ScheduleGroupRun, error) {
	if limit <= 0 {
		limit = DefaultRunListLimit
	}
	var runs []models.ScheduleGroupRun
	err := s.db.WithContext(ctx).
		Where("group_id = ?", groupID).
		Order("started_at DESC").
		Limit(limit).
		Find(&runs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list group runs: %w", err)
	}
	return runs, nil
}

// SetRunProgress advances current_volume_index of an in-progress run.
// The index never moves backwards.
func (s *Store) SetRunProgress(ctx context.Context, runID string, index int) error {
	res := s.db.WithContext(ctx).Model(&models.ScheduleGroupRun{}).
		Where("id = ? AND status = ? AND current_volume_index <= ? AND total_volumes >= ?",
			runID, models.StatusInProgress, index, index).
		Update("current_volume_index", index)
	if res.Error != nil {
		return fmt.Errorf("failed to update run progress: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("run %s cannot advance to %d: %w", runID, index, models.ErrPrecondition)
	}
	return nil
}

// FailRun moves an in-progress run to failed.
func (s *Store) FailRun(ctx context.Context, runID, message string, completedAt time.Time) error {
	res := s.db.WithContext(ctx).Model(&models.ScheduleGroupRun{}).
		Where("id = ? AND status = ?", runID, models.StatusInProgress).
		Updates(map[string]interface{}{
			"status":        models.StatusFailed,
			"error_message": message,
			"completed_at":  completedAt.UTC(),
		})
	if res.Error != nil {
		return fmt.Errorf("failed to finalize run %s: %w", runID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("run %s is not in progress: %w", runID, models.ErrPrecondition)
	}
	return nil
}

// CompleteRun moves an in-progress run to completed and sets the group's
// last_run to completedAt in the same transaction.
func (s *Store) CompleteRun(ctx context.Context, runID, groupID string, completedAt time.Time) error {
	return s.WithTx(ctx, func(tx *Store) error {
		res := tx.db.WithContext(ctx).Model(&models.ScheduleGroupRun{}).
			Where("id = ? AND status = ?", runID, models.StatusInProgress).
			Updates(map[string]interface{}{
				"status":       models.StatusCompleted,
				"completed_at": completedAt.UTC(),
			})
		if res.Error != nil {
			return fmt.Errorf("failed to finalize run %s: %w", runID, res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("run %s is not in progress: %w", runID, models.ErrPrecondition)
		}
		return tx.SetGroupLastRun(ctx, groupID, completedAt)
	})
}

// ResolveStale marks every in-progress group run and backup record as failed
// with message. It returns the number of runs and records changed.
func (s *Store) ResolveStale(ctx context.Context, message string, at time.Time) (runs, backups int64, err error) {
	err = s.WithTx(ctx, func(tx *Store) error {
		db := tx.db.WithContext(ctx)
		fields := map[string]interface{}{
			"status":        models.StatusFailed,
			"error_message": message,
			"completed_at":  at.UTC(),
		}

		res := db.Model(&models.ScheduleGroupRun{}).Where("status = ?", models.StatusInProgress).Updates(fields)
		if res.Error != nil {
			return fmt.Errorf("failed to resolve stale runs: %w", res.Error)
		}
		runs = res.RowsAffected

		res = db.Model(&models.BackupRecord{}).Where("status = ?", models.StatusInProgress).Updates(fields)
		if res.Error != nil {
			return fmt.Errorf("failed to resolve stale backups: %w", res.Error)
		}
		backups = res.RowsAffected
		return nil
	})
	return runs, backups, err
}
