// VolumeVault - Scheduled Volume Backup Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/volumevault

package trigger

import (
	"context"
	"fmt"

	"github.com/tomtom215/volumevault/internal/models"
	"github.com/tomtom215/volumevault/internal/validation"
)

// ===================================================================================================
// Volumes
// ===================================================================================================

// CreateVolume registers a source directory. Names are unique.
func (s *Service) CreateVolume(ctx context.Context, in VolumeInput) (*models.Volume, error) {
	if err := validation.Validate(&in); err != nil {
		return nil, err
	}
	if err := s.volumeNameFree(ctx, in.Name, ""); err != nil {
		return nil, err
	}

	v := &models.Volume{Name: in.Name, Path: in.Path}
	if err := s.catalog.CreateVolume(ctx, v); err != nil {
		return nil, err
	}
	s.record(ctx, models.CategorySystem, fmt.Sprintf("Volume %s created", v.Name),
		models.AuditDetails{"volume_id": v.ID, "path": v.Path})
	return v, nil
}

// GetVolume returns one volume.
func (s *Service) GetVolume(ctx context.Context, id string) (*models.Volume, error) {
	return s.catalog.GetVolume(ctx, id)
}

// ListVolumes returns every volume ordered by name.
func (s *Service) ListVolumes(ctx context.Context) ([]models.Volume, error) {
	return s.catalog.ListVolumes(ctx)
}

// UpdateVolume replaces a volume's name and path.
func (s *Service) UpdateVolume(ctx context.Context, id string, in VolumeInput) (*models.Volume, error) {
	if err := validation.Validate(&in); err != nil {
		return nil, err
	}
	if _, err := s.catalog.GetVolume(ctx, id); err != nil {
		return nil, err
	}
	if err := s.volumeNameFree(ctx, in.Name, id); err != nil {
		return nil, err
	}

	if err := s.catalog.UpdateVolume(ctx, &models.Volume{ID: id, Name: in.Name, Path: in.Path}); err != nil {
		return nil, err
	}
	s.record(ctx, models.CategorySystem, fmt.Sprintf("Volume %s updated", in.Name),
		models.AuditDetails{"volume_id": id, "path": in.Path})
	return s.catalog.GetVolume(ctx, id)
}

// DeleteVolume removes a volume with its schedules and memberships. Its
// backups are kept.
func (s *Service) DeleteVolume(ctx context.Context, id string) error {
	v, err := s.catalog.GetVolume(ctx, id)
	if err != nil {
		return err
	}
	if err := s.catalog.DeleteVolume(ctx, id); err != nil {
		return err
	}
	s.record(ctx, models.CategorySystem, fmt.Sprintf("Volume %s deleted", v.Name),
		models.AuditDetails{"volume_id": id})
	return nil
}

func (s *Service) volumeNameFree(ctx context.Context, name, exceptID string) error {
	volumes, err := s.catalog.ListVolumes(ctx)
	if err != nil {
		return err
	}
	for i := range volumes {
		if volumes[i].Name == name && volumes[i].ID != exceptID {
			return fmt.Errorf("volume name %q is already in use: %w", name, models.ErrInvalidInput)
		}
	}
	return nil
}

// ===================================================================================================
// Schedules
// ===================================================================================================

// CreateSchedule adds a recurrence definition to an existing volume.
func (s *Service) CreateSchedule(ctx context.Context, in ScheduleInput) (*models.Schedule, error) {
	if err := validation.Validate(&in); err != nil {
		return nil, err
	}
	if _, err := s.catalog.GetVolume(ctx, in.VolumeID); err != nil {
		return nil, err
	}

	sch := &models.Schedule{
		VolumeID:  in.VolumeID,
		Frequency: in.Frequency,
		TimeOfDay: in.TimeOfDay,
		Enabled:   enabledOr(in.Enabled, true),
	}
	if err := s.catalog.CreateSchedule(ctx, sch); err != nil {
		return nil, err
	}
	s.record(ctx, models.CategorySchedule, "Schedule created", scheduleDetails(sch))
	return sch, nil
}

// GetSchedule returns one schedule.
func (s *Service) GetSchedule(ctx context.Context, id string) (*models.Schedule, error) {
	return s.catalog.GetSchedule(ctx, id)
}

// ListSchedules lists schedules. An empty volumeID lists all.
func (s *Service) ListSchedules(ctx context.Context, volumeID string) ([]models.Schedule, error) {
	if volumeID != "" {
		if _, err := s.catalog.GetVolume(ctx, volumeID); err != nil {
			return nil, err
		}
	}
	return s.catalog.ListSchedules(ctx, volumeID)
}

// UpdateSchedule replaces a schedule's recurrence and, when given, its
// enabled flag. last_run is kept.
func (s *Service) UpdateSchedule(ctx context.Context, id string, in ScheduleUpdate) (*models.Schedule, error) {
	if err := validation.Validate(&in); err != nil {
		return nil, err
	}
	sch, err := s.catalog.GetSchedule(ctx, id)
	if err != nil {
		return nil, err
	}

	sch.Frequency = in.Frequency
	sch.TimeOfDay = in.TimeOfDay
	sch.Enabled = enabledOr(in.Enabled, sch.Enabled)
	if err := s.catalog.UpdateSchedule(ctx, sch); err != nil {
		return nil, err
	}
	s.record(ctx, models.CategorySchedule, "Schedule updated", scheduleDetails(sch))
	return s.catalog.GetSchedule(ctx, id)
}

// DeleteSchedule removes a schedule.
func (s *Service) DeleteSchedule(ctx context.Context, id string) error {
	sch, err := s.catalog.GetSchedule(ctx, id)
	if err != nil {
		return err
	}
	if err := s.catalog.DeleteSchedule(ctx, id); err != nil {
		return err
	}
	s.record(ctx, models.CategorySchedule, "Schedule deleted", scheduleDetails(sch))
	return nil
}

func scheduleDetails(sch *models.Schedule) models.AuditDetails {
	return models.AuditDetails{
		"schedule_id": sch.ID,
		"volume_id":   sch.VolumeID,
		"frequency":   string(sch.Frequency),
		"time_of_day": sch.TimeOfDay,
		"enabled":     sch.Enabled,
	}
}

// ===================================================================================================
// Schedule groups
// ===================================================================================================

// CreateGroup adds a schedule group with no members.
func (s *Service) CreateGroup(ctx context.Context, in GroupInput) (*models.ScheduleGroup, error) {
	if err := validation.Validate(&in); err != nil {
		return nil, err
	}
	if err := s.groupNameFree(ctx, in.Name, ""); err != nil {
		return nil, err
	}

	g := &models.ScheduleGroup{
		Name:        in.Name,
		Description: in.Description,
		Frequency:   in.Frequency,
		TimeOfDay:   in.TimeOfDay,
		Enabled:     enabledOr(in.Enabled, true),
	}
	if err := s.catalog.CreateGroup(ctx, g); err != nil {
		return nil, err
	}
	s.record(ctx, models.CategoryGroup, fmt.Sprintf("Schedule group %s created", g.Name), groupDetails(g))
	return g, nil
}

// GetGroup returns one schedule group.
func (s *Service) GetGroup(ctx context.Context, id string) (*models.ScheduleGroup, error) {
	return s.catalog.GetGroup(ctx, id)
}

// ListGroups returns every schedule group.
func (s *Service) ListGroups(ctx context.Context) ([]models.ScheduleGroup, error) {
	return s.catalog.ListGroups(ctx)
}

// UpdateGroup replaces a group's descriptive and recurrence fields.
func (s *Service) UpdateGroup(ctx context.Context, id string, in GroupInput) (*models.ScheduleGroup, error) {
	if err := validation.Validate(&in); err != nil {
		return nil, err
	}
	g, err := s.catalog.GetGroup(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.groupNameFree(ctx, in.Name, id); err != nil {
		return nil, err
	}

	g.Name = in.Name
	g.Description = in.Description
	g.Frequency = in.Frequency
	g.TimeOfDay = in.TimeOfDay
	g.Enabled = enabledOr(in.Enabled, g.Enabled)
	if err := s.catalog.UpdateGroup(ctx, g); err != nil {
		return nil, err
	}
	s.record(ctx, models.CategoryGroup, fmt.Sprintf("Schedule group %s updated", g.Name), groupDetails(g))
	return s.catalog.GetGroup(ctx, id)
}

// DeleteGroup removes a group with its members and run history.
func (s *Service) DeleteGroup(ctx context.Context, id string) error {
	g, err := s.catalog.GetGroup(ctx, id)
	if err != nil {
		return err
	}
	if err := s.catalog.DeleteGroup(ctx, id); err != nil {
		return err
	}
	s.record(ctx, models.CategoryGroup, fmt.Sprintf("Schedule group %s deleted", g.Name), groupDetails(g))
	return nil
}

// ListMembers returns a group's members in execution order.
func (s *Service) ListMembers(ctx context.Context, groupID string) ([]models.ScheduleGroupMember, error) {
	if _, err := s.catalog.GetGroup(ctx, groupID); err != nil {
		return nil, err
	}
	return s.catalog.ListMembers(ctx, groupID)
}

// SetMembers replaces a group's members in one transaction. An unknown
// group or volume leaves the previous list in place.
func (s *Service) SetMembers(ctx context.Context, groupID string, in MembersInput) ([]models.ScheduleGroupMember, error) {
	if err := validation.Validate(&in); err != nil {
		return nil, err
	}
	members, err := s.catalog.ReplaceMembers(ctx, groupID, in.VolumeIDs)
	if err != nil {
		return nil, err
	}
	s.record(ctx, models.CategoryGroup, "Schedule group members replaced",
		models.AuditDetails{"group_id": groupID, "volume_ids": in.VolumeIDs})
	return members, nil
}

func (s *Service) groupNameFree(ctx context.Context, name, exceptID string) error {
	groups, err := s.catalog.ListGroups(ctx)
	if err != nil {
		return err
	}
	for i := range groups {
		if groups[i].Name == name && groups[i].ID != exceptID {
			return fmt.Errorf("group name %q is already in use: %w", name, models.ErrInvalidInput)
		}
	}
	return nil
}

func groupDetails(g *models.ScheduleGroup) models.AuditDetails {
	return models.AuditDetails{
		"group_id":    g.ID,
		"frequency":   string(g.Frequency),
		"time_of_day": g.TimeOfDay,
		"enabled":     g.Enabled,
	}
}
