// VolumeVault - Scheduled Volume Backup Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/volumevault

// Package trigger is the operator and scheduler facing surface of
// VolumeVault. Every HTTP handler and the in-process scheduler dispatcher go
// through Service, which validates input, applies the optional in-flight
// guard and delegates to the backup executor, the group runner and the
// catalog.
//
// Calls that start work return the created record in its in-progress state;
// the work itself runs on the task registry.
package trigger

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/tomtom215/volumevault/internal/archive"
	"github.com/tomtom215/volumevault/internal/audit"
	"github.com/tomtom215/volumevault/internal/backup"
	"github.com/tomtom215/volumevault/internal/logging"
	"github.com/tomtom215/volumevault/internal/models"
	"github.com/tomtom215/volumevault/internal/tasks"
	"github.com/tomtom215/volumevault/internal/validation"
)

// Catalog is the subset of the catalog store the service manages directly.
type Catalog interface {
	CreateVolume(ctx context.Context, v *models.Volume) error
	GetVolume(ctx context.Context, id string) (*models.Volume, error)
	ListVolumes(ctx context.Context) ([]models.Volume, error)
	UpdateVolume(ctx context.Context, v *models.Volume) error
	DeleteVolume(ctx context.Context, id string) error

	CreateSchedule(ctx context.Context, sch *models.Schedule) error
	GetSchedule(ctx context.Context, id string) (*models.Schedule, error)
	ListSchedules(ctx context.Context, volumeID string) ([]models.Schedule, error)
	UpdateSchedule(ctx context.Context, sch *models.Schedule) error
	DeleteSchedule(ctx context.Context, id string) error

	CreateGroup(ctx context.Context, g *models.ScheduleGroup) error
	GetGroup(ctx context.Context, id string) (*models.ScheduleGroup, error)
	ListGroups(ctx context.Context) ([]models.ScheduleGroup, error)
	UpdateGroup(ctx context.Context, g *models.ScheduleGroup) error
	DeleteGroup(ctx context.Context, id string) error
	ListMembers(ctx context.Context, groupID string) ([]models.ScheduleGroupMember, error)
	ReplaceMembers(ctx context.Context, groupID string, volumeIDs []string) ([]models.ScheduleGroupMember, error)
}

// Backups is the backup executor surface.
type Backups interface {
	TriggerWithRelease(ctx context.Context, volumeID string, release func()) (*models.BackupRecord, error)
	Get(ctx context.Context, backupID string) (*models.BackupRecord, error)
	List(ctx context.Context, volumeID string) ([]models.BackupRecord, error)
	ListContents(ctx context.Context, backupID string) ([]archive.Entry, error)
	Delete(ctx context.Context, backupID string) error
	StartRestore(ctx context.Context, backupID string, opts backup.RestoreOptions) (*backup.RestorePlan, error)
}

// Groups is the group runner surface.
type Groups interface {
	StartWithRelease(ctx context.Context, groupID string, release func()) (*models.ScheduleGroupRun, error)
	GetRun(ctx context.Context, runID string) (*models.ScheduleGroupRun, error)
	ListRuns(ctx context.Context, groupID string, limit int) ([]models.ScheduleGroupRun, error)
}

// Deps are the service's collaborators. Guard, Audit and Logger may be nil.
type Deps struct {
	Catalog Catalog
	Backups Backups
	Groups  Groups
	Guard   *tasks.Guard
	Audit   audit.Recorder
	Logger  *zerolog.Logger
}

// Service implements the trigger surface.
type Service struct {
	catalog Catalog
	backups Backups
	groups  Groups
	guard   *tasks.Guard
	audit   audit.Recorder
	logger  zerolog.Logger
}

// NewService creates a trigger service.
func NewService(deps Deps) (*Service, error) {
	if deps.Catalog == nil || deps.Backups == nil || deps.Groups == nil {
		return nil, fmt.Errorf("trigger service: catalog, backups and groups are required")
	}
	s := &Service{
		catalog: deps.Catalog,
		backups: deps.Backups,
		groups:  deps.Groups,
		guard:   deps.Guard,
		audit:   deps.Audit,
		logger:  logging.WithComponent("trigger"),
	}
	if s.guard == nil {
		s.guard = tasks.NewGuard(false)
	}
	if s.audit == nil {
		s.audit = audit.Nop{}
	}
	if deps.Logger != nil {
		s.logger = *deps.Logger
	}
	return s, nil
}

func volumeKey(id string) string { return tasks.VolumeKey(id) }
func groupKey(id string) string  { return tasks.GroupKey(id) }

// StartBackup starts a backup of one volume and returns its in-progress record.
func (s *Service) StartBackup(ctx context.Context, volumeID string) (*models.BackupRecord, error) {
	release, err := s.guard.Acquire(volumeKey(volumeID))
	if err != nil {
		s.refused(ctx, models.CategoryBackup, "Backup refused: volume already being backed up",
			models.AuditDetails{"volume_id": volumeID})
		return nil, err
	}
	return s.backups.TriggerWithRelease(ctx, volumeID, release)
}

// StartGroupRun starts a run of one schedule group and returns it in its
// initial state.
func (s *Service) StartGroupRun(ctx context.Context, groupID string) (*models.ScheduleGroupRun, error) {
	release, err := s.guard.Acquire(groupKey(groupID))
	if err != nil {
		s.refused(ctx, models.CategoryGroup, "Group run refused: group already running",
			models.AuditDetails{"group_id": groupID})
		return nil, err
	}
	return s.groups.StartWithRelease(ctx, groupID, release)
}

// TriggerBackup implements scheduler.Dispatcher.
func (s *Service) TriggerBackup(ctx context.Context, volumeID string) error {
	_, err := s.StartBackup(ctx, volumeID)
	return err
}

// TriggerGroupRun implements scheduler.Dispatcher.
func (s *Service) TriggerGroupRun(ctx context.Context, groupID string) error {
	_, err := s.StartGroupRun(ctx, groupID)
	return err
}

func (s *Service) refused(ctx context.Context, category models.AuditCategory, msg string, details models.AuditDetails) {
	logging.Ctx(ctx).Warn().Fields(map[string]interface{}(details)).Msg(msg)
	s.audit.Log(ctx, audit.Entry(models.AuditWarning, category, msg, details))
}

// GetBackup returns one backup record.
func (s *Service) GetBackup(ctx context.Context, backupID string) (*models.BackupRecord, error) {
	return s.backups.Get(ctx, backupID)
}

// ListBackups lists backups newest first. An empty volumeID lists all.
func (s *Service) ListBackups(ctx context.Context, volumeID string) ([]models.BackupRecord, error) {
	return s.backups.List(ctx, volumeID)
}

// DeleteBackup removes a settled backup and its archive.
func (s *Service) DeleteBackup(ctx context.Context, backupID string) error {
	return s.backups.Delete(ctx, backupID)
}

// BackupContents lists the entries of a completed backup.
func (s *Service) BackupContents(ctx context.Context, backupID string) ([]archive.Entry, error) {
	return s.backups.ListContents(ctx, backupID)
}

// RestoreBackup validates a restore synchronously and extracts in the
// background. The returned plan names the resolved destination.
func (s *Service) RestoreBackup(ctx context.Context, backupID string, in RestoreInput) (*backup.RestorePlan, error) {
	if err := validation.Validate(&in); err != nil {
		return nil, err
	}
	return s.backups.StartRestore(ctx, backupID, in.options())
}

// GetRun returns one group run.
func (s *Service) GetRun(ctx context.Context, runID string) (*models.ScheduleGroupRun, error) {
	return s.groups.GetRun(ctx, runID)
}

// ListRuns lists a group's runs newest first. limit <= 0 uses the default.
func (s *Service) ListRuns(ctx context.Context, groupID string, limit int) ([]models.ScheduleGroupRun, error) {
	return s.groups.ListRuns(ctx, groupID, limit)
}

// record writes an audit entry for a catalog change.
func (s *Service) record(ctx context.Context, category models.AuditCategory, msg string, details models.AuditDetails) {
	entry := audit.Entry(models.AuditInfo, category, msg, details)
	if id, ok := details["volume_id"].(string); ok {
		entry.VolumeID = id
	}
	s.audit.Log(ctx, entry)
}
