// VolumeVault - Scheduled Volume Backup Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/volumevault

// Package grouprun executes schedule groups: the members of a group are
// archived one after another in execution_order, and the first failure ends
// the run.
//
//	run := Start(group)                      status=in_progress, index=0
//	for N, member := range members {         1-based N
//	    SetRunProgress(run, N)               persisted before archival
//	    Guard.Acquire(volume:<id>)           refusal fails the member
//	    backup.Run(member.volume)            synchronous
//	    on error: FailRun, stop              later members get no record
//	}
//	CompleteRun(run) + group.last_run        one transaction
//	Notify(group.completed, summary)         always
//
// No transaction spans a run; each step commits on its own so progress is
// visible while the run is in flight.
package grouprun

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/volumevault/internal/audit"
	"github.com/tomtom215/volumevault/internal/backup"
	"github.com/tomtom215/volumevault/internal/logging"
	"github.com/tomtom215/volumevault/internal/metrics"
	"github.com/tomtom215/volumevault/internal/models"
	"github.com/tomtom215/volumevault/internal/notify"
	"github.com/tomtom215/volumevault/internal/tasks"
)

// Member outcome statuses in the group.completed summary.
const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
	OutcomeSkipped   = "skipped"
)

// Catalog is the subset of the catalog store the runner needs.
type Catalog interface {
	GetGroup(ctx context.Context, id string) (*models.ScheduleGroup, error)
	ListMembers(ctx context.Context, groupID string) ([]models.ScheduleGroupMember, error)
	GetVolume(ctx context.Context, id string) (*models.Volume, error)
	CreateRun(ctx context.Context, run *models.ScheduleGroupRun) error
	GetRun(ctx context.Context, id string) (*models.ScheduleGroupRun, error)
	ListRuns(ctx context.Context, groupID string, limit int) ([]models.ScheduleGroupRun, error)
	SetRunProgress(ctx context.Context, runID string, index int) error
	FailRun(ctx context.Context, runID, message string, completedAt time.Time) error
	CompleteRun(ctx context.Context, runID, groupID string, completedAt time.Time) error
}

// BackupRunner archives one volume synchronously.
type BackupRunner interface {
	Run(ctx context.Context, volumeID string) (*models.BackupRecord, error)
}

// Deps are the runner's collaborators. Guard, Notifier and Audit may be nil.
// Guard should be the one the trigger service holds so a member cannot
// overlap a manual backup of the same volume.
type Deps struct {
	Catalog  Catalog
	Backups  BackupRunner
	Tasks    backup.TaskRunner
	Guard    *tasks.Guard
	Notifier notify.Notifier
	Audit    audit.Recorder
	Logger   *zerolog.Logger
}

// Runner starts and executes group runs.
type Runner struct {
	catalog  Catalog
	backups  BackupRunner
	tasks    backup.TaskRunner
	guard    *tasks.Guard
	notifier notify.Notifier
	audit    audit.Recorder
	logger   zerolog.Logger
	now      func() time.Time
}

// NewRunner creates a group runner.
func NewRunner(deps Deps) (*Runner, error) {
	if deps.Catalog == nil || deps.Backups == nil || deps.Tasks == nil {
		return nil, fmt.Errorf("group runner: catalog, backups and tasks are required")
	}
	r := &Runner{
		catalog:  deps.Catalog,
		backups:  deps.Backups,
		tasks:    deps.Tasks,
		guard:    deps.Guard,
		notifier: deps.Notifier,
		audit:    deps.Audit,
		logger:   logging.WithComponent("grouprun"),
		now:      func() time.Time { return time.Now().UTC() },
	}
	if deps.Logger != nil {
		r.logger = *deps.Logger
	}
	if r.guard == nil {
		r.guard = tasks.NewGuard(false)
	}
	if r.notifier == nil {
		r.notifier = notify.Discard{}
	}
	if r.audit == nil {
		r.audit = audit.Nop{}
	}
	return r, nil
}

// Start snapshots the group's members, creates an in-progress run and
// executes it in the background. The returned run is in its initial state.
func (r *Runner) Start(ctx context.Context, groupID string) (*models.ScheduleGroupRun, error) {
	return r.StartWithRelease(ctx, groupID, nil)
}

// StartWithRelease is Start with a callback run once the run is finished,
// or immediately when Start fails.
func (r *Runner) StartWithRelease(ctx context.Context, groupID string, release func()) (*models.ScheduleGroupRun, error) {
	if release == nil {
		release = func() {}
	}

	group, err := r.catalog.GetGroup(ctx, groupID)
	if err != nil {
		release()
		return nil, err
	}
	members, err := r.catalog.ListMembers(ctx, groupID)
	if err != nil {
		release()
		return nil, err
	}

	run := &models.ScheduleGroupRun{
		GroupID:      group.ID,
		Status:       models.StatusInProgress,
		TotalVolumes: len(members),
		StartedAt:    r.now(),
	}
	if err := r.catalog.CreateRun(ctx, run); err != nil {
		release()
		return nil, err
	}
	snapshot := *run

	logging.Ctx(ctx).Info().
		Str("group", group.Name).
		Str("run_id", run.ID).
		Int("members", len(members)).
		Msg("Group run started")

	err = r.tasks.Go(ctx, "group_run", func(taskCtx context.Context) {
		defer release()
		_ = r.Execute(taskCtx, group, run, members)
	})
	if err != nil {
		release()
		if failErr := r.catalog.FailRun(ctx, run.ID, "background task not started: "+err.Error(), r.now()); failErr != nil {
			r.logger.Warn().Err(failErr).Str("run_id", run.ID).Msg("Group run could not be marked failed")
		}
		return nil, err
	}
	return &snapshot, nil
}

// Execute runs the members of group in order against run. It returns the
// error that failed the run, or nil when every member completed.
func (r *Runner) Execute(ctx context.Context, group *models.ScheduleGroup, run *models.ScheduleGroupRun, members []models.ScheduleGroupMember) error {
	log := r.logger.With().Str("group", group.Name).Str("run_id", run.ID).Logger()
	outcomes := make([]notify.MemberOutcome, 0, len(members))

	var runErr error
	for i, member := range members {
		index := i + 1
		outcome := notify.MemberOutcome{
			VolumeID:   member.VolumeID,
			VolumeName: r.volumeName(ctx, member.VolumeID),
			Order:      member.ExecutionOrder,
		}

		if runErr != nil {
			outcome.Status = OutcomeSkipped
			outcomes = append(outcomes, outcome)
			continue
		}

		if err := r.catalog.SetRunProgress(ctx, run.ID, index); err != nil {
			runErr = fmt.Errorf("advance to member %d of %d: %w", index, len(members), err)
			outcome.Status = OutcomeSkipped
			outcomes = append(outcomes, outcome)
			continue
		}
		run.CurrentVolumeIndex = index

		log.Info().
			Int("index", index).
			Int("total", len(members)).
			Str("volume", outcome.VolumeName).
			Msg("Group member backup started")

		rec, err := r.runMember(ctx, member.VolumeID)
		if rec != nil {
			outcome.BackupID = rec.ID
			outcome.SizeBytes = rec.SizeBytes
		}
		if err != nil {
			outcome.Status = OutcomeFailed
			outcome.Error = err.Error()
			runErr = fmt.Errorf("volume %s (%d of %d) failed: %w", outcome.VolumeName, index, len(members), err)
		} else {
			outcome.Status = OutcomeCompleted
		}
		outcomes = append(outcomes, outcome)
	}

	completedAt := r.now()
	r.finish(ctx, log, group, run, runErr, completedAt)

	summary := notify.GroupCompletedPayload{
		GroupID:         group.ID,
		GroupName:       group.Name,
		RunID:           run.ID,
		Status:          string(run.Status),
		StartedAt:       run.StartedAt,
		CompletedAt:     completedAt,
		DurationSeconds: completedAt.Sub(run.StartedAt).Seconds(),
		Members:         outcomes,
		Error:           run.ErrorMessage,
	}
	r.notifier.Notify(ctx, notify.EventGroupCompleted, summary)
	metrics.RecordGroupRun(string(run.Status), completedAt.Sub(run.StartedAt))

	return runErr
}

// finish settles the run record and writes the audit entry.
func (r *Runner) finish(ctx context.Context, log zerolog.Logger, group *models.ScheduleGroup, run *models.ScheduleGroupRun, runErr error, completedAt time.Time) {
	run.CompletedAt = &completedAt

	if runErr != nil {
		run.Status = models.StatusFailed
		run.ErrorMessage = runErr.Error()
		if err := r.catalog.FailRun(ctx, run.ID, run.ErrorMessage, completedAt); err != nil {
			log.Warn().Err(err).Msg("Group run could not be marked failed")
		}
		log.Error().Err(runErr).Int("index", run.CurrentVolumeIndex).Msg("Group run failed")
		r.audit.Log(ctx, &models.AuditEntry{
			Level:    models.AuditError,
			Category: models.CategoryGroup,
			Message:  fmt.Sprintf("Group %s run failed", group.Name),
			Details: models.AuditDetails{
				"group_id": group.ID,
				"run_id":   run.ID,
				"index":    run.CurrentVolumeIndex,
				"total":    run.TotalVolumes,
				"error":    run.ErrorMessage,
			},
		})
		return
	}

	if err := r.catalog.CompleteRun(ctx, run.ID, group.ID, completedAt); err != nil {
		// Resolved elsewhere while running; report what the catalog holds.
		log.Warn().Err(err).Msg("Group run could not be completed")
		run.Status = models.StatusFailed
		run.ErrorMessage = err.Error()
		return
	}
	run.Status = models.StatusCompleted
	group.LastRun = &completedAt

	log.Info().
		Int("members", run.TotalVolumes).
		Dur("duration", completedAt.Sub(run.StartedAt)).
		Msg("Group run completed")
	r.audit.Log(ctx, &models.AuditEntry{
		Level:    models.AuditSuccess,
		Category: models.CategoryGroup,
		Message:  fmt.Sprintf("Group %s run completed", group.Name),
		Details: models.AuditDetails{
			"group_id":    group.ID,
			"run_id":      run.ID,
			"total":       run.TotalVolumes,
			"duration_ms": completedAt.Sub(run.StartedAt).Milliseconds(),
		},
	})
}

// runMember archives one member while holding its volume key.
func (r *Runner) runMember(ctx context.Context, volumeID string) (*models.BackupRecord, error) {
	release, err := r.guard.Acquire(tasks.VolumeKey(volumeID))
	if err != nil {
		return nil, err
	}
	defer release()
	return r.backups.Run(ctx, volumeID)
}

func (r *Runner) volumeName(ctx context.Context, volumeID string) string {
	vol, err := r.catalog.GetVolume(ctx, volumeID)
	if err != nil {
		return volumeID
	}
	return vol.Name
}

// GetRun returns one run.
func (r *Runner) GetRun(ctx context.Context, runID string) (*models.ScheduleGroupRun, error) {
	return r.catalog.GetRun(ctx, runID)
}

// ListRuns returns a group's runs newest first. A non-positive limit uses
// the catalog default of 50.
func (r *Runner) ListRuns(ctx context.Context, groupID string, limit int) ([]models.ScheduleGroupRun, error) {
	if _, err := r.catalog.GetGroup(ctx, groupID); err != nil {
		return nil, err
	}
	return r.catalog.ListRuns(ctx, groupID, limit)
}
