// VolumeVault - Scheduled Volume Backup Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/volumevault

package backup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/tomtom215/volumevault/internal/archive"
	"github.com/tomtom215/volumevault/internal/logging"
	"github.com/tomtom215/volumevault/internal/metrics"
	"github.com/tomtom215/volumevault/internal/models"
	"github.com/tomtom215/volumevault/internal/notify"
)

// RestoreMode selects what a restore extracts.
type RestoreMode string

const (
	// RestoreFull extracts every entry
	RestoreFull RestoreMode = "full"

	// RestoreSelective extracts only the requested entry paths
	RestoreSelective RestoreMode = "selective"
)

// RestoreOptions configures a restore.
type RestoreOptions struct {
	Mode RestoreMode `json:"mode"`

	// Paths are archive entry paths for selective mode. A directory includes
	// everything below it.
	Paths []string `json:"paths,omitempty"`

	// CustomPath overrides the destination. By default entries are restored
	// into the parent of the volume path, which puts them back in place.
	CustomPath string `json:"custom_path,omitempty"`
}

// RestorePlan is a validated restore ready to run.
type RestorePlan struct {
	Backup      models.BackupRecord `json:"backup"`
	VolumeName  string              `json:"volume_name"`
	Mode        RestoreMode         `json:"mode"`
	Paths       []string            `json:"paths,omitempty"`
	Destination string              `json:"destination"`
}

// RestoreResult summarizes a finished restore.
type RestoreResult struct {
	BackupID    string        `json:"backup_id"`
	Mode        RestoreMode   `json:"mode"`
	Destination string        `json:"destination"`
	Files       int           `json:"files"`
	Directories int           `json:"directories"`
	Symlinks    int           `json:"symlinks"`
	Bytes       int64         `json:"bytes"`
	Skipped     int           `json:"skipped"`
	Unmatched   []string      `json:"unmatched,omitempty"`
	Duration    time.Duration `json:"duration"`
}

// PrepareRestore checks every restore precondition without touching the
// destination.
func (e *Executor) PrepareRestore(ctx context.Context, backupID string, opts RestoreOptions) (*RestorePlan, error) {
	if opts.Mode == "" {
		opts.Mode = RestoreFull
	}
	switch opts.Mode {
	case RestoreFull:
		opts.Paths = nil
	case RestoreSelective:
		if len(opts.Paths) == 0 {
			return nil, fmt.Errorf("selective restore needs at least one path: %w", models.ErrInvalidInput)
		}
	default:
		return nil, fmt.Errorf("unknown restore mode %q: %w", opts.Mode, models.ErrInvalidInput)
	}
	if opts.CustomPath != "" && !filepath.IsAbs(opts.CustomPath) {
		return nil, fmt.Errorf("custom_path must be absolute: %w", models.ErrInvalidInput)
	}

	rec, err := e.catalog.GetBackup(ctx, backupID)
	if err != nil {
		return nil, err
	}
	if rec.Status != models.StatusCompleted {
		return nil, fmt.Errorf("backup %s is %s: %w", backupID, rec.Status, models.ErrPrecondition)
	}

	plan := &RestorePlan{Backup: *rec, Mode: opts.Mode, Paths: opts.Paths}

	vol, err := e.catalog.GetVolume(ctx, rec.VolumeID)
	switch {
	case err == nil:
		plan.VolumeName = vol.Name
		plan.Destination = filepath.Dir(filepath.Clean(vol.Path))
	case errors.Is(err, models.ErrNotFound):
		if opts.CustomPath == "" {
			return nil, fmt.Errorf("volume of backup %s no longer exists, custom_path is required: %w", backupID, models.ErrPrecondition)
		}
	default:
		return nil, err
	}
	if opts.CustomPath != "" {
		plan.Destination = filepath.Clean(opts.CustomPath)
	}

	if _, err := os.Stat(rec.ArchivePath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("archive %s: %w", rec.ArchivePath, models.ErrNotFound)
		}
		return nil, fmt.Errorf("stat archive %s: %v: %w", rec.ArchivePath, err, models.ErrStorageUnavailable)
	}

	return plan, nil
}

// ExecuteRestore extracts a prepared restore. It never modifies the record.
func (e *Executor) ExecuteRestore(ctx context.Context, plan *RestorePlan) (*RestoreResult, error) {
	start := time.Now()
	log := logging.Ctx(ctx).With().
		Str("backup_id", plan.Backup.ID).
		Str("mode", string(plan.Mode)).
		Str("destination", plan.Destination).
		Logger()
	log.Info().Msg("Restore started")

	extracted, err := archive.Extract(ctx, plan.Backup.ArchivePath, plan.Destination, archive.ExtractOptions{Paths: plan.Paths})
	duration := time.Since(start)
	metrics.RecordRestore(string(plan.Mode), duration, err)

	if err != nil {
		log.Error().Err(err).Msg("Restore failed")
		e.audit.Log(ctx, &models.AuditEntry{
			Level:    models.AuditError,
			Category: models.CategoryRestore,
			Message:  "Restore failed",
			VolumeID: plan.Backup.VolumeID,
			BackupID: plan.Backup.ID,
			Details:  models.AuditDetails{"error": err.Error(), "destination": plan.Destination, "mode": string(plan.Mode)},
		})
		return nil, err
	}

	result := &RestoreResult{
		BackupID:    plan.Backup.ID,
		Mode:        plan.Mode,
		Destination: plan.Destination,
		Files:       extracted.Files,
		Directories: extracted.Directories,
		Symlinks:    extracted.Symlinks,
		Bytes:       extracted.Bytes,
		Skipped:     extracted.Skipped,
		Unmatched:   extracted.Unmatched,
		Duration:    duration,
	}

	log.Info().
		Int("files", result.Files).
		Int64("bytes", result.Bytes).
		Strs("unmatched", result.Unmatched).
		Dur("duration", duration).
		Msg("Restore completed")

	e.audit.Log(ctx, &models.AuditEntry{
		Level:    models.AuditSuccess,
		Category: models.CategoryRestore,
		Message:  "Restore completed",
		VolumeID: plan.Backup.VolumeID,
		BackupID: plan.Backup.ID,
		Details: models.AuditDetails{
			"destination": plan.Destination,
			"mode":        string(plan.Mode),
			"files":       result.Files,
			"bytes":       result.Bytes,
			"unmatched":   result.Unmatched,
		},
	})

	e.notifier.Notify(ctx, notify.EventRestoreCompleted, notify.RestoreCompletedPayload{
		BackupID:    plan.Backup.ID,
		VolumeID:    plan.Backup.VolumeID,
		VolumeName:  plan.VolumeName,
		Mode:        string(plan.Mode),
		Destination: plan.Destination,
		Paths:       plan.Paths,
		Files:       result.Files,
		Bytes:       result.Bytes,
		Duration:    duration.String(),
	})

	return result, nil
}

// Restore validates and runs a restore synchronously.
func (e *Executor) Restore(ctx context.Context, backupID string, opts RestoreOptions) (*RestoreResult, error) {
	plan, err := e.PrepareRestore(ctx, backupID, opts)
	if err != nil {
		return nil, err
	}
	return e.ExecuteRestore(ctx, plan)
}

// StartRestore validates synchronously and extracts on the task registry.
func (e *Executor) StartRestore(ctx context.Context, backupID string, opts RestoreOptions) (*RestorePlan, error) {
	plan, err := e.PrepareRestore(ctx, backupID, opts)
	if err != nil {
		return nil, err
	}

	err = e.tasks.Go(ctx, "restore", func(taskCtx context.Context) {
		_, _ = e.ExecuteRestore(taskCtx, plan)
	})
	if err != nil {
		return nil, err
	}
	return plan, nil
}
