// VolumeVault - Scheduled Volume Backup Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/volumevault

/*
executor.go - Backup Lifecycle

This file drives one archival through its lifecycle:

	Trigger/Run
	  -> volume lookup (ErrNotFound)
	  -> storage root check (ErrConfiguration)
	  -> BackupRecord{status: in_progress}
	  -> archive.Create (tar -> gzip -> file)
	  -> completed (size, completed_at) | failed (error_message, completed_at)

Trigger returns as soon as the record exists and archives on the task
registry. Run archives on the caller's goroutine and is used by group runs,
which must finish one member before starting the next.

Terminal updates are conditional on the record still being in_progress, so a
record resolved by the startup stale resolver is never overwritten.
*/

//nolint:staticcheck // File documentation, not package doc
package backup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tomtom215/volumevault/internal/archive"
	"github.com/tomtom215/volumevault/internal/audit"
	"github.com/tomtom215/volumevault/internal/logging"
	"github.com/tomtom215/volumevault/internal/metrics"
	"github.com/tomtom215/volumevault/internal/models"
	"github.com/tomtom215/volumevault/internal/notify"
	"github.com/tomtom215/volumevault/internal/tasks"
)

// Catalog is the subset of the catalog store the executor needs.
type Catalog interface {
	GetVolume(ctx context.Context, id string) (*models.Volume, error)
	CreateBackup(ctx context.Context, b *models.BackupRecord) error
	GetBackup(ctx context.Context, id string) (*models.BackupRecord, error)
	ListBackups(ctx context.Context, volumeID string) ([]models.BackupRecord, error)
	CompleteBackup(ctx context.Context, id string, sizeBytes int64, completedAt time.Time) error
	FailBackup(ctx context.Context, id, message string, completedAt time.Time) error
	DeleteBackup(ctx context.Context, id string) error
}

// TaskRunner starts detached background work.
type TaskRunner interface {
	Go(ctx context.Context, kind string, fn tasks.Func) error
}

// Config holds executor configuration.
type Config struct {
	// StorageRoot is the directory archives are written to
	StorageRoot string

	// CompressionLevel is passed to compress/gzip as is: -1 is the gzip
	// default, 0 stores without compression, 1-9 trade speed for size
	CompressionLevel int
}

// Deps are the executor's collaborators. Notifier and Audit may be nil.
type Deps struct {
	Catalog  Catalog
	Tasks    TaskRunner
	Notifier notify.Notifier
	Audit    audit.Recorder
	Logger   *zerolog.Logger
}

// Executor runs backups, restores and archive housekeeping.
type Executor struct {
	cfg      Config
	catalog  Catalog
	tasks    TaskRunner
	notifier notify.Notifier
	audit    audit.Recorder
	logger   zerolog.Logger
	now      func() time.Time
	create   func(ctx context.Context, srcDir, destPath string, opts archive.CreateOptions) (*archive.CreateResult, error)
}

// NewExecutor creates an executor.
func NewExecutor(cfg Config, deps Deps) (*Executor, error) {
	if deps.Catalog == nil {
		return nil, fmt.Errorf("backup executor: catalog is required")
	}
	if deps.Tasks == nil {
		return nil, fmt.Errorf("backup executor: task runner is required")
	}

	e := &Executor{
		cfg:      cfg,
		catalog:  deps.Catalog,
		tasks:    deps.Tasks,
		notifier: deps.Notifier,
		audit:    deps.Audit,
		logger:   logging.WithComponent("backup"),
		now:      func() time.Time { return time.Now().UTC() },
		create:   archive.Create,
	}
	if deps.Logger != nil {
		e.logger = *deps.Logger
	}
	if e.notifier == nil {
		e.notifier = notify.Discard{}
	}
	if e.audit == nil {
		e.audit = audit.Nop{}
	}
	return e, nil
}

// StorageRoot returns the configured storage root.
func (e *Executor) StorageRoot() string {
	return e.cfg.StorageRoot
}

// ensureStorageRoot verifies the storage root is configured and creates it.
func (e *Executor) ensureStorageRoot() (string, error) {
	root := e.cfg.StorageRoot
	if root == "" {
		return "", fmt.Errorf("storage root is not set: %w", models.ErrConfiguration)
	}
	if err := os.MkdirAll(root, 0o750); err != nil {
		return "", fmt.Errorf("storage root %s cannot be created: %v: %w", root, err, models.ErrConfiguration)
	}
	return root, nil
}

// begin resolves the volume and creates the in-progress record.
func (e *Executor) begin(ctx context.Context, volumeID string) (*models.Volume, *models.BackupRecord, error) {
	vol, err := e.catalog.GetVolume(ctx, volumeID)
	if err != nil {
		return nil, nil, err
	}

	root, err := e.ensureStorageRoot()
	if err != nil {
		return nil, nil, err
	}

	now := e.now()
	rec := &models.BackupRecord{
		ID:          uuid.NewString(),
		VolumeID:    vol.ID,
		ArchivePath: filepath.Join(root, archive.FileName(vol.Name, now)),
		Status:      models.StatusInProgress,
		StartedAt:   now,
	}
	if err := e.catalog.CreateBackup(ctx, rec); err != nil {
		return nil, nil, err
	}

	logging.Ctx(ctx).Info().
		Str("backup_id", rec.ID).
		Str("volume", vol.Name).
		Str("archive_path", rec.ArchivePath).
		Msg("Backup started")

	return vol, rec, nil
}

// Trigger creates an in-progress record and archives in the background.
// The returned record is in its in-progress state.
func (e *Executor) Trigger(ctx context.Context, volumeID string) (*models.BackupRecord, error) {
	return e.TriggerWithRelease(ctx, volumeID, nil)
}

// TriggerWithRelease is Trigger with a callback run after the archival
// finishes, whatever its outcome. release is also run when Trigger fails.
func (e *Executor) TriggerWithRelease(ctx context.Context, volumeID string, release func()) (*models.BackupRecord, error) {
	if release == nil {
		release = func() {}
	}

	vol, rec, err := e.begin(ctx, volumeID)
	if err != nil {
		release()
		return nil, err
	}
	snapshot := *rec

	err = e.tasks.Go(ctx, "backup", func(taskCtx context.Context) {
		defer release()
		_ = e.archive(taskCtx, vol, rec)
	})
	if err != nil {
		release()
		e.fail(ctx, vol, rec, fmt.Errorf("background task not started: %w", err))
		return nil, err
	}

	return &snapshot, nil
}

// Run creates a record and archives synchronously. The returned record is
// terminal; err is non-nil when the record could not be created or the
// archival failed.
func (e *Executor) Run(ctx context.Context, volumeID string) (*models.BackupRecord, error) {
	vol, rec, err := e.begin(ctx, volumeID)
	if err != nil {
		return nil, err
	}
	err = e.archive(ctx, vol, rec)
	return rec, err
}

// archive writes the archive and settles rec. rec is updated in place. A
// panic while archiving settles rec as failed and is returned as an error.
func (e *Executor) archive(ctx context.Context, vol *models.Volume, rec *models.BackupRecord) (err error) {
	metrics.TrackBackupInProgress(true)
	defer metrics.TrackBackupInProgress(false)

	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic while archiving: %v", p)
			if rec.Status == models.StatusCompleted {
				e.logger.Error().Err(err).Str("backup_id", rec.ID).Msg("Panic after backup completed")
				return
			}
			e.fail(ctx, vol, rec, err)
		}
	}()

	log := e.logger.With().Str("backup_id", rec.ID).Str("volume", vol.Name).Logger()

	result, err := e.create(ctx, vol.Path, rec.ArchivePath, archive.CreateOptions{
		CompressionLevel: e.cfg.CompressionLevel,
		OnWarning: func(w archive.Warning) {
			metrics.RecordArchiveWarning(string(w.Kind))
			log.Warn().Str("kind", string(w.Kind)).Str("path", w.Path).Msg("Source changed while archiving")
		},
	})
	if err != nil {
		e.fail(ctx, vol, rec, err)
		return err
	}

	info, err := os.Stat(rec.ArchivePath)
	if err != nil {
		err = fmt.Errorf("stat finished archive: %w", err)
		e.fail(ctx, vol, rec, err)
		return err
	}

	completedAt := e.now()
	if err := e.catalog.CompleteBackup(ctx, rec.ID, info.Size(), completedAt); err != nil {
		// The record was settled elsewhere (stale resolver); leave it alone.
		log.Warn().Err(err).Msg("Backup record could not be completed")
		return err
	}
	rec.Status = models.StatusCompleted
	rec.SizeBytes = info.Size()
	rec.CompletedAt = &completedAt

	duration := completedAt.Sub(rec.StartedAt)
	metrics.RecordBackup(vol.Name, string(models.StatusCompleted), duration, info.Size())

	log.Info().
		Int64("size_bytes", info.Size()).
		Int("files", result.Files).
		Int("warnings", len(result.Warnings)).
		Dur("duration", duration).
		Msg("Backup completed")

	details := models.AuditDetails{
		"archive_path": rec.ArchivePath,
		"size_bytes":   info.Size(),
		"files":        result.Files,
		"directories":  result.Directories,
		"symlinks":     result.Symlinks,
		"duration_ms":  duration.Milliseconds(),
	}
	if len(result.Warnings) > 0 {
		warnings := make([]string, 0, len(result.Warnings))
		for _, w := range result.Warnings {
			warnings = append(warnings, w.String())
		}
		details["warnings"] = warnings
	}
	e.audit.Log(ctx, &models.AuditEntry{
		Level:    models.AuditSuccess,
		Category: models.CategoryBackup,
		Message:  fmt.Sprintf("Backup of %s completed", vol.Name),
		VolumeID: vol.ID,
		BackupID: rec.ID,
		Details:  details,
	})
	return nil
}

// fail removes any partial archive, settles rec as failed and publishes
// backup.failed.
func (e *Executor) fail(ctx context.Context, vol *models.Volume, rec *models.BackupRecord, cause error) {
	failedAt := e.now()
	log := e.logger.With().Str("backup_id", rec.ID).Str("volume", vol.Name).Logger()

	if err := RemoveArchive(rec.ArchivePath); err != nil {
		log.Error().Err(err).Msg("Partial archive could not be removed")
	}

	if err := e.catalog.FailBackup(ctx, rec.ID, cause.Error(), failedAt); err != nil {
		log.Warn().Err(err).Msg("Backup record could not be marked failed")
	}
	rec.Status = models.StatusFailed
	rec.ErrorMessage = cause.Error()
	rec.CompletedAt = &failedAt

	metrics.RecordBackup(vol.Name, string(models.StatusFailed), failedAt.Sub(rec.StartedAt), 0)

	var archErr *archive.Error
	event := log.Error().Err(cause)
	if errors.As(cause, &archErr) {
		event = event.Str("op", archErr.Op).Str("path", archErr.Path)
	}
	event.Msg("Backup failed")

	e.audit.Log(ctx, &models.AuditEntry{
		Level:    models.AuditError,
		Category: models.CategoryBackup,
		Message:  fmt.Sprintf("Backup of %s failed", vol.Name),
		VolumeID: vol.ID,
		BackupID: rec.ID,
		Details:  models.AuditDetails{"error": cause.Error(), "archive_path": rec.ArchivePath},
	})

	e.notifier.Notify(ctx, notify.EventBackupFailed, notify.BackupFailedPayload{
		BackupID:    rec.ID,
		VolumeID:    vol.ID,
		VolumeName:  vol.Name,
		ArchivePath: rec.ArchivePath,
		Error:       cause.Error(),
		StartedAt:   rec.StartedAt,
		FailedAt:    failedAt,
	})
}

// Get returns one backup record.
func (e *Executor) Get(ctx context.Context, backupID string) (*models.BackupRecord, error) {
	return e.catalog.GetBackup(ctx, backupID)
}

// List returns backup records, newest first. An empty volumeID lists all.
func (e *Executor) List(ctx context.Context, volumeID string) ([]models.BackupRecord, error) {
	if volumeID != "" {
		if _, err := e.catalog.GetVolume(ctx, volumeID); err != nil {
			return nil, err
		}
	}
	return e.catalog.ListBackups(ctx, volumeID)
}

// ListContents lists the entries of a completed backup without extracting.
func (e *Executor) ListContents(ctx context.Context, backupID string) ([]archive.Entry, error) {
	rec, err := e.catalog.GetBackup(ctx, backupID)
	if err != nil {
		return nil, err
	}
	if rec.Status != models.StatusCompleted {
		return nil, fmt.Errorf("backup %s is %s: %w", backupID, rec.Status, models.ErrPrecondition)
	}

	entries, err := archive.List(rec.ArchivePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("archive %s: %w", rec.ArchivePath, models.ErrNotFound)
		}
		return nil, err
	}
	if entries == nil {
		entries = []archive.Entry{}
	}
	return entries, nil
}

// Delete removes a backup's archive file, then its record. An archive that
// is already absent is not an error. Running backups cannot be deleted.
func (e *Executor) Delete(ctx context.Context, backupID string) error {
	rec, err := e.catalog.GetBackup(ctx, backupID)
	if err != nil {
		return err
	}
	if !rec.Status.Terminal() {
		return fmt.Errorf("backup %s is %s: %w", backupID, rec.Status, models.ErrPrecondition)
	}

	if err := RemoveArchive(rec.ArchivePath); err != nil {
		return err
	}
	if err := e.catalog.DeleteBackup(ctx, backupID); err != nil {
		return err
	}

	logging.Ctx(ctx).Info().Str("backup_id", backupID).Str("archive_path", rec.ArchivePath).Msg("Backup deleted")
	e.audit.Log(ctx, &models.AuditEntry{
		Level:    models.AuditInfo,
		Category: models.CategoryBackup,
		Message:  "Backup deleted",
		VolumeID: rec.VolumeID,
		BackupID: rec.ID,
		Details:  models.AuditDetails{"archive_path": rec.ArchivePath},
	})
	return nil
}

// RemoveArchive deletes an archive file. A missing file counts as removed.
func RemoveArchive(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove archive %s: %w", path, err)
	}
	return nil
}
