// VolumeVault - Scheduled Volume Backup Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/volumevault

// Package retention deletes completed backups older than the configured
// number of days, oldest first. Zero days disables the sweeper.
//
// For each expired backup the archive file is removed first (a file that is
// already gone counts as removed), then the catalog record. When the file
// cannot be removed for any other reason the record is kept so the next
// sweep retries it.
package retention

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
)

// DefaultInterval is the sweep period.
const DefaultInterval = time.Hour

// Catalog is the subset of the catalog store the sweeper needs.
type Catalog interface {
	ListExpiredBackups(ctx context.Context, cutoff time.Time) ([]models.BackupRecord, error)
	DeleteBackup(ctx context.Context, id string) error
	GetVolume(ctx context.Context, id string) (*models.Volume, error)
}

// Config holds sweeper configuration.
type Config struct {
	// Days is the retention period; 0 keeps every backup
	Days int

	// Interval is the sweep period
	Interval time.Duration
}

// Result summarizes one sweep.
type Result struct {
	Cutoff  time.Time `json:"cutoff"`
	Deleted int       `json:"deleted"`
	Failed  int       `json:"failed"`
}

// Candidate is a backup a sweep would delete.
type Candidate struct {
	Backup     models.BackupRecord `json:"backup"`
	VolumeName string              `json:"volume_name,omitempty"`
}

// Sweeper applies the retention policy.
type Sweeper struct {
	cfg     Config
	catalog Catalog
	audit   audit.Recorder
	logger  zerolog.Logger
	now     func() time.Time
	remove  func(path string) error
}

// NewSweeper creates a sweeper. recorder may be nil.
func NewSweeper(cfg Config, store Catalog, recorder audit.Recorder, logger *zerolog.Logger) *Sweeper {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	s := &Sweeper{
		cfg:     cfg,
		catalog: store,
		audit:   recorder,
		logger:  logging.WithComponent("retention"),
		now:     func() time.Time { return time.Now().UTC() },
		remove:  backup.RemoveArchive,
	}
	if logger != nil {
		s.logger = *logger
	}
	if s.audit == nil {
		s.audit = audit.Nop{}
	}
	return s
}

// Enabled reports whether a retention period is configured.
func (s *Sweeper) Enabled() bool {
	return s.cfg.Days > 0
}

func (s *Sweeper) cutoff() time.Time {
	return s.now().Add(-time.Duration(s.cfg.Days) * 24 * time.Hour)
}

// Preview lists the backups the next sweep would delete, oldest first.
func (s *Sweeper) Preview(ctx context.Context) ([]Candidate, error) {
	if !s.Enabled() {
		return []Candidate{}, nil
	}
	expired, err := s.catalog.ListExpiredBackups(ctx, s.cutoff())
	if err != nil {
		return nil, err
	}
	names := make(map[string]string)
	out := make([]Candidate, 0, len(expired))
	for i := range expired {
		out = append(out, Candidate{Backup: expired[i], VolumeName: s.volumeName(ctx, names, expired[i].VolumeID)})
	}
	return out, nil
}

// Sweep deletes expired backups. It returns an error only when the expired
// set cannot be loaded; per-item failures are counted in the result.
func (s *Sweeper) Sweep(ctx context.Context) (Result, error) {
	if !s.Enabled() {
		return Result{}, nil
	}

	result := Result{Cutoff: s.cutoff()}
	expired, err := s.catalog.ListExpiredBackups(ctx, result.Cutoff)
	if err != nil {
		s.audit.Log(ctx, audit.Entry(models.AuditError, models.CategoryRetention, "Retention sweep failed",
			models.AuditDetails{"error": err.Error()}))
		return result, err
	}
	if len(expired) == 0 {
		s.logger.Debug().Int("days", s.cfg.Days).Msg("No backups past retention")
		return result, nil
	}

	s.logger.Info().Int("count", len(expired)).Int("days", s.cfg.Days).Msg("Deleting backups past retention")

	names := make(map[string]string)
	for i := range expired {
		rec := &expired[i]
		name := s.volumeName(ctx, names, rec.VolumeID)
		if err := s.deleteOne(ctx, rec); err != nil {
			result.Failed++
			s.logger.Error().Err(err).Str("backup_id", rec.ID).Str("archive_path", rec.ArchivePath).Msg("Retention delete failed")
			s.audit.Log(ctx, &models.AuditEntry{
				Level:    models.AuditError,
				Category: models.CategoryRetention,
				Message:  "Failed to delete backup during retention cleanup",
				VolumeID: rec.VolumeID,
				BackupID: rec.ID,
				Details:  models.AuditDetails{"error": err.Error(), "archive_path": rec.ArchivePath},
			})
			continue
		}
		result.Deleted++
		s.audit.Log(ctx, &models.AuditEntry{
			Level:    models.AuditInfo,
			Category: models.CategoryRetention,
			Message:  fmt.Sprintf("Deleted backup of %s due to retention policy", name),
			VolumeID: rec.VolumeID,
			BackupID: rec.ID,
			Details:  models.AuditDetails{"archive_path": rec.ArchivePath, "retention_days": s.cfg.Days},
		})
	}

	metrics.RecordRetentionSweep(result.Deleted, result.Failed)
	s.logger.Info().Int("deleted", result.Deleted).Int("failed", result.Failed).Msg("Retention sweep completed")

	level := models.AuditSuccess
	if result.Failed > 0 {
		level = models.AuditWarning
	}
	s.audit.Log(ctx, audit.Entry(level, models.CategoryRetention,
		fmt.Sprintf("Retention cleanup completed: %d backup(s) deleted", result.Deleted),
		models.AuditDetails{"deleted": result.Deleted, "failed": result.Failed, "retention_days": s.cfg.Days}))

	return result, nil
}

func (s *Sweeper) deleteOne(ctx context.Context, rec *models.BackupRecord) error {
	if err := s.remove(rec.ArchivePath); err != nil {
		return err
	}
	return s.catalog.DeleteBackup(ctx, rec.ID)
}

// volumeName resolves a volume name through a per-sweep cache. A deleted
// volume reads as "unknown".
func (s *Sweeper) volumeName(ctx context.Context, cache map[string]string, volumeID string) string {
	if name, ok := cache[volumeID]; ok {
		return name
	}
	name := "unknown"
	if vol, err := s.catalog.GetVolume(ctx, volumeID); err == nil {
		name = vol.Name
	}
	cache[volumeID] = name
	return name
}

// Serve sweeps on the interval until ctx is canceled. It implements
// suture.Service. A disabled sweeper idles until shutdown.
func (s *Sweeper) Serve(ctx context.Context) error {
	if !s.Enabled() {
		s.logger.Info().Msg("Retention disabled, keeping all backups")
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				s.logger.Error().Err(err).Msg("Retention sweep failed")
			}
		}
	}
}

// String implements fmt.Stringer for supervisor logs.
func (s *Sweeper) String() string {
	return "retention-sweeper"
}
