// VolumeVault - Scheduled Volume Backup Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/volumevault

package reconcile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/tomtom215/volumevault/internal/archive"
	"github.com/tomtom215/volumevault/internal/audit"
	"github.com/tomtom215/volumevault/internal/logging"
	"github.com/tomtom215/volumevault/internal/metrics"
	"github.com/tomtom215/volumevault/internal/models"
)

// DefaultInterval is the period of the full sweep.
const DefaultInterval = 60 * time.Second

// Removal sources reported in metrics.
const (
	SourceSweep = "sweep"
	SourceWatch = "watch"
)

// Catalog is the subset of the catalog store the reconciler needs.
type Catalog interface {
	ListSettledBackups(ctx context.Context) ([]models.BackupRecord, error)
	DeleteSettledBackupsByIDs(ctx context.Context, ids []string) (int64, error)
	DeleteSettledBackupsByPath(ctx context.Context, archivePath string) (int64, error)
}

// Config holds reconciler configuration.
type Config struct {
	StorageRoot string
	Interval    time.Duration
}

// Reconciler removes catalog records whose archive file is gone.
type Reconciler struct {
	root     string
	interval time.Duration
	catalog  Catalog
	audit    audit.Recorder
	logger   zerolog.Logger

	readyOnce sync.Once
	ready     chan struct{}
}

// NewReconciler creates a reconciler. recorder may be nil.
func NewReconciler(cfg Config, store Catalog, recorder audit.Recorder, logger *zerolog.Logger) *Reconciler {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	r := &Reconciler{
		root:     filepath.Clean(cfg.StorageRoot),
		interval: cfg.Interval,
		catalog:  store,
		audit:    recorder,
		logger:   logging.WithComponent("reconcile"),
		ready:    make(chan struct{}),
	}
	if logger != nil {
		r.logger = *logger
	}
	if r.audit == nil {
		r.audit = audit.Nop{}
	}
	return r
}

// Sweep deletes every settled record whose archive is not on disk and
// returns how many were removed. Records of running archivals are never
// listed. When the storage root cannot be read nothing is deleted.
func (r *Reconciler) Sweep(ctx context.Context) (int64, error) {
	present, err := r.archivesOnDisk()
	if err != nil {
		return 0, err
	}

	records, err := r.catalog.ListSettledBackups(ctx)
	if err != nil {
		return 0, err
	}

	var orphans []string
	for i := range records {
		if !r.exists(present, records[i].ArchivePath) {
			orphans = append(orphans, records[i].ID)
		}
	}
	if len(orphans) == 0 {
		return 0, nil
	}

	removed, err := r.catalog.DeleteSettledBackupsByIDs(ctx, orphans)
	if err != nil {
		return 0, err
	}
	r.report(ctx, SourceSweep, removed, models.AuditDetails{"record_ids": orphans})
	return removed, nil
}

// archivesOnDisk lists *.tar.gz paths directly under the storage root.
func (r *Reconciler) archivesOnDisk() (map[string]struct{}, error) {
	entries, err := os.ReadDir(r.root)
	if err != nil {
		return nil, fmt.Errorf("list storage root %s: %v: %w", r.root, err, models.ErrStorageUnavailable)
	}
	present := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), archive.Extension) {
			continue
		}
		present[filepath.Join(r.root, e.Name())] = struct{}{}
	}
	return present, nil
}

// exists reports whether an archive is present. Paths outside the storage
// root (left over from an earlier root) are checked individually.
func (r *Reconciler) exists(present map[string]struct{}, archivePath string) bool {
	p := filepath.Clean(archivePath)
	if filepath.Dir(p) == r.root {
		_, ok := present[p]
		return ok
	}
	_, err := os.Stat(p)
	return !errors.Is(err, os.ErrNotExist)
}

// HandleRemoved deletes settled records for an archive path reported as
// removed. A path that exists again (replaced in place) is left alone.
func (r *Reconciler) HandleRemoved(ctx context.Context, archivePath string) (int64, error) {
	if !strings.HasSuffix(archivePath, archive.Extension) {
		return 0, nil
	}
	if _, err := os.Stat(archivePath); err == nil {
		return 0, nil
	}

	removed, err := r.catalog.DeleteSettledBackupsByPath(ctx, filepath.Clean(archivePath))
	if err != nil {
		return 0, err
	}
	r.report(ctx, SourceWatch, removed, models.AuditDetails{"archive_path": archivePath})
	return removed, nil
}

func (r *Reconciler) report(ctx context.Context, source string, removed int64, details models.AuditDetails) {
	if removed <= 0 {
		return
	}
	metrics.RecordOrphansRemoved(source, removed)
	r.logger.Info().Str("source", source).Int64("removed", removed).Msg("Removed orphaned backup records")

	details["source"] = source
	details["removed"] = removed
	r.audit.Log(ctx, &models.AuditEntry{
		Level:    models.AuditInfo,
		Category: models.CategoryReconcile,
		Message:  fmt.Sprintf("Removed %d orphaned backup record(s)", removed),
		Details:  details,
	})
}

// Serve runs a startup sweep, then watches the storage root and sweeps on
// the interval until ctx is canceled. It implements suture.Service.
func (r *Reconciler) Serve(ctx context.Context) error {
	r.sweepAndLog(ctx)

	var events <-chan fsnotify.Event
	var watchErrs <-chan error

	watcher, err := fsnotify.NewWatcher()
	if err == nil {
		err = watcher.Add(r.root)
	}
	if err != nil {
		r.logger.Warn().Err(err).Str("root", r.root).Msg("Storage watch unavailable, relying on periodic sweep")
		if watcher != nil {
			_ = watcher.Close()
		}
	} else {
		defer func() { _ = watcher.Close() }()
		events = watcher.Events
		watchErrs = watcher.Errors
	}

	r.readyOnce.Do(func() { close(r.ready) })

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-ticker.C:
			r.sweepAndLog(ctx)

		case evt, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if !evt.Has(fsnotify.Remove) && !evt.Has(fsnotify.Rename) {
				continue
			}
			if _, err := r.HandleRemoved(ctx, evt.Name); err != nil {
				r.logger.Error().Err(err).Str("path", evt.Name).Msg("Failed to remove record for deleted archive")
			}

		case err, ok := <-watchErrs:
			if !ok {
				watchErrs = nil
				continue
			}
			r.logger.Warn().Err(err).Msg("Storage watch error")
		}
	}
}

// Ready is closed once the first Serve has finished its startup sweep and
// set up (or given up on) the storage watch.
func (r *Reconciler) Ready() <-chan struct{} {
	return r.ready
}

func (r *Reconciler) sweepAndLog(ctx context.Context) {
	if _, err := r.Sweep(ctx); err != nil {
		r.logger.Error().Err(err).Msg("Orphan sweep failed")
	}
}

// String implements fmt.Stringer for supervisor logs.
func (r *Reconciler) String() string {
	return "orphan-reconciler"
}
