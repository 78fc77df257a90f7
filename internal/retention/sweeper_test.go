// VolumeVault - Scheduled Volume Backup Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/volumevault

package retention

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/volumevault/internal/backup"
	"github.com/tomtom215/volumevault/internal/catalog"
	"github.com/tomtom215/volumevault/internal/models"
	"github.com/tomtom215/volumevault/internal/testinfra"
)

func newSweeper(t *testing.T, store *catalog.Store, days int) (*Sweeper, *testinfra.RecordingAuditor) {
	t.Helper()
	logger := zerolog.Nop()
	auditor := testinfra.NewRecordingAuditor()
	return NewSweeper(Config{Days: days}, store, auditor, &logger), auditor
}

type fixture struct {
	store   *catalog.Store
	root    string
	volume  *models.Volume
	old     *models.BackupRecord // 40 days, file present
	older   *models.BackupRecord // 60 days, file already gone
	recent  *models.BackupRecord // 2 days
	failed  *models.BackupRecord // 90 days, failed status
	running *models.BackupRecord
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := testinfra.NewCatalog(t)
	root := t.TempDir()
	vol := testinfra.CreateVolume(t, store, t.TempDir(), "media", nil)
	now := time.Now()
	day := 24 * time.Hour

	f := &fixture{store: store, root: root, volume: vol}

	oldPath := filepath.Join(root, "media_old.tar.gz")
	testinfra.Touch(t, oldPath)
	f.old = testinfra.CreateBackup(t, store, vol.ID, oldPath, models.StatusCompleted, now.Add(-40*day))
	f.older = testinfra.CreateBackup(t, store, vol.ID, filepath.Join(root, "media_older.tar.gz"), models.StatusCompleted, now.Add(-60*day))

	recentPath := filepath.Join(root, "media_recent.tar.gz")
	testinfra.Touch(t, recentPath)
	f.recent = testinfra.CreateBackup(t, store, vol.ID, recentPath, models.StatusCompleted, now.Add(-2*day))
	f.failed = testinfra.CreateBackup(t, store, vol.ID, filepath.Join(root, "media_failed.tar.gz"), models.StatusFailed, now.Add(-90*day))
	f.running = testinfra.CreateBackup(t, store, vol.ID, filepath.Join(root, "media_running.tar.gz"), models.StatusInProgress, now.Add(-90*day))
	return f
}

func (f *fixture) exists(t *testing.T, rec *models.BackupRecord) bool {
	t.Helper()
	_, err := f.store.GetBackup(context.Background(), rec.ID)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		t.Fatal(err)
	}
	return err == nil
}

func TestSweep_Disabled(t *testing.T) {
	f := newFixture(t)
	s, auditor := newSweeper(t, f.store, 0)

	result, err := s.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep() error = %v", err)
	}
	if result.Deleted != 0 || result.Failed != 0 {
		t.Errorf("result = %+v, want nothing deleted", result)
	}
	if !f.exists(t, f.old) || !f.exists(t, f.older) {
		t.Error("disabled sweeper deleted records")
	}
	if len(auditor.Entries("")) != 0 {
		t.Error("disabled sweeper wrote audit entries")
	}
}

func TestSweep_DeletesExpiredOldestFirst(t *testing.T) {
	f := newFixture(t)
	s, auditor := newSweeper(t, f.store, 30)

	var order []string
	s.remove = func(path string) error {
		order = append(order, filepath.Base(path))
		return backup.RemoveArchive(path)
	}

	result, err := s.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep() error = %v", err)
	}
	if result.Deleted != 2 || result.Failed != 0 {
		t.Errorf("result = %+v, want 2 deleted", result)
	}
	if len(order) != 2 || order[0] != "media_older.tar.gz" || order[1] != "media_old.tar.gz" {
		t.Errorf("deletion order = %v, want oldest first", order)
	}

	if f.exists(t, f.old) || f.exists(t, f.older) {
		t.Error("expired records kept")
	}
	if _, err := os.Stat(f.old.ArchivePath); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expired archive kept: %v", err)
	}
	for _, rec := range []*models.BackupRecord{f.recent, f.failed, f.running} {
		if !f.exists(t, rec) {
			t.Errorf("record %s (%s) deleted", rec.ID, rec.Status)
		}
	}

	// One entry per item plus the summary.
	entries := auditor.Entries(models.CategoryRetention)
	if len(entries) != 3 {
		t.Fatalf("%d retention audit entries, want 3", len(entries))
	}
	if entries[2].Level != models.AuditSuccess {
		t.Errorf("summary level = %s, want success", entries[2].Level)
	}
}

func TestSweep_RemoveFailureKeepsRecord(t *testing.T) {
	f := newFixture(t)
	s, auditor := newSweeper(t, f.store, 30)
	s.remove = func(path string) error {
		if path == f.older.ArchivePath {
			return errors.New("permission denied")
		}
		return backup.RemoveArchive(path)
	}

	result, err := s.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep() error = %v", err)
	}
	if result.Deleted != 1 || result.Failed != 1 {
		t.Errorf("result = %+v, want 1 deleted and 1 failed", result)
	}
	if !f.exists(t, f.older) {
		t.Error("record of an undeletable archive was removed")
	}
	if f.exists(t, f.old) {
		t.Error("sweep stopped after the first failure")
	}

	var errorEntries int
	for _, e := range auditor.Entries(models.CategoryRetention) {
		if e.Level == models.AuditError {
			errorEntries++
		}
	}
	if errorEntries != 1 {
		t.Errorf("%d error audit entries, want 1", errorEntries)
	}
}

func TestPreview(t *testing.T) {
	f := newFixture(t)
	s, _ := newSweeper(t, f.store, 30)

	candidates, err := s.Preview(context.Background())
	if err != nil {
		t.Fatalf("Preview() error = %v", err)
	}
	if len(candidates) != 2 {
		t.Fatalf("got %d candidates, want 2", len(candidates))
	}
	if candidates[0].Backup.ID != f.older.ID || candidates[0].VolumeName != "media" {
		t.Errorf("first candidate = %+v, want the oldest backup of media", candidates[0])
	}
	if !f.exists(t, f.old) {
		t.Error("Preview deleted a record")
	}

	disabled, _ := newSweeper(t, f.store, 0)
	if got, err := disabled.Preview(context.Background()); err != nil || len(got) != 0 {
		t.Errorf("disabled Preview() = %v, %v", got, err)
	}
}

func TestServe_DisabledIdles(t *testing.T) {
	store := testinfra.NewCatalog(t)
	s, _ := newSweeper(t, store, 0)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := s.Serve(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Serve() error = %v, want DeadlineExceeded", err)
	}
}
