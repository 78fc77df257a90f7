// VolumeVault - Scheduled Volume Backup Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/volumevault

package testinfra

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tomtom215/volumevault/internal/catalog"
	"github.com/tomtom215/volumevault/internal/models"
)

// NewCatalog opens a migrated catalog in a temp directory. It is closed at
// test cleanup.
func NewCatalog(t *testing.T) *catalog.Store {
	t.Helper()

	store, err := catalog.Open(context.Background(), catalog.Config{
		Path: filepath.Join(t.TempDir(), "catalog.db"),
	})
	if err != nil {
		t.Fatalf("catalog.Open() error = %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return store
}

// WriteTree creates files under root. Keys are slash-separated relative
// paths; parent directories are created as needed.
func WriteTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
			t.Fatalf("mkdir %s: %v", filepath.Dir(p), err)
		}
		if err := os.WriteFile(p, []byte(content), 0o640); err != nil {
			t.Fatalf("write %s: %v", p, err)
		}
	}
}

// CreateVolume writes files into {parent}/{name} and registers the
// directory as a volume.
func CreateVolume(t *testing.T, store *catalog.Store, parent, name string, files map[string]string) *models.Volume {
	t.Helper()

	dir := filepath.Join(parent, name)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	WriteTree(t, dir, files)

	vol := &models.Volume{Name: name, Path: dir}
	if err := store.CreateVolume(context.Background(), vol); err != nil {
		t.Fatalf("CreateVolume() error = %v", err)
	}
	return vol
}

// CreateBackup inserts a backup record directly. completedAt applies only
// to terminal statuses.
func CreateBackup(t *testing.T, store *catalog.Store, volumeID, archivePath string, status models.BackupStatus, completedAt time.Time) *models.BackupRecord {
	t.Helper()

	rec := &models.BackupRecord{
		VolumeID:    volumeID,
		ArchivePath: archivePath,
		Status:      status,
		StartedAt:   completedAt.Add(-time.Minute),
	}
	if status.Terminal() {
		at := completedAt.UTC()
		rec.CompletedAt = &at
	}
	if err := store.CreateBackup(context.Background(), rec); err != nil {
		t.Fatalf("CreateBackup() error = %v", err)
	}
	return rec
}

// Touch creates an empty file, creating parents as needed.
func Touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, nil, 0o640); err != nil {
		t.Fatalf("touch %s: %v", path, err)
	}
}

// WaitBackupTerminal polls until the backup reaches a terminal status.
func WaitBackupTerminal(t *testing.T, store *catalog.Store, id string) *models.BackupRecord {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		rec, err := store.GetBackup(context.Background(), id)
		if err != nil {
			t.Fatalf("GetBackup() error = %v", err)
		}
		if rec.Status.Terminal() {
			return rec
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("backup %s did not reach a terminal status", id)
	return nil
}

// WaitRunTerminal polls until the group run reaches a terminal status.
func WaitRunTerminal(t *testing.T, store *catalog.Store, id string) *models.ScheduleGroupRun {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		run, err := store.GetRun(context.Background(), id)
		if err != nil {
			t.Fatalf("GetRun() error = %v", err)
		}
		if run.Status.Terminal() {
			return run
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("run %s did not reach a terminal status", id)
	return nil
}
