// VolumeVault - Scheduled Volume Backup Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/volumevault

package backup

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tomtom215/volumevault/internal/models"
	"github.com/tomtom215/volumevault/internal/notify"
	"github.com/tomtom215/volumevault/internal/testinfra"
)

func TestRestore_FullOverwritesInPlace(t *testing.T) {
	env := newTestEnv(t)
	vol := env.volume(t, "media")
	rec := env.completedBackup(t, vol)

	testinfra.WriteTree(t, vol.Path, map[string]string{"a.txt": "changed"})
	if err := os.Remove(filepath.Join(vol.Path, "nested", "b.txt")); err != nil {
		t.Fatal(err)
	}

	result, err := env.exec.Restore(context.Background(), rec.ID, RestoreOptions{Mode: RestoreFull})
	if err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	if result.Destination != env.sources {
		t.Errorf("destination = %s, want %s", result.Destination, env.sources)
	}
	if result.Files != 3 {
		t.Errorf("files = %d, want 3", result.Files)
	}
	if got := readFile(t, filepath.Join(vol.Path, "a.txt")); got != "alpha" {
		t.Errorf("a.txt = %q, want alpha", got)
	}
	if got := readFile(t, filepath.Join(vol.Path, "nested", "b.txt")); got != "bravo" {
		t.Errorf("nested/b.txt = %q, want bravo", got)
	}

	evt := env.notifier.WaitFor(t, notify.EventRestoreCompleted)
	payload := evt.Payload.(notify.RestoreCompletedPayload)
	if payload.BackupID != rec.ID || payload.Mode != string(RestoreFull) || payload.Files != 3 {
		t.Errorf("payload = %+v", payload)
	}

	stored, err := env.store.GetBackup(context.Background(), rec.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Status != models.StatusCompleted || stored.SizeBytes != rec.SizeBytes {
		t.Errorf("restore mutated the record: %+v", stored)
	}
}

func TestRestore_SelectiveToCustomPath(t *testing.T) {
	env := newTestEnv(t)
	vol := env.volume(t, "media")
	rec := env.completedBackup(t, vol)
	dest := t.TempDir()

	result, err := env.exec.Restore(context.Background(), rec.ID, RestoreOptions{
		Mode:       RestoreSelective,
		Paths:      []string{"media/nested", "media/nope.txt"},
		CustomPath: dest,
	})
	if err != nil {
		t.Fatalf("Restore() error = %v", err)
	}

	if got := readFile(t, filepath.Join(dest, "media", "nested", "b.txt")); got != "bravo" {
		t.Errorf("nested/b.txt = %q, want bravo", got)
	}
	if got := readFile(t, filepath.Join(dest, "media", "nested", "deep", "c")); got != "charlie" {
		t.Errorf("nested/deep/c = %q, want charlie", got)
	}
	if _, err := os.Stat(filepath.Join(dest, "media", "a.txt")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("a.txt was restored by a selective restore: %v", err)
	}
	if len(result.Unmatched) != 1 || result.Unmatched[0] != "media/nope.txt" {
		t.Errorf("unmatched = %v, want [media/nope.txt]", result.Unmatched)
	}
}

func TestPrepareRestore_Preconditions(t *testing.T) {
	env := newTestEnv(t)
	vol := env.volume(t, "media")
	completed := env.completedBackup(t, vol)
	failed := testinfra.CreateBackup(t, env.store, vol.ID, filepath.Join(env.root, "f.tar.gz"), models.StatusFailed, time.Now())
	running := testinfra.CreateBackup(t, env.store, vol.ID, filepath.Join(env.root, "r.tar.gz"), models.StatusInProgress, time.Now())
	gone := testinfra.CreateBackup(t, env.store, vol.ID, filepath.Join(env.root, "gone.tar.gz"), models.StatusCompleted, time.Now())

	tests := []struct {
		name     string
		backupID string
		opts     RestoreOptions
		wantErr  error
	}{
		{"unknown backup", "missing", RestoreOptions{}, models.ErrNotFound},
		{"failed backup", failed.ID, RestoreOptions{}, models.ErrPrecondition},
		{"in progress backup", running.ID, RestoreOptions{}, models.ErrPrecondition},
		{"archive file gone", gone.ID, RestoreOptions{}, models.ErrNotFound},
		{"unknown mode", completed.ID, RestoreOptions{Mode: "partial"}, models.ErrInvalidInput},
		{"selective without paths", completed.ID, RestoreOptions{Mode: RestoreSelective}, models.ErrInvalidInput},
		{"relative custom path", completed.ID, RestoreOptions{CustomPath: "restore/here"}, models.ErrInvalidInput},
		{"defaults to full", completed.ID, RestoreOptions{}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := env.exec.PrepareRestore(context.Background(), tt.backupID, tt.opts)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("PrepareRestore() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("PrepareRestore() error = %v", err)
			}
			if plan.Mode != RestoreFull || plan.VolumeName != "media" {
				t.Errorf("plan = %+v", plan)
			}
		})
	}
}

func TestPrepareRestore_DeletedVolumeNeedsCustomPath(t *testing.T) {
	env := newTestEnv(t)
	vol := env.volume(t, "media")
	rec := env.completedBackup(t, vol)
	if err := env.store.DeleteVolume(context.Background(), vol.ID); err != nil {
		t.Fatal(err)
	}

	if _, err := env.exec.PrepareRestore(context.Background(), rec.ID, RestoreOptions{}); !errors.Is(err, models.ErrPrecondition) {
		t.Errorf("PrepareRestore() error = %v, want ErrPrecondition", err)
	}

	dest := t.TempDir()
	plan, err := env.exec.PrepareRestore(context.Background(), rec.ID, RestoreOptions{CustomPath: dest})
	if err != nil {
		t.Fatalf("PrepareRestore(custom_path) error = %v", err)
	}
	if plan.Destination != dest {
		t.Errorf("destination = %s, want %s", plan.Destination, dest)
	}
}

func TestStartRestore_ExtractsInBackground(t *testing.T) {
	env := newTestEnv(t)
	vol := env.volume(t, "media")
	rec := env.completedBackup(t, vol)
	dest := t.TempDir()

	plan, err := env.exec.StartRestore(context.Background(), rec.ID, RestoreOptions{CustomPath: dest})
	if err != nil {
		t.Fatalf("StartRestore() error = %v", err)
	}
	if plan.Destination != dest {
		t.Errorf("destination = %s, want %s", plan.Destination, dest)
	}

	env.notifier.WaitFor(t, notify.EventRestoreCompleted)
	if got := readFile(t, filepath.Join(dest, "media", "a.txt")); got != "alpha" {
		t.Errorf("a.txt = %q, want alpha", got)
	}
}

func TestStartRestore_ValidatesSynchronously(t *testing.T) {
	env := newTestEnv(t)
	vol := env.volume(t, "media")
	running := testinfra.CreateBackup(t, env.store, vol.ID, filepath.Join(env.root, "r.tar.gz"), models.StatusInProgress, time.Now())

	if _, err := env.exec.StartRestore(context.Background(), running.ID, RestoreOptions{}); !errors.Is(err, models.ErrPrecondition) {
		t.Errorf("StartRestore() error = %v, want ErrPrecondition", err)
	}
	if n := env.registry.InFlight(); n != 0 {
		t.Errorf("%d tasks started for a rejected restore", n)
	}
}
