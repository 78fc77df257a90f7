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
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/volumevault/internal/archive"
	"github.com/tomtom215/volumevault/internal/catalog"
	"github.com/tomtom215/volumevault/internal/models"
	"github.com/tomtom215/volumevault/internal/notify"
	"github.com/tomtom215/volumevault/internal/tasks"
	"github.com/tomtom215/volumevault/internal/testinfra"
)

type testEnv struct {
	exec     *Executor
	store    *catalog.Store
	registry *tasks.Registry
	notifier *testinfra.RecordingNotifier
	auditor  *testinfra.RecordingAuditor
	root     string
	sources  string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		store:    testinfra.NewCatalog(t),
		registry: tasks.NewRegistry(zerolog.Nop()),
		notifier: testinfra.NewRecordingNotifier(),
		auditor:  testinfra.NewRecordingAuditor(),
		root:     filepath.Join(t.TempDir(), "backups"),
		sources:  t.TempDir(),
	}
	t.Cleanup(func() { env.registry.Shutdown(5 * time.Second) })

	logger := zerolog.Nop()
	exec, err := NewExecutor(Config{StorageRoot: env.root}, Deps{
		Catalog:  env.store,
		Tasks:    env.registry,
		Notifier: env.notifier,
		Audit:    env.auditor,
		Logger:   &logger,
	})
	if err != nil {
		t.Fatalf("NewExecutor() error = %v", err)
	}
	env.exec = exec
	return env
}

func (env *testEnv) volume(t *testing.T, name string) *models.Volume {
	t.Helper()
	return testinfra.CreateVolume(t, env.store, env.sources, name, map[string]string{
		"a.txt":         "alpha",
		"nested/b.txt":  "bravo",
		"nested/deep/c": "charlie",
	})
}

func (env *testEnv) completedBackup(t *testing.T, vol *models.Volume) *models.BackupRecord {
	t.Helper()
	rec, err := env.exec.Run(context.Background(), vol.ID)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if rec.Status != models.StatusCompleted {
		t.Fatalf("Run() status = %s, want completed", rec.Status)
	}
	return rec
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

func TestNewExecutor_RequiresCollaborators(t *testing.T) {
	store := testinfra.NewCatalog(t)

	if _, err := NewExecutor(Config{}, Deps{Tasks: tasks.NewRegistry(zerolog.Nop())}); err == nil {
		t.Error("NewExecutor() without catalog should fail")
	}
	if _, err := NewExecutor(Config{}, Deps{Catalog: store}); err == nil {
		t.Error("NewExecutor() without task runner should fail")
	}
}

func TestTrigger_CompletesInBackground(t *testing.T) {
	env := newTestEnv(t)
	vol := env.volume(t, "media")

	rec, err := env.exec.Trigger(context.Background(), vol.ID)
	if err != nil {
		t.Fatalf("Trigger() error = %v", err)
	}
	if rec.Status != models.StatusInProgress {
		t.Errorf("Trigger() status = %s, want in_progress", rec.Status)
	}
	if filepath.Dir(rec.ArchivePath) != env.root {
		t.Errorf("archive path %s is not in the storage root %s", rec.ArchivePath, env.root)
	}
	base := filepath.Base(rec.ArchivePath)
	if !strings.HasPrefix(base, "media_") || !strings.HasSuffix(base, ".tar.gz") {
		t.Errorf("archive name = %s, want media_<timestamp>.tar.gz", base)
	}

	done := testinfra.WaitBackupTerminal(t, env.store, rec.ID)
	if done.Status != models.StatusCompleted {
		t.Fatalf("status = %s (%s), want completed", done.Status, done.ErrorMessage)
	}
	info, err := os.Stat(done.ArchivePath)
	if err != nil {
		t.Fatalf("archive missing: %v", err)
	}
	if done.SizeBytes != info.Size() {
		t.Errorf("size_bytes = %d, want %d", done.SizeBytes, info.Size())
	}
	if done.CompletedAt == nil {
		t.Error("completed_at is not set")
	}
	if len(env.notifier.Events(notify.EventBackupFailed)) != 0 {
		t.Error("backup.failed published for a successful backup")
	}
}

func TestTrigger_Errors(t *testing.T) {
	t.Run("unknown volume", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := env.exec.Trigger(context.Background(), "missing")
		if !errors.Is(err, models.ErrNotFound) {
			t.Errorf("Trigger() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("storage root unset", func(t *testing.T) {
		env := newTestEnv(t)
		vol := env.volume(t, "media")
		env.exec.cfg.StorageRoot = ""

		_, err := env.exec.Trigger(context.Background(), vol.ID)
		if !errors.Is(err, models.ErrConfiguration) {
			t.Errorf("Trigger() error = %v, want ErrConfiguration", err)
		}
		if recs, _ := env.store.ListBackups(context.Background(), vol.ID); len(recs) != 0 {
			t.Errorf("%d records created, want 0", len(recs))
		}
	})

	t.Run("storage root not creatable", func(t *testing.T) {
		env := newTestEnv(t)
		vol := env.volume(t, "media")
		blocker := filepath.Join(t.TempDir(), "file")
		testinfra.Touch(t, blocker)
		env.exec.cfg.StorageRoot = filepath.Join(blocker, "backups")

		_, err := env.exec.Trigger(context.Background(), vol.ID)
		if !errors.Is(err, models.ErrConfiguration) {
			t.Errorf("Trigger() error = %v, want ErrConfiguration", err)
		}
	})

	t.Run("registry closed", func(t *testing.T) {
		env := newTestEnv(t)
		vol := env.volume(t, "media")
		env.registry.Shutdown(time.Second)

		released := false
		_, err := env.exec.TriggerWithRelease(context.Background(), vol.ID, func() { released = true })
		if !errors.Is(err, tasks.ErrClosed) {
			t.Fatalf("Trigger() error = %v, want ErrClosed", err)
		}
		if !released {
			t.Error("release was not called")
		}
		recs, err := env.store.ListBackups(context.Background(), vol.ID)
		if err != nil {
			t.Fatal(err)
		}
		if len(recs) != 1 || recs[0].Status != models.StatusFailed {
			t.Errorf("records = %+v, want one failed record", recs)
		}
	})
}

func TestRun_SourceMissingFails(t *testing.T) {
	env := newTestEnv(t)
	vol := env.volume(t, "media")
	if err := os.RemoveAll(vol.Path); err != nil {
		t.Fatal(err)
	}

	rec, err := env.exec.Run(context.Background(), vol.ID)
	if err == nil {
		t.Fatal("Run() should fail when the source is missing")
	}
	if rec.Status != models.StatusFailed || rec.ErrorMessage == "" || rec.CompletedAt == nil {
		t.Errorf("record = %+v, want failed with message and completed_at", rec)
	}

	stored, err := env.store.GetBackup(context.Background(), rec.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Status != models.StatusFailed {
		t.Errorf("stored status = %s, want failed", stored.Status)
	}

	evt := env.notifier.WaitFor(t, notify.EventBackupFailed)
	payload, ok := evt.Payload.(notify.BackupFailedPayload)
	if !ok {
		t.Fatalf("payload type = %T", evt.Payload)
	}
	if payload.BackupID != rec.ID || payload.VolumeName != "media" || payload.Error == "" {
		t.Errorf("payload = %+v", payload)
	}

	var failedAudit bool
	for _, e := range env.auditor.Entries(models.CategoryBackup) {
		if e.Level == models.AuditError && e.BackupID == rec.ID {
			failedAudit = true
		}
	}
	if !failedAudit {
		t.Error("no error audit entry for the failed backup")
	}
}

func TestRun_FailureRemovesPartialArchive(t *testing.T) {
	env := newTestEnv(t)
	vol := env.volume(t, "media")
	env.exec.create = func(_ context.Context, _, destPath string, _ archive.CreateOptions) (*archive.CreateResult, error) {
		if err := os.WriteFile(destPath, []byte("truncated gzip"), 0o640); err != nil {
			t.Fatal(err)
		}
		return &archive.CreateResult{Files: 1}, &archive.Error{Op: "read", Path: vol.Path, Err: errors.New("input/output error")}
	}

	rec, err := env.exec.Run(context.Background(), vol.ID)
	if err == nil {
		t.Fatal("Run() should fail")
	}
	if rec.Status != models.StatusFailed {
		t.Errorf("status = %s, want failed", rec.Status)
	}
	if _, statErr := os.Stat(rec.ArchivePath); !errors.Is(statErr, os.ErrNotExist) {
		t.Errorf("partial archive still present: stat error = %v", statErr)
	}
}

func TestRun_InvalidCompressionLevelLeavesNoFile(t *testing.T) {
	env := newTestEnv(t)
	vol := env.volume(t, "media")
	env.exec.cfg.CompressionLevel = 12

	rec, err := env.exec.Run(context.Background(), vol.ID)
	if err == nil {
		t.Fatal("Run() with gzip level 12 should fail")
	}
	if rec.Status != models.StatusFailed {
		t.Errorf("status = %s, want failed", rec.Status)
	}
	if _, statErr := os.Stat(rec.ArchivePath); !errors.Is(statErr, os.ErrNotExist) {
		t.Errorf("opened archive file left behind: stat error = %v", statErr)
	}
}

func TestArchive_PanicFailsRecord(t *testing.T) {
	env := newTestEnv(t)
	vol := env.volume(t, "media")
	env.exec.create = func(_ context.Context, _, destPath string, _ archive.CreateOptions) (*archive.CreateResult, error) {
		_ = os.WriteFile(destPath, []byte("partial"), 0o640)
		panic("tar writer exploded")
	}

	t.Run("run", func(t *testing.T) {
		rec, err := env.exec.Run(context.Background(), vol.ID)
		if err == nil || !strings.Contains(err.Error(), "tar writer exploded") {
			t.Fatalf("Run() error = %v, want the panic value", err)
		}
		stored, err := env.store.GetBackup(context.Background(), rec.ID)
		if err != nil {
			t.Fatal(err)
		}
		if stored.Status != models.StatusFailed || !strings.Contains(stored.ErrorMessage, "panic") {
			t.Errorf("stored = %+v, want failed naming the panic", stored)
		}
		if _, statErr := os.Stat(rec.ArchivePath); !errors.Is(statErr, os.ErrNotExist) {
			t.Errorf("partial archive still present: stat error = %v", statErr)
		}
		if events := env.notifier.Events(notify.EventBackupFailed); len(events) != 1 {
			t.Errorf("backup.failed events = %d, want 1", len(events))
		}
	})

	t.Run("trigger", func(t *testing.T) {
		rec, err := env.exec.Trigger(context.Background(), vol.ID)
		if err != nil {
			t.Fatalf("Trigger() error = %v", err)
		}
		stored := testinfra.WaitBackupTerminal(t, env.store, rec.ID)
		if stored.Status != models.StatusFailed || !strings.Contains(stored.ErrorMessage, "panic") {
			t.Errorf("stored = %+v, want failed naming the panic", stored)
		}
	})
}

func TestRun_CompressionLevelPassedThrough(t *testing.T) {
	env := newTestEnv(t)
	vol := testinfra.CreateVolume(t, env.store, env.sources, "logs", map[string]string{
		"app.log": strings.Repeat("GET /api/v1/health 200\n", 4096),
	})

	sizes := map[int]int64{}
	for _, level := range []int{0, -1} {
		env.exec.cfg.CompressionLevel = level
		rec, err := env.exec.Run(context.Background(), vol.ID)
		if err != nil {
			t.Fatalf("Run(level %d) error = %v", level, err)
		}
		sizes[level] = rec.SizeBytes
	}
	if sizes[0] <= sizes[-1] {
		t.Errorf("stored archive %d bytes is not larger than default-compressed %d bytes", sizes[0], sizes[-1])
	}
}

func TestListContents(t *testing.T) {
	env := newTestEnv(t)
	vol := env.volume(t, "media")
	rec := env.completedBackup(t, vol)

	entries, err := env.exec.ListContents(context.Background(), rec.ID)
	if err != nil {
		t.Fatalf("ListContents() error = %v", err)
	}
	paths := make(map[string]bool)
	for _, e := range entries {
		paths[e.Path] = e.IsDirectory
	}
	for _, want := range []string{"media/a.txt", "media/nested/b.txt", "media/nested/deep/c"} {
		if isDir, ok := paths[want]; !ok || isDir {
			t.Errorf("entry %s missing or a directory (entries: %v)", want, paths)
		}
	}
	if !paths["media/nested"] {
		t.Errorf("directory entry media/nested missing")
	}

	t.Run("in progress", func(t *testing.T) {
		running := testinfra.CreateBackup(t, env.store, vol.ID, filepath.Join(env.root, "x.tar.gz"), models.StatusInProgress, time.Now())
		_, err := env.exec.ListContents(context.Background(), running.ID)
		if !errors.Is(err, models.ErrPrecondition) {
			t.Errorf("ListContents() error = %v, want ErrPrecondition", err)
		}
	})

	t.Run("archive gone", func(t *testing.T) {
		gone := testinfra.CreateBackup(t, env.store, vol.ID, filepath.Join(env.root, "gone.tar.gz"), models.StatusCompleted, time.Now())
		_, err := env.exec.ListContents(context.Background(), gone.ID)
		if !errors.Is(err, models.ErrNotFound) {
			t.Errorf("ListContents() error = %v, want ErrNotFound", err)
		}
	})
}

func TestList(t *testing.T) {
	env := newTestEnv(t)
	vol := env.volume(t, "media")
	env.completedBackup(t, vol)

	recs, err := env.exec.List(context.Background(), vol.ID)
	if err != nil || len(recs) != 1 {
		t.Errorf("List() = %d records, %v; want 1", len(recs), err)
	}
	if _, err := env.exec.List(context.Background(), "missing"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("List(missing) error = %v, want ErrNotFound", err)
	}
}

func TestDelete(t *testing.T) {
	t.Run("removes file and record", func(t *testing.T) {
		env := newTestEnv(t)
		vol := env.volume(t, "media")
		rec := env.completedBackup(t, vol)

		if err := env.exec.Delete(context.Background(), rec.ID); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		if _, err := os.Stat(rec.ArchivePath); !errors.Is(err, os.ErrNotExist) {
			t.Errorf("archive still present: %v", err)
		}
		if _, err := env.store.GetBackup(context.Background(), rec.ID); !errors.Is(err, models.ErrNotFound) {
			t.Errorf("record still present: %v", err)
		}
	})

	t.Run("absent file still removes record", func(t *testing.T) {
		env := newTestEnv(t)
		vol := env.volume(t, "media")
		rec := testinfra.CreateBackup(t, env.store, vol.ID, filepath.Join(env.root, "absent.tar.gz"), models.StatusFailed, time.Now())

		if err := env.exec.Delete(context.Background(), rec.ID); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		if _, err := env.store.GetBackup(context.Background(), rec.ID); !errors.Is(err, models.ErrNotFound) {
			t.Errorf("record still present: %v", err)
		}
	})

	t.Run("in progress refused", func(t *testing.T) {
		env := newTestEnv(t)
		vol := env.volume(t, "media")
		rec := testinfra.CreateBackup(t, env.store, vol.ID, filepath.Join(env.root, "running.tar.gz"), models.StatusInProgress, time.Now())

		if err := env.exec.Delete(context.Background(), rec.ID); !errors.Is(err, models.ErrPrecondition) {
			t.Errorf("Delete() error = %v, want ErrPrecondition", err)
		}
	})

	t.Run("unknown", func(t *testing.T) {
		env := newTestEnv(t)
		if err := env.exec.Delete(context.Background(), "missing"); !errors.Is(err, models.ErrNotFound) {
			t.Errorf("Delete() error = %v, want ErrNotFound", err)
		}
	})
}
