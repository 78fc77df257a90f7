// VolumeVault - Scheduled Volume Backup Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/volumevault

package catalog

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/tomtom215/volumevault/internal/models"
)

// newTestStore opens a migrated catalog in a temp directory.
func newTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open(context.Background(), Config{
		Path: filepath.Join(t.TempDir(), "catalog.db"),
	})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return store
}

func createVolume(t *testing.T, s *Store, name string) *models.Volume {
	t.Helper()
	v := &models.Volume{Name: name, Path: "/data/" + name}
	if err := s.CreateVolume(context.Background(), v); err != nil {
		t.Fatalf("CreateVolume() error = %v", err)
	}
	return v
}

func createInProgressBackup(t *testing.T, s *Store, volumeID, path string) *models.BackupRecord {
	t.Helper()
	b := &models.BackupRecord{
		VolumeID:    volumeID,
		ArchivePath: path,
		Status:      models.StatusInProgress,
		StartedAt:   time.Now().UTC(),
	}
	if err := s.CreateBackup(context.Background(), b); err != nil {
		t.Fatalf("CreateBackup() error = %v", err)
	}
	return b
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := Open(context.Background(), Config{})
	if !errors.Is(err, models.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestMigrator_StatusAndIdempotency(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// A second run applies nothing new.
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}

	statuses, err := NewMigrator(store.DB()).Status(ctx)
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if len(statuses) != len(allMigrations()) {
		t.Fatalf("expected %d statuses, got %d", len(allMigrations()), len(statuses))
	}
	for _, st := range statuses {
		if !st.Applied {
			t.Errorf("migration %d not applied", st.Version)
		}
	}
}

func TestMigrator_Rollback(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	m := NewMigrator(store.DB())

	if err := m.Rollback(ctx); err != nil {
		t.Fatalf("Rollback() error = %v", err)
	}
	if store.DB().Migrator().HasTable(&models.AuditEntry{}) {
		t.Error("audit table should be dropped after rollback")
	}
	if err := m.Migrate(ctx); err != nil {
		t.Fatalf("re-Migrate() error = %v", err)
	}
	if !store.DB().Migrator().HasTable(&models.AuditEntry{}) {
		t.Error("audit table should exist after re-migrate")
	}
}

func TestVolumes_CRUD(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	v := createVolume(t, store, "photos")
	if v.ID == "" {
		t.Fatal("expected ID to be assigned")
	}

	got, err := store.GetVolume(ctx, v.ID)
	if err != nil {
		t.Fatalf("GetVolume() error = %v", err)
	}
	if got.Name != "photos" || got.Path != "/data/photos" {
		t.Errorf("unexpected volume: %+v", got)
	}

	got.Path = "/mnt/photos"
	if err := store.UpdateVolume(ctx, got); err != nil {
		t.Fatalf("UpdateVolume() error = %v", err)
	}
	got, _ = store.GetVolume(ctx, v.ID)
	if got.Path != "/mnt/photos" {
		t.Errorf("Path = %q, want /mnt/photos", got.Path)
	}

	if err := store.UpdateVolume(ctx, &models.Volume{ID: "missing"}); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected ErrNotFound on update, got %v", err)
	}

	if _, err := store.GetVolume(ctx, "missing"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteVolume_CascadesSchedulesAndMembersKeepsBackups(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	v := createVolume(t, store, "db")
	sch := &models.Schedule{VolumeID: v.ID, Frequency: models.FrequencyDaily, TimeOfDay: "02:00", Enabled: true}
	if err := store.CreateSchedule(ctx, sch); err != nil {
		t.Fatal(err)
	}
	g := &models.ScheduleGroup{Name: "nightly", Frequency: models.FrequencyDaily, TimeOfDay: "03:00", Enabled: true}
	if err := store.CreateGroup(ctx, g); err != nil {
		t.Fatal(err)
	}
	if _, err := store.ReplaceMembers(ctx, g.ID, []string{v.ID}); err != nil {
		t.Fatal(err)
	}
	b := createInProgressBackup(t, store, v.ID, "/backups/db.tar.gz")

	if err := store.DeleteVolume(ctx, v.ID); err != nil {
		t.Fatalf("DeleteVolume() error = %v", err)
	}

	if _, err := store.GetSchedule(ctx, sch.ID); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("schedule should be deleted, got %v", err)
	}
	members, _ := store.ListMembers(ctx, g.ID)
	if len(members) != 0 {
		t.Errorf("expected memberships removed, got %d", len(members))
	}
	if _, err := store.GetBackup(ctx, b.ID); err != nil {
		t.Errorf("backup record should be kept, got %v", err)
	}

	if err := store.DeleteVolume(ctx, v.ID); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestBackups_TerminalTransitionIsFinal(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	v := createVolume(t, store, "media")
	b := createInProgressBackup(t, store, v.ID, "/backups/media.tar.gz")

	now := time.Now().UTC()
	if err := store.CompleteBackup(ctx, b.ID, 1024, now); err != nil {
		t.Fatalf("CompleteBackup() error = %v", err)
	}

	// Further terminal transitions are refused.
	if err := store.FailBackup(ctx, b.ID, "late failure", now); !errors.Is(err, models.ErrPrecondition) {
		t.Errorf("expected ErrPrecondition, got %v", err)
	}
	if err := store.CompleteBackup(ctx, b.ID, 1, now); !errors.Is(err, models.ErrPrecondition) {
		t.Errorf("expected ErrPrecondition, got %v", err)
	}

	got, err := store.GetBackup(ctx, b.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != models.StatusCompleted || got.SizeBytes != 1024 || got.CompletedAt == nil {
		t.Errorf("unexpected record: %+v", got)
	}
	if got.ErrorMessage != "" {
		t.Errorf("error message should be empty, got %q", got.ErrorMessage)
	}
}

func TestBackups_ListAndExpired(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	v1 := createVolume(t, store, "a")
	v2 := createVolume(t, store, "b")

	now := time.Now().UTC()
	old := createInProgressBackup(t, store, v1.ID, "/backups/a1.tar.gz")
	older := createInProgressBackup(t, store, v1.ID, "/backups/a0.tar.gz")
	recent := createInProgressBackup(t, store, v2.ID, "/backups/b1.tar.gz")
	failed := createInProgressBackup(t, store, v2.ID, "/backups/b0.tar.gz")
	running := createInProgressBackup(t, store, v2.ID, "/backups/b2.tar.gz")

	mustNoErr(t, store.CompleteBackup(ctx, old.ID, 1, now.AddDate(0, 0, -10)))
	mustNoErr(t, store.CompleteBackup(ctx, older.ID, 1, now.AddDate(0, 0, -20)))
	mustNoErr(t, store.CompleteBackup(ctx, recent.ID, 1, now.AddDate(0, 0, -1)))
	mustNoErr(t, store.FailBackup(ctx, failed.ID, "boom", now.AddDate(0, 0, -30)))

	all, err := store.ListBackups(ctx, "")
	mustNoErr(t, err)
	if len(all) != 5 {
		t.Errorf("expected 5 records, got %d", len(all))
	}
	forV1, err := store.ListBackups(ctx, v1.ID)
	mustNoErr(t, err)
	if len(forV1) != 2 {
		t.Errorf("expected 2 records for v1, got %d", len(forV1))
	}

	expired, err := store.ListExpiredBackups(ctx, now.AddDate(0, 0, -7))
	mustNoErr(t, err)
	if len(expired) != 2 {
		t.Fatalf("expected 2 expired records, got %d", len(expired))
	}
	if expired[0].ID != older.ID || expired[1].ID != old.ID {
		t.Errorf("expected oldest first, got %s then %s", expired[0].ID, expired[1].ID)
	}

	settled, err := store.ListSettledBackups(ctx)
	mustNoErr(t, err)
	if len(settled) != 4 {
		t.Errorf("expected 4 settled records, got %d", len(settled))
	}
	for _, r := range settled {
		if r.ID == running.ID {
			t.Error("in-progress record must not be listed as settled")
		}
	}
}

func TestBackups_DeleteSettledSkipsActive(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	v := createVolume(t, store, "a")

	running := createInProgressBackup(t, store, v.ID, "/backups/same.tar.gz")
	done := createInProgressBackup(t, store, v.ID, "/backups/done.tar.gz")
	mustNoErr(t, store.CompleteBackup(ctx, done.ID, 1, time.Now()))

	n, err := store.DeleteSettledBackupsByPath(ctx, "/backups/same.tar.gz")
	mustNoErr(t, err)
	if n != 0 {
		t.Errorf("expected in-progress record kept, removed %d", n)
	}

	n, err = store.DeleteSettledBackupsByIDs(ctx, []string{running.ID, done.ID})
	mustNoErr(t, err)
	if n != 1 {
		t.Errorf("expected 1 removed, got %d", n)
	}
	if _, err := store.GetBackup(ctx, running.ID); err != nil {
		t.Errorf("running record should remain: %v", err)
	}

	if err := store.DeleteBackup(ctx, "missing"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSchedules_EnabledAndLastRun(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	v := createVolume(t, store, "a")

	on := &models.Schedule{VolumeID: v.ID, Frequency: models.FrequencyHourly, TimeOfDay: "00:30", Enabled: true}
	off := &models.Schedule{VolumeID: v.ID, Frequency: models.FrequencyDaily, TimeOfDay: "01:00", Enabled: false}
	mustNoErr(t, store.CreateSchedule(ctx, on))
	mustNoErr(t, store.CreateSchedule(ctx, off))

	enabled, err := store.ListEnabledSchedules(ctx)
	mustNoErr(t, err)
	if len(enabled) != 1 || enabled[0].ID != on.ID {
		t.Fatalf("expected only the enabled schedule, got %+v", enabled)
	}

	at := time.Date(2026, 3, 10, 0, 30, 0, 0, time.UTC)
	mustNoErr(t, store.SetScheduleLastRun(ctx, on.ID, at))
	got, err := store.GetSchedule(ctx, on.ID)
	mustNoErr(t, err)
	if got.LastRun == nil || !got.LastRun.Equal(at) {
		t.Errorf("LastRun = %v, want %v", got.LastRun, at)
	}

	got.Enabled = false
	mustNoErr(t, store.UpdateSchedule(ctx, got))
	enabled, _ = store.ListEnabledSchedules(ctx)
	if len(enabled) != 0 {
		t.Errorf("expected no enabled schedules, got %d", len(enabled))
	}

	mustNoErr(t, store.DeleteSchedule(ctx, on.ID))
	if err := store.DeleteSchedule(ctx, on.ID); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestReplaceMembers_OrdersByPosition(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	a := createVolume(t, store, "a")
	b := createVolume(t, store, "b")
	c := createVolume(t, store, "c")

	g := &models.ScheduleGroup{Name: "g", Frequency: models.FrequencyDaily, TimeOfDay: "02:00", Enabled: true}
	mustNoErr(t, store.CreateGroup(ctx, g))

	_, err := store.ReplaceMembers(ctx, g.ID, []string{a.ID, b.ID})
	mustNoErr(t, err)
	_, err = store.ReplaceMembers(ctx, g.ID, []string{c.ID, a.ID})
	mustNoErr(t, err)

	members, err := store.ListMembers(ctx, g.ID)
	mustNoErr(t, err)
	if len(members) != 2 {
		t.Fatalf("expected 2 members, got %d", len(members))
	}
	if members[0].VolumeID != c.ID || members[0].ExecutionOrder != 1 {
		t.Errorf("first member = %+v", members[0])
	}
	if members[1].VolumeID != a.ID || members[1].ExecutionOrder != 2 {
		t.Errorf("second member = %+v", members[1])
	}
}

func TestReplaceMembers_RollsBackOnUnknownVolume(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	a := createVolume(t, store, "a")

	g := &models.ScheduleGroup{Name: "g", Frequency: models.FrequencyDaily, TimeOfDay: "02:00", Enabled: true}
	mustNoErr(t, store.CreateGroup(ctx, g))
	_, err := store.ReplaceMembers(ctx, g.ID, []string{a.ID})
	mustNoErr(t, err)

	_, err = store.ReplaceMembers(ctx, g.ID, []string{"missing"})
	if !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	members, _ := store.ListMembers(ctx, g.ID)
	if len(members) != 1 || members[0].VolumeID != a.ID {
		t.Errorf("members should be unchanged after failed replace, got %+v", members)
	}

	if _, err := store.ReplaceMembers(ctx, "missing", nil); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing group, got %v", err)
	}
}

func TestRuns_ProgressAndComplete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	g := &models.ScheduleGroup{Name: "g", Frequency: models.FrequencyWeekly, TimeOfDay: "02:00", Enabled: true}
	mustNoErr(t, store.CreateGroup(ctx, g))

	run := &models.ScheduleGroupRun{
		GroupID:      g.ID,
		Status:       models.StatusInProgress,
		TotalVolumes: 2,
		StartedAt:    time.Now().UTC(),
	}
	mustNoErr(t, store.CreateRun(ctx, run))

	mustNoErr(t, store.SetRunProgress(ctx, run.ID, 1))
	mustNoErr(t, store.SetRunProgress(ctx, run.ID, 2))
	if err := store.SetRunProgress(ctx, run.ID, 1); !errors.Is(err, models.ErrPrecondition) {
		t.Errorf("progress must not move backwards, got %v", err)
	}
	if err := store.SetRunProgress(ctx, run.ID, 3); !errors.Is(err, models.ErrPrecondition) {
		t.Errorf("progress must not exceed total, got %v", err)
	}

	done := time.Date(2026, 3, 10, 2, 15, 0, 0, time.UTC)
	mustNoErr(t, store.CompleteRun(ctx, run.ID, g.ID, done))

	gotRun, err := store.GetRun(ctx, run.ID)
	mustNoErr(t, err)
	if gotRun.Status != models.StatusCompleted || gotRun.CurrentVolumeIndex != 2 {
		t.Errorf("unexpected run: %+v", gotRun)
	}
	gotGroup, err := store.GetGroup(ctx, g.ID)
	mustNoErr(t, err)
	if gotGroup.LastRun == nil || !gotGroup.LastRun.Equal(done) {
		t.Errorf("group LastRun = %v, want %v", gotGroup.LastRun, done)
	}

	if err := store.FailRun(ctx, run.ID, "late", done); !errors.Is(err, models.ErrPrecondition) {
		t.Errorf("terminal run must not change, got %v", err)
	}
}

func TestCompleteRun_RollsBackLastRunWhenNotInProgress(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	g := &models.ScheduleGroup{Name: "g", Frequency: models.FrequencyDaily, TimeOfDay: "02:00", Enabled: true}
	mustNoErr(t, store.CreateGroup(ctx, g))
	run := &models.ScheduleGroupRun{GroupID: g.ID, Status: models.StatusInProgress, StartedAt: time.Now().UTC()}
	mustNoErr(t, store.CreateRun(ctx, run))
	mustNoErr(t, store.FailRun(ctx, run.ID, "boom", time.Now()))

	if err := store.CompleteRun(ctx, run.ID, g.ID, time.Now()); !errors.Is(err, models.ErrPrecondition) {
		t.Fatalf("expected ErrPrecondition, got %v", err)
	}
	gotGroup, _ := store.GetGroup(ctx, g.ID)
	if gotGroup.LastRun != nil {
		t.Errorf("group last_run must not be set, got %v", gotGroup.LastRun)
	}
}

func TestListRuns_NewestFirstWithLimit(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	g := &models.ScheduleGroup{Name: "g", Frequency: models.FrequencyDaily, TimeOfDay: "02:00", Enabled: true}
	mustNoErr(t, store.CreateGroup(ctx, g))

	base := time.Date(2026, 3, 1, 2, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		mustNoErr(t, store.CreateRun(ctx, &models.ScheduleGroupRun{
			GroupID:   g.ID,
			Status:    models.StatusCompleted,
			StartedAt: base.AddDate(0, 0, i),
		}))
	}

	runs, err := store.ListRuns(ctx, g.ID, 2)
	mustNoErr(t, err)
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if !runs[0].StartedAt.After(runs[1].StartedAt) {
		t.Error("expected newest first")
	}
}

func TestDeleteGroup_RemovesMembersAndRuns(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	v := createVolume(t, store, "a")

	g := &models.ScheduleGroup{Name: "g", Frequency: models.FrequencyDaily, TimeOfDay: "02:00", Enabled: true}
	mustNoErr(t, store.CreateGroup(ctx, g))
	_, err := store.ReplaceMembers(ctx, g.ID, []string{v.ID})
	mustNoErr(t, err)
	mustNoErr(t, store.CreateRun(ctx, &models.ScheduleGroupRun{GroupID: g.ID, Status: models.StatusCompleted, StartedAt: time.Now()}))

	mustNoErr(t, store.DeleteGroup(ctx, g.ID))

	members, _ := store.ListMembers(ctx, g.ID)
	runs, _ := store.ListRuns(ctx, g.ID, 0)
	if len(members) != 0 || len(runs) != 0 {
		t.Errorf("expected members and runs removed, got %d and %d", len(members), len(runs))
	}
	if err := store.DeleteGroup(ctx, g.ID); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateGroup_DisabledIsPersisted(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	g := &models.ScheduleGroup{Name: "off", Frequency: models.FrequencyDaily, TimeOfDay: "02:00", Enabled: false}
	mustNoErr(t, store.CreateGroup(ctx, g))

	enabled, err := store.ListEnabledGroups(ctx)
	mustNoErr(t, err)
	if len(enabled) != 0 {
		t.Errorf("disabled group must not be listed as enabled, got %d", len(enabled))
	}
}

func TestResolveStale(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	v := createVolume(t, store, "a")

	g := &models.ScheduleGroup{Name: "g", Frequency: models.FrequencyDaily, TimeOfDay: "02:00", Enabled: true}
	mustNoErr(t, store.CreateGroup(ctx, g))
	run := &models.ScheduleGroupRun{GroupID: g.ID, Status: models.StatusInProgress, StartedAt: time.Now()}
	mustNoErr(t, store.CreateRun(ctx, run))

	stale := createInProgressBackup(t, store, v.ID, "/backups/a.tar.gz")
	done := createInProgressBackup(t, store, v.ID, "/backups/b.tar.gz")
	mustNoErr(t, store.CompleteBackup(ctx, done.ID, 1, time.Now()))

	runs, backups, err := store.ResolveStale(ctx, "interrupted: process restarted", time.Now())
	mustNoErr(t, err)
	if runs != 1 || backups != 1 {
		t.Fatalf("expected 1 run and 1 backup resolved, got %d and %d", runs, backups)
	}

	gotRun, _ := store.GetRun(ctx, run.ID)
	if gotRun.Status != models.StatusFailed || gotRun.ErrorMessage != "interrupted: process restarted" {
		t.Errorf("unexpected run: %+v", gotRun)
	}
	gotStale, _ := store.GetBackup(ctx, stale.ID)
	if gotStale.Status != models.StatusFailed || gotStale.CompletedAt == nil {
		t.Errorf("unexpected stale record: %+v", gotStale)
	}
	gotDone, _ := store.GetBackup(ctx, done.ID)
	if gotDone.Status != models.StatusCompleted {
		t.Errorf("completed record must not change, got %s", gotDone.Status)
	}
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sentinel := errors.New("abort")
	err := store.WithTx(ctx, func(tx *Store) error {
		if err := tx.CreateVolume(ctx, &models.Volume{Name: "tmp", Path: "/tmp"}); err != nil {
			return err
		}
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel error, got %v", err)
	}

	volumes, _ := store.ListVolumes(ctx)
	if len(volumes) != 0 {
		t.Errorf("expected rollback, found %d volumes", len(volumes))
	}
}

func TestHealth(t *testing.T) {
	store := newTestStore(t)
	if err := store.Health(context.Background()); err != nil {
		t.Errorf("Health() error = %v", err)
	}
}

func mustNoErr(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
