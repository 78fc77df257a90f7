// VolumeVault - Scheduled Volume Backup Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/volumevault

package audit

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/tomtom215/volumevault/internal/catalog"
	"github.com/tomtom215/volumevault/internal/logging"
	"github.com/tomtom215/volumevault/internal/models"
)

// waitForLen polls the store until it holds n entries.
func waitForLen(t *testing.T, store *MemoryStore, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if store.Len() == n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("store holds %d entries, want %d", store.Len(), n)
}

func TestLogger_Log(t *testing.T) {
	store := NewMemoryStore(100)
	logger := NewLogger(store, &Config{Enabled: true, LogLevel: models.AuditInfo, BufferSize: 10})
	defer logger.Close()

	ctx := logging.ContextWithCorrelationID(context.Background(), "corr-1")
	logger.Log(ctx, &models.AuditEntry{
		Level:    models.AuditError,
		Category: models.CategoryBackup,
		Message:  "Backup failed",
		VolumeID: "vol-1",
		Details:  models.AuditDetails{"error": "permission denied"},
	})

	waitForLen(t, store, 1)

	entries, err := store.Query(context.Background(), QueryFilter{Limit: 10})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	got := entries[0]
	if got.ID == "" {
		t.Error("expected ID to be generated")
	}
	if got.Timestamp.IsZero() {
		t.Error("expected timestamp to be set")
	}
	if got.CorrelationID != "corr-1" {
		t.Errorf("CorrelationID = %q, want corr-1", got.CorrelationID)
	}
	if got.Details["error"] != "permission denied" {
		t.Errorf("Details = %v", got.Details)
	}
}

func TestLogger_Disabled(t *testing.T) {
	store := NewMemoryStore(100)
	logger := NewLogger(store, &Config{Enabled: false, BufferSize: 10})

	logger.Log(context.Background(), Entry(models.AuditError, models.CategorySystem, "ignored", nil))
	_ = logger.Close()

	if store.Len() != 0 {
		t.Errorf("expected 0 entries when disabled, got %d", store.Len())
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	tests := []struct {
		name         string
		minLevel     models.AuditLevel
		includeDebug bool
		level        models.AuditLevel
		wantStored   bool
	}{
		{"error passes warning minimum", models.AuditWarning, false, models.AuditError, true},
		{"info below warning minimum", models.AuditWarning, false, models.AuditInfo, false},
		{"success ranks with info", models.AuditInfo, false, models.AuditSuccess, true},
		{"success below warning", models.AuditWarning, false, models.AuditSuccess, false},
		{"debug excluded by default", models.AuditDebug, false, models.AuditDebug, false},
		{"debug included when enabled", models.AuditDebug, true, models.AuditDebug, true},
		{"unknown level rejected", models.AuditDebug, true, models.AuditLevel("fatal"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewMemoryStore(10)
			logger := NewLogger(store, &Config{
				Enabled:      true,
				LogLevel:     tt.minLevel,
				IncludeDebug: tt.includeDebug,
				BufferSize:   10,
			})
			logger.Log(context.Background(), Entry(tt.level, models.CategorySystem, "msg", nil))
			_ = logger.Close()

			if got := store.Len() == 1; got != tt.wantStored {
				t.Errorf("stored = %v, want %v", got, tt.wantStored)
			}
		})
	}
}

func TestLogger_CloseFlushesAndIgnoresLateEntries(t *testing.T) {
	store := NewMemoryStore(100)
	logger := NewLogger(store, &Config{Enabled: true, LogLevel: models.AuditInfo, BufferSize: 50})

	for i := 0; i < 20; i++ {
		logger.Log(context.Background(), Entry(models.AuditInfo, models.CategoryBackup, "entry", nil))
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if store.Len() != 20 {
		t.Errorf("store holds %d entries after Close, want 20", store.Len())
	}

	logger.Log(context.Background(), Entry(models.AuditInfo, models.CategoryBackup, "late", nil))
	if err := logger.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if store.Len() != 20 {
		t.Errorf("late entry was stored")
	}
}

func TestLogger_Cleanup(t *testing.T) {
	store := NewMemoryStore(100)
	ctx := context.Background()
	old := time.Now().UTC().AddDate(0, 0, -10)
	_ = store.Save(ctx, &models.AuditEntry{ID: "old", Timestamp: old, Level: models.AuditInfo})
	_ = store.Save(ctx, &models.AuditEntry{ID: "new", Timestamp: time.Now().UTC(), Level: models.AuditInfo})

	logger := NewLogger(store, &Config{Enabled: true, RetentionDays: 7, BufferSize: 1})
	defer logger.Close()

	deleted, err := logger.Cleanup(ctx)
	if err != nil {
		t.Fatalf("Cleanup() error = %v", err)
	}
	if deleted != 1 || store.Len() != 1 {
		t.Errorf("deleted = %d, remaining = %d; want 1, 1", deleted, store.Len())
	}

	logger.config.RetentionDays = 0
	if deleted, _ := logger.Cleanup(ctx); deleted != 0 {
		t.Errorf("retention 0 deleted %d entries", deleted)
	}
}

func TestLogger_Clear(t *testing.T) {
	store := NewMemoryStore(100)
	ctx := context.Background()
	now := time.Now().UTC()
	_ = store.Save(ctx, &models.AuditEntry{ID: "week", Timestamp: now.AddDate(0, 0, -7), Level: models.AuditInfo})
	_ = store.Save(ctx, &models.AuditEntry{ID: "day", Timestamp: now.AddDate(0, 0, -1), Level: models.AuditInfo})
	_ = store.Save(ctx, &models.AuditEntry{ID: "recent", Timestamp: now.Add(-time.Second), Level: models.AuditInfo})

	logger := NewLogger(store, &Config{Enabled: true, BufferSize: 1})
	defer logger.Close()

	cutoff := now.AddDate(0, 0, -3)
	deleted, err := logger.Clear(ctx, &cutoff)
	if err != nil {
		t.Fatalf("Clear(cutoff) error = %v", err)
	}
	if deleted != 1 || store.Len() != 2 {
		t.Errorf("Clear(cutoff) deleted = %d, remaining = %d; want 1, 2", deleted, store.Len())
	}

	deleted, err = logger.Clear(ctx, nil)
	if err != nil {
		t.Fatalf("Clear(nil) error = %v", err)
	}
	if deleted != 2 || store.Len() != 0 {
		t.Errorf("Clear(nil) deleted = %d, remaining = %d; want 2, 0", deleted, store.Len())
	}
}

func TestMemoryStore_Query(t *testing.T) {
	store := NewMemoryStore(100)
	ctx := context.Background()
	base := time.Now().UTC().Add(-time.Hour)

	seed := []models.AuditEntry{
		{ID: "1", Timestamp: base, Level: models.AuditInfo, Category: models.CategoryBackup, Message: "Backup started", VolumeID: "v1"},
		{ID: "2", Timestamp: base.Add(time.Minute), Level: models.AuditError, Category: models.CategoryBackup, Message: "Backup failed", VolumeID: "v1"},
		{ID: "3", Timestamp: base.Add(2 * time.Minute), Level: models.AuditSuccess, Category: models.CategoryRetention, Message: "Retention sweep done"},
		{ID: "4", Timestamp: base.Add(3 * time.Minute), Level: models.AuditWarning, Category: models.CategoryReconcile, Message: "Orphan removed", BackupID: "b9"},
	}
	for i := range seed {
		_ = store.Save(ctx, &seed[i])
	}

	start := base.Add(90 * time.Second)
	tests := []struct {
		name    string
		filter  QueryFilter
		wantIDs []string
	}{
		{"all newest first", QueryFilter{}, []string{"4", "3", "2", "1"}},
		{"by category", QueryFilter{Categories: []models.AuditCategory{models.CategoryBackup}}, []string{"2", "1"}},
		{"by level", QueryFilter{Levels: []models.AuditLevel{models.AuditError, models.AuditWarning}}, []string{"4", "2"}},
		{"by volume", QueryFilter{VolumeID: "v1"}, []string{"2", "1"}},
		{"by backup", QueryFilter{BackupID: "b9"}, []string{"4"}},
		{"start time", QueryFilter{StartTime: &start}, []string{"4", "3"}},
		{"search text", QueryFilter{SearchText: "backup"}, []string{"2", "1"}},
		{"limit and offset", QueryFilter{Limit: 2, Offset: 1}, []string{"3", "2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.Query(ctx, tt.filter)
			if err != nil {
				t.Fatalf("Query() error = %v", err)
			}
			assertIDs(t, got, tt.wantIDs)

			count, _ := store.Count(ctx, QueryFilter{
				Categories: tt.filter.Categories,
				Levels:     tt.filter.Levels,
				VolumeID:   tt.filter.VolumeID,
				BackupID:   tt.filter.BackupID,
				StartTime:  tt.filter.StartTime,
				SearchText: tt.filter.SearchText,
			})
			if tt.filter.Limit == 0 && count != int64(len(tt.wantIDs)) {
				t.Errorf("Count() = %d, want %d", count, len(tt.wantIDs))
			}
		})
	}
}

func TestMemoryStore_EvictsOldest(t *testing.T) {
	store := NewMemoryStore(10)
	ctx := context.Background()
	for i := 0; i < 11; i++ {
		_ = store.Save(ctx, &models.AuditEntry{ID: string(rune('a' + i)), Timestamp: time.Now()})
	}
	if store.Len() != 10 {
		t.Errorf("Len() = %d, want 10", store.Len())
	}
	got, _ := store.Query(ctx, QueryFilter{})
	if got[len(got)-1].ID != "b" {
		t.Errorf("oldest remaining = %q, want b", got[len(got)-1].ID)
	}
}

func TestMemoryStore_Stats(t *testing.T) {
	store := NewMemoryStore(10)
	ctx := context.Background()
	_ = store.Save(ctx, &models.AuditEntry{ID: "1", Timestamp: time.Now(), Level: models.AuditInfo, Category: models.CategoryBackup})
	_ = store.Save(ctx, &models.AuditEntry{ID: "2", Timestamp: time.Now(), Level: models.AuditError, Category: models.CategoryBackup})

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.TotalEntries != 2 || stats.EntriesByCategory["backup"] != 2 || stats.EntriesByLevel["error"] != 1 {
		t.Errorf("Stats() = %+v", stats)
	}
	if stats.OldestEntry == nil || stats.NewestEntry == nil {
		t.Error("expected oldest and newest timestamps")
	}
}

func newGormStore(t *testing.T) *GormStore {
	t.Helper()
	ctx := context.Background()
	db, err := catalog.Open(ctx, catalog.Config{Path: filepath.Join(t.TempDir(), "catalog.db")})
	if err != nil {
		t.Fatalf("catalog.Open() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return NewGormStore(db.DB())
}

func TestGormStore_RoundTrip(t *testing.T) {
	store := newGormStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	entries := []models.AuditEntry{
		{ID: "e1", Timestamp: now.Add(-48 * time.Hour), Level: models.AuditInfo, Category: models.CategoryRetention, Message: "Old sweep"},
		{ID: "e2", Timestamp: now.Add(-time.Minute), Level: models.AuditError, Category: models.CategoryBackup, Message: "Backup failed", VolumeID: "v1",
			Details: models.AuditDetails{"error": "disk full", "attempt": float64(1)}},
		{ID: "e3", Timestamp: now, Level: models.AuditSuccess, Category: models.CategoryBackup, Message: "Backup completed", VolumeID: "v1"},
	}
	for i := range entries {
		if err := store.Save(ctx, &entries[i]); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
	}

	got, err := store.Query(ctx, QueryFilter{Categories: []models.AuditCategory{models.CategoryBackup}})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	assertIDs(t, got, []string{"e3", "e2"})
	if got[1].Details["error"] != "disk full" {
		t.Errorf("Details not round-tripped: %v", got[1].Details)
	}
	if got[0].Details != nil {
		t.Errorf("nil Details came back as %v", got[0].Details)
	}

	levels, err := store.Query(ctx, QueryFilter{Levels: []models.AuditLevel{models.AuditError}, SearchText: "FAILED"})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	assertIDs(t, levels, []string{"e2"})

	count, err := store.Count(ctx, QueryFilter{VolumeID: "v1"})
	if err != nil || count != 2 {
		t.Errorf("Count() = %d, %v; want 2", count, err)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.TotalEntries != 3 || stats.EntriesByCategory["backup"] != 2 || stats.EntriesByLevel["success"] != 1 {
		t.Errorf("Stats() = %+v", stats)
	}

	deleted, err := store.Delete(ctx, now.Add(-24*time.Hour))
	if err != nil || deleted != 1 {
		t.Errorf("Delete() = %d, %v; want 1", deleted, err)
	}
}

func TestGormStore_ThroughLogger(t *testing.T) {
	store := newGormStore(t)
	logger := NewLogger(store, &Config{Enabled: true, LogLevel: models.AuditInfo, BufferSize: 10})

	logger.Log(context.Background(), Entry(models.AuditInfo, models.CategorySchedule, "Schedule dispatched", models.AuditDetails{"schedule_id": "s1"}))
	_ = logger.Close()

	count, err := store.Count(context.Background(), QueryFilter{Categories: []models.AuditCategory{models.CategorySchedule}})
	if err != nil || count != 1 {
		t.Errorf("Count() = %d, %v; want 1", count, err)
	}
}

func TestParseLevelAndCategory(t *testing.T) {
	if _, ok := ParseLevel("warning"); !ok {
		t.Error("ParseLevel(warning) rejected")
	}
	if _, ok := ParseLevel("critical"); ok {
		t.Error("ParseLevel(critical) accepted")
	}
	if _, ok := ParseCategory("reconcile"); !ok {
		t.Error("ParseCategory(reconcile) rejected")
	}
	if _, ok := ParseCategory("auth"); ok {
		t.Error("ParseCategory(auth) accepted")
	}
}

func assertIDs(t *testing.T, entries []models.AuditEntry, want []string) {
	t.Helper()
	if len(entries) != len(want) {
		ids := make([]string, len(entries))
		for i := range entries {
			ids[i] = entries[i].ID
		}
		t.Fatalf("got IDs %v, want %v", ids, want)
	}
	for i := range want {
		if entries[i].ID != want[i] {
			t.Errorf("entry[%d].ID = %q, want %q", i, entries[i].ID, want[i])
		}
	}
}
