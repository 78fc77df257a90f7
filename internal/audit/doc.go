// VolumeVault - Scheduled Volume Backup Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/volumevault

// Package audit records the operational audit trail of VolumeVault.
//
// Backups, restores, schedule dispatches, group runs, retention sweeps and
// orphan reconciliation each write entries with a level (debug, info,
// success, warning, error), a category, a message and structured details.
//
// # Architecture
//
// The audit system uses a producer-consumer pattern:
//
//	Logger.Log() -> Entry Buffer (chan) -> Async Writer -> Store
//	                     |                      |
//	                 Non-blocking           Background goroutine
//
// Log never blocks the caller. When the buffer is full the entry is dropped,
// counted in volumevault_audit_events_dropped_total and a warning is logged.
// Close flushes whatever is buffered.
//
// # Stores
//
//   - GormStore: the catalog's audit_entries table (production)
//   - MemoryStore: bounded in-memory store for tests and development
//
// # Retention
//
// Logger.Serve runs as a supervised service and deletes entries older than
// Config.RetentionDays every Config.CleanupInterval.
//
// # Usage
//
//	store := audit.NewGormStore(catalog.DB())
//	logger := audit.NewLogger(store, audit.DefaultConfig())
//	defer logger.Close()
//
//	logger.Log(ctx, &models.AuditEntry{
//		Level:    models.AuditError,
//		Category: models.CategoryBackup,
//		Message:  "Backup failed",
//		VolumeID: volumeID,
//		Details:  models.AuditDetails{"error": err.Error()},
//	})
package audit
