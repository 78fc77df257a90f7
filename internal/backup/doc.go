// VolumeVault - Scheduled Volume Backup Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/volumevault

// Package backup implements the backup executor: it archives volumes into
// the storage root, settles their catalog records, restores archives in full
// or selectively, lists archive contents and deletes backups.
//
// # Usage
//
//	exec, err := backup.NewExecutor(backup.Config{StorageRoot: "/backups"}, backup.Deps{
//		Catalog:  store,
//		Tasks:    registry,
//		Notifier: bus,
//		Audit:    auditLogger,
//	})
//
//	rec, err := exec.Trigger(ctx, volumeID) // returns the in_progress record
//	rec, err := exec.Run(ctx, volumeID)     // returns the terminal record
//
//	plan, err := exec.StartRestore(ctx, backupID, backup.RestoreOptions{
//		Mode:  backup.RestoreSelective,
//		Paths: []string{"photos/2025"},
//	})
//
// # Errors
//
//   - models.ErrNotFound: unknown volume or backup, or the archive file is gone
//   - models.ErrConfiguration: storage root unset or not creatable
//   - models.ErrPrecondition: restore or listing of a backup that is not completed
//   - models.ErrInvalidInput: malformed restore options
//   - *archive.Error: the archival or extraction itself failed
package backup
