// VolumeVault - Scheduled Volume Backup Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/volumevault

// Package reconcile keeps the backup catalog consistent with the storage
// root.
//
// The Reconciler is one-directional: a catalog record whose archive file is
// missing is deleted, while an archive file with no record is left alone.
// Records of pending or in-progress backups are never touched, because their
// archive may not exist yet.
//
// Three triggers drive it:
//
//   - a full sweep at startup,
//   - fsnotify Remove/Rename events on the storage root,
//   - a periodic full sweep (60s by default), which also covers changes the
//     watch missed or a watch that could not be established.
//
// ResolveStaleRuns handles the reverse staleness: work recorded as in
// progress by a process that no longer exists. It runs once at startup
// under the single-instance lock.
package reconcile
