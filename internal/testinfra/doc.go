// VolumeVault - Scheduled Volume Backup Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/volumevault

// Package testinfra provides shared test infrastructure: a migrated
// temp-file catalog, volume fixtures on disk, and recording collaborators
// for the notifier and audit trail.
//
//	func TestGroupRun(t *testing.T) {
//	    store := testinfra.NewCatalog(t)
//	    vol := testinfra.CreateVolume(t, store, t.TempDir(), "media", map[string]string{
//	        "a.txt": "alpha",
//	    })
//	    notifier := testinfra.NewRecordingNotifier()
//	    ...
//	    evt := notifier.WaitFor(t, notify.EventGroupCompleted)
//	}
//
// Only test files import this package.
package testinfra
