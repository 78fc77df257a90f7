// VolumeVault - Scheduled Volume Backup Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/volumevault

/*
Package services provides suture.Service wrappers for components whose
lifecycle is not already a Serve(ctx) method.

HTTP Server (HTTPServerService):
  - Wraps *http.Server with graceful shutdown
  - Converts the blocking ListenAndServe pattern to Serve
  - http.ErrServerClosed is a clean stop

Backup Scheduler (SchedulerService):
  - Adapts scheduler.Scheduler's Start/Stop lifecycle
  - Stop waits for an in-progress evaluation pass

The reconciler, retention sweeper, audit logger and notification bus
implement suture.Service themselves and are added to the tree directly.
*/
package services
