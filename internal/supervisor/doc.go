// VolumeVault - Scheduled Volume Backup Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/volumevault

/*
Package supervisor provides process supervision for VolumeVault using suture v4.

Every long-running component runs under a hierarchical supervisor tree with
automatic restart, failure isolation and graceful shutdown.

# Overview

	RootSupervisor ("volumevault")
	├── CoreSupervisor ("core-layer")
	│   ├── audit.Logger (cleanup loop)
	│   └── notify.Bus (watermill router)
	├── MaintenanceSupervisor ("maintenance-layer")
	│   ├── reconcile.Reconciler (startup sweep, fsnotify watch, periodic sweep)
	│   └── retention.Sweeper
	├── SchedulingSupervisor ("scheduling-layer")
	│   └── SchedulerService (if scheduler.enabled)
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

Backups, group runs and restores are not supervised services. They are
one-shot tasks tracked by the tasks.Registry, which main drains after the
tree has stopped.

# Usage Example

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
	    FailureThreshold: cfg.Supervisor.FailureThreshold,
	    FailureBackoff:   cfg.Supervisor.FailureBackoff,
	    ShutdownTimeout:  cfg.Supervisor.ShutdownTimeout,
	})
	tree.AddCoreService(auditLogger)
	tree.AddMaintenanceService(reconciler)
	tree.AddSchedulingService(services.NewSchedulerService(sched))
	tree.AddAPIService(services.NewHTTPServerService(server, addr, 10*time.Second))

	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
	    logging.Error().Err(err).Msg("Supervisor stopped")
	}

# Configuration

Zero TreeConfig fields take suture's defaults:
  - FailureThreshold: 5 failures
  - FailureDecay: 30 seconds
  - FailureBackoff: 15 seconds
  - ShutdownTimeout: 10 seconds

# Service Interface

All services implement suture.Service:

	type Service interface {
	    Serve(ctx context.Context) error
	}

Returning an error restarts the service. Returning after context
cancellation is a normal stop.

# Debugging Shutdown Issues

	report, err := tree.UnstoppedServiceReport()
	for _, svc := range report {
	    logging.Warn().Interface("service", svc).Msg("Service did not stop")
	}
*/
package supervisor
