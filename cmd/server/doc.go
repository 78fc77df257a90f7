// VolumeVault - Scheduled Volume Backup Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/volumevault

/*
Package main is the entry point for the VolumeVault server.

VolumeVault archives registered directories ("volumes") into compressed tar
archives on a schedule, keeps a catalog of every backup in SQLite, and
restores archives in place, to a new location, or selectively.

# Application Architecture

The server implements a layered architecture with Suture v4 process supervision:

	RootSupervisor ("volumevault")
	├── CoreSupervisor ("core-layer")
	│   ├── Audit cleanup
	│   └── Notification bus (watermill gochannel)
	├── MaintenanceSupervisor ("maintenance-layer")
	│   ├── Orphan reconciler (fsnotify watch + periodic sweep)
	│   └── Retention sweeper
	├── SchedulingSupervisor ("scheduling-layer")
	│   └── Backup scheduler
	└── APISupervisor ("api-layer")
	    └── HTTP Server (chi)

Startup order:

 1. Configuration: Koanf v2 with defaults, YAML file and environment
 2. Logging: zerolog, optionally rotated to a file with lumberjack
 3. Instance lock: flock next to the catalog
 4. Catalog: SQLite through gorm, migrated on start
 5. Audit logger, notification bus, background task registry
 6. Backup executor, group runner and trigger service
 7. Stale run recovery: runs left in progress by a previous process fail
 8. Supervisor tree with every long-running service

# Configuration

	PORT=3000                         # HTTP port
	BACKUP_STORAGE_PATH=/backups      # archive destination
	DATABASE_PATH=/data/volumevault.db
	RETENTION_DAYS=0                  # 0 keeps every backup
	API_TOKEN=...                     # operator bearer token (required)
	INTERNAL_SCHEDULER_TOKEN=...      # scheduler token for trigger endpoints
	SCHEDULER_TIMEZONE=Local

See package config for the full list.

# Signal Handling

SIGINT and SIGTERM stop the supervisor tree (HTTP server first drains its
requests), then the task registry waits up to TASKS_DRAIN_TIMEOUT for running
backups and restores before the catalog is closed.
*/
package main
