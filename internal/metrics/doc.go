// VolumeVault - Scheduled Volume Backup Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/volumevault

/*
Package metrics provides Prometheus instrumentation for VolumeVault.

Collectors are registered on the default registry through promauto and are
recorded through the Record and Track helpers so call sites stay one line.

# Metrics Endpoint

Metrics are exposed at /metrics in Prometheus text format:

	curl http://localhost:3000/metrics

# Available Metrics

Backups:
  - volumevault_backups_total{status}
  - volumevault_backup_duration_seconds
  - volumevault_backup_bytes_total
  - volumevault_backup_last_success_timestamp_seconds{volume}
  - volumevault_backups_in_progress
  - volumevault_archive_warnings_total{kind}

Restores and group runs:
  - volumevault_restores_total{mode,result}
  - volumevault_group_runs_total{status}

Scheduler and maintenance:
  - volumevault_scheduler_checks_total
  - volumevault_scheduler_dispatches_total{kind,result}
  - volumevault_retention_deleted_total / _failed_total
  - volumevault_orphans_removed_total{source}
  - volumevault_stale_resolved_total{kind}

Background work and delivery:
  - volumevault_tasks_in_flight
  - volumevault_events_total{type}
  - volumevault_notifications_total{event,sink,result}
  - volumevault_circuit_breaker_state{name}

HTTP:
  - volumevault_api_requests_total{method,endpoint,status_code}
  - volumevault_api_request_duration_seconds{method,endpoint}
  - volumevault_api_active_requests
*/
package metrics
