// VolumeVault - Scheduled Volume Backup Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/volumevault

/*
Package api provides the VolumeVault REST API.

Routes are served by chi under /api/v1 and every response uses the
models.APIResponse envelope:

	{"status":"success","data":{...},"metadata":{"timestamp":"...","count":3}}
	{"status":"error","data":null,"metadata":{...},"error":{"code":"NOT_FOUND","message":"..."}}

# Authentication

Operator endpoints require "Authorization: Bearer <api token>". The two
trigger endpoints also accept the internal scheduler token in
X-Internal-Scheduler-Token:

	POST /api/v1/backups/trigger          {"volume_id": "..."}
	POST /api/v1/schedule-groups/{id}/run

Health probes under /api/v1/health and /metrics are unauthenticated.

# Error Mapping

Domain errors map onto status codes in respondServiceError:

	models.ErrInvalidInput        400 VALIDATION_ERROR
	models.ErrNotFound            404 NOT_FOUND
	models.ErrPrecondition        409 PRECONDITION_FAILED
	models.ErrAlreadyRunning      409 ALREADY_RUNNING
	models.ErrConfiguration       500 CONFIGURATION_ERROR
	models.ErrStorageUnavailable  503 STORAGE_UNAVAILABLE
	tasks.ErrClosed               503 SHUTTING_DOWN

Anything else is a 500 INTERNAL_ERROR whose cause is logged, not returned.

# Internal Client

InternalClient implements scheduler.Dispatcher over HTTP so the scheduler
can run against the same trigger surface operators use. Error codes in the
response envelope are mapped back to the sentinel errors.
*/
package api
