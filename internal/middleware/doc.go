// VolumeVault - Scheduled Volume Backup Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/volumevault

/*
Package middleware provides the HTTP middleware used by the VolumeVault API.

Key Components:

  - RequestID: X-Request-ID propagation plus a correlation ID in the context
  - PrometheusMetrics: request count, latency and in-flight gauge labeled by
    chi route pattern
  - Compression: gzip for clients that accept it
  - TokenAuth: static bearer token for operators and the internal scheduler
    token for trigger endpoints

Middleware Stack:

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.PrometheusMetrics)
	r.Use(middleware.Compression)

	auth := middleware.NewTokenAuth(cfg.Security.APIToken, cfg.Security.InternalToken)
	r.Group(func(r chi.Router) {
	    r.Use(auth.RequireOperator)
	    r.Get("/api/v1/volumes", h.ListVolumes)
	})
	r.With(auth.RequireTrigger).Post("/api/v1/backups/trigger", h.TriggerBackup)

Authentication:

Operators authenticate with "Authorization: Bearer <api token>". The
scheduler, when it dispatches over HTTP, sends X-Internal-Scheduler-Token.
That header is honored only by RequireTrigger. Tokens are compared in
constant time and an unset token never matches.

See Also:

  - internal/api: HTTP handlers wrapped by middleware
  - internal/metrics: Prometheus metrics definitions
*/
package middleware
