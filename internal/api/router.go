// VolumeVault - Scheduled Volume Backup Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/volumevault

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/volumevault/internal/middleware"
)

// Router binds the handler to URL routes behind token authentication.
type Router struct {
	handler *Handler
	auth    *middleware.TokenAuth
}

// NewRouter creates a new Router.
func NewRouter(handler *Handler, auth *middleware.TokenAuth) *Router {
	return &Router{handler: handler, auth: auth}
}

// Setup configures all HTTP routes.
func (router *Router) Setup() http.Handler {
	h := router.handler
	r := chi.NewRouter()

	// ========================
	// Global Middleware Stack
	// ========================
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.PrometheusMetrics)
	r.Use(middleware.Compression)

	r.Handle("/metrics", promhttp.Handler())

	// Trigger endpoints accept the operator token or the internal scheduler
	// token; everything else requires the operator token.
	trigger := router.auth.RequireTrigger
	operator := router.auth.RequireOperator

	r.Route("/api/v1", func(r chi.Router) {
		// Unauthenticated probes
		r.Route("/health", func(r chi.Router) {
			r.Get("/", h.Health)
			r.Get("/live", h.HealthLive)
			r.Get("/ready", h.HealthReady)
		})

		r.Route("/volumes", func(r chi.Router) {
			r.Use(operator)
			r.Get("/", h.ListVolumes)
			r.Post("/", h.CreateVolume)
			r.Get("/{id}", h.GetVolume)
			r.Put("/{id}", h.UpdateVolume)
			r.Delete("/{id}", h.DeleteVolume)
			r.Get("/{id}/schedules", h.ListVolumeSchedules)
			r.Get("/{id}/browse", h.BrowseVolume)
		})

		r.Route("/schedules", func(r chi.Router) {
			r.Use(operator)
			r.Get("/", h.ListSchedules)
			r.Post("/", h.CreateSchedule)
			r.Get("/{id}", h.GetSchedule)
			r.Put("/{id}", h.UpdateSchedule)
			r.Delete("/{id}", h.DeleteSchedule)
		})

		r.Route("/schedule-groups", func(r chi.Router) {
			r.With(trigger).Post("/{id}/run", h.RunGroup)

			r.Group(func(r chi.Router) {
				r.Use(operator)
				r.Get("/", h.ListGroups)
				r.Post("/", h.CreateGroup)
				r.Get("/runs/{id}", h.GetGroupRun)
				r.Get("/{id}", h.GetGroup)
				r.Put("/{id}", h.UpdateGroup)
				r.Delete("/{id}", h.DeleteGroup)
				r.Get("/{id}/members", h.ListMembers)
				r.Put("/{id}/members", h.SetMembers)
				r.Get("/{id}/runs", h.ListGroupRuns)
			})
		})

		r.Route("/backups", func(r chi.Router) {
			r.With(trigger).Post("/trigger", h.TriggerBackup)

			r.Group(func(r chi.Router) {
				r.Use(operator)
				r.Get("/", h.ListBackups)
				r.Get("/{id}", h.GetBackup)
				r.Delete("/{id}", h.DeleteBackup)
				r.Get("/{id}/contents", h.BackupContents)
				r.Post("/{id}/restore", h.RestoreBackup)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(operator)
			r.Get("/audit", h.ListAudit)
			r.Delete("/audit", h.ClearAudit)
			r.Get("/audit/stats", h.AuditStats)
			r.Post("/scheduler/check", h.SchedulerCheck)
			r.Get("/retention/preview", h.RetentionPreview)
		})
	})

	return r
}
