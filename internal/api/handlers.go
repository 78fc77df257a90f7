// VolumeVault - Scheduled Volume Backup Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/volumevault

package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/volumevault/internal/audit"
	"github.com/tomtom215/volumevault/internal/models"
	"github.com/tomtom215/volumevault/internal/retention"
	"github.com/tomtom215/volumevault/internal/scheduler"
	"github.com/tomtom215/volumevault/internal/trigger"
)

// SchedulerChecker runs an on-demand evaluation pass.
type SchedulerChecker interface {
	CheckNow(ctx context.Context) scheduler.CheckResult
	IsRunning() bool
}

// RetentionPreviewer lists the backups the next retention sweep would delete.
type RetentionPreviewer interface {
	Preview(ctx context.Context) ([]retention.Candidate, error)
	Enabled() bool
}

// AuditReader queries the activity log and clears it on operator request.
type AuditReader interface {
	Query(ctx context.Context, filter audit.QueryFilter) ([]models.AuditEntry, error)
	Count(ctx context.Context, filter audit.QueryFilter) (int64, error)
	Stats(ctx context.Context) (*audit.Stats, error)
	Clear(ctx context.Context, cutoff *time.Time) (int64, error)
}

// HealthChecker reports catalog connectivity.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// TaskCounter reports background work still running.
type TaskCounter interface {
	InFlight() int
}

// Deps are the collaborators of the HTTP handlers.
type Deps struct {
	Service   *trigger.Service
	Scheduler SchedulerChecker
	Retention RetentionPreviewer
	Audit     AuditReader
	Catalog   HealthChecker
	Tasks     TaskCounter

	// StorageRoot is probed by the readiness check
	StorageRoot string
	Version     string
}

// Handler serves the VolumeVault REST API.
type Handler struct {
	svc         *trigger.Service
	scheduler   SchedulerChecker
	retention   RetentionPreviewer
	audit       AuditReader
	catalog     HealthChecker
	tasks       TaskCounter
	storageRoot string
	version     string
	startTime   time.Time
}

// NewHandler creates the API handler.
func NewHandler(deps Deps) (*Handler, error) {
	if deps.Service == nil {
		return nil, errors.New("api: trigger service is required")
	}
	if deps.Catalog == nil {
		return nil, errors.New("api: catalog health checker is required")
	}
	if deps.Version == "" {
		deps.Version = "dev"
	}
	return &Handler{
		svc:         deps.Service,
		scheduler:   deps.Scheduler,
		retention:   deps.Retention,
		audit:       deps.Audit,
		catalog:     deps.Catalog,
		tasks:       deps.Tasks,
		storageRoot: deps.StorageRoot,
		version:     deps.Version,
		startTime:   time.Now(),
	}, nil
}

// pathID returns the {id} URL parameter.
func pathID(r *http.Request) string {
	return chi.URLParam(r, "id")
}

// queryInt parses an optional non-negative integer query parameter.
func queryInt(r *http.Request, name string, fallback, maxValue int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, errors.New(name + " must be a non-negative integer")
	}
	if maxValue > 0 && v > maxValue {
		v = maxValue
	}
	return v, nil
}
