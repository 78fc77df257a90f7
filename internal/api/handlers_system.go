// VolumeVault - Scheduled Volume Backup Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/volumevault

package api

import (
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/tomtom215/volumevault/internal/audit"
	"github.com/tomtom215/volumevault/internal/models"
)

const maxAuditLimit = 1000

// healthStatus collects the current component state.
func (h *Handler) healthStatus(r *http.Request) models.HealthStatus {
	status := models.HealthStatus{
		Status:           "healthy",
		Version:          h.version,
		CatalogConnected: h.catalog.Health(r.Context()) == nil,
		StorageReady:     h.storageReady(),
		Uptime:           time.Since(h.startTime).Seconds(),
	}
	if h.scheduler != nil {
		status.SchedulerRunning = h.scheduler.IsRunning()
	}
	if h.retention != nil {
		status.RetentionEnabled = h.retention.Enabled()
	}
	if h.tasks != nil {
		status.TasksInFlight = h.tasks.InFlight()
	}
	if !status.CatalogConnected || !status.StorageReady {
		status.Status = "degraded"
	}
	return status
}

// storageReady reports whether the storage root exists and is a directory.
// An unset root is not ready.
func (h *Handler) storageReady() bool {
	if h.storageRoot == "" {
		return false
	}
	info, err := os.Stat(h.storageRoot)
	return err == nil && info.IsDir()
}

// Health handles GET /api/v1/health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondData(w, http.StatusOK, h.healthStatus(r))
}

// HealthLive handles GET /api/v1/health/live. It only proves the process
// is serving requests.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondData(w, http.StatusOK, map[string]interface{}{
		"alive":  true,
		"uptime": time.Since(h.startTime).Seconds(),
	})
}

// HealthReady handles GET /api/v1/health/ready
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	status := h.healthStatus(r)
	if status.Status != "healthy" {
		respondJSON(w, http.StatusServiceUnavailable, &models.APIResponse{
			Status:   "error",
			Data:     status,
			Metadata: models.Metadata{Timestamp: time.Now().UTC()},
			Error:    &models.APIError{Code: "NOT_READY", Message: "Service is not ready"},
		})
		return
	}
	respondData(w, http.StatusOK, status)
}

// parseAuditFilter builds a query filter from query parameters. category
// and level accept comma-separated lists; start and end are RFC 3339.
func parseAuditFilter(r *http.Request) (audit.QueryFilter, string) {
	q := r.URL.Query()
	filter := audit.DefaultQueryFilter()

	for _, raw := range splitList(q.Get("category")) {
		c, ok := audit.ParseCategory(raw)
		if !ok {
			return filter, "unknown category: " + raw
		}
		filter.Categories = append(filter.Categories, c)
	}
	for _, raw := range splitList(q.Get("level")) {
		l, ok := audit.ParseLevel(raw)
		if !ok {
			return filter, "unknown level: " + raw
		}
		filter.Levels = append(filter.Levels, l)
	}

	filter.VolumeID = q.Get("volume_id")
	filter.BackupID = q.Get("backup_id")
	filter.CorrelationID = q.Get("correlation_id")
	filter.SearchText = q.Get("search")

	for name, dst := range map[string]**time.Time{"start": &filter.StartTime, "end": &filter.EndTime} {
		raw := q.Get(name)
		if raw == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, name + " must be an RFC 3339 timestamp"
		}
		*dst = &t
	}

	limit, err := queryInt(r, "limit", filter.Limit, maxAuditLimit)
	if err != nil {
		return filter, err.Error()
	}
	offset, err := queryInt(r, "offset", 0, 0)
	if err != nil {
		return filter, err.Error()
	}
	filter.Limit = limit
	filter.Offset = offset
	return filter, ""
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// ListAudit handles GET /api/v1/audit. X-Total-Count carries the number of
// matching entries before pagination.
func (h *Handler) ListAudit(w http.ResponseWriter, r *http.Request) {
	if h.audit == nil {
		respondError(w, r, http.StatusServiceUnavailable, ErrCodeConfiguration, "Audit log is disabled", nil, nil)
		return
	}
	filter, msg := parseAuditFilter(r)
	if msg != "" {
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, msg, nil, nil)
		return
	}

	entries, err := h.audit.Query(r.Context(), filter)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	total, err := h.audit.Count(r.Context(), filter)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	w.Header().Set("X-Total-Count", strconv.FormatInt(total, 10))
	respondList(w, entries)
}

// AuditStats handles GET /api/v1/audit/stats
func (h *Handler) AuditStats(w http.ResponseWriter, r *http.Request) {
	if h.audit == nil {
		respondError(w, r, http.StatusServiceUnavailable, ErrCodeConfiguration, "Audit log is disabled", nil, nil)
		return
	}
	stats, err := h.audit.Stats(r.Context())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, stats)
}

// ClearAudit handles DELETE /api/v1/audit. Without older_than (RFC 3339)
// every entry is removed.
func (h *Handler) ClearAudit(w http.ResponseWriter, r *http.Request) {
	if h.audit == nil {
		respondError(w, r, http.StatusServiceUnavailable, ErrCodeConfiguration, "Audit log is disabled", nil, nil)
		return
	}

	var cutoff *time.Time
	if raw := r.URL.Query().Get("older_than"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "older_than must be an RFC 3339 timestamp", nil, nil)
			return
		}
		cutoff = &t
	}

	deleted, err := h.audit.Clear(r.Context(), cutoff)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, map[string]int64{"deleted": deleted})
}

// SchedulerCheck handles POST /api/v1/scheduler/check. It runs one
// evaluation pass synchronously and returns its summary.
func (h *Handler) SchedulerCheck(w http.ResponseWriter, r *http.Request) {
	if h.scheduler == nil {
		respondError(w, r, http.StatusServiceUnavailable, ErrCodeConfiguration, "Scheduler is disabled", nil, nil)
		return
	}
	respondData(w, http.StatusOK, h.scheduler.CheckNow(r.Context()))
}

// RetentionPreview handles GET /api/v1/retention/preview
func (h *Handler) RetentionPreview(w http.ResponseWriter, r *http.Request) {
	if h.retention == nil {
		respondList(w, []struct{}{})
		return
	}
	candidates, err := h.retention.Preview(r.Context())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondList(w, candidates)
}
