// VolumeVault - Scheduled Volume Backup Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/volumevault

package api

import (
	"net/http"

	"github.com/tomtom215/volumevault/internal/trigger"
)

// ListSchedules handles GET /api/v1/schedules?volume_id=
func (h *Handler) ListSchedules(w http.ResponseWriter, r *http.Request) {
	schedules, err := h.svc.ListSchedules(r.Context(), r.URL.Query().Get("volume_id"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondList(w, schedules)
}

// CreateSchedule handles POST /api/v1/schedules
func (h *Handler) CreateSchedule(w http.ResponseWriter, r *http.Request) {
	var in trigger.ScheduleInput
	if !decodeJSON(w, r, &in) {
		return
	}
	sch, err := h.svc.CreateSchedule(r.Context(), in)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondData(w, http.StatusCreated, sch)
}

// GetSchedule handles GET /api/v1/schedules/{id}
func (h *Handler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	sch, err := h.svc.GetSchedule(r.Context(), pathID(r))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, sch)
}

// UpdateSchedule handles PUT /api/v1/schedules/{id}
func (h *Handler) UpdateSchedule(w http.ResponseWriter, r *http.Request) {
	var in trigger.ScheduleUpdate
	if !decodeJSON(w, r, &in) {
		return
	}
	sch, err := h.svc.UpdateSchedule(r.Context(), pathID(r), in)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, sch)
}

// DeleteSchedule handles DELETE /api/v1/schedules/{id}
func (h *Handler) DeleteSchedule(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteSchedule(r.Context(), pathID(r)); err != nil {
		respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
