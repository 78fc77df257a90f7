// VolumeVault - Scheduled Volume Backup Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/volumevault

package api

import (
	"net/http"

	"github.com/tomtom215/volumevault/internal/trigger"
)

// ListVolumes handles GET /api/v1/volumes
func (h *Handler) ListVolumes(w http.ResponseWriter, r *http.Request) {
	vols, err := h.svc.ListVolumes(r.Context())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondList(w, vols)
}

// CreateVolume handles POST /api/v1/volumes
func (h *Handler) CreateVolume(w http.ResponseWriter, r *http.Request) {
	var in trigger.VolumeInput
	if !decodeJSON(w, r, &in) {
		return
	}
	vol, err := h.svc.CreateVolume(r.Context(), in)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondData(w, http.StatusCreated, vol)
}

// GetVolume handles GET /api/v1/volumes/{id}
func (h *Handler) GetVolume(w http.ResponseWriter, r *http.Request) {
	vol, err := h.svc.GetVolume(r.Context(), pathID(r))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, vol)
}

// UpdateVolume handles PUT /api/v1/volumes/{id}
func (h *Handler) UpdateVolume(w http.ResponseWriter, r *http.Request) {
	var in trigger.VolumeInput
	if !decodeJSON(w, r, &in) {
		return
	}
	vol, err := h.svc.UpdateVolume(r.Context(), pathID(r), in)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, vol)
}

// DeleteVolume handles DELETE /api/v1/volumes/{id}. Schedules and group
// memberships go with the volume; its backups are kept.
func (h *Handler) DeleteVolume(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteVolume(r.Context(), pathID(r)); err != nil {
		respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListVolumeSchedules handles GET /api/v1/volumes/{id}/schedules
func (h *Handler) ListVolumeSchedules(w http.ResponseWriter, r *http.Request) {
	schedules, err := h.svc.ListSchedules(r.Context(), pathID(r))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondList(w, schedules)
}

// BrowseVolume handles GET /api/v1/volumes/{id}/browse?path=sub/dir. It
// lists the live source directory, not a backup.
func (h *Handler) BrowseVolume(w http.ResponseWriter, r *http.Request) {
	listing, err := h.svc.BrowseVolume(r.Context(), pathID(r), r.URL.Query().Get("path"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, listing)
}
