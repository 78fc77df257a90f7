// VolumeVault - Scheduled Volume Backup Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/volumevault

package api

import (
	"net/http"

	"github.com/tomtom215/volumevault/internal/trigger"
)

// TriggerRequest is the body of POST /api/v1/backups/trigger.
type TriggerRequest struct {
	VolumeID string `json:"volume_id"`
}

// ListBackups handles GET /api/v1/backups?volume_id=
func (h *Handler) ListBackups(w http.ResponseWriter, r *http.Request) {
	backups, err := h.svc.ListBackups(r.Context(), r.URL.Query().Get("volume_id"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondList(w, backups)
}

// TriggerBackup handles POST /api/v1/backups/trigger. It responds as soon
// as the in_progress record exists; archival runs in the background.
func (h *Handler) TriggerBackup(w http.ResponseWriter, r *http.Request) {
	var req TriggerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.VolumeID == "" {
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "volume_id is required", nil, nil)
		return
	}
	rec, err := h.svc.StartBackup(r.Context(), req.VolumeID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondData(w, http.StatusAccepted, rec)
}

// GetBackup handles GET /api/v1/backups/{id}
func (h *Handler) GetBackup(w http.ResponseWriter, r *http.Request) {
	rec, err := h.svc.GetBackup(r.Context(), pathID(r))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, rec)
}

// DeleteBackup handles DELETE /api/v1/backups/{id}
func (h *Handler) DeleteBackup(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteBackup(r.Context(), pathID(r)); err != nil {
		respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// BackupContents handles GET /api/v1/backups/{id}/contents
func (h *Handler) BackupContents(w http.ResponseWriter, r *http.Request) {
	entries, err := h.svc.BackupContents(r.Context(), pathID(r))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondList(w, entries)
}

// RestoreBackup handles POST /api/v1/backups/{id}/restore. Preconditions
// are checked before responding; extraction runs in the background. An
// empty body restores everything to the original location.
func (h *Handler) RestoreBackup(w http.ResponseWriter, r *http.Request) {
	var in trigger.RestoreInput
	if r.ContentLength != 0 {
		if !decodeJSON(w, r, &in) {
			return
		}
	}
	plan, err := h.svc.RestoreBackup(r.Context(), pathID(r), in)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondData(w, http.StatusAccepted, plan)
}
