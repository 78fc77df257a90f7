// VolumeVault - Scheduled Volume Backup Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/volumevault

package api

import (
	"net/http"

	"github.com/tomtom215/volumevault/internal/trigger"
)

const (
	defaultRunsLimit = 50
	maxRunsLimit     = 200
)

// ListGroups handles GET /api/v1/schedule-groups
func (h *Handler) ListGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := h.svc.ListGroups(r.Context())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondList(w, groups)
}

// CreateGroup handles POST /api/v1/schedule-groups
func (h *Handler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	var in trigger.GroupInput
	if !decodeJSON(w, r, &in) {
		return
	}
	g, err := h.svc.CreateGroup(r.Context(), in)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondData(w, http.StatusCreated, g)
}

// GetGroup handles GET /api/v1/schedule-groups/{id}
func (h *Handler) GetGroup(w http.ResponseWriter, r *http.Request) {
	g, err := h.svc.GetGroup(r.Context(), pathID(r))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, g)
}

// UpdateGroup handles PUT /api/v1/schedule-groups/{id}
func (h *Handler) UpdateGroup(w http.ResponseWriter, r *http.Request) {
	var in trigger.GroupInput
	if !decodeJSON(w, r, &in) {
		return
	}
	g, err := h.svc.UpdateGroup(r.Context(), pathID(r), in)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, g)
}

// DeleteGroup handles DELETE /api/v1/schedule-groups/{id}
func (h *Handler) DeleteGroup(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteGroup(r.Context(), pathID(r)); err != nil {
		respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListMembers handles GET /api/v1/schedule-groups/{id}/members
func (h *Handler) ListMembers(w http.ResponseWriter, r *http.Request) {
	members, err := h.svc.ListMembers(r.Context(), pathID(r))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondList(w, members)
}

// SetMembers handles PUT /api/v1/schedule-groups/{id}/members. The body
// lists volume IDs in execution order and replaces the current membership.
func (h *Handler) SetMembers(w http.ResponseWriter, r *http.Request) {
	var in trigger.MembersInput
	if !decodeJSON(w, r, &in) {
		return
	}
	members, err := h.svc.SetMembers(r.Context(), pathID(r), in)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondList(w, members)
}

// RunGroup handles POST /api/v1/schedule-groups/{id}/run. The run executes
// in the background; poll /runs for progress.
func (h *Handler) RunGroup(w http.ResponseWriter, r *http.Request) {
	run, err := h.svc.StartGroupRun(r.Context(), pathID(r))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondData(w, http.StatusAccepted, run)
}

// ListGroupRuns handles GET /api/v1/schedule-groups/{id}/runs?limit=
func (h *Handler) ListGroupRuns(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", defaultRunsLimit, maxRunsLimit)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, err.Error(), nil, nil)
		return
	}
	if _, err := h.svc.GetGroup(r.Context(), pathID(r)); err != nil {
		respondServiceError(w, r, err)
		return
	}
	runs, err := h.svc.ListRuns(r.Context(), pathID(r), limit)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondList(w, runs)
}

// GetGroupRun handles GET /api/v1/schedule-groups/runs/{id}
func (h *Handler) GetGroupRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.svc.GetRun(r.Context(), pathID(r))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, run)
}
