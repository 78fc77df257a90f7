// VolumeVault - Scheduled Volume Backup Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/volumevault

package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/volumevault/internal/logging"
	"github.com/tomtom215/volumevault/internal/models"
	"github.com/tomtom215/volumevault/internal/tasks"
	"github.com/tomtom215/volumevault/internal/validation"
)

// Error codes for API responses
const (
	ErrCodeBadRequest         = "BAD_REQUEST"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodePrecondition       = "PRECONDITION_FAILED"
	ErrCodeAlreadyRunning     = "ALREADY_RUNNING"
	ErrCodeConfiguration      = "CONFIGURATION_ERROR"
	ErrCodeStorageUnavailable = "STORAGE_UNAVAILABLE"
	ErrCodeShuttingDown       = "SHUTTING_DOWN"
	ErrCodeInternalError      = "INTERNAL_ERROR"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// sanitizeLogValue removes control characters from strings to prevent log injection attacks.
func sanitizeLogValue(s string) string {
	var result strings.Builder
	result.Grow(len(s))
	for _, r := range s {
		if r < 0x20 || r == 0x7F {
			fmt.Fprintf(&result, "\\x%02x", r)
		} else {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// respondJSON sends a JSON response with proper headers
func respondJSON(w http.ResponseWriter, status int, response *models.APIResponse) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")

	data, err := json.Marshal(response)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Error().Err(err).Msg("Failed to write JSON response")
	}
}

// respondData sends a success envelope around data.
func respondData(w http.ResponseWriter, status int, data interface{}) {
	respondJSON(w, status, &models.APIResponse{
		Status:   "success",
		Data:     data,
		Metadata: models.Metadata{Timestamp: time.Now().UTC()},
	})
}

// respondList sends a success envelope with the item count in metadata.
func respondList[T any](w http.ResponseWriter, items []T) {
	if items == nil {
		items = []T{}
	}
	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status:   "success",
		Data:     items,
		Metadata: models.Metadata{Timestamp: time.Now().UTC(), Count: len(items)},
	})
}

// respondError sends an error response. err, when set, is logged and never
// returned to the client.
func respondError(w http.ResponseWriter, r *http.Request, status int, code, message string, details map[string]interface{}, err error) {
	if err != nil {
		event := logging.Ctx(r.Context()).Warn()
		if status >= http.StatusInternalServerError {
			event = logging.Ctx(r.Context()).Error()
		}
		event.Str("code", code).
			Str("method", r.Method).
			Str("path", sanitizeLogValue(r.URL.Path)).
			Str("error", sanitizeLogValue(err.Error())).
			Msg("API error")
	}

	respondJSON(w, status, &models.APIResponse{
		Status:   "error",
		Metadata: models.Metadata{Timestamp: time.Now().UTC()},
		Error:    &models.APIError{Code: code, Message: message, Details: details},
	})
}

// respondServiceError maps a domain error onto its HTTP status. Validation
// failures keep their field details; unmapped errors become a generic 500.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *validation.RequestValidationError
	switch {
	case errors.As(err, &verr):
		apiErr := verr.ToAPIError()
		respondError(w, r, http.StatusBadRequest, apiErr.Code, apiErr.Message, apiErr.Details, nil)
	case errors.Is(err, models.ErrInvalidInput):
		respondError(w, r, http.StatusBadRequest, validation.Code, err.Error(), nil, nil)
	case errors.Is(err, models.ErrNotFound):
		respondError(w, r, http.StatusNotFound, ErrCodeNotFound, err.Error(), nil, nil)
	case errors.Is(err, models.ErrPrecondition):
		respondError(w, r, http.StatusConflict, ErrCodePrecondition, err.Error(), nil, nil)
	case errors.Is(err, models.ErrAlreadyRunning):
		respondError(w, r, http.StatusConflict, ErrCodeAlreadyRunning, err.Error(), nil, err)
	case errors.Is(err, models.ErrConfiguration):
		respondError(w, r, http.StatusInternalServerError, ErrCodeConfiguration, err.Error(), nil, err)
	case errors.Is(err, models.ErrStorageUnavailable):
		respondError(w, r, http.StatusServiceUnavailable, ErrCodeStorageUnavailable, "Backup storage is unavailable", nil, err)
	case errors.Is(err, tasks.ErrClosed):
		respondError(w, r, http.StatusServiceUnavailable, ErrCodeShuttingDown, "Server is shutting down", nil, err)
	default:
		respondError(w, r, http.StatusInternalServerError, ErrCodeInternalError, "Internal server error", nil, err)
	}
}

// decodeJSON reads a single JSON object from the request body. Unknown
// fields are rejected.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		msg := "Invalid JSON body"
		if errors.Is(err, io.EOF) {
			msg = "Request body is required"
		}
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, msg, nil, err)
		return false
	}
	return true
}
