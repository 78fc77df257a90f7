// VolumeVault - Scheduled Volume Backup Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/volumevault

// Package validation provides struct validation using go-playground/validator v10.
//
// The package wraps a thread-safe singleton validator with the custom tags
// VolumeVault inputs need and translates failures into the HTTP error
// envelope. Field names in messages are the JSON names of the fields.
//
// # Quick Start
//
//	type ScheduleInput struct {
//	    VolumeID  string           `json:"volume_id" validate:"required"`
//	    Frequency models.Frequency `json:"frequency" validate:"required,frequency"`
//	    TimeOfDay string           `json:"time_of_day" validate:"required,timeofday"`
//	}
//
//	if verr := validation.ValidateStruct(&in); verr != nil {
//	    apiErr := verr.ToAPIError()
//	    respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, apiErr.Details)
//	    return
//	}
//
// Callers that pass errors along use Validate, whose result matches
// models.ErrInvalidInput under errors.Is.
//
// # Custom Tags
//
//   - timeofday: "HH:MM" or "HH:MM:SS" on a 24h clock
//   - frequency: hourly, daily, weekly or monthly
//   - abspath: a non-empty absolute file system path
//   - volumename: a name usable as an archive file name prefix (no path
//     separators, not "." or "..")
//
// # API Error Integration
//
//	// Single field error
//	{
//	    "code": "VALIDATION_ERROR",
//	    "message": "time_of_day must be a time of day in HH:MM or HH:MM:SS format",
//	    "details": {"field": "time_of_day", "tag": "timeofday", "value": "25:00"}
//	}
//
//	// Multiple field errors
//	{
//	    "code": "VALIDATION_ERROR",
//	    "message": "name: name is required; path: path must be an absolute path",
//	    "details": {"fields": [{"field": "name", ...}, {"field": "path", ...}]}
//	}
package validation
