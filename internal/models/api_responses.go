// VolumeVault - Scheduled Volume Backup Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/volumevault

package models

import "time"

// APIResponse is the envelope returned by every HTTP endpoint.
//
// Status is "success" or "error"; Error is populated only for errors.
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata contains response metadata.
type Metadata struct {
	Timestamp time.Time `json:"timestamp"`
	Count     int       `json:"count,omitempty"`
}

// APIError is a machine-readable error code with a human-readable message.
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// HealthStatus is returned by the health endpoints.
type HealthStatus struct {
	Status           string  `json:"status"`
	Version          string  `json:"version"`
	CatalogConnected bool    `json:"catalog_connected"`
	StorageReady     bool    `json:"storage_ready"`
	SchedulerRunning bool    `json:"scheduler_running"`
	RetentionEnabled bool    `json:"retention_enabled"`
	TasksInFlight    int     `json:"tasks_in_flight"`
	Uptime           float64 `json:"uptime_seconds"`
}
