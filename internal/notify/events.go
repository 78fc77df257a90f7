// VolumeVault - Scheduled Volume Backup Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/volumevault

package notify

import (
	"time"

	"github.com/goccy/go-json"
)

// EventType identifies a notification.
type EventType string

const (
	EventBackupFailed     EventType = "backup.failed"
	EventRestoreCompleted EventType = "restore.completed"
	EventGroupCompleted   EventType = "group.completed"
)

// Event is the envelope published on the bus and delivered to sinks.
type Event struct {
	ID            string          `json:"id"`
	Type          EventType       `json:"type"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// BackupFailedPayload is the payload of backup.failed.
type BackupFailedPayload struct {
	BackupID    string    `json:"backup_id"`
	VolumeID    string    `json:"volume_id"`
	VolumeName  string    `json:"volume_name"`
	ArchivePath string    `json:"archive_path"`
	Error       string    `json:"error"`
	StartedAt   time.Time `json:"started_at"`
	FailedAt    time.Time `json:"failed_at"`
}

// RestoreCompletedPayload is the payload of restore.completed.
type RestoreCompletedPayload struct {
	BackupID    string   `json:"backup_id"`
	VolumeID    string   `json:"volume_id"`
	VolumeName  string   `json:"volume_name"`
	Mode        string   `json:"mode"`
	Destination string   `json:"destination"`
	Paths       []string `json:"paths,omitempty"`
	Files       int      `json:"files"`
	Bytes       int64    `json:"bytes"`
	Duration    string   `json:"duration"`
}

// MemberOutcome is one volume's result inside a group.completed summary.
type MemberOutcome struct {
	VolumeID   string `json:"volume_id"`
	VolumeName string `json:"volume_name"`
	Order      int    `json:"execution_order"`
	Status     string `json:"status"` // completed, failed, skipped
	BackupID   string `json:"backup_id,omitempty"`
	SizeBytes  int64  `json:"size_bytes,omitempty"`
	Error      string `json:"error,omitempty"`
}

// GroupCompletedPayload is the payload of group.completed. It is emitted
// for every finished run, successful or not.
type GroupCompletedPayload struct {
	GroupID         string          `json:"group_id"`
	GroupName       string          `json:"group_name"`
	RunID           string          `json:"run_id"`
	Status          string          `json:"status"`
	StartedAt       time.Time       `json:"started_at"`
	CompletedAt     time.Time       `json:"completed_at"`
	DurationSeconds float64         `json:"duration_seconds"`
	Members         []MemberOutcome `json:"members"`
	Error           string          `json:"error,omitempty"`
}
