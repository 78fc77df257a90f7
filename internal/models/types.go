// VolumeVault - Scheduled Volume Backup Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/volumevault

// Package models defines the catalog entities shared by every VolumeVault
// component, together with their status and frequency enumerations and the
// sentinel errors used across package boundaries.
//
// Entities carry both gorm tags (catalog persistence) and json tags (HTTP
// surface). Identifiers are UUID strings and timestamps are stored in UTC.
//
//	Volume ──< Schedule
//	   │
//	   ├──< BackupRecord
//	   │
//	   └──< ScheduleGroupMember >── ScheduleGroup ──< ScheduleGroupRun
package models

import (
	"time"
)

// BackupStatus represents the lifecycle state of a backup or group run.
type BackupStatus string

const (
	// StatusPending indicates the work is queued but not started
	StatusPending BackupStatus = "pending"

	// StatusInProgress indicates the work is currently running
	StatusInProgress BackupStatus = "in_progress"

	// StatusCompleted indicates the work finished successfully
	StatusCompleted BackupStatus = "completed"

	// StatusFailed indicates the work failed
	StatusFailed BackupStatus = "failed"
)

// Terminal reports whether the status is completed or failed.
// Terminal records are never reopened.
func (s BackupStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Frequency is the recurrence period of a Schedule or ScheduleGroup.
type Frequency string

const (
	FrequencyHourly  Frequency = "hourly"
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

// Valid reports whether f is one of the known frequencies.
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyHourly, FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
		return true
	}
	return false
}

// Volume is a named source directory tracked for backup.
type Volume struct {
	// Unique identifier
	ID string `gorm:"type:text;primaryKey" json:"id"`

	// Operator-facing name, also used as the archive file name prefix
	Name string `gorm:"type:text;not null;uniqueIndex" json:"name"`

	// Absolute path of the source directory
	Path string `gorm:"type:text;not null" json:"path"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BackupRecord is one archival attempt and its outcome.
type BackupRecord struct {
	// Unique identifier
	ID string `gorm:"type:text;primaryKey" json:"id"`

	// Volume the archive was taken from
	VolumeID string `gorm:"type:text;not null;index" json:"volume_id"`

	// Absolute path of the archive file in the storage root
	ArchivePath string `gorm:"type:text;not null;index" json:"archive_path"`

	// Size of the finished archive in bytes (0 until completed)
	SizeBytes int64 `gorm:"not null;default:0" json:"size_bytes"`

	// Lifecycle state; terminal states are final
	Status BackupStatus `gorm:"type:text;not null;index" json:"status"`

	// Diagnostic text for failed backups
	ErrorMessage string `gorm:"type:text" json:"error_message,omitempty"`

	// When archival started
	StartedAt time.Time `gorm:"not null" json:"started_at"`

	// When the record reached a terminal status
	CompletedAt *time.Time `gorm:"index" json:"completed_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Schedule is a per-volume recurrence definition.
type Schedule struct {
	ID        string    `gorm:"type:text;primaryKey" json:"id"`
	VolumeID  string    `gorm:"type:text;not null;index" json:"volume_id"`
	Frequency Frequency `gorm:"type:text;not null" json:"frequency"`

	// Time of day in HH:MM (24h clock) in the scheduler's time zone
	TimeOfDay string `gorm:"type:text;not null" json:"time_of_day"`

	Enabled bool `gorm:"not null;index" json:"enabled"`

	// Set by the scheduler at dispatch time
	LastRun *time.Time `json:"last_run,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ScheduleGroup is a named, ordered set of volumes sharing one recurrence definition.
type ScheduleGroup struct {
	ID          string    `gorm:"type:text;primaryKey" json:"id"`
	Name        string    `gorm:"type:text;not null;uniqueIndex" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	Frequency   Frequency `gorm:"type:text;not null" json:"frequency"`
	TimeOfDay   string    `gorm:"type:text;not null" json:"time_of_day"`
	Enabled     bool      `gorm:"not null;index" json:"enabled"`

	// Set by the scheduler at dispatch time and by a fully successful run
	LastRun *time.Time `json:"last_run,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ScheduleGroupMember places a volume at a position in a group.
// (GroupID, ExecutionOrder) is unique.
type ScheduleGroupMember struct {
	ID             string `gorm:"type:text;primaryKey" json:"id"`
	GroupID        string `gorm:"type:text;not null;uniqueIndex:idx_group_order" json:"group_id"`
	VolumeID       string `gorm:"type:text;not null;index" json:"volume_id"`
	ExecutionOrder int    `gorm:"not null;uniqueIndex:idx_group_order" json:"execution_order"`
}

// ScheduleGroupRun is one execution of a ScheduleGroup.
type ScheduleGroupRun struct {
	ID      string       `gorm:"type:text;primaryKey" json:"id"`
	GroupID string       `gorm:"type:text;not null;index" json:"group_id"`
	Status  BackupStatus `gorm:"type:text;not null;index" json:"status"`

	// 1-based position of the member currently (or last) being archived
	CurrentVolumeIndex int `gorm:"not null;default:0" json:"current_volume_index"`

	// Member count at the start of the run
	TotalVolumes int `gorm:"not null;default:0" json:"total_volumes"`

	StartedAt    time.Time  `gorm:"not null;index" json:"started_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	ErrorMessage string     `gorm:"type:text" json:"error_message,omitempty"`
}
