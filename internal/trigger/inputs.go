// VolumeVault - Scheduled Volume Backup Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/volumevault

package trigger

import (
	"github.com/tomtom215/volumevault/internal/backup"
	"github.com/tomtom215/volumevault/internal/models"
)

// VolumeInput creates or replaces a volume.
type VolumeInput struct {
	Name string `json:"name" validate:"required,volumename,max=128"`
	Path string `json:"path" validate:"required,abspath"`
}

// ScheduleInput creates a schedule. Enabled defaults to true.
type ScheduleInput struct {
	VolumeID  string           `json:"volume_id" validate:"required"`
	Frequency models.Frequency `json:"frequency" validate:"required,frequency"`
	TimeOfDay string           `json:"time_of_day" validate:"required,timeofday"`
	Enabled   *bool            `json:"enabled,omitempty"`
}

// ScheduleUpdate replaces a schedule's recurrence. A nil Enabled keeps the
// current value.
type ScheduleUpdate struct {
	Frequency models.Frequency `json:"frequency" validate:"required,frequency"`
	TimeOfDay string           `json:"time_of_day" validate:"required,timeofday"`
	Enabled   *bool            `json:"enabled,omitempty"`
}

// GroupInput creates or replaces a schedule group. On create a nil Enabled
// means true; on update it keeps the current value.
type GroupInput struct {
	Name        string           `json:"name" validate:"required,max=128"`
	Description string           `json:"description" validate:"max=1024"`
	Frequency   models.Frequency `json:"frequency" validate:"required,frequency"`
	TimeOfDay   string           `json:"time_of_day" validate:"required,timeofday"`
	Enabled     *bool            `json:"enabled,omitempty"`
}

// MembersInput replaces a group's member list. List position becomes
// execution_order.
type MembersInput struct {
	VolumeIDs []string `json:"volume_ids" validate:"unique,dive,required"`
}

// RestoreInput requests a restore of a completed backup.
type RestoreInput struct {
	Mode       string   `json:"mode" validate:"omitempty,oneof=full selective"`
	Paths      []string `json:"paths,omitempty" validate:"required_if=Mode selective,dive,required"`
	CustomPath string   `json:"custom_path,omitempty" validate:"omitempty,abspath"`
}

func (in RestoreInput) options() backup.RestoreOptions {
	return backup.RestoreOptions{
		Mode:       backup.RestoreMode(in.Mode),
		Paths:      in.Paths,
		CustomPath: in.CustomPath,
	}
}

func enabledOr(v *bool, fallback bool) bool {
	if v == nil {
		return fallback
	}
	return *v
}
