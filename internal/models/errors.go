// VolumeVault - Scheduled Volume Backup Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/volumevault

package models

import "errors"

// Sentinel errors shared across components. Callers wrap them with
// fmt.Errorf("...: %w", err) and test with errors.Is.
var (
	// ErrNotFound indicates a missing volume, backup, schedule or group.
	ErrNotFound = errors.New("not found")

	// ErrPrecondition indicates the target is not in a state that allows the operation.
	ErrPrecondition = errors.New("precondition failed")

	// ErrConfiguration indicates missing or unusable configuration, such as the storage root.
	ErrConfiguration = errors.New("configuration error")

	// ErrStorageUnavailable indicates the storage root cannot be listed or stat'ed.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrAlreadyRunning indicates an overlapping backup or group run was refused.
	ErrAlreadyRunning = errors.New("already running")

	// ErrInvalidInput indicates a request failed validation.
	ErrInvalidInput = errors.New("invalid input")
)
