// VolumeVault - Scheduled Volume Backup Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/volumevault

package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/tomtom215/volumevault/internal/config"
)

var errLocked = errors.New("another VolumeVault instance holds the lock")

// lockPath places the lock next to the catalog unless one is configured.
func lockPath(cfg *config.Config) string {
	if cfg.Lock.Path != "" {
		return cfg.Lock.Path
	}
	return cfg.Database.Path + ".lock"
}

// acquireLock takes the single-instance lock without blocking. Two
// processes scheduling against one catalog would double-fire every
// schedule.
func acquireLock(path string) (*flock.Flock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}
	lock := flock.New(path)
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", path, err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", errLocked, path)
	}
	return lock, nil
}
