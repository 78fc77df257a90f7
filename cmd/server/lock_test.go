// VolumeVault - Scheduled Volume Backup Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/volumevault

package main

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/tomtom215/volumevault/internal/config"
)

func TestLockPath(t *testing.T) {
	cfg := &config.Config{}
	cfg.Database.Path = "/data/volumevault.db"
	if got := lockPath(cfg); got != "/data/volumevault.db.lock" {
		t.Errorf("lockPath() = %q", got)
	}
	cfg.Lock.Path = "/run/volumevault.lock"
	if got := lockPath(cfg); got != "/run/volumevault.lock" {
		t.Errorf("lockPath() = %q", got)
	}
}

func TestAcquireLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "vault.lock")

	first, err := acquireLock(path)
	if err != nil {
		t.Fatalf("acquireLock() error = %v", err)
	}

	if _, err := acquireLock(path); !errors.Is(err, errLocked) {
		t.Errorf("second acquireLock() error = %v, want errLocked", err)
	}

	if err := first.Unlock(); err != nil {
		t.Fatal(err)
	}
	second, err := acquireLock(path)
	if err != nil {
		t.Fatalf("acquireLock() after unlock error = %v", err)
	}
	_ = second.Unlock()
}
