// VolumeVault - Scheduled Volume Backup Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/volumevault

package tasks

import (
	"fmt"
	"sync"

	"github.com/tomtom215/volumevault/internal/models"
)

// VolumeKey is the guard key for work on one volume.
func VolumeKey(id string) string { return "volume:" + id }

// GroupKey is the guard key for a schedule group run.
func GroupKey(id string) string { return "group:" + id }

// Guard refuses overlapping work on the same key. A disabled guard admits
// everything.
type Guard struct {
	enabled bool
	mu      sync.Mutex
	held    map[string]struct{}
}

// NewGuard creates a guard. When enabled is false Acquire always succeeds.
func NewGuard(enabled bool) *Guard {
	return &Guard{enabled: enabled, held: make(map[string]struct{})}
}

// Enabled reports whether the guard refuses overlaps.
func (g *Guard) Enabled() bool {
	return g.enabled
}

// Acquire claims key. The returned release func must be called exactly once
// when the work finishes. ErrAlreadyRunning is returned while key is held.
func (g *Guard) Acquire(key string) (release func(), err error) {
	if !g.enabled {
		return func() {}, nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.held[key]; busy {
		return nil, fmt.Errorf("%s: %w", key, models.ErrAlreadyRunning)
	}
	g.held[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.held, key)
			g.mu.Unlock()
		})
	}, nil
}

// Held reports whether key is currently claimed.
func (g *Guard) Held(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.held[key]
	return ok
}
