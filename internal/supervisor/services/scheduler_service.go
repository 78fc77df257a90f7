// VolumeVault - Scheduled Volume Backup Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/volumevault

package services

import (
	"context"
	"fmt"
)

// SchedulerManager is the Start/Stop lifecycle of *scheduler.Scheduler.
type SchedulerManager interface {
	Start(ctx context.Context) error
	Stop() error
}

// SchedulerService adapts the scheduler's Start/Stop lifecycle to suture.
// Start spawns the ticker loop; Stop waits for an in-progress check pass.
type SchedulerService struct {
	manager SchedulerManager
}

// NewSchedulerService wraps the backup scheduler.
func NewSchedulerService(manager SchedulerManager) *SchedulerService {
	return &SchedulerService{manager: manager}
}

// Serve implements suture.Service. A Start failure is returned so suture
// restarts the service on its backoff policy.
func (s *SchedulerService) Serve(ctx context.Context) error {
	if err := s.manager.Start(ctx); err != nil {
		return fmt.Errorf("backup scheduler start failed: %w", err)
	}

	<-ctx.Done()

	if err := s.manager.Stop(); err != nil {
		return fmt.Errorf("backup scheduler stop failed: %w", err)
	}
	return ctx.Err()
}

// String implements fmt.Stringer for supervisor logs.
func (s *SchedulerService) String() string {
	return "backup-scheduler"
}
