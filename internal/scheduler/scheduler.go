// VolumeVault - Scheduled Volume Backup Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/volumevault

// Package scheduler drives recurring backups.
//
// scheduler.go - Backup Scheduler
//
// The scheduler:
//   - Runs on a configurable interval (default: 1 minute), checking once
//     immediately on Start
//   - Loads enabled schedules and enabled schedule groups independently
//   - For each item, asks the recurrence evaluator whether it is due in the
//     configured time zone
//   - Dispatches due items fire-and-forget and records last_run = now
//
// A failure on one item is logged and audited and never stops the rest. An
// item whose dispatch fails keeps its last_run, so the next tick inside the
// window retries it.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/volumevault/internal/audit"
	"github.com/tomtom215/volumevault/internal/logging"
	"github.com/tomtom215/volumevault/internal/metrics"
	"github.com/tomtom215/volumevault/internal/models"
	"github.com/tomtom215/volumevault/internal/recurrence"
)

// Dispatch kinds reported in metrics and logs.
const (
	KindSchedule = "schedule"
	KindGroup    = "group"
)

// Store defines the catalog operations required by the scheduler.
type Store interface {
	ListEnabledSchedules(ctx context.Context) ([]models.Schedule, error)
	ListEnabledGroups(ctx context.Context) ([]models.ScheduleGroup, error)
	SetScheduleLastRun(ctx context.Context, id string, at time.Time) error
	SetGroupLastRun(ctx context.Context, id string, at time.Time) error
}

// Dispatcher starts backups and group runs without waiting for them.
type Dispatcher interface {
	TriggerBackup(ctx context.Context, volumeID string) error
	TriggerGroupRun(ctx context.Context, groupID string) error
}

// Config holds configuration for the scheduler.
type Config struct {
	// CheckInterval is how often to evaluate schedules (default: 1 minute)
	CheckInterval time.Duration

	// Location is the time zone schedules are evaluated in (default: Local)
	Location *time.Location
}

// DefaultConfig returns the default scheduler configuration.
func DefaultConfig() Config {
	return Config{
		CheckInterval: time.Minute,
		Location:      time.Local,
	}
}

// CheckResult summarizes one evaluation pass.
type CheckResult struct {
	CheckedAt  time.Time `json:"checked_at"`
	Schedules  int       `json:"schedules"`
	Groups     int       `json:"groups"`
	Dispatched int       `json:"dispatched"`
	Failed     int       `json:"failed"`
}

// Scheduler evaluates schedules and schedule groups on a ticker.
type Scheduler struct {
	store      Store
	dispatcher Dispatcher
	audit      audit.Recorder
	logger     zerolog.Logger
	config     Config
	now        func() time.Time

	// serializes evaluation passes (ticker and CheckNow)
	checkMu sync.Mutex

	// Runtime state
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewScheduler creates a scheduler. recorder and logger may be nil.
func NewScheduler(store Store, dispatcher Dispatcher, recorder audit.Recorder, logger *zerolog.Logger, config Config) *Scheduler {
	if config.CheckInterval <= 0 {
		config.CheckInterval = time.Minute
	}
	if config.Location == nil {
		config.Location = time.Local
	}

	s := &Scheduler{
		store:      store,
		dispatcher: dispatcher,
		audit:      recorder,
		logger:     logging.WithComponent("scheduler"),
		config:     config,
		now:        time.Now,
	}
	if logger != nil {
		s.logger = logger.With().Str("component", "scheduler").Logger()
	}
	if s.audit == nil {
		s.audit = audit.Nop{}
	}
	return s
}

// Start begins the scheduler loop. A second Start while running is a no-op.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.logger.Warn().Msg("Scheduler already running")
		return nil
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.mu.Unlock()

	s.logger.Info().
		Dur("check_interval", s.config.CheckInterval).
		Str("timezone", s.config.Location.String()).
		Msg("Starting scheduler")

	go s.run(ctx, s.stopCh, s.doneCh)
	return nil
}

// Stop stops the scheduler loop and waits for the current pass to finish.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	stopCh, doneCh := s.stopCh, s.doneCh
	s.running = false
	s.mu.Unlock()

	s.logger.Info().Msg("Stopping scheduler...")
	close(stopCh)
	<-doneCh
	s.logger.Info().Msg("Scheduler stopped")
	return nil
}

// IsRunning returns whether the scheduler loop is active.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// run is the main scheduler loop.
func (s *Scheduler) run(ctx context.Context, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(s.config.CheckInterval)
	defer ticker.Stop()

	// Run immediately on start
	s.CheckNow(ctx)

	for {
		select {
		case <-ticker.C:
			s.CheckNow(ctx)
		case <-stopCh:
			return
		case <-ctx.Done():
			s.mu.Lock()
			s.running = false
			s.mu.Unlock()
			return
		}
	}
}

// CheckNow runs one evaluation pass synchronously.
func (s *Scheduler) CheckNow(ctx context.Context) CheckResult {
	s.checkMu.Lock()
	defer s.checkMu.Unlock()

	start := time.Now()
	now := s.now().In(s.config.Location)
	result := CheckResult{CheckedAt: now}
	ctx = logging.ContextWithNewCorrelationID(ctx)

	schedules, err := s.store.ListEnabledSchedules(ctx)
	if err != nil {
		result.Failed++
		s.loadFailed(ctx, KindSchedule, err)
	}
	for i := range schedules {
		sch := &schedules[i]
		result.Schedules++
		if !recurrence.IsDue(sch.Frequency, sch.TimeOfDay, sch.LastRun, now) {
			continue
		}
		s.dispatch(ctx, &result, KindSchedule, sch.ID, now,
			func() error { return s.dispatcher.TriggerBackup(ctx, sch.VolumeID) },
			func() error { return s.store.SetScheduleLastRun(ctx, sch.ID, now) },
			models.AuditDetails{"schedule_id": sch.ID, "volume_id": sch.VolumeID, "frequency": string(sch.Frequency)})
	}

	groups, err := s.store.ListEnabledGroups(ctx)
	if err != nil {
		result.Failed++
		s.loadFailed(ctx, KindGroup, err)
	}
	for i := range groups {
		g := &groups[i]
		result.Groups++
		if !recurrence.IsDue(g.Frequency, g.TimeOfDay, g.LastRun, now) {
			continue
		}
		s.dispatch(ctx, &result, KindGroup, g.ID, now,
			func() error { return s.dispatcher.TriggerGroupRun(ctx, g.ID) },
			func() error { return s.store.SetGroupLastRun(ctx, g.ID, now) },
			models.AuditDetails{"group_id": g.ID, "group_name": g.Name, "frequency": string(g.Frequency)})
	}

	metrics.RecordSchedulerCheck(time.Since(start))
	if result.Dispatched > 0 || result.Failed > 0 {
		s.logger.Info().
			Int("dispatched", result.Dispatched).
			Int("failed", result.Failed).
			Msg("Scheduler check completed")
	} else {
		s.logger.Debug().Int("schedules", result.Schedules).Int("groups", result.Groups).Msg("Nothing due")
	}
	return result
}

// dispatch triggers one due item and records its last_run. last_run is
// left unchanged when the trigger fails.
func (s *Scheduler) dispatch(ctx context.Context, result *CheckResult, kind, id string, now time.Time, trigger, markRun func() error, details models.AuditDetails) {
	log := s.logger.With().Str("kind", kind).Str("id", id).Logger()

	err := trigger()
	metrics.RecordDispatch(kind, err)
	if err != nil {
		result.Failed++
		log.Error().Err(err).Msg("Scheduled dispatch failed")
		details["error"] = err.Error()
		s.audit.Log(ctx, audit.Entry(models.AuditError, models.CategorySchedule,
			fmt.Sprintf("Scheduled %s dispatch failed", kind), details))
		return
	}

	result.Dispatched++
	if err := markRun(); err != nil {
		log.Error().Err(err).Msg("Failed to record last run")
		details["error"] = err.Error()
		s.audit.Log(ctx, audit.Entry(models.AuditWarning, models.CategorySchedule,
			fmt.Sprintf("Scheduled %s dispatched but last run not recorded", kind), details))
		return
	}

	log.Info().Time("last_run", now).Msg("Scheduled dispatch started")
	s.audit.Log(ctx, audit.Entry(models.AuditInfo, models.CategorySchedule,
		fmt.Sprintf("Scheduled %s dispatched", kind), details))
}

func (s *Scheduler) loadFailed(ctx context.Context, kind string, err error) {
	s.logger.Error().Err(err).Str("kind", kind).Msg("Failed to load enabled items")
	s.audit.Log(ctx, audit.Entry(models.AuditError, models.CategorySchedule,
		fmt.Sprintf("Failed to load enabled %ss", kind), models.AuditDetails{"error": err.Error()}))
}
