// VolumeVault - Scheduled Volume Backup Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/volumevault

// Package tasks runs detached background work (archivals, restores, group
// runs) that must outlive the request or scheduler tick that started it.
//
// Every task runs on a context derived with context.WithoutCancel, so it keeps
// the caller's logging values but is not canceled when the caller returns.
// At shutdown the registry stops accepting work and drains for a bounded
// time; tasks still running afterwards are abandoned and resolved as
// interrupted on the next start.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/volumevault/internal/logging"
	"github.com/tomtom215/volumevault/internal/metrics"
)

// ErrClosed is returned by Go after Shutdown has been called.
var ErrClosed = errors.New("task registry is shut down")

// DefaultDrainTimeout bounds Shutdown when no timeout is configured.
const DefaultDrainTimeout = 30 * time.Second

// Func is the body of a background task.
type Func func(ctx context.Context)

// Registry tracks in-flight background tasks.
type Registry struct {
	mu       sync.Mutex
	wg       sync.WaitGroup
	closed   bool
	inFlight map[string]int
	logger   zerolog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger zerolog.Logger) *Registry {
	return &Registry{
		inFlight: make(map[string]int),
		logger:   logger,
	}
}

// Go starts fn in a new goroutine. kind labels the task in logs and metrics
// ("backup", "restore", "group_run").
func (r *Registry) Go(ctx context.Context, kind string, fn Func) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return fmt.Errorf("%s: %w", kind, ErrClosed)
	}
	r.inFlight[kind]++
	r.wg.Add(1)
	r.mu.Unlock()

	metrics.TrackTask(kind, true)
	taskCtx := context.WithoutCancel(ctx)

	go func() {
		defer r.done(kind)
		defer func() {
			if p := recover(); p != nil {
				logging.Ctx(taskCtx).Error().
					Str("task", kind).
					Interface("panic", p).
					Bytes("stack", debug.Stack()).
					Msg("Background task panicked")
			}
		}()
		fn(taskCtx)
	}()

	return nil
}

func (r *Registry) done(kind string) {
	r.mu.Lock()
	r.inFlight[kind]--
	if r.inFlight[kind] <= 0 {
		delete(r.inFlight, kind)
	}
	r.mu.Unlock()

	metrics.TrackTask(kind, false)
	r.wg.Done()
}

// InFlight returns the number of running tasks.
func (r *Registry) InFlight() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := 0
	for _, n := range r.inFlight {
		total += n
	}
	return total
}

// Shutdown refuses new tasks and waits up to timeout for running ones.
// It returns the number of tasks still running when the wait gave up.
func (r *Registry) Shutdown(timeout time.Duration) int {
	if timeout <= 0 {
		timeout = DefaultDrainTimeout
	}

	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	pending := r.InFlight()
	if pending == 0 {
		return 0
	}
	r.logger.Info().Int("in_flight", pending).Dur("timeout", timeout).Msg("Draining background tasks")

	drained := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(drained)
	}()

	select {
	case <-drained:
		r.logger.Info().Msg("Background tasks drained")
		return 0
	case <-time.After(timeout):
		left := r.InFlight()
		metrics.RecordTasksAbandoned(left)
		r.logger.Warn().Int("abandoned", left).Msg("Drain timeout reached, abandoning background tasks")
		return left
	}
}
