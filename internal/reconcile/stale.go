// VolumeVault - Scheduled Volume Backup Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/volumevault

package reconcile

import (
	"context"
	"time"

	"github.com/tomtom215/volumevault/internal/audit"
	"github.com/tomtom215/volumevault/internal/logging"
	"github.com/tomtom215/volumevault/internal/metrics"
	"github.com/tomtom215/volumevault/internal/models"
)

// InterruptedMessage is the error_message of work resolved at startup.
const InterruptedMessage = "interrupted: process restarted"

// StaleStore marks in-progress runs and backups failed in one transaction.
type StaleStore interface {
	ResolveStale(ctx context.Context, message string, at time.Time) (runs, backups int64, err error)
}

// ResolveStaleRuns fails every in-progress group run and backup record left
// by a previous process. It must run before the scheduler starts and only
// while this process holds the instance lock.
func ResolveStaleRuns(ctx context.Context, store StaleStore, recorder audit.Recorder) (runs, backups int64, err error) {
	runs, backups, err = store.ResolveStale(ctx, InterruptedMessage, time.Now().UTC())
	if err != nil {
		return 0, 0, err
	}

	metrics.RecordStaleResolved(runs, backups)
	if runs == 0 && backups == 0 {
		return 0, 0, nil
	}

	logging.Ctx(ctx).Warn().
		Int64("runs", runs).
		Int64("backups", backups).
		Msg("Resolved work interrupted by a restart")

	if recorder != nil {
		recorder.Log(ctx, &models.AuditEntry{
			Level:    models.AuditWarning,
			Category: models.CategorySystem,
			Message:  "Resolved work interrupted by a restart",
			Details:  models.AuditDetails{"runs": runs, "backups": backups},
		})
	}
	return runs, backups, nil
}
