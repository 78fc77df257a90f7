// VolumeVault - Scheduled Volume Backup Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/volumevault

package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Result label values
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

var (
	// Backup Metrics
	BackupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "volumevault_backups_total",
			Help: "Total number of finished backups by terminal status",
		},
		[]string{"status"}, // "completed", "failed"
	)

	BackupDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "volumevault_backup_duration_seconds",
			Help:    "Wall-clock duration of volume archival",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800, 3600, 7200},
		},
	)

	BackupBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "volumevault_backup_bytes_total",
			Help: "Total compressed bytes written to the storage root",
		},
	)

	BackupLastSuccess = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "volumevault_backup_last_success_timestamp_seconds",
			Help: "Unix time of the last completed backup per volume",
		},
		[]string{"volume"},
	)

	BackupsInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "volumevault_backups_in_progress",
			Help: "Number of archivals currently running",
		},
	)

	ArchiveWarnings = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "volumevault_archive_warnings_total",
			Help: "Benign source mutations observed while archiving",
		},
		[]string{"kind"}, // "vanished", "shrunk", "grew", "unsupported"
	)

	// Restore Metrics
	RestoresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "volumevault_restores_total",
			Help: "Total number of restore operations",
		},
		[]string{"mode", "result"},
	)

	RestoreDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "volumevault_restore_duration_seconds",
			Help:    "Duration of archive extraction",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800, 3600},
		},
	)

	// Group Run Metrics
	GroupRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "volumevault_group_runs_total",
			Help: "Total number of finished schedule group runs",
		},
		[]string{"status"},
	)

	GroupRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "volumevault_group_run_duration_seconds",
			Help:    "Duration of schedule group runs",
			Buckets: []float64{5, 30, 60, 300, 600, 1800, 3600, 7200, 14400},
		},
	)

	// Scheduler Metrics
	SchedulerChecksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "volumevault_scheduler_checks_total",
			Help: "Total number of scheduler evaluation passes",
		},
	)

	SchedulerCheckDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "volumevault_scheduler_check_duration_seconds",
			Help:    "Duration of one scheduler evaluation pass",
			Buckets: prometheus.DefBuckets,
		},
	)

	SchedulerDispatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "volumevault_scheduler_dispatches_total",
			Help: "Dispatches issued by the scheduler",
		},
		[]string{"kind", "result"}, // kind: "schedule", "group"
	)

	// Catalog Maintenance Metrics
	RetentionDeletedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "volumevault_retention_deleted_total",
			Help: "Backups removed by the retention sweeper",
		},
	)

	RetentionFailedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "volumevault_retention_failed_total",
			Help: "Backups the retention sweeper could not remove",
		},
	)

	RetentionLastSweep = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "volumevault_retention_last_sweep_timestamp_seconds",
			Help: "Unix time of the last retention sweep",
		},
	)

	OrphansRemovedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "volumevault_orphans_removed_total",
			Help: "Catalog records removed because their archive disappeared",
		},
		[]string{"source"}, // "sweep", "watch"
	)

	StaleResolvedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "volumevault_stale_resolved_total",
			Help: "In-progress rows marked failed at startup",
		},
		[]string{"kind"}, // "backup", "group_run"
	)

	// Background Task Metrics
	TasksInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "volumevault_tasks_in_flight",
			Help: "Background tasks currently running",
		},
	)

	TasksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "volumevault_tasks_total",
			Help: "Background tasks started, by task kind",
		},
		[]string{"kind"},
	)

	TasksAbandonedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "volumevault_tasks_abandoned_total",
			Help: "Tasks still running when the shutdown drain timed out",
		},
	)

	// Notification Metrics
	EventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "volumevault_events_total",
			Help: "Notifier events observed, by event type",
		},
		[]string{"type"},
	)

	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "volumevault_notifications_total",
			Help: "Notifications delivered to sinks",
		},
		[]string{"event", "sink", "result"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "volumevault_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	AuditEventsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "volumevault_audit_events_dropped_total",
			Help: "Audit entries dropped because the buffer was full",
		},
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "volumevault_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "volumevault_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "volumevault_api_active_requests",
			Help: "Current number of active API requests",
		},
	)
)

// RecordBackup records a finished archival.
func RecordBackup(volume, status string, duration time.Duration, sizeBytes int64) {
	BackupsTotal.WithLabelValues(status).Inc()
	BackupDuration.Observe(duration.Seconds())
	if status == "completed" {
		BackupBytesTotal.Add(float64(sizeBytes))
		BackupLastSuccess.WithLabelValues(volume).Set(float64(time.Now().Unix()))
	}
}

// TrackBackupInProgress tracks running archivals
func TrackBackupInProgress(inc bool) {
	if inc {
		BackupsInProgress.Inc()
	} else {
		BackupsInProgress.Dec()
	}
}

// RecordArchiveWarning counts a benign source mutation.
func RecordArchiveWarning(kind string) {
	ArchiveWarnings.WithLabelValues(kind).Inc()
}

// RecordRestore records a finished restore.
func RecordRestore(mode string, duration time.Duration, err error) {
	RestoresTotal.WithLabelValues(mode, result(err)).Inc()
	RestoreDuration.Observe(duration.Seconds())
}

// RecordGroupRun records a finished group run.
func RecordGroupRun(status string, duration time.Duration) {
	GroupRunsTotal.WithLabelValues(status).Inc()
	GroupRunDuration.Observe(duration.Seconds())
}

// RecordSchedulerCheck records one evaluation pass.
func RecordSchedulerCheck(duration time.Duration) {
	SchedulerChecksTotal.Inc()
	SchedulerCheckDuration.Observe(duration.Seconds())
}

// RecordDispatch records a scheduler dispatch attempt.
func RecordDispatch(kind string, err error) {
	SchedulerDispatchesTotal.WithLabelValues(kind, result(err)).Inc()
}

// RecordRetentionSweep records the outcome of one retention sweep.
func RecordRetentionSweep(deleted, failed int) {
	RetentionDeletedTotal.Add(float64(deleted))
	RetentionFailedTotal.Add(float64(failed))
	RetentionLastSweep.Set(float64(time.Now().Unix()))
}

// RecordOrphansRemoved counts catalog records removed for missing archives.
func RecordOrphansRemoved(source string, n int64) {
	if n > 0 {
		OrphansRemovedTotal.WithLabelValues(source).Add(float64(n))
	}
}

// RecordStaleResolved counts in-progress rows failed at startup.
func RecordStaleResolved(runs, backups int64) {
	StaleResolvedTotal.WithLabelValues("group_run").Add(float64(runs))
	StaleResolvedTotal.WithLabelValues("backup").Add(float64(backups))
}

// TrackTask tracks a background task start (inc) or finish.
func TrackTask(kind string, inc bool) {
	if inc {
		TasksTotal.WithLabelValues(kind).Inc()
		TasksInFlight.Inc()
	} else {
		TasksInFlight.Dec()
	}
}

// RecordTasksAbandoned counts tasks left running after the drain timeout.
func RecordTasksAbandoned(n int) {
	TasksAbandonedTotal.Add(float64(n))
}

// RecordEvent counts an event seen on the notifier bus.
func RecordEvent(eventType string) {
	EventsTotal.WithLabelValues(eventType).Inc()
}

// RecordNotification records one sink delivery.
func RecordNotification(event, sink string, err error) {
	NotificationsTotal.WithLabelValues(event, sink, result(err)).Inc()
}

// SetCircuitBreakerState publishes a breaker state (0=closed, 1=half-open, 2=open).
func SetCircuitBreakerState(name string, state int) {
	CircuitBreakerState.WithLabelValues(name).Set(float64(state))
}

// RecordAuditDropped counts a dropped audit entry.
func RecordAuditDropped() {
	AuditEventsDropped.Inc()
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint string, statusCode int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

func result(err error) string {
	if err != nil {
		return ResultFailure
	}
	return ResultSuccess
}
