// VolumeVault - Scheduled Volume Backup Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/volumevault

package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/tomtom215/volumevault/internal/api"
	"github.com/tomtom215/volumevault/internal/audit"
	"github.com/tomtom215/volumevault/internal/backup"
	"github.com/tomtom215/volumevault/internal/catalog"
	"github.com/tomtom215/volumevault/internal/config"
	"github.com/tomtom215/volumevault/internal/grouprun"
	"github.com/tomtom215/volumevault/internal/logging"
	"github.com/tomtom215/volumevault/internal/middleware"
	"github.com/tomtom215/volumevault/internal/models"
	"github.com/tomtom215/volumevault/internal/notify"
	"github.com/tomtom215/volumevault/internal/reconcile"
	"github.com/tomtom215/volumevault/internal/retention"
	"github.com/tomtom215/volumevault/internal/scheduler"
	"github.com/tomtom215/volumevault/internal/supervisor"
	"github.com/tomtom215/volumevault/internal/supervisor/services"
	"github.com/tomtom215/volumevault/internal/tasks"
	"github.com/tomtom215/volumevault/internal/trigger"
)

// app holds every long-lived component built from the configuration.
type app struct {
	cfg      *config.Config
	store    *catalog.Store
	auditLog *audit.Logger
	bus      *notify.Bus
	registry *tasks.Registry
	service  *trigger.Service

	reconciler *reconcile.Reconciler
	sweeper    *retention.Sweeper
	scheduler  *scheduler.Scheduler
	server     *http.Server
}

// buildApp opens the catalog and wires the services. On error every
// resource opened so far is closed.
func buildApp(ctx context.Context, cfg *config.Config) (a *app, err error) {
	a = &app{cfg: cfg}
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	a.store, err = catalog.Open(ctx, catalog.Config{
		Path:     cfg.Database.Path,
		LogLevel: cfg.Database.LogLevel,
	})
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	if err = a.store.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("migrate catalog: %w", err)
	}
	logging.Info().Str("path", a.store.Path()).Msg("Catalog ready")

	auditCfg := audit.DefaultConfig()
	auditCfg.Enabled = cfg.Audit.Enabled
	auditCfg.RetentionDays = cfg.Audit.RetentionDays
	auditCfg.BufferSize = cfg.Audit.BufferSize
	a.auditLog = audit.NewLogger(audit.NewGormStore(a.store.DB()), auditCfg)

	a.bus = notify.NewBus(notify.Config{BufferSize: cfg.Notify.Buffer}, logging.WithComponent("notify"))
	a.bus.AddSink(notify.NewLogSink(logging.WithComponent("notify")))
	a.bus.AddSink(notify.MetricsSink{})
	if cfg.Notify.WebhookURL != "" {
		a.bus.AddSink(notify.NewWebhookSink(notify.WebhookConfig{
			URL:     cfg.Notify.WebhookURL,
			Timeout: cfg.Notify.WebhookTimeout,
		}, logging.WithComponent("webhook")))
		logging.Info().Msg("Webhook notifications enabled")
	}

	a.registry = tasks.NewRegistry(logging.WithComponent("tasks"))

	if err = a.buildServices(); err != nil {
		return nil, err
	}
	if err = a.recoverInterrupted(ctx); err != nil {
		return nil, err
	}
	if err = a.buildBackground(); err != nil {
		return nil, err
	}
	if err = a.buildHTTP(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *app) buildServices() error {
	executor, err := backup.NewExecutor(backup.Config{
		StorageRoot:      a.cfg.Storage.Root,
		CompressionLevel: a.cfg.Backup.CompressionLevel,
	}, backup.Deps{
		Catalog:  a.store,
		Tasks:    a.registry,
		Notifier: a.bus,
		Audit:    a.auditLog,
		Logger:   componentLogger("backup"),
	})
	if err != nil {
		return fmt.Errorf("create backup executor: %w", err)
	}

	guard := tasks.NewGuard(a.cfg.Backup.PreventOverlap)
	runner, err := grouprun.NewRunner(grouprun.Deps{
		Catalog:  a.store,
		Backups:  executor,
		Tasks:    a.registry,
		Guard:    guard,
		Notifier: a.bus,
		Audit:    a.auditLog,
		Logger:   componentLogger("grouprun"),
	})
	if err != nil {
		return fmt.Errorf("create group runner: %w", err)
	}

	a.service, err = trigger.NewService(trigger.Deps{
		Catalog: a.store,
		Backups: executor,
		Groups:  runner,
		Guard:   guard,
		Audit:   a.auditLog,
		Logger:  componentLogger("trigger"),
	})
	if err != nil {
		return fmt.Errorf("create trigger service: %w", err)
	}
	return nil
}

// recoverInterrupted fails runs and backups a previous process left in
// progress. It must run before anything can start new work.
func (a *app) recoverInterrupted(ctx context.Context) error {
	runs, backups, err := reconcile.ResolveStaleRuns(ctx, a.store, a.auditLog)
	if err != nil {
		return fmt.Errorf("resolve interrupted runs: %w", err)
	}
	if runs > 0 || backups > 0 {
		logging.Warn().Int64("runs", runs).Int64("backups", backups).Msg("Marked interrupted work as failed")
	}
	return nil
}

func (a *app) buildBackground() error {
	if a.cfg.Reconcile.Enabled {
		a.reconciler = reconcile.NewReconciler(reconcile.Config{
			StorageRoot: a.cfg.Storage.Root,
			Interval:    a.cfg.Reconcile.Interval,
		}, a.store, a.auditLog, componentLogger("reconcile"))
	}

	a.sweeper = retention.NewSweeper(retention.Config{
		Days:     a.cfg.Retention.Days,
		Interval: a.cfg.Retention.Interval,
	}, a.store, a.auditLog, componentLogger("retention"))

	if !a.cfg.Scheduler.Enabled {
		logging.Info().Msg("Scheduler disabled (SCHEDULER_ENABLED=false)")
		return nil
	}

	dispatcher, err := a.dispatcher()
	if err != nil {
		return err
	}
	loc, err := a.cfg.Scheduler.Location()
	if err != nil {
		return err
	}
	a.scheduler = scheduler.NewScheduler(a.store, dispatcher, a.auditLog, componentLogger("scheduler"), scheduler.Config{
		CheckInterval: a.cfg.Scheduler.CheckInterval,
		Location:      loc,
	})
	return nil
}

// dispatcher picks how due items are started: in process, or through the
// trigger endpoints with the internal token.
func (a *app) dispatcher() (scheduler.Dispatcher, error) {
	if a.cfg.Scheduler.Dispatch != config.DispatchHTTP {
		return a.service, nil
	}
	client, err := api.NewInternalClient(a.cfg.InternalBaseURL(), a.cfg.Security.InternalToken, api.DefaultInternalTimeout)
	if err != nil {
		return nil, fmt.Errorf("create internal client: %w", err)
	}
	logging.Info().Str("url", a.cfg.InternalBaseURL()).Msg("Scheduler dispatches over HTTP")
	return client, nil
}

func (a *app) buildHTTP() error {
	deps := api.Deps{
		Service:     a.service,
		Retention:   a.sweeper,
		Audit:       a.auditLog,
		Catalog:     a.store,
		Tasks:       a.registry,
		StorageRoot: a.cfg.Storage.Root,
		Version:     version,
	}
	if a.scheduler != nil {
		deps.Scheduler = a.scheduler
	}
	handler, err := api.NewHandler(deps)
	if err != nil {
		return fmt.Errorf("create API handler: %w", err)
	}

	auth := middleware.NewTokenAuth(a.cfg.Security.APIToken, a.cfg.Security.InternalToken)
	a.server = &http.Server{
		Addr:         a.cfg.Server.Addr(),
		Handler:      api.NewRouter(handler, auth).Setup(),
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
		IdleTimeout:  a.cfg.Server.IdleTimeout,
	}
	return nil
}

// addServices registers the long-running services with their layers.
func (a *app) addServices(tree *supervisor.SupervisorTree) {
	tree.AddCoreService(a.auditLog)
	tree.AddCoreService(a.bus)

	if a.reconciler != nil {
		tree.AddMaintenanceService(a.reconciler)
	}
	tree.AddMaintenanceService(a.sweeper)

	if a.scheduler != nil {
		tree.AddSchedulingService(services.NewSchedulerService(a.scheduler))
	}

	tree.AddAPIService(services.NewHTTPServerService(a.server, a.server.Addr, a.cfg.Supervisor.ShutdownTimeout))
}

// shutdown waits for background tasks, then releases resources.
func (a *app) shutdown() {
	if a.registry != nil {
		if abandoned := a.registry.Shutdown(a.cfg.Tasks.DrainTimeout); abandoned > 0 {
			logging.Warn().Int("abandoned", abandoned).Msg("Background tasks still running at shutdown")
			// Their records stay in progress and are failed on next start.
			a.auditLog.Log(context.Background(), audit.Entry(models.AuditWarning, models.CategorySystem,
				"Shutdown abandoned running tasks", models.AuditDetails{"abandoned": abandoned}))
		}
	}
	a.close()
}

func (a *app) close() {
	if a.bus != nil {
		if err := a.bus.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing notification bus")
		}
	}
	if a.auditLog != nil {
		if err := a.auditLog.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing audit logger")
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing catalog")
		}
	}
}

func componentLogger(name string) *zerolog.Logger {
	l := logging.WithComponent(name)
	return &l
}

// treeConfig maps supervisor settings, leaving decay at its default.
func treeConfig(cfg *config.Config) supervisor.TreeConfig {
	return supervisor.TreeConfig{
		FailureThreshold: cfg.Supervisor.FailureThreshold,
		FailureBackoff:   cfg.Supervisor.FailureBackoff,
		ShutdownTimeout:  cfg.Supervisor.ShutdownTimeout,
	}
}
