// VolumeVault - Scheduled Volume Backup Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/volumevault

package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/tomtom215/volumevault/internal/api"
	"github.com/tomtom215/volumevault/internal/config"
	"github.com/tomtom215/volumevault/internal/trigger"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{}
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 3000
	cfg.Database.Path = filepath.Join(dir, "catalog.db")
	cfg.Storage.Root = filepath.Join(dir, "backups")
	cfg.Scheduler.Enabled = true
	cfg.Scheduler.CheckInterval = time.Minute
	cfg.Scheduler.Dispatch = config.DispatchDirect
	cfg.Reconcile.Enabled = true
	cfg.Reconcile.Interval = time.Minute
	cfg.Retention.Interval = time.Hour
	cfg.Audit.Enabled = true
	cfg.Audit.BufferSize = 16
	cfg.Notify.Buffer = 16
	cfg.Security.APIToken = "operator-token-0123456789"
	cfg.Security.InternalToken = "scheduler-token"
	cfg.Tasks.DrainTimeout = time.Second
	cfg.Supervisor.FailureThreshold = 5
	cfg.Supervisor.ShutdownTimeout = time.Second
	return cfg
}

func TestBuildApp(t *testing.T) {
	cfg := testConfig(t)
	a, err := buildApp(context.Background(), cfg)
	if err != nil {
		t.Fatalf("buildApp() error = %v", err)
	}
	defer a.shutdown()

	if a.scheduler == nil || a.reconciler == nil || a.sweeper == nil {
		t.Fatal("background services not built")
	}
	d, err := a.dispatcher()
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := d.(*trigger.Service); !ok {
		t.Errorf("direct dispatcher = %T, want *trigger.Service", d)
	}

	// The router is reachable without a listener.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/health/live", nil)
	rec := httptest.NewRecorder()
	a.server.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("GET /api/v1/health/live = %d", rec.Code)
	}
}

func TestBuildApp_HTTPDispatchAndDisabledParts(t *testing.T) {
	cfg := testConfig(t)
	cfg.Scheduler.Dispatch = config.DispatchHTTP
	cfg.Reconcile.Enabled = false

	a, err := buildApp(context.Background(), cfg)
	if err != nil {
		t.Fatalf("buildApp() error = %v", err)
	}
	defer a.shutdown()

	if a.reconciler != nil {
		t.Error("reconciler built while disabled")
	}
	d, err := a.dispatcher()
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := d.(*api.InternalClient); !ok {
		t.Errorf("http dispatcher = %T, want *api.InternalClient", d)
	}

	cfg2 := testConfig(t)
	cfg2.Scheduler.Enabled = false
	b, err := buildApp(context.Background(), cfg2)
	if err != nil {
		t.Fatalf("buildApp() error = %v", err)
	}
	defer b.shutdown()
	if b.scheduler != nil {
		t.Error("scheduler built while disabled")
	}
}
