// VolumeVault - Scheduled Volume Backup Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/volumevault

package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/tomtom215/volumevault/internal/logging"
	"github.com/tomtom215/volumevault/internal/models"
)

// Validate validates the configuration. Every invalid setting is reported;
// the joined error wraps models.ErrConfiguration.
func (c *Config) Validate() error {
	checks := []func() error{
		c.validateServer,
		c.validateDatabase,
		c.validateStorage,
		c.validateScheduler,
		c.validateBackup,
		c.validateMaintenance,
		c.validateNotify,
		c.validateSecurity,
		c.validateLogging,
	}
	var errs []error
	for _, check := range checks {
		if err := check(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", models.ErrConfiguration, errors.Join(errs...))
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got: %d", c.Server.Port)
	}
	if c.Server.ReadTimeout < 0 || c.Server.WriteTimeout < 0 || c.Server.IdleTimeout < 0 {
		return fmt.Errorf("HTTP timeouts must not be negative")
	}
	return nil
}

func (c *Config) validateDatabase() error {
	if strings.TrimSpace(c.Database.Path) == "" {
		return fmt.Errorf("DATABASE_PATH is required")
	}
	switch strings.ToLower(c.Database.LogLevel) {
	case "", "silent", "error", "warn", "info":
		return nil
	default:
		return fmt.Errorf("DATABASE_LOG_LEVEL must be silent, error, warn, or info, got: %s", c.Database.LogLevel)
	}
}

func (c *Config) validateStorage() error {
	if strings.TrimSpace(c.Storage.Root) == "" {
		return fmt.Errorf("BACKUP_STORAGE_PATH is required")
	}
	if !filepath.IsAbs(c.Storage.Root) {
		return fmt.Errorf("BACKUP_STORAGE_PATH must be an absolute path, got: %s", c.Storage.Root)
	}
	return nil
}

func (c *Config) validateScheduler() error {
	if c.Scheduler.CheckInterval <= 0 {
		return fmt.Errorf("SCHEDULER_CHECK_INTERVAL must be positive, got: %s", c.Scheduler.CheckInterval)
	}
	if _, err := c.Scheduler.Location(); err != nil {
		return fmt.Errorf("SCHEDULER_TIMEZONE: %w", err)
	}

	switch c.Scheduler.Dispatch {
	case DispatchDirect:
		return nil
	case DispatchHTTP:
		if c.Security.InternalToken == "" {
			return fmt.Errorf("INTERNAL_SCHEDULER_TOKEN is required when SCHEDULER_DISPATCH is %q", DispatchHTTP)
		}
		if c.Scheduler.InternalURL != "" {
			return validateHTTPURL(c.Scheduler.InternalURL, "SCHEDULER_INTERNAL_URL")
		}
		return nil
	default:
		return fmt.Errorf("SCHEDULER_DISPATCH must be %q or %q, got: %s", DispatchDirect, DispatchHTTP, c.Scheduler.Dispatch)
	}
}

func (c *Config) validateBackup() error {
	if c.Backup.CompressionLevel < -1 || c.Backup.CompressionLevel > 9 {
		return fmt.Errorf("BACKUP_COMPRESSION_LEVEL must be between -1 and 9, got: %d", c.Backup.CompressionLevel)
	}
	if c.Tasks.DrainTimeout < 0 {
		return fmt.Errorf("TASKS_DRAIN_TIMEOUT must not be negative")
	}
	return nil
}

// validateMaintenance covers reconcile, retention and audit housekeeping.
func (c *Config) validateMaintenance() error {
	if c.Reconcile.Enabled && c.Reconcile.Interval <= 0 {
		return fmt.Errorf("RECONCILE_INTERVAL must be positive, got: %s", c.Reconcile.Interval)
	}
	if c.Retention.Days < 0 {
		return fmt.Errorf("RETENTION_DAYS must not be negative, got: %d", c.Retention.Days)
	}
	if c.Retention.Days > 0 && c.Retention.Interval <= 0 {
		return fmt.Errorf("RETENTION_INTERVAL must be positive, got: %s", c.Retention.Interval)
	}
	if c.Audit.RetentionDays < 0 {
		return fmt.Errorf("AUDIT_RETENTION_DAYS must not be negative, got: %d", c.Audit.RetentionDays)
	}
	if c.Supervisor.FailureThreshold <= 0 {
		return fmt.Errorf("SUPERVISOR_FAILURE_THRESHOLD must be positive")
	}
	return nil
}

func (c *Config) validateNotify() error {
	if c.Notify.WebhookURL == "" {
		return nil
	}
	if err := validateHTTPEndpoint(c.Notify.WebhookURL, "NOTIFY_WEBHOOK_URL"); err != nil {
		return err
	}
	if c.Notify.WebhookTimeout <= 0 {
		return fmt.Errorf("NOTIFY_WEBHOOK_TIMEOUT must be positive, got: %s", c.Notify.WebhookTimeout)
	}
	return nil
}

func (c *Config) validateSecurity() error {
	if c.Security.APIToken == "" {
		return fmt.Errorf("API_TOKEN is required")
	}
	if len(c.Security.APIToken) < 16 {
		return fmt.Errorf("API_TOKEN must be at least 16 characters")
	}
	if c.Security.InternalToken != "" && c.Security.InternalToken == c.Security.APIToken {
		return fmt.Errorf("INTERNAL_SCHEDULER_TOKEN must differ from API_TOKEN")
	}
	return nil
}

func (c *Config) validateLogging() error {
	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("LOG_LEVEL must be trace, debug, info, warn, or error, got: %s", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console, got: %s", c.Logging.Format)
	}
	return nil
}

// InternalBaseURL returns the URL the scheduler uses to reach the trigger
// endpoints in http dispatch mode.
func (c *Config) InternalBaseURL() string {
	if c.Scheduler.InternalURL != "" {
		return c.Scheduler.InternalURL
	}
	return fmt.Sprintf("http://127.0.0.1:%d", c.Server.Port)
}
