// VolumeVault - Scheduled Volume Backup Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/volumevault

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/volumevault/config.yaml",
	"/etc/volumevault/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config struct with all default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         3000,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		Database: DatabaseConfig{
			Path:     "/data/volumevault.db",
			LogLevel: "warn",
		},
		Storage: StorageConfig{
			Root: "/backups",
		},
		Scheduler: SchedulerConfig{
			Enabled:       true,
			CheckInterval: time.Minute,
			Timezone:      "Local",
			Dispatch:      DispatchDirect,
		},
		Backup: BackupConfig{
			PreventOverlap:   false,
			CompressionLevel: -1,
		},
		Reconcile: ReconcileConfig{
			Enabled:  true,
			Interval: time.Minute,
		},
		Retention: RetentionConfig{
			Days:     0, // keep everything
			Interval: time.Hour,
		},
		Notify: NotifyConfig{
			WebhookTimeout: 10 * time.Second,
			Buffer:         256,
		},
		Audit: AuditConfig{
			Enabled:       true,
			RetentionDays: 90,
			BufferSize:    1000,
		},
		Tasks: TasksConfig{
			DrainTimeout: 5 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
			File: LogFileConfig{
				MaxSizeMB:  100,
				MaxBackups: 5,
				MaxAgeDays: 30,
				Compress:   true,
			},
		},
		Supervisor: SupervisorConfig{
			FailureThreshold: 5,
			FailureBackoff:   15 * time.Second,
			ShutdownTimeout:  10 * time.Second,
		},
	}
}

// LoadWithKoanf loads configuration using Koanf v2 with layered sources.
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: Load defaults from struct
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: Load config file (optional)
	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: Load environment variables (highest priority)
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// findConfigFile searches for a config file in the default paths.
// Returns the path to the first file found, or empty string if none found.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envMappings maps environment variable names (lowercased) to koanf paths.
// Unmapped variables are ignored so unrelated environment cannot leak into
// the configuration.
var envMappings = map[string]string{
	// Server
	"port":               "server.port",
	"http_port":          "server.port",
	"http_host":          "server.host",
	"http_read_timeout":  "server.read_timeout",
	"http_write_timeout": "server.write_timeout",
	"http_idle_timeout":  "server.idle_timeout",

	// Catalog
	"database_path":      "database.path",
	"database_log_level": "database.log_level",

	// Storage
	"backup_storage_path": "storage.root",

	// Scheduler
	"scheduler_enabled":        "scheduler.enabled",
	"scheduler_check_interval": "scheduler.check_interval",
	"scheduler_timezone":       "scheduler.timezone",
	"tz":                       "scheduler.timezone",
	"scheduler_dispatch":       "scheduler.dispatch",
	"scheduler_internal_url":   "scheduler.internal_url",

	// Backup
	"prevent_overlap":          "backup.prevent_overlap",
	"backup_prevent_overlap":   "backup.prevent_overlap",
	"backup_compression_level": "backup.compression_level",

	// Reconcile
	"reconcile_enabled":  "reconcile.enabled",
	"reconcile_interval": "reconcile.interval",

	// Retention
	"retention_days":     "retention.days",
	"retention_interval": "retention.interval",

	// Notify
	"notify_webhook_url":     "notify.webhook_url",
	"notify_webhook_timeout": "notify.webhook_timeout",
	"notify_buffer":          "notify.buffer",

	// Audit
	"audit_enabled":        "audit.enabled",
	"audit_retention_days": "audit.retention_days",
	"audit_buffer_size":    "audit.buffer_size",

	// Security
	"api_token":                "security.api_token",
	"internal_scheduler_token": "security.internal_token",

	// Tasks
	"tasks_drain_timeout": "tasks.drain_timeout",

	// Logging
	"log_level":         "logging.level",
	"log_format":        "logging.format",
	"log_caller":        "logging.caller",
	"log_file":          "logging.file.path",
	"log_file_max_size": "logging.file.max_size_mb",
	"log_file_backups":  "logging.file.max_backups",
	"log_file_max_age":  "logging.file.max_age_days",
	"log_file_compress": "logging.file.compress",

	// Supervisor
	"supervisor_failure_threshold": "supervisor.failure_threshold",
	"supervisor_failure_backoff":   "supervisor.failure_backoff",
	"supervisor_shutdown_timeout":  "supervisor.shutdown_timeout",

	// Lock
	"lock_path": "lock.path",
}

// envTransformFunc transforms environment variable names to koanf config paths.
//
// Examples:
//   - BACKUP_STORAGE_PATH -> storage.root
//   - RETENTION_DAYS -> retention.days
//   - INTERNAL_SCHEDULER_TOKEN -> security.internal_token
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
