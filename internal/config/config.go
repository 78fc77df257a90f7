// VolumeVault - Scheduled Volume Backup Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/volumevault

package config

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Scheduler dispatch modes.
const (
	// DispatchDirect calls the trigger service in process
	DispatchDirect = "direct"

	// DispatchHTTP calls the trigger endpoints with the internal token
	DispatchHTTP = "http"
)

// Config holds all application configuration.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: Built-in defaults for every setting
//  2. Config File: Optional YAML file (CONFIG_PATH, config.yaml, /etc/volumevault/config.yaml)
//  3. Environment Variables: Explicitly mapped names override any setting
//
// Example:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    logging.Fatal().Err(err).Msg("Failed to load config")
//	}
//	store, err := catalog.Open(ctx, catalog.Config{Path: cfg.Database.Path})
//
// Config is immutable after Load() and safe for concurrent reads.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Database   DatabaseConfig   `koanf:"database"`
	Storage    StorageConfig    `koanf:"storage"`
	Scheduler  SchedulerConfig  `koanf:"scheduler"`
	Backup     BackupConfig     `koanf:"backup"`
	Reconcile  ReconcileConfig  `koanf:"reconcile"`
	Retention  RetentionConfig  `koanf:"retention"`
	Notify     NotifyConfig     `koanf:"notify"`
	Audit      AuditConfig      `koanf:"audit"`
	Security   SecurityConfig   `koanf:"security"`
	Tasks      TasksConfig      `koanf:"tasks"`
	Logging    LoggingConfig    `koanf:"logging"`
	Supervisor SupervisorConfig `koanf:"supervisor"`
	Lock       LockConfig       `koanf:"lock"`
}

// ServerConfig holds HTTP server settings.
//
// Environment Variables:
//   - HTTP_HOST (default: 0.0.0.0)
//   - PORT or HTTP_PORT (default: 3000)
//   - HTTP_READ_TIMEOUT, HTTP_WRITE_TIMEOUT, HTTP_IDLE_TIMEOUT
type ServerConfig struct {
	Host         string        `koanf:"host"`
	Port         int           `koanf:"port"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
	IdleTimeout  time.Duration `koanf:"idle_timeout"`
}

// Addr returns host:port for net.Listen.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// DatabaseConfig holds catalog database settings.
type DatabaseConfig struct {
	// Path is the SQLite file. Default: /data/volumevault.db
	Path string `koanf:"path"`

	// LogLevel is the gorm log level: silent, error, warn, info
	LogLevel string `koanf:"log_level"`
}

// StorageConfig holds the backup destination.
type StorageConfig struct {
	// Root is the directory archives are written to (BACKUP_STORAGE_PATH).
	// It may be a mount point.
	Root string `koanf:"root"`
}

// SchedulerConfig holds scheduler settings.
type SchedulerConfig struct {
	Enabled       bool          `koanf:"enabled"`
	CheckInterval time.Duration `koanf:"check_interval"`

	// Timezone is an IANA name; "Local" uses the host zone
	Timezone string `koanf:"timezone"`

	// Dispatch is "direct" or "http"
	Dispatch string `koanf:"dispatch"`

	// InternalURL is the API base URL used when Dispatch is "http".
	// Empty derives it from the server port on loopback.
	InternalURL string `koanf:"internal_url"`
}

// Location resolves Timezone.
func (s SchedulerConfig) Location() (*time.Location, error) {
	if s.Timezone == "" || s.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return nil, fmt.Errorf("unknown timezone %q: %w", s.Timezone, err)
	}
	return loc, nil
}

// BackupConfig holds backup execution settings.
type BackupConfig struct {
	// PreventOverlap refuses a trigger while the same volume or group is
	// still running
	PreventOverlap bool `koanf:"prevent_overlap"`

	// CompressionLevel is the gzip level, -1 for the library default
	CompressionLevel int `koanf:"compression_level"`
}

// ReconcileConfig holds orphan reconciler settings.
type ReconcileConfig struct {
	Enabled  bool          `koanf:"enabled"`
	Interval time.Duration `koanf:"interval"`
}

// RetentionConfig holds the backup retention policy.
type RetentionConfig struct {
	// Days keeps backups this many days; 0 keeps everything (RETENTION_DAYS)
	Days     int           `koanf:"days"`
	Interval time.Duration `koanf:"interval"`
}

// NotifyConfig holds event notification settings.
type NotifyConfig struct {
	// WebhookURL receives every event as a JSON POST. Empty disables it.
	WebhookURL     string        `koanf:"webhook_url"`
	WebhookTimeout time.Duration `koanf:"webhook_timeout"`

	// Buffer is the bus subscriber buffer size
	Buffer int64 `koanf:"buffer"`
}

// AuditConfig holds activity log settings.
type AuditConfig struct {
	Enabled       bool `koanf:"enabled"`
	RetentionDays int  `koanf:"retention_days"`
	BufferSize    int  `koanf:"buffer_size"`
}

// SecurityConfig holds API credentials.
//
// Environment Variables:
//   - API_TOKEN: operator bearer token (required)
//   - INTERNAL_SCHEDULER_TOKEN: token the scheduler sends on trigger endpoints
type SecurityConfig struct {
	APIToken      string `koanf:"api_token"`
	InternalToken string `koanf:"internal_token"`
}

// TasksConfig holds background task settings.
type TasksConfig struct {
	// DrainTimeout bounds the wait for running backups at shutdown
	DrainTimeout time.Duration `koanf:"drain_timeout"`
}

// LoggingConfig holds logging configuration.
//
// Environment Variables:
//   - LOG_LEVEL: trace, debug, info, warn, error (default: info)
//   - LOG_FORMAT: json, console (default: json)
//   - LOG_CALLER: include caller file:line (default: false)
//   - LOG_FILE: also write to this file, rotated by size
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`

	File LogFileConfig `koanf:"file"`
}

// LogFileConfig configures rotated file output.
type LogFileConfig struct {
	Path       string `koanf:"path"`
	MaxSizeMB  int    `koanf:"max_size_mb"`
	MaxBackups int    `koanf:"max_backups"`
	MaxAgeDays int    `koanf:"max_age_days"`
	Compress   bool   `koanf:"compress"`
}

// SupervisorConfig holds suture restart policy.
type SupervisorConfig struct {
	FailureThreshold float64       `koanf:"failure_threshold"`
	FailureBackoff   time.Duration `koanf:"failure_backoff"`
	ShutdownTimeout  time.Duration `koanf:"shutdown_timeout"`
}

// LockConfig holds the single-instance lock.
type LockConfig struct {
	// Path of the lock file. Empty places it next to the database.
	Path string `koanf:"path"`
}

// Load reads configuration with the following precedence (highest to lowest):
//  1. Environment variables
//  2. Config file
//  3. Built-in defaults
//
// The result is validated before it is returned.
func Load() (*Config, error) {
	return LoadWithKoanf()
}
