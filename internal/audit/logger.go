// VolumeVault - Scheduled Volume Backup Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/volumevault

package audit

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tomtom215/volumevault/internal/logging"
	"github.com/tomtom215/volumevault/internal/metrics"
	"github.com/tomtom215/volumevault/internal/models"
)

// Config holds configuration for the audit logger.
type Config struct {
	// Enabled controls whether audit logging is active.
	Enabled bool `json:"enabled"`

	// LogLevel filters entries by minimum level.
	LogLevel models.AuditLevel `json:"log_level"`

	// RetentionDays is how long to keep entries. 0 keeps them forever.
	RetentionDays int `json:"retention_days"`

	// CleanupInterval is how often to run retention cleanup.
	CleanupInterval time.Duration `json:"cleanup_interval"`

	// BufferSize is the size of the async write buffer.
	BufferSize int `json:"buffer_size"`

	// LogToStdout also writes entries to the process log.
	LogToStdout bool `json:"log_to_stdout"`

	// IncludeDebug includes debug-level entries.
	IncludeDebug bool `json:"include_debug"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Enabled:         true,
		LogLevel:        models.AuditInfo,
		RetentionDays:   90,
		CleanupInterval: 24 * time.Hour,
		BufferSize:      1000,
		LogToStdout:     false,
		IncludeDebug:    false,
	}
}

// Logger is the asynchronous audit trail writer.
type Logger struct {
	config    *Config
	store     Store
	entryChan chan *models.AuditEntry
	mu        sync.RWMutex
	stopChan  chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
	logger    zerolog.Logger
}

// NewLogger creates a new audit logger and starts its writer.
func NewLogger(store Store, config *Config) *Logger {
	if config == nil {
		config = DefaultConfig()
	}
	if config.BufferSize <= 0 {
		config.BufferSize = DefaultConfig().BufferSize
	}
	if config.LogLevel == "" {
		config.LogLevel = models.AuditInfo
	}

	l := &Logger{
		config:    config,
		store:     store,
		entryChan: make(chan *models.AuditEntry, config.BufferSize),
		stopChan:  make(chan struct{}),
		logger:    logging.WithComponent("audit"),
	}

	l.wg.Add(1)
	go l.asyncWriter()

	return l
}

// asyncWriter processes entries from the buffer.
func (l *Logger) asyncWriter() {
	defer l.wg.Done()

	for {
		select {
		case <-l.stopChan:
			// Drain remaining entries
			for {
				select {
				case entry := <-l.entryChan:
					l.writeEntry(entry)
				default:
					return
				}
			}
		case entry := <-l.entryChan:
			l.writeEntry(entry)
		}
	}
}

// writeEntry persists an entry to the store.
func (l *Logger) writeEntry(entry *models.AuditEntry) {
	l.mu.RLock()
	config := l.config
	l.mu.RUnlock()

	if config.LogToStdout {
		l.logger.Info().
			Str("level", string(entry.Level)).
			Str("category", string(entry.Category)).
			Str("volume_id", entry.VolumeID).
			Str("backup_id", entry.BackupID).
			Interface("details", entry.Details).
			Msg(entry.Message)
	}

	if l.store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := l.store.Save(ctx, entry); err != nil {
			l.logger.Error().Err(err).Str("entry_id", entry.ID).Msg("Failed to save audit entry")
		}
	}
}

// Log records an audit entry. It never blocks; entries are dropped when the
// buffer is full.
func (l *Logger) Log(ctx context.Context, entry *models.AuditEntry) {
	l.mu.RLock()
	config := l.config
	l.mu.RUnlock()

	if !config.Enabled || entry == nil {
		return
	}

	if !shouldLog(entry.Level, config) {
		return
	}

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	if entry.CorrelationID == "" && ctx != nil {
		entry.CorrelationID = logging.CorrelationIDFromContext(ctx)
	}

	select {
	case <-l.stopChan:
		return
	default:
	}

	select {
	case l.entryChan <- entry:
	default:
		metrics.RecordAuditDropped()
		l.logger.Warn().Str("entry_id", entry.ID).Msg("Audit buffer full, dropping entry")
	}
}

// shouldLog returns true if the level meets the configured minimum.
func shouldLog(level models.AuditLevel, config *Config) bool {
	if level == models.AuditDebug && !config.IncludeDebug {
		return false
	}
	rank, ok := levelOrder[level]
	if !ok {
		return false
	}
	return rank >= levelOrder[config.LogLevel]
}

// Close stops accepting entries and flushes the buffer.
func (l *Logger) Close() error {
	l.stopOnce.Do(func() { close(l.stopChan) })
	l.wg.Wait()
	return nil
}

// Cleanup deletes entries older than the retention period once.
func (l *Logger) Cleanup(ctx context.Context) (int64, error) {
	l.mu.RLock()
	retention := l.config.RetentionDays
	l.mu.RUnlock()

	if retention <= 0 || l.store == nil {
		return 0, nil
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -retention)
	return l.store.Delete(ctx, cutoff)
}

// Serve runs the retention cleanup on its interval until ctx is canceled.
// It implements suture.Service.
func (l *Logger) Serve(ctx context.Context) error {
	l.mu.RLock()
	interval := l.config.CleanupInterval
	l.mu.RUnlock()
	if interval <= 0 {
		interval = DefaultConfig().CleanupInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			count, err := l.Cleanup(ctx)
			if err != nil {
				l.logger.Error().Err(err).Msg("Audit cleanup error")
			} else if count > 0 {
				l.logger.Info().Int64("count", count).Msg("Cleaned up old audit entries")
			}
		}
	}
}

// String implements fmt.Stringer for supervisor logs.
func (l *Logger) String() string {
	return "audit-cleanup"
}

// Query retrieves entries matching the filter.
func (l *Logger) Query(ctx context.Context, filter QueryFilter) ([]models.AuditEntry, error) {
	return l.store.Query(ctx, filter)
}

// Count returns the number of entries matching the filter.
func (l *Logger) Count(ctx context.Context, filter QueryFilter) (int64, error) {
	return l.store.Count(ctx, filter)
}

// Clear deletes entries older than cutoff, or every entry written so far
// when cutoff is nil. It returns the number removed.
func (l *Logger) Clear(ctx context.Context, cutoff *time.Time) (int64, error) {
	if l.store == nil {
		return 0, nil
	}
	before := time.Now().UTC()
	if cutoff != nil {
		before = cutoff.UTC()
	}
	deleted, err := l.store.Delete(ctx, before)
	if err != nil {
		return 0, err
	}
	l.logger.Info().Int64("count", deleted).Time("before", before).Msg("Audit log cleared")
	return deleted, nil
}

// Stats summarizes the stored entries.
func (l *Logger) Stats(ctx context.Context) (*Stats, error) {
	return l.store.Stats(ctx)
}

// SetEnabled enables or disables audit logging.
func (l *Logger) SetEnabled(enabled bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.config.Enabled = enabled
}

// Enabled returns whether audit logging is enabled.
func (l *Logger) Enabled() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.config.Enabled
}

// Entry builds an entry for the common case.
func Entry(level models.AuditLevel, category models.AuditCategory, message string, details models.AuditDetails) *models.AuditEntry {
	return &models.AuditEntry{
		Level:    level,
		Category: category,
		Message:  message,
		Details:  details,
	}
}

// Nop discards every entry.
type Nop struct{}

// Log implements Recorder.
func (Nop) Log(context.Context, *models.AuditEntry) {}
