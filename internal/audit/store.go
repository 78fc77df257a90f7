// VolumeVault - Scheduled Volume Backup Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/volumevault

package audit

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/tomtom215/volumevault/internal/models"
)

// MemoryStore implements Store using in-memory storage.
// Suitable for development and testing. Data is lost on restart.
type MemoryStore struct {
	entries []models.AuditEntry
	mu      sync.RWMutex
	maxLen  int
}

// NewMemoryStore creates a new in-memory audit store.
func NewMemoryStore(maxLen int) *MemoryStore {
	if maxLen <= 0 {
		maxLen = 10000
	}
	return &MemoryStore{
		entries: make([]models.AuditEntry, 0, maxLen),
		maxLen:  maxLen,
	}
}

// Save persists an audit entry.
func (s *MemoryStore) Save(_ context.Context, entry *models.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Enforce max length by removing oldest entries
	if len(s.entries) >= s.maxLen {
		// Remove oldest 10%
		removeCount := s.maxLen / 10
		if removeCount == 0 {
			removeCount = 1
		}
		s.entries = s.entries[removeCount:]
	}

	s.entries = append(s.entries, *entry)
	return nil
}

// Query retrieves entries matching the filter, newest first.
func (s *MemoryStore) Query(_ context.Context, filter QueryFilter) ([]models.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []models.AuditEntry
	skipped := 0

	for i := len(s.entries) - 1; i >= 0; i-- { // Iterate in reverse for recent-first
		entry := s.entries[i]

		if !matchesFilter(&entry, &filter) {
			continue
		}
		if skipped < filter.Offset {
			skipped++
			continue
		}

		results = append(results, entry)

		if filter.Limit > 0 && len(results) >= filter.Limit {
			break
		}
	}

	return results, nil
}

// matchesFilter returns true if the entry matches all filter criteria.
func matchesFilter(entry *models.AuditEntry, filter *QueryFilter) bool {
	if len(filter.Categories) > 0 && !contains(filter.Categories, entry.Category) {
		return false
	}
	if len(filter.Levels) > 0 && !contains(filter.Levels, entry.Level) {
		return false
	}
	if filter.VolumeID != "" && entry.VolumeID != filter.VolumeID {
		return false
	}
	if filter.BackupID != "" && entry.BackupID != filter.BackupID {
		return false
	}
	if filter.CorrelationID != "" && entry.CorrelationID != filter.CorrelationID {
		return false
	}
	if filter.StartTime != nil && entry.Timestamp.Before(*filter.StartTime) {
		return false
	}
	if filter.EndTime != nil && !entry.Timestamp.Before(*filter.EndTime) {
		return false
	}
	if filter.SearchText != "" &&
		!strings.Contains(strings.ToLower(entry.Message), strings.ToLower(filter.SearchText)) {
		return false
	}
	return true
}

func contains[T comparable](values []T, v T) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

// Count returns the number of entries matching the filter.
func (s *MemoryStore) Count(_ context.Context, filter QueryFilter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for i := range s.entries {
		if matchesFilter(&s.entries[i], &filter) {
			count++
		}
	}

	return count, nil
}

// Delete removes entries older than the given time.
func (s *MemoryStore) Delete(_ context.Context, olderThan time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var kept []models.AuditEntry
	var deleted int64

	for idx := range s.entries {
		if s.entries[idx].Timestamp.Before(olderThan) {
			deleted++
		} else {
			kept = append(kept, s.entries[idx])
		}
	}

	s.entries = kept
	return deleted, nil
}

// Stats returns statistics for the memory store.
func (s *MemoryStore) Stats(_ context.Context) (*Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &Stats{
		TotalEntries:      int64(len(s.entries)),
		EntriesByLevel:    make(map[string]int64),
		EntriesByCategory: make(map[string]int64),
	}

	for idx := range s.entries {
		entry := &s.entries[idx]
		stats.EntriesByLevel[string(entry.Level)]++
		stats.EntriesByCategory[string(entry.Category)]++

		if stats.OldestEntry == nil || entry.Timestamp.Before(*stats.OldestEntry) {
			t := entry.Timestamp
			stats.OldestEntry = &t
		}
		if stats.NewestEntry == nil || entry.Timestamp.After(*stats.NewestEntry) {
			t := entry.Timestamp
			stats.NewestEntry = &t
		}
	}

	return stats, nil
}

// Clear removes all entries (for testing).
func (s *MemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = s.entries[:0]
}

// Len returns the number of stored entries.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
