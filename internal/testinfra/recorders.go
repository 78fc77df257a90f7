// VolumeVault - Scheduled Volume Backup Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/volumevault

package testinfra

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/volumevault/internal/models"
	"github.com/tomtom215/volumevault/internal/notify"
)

// NotifiedEvent is one captured Notify call.
type NotifiedEvent struct {
	Type    notify.EventType
	Payload interface{}
}

// RecordingNotifier captures notifications in memory.
type RecordingNotifier struct {
	mu     sync.Mutex
	events []NotifiedEvent
}

// NewRecordingNotifier creates an empty recorder.
func NewRecordingNotifier() *RecordingNotifier {
	return &RecordingNotifier{}
}

// Notify implements notify.Notifier.
func (n *RecordingNotifier) Notify(_ context.Context, eventType notify.EventType, payload interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, NotifiedEvent{Type: eventType, Payload: payload})
}

// Events returns the captured events of the given type.
func (n *RecordingNotifier) Events(eventType notify.EventType) []NotifiedEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []NotifiedEvent
	for _, e := range n.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

// WaitFor polls until an event of the given type was captured.
func (n *RecordingNotifier) WaitFor(t *testing.T, eventType notify.EventType) NotifiedEvent {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		if got := n.Events(eventType); len(got) > 0 {
			return got[0]
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("no %s event was published", eventType)
	return NotifiedEvent{}
}

// RecordingAuditor captures audit entries synchronously.
type RecordingAuditor struct {
	mu      sync.Mutex
	entries []models.AuditEntry
}

// NewRecordingAuditor creates an empty recorder.
func NewRecordingAuditor() *RecordingAuditor {
	return &RecordingAuditor{}
}

// Log implements audit.Recorder.
func (a *RecordingAuditor) Log(_ context.Context, entry *models.AuditEntry) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, *entry)
}

// Entries returns captured entries in the given category (all when empty).
func (a *RecordingAuditor) Entries(category models.AuditCategory) []models.AuditEntry {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []models.AuditEntry
	for _, e := range a.entries {
		if category == "" || e.Category == category {
			out = append(out, e)
		}
	}
	return out
}
