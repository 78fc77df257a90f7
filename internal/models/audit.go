// VolumeVault - Scheduled Volume Backup Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/volumevault

package models

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// AuditLevel is the severity of an audit entry.
type AuditLevel string

const (
	AuditDebug   AuditLevel = "debug"
	AuditInfo    AuditLevel = "info"
	AuditSuccess AuditLevel = "success"
	AuditWarning AuditLevel = "warning"
	AuditError   AuditLevel = "error"
)

// AuditCategory groups audit entries by the subsystem that produced them.
type AuditCategory string

const (
	CategoryBackup    AuditCategory = "backup"
	CategoryRestore   AuditCategory = "restore"
	CategorySchedule  AuditCategory = "schedule"
	CategoryGroup     AuditCategory = "group"
	CategoryRetention AuditCategory = "retention"
	CategoryReconcile AuditCategory = "reconcile"
	CategorySystem    AuditCategory = "system"
)

// AuditDetails is free-form structured context stored as a JSON text column.
type AuditDetails map[string]interface{}

// Value implements driver.Valuer.
func (d AuditDetails) Value() (driver.Value, error) {
	if d == nil {
		return nil, nil
	}
	data, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("marshal audit details: %w", err)
	}
	return string(data), nil
}

// Scan implements sql.Scanner.
func (d *AuditDetails) Scan(src interface{}) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*d = nil
		return nil
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return fmt.Errorf("unsupported audit details type %T", src)
	}
	if len(data) == 0 {
		*d = nil
		return nil
	}
	return json.Unmarshal(data, d)
}

// AuditEntry is one row of the operational audit trail.
type AuditEntry struct {
	ID            string        `gorm:"type:text;primaryKey" json:"id"`
	Timestamp     time.Time     `gorm:"not null;index" json:"timestamp"`
	Level         AuditLevel    `gorm:"type:text;not null;index" json:"level"`
	Category      AuditCategory `gorm:"type:text;not null;index" json:"category"`
	Message       string        `gorm:"type:text;not null" json:"message"`
	Details       AuditDetails  `gorm:"type:text" json:"details,omitempty"`
	VolumeID      string        `gorm:"type:text;index" json:"volume_id,omitempty"`
	BackupID      string        `gorm:"type:text;index" json:"backup_id,omitempty"`
	CorrelationID string        `gorm:"type:text" json:"correlation_id,omitempty"`
}
