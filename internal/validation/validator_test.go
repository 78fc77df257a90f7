// VolumeVault - Scheduled Volume Backup Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/volumevault

package validation

import (
	"errors"
	"strings"
	"testing"

	"github.com/tomtom215/volumevault/internal/models"
)

// ===================================================================================================
// Singleton Validator Tests
// ===================================================================================================

func TestGetValidator_Singleton(t *testing.T) {
	v1 := GetValidator()
	v2 := GetValidator()

	if v1 == nil {
		t.Fatal("GetValidator() should not return nil")
	}
	if v1 != v2 {
		t.Error("GetValidator() should return the same singleton instance")
	}
}

// ===================================================================================================
// Custom Tag Tests
// ===================================================================================================

type scheduleInput struct {
	Frequency models.Frequency `json:"frequency" validate:"required,frequency"`
	TimeOfDay string           `json:"time_of_day" validate:"required,timeofday"`
}

type volumeInput struct {
	Name string `json:"name" validate:"required,volumename,max=128"`
	Path string `json:"path" validate:"required,abspath"`
}

type membersInput struct {
	VolumeIDs []string `json:"volume_ids" validate:"unique,dive,required"`
}

func TestCustomTags(t *testing.T) {
	tests := []struct {
		name      string
		input     interface{}
		wantField string
		wantTag   string
	}{
		{"valid schedule", &scheduleInput{Frequency: "daily", TimeOfDay: "02:30"}, "", ""},
		{"valid schedule with seconds", &scheduleInput{Frequency: "hourly", TimeOfDay: "00:05:00"}, "", ""},
		{"unknown frequency", &scheduleInput{Frequency: "yearly", TimeOfDay: "02:30"}, "frequency", "frequency"},
		{"hour out of range", &scheduleInput{Frequency: "daily", TimeOfDay: "24:00"}, "time_of_day", "timeofday"},
		{"garbage time", &scheduleInput{Frequency: "daily", TimeOfDay: "noon"}, "time_of_day", "timeofday"},
		{"missing time", &scheduleInput{Frequency: "daily"}, "time_of_day", "required"},
		{"valid volume", &volumeInput{Name: "media", Path: "/srv/media"}, "", ""},
		{"relative path", &volumeInput{Name: "media", Path: "srv/media"}, "path", "abspath"},
		{"name with separator", &volumeInput{Name: "a/b", Path: "/srv"}, "name", "volumename"},
		{"dot name", &volumeInput{Name: "..", Path: "/srv"}, "name", "volumename"},
		{"name too long", &volumeInput{Name: strings.Repeat("x", 129), Path: "/srv"}, "name", "max"},
		{"empty member list", &membersInput{VolumeIDs: []string{}}, "", ""},
		{"duplicate members", &membersInput{VolumeIDs: []string{"a", "a"}}, "volume_ids", "unique"},
		{"blank member", &membersInput{VolumeIDs: []string{"a", ""}}, "volume_ids[1]", "required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verr := ValidateStruct(tt.input)
			if tt.wantField == "" {
				if verr != nil {
					t.Fatalf("ValidateStruct() unexpected error: %v", verr)
				}
				return
			}
			if verr == nil {
				t.Fatal("ValidateStruct() expected an error")
			}
			got := verr.Errors()[0]
			if got.Field() != tt.wantField || got.Tag() != tt.wantTag {
				t.Errorf("error = %s/%s, want %s/%s", got.Field(), got.Tag(), tt.wantField, tt.wantTag)
			}
		})
	}
}

// ===================================================================================================
// Error Conversion Tests
// ===================================================================================================

func TestValidate_MatchesErrInvalidInput(t *testing.T) {
	err := Validate(&volumeInput{Name: "media", Path: "relative"})
	if !errors.Is(err, models.ErrInvalidInput) {
		t.Errorf("Validate() error = %v, want ErrInvalidInput", err)
	}

	var verr *RequestValidationError
	if !errors.As(err, &verr) || len(verr.Errors()) != 1 {
		t.Errorf("errors.As() did not yield a single-field RequestValidationError")
	}

	if err := Validate(&volumeInput{Name: "media", Path: "/srv/media"}); err != nil {
		t.Errorf("Validate() on valid input = %v, want nil", err)
	}
}

func TestToAPIError_SingleError(t *testing.T) {
	verr := ValidateStruct(&scheduleInput{Frequency: "daily", TimeOfDay: "25:00"})
	if verr == nil {
		t.Fatal("expected validation error")
	}

	apiErr := verr.ToAPIError()
	if apiErr.Code != Code {
		t.Errorf("Code = %q, want %q", apiErr.Code, Code)
	}
	if !strings.Contains(apiErr.Message, "time_of_day") {
		t.Errorf("Message = %q, want the JSON field name", apiErr.Message)
	}
	if apiErr.Details["field"] != "time_of_day" || apiErr.Details["value"] != "25:00" {
		t.Errorf("Details = %v", apiErr.Details)
	}
}

func TestToAPIError_MultipleErrors(t *testing.T) {
	verr := ValidateStruct(&volumeInput{})
	if verr == nil {
		t.Fatal("expected validation error")
	}

	apiErr := verr.ToAPIError()
	fields, ok := apiErr.Details["fields"].([]map[string]interface{})
	if !ok || len(fields) != 2 {
		t.Fatalf("Details[fields] = %v, want two entries", apiErr.Details["fields"])
	}
	if !strings.Contains(apiErr.Message, "name: ") || !strings.Contains(apiErr.Message, "path: ") {
		t.Errorf("Message = %q, want both fields listed", apiErr.Message)
	}
}

func TestToAPIError_Empty(t *testing.T) {
	verr := &RequestValidationError{}
	if verr.Error() != "validation failed" {
		t.Errorf("Error() = %q", verr.Error())
	}
	if apiErr := verr.ToAPIError(); apiErr.Code != Code || apiErr.Message != "Validation failed" {
		t.Errorf("ToAPIError() = %+v", apiErr)
	}
}

// ===================================================================================================
// Message Translation Tests
// ===================================================================================================

func TestErrorMessages(t *testing.T) {
	type limits struct {
		Limit int      `json:"limit" validate:"min=1,max=500"`
		Mode  string   `json:"mode" validate:"omitempty,oneof=full selective"`
		Paths []string `json:"paths" validate:"max=2"`
	}

	tests := []struct {
		name  string
		input limits
		want  string
	}{
		{"numeric min", limits{Limit: 0}, "limit must be at least 1"},
		{"numeric max", limits{Limit: 501}, "limit must be at most 500"},
		{"oneof", limits{Limit: 1, Mode: "partial"}, "mode must be one of: full selective"},
		{"slice max", limits{Limit: 1, Paths: []string{"a", "b", "c"}}, "paths must be at most 2 items"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verr := ValidateStruct(&tt.input)
			if verr == nil {
				t.Fatal("expected validation error")
			}
			if got := verr.Errors()[0].Error(); got != tt.want {
				t.Errorf("message = %q, want %q", got, tt.want)
			}
		})
	}
}
