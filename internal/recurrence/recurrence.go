// VolumeVault - Scheduled Volume Backup Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/volumevault

// Package recurrence decides whether a schedule or schedule group is due.
//
// An item is due only inside a one-minute window around its time of day;
// the tolerance absorbs the scheduler's own tick granularity. Inside the
// window an item that never ran is due, otherwise the frequency rule
// decides based on the time elapsed since the last run:
//
//	hourly   elapsed >= 1h
//	daily    elapsed >= 24h and a different day of the month
//	weekly   whole days elapsed >= 7
//	monthly  a different (month, year) and elapsed >= 24h
//
// Unknown frequencies are never due.
package recurrence

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tomtom215/volumevault/internal/models"
)

// WindowMinutes is the tolerance around the scheduled minute of day.
const WindowMinutes = 1

// TimeOfDay is a wall-clock time without a date.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// MinutesOfDay returns the minutes since midnight.
func (t TimeOfDay) MinutesOfDay() int {
	return t.Hour*60 + t.Minute
}

// String formats the time as HH:MM.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// ParseTimeOfDay parses "HH:MM" or "HH:MM:SS". Seconds are accepted and ignored.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 && len(parts) != 3 {
		return TimeOfDay{}, fmt.Errorf("invalid time of day %q: expected HH:MM", s)
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return TimeOfDay{}, fmt.Errorf("invalid hour in time of day %q", s)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return TimeOfDay{}, fmt.Errorf("invalid minute in time of day %q", s)
	}
	if len(parts) == 3 {
		sec, err := strconv.Atoi(parts[2])
		if err != nil || sec < 0 || sec > 59 {
			return TimeOfDay{}, fmt.Errorf("invalid second in time of day %q", s)
		}
	}

	return TimeOfDay{Hour: hour, Minute: minute}, nil
}

// InWindow reports whether now is within WindowMinutes of the scheduled time.
// The distance does not wrap around midnight.
func InWindow(scheduled TimeOfDay, now time.Time) bool {
	nowMinutes := now.Hour()*60 + now.Minute()
	diff := nowMinutes - scheduled.MinutesOfDay()
	if diff < 0 {
		diff = -diff
	}
	return diff <= WindowMinutes
}

// IsDue reports whether an item with the given recurrence should fire at now.
// lastRun is interpreted in now's location. An unparsable timeOfDay is never due.
func IsDue(frequency models.Frequency, timeOfDay string, lastRun *time.Time, now time.Time) bool {
	scheduled, err := ParseTimeOfDay(timeOfDay)
	if err != nil {
		return false
	}
	return IsDueAt(frequency, scheduled, lastRun, now)
}

// IsDueAt is IsDue with an already parsed time of day.
func IsDueAt(frequency models.Frequency, scheduled TimeOfDay, lastRun *time.Time, now time.Time) bool {
	if !InWindow(scheduled, now) {
		return false
	}
	if lastRun == nil || lastRun.IsZero() {
		return true
	}

	last := lastRun.In(now.Location())
	elapsed := now.Sub(last)

	switch frequency {
	case models.FrequencyHourly:
		return elapsed >= time.Hour
	case models.FrequencyDaily:
		return elapsed >= 24*time.Hour && last.Day() != now.Day()
	case models.FrequencyWeekly:
		return int64(elapsed/(24*time.Hour)) >= 7
	case models.FrequencyMonthly:
		differentMonth := last.Month() != now.Month() || last.Year() != now.Year()
		return differentMonth && elapsed >= 24*time.Hour
	default:
		return false
	}
}
