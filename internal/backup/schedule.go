// Redis Backup Service - Scheduled Redis Snapshots, Retention and Restore
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/redisbackup

package backup

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultScheduleExpression runs a backup every day at 02:00.
const DefaultScheduleExpression = "0 2 * * *"

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Schedule is an immutable, parsed 5-field cron expression bound to a location.
type Schedule struct {
	expr     string
	location *time.Location
	sched    cron.Schedule
}

// NewSchedule parses expr. A nil location means UTC.
func NewSchedule(expr string, location *time.Location) (Schedule, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return Schedule{}, NewError(KindConfiguration, "schedule.parse", "cron expression is empty")
	}
	if location == nil {
		location = time.UTC
	}
	sched, err := cronParser.Parse(expr)
	if err != nil {
		return Schedule{}, &Error{
			Kind:    KindConfiguration,
			Op:      "schedule.parse",
			Message: fmt.Sprintf("invalid cron expression %q", expr),
			Err:     err,
		}
	}
	return Schedule{expr: expr, location: location, sched: sched}, nil
}

// NewScheduleInZone is NewSchedule with the location given by IANA name.
func NewScheduleInZone(expr, zone string) (Schedule, error) {
	loc := time.UTC
	if zone != "" {
		var err error
		loc, err = time.LoadLocation(zone)
		if err != nil {
			return Schedule{}, &Error{
				Kind:    KindConfiguration,
				Op:      "schedule.parse",
				Message: fmt.Sprintf("unknown timezone %q", zone),
				Err:     err,
			}
		}
	}
	return NewSchedule(expr, loc)
}

// Expression returns the cron expression as configured.
func (s Schedule) Expression() string {
	return s.expr
}

// Location returns the time zone the expression is evaluated in.
func (s Schedule) Location() *time.Location {
	if s.location == nil {
		return time.UTC
	}
	return s.location
}

// IsZero reports whether s was never parsed.
func (s Schedule) IsZero() bool {
	return s.sched == nil
}

// NextAfter returns the first trigger instant strictly after t.
func (s Schedule) NextAfter(t time.Time) time.Time {
	if s.sched == nil {
		return time.Time{}
	}
	return s.sched.Next(t.In(s.Location()))
}

// IsTriggeredAt reports whether the calendar minute containing t is a trigger
// minute.
func (s Schedule) IsTriggeredAt(t time.Time) bool {
	if s.sched == nil {
		return false
	}
	next := s.NextAfter(t.Add(-time.Minute))
	return next.Truncate(time.Minute).Equal(t.Truncate(time.Minute))
}

func (s Schedule) String() string {
	return s.expr
}
