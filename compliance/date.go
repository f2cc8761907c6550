package compliance

import (
	"strings"
	"time"
)

// =============================================================================
// DATE - Calendar-day abstraction (all engine rules operate on whole days)
// =============================================================================

// Date is a calendar date at day granularity. The engine never looks at the
// wall clock: every evaluation receives an explicit as-of Date.
type Date struct {
	t time.Time
}

const isoDateLayout = "2006-01-02"

// NewDate builds a Date from components.
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses an ISO YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(isoDateLayout, s)
	if err != nil {
		return Date{}, err
	}
	return Date{t: t}, nil
}

// MustParseDate parses an ISO date or panics. Use in tests and seed data.
func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic("compliance: invalid date: " + s)
	}
	return d
}

// DateOfTimestamp extracts the calendar date from an ISO-8601 timestamp by
// its date prefix. Timestamps that are too short yield a zero Date.
func DateOfTimestamp(ts string) Date {
	if len(ts) < len(isoDateLayout) {
		return Date{}
	}
	d, err := ParseDate(ts[:len(isoDateLayout)])
	if err != nil {
		return Date{}
	}
	return d
}

// Today returns the current date in UTC. Only callers at the system boundary
// (handlers, scheduler) should use this; the engine takes dates explicitly.
func Today() Date {
	now := time.Now().UTC()
	return NewDate(now.Year(), now.Month(), now.Day())
}

// Comparison
func (d Date) Before(other Date) bool        { return d.t.Before(other.t) }
func (d Date) After(other Date) bool         { return d.t.After(other.t) }
func (d Date) Equal(other Date) bool         { return d.t.Equal(other.t) }
func (d Date) BeforeOrEqual(other Date) bool { return !d.After(other) }
func (d Date) AfterOrEqual(other Date) bool  { return !d.Before(other) }
func (d Date) IsZero() bool                  { return d.t.IsZero() }

// Arithmetic
func (d Date) AddDays(n int) Date { return Date{t: d.t.AddDate(0, 0, n)} }

// Properties
func (d Date) Year() int         { return d.t.Year() }
func (d Date) Month() time.Month { return d.t.Month() }
func (d Date) Day() int          { return d.t.Day() }

// ISOWeekday returns the ISO-8601 weekday: Monday=1 .. Sunday=7.
func (d Date) ISOWeekday() int {
	wd := int(d.t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

// IsWeekend reports whether the date falls on ISO weekday 6 or 7.
func (d Date) IsWeekend() bool { return d.ISOWeekday() >= 6 }

func (d Date) String() string { return d.t.Format(isoDateLayout) }

// MatchesTimestamp reports whether an ISO-8601 timestamp falls on this date
// (prefix comparison, the convention used throughout the record set).
func (d Date) MatchesTimestamp(ts string) bool {
	return strings.HasPrefix(ts, d.String())
}

// =============================================================================
// DATE RANGE - Inclusive [Start, End] window
// =============================================================================

type DateRange struct {
	Start Date
	End   Date
}

// Contains reports whether d lies within [Start, End].
func (r DateRange) Contains(d Date) bool {
	return d.AfterOrEqual(r.Start) && d.BeforeOrEqual(r.End)
}

// Days returns every date in the range, inclusive.
func (r DateRange) Days() []Date {
	var days []Date
	for cur := r.Start; cur.BeforeOrEqual(r.End); cur = cur.AddDays(1) {
		days = append(days, cur)
	}
	return days
}

func (r DateRange) String() string {
	return "[" + r.Start.String() + ", " + r.End.String() + "]"
}
