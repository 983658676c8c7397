package model

import (
	"strings"
	"time"
)

// Kind classifies how an Event supplies its occurrences. It is resolved once
// per event before any occurrence is generated.
type Kind int

const (
	// KindInvalid marks an event without any usable base day.
	KindInvalid Kind = iota
	// KindFixedAllDay is a single all-day event with an explicit date.
	KindFixedAllDay
	// KindFixedTimed is a single timed event; its day is taken from Start as written.
	KindFixedTimed
	// KindRecurring carries a recurrence rule anchored at its base day.
	KindRecurring
)

func (k Kind) String() string {
	switch k {
	case KindFixedAllDay:
		return "fixed_all_day"
	case KindFixedTimed:
		return "fixed_timed"
	case KindRecurring:
		return "recurring"
	default:
		return "invalid"
	}
}

// Event represents a logical calendar event before recurrence expansion,
// as read from the calendar export or an ICS source.
type Event struct {
	Source   string // input the event was read from (export path, ICS source ID)
	UID      string
	Calendar string

	// Title is the display string; it may embed parenthesized region tags,
	// e.g. "Family Day (AB, BC)".
	Title string

	AllDay bool

	// Date is the base day of an all-day event (zero if absent).
	Date time.Time
	// Start is the start of a timed event in the offset it was written with
	// (zero if absent).
	Start time.Time

	// Recurrence is the raw rule string, e.g. "FREQ=YEARLY;BYMONTH=5;BYDAY=-1MO".
	Recurrence string
}

// HasBaseDay reports whether the event supplies a day to anchor on.
func (e Event) HasBaseDay() bool {
	return (e.AllDay && !e.Date.IsZero()) || !e.Start.IsZero()
}

// BaseDay returns the calendar day the event is anchored on: Date for all-day
// events that carry one, otherwise the wall-clock day of Start in its own
// offset ("2026-07-01T20:00:00-07:00" is July 1).
func (e Event) BaseDay() time.Time {
	if e.AllDay && !e.Date.IsZero() {
		return DayOf(e.Date)
	}
	return DayOf(e.Start)
}

// Kind resolves which of the fixed/recurring variants this event is.
func (e Event) Kind() Kind {
	if !e.HasBaseDay() {
		return KindInvalid
	}
	if strings.TrimSpace(e.Recurrence) != "" {
		return KindRecurring
	}
	if e.AllDay && !e.Date.IsZero() {
		return KindFixedAllDay
	}
	return KindFixedTimed
}

// Occurrence represents a single concrete (date, title) instance of a holiday
// within the display window.
type Occurrence struct {
	Date  time.Time
	Title string
}

// Day builds a civil date. All dates in this module are midnight UTC so they
// compare and print without zone surprises.
func Day(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// DayOf truncates t to its calendar day, keeping the wall-clock date of t's
// own location.
func DayOf(t time.Time) time.Time {
	return Day(t.Year(), t.Month(), t.Day())
}

// ParseDate parses an ISO date ("2006-01-02").
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(time.DateOnly, strings.TrimSpace(s), time.UTC)
}

// dateTimeLayouts are the ISO 8601 date-time forms accepted for a start.
// Values without an offset are read as UTC.
var dateTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
}

// ParseDateTime parses an ISO 8601 date-time. The offset it was written with
// ("Z", "-07:00") is kept so the calendar day stays the one in the text.
func ParseDateTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	var firstErr error
	for _, layout := range dateTimeLayouts {
		t, err := time.ParseInLocation(layout, s, time.UTC)
		if err == nil {
			return t, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}

// DaysIn returns the number of days in the given month.
func DaysIn(year int, month time.Month) int {
	return Day(year, month+1, 0).Day()
}
