package models

import (
	"strings"
	"time"
)

// Timestamp is a point in time as supplied by the record store. It is kept
// in its raw textual form because upstream data is not guaranteed to be
// well formed; malformed values behave exactly like absent ones.
type Timestamp string

// zonedLayouts carry their own offset.
var zonedLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04Z07:00",
}

// localLayouts are interpreted in the caller's location.
var localLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

const dateLayout = "2006-01-02"

// NewTimestamp formats t as an RFC 3339 timestamp.
func NewTimestamp(t time.Time) Timestamp {
	if t.IsZero() {
		return ""
	}
	return Timestamp(t.Format(time.RFC3339))
}

// DateTimestamp formats t as a date-only timestamp.
func DateTimestamp(t time.Time) Timestamp {
	if t.IsZero() {
		return ""
	}
	return Timestamp(t.Format(dateLayout))
}

// IsZero reports whether no value was supplied.
func (ts Timestamp) IsZero() bool { return strings.TrimSpace(string(ts)) == "" }

// String returns the raw value.
func (ts Timestamp) String() string { return string(ts) }

// Parse returns the instant ts denotes. Values without an offset are read in
// loc (time.Local when nil). ok is false for empty or unparseable input.
func (ts Timestamp) Parse(loc *time.Location) (t time.Time, ok bool) {
	s := strings.TrimSpace(string(ts))
	if s == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Valid reports whether ts parses.
func (ts Timestamp) Valid() bool {
	_, ok := ts.Parse(time.UTC)
	return ok
}

// Date returns the local calendar day of ts at midnight in loc. Besides every
// form Parse accepts, it reads any value whose first ten characters are a
// YYYY-MM-DD date.
func (ts Timestamp) Date(loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.Local
	}
	if t, ok := ts.Parse(loc); ok {
		return StartOfDay(t.In(loc)), true
	}
	s := strings.TrimSpace(string(ts))
	if len(s) < len(dateLayout) {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(dateLayout, s[:len(dateLayout)], loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// AtClock returns the calendar day of t at hour:00 in t's location.
func AtClock(t time.Time, hour int) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, hour, 0, 0, 0, t.Location())
}
