package core

import (
	"strings"
	"time"
)

// DateFormat is the ISO-8601 calendar date layout used on every boundary.
const DateFormat = "2006-01-02"

// Layouts without a zone are interpreted in the caller's location.
var localLayouts = []string{
	DateFormat,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
}

var zonedLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05Z07:00",
}

// ParseDate parses an ISO-8601 date or timestamp. Zoned timestamps are
// converted into loc; date-only and zone-less values are read as local to
// loc. A nil loc means UTC.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	v := strings.TrimSpace(s)
	if v == "" {
		return time.Time{}, &MalformedDateError{Value: s}
	}
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t.In(loc), nil
		}
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, v, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, &MalformedDateError{Value: s}
}

// CalendarDay returns the year-month-day of t in loc.
func CalendarDay(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(DateFormat)
}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
