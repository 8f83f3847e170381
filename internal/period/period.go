// Package period resolves reporting periods and splits them into ordered,
// contiguous buckets.
package period

import (
	"fmt"
	"strings"
	"time"

	"finreport/internal/core"
)

// Type names a reporting period.
type Type string

const (
	Week     Type = "week"
	Biweekly Type = "biweekly"
	Month    Type = "month"
	Year     Type = "year"
)

// Granularity is the width of the buckets a period is split into.
type Granularity int

const (
	Daily Granularity = iota
	Weekly
	Monthly
)

func (g Granularity) String() string {
	switch g {
	case Daily:
		return "daily"
	case Weekly:
		return "weekly"
	case Monthly:
		return "monthly"
	default:
		return fmt.Sprintf("granularity(%d)", int(g))
	}
}

// Types returns the supported period types.
func Types() []Type {
	return []Type{Week, Biweekly, Month, Year}
}

// ParseType maps user input onto a period type.
func ParseType(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "week", "weekly":
		return Week, nil
	case "biweekly", "biweek", "fortnight":
		return Biweekly, nil
	case "month", "monthly":
		return Month, nil
	case "year", "yearly":
		return Year, nil
	default:
		return "", fmt.Errorf("%w: %q", core.ErrUnknownPeriodType, s)
	}
}

// Granularity returns the bucket width used for the period type.
func (t Type) Granularity() Granularity {
	switch t {
	case Month:
		return Weekly
	case Year:
		return Monthly
	default:
		return Daily
	}
}

// Period is a resolved, half-open date range [Start, End). The zero value is
// an unresolved period.
type Period struct {
	Type  Type      `json:"type"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Resolve computes the period of the given type that contains now. All
// calendar arithmetic happens in now's location.
//
//   - week: Monday 00:00 of the current week up to the next Monday
//   - biweekly: the trailing 14 calendar days, today included
//   - month: the current calendar month
//   - year: the current calendar year
func Resolve(t Type, now time.Time) (Period, error) {
	if now.IsZero() {
		return Period{}, &core.InvalidPeriodError{Now: now}
	}
	today := core.StartOfDay(now)
	y, m, _ := today.Date()
	loc := today.Location()

	var start, end time.Time
	switch t {
	case Week:
		offset := int(today.Weekday()+6) % 7 // days since Monday
		start = today.AddDate(0, 0, -offset)
		end = start.AddDate(0, 0, 7)
	case Biweekly:
		end = today.AddDate(0, 0, 1)
		start = end.AddDate(0, 0, -14)
	case Month:
		start = time.Date(y, m, 1, 0, 0, 0, 0, loc)
		end = start.AddDate(0, 1, 0)
	case Year:
		start = time.Date(y, time.January, 1, 0, 0, 0, 0, loc)
		end = start.AddDate(1, 0, 0)
	default:
		return Period{}, fmt.Errorf("%w: %q", core.ErrUnknownPeriodType, string(t))
	}
	return Period{Type: t, Start: start, End: end}, nil
}

// Valid reports whether the period has been resolved.
func (p Period) Valid() bool {
	return p.Type != "" && !p.Start.IsZero() && p.End.After(p.Start)
}

// Contains reports whether t falls inside [Start, End).
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && t.Before(p.End)
}

// Location is the location the period was resolved in.
func (p Period) Location() *time.Location {
	if p.Start.IsZero() {
		return time.UTC
	}
	return p.Start.Location()
}

// Key is a stable identity for the period, e.g. "month:2024-03-01".
func (p Period) Key() string {
	if !p.Valid() {
		return "unresolved"
	}
	return string(p.Type) + ":" + p.Start.Format(core.DateFormat)
}

// Filters returns record store filters restricted to the period range.
func (p Period) Filters(base core.Filters) core.Filters {
	base.StartDate = p.Start
	base.EndDate = p.End
	return base
}
