package period

import (
	"errors"
	"testing"
	"time"

	"finreport/internal/core"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestResolve(t *testing.T) {
	now := time.Date(2024, time.March, 13, 15, 30, 0, 0, time.UTC) // a Wednesday

	testCases := []struct {
		typ   Type
		start time.Time
		end   time.Time
	}{
		{Week, date(2024, time.March, 11), date(2024, time.March, 18)},
		{Biweekly, date(2024, time.February, 29), date(2024, time.March, 14)},
		{Month, date(2024, time.March, 1), date(2024, time.April, 1)},
		{Year, date(2024, time.January, 1), date(2025, time.January, 1)},
	}
	for _, tc := range testCases {
		t.Run(string(tc.typ), func(t *testing.T) {
			p, err := Resolve(tc.typ, now)
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if !p.Start.Equal(tc.start) || !p.End.Equal(tc.end) {
				t.Errorf("Resolve() = [%v, %v), want [%v, %v)", p.Start, p.End, tc.start, tc.end)
			}
			if !p.Contains(now) {
				t.Errorf("period does not contain now")
			}
		})
	}
}

func TestResolveWeekOnSunday(t *testing.T) {
	now := time.Date(2024, time.March, 17, 23, 59, 0, 0, time.UTC) // Sunday
	p, err := Resolve(Week, now)
	if err != nil {
		t.Fatal(err)
	}
	if want := date(2024, time.March, 11); !p.Start.Equal(want) {
		t.Errorf("week start = %v, want %v", p.Start, want)
	}
}

func TestResolveKeepsLocation(t *testing.T) {
	loc := time.FixedZone("UTC+10", 10*3600)
	now := time.Date(2024, time.January, 1, 5, 0, 0, 0, loc)
	p, err := Resolve(Month, now)
	if err != nil {
		t.Fatal(err)
	}
	if p.Location() != loc {
		t.Errorf("location = %v, want %v", p.Location(), loc)
	}
	if p.Start.Month() != time.January {
		t.Errorf("month resolved in the wrong zone: %v", p.Start)
	}
}

func TestResolveInvalidNow(t *testing.T) {
	_, err := Resolve(Month, time.Time{})
	var ipe *core.InvalidPeriodError
	if !errors.As(err, &ipe) {
		t.Fatalf("expected InvalidPeriodError, got %v", err)
	}
}

func TestResolveUnknownType(t *testing.T) {
	_, err := Resolve(Type("quarter"), time.Now())
	if !errors.Is(err, core.ErrUnknownPeriodType) {
		t.Fatalf("expected ErrUnknownPeriodType, got %v", err)
	}
}

func TestResolveIsDeterministic(t *testing.T) {
	now := time.Date(2024, time.July, 4, 9, 0, 0, 0, time.UTC)
	for _, typ := range Types() {
		a, _ := Resolve(typ, now)
		b, _ := Resolve(typ, now)
		if a != b {
			t.Errorf("%s: %v != %v", typ, a, b)
		}
	}
}

func TestParseType(t *testing.T) {
	testCases := []struct {
		in   string
		want Type
		err  bool
	}{
		{"week", Week, false},
		{"Weekly", Week, false},
		{"biweekly", Biweekly, false},
		{"fortnight", Biweekly, false},
		{"MONTH", Month, false},
		{"yearly", Year, false},
		{"quarter", "", true},
		{"", "", true},
	}
	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseType(tc.in)
			if (err != nil) != tc.err {
				t.Fatalf("ParseType(%q) error = %v, wantErr %v", tc.in, err, tc.err)
			}
			if got != tc.want {
				t.Errorf("ParseType(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestPeriodKey(t *testing.T) {
	p, _ := Resolve(Month, time.Date(2024, time.March, 13, 0, 0, 0, 0, time.UTC))
	if got := p.Key(); got != "month:2024-03-01" {
		t.Errorf("Key() = %q", got)
	}
	if got := (Period{}).Key(); got != "unresolved" {
		t.Errorf("zero Key() = %q", got)
	}
}
