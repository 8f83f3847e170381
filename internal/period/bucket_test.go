package period

import (
	"testing"
	"time"
)

// assertCoverage checks that buckets tile [p.Start, p.End) with no gap and
// no overlap.
func assertCoverage(t *testing.T, p Period, buckets []Bucket) {
	t.Helper()
	if len(buckets) == 0 {
		t.Fatalf("no buckets for %v", p)
	}
	if !buckets[0].Start.Equal(p.Start) {
		t.Errorf("first bucket starts at %v, want %v", buckets[0].Start, p.Start)
	}
	if last := buckets[len(buckets)-1]; !last.End.Equal(p.End) {
		t.Errorf("last bucket ends at %v, want %v", last.End, p.End)
	}
	for i, b := range buckets {
		if !b.End.After(b.Start) {
			t.Errorf("bucket %d is empty: %v", i, b)
		}
		if i > 0 && !buckets[i-1].End.Equal(b.Start) {
			t.Errorf("gap or overlap between bucket %d and %d", i-1, i)
		}
	}
}

func TestBuckets(t *testing.T) {
	testCases := []struct {
		name  string
		typ   Type
		now   time.Time
		count int
		first string
		last  string
	}{
		{"week", Week, date(2024, time.March, 13), 7, "2024-03-11", "2024-03-17"},
		{"biweekly", Biweekly, date(2024, time.March, 13), 14, "2024-02-29", "2024-03-13"},
		{"month of 31 days", Month, date(2024, time.March, 13), 5, "2024-03-01", "2024-03-29"},
		{"leap february", Month, date(2024, time.February, 10), 5, "2024-02-01", "2024-02-29"},
		{"non-leap february", Month, date(2023, time.February, 10), 4, "2023-02-01", "2023-02-22"},
		{"year", Year, date(2024, time.June, 1), 12, "2024-01", "2024-12"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := Resolve(tc.typ, tc.now)
			if err != nil {
				t.Fatal(err)
			}
			buckets := Buckets(p)
			if len(buckets) != tc.count {
				t.Fatalf("got %d buckets, want %d", len(buckets), tc.count)
			}
			if buckets[0].Key != tc.first || buckets[len(buckets)-1].Key != tc.last {
				t.Errorf("keys %q..%q, want %q..%q", buckets[0].Key, buckets[len(buckets)-1].Key, tc.first, tc.last)
			}
			assertCoverage(t, p, buckets)
		})
	}
}

func TestBucketsCoverEveryMonth(t *testing.T) {
	for year := 2023; year <= 2024; year++ {
		for m := time.January; m <= time.December; m++ {
			p, err := Resolve(Month, date(year, m, 15))
			if err != nil {
				t.Fatal(err)
			}
			assertCoverage(t, p, Buckets(p))
		}
	}
}

func TestBucketsUnresolved(t *testing.T) {
	if got := Buckets(Period{}); got != nil {
		t.Errorf("expected nil buckets, got %v", got)
	}
}

func TestLocate(t *testing.T) {
	p, _ := Resolve(Month, date(2024, time.March, 13))
	buckets := Buckets(p)

	testCases := []struct {
		at   time.Time
		want int
	}{
		{date(2024, time.March, 1), 0},
		{date(2024, time.March, 7).Add(23 * time.Hour), 0},
		{date(2024, time.March, 8), 1},
		{date(2024, time.March, 31), 4},
		{date(2024, time.April, 1), -1},
		{date(2024, time.February, 29), -1},
	}
	for _, tc := range testCases {
		if got := Locate(buckets, tc.at); got != tc.want {
			t.Errorf("Locate(%v) = %d, want %d", tc.at, got, tc.want)
		}
	}
}
