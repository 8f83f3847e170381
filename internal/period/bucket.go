package period

import (
	"sort"
	"time"
)

// Bucket is a half-open sub-interval [Start, End) of a period.
type Bucket struct {
	Key   string    `json:"key"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t falls inside the bucket.
func (b Bucket) Contains(t time.Time) bool {
	return !t.Before(b.Start) && t.Before(b.End)
}

// Buckets splits p into ordered, contiguous buckets whose union is exactly
// [p.Start, p.End). Week and biweekly periods are split by day, months into
// 7-day chunks counted from the first of the month (the last chunk is cut at
// the month end), years by calendar month. An unresolved period has no
// buckets.
func Buckets(p Period) []Bucket {
	if !p.Valid() {
		return nil
	}
	g := p.Type.Granularity()

	var out []Bucket
	for start := p.Start; start.Before(p.End); {
		end := step(start, g)
		if end.After(p.End) {
			end = p.End
		}
		out = append(out, Bucket{Key: key(start, g), Start: start, End: end})
		start = end
	}
	return out
}

// Locate returns the index of the bucket containing t, or -1.
func Locate(buckets []Bucket, t time.Time) int {
	i := sort.Search(len(buckets), func(i int) bool {
		return t.Before(buckets[i].End)
	})
	if i < len(buckets) && buckets[i].Contains(t) {
		return i
	}
	return -1
}

func step(t time.Time, g Granularity) time.Time {
	switch g {
	case Weekly:
		return t.AddDate(0, 0, 7)
	case Monthly:
		return t.AddDate(0, 1, 0)
	default:
		return t.AddDate(0, 0, 1)
	}
}

func key(t time.Time, g Granularity) string {
	if g == Monthly {
		return t.Format("2006-01")
	}
	return t.Format("2006-01-02")
}
