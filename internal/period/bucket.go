package period

import (
	"sort"
	"time"
)

// Bucket holds the aggregate counters for one period of one granularity.
type Bucket struct {
	Approved      int     `json:"approved"`
	Claimed       int     `json:"claimed"`
	Overdue       int     `json:"overdue"`
	Disapproved   int     `json:"disapproved"`
	Points        float64 `json:"points"`
	LongestStreak int     `json:"longest_streak"`
}

// Buckets is a nested map granularity -> period id -> counters. The all-time
// bucket's counts are monotonically non-decreasing: the recording methods
// only ever add non-negative deltas to counts.
type Buckets map[Granularity]map[string]*Bucket

// NewBuckets returns an empty bucket store with all granularities present.
func NewBuckets() Buckets {
	b := make(Buckets, len(Granularities))
	for _, g := range Granularities {
		b[g] = make(map[string]*Bucket)
	}
	return b
}

// At returns the bucket for t at granularity g, creating it if missing.
func (b Buckets) At(g Granularity, t time.Time) *Bucket {
	if b[g] == nil {
		b[g] = make(map[string]*Bucket)
	}
	key := Key(g, t)
	bk, ok := b[g][key]
	if !ok {
		bk = &Bucket{}
		b[g][key] = bk
	}
	return bk
}

// each applies fn to the bucket of every granularity at time t.
func (b Buckets) each(t time.Time, fn func(*Bucket)) {
	for _, g := range Granularities {
		fn(b.At(g, t))
	}
}

// RecordApproved increments the approved count and adds the earned points
// across all granularities.
func (b Buckets) RecordApproved(t time.Time, points float64) {
	b.each(t, func(bk *Bucket) {
		bk.Approved++
		bk.Points += points
	})
}

// RecordClaimed increments the claimed count across all granularities.
func (b Buckets) RecordClaimed(t time.Time) {
	b.each(t, func(bk *Bucket) { bk.Claimed++ })
}

// RecordOverdue increments the overdue count across all granularities.
func (b Buckets) RecordOverdue(t time.Time) {
	b.each(t, func(bk *Bucket) { bk.Overdue++ })
}

// RecordDisapproved increments the disapproved count across all granularities.
func (b Buckets) RecordDisapproved(t time.Time) {
	b.each(t, func(bk *Bucket) { bk.Disapproved++ })
}

// RecordPoints adds a point delta (which may be negative, e.g. a penalty)
// without touching any counts.
func (b Buckets) RecordPoints(t time.Time, points float64) {
	b.each(t, func(bk *Bucket) { bk.Points += points })
}

// RecordStreak raises the longest-streak high-water mark where streak exceeds it.
func (b Buckets) RecordStreak(t time.Time, streak int) {
	b.each(t, func(bk *Bucket) {
		if streak > bk.LongestStreak {
			bk.LongestStreak = streak
		}
	})
}

// Current returns the bucket for "now" at granularity g without creating it.
// A nil return means nothing has been recorded in the current period.
func (b Buckets) Current(g Granularity, now time.Time) *Bucket {
	if b[g] == nil {
		return nil
	}
	return b[g][Key(g, now)]
}

// Total returns the all-time bucket, creating it if missing.
func (b Buckets) Total() *Bucket {
	if b[AllTime] == nil {
		b[AllTime] = make(map[string]*Bucket)
	}
	bk, ok := b[AllTime][AllTimeKey]
	if !ok {
		bk = &Bucket{}
		b[AllTime][AllTimeKey] = bk
	}
	return bk
}

// Prune drops finished periods older than keep per granularity, preserving
// the all-time bucket. Used by the midnight rollover to bound document growth.
func (b Buckets) Prune(keep map[Granularity]int, now time.Time) {
	for _, g := range Granularities {
		if g == AllTime {
			continue
		}
		limit, ok := keep[g]
		if !ok || limit <= 0 {
			continue
		}
		current := Key(g, now)
		keys := make([]string, 0, len(b[g]))
		for k := range b[g] {
			if k < current {
				keys = append(keys, k)
			}
		}
		if len(keys) <= limit {
			continue
		}
		// Period ids sort lexicographically in chronological order.
		sort.Strings(keys)
		for _, k := range keys[:len(keys)-limit] {
			delete(b[g], k)
		}
	}
}
