package period

import (
	"fmt"
	"time"
)

// Granularity is a time bucket size for aggregate counters.
type Granularity string

const (
	Daily   Granularity = "daily"
	Weekly  Granularity = "weekly"
	Monthly Granularity = "monthly"
	Yearly  Granularity = "yearly"
	AllTime Granularity = "all_time"
)

// AllTimeKey is the sentinel period id for the all-time bucket.
const AllTimeKey = "all_time"

// Granularities lists every bucket size, smallest first.
var Granularities = []Granularity{Daily, Weekly, Monthly, Yearly, AllTime}

// Key returns the period id for t at the given granularity: the ISO date
// for daily, "YYYY-Www" for weekly, "YYYY-MM" for monthly, "YYYY" for
// yearly, and the all_time sentinel otherwise.
func Key(g Granularity, t time.Time) string {
	t = t.UTC()
	switch g {
	case Daily:
		return t.Format("2006-01-02")
	case Weekly:
		year, week := t.ISOWeek()
		return fmt.Sprintf("%04d-W%02d", year, week)
	case Monthly:
		return t.Format("2006-01")
	case Yearly:
		return t.Format("2006")
	default:
		return AllTimeKey
	}
}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// SameDay reports whether a and b fall on the same UTC calendar day.
func SameDay(a, b time.Time) bool {
	return Key(Daily, a) == Key(Daily, b)
}
