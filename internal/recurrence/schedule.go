package recurrence

import (
	"fmt"
	"time"

	"github.com/kestrelhouse/chorekeep/internal/model"
)

// Schedule is a chore's recurrence configuration: a frequency, an optional
// custom interval, and an optional applicable-weekday filter that computed
// due dates snap forward onto.
type Schedule struct {
	Frequency      model.Frequency
	Interval       int
	Unit           model.IntervalUnit
	ApplicableDays []time.Weekday
}

// FromChore builds the schedule for a chore definition.
func FromChore(c *model.Chore) Schedule {
	return Schedule{
		Frequency:      c.Frequency,
		Interval:       c.CustomInterval,
		Unit:           c.CustomIntervalUnit,
		ApplicableDays: c.ApplicableDays,
	}
}

// Validate rejects schedules the advancement logic cannot act on.
func (s Schedule) Validate() error {
	switch s.Frequency {
	case model.FreqNone, model.FreqDaily, model.FreqWeekly, model.FreqMonthly, model.FreqYearly:
	case model.FreqCustom:
		if s.Interval < 1 {
			return fmt.Errorf("custom frequency needs interval >= 1, got %d", s.Interval)
		}
		switch s.Unit {
		case model.UnitDays, model.UnitWeeks, model.UnitMonths:
		default:
			return fmt.Errorf("unknown custom interval unit %q", s.Unit)
		}
	default:
		return fmt.Errorf("unknown frequency %q", s.Frequency)
	}
	return nil
}

// Recurring reports whether the schedule produces a next occurrence at all.
func (s Schedule) Recurring() bool {
	return s.Frequency != model.FreqNone && s.Frequency != ""
}

// Next computes the due date following due, stepping the frequency until the
// result lands after now (a missed week does not queue up stale occurrences),
// then snapping forward onto the applicable-weekday filter. A nil due date or
// a non-recurring schedule returns nil: the final approval of a one-off chore
// has no next occurrence.
func (s Schedule) Next(due *time.Time, now time.Time) *time.Time {
	if due == nil || !s.Recurring() {
		return nil
	}

	next := *due
	// Safety cap mirrors the occurrence iterator limit: a pathological
	// interval must not spin forever.
	const maxSteps = 10000
	for i := 0; i < maxSteps; i++ {
		next = s.step(next)
		if next.After(now) {
			break
		}
	}

	next = s.snapToApplicableDay(next)
	return &next
}

// step advances one frequency interval, preserving time of day. Monthly
// steps clamp to the last day of shorter months.
func (s Schedule) step(t time.Time) time.Time {
	switch s.Frequency {
	case model.FreqDaily:
		return t.AddDate(0, 0, 1)
	case model.FreqWeekly:
		return t.AddDate(0, 0, 7)
	case model.FreqMonthly:
		return addMonthsClamped(t, 1)
	case model.FreqYearly:
		return t.AddDate(1, 0, 0)
	case model.FreqCustom:
		interval := s.Interval
		if interval < 1 {
			interval = 1
		}
		switch s.Unit {
		case model.UnitWeeks:
			return t.AddDate(0, 0, 7*interval)
		case model.UnitMonths:
			return addMonthsClamped(t, interval)
		default:
			return t.AddDate(0, 0, interval)
		}
	}
	return t
}

// snapToApplicableDay moves t forward to the nearest day passing the
// weekday filter. An empty filter admits every day.
func (s Schedule) snapToApplicableDay(t time.Time) time.Time {
	if len(s.ApplicableDays) == 0 {
		return t
	}
	for i := 0; i < 7; i++ {
		if s.allows(t.Weekday()) {
			return t
		}
		t = t.AddDate(0, 0, 1)
	}
	return t
}

func (s Schedule) allows(d time.Weekday) bool {
	for _, w := range s.ApplicableDays {
		if w == d {
			return true
		}
	}
	return false
}

// addMonthsClamped advances by months without the AddDate normalization
// that turns Jan 31 + 1 month into Mar 3; instead it clamps to Feb 28/29.
func addMonthsClamped(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	m := time.Month(int(month) + months)
	last := daysInMonth(year, m)
	if day > last {
		day = last
	}
	return time.Date(year, m, day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Describe returns a human-readable description of the schedule for the
// dashboard and notification copy.
func (s Schedule) Describe() string {
	switch s.Frequency {
	case model.FreqNone, "":
		return "Does not repeat"
	case model.FreqDaily:
		return "Repeats daily"
	case model.FreqWeekly:
		return "Repeats weekly"
	case model.FreqMonthly:
		return "Repeats monthly"
	case model.FreqYearly:
		return "Repeats yearly"
	case model.FreqCustom:
		if s.Interval == 1 {
			switch s.Unit {
			case model.UnitWeeks:
				return "Repeats weekly"
			case model.UnitMonths:
				return "Repeats monthly"
			default:
				return "Repeats daily"
			}
		}
		return fmt.Sprintf("Repeats every %d %s", s.Interval, s.Unit)
	}
	return ""
}
