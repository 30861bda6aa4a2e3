package recurrence

import (
	"testing"
	"time"

	"github.com/kestrelhouse/chorekeep/internal/model"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 18, 0, 0, 0, time.UTC)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		s       Schedule
		wantErr bool
	}{
		{"none", Schedule{Frequency: model.FreqNone}, false},
		{"weekly", Schedule{Frequency: model.FreqWeekly}, false},
		{"custom ok", Schedule{Frequency: model.FreqCustom, Interval: 3, Unit: model.UnitDays}, false},
		{"custom zero interval", Schedule{Frequency: model.FreqCustom, Interval: 0, Unit: model.UnitDays}, true},
		{"custom bad unit", Schedule{Frequency: model.FreqCustom, Interval: 2, Unit: "fortnights"}, true},
		{"bad frequency", Schedule{Frequency: "sometimes"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.s.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNextNonRecurring(t *testing.T) {
	due := date(2025, 7, 3)
	s := Schedule{Frequency: model.FreqNone}
	if got := s.Next(&due, due); got != nil {
		t.Errorf("expected nil next for one-off chore, got %v", got)
	}

	s = Schedule{Frequency: model.FreqDaily}
	if got := s.Next(nil, due); got != nil {
		t.Errorf("expected nil next for nil due date, got %v", got)
	}
}

func TestNextSimpleSteps(t *testing.T) {
	due := date(2025, 7, 3)
	now := due

	tests := []struct {
		name string
		s    Schedule
		want time.Time
	}{
		{"daily", Schedule{Frequency: model.FreqDaily}, date(2025, 7, 4)},
		{"weekly", Schedule{Frequency: model.FreqWeekly}, date(2025, 7, 10)},
		{"monthly", Schedule{Frequency: model.FreqMonthly}, date(2025, 8, 3)},
		{"yearly", Schedule{Frequency: model.FreqYearly}, date(2026, 7, 3)},
		{"every 3 days", Schedule{Frequency: model.FreqCustom, Interval: 3, Unit: model.UnitDays}, date(2025, 7, 6)},
		{"every 2 weeks", Schedule{Frequency: model.FreqCustom, Interval: 2, Unit: model.UnitWeeks}, date(2025, 7, 17)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.s.Next(&due, now)
			if got == nil || !got.Equal(tt.want) {
				t.Errorf("Next() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNextSkipsMissedOccurrences(t *testing.T) {
	// The chore was due three weeks ago; the next occurrence lands after
	// now rather than queueing up the missed weeks.
	due := date(2025, 6, 12)
	now := date(2025, 7, 3).Add(time.Hour)

	s := Schedule{Frequency: model.FreqWeekly}
	got := s.Next(&due, now)
	want := date(2025, 7, 10)
	if got == nil || !got.Equal(want) {
		t.Errorf("Next() = %v, want %v", got, want)
	}
}

func TestNextPreservesTimeOfDay(t *testing.T) {
	due := time.Date(2025, 7, 3, 7, 30, 0, 0, time.UTC)
	s := Schedule{Frequency: model.FreqDaily}
	got := s.Next(&due, due)
	if got == nil || got.Hour() != 7 || got.Minute() != 30 {
		t.Errorf("Next() = %v, want 07:30 preserved", got)
	}
}

func TestNextMonthlyClampsShortMonths(t *testing.T) {
	due := date(2025, 1, 31)
	s := Schedule{Frequency: model.FreqMonthly}
	got := s.Next(&due, due)
	want := date(2025, 2, 28)
	if got == nil || !got.Equal(want) {
		t.Errorf("Next() = %v, want %v", got, want)
	}
}

func TestNextSnapsToApplicableDays(t *testing.T) {
	// 2025-07-03 is a Thursday. Daily recurrence restricted to weekends
	// snaps Friday forward to Saturday.
	due := date(2025, 7, 3)
	s := Schedule{
		Frequency:      model.FreqDaily,
		ApplicableDays: []time.Weekday{time.Saturday, time.Sunday},
	}
	got := s.Next(&due, due)
	want := date(2025, 7, 5)
	if got == nil || !got.Equal(want) {
		t.Errorf("Next() = %v, want %v (Saturday)", got, want)
	}
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		s    Schedule
		want string
	}{
		{Schedule{Frequency: model.FreqNone}, "Does not repeat"},
		{Schedule{Frequency: model.FreqWeekly}, "Repeats weekly"},
		{Schedule{Frequency: model.FreqCustom, Interval: 1, Unit: model.UnitWeeks}, "Repeats weekly"},
		{Schedule{Frequency: model.FreqCustom, Interval: 3, Unit: model.UnitDays}, "Repeats every 3 days"},
	}
	for _, tt := range tests {
		if got := tt.s.Describe(); got != tt.want {
			t.Errorf("Describe() = %q, want %q", got, tt.want)
		}
	}
}
