package model

import (
	"time"

	"github.com/kestrelhouse/chorekeep/internal/period"
)

// CompletionCriteria governs how a chore shared by several kids resolves to
// a single global state.
type CompletionCriteria string

const (
	CriteriaIndependent CompletionCriteria = "independent"
	CriteriaShared      CompletionCriteria = "shared"
	CriteriaSharedFirst CompletionCriteria = "shared_first"
	CriteriaAlternating CompletionCriteria = "alternating"
)

// ChoreState is both a per-kid tracking state and a derived global state.
type ChoreState string

const (
	StatePending         ChoreState = "pending"
	StateClaimed         ChoreState = "claimed"
	StateApproved        ChoreState = "approved"
	StateOverdue         ChoreState = "overdue"
	StateCompletedByOther ChoreState = "completed_by_other"

	// Global-only states.
	StateIndependent    ChoreState = "independent"
	StateApprovedInPart ChoreState = "approved_in_part"
	StateClaimedInPart  ChoreState = "claimed_in_part"
)

// ApprovalResetType decides when a chore's approval period closes.
type ApprovalResetType string

const (
	ResetAtMidnight     ApprovalResetType = "at_midnight"
	ResetAtDueDate      ApprovalResetType = "at_due_date"
	ResetUponCompletion ApprovalResetType = "upon_completion"
)

// Chore is a chore definition shared by its assigned kids. Exactly one of
// DueDate (SHARED variants and ALTERNATING) or PerKidDueDates (INDEPENDENT)
// is authoritative, chosen by CompletionCriteria.
type Chore struct {
	ID                 string             `json:"id"`
	Name               string             `json:"name"`
	Description        string             `json:"description,omitempty"`
	Icon               string             `json:"icon,omitempty"`
	Points             float64            `json:"points"`
	AssignedKids       []string           `json:"assigned_kids"`
	CompletionCriteria CompletionCriteria `json:"completion_criteria"`

	Frequency          Frequency      `json:"frequency"`
	CustomInterval     int            `json:"custom_interval,omitempty"`
	CustomIntervalUnit IntervalUnit   `json:"custom_interval_unit,omitempty"`
	ApplicableDays     []time.Weekday `json:"applicable_days,omitempty"`

	DueDate        *time.Time            `json:"due_date,omitempty"`
	PerKidDueDates map[string]*time.Time `json:"per_kid_due_dates,omitempty"`

	ApprovalResetType ApprovalResetType `json:"approval_reset_type"`
	AutoApprove       bool              `json:"auto_approve,omitempty"`

	// RotationIndex points at the sole eligible claimant for ALTERNATING
	// chores, as an index into AssignedKids.
	RotationIndex int `json:"rotation_index,omitempty"`

	// State is the cached global state, recomputed after every mutation.
	State ChoreState `json:"state"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UsesPerKidDueDates reports whether the chore schedules each kid separately.
func (c *Chore) UsesPerKidDueDates() bool {
	return c.CompletionCriteria == CriteriaIndependent
}

// DueDateFor returns the authoritative due date for the given kid.
func (c *Chore) DueDateFor(kidID string) *time.Time {
	if c.UsesPerKidDueDates() {
		if c.PerKidDueDates == nil {
			return nil
		}
		return c.PerKidDueDates[kidID]
	}
	return c.DueDate
}

// IsAssigned reports whether the kid is on the chore's assignment list.
func (c *Chore) IsAssigned(kidID string) bool {
	for _, id := range c.AssignedKids {
		if id == kidID {
			return true
		}
	}
	return false
}

// EligibleClaimant returns the kid the rotation currently points at. Only
// meaningful for ALTERNATING chores with at least one assigned kid.
func (c *Chore) EligibleClaimant() string {
	if len(c.AssignedKids) == 0 {
		return ""
	}
	idx := c.RotationIndex % len(c.AssignedKids)
	if idx < 0 {
		idx += len(c.AssignedKids)
	}
	return c.AssignedKids[idx]
}

// ChoreTracking is one kid's lifecycle record for one chore.
type ChoreTracking struct {
	State               ChoreState     `json:"state"`
	PendingClaimCount   int            `json:"pending_claim_count"`
	LastClaimed         *time.Time     `json:"last_claimed,omitempty"`
	LastApproved        *time.Time     `json:"last_approved,omitempty"`
	LastDisapproved     *time.Time     `json:"last_disapproved,omitempty"`
	LastOverdue         *time.Time     `json:"last_overdue,omitempty"`
	ApprovalPeriodStart *time.Time     `json:"approval_period_start,omitempty"`
	CurrentStreak       int            `json:"current_streak"`
	Periods             period.Buckets `json:"periods"`
}

// NewChoreTracking returns a pending tracking record with empty buckets.
func NewChoreTracking() *ChoreTracking {
	return &ChoreTracking{
		State:   StatePending,
		Periods: period.NewBuckets(),
	}
}

// InCurrentApprovalPeriod reports whether t falls inside the record's open
// approval period.
func (ct *ChoreTracking) InCurrentApprovalPeriod(t time.Time) bool {
	return ct.ApprovalPeriodStart != nil && !t.Before(*ct.ApprovalPeriodStart)
}
