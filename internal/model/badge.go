package model

import "time"

// BadgeType separates one-shot milestone badges from cumulative badges that
// must be maintained over a rolling window.
type BadgeType string

const (
	BadgeMilestone  BadgeType = "milestone"
	BadgeCumulative BadgeType = "cumulative"
)

// BadgeTargetType is the quantity a badge threshold is measured against.
type BadgeTargetType string

const (
	TargetPoints     BadgeTargetType = "points"
	TargetChoreCount BadgeTargetType = "chore_count"
	TargetStreak     BadgeTargetType = "streak"
)

// BadgeTarget is the structured threshold introduced by the v42 schema; the
// migrator derives it from the legacy flat threshold fields.
type BadgeTarget struct {
	Type  BadgeTargetType `json:"type"`
	Value float64         `json:"value"`

	// PointsEquivalent expresses non-point targets in points for ranking
	// badges of mixed target types against each other.
	PointsEquivalent float64 `json:"points_equivalent"`
}

// Badge is a badge definition. Cumulative badges additionally carry a
// maintenance window during which the cycle target must be re-met.
type Badge struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	Description  string      `json:"description,omitempty"`
	Icon         string      `json:"icon,omitempty"`
	Type         BadgeType   `json:"type"`
	Target       BadgeTarget `json:"target"`
	AssignedKids []string    `json:"assigned_kids,omitempty"`
	AwardPoints  float64     `json:"award_points,omitempty"`

	MaintenanceWindowDays int `json:"maintenance_window_days,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// AppliesTo reports whether the badge is in scope for the kid. An empty
// assignment list means every kid.
func (b *Badge) AppliesTo(kidID string) bool {
	if len(b.AssignedKids) == 0 {
		return true
	}
	for _, id := range b.AssignedKids {
		if id == kidID {
			return true
		}
	}
	return false
}

// BadgeAward records a kid earning a badge. Count grows when a cumulative
// badge is re-earned across maintenance cycles.
type BadgeAward struct {
	EarnedAt time.Time `json:"earned_at"`
	Count    int       `json:"count"`
}

// CumulativeProgress tracks a cumulative badge's cycle separately from the
// kid's milestone totals: BaselinePoints is the kid's balance when the cycle
// opened, CyclePoints the points earned since.
type CumulativeProgress struct {
	BaselinePoints float64    `json:"baseline_points"`
	CyclePoints    float64    `json:"cycle_points"`
	WindowStart    *time.Time `json:"window_start,omitempty"`
}
