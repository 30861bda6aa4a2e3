package model

import "time"

// AchievementType is the quantity an achievement is measured against.
type AchievementType string

const (
	AchievementStreak AchievementType = "streak"
	AchievementTotal  AchievementType = "total"
)

// Achievement is an open-ended goal: keep a streak going, or accumulate a
// total number of approved chores. Progress is tracked per kid.
type Achievement struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Description  string          `json:"description,omitempty"`
	Icon         string          `json:"icon,omitempty"`
	Type         AchievementType `json:"type"`
	TargetValue  float64         `json:"target_value"`
	RewardPoints float64         `json:"reward_points,omitempty"`
	AssignedKids []string        `json:"assigned_kids,omitempty"`

	// SelectedChoreID narrows progress to one chore; empty means any chore.
	SelectedChoreID string `json:"selected_chore_id,omitempty"`

	Progress map[string]*GoalProgress `json:"progress"`

	CreatedAt time.Time `json:"created_at"`
}

// Challenge is a time-boxed goal: reach a target count of approved chores
// inside the [StartDate, EndDate] window.
type Challenge struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	Icon         string    `json:"icon,omitempty"`
	TargetValue  float64   `json:"target_value"`
	RewardPoints float64   `json:"reward_points,omitempty"`
	AssignedKids []string  `json:"assigned_kids,omitempty"`
	StartDate    time.Time `json:"start_date"`
	EndDate      time.Time `json:"end_date"`

	SelectedChoreID string `json:"selected_chore_id,omitempty"`

	Progress map[string]*GoalProgress `json:"progress"`

	CreatedAt time.Time `json:"created_at"`
}

// Active reports whether t falls inside the challenge window.
func (c *Challenge) Active(t time.Time) bool {
	return !t.Before(c.StartDate) && !t.After(c.EndDate)
}

// GoalProgress is one kid's progress toward an achievement or challenge.
type GoalProgress struct {
	Value     float64    `json:"value"`
	Awarded   bool       `json:"awarded"`
	AwardedAt *time.Time `json:"awarded_at,omitempty"`
}
