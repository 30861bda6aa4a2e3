package model

import "time"

// Reward is something a kid can spend points on. When ApprovalRequired is
// set, redemption holds the points and waits for a parent decision.
type Reward struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Description      string    `json:"description,omitempty"`
	Icon             string    `json:"icon,omitempty"`
	Cost             float64   `json:"cost"`
	ApprovalRequired bool      `json:"approval_required"`
	CreatedAt        time.Time `json:"created_at"`
}

// Penalty is a named negative point adjustment applied by a parent.
type Penalty struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Icon      string    `json:"icon,omitempty"`
	Points    float64   `json:"points"` // stored negative
	CreatedAt time.Time `json:"created_at"`
}

// Bonus is a named positive point adjustment applied by a parent.
type Bonus struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Icon      string    `json:"icon,omitempty"`
	Points    float64   `json:"points"`
	CreatedAt time.Time `json:"created_at"`
}
