package model

import (
	"time"

	"github.com/kestrelhouse/chorekeep/internal/period"
)

// Kid is a child tracked by the system. ChoreData is keyed by chore id,
// RewardData by reward id, BadgesEarned by badge id.
type Kid struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Points float64 `json:"points"`

	ChoreData  map[string]*ChoreTracking  `json:"chore_data"`
	RewardData map[string]*RewardTracking `json:"reward_data"`

	// PointData aggregates every point movement (chores, rewards, penalties,
	// bonuses) by period, independently of any single chore's buckets.
	PointData period.Buckets `json:"point_data"`

	BadgesEarned            map[string]*BadgeAward         `json:"badges_earned"`
	CumulativeBadgeProgress map[string]*CumulativeProgress `json:"cumulative_badge_progress"`

	// OverdueChores lists chore ids currently marked overdue for this kid.
	OverdueChores []string `json:"overdue_chores"`

	EnableNotifications bool      `json:"enable_notifications"`
	CreatedAt           time.Time `json:"created_at"`
}

// NewKid returns a kid with all nested maps initialized.
func NewKid(id, name string, now time.Time) *Kid {
	return &Kid{
		ID:                      id,
		Name:                    name,
		ChoreData:               make(map[string]*ChoreTracking),
		RewardData:              make(map[string]*RewardTracking),
		PointData:               period.NewBuckets(),
		BadgesEarned:            make(map[string]*BadgeAward),
		CumulativeBadgeProgress: make(map[string]*CumulativeProgress),
		EnableNotifications:     true,
		CreatedAt:               now,
	}
}

// Tracking returns the kid's tracking record for the chore, creating a
// pending record on first touch.
func (k *Kid) Tracking(choreID string) *ChoreTracking {
	if k.ChoreData == nil {
		k.ChoreData = make(map[string]*ChoreTracking)
	}
	ct, ok := k.ChoreData[choreID]
	if !ok {
		ct = NewChoreTracking()
		k.ChoreData[choreID] = ct
	}
	return ct
}

// MarkOverdue adds the chore to the kid's overdue list. Returns false when
// it was already present.
func (k *Kid) MarkOverdue(choreID string) bool {
	for _, id := range k.OverdueChores {
		if id == choreID {
			return false
		}
	}
	k.OverdueChores = append(k.OverdueChores, choreID)
	return true
}

// ClearOverdue removes the chore from the kid's overdue list.
func (k *Kid) ClearOverdue(choreID string) {
	for i, id := range k.OverdueChores {
		if id == choreID {
			k.OverdueChores = append(k.OverdueChores[:i], k.OverdueChores[i+1:]...)
			return
		}
	}
}

// RewardTracking is one kid's redemption record for one reward.
type RewardTracking struct {
	PendingCount int            `json:"pending_count"`
	LastRedeemed *time.Time     `json:"last_redeemed,omitempty"`
	Periods      period.Buckets `json:"periods"`
}

// NewRewardTracking returns an empty redemption record.
func NewRewardTracking() *RewardTracking {
	return &RewardTracking{Periods: period.NewBuckets()}
}
