package model

import (
	"math"
	"time"
)

// SchemaVersion is the current document schema. Documents below
// LegacySchemaCutover are run through the pre-v42 migrator on load.
const (
	SchemaVersion       = 42
	LegacySchemaCutover = 42
)

// Meta drives one-time migration and nightly rollover bookkeeping.
type Meta struct {
	SchemaVersion int `json:"schema_version"`

	// PendingEvaluations holds badge/achievement ids queued for re-check at
	// the next rollover (e.g. after a definition edit).
	PendingEvaluations []string `json:"pending_evaluations,omitempty"`

	// LastMidnightProcessed is the daily period id of the last completed
	// rollover, guarding against double-processing.
	LastMidnightProcessed string `json:"last_midnight_processed,omitempty"`
}

// Notification is an entry in the document's notification log. Delivery
// happens via web push; the log is what survives restarts.
type Notification struct {
	ID        string    `json:"id"`
	Event     string    `json:"event"`
	KidID     string    `json:"kid_id,omitempty"`
	ChoreID   string    `json:"chore_id,omitempty"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// Document is the entire persisted state.
type Document struct {
	Meta          Meta                    `json:"meta"`
	Kids          map[string]*Kid         `json:"kids"`
	Chores        map[string]*Chore       `json:"chores"`
	Badges        map[string]*Badge       `json:"badges"`
	Rewards       map[string]*Reward      `json:"rewards"`
	Penalties     map[string]*Penalty     `json:"penalties"`
	Bonuses       map[string]*Bonus       `json:"bonuses"`
	Parents       map[string]*Parent      `json:"parents"`
	Achievements  map[string]*Achievement `json:"achievements"`
	Challenges    map[string]*Challenge   `json:"challenges"`
	Notifications []Notification          `json:"notifications"`

	// PushSubscriptions is keyed by endpoint URL.
	PushSubscriptions map[string]*PushSubscription `json:"push_subscriptions,omitempty"`
}

// NewDocument returns an empty document at the current schema version.
func NewDocument() *Document {
	return &Document{
		Meta:         Meta{SchemaVersion: SchemaVersion},
		Kids:         make(map[string]*Kid),
		Chores:       make(map[string]*Chore),
		Badges:       make(map[string]*Badge),
		Rewards:      make(map[string]*Reward),
		Penalties:    make(map[string]*Penalty),
		Bonuses:      make(map[string]*Bonus),
		Parents:      make(map[string]*Parent),
		Achievements: make(map[string]*Achievement),
		Challenges:   make(map[string]*Challenge),

		PushSubscriptions: make(map[string]*PushSubscription),
	}
}

// PushSubscription is a browser push endpoint registered by a parent or a
// kid's device.
type PushSubscription struct {
	Endpoint  string    `json:"endpoint"`
	P256dhKey string    `json:"p256dh_key"`
	AuthKey   string    `json:"auth_key"`
	ParentID  string    `json:"parent_id,omitempty"`
	KidID     string    `json:"kid_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// RoundPoints rounds a point amount to 2 decimals, the stored precision.
func RoundPoints(p float64) float64 {
	return math.Round(p*100) / 100
}
