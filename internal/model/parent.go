package model

import "time"

// Parent is an approver. Parent-only operations require a bearer token
// issued after PIN verification; PINHash is a bcrypt hash.
type Parent struct {
	ID                  string    `json:"id"`
	Name                string    `json:"name"`
	PINHash             string    `json:"pin_hash,omitempty"`
	NotifyOnClaim       bool      `json:"notify_on_claim"`
	EnableNotifications bool      `json:"enable_notifications"`
	CreatedAt           time.Time `json:"created_at"`
}
