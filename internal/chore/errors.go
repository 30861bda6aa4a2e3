package chore

import (
	"errors"
	"fmt"
)

// Sentinel domain errors, checked with errors.Is. Handlers translate these
// to 4xx responses; background sweeps only ever log them.
var (
	// ErrAlreadyClaimed is returned when a SHARED_FIRST chore has been
	// claimed by another kid and the race is closed.
	ErrAlreadyClaimed = errors.New("chore already claimed by another kid")

	// ErrNotEligible is returned when an ALTERNATING chore's rotation
	// points at a different kid.
	ErrNotEligible = errors.New("kid is not the current claimant in rotation")

	// ErrNotAssigned is returned when the kid is not on the chore's
	// assignment list.
	ErrNotAssigned = errors.New("kid is not assigned to chore")

	// ErrNoPendingClaim is returned when approving or disapproving a chore
	// the kid has not claimed.
	ErrNoPendingClaim = errors.New("no pending claim to decide")

	// ErrAlreadyApproved is returned when a claim arrives inside an
	// approval period that already holds an approval for that kid.
	ErrAlreadyApproved = errors.New("chore already approved in current period")
)

// ClaimError carries the kid/chore pair a claim rejection is about.
type ClaimError struct {
	KidID   string
	ChoreID string
	Holder  string // claimant that closed a SHARED_FIRST race, if any
	Err     error
}

func (e *ClaimError) Error() string {
	if e.Holder != "" {
		return fmt.Sprintf("claim %s by kid %s: %v (held by %s)", e.ChoreID, e.KidID, e.Err, e.Holder)
	}
	return fmt.Sprintf("claim %s by kid %s: %v", e.ChoreID, e.KidID, e.Err)
}

func (e *ClaimError) Unwrap() error { return e.Err }
