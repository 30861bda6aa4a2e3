package chore

import (
	"github.com/kestrelhouse/chorekeep/internal/model"
)

// ResolveGlobalState maps the assigned kids' individual tracking states to
// the chore's one global state.
//
// INDEPENDENT mirrors the lone kid's state when exactly one kid is assigned;
// with several kids there is no meaningful aggregate and the sentinel
// "independent" is reported. SHARED is approved only once every assigned kid
// holds an approval; a mix yields the partial states. SHARED_FIRST and
// ALTERNATING resolve to the winner's/current claimant's state, with
// completed_by_other never escalated to a global state on its own.
func ResolveGlobalState(c *model.Chore, tracking map[string]*model.ChoreTracking) model.ChoreState {
	if len(c.AssignedKids) == 0 {
		return model.StatePending
	}

	switch c.CompletionCriteria {
	case model.CriteriaIndependent:
		if len(c.AssignedKids) == 1 {
			return stateOf(tracking, c.AssignedKids[0])
		}
		return model.StateIndependent

	case model.CriteriaShared:
		return resolveShared(c, tracking)

	case model.CriteriaSharedFirst, model.CriteriaAlternating:
		return resolveExclusive(c, tracking)

	default:
		// Unmigrated or hand-edited documents: fall back to shared rules.
		return resolveShared(c, tracking)
	}
}

func resolveShared(c *model.Chore, tracking map[string]*model.ChoreTracking) model.ChoreState {
	var approved, claimed, overdue int
	for _, kidID := range c.AssignedKids {
		switch stateOf(tracking, kidID) {
		case model.StateApproved:
			approved++
		case model.StateClaimed:
			claimed++
		case model.StateOverdue:
			overdue++
		}
	}

	total := len(c.AssignedKids)
	switch {
	case approved == total:
		return model.StateApproved
	case approved > 0:
		return model.StateApprovedInPart
	case claimed == total:
		return model.StateClaimed
	case claimed > 0:
		return model.StateClaimedInPart
	case overdue > 0:
		return model.StateOverdue
	default:
		return model.StatePending
	}
}

// resolveExclusive covers the criteria where at most one kid progresses at a
// time: the non-pending, non-completed_by_other state wins.
func resolveExclusive(c *model.Chore, tracking map[string]*model.ChoreTracking) model.ChoreState {
	overdue := false
	for _, kidID := range c.AssignedKids {
		switch s := stateOf(tracking, kidID); s {
		case model.StateClaimed, model.StateApproved:
			return s
		case model.StateOverdue:
			overdue = true
		}
	}
	if overdue {
		return model.StateOverdue
	}
	return model.StatePending
}

func stateOf(tracking map[string]*model.ChoreTracking, kidID string) model.ChoreState {
	ct, ok := tracking[kidID]
	if !ok || ct == nil || ct.State == "" {
		return model.StatePending
	}
	return ct.State
}

// CurrentClaimant returns the kid holding an open claim on the chore, if
// any. Used to report the SHARED_FIRST race winner in claim rejections.
func CurrentClaimant(c *model.Chore, tracking map[string]*model.ChoreTracking) string {
	for _, kidID := range c.AssignedKids {
		if st := stateOf(tracking, kidID); st == model.StateClaimed || st == model.StateApproved {
			return kidID
		}
	}
	return ""
}
