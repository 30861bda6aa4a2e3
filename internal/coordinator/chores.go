package coordinator

import (
	"fmt"
	"time"

	"github.com/kestrelhouse/chorekeep/internal/chore"
	"github.com/kestrelhouse/chorekeep/internal/history"
	"github.com/kestrelhouse/chorekeep/internal/model"
	"github.com/kestrelhouse/chorekeep/internal/period"
	"github.com/kestrelhouse/chorekeep/internal/recurrence"
	"github.com/kestrelhouse/chorekeep/internal/websocket"
)

// ClaimChore records a kid claiming a chore. SHARED_FIRST chores reject the
// claim when another kid already holds the race; ALTERNATING chores reject
// kids the rotation does not point at. Auto-approve chores are approved in
// the same update.
func (c *Coordinator) ClaimChore(kidID, choreID string) error {
	now := c.now().UTC()
	var (
		autoApproved bool
		globalState  model.ChoreState
		choreName    string
		kidName      string
	)

	err := c.store.Update(func(doc *model.Document) error {
		kid, ch, err := c.lookup(doc, kidID, choreID)
		if err != nil {
			return err
		}
		if !ch.IsAssigned(kidID) {
			return &chore.ClaimError{KidID: kidID, ChoreID: choreID, Err: chore.ErrNotAssigned}
		}

		tracking := trackingByKid(doc, ch)
		switch ch.CompletionCriteria {
		case model.CriteriaSharedFirst:
			if holder := chore.CurrentClaimant(ch, tracking); holder != "" && holder != kidID {
				return &chore.ClaimError{KidID: kidID, ChoreID: choreID, Holder: holder, Err: chore.ErrAlreadyClaimed}
			}
		case model.CriteriaAlternating:
			if eligible := ch.EligibleClaimant(); eligible != kidID {
				return &chore.ClaimError{KidID: kidID, ChoreID: choreID, Holder: eligible, Err: chore.ErrNotEligible}
			}
		}

		ct := kid.Tracking(choreID)
		if ct.State == model.StateApproved && ct.InCurrentApprovalPeriod(now) {
			return &chore.ClaimError{KidID: kidID, ChoreID: choreID, Err: chore.ErrAlreadyApproved}
		}

		if ct.ApprovalPeriodStart == nil {
			start := now
			ct.ApprovalPeriodStart = &start
		}
		ct.State = model.StateClaimed
		ct.PendingClaimCount++
		t := now
		ct.LastClaimed = &t
		ct.Periods.RecordClaimed(now)
		kid.ClearOverdue(choreID)

		if ch.AutoApprove {
			c.applyApproval(doc, kid, ch, now)
			autoApproved = true
		}

		globalState = refreshChoreState(doc, ch)
		choreName, kidName = ch.Name, kid.Name

		if !autoApproved {
			c.notify(doc, model.Notification{
				Event: "chore_claimed", KidID: kidID, ChoreID: choreID,
				Title: "Approval needed",
				Body:  fmt.Sprintf("%s claimed %q", kid.Name, ch.Name),
			})
		}
		return nil
	})
	if err != nil {
		return err
	}

	c.record(history.Event{Type: history.EventClaimed, KidID: kidID, ChoreID: choreID, OccurredAt: now, Detail: choreName})
	c.broadcast(websocket.Event{Type: "chore_claimed", KidID: kidID, ChoreID: choreID, State: string(globalState)})
	if autoApproved {
		c.record(history.Event{Type: history.EventApproved, KidID: kidID, ChoreID: choreID, OccurredAt: now, Detail: choreName})
		c.broadcast(websocket.Event{Type: "chore_approved", KidID: kidID, ChoreID: choreID, State: string(globalState)})
	}
	c.logger.Info("chore claimed", "kid", kidName, "chore", choreName, "auto_approved", autoApproved)
	return nil
}

// ApproveChore approves a kid's chore, credits points, advances the due
// date, and re-evaluates badges, achievements and challenges. Approving
// without a prior claim is allowed: a parent can record work directly.
func (c *Coordinator) ApproveChore(kidID, choreID string) error {
	now := c.now().UTC()
	var (
		globalState model.ChoreState
		points      float64
		choreName   string
	)

	err := c.store.Update(func(doc *model.Document) error {
		kid, ch, err := c.lookup(doc, kidID, choreID)
		if err != nil {
			return err
		}
		if !ch.IsAssigned(kidID) {
			return &chore.ClaimError{KidID: kidID, ChoreID: choreID, Err: chore.ErrNotAssigned}
		}
		ct := kid.Tracking(choreID)
		if ct.State == model.StateApproved && ct.InCurrentApprovalPeriod(now) {
			return &chore.ClaimError{KidID: kidID, ChoreID: choreID, Err: chore.ErrAlreadyApproved}
		}

		points = c.applyApproval(doc, kid, ch, now)
		globalState = refreshChoreState(doc, ch)
		choreName = ch.Name

		c.notify(doc, model.Notification{
			Event: "chore_approved", KidID: kidID, ChoreID: choreID,
			Title: "Chore approved",
			Body:  fmt.Sprintf("%q approved for %s (+%g points)", ch.Name, kid.Name, points),
		})
		return nil
	})
	if err != nil {
		return err
	}

	c.record(history.Event{Type: history.EventApproved, KidID: kidID, ChoreID: choreID, Points: points, OccurredAt: now, Detail: choreName})
	c.broadcast(websocket.Event{Type: "chore_approved", KidID: kidID, ChoreID: choreID, State: string(globalState), Points: points})
	return nil
}

// applyApproval mutates the records for one kid's approval: points, streak,
// buckets, SHARED_FIRST loser handling, rotation advance, reschedule, and
// goal evaluation. Caller holds the document lock.
func (c *Coordinator) applyApproval(doc *model.Document, kid *model.Kid, ch *model.Chore, now time.Time) float64 {
	ct := kid.Tracking(ch.ID)

	points := model.RoundPoints(ch.Points)
	kid.Points = model.RoundPoints(kid.Points + points)

	// Streak: consecutive approval days on this chore.
	if ct.LastApproved != nil && period.SameDay(ct.LastApproved.AddDate(0, 0, 1), now) {
		ct.CurrentStreak++
	} else if ct.LastApproved == nil || !period.SameDay(*ct.LastApproved, now) {
		ct.CurrentStreak = 1
	}

	ct.State = model.StateApproved
	ct.PendingClaimCount = 0
	t := now
	ct.LastApproved = &t
	if ct.ApprovalPeriodStart == nil {
		ct.ApprovalPeriodStart = &t
	}
	ct.Periods.RecordApproved(now, points)
	ct.Periods.RecordStreak(now, ct.CurrentStreak)
	kid.PointData.RecordApproved(now, points)
	kid.ClearOverdue(ch.ID)

	// SHARED_FIRST: the race is decided, everyone else stands down.
	if ch.CompletionCriteria == model.CriteriaSharedFirst {
		for _, otherID := range ch.AssignedKids {
			if otherID == kid.ID {
				continue
			}
			if other, ok := doc.Kids[otherID]; ok {
				oct := other.Tracking(ch.ID)
				oct.State = model.StateCompletedByOther
				oct.PendingClaimCount = 0
				other.ClearOverdue(ch.ID)
			}
		}
	}

	// ALTERNATING: hand the rotation to the next kid.
	if ch.CompletionCriteria == model.CriteriaAlternating && len(ch.AssignedKids) > 0 {
		ch.RotationIndex = (ch.RotationIndex + 1) % len(ch.AssignedKids)
	}

	c.reschedule(ch, kid.ID, now)

	if ch.ApprovalResetType == model.ResetUponCompletion {
		ct.ApprovalPeriodStart = nil
	}

	c.evaluateGoals(doc, kid, ch, now)
	return points
}

// reschedule advances the authoritative due date after an approval. Only
// approval advances due dates; a nil due date on a non-recurring chore is
// preserved as nil.
func (c *Coordinator) reschedule(ch *model.Chore, kidID string, now time.Time) {
	sched := recurrence.FromChore(ch)
	if ch.UsesPerKidDueDates() {
		if ch.PerKidDueDates == nil {
			ch.PerKidDueDates = make(map[string]*time.Time)
		}
		due := ch.PerKidDueDates[kidID]
		next := sched.Next(due, now)
		if next == nil {
			c.logger.Debug("non-recurring chore keeps null due date", "chore", ch.ID, "kid", kidID)
			return
		}
		ch.PerKidDueDates[kidID] = next
		return
	}

	next := sched.Next(ch.DueDate, now)
	if next == nil {
		c.logger.Debug("non-recurring chore keeps null due date", "chore", ch.ID)
		return
	}
	ch.DueDate = next
}

// DisapproveChore rejects a claim (or revokes an approval, clawing the
// points back). SHARED_FIRST disapproval resets every assigned kid to
// pending, re-opening the race. Due dates never move on disapproval.
func (c *Coordinator) DisapproveChore(kidID, choreID string) error {
	now := c.now().UTC()
	var (
		globalState model.ChoreState
		choreName   string
	)

	err := c.store.Update(func(doc *model.Document) error {
		kid, ch, err := c.lookup(doc, kidID, choreID)
		if err != nil {
			return err
		}
		ct := kid.Tracking(choreID)
		if ct.State != model.StateClaimed && ct.State != model.StateApproved {
			return &chore.ClaimError{KidID: kidID, ChoreID: choreID, Err: chore.ErrNoPendingClaim}
		}

		if ct.State == model.StateApproved {
			kid.Points = model.RoundPoints(kid.Points - model.RoundPoints(ch.Points))
			kid.PointData.RecordPoints(now, -model.RoundPoints(ch.Points))
		}

		c.resetTracking(ct, now)

		if ch.CompletionCriteria == model.CriteriaSharedFirst {
			// The whole race restarts, completed_by_other included.
			for _, otherID := range ch.AssignedKids {
				if otherID == kidID {
					continue
				}
				if other, ok := doc.Kids[otherID]; ok {
					oct := other.Tracking(choreID)
					oct.State = model.StatePending
					oct.PendingClaimCount = 0
				}
			}
		}

		globalState = refreshChoreState(doc, ch)
		choreName = ch.Name

		c.notify(doc, model.Notification{
			Event: "chore_disapproved", KidID: kidID, ChoreID: choreID,
			Title: "Chore sent back",
			Body:  fmt.Sprintf("%q was not accepted for %s", ch.Name, kid.Name),
		})
		return nil
	})
	if err != nil {
		return err
	}

	c.record(history.Event{Type: history.EventDisapproved, KidID: kidID, ChoreID: choreID, OccurredAt: now, Detail: choreName})
	c.broadcast(websocket.Event{Type: "chore_disapproved", KidID: kidID, ChoreID: choreID, State: string(globalState)})
	return nil
}

func (c *Coordinator) resetTracking(ct *model.ChoreTracking, now time.Time) {
	ct.State = model.StatePending
	ct.PendingClaimCount = 0
	ct.CurrentStreak = 0
	t := now
	ct.LastDisapproved = &t
	ct.Periods.RecordDisapproved(now)
}
