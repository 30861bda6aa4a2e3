package coordinator

import (
	"time"

	"github.com/kestrelhouse/chorekeep/internal/model"
	"github.com/kestrelhouse/chorekeep/internal/period"
)

// bucketRetention bounds how many closed periods a Buckets map keeps per
// granularity. Yearly and all-time buckets are never pruned.
var bucketRetention = map[period.Granularity]int{
	period.Daily:   62,
	period.Weekly:  27,
	period.Monthly: 25,
}

// RunMidnightRollover closes out the previous day: approval periods reset
// according to each chore's reset type, broken streaks drop to zero, old
// period buckets are pruned, and queued definition re-evaluations run. The
// rollover is gated on Meta.LastMidnightProcessed so a restart mid-day does
// not process the same day twice.
func (c *Coordinator) RunMidnightRollover() error {
	now := c.now().UTC()
	today := period.Key(period.Daily, now)
	var ran bool

	err := c.store.Update(func(doc *model.Document) error {
		if doc.Meta.LastMidnightProcessed == today {
			return nil
		}
		ran = true

		for _, ch := range doc.Chores {
			for _, kidID := range ch.AssignedKids {
				kid, ok := doc.Kids[kidID]
				if !ok {
					continue
				}
				ct := kid.Tracking(ch.ID)
				c.rolloverTracking(ch, kidID, ct, now)
			}
			refreshChoreState(doc, ch)
		}

		for _, kid := range doc.Kids {
			kid.PointData.Prune(bucketRetention, now)
			for _, ct := range kid.ChoreData {
				ct.Periods.Prune(bucketRetention, now)
			}
			for _, rt := range kid.RewardData {
				rt.Periods.Prune(bucketRetention, now)
			}
			// Re-check badges: catches expired maintenance windows and any
			// definitions queued in PendingEvaluations since the last run.
			c.evaluateBadges(doc, kid, now)
		}

		doc.Meta.PendingEvaluations = nil
		doc.Meta.LastMidnightProcessed = today
		return nil
	})
	if err != nil {
		return err
	}
	if ran {
		c.logger.Info("midnight rollover complete", "day", today)
	}
	return nil
}

// rolloverTracking applies the per-kid midnight transitions for one chore.
func (c *Coordinator) rolloverTracking(ch *model.Chore, kidID string, ct *model.ChoreTracking, now time.Time) {
	// A streak survives only while approvals land on consecutive days:
	// no approval yesterday or today means the chain is broken.
	if ct.CurrentStreak > 0 {
		alive := ct.LastApproved != nil &&
			(period.SameDay(*ct.LastApproved, now) || period.SameDay(ct.LastApproved.AddDate(0, 0, 1), now))
		if !alive {
			ct.CurrentStreak = 0
		}
	}

	reset := false
	switch ch.ApprovalResetType {
	case model.ResetAtMidnight:
		reset = ct.ApprovalPeriodStart != nil && !period.SameDay(*ct.ApprovalPeriodStart, now)
	case model.ResetAtDueDate:
		due := ch.DueDateFor(kidID)
		reset = due != nil && ct.ApprovalPeriodStart != nil &&
			now.After(*due) && due.After(*ct.ApprovalPeriodStart)
	}
	if !reset {
		return
	}

	ct.ApprovalPeriodStart = nil
	if ct.State == model.StateApproved || ct.State == model.StateCompletedByOther {
		ct.State = model.StatePending
		ct.PendingClaimCount = 0
	}
}
