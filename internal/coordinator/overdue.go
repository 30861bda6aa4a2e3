package coordinator

import (
	"fmt"
	"time"

	"github.com/kestrelhouse/chorekeep/internal/chore"
	"github.com/kestrelhouse/chorekeep/internal/history"
	"github.com/kestrelhouse/chorekeep/internal/model"
	"github.com/kestrelhouse/chorekeep/internal/websocket"
)

// RunOverdueSweep walks every chore/kid pair and marks the ones whose due
// date has passed. A kid with an open claim or an approval in the current
// period is never marked. For SHARED_FIRST chores any claim or approval by
// one kid keeps the whole chore out of overdue: the race is still live or
// already won. Notifications fire only for newly-overdue pairs, so the
// sweep is safe to run as often as the scheduler likes.
func (c *Coordinator) RunOverdueSweep() error {
	now := c.now().UTC()
	type marked struct {
		kidID, choreID, choreName string
	}
	var newlyOverdue []marked

	err := c.store.Update(func(doc *model.Document) error {
		for _, ch := range doc.Chores {
			changed := false
			raceSettled := ch.CompletionCriteria == model.CriteriaSharedFirst && sharedFirstSettled(doc, ch, now)

			for _, kidID := range ch.AssignedKids {
				kid, ok := doc.Kids[kidID]
				if !ok {
					continue
				}
				due := ch.DueDateFor(kidID)
				if due == nil || now.Before(*due) {
					continue
				}
				ct := kid.Tracking(ch.ID)
				if ct.State == model.StateClaimed {
					continue
				}
				if ct.State == model.StateApproved && ct.InCurrentApprovalPeriod(now) {
					continue
				}
				if ct.State == model.StateCompletedByOther || raceSettled {
					continue
				}

				if ct.State != model.StateOverdue {
					ct.State = model.StateOverdue
					t := now
					ct.LastOverdue = &t
					ct.Periods.RecordOverdue(now)
					changed = true
				}
				if kid.MarkOverdue(ch.ID) {
					newlyOverdue = append(newlyOverdue, marked{kidID, ch.ID, ch.Name})
					c.notify(doc, model.Notification{
						Event: "chore_overdue", KidID: kidID, ChoreID: ch.ID,
						Title: "Chore overdue",
						Body:  fmt.Sprintf("%q is overdue for %s", ch.Name, kid.Name),
					})
				}
			}

			if changed {
				refreshChoreState(doc, ch)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, m := range newlyOverdue {
		c.record(history.Event{Type: history.EventOverdue, KidID: m.kidID, ChoreID: m.choreID, OccurredAt: now, Detail: m.choreName})
		c.broadcast(websocket.Event{Type: "chore_overdue", KidID: m.kidID, ChoreID: m.choreID, State: string(model.StateOverdue)})
	}
	if len(newlyOverdue) > 0 {
		c.logger.Info("overdue sweep", "newly_overdue", len(newlyOverdue))
	}
	return nil
}

// sharedFirstSettled reports whether any assigned kid has claimed the chore
// or holds an approval in the current period.
func sharedFirstSettled(doc *model.Document, ch *model.Chore, now time.Time) bool {
	if holder := chore.CurrentClaimant(ch, trackingByKid(doc, ch)); holder != "" {
		return true
	}
	for _, kidID := range ch.AssignedKids {
		kid, ok := doc.Kids[kidID]
		if !ok {
			continue
		}
		ct, ok := kid.ChoreData[ch.ID]
		if ok && ct.State == model.StateApproved && ct.InCurrentApprovalPeriod(now) {
			return true
		}
	}
	return false
}
