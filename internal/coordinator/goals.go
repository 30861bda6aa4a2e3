package coordinator

import (
	"fmt"
	"time"

	"github.com/kestrelhouse/chorekeep/internal/history"
	"github.com/kestrelhouse/chorekeep/internal/model"
	"github.com/kestrelhouse/chorekeep/internal/websocket"
)

// evaluateGoals re-checks badges, achievements and challenges for a kid
// after a chore approval. Caller holds the document lock.
func (c *Coordinator) evaluateGoals(doc *model.Document, kid *model.Kid, ch *model.Chore, now time.Time) {
	c.evaluateBadges(doc, kid, now)
	c.evaluateAchievements(doc, kid, ch, now)
	c.evaluateChallenges(doc, kid, ch, now)
}

// evaluateBadges awards milestone badges whose targets the kid now meets
// and advances cumulative badge cycles.
func (c *Coordinator) evaluateBadges(doc *model.Document, kid *model.Kid, now time.Time) {
	for badgeID, badge := range doc.Badges {
		if !badge.AppliesTo(kid.ID) {
			continue
		}
		switch badge.Type {
		case model.BadgeCumulative:
			c.evaluateCumulativeBadge(doc, kid, badgeID, badge, now)
		default:
			if _, earned := kid.BadgesEarned[badgeID]; earned {
				continue
			}
			if c.badgeProgress(kid, badge, now) >= badge.Target.Value {
				c.awardBadge(doc, kid, badgeID, badge, now)
			}
		}
	}
}

// badgeProgress measures the kid against a badge target.
func (c *Coordinator) badgeProgress(kid *model.Kid, badge *model.Badge, now time.Time) float64 {
	switch badge.Target.Type {
	case model.TargetChoreCount:
		return float64(kid.PointData.Total().Approved)
	case model.TargetStreak:
		best := 0
		for _, ct := range kid.ChoreData {
			if ct.CurrentStreak > best {
				best = ct.CurrentStreak
			}
		}
		return float64(best)
	default: // points
		return kid.PointData.Total().Points
	}
}

// evaluateCumulativeBadge tracks points earned since the cycle baseline.
// Meeting the cycle target awards (or re-awards) the badge and opens the
// next cycle from the new baseline.
func (c *Coordinator) evaluateCumulativeBadge(doc *model.Document, kid *model.Kid, badgeID string, badge *model.Badge, now time.Time) {
	if kid.CumulativeBadgeProgress == nil {
		kid.CumulativeBadgeProgress = make(map[string]*model.CumulativeProgress)
	}
	prog, ok := kid.CumulativeBadgeProgress[badgeID]
	if !ok {
		t := now
		prog = &model.CumulativeProgress{BaselinePoints: kid.PointData.Total().Points, WindowStart: &t}
		kid.CumulativeBadgeProgress[badgeID] = prog
	}

	// An expired maintenance window restarts the cycle from the current
	// total, discarding partial progress.
	if badge.MaintenanceWindowDays > 0 && prog.WindowStart != nil {
		deadline := prog.WindowStart.AddDate(0, 0, badge.MaintenanceWindowDays)
		if now.After(deadline) {
			t := now
			prog.BaselinePoints = kid.PointData.Total().Points
			prog.CyclePoints = 0
			prog.WindowStart = &t
			return
		}
	}

	prog.CyclePoints = model.RoundPoints(kid.PointData.Total().Points - prog.BaselinePoints)
	if prog.CyclePoints >= badge.Target.Value {
		c.awardBadge(doc, kid, badgeID, badge, now)
		t := now
		prog.BaselinePoints = kid.PointData.Total().Points
		prog.CyclePoints = 0
		prog.WindowStart = &t
	}
}

func (c *Coordinator) awardBadge(doc *model.Document, kid *model.Kid, badgeID string, badge *model.Badge, now time.Time) {
	if kid.BadgesEarned == nil {
		kid.BadgesEarned = make(map[string]*model.BadgeAward)
	}
	award, ok := kid.BadgesEarned[badgeID]
	if !ok {
		award = &model.BadgeAward{EarnedAt: now}
		kid.BadgesEarned[badgeID] = award
	}
	award.Count++

	if badge.AwardPoints > 0 {
		bonus := model.RoundPoints(badge.AwardPoints)
		kid.Points = model.RoundPoints(kid.Points + bonus)
		kid.PointData.RecordPoints(now, bonus)
	}

	c.notify(doc, model.Notification{
		Event: "badge_earned", KidID: kid.ID,
		Title: "Badge earned",
		Body:  fmt.Sprintf("%s earned %q", kid.Name, badge.Name),
	})
	c.record(history.Event{Type: history.EventBadgeEarned, KidID: kid.ID, EntityID: badgeID, OccurredAt: now, Detail: badge.Name})
	c.broadcast(websocket.Event{Type: "badge_earned", KidID: kid.ID, Extra: map[string]any{"badge_id": badgeID}})
	c.logger.Info("badge earned", "kid", kid.Name, "badge", badge.Name, "count", award.Count)
}

func (c *Coordinator) evaluateAchievements(doc *model.Document, kid *model.Kid, ch *model.Chore, now time.Time) {
	for id, ach := range doc.Achievements {
		if !appliesToKid(ach.AssignedKids, kid.ID) {
			continue
		}
		if ach.SelectedChoreID != "" && ach.SelectedChoreID != ch.ID {
			continue
		}
		if ach.Progress == nil {
			ach.Progress = make(map[string]*model.GoalProgress)
		}
		prog, ok := ach.Progress[kid.ID]
		if !ok {
			prog = &model.GoalProgress{}
			ach.Progress[kid.ID] = prog
		}
		if prog.Awarded {
			continue
		}

		switch ach.Type {
		case model.AchievementStreak:
			prog.Value = float64(kid.Tracking(ch.ID).CurrentStreak)
		default: // total
			prog.Value++
		}

		if prog.Value >= ach.TargetValue {
			c.awardGoal(doc, kid, id, ach.Name, ach.RewardPoints, prog, now)
		}
	}
}

func (c *Coordinator) evaluateChallenges(doc *model.Document, kid *model.Kid, ch *model.Chore, now time.Time) {
	for id, chal := range doc.Challenges {
		if !chal.Active(now) || !appliesToKid(chal.AssignedKids, kid.ID) {
			continue
		}
		if chal.SelectedChoreID != "" && chal.SelectedChoreID != ch.ID {
			continue
		}
		if chal.Progress == nil {
			chal.Progress = make(map[string]*model.GoalProgress)
		}
		prog, ok := chal.Progress[kid.ID]
		if !ok {
			prog = &model.GoalProgress{}
			chal.Progress[kid.ID] = prog
		}
		if prog.Awarded {
			continue
		}

		prog.Value++
		if prog.Value >= chal.TargetValue {
			c.awardGoal(doc, kid, id, chal.Name, chal.RewardPoints, prog, now)
		}
	}
}

func (c *Coordinator) awardGoal(doc *model.Document, kid *model.Kid, goalID, name string, rewardPoints float64, prog *model.GoalProgress, now time.Time) {
	prog.Awarded = true
	t := now
	prog.AwardedAt = &t

	if rewardPoints > 0 {
		bonus := model.RoundPoints(rewardPoints)
		kid.Points = model.RoundPoints(kid.Points + bonus)
		kid.PointData.RecordPoints(now, bonus)
	}

	c.notify(doc, model.Notification{
		Event: "goal_awarded", KidID: kid.ID,
		Title: "Goal reached",
		Body:  fmt.Sprintf("%s completed %q", kid.Name, name),
	})
	c.record(history.Event{Type: history.EventGoalAwarded, KidID: kid.ID, EntityID: goalID, Points: rewardPoints, OccurredAt: now, Detail: name})
	c.broadcast(websocket.Event{Type: "goal_awarded", KidID: kid.ID, Extra: map[string]any{"goal_id": goalID}})
}

func appliesToKid(assigned []string, kidID string) bool {
	if len(assigned) == 0 {
		return true
	}
	for _, id := range assigned {
		if id == kidID {
			return true
		}
	}
	return false
}
