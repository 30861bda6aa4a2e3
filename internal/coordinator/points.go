package coordinator

import (
	"fmt"

	"github.com/kestrelhouse/chorekeep/internal/history"
	"github.com/kestrelhouse/chorekeep/internal/model"
	"github.com/kestrelhouse/chorekeep/internal/websocket"
)

// ApplyPenalty applies a named negative adjustment to a kid's balance.
// Penalty points are stored negative; a positive definition is applied
// negated so a misconfigured penalty can never award points.
func (c *Coordinator) ApplyPenalty(kidID, penaltyID string) error {
	now := c.now().UTC()
	var delta float64

	err := c.store.Update(func(doc *model.Document) error {
		kid, ok := doc.Kids[kidID]
		if !ok {
			return fmt.Errorf("kid %s: %w", kidID, ErrNotFound)
		}
		penalty, ok := doc.Penalties[penaltyID]
		if !ok {
			return fmt.Errorf("penalty %s: %w", penaltyID, ErrNotFound)
		}

		delta = model.RoundPoints(penalty.Points)
		if delta > 0 {
			delta = -delta
		}
		kid.Points = model.RoundPoints(kid.Points + delta)
		kid.PointData.RecordPoints(now, delta)

		c.notify(doc, model.Notification{
			Event: "penalty_applied", KidID: kidID,
			Title: "Penalty applied",
			Body:  fmt.Sprintf("%s: %q (%g points)", kid.Name, penalty.Name, delta),
		})
		return nil
	})
	if err != nil {
		return err
	}

	c.record(history.Event{Type: history.EventPenalty, KidID: kidID, EntityID: penaltyID, Points: delta, OccurredAt: now})
	c.broadcast(websocket.Event{Type: "penalty_applied", KidID: kidID, Points: delta})
	return nil
}

// ApplyBonus applies a named positive adjustment to a kid's balance and
// re-evaluates point-target goals.
func (c *Coordinator) ApplyBonus(kidID, bonusID string) error {
	now := c.now().UTC()
	var delta float64

	err := c.store.Update(func(doc *model.Document) error {
		kid, ok := doc.Kids[kidID]
		if !ok {
			return fmt.Errorf("kid %s: %w", kidID, ErrNotFound)
		}
		bonus, ok := doc.Bonuses[bonusID]
		if !ok {
			return fmt.Errorf("bonus %s: %w", bonusID, ErrNotFound)
		}

		delta = model.RoundPoints(bonus.Points)
		kid.Points = model.RoundPoints(kid.Points + delta)
		kid.PointData.RecordPoints(now, delta)

		c.evaluateBadges(doc, kid, now)

		c.notify(doc, model.Notification{
			Event: "bonus_applied", KidID: kidID,
			Title: "Bonus awarded",
			Body:  fmt.Sprintf("%s: %q (+%g points)", kid.Name, bonus.Name, delta),
		})
		return nil
	})
	if err != nil {
		return err
	}

	c.record(history.Event{Type: history.EventBonus, KidID: kidID, EntityID: bonusID, Points: delta, OccurredAt: now})
	c.broadcast(websocket.Event{Type: "bonus_applied", KidID: kidID, Points: delta})
	return nil
}
