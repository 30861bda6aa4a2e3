package coordinator

import (
	"fmt"

	"github.com/kestrelhouse/chorekeep/internal/history"
	"github.com/kestrelhouse/chorekeep/internal/model"
	"github.com/kestrelhouse/chorekeep/internal/websocket"
)

// RedeemReward spends a kid's points on a reward. When the reward requires
// approval, the points are held immediately and a parent decision follows;
// otherwise the redemption completes in one step.
func (c *Coordinator) RedeemReward(kidID, rewardID string) error {
	now := c.now().UTC()
	var (
		cost     float64
		pending  bool
		rewardNm string
	)

	err := c.store.Update(func(doc *model.Document) error {
		kid, ok := doc.Kids[kidID]
		if !ok {
			return fmt.Errorf("kid %s: %w", kidID, ErrNotFound)
		}
		reward, ok := doc.Rewards[rewardID]
		if !ok {
			return fmt.Errorf("reward %s: %w", rewardID, ErrNotFound)
		}

		cost = model.RoundPoints(reward.Cost)
		if kid.Points < cost {
			return fmt.Errorf("redeem %q for %s: %w (have %g, need %g)",
				reward.Name, kid.Name, ErrInsufficientPoints, kid.Points, cost)
		}

		kid.Points = model.RoundPoints(kid.Points - cost)
		kid.PointData.RecordPoints(now, -cost)

		if kid.RewardData == nil {
			kid.RewardData = make(map[string]*model.RewardTracking)
		}
		rt, ok := kid.RewardData[rewardID]
		if !ok {
			rt = model.NewRewardTracking()
			kid.RewardData[rewardID] = rt
		}
		t := now
		rt.LastRedeemed = &t
		rt.Periods.RecordClaimed(now)

		rewardNm = reward.Name
		pending = reward.ApprovalRequired
		if pending {
			rt.PendingCount++
			c.notify(doc, model.Notification{
				Event: "reward_redeemed", KidID: kidID,
				Title: "Reward approval needed",
				Body:  fmt.Sprintf("%s redeemed %q", kid.Name, reward.Name),
			})
		} else {
			rt.Periods.RecordApproved(now, 0)
		}
		return nil
	})
	if err != nil {
		return err
	}

	c.record(history.Event{Type: history.EventRewardRedeemed, KidID: kidID, EntityID: rewardID, Points: -cost, OccurredAt: now, Detail: rewardNm})
	c.broadcast(websocket.Event{Type: "reward_redeemed", KidID: kidID, Points: -cost, Extra: map[string]any{"reward_id": rewardID, "pending": pending}})
	return nil
}

// ApproveReward settles a pending redemption.
func (c *Coordinator) ApproveReward(kidID, rewardID string) error {
	now := c.now().UTC()

	err := c.store.Update(func(doc *model.Document) error {
		kid, ok := doc.Kids[kidID]
		if !ok {
			return fmt.Errorf("kid %s: %w", kidID, ErrNotFound)
		}
		reward, ok := doc.Rewards[rewardID]
		if !ok {
			return fmt.Errorf("reward %s: %w", rewardID, ErrNotFound)
		}
		rt := kid.RewardData[rewardID]
		if rt == nil || rt.PendingCount == 0 {
			return fmt.Errorf("reward %s for kid %s: no pending redemption: %w", rewardID, kidID, ErrNotFound)
		}

		rt.PendingCount--
		rt.Periods.RecordApproved(now, 0)

		c.notify(doc, model.Notification{
			Event: "reward_approved", KidID: kidID,
			Title: "Reward approved",
			Body:  fmt.Sprintf("%q approved for %s", reward.Name, kid.Name),
		})
		return nil
	})
	if err != nil {
		return err
	}

	c.record(history.Event{Type: history.EventRewardApproved, KidID: kidID, EntityID: rewardID, OccurredAt: now})
	c.broadcast(websocket.Event{Type: "reward_approved", KidID: kidID, Extra: map[string]any{"reward_id": rewardID}})
	return nil
}

// DisapproveReward rejects a pending redemption and refunds the held points.
func (c *Coordinator) DisapproveReward(kidID, rewardID string) error {
	now := c.now().UTC()
	var refund float64

	err := c.store.Update(func(doc *model.Document) error {
		kid, ok := doc.Kids[kidID]
		if !ok {
			return fmt.Errorf("kid %s: %w", kidID, ErrNotFound)
		}
		reward, ok := doc.Rewards[rewardID]
		if !ok {
			return fmt.Errorf("reward %s: %w", rewardID, ErrNotFound)
		}
		rt := kid.RewardData[rewardID]
		if rt == nil || rt.PendingCount == 0 {
			return fmt.Errorf("reward %s for kid %s: no pending redemption: %w", rewardID, kidID, ErrNotFound)
		}

		rt.PendingCount--
		rt.Periods.RecordDisapproved(now)

		refund = model.RoundPoints(reward.Cost)
		kid.Points = model.RoundPoints(kid.Points + refund)
		kid.PointData.RecordPoints(now, refund)

		c.notify(doc, model.Notification{
			Event: "reward_disapproved", KidID: kidID,
			Title: "Reward declined",
			Body:  fmt.Sprintf("%q declined for %s, points refunded", reward.Name, kid.Name),
		})
		return nil
	})
	if err != nil {
		return err
	}

	c.record(history.Event{Type: history.EventRewardDenied, KidID: kidID, EntityID: rewardID, Points: refund, OccurredAt: now})
	c.broadcast(websocket.Event{Type: "reward_disapproved", KidID: kidID, Points: refund, Extra: map[string]any{"reward_id": rewardID}})
	return nil
}
