package coordinator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelhouse/chorekeep/internal/model"
)

func seedBadge(t *testing.T, c *Coordinator, b *model.Badge) {
	t.Helper()
	err := c.store.Update(func(doc *model.Document) error {
		doc.Badges[b.ID] = b
		return nil
	})
	require.NoError(t, err)
}

// openCycle starts a cumulative badge cycle from a zero baseline, the way
// badge creation does for already-enrolled kids.
func openCycle(t *testing.T, c *Coordinator, kidID, badgeID string, start time.Time) {
	t.Helper()
	err := c.store.Update(func(doc *model.Document) error {
		kid := doc.Kids[kidID]
		if kid.CumulativeBadgeProgress == nil {
			kid.CumulativeBadgeProgress = make(map[string]*model.CumulativeProgress)
		}
		ws := start
		kid.CumulativeBadgeProgress[badgeID] = &model.CumulativeProgress{WindowStart: &ws}
		return nil
	})
	require.NoError(t, err)
}

func approveTimes(t *testing.T, c *Coordinator, kidID, choreID string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, c.ApproveChore(kidID, choreID))
		// Reopen the approval period so the next approval is accepted.
		err := c.store.Update(func(doc *model.Document) error {
			doc.Kids[kidID].ChoreData[choreID].ApprovalPeriodStart = nil
			return nil
		})
		require.NoError(t, err)
	}
}

func TestMilestonePointsBadge(t *testing.T) {
	c, now := newTestCoordinator(t)
	seedKid(t, c, "a", "Ada")
	seedChore(t, c, &model.Chore{
		ID:                 "c1",
		Points:             4,
		AssignedKids:       []string{"a"},
		CompletionCriteria: model.CriteriaIndependent,
	})
	seedBadge(t, c, &model.Badge{
		ID:          "b1",
		Name:        "Point collector",
		Type:        model.BadgeMilestone,
		Target:      model.BadgeTarget{Type: model.TargetPoints, Value: 10},
		AwardPoints: 5,
		CreatedAt:   now,
	})

	approveTimes(t, c, "a", "c1", 2)
	kid := kidSnapshot(t, c, "a")
	assert.NotContains(t, kid.BadgesEarned, "b1", "8 points must not award a 10-point badge")

	approveTimes(t, c, "a", "c1", 1)
	kid = kidSnapshot(t, c, "a")
	require.Contains(t, kid.BadgesEarned, "b1")
	assert.Equal(t, 1, kid.BadgesEarned["b1"].Count)
	// 3 approvals at 4 points plus the 5-point award bonus.
	assert.InDelta(t, 17.0, kid.Points, 0.001)
}

func TestMilestoneBadgeAwardsOnce(t *testing.T) {
	c, now := newTestCoordinator(t)
	seedKid(t, c, "a", "Ada")
	seedChore(t, c, &model.Chore{
		ID:                 "c1",
		Points:             10,
		AssignedKids:       []string{"a"},
		CompletionCriteria: model.CriteriaIndependent,
	})
	seedBadge(t, c, &model.Badge{
		ID:        "b1",
		Name:      "Starter",
		Type:      model.BadgeMilestone,
		Target:    model.BadgeTarget{Type: model.TargetPoints, Value: 10},
		CreatedAt: now,
	})

	approveTimes(t, c, "a", "c1", 3)
	kid := kidSnapshot(t, c, "a")
	require.Contains(t, kid.BadgesEarned, "b1")
	assert.Equal(t, 1, kid.BadgesEarned["b1"].Count, "milestone badges are one-shot")
}

func TestChoreCountBadge(t *testing.T) {
	c, now := newTestCoordinator(t)
	seedKid(t, c, "a", "Ada")
	seedChore(t, c, &model.Chore{
		ID:                 "c1",
		Points:             1,
		AssignedKids:       []string{"a"},
		CompletionCriteria: model.CriteriaIndependent,
	})
	seedBadge(t, c, &model.Badge{
		ID:        "b1",
		Name:      "Busy bee",
		Type:      model.BadgeMilestone,
		Target:    model.BadgeTarget{Type: model.TargetChoreCount, Value: 3},
		CreatedAt: now,
	})

	approveTimes(t, c, "a", "c1", 3)
	kid := kidSnapshot(t, c, "a")
	assert.Contains(t, kid.BadgesEarned, "b1")
}

func TestBadgeScopedToAssignedKids(t *testing.T) {
	c, now := newTestCoordinator(t)
	seedKid(t, c, "a", "Ada")
	seedKid(t, c, "b", "Ben")
	seedChore(t, c, &model.Chore{
		ID:                 "c1",
		Points:             20,
		AssignedKids:       []string{"a", "b"},
		CompletionCriteria: model.CriteriaIndependent,
	})
	seedBadge(t, c, &model.Badge{
		ID:           "b1",
		Name:         "Ben only",
		Type:         model.BadgeMilestone,
		Target:       model.BadgeTarget{Type: model.TargetPoints, Value: 10},
		AssignedKids: []string{"b"},
		CreatedAt:    now,
	})

	approveTimes(t, c, "a", "c1", 1)
	assert.NotContains(t, kidSnapshot(t, c, "a").BadgesEarned, "b1")

	approveTimes(t, c, "b", "c1", 1)
	assert.Contains(t, kidSnapshot(t, c, "b").BadgesEarned, "b1")
}

func TestCumulativeBadgeReawardsPerCycle(t *testing.T) {
	c, now := newTestCoordinator(t)
	seedKid(t, c, "a", "Ada")
	seedChore(t, c, &model.Chore{
		ID:                 "c1",
		Points:             10,
		AssignedKids:       []string{"a"},
		CompletionCriteria: model.CriteriaIndependent,
	})
	seedBadge(t, c, &model.Badge{
		ID:        "b1",
		Name:      "Keep it up",
		Type:      model.BadgeCumulative,
		Target:    model.BadgeTarget{Type: model.TargetPoints, Value: 10},
		CreatedAt: now,
	})
	openCycle(t, c, "a", "b1", now)

	approveTimes(t, c, "a", "c1", 1)
	kid := kidSnapshot(t, c, "a")
	require.Contains(t, kid.BadgesEarned, "b1")
	assert.Equal(t, 1, kid.BadgesEarned["b1"].Count)
	// The cycle reopened from the new baseline.
	prog := kid.CumulativeBadgeProgress["b1"]
	require.NotNil(t, prog)
	assert.Zero(t, prog.CyclePoints)

	approveTimes(t, c, "a", "c1", 1)
	kid = kidSnapshot(t, c, "a")
	assert.Equal(t, 2, kid.BadgesEarned["b1"].Count, "cumulative badges re-award each cycle")
}

func TestCumulativeBadgeWindowExpiryDiscardsProgress(t *testing.T) {
	c, now := newTestCoordinator(t)
	seedKid(t, c, "a", "Ada")
	seedChore(t, c, &model.Chore{
		ID:                 "c1",
		Points:             6,
		AssignedKids:       []string{"a"},
		CompletionCriteria: model.CriteriaIndependent,
	})
	seedBadge(t, c, &model.Badge{
		ID:                    "b1",
		Name:                  "Weekly grind",
		Type:                  model.BadgeCumulative,
		Target:                model.BadgeTarget{Type: model.TargetPoints, Value: 10},
		MaintenanceWindowDays: 7,
		CreatedAt:             now,
	})
	openCycle(t, c, "a", "b1", now)

	// 6 of 10 points inside the window.
	approveTimes(t, c, "a", "c1", 1)
	require.NotContains(t, kidSnapshot(t, c, "a").BadgesEarned, "b1")

	// The window lapses; the rollover's badge pass re-baselines.
	c.now = func() time.Time { return now.AddDate(0, 0, 10) }
	require.NoError(t, c.RunMidnightRollover())

	prog := kidSnapshot(t, c, "a").CumulativeBadgeProgress["b1"]
	require.NotNil(t, prog)
	assert.Zero(t, prog.CyclePoints, "expired window discards partial progress")

	// Another 6 points in the fresh window still is not enough.
	approveTimes(t, c, "a", "c1", 1)
	assert.NotContains(t, kidSnapshot(t, c, "a").BadgesEarned, "b1")
}

func TestAchievementTotalAndStreak(t *testing.T) {
	c, now := newTestCoordinator(t)
	seedKid(t, c, "a", "Ada")
	seedChore(t, c, &model.Chore{
		ID:                 "c1",
		Points:             1,
		AssignedKids:       []string{"a"},
		CompletionCriteria: model.CriteriaIndependent,
	})
	err := c.store.Update(func(doc *model.Document) error {
		doc.Achievements["total"] = &model.Achievement{
			ID: "total", Name: "Ten approvals", Type: model.AchievementTotal,
			TargetValue: 2, RewardPoints: 3,
			Progress:  map[string]*model.GoalProgress{},
			CreatedAt: now,
		}
		doc.Achievements["streak"] = &model.Achievement{
			ID: "streak", Name: "Three in a row", Type: model.AchievementStreak,
			TargetValue: 3, SelectedChoreID: "c1",
			Progress:  map[string]*model.GoalProgress{},
			CreatedAt: now,
		}
		return nil
	})
	require.NoError(t, err)

	approveTimes(t, c, "a", "c1", 2)

	kid := kidSnapshot(t, c, "a")
	var total, streak *model.GoalProgress
	c.store.View(func(doc *model.Document) {
		total = doc.Achievements["total"].Progress["a"]
		streak = doc.Achievements["streak"].Progress["a"]
	})
	require.NotNil(t, total)
	assert.True(t, total.Awarded, "two approvals reach the total target")
	// 2 chore points plus the 3-point achievement reward.
	assert.InDelta(t, 5.0, kid.Points, 0.001)

	require.NotNil(t, streak)
	assert.False(t, streak.Awarded)
	// Same-day approvals hold the streak at 1.
	assert.InDelta(t, 1.0, streak.Value, 0.001)
}

func TestChallengeOnlyCountsInsideWindow(t *testing.T) {
	c, now := newTestCoordinator(t)
	seedKid(t, c, "a", "Ada")
	seedChore(t, c, &model.Chore{
		ID:                 "c1",
		Points:             1,
		AssignedKids:       []string{"a"},
		CompletionCriteria: model.CriteriaIndependent,
	})
	err := c.store.Update(func(doc *model.Document) error {
		doc.Challenges["past"] = &model.Challenge{
			ID: "past", Name: "Last week", TargetValue: 1,
			StartDate: now.AddDate(0, 0, -14), EndDate: now.AddDate(0, 0, -7),
			Progress: map[string]*model.GoalProgress{}, CreatedAt: now,
		}
		doc.Challenges["live"] = &model.Challenge{
			ID: "live", Name: "This week", TargetValue: 1, RewardPoints: 2,
			StartDate: now.AddDate(0, 0, -1), EndDate: now.AddDate(0, 0, 6),
			Progress: map[string]*model.GoalProgress{}, CreatedAt: now,
		}
		return nil
	})
	require.NoError(t, err)

	approveTimes(t, c, "a", "c1", 1)

	c.store.View(func(doc *model.Document) {
		assert.Empty(t, doc.Challenges["past"].Progress, "closed challenge must not accrue")
		prog := doc.Challenges["live"].Progress["a"]
		if assert.NotNil(t, prog) {
			assert.True(t, prog.Awarded)
		}
	})
}
