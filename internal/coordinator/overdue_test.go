package coordinator

import (
	"testing"
	"time"

	"github.com/kestrelhouse/chorekeep/internal/model"
)

func TestOverdueSweepMarksPastDue(t *testing.T) {
	c, now := newTestCoordinator(t)
	seedKid(t, c, "a", "Ada")
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)
	seedChore(t, c, &model.Chore{
		ID:                 "late",
		Name:               "Laundry",
		AssignedKids:       []string{"a"},
		CompletionCriteria: model.CriteriaIndependent,
		PerKidDueDates:     map[string]*time.Time{"a": &past},
	})
	seedChore(t, c, &model.Chore{
		ID:                 "ontime",
		AssignedKids:       []string{"a"},
		CompletionCriteria: model.CriteriaIndependent,
		PerKidDueDates:     map[string]*time.Time{"a": &future},
	})

	if err := c.RunOverdueSweep(); err != nil {
		t.Fatalf("sweep: %v", err)
	}

	kid := kidSnapshot(t, c, "a")
	if got := kid.ChoreData["late"].State; got != model.StateOverdue {
		t.Errorf("late state = %s, want overdue", got)
	}
	if len(kid.OverdueChores) != 1 || kid.OverdueChores[0] != "late" {
		t.Errorf("overdue list = %v, want [late]", kid.OverdueChores)
	}
	if ct, ok := kid.ChoreData["ontime"]; ok && ct.State == model.StateOverdue {
		t.Error("future-due chore marked overdue")
	}
	if got := choreSnapshot(t, c, "late").State; got != model.StateOverdue {
		t.Errorf("global state = %s, want overdue", got)
	}
}

func TestOverdueSweepIsIdempotent(t *testing.T) {
	c, now := newTestCoordinator(t)
	seedKid(t, c, "a", "Ada")
	past := now.Add(-time.Hour)
	seedChore(t, c, &model.Chore{
		ID:                 "c1",
		AssignedKids:       []string{"a"},
		CompletionCriteria: model.CriteriaIndependent,
		PerKidDueDates:     map[string]*time.Time{"a": &past},
	})

	if err := c.RunOverdueSweep(); err != nil {
		t.Fatal(err)
	}
	if err := c.RunOverdueSweep(); err != nil {
		t.Fatal(err)
	}

	kid := kidSnapshot(t, c, "a")
	if len(kid.OverdueChores) != 1 {
		t.Errorf("overdue list = %v, want single entry", kid.OverdueChores)
	}
	if got := kid.ChoreData["c1"].Periods.Total().Overdue; got != 1 {
		t.Errorf("overdue count = %d, want 1 (no double counting)", got)
	}
}

func TestOverdueSweepSkipsOpenClaims(t *testing.T) {
	c, now := newTestCoordinator(t)
	seedKid(t, c, "a", "Ada")
	past := now.Add(-time.Hour)
	seedChore(t, c, &model.Chore{
		ID:                 "c1",
		AssignedKids:       []string{"a"},
		CompletionCriteria: model.CriteriaIndependent,
		PerKidDueDates:     map[string]*time.Time{"a": &past},
	})

	if err := c.ClaimChore("a", "c1"); err != nil {
		t.Fatal(err)
	}
	if err := c.RunOverdueSweep(); err != nil {
		t.Fatal(err)
	}

	if got := kidSnapshot(t, c, "a").ChoreData["c1"].State; got != model.StateClaimed {
		t.Errorf("state = %s, want claimed (claim blocks overdue)", got)
	}
}

func TestOverdueSweepSharedFirstSettledRace(t *testing.T) {
	c, now := newTestCoordinator(t)
	seedKid(t, c, "a", "Ada")
	seedKid(t, c, "b", "Ben")
	past := now.Add(-time.Hour)
	seedChore(t, c, &model.Chore{
		ID:                 "c1",
		AssignedKids:       []string{"a", "b"},
		CompletionCriteria: model.CriteriaSharedFirst,
		DueDate:            &past,
	})

	if err := c.ClaimChore("a", "c1"); err != nil {
		t.Fatal(err)
	}
	if err := c.RunOverdueSweep(); err != nil {
		t.Fatal(err)
	}

	// One live claim shields every assigned kid from overdue.
	for _, id := range []string{"a", "b"} {
		kid := kidSnapshot(t, c, id)
		if len(kid.OverdueChores) != 0 {
			t.Errorf("kid %s overdue list = %v, want empty", id, kid.OverdueChores)
		}
	}
}

func TestOverdueSweepSharedMarksEveryLagger(t *testing.T) {
	c, now := newTestCoordinator(t)
	seedKid(t, c, "a", "Ada")
	seedKid(t, c, "b", "Ben")
	past := now.Add(-time.Hour)
	seedChore(t, c, &model.Chore{
		ID:                 "c1",
		AssignedKids:       []string{"a", "b"},
		CompletionCriteria: model.CriteriaShared,
		DueDate:            &past,
	})

	if err := c.ApproveChore("a", "c1"); err != nil {
		t.Fatal(err)
	}
	if err := c.RunOverdueSweep(); err != nil {
		t.Fatal(err)
	}

	// a holds an approval in the current period; b is overdue.
	if got := kidSnapshot(t, c, "a").ChoreData["c1"].State; got != model.StateApproved {
		t.Errorf("a state = %s, want approved", got)
	}
	if got := kidSnapshot(t, c, "b").ChoreData["c1"].State; got != model.StateOverdue {
		t.Errorf("b state = %s, want overdue", got)
	}
}

func TestOverdueSweepSharedFirstUnclaimedMarksAllKids(t *testing.T) {
	c, now := newTestCoordinator(t)
	seedKid(t, c, "a", "Ada")
	seedKid(t, c, "b", "Ben")
	past := now.Add(-time.Hour)
	seedChore(t, c, &model.Chore{
		ID:                 "c1",
		AssignedKids:       []string{"a", "b"},
		CompletionCriteria: model.CriteriaSharedFirst,
		DueDate:            &past,
	})

	if err := c.RunOverdueSweep(); err != nil {
		t.Fatalf("sweep: %v", err)
	}

	// Nobody raced for it, so everyone shares the miss.
	for _, id := range []string{"a", "b"} {
		kid := kidSnapshot(t, c, id)
		if got := kid.ChoreData["c1"].State; got != model.StateOverdue {
			t.Errorf("kid %s state = %s, want overdue", id, got)
		}
		if len(kid.OverdueChores) != 1 || kid.OverdueChores[0] != "c1" {
			t.Errorf("kid %s overdue list = %v, want [c1]", id, kid.OverdueChores)
		}
	}
	if got := choreSnapshot(t, c, "c1").State; got != model.StateOverdue {
		t.Errorf("global state = %s, want overdue", got)
	}
}
