package chore

import (
	"errors"
	"testing"

	"github.com/kestrelhouse/chorekeep/internal/model"
)

func tracking(states map[string]model.ChoreState) map[string]*model.ChoreTracking {
	out := make(map[string]*model.ChoreTracking, len(states))
	for kid, st := range states {
		out[kid] = &model.ChoreTracking{State: st}
	}
	return out
}

func TestResolveIndependent(t *testing.T) {
	single := &model.Chore{
		CompletionCriteria: model.CriteriaIndependent,
		AssignedKids:       []string{"a"},
	}
	if got := ResolveGlobalState(single, tracking(map[string]model.ChoreState{"a": model.StateClaimed})); got != model.StateClaimed {
		t.Errorf("single kid: got %s, want claimed", got)
	}

	multi := &model.Chore{
		CompletionCriteria: model.CriteriaIndependent,
		AssignedKids:       []string{"a", "b"},
	}
	got := ResolveGlobalState(multi, tracking(map[string]model.ChoreState{
		"a": model.StateApproved,
		"b": model.StatePending,
	}))
	if got != model.StateIndependent {
		t.Errorf("multi kid: got %s, want independent sentinel", got)
	}
}

func TestResolveShared(t *testing.T) {
	c := &model.Chore{
		CompletionCriteria: model.CriteriaShared,
		AssignedKids:       []string{"a", "b", "c"},
	}

	tests := []struct {
		name   string
		states map[string]model.ChoreState
		want   model.ChoreState
	}{
		{"all pending", map[string]model.ChoreState{}, model.StatePending},
		{"all approved", map[string]model.ChoreState{
			"a": model.StateApproved, "b": model.StateApproved, "c": model.StateApproved,
		}, model.StateApproved},
		{"partial approval", map[string]model.ChoreState{
			"a": model.StateApproved, "b": model.StateClaimed,
		}, model.StateApprovedInPart},
		{"all claimed", map[string]model.ChoreState{
			"a": model.StateClaimed, "b": model.StateClaimed, "c": model.StateClaimed,
		}, model.StateClaimed},
		{"partial claim", map[string]model.ChoreState{
			"a": model.StateClaimed,
		}, model.StateClaimedInPart},
		{"overdue wins over pending", map[string]model.ChoreState{
			"a": model.StateOverdue,
		}, model.StateOverdue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveGlobalState(c, tracking(tt.states)); got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestResolveSharedFirst(t *testing.T) {
	c := &model.Chore{
		CompletionCriteria: model.CriteriaSharedFirst,
		AssignedKids:       []string{"a", "b"},
	}

	got := ResolveGlobalState(c, tracking(map[string]model.ChoreState{
		"a": model.StateClaimed,
		"b": model.StateCompletedByOther,
	}))
	if got != model.StateClaimed {
		t.Errorf("got %s, want claimed (winner's state)", got)
	}

	// completed_by_other alone never becomes the global state.
	got = ResolveGlobalState(c, tracking(map[string]model.ChoreState{
		"b": model.StateCompletedByOther,
	}))
	if got != model.StatePending {
		t.Errorf("got %s, want pending", got)
	}
}

func TestResolveAlternatingOverdue(t *testing.T) {
	c := &model.Chore{
		CompletionCriteria: model.CriteriaAlternating,
		AssignedKids:       []string{"a", "b"},
	}
	got := ResolveGlobalState(c, tracking(map[string]model.ChoreState{
		"a": model.StateOverdue,
	}))
	if got != model.StateOverdue {
		t.Errorf("got %s, want overdue", got)
	}
}

func TestResolveNoAssignedKids(t *testing.T) {
	c := &model.Chore{CompletionCriteria: model.CriteriaShared}
	if got := ResolveGlobalState(c, nil); got != model.StatePending {
		t.Errorf("got %s, want pending", got)
	}
}

func TestCurrentClaimant(t *testing.T) {
	c := &model.Chore{
		CompletionCriteria: model.CriteriaSharedFirst,
		AssignedKids:       []string{"a", "b"},
	}
	if got := CurrentClaimant(c, nil); got != "" {
		t.Errorf("got %q, want no claimant", got)
	}
	got := CurrentClaimant(c, tracking(map[string]model.ChoreState{"b": model.StateApproved}))
	if got != "b" {
		t.Errorf("got %q, want b", got)
	}
}

func TestClaimErrorUnwrap(t *testing.T) {
	err := &ClaimError{KidID: "a", ChoreID: "c1", Holder: "b", Err: ErrAlreadyClaimed}
	if !errors.Is(err, ErrAlreadyClaimed) {
		t.Error("expected errors.Is to match ErrAlreadyClaimed")
	}
	if err.Error() == "" {
		t.Error("expected non-empty message")
	}
}
