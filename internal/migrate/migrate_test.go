package migrate

import (
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/kestrelhouse/chorekeep/internal/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const legacyDoc = `{
  "meta": {"schema_version": 3},
  "kids": {
    "k1": {
      "name": "Ada",
      "points": 12.3456,
      "badges": ["First steps", "Ghost badge"],
      "chore_streaks": {"c1": 4},
      "completed_chores_total": 9,
      "claimed_chores": ["c2"],
      "approved_chores": ["c1"],
      "redeemed_rewards": ["r1", "r1", "r2"]
    }
  },
  "chores": {
    "c1": {
      "name": "Dishes",
      "shared_chore": false,
      "recurring_frequency": "daily",
      "reset_at_midnight": false,
      "due_date": "2025-06-01 18:00:00",
      "assigned_kids": ["k1"]
    },
    "c2": {
      "name": "Yard",
      "shared_chore": true,
      "assigned_kids": ["k1"]
    }
  },
  "badges": {
    "b1": {"name": "First steps", "threshold_type": "chore_count", "threshold_value": 3}
  },
  "rewards": {
    "r1": {"name": "Movie night"},
    "r2": {"name": "Ice cream", "cost": 5}
  },
  "config": {
    "parents": {
      "p1": {"name": "Pat"}
    }
  }
}`

func runMigration(t *testing.T, raw string) map[string]any {
	t.Helper()
	out, err := Run(json.RawMessage(raw), testLogger())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(out, &doc); err != nil {
		t.Fatalf("decode migrated document: %v", err)
	}
	return doc
}

func section(t *testing.T, doc map[string]any, path ...string) map[string]any {
	t.Helper()
	node := doc
	for _, p := range path {
		next, ok := node[p].(map[string]any)
		if !ok {
			t.Fatalf("missing map at %v (stuck on %q)", path, p)
		}
		node = next
	}
	return node
}

func TestNeeded(t *testing.T) {
	if !Needed(json.RawMessage(`{"meta":{"schema_version":3}}`)) {
		t.Error("schema 3 should need migration")
	}
	if Needed(json.RawMessage(`{"meta":{"schema_version":42}}`)) {
		t.Error("schema 42 should not need migration")
	}
	if !Needed(json.RawMessage(`{"kids":{}}`)) {
		t.Error("a document with no meta is pre-v42")
	}
	if Needed(json.RawMessage(`not json`)) {
		t.Error("undecodable input must not claim to need migration")
	}
}

func TestRunStampsSchemaVersion(t *testing.T) {
	doc := runMigration(t, legacyDoc)
	meta := section(t, doc, "meta")
	if got := meta["schema_version"].(float64); int(got) != model.SchemaVersion {
		t.Errorf("schema_version = %v, want %d", got, model.SchemaVersion)
	}
	if Needed(mustMarshal(t, doc)) {
		t.Error("migrated document still reports Needed")
	}
}

func TestSharedChoreBecomesCompletionCriteria(t *testing.T) {
	doc := runMigration(t, legacyDoc)

	c1 := section(t, doc, "chores", "c1")
	if got := c1["completion_criteria"]; got != "independent" {
		t.Errorf("c1 criteria = %v, want independent", got)
	}
	if got := c1["frequency"]; got != "daily" {
		t.Errorf("c1 frequency = %v, want daily", got)
	}
	if got := c1["approval_reset_type"]; got != "at_due_date" {
		t.Errorf("c1 reset type = %v, want at_due_date", got)
	}

	c2 := section(t, doc, "chores", "c2")
	if got := c2["completion_criteria"]; got != "shared" {
		t.Errorf("c2 criteria = %v, want shared", got)
	}
	if got := c2["frequency"]; got != "none" {
		t.Errorf("c2 frequency = %v, want none", got)
	}
	if got := c2["approval_reset_type"]; got != "at_midnight" {
		t.Errorf("c2 reset type = %v, want at_midnight", got)
	}

	for _, f := range []string{"shared_chore", "recurring_frequency", "reset_at_midnight"} {
		if _, ok := c1[f]; ok {
			t.Errorf("legacy field %q survived migration", f)
		}
	}
}

func TestTimestampsNormalizedToRFC3339(t *testing.T) {
	doc := runMigration(t, legacyDoc)
	c1 := section(t, doc, "chores", "c1")
	if got := c1["due_date"]; got != "2025-06-01T18:00:00Z" {
		t.Errorf("due_date = %v, want 2025-06-01T18:00:00Z", got)
	}
}

func TestIndependentDueDatesFanOut(t *testing.T) {
	doc := runMigration(t, legacyDoc)
	perKid := section(t, doc, "chores", "c1", "per_kid_due_dates")
	if got := perKid["k1"]; got != "2025-06-01T18:00:00Z" {
		t.Errorf("per-kid due date = %v, want the chore-level date", got)
	}
	// Shared chores keep the chore-level field only.
	c2 := section(t, doc, "chores", "c2")
	if _, ok := c2["per_kid_due_dates"]; ok {
		t.Error("shared chore must not grow per-kid due dates")
	}
}

func TestBadgeThresholdBecomesTarget(t *testing.T) {
	doc := runMigration(t, legacyDoc)
	target := section(t, doc, "badges", "b1", "target")
	if got := target["type"]; got != "chore_count" {
		t.Errorf("target type = %v, want chore_count", got)
	}
	if got := target["value"].(float64); got != 3 {
		t.Errorf("target value = %v, want 3", got)
	}
	if got := target["points_equivalent"].(float64); got != 15 {
		t.Errorf("points equivalent = %v, want 15 (3 chores at 5 points each)", got)
	}
	b1 := section(t, doc, "badges", "b1")
	if _, ok := b1["threshold_type"]; ok {
		t.Error("legacy threshold_type survived migration")
	}
}

func TestBadgesListBecomesEarnedDict(t *testing.T) {
	doc := runMigration(t, legacyDoc)
	earned := section(t, doc, "kids", "k1", "badges_earned")
	award, ok := earned["b1"].(map[string]any)
	if !ok {
		t.Fatal("badge name not resolved to id in badges_earned")
	}
	if got := award["count"].(float64); got != 1 {
		t.Errorf("award count = %v, want 1", got)
	}
	if len(earned) != 1 {
		t.Errorf("got %d earned badges, want 1 (names without definitions drop)", len(earned))
	}
	kid := section(t, doc, "kids", "k1")
	if _, ok := kid["badges"]; ok {
		t.Error("legacy badges list survived migration")
	}
}

func TestLegacyStatsFoldIntoPeriods(t *testing.T) {
	doc := runMigration(t, legacyDoc)

	allTime := section(t, doc, "kids", "k1", "point_data", "all_time", "all_time")
	if got := allTime["approved"].(float64); got != 9 {
		t.Errorf("all-time approved = %v, want 9", got)
	}

	ct := section(t, doc, "kids", "k1", "chore_data", "c1")
	if got := ct["current_streak"].(float64); got != 4 {
		t.Errorf("current_streak = %v, want 4", got)
	}
	streakAllTime := section(t, doc, "kids", "k1", "chore_data", "c1", "periods", "all_time", "all_time")
	if got := streakAllTime["longest_streak"].(float64); got != 4 {
		t.Errorf("longest_streak = %v, want 4", got)
	}
}

func TestClaimedApprovedListsCutOver(t *testing.T) {
	doc := runMigration(t, legacyDoc)

	c1 := section(t, doc, "kids", "k1", "chore_data", "c1")
	if got := c1["state"]; got != "approved" {
		t.Errorf("c1 state = %v, want approved", got)
	}
	c2 := section(t, doc, "kids", "k1", "chore_data", "c2")
	if got := c2["state"]; got != "claimed" {
		t.Errorf("c2 state = %v, want claimed", got)
	}
	if got := c2["pending_claim_count"].(float64); got != 1 {
		t.Errorf("c2 pending_claim_count = %v, want 1", got)
	}

	kid := section(t, doc, "kids", "k1")
	for _, f := range []string{"claimed_chores", "approved_chores", "redeemed_rewards", "chore_streaks", "completed_chores_total"} {
		if _, ok := kid[f]; ok {
			t.Errorf("legacy field %q survived migration", f)
		}
	}
}

func TestRedeemedRewardsBecomeTracking(t *testing.T) {
	doc := runMigration(t, legacyDoc)
	r1 := section(t, doc, "kids", "k1", "reward_data", "r1", "periods", "all_time", "all_time")
	if got := r1["approved"].(float64); got != 2 {
		t.Errorf("r1 redemptions = %v, want 2", got)
	}
	r2 := section(t, doc, "kids", "k1", "reward_data", "r2", "periods", "all_time", "all_time")
	if got := r2["approved"].(float64); got != 1 {
		t.Errorf("r2 redemptions = %v, want 1", got)
	}
}

func TestConfigEntitiesSync(t *testing.T) {
	doc := runMigration(t, legacyDoc)
	parent := section(t, doc, "parents", "p1")
	if got := parent["name"]; got != "Pat" {
		t.Errorf("synced parent name = %v, want Pat", got)
	}
	if _, ok := doc["config"]; ok {
		t.Error("config section survived migration")
	}
}

func TestOptionalFieldBackfill(t *testing.T) {
	doc := runMigration(t, legacyDoc)
	r1 := section(t, doc, "rewards", "r1")
	if got := r1["cost"].(float64); got != 0 {
		t.Errorf("backfilled cost = %v, want 0", got)
	}
	if got := r1["approval_required"]; got != true {
		t.Errorf("backfilled approval_required = %v, want true", got)
	}
	for _, s := range []string{"penalties", "bonuses", "achievements", "challenges"} {
		if _, ok := doc[s].(map[string]any); !ok {
			t.Errorf("section %q not backfilled", s)
		}
	}
}

func TestPointFloatsRounded(t *testing.T) {
	doc := runMigration(t, legacyDoc)
	kid := section(t, doc, "kids", "k1")
	if got := kid["points"].(float64); got != 12.35 {
		t.Errorf("points = %v, want 12.35", got)
	}
}

func TestMigrationIsIdempotent(t *testing.T) {
	once := runMigration(t, legacyDoc)
	twice := runMigration(t, string(mustMarshal(t, once)))

	a := mustMarshal(t, once)
	b := mustMarshal(t, twice)
	if string(a) != string(b) {
		t.Errorf("second run changed the document:\nfirst:  %s\nsecond: %s", a, b)
	}
}

func TestMalformedEntitySkippedNotFatal(t *testing.T) {
	raw := `{
	  "meta": {"schema_version": 1},
	  "chores": {"bad": "not an object", "ok": {"name": "Dishes"}}
	}`
	doc := runMigration(t, raw)
	ok := section(t, doc, "chores", "ok")
	if got := ok["completion_criteria"]; got != "independent" {
		t.Errorf("healthy sibling not migrated: criteria = %v", got)
	}
}

func TestMigratedDocumentDecodes(t *testing.T) {
	doc := runMigration(t, legacyDoc)
	var typed model.Document
	if err := json.Unmarshal(mustMarshal(t, doc), &typed); err != nil {
		t.Fatalf("migrated document does not decode into the schema: %v", err)
	}
	kid, ok := typed.Kids["k1"]
	if !ok {
		t.Fatal("kid lost in migration")
	}
	if kid.Tracking("c1").CurrentStreak != 4 {
		t.Errorf("typed streak = %d, want 4", kid.Tracking("c1").CurrentStreak)
	}
}

func mustMarshal(t *testing.T, doc map[string]any) json.RawMessage {
	t.Helper()
	out, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return out
}
