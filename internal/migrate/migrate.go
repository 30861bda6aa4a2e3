package migrate

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/kestrelhouse/chorekeep/internal/model"
	"github.com/kestrelhouse/chorekeep/internal/period"
)

// Migrator rewrites a pre-v42 document into the modern schema in a single
// pass of sequential, idempotent phases. It is constructed per run and
// executed at most once per document lifetime, gated by meta.schema_version.
type Migrator struct {
	doc    map[string]any
	logger *slog.Logger
}

// Needed reports whether the raw document predates the v42 schema.
func Needed(raw json.RawMessage) bool {
	var probe struct {
		Meta struct {
			SchemaVersion int `json:"schema_version"`
		} `json:"meta"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return false
	}
	return probe.Meta.SchemaVersion < model.LegacySchemaCutover
}

// Run migrates the raw document and returns the rewritten JSON. The run is
// best-effort: a failure inside one kid/chore/badge is logged and skipped,
// never aborting the remaining entities.
func Run(raw json.RawMessage, logger *slog.Logger) (json.RawMessage, error) {
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode legacy document: %w", err)
	}

	m := &Migrator{doc: doc, logger: logger}
	m.RunAllMigrations()

	out, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode migrated document: %w", err)
	}
	return out, nil
}

// RunAllMigrations executes every phase in order, then stamps the schema
// version. Each phase is individually idempotent, so a crash between phases
// is repaired by simply running again.
func (m *Migrator) RunAllMigrations() {
	phases := []struct {
		name string
		fn   func()
	}{
		{"normalize_datetimes", m.normalizeDatetimes},
		{"chore_field_backfill", m.backfillChoreFields},
		{"kid_field_backfill", m.backfillKidFields},
		{"legacy_stats_to_periods", m.migrateLegacyStats},
		{"badge_targets", m.migrateBadgeTargets},
		{"badges_earned_dict", m.migrateBadgesEarned},
		{"independent_due_dates", m.populateIndependentDueDates},
		{"reset_type_enum", m.convertResetTypes},
		{"timestamp_tracking_cutover", m.cutoverTimestampTracking},
		{"reward_period_tracking", m.migrateRewardTracking},
		{"config_entity_sync", m.syncConfigEntities},
		{"optional_field_backfill", m.backfillOptionalFields},
		{"legacy_field_removal", m.removeLegacyFields},
		{"round_point_floats", m.roundPointFloats},
	}

	for _, p := range phases {
		m.logger.Debug("migration phase", "phase", p.name)
		p.fn()
	}

	meta := ensureMap(m.doc, "meta")
	meta["schema_version"] = model.SchemaVersion
}

// guard runs fn for one entity, converting a panic on unexpected data into
// a warning. Migration never aborts because one record is malformed.
func (m *Migrator) guard(kind, id string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Warn("skipping malformed entity during migration",
				"kind", kind, "id", id, "panic", r)
		}
	}()
	fn()
}

func (m *Migrator) eachEntity(section string, fn func(id string, entity map[string]any)) {
	for id, v := range asMap(m.doc[section]) {
		entity := asMap(v)
		if entity == nil {
			continue
		}
		m.guard(section, id, func() { fn(id, entity) })
	}
}

// --- phase 1: datetime normalization ---------------------------------------

var timestampKeys = map[string]bool{
	"last_claimed": true, "last_approved": true, "last_disapproved": true,
	"last_overdue": true, "approval_period_start": true, "due_date": true,
	"created_at": true, "updated_at": true, "earned_at": true,
	"last_redeemed": true, "start_date": true, "end_date": true,
	"window_start": true, "awarded_at": true,
}

// normalizeDatetimes walks the whole document and re-renders every known
// timestamp field as UTC RFC3339. Values that refuse to parse are dropped:
// a missing timestamp is recoverable, a poisoned one breaks every decode.
func (m *Migrator) normalizeDatetimes() {
	m.walkTimestamps(m.doc)
}

func (m *Migrator) walkTimestamps(node any) {
	switch n := node.(type) {
	case map[string]any:
		for k, v := range n {
			if s, ok := v.(string); ok && timestampKeys[k] {
				norm, ok := normalizeTimestamp(s)
				if ok {
					n[k] = norm
				} else {
					m.logger.Debug("dropping unparseable timestamp", "field", k, "value", s)
					delete(n, k)
				}
				continue
			}
			m.walkTimestamps(v)
		}
	case []any:
		for _, v := range n {
			m.walkTimestamps(v)
		}
	}
}

// --- phase 2: chore structural backfill ------------------------------------

func (m *Migrator) backfillChoreFields() {
	m.eachEntity("chores", func(id string, chore map[string]any) {
		// Legacy boolean shared_chore becomes the completion_criteria enum.
		// An explicit modern value always wins (idempotence).
		if asString(chore["completion_criteria"]) == "" {
			if shared, ok := asBool(chore["shared_chore"]); ok && shared {
				chore["completion_criteria"] = string(model.CriteriaShared)
			} else {
				chore["completion_criteria"] = string(model.CriteriaIndependent)
			}
		}

		if chore["assigned_kids"] == nil {
			chore["assigned_kids"] = []any{}
		}
		if asString(chore["frequency"]) == "" {
			// The legacy field was recurring_frequency with the same values.
			if f := asString(chore["recurring_frequency"]); f != "" {
				chore["frequency"] = f
			} else {
				chore["frequency"] = string(model.FreqNone)
			}
		}
		if asString(chore["state"]) == "" {
			chore["state"] = string(model.StatePending)
		}
		if chore["id"] == nil {
			chore["id"] = id
		}
	})
}

// --- phase 3: kid structural backfill --------------------------------------

func (m *Migrator) backfillKidFields() {
	m.eachEntity("kids", func(id string, kid map[string]any) {
		ensureMap(kid, "chore_data")
		ensureMap(kid, "reward_data")
		ensureMap(kid, "cumulative_badge_progress")
		if kid["overdue_chores"] == nil {
			kid["overdue_chores"] = []any{}
		}
		if kid["id"] == nil {
			kid["id"] = id
		}
		if _, ok := kid["enable_notifications"]; !ok {
			kid["enable_notifications"] = true
		}

		// Every tracking record needs a state and a periods store.
		for choreID, v := range asMap(kid["chore_data"]) {
			ct := asMap(v)
			if ct == nil {
				ct = make(map[string]any)
				asMap(kid["chore_data"])[choreID] = ct
			}
			if asString(ct["state"]) == "" {
				ct["state"] = string(model.StatePending)
			}
			ensurePeriods(ct)
		}
	})
}

// ensurePeriods creates an empty period-bucket store on a tracking record.
func ensurePeriods(record map[string]any) map[string]any {
	periods := ensureMap(record, "periods")
	for _, g := range period.Granularities {
		ensureMap(periods, string(g))
	}
	return periods
}

// --- phase 4: legacy streak/stat aggregation -------------------------------

// migrateLegacyStats folds the flat legacy counters (completed_chores_total
// and friends, chore_streaks) into period buckets. Daily/weekly/monthly
// legacy counters are snapshots without period ids, so only the all-time
// bucket and the streak high-water marks can be reconstructed faithfully.
func (m *Migrator) migrateLegacyStats() {
	m.eachEntity("kids", func(id string, kid map[string]any) {
		pointData := ensureMap(kid, "point_data")
		for _, g := range period.Granularities {
			ensureMap(pointData, string(g))
		}

		total := asFloat(kid["completed_chores_total"])
		if total > 0 {
			allTime := ensureMap(ensureMap(pointData, string(period.AllTime)), period.AllTimeKey)
			if asFloat(allTime["approved"]) < total {
				allTime["approved"] = total
			}
		}

		for choreID, v := range asMap(kid["chore_streaks"]) {
			streak := asFloat(v)
			if streak <= 0 {
				continue
			}
			choreData := ensureMap(kid, "chore_data")
			ct := ensureMap(choreData, choreID)
			if asString(ct["state"]) == "" {
				ct["state"] = string(model.StatePending)
			}
			periods := ensurePeriods(ct)
			allTime := ensureMap(ensureMap(periods, string(period.AllTime)), period.AllTimeKey)
			if asFloat(allTime["longest_streak"]) < streak {
				allTime["longest_streak"] = streak
			}
			if asFloat(ct["current_streak"]) < streak {
				ct["current_streak"] = streak
			}
		}
	})
}

// --- phase 5: badge threshold -> target structure --------------------------

// Points-equivalence factors for non-point thresholds, used to rank badges
// of mixed target types.
const (
	pointsPerChoreEquivalent  = 5
	pointsPerStreakEquivalent = 2
)

func (m *Migrator) migrateBadgeTargets() {
	m.eachEntity("badges", func(id string, badge map[string]any) {
		if asMap(badge["target"]) != nil {
			return // already migrated
		}
		thresholdType := asString(badge["threshold_type"])
		if thresholdType == "" {
			thresholdType = string(model.TargetPoints)
		}
		value := asFloat(badge["threshold_value"])

		equivalent := value
		switch thresholdType {
		case string(model.TargetChoreCount):
			equivalent = value * pointsPerChoreEquivalent
		case string(model.TargetStreak):
			equivalent = value * pointsPerStreakEquivalent
		}

		badge["target"] = map[string]any{
			"type":              thresholdType,
			"value":             value,
			"points_equivalent": roundedPoints(equivalent),
		}
		if asString(badge["type"]) == "" {
			badge["type"] = string(model.BadgeMilestone)
		}
	})
}

// --- phase 6: badges list -> badges_earned dict ----------------------------

func (m *Migrator) migrateBadgesEarned() {
	// Badge names must resolve to ids; build the lookup once.
	nameToID := make(map[string]string)
	for id, v := range asMap(m.doc["badges"]) {
		if b := asMap(v); b != nil {
			if name := asString(b["name"]); name != "" {
				nameToID[name] = id
			}
		}
	}

	m.eachEntity("kids", func(id string, kid map[string]any) {
		earned := ensureMap(kid, "badges_earned")
		for _, v := range asList(kid["badges"]) {
			name := asString(v)
			badgeID, ok := nameToID[name]
			if !ok {
				m.logger.Debug("legacy badge name without definition", "kid", id, "badge", name)
				continue
			}
			if _, exists := earned[badgeID]; exists {
				continue
			}
			earned[badgeID] = map[string]any{"count": 1}
		}
	})
}

// --- phase 7: independent-chore due-date population ------------------------

// populateIndependentDueDates seeds per_kid_due_dates for INDEPENDENT chores
// from the chore-level due date, after which the chore-level field is no
// longer authoritative for them.
func (m *Migrator) populateIndependentDueDates() {
	m.eachEntity("chores", func(id string, chore map[string]any) {
		if asString(chore["completion_criteria"]) != string(model.CriteriaIndependent) {
			return
		}
		perKid := ensureMap(chore, "per_kid_due_dates")
		due := asString(chore["due_date"])
		for _, v := range asList(chore["assigned_kids"]) {
			kidID := asString(v)
			if kidID == "" {
				continue
			}
			if _, exists := perKid[kidID]; exists {
				continue
			}
			if due != "" {
				perKid[kidID] = due
			} else {
				perKid[kidID] = nil
			}
		}
	})
}

// --- phase 8: boolean -> enum reset type -----------------------------------

func (m *Migrator) convertResetTypes() {
	m.eachEntity("chores", func(id string, chore map[string]any) {
		if asString(chore["approval_reset_type"]) != "" {
			return
		}
		if atMidnight, ok := asBool(chore["reset_at_midnight"]); ok && !atMidnight {
			chore["approval_reset_type"] = string(model.ResetAtDueDate)
		} else {
			chore["approval_reset_type"] = string(model.ResetAtMidnight)
		}
	})
}

// --- phase 9: timestamp-based tracking cutover -----------------------------

// cutoverTimestampTracking derives last_claimed/last_approved from the
// deprecated claimed_chores/approved_chores id lists where no timestamp
// exists yet, then deletes the lists. Membership alone carries no time
// information, so derived records keep state only.
func (m *Migrator) cutoverTimestampTracking() {
	m.eachEntity("kids", func(id string, kid map[string]any) {
		choreData := ensureMap(kid, "chore_data")

		for _, v := range asList(kid["claimed_chores"]) {
			choreID := asString(v)
			if choreID == "" {
				continue
			}
			ct := ensureMap(choreData, choreID)
			ensurePeriods(ct)
			if asString(ct["state"]) == "" || asString(ct["state"]) == string(model.StatePending) {
				ct["state"] = string(model.StateClaimed)
			}
			if asFloat(ct["pending_claim_count"]) == 0 {
				ct["pending_claim_count"] = 1
			}
		}
		for _, v := range asList(kid["approved_chores"]) {
			choreID := asString(v)
			if choreID == "" {
				continue
			}
			ct := ensureMap(choreData, choreID)
			ensurePeriods(ct)
			ct["state"] = string(model.StateApproved)
			ct["pending_claim_count"] = 0
		}

		delete(kid, "claimed_chores")
		delete(kid, "approved_chores")
	})
}

// --- phase 10: reward tracking migration -----------------------------------

func (m *Migrator) migrateRewardTracking() {
	m.eachEntity("kids", func(id string, kid map[string]any) {
		rewardData := ensureMap(kid, "reward_data")

		// Legacy shape: redeemed_rewards is either a list of reward ids
		// (one redemption each) or a map reward id -> count.
		record := func(rewardID string, count float64) {
			if rewardID == "" || count <= 0 {
				return
			}
			rt := ensureMap(rewardData, rewardID)
			periods := ensurePeriods(rt)
			allTime := ensureMap(ensureMap(periods, string(period.AllTime)), period.AllTimeKey)
			if asFloat(allTime["approved"]) < count {
				allTime["approved"] = count
			}
		}

		switch legacy := kid["redeemed_rewards"].(type) {
		case []any:
			counts := make(map[string]float64)
			for _, v := range legacy {
				counts[asString(v)]++
			}
			for rewardID, n := range counts {
				record(rewardID, n)
			}
		case map[string]any:
			for rewardID, v := range legacy {
				record(rewardID, asFloat(v))
			}
		}
	})
}

// --- phase 11: config-entry entity sync ------------------------------------

// syncConfigEntities copies entity definitions that pre-v42 installs kept
// only in the config section into storage, without overwriting anything
// storage already has.
func (m *Migrator) syncConfigEntities() {
	config := asMap(m.doc["config"])
	if config == nil {
		return
	}
	for _, section := range []string{"kids", "chores", "badges", "rewards", "penalties", "bonuses", "parents"} {
		src := asMap(config[section])
		if src == nil {
			continue
		}
		dst := ensureMap(m.doc, section)
		for id, v := range src {
			if _, exists := dst[id]; exists {
				continue
			}
			if entity := asMap(v); entity != nil {
				m.logger.Debug("syncing entity from config", "section", section, "id", id)
				dst[id] = entity
			}
		}
	}
}

// --- phase 12: optional-field backfill -------------------------------------

func (m *Migrator) backfillOptionalFields() {
	m.eachEntity("chores", func(id string, chore map[string]any) {
		if _, ok := chore["points"]; !ok {
			chore["points"] = 0.0
		}
	})
	m.eachEntity("kids", func(id string, kid map[string]any) {
		if _, ok := kid["points"]; !ok {
			kid["points"] = 0.0
		}
	})
	m.eachEntity("rewards", func(id string, reward map[string]any) {
		if _, ok := reward["cost"]; !ok {
			reward["cost"] = 0.0
		}
		if _, ok := reward["approval_required"]; !ok {
			reward["approval_required"] = true
		}
	})
	for _, section := range []string{"penalties", "bonuses", "achievements", "challenges"} {
		if m.doc[section] == nil {
			m.doc[section] = map[string]any{}
		}
	}
}

// --- phase 13: legacy field removal ----------------------------------------

var legacyChoreFields = []string{"shared_chore", "reset_at_midnight", "recurring_frequency"}

var legacyKidFields = []string{
	"badges", "redeemed_rewards", "chore_streaks",
	"completed_chores_today", "completed_chores_weekly",
	"completed_chores_monthly", "completed_chores_total",
	"max_points_ever",
}

var legacyBadgeFields = []string{"threshold_type", "threshold_value"}

func (m *Migrator) removeLegacyFields() {
	m.eachEntity("chores", func(id string, chore map[string]any) {
		for _, f := range legacyChoreFields {
			delete(chore, f)
		}
	})
	m.eachEntity("kids", func(id string, kid map[string]any) {
		for _, f := range legacyKidFields {
			delete(kid, f)
		}
	})
	m.eachEntity("badges", func(id string, badge map[string]any) {
		for _, f := range legacyBadgeFields {
			delete(badge, f)
		}
	})
	delete(m.doc, "config")
}

// --- phase 14: float precision cleanup -------------------------------------

var pointFloatKeys = map[string]bool{
	"points": true, "cost": true, "award_points": true, "reward_points": true,
	"baseline_points": true, "cycle_points": true, "points_equivalent": true,
	"value": true, "target_value": true,
}

func (m *Migrator) roundPointFloats() {
	m.roundFloats(m.doc)
}

func (m *Migrator) roundFloats(node any) {
	switch n := node.(type) {
	case map[string]any:
		for k, v := range n {
			if f, ok := v.(float64); ok && pointFloatKeys[k] {
				n[k] = roundedPoints(f)
				continue
			}
			m.roundFloats(v)
		}
	case []any:
		for _, v := range n {
			m.roundFloats(v)
		}
	}
}
