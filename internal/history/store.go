package history

import (
	"database/sql"
	"fmt"
	"time"
)

// Event types recorded in the ledger.
const (
	EventClaimed        = "chore_claimed"
	EventApproved       = "chore_approved"
	EventDisapproved    = "chore_disapproved"
	EventOverdue        = "chore_overdue"
	EventPenalty        = "penalty_applied"
	EventBonus          = "bonus_applied"
	EventRewardRedeemed = "reward_redeemed"
	EventRewardApproved = "reward_approved"
	EventRewardDenied   = "reward_disapproved"
	EventBadgeEarned    = "badge_earned"
	EventGoalAwarded    = "goal_awarded"
)

// Event is one row of the activity ledger. EntityID carries the reward,
// badge or penalty id for event types that are not about a chore.
type Event struct {
	ID         int64     `json:"id"`
	OccurredAt time.Time `json:"occurred_at"`
	Type       string    `json:"event_type"`
	KidID      string    `json:"kid_id,omitempty"`
	ChoreID    string    `json:"chore_id,omitempty"`
	EntityID   string    `json:"entity_id,omitempty"`
	Points     float64   `json:"points,omitempty"`
	Detail     string    `json:"detail,omitempty"`
}

// Filter narrows a ledger query. Zero values are ignored.
type Filter struct {
	KidID   string
	ChoreID string
	Type    string
	Since   time.Time
	Until   time.Time
	Limit   int
}

// Store appends to and queries the activity ledger.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

const eventCols = `id, occurred_at, event_type, kid_id, chore_id, entity_id, points, detail`

// Append records an event. The occurred_at column takes the event's own
// timestamp so that backfilled or replayed events keep their true order.
func (s *Store) Append(e Event) error {
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	_, err := s.db.Exec(
		`INSERT INTO events (occurred_at, event_type, kid_id, chore_id, entity_id, points, detail) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.OccurredAt.UTC(), e.Type, e.KidID, e.ChoreID, e.EntityID, e.Points, e.Detail,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

func scanEvent(scanner interface{ Scan(...any) error }) (*Event, error) {
	var e Event
	err := scanner.Scan(&e.ID, &e.OccurredAt, &e.Type, &e.KidID, &e.ChoreID, &e.EntityID, &e.Points, &e.Detail)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// List returns events matching the filter, newest first.
func (s *Store) List(f Filter) ([]Event, error) {
	query := `SELECT ` + eventCols + ` FROM events WHERE 1=1`
	var args []any

	if f.KidID != "" {
		query += ` AND kid_id = ?`
		args = append(args, f.KidID)
	}
	if f.ChoreID != "" {
		query += ` AND chore_id = ?`
		args = append(args, f.ChoreID)
	}
	if f.Type != "" {
		query += ` AND event_type = ?`
		args = append(args, f.Type)
	}
	if !f.Since.IsZero() {
		query += ` AND occurred_at >= ?`
		args = append(args, f.Since.UTC())
	}
	if !f.Until.IsZero() {
		query += ` AND occurred_at < ?`
		args = append(args, f.Until.UTC())
	}

	query += ` ORDER BY occurred_at DESC, id DESC`
	limit := f.Limit
	if limit <= 0 || limit > 1000 {
		limit = 200
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

// CountByType returns event counts per type since the given time, feeding
// the dashboard's activity summary.
func (s *Store) CountByType(since time.Time) (map[string]int, error) {
	rows, err := s.db.Query(
		`SELECT event_type, COUNT(*) FROM events WHERE occurred_at >= ? GROUP BY event_type`,
		since.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("count events: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var typ string
		var n int
		if err := rows.Scan(&typ, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[typ] = n
	}
	return counts, rows.Err()
}

// PruneOlderThan deletes ledger rows older than the cutoff and returns the
// number removed.
func (s *Store) PruneOlderThan(cutoff time.Time) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM events WHERE occurred_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("prune events: %w", err)
	}
	return res.RowsAffected()
}
