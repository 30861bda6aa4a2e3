package coordinator

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kestrelhouse/chorekeep/internal/chore"
	"github.com/kestrelhouse/chorekeep/internal/history"
	"github.com/kestrelhouse/chorekeep/internal/model"
	"github.com/kestrelhouse/chorekeep/internal/store"
	"github.com/kestrelhouse/chorekeep/internal/websocket"
)

// ErrNotFound is returned when a referenced kid, chore, reward, penalty or
// bonus does not exist.
var ErrNotFound = errors.New("entity not found")

// ErrInsufficientPoints is returned when a redemption costs more than the
// kid's balance.
var ErrInsufficientPoints = errors.New("insufficient points")

// Notifier delivers a notification out-of-process (web push). The
// coordinator also appends every notification to the document's log.
type Notifier interface {
	Send(n model.Notification)
}

// noopNotifier is used when push is not configured.
type noopNotifier struct{}

func (noopNotifier) Send(model.Notification) {}

// Coordinator is the single writer for the chore document. Every mutation,
// whether a service call, a sweep or a rollover, flows through it, so reads elsewhere
// only ever see update boundaries. The store's lock serializes mutations;
// the coordinator adds the domain rules on top.
type Coordinator struct {
	store    *store.Store
	history  *history.Store
	hub      *websocket.Hub
	notifier Notifier
	logger   *slog.Logger

	// now is replaceable in tests.
	now func() time.Time
}

// New wires a coordinator. history, hub and notifier may be nil, in which
// case the corresponding side effects are skipped.
func New(st *store.Store, hist *history.Store, hub *websocket.Hub, notifier Notifier, logger *slog.Logger) *Coordinator {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &Coordinator{
		store:    st,
		history:  hist,
		hub:      hub,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// Store exposes the underlying document store for read-only handlers.
func (c *Coordinator) Store() *store.Store { return c.store }

func (c *Coordinator) record(e history.Event) {
	if c.history == nil {
		return
	}
	if err := c.history.Append(e); err != nil {
		c.logger.Warn("append history event", "type", e.Type, "error", err)
	}
}

func (c *Coordinator) broadcast(ev websocket.Event) {
	if c.hub != nil {
		c.hub.Broadcast(ev)
	}
}

// notify logs a notification in the document and hands it to the push
// dispatcher. Must be called with the document already locked via Update.
func (c *Coordinator) notify(doc *model.Document, n model.Notification) {
	n.ID = uuid.NewString()
	n.CreatedAt = c.now().UTC()
	doc.Notifications = append(doc.Notifications, n)
	// Bound the in-document log; the sqlite ledger keeps the long tail.
	const maxLog = 200
	if len(doc.Notifications) > maxLog {
		doc.Notifications = doc.Notifications[len(doc.Notifications)-maxLog:]
	}
	c.notifier.Send(n)
}

// trackingByKid collects the tracking records of every kid assigned to the
// chore, creating pending records where missing.
func trackingByKid(doc *model.Document, ch *model.Chore) map[string]*model.ChoreTracking {
	out := make(map[string]*model.ChoreTracking, len(ch.AssignedKids))
	for _, kidID := range ch.AssignedKids {
		if kid, ok := doc.Kids[kidID]; ok {
			out[kidID] = kid.Tracking(ch.ID)
		}
	}
	return out
}

// refreshChoreState recomputes and caches the chore's global state, and
// returns it.
func refreshChoreState(doc *model.Document, ch *model.Chore) model.ChoreState {
	ch.State = chore.ResolveGlobalState(ch, trackingByKid(doc, ch))
	return ch.State
}

func (c *Coordinator) lookup(doc *model.Document, kidID, choreID string) (*model.Kid, *model.Chore, error) {
	kid, ok := doc.Kids[kidID]
	if !ok {
		return nil, nil, fmt.Errorf("kid %s: %w", kidID, ErrNotFound)
	}
	ch, ok := doc.Chores[choreID]
	if !ok {
		return nil, nil, fmt.Errorf("chore %s: %w", choreID, ErrNotFound)
	}
	return kid, ch, nil
}

// AddKid creates a kid and returns its id.
func (c *Coordinator) AddKid(name string) (string, error) {
	id := uuid.NewString()
	err := c.store.Update(func(doc *model.Document) error {
		doc.Kids[id] = model.NewKid(id, name, c.now().UTC())
		return nil
	})
	if err != nil {
		return "", err
	}
	c.broadcast(websocket.Event{Type: "kid_added", KidID: id})
	return id, nil
}

// RemoveKid deletes a kid and cascades: assignment lists, per-kid due
// dates, goal progress. A removal backup is written first.
func (c *Coordinator) RemoveKid(kidID string) error {
	if _, err := c.store.CreateBackup(store.TagRemoval); err != nil {
		c.logger.Warn("removal backup failed", "kid", kidID, "error", err)
	}
	err := c.store.Update(func(doc *model.Document) error {
		if _, ok := doc.Kids[kidID]; !ok {
			return fmt.Errorf("kid %s: %w", kidID, ErrNotFound)
		}
		delete(doc.Kids, kidID)
		for _, ch := range doc.Chores {
			ch.AssignedKids = removeID(ch.AssignedKids, kidID)
			delete(ch.PerKidDueDates, kidID)
			refreshChoreState(doc, ch)
		}
		for _, a := range doc.Achievements {
			delete(a.Progress, kidID)
		}
		for _, ch := range doc.Challenges {
			delete(ch.Progress, kidID)
		}
		return nil
	})
	if err != nil {
		return err
	}
	c.broadcast(websocket.Event{Type: "kid_removed", KidID: kidID})
	return nil
}

// ResetAllData replaces the document with an empty one after writing a
// reset-tagged backup.
func (c *Coordinator) ResetAllData() error {
	if _, err := c.store.CreateBackup(store.TagReset); err != nil {
		return fmt.Errorf("reset backup: %w", err)
	}
	err := c.store.Update(func(doc *model.Document) error {
		*doc = *model.NewDocument()
		return nil
	})
	if err != nil {
		return err
	}
	c.broadcast(websocket.Event{Type: "data_reset"})
	return nil
}

func removeID(ids []string, id string) []string {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
