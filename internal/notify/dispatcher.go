package notify

import (
	"errors"
	"log/slog"

	"github.com/kestrelhouse/chorekeep/internal/model"
	"github.com/kestrelhouse/chorekeep/internal/store"
)

const queueSize = 64

// Dispatcher fans document notifications out to push subscriptions. Send is
// called while the caller holds the document lock, so it only enqueues; a
// worker goroutine resolves recipients and talks to the push relay.
type Dispatcher struct {
	svc    *Service
	store  *store.Store
	logger *slog.Logger

	queue    chan model.Notification
	shutdown chan struct{}
	done     chan struct{}
}

// NewDispatcher starts the dispatch worker.
func NewDispatcher(svc *Service, st *store.Store, logger *slog.Logger) *Dispatcher {
	d := &Dispatcher{
		svc:      svc,
		store:    st,
		logger:   logger.With("component", "notify"),
		queue:    make(chan model.Notification, queueSize),
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}
	go d.run()
	return d
}

// Send enqueues a notification for delivery. Never blocks: under pressure
// the notification is dropped (the in-document log still has it).
func (d *Dispatcher) Send(n model.Notification) {
	if !d.svc.Enabled() {
		return
	}
	select {
	case d.queue <- n:
	default:
		d.logger.Warn("notification queue full, dropping", "event", n.Event)
	}
}

// Close drains the queue and stops the worker.
func (d *Dispatcher) Close() {
	close(d.shutdown)
	<-d.done
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for {
		select {
		case <-d.shutdown:
			// Deliver what was queued before the shutdown signal.
			for {
				select {
				case n := <-d.queue:
					d.dispatch(n)
				default:
					return
				}
			}
		case n := <-d.queue:
			d.dispatch(n)
		}
	}
}

func (d *Dispatcher) dispatch(n model.Notification) {
	var targets []*model.PushSubscription
	d.store.View(func(doc *model.Document) {
		for _, sub := range doc.PushSubscriptions {
			if d.wants(doc, sub, n) {
				s := *sub
				targets = append(targets, &s)
			}
		}
	})

	payload := Payload{Title: n.Title, Body: n.Body, Tag: n.Event}
	var expired []string
	for _, sub := range targets {
		if err := d.svc.Send(sub, payload); err != nil {
			if errors.Is(err, ErrExpired) {
				expired = append(expired, sub.Endpoint)
				continue
			}
			d.logger.Warn("push delivery failed", "event", n.Event, "error", err)
		}
	}

	if len(expired) > 0 {
		err := d.store.Update(func(doc *model.Document) error {
			for _, ep := range expired {
				delete(doc.PushSubscriptions, ep)
			}
			return nil
		})
		if err != nil {
			d.logger.Warn("prune expired subscriptions", "error", err)
		}
	}
}

// wants decides whether a subscription should receive the notification.
// Parent devices get everything their preferences allow; kid devices only
// get events about that kid.
func (d *Dispatcher) wants(doc *model.Document, sub *model.PushSubscription, n model.Notification) bool {
	if sub.ParentID != "" {
		parent, ok := doc.Parents[sub.ParentID]
		if !ok || !parent.EnableNotifications {
			return false
		}
		if n.Event == "chore_claimed" && !parent.NotifyOnClaim {
			return false
		}
		return true
	}
	if sub.KidID != "" {
		kid, ok := doc.Kids[sub.KidID]
		if !ok || !kid.EnableNotifications {
			return false
		}
		return n.KidID == sub.KidID
	}
	return false
}
