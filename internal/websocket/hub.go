package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
)

// Event is a real-time state-change notification pushed to every connected
// dashboard. State carries the chore's resolved global state where the
// event is about a chore.
type Event struct {
	Type    string         `json:"type"`
	KidID   string         `json:"kid_id,omitempty"`
	ChoreID string         `json:"chore_id,omitempty"`
	State   string         `json:"state,omitempty"`
	Points  float64        `json:"points,omitempty"`
	Extra   map[string]any `json:"extra,omitempty"`
}

// Hub maintains the set of active WebSocket clients and fans events out to
// them. Slow clients drop events rather than stalling the coordinator.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	logger  *slog.Logger
}

// NewHub creates a Hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		logger:  logger,
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

// Unregister removes a client from the hub and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// Broadcast sends an event to all connected clients.
func (h *Hub) Broadcast(ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("marshal event", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			// Client buffer full, drop the event instead of blocking.
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
