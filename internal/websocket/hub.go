package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
)

// Event names pushed to connected clients.
const (
	EventTaskCompleted = "task_completed"
	EventGoalCompleted = "goal_completed"
	EventRewardGranted = "reward_granted"
	EventRankChanged   = "rank_changed"
	EventCounterReset  = "counter_reset"
)

// Message is a real-time event pushed to a family's connected clients.
type Message struct {
	Type     string         `json:"type"`
	MemberID int64          `json:"member_id,omitempty"`
	GoalID   int64          `json:"goal_id,omitempty"`
	Extra    map[string]any `json:"extra,omitempty"`
}

// Hub maintains the set of active WebSocket clients grouped by family and
// fans events out to the right group.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	logger  *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		logger:  logger.With("component", "websocket"),
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

// BroadcastFamily sends a message to every client of one family.
func (h *Hub) BroadcastFamily(familyID int64, msg Message) {
	if familyID == 0 {
		return
	}
	h.broadcast(msg, func(c *Client) bool { return c.familyID == familyID })
}

// BroadcastAll sends a message to every connected client regardless of
// family, for system-wide events like period counter resets.
func (h *Hub) BroadcastAll(msg Message) {
	h.broadcast(msg, func(*Client) bool { return true })
}

func (h *Hub) broadcast(msg Message, match func(*Client) bool) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal broadcast", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		if !match(c) {
			continue
		}
		select {
		case c.send <- data:
		default:
			// Client buffer full — drop message to avoid blocking
		}
	}
}

// ClientCount returns the number of connected clients for a family.
func (h *Hub) ClientCount(familyID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for c := range h.clients {
		if c.familyID == familyID {
			n++
		}
	}
	return n
}
