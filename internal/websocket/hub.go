package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/dukerupert/envios/internal/cache"
)

// Message tells connected clients that a cached resource changed.
type Message struct {
	Type      string    `json:"type"`
	Key       string    `json:"key"`
	State     string    `json:"state"`
	Count     int       `json:"count,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitzero"`
	Error     string    `json:"error,omitempty"`
}

// FromEvent converts a cache fetch event. Type is "<key>_<state>".
func FromEvent(e cache.Event) Message {
	m := Message{
		Type:      e.Key + "_" + e.State.String(),
		Key:       e.Key,
		State:     e.State.String(),
		Count:     e.Count,
		UpdatedAt: e.UpdatedAt,
	}
	if e.Err != nil {
		m.Error = e.Err.Error()
	}
	return m
}

// Hub fans messages out to every connected client.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	logger  *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		logger:  logger,
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("client connected", "clients", n)
}

// Unregister removes c and closes its send channel. Safe to call twice.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// Broadcast never blocks; clients whose buffer is full miss the message.
func (h *Hub) Broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal broadcast", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.logger.Warn("client buffer full, dropping message", "type", msg.Type)
		}
	}
}

// Publish is a cache subscriber.
func (h *Hub) Publish(e cache.Event) {
	h.Broadcast(FromEvent(e))
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
