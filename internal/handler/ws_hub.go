package handler

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// AllRuns is the topic every connection starts on; it receives events for any run.
const AllRuns = "*"

// WSEvent is the envelope for all WebSocket messages.
type WSEvent struct {
	Type  string `json:"type"`
	RunID string `json:"run_id,omitempty"`
	Data  any    `json:"data"`
}

// ClientMessage is the envelope for messages sent from the client.
type ClientMessage struct {
	Action string `json:"action"` // "subscribe", "unsubscribe" or "snapshot"
	RunID  string `json:"run_id"`
}

// WSConn wraps a WebSocket connection with its operator and subscriptions.
type WSConn struct {
	conn     *websocket.Conn
	operator string
	send     chan []byte
}

// Hub manages WebSocket connections and run-topic subscriptions.
type Hub struct {
	mu          sync.RWMutex
	connections map[*WSConn]bool
	topics      map[string]map[*WSConn]bool // runID or AllRuns -> set of connections
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		connections: make(map[*WSConn]bool),
		topics:      make(map[string]map[*WSConn]bool),
	}
}

// Register adds a connection to the hub, subscribed to AllRuns.
func (h *Hub) Register(c *WSConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.connections[c] = true
	h.subscribeLocked(c, AllRuns)
}

// Unregister removes a connection from the hub and all its subscriptions.
func (h *Hub) Unregister(c *WSConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.connections[c] {
		return
	}
	delete(h.connections, c)
	for topic, conns := range h.topics {
		delete(conns, c)
		if len(conns) == 0 {
			delete(h.topics, topic)
		}
	}
	close(c.send)
}

// Subscribe adds a connection to a topic.
func (h *Hub) Subscribe(c *WSConn, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subscribeLocked(c, topic)
}

func (h *Hub) subscribeLocked(c *WSConn, topic string) {
	if h.topics[topic] == nil {
		h.topics[topic] = make(map[*WSConn]bool)
	}
	h.topics[topic][c] = true
}

// Unsubscribe removes a connection from a topic.
func (h *Hub) Unsubscribe(c *WSConn, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.topics[topic]; ok {
		delete(conns, c)
		if len(conns) == 0 {
			delete(h.topics, topic)
		}
	}
}

// BroadcastToRun sends an event to connections subscribed to the run or to AllRuns.
// Each connection receives the event at most once.
func (h *Hub) BroadcastToRun(runID string, event WSEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("runId", runID).Msg("Failed to marshal WebSocket event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	sent := make(map[*WSConn]bool)
	for _, topic := range []string{runID, AllRuns} {
		for c := range h.topics[topic] {
			if sent[c] {
				continue
			}
			sent[c] = true
			select {
			case c.send <- data:
			default:
				log.Warn().Str("operator", c.operator).Str("runId", runID).Msg("Dropping WebSocket message, buffer full")
			}
		}
	}
}

// ConnectionCount returns the total number of active connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// SubscriberCount returns the number of connections subscribed to a topic.
func (h *Hub) SubscriberCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}
