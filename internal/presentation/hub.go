package presentation

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"

	"cuepoint/internal/logger"
)

// Hub tracks connected clients per playback session and broadcasts event
// envelopes to them.
type Hub struct {
	sessions map[uuid.UUID]map[string]*Client
	mu       sync.RWMutex
}

// NewHub creates an empty hub
func NewHub() *Hub {
	return &Hub{
		sessions: make(map[uuid.UUID]map[string]*Client),
	}
}

// Register adds a client to its session's room
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	if h.sessions[c.SessionID] == nil {
		h.sessions[c.SessionID] = make(map[string]*Client)
	}
	h.sessions[c.SessionID][c.ID] = c
	h.mu.Unlock()

	logger.Log.Debug().
		Str("client_id", c.ID).
		Str("session_id", c.SessionID.String()).
		Msg("Client joined session event stream")
}

// Unregister removes a client from its session's room
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if m, ok := h.sessions[c.SessionID]; ok {
		delete(m, c.ID)
		if len(m) == 0 {
			delete(h.sessions, c.SessionID)
		}
	}
	h.mu.Unlock()

	logger.Log.Debug().
		Str("client_id", c.ID).
		Str("session_id", c.SessionID.String()).
		Msg("Client left session event stream")
}

// Broadcast sends an event to every client watching the session. Clients
// whose send buffer is full are skipped rather than blocked on.
func (h *Hub) Broadcast(sessionID uuid.UUID, event string, payload interface{}) {
	var data []byte
	switch v := payload.(type) {
	case nil:
	case []byte:
		data = v
	case json.RawMessage:
		data = v
	default:
		var err error
		data, err = json.Marshal(payload)
		if err != nil {
			logger.Log.Warn().
				Err(err).
				Str("event", event).
				Msg("Dropping event with unmarshalable payload")
			return
		}
	}
	msg := WSMessage{Event: event, Data: data}

	// sends are non-blocking, so holding the read lock through the loop
	// cannot stall registration for long
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.sessions[sessionID] {
		select {
		case c.send <- msg:
		default:
			// buffer full, skip
		}
	}
}

// ClientCount returns the number of clients attached to a session
func (h *Hub) ClientCount(sessionID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[sessionID])
}
