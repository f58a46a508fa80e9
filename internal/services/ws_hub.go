package services

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// WSMessage represents a WebSocket message
type WSMessage struct {
	Type      string      `json:"type"`
	Timestamp int64       `json:"timestamp,omitempty"`
	Message   string      `json:"message,omitempty"`
	Data      interface{} `json:"data,omitempty"`
}

// wsSubscriber is one bridge client. Writes to a conn must not overlap.
type wsSubscriber struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *wsSubscriber) write(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

// WSHub manages WebSocket connections of bridge clients and pushes state
// snapshots to them
type WSHub struct {
	mu          sync.RWMutex
	connections map[string]*wsSubscriber
	state       func() State
}

// NewWSHub creates a new WebSocket hub. state builds the snapshot sent on
// connect and on every change.
func NewWSHub(state func() State) *WSHub {
	return &WSHub{
		connections: make(map[string]*wsSubscriber),
		state:       state,
	}
}

// Register registers a new WebSocket connection and sends it the current
// state. It returns the subscriber ID.
func (h *WSHub) Register(conn *websocket.Conn) (string, error) {
	id := uuid.New().String()

	h.mu.Lock()
	h.connections[id] = &wsSubscriber{conn: conn}
	h.mu.Unlock()

	log.Info().Str("subscriber_id", id).Msg("WebSocket connection registered")

	if err := h.SendTo(id, h.stateMessage()); err != nil {
		return "", err
	}
	return id, nil
}

// Unregister removes a WebSocket connection
func (h *WSHub) Unregister(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if sub, exists := h.connections[id]; exists {
		sub.conn.Close()
		delete(h.connections, id)
		log.Info().Str("subscriber_id", id).Msg("WebSocket connection unregistered")
	}
}

// SendTo sends a message to a specific subscriber
func (h *WSHub) SendTo(id string, message WSMessage) error {
	h.mu.RLock()
	sub, exists := h.connections[id]
	h.mu.RUnlock()

	if !exists {
		return fmt.Errorf("subscriber %s is not connected", id)
	}

	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	if err := sub.write(data); err != nil {
		h.Unregister(id)
		return fmt.Errorf("failed to send message: %w", err)
	}

	return nil
}

// Broadcast sends a message to every subscriber
func (h *WSHub) Broadcast(message WSMessage) {
	h.mu.RLock()
	ids := make([]string, 0, len(h.connections))
	for id := range h.connections {
		ids = append(ids, id)
	}
	h.mu.RUnlock()

	for _, id := range ids {
		if err := h.SendTo(id, message); err != nil {
			log.Debug().Err(err).Str("subscriber_id", id).Msg("Failed to broadcast")
		}
	}
}

// Count returns the number of connected subscribers
func (h *WSHub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// NotifyState broadcasts the current state snapshot
func (h *WSHub) NotifyState() {
	if h.Count() == 0 {
		return
	}
	h.Broadcast(h.stateMessage())
}

func (h *WSHub) stateMessage() WSMessage {
	return WSMessage{
		Type:      "state",
		Timestamp: time.Now().UnixMilli(),
		Data:      h.state(),
	}
}
