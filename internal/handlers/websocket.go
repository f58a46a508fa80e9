package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"pact-sync-client/internal/middleware"
	"pact-sync-client/internal/services"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // bridge listens on loopback
	},
}

// WebSocketHandler streams state snapshots to bridge clients
type WebSocketHandler struct {
	hub    *services.WSHub
	auth   *services.BridgeAuth
	poller Foregrounder
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(hub *services.WSHub, auth *services.BridgeAuth, poller Foregrounder) *WebSocketHandler {
	return &WebSocketHandler{
		hub:    hub,
		auth:   auth,
		poller: poller,
	}
}

// HandleWebSocket handles WebSocket connections
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	clientID, err := middleware.ValidateWebSocketToken(r.URL.Query().Get("token"), h.auth)
	if err != nil {
		respondError(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}
	defer conn.Close()

	id, err := h.hub.Register(conn)
	if err != nil {
		log.Error().Err(err).Str("client_id", clientID).Msg("Failed to register WebSocket connection")
		return
	}
	defer h.hub.Unregister(id)

	log.Info().Str("client_id", clientID).Str("subscriber_id", id).Msg("WebSocket connection established")

	for {
		_, messageBytes, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().Err(err).Str("subscriber_id", id).Msg("WebSocket error")
			}
			break
		}

		var msg services.WSMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			log.Error().Err(err).Str("subscriber_id", id).Msg("Failed to parse WebSocket message")
			h.sendError(id, "Invalid message format")
			continue
		}
		h.handleMessage(id, msg)
	}
}

// handleMessage processes incoming WebSocket messages
func (h *WebSocketHandler) handleMessage(id string, msg services.WSMessage) {
	switch msg.Type {
	case "ping":
		h.hub.SendTo(id, services.WSMessage{Type: "pong", Timestamp: time.Now().UnixMilli()})
	case "foreground":
		if h.poller != nil {
			h.poller.Foreground()
		}
	case "state":
		h.hub.NotifyState()
	default:
		h.sendError(id, "Unknown message type")
	}
}

func (h *WebSocketHandler) sendError(id, message string) {
	if err := h.hub.SendTo(id, services.WSMessage{Type: "error", Message: message}); err != nil {
		log.Debug().Err(err).Str("subscriber_id", id).Msg("Failed to send error message")
	}
}
