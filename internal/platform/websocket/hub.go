// Package websocket provides the real-time event channel used by dispatch
// dashboards. It implements a hub-and-spoke pattern where every connected
// client receives every broadcast event.
package websocket

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	gorillawebsocket "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/lifeline/lifeline/internal/platform/auth"
)

// Event names pushed over the channel.
const (
	EventEmergency       = "emergency"
	EventStatusUpdate    = "status-update"
	EventNotification    = "notification"
	EventHospitalCreated = "hospital-created"
	EventStatsUpdated    = "stats-updated"
)

// Event is the envelope sent to WebSocket clients.
type Event struct {
	Event     string      `json:"event"`
	Payload   interface{} `json:"payload,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// Broadcaster is the interface services use to push events without knowing
// about connection management.
type Broadcaster interface {
	Broadcast(event string, payload interface{})
}

// Client represents a single WebSocket connection.
type Client struct {
	ID     string
	UserID string
	Send   chan []byte
	hub    *Hub
}

// Hub is the central connection manager. All operations are thread-safe via
// sync.RWMutex.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	logger  zerolog.Logger
}

// NewHub creates a new Hub ready to manage WebSocket clients.
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		logger:  logger,
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client] = struct{}{}
}

// Unregister removes a client from the hub and closes its Send channel.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	close(client.Send)
}

// Broadcast sends an event to every connected client. Slow clients whose
// send buffer is full are skipped rather than blocking the sender.
func (h *Hub) Broadcast(event string, payload interface{}) {
	data, err := json.Marshal(Event{
		Event:     event,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		h.logger.Error().Err(err).Str("event", event).Msg("failed to marshal event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		select {
		case client.Send <- data:
		default:
			// Client buffer full; skip to avoid blocking.
		}
	}
}

// ClientCount returns the total number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

var upgrader = gorillawebsocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins; tighten in production.
	},
}

// Handler handles HTTP-to-WebSocket upgrades and message routing. Clients
// authenticate with an access token passed as the "token" query parameter
// (browsers cannot set headers on WebSocket handshakes) or, for non-browser
// clients, as a bearer Authorization header.
type Handler struct {
	hub    *Hub
	issuer *auth.TokenIssuer
}

// NewHandler creates a new handler bound to the given Hub.
func NewHandler(hub *Hub, issuer *auth.TokenIssuer) *Handler {
	return &Handler{hub: hub, issuer: issuer}
}

// RegisterRoutes registers the WebSocket endpoint on the provided Echo group.
func (wsh *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/ws", wsh.HandleConnect)
}

// HandleConnect verifies the caller's token, upgrades the HTTP connection to
// WebSocket, registers the client with the hub, and starts read/write pumps.
func (wsh *Handler) HandleConnect(c echo.Context) error {
	token := c.QueryParam("token")
	if token == "" {
		header := c.Request().Header.Get("Authorization")
		if strings.HasPrefix(header, "Bearer ") {
			token = strings.TrimPrefix(header, "Bearer ")
		}
	}
	if token == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing token")
	}
	claims, err := wsh.issuer.Parse(token, auth.TokenTypeAccess)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
	}

	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	client := &Client{
		ID:     uuid.New().String(),
		UserID: claims.UserID,
		Send:   make(chan []byte, 256),
		hub:    wsh.hub,
	}

	wsh.hub.Register(client)

	go wsh.writePump(client, ws)
	go wsh.readPump(client, ws)

	return nil
}

// readPump drains inbound frames until the connection drops. Clients do not
// send application messages; reads only serve to detect disconnects.
func (wsh *Handler) readPump(client *Client, ws *gorillawebsocket.Conn) {
	defer func() {
		wsh.hub.Unregister(client)
		ws.Close()
	}()

	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			break
		}
	}
}

// writePump writes messages from the Send channel to the WebSocket connection.
func (wsh *Handler) writePump(client *Client, ws *gorillawebsocket.Conn) {
	defer ws.Close()

	for message := range client.Send {
		if err := ws.WriteMessage(gorillawebsocket.TextMessage, message); err != nil {
			break
		}
	}
}
