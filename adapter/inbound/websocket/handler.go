package websocket

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/mdreader/mdreaderd/domain/model"
	"github.com/mdreader/mdreaderd/domain/port/outbound"
)

const defaultWriteTimeout = 5 * time.Second

// Handler is the change feed hub. Every connected client receives every
// file change notification; it implements outbound.ChangeNotifier so the
// watcher pipeline can publish without knowing about WebSockets.
type Handler struct {
	upgrader     websocket.Upgrader
	connections  map[string]*clientConnection
	mu           sync.RWMutex
	writeTimeout time.Duration
	logger       outbound.Logger
}

type clientConnection struct {
	conn           *websocket.Conn
	subscriptionID string
	writeTimeout   time.Duration
	writeMu        sync.Mutex
}

func NewHandler(allowedOrigins []string, logger outbound.Logger) *Handler {
	originSet := make(map[string]bool, len(allowedOrigins))
	allowAll := false
	for _, origin := range allowedOrigins {
		if origin == "*" {
			allowAll = true
		}
		originSet[origin] = true
	}

	return &Handler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if allowAll {
					return true
				}
				origin := r.Header.Get("Origin")
				// no Origin header means a non-browser client; the API
				// token already gates those
				return origin == "" || originSet[origin]
			},
		},
		connections:  make(map[string]*clientConnection),
		writeTimeout: defaultWriteTimeout,
		logger:       logger,
	}
}

// HandleConnection upgrades an incoming request and subscribes it to the
// change feed until the client disconnects.
func (h *Handler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	client := &clientConnection{
		conn:           conn,
		subscriptionID: uuid.New().String(),
		writeTimeout:   h.writeTimeout,
	}

	h.mu.Lock()
	h.connections[client.subscriptionID] = client
	h.mu.Unlock()

	client.writeJSON(map[string]string{
		"type":           "connected",
		"subscriptionId": client.subscriptionID,
	})

	h.logger.Info("change feed client connected", "subscriptionId", client.subscriptionID)

	go h.handleSession(client)
}

// NotifyFileChange broadcasts a change event to every connected client.
func (h *Handler) NotifyFileChange(event model.FileChangeEvent) {
	h.mu.RLock()
	clients := make([]*clientConnection, 0, len(h.connections))
	for _, client := range h.connections {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	payload := map[string]any{
		"type":  "file-changed",
		"event": event,
	}

	for _, client := range clients {
		if err := client.writeJSON(payload); err != nil {
			h.logger.Warn("failed to push change event, dropping client",
				"subscriptionId", client.subscriptionID, "error", err)
			// the connection is unusable after a failed write; closing it
			// makes the session reader exit and deregister the client
			client.conn.Close()
		}
	}
}

// SubscriberCount returns the number of connected change feed clients.
func (h *Handler) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

func (h *Handler) handleSession(client *clientConnection) {
	defer func() {
		client.conn.Close()

		h.mu.Lock()
		delete(h.connections, client.subscriptionID)
		h.mu.Unlock()

		h.logger.Info("change feed client disconnected", "subscriptionId", client.subscriptionID)
	}()

	for {
		messageType, data, err := client.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseNormalClosure) {
				h.logger.Warn("websocket read error", "subscriptionId", client.subscriptionID, "error", err)
			}
			return
		}

		h.handleClientMessage(client, messageType, data)
	}
}

func (h *Handler) handleClientMessage(client *clientConnection, messageType int, data []byte) {
	if messageType != websocket.TextMessage {
		return
	}

	var message map[string]any
	if err := json.Unmarshal(data, &message); err != nil {
		h.logger.Debug("ignoring malformed client message", "error", err)
		return
	}

	msgType, ok := message["type"].(string)
	if !ok {
		return
	}

	switch msgType {
	case "ping":
		client.writeJSON(map[string]string{"type": "pong"})
	}
}

// Cleanup closes every connection during shutdown.
func (h *Handler) Cleanup() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, client := range h.connections {
		client.writeMu.Lock()
		client.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "server shutting down"))
		client.writeMu.Unlock()
		client.conn.Close()
		delete(h.connections, id)
	}

	h.logger.Info("websocket handler cleanup complete")
}

// writeJSON serializes writes; gorilla connections do not allow concurrent
// writers. The deadline bounds how long a stalled client can hold up the
// broadcasting goroutine.
func (c *clientConnection) writeJSON(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.writeTimeout > 0 {
		c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	return c.conn.WriteJSON(v)
}
