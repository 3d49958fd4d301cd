package ws

import (
	"log"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/murmurware/voice-relay/backend/internal/service/relay"
	"github.com/murmurware/voice-relay/backend/pkg/utils"
)

// Hub fans relay turn events out to WebSocket subscribers so the browser can
// show pipeline progress while the blocking provider calls run.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[*client]struct{}
	upgrader    websocket.Upgrader
}

// client wraps a connection with a write lock; gorilla connections allow only
// one concurrent writer.
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) send(event relay.TurnEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(event)
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[string]map[*client]struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes wires the subscription endpoint.
func (h *Hub) RegisterRoutes(r chi.Router) {
	r.Get("/ws/{sessionID}", h.handleWebSocket)
}

func (h *Hub) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		utils.RespondError(w, http.StatusBadRequest, "sessionID is required")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[ws] upgrade failed for session=%s: %v", sessionID, err)
		return
	}

	c := &client{conn: conn}
	h.add(sessionID, c)
	log.Printf("[ws] subscriber connected session=%s", sessionID)

	// Inbound frames are ignored; the read loop only detects disconnects.
	go func() {
		defer func() {
			h.remove(sessionID, c)
			conn.Close()
			log.Printf("[ws] subscriber disconnected session=%s", sessionID)
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// Publish implements relay.Publisher: the event is delivered to every
// subscriber of its session; dead connections are dropped.
func (h *Hub) Publish(event relay.TurnEvent) {
	h.mu.RLock()
	conns := make([]*client, 0, len(h.subscribers[event.SessionID]))
	for c := range h.subscribers[event.SessionID] {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, c := range conns {
		if err := c.send(event); err != nil {
			h.remove(event.SessionID, c)
			c.conn.Close()
		}
	}
}

func (h *Hub) add(sessionID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subscribers[sessionID] == nil {
		h.subscribers[sessionID] = make(map[*client]struct{})
	}
	h.subscribers[sessionID][c] = struct{}{}
}

func (h *Hub) remove(sessionID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if subs, ok := h.subscribers[sessionID]; ok {
		delete(subs, c)
		if len(subs) == 0 {
			delete(h.subscribers, sessionID)
		}
	}
}
