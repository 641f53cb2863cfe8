package ws

import (
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Hub fans match events out to every socket subscribed to a match. It
// implements the services.Notifier interface.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*websocket.Conn]bool
	log     *zap.Logger
}

func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		clients: make(map[string]map[*websocket.Conn]bool),
		log:     log,
	}
}

// Register subscribes a connection to a match's events.
func (h *Hub) Register(matchID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[matchID] == nil {
		h.clients[matchID] = make(map[*websocket.Conn]bool)
	}
	h.clients[matchID][conn] = true
}

// Unregister drops a connection; the caller closes it.
func (h *Hub) Unregister(matchID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.clients[matchID]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.clients, matchID)
		}
	}
}

// Broadcast sends the payload as JSON to every subscriber of the match.
// Dead connections are pruned on write failure.
func (h *Hub) Broadcast(matchID string, payload interface{}) {
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.clients[matchID]))
	for conn := range h.clients[matchID] {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	for _, conn := range conns {
		if err := conn.WriteJSON(payload); err != nil {
			h.log.Debug("websocket write failed, dropping client",
				zap.String("match_id", matchID),
				zap.Error(err),
			)
			h.Unregister(matchID, conn)
			conn.Close()
		}
	}
}

// Subscribers reports how many sockets watch the match.
func (h *Hub) Subscribers(matchID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[matchID])
}
