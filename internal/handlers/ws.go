package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Atubu88/quiz/internal/services"
	"github.com/Atubu88/quiz/internal/ws"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The mini app is served from Telegram's webview, origin checks are
	// handled by the CORS layer in front.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type WSHandler struct {
	hub     *ws.Hub
	matches *services.MatchService
	log     *zap.Logger
}

func NewWSHandler(hub *ws.Hub, matches *services.MatchService, log *zap.Logger) *WSHandler {
	return &WSHandler{hub: hub, matches: matches, log: log}
}

// Subscribe upgrades the connection and streams match events until the
// client hangs up. The first frame is always the current status.
func (h *WSHandler) Subscribe(c *gin.Context) {
	matchID := c.Param("match_id")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	h.hub.Register(matchID, conn)
	defer func() {
		h.hub.Unregister(matchID, conn)
		conn.Close()
	}()

	if info, err := h.matches.Status(c.Request.Context(), matchID); err == nil {
		conn.WriteJSON(map[string]interface{}{"type": "match_status", "data": info})
	}

	// Drain the read side so pings and close frames are processed.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
