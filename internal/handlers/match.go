package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Atubu88/quiz/internal/services"
)

type MatchHandler struct {
	matches *services.MatchService
}

func NewMatchHandler(matches *services.MatchService) *MatchHandler {
	return &MatchHandler{matches: matches}
}

// Status returns the lobby view: teams, readiness, and whether the match
// has started. Clients poll it or subscribe over the websocket.
func (h *MatchHandler) Status(c *gin.Context) {
	info, err := h.matches.Status(c.Request.Context(), c.Param("match_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}
