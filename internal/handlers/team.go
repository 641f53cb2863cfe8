package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Atubu88/quiz/internal/middleware"
	"github.com/Atubu88/quiz/internal/services"
)

type TeamHandler struct {
	teams   *services.TeamService
	matches *services.MatchService
}

func NewTeamHandler(teams *services.TeamService, matches *services.MatchService) *TeamHandler {
	return &TeamHandler{teams: teams, matches: matches}
}

type createTeamRequest struct {
	Name string `json:"name" binding:"required"`
}

// Create makes a new team with the caller as captain.
func (h *TeamHandler) Create(c *gin.Context) {
	var req createTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "название команды обязательно"})
		return
	}

	team, err := h.teams.CreateTeam(c.Request.Context(), middleware.UserID(c), req.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, team)
}

type joinTeamRequest struct {
	Code string `json:"code" binding:"required"`
}

// Join adds the caller to the team behind an invite code.
func (h *TeamHandler) Join(c *gin.Context) {
	var req joinTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "код приглашения обязателен"})
		return
	}

	team, err := h.teams.JoinTeam(c.Request.Context(), middleware.UserID(c), req.Code)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, team)
}

// Get returns a team with its members.
func (h *TeamHandler) Get(c *gin.Context) {
	team, err := h.teams.GetTeam(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, team)
}

// OfUser returns the team a user belongs to.
func (h *TeamHandler) OfUser(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("user_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "некорректный идентификатор пользователя"})
		return
	}

	team, err := h.teams.GetTeamOfUser(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, team)
}

// Leave removes the caller from their team.
func (h *TeamHandler) Leave(c *gin.Context) {
	if err := h.teams.LeaveTeam(c.Request.Context(), middleware.UserID(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Delete disbands the caller's team. Captain only.
func (h *TeamHandler) Delete(c *gin.Context) {
	if err := h.teams.DeleteTeam(c.Request.Context(), middleware.UserID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type selectQuizRequest struct {
	TeamID string `json:"team_id" binding:"required"`
	QuizID int64  `json:"quiz_id" binding:"required"`
}

// SelectQuiz assigns a quiz to the caller's team and propagates it to the
// rest of the match so everyone plays the same questions.
func (h *TeamHandler) SelectQuiz(c *gin.Context) {
	var req selectQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "team_id и quiz_id обязательны"})
		return
	}

	ctx := c.Request.Context()
	if err := h.teams.SelectQuiz(ctx, middleware.UserID(c), req.TeamID, req.QuizID); err != nil {
		respondError(c, err)
		return
	}

	team, err := h.teams.GetTeam(ctx, req.TeamID)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := h.matches.EnsureMatchQuizAssigned(ctx, team.EffectiveMatchID(), req.QuizID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type startRequest struct {
	TeamID string `json:"team_id" binding:"required"`
}

// Start marks the caller's team ready; when the whole lobby is ready the
// match clock starts.
func (h *TeamHandler) Start(c *gin.Context) {
	var req startRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "team_id обязателен"})
		return
	}

	ctx := c.Request.Context()
	team, err := h.teams.SetReady(ctx, middleware.UserID(c), req.TeamID, true)
	if err != nil {
		respondError(c, err)
		return
	}

	info, err := h.matches.MarkTeamReady(ctx, team.EffectiveMatchID(), team.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}
