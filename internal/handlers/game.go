package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Atubu88/quiz/internal/middleware"
	"github.com/Atubu88/quiz/internal/models"
	"github.com/Atubu88/quiz/internal/services"
)

type GameHandler struct {
	teams      *services.TeamService
	progress   *services.ProgressService
	quizzes    *services.QuizService
	scoreboard *services.ScoreboardService
	matches    *services.MatchService
}

func NewGameHandler(
	teams *services.TeamService,
	progress *services.ProgressService,
	quizzes *services.QuizService,
	scoreboard *services.ScoreboardService,
	matches *services.MatchService,
) *GameHandler {
	return &GameHandler{
		teams:      teams,
		progress:   progress,
		quizzes:    quizzes,
		scoreboard: scoreboard,
		matches:    matches,
	}
}

// Answer options are sent without the correctness flag; checking happens
// server side on the answer endpoint.
type gameOption struct {
	ID   int64  `json:"id"`
	Text string `json:"text"`
}

type gameQuestion struct {
	ID      int64        `json:"id"`
	Text    string       `json:"text"`
	Options []gameOption `json:"options"`
}

type gameQuizResponse struct {
	QuizID    int64          `json:"quiz_id"`
	Title     string         `json:"title"`
	TeamID    string         `json:"team_id"`
	StartTime string         `json:"start_time,omitempty"`
	Questions []gameQuestion `json:"questions"`
}

func (h *GameHandler) playerTeam(c *gin.Context) (*models.TeamWithMembers, bool) {
	team, err := h.teams.GetTeamOfUser(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	return team, true
}

// Quiz returns the questions for the caller's team, seeding the in-memory
// progress on the way.
func (h *GameHandler) Quiz(c *gin.Context) {
	team, ok := h.playerTeam(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	team, err := h.progress.EnsureTeamProgress(ctx, team.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	if team.QuizID == nil {
		respondError(c, services.ErrNoActiveQuiz)
		return
	}

	quiz, err := h.quizzes.GetQuiz(ctx, *team.QuizID)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := gameQuizResponse{
		QuizID:    quiz.ID,
		Title:     quiz.Title,
		TeamID:    team.ID,
		StartTime: team.StartTime,
	}
	for _, q := range quiz.Questions {
		gq := gameQuestion{ID: q.ID, Text: q.Text}
		for _, o := range q.Options {
			gq.Options = append(gq.Options, gameOption{ID: o.ID, Text: o.Text})
		}
		resp.Questions = append(resp.Questions, gq)
	}
	c.JSON(http.StatusOK, resp)
}

type answerRequest struct {
	QuestionID int64 `json:"question_id" binding:"required"`
	OptionID   int64 `json:"option_id" binding:"required"`
}

type answerResponse struct {
	Accepted bool `json:"accepted"`
	Correct  bool `json:"correct"`
	Score    int  `json:"score"`
}

// Answer scores one answer for the caller. Repeats of an already answered
// question are acknowledged but not counted.
func (h *GameHandler) Answer(c *gin.Context) {
	var req answerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "question_id и option_id обязательны"})
		return
	}

	team, ok := h.playerTeam(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	team, err := h.progress.EnsureTeamProgress(ctx, team.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	if team.QuizID == nil {
		respondError(c, services.ErrNoActiveQuiz)
		return
	}

	quiz, err := h.quizzes.GetQuiz(ctx, *team.QuizID)
	if err != nil {
		respondError(c, err)
		return
	}

	var question *models.Question
	for i := range quiz.Questions {
		if quiz.Questions[i].ID == req.QuestionID {
			question = &quiz.Questions[i]
			break
		}
	}
	if question == nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "вопрос не относится к этой викторине"})
		return
	}

	correct := false
	if opt, ok := question.CorrectOption(); ok {
		correct = opt.ID == req.OptionID
	}

	userID := middleware.UserID(c)
	accepted := h.progress.RegisterAnswer(team.ID, userID, req.QuestionID, correct)
	c.JSON(http.StatusOK, answerResponse{
		Accepted: accepted,
		Correct:  correct,
		Score:    h.progress.PlayerScore(team.ID, userID),
	})
}

// Complete marks the caller as finished; the team result is written once
// every member has reported in.
func (h *GameHandler) Complete(c *gin.Context) {
	team, ok := h.playerTeam(c)
	if !ok {
		return
	}

	h.progress.MarkPlayerCompleted(c.Request.Context(), team.ID, middleware.UserID(c))
	c.JSON(http.StatusOK, gin.H{
		"team_completed": h.progress.TeamCompleted(team.ID),
	})
}

type gameStatusResponse struct {
	TeamCompleted bool                     `json:"team_completed"`
	AllReported   bool                     `json:"all_reported"`
	Scoreboard    *services.TeamScoreboard `json:"scoreboard,omitempty"`
}

// Status tells the results screen whether to keep waiting. The scoreboard
// is attached only once every team has reported.
func (h *GameHandler) Status(c *gin.Context) {
	matchID := c.Param("match_id")
	team, ok := h.playerTeam(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	allReported, err := h.progress.AllReported(ctx, matchID)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := gameStatusResponse{
		TeamCompleted: h.progress.TeamCompleted(team.ID),
		AllReported:   allReported,
	}
	if allReported {
		board, err := h.scoreboard.FetchTeamScoreboard(ctx, matchID)
		if err != nil {
			respondError(c, err)
			return
		}
		resp.Scoreboard = board
		h.matches.ClearMatch(matchID)
	}
	c.JSON(http.StatusOK, resp)
}
