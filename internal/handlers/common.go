package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Atubu88/quiz/internal/services"
	"github.com/Atubu88/quiz/internal/supabase"
)

type ErrorResponse struct {
	Error  string          `json:"error"`
	Detail json.RawMessage `json:"detail,omitempty"`
}

// respondError maps service errors onto HTTP statuses. Storage errors keep
// the upstream status and body so a PostgREST 409 stays a 409 and the
// client sees what the database complained about.
func respondError(c *gin.Context, err error) {
	var apiErr *supabase.APIError
	if errors.As(err, &apiErr) {
		resp := ErrorResponse{Error: "ошибка хранилища"}
		if json.Valid(apiErr.Body) {
			resp.Detail = apiErr.Body
		}
		c.JSON(apiErr.Status, resp)
		return
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrInvalidSignature):
		status = http.StatusUnauthorized
	case errors.Is(err, services.ErrNotCaptain):
		status = http.StatusForbidden
	case errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrTeamNotFound),
		errors.Is(err, services.ErrTeamCodeNotFound),
		errors.Is(err, services.ErrQuizNotFound):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrAlreadyInTeam),
		errors.Is(err, services.ErrCaptainCannotLeave):
		status = http.StatusConflict
	case errors.Is(err, services.ErrNoActiveQuiz):
		status = http.StatusBadRequest
	case errors.Is(err, services.ErrChatUnavailable):
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, ErrorResponse{Error: err.Error()})
}
