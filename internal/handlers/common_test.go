package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Atubu88/quiz/internal/services"
	"github.com/Atubu88/quiz/internal/supabase"
)

func statusFor(t *testing.T, err error) int {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	respondError(c, err)
	return w.Code
}

func TestRespondErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{services.ErrInvalidSignature, http.StatusUnauthorized},
		{services.ErrNotCaptain, http.StatusForbidden},
		{services.ErrTeamNotFound, http.StatusNotFound},
		{services.ErrTeamCodeNotFound, http.StatusNotFound},
		{services.ErrUserNotFound, http.StatusNotFound},
		{services.ErrQuizNotFound, http.StatusNotFound},
		{services.ErrAlreadyInTeam, http.StatusConflict},
		{services.ErrCaptainCannotLeave, http.StatusConflict},
		{services.ErrNoActiveQuiz, http.StatusBadRequest},
		{services.ErrChatUnavailable, http.StatusServiceUnavailable},
		{assert.AnError, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, statusFor(t, tc.err), "error %v", tc.err)
	}
}

func TestRespondErrorKeepsStorageStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	err := &supabase.APIError{
		Status: http.StatusConflict,
		Table:  "teams",
		Body:   json.RawMessage(`{"message":"duplicate key"}`),
	}
	respondError(c, err)

	assert.Equal(t, http.StatusConflict, w.Code)

	var resp struct {
		Error  string          `json:"error"`
		Detail json.RawMessage `json:"detail"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ошибка хранилища", resp.Error)
	assert.JSONEq(t, `{"message":"duplicate key"}`, string(resp.Detail))
}

func TestRespondErrorSkipsUnparsableStorageBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	err := &supabase.APIError{Status: http.StatusBadGateway, Table: "teams", Body: json.RawMessage("upstream died")}
	respondError(c, err)

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.NotContains(t, w.Body.String(), "detail")
}
