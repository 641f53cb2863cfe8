package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Atubu88/quiz/internal/models"
	"github.com/Atubu88/quiz/internal/supabase"
)

func newResultFixture(t *testing.T, handler http.HandlerFunc) *ResultService {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewResultService(supabase.New(srv.URL, "test-key", zap.NewNop()), zap.NewNop())
}

func TestSaveResultKeepsFirstAttempt(t *testing.T) {
	inserts := 0
	haveRow := false
	svc := newResultFixture(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			if haveRow {
				w.Write([]byte(`[{"id":1}]`))
			} else {
				w.Write([]byte(`[]`))
			}
		case http.MethodPost:
			inserts++
			haveRow = true
			w.WriteHeader(http.StatusCreated)
		}
	})

	result := &models.Result{UserID: 1, QuizID: 7, Score: 3, TimeTaken: 42}
	require.NoError(t, svc.SaveResult(context.Background(), result))
	require.NoError(t, svc.SaveResult(context.Background(), result))
	assert.Equal(t, 1, inserts, "a replay must keep the first result")
}

func TestSaveMatchingResultUpsertsIntoMatchingQuizResults(t *testing.T) {
	var gotPath, gotConflict string
	svc := newResultFixture(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotConflict = r.URL.Query().Get("on_conflict")
		w.WriteHeader(http.StatusCreated)
	})

	err := svc.SaveMatchingResult(context.Background(), &models.MatchingResult{
		UserID: 1, QuizID: 7, IsCorrect: true, ErrorCount: 2, TimeTaken: 33.5,
	})
	require.NoError(t, err)
	assert.Equal(t, "/rest/v1/matching_quiz_results", gotPath)
	assert.Equal(t, "user_id,quiz_id", gotConflict)
}

func TestMatchingLeaderboardReadsMatchingQuizResults(t *testing.T) {
	var gotPath string
	svc := newResultFixture(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewEncoder(w).Encode([]map[string]interface{}{
			{"user_id": 2, "error_count": 1, "time_taken": 20.0, "users": map[string]interface{}{"id": 2, "first_name": "Борис"}},
			{"user_id": 1, "error_count": 0, "time_taken": 25.0, "users": map[string]interface{}{"id": 1, "first_name": "Анна"}},
			{"user_id": 3, "error_count": 1, "time_taken": 15.0, "users": map[string]interface{}{"id": 3, "first_name": "Вера"}},
		})
	})

	board, err := svc.MatchingLeaderboard(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "/rest/v1/matching_quiz_results", gotPath)

	// Fewest errors first, ties broken by time.
	require.Len(t, board, 3)
	assert.Equal(t, "Анна", board[0].Name)
	assert.Equal(t, "Вера", board[1].Name)
	assert.Equal(t, "Борис", board[2].Name)
	assert.Equal(t, 1, board[0].Position)
}
