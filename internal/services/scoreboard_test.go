package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Atubu88/quiz/internal/models"
	"github.com/Atubu88/quiz/internal/supabase"
)

func floatPtr(v float64) *float64 { return &v }

// scoreStore serves teams plus a fixed team_results table keyed by team_id.
type scoreStore struct {
	teams   []models.Team
	results map[string]models.TeamResult
}

func (f *scoreStore) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		table := strings.TrimPrefix(r.URL.Path, "/rest/v1/")
		q := r.URL.Query()

		switch table {
		case "teams":
			var out []models.Team
			for _, t := range f.teams {
				if v := q.Get("match_id"); v != "" && v != "eq."+t.MatchID {
					continue
				}
				out = append(out, t)
			}
			if out == nil {
				out = []models.Team{}
			}
			json.NewEncoder(w).Encode(out)

		case "team_results":
			teamID := strings.TrimPrefix(q.Get("team_id"), "eq.")
			if res, ok := f.results[teamID]; ok {
				json.NewEncoder(w).Encode([]models.TeamResult{res})
			} else {
				w.Write([]byte("[]"))
			}

		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}
}

func newScoreFixture(t *testing.T, store *scoreStore) *ScoreboardService {
	t.Helper()
	srv := httptest.NewServer(store.handler())
	t.Cleanup(srv.Close)

	db := supabase.New(srv.URL, "test-key", zap.NewNop())
	teams := NewTeamService(db, zap.NewNop())
	return NewScoreboardService(db, teams, zap.NewNop())
}

func TestScoreboardOrdering(t *testing.T) {
	quiz := int64(7)
	store := &scoreStore{
		teams: []models.Team{
			{ID: "a", Name: "A", MatchID: "m1", QuizID: &quiz},
			{ID: "b", Name: "B", MatchID: "m1", QuizID: &quiz},
			{ID: "c", Name: "C", MatchID: "m1", QuizID: &quiz},
		},
		results: map[string]models.TeamResult{
			// C wins on score; B beats A on time at equal score.
			"a": {TeamID: "a", QuizID: quiz, Score: 3, TimeTaken: floatPtr(120)},
			"b": {TeamID: "b", QuizID: quiz, Score: 3, TimeTaken: floatPtr(90)},
			"c": {TeamID: "c", QuizID: quiz, Score: 5, TimeTaken: floatPtr(200)},
		},
	}
	svc := newScoreFixture(t, store)

	board, err := svc.FetchTeamScoreboard(context.Background(), "m1")
	require.NoError(t, err)
	require.Len(t, board.Scores, 3)
	assert.True(t, board.AllReported)
	assert.Equal(t, "C", board.Scores[0].Name)
	assert.Equal(t, "B", board.Scores[1].Name)
	assert.Equal(t, "A", board.Scores[2].Name)
}

func TestScoreboardMissingTimeSortsLast(t *testing.T) {
	quiz := int64(7)
	store := &scoreStore{
		teams: []models.Team{
			{ID: "a", Name: "A", MatchID: "m1", QuizID: &quiz},
			{ID: "b", Name: "B", MatchID: "m1", QuizID: &quiz},
		},
		results: map[string]models.TeamResult{
			"a": {TeamID: "a", QuizID: quiz, Score: 3},
			"b": {TeamID: "b", QuizID: quiz, Score: 3, TimeTaken: floatPtr(500)},
		},
	}
	svc := newScoreFixture(t, store)

	board, err := svc.FetchTeamScoreboard(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, "B", board.Scores[0].Name)
	assert.Equal(t, "A", board.Scores[1].Name)
}

func TestScoreboardPendingTeam(t *testing.T) {
	quiz := int64(7)
	store := &scoreStore{
		teams: []models.Team{
			{ID: "a", Name: "A", MatchID: "m1", QuizID: &quiz},
			{ID: "b", Name: "B", MatchID: "m1", QuizID: &quiz},
		},
		results: map[string]models.TeamResult{
			"a": {TeamID: "a", QuizID: quiz, Score: 3, TimeTaken: floatPtr(60)},
		},
	}
	svc := newScoreFixture(t, store)

	board, err := svc.FetchTeamScoreboard(context.Background(), "m1")
	require.NoError(t, err)
	assert.False(t, board.AllReported)
	for _, row := range board.Scores {
		if row.TeamID == "b" {
			assert.False(t, row.Completed)
			assert.Equal(t, 0, row.Score)
		}
	}
}
