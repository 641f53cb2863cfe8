package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Atubu88/quiz/internal/models"
	"github.com/Atubu88/quiz/internal/supabase"
)

// progressStore serves the teams, team_members and team_results tables for
// the finalize flow.
type progressStore struct {
	team        models.Team
	memberIDs   []int64
	haveResult  bool
	failResults bool

	resultInserts int32
	resultPatches int32
	lastInsert    map[string]interface{}
}

func (f *progressStore) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		table := strings.TrimPrefix(r.URL.Path, "/rest/v1/")

		switch {
		case table == "teams" && r.Method == http.MethodGet:
			json.NewEncoder(w).Encode([]models.Team{f.team})

		case table == "team_members" && r.Method == http.MethodGet:
			rows := make([]map[string]interface{}, 0, len(f.memberIDs))
			for i, id := range f.memberIDs {
				rows = append(rows, map[string]interface{}{
					"is_captain": i == 0,
					"joined_at":  "2026-01-01T00:00:00Z",
					"users": map[string]interface{}{
						"id":          id,
						"telegram_id": 100 + id,
						"first_name":  fmt.Sprintf("Игрок %d", id),
					},
				})
			}
			json.NewEncoder(w).Encode(rows)

		case table == "team_results" && r.Method == http.MethodGet:
			if f.failResults {
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte(`{"message":"boom"}`))
				return
			}
			if f.haveResult {
				w.Write([]byte(`[{"id":55}]`))
			} else {
				w.Write([]byte(`[]`))
			}

		case table == "team_results" && r.Method == http.MethodPost:
			atomic.AddInt32(&f.resultInserts, 1)
			json.NewDecoder(r.Body).Decode(&f.lastInsert)
			w.WriteHeader(http.StatusCreated)

		case table == "team_results" && r.Method == http.MethodPatch:
			atomic.AddInt32(&f.resultPatches, 1)
			w.WriteHeader(http.StatusNoContent)

		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}
}

func newProgressFixture(t *testing.T, store *progressStore) *ProgressService {
	t.Helper()
	srv := httptest.NewServer(store.handler())
	t.Cleanup(srv.Close)

	db := supabase.New(srv.URL, "test-key", zap.NewNop())
	teams := NewTeamService(db, zap.NewNop())
	return NewProgressService(db, teams, nil, zap.NewNop())
}

func quizIDPtr(id int64) *int64 { return &id }

func TestRegisterAnswerCountsFirstAttemptOnly(t *testing.T) {
	store := &progressStore{
		team:      models.Team{ID: "t1", Name: "Альфа", QuizID: quizIDPtr(7)},
		memberIDs: []int64{1, 2},
	}
	svc := newProgressFixture(t, store)

	_, err := svc.EnsureTeamProgress(context.Background(), "t1")
	require.NoError(t, err)

	assert.True(t, svc.RegisterAnswer("t1", 1, 10, true))
	assert.False(t, svc.RegisterAnswer("t1", 1, 10, true), "repeat answer must not count")
	assert.True(t, svc.RegisterAnswer("t1", 1, 11, false))
	assert.Equal(t, 1, svc.PlayerScore("t1", 1))
}

func TestMarkPlayerCompletedReportsChange(t *testing.T) {
	store := &progressStore{
		team:      models.Team{ID: "t1", Name: "Альфа", QuizID: quizIDPtr(7)},
		memberIDs: []int64{1, 2},
	}
	svc := newProgressFixture(t, store)

	_, err := svc.EnsureTeamProgress(context.Background(), "t1")
	require.NoError(t, err)

	assert.True(t, svc.MarkPlayerCompleted(context.Background(), "t1", 1))
	assert.False(t, svc.MarkPlayerCompleted(context.Background(), "t1", 1), "repeat completion is a no-op")
}

func TestEnsureTeamProgressIsIdempotent(t *testing.T) {
	store := &progressStore{
		team:      models.Team{ID: "t1", Name: "Альфа", QuizID: quizIDPtr(7)},
		memberIDs: []int64{1, 2},
	}
	svc := newProgressFixture(t, store)

	_, err := svc.EnsureTeamProgress(context.Background(), "t1")
	require.NoError(t, err)
	svc.RegisterAnswer("t1", 1, 10, true)

	// A second ensure keeps the accumulated state.
	_, err = svc.EnsureTeamProgress(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, 1, svc.PlayerScore("t1", 1))
}

func TestEnsureTeamProgressRequiresQuiz(t *testing.T) {
	store := &progressStore{
		team:      models.Team{ID: "t1", Name: "Альфа"},
		memberIDs: []int64{1},
	}
	svc := newProgressFixture(t, store)

	_, err := svc.EnsureTeamProgress(context.Background(), "t1")
	assert.ErrorIs(t, err, ErrNoActiveQuiz)
}

func TestFinalizeWaitsForAllMembers(t *testing.T) {
	start := time.Now().UTC().Add(-30 * time.Second).Format(time.RFC3339)
	store := &progressStore{
		team:      models.Team{ID: "t1", Name: "Альфа", QuizID: quizIDPtr(7), StartTime: start},
		memberIDs: []int64{1, 2},
	}
	svc := newProgressFixture(t, store)

	_, err := svc.EnsureTeamProgress(context.Background(), "t1")
	require.NoError(t, err)

	svc.RegisterAnswer("t1", 1, 10, true)
	svc.RegisterAnswer("t1", 2, 10, true)

	svc.MarkPlayerCompleted(context.Background(), "t1", 1)
	assert.False(t, svc.TeamCompleted("t1"))
	assert.Equal(t, int32(0), atomic.LoadInt32(&store.resultInserts))

	svc.MarkPlayerCompleted(context.Background(), "t1", 2)
	assert.True(t, svc.TeamCompleted("t1"))
	assert.Equal(t, int32(1), atomic.LoadInt32(&store.resultInserts))

	assert.Equal(t, float64(2), store.lastInsert["score"])
	taken, ok := store.lastInsert["time_taken"].(float64)
	require.True(t, ok, "time_taken must be recorded when start_time parses")
	assert.InDelta(t, 30, taken, 5)

	// Another finalize attempt must not write again.
	svc.FinalizeTeamIfReady(context.Background(), "t1")
	assert.Equal(t, int32(1), atomic.LoadInt32(&store.resultInserts))
}

func TestFinalizeRequiresAtLeastOneMember(t *testing.T) {
	store := &progressStore{
		team:      models.Team{ID: "t1", Name: "Альфа", QuizID: quizIDPtr(7)},
		memberIDs: []int64{},
	}
	svc := newProgressFixture(t, store)

	_, err := svc.EnsureTeamProgress(context.Background(), "t1")
	require.NoError(t, err)

	svc.FinalizeTeamIfReady(context.Background(), "t1")
	assert.False(t, svc.TeamCompleted("t1"), "an empty member set must not finalize")
	assert.Equal(t, int32(0), atomic.LoadInt32(&store.resultInserts))
}

func TestFinalizeSkipsTimeOnBadStartStamp(t *testing.T) {
	store := &progressStore{
		team:      models.Team{ID: "t1", Name: "Альфа", QuizID: quizIDPtr(7), StartTime: "not-a-timestamp"},
		memberIDs: []int64{1},
	}
	svc := newProgressFixture(t, store)

	_, err := svc.EnsureTeamProgress(context.Background(), "t1")
	require.NoError(t, err)

	svc.MarkPlayerCompleted(context.Background(), "t1", 1)
	assert.True(t, svc.TeamCompleted("t1"))
	_, hasTime := store.lastInsert["time_taken"]
	assert.False(t, hasTime)
}

func TestFinalizeUpdatesExistingRow(t *testing.T) {
	store := &progressStore{
		team:       models.Team{ID: "t1", Name: "Альфа", QuizID: quizIDPtr(7)},
		memberIDs:  []int64{1},
		haveResult: true,
	}
	svc := newProgressFixture(t, store)

	_, err := svc.EnsureTeamProgress(context.Background(), "t1")
	require.NoError(t, err)

	svc.MarkPlayerCompleted(context.Background(), "t1", 1)
	assert.Equal(t, int32(0), atomic.LoadInt32(&store.resultInserts))
	assert.Equal(t, int32(1), atomic.LoadInt32(&store.resultPatches))
}

func TestFinalizeCompletesDespiteStorageFailure(t *testing.T) {
	store := &progressStore{
		team:        models.Team{ID: "t1", Name: "Альфа", QuizID: quizIDPtr(7)},
		memberIDs:   []int64{1},
		failResults: true,
	}
	svc := newProgressFixture(t, store)

	_, err := svc.EnsureTeamProgress(context.Background(), "t1")
	require.NoError(t, err)

	svc.MarkPlayerCompleted(context.Background(), "t1", 1)
	assert.True(t, svc.TeamCompleted("t1"), "a failed write must not strand the team")
}
