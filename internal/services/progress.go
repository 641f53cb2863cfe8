package services

import (
	"context"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Atubu88/quiz/internal/models"
	"github.com/Atubu88/quiz/internal/supabase"
)

// teamProgress is the in-memory play state of one team. Everything in here
// is guarded by the service mutex.
type teamProgress struct {
	matchID   string
	quizID    int64
	startTime string

	members   map[int64]struct{}
	answered  map[int64]map[int64]struct{} // user id -> question ids scored
	scores    map[int64]int
	completed map[int64]struct{}

	finalizing bool
	done       bool
}

// ProgressService tracks each team's answers during a match and writes the
// final row to team_results exactly once.
type ProgressService struct {
	db       *supabase.Client
	teams    *TeamService
	notifier Notifier
	log      *zap.Logger

	mu       sync.Mutex
	progress map[string]*teamProgress
}

func NewProgressService(db *supabase.Client, teams *TeamService, notifier Notifier, log *zap.Logger) *ProgressService {
	return &ProgressService{
		db:       db,
		teams:    teams,
		notifier: notifier,
		log:      log,
		progress: make(map[string]*teamProgress),
	}
}

// EnsureTeamProgress creates or returns the team's play state. The member
// set is re-merged from the fresh team row on every call so late joiners
// are counted toward completion.
func (s *ProgressService) EnsureTeamProgress(ctx context.Context, teamID string) (*models.TeamWithMembers, error) {
	team, err := s.teams.GetTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if team.QuizID == nil {
		return nil, ErrNoActiveQuiz
	}

	s.mu.Lock()
	p, ok := s.progress[teamID]
	if !ok {
		p = &teamProgress{
			matchID:   team.EffectiveMatchID(),
			quizID:    *team.QuizID,
			startTime: team.StartTime,
			members:   make(map[int64]struct{}),
			answered:  make(map[int64]map[int64]struct{}),
			scores:    make(map[int64]int),
			completed: make(map[int64]struct{}),
		}
		s.progress[teamID] = p
	}
	for _, m := range team.Members {
		p.members[m.ID] = struct{}{}
	}
	if p.startTime == "" {
		p.startTime = team.StartTime
	}
	s.mu.Unlock()
	return team, nil
}

// RegisterAnswer scores one player's answer to one question. A repeat answer
// to the same question is ignored without error; only the first counts.
func (s *ProgressService) RegisterAnswer(teamID string, userID, questionID int64, correct bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.progress[teamID]
	if !ok || p.done {
		return false
	}
	seen, ok := p.answered[userID]
	if !ok {
		seen = make(map[int64]struct{})
		p.answered[userID] = seen
	}
	if _, dup := seen[questionID]; dup {
		return false
	}
	seen[questionID] = struct{}{}
	if correct {
		p.scores[userID]++
	}
	return true
}

// MarkPlayerCompleted records that a player finished their question set and
// finalizes the team if that was the last one. Returns whether the call
// changed anything; a repeat is a no-op.
func (s *ProgressService) MarkPlayerCompleted(ctx context.Context, teamID string, userID int64) bool {
	changed := false
	s.mu.Lock()
	if p, ok := s.progress[teamID]; ok {
		if _, done := p.completed[userID]; !done {
			p.completed[userID] = struct{}{}
			changed = true
		}
	}
	s.mu.Unlock()

	s.FinalizeTeamIfReady(ctx, teamID)
	return changed
}

// FinalizeTeamIfReady writes the team result once every member has
// completed. The finalizing flag keeps a second caller from racing into the
// database write while the first holds no lock during I/O.
func (s *ProgressService) FinalizeTeamIfReady(ctx context.Context, teamID string) {
	s.mu.Lock()
	p, ok := s.progress[teamID]
	if !ok || p.done || p.finalizing {
		s.mu.Unlock()
		return
	}
	// A memberless team has nobody to complete; without this the loop
	// below passes vacuously and writes a zero score.
	if len(p.members) == 0 {
		s.mu.Unlock()
		return
	}
	for id := range p.members {
		if _, done := p.completed[id]; !done {
			s.mu.Unlock()
			return
		}
	}
	p.finalizing = true

	total := 0
	for _, sc := range p.scores {
		total += sc
	}
	timeTaken := elapsedSeconds(p.startTime)
	quizID := p.quizID
	matchID := p.matchID
	s.mu.Unlock()

	if err := s.upsertTeamResult(ctx, teamID, quizID, total, timeTaken); err != nil {
		// The result row is best effort: a storage hiccup must not keep
		// the whole team stuck on the results screen.
		s.log.Error("team result write failed",
			zap.String("team_id", teamID),
			zap.Error(err),
		)
	}

	s.mu.Lock()
	p.done = true
	p.finalizing = false
	s.mu.Unlock()

	s.log.Info("team finished",
		zap.String("team_id", teamID),
		zap.Int("score", total),
	)
	if s.notifier != nil {
		s.notifier.Broadcast(matchID, map[string]interface{}{
			"type":    "team_completed",
			"team_id": teamID,
			"score":   total,
		})
	}
}

// elapsedSeconds returns seconds since the ISO start stamp, or nil when the
// stamp is absent or unparsable.
func elapsedSeconds(startTime string) *float64 {
	if startTime == "" {
		return nil
	}
	start, err := time.Parse(time.RFC3339, startTime)
	if err != nil {
		return nil
	}
	secs := time.Since(start).Seconds()
	return &secs
}

func (s *ProgressService) upsertTeamResult(ctx context.Context, teamID string, quizID int64, score int, timeTaken *float64) error {
	params := url.Values{}
	params.Set("team_id", supabase.Eq(teamID))
	params.Set("quiz_id", supabase.Eq(quizID))
	params.Set("select", "id")

	var existing struct {
		ID int64 `json:"id"`
	}
	found, err := s.db.SelectOne(ctx, "team_results", params, &existing)
	if err != nil {
		return err
	}

	payload := map[string]interface{}{
		"team_id": teamID,
		"quiz_id": quizID,
		"score":   score,
	}
	if timeTaken != nil {
		payload["time_taken"] = *timeTaken
	}

	if found {
		updateParams := url.Values{}
		updateParams.Set("id", supabase.Eq(existing.ID))
		return s.db.Update(ctx, "team_results", updateParams, payload, nil)
	}
	return s.db.Insert(ctx, "team_results", payload, nil)
}

// TeamCompleted reports whether the team's result has been finalized.
func (s *ProgressService) TeamCompleted(teamID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.progress[teamID]
	return ok && p.done
}

// PlayerScore returns a player's current score within the team.
func (s *ProgressService) PlayerScore(teamID string, userID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.progress[teamID]; ok {
		return p.scores[userID]
	}
	return 0
}

// AllReported reports whether every team in the match has a finalized
// result row, in memory or already persisted.
func (s *ProgressService) AllReported(ctx context.Context, matchID string) (bool, error) {
	teams, err := s.teams.TeamsInMatch(ctx, matchID)
	if err != nil {
		return false, err
	}
	if len(teams) == 0 {
		return s.TeamCompleted(matchID), nil
	}
	for _, t := range teams {
		if s.TeamCompleted(t.ID) {
			continue
		}
		quizID := int64(0)
		if t.QuizID != nil {
			quizID = *t.QuizID
		}
		params := url.Values{}
		params.Set("team_id", supabase.Eq(t.ID))
		params.Set("quiz_id", supabase.Eq(quizID))
		params.Set("select", "id")

		var row struct {
			ID int64 `json:"id"`
		}
		found, err := s.db.SelectOne(ctx, "team_results", params, &row)
		if err != nil {
			return false, err
		}
		if !found {
			return false, nil
		}
	}
	return true, nil
}

// ClearTeam drops the team's in-memory state once results are served.
func (s *ProgressService) ClearTeam(teamID string) {
	s.mu.Lock()
	delete(s.progress, teamID)
	s.mu.Unlock()
}
