package services

import (
	"context"
	"math"
	"net/url"
	"sort"

	"go.uber.org/zap"

	"github.com/Atubu88/quiz/internal/models"
	"github.com/Atubu88/quiz/internal/supabase"
)

// ScoreRow is one team's line on the match scoreboard.
type ScoreRow struct {
	TeamID    string   `json:"team_id"`
	Name      string   `json:"name"`
	Score     int      `json:"score"`
	TimeTaken *float64 `json:"time_taken,omitempty"`
	Completed bool     `json:"completed"`
}

// TeamScoreboard is the final (or in-progress) standing of a match.
type TeamScoreboard struct {
	MatchID     string     `json:"match_id"`
	Scores      []ScoreRow `json:"scores"`
	AllReported bool       `json:"all_reported"`
}

// ScoreboardService reads persisted team results and ranks them.
type ScoreboardService struct {
	db    *supabase.Client
	teams *TeamService
	log   *zap.Logger
}

func NewScoreboardService(db *supabase.Client, teams *TeamService, log *zap.Logger) *ScoreboardService {
	return &ScoreboardService{db: db, teams: teams, log: log}
}

// FetchTeamScoreboard collects every team in the match together with its
// result row. Ordering is score descending, then time ascending with
// missing times last, then name for determinism.
func (s *ScoreboardService) FetchTeamScoreboard(ctx context.Context, matchID string) (*TeamScoreboard, error) {
	teams, err := s.teams.ResolveMatchTeams(ctx, matchID)
	if err != nil {
		return nil, err
	}

	board := &TeamScoreboard{MatchID: matchID, AllReported: true}
	for _, t := range teams {
		row := ScoreRow{TeamID: t.ID, Name: t.Name}

		params := url.Values{}
		params.Set("team_id", supabase.Eq(t.ID))
		if t.QuizID != nil {
			params.Set("quiz_id", supabase.Eq(*t.QuizID))
		}

		var result models.TeamResult
		found, err := s.db.SelectOne(ctx, "team_results", params, &result)
		if err != nil {
			return nil, err
		}
		if found {
			row.Score = result.Score
			row.TimeTaken = result.TimeTaken
			row.Completed = true
		} else {
			board.AllReported = false
		}
		board.Scores = append(board.Scores, row)
	}

	sort.Slice(board.Scores, func(i, j int) bool {
		a, b := board.Scores[i], board.Scores[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		at, bt := math.Inf(1), math.Inf(1)
		if a.TimeTaken != nil {
			at = *a.TimeTaken
		}
		if b.TimeTaken != nil {
			bt = *b.TimeTaken
		}
		if at != bt {
			return at < bt
		}
		return a.Name < b.Name
	})
	return board, nil
}
