package services

import (
	"context"
	"net/url"
	"sort"

	"go.uber.org/zap"

	"github.com/Atubu88/quiz/internal/models"
	"github.com/Atubu88/quiz/internal/supabase"
)

// LeaderboardEntry is one player's line on a solo quiz leaderboard.
type LeaderboardEntry struct {
	UserID    int64  `json:"user_id"`
	Name      string `json:"name"`
	Score     int    `json:"score"`
	TimeTaken int    `json:"time_taken"`
	Position  int    `json:"position"`
}

// ResultService persists solo and pair-matching results and builds
// leaderboards from them.
type ResultService struct {
	db  *supabase.Client
	log *zap.Logger
}

func NewResultService(db *supabase.Client, log *zap.Logger) *ResultService {
	return &ResultService{db: db, log: log}
}

// SaveResult stores a solo quiz result once. A player replaying the same
// quiz keeps their first recorded result.
func (s *ResultService) SaveResult(ctx context.Context, result *models.Result) error {
	params := url.Values{}
	params.Set("user_id", supabase.Eq(result.UserID))
	params.Set("quiz_id", supabase.Eq(result.QuizID))
	params.Set("select", "id")

	var existing struct {
		ID int64 `json:"id"`
	}
	found, err := s.db.SelectOne(ctx, "results", params, &existing)
	if err != nil {
		return err
	}
	if found {
		return nil
	}

	payload := map[string]interface{}{
		"user_id":    result.UserID,
		"quiz_id":    result.QuizID,
		"score":      result.Score,
		"time_taken": result.TimeTaken,
	}
	return s.db.Insert(ctx, "results", payload, nil)
}

type resultRow struct {
	UserID    int64       `json:"user_id"`
	Score     int         `json:"score"`
	TimeTaken int         `json:"time_taken"`
	User      models.User `json:"users"`
}

// Leaderboard ranks every result of a quiz: score descending, time
// ascending. The returned slice is already positioned 1..n.
func (s *ResultService) Leaderboard(ctx context.Context, quizID int64) ([]LeaderboardEntry, error) {
	params := url.Values{}
	params.Set("quiz_id", supabase.Eq(quizID))
	params.Set("select", "user_id,score,time_taken,users(id,username,first_name,last_name)")

	var rows []resultRow
	if err := s.db.Select(ctx, "results", params, &rows); err != nil {
		return nil, err
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Score != rows[j].Score {
			return rows[i].Score > rows[j].Score
		}
		return rows[i].TimeTaken < rows[j].TimeTaken
	})

	entries := make([]LeaderboardEntry, 0, len(rows))
	for i, r := range rows {
		entries = append(entries, LeaderboardEntry{
			UserID:    r.UserID,
			Name:      displayName(&r.User),
			Score:     r.Score,
			TimeTaken: r.TimeTaken,
			Position:  i + 1,
		})
	}
	return entries, nil
}

// Position finds the user's place on the quiz leaderboard, 0 when absent.
func (s *ResultService) Position(ctx context.Context, quizID, userID int64) (int, error) {
	entries, err := s.Leaderboard(ctx, quizID)
	if err != nil {
		return 0, err
	}
	for _, e := range entries {
		if e.UserID == userID {
			return e.Position, nil
		}
	}
	return 0, nil
}

// SaveMatchingResult upserts a pair-matching result; replays overwrite the
// previous attempt.
func (s *ResultService) SaveMatchingResult(ctx context.Context, result *models.MatchingResult) error {
	payload := map[string]interface{}{
		"user_id":     result.UserID,
		"quiz_id":     result.QuizID,
		"is_correct":  result.IsCorrect,
		"error_count": result.ErrorCount,
		"time_taken":  result.TimeTaken,
	}
	return s.db.Upsert(ctx, "matching_quiz_results", "user_id,quiz_id", payload)
}

type matchingRow struct {
	UserID     int64       `json:"user_id"`
	ErrorCount int         `json:"error_count"`
	TimeTaken  float64     `json:"time_taken"`
	User       models.User `json:"users"`
}

// MatchingEntry is one player's line on a pair-matching leaderboard.
type MatchingEntry struct {
	UserID     int64   `json:"user_id"`
	Name       string  `json:"name"`
	ErrorCount int     `json:"error_count"`
	TimeTaken  float64 `json:"time_taken"`
	Position   int     `json:"position"`
}

// MatchingLeaderboard ranks finished attempts: fewest errors first, then
// fastest time.
func (s *ResultService) MatchingLeaderboard(ctx context.Context, quizID int64) ([]MatchingEntry, error) {
	params := url.Values{}
	params.Set("quiz_id", supabase.Eq(quizID))
	params.Set("is_correct", supabase.Eq(true))
	params.Set("select", "user_id,error_count,time_taken,users(id,username,first_name,last_name)")

	var rows []matchingRow
	if err := s.db.Select(ctx, "matching_quiz_results", params, &rows); err != nil {
		return nil, err
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].ErrorCount != rows[j].ErrorCount {
			return rows[i].ErrorCount < rows[j].ErrorCount
		}
		return rows[i].TimeTaken < rows[j].TimeTaken
	})

	entries := make([]MatchingEntry, 0, len(rows))
	for i, r := range rows {
		entries = append(entries, MatchingEntry{
			UserID:     r.UserID,
			Name:       displayName(&r.User),
			ErrorCount: r.ErrorCount,
			TimeTaken:  r.TimeTaken,
			Position:   i + 1,
		})
	}
	return entries, nil
}

// RatingEntry is one player's line on the overall rating, summed across
// every quiz they played.
type RatingEntry struct {
	UserID int64  `json:"user_id"`
	Name   string `json:"name"`
	Score  int    `json:"score"`
	Played int    `json:"played"`
}

// GlobalRating sums each player's scores across all quizzes, best totals
// first.
func (s *ResultService) GlobalRating(ctx context.Context) ([]RatingEntry, error) {
	params := url.Values{}
	params.Set("select", "user_id,score,time_taken,users(id,username,first_name,last_name)")

	var rows []resultRow
	if err := s.db.Select(ctx, "results", params, &rows); err != nil {
		return nil, err
	}

	byUser := make(map[int64]*RatingEntry)
	order := make([]int64, 0)
	for _, r := range rows {
		entry, ok := byUser[r.UserID]
		if !ok {
			entry = &RatingEntry{UserID: r.UserID, Name: displayName(&r.User)}
			byUser[r.UserID] = entry
			order = append(order, r.UserID)
		}
		entry.Score += r.Score
		entry.Played++
	}

	entries := make([]RatingEntry, 0, len(byUser))
	for _, id := range order {
		entries = append(entries, *byUser[id])
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].Name < entries[j].Name
	})
	return entries, nil
}

// ResetTournament wipes every solo result row. Admin only, guarded at the
// bot layer.
func (s *ResultService) ResetTournament(ctx context.Context) error {
	params := url.Values{}
	params.Set("id", "gt.0")
	if err := s.db.Delete(ctx, "results", params); err != nil {
		return err
	}
	s.log.Warn("tournament results wiped")
	return nil
}
