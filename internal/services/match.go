package services

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Atubu88/quiz/internal/models"
	"github.com/Atubu88/quiz/internal/supabase"
)

// Notifier pushes match events to connected clients. The websocket hub
// implements it; a nil Notifier is allowed and turns pushes into no-ops.
type Notifier interface {
	Broadcast(matchID string, payload interface{})
}

// TeamStatus is one team's slice of the match status payload.
type TeamStatus struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Ready   bool   `json:"ready"`
	Members int    `json:"members"`
}

// MatchStatusInfo is what clients poll (or receive over the socket) while
// waiting in the lobby.
type MatchStatusInfo struct {
	MatchID   string       `json:"match_id"`
	Teams     []TeamStatus `json:"teams"`
	AllReady  bool         `json:"all_ready"`
	QuizID    *int64       `json:"quiz_id,omitempty"`
	Started   bool         `json:"started"`
	StartTime string       `json:"start_time,omitempty"`
}

// MatchService tracks lobby readiness. Database `ready` columns seed the
// in-memory cache on first observation; after that the cache is
// authoritative for the lifetime of the match.
type MatchService struct {
	db       *supabase.Client
	teams    *TeamService
	notifier Notifier
	log      *zap.Logger

	mu         sync.Mutex
	readyCache map[string]map[string]bool // match id -> team id -> ready
	started    map[string]bool            // match id -> start_time written
}

func NewMatchService(db *supabase.Client, teams *TeamService, notifier Notifier, log *zap.Logger) *MatchService {
	return &MatchService{
		db:         db,
		teams:      teams,
		notifier:   notifier,
		log:        log,
		readyCache: make(map[string]map[string]bool),
		started:    make(map[string]bool),
	}
}

func (s *MatchService) seedAndRead(matchID string, teams []models.Team) map[string]bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	cache, ok := s.readyCache[matchID]
	if !ok {
		cache = make(map[string]bool)
		s.readyCache[matchID] = cache
	}
	out := make(map[string]bool, len(teams))
	for _, t := range teams {
		if _, seen := cache[t.ID]; !seen {
			cache[t.ID] = t.Ready
		}
		out[t.ID] = cache[t.ID]
	}
	return out
}

// Status assembles the lobby view for a match. A match is "all ready" only
// with at least two teams present and every one of them ready.
func (s *MatchService) Status(ctx context.Context, matchID string) (*MatchStatusInfo, error) {
	teams, err := s.teams.ResolveMatchTeams(ctx, matchID)
	if err != nil {
		return nil, err
	}
	ready := s.seedAndRead(matchID, teams)

	info := &MatchStatusInfo{MatchID: matchID, Teams: make([]TeamStatus, 0, len(teams))}
	allReady := len(teams) >= 2
	for _, t := range teams {
		memberCount, err := s.countMembers(ctx, t.ID)
		if err != nil {
			return nil, err
		}
		r := ready[t.ID]
		if !r {
			allReady = false
		}
		info.Teams = append(info.Teams, TeamStatus{ID: t.ID, Name: t.Name, Ready: r, Members: memberCount})

		if t.QuizID != nil && info.QuizID == nil {
			info.QuizID = t.QuizID
		}
		if t.StartTime != "" {
			info.Started = true
			info.StartTime = t.StartTime
		}
	}
	info.AllReady = allReady
	return info, nil
}

func (s *MatchService) countMembers(ctx context.Context, teamID string) (int, error) {
	params := url.Values{}
	params.Set("team_id", supabase.Eq(teamID))
	params.Set("select", "id")

	var rows []struct {
		ID int64 `json:"id"`
	}
	if err := s.db.Select(ctx, "team_members", params, &rows); err != nil {
		return 0, err
	}
	return len(rows), nil
}

// MarkTeamReady records readiness in the cache, starts the match if that
// made everyone ready, and pushes the fresh status to the lobby.
func (s *MatchService) MarkTeamReady(ctx context.Context, matchID, teamID string) (*MatchStatusInfo, error) {
	s.mu.Lock()
	cache, ok := s.readyCache[matchID]
	if !ok {
		cache = make(map[string]bool)
		s.readyCache[matchID] = cache
	}
	cache[teamID] = true
	s.mu.Unlock()

	info, err := s.Status(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if info.AllReady && !info.Started {
		if err := s.EnsureMatchStarted(ctx, matchID); err != nil {
			return nil, err
		}
		info, err = s.Status(ctx, matchID)
		if err != nil {
			return nil, err
		}
	}
	if s.notifier != nil {
		s.notifier.Broadcast(matchID, map[string]interface{}{"type": "match_status", "data": info})
	}
	return info, nil
}

// EnsureMatchQuizAssigned copies the quiz onto every team in the match that
// has none yet, so both sides play the same quiz.
func (s *MatchService) EnsureMatchQuizAssigned(ctx context.Context, matchID string, quizID int64) error {
	params := url.Values{}
	params.Set("match_id", supabase.Eq(matchID))
	params.Set("quiz_id", "is.null")
	return s.db.Update(ctx, "teams", params, map[string]interface{}{"quiz_id": quizID}, nil)
}

// EnsureMatchStarted stamps start_time on every team in the match exactly
// once. The started set guards against a second writer racing in between
// the all-ready check and the PATCH.
func (s *MatchService) EnsureMatchStarted(ctx context.Context, matchID string) error {
	s.mu.Lock()
	if s.started[matchID] {
		s.mu.Unlock()
		return nil
	}
	s.started[matchID] = true
	s.mu.Unlock()

	now := time.Now().UTC().Format(time.RFC3339)

	// Lone-team matches key the match by the team id, hence the or filter.
	params := url.Values{}
	params.Set("or", fmt.Sprintf("(match_id.eq.%s,id.eq.%s)", matchID, matchID))
	params.Set("start_time", "is.null")
	if err := s.db.Update(ctx, "teams", params, map[string]interface{}{"start_time": now}, nil); err != nil {
		s.mu.Lock()
		delete(s.started, matchID)
		s.mu.Unlock()
		return err
	}

	s.log.Info("match started", zap.String("match_id", matchID), zap.String("start_time", now))
	return nil
}

// ClearMatch drops the match from the in-memory caches once play is over.
func (s *MatchService) ClearMatch(matchID string) {
	s.mu.Lock()
	delete(s.readyCache, matchID)
	delete(s.started, matchID)
	s.mu.Unlock()
}
