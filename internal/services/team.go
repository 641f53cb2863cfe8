package services

import (
	"context"
	"math/rand"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/Atubu88/quiz/internal/models"
	"github.com/Atubu88/quiz/internal/supabase"
)

const (
	codeCharset  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeLength   = 6
	codeAttempts = 10
)

// TeamService manages team lifecycle: creation with invite codes, joining,
// leaving and captain-only operations.
type TeamService struct {
	db  *supabase.Client
	log *zap.Logger
}

func NewTeamService(db *supabase.Client, log *zap.Logger) *TeamService {
	return &TeamService{db: db, log: log}
}

func randomCode() string {
	b := make([]byte, codeLength)
	for i := range b {
		b[i] = codeCharset[rand.Intn(len(codeCharset))]
	}
	return string(b)
}

// generateUniqueCode draws random invite codes until one is free. With a
// 36^6 space collisions are vanishingly rare, but the attempt cap keeps a
// broken database from spinning forever.
func (s *TeamService) generateUniqueCode(ctx context.Context) (string, error) {
	for i := 0; i < codeAttempts; i++ {
		code := randomCode()
		params := url.Values{}
		params.Set("code", supabase.Eq(code))
		params.Set("select", "id")

		var row struct {
			ID string `json:"id"`
		}
		found, err := s.db.SelectOne(ctx, "teams", params, &row)
		if err != nil {
			return "", err
		}
		if !found {
			return code, nil
		}
	}
	return "", ErrCodeGeneration
}

// memberRow is the team_members row with the embedded users record, the
// shape PostgREST returns for select=...,users(...).
type memberRow struct {
	IsCaptain bool        `json:"is_captain"`
	JoinedAt  string      `json:"joined_at"`
	User      models.User `json:"users"`
}

func displayName(u *models.User) string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		name = u.Username
	}
	return name
}

func (s *TeamService) fetchMembers(ctx context.Context, teamID string) ([]models.TeamMemberInfo, error) {
	params := url.Values{}
	params.Set("team_id", supabase.Eq(teamID))
	params.Set("select", "is_captain,joined_at,users(id,telegram_id,username,first_name,last_name)")
	params.Set("order", "joined_at.asc")

	var rows []memberRow
	if err := s.db.Select(ctx, "team_members", params, &rows); err != nil {
		return nil, err
	}

	members := make([]models.TeamMemberInfo, 0, len(rows))
	for _, r := range rows {
		members = append(members, models.TeamMemberInfo{
			ID:         r.User.ID,
			TelegramID: r.User.TelegramID,
			Username:   r.User.Username,
			Name:       displayName(&r.User),
			IsCaptain:  r.IsCaptain,
			JoinedAt:   r.JoinedAt,
		})
	}
	return members, nil
}

// GetTeam returns a team with its member list.
func (s *TeamService) GetTeam(ctx context.Context, teamID string) (*models.TeamWithMembers, error) {
	params := url.Values{}
	params.Set("id", supabase.Eq(teamID))

	var team models.Team
	found, err := s.db.SelectOne(ctx, "teams", params, &team)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrTeamNotFound
	}

	members, err := s.fetchMembers(ctx, teamID)
	if err != nil {
		return nil, err
	}
	return &models.TeamWithMembers{Team: team, Members: members}, nil
}

// findMembership returns the user's team_members row, if any.
func (s *TeamService) findMembership(ctx context.Context, userID int64) (*models.TeamMember, bool, error) {
	params := url.Values{}
	params.Set("user_id", supabase.Eq(userID))

	var member models.TeamMember
	found, err := s.db.SelectOne(ctx, "team_members", params, &member)
	if err != nil {
		return nil, false, err
	}
	if !found {
		return nil, false, nil
	}
	return &member, true, nil
}

// GetTeamOfUser returns the team the user currently belongs to.
func (s *TeamService) GetTeamOfUser(ctx context.Context, userID int64) (*models.TeamWithMembers, error) {
	member, found, err := s.findMembership(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrTeamNotFound
	}
	return s.GetTeam(ctx, member.TeamID)
}

// CreateTeam creates a team with a fresh invite code and registers the
// creator as captain. A user in another team may not create one.
func (s *TeamService) CreateTeam(ctx context.Context, userID int64, name string) (*models.TeamWithMembers, error) {
	if _, found, err := s.findMembership(ctx, userID); err != nil {
		return nil, err
	} else if found {
		return nil, ErrAlreadyInTeam
	}

	code, err := s.generateUniqueCode(ctx)
	if err != nil {
		return nil, err
	}

	payload := map[string]interface{}{
		"name":       name,
		"code":       code,
		"captain_id": userID,
		"ready":      false,
	}
	var created []models.Team
	if err := s.db.Insert(ctx, "teams", payload, &created); err != nil {
		return nil, err
	}
	if len(created) == 0 {
		return nil, ErrTeamNotFound
	}
	team := created[0]

	memberPayload := map[string]interface{}{
		"team_id":    team.ID,
		"user_id":    userID,
		"is_captain": true,
	}
	if err := s.db.Insert(ctx, "team_members", memberPayload, nil); err != nil {
		return nil, err
	}

	s.log.Info("team created",
		zap.String("team_id", team.ID),
		zap.String("code", code),
		zap.Int64("captain_id", userID),
	)
	return s.GetTeam(ctx, team.ID)
}

// JoinTeam adds the user to the team behind the invite code.
func (s *TeamService) JoinTeam(ctx context.Context, userID int64, code string) (*models.TeamWithMembers, error) {
	if _, found, err := s.findMembership(ctx, userID); err != nil {
		return nil, err
	} else if found {
		return nil, ErrAlreadyInTeam
	}

	params := url.Values{}
	params.Set("code", supabase.Eq(strings.ToUpper(strings.TrimSpace(code))))

	var team models.Team
	found, err := s.db.SelectOne(ctx, "teams", params, &team)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrTeamCodeNotFound
	}

	memberPayload := map[string]interface{}{
		"team_id":    team.ID,
		"user_id":    userID,
		"is_captain": false,
	}
	if err := s.db.Insert(ctx, "team_members", memberPayload, nil); err != nil {
		return nil, err
	}

	s.log.Info("user joined team", zap.String("team_id", team.ID), zap.Int64("user_id", userID))
	return s.GetTeam(ctx, team.ID)
}

// LeaveTeam removes the user from their team. Captains must disband
// instead of leaving.
func (s *TeamService) LeaveTeam(ctx context.Context, userID int64) error {
	member, found, err := s.findMembership(ctx, userID)
	if err != nil {
		return err
	}
	if !found {
		return ErrTeamNotFound
	}
	if member.IsCaptain {
		return ErrCaptainCannotLeave
	}

	params := url.Values{}
	params.Set("user_id", supabase.Eq(userID))
	params.Set("team_id", supabase.Eq(member.TeamID))
	return s.db.Delete(ctx, "team_members", params)
}

// DeleteTeam disbands the team. Captain only.
func (s *TeamService) DeleteTeam(ctx context.Context, userID int64, teamID string) error {
	team, err := s.GetTeam(ctx, teamID)
	if err != nil {
		return err
	}
	if team.CaptainID != userID {
		return ErrNotCaptain
	}

	memberParams := url.Values{}
	memberParams.Set("team_id", supabase.Eq(teamID))
	if err := s.db.Delete(ctx, "team_members", memberParams); err != nil {
		return err
	}

	teamParams := url.Values{}
	teamParams.Set("id", supabase.Eq(teamID))
	if err := s.db.Delete(ctx, "teams", teamParams); err != nil {
		return err
	}

	s.log.Info("team disbanded", zap.String("team_id", teamID))
	return nil
}

// SelectQuiz assigns a quiz to the team. Captain only.
func (s *TeamService) SelectQuiz(ctx context.Context, userID int64, teamID string, quizID int64) error {
	team, err := s.GetTeam(ctx, teamID)
	if err != nil {
		return err
	}
	if team.CaptainID != userID {
		return ErrNotCaptain
	}

	params := url.Values{}
	params.Set("id", supabase.Eq(teamID))
	return s.db.Update(ctx, "teams", params, map[string]interface{}{"quiz_id": quizID}, nil)
}

// SetReady flips the team's readiness flag. Captain only. The in-memory
// readiness cache is the source of truth during a match, so a failed flag
// write must not abort the toggle; it is logged and the new value kept.
func (s *TeamService) SetReady(ctx context.Context, userID int64, teamID string, ready bool) (*models.TeamWithMembers, error) {
	team, err := s.GetTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if team.CaptainID != userID {
		return nil, ErrNotCaptain
	}

	params := url.Values{}
	params.Set("id", supabase.Eq(teamID))
	if err := s.db.Update(ctx, "teams", params, map[string]interface{}{"ready": ready}, nil); err != nil {
		s.log.Warn("ready flag update failed",
			zap.String("team_id", teamID),
			zap.Bool("ready", ready),
			zap.Error(err),
		)
	}
	team.Ready = ready
	return team, nil
}

// TeamsInMatch returns every team sharing the given match id.
func (s *TeamService) TeamsInMatch(ctx context.Context, matchID string) ([]models.Team, error) {
	params := url.Values{}
	params.Set("match_id", supabase.Eq(matchID))

	var teams []models.Team
	if err := s.db.Select(ctx, "teams", params, &teams); err != nil {
		return nil, err
	}
	return teams, nil
}

// ResolveMatchTeams resolves the participants of a match. A team that was
// never paired uses its own id as the match key, so a miss on match_id
// falls back to a lookup by team id.
func (s *TeamService) ResolveMatchTeams(ctx context.Context, matchID string) ([]models.Team, error) {
	teams, err := s.TeamsInMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if len(teams) > 0 {
		return teams, nil
	}

	params := url.Values{}
	params.Set("id", supabase.Eq(matchID))

	var team models.Team
	found, err := s.db.SelectOne(ctx, "teams", params, &team)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrTeamNotFound
	}
	return []models.Team{team}, nil
}
