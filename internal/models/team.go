package models

type Team struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Code      string `json:"code"`
	CaptainID int64  `json:"captain_id"`
	MatchID   string `json:"match_id,omitempty"`
	Ready     bool   `json:"ready"`
	QuizID    *int64 `json:"quiz_id,omitempty"`
	StartTime string `json:"start_time,omitempty"`
}

type TeamMember struct {
	ID        int64  `json:"id"`
	TeamID    string `json:"team_id"`
	UserID    int64  `json:"user_id"`
	IsCaptain bool   `json:"is_captain"`
	JoinedAt  string `json:"joined_at,omitempty"`
}

// TeamMemberInfo is a member row joined with the user it points at.
type TeamMemberInfo struct {
	ID         int64  `json:"id"`
	TelegramID int64  `json:"telegram_id,omitempty"`
	Username   string `json:"username,omitempty"`
	Name       string `json:"name"`
	IsCaptain  bool   `json:"is_captain"`
	JoinedAt   string `json:"joined_at,omitempty"`
}

type TeamWithMembers struct {
	Team
	Members []TeamMemberInfo `json:"members"`
}

type TeamResult struct {
	ID        int64    `json:"id,omitempty"`
	TeamID    string   `json:"team_id"`
	QuizID    int64    `json:"quiz_id"`
	Score     int      `json:"score"`
	TimeTaken *float64 `json:"time_taken,omitempty"`
}

// EffectiveMatchID falls back to the team id when no match is assigned,
// so a lone team still gets a usable match key.
func (t *Team) EffectiveMatchID() string {
	if t.MatchID != "" {
		return t.MatchID
	}
	return t.ID
}
