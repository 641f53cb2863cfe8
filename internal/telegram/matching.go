package telegram

import (
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/Atubu88/quiz/internal/models"
)

// MatchingSession is one player's in-flight pair-matching board. Buttons
// carry short opaque keys instead of the answer text itself.
type MatchingSession struct {
	QuizID     int64
	Items      map[string]string // key -> visible label
	Partner    map[string]string // key -> its pair on the other side
	LeftOrder  []string
	RightOrder []string
	Matched    map[string]bool
	Selected   string
	isLeft     map[string]bool

	ErrorCount int
	StartedAt  time.Time
	ChatID     int64
	MessageID  int64
}

func shortKey() string {
	return uuid.NewString()[:8]
}

// NewMatchingSession builds a board from the quiz pairs with both columns
// independently shuffled.
func NewMatchingSession(quiz *models.MatchingQuiz, chatID int64) *MatchingSession {
	s := &MatchingSession{
		QuizID:    quiz.ID,
		Items:     make(map[string]string),
		Partner:   make(map[string]string),
		Matched:   make(map[string]bool),
		isLeft:    make(map[string]bool),
		StartedAt: time.Now(),
		ChatID:    chatID,
	}
	for _, pair := range quiz.Pairs {
		lk, rk := shortKey(), shortKey()
		s.Items[lk] = pair.Left
		s.Items[rk] = pair.Right
		s.Partner[lk] = rk
		s.Partner[rk] = lk
		s.isLeft[lk] = true
		s.LeftOrder = append(s.LeftOrder, lk)
		s.RightOrder = append(s.RightOrder, rk)
	}
	rand.Shuffle(len(s.LeftOrder), func(i, j int) {
		s.LeftOrder[i], s.LeftOrder[j] = s.LeftOrder[j], s.LeftOrder[i]
	})
	rand.Shuffle(len(s.RightOrder), func(i, j int) {
		s.RightOrder[i], s.RightOrder[j] = s.RightOrder[j], s.RightOrder[i]
	})
	return s
}

// Select processes a tap on the board. Picking two cells from the same
// column just moves the selection; a cross-column pick either matches the
// pair or counts a mistake.
func (s *MatchingSession) Select(key string) (matched, mistake, done bool) {
	if s.Matched[key] {
		return false, false, s.Done()
	}
	if s.Selected == "" || s.isLeft[s.Selected] == s.isLeft[key] {
		s.Selected = key
		return false, false, false
	}

	if s.Partner[s.Selected] == key {
		s.Matched[key] = true
		s.Matched[s.Selected] = true
		s.Selected = ""
		return true, false, s.Done()
	}

	s.ErrorCount++
	s.Selected = ""
	return false, true, false
}

// Done reports whether every cell is matched.
func (s *MatchingSession) Done() bool {
	return len(s.Matched) == len(s.Items) && len(s.Items) > 0
}

// Elapsed is the play time in seconds.
func (s *MatchingSession) Elapsed() float64 {
	return time.Since(s.StartedAt).Seconds()
}
