package telegram

import (
	"sync"
	"time"

	"github.com/Atubu88/quiz/internal/models"
)

type State int

const (
	StateIdle State = iota
	StateQuiz
	StateGPTNumber
	StateGPT
)

// UserState is one chat's bot-side session: the quiz being played through
// native polls, an open assistant dialog, or a matching board. All access
// goes through the StateManager lock; handlers never touch a session
// outside Update/View.
type UserState struct {
	State State

	Quiz           *models.Quiz
	CurrentIndex   int
	CorrectAnswers int
	StartedAt      time.Time
	CurrentPollID  string

	// RunID invalidates the auto-finish timer of an abandoned run.
	RunID int64

	// LastQuizID and LastQuizTitle survive the run for the leaderboard
	// button and the assistant prompt.
	LastQuizID    int64
	LastQuizTitle string

	// Assistant dialog: how many questions were granted and asked so
	// far, plus the running exchange for prompt context.
	GPTLimit   int
	GPTCount   int
	GPTHistory []string

	Matching *MatchingSession
}

// StateManager keeps per-chat bot sessions in memory. Sessions are mutated
// only inside Update so concurrent updates from the per-update goroutines
// stay serialized.
type StateManager struct {
	mu     sync.RWMutex
	states map[int64]*UserState
}

func NewStateManager() *StateManager {
	return &StateManager{states: make(map[int64]*UserState)}
}

// Update runs fn under the write lock, creating the session on first touch.
func (m *StateManager) Update(chatID int64, fn func(*UserState)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.states[chatID]
	if !ok {
		st = &UserState{}
		m.states[chatID] = st
	}
	fn(st)
}

// View runs fn under the read lock; fn must not mutate the session. A chat
// without a session sees an empty one.
func (m *StateManager) View(chatID int64, fn func(*UserState)) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.states[chatID]
	if !ok {
		st = &UserState{}
	}
	fn(st)
}

// Reset drops the chat's session entirely.
func (m *StateManager) Reset(chatID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, chatID)
}

// ChatByPoll locates the chat currently answering the given poll.
func (m *StateManager) ChatByPoll(pollID string) (int64, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for chatID, st := range m.states {
		if st.CurrentPollID == pollID {
			return chatID, true
		}
	}
	return 0, false
}
