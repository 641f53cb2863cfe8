package telegram

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Atubu88/quiz/internal/models"
)

func testMatchingQuiz() *models.MatchingQuiz {
	return &models.MatchingQuiz{
		ID:    1,
		Title: "Столицы",
		Pairs: []models.MatchingPair{
			{Left: "Россия", Right: "Москва"},
			{Left: "Франция", Right: "Париж"},
			{Left: "Япония", Right: "Токио"},
		},
	}
}

// keyFor finds the board key showing the given label.
func keyFor(s *MatchingSession, label string) string {
	for k, v := range s.Items {
		if v == label {
			return k
		}
	}
	return ""
}

func TestMatchingSessionKeysAreOpaque(t *testing.T) {
	s := NewMatchingSession(testMatchingQuiz(), 1)
	require.Len(t, s.Items, 6)
	for k := range s.Items {
		assert.Len(t, k, 8)
		assert.NotContains(t, []string{"Россия", "Москва"}, k)
	}
}

func TestMatchingCorrectPair(t *testing.T) {
	s := NewMatchingSession(testMatchingQuiz(), 1)

	matched, mistake, done := s.Select(keyFor(s, "Россия"))
	assert.False(t, matched)
	assert.False(t, mistake)
	assert.False(t, done)

	matched, mistake, done = s.Select(keyFor(s, "Москва"))
	assert.True(t, matched)
	assert.False(t, mistake)
	assert.False(t, done)
	assert.Equal(t, 0, s.ErrorCount)
}

func TestMatchingWrongPairCountsError(t *testing.T) {
	s := NewMatchingSession(testMatchingQuiz(), 1)

	s.Select(keyFor(s, "Россия"))
	matched, mistake, _ := s.Select(keyFor(s, "Париж"))
	assert.False(t, matched)
	assert.True(t, mistake)
	assert.Equal(t, 1, s.ErrorCount)
	assert.Empty(t, s.Selected, "selection resets after a mistake")
}

func TestMatchingSameColumnMovesSelection(t *testing.T) {
	s := NewMatchingSession(testMatchingQuiz(), 1)

	s.Select(keyFor(s, "Россия"))
	_, mistake, _ := s.Select(keyFor(s, "Франция"))
	assert.False(t, mistake)
	assert.Equal(t, keyFor(s, "Франция"), s.Selected)
	assert.Equal(t, 0, s.ErrorCount)
}

func TestMatchingCompletesBoard(t *testing.T) {
	s := NewMatchingSession(testMatchingQuiz(), 1)

	pairs := [][2]string{
		{"Россия", "Москва"},
		{"Франция", "Париж"},
		{"Япония", "Токио"},
	}
	var done bool
	for _, p := range pairs {
		s.Select(keyFor(s, p[0]))
		_, _, done = s.Select(keyFor(s, p[1]))
	}
	assert.True(t, done)
	assert.True(t, s.Done())

	// A tap on a matched cell is a no-op.
	matched, mistake, _ := s.Select(keyFor(s, "Россия"))
	assert.False(t, matched)
	assert.False(t, mistake)
}
