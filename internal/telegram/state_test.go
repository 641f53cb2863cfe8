package telegram

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateManagerSerializesUpdates(t *testing.T) {
	m := NewStateManager()

	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Update(1, func(st *UserState) { st.CorrectAnswers++ })
		}()
	}
	wg.Wait()

	var got int
	m.View(1, func(st *UserState) { got = st.CorrectAnswers })
	assert.Equal(t, 64, got)
}

func TestStateManagerConcurrentBoardTaps(t *testing.T) {
	m := NewStateManager()
	session := NewMatchingSession(testMatchingQuiz(), 1)
	m.Update(1, func(st *UserState) { st.Matching = session })

	// Every tap goes through Update, the way the callback handler does it;
	// the matched-cells map must never see a concurrent write.
	keys := make([]string, 0, len(session.Items))
	for k := range session.Items {
		keys = append(keys, k)
	}

	var wg sync.WaitGroup
	for round := 0; round < 16; round++ {
		for _, key := range keys {
			wg.Add(1)
			go func(key string) {
				defer wg.Done()
				m.Update(1, func(st *UserState) {
					if st.Matching != nil {
						st.Matching.Select(key)
					}
				})
			}(key)
		}
	}
	wg.Wait()

	m.View(1, func(st *UserState) {
		require.NotNil(t, st.Matching)
		assert.Equal(t, 0, len(st.Matching.Matched)%2, "cells match in pairs")
	})
}

func TestStateManagerViewOnMissingChat(t *testing.T) {
	m := NewStateManager()
	var state State
	m.View(42, func(st *UserState) { state = st.State })
	assert.Equal(t, StateIdle, state)
}

func TestChatByPoll(t *testing.T) {
	m := NewStateManager()
	m.Update(7, func(st *UserState) { st.CurrentPollID = "poll-1" })

	chatID, ok := m.ChatByPoll("poll-1")
	require.True(t, ok)
	assert.Equal(t, int64(7), chatID)

	_, ok = m.ChatByPoll("poll-2")
	assert.False(t, ok)
}

func TestResetDropsSession(t *testing.T) {
	m := NewStateManager()
	m.Update(7, func(st *UserState) {
		st.State = StateQuiz
		st.CurrentPollID = "poll-1"
	})
	m.Reset(7)

	_, ok := m.ChatByPoll("poll-1")
	assert.False(t, ok)
	var state State
	m.View(7, func(st *UserState) { state = st.State })
	assert.Equal(t, StateIdle, state)
}
