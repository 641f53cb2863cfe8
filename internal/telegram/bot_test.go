package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Atubu88/quiz/internal/config"
	"github.com/Atubu88/quiz/internal/models"
	"github.com/Atubu88/quiz/internal/services"
)

// fakeAPI records what the bot sent to the Bot API.
type fakeAPI struct {
	mu    sync.Mutex
	texts []string
}

func (f *fakeAPI) lastText() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.texts) == 0 {
		return ""
	}
	return f.texts[len(f.texts)-1]
}

func newTestBot(t *testing.T, chat *services.ChatService) (*Bot, *fakeAPI) {
	t.Helper()
	api := &fakeAPI{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]interface{}
		json.NewDecoder(r.Body).Decode(&payload)
		if path.Base(r.URL.Path) == "sendMessage" {
			api.mu.Lock()
			api.texts = append(api.texts, payload["text"].(string))
			api.mu.Unlock()
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"ok":true,"result":{"message_id":1}}`)
	}))
	t.Cleanup(srv.Close)

	client := &Client{
		token:      "test-token",
		baseURL:    srv.URL + "/bot",
		httpClient: srv.Client(),
		log:        zap.NewNop(),
	}
	return &Bot{
		client: client,
		cfg:    &config.Config{},
		states: NewStateManager(),
		chat:   chat,
		log:    zap.NewNop(),
	}, api
}

func newTestChat(t *testing.T, answer string, hits *int32) *services.ChatService {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"choices":[{"message":{"role":"assistant","content":%q}}]}`, answer)
	}))
	t.Cleanup(srv.Close)
	return services.NewChatService("test-key", srv.URL, "mistral-tiny", zap.NewNop())
}

func (b *Bot) stateOf(chatID int64) State {
	var state State
	b.states.View(chatID, func(st *UserState) { state = st.State })
	return state
}

func userMessage(chatID int64, text string) *Message {
	return &Message{From: &TgUser{ID: chatID}, Chat: Chat{ID: chatID}, Text: text}
}

func askGPTCallback(chatID int64) *CallbackQuery {
	return &CallbackQuery{
		ID:      "cb-1",
		From:    TgUser{ID: chatID},
		Message: &Message{MessageID: 10, Chat: Chat{ID: chatID}},
		Data:    "ask_gpt",
	}
}

func TestAssistantDialogStopsAtLimit(t *testing.T) {
	ctx := context.Background()
	var hits int32
	bot, api := newTestBot(t, newTestChat(t, "Ответ", &hits))

	bot.handleCallback(ctx, askGPTCallback(7))
	assert.Equal(t, StateGPTNumber, bot.stateOf(7))

	bot.handleMessage(ctx, userMessage(7, "2"))
	require.Equal(t, StateGPT, bot.stateOf(7))

	bot.handleMessage(ctx, userMessage(7, "Почему небо голубое?"))
	assert.Equal(t, StateGPT, bot.stateOf(7))
	assert.Contains(t, api.lastText(), "Осталось вопросов: 1")

	bot.handleMessage(ctx, userMessage(7, "А трава зелёная?"))
	assert.Equal(t, StateIdle, bot.stateOf(7))
	assert.Contains(t, api.lastText(), "Лимит вопросов исчерпан")
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))

	// Past the limit the bot falls back to the menu prompt.
	bot.handleMessage(ctx, userMessage(7, "Ещё один?"))
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
	assert.Contains(t, api.lastText(), "Выберите действие")
}

func TestAssistantDialogKeepsHistory(t *testing.T) {
	ctx := context.Background()
	var hits int32
	bot, _ := newTestBot(t, newTestChat(t, "Ответ", &hits))

	bot.handleCallback(ctx, askGPTCallback(7))
	bot.handleMessage(ctx, userMessage(7, "3"))
	bot.handleMessage(ctx, userMessage(7, "Первый вопрос"))

	bot.states.View(7, func(st *UserState) {
		require.Len(t, st.GPTHistory, 2)
		assert.Contains(t, st.GPTHistory[0], "Первый вопрос")
		assert.Contains(t, st.GPTHistory[1], "Ответ")
		assert.Equal(t, 1, st.GPTCount)
	})
}

func TestAssistantNumberStepValidatesInput(t *testing.T) {
	ctx := context.Background()
	var hits int32
	bot, api := newTestBot(t, newTestChat(t, "Ответ", &hits))

	bot.handleCallback(ctx, askGPTCallback(7))
	for _, bad := range []string{"abc", "0", "9"} {
		bot.handleMessage(ctx, userMessage(7, bad))
		assert.Equal(t, StateGPTNumber, bot.stateOf(7))
		assert.Contains(t, api.lastText(), "Введите число")
	}
	assert.Equal(t, int32(0), atomic.LoadInt32(&hits))
}

func TestStopCommandEndsAssistantDialog(t *testing.T) {
	ctx := context.Background()
	var hits int32
	bot, api := newTestBot(t, newTestChat(t, "Ответ", &hits))

	bot.handleCallback(ctx, askGPTCallback(7))
	bot.handleMessage(ctx, userMessage(7, "3"))
	bot.handleMessage(ctx, userMessage(7, "/stop"))

	assert.Equal(t, StateIdle, bot.stateOf(7))
	assert.Contains(t, api.lastText(), "Диалог завершён")
}

func TestConcurrentBoardTapsDoNotCorruptSession(t *testing.T) {
	ctx := context.Background()
	var hits int32
	bot, _ := newTestBot(t, newTestChat(t, "Ответ", &hits))

	quiz := &models.MatchingQuiz{ID: 1, Title: "Столицы"}
	for i := 0; i < 8; i++ {
		quiz.Pairs = append(quiz.Pairs, models.MatchingPair{
			Left:  fmt.Sprintf("L%d", i),
			Right: fmt.Sprintf("R%d", i),
		})
	}
	session := NewMatchingSession(quiz, 7)
	session.MessageID = 10
	bot.states.Update(7, func(st *UserState) { st.Matching = session })

	// One pair stays untouched so the board cannot complete mid-test.
	var keys []string
	for _, lk := range session.LeftOrder[:7] {
		keys = append(keys, lk, session.Partner[lk])
	}

	var wg sync.WaitGroup
	for round := 0; round < 8; round++ {
		for i, key := range keys {
			wg.Add(1)
			go func(i int, key string) {
				defer wg.Done()
				cb := &CallbackQuery{
					ID:      fmt.Sprintf("cb-%d", i),
					From:    TgUser{ID: 7},
					Message: &Message{MessageID: 10, Chat: Chat{ID: 7}},
				}
				bot.handleMatchingTap(ctx, cb, key)
			}(i, key)
		}
	}
	wg.Wait()

	bot.states.View(7, func(st *UserState) {
		require.NotNil(t, st.Matching)
		assert.Equal(t, 0, len(st.Matching.Matched)%2, "cells match in pairs")
		assert.False(t, st.Matching.Done())
	})
}

func TestMatchingTapOnForeignMessageIsIgnored(t *testing.T) {
	ctx := context.Background()
	var hits int32
	bot, _ := newTestBot(t, newTestChat(t, "Ответ", &hits))

	session := NewMatchingSession(testMatchingQuiz(), 7)
	session.MessageID = 10
	bot.states.Update(7, func(st *UserState) { st.Matching = session })

	cb := &CallbackQuery{
		ID:      "cb-1",
		From:    TgUser{ID: 7},
		Message: &Message{MessageID: 99, Chat: Chat{ID: 7}},
	}
	bot.handleMatchingTap(ctx, cb, keyFor(session, "Россия"))

	assert.Empty(t, session.Selected)
	assert.Empty(t, session.Matched)
}
