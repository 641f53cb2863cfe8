package telegram

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Atubu88/quiz/internal/models"
)

// startMatching opens a pair-matching board in the chat.
func (b *Bot) startMatching(ctx context.Context, chatID, quizID int64) {
	quiz, err := b.quizzes.GetMatchingQuiz(ctx, quizID)
	if err != nil {
		b.log.Error("matching quiz fetch failed", zap.Int64("quiz_id", quizID), zap.Error(err))
		b.client.SendMessage(ctx, chatID, "Не удалось загрузить игру, попробуйте позже.", nil)
		return
	}
	if len(quiz.Pairs) == 0 {
		b.client.SendMessage(ctx, chatID, "В этой игре пока нет пар.", nil)
		return
	}

	session := NewMatchingSession(quiz, chatID)

	text := fmt.Sprintf("🧩 «%s»\nСоберите пары: выберите ячейку слева и её продолжение справа.", quiz.Title)
	msg, err := b.client.SendMessage(ctx, chatID, text, MatchingKeyboard(session))
	if err != nil {
		b.log.Error("matching board send failed", zap.Error(err))
		return
	}
	session.MessageID = msg.MessageID

	b.states.Update(chatID, func(st *UserState) {
		st.Matching = session
	})
}

// handleMatchingTap mutates the board only under the session lock; two
// near-simultaneous taps are serialized, and a finished board is detached
// before any I/O so it cannot finalize twice.
func (b *Bot) handleMatchingTap(ctx context.Context, cb *CallbackQuery, key string) {
	chatID := cb.Message.Chat.ID

	var (
		active   bool
		matched  bool
		mistake  bool
		done     bool
		finished *MatchingSession
		markup   *InlineKeyboardMarkup
	)
	b.states.Update(chatID, func(st *UserState) {
		session := st.Matching
		if session == nil || cb.Message.MessageID != session.MessageID {
			return
		}
		active = true
		matched, mistake, done = session.Select(key)
		markup = MatchingKeyboard(session)
		if done {
			finished = session
			st.Matching = nil
		}
	})
	if !active {
		b.client.AnswerCallbackQuery(ctx, cb.ID, "Игра уже завершена, начните новую.", false)
		return
	}

	switch {
	case mistake:
		b.client.AnswerCallbackQuery(ctx, cb.ID, "Мимо! Попробуйте ещё раз ❌", false)
	case matched:
		b.client.AnswerCallbackQuery(ctx, cb.ID, "Есть пара! ✅", false)
	default:
		b.client.AnswerCallbackQuery(ctx, cb.ID, "", false)
	}

	if err := b.client.EditMessageReplyMarkup(ctx, chatID, cb.Message.MessageID, markup); err != nil {
		b.log.Debug("matching board update failed", zap.Error(err))
	}

	if finished != nil {
		b.finishMatching(ctx, chatID, cb.From.ID, finished)
	}
}

func (b *Bot) finishMatching(ctx context.Context, chatID, telegramID int64, session *MatchingSession) {
	elapsed := session.Elapsed()
	user, err := b.auth.GetOrCreateUser(ctx, &models.TelegramUser{ID: telegramID})
	if err != nil {
		b.log.Error("user lookup on matching finish failed", zap.Error(err))
	} else {
		result := &models.MatchingResult{
			UserID:     user.ID,
			QuizID:     session.QuizID,
			IsCorrect:  true,
			ErrorCount: session.ErrorCount,
			TimeTaken:  elapsed,
		}
		if err := b.results.SaveMatchingResult(ctx, result); err != nil {
			b.log.Error("matching result save failed", zap.Error(err))
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "🎉 Все пары собраны!\nОшибок: %d, время: %s.\n", session.ErrorCount, formatDuration(int(elapsed)))

	if board, err := b.results.MatchingLeaderboard(ctx, session.QuizID); err == nil && len(board) > 0 {
		sb.WriteString("\n🏆 Лучшие игроки:\n")
		for _, e := range board {
			if e.Position > 10 {
				break
			}
			fmt.Fprintf(&sb, "%s %s — ошибок: %d, время: %s\n",
				medal(e.Position), e.Name, e.ErrorCount, formatDuration(int(e.TimeTaken)))
		}
	}
	b.client.SendMessage(ctx, chatID, sb.String(), StartKeyboard())
}
