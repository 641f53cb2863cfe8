package telegram

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Atubu88/quiz/internal/models"
)

// startQuiz launches a solo quiz in the chat: a short countdown, then one
// native quiz poll per question.
func (b *Bot) startQuiz(ctx context.Context, chatID, telegramID, quizID int64) {
	quiz, err := b.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		b.log.Error("quiz fetch failed", zap.Int64("quiz_id", quizID), zap.Error(err))
		b.client.SendMessage(ctx, chatID, "Не удалось загрузить викторину, попробуйте позже.", nil)
		return
	}
	if !quiz.IsActive {
		b.client.SendMessage(ctx, chatID, "Эта викторина пока закрыта 🔒", nil)
		return
	}
	if len(quiz.Questions) == 0 {
		b.client.SendMessage(ctx, chatID, "В этой викторине пока нет вопросов.", nil)
		return
	}

	b.countdown(ctx, chatID)

	var runID int64
	b.states.Update(chatID, func(st *UserState) {
		st.RunID++
		runID = st.RunID
		st.State = StateQuiz
		st.Quiz = quiz
		st.CurrentIndex = 0
		st.CorrectAnswers = 0
		st.StartedAt = time.Now()
		st.LastQuizID = quiz.ID
		st.LastQuizTitle = quiz.Title
	})

	b.sendNextQuestion(ctx, chatID)

	// Force-finish abandoned runs; a new run bumps RunID and disarms this.
	go func() {
		timer := time.NewTimer(b.cfg.QuizTimeLimit)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
		live := false
		b.states.View(chatID, func(st *UserState) {
			live = st.State == StateQuiz && st.RunID == runID
		})
		if live {
			b.client.SendMessage(ctx, chatID, "⏰ Время вышло! Подводим итоги.", nil)
			b.finishQuiz(context.WithoutCancel(ctx), chatID, telegramID)
		}
	}()
}

func (b *Bot) countdown(ctx context.Context, chatID int64) {
	msg, err := b.client.SendMessage(ctx, chatID, "Старт через 3…", nil)
	if err != nil {
		return
	}
	for _, step := range []string{"Старт через 2…", "Старт через 1…"} {
		time.Sleep(time.Second)
		b.client.EditMessageText(ctx, chatID, msg.MessageID, step, nil)
	}
	time.Sleep(time.Second)
	b.client.DeleteMessage(ctx, chatID, msg.MessageID)
}

// sendNextQuestion picks the next answerable question under the session
// lock and posts it as a quiz poll. Questions without a correct option are
// skipped.
func (b *Bot) sendNextQuestion(ctx context.Context, chatID int64) {
	var (
		question models.Question
		position int
		total    int
		have     bool
	)
	b.states.Update(chatID, func(st *UserState) {
		for st.Quiz != nil && st.CurrentIndex < len(st.Quiz.Questions) {
			q := st.Quiz.Questions[st.CurrentIndex]
			if _, ok := q.CorrectOption(); !ok {
				b.log.Warn("skipping question without correct option",
					zap.Int64("question_id", q.ID))
				st.CurrentIndex++
				continue
			}
			question = q
			position = st.CurrentIndex + 1
			total = len(st.Quiz.Questions)
			have = true
			return
		}
	})
	if !have {
		return
	}

	correctIndex := -1
	options := make([]string, 0, len(question.Options))
	for i, opt := range question.Options {
		options = append(options, opt.Text)
		if opt.IsCorrect && correctIndex < 0 {
			correctIndex = i
		}
	}

	title := fmt.Sprintf("%d/%d. %s", position, total, question.Text)
	msg, err := b.client.SendQuizPoll(ctx, chatID, title, options, correctIndex, question.Explanation)
	if err != nil {
		b.log.Error("sendPoll failed", zap.Error(err))
		b.client.SendMessage(ctx, chatID, "Не удалось отправить вопрос, попробуйте /reset.", nil)
		return
	}
	if msg.Poll != nil {
		pollID := msg.Poll.ID
		b.states.Update(chatID, func(st *UserState) { st.CurrentPollID = pollID })
	}
}

func (b *Bot) handlePollAnswer(ctx context.Context, answer *PollAnswer) {
	chatID, ok := b.states.ChatByPoll(answer.PollID)
	if !ok {
		return
	}

	valid := false
	finished := false
	b.states.Update(chatID, func(st *UserState) {
		if st.Quiz == nil || st.CurrentPollID != answer.PollID || st.CurrentIndex >= len(st.Quiz.Questions) {
			return
		}
		valid = true

		question := st.Quiz.Questions[st.CurrentIndex]
		correctIndex := -1
		for i, opt := range question.Options {
			if opt.IsCorrect {
				correctIndex = i
				break
			}
		}
		if len(answer.OptionIDs) == 1 && answer.OptionIDs[0] == correctIndex {
			st.CorrectAnswers++
		}
		st.CurrentIndex++
		st.CurrentPollID = ""
		finished = st.CurrentIndex >= len(st.Quiz.Questions)
	})
	if !valid {
		return
	}

	if finished {
		b.finishQuiz(ctx, chatID, answer.User.ID)
		return
	}
	b.sendNextQuestion(ctx, chatID)
}

// finishQuiz persists the result (first attempt only), shows the player's
// place and the top of the table, and offers the assistant. The session is
// detached under the lock so a racing poll answer cannot finish twice.
func (b *Bot) finishQuiz(ctx context.Context, chatID, telegramID int64) {
	var (
		quiz    *models.Quiz
		score   int
		elapsed int
	)
	b.states.Update(chatID, func(st *UserState) {
		if st.Quiz == nil {
			return
		}
		quiz = st.Quiz
		score = st.CorrectAnswers
		elapsed = int(time.Since(st.StartedAt).Seconds())
		st.State = StateIdle
		st.Quiz = nil
		st.CurrentPollID = ""
		st.RunID++
	})
	if quiz == nil {
		return
	}

	user, err := b.auth.GetOrCreateUser(ctx, &models.TelegramUser{ID: telegramID})
	if err != nil {
		b.log.Error("user lookup on finish failed", zap.Error(err))
		b.client.SendMessage(ctx, chatID, "Не удалось сохранить результат 😔", StartKeyboard())
		return
	}

	result := &models.Result{UserID: user.ID, QuizID: quiz.ID, Score: score, TimeTaken: elapsed}
	if err := b.results.SaveResult(ctx, result); err != nil {
		b.log.Error("result save failed", zap.Error(err))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "🏁 Викторина «%s» завершена!\n", quiz.Title)
	fmt.Fprintf(&sb, "Ваш результат: %d из %d за %s.\n", score, len(quiz.Questions), formatDuration(elapsed))

	if position, err := b.results.Position(ctx, quiz.ID, user.ID); err == nil && position > 0 {
		fmt.Fprintf(&sb, "Ваше место в таблице: %d.\n", position)
	}
	if board, err := b.results.Leaderboard(ctx, quiz.ID); err == nil && len(board) > 0 {
		sb.WriteString("\n🏆 Лучшие результаты:\n")
		sb.WriteString(renderLeaderboard(board, 10))
	}

	b.client.SendMessage(ctx, chatID, sb.String(), AfterQuizKeyboard())
}

func formatDuration(seconds int) string {
	if seconds < 60 {
		return fmt.Sprintf("%d сек", seconds)
	}
	return fmt.Sprintf("%d мин %d сек", seconds/60, seconds%60)
}

func medal(position int) string {
	switch position {
	case 1:
		return "🥇"
	case 2:
		return "🥈"
	case 3:
		return "🥉"
	}
	return fmt.Sprintf("%d.", position)
}
