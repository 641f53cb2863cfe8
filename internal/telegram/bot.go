package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/Atubu88/quiz/internal/config"
	"github.com/Atubu88/quiz/internal/models"
	"github.com/Atubu88/quiz/internal/services"
)

const gptMaxQuestions = 5

// Bot runs the chat side of the game: solo quizzes through native polls,
// pair-matching boards, leaderboards and the assistant dialog.
type Bot struct {
	client  *Client
	cfg     *config.Config
	states  *StateManager
	auth    *services.AuthService
	quizzes *services.QuizService
	results *services.ResultService
	chat    *services.ChatService
	log     *zap.Logger
}

func NewBot(
	client *Client,
	cfg *config.Config,
	auth *services.AuthService,
	quizzes *services.QuizService,
	results *services.ResultService,
	chat *services.ChatService,
	log *zap.Logger,
) *Bot {
	return &Bot{
		client:  client,
		cfg:     cfg,
		states:  NewStateManager(),
		auth:    auth,
		quizzes: quizzes,
		results: results,
		chat:    chat,
		log:     log,
	}
}

// Run long-polls for updates until the context is cancelled. Each update is
// handled on its own goroutine so a slow quiz does not block the queue.
func (b *Bot) Run(ctx context.Context) error {
	if err := b.client.DeleteWebhook(ctx); err != nil {
		return fmt.Errorf("delete webhook: %w", err)
	}
	b.log.Info("bot polling started")

	var offset int64
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		updates, err := b.client.GetUpdates(ctx, offset, b.cfg.PollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			b.log.Warn("getUpdates failed", zap.Error(err))
			continue
		}
		for _, upd := range updates {
			offset = upd.UpdateID + 1
			go b.handleUpdate(ctx, upd)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, upd Update) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("update handler panicked", zap.Any("panic", r))
			if chatID := updateChatID(upd); chatID != 0 {
				b.client.SendMessage(ctx, chatID, "Что-то пошло не так, попробуйте ещё раз 🙏", nil)
			}
		}
	}()

	switch {
	case upd.Message != nil:
		b.handleMessage(ctx, upd.Message)
	case upd.CallbackQuery != nil:
		b.handleCallback(ctx, upd.CallbackQuery)
	case upd.PollAnswer != nil:
		b.handlePollAnswer(ctx, upd.PollAnswer)
	}
}

func updateChatID(upd Update) int64 {
	if upd.Message != nil {
		return upd.Message.Chat.ID
	}
	if upd.CallbackQuery != nil && upd.CallbackQuery.Message != nil {
		return upd.CallbackQuery.Message.Chat.ID
	}
	return 0
}

func (b *Bot) handleMessage(ctx context.Context, msg *Message) {
	if msg.From == nil || msg.From.IsBot {
		return
	}
	chatID := msg.Chat.ID
	text := strings.TrimSpace(msg.Text)

	switch {
	case strings.HasPrefix(text, "/start"):
		b.handleStart(ctx, msg)
	case text == "/reset":
		b.states.Reset(chatID)
		b.client.SendMessage(ctx, chatID, "Сессия сброшена.", StartKeyboard())
	case text == "/stop":
		b.stopGPT(ctx, chatID)
	case text == "/admin":
		b.handleAdmin(ctx, msg)
	case text == "📋 Список викторин":
		b.sendCategories(ctx, chatID)
	case text == "🏆 Турнирная таблица":
		b.sendLastLeaderboard(ctx, chatID)
	case text == "🌟 Общий рейтинг":
		b.sendGlobalRating(ctx, chatID)
	default:
		var state State
		b.states.View(chatID, func(st *UserState) { state = st.State })
		switch state {
		case StateGPTNumber:
			b.handleGPTNumber(ctx, chatID, text)
		case StateGPT:
			b.handleGPTQuestion(ctx, chatID, text)
		default:
			b.client.SendMessage(ctx, chatID, "Выберите действие на клавиатуре ниже 👇", StartKeyboard())
		}
	}
}

// handleStart greets the user and follows deep links of the form
// quiz_<id> and matching_quiz_<id>.
func (b *Bot) handleStart(ctx context.Context, msg *Message) {
	chatID := msg.Chat.ID

	tgUser := &models.TelegramUser{
		ID:        msg.From.ID,
		Username:  msg.From.Username,
		FirstName: msg.From.FirstName,
		LastName:  msg.From.LastName,
	}
	if _, err := b.auth.GetOrCreateUser(ctx, tgUser); err != nil {
		b.log.Warn("user registration failed", zap.Int64("telegram_id", msg.From.ID), zap.Error(err))
	}

	payload := strings.TrimSpace(strings.TrimPrefix(msg.Text, "/start"))
	switch {
	case strings.HasPrefix(payload, "quiz_"):
		if quizID, err := strconv.ParseInt(strings.TrimPrefix(payload, "quiz_"), 10, 64); err == nil {
			b.startQuiz(ctx, chatID, msg.From.ID, quizID)
			return
		}
	case strings.HasPrefix(payload, "matching_quiz_"):
		if quizID, err := strconv.ParseInt(strings.TrimPrefix(payload, "matching_quiz_"), 10, 64); err == nil {
			b.startMatching(ctx, chatID, quizID)
			return
		}
	}

	greeting := fmt.Sprintf("Привет, %s! 👋\nГотов проверить свои знания?", msg.From.FirstName)
	b.client.SendMessage(ctx, chatID, greeting, StartKeyboard())
}

func (b *Bot) handleCallback(ctx context.Context, cb *CallbackQuery) {
	if cb.Message == nil {
		b.client.AnswerCallbackQuery(ctx, cb.ID, "", false)
		return
	}
	chatID := cb.Message.Chat.ID
	data := cb.Data

	switch {
	case strings.HasPrefix(data, "category_"):
		b.client.AnswerCallbackQuery(ctx, cb.ID, "", false)
		if categoryID, err := strconv.ParseInt(strings.TrimPrefix(data, "category_"), 10, 64); err == nil {
			b.sendQuizList(ctx, chatID, categoryID)
		}
	case data == "quiz_locked":
		b.client.AnswerCallbackQuery(ctx, cb.ID, "Эта викторина пока закрыта 🔒", true)
	case strings.HasPrefix(data, "quiz_"):
		b.client.AnswerCallbackQuery(ctx, cb.ID, "", false)
		if quizID, err := strconv.ParseInt(strings.TrimPrefix(data, "quiz_"), 10, 64); err == nil {
			b.startQuiz(ctx, chatID, cb.From.ID, quizID)
		}
	case data == "return_to_categories", data == "return_to_quizzes":
		b.client.AnswerCallbackQuery(ctx, cb.ID, "", false)
		b.sendCategories(ctx, chatID)
	case data == "ask_gpt":
		b.client.AnswerCallbackQuery(ctx, cb.ID, "", false)
		if !b.chat.Enabled() {
			b.client.SendMessage(ctx, chatID, "Ассистент не настроен.", StartKeyboard())
			return
		}
		b.states.Update(chatID, func(st *UserState) {
			st.State = StateGPTNumber
			st.GPTLimit = 0
			st.GPTCount = 0
			st.GPTHistory = nil
		})
		b.client.SendMessage(ctx, chatID,
			fmt.Sprintf("Сколько вопросов хотите задать? (1-%d)", gptMaxQuestions), GPTExitKeyboard())
	case data == "stop_gpt":
		b.client.AnswerCallbackQuery(ctx, cb.ID, "", false)
		b.stopGPT(ctx, chatID)
	case strings.HasPrefix(data, "match_left_"), strings.HasPrefix(data, "match_right_"):
		key := strings.TrimPrefix(strings.TrimPrefix(data, "match_left_"), "match_right_")
		b.handleMatchingTap(ctx, cb, key)
	case data == "already_matched":
		b.client.AnswerCallbackQuery(ctx, cb.ID, "Эта пара уже собрана ✅", false)
	case data == "noop":
		b.client.AnswerCallbackQuery(ctx, cb.ID, "", false)
	case data == "reset_tournament":
		b.handleResetRequest(ctx, cb)
	case data == "reset_confirm":
		b.handleResetConfirm(ctx, cb)
	case data == "reset_cancel":
		b.client.AnswerCallbackQuery(ctx, cb.ID, "Отменено", false)
		b.client.DeleteMessage(ctx, chatID, cb.Message.MessageID)
	case data == "publish_quiz":
		b.handlePublish(ctx, cb)
	default:
		b.client.AnswerCallbackQuery(ctx, cb.ID, "", false)
	}
}

func (b *Bot) sendCategories(ctx context.Context, chatID int64) {
	categories, err := b.quizzes.Categories(ctx)
	if err != nil {
		b.log.Error("categories fetch failed", zap.Error(err))
		b.client.SendMessage(ctx, chatID, "Не удалось загрузить категории, попробуйте позже.", nil)
		return
	}
	if len(categories) == 0 {
		b.client.SendMessage(ctx, chatID, "Категорий пока нет.", nil)
		return
	}
	b.client.SendMessage(ctx, chatID, "Выберите категорию:", CategoriesKeyboard(categories))
}

func (b *Bot) sendQuizList(ctx context.Context, chatID, categoryID int64) {
	quizzes, err := b.quizzes.QuizzesByCategory(ctx, categoryID)
	if err != nil {
		b.log.Error("quiz list fetch failed", zap.Error(err))
		b.client.SendMessage(ctx, chatID, "Не удалось загрузить викторины, попробуйте позже.", nil)
		return
	}
	if len(quizzes) == 0 {
		b.client.SendMessage(ctx, chatID, "В этой категории пока пусто.", nil)
		return
	}
	b.client.SendMessage(ctx, chatID, "Выберите викторину:", QuizzesKeyboard(quizzes))
}

// stopGPT ends the assistant dialog if one is open.
func (b *Bot) stopGPT(ctx context.Context, chatID int64) {
	active := false
	b.states.Update(chatID, func(st *UserState) {
		if st.State == StateGPTNumber || st.State == StateGPT {
			active = true
			st.State = StateIdle
			st.GPTLimit = 0
			st.GPTCount = 0
			st.GPTHistory = nil
		}
	})
	if active {
		b.client.SendMessage(ctx, chatID, "Диалог завершён.", StartKeyboard())
	} else {
		b.client.SendMessage(ctx, chatID, "Сейчас нет открытого диалога.", StartKeyboard())
	}
}

// handleGPTNumber reads how many questions the user wants before the
// dialog opens.
func (b *Bot) handleGPTNumber(ctx context.Context, chatID int64, text string) {
	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || n < 1 || n > gptMaxQuestions {
		b.client.SendMessage(ctx, chatID,
			fmt.Sprintf("Введите число от 1 до %d.", gptMaxQuestions), GPTExitKeyboard())
		return
	}
	b.states.Update(chatID, func(st *UserState) {
		st.State = StateGPT
		st.GPTLimit = n
		st.GPTCount = 0
		st.GPTHistory = nil
	})
	b.client.SendMessage(ctx, chatID,
		fmt.Sprintf("Хорошо, %d вопрос(а/ов). Задайте первый, /stop — выйти.", n), GPTExitKeyboard())
}

func (b *Bot) handleGPTQuestion(ctx context.Context, chatID int64, question string) {
	if !b.chat.Enabled() {
		b.client.SendMessage(ctx, chatID, "Ассистент не настроен.", StartKeyboard())
		return
	}

	var (
		title   string
		history []string
	)
	b.states.View(chatID, func(st *UserState) {
		title = st.LastQuizTitle
		history = append(history, st.GPTHistory...)
	})

	var sb strings.Builder
	if title != "" {
		fmt.Fprintf(&sb, "Викторина: %s.\n", title)
	}
	for _, line := range history {
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	fmt.Fprintf(&sb, "Вопрос игрока: %s\nОтветь кратко и по делу.", question)

	answer, err := b.chat.SafeAsk(ctx, sb.String())
	if err != nil {
		b.client.SendMessage(ctx, chatID, err.Error(), GPTExitKeyboard())
		return
	}

	exhausted := false
	remaining := 0
	b.states.Update(chatID, func(st *UserState) {
		if st.State != StateGPT {
			return
		}
		st.GPTHistory = append(st.GPTHistory,
			"Вопрос: "+question,
			"Ответ: "+answer,
		)
		st.GPTCount++
		remaining = st.GPTLimit - st.GPTCount
		if remaining <= 0 {
			exhausted = true
			st.State = StateIdle
			st.GPTLimit = 0
			st.GPTCount = 0
			st.GPTHistory = nil
		}
	})

	if exhausted {
		b.client.SendMessage(ctx, chatID, answer+"\n\nЛимит вопросов исчерпан, диалог завершён.", StartKeyboard())
		return
	}
	b.client.SendMessage(ctx, chatID,
		fmt.Sprintf("%s\n\nОсталось вопросов: %d.", answer, remaining), GPTExitKeyboard())
}
