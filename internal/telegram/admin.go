package telegram

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

func (b *Bot) handleAdmin(ctx context.Context, msg *Message) {
	if !b.cfg.IsAdmin(msg.From.ID) {
		b.client.SendMessage(ctx, msg.Chat.ID, "Эта команда доступна только администраторам.", nil)
		return
	}
	b.client.SendMessage(ctx, msg.Chat.ID, "Панель администратора:", AdminKeyboard())
}

func (b *Bot) handleResetRequest(ctx context.Context, cb *CallbackQuery) {
	if !b.cfg.IsAdmin(cb.From.ID) {
		b.client.AnswerCallbackQuery(ctx, cb.ID, "Недостаточно прав.", true)
		return
	}
	b.client.AnswerCallbackQuery(ctx, cb.ID, "", false)
	b.client.SendMessage(ctx, cb.Message.Chat.ID,
		"Сбросить все результаты турнира? Это действие необратимо.", ResetConfirmKeyboard())
}

func (b *Bot) handleResetConfirm(ctx context.Context, cb *CallbackQuery) {
	if !b.cfg.IsAdmin(cb.From.ID) {
		b.client.AnswerCallbackQuery(ctx, cb.ID, "Недостаточно прав.", true)
		return
	}
	if err := b.results.ResetTournament(ctx); err != nil {
		b.log.Error("tournament reset failed", zap.Error(err))
		b.client.AnswerCallbackQuery(ctx, cb.ID, "Не удалось сбросить турнир.", true)
		return
	}
	b.client.AnswerCallbackQuery(ctx, cb.ID, "Турнир сброшен ♻️", true)
	b.client.DeleteMessage(ctx, cb.Message.Chat.ID, cb.Message.MessageID)
}

// handlePublish posts every active quiz to the configured channel with a
// deep link back into the bot.
func (b *Bot) handlePublish(ctx context.Context, cb *CallbackQuery) {
	if !b.cfg.IsAdmin(cb.From.ID) {
		b.client.AnswerCallbackQuery(ctx, cb.ID, "Недостаточно прав.", true)
		return
	}
	if b.cfg.ChannelID == 0 || b.cfg.BotUsername == "" {
		b.client.AnswerCallbackQuery(ctx, cb.ID, "Канал или имя бота не настроены.", true)
		return
	}

	quizzes, err := b.quizzes.ActiveQuizzes(ctx)
	if err != nil {
		b.log.Error("active quizzes fetch failed", zap.Error(err))
		b.client.AnswerCallbackQuery(ctx, cb.ID, "Не удалось загрузить викторины.", true)
		return
	}

	published := 0
	for _, quiz := range quizzes {
		text := fmt.Sprintf("🎯 Новая викторина: «%s»\n%s", quiz.Title, quiz.Description)
		if _, err := b.client.SendMessage(ctx, b.cfg.ChannelID, text,
			ChannelPostKeyboard(b.cfg.BotUsername, quiz.ID)); err != nil {
			b.log.Warn("channel post failed", zap.Int64("quiz_id", quiz.ID), zap.Error(err))
			continue
		}
		published++
	}
	b.client.AnswerCallbackQuery(ctx, cb.ID, fmt.Sprintf("Опубликовано: %d", published), true)
}
