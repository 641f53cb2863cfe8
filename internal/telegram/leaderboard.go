package telegram

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Atubu88/quiz/internal/services"
)

func renderLeaderboard(entries []services.LeaderboardEntry, limit int) string {
	var sb strings.Builder
	for _, e := range entries {
		if e.Position > limit {
			break
		}
		fmt.Fprintf(&sb, "%s %s — %d (%s)\n", medal(e.Position), e.Name, e.Score, formatDuration(e.TimeTaken))
	}
	return sb.String()
}

// sendLastLeaderboard shows the table of the quiz the user played last.
func (b *Bot) sendLastLeaderboard(ctx context.Context, chatID int64) {
	var (
		quizID int64
		title  string
	)
	b.states.View(chatID, func(st *UserState) {
		quizID = st.LastQuizID
		title = st.LastQuizTitle
	})
	if quizID == 0 {
		b.client.SendMessage(ctx, chatID, "Сначала пройдите викторину, тогда появится таблица 🙂", StartKeyboard())
		return
	}

	board, err := b.results.Leaderboard(ctx, quizID)
	if err != nil {
		b.log.Error("leaderboard fetch failed", zap.Error(err))
		b.client.SendMessage(ctx, chatID, "Не удалось загрузить таблицу, попробуйте позже.", nil)
		return
	}
	if len(board) == 0 {
		b.client.SendMessage(ctx, chatID, "В таблице пока пусто.", nil)
		return
	}

	text := fmt.Sprintf("🏆 Турнирная таблица «%s»:\n%s", title, renderLeaderboard(board, 10))
	b.client.SendMessage(ctx, chatID, text, StartKeyboard())
}

// sendGlobalRating shows the summed score across all quizzes.
func (b *Bot) sendGlobalRating(ctx context.Context, chatID int64) {
	rating, err := b.results.GlobalRating(ctx)
	if err != nil {
		b.log.Error("global rating fetch failed", zap.Error(err))
		b.client.SendMessage(ctx, chatID, "Не удалось загрузить рейтинг, попробуйте позже.", nil)
		return
	}
	if len(rating) == 0 {
		b.client.SendMessage(ctx, chatID, "Рейтинг пока пуст.", nil)
		return
	}

	var sb strings.Builder
	sb.WriteString("🌟 Общий рейтинг:\n")
	for i, e := range rating {
		if i >= 10 {
			break
		}
		fmt.Fprintf(&sb, "%s %s — %d очков (викторин: %d)\n", medal(i+1), e.Name, e.Score, e.Played)
	}
	b.client.SendMessage(ctx, chatID, sb.String(), StartKeyboard())
}
