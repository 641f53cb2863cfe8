package telegram

import (
	"fmt"

	"github.com/Atubu88/quiz/internal/models"
)

func StartKeyboard() *ReplyKeyboardMarkup {
	return &ReplyKeyboardMarkup{
		Keyboard: [][]KeyboardButton{
			{{Text: "📋 Список викторин"}},
			{{Text: "🏆 Турнирная таблица"}, {Text: "🌟 Общий рейтинг"}},
		},
		ResizeKeyboard: true,
	}
}

func CategoriesKeyboard(categories []models.Category) *InlineKeyboardMarkup {
	markup := &InlineKeyboardMarkup{}
	for _, cat := range categories {
		markup.InlineKeyboard = append(markup.InlineKeyboard, []InlineKeyboardButton{
			{Text: cat.Name, CallbackData: fmt.Sprintf("category_%d", cat.ID)},
		})
	}
	return markup
}

func QuizzesKeyboard(quizzes []models.Quiz) *InlineKeyboardMarkup {
	markup := &InlineKeyboardMarkup{}
	for _, quiz := range quizzes {
		title := quiz.Title
		data := fmt.Sprintf("quiz_%d", quiz.ID)
		if !quiz.IsActive {
			title = "🔒 " + title
			data = "quiz_locked"
		}
		markup.InlineKeyboard = append(markup.InlineKeyboard, []InlineKeyboardButton{
			{Text: title, CallbackData: data},
		})
	}
	markup.InlineKeyboard = append(markup.InlineKeyboard, []InlineKeyboardButton{
		{Text: "⬅️ Назад", CallbackData: "return_to_categories"},
	})
	return markup
}

func AfterQuizKeyboard() *InlineKeyboardMarkup {
	return &InlineKeyboardMarkup{
		InlineKeyboard: [][]InlineKeyboardButton{
			{{Text: "🤖 Спросить у ИИ", CallbackData: "ask_gpt"}},
			{{Text: "📋 К списку викторин", CallbackData: "return_to_quizzes"}},
		},
	}
}

func GPTExitKeyboard() *InlineKeyboardMarkup {
	return &InlineKeyboardMarkup{
		InlineKeyboard: [][]InlineKeyboardButton{
			{{Text: "❌ Завершить диалог", CallbackData: "stop_gpt"}},
		},
	}
}

// MatchingKeyboard renders the pair-matching board: the left column on the
// left, the shuffled right column on the right, matched cells replaced by a
// check mark.
func MatchingKeyboard(session *MatchingSession) *InlineKeyboardMarkup {
	markup := &InlineKeyboardMarkup{}
	rows := len(session.LeftOrder)
	if len(session.RightOrder) > rows {
		rows = len(session.RightOrder)
	}
	for i := 0; i < rows; i++ {
		var row []InlineKeyboardButton
		row = append(row, matchingButton(session, session.LeftOrder, i, "match_left_"))
		row = append(row, matchingButton(session, session.RightOrder, i, "match_right_"))
		markup.InlineKeyboard = append(markup.InlineKeyboard, row)
	}
	return markup
}

func matchingButton(session *MatchingSession, order []string, i int, prefix string) InlineKeyboardButton {
	if i >= len(order) {
		return InlineKeyboardButton{Text: " ", CallbackData: "noop"}
	}
	key := order[i]
	if session.Matched[key] {
		return InlineKeyboardButton{Text: "✅", CallbackData: "already_matched"}
	}
	text := session.Items[key]
	if session.Selected == key {
		text = "▶️ " + text
	}
	return InlineKeyboardButton{Text: text, CallbackData: prefix + key}
}

func AdminKeyboard() *InlineKeyboardMarkup {
	return &InlineKeyboardMarkup{
		InlineKeyboard: [][]InlineKeyboardButton{
			{{Text: "📢 Опубликовать викторину в канал", CallbackData: "publish_quiz"}},
			{{Text: "♻️ Сбросить турнир", CallbackData: "reset_tournament"}},
		},
	}
}

func ResetConfirmKeyboard() *InlineKeyboardMarkup {
	return &InlineKeyboardMarkup{
		InlineKeyboard: [][]InlineKeyboardButton{
			{
				{Text: "Да, сбросить", CallbackData: "reset_confirm"},
				{Text: "Отмена", CallbackData: "reset_cancel"},
			},
		},
	}
}

// ChannelPostKeyboard deep-links channel readers into the bot.
func ChannelPostKeyboard(botUsername string, quizID int64) *InlineKeyboardMarkup {
	return &InlineKeyboardMarkup{
		InlineKeyboard: [][]InlineKeyboardButton{
			{{Text: "🎯 Пройти викторину", URL: fmt.Sprintf("https://t.me/%s?start=quiz_%d", botUsername, quizID)}},
		},
	}
}
