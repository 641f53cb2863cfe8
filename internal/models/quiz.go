package models

type Quiz struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	IsActive    bool       `json:"is_active"`
	CategoryID  *int64     `json:"category_id,omitempty"`
	Questions   []Question `json:"questions,omitempty"`
}

type Question struct {
	ID          int64    `json:"id"`
	QuizID      int64    `json:"quiz_id,omitempty"`
	Text        string   `json:"text"`
	Explanation string   `json:"explanation,omitempty"`
	Options     []Option `json:"options,omitempty"`
}

type Option struct {
	ID         int64  `json:"id"`
	QuestionID int64  `json:"question_id,omitempty"`
	Text       string `json:"text"`
	IsCorrect  bool   `json:"is_correct"`
}

type Category struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	IsActive bool   `json:"is_active"`
}

// CorrectOption returns the first option flagged correct. Exactly one is
// assumed but never enforced at write time; zero correct options yields
// (nil, false) and the caller decides what to do about it.
func (q *Question) CorrectOption() (*Option, bool) {
	for i := range q.Options {
		if q.Options[i].IsCorrect {
			return &q.Options[i], true
		}
	}
	return nil, false
}
