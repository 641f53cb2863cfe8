package models

// Result is a solo (bot chat) quiz result.
type Result struct {
	ID        int64 `json:"id,omitempty"`
	UserID    int64 `json:"user_id"`
	QuizID    int64 `json:"quiz_id"`
	Score     int   `json:"score"`
	TimeTaken int   `json:"time_taken"`
}
