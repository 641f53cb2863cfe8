package models

type MatchingQuiz struct {
	ID           int64          `json:"id"`
	Title        string         `json:"title"`
	Difficulty   string         `json:"difficulty,omitempty"`
	TelegraphURL string         `json:"telegraph_url,omitempty"`
	Pairs        []MatchingPair `json:"pairs"`
}

type MatchingPair struct {
	Left  string `json:"left"`
	Right string `json:"right"`
}

type MatchingResult struct {
	UserID     int64   `json:"user_id"`
	QuizID     int64   `json:"quiz_id"`
	IsCorrect  bool    `json:"is_correct"`
	ErrorCount int     `json:"error_count"`
	TimeTaken  float64 `json:"time_taken"`
}
