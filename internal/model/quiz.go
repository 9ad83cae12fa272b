package model

import "time"

// QuizQuestion is one entry of the question bank.
type QuizQuestion struct {
	ID          string   `db:"id" json:"id"`
	Category    string   `db:"category" json:"category"`
	Prompt      string   `db:"prompt" json:"prompt"`
	Options     []string `db:"options" json:"options"`
	AnswerIndex int      `db:"answer_index" json:"-"`
	Explanation string   `db:"explanation" json:"explanation,omitempty"`
}

// QuizProgress aggregates a user's gamification state.
type QuizProgress struct {
	UserID       string    `db:"user_id" json:"user_id"`
	Points       int       `db:"points" json:"points"`
	Level        int       `db:"level" json:"level"`
	QuizzesTaken int       `db:"quizzes_taken" json:"quizzes_taken"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// CategoryStat records per-category answer accuracy, the input to the
// adaptive-training recommendation.
type CategoryStat struct {
	UserID   string `db:"user_id" json:"user_id"`
	Category string `db:"category" json:"category"`
	Correct  int    `db:"correct" json:"correct"`
	Total    int    `db:"total" json:"total"`
}
