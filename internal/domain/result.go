package domain

import (
	"time"

	"github.com/ashureev/quizlabs/internal/quiz"
)

// Result is a finished play-through.
type Result struct {
	ID         int64     `json:"id"`
	UserID     string    `json:"user_id"`
	Username   string    `json:"username,omitempty"`
	QuizTitle  string    `json:"quiz_title"`
	Score      int       `json:"score"`
	Total      int       `json:"total"`
	Passed     bool      `json:"passed"`
	FinishedAt time.Time `json:"finished_at"`
}

// NewResult builds a result from a session summary.
func NewResult(userID string, s quiz.Summary, finishedAt time.Time) *Result {
	return &Result{
		UserID:     userID,
		QuizTitle:  s.Title,
		Score:      s.Score,
		Total:      s.Total,
		Passed:     s.Passed,
		FinishedAt: finishedAt,
	}
}
