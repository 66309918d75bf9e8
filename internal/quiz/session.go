package quiz

import "fmt"

// Summary is the outcome of a session.
type Summary struct {
	Title  string `json:"title"`
	Score  int    `json:"score"`
	Total  int    `json:"total"`
	Passed bool   `json:"passed"`
}

// Session tracks one traversal through a single quiz.
// A Session is not safe for concurrent use.
type Session struct {
	quiz     *Quiz
	score    int
	position int
}

// NewSession starts a session at the first question of q.
func NewSession(q *Quiz) *Session {
	return &Session{quiz: q}
}

// Quiz returns the quiz being played.
func (s *Session) Quiz() *Quiz {
	return s.quiz
}

// CurrentQuestion returns the question at the current position.
func (s *Session) CurrentQuestion() (Question, error) {
	if s.IsFinished() {
		return Question{}, fmt.Errorf("current question: session finished: %w", ErrIllegalState)
	}
	return s.quiz.Questions[s.position], nil
}

// SubmitAnswer commits the answer at index for the current question and advances
// to the next one. It reports whether the chosen answer was correct. On error the
// session is left untouched.
func (s *Session) SubmitAnswer(index int) (bool, error) {
	if s.IsFinished() {
		return false, fmt.Errorf("submit answer: session finished: %w", ErrIllegalState)
	}
	answers := s.quiz.Questions[s.position].Answers
	if index < 0 || index >= len(answers) {
		return false, fmt.Errorf("submit answer %d of %d: %w", index, len(answers), ErrOutOfRange)
	}

	correct := answers[index].IsCorrect
	if correct {
		s.score++
	}
	s.position++
	return correct, nil
}

// IsFinished reports whether every question has been answered.
func (s *Session) IsFinished() bool {
	return s.position >= s.TotalQuestions()
}

// TotalQuestions returns the number of questions in the quiz.
func (s *Session) TotalQuestions() int {
	return len(s.quiz.Questions)
}

// Position returns the index of the current question.
func (s *Session) Position() int {
	return s.position
}

// FinalScore returns the number of correct answers so far.
func (s *Session) FinalScore() int {
	return s.score
}

// DidPass reports whether strictly more than half of the questions were answered
// correctly. A quiz without questions never passes.
func (s *Session) DidPass() bool {
	total := s.TotalQuestions()
	if total == 0 {
		return false
	}
	return 2*s.score > total
}

// Summary returns the session outcome so far.
func (s *Session) Summary() Summary {
	return Summary{
		Title:  s.quiz.Title,
		Score:  s.score,
		Total:  s.TotalQuestions(),
		Passed: s.DidPass(),
	}
}
