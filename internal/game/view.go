package game

import "github.com/ashureev/quizlabs/internal/quiz"

// QuestionView is the presentation form of a question. Correctness flags are omitted.
type QuestionView struct {
	Number  int      `json:"number"`
	Prompt  string   `json:"prompt"`
	Answers []string `json:"answers"`
}

// View is a snapshot of a game for a presentation layer.
type View struct {
	Title    string        `json:"title"`
	Position int           `json:"position"`
	Total    int           `json:"total"`
	Score    int           `json:"score"`
	Finished bool          `json:"finished"`
	Question *QuestionView `json:"question,omitempty"`
	Summary  *quiz.Summary `json:"summary,omitempty"`
}

// Outcome is the result of submitting one answer.
type Outcome struct {
	Correct  bool          `json:"correct"`
	Score    int           `json:"score"`
	Position int           `json:"position"`
	Total    int           `json:"total"`
	Finished bool          `json:"finished"`
	Recorded bool          `json:"recorded"`
	Summary  *quiz.Summary `json:"summary,omitempty"`
}

func viewOf(s *quiz.Session) View {
	v := View{
		Title:    s.Quiz().Title,
		Position: s.Position(),
		Total:    s.TotalQuestions(),
		Score:    s.FinalScore(),
		Finished: s.IsFinished(),
	}
	if v.Finished {
		summary := s.Summary()
		v.Summary = &summary
		return v
	}

	q, err := s.CurrentQuestion()
	if err != nil {
		return v
	}
	answers := make([]string, len(q.Answers))
	for i, a := range q.Answers {
		answers[i] = a.Content
	}
	v.Question = &QuestionView{Number: s.Position() + 1, Prompt: q.Prompt, Answers: answers}
	return v
}
