// Package quiz contains the quiz data model and the per-play-through session state machine.
package quiz

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a catalog lookup matches no quiz.
	ErrNotFound = errors.New("quiz not found")
	// ErrOutOfRange is returned when an answer index is outside the current question's answers.
	ErrOutOfRange = errors.New("answer index out of range")
	// ErrIllegalState is returned when an operation is invoked on a finished session.
	ErrIllegalState = errors.New("illegal session state")
)

// Answer is a candidate response with display text and a correctness flag.
type Answer struct {
	Content   string `json:"content"`
	IsCorrect bool   `json:"value"`
}

// Question is a prompt with an ordered set of candidate answers.
type Question struct {
	Prompt  string   `json:"question"`
	Answers []Answer `json:"answers"`
}

// HasCorrectAnswer reports whether at least one answer is marked correct.
func (q Question) HasCorrectAnswer() bool {
	for _, a := range q.Answers {
		if a.IsCorrect {
			return true
		}
	}
	return false
}

// Quiz is a named ordered set of questions.
type Quiz struct {
	Title     string     `json:"title"`
	Questions []Question `json:"questions"`
}

// clone returns a deep copy of q.
func (q Quiz) clone() Quiz {
	out := Quiz{Title: q.Title, Questions: make([]Question, len(q.Questions))}
	for i, question := range q.Questions {
		answers := make([]Answer, len(question.Answers))
		copy(answers, question.Answers)
		out.Questions[i] = Question{Prompt: question.Prompt, Answers: answers}
	}
	return out
}

// Catalog is an immutable, ordered collection of quizzes.
type Catalog struct {
	quizzes []Quiz
}

// NewCatalog builds a catalog from a deep copy of the given quizzes.
func NewCatalog(quizzes []Quiz) *Catalog {
	c := &Catalog{quizzes: make([]Quiz, len(quizzes))}
	for i, q := range quizzes {
		c.quizzes[i] = q.clone()
	}
	return c
}

// Titles returns each quiz's title in catalog order.
func (c *Catalog) Titles() []string {
	titles := make([]string, 0, len(c.quizzes))
	for _, q := range c.quizzes {
		titles = append(titles, q.Title)
	}
	return titles
}

// FindByTitle returns a copy of the first quiz whose title equals title.
func (c *Catalog) FindByTitle(title string) (*Quiz, error) {
	for i := range c.quizzes {
		if c.quizzes[i].Title == title {
			q := c.quizzes[i].clone()
			return &q, nil
		}
	}
	return nil, fmt.Errorf("find %q: %w", title, ErrNotFound)
}

// Len returns the number of quizzes in the catalog.
func (c *Catalog) Len() int {
	return len(c.quizzes)
}
