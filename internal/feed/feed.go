// Package feed loads and validates the raw quiz feed and turns it into a quiz.Catalog.
package feed

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ashureev/quizlabs/internal/quiz"
	"gopkg.in/yaml.v3"
)

// ErrInvalidFeed is returned when the feed does not match the expected shape.
var ErrInvalidFeed = errors.New("invalid quiz feed")

// Format identifies the encoding of a feed document.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

const maxFeedSize = 8 << 20

//go:embed default_quizzes.json
var defaultFeed []byte

type rawAnswer struct {
	Content string `json:"content" yaml:"content"`
	Value   bool   `json:"value" yaml:"value"`
}

type rawQuestion struct {
	Question string      `json:"question" yaml:"question"`
	Answers  []rawAnswer `json:"answers" yaml:"answers"`
}

type rawQuiz struct {
	Title     string        `json:"title" yaml:"title"`
	Questions []rawQuestion `json:"questions" yaml:"questions"`
}

type rawFeed struct {
	Quizzes []rawQuiz `json:"quizzes" yaml:"quizzes"`
}

// Default returns the catalog bundled with the binary.
func Default() *quiz.Catalog {
	c, err := Parse(defaultFeed, FormatJSON)
	if err != nil {
		panic("feed: bundled catalog is invalid: " + err.Error())
	}
	return c
}

// Parse decodes and validates a feed document.
func Parse(data []byte, format Format) (*quiz.Catalog, error) {
	var raw rawFeed
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("decode yaml feed: %w", err)
		}
	case FormatJSON, "":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("decode json feed: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported feed format %q", format)
	}

	quizzes, err := raw.toQuizzes()
	if err != nil {
		return nil, err
	}
	return quiz.NewCatalog(quizzes), nil
}

// Load reads a feed from an http(s) URL or a file path. An empty source yields the
// bundled catalog.
func Load(ctx context.Context, source string) (*quiz.Catalog, error) {
	if source == "" {
		return Default(), nil
	}
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return fetch(ctx, http.DefaultClient, source)
	}

	data, err := os.ReadFile(source)
	if err != nil {
		return nil, fmt.Errorf("read feed file: %w", err)
	}
	return Parse(data, FormatFromPath(source))
}

// FormatFromPath picks a format from the file extension.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// FormatFromContentType picks a format from a MIME type, falling back to JSON.
func FormatFromContentType(contentType string) Format {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return FormatJSON
	}
	if strings.Contains(mediaType, "yaml") {
		return FormatYAML
	}
	return FormatJSON
}

func fetch(ctx context.Context, client *http.Client, url string) (*quiz.Catalog, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build feed request: %w", err)
	}
	req.Header.Set("Accept", "application/json, application/yaml")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			slog.Debug("feed: failed to close response body", "error", closeErr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch feed: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedSize))
	if err != nil {
		return nil, fmt.Errorf("read feed body: %w", err)
	}

	format := FormatFromContentType(resp.Header.Get("Content-Type"))
	if FormatFromPath(req.URL.Path) == FormatYAML {
		format = FormatYAML
	}
	return Parse(data, format)
}

func (f rawFeed) toQuizzes() ([]quiz.Quiz, error) {
	if len(f.Quizzes) == 0 {
		return nil, fmt.Errorf("quizzes: empty: %w", ErrInvalidFeed)
	}

	seen := make(map[string]struct{}, len(f.Quizzes))
	quizzes := make([]quiz.Quiz, 0, len(f.Quizzes))
	for i, rq := range f.Quizzes {
		loc := fmt.Sprintf("quizzes[%d]", i)
		title := strings.TrimSpace(rq.Title)
		if title == "" {
			return nil, fmt.Errorf("%s: empty title: %w", loc, ErrInvalidFeed)
		}
		if _, dup := seen[title]; dup {
			return nil, fmt.Errorf("%s: duplicate title %q: %w", loc, title, ErrInvalidFeed)
		}
		seen[title] = struct{}{}

		if len(rq.Questions) == 0 {
			return nil, fmt.Errorf("%s: no questions: %w", loc, ErrInvalidFeed)
		}

		q := quiz.Quiz{Title: title, Questions: make([]quiz.Question, 0, len(rq.Questions))}
		for j, rqq := range rq.Questions {
			qloc := fmt.Sprintf("%s.questions[%d]", loc, j)
			if strings.TrimSpace(rqq.Question) == "" {
				return nil, fmt.Errorf("%s: empty prompt: %w", qloc, ErrInvalidFeed)
			}
			if len(rqq.Answers) == 0 {
				return nil, fmt.Errorf("%s: no answers: %w", qloc, ErrInvalidFeed)
			}

			question := quiz.Question{Prompt: rqq.Question, Answers: make([]quiz.Answer, 0, len(rqq.Answers))}
			for _, ra := range rqq.Answers {
				question.Answers = append(question.Answers, quiz.Answer{Content: ra.Content, IsCorrect: ra.Value})
			}
			if !question.HasCorrectAnswer() {
				slog.Warn("Question has no correct answer", "location", qloc, "quiz", title)
			}
			q.Questions = append(q.Questions, question)
		}
		quizzes = append(quizzes, q)
	}
	return quizzes, nil
}
