package feed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const animalsJSON = `{
  "quizzes": [
    {"title": "Animals", "questions": [
      {"question": "Is a whale a mammal?", "answers": [{"content": "yes", "value": true}, {"content": "no", "value": false}]}
    ]},
    {"title": "Capitals", "questions": [
      {"question": "Capital of France?", "answers": [{"content": "Paris", "value": true}, {"content": "Lyon", "value": false}]}
    ]}
  ]
}`

const animalsYAML = `
quizzes:
  - title: Animals
    questions:
      - question: Is a whale a mammal?
        answers:
          - content: "yes"
            value: true
          - content: "no"
            value: false
`

func TestParse_JSON(t *testing.T) {
	c, err := Parse([]byte(animalsJSON), FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, []string{"Animals", "Capitals"}, c.Titles())

	q, err := c.FindByTitle("Capitals")
	require.NoError(t, err)
	require.Len(t, q.Questions, 1)
	assert.Equal(t, "Capital of France?", q.Questions[0].Prompt)
	assert.True(t, q.Questions[0].Answers[0].IsCorrect)
	assert.Equal(t, "Lyon", q.Questions[0].Answers[1].Content)
}

func TestParse_YAML(t *testing.T) {
	c, err := Parse([]byte(animalsYAML), FormatYAML)
	require.NoError(t, err)
	assert.Equal(t, []string{"Animals"}, c.Titles())

	q, err := c.FindByTitle("Animals")
	require.NoError(t, err)
	assert.Equal(t, "yes", q.Questions[0].Answers[0].Content)
	assert.True(t, q.Questions[0].Answers[0].IsCorrect)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"no quizzes", `{"quizzes": []}`},
		{"empty title", `{"quizzes": [{"title": " ", "questions": [{"question": "q", "answers": [{"content": "a", "value": true}]}]}]}`},
		{"duplicate title", `{"quizzes": [
			{"title": "A", "questions": [{"question": "q", "answers": [{"content": "a", "value": true}]}]},
			{"title": "A", "questions": [{"question": "q", "answers": [{"content": "a", "value": true}]}]}]}`},
		{"no questions", `{"quizzes": [{"title": "A", "questions": []}]}`},
		{"empty prompt", `{"quizzes": [{"title": "A", "questions": [{"question": "", "answers": [{"content": "a", "value": true}]}]}]}`},
		{"no answers", `{"quizzes": [{"title": "A", "questions": [{"question": "q", "answers": []}]}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data), FormatJSON)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidFeed), "got %v", err)
		})
	}
}

func TestParse_MalformedJSON(t *testing.T) {
	_, err := Parse([]byte(`{"quizzes": [`), FormatJSON)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrInvalidFeed))

	_, err = Parse([]byte(`{"quizes": []}`), FormatJSON)
	require.Error(t, err, "unknown fields are rejected")
}

func TestParse_AllowsQuestionWithoutCorrectAnswer(t *testing.T) {
	c, err := Parse([]byte(`{"quizzes": [{"title": "Trick", "questions": [{"question": "q", "answers": [{"content": "a", "value": false}]}]}]}`), FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Len())
}

func TestDefault(t *testing.T) {
	c := Default()
	assert.Equal(t, []string{"Animals", "Capitals"}, c.Titles())
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "quizzes.json")
	yamlPath := filepath.Join(dir, "quizzes.yml")
	require.NoError(t, os.WriteFile(jsonPath, []byte(animalsJSON), 0o600))
	require.NoError(t, os.WriteFile(yamlPath, []byte(animalsYAML), 0o600))

	c, err := Load(context.Background(), jsonPath)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())

	c, err = Load(context.Background(), yamlPath)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Len())

	_, err = Load(context.Background(), filepath.Join(dir, "missing.json"))
	require.Error(t, err)
}

func TestLoad_EmptySourceUsesDefault(t *testing.T) {
	c, err := Load(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, Default().Titles(), c.Titles())
}

func TestLoad_HTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/quiz.json":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(animalsJSON))
		case "/quiz.yaml":
			w.Header().Set("Content-Type", "text/plain")
			_, _ = w.Write([]byte(animalsYAML))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c, err := Load(context.Background(), srv.URL+"/quiz.json")
	require.NoError(t, err)
	assert.Equal(t, []string{"Animals", "Capitals"}, c.Titles())

	c, err = Load(context.Background(), srv.URL+"/quiz.yaml")
	require.NoError(t, err)
	assert.Equal(t, []string{"Animals"}, c.Titles())

	_, err = Load(context.Background(), srv.URL+"/missing")
	require.Error(t, err)
}

func TestFormatFromContentType(t *testing.T) {
	assert.Equal(t, FormatYAML, FormatFromContentType("application/yaml; charset=utf-8"))
	assert.Equal(t, FormatYAML, FormatFromContentType("application/x-yaml"))
	assert.Equal(t, FormatJSON, FormatFromContentType("application/json"))
	assert.Equal(t, FormatJSON, FormatFromContentType(""))
}
