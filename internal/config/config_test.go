package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("Expected default port 8080, got %q", cfg.Port)
	}
	if cfg.DB.Driver != "sqlite" {
		t.Errorf("Expected sqlite driver, got %q", cfg.DB.Driver)
	}
	if cfg.Game.FeedbackDelay != 2*time.Second {
		t.Errorf("Expected 2s feedback delay, got %v", cfg.Game.FeedbackDelay)
	}
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "*" {
		t.Errorf("Expected wildcard CORS origin, got %v", cfg.CORSOrigins)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("PORT", "9090")
	t.Setenv("FEEDBACK_DELAY", "500ms")
	t.Setenv("CORS_ORIGINS", "http://a.test,http://b.test")
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DB_DSN", "postgres://localhost/quiz")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != "9090" {
		t.Errorf("Expected port 9090, got %q", cfg.Port)
	}
	if cfg.Game.FeedbackDelay != 500*time.Millisecond {
		t.Errorf("Expected 500ms, got %v", cfg.Game.FeedbackDelay)
	}
	if len(cfg.CORSOrigins) != 2 {
		t.Errorf("Expected two origins, got %v", cfg.CORSOrigins)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	data := []byte("port: \"7070\"\ngame:\n  quiz_source: ./quizzes.yaml\n  feedback_delay: 1s\n")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_PATH", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != "7070" {
		t.Errorf("Expected port 7070, got %q", cfg.Port)
	}
	if cfg.Game.QuizSource != "./quizzes.yaml" {
		t.Errorf("Unexpected quiz source %q", cfg.Game.QuizSource)
	}
}

func TestValidate(t *testing.T) {
	base := Config{
		Port: "8080",
		DB:   DBConfig{Driver: "sqlite", Path: "x.db"},
		Game: GameConfig{FeedbackDelay: time.Second, TTL: time.Minute, SweepInterval: time.Minute},
		PlayLog: PlayLogConfig{
			Enabled: true, Path: "plays.ndjson", QueueSize: 10,
		},
		Retry: RetryConfig{DatabaseMaxRetries: 3},
	}
	if err := base.Validate(); err != nil {
		t.Fatalf("Expected valid config, got %v", err)
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"empty port", func(c *Config) { c.Port = "" }},
		{"unknown driver", func(c *Config) { c.DB.Driver = "mysql" }},
		{"postgres without dsn", func(c *Config) { c.DB.Driver = "postgres" }},
		{"negative delay", func(c *Config) { c.Game.FeedbackDelay = -time.Second }},
		{"zero ttl", func(c *Config) { c.Game.TTL = 0 }},
		{"empty play log path", func(c *Config) { c.PlayLog.Path = "" }},
		{"zero queue", func(c *Config) { c.PlayLog.QueueSize = 0 }},
		{"zero retries", func(c *Config) { c.Retry.DatabaseMaxRetries = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}

func TestIsDevelopment(t *testing.T) {
	if !(&Config{}).IsDevelopment() {
		t.Error("Expected empty frontend URL to be development")
	}
	if (&Config{FrontendURL: "https://quiz.example.com"}).IsDevelopment() {
		t.Error("Expected public frontend URL to be production")
	}
	if (&Config{AppEnv: "production", FrontendURL: "http://localhost:5173"}).IsDevelopment() {
		t.Error("Expected APP_ENV to win over URL detection")
	}
}

func TestSlogLevel(t *testing.T) {
	if got := (&Config{LogLevel: "DEBUG"}).SlogLevel(); got != slog.LevelDebug {
		t.Errorf("Expected debug, got %v", got)
	}
	if got := (&Config{}).SlogLevel(); got != slog.LevelInfo {
		t.Errorf("Expected info, got %v", got)
	}
}
