// Package config provides application configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all application configuration.
type Config struct {
	Port        string     `yaml:"port" env:"PORT" env-default:"8080"`
	GRPCPort    string     `yaml:"grpc_port" env:"GRPC_PORT"`
	FrontendURL string     `yaml:"frontend_url" env:"FRONTEND_URL"`
	AppEnv      string     `yaml:"app_env" env:"APP_ENV"`
	LogLevel    string     `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	CORSOrigins []string   `yaml:"cors_origins" env:"CORS_ORIGINS" env-separator:"," env-default:"*"`
	DB          DBConfig   `yaml:"db"`
	Game        GameConfig `yaml:"game"`
	Identity    IdentityConfig
	Admin       AdminConfig   `yaml:"admin"`
	PlayLog     PlayLogConfig `yaml:"play_log"`
	Retry       RetryConfig   `yaml:"retry"`
	Telegram    TelegramConfig
}

// DBConfig selects the results store.
type DBConfig struct {
	Driver string `yaml:"driver" env:"DB_DRIVER" env-default:"sqlite"`
	DSN    string `yaml:"dsn" env:"DB_DSN"`
	Path   string `yaml:"path" env:"DB_PATH" env-default:"./data/quizlabs.db"`
}

// GameConfig controls quiz play.
type GameConfig struct {
	// QuizSource is a file path or http(s) URL; empty means the bundled catalog.
	QuizSource    string        `yaml:"quiz_source" env:"QUIZ_SOURCE"`
	FeedbackDelay time.Duration `yaml:"feedback_delay" env:"FEEDBACK_DELAY" env-default:"2s"`
	TTL           time.Duration `yaml:"ttl" env:"GAME_TTL" env-default:"30m"`
	SweepInterval time.Duration `yaml:"sweep_interval" env:"GAME_SWEEP_INTERVAL" env-default:"1m"`
}

// IdentityConfig controls the anonymous player cookie.
type IdentityConfig struct {
	Secret string `env:"IDENTITY_SECRET"`
}

// AdminConfig guards the catalog reload endpoint.
type AdminConfig struct {
	User     string `yaml:"user" env:"ADMIN_USER" env-default:"admin"`
	PassHash string `yaml:"pass_hash" env:"ADMIN_PASS_HASH"` // bcrypt
}

// PlayLogConfig controls the NDJSON answer log.
type PlayLogConfig struct {
	Enabled   bool   `yaml:"enabled" env:"PLAY_LOG_ENABLED" env-default:"true"`
	Path      string `yaml:"path" env:"PLAY_LOG_PATH" env-default:"./data/logs/plays.ndjson"`
	QueueSize int    `yaml:"queue_size" env:"PLAY_LOG_QUEUE_SIZE" env-default:"1000"`
}

// RetryConfig controls retries of conflicting database writes.
type RetryConfig struct {
	DatabaseMaxRetries     int           `yaml:"database_max_retries" env:"DB_MAX_RETRIES" env-default:"3"`
	DatabaseRetryBaseDelay time.Duration `yaml:"database_retry_base_delay" env:"DB_RETRY_BASE_DELAY" env-default:"50ms"`
}

// TelegramConfig configures the optional bot front end.
type TelegramConfig struct {
	Token string `env:"TELEGRAM_BOT_TOKEN"`
}

// Load reads configuration from CONFIG_PATH (if set) and environment variables.
func Load() (*Config, error) {
	var cfg Config

	if path, ok := os.LookupEnv("CONFIG_PATH"); ok && path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	switch c.DB.Driver {
	case "sqlite":
		if c.DB.Path == "" && c.DB.DSN == "" {
			return fmt.Errorf("DB_PATH cannot be empty")
		}
	case "postgres":
		if c.DB.DSN == "" {
			return fmt.Errorf("DB_DSN is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DB.Driver)
	}
	if c.Game.FeedbackDelay < 0 {
		return fmt.Errorf("FEEDBACK_DELAY must be >= 0")
	}
	if c.Game.TTL <= 0 {
		return fmt.Errorf("GAME_TTL must be > 0")
	}
	if c.Game.SweepInterval <= 0 {
		return fmt.Errorf("GAME_SWEEP_INTERVAL must be > 0")
	}
	if c.PlayLog.Enabled && c.PlayLog.Path == "" {
		return fmt.Errorf("PLAY_LOG_PATH cannot be empty")
	}
	if c.PlayLog.QueueSize <= 0 {
		return fmt.Errorf("PLAY_LOG_QUEUE_SIZE must be > 0")
	}
	if c.Retry.DatabaseMaxRetries <= 0 {
		return fmt.Errorf("DB_MAX_RETRIES must be > 0")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	if c.AppEnv != "" {
		return c.AppEnv == "development"
	}
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

// SlogLevel maps LOG_LEVEL to a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
