package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/sajadtroy/lachu/common/environment"
	"github.com/sajadtroy/lachu/internal/lachu/dispatch"
	"github.com/sajadtroy/lachu/internal/lachu/llm"
	"github.com/sajadtroy/lachu/internal/lachu/matrix"
	"github.com/sajadtroy/lachu/internal/lachu/memory"
)

// Config holds application configuration.
type Config struct {
	DatabasePath string
	Matrix       matrix.Config

	GroqAPIKey  string
	GroqBaseURL string
	Model       string
	Temperature float64
	LLMTimeout  time.Duration

	// HistoryEnabled switches from the no-op history to SQLite.
	HistoryEnabled    bool
	HistoryLimit      int
	ContextTokenLimit int

	// PersonaFile is an optional YAML persona replacing the built-in one.
	PersonaFile   string
	CommandPrefix string
	// IgnoreSenders are other bots whose messages are never answered.
	IgnoreSenders []string
	// StartupNotice posts an online notice to each configured room.
	StartupNotice bool

	// HTTPAddr enables the health/status server when non-empty.
	HTTPAddr string
}

// LoadConfig reads the configuration from the environment. Every missing
// required variable is reported in one error.
func LoadConfig() (*Config, error) {
	required, err := environment.RequiredStrings(
		"MATRIX_HOMESERVER",
		"MATRIX_USER_ID",
		"MATRIX_ACCESS_TOKEN",
		"GROQ_API_KEY",
		"DATABASE_PATH",
	)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		DatabasePath: required[4],
		Matrix: matrix.Config{
			Homeserver:  required[0],
			UserID:      required[1],
			AccessToken: required[2],
			Rooms:       environment.StringSliceOr("MATRIX_ROOMS", nil),
		},
		GroqAPIKey:        required[3],
		GroqBaseURL:       environment.StringOr("GROQ_BASE_URL", llm.DefaultBaseURL),
		Model:             environment.StringOr("GROQ_MODEL", llm.DefaultModel),
		Temperature:       environment.FloatOr("GROQ_TEMPERATURE", llm.DefaultTemperature),
		LLMTimeout:        environment.DurationOr("LLM_TIMEOUT", 60*time.Second),
		HistoryEnabled:    environment.BoolOr("CHAT_HISTORY_ENABLED", false),
		HistoryLimit:      environment.IntOr("CHAT_HISTORY_LIMIT", memory.DefaultHistoryLimit),
		ContextTokenLimit: environment.IntOr("CONTEXT_TOKEN_LIMIT", memory.DefaultMaxTokens),
		PersonaFile:       environment.StringOr("PERSONA_FILE", ""),
		CommandPrefix:     environment.StringOr("COMMAND_PREFIX", dispatch.DefaultCommand),
		IgnoreSenders:     environment.StringSliceOr("IGNORE_SENDERS", nil),
		StartupNotice:     environment.BoolOr("STARTUP_NOTICE", false),
		HTTPAddr:          environment.StringOr("HTTP_ADDR", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values the environment helpers cannot.
func (c *Config) Validate() error {
	if !strings.HasPrefix(c.Matrix.UserID, "@") || !strings.Contains(c.Matrix.UserID, ":") {
		return fmt.Errorf("MATRIX_USER_ID must look like @name:server, got %q", c.Matrix.UserID)
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("GROQ_TEMPERATURE must be between 0 and 2, got %v", c.Temperature)
	}
	if strings.ContainsAny(strings.TrimSpace(c.CommandPrefix), " \t\n") || strings.TrimSpace(c.CommandPrefix) == "" {
		return fmt.Errorf("COMMAND_PREFIX must be a single word, got %q", c.CommandPrefix)
	}
	return nil
}
