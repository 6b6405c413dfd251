package app_test

import (
	"strings"
	"testing"
	"time"

	"github.com/sajadtroy/lachu/internal/lachu/app"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("MATRIX_HOMESERVER", "https://matrix.example.org")
	t.Setenv("MATRIX_USER_ID", "@lachu:example.org")
	t.Setenv("MATRIX_ACCESS_TOKEN", "syt_token")
	t.Setenv("GROQ_API_KEY", "gsk_key")
	t.Setenv("DATABASE_PATH", "/tmp/lachu.db")
}

func TestLoadConfig_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := app.LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Model != "qwen-qwq-32b" || cfg.Temperature != 0.7 {
		t.Errorf("model/temperature = %q/%v", cfg.Model, cfg.Temperature)
	}
	if cfg.GroqBaseURL != "https://api.groq.com/openai/v1" {
		t.Errorf("base URL = %q", cfg.GroqBaseURL)
	}
	if cfg.HistoryEnabled || cfg.HistoryLimit != 3 || cfg.ContextTokenLimit != 1000 {
		t.Errorf("history/context defaults = %v/%d/%d", cfg.HistoryEnabled, cfg.HistoryLimit, cfg.ContextTokenLimit)
	}
	if cfg.CommandPrefix != "/chat" || cfg.LLMTimeout != 60*time.Second {
		t.Errorf("prefix/timeout = %q/%v", cfg.CommandPrefix, cfg.LLMTimeout)
	}
	if cfg.HTTPAddr != "" || cfg.StartupNotice || len(cfg.Matrix.Rooms) != 0 {
		t.Errorf("optional features should default off: %+v", cfg)
	}
}

func TestLoadConfig_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("MATRIX_ROOMS", "!a:example.org, !b:example.org")
	t.Setenv("GROQ_MODEL", "llama-3.3-70b-versatile")
	t.Setenv("GROQ_TEMPERATURE", "0.2")
	t.Setenv("CHAT_HISTORY_ENABLED", "true")
	t.Setenv("CHAT_HISTORY_LIMIT", "6")
	t.Setenv("CONTEXT_TOKEN_LIMIT", "2000")
	t.Setenv("COMMAND_PREFIX", "/ask")
	t.Setenv("IGNORE_SENDERS", "@bot1:example.org,@bot2:example.org")
	t.Setenv("HTTP_ADDR", ":8080")

	cfg, err := app.LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if len(cfg.Matrix.Rooms) != 2 || cfg.Matrix.Rooms[1] != "!b:example.org" {
		t.Errorf("rooms = %v", cfg.Matrix.Rooms)
	}
	if cfg.Model != "llama-3.3-70b-versatile" || cfg.Temperature != 0.2 {
		t.Errorf("model/temperature = %q/%v", cfg.Model, cfg.Temperature)
	}
	if !cfg.HistoryEnabled || cfg.HistoryLimit != 6 || cfg.ContextTokenLimit != 2000 {
		t.Errorf("history/context = %v/%d/%d", cfg.HistoryEnabled, cfg.HistoryLimit, cfg.ContextTokenLimit)
	}
	if cfg.CommandPrefix != "/ask" || len(cfg.IgnoreSenders) != 2 || cfg.HTTPAddr != ":8080" {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoadConfig_MissingRequiredListsAll(t *testing.T) {
	t.Setenv("MATRIX_HOMESERVER", "https://matrix.example.org")
	t.Setenv("MATRIX_USER_ID", "")
	t.Setenv("MATRIX_ACCESS_TOKEN", "")
	t.Setenv("GROQ_API_KEY", "")
	t.Setenv("DATABASE_PATH", "")

	_, err := app.LoadConfig()
	if err == nil {
		t.Fatal("expected error")
	}
	for _, name := range []string{"MATRIX_USER_ID", "MATRIX_ACCESS_TOKEN", "GROQ_API_KEY", "DATABASE_PATH"} {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("error %q does not mention %s", err, name)
		}
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := map[string]string{
		"MATRIX_USER_ID":   "lachu",
		"GROQ_TEMPERATURE": "3.5",
		"COMMAND_PREFIX":   "/chat now",
	}
	for name, value := range tests {
		t.Run(name, func(t *testing.T) {
			setRequired(t)
			t.Setenv(name, value)
			if _, err := app.LoadConfig(); err == nil {
				t.Errorf("expected error for %s=%q", name, value)
			}
		})
	}
}
