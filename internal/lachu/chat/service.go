// Package chat runs one conversational turn: recall history, build the
// context, ask the model, and record the exchange.
package chat

import (
	"context"
	"log/slog"

	"github.com/sajadtroy/lachu/internal/lachu/llm"
	"github.com/sajadtroy/lachu/internal/lachu/memory"
)

// Replier produces the model's text for a context. It never fails; errors
// surface as fallback text. *llm.Completer satisfies it.
type Replier interface {
	Reply(ctx context.Context, msgs []memory.Message) string
}

// Request is one user turn.
type Request struct {
	ServerID string
	UserID   string
	Text     string
}

// Service is safe for concurrent use if its History is.
type Service struct {
	history      memory.History
	builder      *memory.ContextBuilder
	replier      Replier
	historyLimit int
	logger       *slog.Logger
}

// Config wires a Service.
type Config struct {
	History      memory.History
	Builder      *memory.ContextBuilder
	Replier      Replier
	HistoryLimit int
	Logger       *slog.Logger
}

// NewService returns a Service. A nil History selects NoopHistory and a
// HistoryLimit of zero or less selects memory.DefaultHistoryLimit.
func NewService(cfg Config) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	h := cfg.History
	if h == nil {
		h = memory.NewNoopHistory(logger)
	}
	limit := cfg.HistoryLimit
	if limit <= 0 {
		limit = memory.DefaultHistoryLimit
	}
	return &Service{
		history:      h,
		builder:      cfg.Builder,
		replier:      cfg.Replier,
		historyLimit: limit,
		logger:       logger,
	}
}

// Respond returns the reply text for req. req.Text must be non-empty.
// History failures are logged and never affect the reply.
func (s *Service) Respond(ctx context.Context, req Request) string {
	key := memory.Key{ServerID: req.ServerID, UserID: req.UserID}

	recent, err := s.history.Recent(ctx, key, s.historyLimit)
	if err != nil {
		s.logger.WarnContext(ctx, "history recall failed; continuing without it",
			"server_id", key.ServerID, "user_id", key.UserID, "err", err)
		recent = nil
	}

	msgs := s.builder.Build(recent, req.Text)
	s.logger.DebugContext(ctx, "context built",
		"messages", len(msgs),
		"history", len(recent),
		"estimated_tokens", memory.EstimateMessages(msgs),
	)

	reply := s.replier.Reply(ctx, msgs)
	if llm.IsFallback(reply) {
		return reply
	}

	userMsg := memory.NewMessage(memory.RoleUser, req.Text)
	botMsg := memory.NewMessage(memory.RoleAssistant, reply)
	if err := s.history.Append(ctx, key, userMsg, botMsg); err != nil {
		s.logger.WarnContext(ctx, "history append failed",
			"server_id", key.ServerID, "user_id", key.UserID, "err", err)
	}
	return reply
}
