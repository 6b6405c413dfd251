package memory

import (
	"context"
	"log/slog"
)

// NoopHistory is the default History: it records nothing and recalls
// nothing, which keeps every request to the system prompt plus the current
// message.
type NoopHistory struct {
	logger *slog.Logger
}

// NewNoopHistory returns a NoopHistory. A nil logger selects slog.Default().
func NewNoopHistory(logger *slog.Logger) *NoopHistory {
	if logger == nil {
		logger = slog.Default()
	}
	return &NoopHistory{logger: logger}
}

// Recent always returns no messages.
func (n *NoopHistory) Recent(_ context.Context, _ Key, _ int) ([]Message, error) {
	return nil, nil
}

// Append logs at DEBUG level and discards msgs.
func (n *NoopHistory) Append(_ context.Context, key Key, msgs ...Message) error {
	n.logger.Debug("history noop: discarding messages",
		"server_id", key.ServerID,
		"user_id", key.UserID,
		"messages", len(msgs),
	)
	return nil
}

var _ History = (*NoopHistory)(nil)
