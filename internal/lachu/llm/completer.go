package llm

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sajadtroy/lachu/common/redact"
	"github.com/sajadtroy/lachu/internal/lachu/memory"
)

// Completer calls a Provider with a fixed model and temperature and maps
// every failure to a user-facing reply. It never retries.
type Completer struct {
	provider    Provider
	model       string
	temperature float64
	secrets     []string
	logger      *slog.Logger
}

// CompleterConfig holds the per-call settings.
type CompleterConfig struct {
	Model       string
	Temperature float64
	// Secrets are redacted from logged errors (typically the API key).
	Secrets []string
}

// NewCompleter returns a Completer. An empty Model selects DefaultModel; a
// nil logger selects slog.Default().
func NewCompleter(p Provider, cfg CompleterConfig, logger *slog.Logger) *Completer {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Completer{
		provider:    p,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		secrets:     cfg.Secrets,
		logger:      logger,
	}
}

// Model returns the model name sent with every request.
func (c *Completer) Model() string { return c.model }

// Reply returns the model's text for msgs, or ShortenMessage / TroubleMessage
// when the call fails. The error itself is only logged.
func (c *Completer) Reply(ctx context.Context, msgs []memory.Message) string {
	text, err := c.provider.Complete(ctx, CompletionRequest{
		Model:       c.model,
		Messages:    msgs,
		Temperature: c.temperature,
	})
	if err == nil {
		return text
	}

	var apiErr *APIError
	isAPI := errors.As(err, &apiErr)
	attrs := []any{"model", c.model, "messages", len(msgs), "err", redact.Error(err, c.secrets...)}
	if isAPI {
		attrs = append(attrs, "status", apiErr.StatusCode, "type", apiErr.Type)
	}
	c.logger.ErrorContext(ctx, "completion failed", attrs...)

	if isAPI && apiErr.StatusCode == http.StatusBadRequest {
		return ShortenMessage
	}
	return TroubleMessage
}
