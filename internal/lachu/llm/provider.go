// Package llm talks to the hosted chat-completion API and turns its outcome
// into text that can always be shown to a user.
package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/sajadtroy/lachu/internal/lachu/memory"
)

// User-facing replies substituted for a failed completion.
const (
	ShortenMessage = "Sorry, there was an issue with the request. Please try a shorter message."
	TroubleMessage = "I'm having trouble responding right now. Try again later."
)

// ErrNoChoices is returned when a 2xx response carries no choices.
var ErrNoChoices = errors.New("llm: no choices in response")

// APIError is a non-2xx response from the completion endpoint.
type APIError struct {
	StatusCode int
	Type       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("llm: API error (HTTP %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("llm: API error (HTTP %d, %s): %s", e.StatusCode, e.Type, e.Message)
}

// CompletionRequest is one chat-completion call.
type CompletionRequest struct {
	Model       string
	Messages    []memory.Message
	Temperature float64
}

// Provider performs a single completion and returns the first choice's
// content. Implementations must be safe for concurrent use.
type Provider interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// IsFallback reports whether s is one of the substituted failure replies.
func IsFallback(s string) bool {
	return s == ShortenMessage || s == TroubleMessage
}
