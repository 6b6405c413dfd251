// Package commands parses text commands ("/chat hello") and routes them to
// registered handlers.
package commands

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"maunium.net/go/mautrix/event"
)

// Command is a parsed command line. Arg is everything after the trigger with
// surrounding whitespace removed; inner whitespace and newlines are kept.
type Command struct {
	Trigger string
	Arg     string
	RawText string
}

// Name returns the trigger without its leading sigil, e.g. "chat".
func (c *Command) Name() string {
	return strings.TrimPrefix(c.Trigger, sigil)
}

// ErrNotACommand is returned by Parse when the text does not start with the
// command sigil. Callers should use errors.Is to tell this expected case
// from a real failure.
var ErrNotACommand = errors.New("not a command (missing prefix)")

// ErrUnknownCommand is returned for a sigil-prefixed word with no handler.
var ErrUnknownCommand = errors.New("unknown command")

const sigil = "/"

// Handler runs a command. Handlers deliver their own output.
type Handler func(ctx context.Context, cmd *Command, evt *event.Event) error

// Router routes commands to handlers.
type Router struct {
	handlers map[string]Handler
}

// NewRouter creates an empty router.
func NewRouter() *Router {
	return &Router{handlers: make(map[string]Handler)}
}

// Register binds trigger (e.g. "/chat") to handler. A missing sigil is added.
func (r *Router) Register(trigger string, handler Handler) {
	if !strings.HasPrefix(trigger, sigil) {
		trigger = sigil + trigger
	}
	r.handlers[trigger] = handler
}

// Triggers lists the registered triggers in sorted order.
func (r *Router) Triggers() []string {
	out := make([]string, 0, len(r.handlers))
	for t := range r.handlers {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Parse splits text into a trigger and its argument and checks the trigger
// is registered. "/chatty" does not match "/chat".
func (r *Router) Parse(text string) (*Command, error) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, sigil) {
		return nil, ErrNotACommand
	}

	trigger, rest := text, ""
	if i := strings.IndexFunc(text, unicode.IsSpace); i >= 0 {
		trigger, rest = text[:i], text[i:]
	}
	if _, ok := r.handlers[trigger]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, trigger)
	}

	return &Command{
		Trigger: trigger,
		Arg:     strings.TrimSpace(rest),
		RawText: text,
	}, nil
}

// Route parses text and runs the matching handler. The parse errors are
// returned unchanged so callers can match them with errors.Is.
func (r *Router) Route(ctx context.Context, text string, evt *event.Event) error {
	cmd, err := r.Parse(text)
	if err != nil {
		return err
	}
	return r.handlers[cmd.Trigger](ctx, cmd, evt)
}
