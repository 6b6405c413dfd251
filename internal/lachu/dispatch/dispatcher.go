// Package dispatch turns inbound chat events into replies. Two entry points
// exist: the explicit command ("/chat <message>"), acknowledged right away
// and then edited with the answer, and the passive path, which answers
// messages that mention the bot or reply to it.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"

	"github.com/sajadtroy/lachu/common/trace"
	"github.com/sajadtroy/lachu/internal/lachu/chat"
	"github.com/sajadtroy/lachu/internal/lachu/commands"
	"github.com/sajadtroy/lachu/internal/lachu/llm"
	"github.com/sajadtroy/lachu/internal/lachu/observability"
)

// DefaultCommand is the trigger for the explicit chat command.
const DefaultCommand = "/chat"

// Messenger is the outbound side of the chat platform. *matrix.Client
// satisfies it.
type Messenger interface {
	SendNotice(ctx context.Context, roomID id.RoomID, text string, replyTo id.EventID) (id.EventID, error)
	Reply(ctx context.Context, roomID id.RoomID, replyTo id.EventID, text string) (id.EventID, error)
	Edit(ctx context.Context, roomID id.RoomID, target id.EventID, text string) error
	SetTyping(ctx context.Context, roomID id.RoomID, typing bool) error
	EventSender(ctx context.Context, roomID id.RoomID, eventID id.EventID) (id.UserID, error)
}

// Responder produces reply text for one user turn. *chat.Service satisfies it.
type Responder interface {
	Respond(ctx context.Context, req chat.Request) string
}

// Config wires a Dispatcher.
type Config struct {
	Messenger Messenger
	Responder Responder
	// BotUserID is the bot's own Matrix ID, used for mention and reply
	// detection.
	BotUserID id.UserID
	// BotName appears in the acknowledgement notice ("<name> is typing…").
	BotName string
	// DisplayName, when set, is also stripped as a leading mention.
	DisplayName string
	// Command is the explicit trigger. Defaults to DefaultCommand.
	Command string
	// IgnoreSenders lists other bots whose messages are never answered.
	IgnoreSenders []string
	Logger        *slog.Logger
}

// Dispatcher routes events. It holds no per-event state; concurrent events
// are handled independently.
type Dispatcher struct {
	messenger Messenger
	responder Responder
	botID     id.UserID
	botName   string
	command   string
	ignore    []id.UserID
	mentions  *mentionMatcher
	router    *commands.Router
	logger    *slog.Logger
	inflight  sync.WaitGroup
}

// New returns a Dispatcher for cfg.
func New(cfg Config) (*Dispatcher, error) {
	if cfg.Messenger == nil || cfg.Responder == nil {
		return nil, errors.New("dispatch: messenger and responder are required")
	}
	if cfg.BotUserID == "" {
		return nil, errors.New("dispatch: bot user ID is required")
	}
	if cfg.Command == "" {
		cfg.Command = DefaultCommand
	}
	if cfg.BotName == "" {
		cfg.BotName = cfg.BotUserID.Localpart()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	d := &Dispatcher{
		messenger: cfg.Messenger,
		responder: cfg.Responder,
		botID:     cfg.BotUserID,
		botName:   cfg.BotName,
		mentions:  newMentionMatcher(cfg.BotUserID, cfg.DisplayName),
		router:    commands.NewRouter(),
		logger:    logger,
	}
	for _, s := range cfg.IgnoreSenders {
		d.ignore = append(d.ignore, id.UserID(s))
	}
	d.router.Register(cfg.Command, d.handleChatCommand)
	d.command = d.router.Triggers()[0]
	return d, nil
}

// Command returns the resolved trigger, including its "/" sigil.
func (d *Dispatcher) Command() string {
	return d.command
}

// Dispatch handles evt on its own goroutine and returns at once, so a slow
// completion for one user does not hold up other rooms or the sync loop.
// It matches matrix.MessageHandler. Wait blocks until dispatched events
// finish.
func (d *Dispatcher) Dispatch(ctx context.Context, evt *event.Event) {
	d.inflight.Add(1)
	go func() {
		defer d.inflight.Done()
		d.HandleEvent(ctx, evt)
	}()
}

// Wait blocks until every dispatched event has been handled or timeout
// elapses. It reports whether all of them finished.
func (d *Dispatcher) Wait(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		d.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}

// HandleEvent processes one m.room.message event synchronously. It never
// returns an error; failures are logged.
func (d *Dispatcher) HandleEvent(ctx context.Context, evt *event.Event) {
	ctx = trace.Ensure(ctx)
	logger := d.log(ctx)

	if evt.Sender == d.botID || slices.Contains(d.ignore, evt.Sender) {
		return
	}
	msg := evt.Content.AsMessage()
	if msg == nil || msg.MsgType != event.MsgText {
		return
	}

	body := msg.Body
	replyTo := msg.RelatesTo.GetReplyTo()
	if replyTo != "" {
		body = event.TrimReplyFallbackText(body)
	}

	err := d.router.Route(ctx, body, evt)
	switch {
	case err == nil:
		return
	case errors.Is(err, commands.ErrNotACommand), errors.Is(err, commands.ErrUnknownCommand):
		d.handlePassive(ctx, evt, msg, body, replyTo)
	default:
		logger.Error("command failed", "room", evt.RoomID, "sender", evt.Sender, "err", err)
	}
}

// handleChatCommand acknowledges the command, computes the answer, and
// edits the acknowledgement into it.
func (d *Dispatcher) handleChatCommand(ctx context.Context, cmd *commands.Command, evt *event.Event) error {
	logger := d.log(ctx)

	if cmd.Arg == "" {
		usage := fmt.Sprintf("Usage: %s <message>", d.command)
		if _, err := d.messenger.Reply(ctx, evt.RoomID, evt.ID, usage); err != nil {
			return fmt.Errorf("send usage: %w", err)
		}
		return nil
	}

	ackID, err := d.messenger.SendNotice(ctx, evt.RoomID, d.botName+" is typing…", evt.ID)
	if err != nil {
		logger.Warn("acknowledgement failed; will reply directly", "room", evt.RoomID, "err", err)
		ackID = ""
	}

	d.setTyping(ctx, evt.RoomID, true)
	defer d.setTyping(ctx, evt.RoomID, false)

	reply := d.answer(ctx, evt, cmd.Arg)

	if ackID != "" {
		err := d.messenger.Edit(ctx, evt.RoomID, ackID, reply)
		if err == nil {
			return nil
		}
		logger.Warn("editing acknowledgement failed; replying instead", "room", evt.RoomID, "err", err)
	}
	if _, err := d.messenger.Reply(ctx, evt.RoomID, evt.ID, reply); err != nil {
		return fmt.Errorf("deliver reply: %w", err)
	}
	return nil
}

// handlePassive answers messages that mention the bot or reply to one of
// its messages.
func (d *Dispatcher) handlePassive(ctx context.Context, evt *event.Event, msg *event.MessageEventContent, body string, replyTo id.EventID) {
	logger := d.log(ctx)

	mentioned := d.isMentioned(msg, body)
	if !mentioned && !d.isReplyToBot(ctx, evt.RoomID, replyTo) {
		return
	}

	text := body
	if mentioned {
		text = d.mentions.Strip(body)
	}
	if text == "" {
		logger.Debug("nothing left after removing mention; ignoring", "room", evt.RoomID, "sender", evt.Sender)
		return
	}

	reply := d.answer(ctx, evt, text)
	if _, err := d.messenger.Reply(ctx, evt.RoomID, evt.ID, reply); err != nil {
		logger.Error("reply failed", "room", evt.RoomID, "err", err)
	}
}

// answer asks the responder and prepares the text for delivery.
func (d *Dispatcher) answer(ctx context.Context, evt *event.Event, text string) string {
	logger := d.log(ctx)
	logger.Info("answering", "room", evt.RoomID, "sender", evt.Sender, "event", evt.ID, "chars", len(text))

	reply := StripReasoning(d.responder.Respond(ctx, chat.Request{
		ServerID: evt.RoomID.String(),
		UserID:   evt.Sender.String(),
		Text:     text,
	}))
	if reply == "" {
		// A reply made only of reasoning would be an empty message.
		logger.Warn("reply empty after removing reasoning", "room", evt.RoomID)
		return llm.TroubleMessage
	}
	return reply
}

func (d *Dispatcher) log(ctx context.Context) *slog.Logger {
	return observability.WithTraceLogger(ctx, d.logger)
}

func (d *Dispatcher) isMentioned(msg *event.MessageEventContent, body string) bool {
	if msg.Mentions != nil && slices.Contains(msg.Mentions.UserIDs, d.botID) {
		return true
	}
	return d.mentions.Mentioned(body)
}

func (d *Dispatcher) isReplyToBot(ctx context.Context, roomID id.RoomID, replyTo id.EventID) bool {
	if replyTo == "" {
		return false
	}
	sender, err := d.messenger.EventSender(ctx, roomID, replyTo)
	if err != nil {
		d.log(ctx).Warn("could not fetch replied-to event", "room", roomID, "event", replyTo, "err", err)
		return false
	}
	return sender == d.botID
}

func (d *Dispatcher) setTyping(ctx context.Context, roomID id.RoomID, typing bool) {
	if err := d.messenger.SetTyping(ctx, roomID, typing); err != nil {
		d.log(ctx).Debug("typing indicator failed", "room", roomID, "typing", typing, "err", err)
	}
}
