// Package matrix connects the bot to a Matrix homeserver: sync loop, room
// joins, and the send/reply/edit/typing operations used for delivery.
package matrix

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"

	"github.com/sajadtroy/lachu/common/retry"
)

const (
	typingTimeout = 30 * time.Second
	stopTimeout   = 5 * time.Second
)

// Config holds Matrix client configuration.
type Config struct {
	Homeserver  string
	UserID      string
	AccessToken string
	// Rooms are joined at startup. When non-empty, events from any other
	// room are dropped.
	Rooms []string
	// DB persists the sync token (next_batch) across restarts. When nil an
	// in-memory store is used and events that arrive while the bot is down
	// are skipped on the next start.
	DB *sql.DB
	// JoinRetry controls retries of room joins. Zero value uses
	// retry.DefaultConfig.
	JoinRetry retry.Config
	Logger    *slog.Logger
}

// MessageHandler processes an incoming text message.
type MessageHandler func(ctx context.Context, evt *event.Event)

// Client wraps a mautrix client.
type Client struct {
	client   *mautrix.Client
	config   Config
	logger   *slog.Logger
	started  atomic.Bool
	stopOnce sync.Once
	stopCh   chan struct{}
	done     chan struct{}
}

// New creates a Matrix client. It does not contact the homeserver.
func New(config Config) (*Client, error) {
	client, err := mautrix.NewClient(config.Homeserver, id.UserID(config.UserID), config.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Matrix client: %w", err)
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if config.JoinRetry.MaxAttempts == 0 {
		config.JoinRetry = retry.DefaultConfig
	}

	c := &Client{
		client: client,
		config: config,
		logger: logger,
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}

	if config.DB != nil {
		client.Store = newDBSyncStore(config.DB)
		logger.Info("Matrix sync store: using persistent SQLite store")
	} else {
		logger.Warn("Matrix sync store: no DB configured, using in-memory store")
	}
	return c, nil
}

// Start joins the configured rooms and begins syncing in the background.
// Join failures are logged and do not stop startup. handler is called on the
// syncer goroutine and should return quickly.
func (c *Client) Start(ctx context.Context, handler MessageHandler) error {
	if handler == nil {
		return errors.New("matrix: nil message handler")
	}

	syncer, ok := c.client.Syncer.(*mautrix.DefaultSyncer)
	if !ok {
		return fmt.Errorf("matrix: unexpected syncer type %T", c.client.Syncer)
	}
	if c.freshSync(ctx) {
		// Without a stored next_batch the first sync returns recent room
		// history, which must not be answered.
		syncer.OnSync(c.client.DontProcessOldEvents)
	}
	syncer.OnEventType(event.EventMessage, func(evtCtx context.Context, evt *event.Event) {
		if c.accept(evt) {
			handler(evtCtx, evt)
		}
	})

	for _, room := range c.config.Rooms {
		if err := c.joinRoom(ctx, id.RoomID(room)); err != nil {
			c.logger.Warn("could not join room; continuing", "room", room, "err", err)
		}
	}

	c.started.Store(true)
	go c.syncLoop(ctx)
	return nil
}

// freshSync reports whether the next sync starts without a saved
// next_batch token.
func (c *Client) freshSync(ctx context.Context) bool {
	if c.config.DB == nil {
		return true
	}
	batch, err := c.client.Store.LoadNextBatch(ctx, c.client.UserID)
	if err != nil {
		c.logger.Warn("could not read sync token; skipping old events", "err", err)
		return true
	}
	return batch == ""
}

// syncLoop keeps the sync running, reconnecting with exponential back-off.
func (c *Client) syncLoop(ctx context.Context) {
	defer close(c.done)
	const (
		backoffMin = 2 * time.Second
		backoffMax = 5 * time.Minute
	)
	backoff := backoffMin
	for {
		started := time.Now()
		err := c.client.SyncWithContext(ctx)
		if err == nil || ctx.Err() != nil {
			return
		}
		select {
		case <-c.stopCh:
			return
		default:
		}
		// A sync that ran for a while before failing was healthy.
		if time.Since(started) > backoffMax {
			backoff = backoffMin
		}
		c.logger.Error("Matrix sync stopped; reconnecting", "err", err, "backoff", backoff)
		select {
		case <-c.stopCh:
			return
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, backoffMax)
	}
}

// Stop halts the sync loop and waits up to stopTimeout for it to exit. Safe
// to call more than once, and before Start.
func (c *Client) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopCh)
		c.client.StopSync()
	})
	if !c.started.Load() {
		return
	}
	select {
	case <-c.done:
	case <-time.After(stopTimeout):
		c.logger.Warn("Matrix sync loop did not exit in time")
	}
}

// Done is closed when the sync loop has exited.
func (c *Client) Done() <-chan struct{} { return c.done }

// accept filters events before they reach the handler: own events, edits,
// non-text messages, and events from rooms outside the configured set.
func (c *Client) accept(evt *event.Event) bool {
	if evt.Sender == c.UserID() {
		return false
	}
	msg := evt.Content.AsMessage()
	if msg == nil || msg.MsgType != event.MsgText {
		return false
	}
	if msg.RelatesTo != nil && msg.RelatesTo.GetReplaceID() != "" {
		return false
	}
	if len(c.config.Rooms) > 0 && !slices.Contains(c.config.Rooms, evt.RoomID.String()) {
		return false
	}
	return true
}

// joinRoom joins roomID, retrying transient failures. M_FORBIDDEN is not
// retried.
func (c *Client) joinRoom(ctx context.Context, roomID id.RoomID) error {
	return retry.Do(ctx, c.config.JoinRetry, func() error {
		_, err := c.client.JoinRoomByID(ctx, roomID)
		if errors.Is(err, mautrix.MForbidden) {
			return retry.Permanent(err)
		}
		return err
	})
}

// SendNotice sends an m.notice, as a reply to replyTo when it is non-empty.
func (c *Client) SendNotice(ctx context.Context, roomID id.RoomID, text string, replyTo id.EventID) (id.EventID, error) {
	content := &event.MessageEventContent{
		MsgType: event.MsgNotice,
		Body:    text,
	}
	if replyTo != "" {
		content.RelatesTo = &event.RelatesTo{InReplyTo: &event.InReplyTo{EventID: replyTo}}
	}
	resp, err := c.client.SendMessageEvent(ctx, roomID, event.EventMessage, content)
	if err != nil {
		return "", fmt.Errorf("failed to send notice: %w", err)
	}
	return resp.EventID, nil
}

// Reply sends a text message replying to replyTo.
func (c *Client) Reply(ctx context.Context, roomID id.RoomID, replyTo id.EventID, text string) (id.EventID, error) {
	content := &event.MessageEventContent{
		MsgType:   event.MsgText,
		Body:      text,
		RelatesTo: &event.RelatesTo{InReplyTo: &event.InReplyTo{EventID: replyTo}},
	}
	resp, err := c.client.SendMessageEvent(ctx, roomID, event.EventMessage, content)
	if err != nil {
		return "", fmt.Errorf("failed to send reply: %w", err)
	}
	return resp.EventID, nil
}

// Edit replaces the body of a message the bot sent earlier.
func (c *Client) Edit(ctx context.Context, roomID id.RoomID, target id.EventID, text string) error {
	content := &event.MessageEventContent{
		MsgType: event.MsgText,
		Body:    text,
	}
	content.SetEdit(target)
	if _, err := c.client.SendMessageEvent(ctx, roomID, event.EventMessage, content); err != nil {
		return fmt.Errorf("failed to edit message: %w", err)
	}
	return nil
}

// SetTyping turns the typing indicator on or off.
func (c *Client) SetTyping(ctx context.Context, roomID id.RoomID, typing bool) error {
	timeout := typingTimeout
	if !typing {
		timeout = 0
	}
	if _, err := c.client.UserTyping(ctx, roomID, typing, timeout); err != nil {
		return fmt.Errorf("failed to set typing: %w", err)
	}
	return nil
}

// EventSender fetches eventID and returns who sent it.
func (c *Client) EventSender(ctx context.Context, roomID id.RoomID, eventID id.EventID) (id.UserID, error) {
	evt, err := c.client.GetEvent(ctx, roomID, eventID)
	if err != nil {
		return "", fmt.Errorf("failed to fetch event %s: %w", eventID, err)
	}
	return evt.Sender, nil
}

// UserID returns the bot's Matrix user ID.
func (c *Client) UserID() id.UserID {
	return id.UserID(c.config.UserID)
}

// DisplayName returns the bot's current display name.
func (c *Client) DisplayName(ctx context.Context) (string, error) {
	resp, err := c.client.GetOwnDisplayName(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get display name: %w", err)
	}
	return resp.DisplayName, nil
}

// SetDisplayName updates the bot's global display name.
func (c *Client) SetDisplayName(ctx context.Context, name string) error {
	if err := c.client.SetDisplayName(ctx, name); err != nil {
		return fmt.Errorf("failed to set display name: %w", err)
	}
	return nil
}
