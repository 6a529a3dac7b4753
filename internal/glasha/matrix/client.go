// Package matrix connects Glasha to her homeserver and delivers room messages
// to the utterance handler.
package matrix

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"
)

// Config holds the Matrix connection settings.
type Config struct {
	Homeserver  string
	UserID      string
	AccessToken string
	// Rooms lists the room IDs Glasha listens in. Messages from any other
	// room are dropped.
	Rooms []string
	// Users optionally restricts who may talk to the bot. Empty means every
	// member of an allowed room is accepted.
	Users []string
	// DB persists the sync token (next_batch) across restarts. When nil an
	// in-memory store is used and room history replays on every start.
	DB *sql.DB
}

// Client wraps the mautrix client.
type Client struct {
	client     *mautrix.Client
	config     *Config
	stopCh     chan struct{}
	msgHandler MessageHandler
}

// MessageHandler processes one incoming room message.
type MessageHandler func(ctx context.Context, evt *event.Event)

const (
	syncBackoffMin = 2 * time.Second
	syncBackoffMax = 5 * time.Minute
)

// syncBackoff schedules reconnect delays for the sync loop. Failures double
// the delay up to the cap; a sync that stayed up long enough counts as a
// recovery and resets the schedule.
type syncBackoff struct {
	delay time.Duration
}

func (b *syncBackoff) next(ranFor time.Duration) time.Duration {
	if b.delay == 0 || ranFor >= syncBackoffMax {
		b.delay = syncBackoffMin
		return b.delay
	}
	b.delay *= 2
	if b.delay > syncBackoffMax {
		b.delay = syncBackoffMax
	}
	return b.delay
}

// New creates a Matrix client.
func New(config *Config) (*Client, error) {
	client, err := mautrix.NewClient(config.Homeserver, id.UserID(config.UserID), config.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Matrix client: %w", err)
	}

	c := &Client{
		client: client,
		config: config,
		stopCh: make(chan struct{}),
	}

	if config.DB != nil {
		client.Store = newDBSyncStore(config.DB)
		slog.Info("Matrix sync store: using persistent SQLite store")
	} else {
		slog.Warn("Matrix sync store: no DB configured, using in-memory store (history will replay on restart)")
	}

	return c, nil
}

// Start joins the configured rooms and begins syncing in the background.
func (c *Client) Start(ctx context.Context, handler MessageHandler) error {
	c.msgHandler = handler

	// NOTE: E2EE is not implemented. Dictated letters and addresses travel in
	// plaintext and are visible in room history on the homeserver.
	slog.Warn("Matrix E2EE is not enabled; messages are transmitted in plaintext")

	syncer := c.client.Syncer.(*mautrix.DefaultSyncer)
	syncer.OnEventType(event.EventMessage, c.handleMessage)

	for _, roomID := range c.config.Rooms {
		if err := c.joinRoom(id.RoomID(roomID)); err != nil {
			return fmt.Errorf("failed to join room %s: %w", roomID, err)
		}
	}

	// Sync with exponential back-off reconnection. Without retries a
	// transient homeserver error would silently kill the sync goroutine and
	// leave the bot deaf.
	go func() {
		var backoff syncBackoff
		for {
			started := time.Now()
			if err := c.client.Sync(); err != nil {
				select {
				case <-c.stopCh:
					return
				default:
				}
				delay := backoff.next(time.Since(started))
				slog.Error("Matrix sync stopped; reconnecting", "err", err, "backoff", delay)
				select {
				case <-c.stopCh:
					return
				case <-time.After(delay):
				}
				continue
			}
			// Sync returns nil only after a clean StopSync.
			return
		}
	}()

	return nil
}

// Stop shuts the client down.
func (c *Client) Stop() {
	close(c.stopCh)
	c.client.StopSync()
}

// SendMessage sends a plain text message to a room.
func (c *Client) SendMessage(roomID, message string) error {
	_, err := c.client.SendText(context.Background(), id.RoomID(roomID), message)
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// SendNotice sends a notice, used for startup and status lines so they do not
// ping room members.
func (c *Client) SendNotice(roomID, message string) error {
	content := event.MessageEventContent{
		MsgType: event.MsgNotice,
		Body:    message,
	}

	_, err := c.client.SendMessageEvent(context.Background(), id.RoomID(roomID), event.EventMessage, &content)
	if err != nil {
		return fmt.Errorf("failed to send notice: %w", err)
	}
	return nil
}

// SetTyping toggles the typing indicator while an utterance is processed.
func (c *Client) SetTyping(roomID string, typing bool, timeout time.Duration) error {
	_, err := c.client.UserTyping(context.Background(), id.RoomID(roomID), typing, timeout)
	if err != nil {
		return fmt.Errorf("failed to set typing: %w", err)
	}
	return nil
}

// IsAllowedRoom reports whether the bot listens in the given room.
func (c *Client) IsAllowedRoom(roomID string) bool {
	for _, allowed := range c.config.Rooms {
		if allowed == roomID {
			return true
		}
	}
	return false
}

// isAllowedUser reports whether the sender may command the bot.
func (c *Client) isAllowedUser(userID string) bool {
	if len(c.config.Users) == 0 {
		return true
	}
	for _, allowed := range c.config.Users {
		if allowed == userID {
			return true
		}
	}
	return false
}

// UserID returns the bot's own Matrix ID.
func (c *Client) UserID() string {
	return c.config.UserID
}

// handleMessage filters incoming events before the handler sees them.
func (c *Client) handleMessage(ctx context.Context, evt *event.Event) {
	// Never react to our own messages.
	if evt.Sender == id.UserID(c.config.UserID) {
		return
	}

	msgContent := evt.Content.AsMessage()
	if msgContent == nil || msgContent.MsgType != event.MsgText {
		return
	}

	if !c.IsAllowedRoom(evt.RoomID.String()) {
		return
	}
	if !c.isAllowedUser(evt.Sender.String()) {
		slog.Warn("message from disallowed sender ignored", "sender", evt.Sender)
		return
	}

	if c.msgHandler != nil {
		c.msgHandler(ctx, evt)
	}
}

// joinRoom joins a room, tolerating prior membership.
func (c *Client) joinRoom(roomID id.RoomID) error {
	_, err := c.client.JoinRoomByID(context.Background(), roomID)
	if err != nil {
		// Homeservers answer M_FORBIDDEN when the bot is already a member.
		if errors.Is(err, mautrix.MForbidden) {
			slog.Warn("joinRoom: already a member or access denied, continuing", "room", roomID)
			return nil
		}
		return err
	}
	return nil
}
