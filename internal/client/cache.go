// Package client is the conversation cache a connected chat client keeps in
// memory: the snapshot fetch seeds it, local user actions and push events
// mutate it, and every mutation re-derives unread state through the shared
// reconciler instead of trusting any previously computed number.
package client

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ramadhanidw/messenger-be/internal/models"
	"github.com/ramadhanidw/messenger-be/internal/readstate"
	"github.com/ramadhanidw/messenger-be/internal/realtime"
)

// Conversation is the client-side projection. A zero ID marks an ephemeral
// conversation: a searched user with no message history, excluded from all
// read-state logic until a first message gives it a real id.
type Conversation struct {
	ID        uuid.UUID        `json:"id"`
	OtherUser models.UserRef   `json:"otherUser"`
	Messages  []models.Message `json:"messages"`

	LatestMessageText  string          `json:"latestMessageText,omitempty"`
	UnreadMessageCount int             `json:"unreadMessageCount"`
	LastReadMessage    *models.Message `json:"lastReadMessage,omitempty"`
}

// Ephemeral reports whether the conversation exists only locally.
func (c *Conversation) Ephemeral() bool {
	return c.ID == uuid.Nil
}

// MessageBody is the send request handed to the API collaborator.
type MessageBody struct {
	RecipientID    uuid.UUID
	ConversationID *uuid.UUID
	Text           string
}

// API is the REST collaborator. CreateMessage returns the persisted message
// plus the sender projection when the server had to create the conversation.
type API interface {
	ListConversations(ctx context.Context) ([]Conversation, error)
	CreateMessage(ctx context.Context, body MessageBody) (models.Message, *models.UserRef, error)
	MarkRead(ctx context.Context, conversationID uuid.UUID) error
}

// Emitter is the push-channel collaborator used to announce local mutations
// to the peer. Both emits are best effort.
type Emitter interface {
	EmitNewMessage(ev realtime.NewMessage) error
	EmitMessageRead(ev realtime.MessageRead) error
}

// Cache owns the conversation list. One mutex serializes every mutation, so
// each operation reads the state left by the previous one; two events in
// flight can never both derive from the same stale list.
type Cache struct {
	mu sync.Mutex

	self    models.UserRef
	api     API
	emitter Emitter
	log     *zap.SugaredLogger
	now     func() time.Time

	conversations []*Conversation
	activeChat    string
}

func NewCache(self models.UserRef, api API, emitter Emitter, log *zap.SugaredLogger) *Cache {
	return &Cache{
		self:    self,
		api:     api,
		emitter: emitter,
		log:     log,
		now:     time.Now,
	}
}

// Load fetches the snapshot and replaces the cache wholesale. Replacement,
// not merging: after a reconnect the snapshot is the source of truth and
// stale cached state must not survive it. Derived fields are recomputed from
// the raw messages rather than taken from the wire.
func (c *Cache) Load(ctx context.Context) error {
	convs, err := c.api.ListConversations(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.conversations = make([]*Conversation, 0, len(convs))
	for i := range convs {
		conv := convs[i]
		c.rederive(&conv)
		c.conversations = append(c.conversations, &conv)
	}
	return nil
}

// Conversations returns a copy of the current list for rendering.
func (c *Cache) Conversations() []Conversation {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Conversation, 0, len(c.conversations))
	for _, conv := range c.conversations {
		out = append(out, *conv)
	}
	return out
}

// TotalUnread aggregates unread counts across the cache. Ephemeral
// conversations hold no messages and contribute nothing.
func (c *Cache) TotalUnread() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := 0
	for _, conv := range c.conversations {
		if conv.Ephemeral() {
			continue
		}
		total += conv.UnreadMessageCount
	}
	return total
}

// PostMessage is the three-step send: persist, announce, apply locally.
// Persistence failure aborts with nothing mutated. A failed announcement is
// logged and swallowed because the message is already durable; the recipient
// heals on its next snapshot fetch.
func (c *Cache) PostMessage(ctx context.Context, recipientID uuid.UUID, text string) error {
	body := MessageBody{RecipientID: recipientID, Text: text}

	c.mu.Lock()
	if conv := c.findByPeer(recipientID); conv != nil && !conv.Ephemeral() {
		id := conv.ID
		body.ConversationID = &id
	}
	c.mu.Unlock()

	msg, sender, err := c.api.CreateMessage(ctx, body)
	if err != nil {
		return err
	}

	if err := c.emitter.EmitNewMessage(realtime.NewMessage{
		Message:     msg,
		RecipientID: recipientID,
		Sender:      sender,
	}); err != nil {
		c.log.Warnw("announce message", "conversation", msg.ConversationID, "error", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.applyOwnMessage(recipientID, msg)
	return nil
}

// applyOwnMessage folds the sender's own persisted message into the cache so
// the UI is consistent without a round trip. An ephemeral conversation gains
// its real id here.
func (c *Cache) applyOwnMessage(recipientID uuid.UUID, msg models.Message) {
	conv := c.findByPeer(recipientID)
	if conv == nil {
		conv = &Conversation{
			ID:        msg.ConversationID,
			OtherUser: models.UserRef{ID: recipientID},
		}
		c.conversations = append([]*Conversation{conv}, c.conversations...)
	}
	conv.ID = msg.ConversationID
	conv.Messages = append(conv.Messages, msg)
	c.rederive(conv)
}

// SetActiveChat focuses a conversation by peer username. Focusing a
// conversation with unread messages triggers the mark-as-read flow.
func (c *Cache) SetActiveChat(ctx context.Context, username string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.activeChat = username
	for _, conv := range c.conversations {
		if conv.OtherUser.Username == username && !conv.Ephemeral() && conv.UnreadMessageCount > 0 {
			c.markAsRead(ctx, conv)
			return
		}
	}
}

// markAsRead runs the read flow for one conversation: persist the bulk mark,
// tell the peer, and optimistically zero the local unread state. The
// persisted step is idempotent and retried implicitly on the next open, so
// its failure only gets logged; local responsiveness wins. Caller holds the
// lock.
func (c *Cache) markAsRead(ctx context.Context, conv *Conversation) {
	if err := c.api.MarkRead(ctx, conv.ID); err != nil {
		c.log.Warnw("persist read mark", "conversation", conv.ID, "error", err)
	}
	if err := c.emitter.EmitMessageRead(realtime.MessageRead{
		ConversationID: conv.ID,
		UserID:         c.self.ID,
	}); err != nil {
		c.log.Warnw("announce read", "conversation", conv.ID, "error", err)
	}

	readstate.MarkAllRead(conv.Messages, c.self.ID, c.now())
	// our own mutation just restored the invariant, the short scan is safe
	d := readstate.DeriveContiguous(conv.Messages, c.self.ID)
	conv.UnreadMessageCount = d.UnreadCount
	conv.LastReadMessage = d.LastRead
}

// ApplyNewMessage applies a pushed new-message event. A non-nil Sender means
// the conversation did not exist for us yet. Duplicate deliveries are
// detected by message id and ignored, which keeps the snapshot/event race
// from double-counting.
func (c *Cache) ApplyNewMessage(ctx context.Context, ev realtime.NewMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ev.Sender != nil {
		conv := c.findByPeer(ev.Sender.ID)
		if conv == nil {
			conv = &Conversation{OtherUser: *ev.Sender}
			c.conversations = append([]*Conversation{conv}, c.conversations...)
		}
		if conv.Ephemeral() {
			conv.ID = ev.Message.ConversationID
		}
	}

	conv := c.findByID(ev.Message.ConversationID)
	if conv == nil {
		// conversation unknown and no sender info: nothing to attach to,
		// the next snapshot fetch carries it
		return
	}
	if c.hasMessage(conv, ev.Message.ID) {
		return
	}

	conv.Messages = append(conv.Messages, ev.Message)
	c.rederive(conv)

	if conv.UnreadMessageCount > 0 && c.activeChat == conv.OtherUser.Username {
		// receiver is looking at this conversation, read immediately
		c.markAsRead(ctx, conv)
	}
}

// ApplyMessageRead applies the peer's read receipt: every message addressed
// to the reader flips to read, which advances our lastReadMessage.
func (c *Cache) ApplyMessageRead(ev realtime.MessageRead) {
	c.mu.Lock()
	defer c.mu.Unlock()

	conv := c.findByID(ev.ConversationID)
	if conv == nil {
		return
	}

	// the reader is self in reconciler terms: messages they did not send
	// are the ones being marked
	readstate.MarkAllRead(conv.Messages, ev.UserID, c.now())
	c.rederive(conv)
}

// SetOnline flips the transient online flag wherever the user appears.
func (c *Cache) SetOnline(userID uuid.UUID, online bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, conv := range c.conversations {
		if conv.OtherUser.ID == userID {
			conv.OtherUser.Online = online
		}
	}
}

// AddSearchedUsers merges search results in as ephemeral conversations.
// Users we already converse with are skipped so a placeholder never
// replaces real history.
func (c *Cache) AddSearchedUsers(users []models.UserRef) {
	c.mu.Lock()
	defer c.mu.Unlock()

	known := make(map[uuid.UUID]bool, len(c.conversations))
	for _, conv := range c.conversations {
		known[conv.OtherUser.ID] = true
	}

	for _, u := range users {
		if known[u.ID] {
			continue
		}
		known[u.ID] = true
		c.conversations = append(c.conversations, &Conversation{OtherUser: u})
	}
}

// ClearSearchedUsers drops every conversation that never gained a real id.
func (c *Cache) ClearSearchedUsers() {
	c.mu.Lock()
	defer c.mu.Unlock()

	kept := c.conversations[:0]
	for _, conv := range c.conversations {
		if !conv.Ephemeral() {
			kept = append(kept, conv)
		}
	}
	c.conversations = kept
}

// rederive recomputes every derived field from the raw messages. The full
// scan is used because the list may contain data from outside this cache.
func (c *Cache) rederive(conv *Conversation) {
	d := readstate.Derive(conv.Messages, c.self.ID)
	conv.UnreadMessageCount = d.UnreadCount
	conv.LastReadMessage = d.LastRead

	if n := len(conv.Messages); n > 0 {
		conv.LatestMessageText = conv.Messages[n-1].Text
	} else {
		conv.LatestMessageText = ""
	}
}

func (c *Cache) findByPeer(userID uuid.UUID) *Conversation {
	for _, conv := range c.conversations {
		if conv.OtherUser.ID == userID {
			return conv
		}
	}
	return nil
}

func (c *Cache) findByID(id uuid.UUID) *Conversation {
	if id == uuid.Nil {
		return nil
	}
	for _, conv := range c.conversations {
		if conv.ID == id {
			return conv
		}
	}
	return nil
}

func (c *Cache) hasMessage(conv *Conversation, id uuid.UUID) bool {
	for i := len(conv.Messages) - 1; i >= 0; i-- {
		if conv.Messages[i].ID == id {
			return true
		}
	}
	return false
}
