package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ramadhanidw/messenger-be/internal/models"
	"github.com/ramadhanidw/messenger-be/internal/presence"
	"github.com/ramadhanidw/messenger-be/internal/readstate"
	"github.com/ramadhanidw/messenger-be/internal/realtime"
	"github.com/ramadhanidw/messenger-be/internal/store"
)

type ChatHandler struct {
	Store    *store.ChatStore
	Hub      *realtime.Hub
	Registry presence.Registry
	RDB      *redis.Client
	Log      *zap.SugaredLogger
}

func NewChatHandler(st *store.ChatStore, hub *realtime.Hub, registry presence.Registry, rdb *redis.Client, log *zap.SugaredLogger) *ChatHandler {
	return &ChatHandler{Store: st, Hub: hub, Registry: registry, RDB: rdb, Log: log}
}

// ConversationOut is the snapshot projection of one conversation: raw
// messages plus fields derived from them. Derived fields are never stored;
// the client re-derives them after every mutation.
type ConversationOut struct {
	ID        uuid.UUID        `json:"id"`
	OtherUser models.UserRef   `json:"otherUser"`
	Messages  []models.Message `json:"messages"`

	LatestMessageText     string     `json:"latestMessageText,omitempty"`
	LatestMessageTime     *time.Time `json:"latestMessageTime,omitempty"`
	LatestMessageSenderID *uuid.UUID `json:"latestMessageSenderId,omitempty"`

	UnreadMessageCount int             `json:"unreadMessageCount"`
	LastReadMessage    *models.Message `json:"lastReadMessage,omitempty"`
}

// projectConversation builds the snapshot view for one conversation. The
// unread derivation always uses the conservative full scan because the
// message list comes straight from the store.
func projectConversation(conv models.Conversation, selfID uuid.UUID, otherOnline bool) (ConversationOut, bool) {
	var other *models.User
	switch selfID {
	case conv.User1ID:
		other = conv.User2
	case conv.User2ID:
		other = conv.User1
	}
	if other == nil {
		return ConversationOut{}, false
	}

	ref := other.Ref()
	ref.Online = otherOnline

	out := ConversationOut{
		ID:        conv.ID,
		OtherUser: ref,
		Messages:  conv.Messages,
	}

	if n := len(conv.Messages); n > 0 {
		last := conv.Messages[n-1]
		out.LatestMessageText = last.Text
		t := last.CreatedAt
		out.LatestMessageTime = &t
		sid := last.SenderID
		out.LatestMessageSenderID = &sid
	}

	d := readstate.Derive(conv.Messages, selfID)
	out.UnreadMessageCount = d.UnreadCount
	out.LastReadMessage = d.LastRead
	return out, true
}

// GetConversations is the snapshot fetch: the client replaces its whole
// cache with this response on (re)connect.
func (h *ChatHandler) GetConversations(c *fiber.Ctx) error {
	userUUID, err := getUserUUID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"success": false, "message": "Unauthorized"})
	}

	convs, err := h.Store.ListConversations(c.Context(), userUUID)
	if err != nil {
		h.Log.Errorw("list conversations", "user", userUUID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "message": "Failed to fetch conversations"})
	}

	out := make([]ConversationOut, 0, len(convs))
	for _, conv := range convs {
		otherID, ok := conv.Other(userUUID)
		if !ok {
			continue
		}
		online, err := h.Registry.IsOnline(c.Context(), otherID)
		if err != nil {
			h.Log.Warnw("presence lookup", "user", otherID, "error", err)
		}
		view, ok := projectConversation(conv, userUUID, online)
		if !ok {
			continue
		}
		out = append(out, view)
	}

	return c.JSON(fiber.Map{"success": true, "data": out})
}

type SendMessageReq struct {
	RecipientID    uuid.UUID  `json:"recipientId"`
	Text           string     `json:"text"`
	ConversationID *uuid.UUID `json:"conversationId"`
}

// SendMessage persists a message and then announces it. Persistence failure
// aborts the request; a failed announcement is invisible to the sender
// because the recipient's next snapshot fetch carries the message anyway.
func (h *ChatHandler) SendMessage(c *fiber.Ctx) error {
	userUUID, err := getUserUUID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"success": false, "message": "Unauthorized"})
	}

	var req SendMessageReq
	if err := c.BodyParser(&req); err != nil || req.Text == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "Text is required"})
	}
	if req.RecipientID == uuid.Nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "recipientId is required"})
	}

	var conv *models.Conversation
	created := false
	if req.ConversationID != nil {
		conv, err = h.Store.GetConversation(c.Context(), *req.ConversationID)
		if err != nil {
			if errors.Is(err, store.ErrConversationNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"success": false, "message": "Conversation not found"})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "message": "Failed to fetch conversation"})
		}
		if !conv.HasMember(userUUID) || !conv.HasMember(req.RecipientID) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"success": false, "message": "Access denied"})
		}
	} else {
		conv, created, err = h.Store.FindOrCreateConversation(c.Context(), userUUID, req.RecipientID)
		if err != nil {
			h.Log.Errorw("find or create conversation", "error", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "message": "Failed to create conversation"})
		}
	}

	msg, err := h.Store.CreateMessage(c.Context(), conv.ID, userUUID, req.Text)
	if err != nil {
		h.Log.Errorw("create message", "conversation", conv.ID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "message": "Failed to send message"})
	}

	// announce leg, best effort from here on
	var senderRef *models.UserRef
	if created {
		if sender, err := h.Store.GetUser(c.Context(), userUUID); err == nil {
			ref := sender.Ref()
			ref.Online = true
			senderRef = &ref
		} else {
			h.Log.Warnw("load sender for announcement", "user", userUUID, "error", err)
		}
	}
	h.Hub.DispatchNewMessage(realtime.NewMessage{
		Message:     *msg,
		RecipientID: req.RecipientID,
		Sender:      senderRef,
	})
	h.notifyRecipient(req.RecipientID, *msg)

	return c.JSON(fiber.Map{
		"success": true,
		"data":    fiber.Map{"message": msg, "sender": senderRef},
	})
}

// notifyRecipient publishes a push notification over Redis for out-of-app
// delivery. Failures are logged and swallowed.
func (h *ChatHandler) notifyRecipient(recipientID uuid.UUID, msg models.Message) {
	if h.RDB == nil {
		return
	}
	payload, err := json.Marshal(map[string]any{
		"type":            "chat_message",
		"conversation_id": msg.ConversationID,
		"sender_id":       msg.SenderID,
		"text":            msg.Text,
	})
	if err != nil {
		h.Log.Warnw("encode notification", "error", err)
		return
	}
	if err := h.RDB.Publish(context.Background(), "notifications:"+recipientID.String(), payload).Err(); err != nil {
		h.Log.Warnw("publish notification", "recipient", recipientID, "error", err)
	}
}

// MarkRead stamps every unread message addressed to the caller in one
// statement, then tells the other party so it can advance its read receipt.
func (h *ChatHandler) MarkRead(c *fiber.Ctx) error {
	userUUID, err := getUserUUID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"success": false, "message": "Unauthorized"})
	}

	convUUID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "Invalid conversation ID"})
	}

	conv, err := h.Store.GetConversation(c.Context(), convUUID)
	if err != nil {
		if errors.Is(err, store.ErrConversationNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"success": false, "message": "Conversation not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "message": "Failed to fetch conversation"})
	}
	if !conv.HasMember(userUUID) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"success": false, "message": "Access denied"})
	}

	if err := h.Store.BulkMarkRead(c.Context(), convUUID, userUUID, time.Now()); err != nil {
		h.Log.Errorw("bulk mark read", "conversation", convUUID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "message": "Failed to mark messages as read"})
	}

	if otherID, ok := conv.Other(userUUID); ok {
		h.Hub.DispatchMessageRead(otherID, realtime.MessageRead{
			ConversationID: convUUID,
			UserID:         userUUID,
		})
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// SearchUsers backs the sidebar search box; results become ephemeral
// conversations client-side until a first message is sent.
func (h *ChatHandler) SearchUsers(c *fiber.Ctx) error {
	userUUID, err := getUserUUID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"success": false, "message": "Unauthorized"})
	}

	query := c.Query("search")
	if query == "" {
		return c.JSON(fiber.Map{"success": true, "data": []models.UserRef{}})
	}

	users, err := h.Store.SearchUsers(c.Context(), userUUID, query)
	if err != nil {
		h.Log.Errorw("search users", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "message": "Failed to search users"})
	}

	out := make([]models.UserRef, 0, len(users))
	for _, u := range users {
		ref := u.Ref()
		if online, err := h.Registry.IsOnline(c.Context(), u.ID); err == nil {
			ref.Online = online
		}
		out = append(out, ref)
	}

	return c.JSON(fiber.Map{"success": true, "data": out})
}
