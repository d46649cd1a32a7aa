package realtime

import (
	"github.com/google/uuid"

	"github.com/ramadhanidw/messenger-be/internal/models"
)

// Wire event types. new-message and message-read target the two conversation
// parties; the presence pair is broadcast to every connected client.
const (
	EventNewMessage  = "new-message"
	EventMessageRead = "message-read"
	EventUserOnline  = "add-online-user"
	EventUserOffline = "remove-offline-user"
)

// Envelope is the outer frame of every push payload.
type Envelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// NewMessage announces a persisted message to its recipient. Sender is
// attached only when the conversation was created by this message; a non-nil
// Sender tells the receiving client to open a brand new conversation instead
// of appending.
type NewMessage struct {
	Message     models.Message  `json:"message"`
	RecipientID uuid.UUID       `json:"recipientId"`
	Sender      *models.UserRef `json:"sender,omitempty"`
}

// MessageRead announces that UserID has read everything addressed to them in
// the conversation. The other party uses it to advance its read receipt.
type MessageRead struct {
	ConversationID uuid.UUID `json:"conversationId"`
	UserID         uuid.UUID `json:"userId"`
}

// Presence carries the user whose online state flipped.
type Presence struct {
	UserID uuid.UUID `json:"userId"`
}
