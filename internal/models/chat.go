package models

import (
	"time"

	"github.com/google/uuid"
)

// Conversation links an unordered pair of users. Which user lands in User1
// vs User2 carries no meaning; lookups are always symmetric.
type Conversation struct {
	ID uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`

	User1ID uuid.UUID `gorm:"type:uuid;index:idx_conversation_pair" json:"user1_id"`
	User2ID uuid.UUID `gorm:"type:uuid;index:idx_conversation_pair" json:"user2_id"`

	// group conversations share the table; nil for direct messages
	GroupID *uuid.UUID `gorm:"type:uuid;index" json:"group_id,omitempty"`

	LastMessageAt time.Time `json:"last_message_at"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	User1    *User     `gorm:"foreignKey:User1ID" json:"user1,omitempty"`
	User2    *User     `gorm:"foreignKey:User2ID" json:"user2,omitempty"`
	Messages []Message `gorm:"foreignKey:ConversationID" json:"messages,omitempty"`
}

// Other returns the participant that is not selfID. False when selfID is not
// a member of the pair.
func (c Conversation) Other(selfID uuid.UUID) (uuid.UUID, bool) {
	switch selfID {
	case c.User1ID:
		return c.User2ID, true
	case c.User2ID:
		return c.User1ID, true
	}
	return uuid.Nil, false
}

// HasMember reports whether userID is one of the two participants.
func (c Conversation) HasMember(userID uuid.UUID) bool {
	return userID == c.User1ID || userID == c.User2ID
}

// Message is immutable once created except for ReadAt, which transitions
// from nil to a timestamp exactly once and is never cleared or moved. A nil
// ReadAt means unread. The nullable timestamp doubles as the read receipt:
// the peer's newest read message is derivable without extra bookkeeping.
type Message struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	ConversationID uuid.UUID  `gorm:"type:uuid;index" json:"conversationId"`
	SenderID       uuid.UUID  `gorm:"type:uuid;index" json:"senderId"`
	Text           string     `gorm:"not null" json:"text"`
	ReadAt         *time.Time `json:"readAt"`
	CreatedAt      time.Time  `gorm:"index" json:"createdAt"`
	UpdatedAt      time.Time  `json:"-"`
}

// Read reports whether the message has been read by its recipient.
func (m Message) Read() bool {
	return m.ReadAt != nil
}
