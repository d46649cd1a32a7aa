package handlers

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramadhanidw/messenger-be/internal/models"
)

func conversationFixture(self, peer uuid.UUID) models.Conversation {
	now := time.Now()
	readAt := now.Add(-time.Minute)
	return models.Conversation{
		ID:      uuid.New(),
		User1ID: self,
		User2ID: peer,
		User1:   &models.User{ID: self, Username: "alice"},
		User2:   &models.User{ID: peer, Username: "bob", PhotoURL: "http://example.com/bob.png"},
		Messages: []models.Message{
			{ID: uuid.New(), SenderID: self, Text: "hi", CreatedAt: now.Add(-3 * time.Minute), ReadAt: &readAt},
			{ID: uuid.New(), SenderID: peer, Text: "hey", CreatedAt: now.Add(-2 * time.Minute), ReadAt: &readAt},
			{ID: uuid.New(), SenderID: peer, Text: "you there?", CreatedAt: now.Add(-30 * time.Second)},
		},
	}
}

func TestProjectConversation(t *testing.T) {
	self, peer := uuid.New(), uuid.New()
	conv := conversationFixture(self, peer)

	out, ok := projectConversation(conv, self, true)
	require.True(t, ok)

	assert.Equal(t, conv.ID, out.ID)
	assert.Equal(t, "bob", out.OtherUser.Username)
	assert.True(t, out.OtherUser.Online)

	assert.Equal(t, "you there?", out.LatestMessageText)
	require.NotNil(t, out.LatestMessageSenderID)
	assert.Equal(t, peer, *out.LatestMessageSenderID)

	assert.Equal(t, 1, out.UnreadMessageCount)
	require.NotNil(t, out.LastReadMessage)
	assert.Equal(t, "hi", out.LastReadMessage.Text)
}

func TestProjectConversationOtherSide(t *testing.T) {
	self, peer := uuid.New(), uuid.New()
	conv := conversationFixture(self, peer)

	// same row viewed by the other participant
	out, ok := projectConversation(conv, peer, false)
	require.True(t, ok)

	assert.Equal(t, "alice", out.OtherUser.Username)
	assert.False(t, out.OtherUser.Online)
	assert.Zero(t, out.UnreadMessageCount)
	require.NotNil(t, out.LastReadMessage)
	assert.Equal(t, "hey", out.LastReadMessage.Text)
}

func TestProjectConversationEmpty(t *testing.T) {
	self, peer := uuid.New(), uuid.New()
	conv := models.Conversation{
		ID:      uuid.New(),
		User1ID: self,
		User2ID: peer,
		User2:   &models.User{ID: peer, Username: "bob"},
	}

	out, ok := projectConversation(conv, self, false)
	require.True(t, ok)
	assert.Empty(t, out.LatestMessageText)
	assert.Nil(t, out.LatestMessageTime)
	assert.Zero(t, out.UnreadMessageCount)
	assert.Nil(t, out.LastReadMessage)
}

func TestProjectConversationStranger(t *testing.T) {
	conv := conversationFixture(uuid.New(), uuid.New())
	_, ok := projectConversation(conv, uuid.New(), false)
	assert.False(t, ok)
}
