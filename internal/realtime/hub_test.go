package realtime

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ramadhanidw/messenger-be/internal/models"
	"github.com/ramadhanidw/messenger-be/internal/presence"
)

func testHub(t *testing.T) (*Hub, *presence.Memory) {
	t.Helper()
	reg := presence.NewMemory()
	hub := NewHub(reg, zap.NewNop().Sugar())
	go hub.Run()
	return hub, reg
}

func connect(t *testing.T, hub *Hub, reg *presence.Memory, userID uuid.UUID) *Client {
	t.Helper()
	client := &Client{ID: uuid.New().String(), UserID: userID, Send: make(chan []byte, 16)}
	hub.RegisterClient(client)
	require.Eventually(t, func() bool {
		online, _ := reg.IsOnline(context.Background(), userID)
		return online
	}, time.Second, 5*time.Millisecond)
	// every first socket triggers an online broadcast the client itself also
	// receives; drain it so tests only see the events under test
	env := recvEnvelope(t, client)
	require.Equal(t, EventUserOnline, env.Type)
	return client
}

func recvEnvelope(t *testing.T, c *Client) Envelope {
	t.Helper()
	select {
	case payload := <-c.Send:
		var env Envelope
		require.NoError(t, json.Unmarshal(payload, &env))
		return env
	case <-time.After(time.Second):
		t.Fatal("no event received")
		return Envelope{}
	}
}

func TestDispatchNewMessageOrdering(t *testing.T) {
	hub, reg := testHub(t)
	user := uuid.New()
	client := connect(t, hub, reg, user)

	conv := uuid.New()
	for _, text := range []string{"first", "second", "third"} {
		hub.DispatchNewMessage(NewMessage{
			Message:     models.Message{ID: uuid.New(), ConversationID: conv, Text: text},
			RecipientID: user,
		})
	}

	for _, want := range []string{"first", "second", "third"} {
		env := recvEnvelope(t, client)
		assert.Equal(t, EventNewMessage, env.Type)
		data, err := json.Marshal(env.Data)
		require.NoError(t, err)
		var ev NewMessage
		require.NoError(t, json.Unmarshal(data, &ev))
		assert.Equal(t, want, ev.Message.Text)
	}
}

func TestDispatchToUnknownUserIsNoop(t *testing.T) {
	hub, reg := testHub(t)
	user := uuid.New()
	client := connect(t, hub, reg, user)

	hub.DispatchMessageRead(uuid.New(), MessageRead{ConversationID: uuid.New(), UserID: user})

	select {
	case <-client.Send:
		t.Fatal("event delivered to wrong user")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPresenceBroadcastOnFirstAndLast(t *testing.T) {
	hub, reg := testHub(t)
	watcher := connect(t, hub, reg, uuid.New())

	user := uuid.New()
	first := connect(t, hub, reg, user)
	env := recvEnvelope(t, watcher)
	assert.Equal(t, EventUserOnline, env.Type)

	// a second socket for the same user is silent
	second := &Client{ID: uuid.New().String(), UserID: user, Send: make(chan []byte, 16)}
	hub.RegisterClient(second)
	select {
	case <-watcher.Send:
		t.Fatal("unexpected presence event for second socket")
	case <-time.After(50 * time.Millisecond):
	}

	hub.UnregisterClient(second)
	select {
	case <-watcher.Send:
		t.Fatal("unexpected presence event, user still has a socket")
	case <-time.After(50 * time.Millisecond):
	}

	hub.UnregisterClient(first)
	env = recvEnvelope(t, watcher)
	assert.Equal(t, EventUserOffline, env.Type)
}
