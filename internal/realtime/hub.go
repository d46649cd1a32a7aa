package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ramadhanidw/messenger-be/internal/presence"
)

// Client is one websocket session. A user may hold several at once.
type Client struct {
	ID     string
	UserID uuid.UUID
	Send   chan []byte
}

// Hub owns the connected-client set and fans push events out to it. Per-user
// delivery walks every socket of that user; the per-client Send channel is
// FIFO, which is what gives a connected client new-message events in
// creation order for any single conversation.
//
// Delivery is best effort. A disconnected or slow client simply misses the
// event; the snapshot fetch on reconnect is the source of truth.
type Hub struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte

	registry presence.Registry
	log      *zap.SugaredLogger

	mu sync.RWMutex
}

func NewHub(registry presence.Registry, log *zap.SugaredLogger) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 256),
		registry:   registry,
		log:        log,
	}
}

func (h *Hub) RegisterClient(client *Client) {
	h.register <- client
}

func (h *Hub) UnregisterClient(client *Client) {
	h.unregister <- client
}

// DispatchNewMessage delivers a new-message event to the recipient's
// sockets.
func (h *Hub) DispatchNewMessage(ev NewMessage) {
	h.sendToUser(ev.RecipientID, Envelope{Type: EventNewMessage, Data: ev})
}

// DispatchMessageRead tells otherID that the reader named in ev has caught
// up in the conversation.
func (h *Hub) DispatchMessageRead(otherID uuid.UUID, ev MessageRead) {
	h.sendToUser(otherID, Envelope{Type: EventMessageRead, Data: ev})
}

func (h *Hub) sendToUser(userID uuid.UUID, env Envelope) {
	payload, err := json.Marshal(env)
	if err != nil {
		h.log.Warnw("encode push event", "type", env.Type, "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.clients {
		if client.UserID != userID {
			continue
		}
		select {
		case client.Send <- payload:
		default:
			// full buffer: drop rather than block the caller
			h.log.Warnw("push buffer full, dropping event", "user", userID, "type", env.Type)
		}
	}
}

// BroadcastPresence announces an online/offline transition to every
// connected client.
func (h *Hub) BroadcastPresence(eventType string, userID uuid.UUID) {
	payload, err := json.Marshal(Envelope{Type: eventType, Data: Presence{UserID: userID}})
	if err != nil {
		h.log.Warnw("encode presence event", "error", err)
		return
	}
	h.broadcast <- payload
}

// Run is the hub's event loop. Registration updates the presence registry
// and, on a user's first socket or last disconnect, broadcasts the presence
// change.
func (h *Hub) Run() {
	ctx := context.Background()
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			h.mu.Unlock()

			first, err := h.registry.Connect(ctx, client.UserID)
			if err != nil {
				h.log.Warnw("presence connect", "user", client.UserID, "error", err)
			}
			if first {
				h.BroadcastPresence(EventUserOnline, client.UserID)
			}

		case client := <-h.unregister:
			h.mu.Lock()
			if old, ok := h.clients[client.ID]; ok {
				delete(h.clients, client.ID)
				close(old.Send)
			}
			h.mu.Unlock()

			last, err := h.registry.Disconnect(ctx, client.UserID)
			if err != nil {
				h.log.Warnw("presence disconnect", "user", client.UserID, "error", err)
			}
			if last {
				h.BroadcastPresence(EventUserOffline, client.UserID)
			}

		case payload := <-h.broadcast:
			h.mu.Lock()
			for id, client := range h.clients {
				select {
				case client.Send <- payload:
				default:
					close(client.Send)
					delete(h.clients, id)
				}
			}
			h.mu.Unlock()
		}
	}
}
