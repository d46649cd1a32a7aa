package handlers

import (
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ramadhanidw/messenger-be/internal/middleware"
	"github.com/ramadhanidw/messenger-be/internal/realtime"
	"github.com/ramadhanidw/messenger-be/internal/utils"
)

type WSHandler struct {
	Hub       *realtime.Hub
	JWTSecret string
	Log       *zap.SugaredLogger
}

func NewWSHandler(hub *realtime.Hub, jwtSecret string, log *zap.SugaredLogger) *WSHandler {
	return &WSHandler{Hub: hub, JWTSecret: jwtSecret, Log: log}
}

// Handle runs one websocket session: authenticate via the session cookie,
// register with the hub, pump hub events out, and keep reading until the
// peer goes away. The read loop only answers keepalives; all state mutation
// happens over REST.
func (h *WSHandler) Handle(c *websocket.Conn) {
	tokenStr := c.Cookies(middleware.AuthCookie)
	if tokenStr == "" {
		_ = c.Close()
		return
	}
	claims, err := utils.ParseJWT(h.JWTSecret, tokenStr)
	if err != nil {
		_ = c.Close()
		return
	}
	userUUID, err := uuid.Parse(claims.UserID)
	if err != nil {
		_ = c.Close()
		return
	}

	client := &realtime.Client{
		ID:     uuid.New().String(),
		UserID: userUUID,
		Send:   make(chan []byte, 256),
	}

	h.Hub.RegisterClient(client)
	defer h.Hub.UnregisterClient(client)

	h.Log.Infow("websocket connected", "user", userUUID)
	defer h.Log.Infow("websocket disconnected", "user", userUUID)

	// exits when the hub closes Send on unregister
	go func() {
		for msg := range client.Send {
			if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.Log.Warnw("websocket write", "user", userUUID, "error", err)
				return
			}
		}
	}()

	for {
		var payload map[string]any
		if err := c.ReadJSON(&payload); err != nil {
			break
		}
		if t, ok := payload["type"].(string); ok && t == "pong" {
			continue
		}
	}
}
