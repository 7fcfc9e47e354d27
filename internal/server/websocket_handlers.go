package server

import (
	"readit/internal/middleware"
	"readit/internal/notifications"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// WebsocketUpgrade rejects plain HTTP requests to the websocket endpoint.
func (s *Server) WebsocketUpgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// WebsocketHandler streams score updates. Signing in is optional; anonymous
// viewers receive the same broadcast events.
// @Summary Realtime score updates
// @Tags realtime
// @Success 101
// @Failure 426 {object} models.ErrorResponse
// @Router /ws [get]
func (s *Server) WebsocketHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		userID, _ := conn.Locals(middleware.LocalUserID).(uint)

		client, err := s.hub.Register(userID, conn)
		if err != nil {
			middleware.Logger.Warn("websocket register rejected", "user_id", userID, "error", err)
			if msg, encErr := (notifications.Event{Type: "error", Payload: map[string]string{"message": err.Error()}}).Encode(); encErr == nil {
				_ = conn.WriteMessage(websocket.TextMessage, msg)
			}
			_ = conn.Close()
			return
		}

		client.Serve()
	})
}
