package server

import (
	"context"
	"encoding/json"
	"log/slog"

	"skillswap/internal/middleware"
	"skillswap/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// requireUpgrade rejects plain HTTP requests to websocket endpoints.
func (s *Server) requireUpgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return models.RespondWithError(c, fiber.StatusUpgradeRequired,
			models.NewValidationError("websocket upgrade required"))
	}
	return c.Next()
}

// WebSocketNotificationsHandler streams the user's realtime notifications.
// The connection only receives; the client is expected to re-fetch over HTTP
// after a notifications_dropped event.
func (s *Server) WebSocketNotificationsHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		userID, _ := conn.Locals("userID").(string)
		if userID == "" {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"unauthorized"}`))
			_ = conn.Close()
			return
		}

		client, err := s.hub.Register(userID, conn)
		if err != nil {
			middleware.Logger.Warn("websocket register rejected",
				slog.String("user_id", userID), slog.String("error", err.Error()))
			msg, _ := json.Marshal(fiber.Map{"error": err.Error()})
			_ = conn.WriteMessage(websocket.TextMessage, msg)
			_ = conn.Close()
			return
		}

		if unread, err := s.notifications.UnreadCount(context.Background(), userID); err == nil {
			if hello, err := json.Marshal(fiber.Map{
				"type":    "connected",
				"payload": fiber.Map{"user_id": userID, "unread_count": unread},
			}); err == nil {
				client.TrySend(hello)
			}
		}

		go client.WritePump()

		// Blocks until the peer disconnects, then unregisters.
		client.ReadPump()
	})
}
