package server

import (
	"context"
	"errors"
	"log/slog"

	"feedhub/internal/middleware"
	"feedhub/internal/notifications"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// WebSocketUpgrade rejects plain HTTP requests to websocket routes.
func (s *Server) WebSocketUpgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// WebSocketFeedHandler streams post events to feed observers. Observers need no
// identity; an authenticated caller is only tagged for logging.
// @Summary Post event stream
// @Description Websocket emitting {"action":"create|update|delete","post":...} for every post change
// @Tags feed
// @Param token query string false "Optional session token"
// @Success 101 {string} string "Switching Protocols"
// @Failure 426 {object} models.ErrorResponse
// @Router /ws [get]
func (s *Server) WebSocketFeedHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		userID, _ := conn.Locals("userID").(uint)

		observer, err := s.hub.Join(userID, conn)
		if err != nil {
			level := slog.LevelError
			if errors.Is(err, notifications.ErrHubClosed) {
				level = slog.LevelInfo
			}
			middleware.Logger.Log(context.Background(), level, "feed observer rejected",
				slog.Uint64("user_id", uint64(userID)),
				slog.String("error", err.Error()),
			)
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"`+err.Error()+`"}`))
			_ = conn.Close()
			return
		}

		observer.Serve()
	})
}
