package router

import (
	"github.com/labstack/echo/v4"

	"tradechat/internal/adapter/api/handler"
	"tradechat/internal/adapter/api/middleware"
	"tradechat/internal/infrastructure/ratelimit"
)

type Handlers struct {
	Conversation *handler.ConversationHandler
	Notification *handler.NotificationHandler
	WebSocket    *handler.WebSocketHandler
	Health       *handler.HealthHandler
	DevToken     *handler.DevTokenHandler
}

func Setup(e *echo.Echo, h Handlers, authMiddleware *middleware.AuthMiddleware, limiter *ratelimit.RateLimiter, environment string) {
	SetupHealthRouter(e, h.Health)
	SetupDevRouter(e, h.DevToken, environment)
	SetupConversationRouter(e, h.Conversation, authMiddleware, limiter)
	SetupNotificationRouter(e, h.Notification, authMiddleware, limiter)
	SetupWebSocketRouter(e, h.WebSocket, authMiddleware)
}
