package router

import (
	"github.com/labstack/echo/v4"

	"tradechat/internal/adapter/api/handler"
	"tradechat/internal/adapter/api/middleware"
	"tradechat/internal/infrastructure/ratelimit"
)

func SetupNotificationRouter(e *echo.Echo, notificationHandler *handler.NotificationHandler, authMiddleware *middleware.AuthMiddleware, limiter *ratelimit.RateLimiter) {
	notifications := e.Group("/notifications")
	notifications.Use(authMiddleware.Authenticate)
	notifications.Use(middleware.RateLimit(limiter, ratelimit.ActionRequest))

	notifications.GET("", notificationHandler.List)
	notifications.GET("/unread-count", notificationHandler.UnreadCount)
	notifications.PUT("/read-all", notificationHandler.MarkAllAsRead)
	notifications.PUT("/:id/read", notificationHandler.MarkAsRead)
	notifications.POST("", notificationHandler.Create) // social feed events, actor is the caller
}
